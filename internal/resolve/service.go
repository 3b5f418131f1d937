// Package resolve is the service layer over the resolution engine: it
// parses authority codes, drives the registry, shapes results for
// transport, and carries the operational concerns (caching, metrics,
// tracing, audit) the engine itself stays free of.
package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"georef/internal/audit"
	"georef/internal/crs"
	"georef/internal/operation"
	"georef/internal/platform/metrics"
	"georef/internal/platform/middleware"
	"georef/internal/platform/sentinel"
)

var tracer = otel.Tracer("georef/resolve")

// CRSSource loads coordinate reference systems by authority code. Both the
// SQL dataset and the in-memory dataset satisfy it.
type CRSSource interface {
	CRS(ctx context.Context, code string) (*crs.CRS, error)
}

// Query is one resolution request.
type Query struct {
	// Source and Target are authority codes, "EPSG:4267" or bare "4267".
	Source string
	Target string
	// AreaOfInterest restricts and ranks results; nil derives one from
	// the CRS domains.
	AreaOfInterest *crs.Extent
	// BestOnly truncates the result to the single preferred operation.
	BestOnly bool
}

// Descriptor is the transport-friendly summary of one operation.
type Descriptor struct {
	Identifier string      `json:"identifier,omitempty"`
	Name       string      `json:"name"`
	Type       string      `json:"type"`
	Method     string      `json:"method,omitempty"`
	Accuracy   float64     `json:"accuracy_m,omitempty"`
	Domain     *crs.Extent `json:"domain,omitempty"`
	Scope      string      `json:"scope,omitempty"`
	Inverse    bool        `json:"inverse,omitempty"`
	Steps      []string    `json:"steps,omitempty"`
	SourceDim  int         `json:"source_dimensions"`
	TargetDim  int         `json:"target_dimensions"`
}

// Service resolves coordinate operations between CRS given by code.
type Service struct {
	registry *operation.Registry
	crss     CRSSource
	cache    Cache // nil disables caching
	ttl      time.Duration
	metrics  *metrics.Metrics
	audit    *audit.Recorder
	warn     *log.Logger
}

func New(registry *operation.Registry, crss CRSSource, cache Cache, ttl time.Duration,
	m *metrics.Metrics, recorder *audit.Recorder, warn *log.Logger) (*Service, error) {
	if registry == nil || crss == nil {
		return nil, fmt.Errorf("registry and CRS source are required")
	}
	if warn == nil {
		warn = log.Default()
	}
	return &Service{
		registry: registry,
		crss:     crss,
		cache:    cache,
		ttl:      ttl,
		metrics:  m,
		audit:    recorder,
		warn:     warn,
	}, nil
}

// Operations resolves the query, in preference order. An empty list means
// the dataset registers no operation for the pair; it is not an error.
func (s *Service) Operations(ctx context.Context, q Query) ([]Descriptor, error) {
	ctx, span := tracer.Start(ctx, "resolve.Operations", trace.WithAttributes(
		attribute.String("source", q.Source),
		attribute.String("target", q.Target),
	))
	defer span.End()
	start := time.Now()

	source, err := parseCode(q.Source)
	if err != nil {
		return s.fail(q, start, err)
	}
	target, err := parseCode(q.Target)
	if err != nil {
		return s.fail(q, start, err)
	}
	if q.AreaOfInterest != nil {
		aoi := q.AreaOfInterest
		if aoi.West >= aoi.East || aoi.South >= aoi.North {
			return s.fail(q, start, fmt.Errorf("%w: empty area of interest", sentinel.ErrInvalidParameter))
		}
	}

	key := cacheKey(source, target, q)
	if cached := s.fromCache(ctx, key); cached != nil {
		span.SetAttributes(attribute.Bool("cache_hit", true), attribute.Int("operations", len(cached)))
		s.observe(q, "found", len(cached), start)
		return cached, nil
	}

	sourceCRS, err := s.crss.CRS(ctx, source.Code)
	if err != nil {
		return s.fail(q, start, fmt.Errorf("source %s: %w", source, err))
	}
	targetCRS, err := s.crss.CRS(ctx, target.Code)
	if err != nil {
		return s.fail(q, start, fmt.Errorf("target %s: %w", target, err))
	}

	sc := operation.NewContext()
	sc.AreaOfInterest = q.AreaOfInterest
	sc.StopAtFirst = q.BestOnly
	ops, err := s.registry.CreateOperations(ctx, sc, sourceCRS, targetCRS)
	if err != nil {
		return s.fail(q, start, err)
	}

	result := make([]Descriptor, len(ops))
	for i, op := range ops {
		result[i] = describe(op)
	}
	s.toCache(ctx, key, result)

	outcome := "found"
	if len(result) == 0 {
		outcome = "empty"
	}
	span.SetAttributes(attribute.Int("operations", len(result)))
	s.observe(q, outcome, len(result), start)
	s.emit(ctx, q, outcome, len(result), start)
	return result, nil
}

// FlushCache drops every cached resolution. Exposed to admins for dataset
// upgrades.
func (s *Service) FlushCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Flush(ctx)
}

func (s *Service) fail(q Query, start time.Time, err error) ([]Descriptor, error) {
	s.observe(q, "error", 0, start)
	s.emit(context.Background(), q, "error", 0, start)
	return nil, err
}

func (s *Service) observe(_ Query, outcome string, operations int, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveResolution(outcome, operations, time.Since(start))
	}
}

func (s *Service) emit(ctx context.Context, q Query, outcome string, operations int, start time.Time) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		RequestID:  middleware.GetRequestID(ctx),
		Source:     q.Source,
		Target:     q.Target,
		Outcome:    outcome,
		Operations: operations,
		Duration:   time.Since(start),
	}
	if q.AreaOfInterest != nil {
		event.AreaOfInterest = extentKey(q.AreaOfInterest)
	}
	s.audit.Emit(event)
}

func (s *Service) fromCache(ctx context.Context, key string) []Descriptor {
	if s.cache == nil {
		return nil
	}
	payload, err := s.cache.Get(ctx, key)
	if err != nil {
		s.warn.Printf("cache get: %v", err)
		return nil
	}
	if payload == nil {
		if s.metrics != nil {
			s.metrics.CacheMisses.Inc()
		}
		return nil
	}
	var cached []Descriptor
	if err := json.Unmarshal(payload, &cached); err != nil {
		s.warn.Printf("cache decode: %v", err)
		return nil
	}
	if s.metrics != nil {
		s.metrics.CacheHits.Inc()
	}
	return cached
}

func (s *Service) toCache(ctx context.Context, key string, result []Descriptor) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		s.warn.Printf("cache encode: %v", err)
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.ttl); err != nil {
		s.warn.Printf("cache set: %v", err)
	}
}

// parseCode accepts "AUTHORITY:code" or a bare EPSG code.
func parseCode(raw string) (crs.Code, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return crs.Code{}, fmt.Errorf("%w: missing authority code", sentinel.ErrInvalidParameter)
	}
	if !strings.Contains(raw, ":") {
		return crs.EPSG(raw), nil
	}
	code, err := crs.ParseCode(raw)
	if err != nil {
		return crs.Code{}, fmt.Errorf("%w: %v", sentinel.ErrInvalidParameter, err)
	}
	if !strings.EqualFold(code.Authority, "EPSG") {
		return crs.Code{}, fmt.Errorf("%w: unsupported authority %q", sentinel.ErrInvalidParameter, code.Authority)
	}
	return code, nil
}

func cacheKey(source, target crs.Code, q Query) string {
	key := source.String() + "|" + target.String()
	if q.AreaOfInterest != nil {
		key += "|" + extentKey(q.AreaOfInterest)
	}
	if q.BestOnly {
		key += "|best"
	}
	return key
}

func extentKey(e *crs.Extent) string {
	return fmt.Sprintf("%g,%g,%g,%g", e.West, e.South, e.East, e.North)
}

func describe(op *operation.Operation) Descriptor {
	d := Descriptor{
		Name:     op.Name,
		Type:     op.Type.String(),
		Method:   op.Method.Name,
		Accuracy: op.Accuracy,
		Domain:   op.Domain,
		Scope:    op.Scope,
		Inverse:  op.Class == operation.ClassInverse,
	}
	if id, ok := op.Identifier("EPSG"); ok {
		d.Identifier = id.String()
	}
	for _, step := range op.Steps {
		d.Steps = append(d.Steps, step.Name)
	}
	if op.Transform != nil {
		d.SourceDim = op.Transform.SourceDim()
		d.TargetDim = op.Transform.TargetDim()
	}
	return d
}
