// Package httptransport is the thin HTTP layer over the resolution
// service. Handlers own transport concerns only: query parsing, error
// translation, and response shaping. Resolution semantics stay in the
// service and the engine.
package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"georef/internal/crs"
	"georef/internal/platform/middleware"
	"georef/internal/platform/sentinel"
	"georef/internal/resolve"
)

// Resolver is the service surface the handlers need.
type Resolver interface {
	Operations(ctx context.Context, q resolve.Query) ([]resolve.Descriptor, error)
	FlushCache(ctx context.Context) error
}

// Handler wires the resolution endpoints to the resolve service.
type Handler struct {
	service Resolver
	logger  *log.Logger
}

// NewHandler constructs a handler with its dependencies.
func NewHandler(service Resolver, logger *log.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/operations", h.HandleOperations)
}

// RegisterAdmin mounts the admin endpoints. The caller guards the subtree
// with scope middleware; nothing here re-checks authentication.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/cache/flush", h.HandleCacheFlush)
}

type operationsResponse struct {
	Source     string               `json:"source"`
	Target     string               `json:"target"`
	Count      int                  `json:"count"`
	Operations []resolve.Descriptor `json:"operations"`
}

// HandleOperations handles GET /v1/operations requests.
func (h *Handler) HandleOperations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()

	q, err := queryFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.Operations(ctx, q)
	if err != nil {
		h.logger.Printf("resolution failed (request %s, %s -> %s): %v",
			requestID, q.Source, q.Target, err)
		writeError(w, err)
		return
	}

	h.logger.Printf("resolved %s -> %s: %d operation(s) in %dms (request %s)",
		q.Source, q.Target, len(result), time.Since(start).Milliseconds(), requestID)

	if result == nil {
		result = []resolve.Descriptor{}
	}
	writeJSON(w, http.StatusOK, operationsResponse{
		Source:     q.Source,
		Target:     q.Target,
		Count:      len(result),
		Operations: result,
	})
}

// HandleCacheFlush handles POST /admin/cache/flush requests.
func (h *Handler) HandleCacheFlush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.FlushCache(ctx); err != nil {
		h.logger.Printf("cache flush failed (request %s): %v", middleware.GetRequestID(ctx), err)
		writeError(w, fmt.Errorf("%w: cache flush failed", sentinel.ErrUnavailable))
		return
	}
	h.logger.Printf("resolution cache flushed (request %s)", middleware.GetRequestID(ctx))
	writeJSON(w, http.StatusOK, map[string]string{"status": "flushed"})
}

// queryFromRequest parses and validates the resolution query parameters.
func queryFromRequest(r *http.Request) (resolve.Query, error) {
	params := r.URL.Query()
	q := resolve.Query{
		Source: params.Get("source"),
		Target: params.Get("target"),
	}
	if q.Source == "" || q.Target == "" {
		return q, fmt.Errorf("%w: source and target are required", sentinel.ErrInvalidParameter)
	}
	if raw := params.Get("bbox"); raw != "" {
		aoi, err := parseBBox(raw)
		if err != nil {
			return q, err
		}
		q.AreaOfInterest = aoi
	}
	if raw := params.Get("best"); raw != "" {
		best, err := strconv.ParseBool(raw)
		if err != nil {
			return q, fmt.Errorf("%w: best must be a boolean", sentinel.ErrInvalidParameter)
		}
		q.BestOnly = best
	}
	return q, nil
}

// parseBBox reads a west,south,east,north extent in decimal degrees.
func parseBBox(raw string) (*crs.Extent, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("%w: bbox wants west,south,east,north", sentinel.ErrInvalidParameter)
	}
	coords := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bbox coordinate %q", sentinel.ErrInvalidParameter, part)
		}
		coords[i] = v
	}
	return &crs.Extent{West: coords[0], South: coords[1], East: coords[2], North: coords[3]}, nil
}

// writeError centralizes sentinel error translation to HTTP responses so
// every endpoint answers with the same JSON envelope.
func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = strings.ToLower(http.StatusText(status))
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, sentinel.ErrInvalidParameter), errors.Is(err, sentinel.ErrMalformedCRS):
		return http.StatusBadRequest
	case errors.Is(err, sentinel.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sentinel.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, sentinel.ErrBackend):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
