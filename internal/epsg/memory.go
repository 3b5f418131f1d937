package epsg

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"georef/internal/crs"
	"georef/internal/operation"
	"georef/internal/platform/sentinel"
	"georef/internal/transform"
)

// OperationRecord is one row of the coordinate-operation table. Steps is
// set only for concatenated operations and lists the step operation codes
// in source-to-target order.
type OperationRecord struct {
	Code       string
	Name       string
	Type       operation.Type
	SourceCRS  string
	TargetCRS  string
	Method     operation.Method
	Params     transform.Params
	Accuracy   float64
	Domain     *crs.Extent
	Scope      string
	Deprecated bool
	Steps      []string
}

// Memory is an in-memory EPSG dataset implementing both the authority
// lookup and the candidate code finder. It serves as the engine's test
// double and as an embedded fallback when no database is configured.
type Memory struct {
	mu         sync.RWMutex
	crss       map[string]*crs.CRS
	datums     map[string]*crs.Datum
	ensembles  map[string]*crs.Ensemble
	ellipsoids map[string]*crs.Ellipsoid
	ops        map[string]*OperationRecord

	// insertion order per table, so searches scan deterministically
	crsOrder       []string
	datumOrder     []string
	ensembleOrder  []string
	ellipsoidOrder []string

	byPair map[[2]string][]*OperationRecord

	build transform.Builder
}

// NewMemory returns an empty dataset.
func NewMemory() *Memory {
	return &Memory{
		crss:       make(map[string]*crs.CRS),
		datums:     make(map[string]*crs.Datum),
		ensembles:  make(map[string]*crs.Ensemble),
		ellipsoids: make(map[string]*crs.Ellipsoid),
		ops:        make(map[string]*OperationRecord),
		byPair:     make(map[[2]string][]*OperationRecord),
		build:      transform.Build,
	}
}

// AddEllipsoid registers an ellipsoid under its first EPSG identifier.
func (m *Memory) AddEllipsoid(e *crs.Ellipsoid) {
	code, ok := e.Identifier(Authority)
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.ellipsoids[code.Code]; !dup {
		m.ellipsoidOrder = append(m.ellipsoidOrder, code.Code)
	}
	m.ellipsoids[code.Code] = e
}

// AddDatum registers a datum under its first EPSG identifier.
func (m *Memory) AddDatum(d *crs.Datum) {
	code, ok := d.Identifier(Authority)
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.datums[code.Code]; !dup {
		m.datumOrder = append(m.datumOrder, code.Code)
	}
	m.datums[code.Code] = d
}

// AddEnsemble registers a datum ensemble under its first EPSG identifier.
func (m *Memory) AddEnsemble(e *crs.Ensemble) {
	var code crs.Code
	found := false
	for _, id := range e.Identifiers {
		if id.Authority == Authority {
			code, found = id, true
			break
		}
	}
	if !found {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.ensembles[code.Code]; !dup {
		m.ensembleOrder = append(m.ensembleOrder, code.Code)
	}
	m.ensembles[code.Code] = e
}

// AddCRS registers a CRS under its first EPSG identifier.
func (m *Memory) AddCRS(c *crs.CRS) {
	code, ok := c.Identifier(Authority)
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.crss[code.Code]; !dup {
		m.crsOrder = append(m.crsOrder, code.Code)
	}
	m.crss[code.Code] = c
}

// AddOperation registers a coordinate operation. The per-pair bucket keeps
// non-deprecated rows first, then ascending code order, mirroring the
// supersession-aware ordering of the SQL store.
func (m *Memory) AddOperation(rec OperationRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := rec
	m.ops[r.Code] = &r
	key := [2]string{r.SourceCRS, r.TargetCRS}
	bucket := append(m.byPair[key], &r)
	sort.SliceStable(bucket, func(i, j int) bool {
		a, b := bucket[i], bucket[j]
		if a.Deprecated != b.Deprecated {
			return !a.Deprecated
		}
		return codeLess(a.Code, b.Code)
	})
	m.byPair[key] = bucket
}

// codeLess orders numeric code strings ascending.
func codeLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// Authority implements operation.AuthorityLookup.
func (m *Memory) Authority() string { return Authority }

// CRS returns the CRS registered under an EPSG code.
func (m *Memory) CRS(_ context.Context, code string) (*crs.CRS, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.crss[code]
	if !ok {
		return nil, fmt.Errorf("crs %s: %w", code, sentinel.ErrNotFound)
	}
	return c, nil
}

// Datum returns the datum registered under an EPSG code.
func (m *Memory) Datum(_ context.Context, code string) (*crs.Datum, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.datums[code]
	if !ok {
		return nil, fmt.Errorf("datum %s: %w", code, sentinel.ErrNotFound)
	}
	return d, nil
}

// Ellipsoid returns the ellipsoid registered under an EPSG code.
func (m *Memory) Ellipsoid(_ context.Context, code string) (*crs.Ellipsoid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.ellipsoids[code]
	if !ok {
		return nil, fmt.Errorf("ellipsoid %s: %w", code, sentinel.ErrNotFound)
	}
	return e, nil
}

// OperationsForCodePair implements operation.AuthorityLookup. The returned
// operations are deferred: identifying metadata only, no CRS or transform.
func (m *Memory) OperationsForCodePair(_ context.Context, source, target crs.Code) ([]*operation.Operation, error) {
	if source.Authority != Authority || target.Authority != Authority {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucket := m.byPair[[2]string{source.Code, target.Code}]
	ops := make([]*operation.Operation, 0, len(bucket))
	for _, rec := range bucket {
		ops = append(ops, deferredOp(rec))
	}
	return ops, nil
}

func deferredOp(rec *OperationRecord) *operation.Operation {
	return &operation.Operation{
		Name:        rec.Name,
		Identifiers: []crs.Code{crs.EPSG(rec.Code)},
		Type:        rec.Type,
		Method:      rec.Method,
		Accuracy:    rec.Accuracy,
		Domain:      rec.Domain,
		Scope:       rec.Scope,
		Deprecated:  rec.Deprecated,
		Deferred:    true,
	}
}

// Materialize implements operation.AuthorityLookup: it resolves a deferred
// operation into a full one, loading CRS, parameters and transform. A
// conversion whose method the transform builder does not know is returned
// with a nil transform and its parameters attached, for the engine to
// synthesize from the defining conversion.
func (m *Memory) Materialize(ctx context.Context, op *operation.Operation) (*operation.Operation, error) {
	code, ok := op.Identifier(Authority)
	if !ok {
		return nil, fmt.Errorf("operation %q has no EPSG identifier: %w", op.Name, sentinel.ErrNotFound)
	}
	m.mu.RLock()
	rec, ok := m.ops[code.Code]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("operation %s: %w", code, sentinel.ErrNotFound)
	}
	return m.materialize(ctx, rec)
}

func (m *Memory) materialize(ctx context.Context, rec *OperationRecord) (*operation.Operation, error) {
	source, err := m.CRS(ctx, rec.SourceCRS)
	if err != nil {
		return nil, fmt.Errorf("operation %s source: %w", rec.Code, err)
	}
	target, err := m.CRS(ctx, rec.TargetCRS)
	if err != nil {
		return nil, fmt.Errorf("operation %s target: %w", rec.Code, err)
	}
	op := &operation.Operation{
		Name:        rec.Name,
		Identifiers: []crs.Code{crs.EPSG(rec.Code)},
		Type:        rec.Type,
		Source:      source,
		Target:      target,
		Method:      rec.Method,
		Params:      rec.Params.Clone(),
		Accuracy:    rec.Accuracy,
		Domain:      rec.Domain,
		Scope:       rec.Scope,
		Deprecated:  rec.Deprecated,
	}
	if rec.Type == operation.TypeConcatenated {
		return m.materializeChain(ctx, rec, op)
	}
	tr, err := m.build(rec.Method.Name, rec.Params, transform.AxesOf(source, target))
	if err != nil {
		if rec.Type == operation.TypeConversion {
			// Defining conversion with an unsupported method; the
			// engine decides whether it can synthesize it.
			return op, nil
		}
		return nil, fmt.Errorf("operation %s: %w", rec.Code, err)
	}
	op.Transform = tr
	return op, nil
}

func (m *Memory) materializeChain(ctx context.Context, rec *OperationRecord, op *operation.Operation) (*operation.Operation, error) {
	steps := make([]*operation.Operation, 0, len(rec.Steps))
	transforms := make([]transform.MathTransform, 0, len(rec.Steps))
	for _, stepCode := range rec.Steps {
		m.mu.RLock()
		stepRec, ok := m.ops[stepCode]
		m.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("operation %s step %s: %w", rec.Code, stepCode, sentinel.ErrNotFound)
		}
		step, err := m.materialize(ctx, stepRec)
		if err != nil {
			return nil, err
		}
		if step.Transform == nil {
			return nil, fmt.Errorf("operation %s step %s has no transform: %w", rec.Code, stepCode, sentinel.ErrInvalidParameter)
		}
		steps = append(steps, step)
		transforms = append(transforms, step.Transform)
	}
	tr, err := transform.Concatenate(transforms...)
	if err != nil {
		return nil, fmt.Errorf("operation %s: %w", rec.Code, err)
	}
	op.Steps = steps
	op.Transform = tr
	return op, nil
}

// Candidates implements operation.CodeFinder over the in-memory tables.
func (m *Memory) Candidates(_ context.Context, object any, domain operation.Domain) ([]operation.Candidate, error) {
	if _, ok := tableFor(object); !ok {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if domain != operation.DomainExhaustive {
		if cand, ok := m.declaredCandidate(object, domain); ok {
			return []operation.Candidate{cand}, nil
		}
	}
	if domain == operation.DomainDeclaration {
		return nil, nil
	}

	includeDeprecated := domain == operation.DomainAll
	var out []operation.Candidate
	switch o := object.(type) {
	case *crs.CRS:
		out = m.searchCRS(o, includeDeprecated)
	case *crs.Datum:
		out = m.searchGeodetic(o.Name, o.Aliases, datumProbe(o), includeDeprecated)
	case *crs.Ensemble:
		out = m.searchGeodetic(o.Name, nil, ensembleProbe(o), includeDeprecated)
	case *crs.Ellipsoid:
		out = m.searchEllipsoid(o, includeDeprecated)
	}
	deprecatedLast(out)
	return out, nil
}

// declaredCandidate handles the cheapest tier: an EPSG identifier already
// declared on the object. In the declaration domain it is trusted as-is;
// wider domains require the dataset row to exist and match.
func (m *Memory) declaredCandidate(object any, domain operation.Domain) (operation.Candidate, bool) {
	var declared crs.Code
	switch o := object.(type) {
	case *crs.CRS:
		declared, _ = o.Identifier(Authority)
	case *crs.Datum:
		declared, _ = o.Identifier(Authority)
	case *crs.Ensemble:
		for _, id := range o.Identifiers {
			if id.Authority == Authority {
				declared = id
				break
			}
		}
	case *crs.Ellipsoid:
		declared, _ = o.Identifier(Authority)
	}
	if declared.IsZero() {
		return operation.Candidate{}, false
	}
	if domain == operation.DomainDeclaration {
		return operation.Candidate{Code: declared, AxisOrderMatch: true}, true
	}
	switch o := object.(type) {
	case *crs.CRS:
		if stored, ok := m.crss[declared.Code]; ok && stored.Equals(o, true) {
			return operation.Candidate{
				Code:           declared,
				AxisOrderMatch: stored.Equals(o, false),
				Deprecated:     stored.Deprecated,
			}, true
		}
	case *crs.Datum:
		if stored, ok := m.datums[declared.Code]; ok && datumProbe(o)(stored.Kind.String(), stored.Ellipsoid) {
			return operation.Candidate{Code: declared, AxisOrderMatch: true, Deprecated: stored.Deprecated}, true
		}
	case *crs.Ensemble:
		if stored, ok := m.ensembles[declared.Code]; ok && ensembleProbe(o)("ensemble", stored.Ellipsoid()) {
			return operation.Candidate{Code: declared, AxisOrderMatch: true}, true
		}
	case *crs.Ellipsoid:
		if stored, ok := m.ellipsoids[declared.Code]; ok && ellipsoidsMatch(o, stored) {
			return operation.Candidate{Code: declared, AxisOrderMatch: true, Deprecated: stored.Deprecated}, true
		}
	}
	return operation.Candidate{}, false
}

// searchCRS runs the name, alias and property tiers against the CRS table,
// stopping at the first tier that yields verified hits. Every hit is
// re-verified by structural equality, so the property tier degenerates to
// an exhaustive scan.
func (m *Memory) searchCRS(query *crs.CRS, includeDeprecated bool) []operation.Candidate {
	pattern := toLikePattern(query.Name)
	tiers := []func(c *crs.CRS) bool{
		func(c *crs.CRS) bool { return pattern != "" && likeMatch(pattern, c.Name) },
		func(c *crs.CRS) bool { return pattern != "" && anyAlias(pattern, c.Aliases) },
		func(c *crs.CRS) bool { return true },
	}
	for _, tier := range tiers {
		var out []operation.Candidate
		for _, code := range m.crsOrder {
			cand := m.crss[code]
			if cand.Deprecated && !includeDeprecated {
				continue
			}
			if !tier(cand) || !cand.Equals(query, true) {
				continue
			}
			out = append(out, operation.Candidate{
				Code:           crs.EPSG(code),
				AxisOrderMatch: cand.Equals(query, false),
				Deprecated:     cand.Deprecated,
			})
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// geodeticProbe checks a (kind, ellipsoid) pair from the datum table
// against the query object.
type geodeticProbe func(kind string, ell *crs.Ellipsoid) bool

func datumProbe(query *crs.Datum) geodeticProbe {
	kinds := kindFilter(query)
	return func(kind string, ell *crs.Ellipsoid) bool {
		if !containsString(kinds, kind) {
			return false
		}
		if query.Ellipsoid == nil || ell == nil {
			return query.Ellipsoid == nil && ell == nil
		}
		return ellipsoidsMatch(query.Ellipsoid, ell)
	}
}

func ensembleProbe(query *crs.Ensemble) geodeticProbe {
	kinds := kindFilter(query)
	queryEll := query.Ellipsoid()
	return func(kind string, ell *crs.Ellipsoid) bool {
		if !containsString(kinds, kind) {
			return false
		}
		if queryEll == nil || ell == nil {
			return true // ellipsoid unknown on one side, name tier decides
		}
		return ellipsoidsMatch(queryEll, ell)
	}
}

// searchGeodetic runs the tiers against both the datum and ensemble rows:
// the datum table holds both, and the "geodetic" kind synonyms make them
// interchangeable candidates.
func (m *Memory) searchGeodetic(name string, aliases []string, probe geodeticProbe, includeDeprecated bool) []operation.Candidate {
	var patterns []string
	for _, n := range append([]string{name}, aliases...) {
		if p := toLikePattern(n); p != "" {
			patterns = append(patterns, p)
		}
	}
	type row struct {
		code       string
		name       string
		aliases    []string
		kind       string
		ell        *crs.Ellipsoid
		deprecated bool
	}
	var rows []row
	for _, code := range m.datumOrder {
		d := m.datums[code]
		rows = append(rows, row{code, d.Name, d.Aliases, d.Kind.String(), d.Ellipsoid, d.Deprecated})
	}
	for _, code := range m.ensembleOrder {
		e := m.ensembles[code]
		rows = append(rows, row{code, e.Name, nil, "ensemble", e.Ellipsoid(), false})
	}
	tiers := []func(r row) bool{
		func(r row) bool { return anyPattern(patterns, r.name) },
		func(r row) bool {
			for _, a := range r.aliases {
				if anyPattern(patterns, a) {
					return true
				}
			}
			return false
		},
		func(r row) bool { return true },
	}
	for _, tier := range tiers {
		var out []operation.Candidate
		for _, r := range rows {
			if r.deprecated && !includeDeprecated {
				continue
			}
			if !tier(r) || !probe(r.kind, r.ell) {
				continue
			}
			out = append(out, operation.Candidate{
				Code:           crs.EPSG(r.code),
				AxisOrderMatch: true,
				Deprecated:     r.deprecated,
			})
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// searchEllipsoid runs the name and alias tiers, then the semi-major axis
// window ordered by distance. The window is also the match criterion for
// the earlier tiers: a name hit with a different axis length is noise.
func (m *Memory) searchEllipsoid(query *crs.Ellipsoid, includeDeprecated bool) []operation.Candidate {
	pattern := toLikePattern(query.Name)
	tiers := []func(e *crs.Ellipsoid) bool{
		func(e *crs.Ellipsoid) bool { return pattern != "" && likeMatch(pattern, e.Name) },
		func(e *crs.Ellipsoid) bool { return pattern != "" && anyAlias(pattern, e.Aliases) },
		func(e *crs.Ellipsoid) bool { return true },
	}
	tol := semiMajorTolerance(query.SemiMajor)
	for _, tier := range tiers {
		type scored struct {
			cand operation.Candidate
			dist float64
		}
		var hits []scored
		for _, code := range m.ellipsoidOrder {
			e := m.ellipsoids[code]
			if e.Deprecated && !includeDeprecated {
				continue
			}
			dist := e.SemiMajor - query.SemiMajor
			if dist < 0 {
				dist = -dist
			}
			if !tier(e) || dist > tol {
				continue
			}
			hits = append(hits, scored{operation.Candidate{
				Code:           crs.EPSG(code),
				AxisOrderMatch: true,
				Deprecated:     e.Deprecated,
			}, dist})
		}
		if len(hits) == 0 {
			continue
		}
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
		out := make([]operation.Candidate, len(hits))
		for i, h := range hits {
			out[i] = h.cand
		}
		return out
	}
	return nil
}

// ellipsoidsMatch compares two ellipsoids by semi-major axis within the
// linear tolerance. Flattening variants of the same axis length (GRS 1980
// vs WGS 84) deliberately match: they are interchangeable at the accuracy
// the dataset records.
func ellipsoidsMatch(a, b *crs.Ellipsoid) bool {
	diff := a.SemiMajor - b.SemiMajor
	if diff < 0 {
		diff = -diff
	}
	return diff <= semiMajorTolerance(a.SemiMajor)
}

func anyPattern(patterns []string, name string) bool {
	for _, p := range patterns {
		if likeMatch(p, name) {
			return true
		}
	}
	return false
}

func anyAlias(pattern string, aliases []string) bool {
	for _, a := range aliases {
		if likeMatch(pattern, a) {
			return true
		}
	}
	return false
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// deprecatedLast stably moves deprecated candidates to the tail.
func deprecatedLast(out []operation.Candidate) {
	sort.SliceStable(out, func(i, j int) bool {
		return !out[i].Deprecated && out[j].Deprecated
	})
}
