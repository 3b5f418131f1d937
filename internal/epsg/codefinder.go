package epsg

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"georef/internal/crs"
	"georef/internal/operation"
	"georef/internal/platform/sentinel"
)

// Finder is the SQL-backed candidate code search. Tiers run in escalating
// cost order against the store: declared identifiers, primary name
// pattern, alias table, then property queries filtered by dependency
// codes. Every tier's hits are re-verified against the query object before
// being returned.
type Finder struct {
	store *Store
}

// NewFinder constructs a code finder over a store.
func NewFinder(store *Store) *Finder {
	return &Finder{store: store}
}

// searchHint is the immutable per-call state threaded through recursive
// dependency searches. Each recursion level derives a new value; nothing
// on the finder itself ever changes.
type searchHint struct {
	depth int
}

func (h searchHint) deeper() searchHint {
	return searchHint{depth: h.depth + 1}
}

// Candidates implements operation.CodeFinder.
func (f *Finder) Candidates(ctx context.Context, object any, domain operation.Domain) ([]operation.Candidate, error) {
	return f.candidates(ctx, object, domain, searchHint{})
}

func (f *Finder) candidates(ctx context.Context, object any, domain operation.Domain, hint searchHint) ([]operation.Candidate, error) {
	info, ok := tableFor(object)
	if !ok || hint.depth > maxPropertyDepth {
		return nil, nil
	}

	if domain != operation.DomainExhaustive {
		cand, ok, err := f.declaredCandidate(ctx, object, domain)
		if err != nil {
			return nil, err
		}
		if ok {
			return []operation.Candidate{cand}, nil
		}
	}
	if domain == operation.DomainDeclaration {
		return nil, nil
	}

	includeDeprecated := domain == operation.DomainAll
	tiers := []func(context.Context) ([]codeRow, error){
		func(ctx context.Context) ([]codeRow, error) {
			return f.nameTier(ctx, info, object, includeDeprecated)
		},
		func(ctx context.Context) ([]codeRow, error) {
			return f.aliasTier(ctx, info, object, includeDeprecated)
		},
		func(ctx context.Context) ([]codeRow, error) {
			return f.propertyTier(ctx, object, domain, hint, includeDeprecated)
		},
	}
	for _, tier := range tiers {
		rows, err := tier(ctx)
		if err != nil {
			return nil, err
		}
		out, err := f.verify(ctx, object, rows)
		if err != nil {
			return nil, err
		}
		if len(out) > 0 {
			deprecatedLast(out)
			return out, nil
		}
	}
	return nil, nil
}

// declaredCandidate trusts an EPSG identifier already present on the
// object: as-is in the declaration domain, verified against the dataset in
// wider domains.
func (f *Finder) declaredCandidate(ctx context.Context, object any, domain operation.Domain) (operation.Candidate, bool, error) {
	declared := declaredCode(object)
	if declared.IsZero() {
		return operation.Candidate{}, false, nil
	}
	if domain == operation.DomainDeclaration {
		return operation.Candidate{Code: declared, AxisOrderMatch: true}, true, nil
	}
	out, err := f.verify(ctx, object, []codeRow{{code: declared.Code}})
	if err != nil {
		return operation.Candidate{}, false, err
	}
	if len(out) == 1 {
		return out[0], true, nil
	}
	return operation.Candidate{}, false, nil
}

func declaredCode(object any) crs.Code {
	switch o := object.(type) {
	case *crs.CRS:
		code, _ := o.Identifier(Authority)
		return code
	case *crs.Datum:
		code, _ := o.Identifier(Authority)
		return code
	case *crs.Ensemble:
		for _, id := range o.Identifiers {
			if id.Authority == Authority {
				return id
			}
		}
	case *crs.Ellipsoid:
		code, _ := o.Identifier(Authority)
		return code
	}
	return crs.Code{}
}

func nameOf(object any) string {
	switch o := object.(type) {
	case *crs.CRS:
		return o.Name
	case *crs.Datum:
		return o.Name
	case *crs.Ensemble:
		return o.Name
	case *crs.Ellipsoid:
		return o.Name
	}
	return ""
}

type codeRow struct {
	code       string
	deprecated bool
}

// queryCodes runs one candidate query under the store lock, returning code
// rows in the query's order.
func (f *Finder) queryCodes(ctx context.Context, query string, args ...any) ([]codeRow, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	rows, err := f.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("candidate query: %w: %w", sentinel.ErrBackend, err)
	}
	defer rows.Close()
	var out []codeRow
	for rows.Next() {
		var r codeRow
		if err := rows.Scan(&r.code, &r.deprecated); err != nil {
			return nil, fmt.Errorf("scan candidate: %w: %w", sentinel.ErrBackend, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w: %w", sentinel.ErrBackend, err)
	}
	return out, nil
}

func (f *Finder) nameTier(ctx context.Context, info tableInfo, object any, includeDeprecated bool) ([]codeRow, error) {
	pattern := toLikePattern(nameOf(object))
	if pattern == "" {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT %s, deprecated FROM %s
		WHERE LOWER(%s) LIKE $1
	`, info.codeColumn, info.table, info.nameColumn)
	args := []any{pattern}
	if kinds := kindFilter(object); info.kindColumn != "" && kinds != nil {
		query += fmt.Sprintf(" AND %s = ANY($2)", info.kindColumn)
		args = append(args, pq.Array(kinds))
	}
	if !includeDeprecated {
		query += " AND NOT deprecated"
	}
	query += fmt.Sprintf(" ORDER BY deprecated, length(%[1]s), %[1]s", info.codeColumn)
	return f.queryCodes(ctx, query, args...)
}

func (f *Finder) aliasTier(ctx context.Context, info tableInfo, object any, includeDeprecated bool) ([]codeRow, error) {
	pattern := toLikePattern(nameOf(object))
	if pattern == "" {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT DISTINCT t.%[1]s, t.deprecated FROM %[2]s t
		JOIN epsg_alias a ON a.object_type = $1 AND a.object_code = t.%[1]s
		WHERE LOWER(a.alias) LIKE $2
	`, info.codeColumn, info.table)
	args := []any{info.aliasType, pattern}
	if kinds := kindFilter(object); info.kindColumn != "" && kinds != nil {
		query += fmt.Sprintf(" AND t.%s = ANY($3)", info.kindColumn)
		args = append(args, pq.Array(kinds))
	}
	if !includeDeprecated {
		query += " AND NOT t.deprecated"
	}
	query += fmt.Sprintf(" ORDER BY t.deprecated, length(t.%[1]s), t.%[1]s", info.codeColumn)
	return f.queryCodes(ctx, query, args...)
}

// propertyTier searches by defining properties instead of names: CRS by
// dependency (datum, base CRS or compound components) codes found
// recursively, datums by ellipsoid codes, ellipsoids by semi-major axis
// within the linear tolerance, ordered by distance.
func (f *Finder) propertyTier(ctx context.Context, object any, domain operation.Domain, hint searchHint, includeDeprecated bool) ([]codeRow, error) {
	switch o := object.(type) {
	case *crs.CRS:
		return f.crsPropertyTier(ctx, o, domain, hint, includeDeprecated)
	case *crs.Datum:
		if o.Ellipsoid == nil {
			return nil, nil
		}
		return f.datumPropertyTier(ctx, o.Ellipsoid, kindFilter(o), domain, hint, includeDeprecated)
	case *crs.Ensemble:
		ell := o.Ellipsoid()
		if ell == nil {
			return nil, nil
		}
		return f.datumPropertyTier(ctx, ell, kindFilter(o), domain, hint, includeDeprecated)
	case *crs.Ellipsoid:
		return f.ellipsoidPropertyTier(ctx, o, includeDeprecated)
	}
	return nil, nil
}

func (f *Finder) crsPropertyTier(ctx context.Context, query *crs.CRS, domain operation.Domain, hint searchHint, includeDeprecated bool) ([]codeRow, error) {
	switch {
	case query.Kind == crs.KindCompound && len(query.Components) == 2:
		first, err := f.dependencyCodes(ctx, query.Components[0], domain, hint)
		if err != nil || len(first) == 0 {
			return nil, err
		}
		second, err := f.dependencyCodes(ctx, query.Components[1], domain, hint)
		if err != nil || len(second) == 0 {
			return nil, err
		}
		q := `
			SELECT code, deprecated FROM epsg_crs
			WHERE kind = 'compound'
			  AND component_codes[1] = ANY($1)
			  AND component_codes[2] = ANY($2)
		`
		if !includeDeprecated {
			q += " AND NOT deprecated"
		}
		q += " ORDER BY deprecated, length(code), code"
		return f.queryCodes(ctx, q, pq.Array(first), pq.Array(second))
	case query.IsDerived():
		bases, err := f.dependencyCodes(ctx, query.Base, domain, hint)
		if err != nil || len(bases) == 0 {
			return nil, err
		}
		return f.crsByDependency(ctx, "base_crs_code", bases, kindFilter(query), includeDeprecated)
	case !query.Datum.IsZero():
		var datums []string
		var err error
		if d := query.Datum.AsDatum(); d != nil {
			datums, err = f.dependencyCodes(ctx, d, domain, hint)
		} else {
			datums, err = f.dependencyCodes(ctx, query.Datum.Ensemble, domain, hint)
		}
		if err != nil || len(datums) == 0 {
			return nil, err
		}
		return f.crsByDependency(ctx, "datum_code", datums, kindFilter(query), includeDeprecated)
	}
	return nil, nil
}

// dependencyCodes finds candidate codes for a dependency object through a
// recursive tier search one level deeper.
func (f *Finder) dependencyCodes(ctx context.Context, dependency any, domain operation.Domain, hint searchHint) ([]string, error) {
	cands, err := f.candidates(ctx, dependency, domain, hint.deeper())
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(cands))
	for _, c := range cands {
		codes = append(codes, c.Code.Code)
	}
	return codes, nil
}

func (f *Finder) crsByDependency(ctx context.Context, column string, codes []string, kinds []string, includeDeprecated bool) ([]codeRow, error) {
	query := fmt.Sprintf(`
		SELECT code, deprecated FROM epsg_crs
		WHERE %s = ANY($1)
	`, column)
	args := []any{pq.Array(codes)}
	if kinds != nil {
		query += " AND kind = ANY($2)"
		args = append(args, pq.Array(kinds))
	}
	if !includeDeprecated {
		query += " AND NOT deprecated"
	}
	query += " ORDER BY deprecated, length(code), code"
	return f.queryCodes(ctx, query, args...)
}

func (f *Finder) datumPropertyTier(ctx context.Context, ell *crs.Ellipsoid, kinds []string, domain operation.Domain, hint searchHint, includeDeprecated bool) ([]codeRow, error) {
	ellCodes, err := f.dependencyCodes(ctx, ell, domain, hint)
	if err != nil || len(ellCodes) == 0 {
		return nil, err
	}
	query := `
		SELECT code, deprecated FROM epsg_datum
		WHERE ellipsoid_code = ANY($1)
	`
	args := []any{pq.Array(ellCodes)}
	if kinds != nil {
		query += " AND kind = ANY($2)"
		args = append(args, pq.Array(kinds))
	}
	if !includeDeprecated {
		query += " AND NOT deprecated"
	}
	query += " ORDER BY deprecated, length(code), code"
	return f.queryCodes(ctx, query, args...)
}

func (f *Finder) ellipsoidPropertyTier(ctx context.Context, query *crs.Ellipsoid, includeDeprecated bool) ([]codeRow, error) {
	tol := semiMajorTolerance(query.SemiMajor)
	q := `
		SELECT code, deprecated FROM epsg_ellipsoid
		WHERE semi_major_axis BETWEEN $1 AND $2
	`
	if !includeDeprecated {
		q += " AND NOT deprecated"
	}
	q += " ORDER BY ABS(semi_major_axis - $3), deprecated, length(code), code"
	return f.queryCodes(ctx, q, query.SemiMajor-tol, query.SemiMajor+tol, query.SemiMajor)
}

// verify loads each candidate row and keeps the ones structurally matching
// the query object, flagging CRS candidates whose axis order also matches.
func (f *Finder) verify(ctx context.Context, object any, rows []codeRow) ([]operation.Candidate, error) {
	seen := make(map[string]bool, len(rows))
	var out []operation.Candidate
	for _, r := range rows {
		if seen[r.code] {
			continue
		}
		seen[r.code] = true
		cand, ok, err := f.verifyOne(ctx, object, r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, cand)
		}
	}
	return out, nil
}

func (f *Finder) verifyOne(ctx context.Context, object any, r codeRow) (operation.Candidate, bool, error) {
	cand := operation.Candidate{Code: crs.EPSG(r.code), Deprecated: r.deprecated}
	switch o := object.(type) {
	case *crs.CRS:
		stored, err := f.store.CRS(ctx, r.code)
		if err != nil {
			return cand, false, ignoreNotFound(err)
		}
		if !stored.Equals(o, true) {
			return cand, false, nil
		}
		cand.AxisOrderMatch = stored.Equals(o, false)
		cand.Deprecated = stored.Deprecated
		return cand, true, nil
	case *crs.Datum:
		f.store.mu.Lock()
		datum, ensemble, err := f.store.loadDatum(ctx, r.code)
		f.store.mu.Unlock()
		if err != nil {
			return cand, false, ignoreNotFound(err)
		}
		probe := datumProbe(o)
		if datum != nil && probe(datum.Kind.String(), datum.Ellipsoid) {
			cand.AxisOrderMatch = true
			cand.Deprecated = datum.Deprecated
			return cand, true, nil
		}
		if ensemble != nil && probe("ensemble", ensemble.Ellipsoid()) {
			cand.AxisOrderMatch = true
			return cand, true, nil
		}
		return cand, false, nil
	case *crs.Ensemble:
		f.store.mu.Lock()
		datum, ensemble, err := f.store.loadDatum(ctx, r.code)
		f.store.mu.Unlock()
		if err != nil {
			return cand, false, ignoreNotFound(err)
		}
		probe := ensembleProbe(o)
		if ensemble != nil && probe("ensemble", ensemble.Ellipsoid()) {
			cand.AxisOrderMatch = true
			return cand, true, nil
		}
		if datum != nil && probe(datum.Kind.String(), datum.Ellipsoid) {
			cand.AxisOrderMatch = true
			cand.Deprecated = datum.Deprecated
			return cand, true, nil
		}
		return cand, false, nil
	case *crs.Ellipsoid:
		stored, err := f.store.Ellipsoid(ctx, r.code)
		if err != nil {
			return cand, false, ignoreNotFound(err)
		}
		if !ellipsoidsMatch(o, stored) {
			return cand, false, nil
		}
		cand.AxisOrderMatch = true
		cand.Deprecated = stored.Deprecated
		return cand, true, nil
	}
	return cand, false, nil
}

// ignoreNotFound drops not-found errors during verification: a candidate
// row that vanished is simply not a candidate. Backend failures propagate.
func ignoreNotFound(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	return err
}
