package epsg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/lib/pq"

	"georef/internal/crs"
	"georef/internal/operation"
	"georef/internal/platform/sentinel"
	"georef/internal/transform"
)

// Schema is the simplified EPSG schema the store expects. Init applies it;
// in production the dataset is loaded once by the seeding job.
const Schema = `
CREATE TABLE IF NOT EXISTS epsg_ellipsoid (
	code            TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	semi_major_axis DOUBLE PRECISION NOT NULL,
	inv_flattening  DOUBLE PRECISION NOT NULL,
	deprecated      BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS epsg_datum (
	code              TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	kind              TEXT NOT NULL,
	ellipsoid_code    TEXT REFERENCES epsg_ellipsoid(code),
	ensemble_accuracy DOUBLE PRECISION,
	member_codes      TEXT[],
	deprecated        BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS epsg_crs (
	code            TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	kind            TEXT NOT NULL,
	datum_code      TEXT REFERENCES epsg_datum(code),
	base_crs_code   TEXT,
	component_codes TEXT[],
	axes            JSONB NOT NULL DEFAULT '[]',
	deprecated      BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS epsg_coordoperation (
	code            TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	type            TEXT NOT NULL,
	source_crs_code TEXT NOT NULL,
	target_crs_code TEXT NOT NULL,
	method_code     TEXT,
	method_name     TEXT,
	params          JSONB,
	accuracy        DOUBLE PRECISION,
	step_codes      TEXT[],
	deprecated      BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS epsg_coordoperation_pair_idx
	ON epsg_coordoperation (source_crs_code, target_crs_code);

CREATE TABLE IF NOT EXISTS epsg_alias (
	object_type TEXT NOT NULL,
	object_code TEXT NOT NULL,
	alias       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS epsg_alias_object_idx
	ON epsg_alias (object_type, object_code);

CREATE TABLE IF NOT EXISTS epsg_usage (
	object_type TEXT NOT NULL,
	object_code TEXT NOT NULL,
	scope       TEXT,
	west        DOUBLE PRECISION,
	east        DOUBLE PRECISION,
	south       DOUBLE PRECISION,
	north       DOUBLE PRECISION,
	PRIMARY KEY (object_type, object_code)
);
`

// Store is the PostgreSQL-backed authority factory. All statements run
// under one mutex: the dataset connection is shared and lookups recurse
// (a CRS loads its datum, a datum its ellipsoid), so coarse serialization
// is simpler than juggling per-statement state.
type Store struct {
	mu    sync.Mutex
	db    *sql.DB
	build transform.Builder
}

// NewStore constructs a PostgreSQL-backed EPSG store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, build: transform.Build}
}

// Init applies the schema. Idempotent.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply epsg schema: %w: %w", sentinel.ErrBackend, err)
	}
	return nil
}

// Authority implements operation.AuthorityLookup.
func (s *Store) Authority() string { return Authority }

// axisRow is the JSONB encoding of one coordinate system axis.
type axisRow struct {
	Abbrev    string  `json:"abbrev"`
	Direction string  `json:"direction"`
	UnitScale float64 `json:"unit_scale"`
}

func directionString(d crs.AxisDirection) string {
	switch d {
	case crs.DirectionEast:
		return "east"
	case crs.DirectionWest:
		return "west"
	case crs.DirectionNorth:
		return "north"
	case crs.DirectionSouth:
		return "south"
	case crs.DirectionUp:
		return "up"
	case crs.DirectionDown:
		return "down"
	case crs.DirectionFuture:
		return "future"
	default:
		return "east"
	}
}

func directionFromString(s string) (crs.AxisDirection, error) {
	switch s {
	case "east":
		return crs.DirectionEast, nil
	case "west":
		return crs.DirectionWest, nil
	case "north":
		return crs.DirectionNorth, nil
	case "south":
		return crs.DirectionSouth, nil
	case "up":
		return crs.DirectionUp, nil
	case "down":
		return crs.DirectionDown, nil
	case "future":
		return crs.DirectionFuture, nil
	default:
		return 0, fmt.Errorf("unknown axis direction %q", s)
	}
}

func kindFromString(s string) crs.Kind {
	switch s {
	case "geographic 2D", "geographic":
		return crs.KindGeographic2D
	case "geographic 3D":
		return crs.KindGeographic3D
	case "geocentric":
		return crs.KindGeocentric
	case "projected":
		return crs.KindProjected
	case "vertical":
		return crs.KindVertical
	case "temporal":
		return crs.KindTemporal
	case "engineering":
		return crs.KindEngineering
	case "compound":
		return crs.KindCompound
	default:
		return crs.KindUnknown
	}
}

func datumKindFromString(s string) crs.DatumKind {
	switch s {
	case "geodetic":
		return crs.DatumGeodetic
	case "dynamic geodetic":
		return crs.DatumDynamicGeodetic
	case "vertical":
		return crs.DatumVertical
	case "temporal":
		return crs.DatumTemporal
	case "engineering":
		return crs.DatumEngineering
	default:
		return crs.DatumUnknown
	}
}

// CRS loads a coordinate reference system by EPSG code, following base and
// component references.
func (s *Store) CRS(ctx context.Context, code string) (*crs.CRS, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadCRS(ctx, code, 0)
}

func (s *Store) loadCRS(ctx context.Context, code string, depth int) (*crs.CRS, error) {
	if depth > maxPropertyDepth {
		return nil, fmt.Errorf("crs %s: reference cycle: %w", code, sentinel.ErrMalformedCRS)
	}
	var (
		name       string
		kind       string
		datumCode  sql.NullString
		baseCode   sql.NullString
		components pq.StringArray
		axesJSON   []byte
		deprecated bool
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, kind, datum_code, base_crs_code, component_codes, axes, deprecated
		FROM epsg_crs WHERE code = $1
	`, code).Scan(&name, &kind, &datumCode, &baseCode, &components, &axesJSON, &deprecated)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("crs %s: %w", code, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load crs %s: %w: %w", code, sentinel.ErrBackend, err)
	}
	c := &crs.CRS{
		Name:        name,
		Identifiers: []crs.Code{crs.EPSG(code)},
		Kind:        kindFromString(kind),
		Deprecated:  deprecated,
	}
	var rows []axisRow
	if err := json.Unmarshal(axesJSON, &rows); err != nil {
		return nil, fmt.Errorf("crs %s axes: %w: %w", code, sentinel.ErrBackend, err)
	}
	for _, r := range rows {
		dir, err := directionFromString(r.Direction)
		if err != nil {
			return nil, fmt.Errorf("crs %s: %w: %w", code, sentinel.ErrMalformedCRS, err)
		}
		c.CS.Axes = append(c.CS.Axes, crs.Axis{Abbrev: r.Abbrev, Direction: dir, UnitScale: r.UnitScale})
	}
	if datumCode.Valid {
		datum, ensemble, err := s.loadDatum(ctx, datumCode.String)
		if err != nil {
			return nil, fmt.Errorf("crs %s datum: %w", code, err)
		}
		c.Datum = crs.DatumOrEnsemble{Datum: datum, Ensemble: ensemble}
	}
	if baseCode.Valid {
		base, err := s.loadCRS(ctx, baseCode.String, depth+1)
		if err != nil {
			return nil, fmt.Errorf("crs %s base: %w", code, err)
		}
		c.Base = base
	}
	for _, comp := range components {
		cc, err := s.loadCRS(ctx, comp, depth+1)
		if err != nil {
			return nil, fmt.Errorf("crs %s component: %w", code, err)
		}
		c.Components = append(c.Components, cc)
	}
	c.Aliases, err = s.loadAliases(ctx, "crs", code)
	if err != nil {
		return nil, err
	}
	c.Domain, _, err = s.loadUsage(ctx, "crs", code)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Datum loads a datum by EPSG code. Ensemble rows resolve to nil datum;
// use DatumOrEnsemble via CRS loading for those.
func (s *Store) Datum(ctx context.Context, code string) (*crs.Datum, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	datum, _, err := s.loadDatum(ctx, code)
	if err != nil {
		return nil, err
	}
	if datum == nil {
		return nil, fmt.Errorf("datum %s is an ensemble: %w", code, sentinel.ErrNotFound)
	}
	return datum, nil
}

// loadDatum returns exactly one of datum or ensemble, depending on the
// row's kind.
func (s *Store) loadDatum(ctx context.Context, code string) (*crs.Datum, *crs.Ensemble, error) {
	var (
		name       string
		kind       string
		ellCode    sql.NullString
		accuracy   sql.NullFloat64
		members    pq.StringArray
		deprecated bool
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, kind, ellipsoid_code, ensemble_accuracy, member_codes, deprecated
		FROM epsg_datum WHERE code = $1
	`, code).Scan(&name, &kind, &ellCode, &accuracy, &members, &deprecated)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("datum %s: %w", code, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load datum %s: %w: %w", code, sentinel.ErrBackend, err)
	}
	aliases, err := s.loadAliases(ctx, "datum", code)
	if err != nil {
		return nil, nil, err
	}
	if kind == "ensemble" {
		ensemble := &crs.Ensemble{
			Name:        name,
			Identifiers: []crs.Code{crs.EPSG(code)},
			Accuracy:    accuracy.Float64,
		}
		for _, member := range members {
			d, _, err := s.loadDatum(ctx, member)
			if err != nil {
				return nil, nil, fmt.Errorf("ensemble %s member: %w", code, err)
			}
			if d != nil {
				ensemble.Members = append(ensemble.Members, d)
			}
		}
		return nil, ensemble, nil
	}
	datum := &crs.Datum{
		Name:        name,
		Identifiers: []crs.Code{crs.EPSG(code)},
		Aliases:     aliases,
		Kind:        datumKindFromString(kind),
		Deprecated:  deprecated,
	}
	if ellCode.Valid {
		ell, err := s.loadEllipsoid(ctx, ellCode.String)
		if err != nil {
			return nil, nil, fmt.Errorf("datum %s ellipsoid: %w", code, err)
		}
		datum.Ellipsoid = ell
	}
	return datum, nil, nil
}

// Ellipsoid loads an ellipsoid by EPSG code.
func (s *Store) Ellipsoid(ctx context.Context, code string) (*crs.Ellipsoid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadEllipsoid(ctx, code)
}

func (s *Store) loadEllipsoid(ctx context.Context, code string) (*crs.Ellipsoid, error) {
	var (
		name       string
		semiMajor  float64
		invFlat    float64
		deprecated bool
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, semi_major_axis, inv_flattening, deprecated
		FROM epsg_ellipsoid WHERE code = $1
	`, code).Scan(&name, &semiMajor, &invFlat, &deprecated)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("ellipsoid %s: %w", code, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load ellipsoid %s: %w: %w", code, sentinel.ErrBackend, err)
	}
	aliases, err := s.loadAliases(ctx, "ellipsoid", code)
	if err != nil {
		return nil, err
	}
	return &crs.Ellipsoid{
		Name:              name,
		Identifiers:       []crs.Code{crs.EPSG(code)},
		Aliases:           aliases,
		SemiMajor:         semiMajor,
		InverseFlattening: invFlat,
		Deprecated:        deprecated,
	}, nil
}

func (s *Store) loadAliases(ctx context.Context, objectType, code string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT alias FROM epsg_alias
		WHERE object_type = $1 AND object_code = $2
		ORDER BY alias
	`, objectType, code)
	if err != nil {
		return nil, fmt.Errorf("load aliases %s %s: %w: %w", objectType, code, sentinel.ErrBackend, err)
	}
	defer rows.Close()
	var aliases []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scan alias: %w: %w", sentinel.ErrBackend, err)
		}
		aliases = append(aliases, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aliases: %w: %w", sentinel.ErrBackend, err)
	}
	return aliases, nil
}

func (s *Store) loadUsage(ctx context.Context, objectType, code string) (*crs.Extent, string, error) {
	var (
		scope                    sql.NullString
		west, east, south, north sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT scope, west, east, south, north FROM epsg_usage
		WHERE object_type = $1 AND object_code = $2
	`, objectType, code).Scan(&scope, &west, &east, &south, &north)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("load usage %s %s: %w: %w", objectType, code, sentinel.ErrBackend, err)
	}
	var extent *crs.Extent
	if west.Valid && east.Valid && south.Valid && north.Valid {
		extent = &crs.Extent{
			West:  west.Float64,
			East:  east.Float64,
			South: south.Float64,
			North: north.Float64,
		}
	}
	return extent, scope.String, nil
}

// OperationsForCodePair implements operation.AuthorityLookup: deferred
// operations for the pair, non-deprecated first then ascending code, the
// supersession order of the dataset.
func (s *Store) OperationsForCodePair(ctx context.Context, source, target crs.Code) ([]*operation.Operation, error) {
	if source.Authority != Authority || target.Authority != Authority {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, name, type, method_code, method_name, accuracy, deprecated
		FROM epsg_coordoperation
		WHERE source_crs_code = $1 AND target_crs_code = $2
		ORDER BY deprecated, length(code), code
	`, source.Code, target.Code)
	if err != nil {
		return nil, fmt.Errorf("operations %s to %s: %w: %w", source, target, sentinel.ErrBackend, err)
	}
	defer rows.Close()
	var ops []*operation.Operation
	for rows.Next() {
		var (
			code, name, typ        string
			methodCode, methodName sql.NullString
			accuracy               sql.NullFloat64
			deprecated             bool
		)
		if err := rows.Scan(&code, &name, &typ, &methodCode, &methodName, &accuracy, &deprecated); err != nil {
			return nil, fmt.Errorf("scan operation: %w: %w", sentinel.ErrBackend, err)
		}
		op := &operation.Operation{
			Name:        name,
			Identifiers: []crs.Code{crs.EPSG(code)},
			Type:        operationType(typ),
			Accuracy:    accuracy.Float64,
			Deprecated:  deprecated,
			Deferred:    true,
		}
		if methodName.Valid {
			op.Method = operation.Method{Name: methodName.String}
			if methodCode.Valid {
				op.Method.Code = crs.EPSG(methodCode.String)
			}
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w: %w", sentinel.ErrBackend, err)
	}
	for _, op := range ops {
		code, _ := op.Identifier(Authority)
		op.Domain, op.Scope, err = s.loadUsage(ctx, "coordoperation", code.Code)
		if err != nil {
			return nil, err
		}
	}
	return ops, nil
}

func operationType(s string) operation.Type {
	switch s {
	case "conversion":
		return operation.TypeConversion
	case "transformation":
		return operation.TypeTransformation
	case "concatenated":
		return operation.TypeConcatenated
	default:
		return operation.TypeUnknown
	}
}

// Materialize implements operation.AuthorityLookup.
func (s *Store) Materialize(ctx context.Context, op *operation.Operation) (*operation.Operation, error) {
	code, ok := op.Identifier(Authority)
	if !ok {
		return nil, fmt.Errorf("operation %q has no EPSG identifier: %w", op.Name, sentinel.ErrNotFound)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.materialize(ctx, code.Code, 0)
}

func (s *Store) materialize(ctx context.Context, code string, depth int) (*operation.Operation, error) {
	if depth > maxPropertyDepth {
		return nil, fmt.Errorf("operation %s: step cycle: %w", code, sentinel.ErrInvalidParameter)
	}
	var (
		name, typ              string
		sourceCode, targetCode string
		methodCode, methodName sql.NullString
		paramsJSON             []byte
		accuracy               sql.NullFloat64
		stepCodes              pq.StringArray
		deprecated             bool
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, type, source_crs_code, target_crs_code,
		       method_code, method_name, params, accuracy, step_codes, deprecated
		FROM epsg_coordoperation WHERE code = $1
	`, code).Scan(&name, &typ, &sourceCode, &targetCode,
		&methodCode, &methodName, &paramsJSON, &accuracy, &stepCodes, &deprecated)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("operation %s: %w", code, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load operation %s: %w: %w", code, sentinel.ErrBackend, err)
	}
	source, err := s.loadCRS(ctx, sourceCode, 0)
	if err != nil {
		return nil, fmt.Errorf("operation %s source: %w", code, err)
	}
	target, err := s.loadCRS(ctx, targetCode, 0)
	if err != nil {
		return nil, fmt.Errorf("operation %s target: %w", code, err)
	}
	var params transform.Params
	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &params); err != nil {
			return nil, fmt.Errorf("operation %s params: %w: %w", code, sentinel.ErrBackend, err)
		}
	}
	out := &operation.Operation{
		Name:        name,
		Identifiers: []crs.Code{crs.EPSG(code)},
		Type:        operationType(typ),
		Source:      source,
		Target:      target,
		Params:      params,
		Accuracy:    accuracy.Float64,
		Deprecated:  deprecated,
	}
	if methodName.Valid {
		out.Method = operation.Method{Name: methodName.String}
		if methodCode.Valid {
			out.Method.Code = crs.EPSG(methodCode.String)
		}
	}
	out.Domain, out.Scope, err = s.loadUsage(ctx, "coordoperation", code)
	if err != nil {
		return nil, err
	}
	if out.Type == operation.TypeConcatenated {
		var transforms []transform.MathTransform
		for _, stepCode := range stepCodes {
			step, err := s.materialize(ctx, stepCode, depth+1)
			if err != nil {
				return nil, err
			}
			if step.Transform == nil {
				return nil, fmt.Errorf("operation %s step %s has no transform: %w", code, stepCode, sentinel.ErrInvalidParameter)
			}
			out.Steps = append(out.Steps, step)
			transforms = append(transforms, step.Transform)
		}
		tr, err := transform.Concatenate(transforms...)
		if err != nil {
			return nil, fmt.Errorf("operation %s: %w", code, err)
		}
		out.Transform = tr
		return out, nil
	}
	tr, err := s.build(out.Method.Name, params, transform.AxesOf(source, target))
	if err != nil {
		if out.Type == operation.TypeConversion {
			// Defining conversion with an unsupported method; left for
			// the engine to synthesize.
			return out, nil
		}
		return nil, fmt.Errorf("operation %s: %w", code, err)
	}
	out.Transform = tr
	return out, nil
}
