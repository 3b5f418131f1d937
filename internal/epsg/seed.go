package epsg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"georef/internal/crs"
)

// Seed copies an in-memory dataset into the SQL store. Idempotent: rows
// already present are left alone. Used by the bootstrap job and the
// integration tests.
func (s *Store) Seed(ctx context.Context, m *Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, code := range m.ellipsoidOrder {
		e := m.ellipsoids[code]
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO epsg_ellipsoid (code, name, semi_major_axis, inv_flattening, deprecated)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (code) DO NOTHING
		`, code, e.Name, e.SemiMajor, e.InverseFlattening, e.Deprecated)
		if err != nil {
			return fmt.Errorf("seed ellipsoid %s: %w", code, err)
		}
		if err := s.seedAliases(ctx, "ellipsoid", code, e.Aliases); err != nil {
			return err
		}
	}

	for _, code := range m.datumOrder {
		d := m.datums[code]
		var ellCode sql.NullString
		if d.Ellipsoid != nil {
			if id, ok := d.Ellipsoid.Identifier(Authority); ok {
				ellCode = sql.NullString{String: id.Code, Valid: true}
			}
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO epsg_datum (code, name, kind, ellipsoid_code, deprecated)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (code) DO NOTHING
		`, code, d.Name, d.Kind.String(), ellCode, d.Deprecated)
		if err != nil {
			return fmt.Errorf("seed datum %s: %w", code, err)
		}
		if err := s.seedAliases(ctx, "datum", code, d.Aliases); err != nil {
			return err
		}
	}

	for _, code := range m.ensembleOrder {
		e := m.ensembles[code]
		var members []string
		for _, d := range e.Members {
			if id, ok := d.Identifier(Authority); ok {
				members = append(members, id.Code)
			}
		}
		var ellCode sql.NullString
		if ell := e.Ellipsoid(); ell != nil {
			if id, ok := ell.Identifier(Authority); ok {
				ellCode = sql.NullString{String: id.Code, Valid: true}
			}
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO epsg_datum (code, name, kind, ellipsoid_code, ensemble_accuracy, member_codes)
			VALUES ($1, $2, 'ensemble', $3, $4, $5)
			ON CONFLICT (code) DO NOTHING
		`, code, e.Name, ellCode, e.Accuracy, pq.Array(members))
		if err != nil {
			return fmt.Errorf("seed ensemble %s: %w", code, err)
		}
	}

	for _, code := range m.crsOrder {
		if err := s.seedCRS(ctx, code, m.crss[code]); err != nil {
			return err
		}
	}

	for code, rec := range m.ops {
		var paramsJSON []byte
		if rec.Params != nil {
			var err error
			paramsJSON, err = json.Marshal(rec.Params)
			if err != nil {
				return fmt.Errorf("seed operation %s params: %w", code, err)
			}
		}
		var methodCode, methodName sql.NullString
		if rec.Method.Name != "" {
			methodName = sql.NullString{String: rec.Method.Name, Valid: true}
		}
		if !rec.Method.Code.IsZero() {
			methodCode = sql.NullString{String: rec.Method.Code.Code, Valid: true}
		}
		var accuracy sql.NullFloat64
		if rec.Accuracy > 0 {
			accuracy = sql.NullFloat64{Float64: rec.Accuracy, Valid: true}
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO epsg_coordoperation
				(code, name, type, source_crs_code, target_crs_code,
				 method_code, method_name, params, accuracy, step_codes, deprecated)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (code) DO NOTHING
		`, code, rec.Name, rec.Type.String(), rec.SourceCRS, rec.TargetCRS,
			methodCode, methodName, paramsJSON, accuracy, pq.Array(rec.Steps), rec.Deprecated)
		if err != nil {
			return fmt.Errorf("seed operation %s: %w", code, err)
		}
		if err := s.seedUsage(ctx, "coordoperation", code, rec.Domain, rec.Scope); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) seedCRS(ctx context.Context, code string, c *crs.CRS) error {
	axes := make([]axisRow, 0, len(c.CS.Axes))
	for _, a := range c.CS.Axes {
		axes = append(axes, axisRow{
			Abbrev:    a.Abbrev,
			Direction: directionString(a.Direction),
			UnitScale: a.UnitScale,
		})
	}
	axesJSON, err := json.Marshal(axes)
	if err != nil {
		return fmt.Errorf("seed crs %s axes: %w", code, err)
	}
	var datumCode, baseCode sql.NullString
	if d := c.Datum.AsDatum(); d != nil {
		if id, ok := d.Identifier(Authority); ok {
			datumCode = sql.NullString{String: id.Code, Valid: true}
		}
	} else if c.Datum.Ensemble != nil {
		for _, id := range c.Datum.Ensemble.Identifiers {
			if id.Authority == Authority {
				datumCode = sql.NullString{String: id.Code, Valid: true}
				break
			}
		}
	}
	if c.Base != nil {
		if id, ok := c.Base.Identifier(Authority); ok {
			baseCode = sql.NullString{String: id.Code, Valid: true}
		}
	}
	var components []string
	for _, comp := range c.Components {
		if id, ok := comp.Identifier(Authority); ok {
			components = append(components, id.Code)
		}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO epsg_crs
			(code, name, kind, datum_code, base_crs_code, component_codes, axes, deprecated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (code) DO NOTHING
	`, code, c.Name, c.Kind.String(), datumCode, baseCode, pq.Array(components), axesJSON, c.Deprecated)
	if err != nil {
		return fmt.Errorf("seed crs %s: %w", code, err)
	}
	if err := s.seedAliases(ctx, "crs", code, c.Aliases); err != nil {
		return err
	}
	return s.seedUsage(ctx, "crs", code, c.Domain, "")
}

func (s *Store) seedAliases(ctx context.Context, objectType, code string, aliases []string) error {
	for _, alias := range aliases {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO epsg_alias (object_type, object_code, alias)
			SELECT $1, $2, $3
			WHERE NOT EXISTS (
				SELECT 1 FROM epsg_alias
				WHERE object_type = $1 AND object_code = $2 AND alias = $3
			)
		`, objectType, code, alias)
		if err != nil {
			return fmt.Errorf("seed alias %s %s: %w", objectType, code, err)
		}
	}
	return nil
}

func (s *Store) seedUsage(ctx context.Context, objectType, code string, extent *crs.Extent, scope string) error {
	if extent == nil && scope == "" {
		return nil
	}
	var scopeVal sql.NullString
	if scope != "" {
		scopeVal = sql.NullString{String: scope, Valid: true}
	}
	var west, east, south, north sql.NullFloat64
	if extent != nil {
		west = sql.NullFloat64{Float64: extent.West, Valid: true}
		east = sql.NullFloat64{Float64: extent.East, Valid: true}
		south = sql.NullFloat64{Float64: extent.South, Valid: true}
		north = sql.NullFloat64{Float64: extent.North, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO epsg_usage (object_type, object_code, scope, west, east, south, north)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (object_type, object_code) DO NOTHING
	`, objectType, code, scopeVal, west, east, south, north)
	if err != nil {
		return fmt.Errorf("seed usage %s %s: %w", objectType, code, err)
	}
	return nil
}
