package crs

import "strings"

// DatumKind tags the variant of a datum.
type DatumKind int

const (
	DatumUnknown DatumKind = iota
	DatumGeodetic
	DatumDynamicGeodetic
	DatumVertical
	DatumTemporal
	DatumEngineering
)

func (k DatumKind) String() string {
	switch k {
	case DatumGeodetic:
		return "geodetic"
	case DatumDynamicGeodetic:
		return "dynamic geodetic"
	case DatumVertical:
		return "vertical"
	case DatumTemporal:
		return "temporal"
	case DatumEngineering:
		return "engineering"
	default:
		return "unknown"
	}
}

// Ellipsoid is a reference ellipsoid defined by its semi-major axis (metres)
// and inverse flattening.
type Ellipsoid struct {
	Name              string
	Identifiers       []Code
	Aliases           []string
	SemiMajor         float64
	InverseFlattening float64
	Deprecated        bool
}

// SemiMinor derives the semi-minor axis length in metres.
func (e *Ellipsoid) SemiMinor() float64 {
	if e.InverseFlattening == 0 {
		return e.SemiMajor // sphere
	}
	return e.SemiMajor * (1 - 1/e.InverseFlattening)
}

// Identifier returns the first identifier in the given authority namespace.
func (e *Ellipsoid) Identifier(authority string) (Code, bool) {
	for _, id := range e.Identifiers {
		if strings.EqualFold(id.Authority, authority) {
			return id, true
		}
	}
	return Code{}, false
}

// Datum is a reference frame. Ellipsoid is set only for (dynamic) geodetic
// datums.
type Datum struct {
	Name        string
	Identifiers []Code
	Aliases     []string
	Kind        DatumKind
	Ellipsoid   *Ellipsoid
	Deprecated  bool
}

// Identifier returns the first identifier in the given authority namespace.
func (d *Datum) Identifier(authority string) (Code, bool) {
	for _, id := range d.Identifiers {
		if strings.EqualFold(id.Authority, authority) {
			return id, true
		}
	}
	return Code{}, false
}

// Ensemble is a named group of datums treated as interchangeable within the
// stated accuracy (in metres).
type Ensemble struct {
	Name        string
	Identifiers []Code
	Members     []*Datum
	Accuracy    float64
}

// commonValue reduces a property across ensemble members: it returns the
// value shared by every member, or the zero value and false when members
// disagree. This replaces the synthetic pseudo-datum subtypes of the ISO
// model with one generic reducer.
func commonValue[T any](members []*Datum, get func(*Datum) T, equal func(a, b T) bool) (T, bool) {
	var common T
	for i, m := range members {
		v := get(m)
		if i == 0 {
			common = v
			continue
		}
		if !equal(common, v) {
			var zero T
			return zero, false
		}
	}
	return common, len(members) > 0
}

// Ellipsoid returns the ellipsoid shared by all members, or nil when members
// use different ellipsoids.
func (e *Ensemble) Ellipsoid() *Ellipsoid {
	ell, ok := commonValue(e.Members, func(d *Datum) *Ellipsoid { return d.Ellipsoid },
		func(a, b *Ellipsoid) bool {
			if a == b {
				return true
			}
			if a == nil || b == nil {
				return false
			}
			return almostEqual(a.SemiMajor, b.SemiMajor) && almostEqual(a.InverseFlattening, b.InverseFlattening)
		})
	if !ok {
		return nil
	}
	return ell
}

// Kind returns the datum kind shared by all members, or DatumUnknown.
func (e *Ensemble) Kind() DatumKind {
	kind, ok := commonValue(e.Members, func(d *Datum) DatumKind { return d.Kind },
		func(a, b DatumKind) bool { return a == b })
	if !ok {
		return DatumUnknown
	}
	return kind
}

// DatumOrEnsemble is the sum type replacing the pseudo-datum wrapper of the
// ISO model: a single CRS references exactly one of the two.
type DatumOrEnsemble struct {
	Datum    *Datum
	Ensemble *Ensemble
}

// IsZero reports whether neither side is set (valid only for compound CRS).
func (d DatumOrEnsemble) IsZero() bool {
	return d.Datum == nil && d.Ensemble == nil
}

// AsDatum returns the single datum, or a representative member when the
// receiver is an ensemble (the first member, by convention the reference
// realization). Property-based searches use the representative for
// dependency filtering.
func (d DatumOrEnsemble) AsDatum() *Datum {
	if d.Datum != nil {
		return d.Datum
	}
	if d.Ensemble != nil && len(d.Ensemble.Members) > 0 {
		return d.Ensemble.Members[0]
	}
	return nil
}

// Ellipsoid returns the ellipsoid of the datum, or the common ellipsoid of
// the ensemble members.
func (d DatumOrEnsemble) Ellipsoid() *Ellipsoid {
	if d.Datum != nil {
		return d.Datum.Ellipsoid
	}
	if d.Ensemble != nil {
		return d.Ensemble.Ellipsoid()
	}
	return nil
}

// Name returns the datum or ensemble name.
func (d DatumOrEnsemble) Name() string {
	if d.Datum != nil {
		return d.Datum.Name
	}
	if d.Ensemble != nil {
		return d.Ensemble.Name
	}
	return ""
}

// Equals compares two datum references ignoring metadata. Two ensembles are
// equal when they share the same member set; a datum equals an ensemble
// containing it as only member.
func (d DatumOrEnsemble) Equals(other DatumOrEnsemble) bool {
	a, b := d.AsDatum(), other.AsDatum()
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind != b.Kind {
		return false
	}
	if !strings.EqualFold(a.Name, b.Name) {
		// Identifier equality also counts: same EPSG code, different casing.
		ida, oka := a.Identifier("EPSG")
		idb, okb := b.Identifier("EPSG")
		if !(oka && okb && ida == idb) {
			return false
		}
	}
	return true
}
