package epsg

import (
	"strings"

	"georef/internal/crs"
)

// tableInfo describes where one kind of geodetic object lives in the
// dataset: which table, which columns hold the code and the primary name,
// and which column (if any) discriminates sub-kinds.
type tableInfo struct {
	table      string
	codeColumn string
	nameColumn string
	kindColumn string
	aliasType  string // value of epsg_alias.object_type for this table
}

var (
	crsTable = tableInfo{
		table:      "epsg_crs",
		codeColumn: "code",
		nameColumn: "name",
		kindColumn: "kind",
		aliasType:  "crs",
	}
	datumTable = tableInfo{
		table:      "epsg_datum",
		codeColumn: "code",
		nameColumn: "name",
		kindColumn: "kind",
		aliasType:  "datum",
	}
	ellipsoidTable = tableInfo{
		table:      "epsg_ellipsoid",
		codeColumn: "code",
		nameColumn: "name",
		aliasType:  "ellipsoid",
	}
)

// tableFor maps a query object to its table, or false for object types the
// finder does not search.
func tableFor(object any) (tableInfo, bool) {
	switch object.(type) {
	case *crs.CRS:
		return crsTable, true
	case *crs.Datum, *crs.Ensemble:
		return datumTable, true
	case *crs.Ellipsoid:
		return ellipsoidTable, true
	default:
		return tableInfo{}, false
	}
}

// kindFilter returns the kind-column values acceptable for the query
// object. Synonyms widen the filter where the dataset is known to tag
// equivalent rows differently: plain "geographic" rows predate the 2D/3D
// split, and a geodetic datum may be registered as "dynamic geodetic" or as
// a datum "ensemble".
func kindFilter(object any) []string {
	switch o := object.(type) {
	case *crs.CRS:
		if o.Kind == crs.KindGeographic2D {
			return []string{"geographic 2D", "geographic"}
		}
		if o.Kind == crs.KindUnknown {
			return nil
		}
		return []string{o.Kind.String()}
	case *crs.Datum:
		switch o.Kind {
		case crs.DatumGeodetic, crs.DatumDynamicGeodetic:
			return []string{"geodetic", "dynamic geodetic", "ensemble"}
		case crs.DatumUnknown:
			return nil
		default:
			return []string{o.Kind.String()}
		}
	case *crs.Ensemble:
		return []string{"geodetic", "dynamic geodetic", "ensemble"}
	default:
		return nil
	}
}

// toLikePattern normalizes a geodetic object name into a SQL LIKE pattern:
// lowercase, runs of punctuation and spaces collapse to "%", non-ASCII
// letters become "_" so that accented dataset spellings still match.
// "NAD83 (CSRS) v2" becomes "nad83%csrs%v2%".
func toLikePattern(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 2)
	wildcard := true // swallow leading separators
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			wildcard = false
		case r > 127:
			b.WriteByte('_')
			wildcard = false
		default:
			if !wildcard {
				b.WriteByte('%')
				wildcard = true
			}
		}
	}
	if !wildcard {
		b.WriteByte('%')
	}
	return b.String()
}

// likeMatch evaluates a toLikePattern result against a candidate name with
// SQL LIKE semantics ("%" any run, "_" one character). It is the in-memory
// twin of the SQL operator so both datasets rank names identically.
func likeMatch(pattern, name string) bool {
	return likeMatchFold([]rune(pattern), []rune(strings.ToLower(name)))
}

func likeMatchFold(pattern, name []rune) bool {
	if len(pattern) == 0 {
		return len(name) == 0
	}
	switch pattern[0] {
	case '%':
		for i := 0; i <= len(name); i++ {
			if likeMatchFold(pattern[1:], name[i:]) {
				return true
			}
		}
		return false
	case '_':
		return len(name) > 0 && likeMatchFold(pattern[1:], name[1:])
	default:
		return len(name) > 0 && name[0] == pattern[0] && likeMatchFold(pattern[1:], name[1:])
	}
}
