package operation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"georef/internal/crs"
)

var (
	statewide    = crs.Extent{West: -106.66, East: -93.5, South: 25.84, North: 36.5}
	continental  = crs.Extent{West: -124.79, East: -66.91, South: 24.41, North: 49.38}
	insideTexas  = crs.Extent{West: -103, East: -98, South: 27, North: 33}
	europeanArea = crs.Extent{West: -10, East: 30, South: 35, North: 70}
)

func names(ops []*Operation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.Name
	}
	return out
}

func TestSortOperationsPrefersCoveredArea(t *testing.T) {
	ops := []*Operation{
		{Name: "european", Domain: &europeanArea, Accuracy: 1},
		{Name: "continental", Domain: &continental, Accuracy: 5},
	}
	sortOperations(ops, &insideTexas)
	require.Equal(t, []string{"continental", "european"}, names(ops))
}

func TestSortOperationsPrefersSpecificDomain(t *testing.T) {
	// Both domains fully cover the area of interest; the operation defined
	// for the smaller region wins even with worse accuracy.
	ops := []*Operation{
		{Name: "worldwide", Accuracy: 1}, // nil domain means the whole planet
		{Name: "continental", Domain: &continental, Accuracy: 5},
		{Name: "statewide", Domain: &statewide, Accuracy: 5},
	}
	sortOperations(ops, &insideTexas)
	require.Equal(t, []string{"statewide", "continental", "worldwide"}, names(ops))
}

func TestSortOperationsAccuracy(t *testing.T) {
	// Identical domains: accuracy decides, a conversion counting as exact
	// and a transformation without a figure as worst.
	ops := []*Operation{
		{Name: "unspecified", Type: TypeTransformation, Domain: &continental},
		{Name: "coarse", Type: TypeTransformation, Domain: &continental, Accuracy: 5},
		{Name: "fine", Type: TypeTransformation, Domain: &continental, Accuracy: 3},
		{Name: "exact", Type: TypeConversion, Domain: &continental},
	}
	sortOperations(ops, &insideTexas)
	require.Equal(t, []string{"exact", "fine", "coarse", "unspecified"}, names(ops))
}

func TestSortOperationsWithoutAreaOfInterest(t *testing.T) {
	// No area of interest: accuracy first, then the wider domain.
	ops := []*Operation{
		{Name: "narrow", Type: TypeTransformation, Domain: &statewide, Accuracy: 3},
		{Name: "wide", Type: TypeTransformation, Domain: &continental, Accuracy: 3},
		{Name: "coarse", Type: TypeTransformation, Domain: &continental, Accuracy: 9},
	}
	sortOperations(ops, nil)
	require.Equal(t, []string{"wide", "narrow", "coarse"}, names(ops))
}

func TestSortOperationsStable(t *testing.T) {
	ops := []*Operation{
		{Name: "first", Type: TypeTransformation, Domain: &continental, Accuracy: 3},
		{Name: "second", Type: TypeTransformation, Domain: &continental, Accuracy: 3},
	}
	sortOperations(ops, &insideTexas)
	require.Equal(t, []string{"first", "second"}, names(ops))
}
