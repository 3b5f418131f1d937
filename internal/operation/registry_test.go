package operation_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"georef/internal/crs"
	"georef/internal/epsg"
	"georef/internal/operation"
	"georef/internal/operation/mocks"
	"georef/internal/platform/sentinel"
)

// RegistrySuite exercises the resolution pipeline end to end against the
// in-memory dataset: candidate code search, pair lookup, inversion,
// vertical propagation, ranking and the caller-facing knobs.
type RegistrySuite struct {
	suite.Suite
	ctx      context.Context
	dataset  *epsg.Memory
	registry *operation.Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.ctx = context.Background()
	s.dataset = epsg.DefaultDataset()
	reg, err := operation.NewRegistry(s.dataset, s.dataset, nil, log.New(io.Discard, "", 0))
	s.Require().NoError(err)
	s.registry = reg
}

// lookup loads a CRS from the dataset, failing the test on error.
func (s *RegistrySuite) lookup(code string) *crs.CRS {
	c, err := s.dataset.CRS(s.ctx, code)
	s.Require().NoError(err)
	return c
}

// anonymous strips the registry metadata from a CRS so that the engine has
// to recognize it structurally.
func anonymous(c *crs.CRS) *crs.CRS {
	clone := *c
	clone.Identifiers = nil
	clone.Aliases = nil
	clone.Domain = nil
	return &clone
}

func (s *RegistrySuite) TestDirectPair() {
	ops, err := s.registry.CreateOperations(s.ctx, nil, s.lookup("4267"), s.lookup("4269"))
	s.Require().NoError(err)
	s.Require().Len(ops, 2)

	// Without a caller area of interest the continent-wide transform wins
	// over the Texas-specific one, and the deprecated entry is dropped.
	s.Equal("NAD27 to NAD83 (1)", ops[0].Name)
	s.Equal("NAD27 to NAD83 (9)", ops[1].Name)
	for _, op := range ops {
		s.False(op.Deferred)
		s.False(op.Deprecated)
		s.NotNil(op.Transform)
		s.Equal(operation.TypeTransformation, op.Type)
	}
	s.InDelta(5, ops[0].Accuracy, 1e-9)
	s.InDelta(3, ops[1].Accuracy, 1e-9)
}

func (s *RegistrySuite) TestAreaOfInterestRanking() {
	// An area of interest inside Texas promotes the state-specific
	// transform over the continent-wide one, even though both fully cover
	// the requested area.
	sc := operation.NewContext()
	sc.AreaOfInterest = &crs.Extent{West: -103, East: -98, South: 27, North: 33}
	ops, err := s.registry.CreateOperations(s.ctx, sc, s.lookup("4267"), s.lookup("4269"))
	s.Require().NoError(err)
	s.Require().Len(ops, 2)
	s.Equal("NAD27 to NAD83 (9)", ops[0].Name)
	s.Equal("NAD27 to NAD83 (1)", ops[1].Name)
}

func (s *RegistrySuite) TestStopAtFirst() {
	sc := operation.NewContext()
	sc.StopAtFirst = true
	ops, err := s.registry.CreateOperations(s.ctx, sc, s.lookup("4267"), s.lookup("4269"))
	s.Require().NoError(err)
	s.Require().Len(ops, 1)
	s.Equal("NAD27 to NAD83 (1)", ops[0].Name)
}

func (s *RegistrySuite) TestFilter() {
	sc := operation.NewContext()
	sc.Filter = func(op *operation.Operation) bool { return op.Accuracy <= 4 }
	ops, err := s.registry.CreateOperations(s.ctx, sc, s.lookup("4267"), s.lookup("4269"))
	s.Require().NoError(err)
	s.Require().Len(ops, 1)
	s.Equal("NAD27 to NAD83 (9)", ops[0].Name)
}

func (s *RegistrySuite) TestInverseFallback() {
	// The dataset registers NAD83 to WGS 84 only; asking for the opposite
	// direction resolves through the inverse of the registered entry.
	ops, err := s.registry.CreateOperations(s.ctx, nil, s.lookup("4326"), s.lookup("4269"))
	s.Require().NoError(err)
	s.Require().Len(ops, 1)

	op := ops[0]
	s.Equal("Inverse of NAD83 to WGS 84 (1)", op.Name)
	s.Equal(operation.ClassInverse, op.Class)
	s.Require().NotNil(op.Transform)
	s.True(op.Source.Equals(s.lookup("4326"), false))
	s.True(op.Target.Equals(s.lookup("4269"), false))
	s.InDelta(4, op.Accuracy, 1e-9)

	// Inverting the cached forward operation twice returns the original
	// instance.
	back, err := s.registry.Inverse(op)
	s.Require().NoError(err)
	again, err := s.registry.Inverse(back)
	s.Require().NoError(err)
	s.Same(op, again)
}

func (s *RegistrySuite) TestRegisteredConversion() {
	// WGS 84 3D to 2D is a registered conversion: exact, no accuracy
	// figure, transform dropping the ellipsoidal height.
	ops, err := s.registry.CreateOperations(s.ctx, nil, s.lookup("4979"), s.lookup("4326"))
	s.Require().NoError(err)
	s.Require().Len(ops, 1)

	op := ops[0]
	s.Equal(operation.TypeConversion, op.Type)
	s.Zero(op.Accuracy)
	s.Require().NotNil(op.Transform)
	s.Equal(3, op.Transform.SourceDim())
	s.Equal(2, op.Transform.TargetDim())

	out, err := op.Transform.Transform([]float64{12.5, 42.0, 150.0})
	s.Require().NoError(err)
	s.Equal([]float64{12.5, 42.0}, out)
}

func (s *RegistrySuite) TestVerticalPropagation() {
	// No operation connects WGS 84 3D to NAD83 directly; the engine
	// reduces the source to its horizontal component, resolves through
	// the inverse of NAD83 to WGS 84, and grows the datum shift back to
	// three dimensions with the same parameters.
	source := s.lookup("4979")
	target := s.lookup("4269")
	ops, err := s.registry.CreateOperations(s.ctx, nil, source, target)
	s.Require().NoError(err)
	s.Require().NotEmpty(ops)

	op := ops[0]
	s.Same(source, op.Source)
	s.Same(target, op.Target)
	s.Require().NotNil(op.Transform)
	s.Equal(3, op.Transform.SourceDim())
	s.Equal(2, op.Transform.TargetDim())
	s.InDelta(4, op.Accuracy, 1e-9)

	// The registered translations are zero, so coordinates pass through up
	// to the tiny WGS 84 / GRS 1980 flattening difference.
	out, err := op.Transform.Transform([]float64{-100.0, 31.0, 250.0})
	s.Require().NoError(err)
	s.Require().Len(out, 2)
	s.InDelta(-100.0, out[0], 1e-12)
	s.InDelta(31.0, out[1], 1e-8)
}

func (s *RegistrySuite) TestEqualCandidateCodesAbort() {
	// Two structurally equal CRS both resolve to the same code. That must
	// not come back as an identity operation: the registry refuses and
	// leaves the pair to structural inference.
	a := anonymous(s.lookup("4326"))
	b := anonymous(s.lookup("4326"))
	ops, err := s.registry.CreateOperations(s.ctx, nil, a, b)
	s.Require().NoError(err)
	s.NotNil(ops)
	s.Empty(ops)
}

func (s *RegistrySuite) TestNoRegisteredPath() {
	ops, err := s.registry.CreateOperations(s.ctx, nil, s.lookup("4258"), s.lookup("4267"))
	s.Require().NoError(err)
	s.NotNil(ops)
	s.Empty(ops)
}

func (s *RegistrySuite) TestNilCRS() {
	_, err := s.registry.CreateOperations(s.ctx, nil, nil, s.lookup("4326"))
	s.Require().ErrorIs(err, sentinel.ErrMalformedCRS)
}

func (s *RegistrySuite) TestFinderFailureAborts() {
	ctrl := gomock.NewController(s.T())
	finder := mocks.NewMockCodeFinder(ctrl)
	finder.EXPECT().
		Candidates(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("scan codes: %w", sentinel.ErrBackend))

	reg, err := operation.NewRegistry(s.dataset, finder, nil, log.New(io.Discard, "", 0))
	s.Require().NoError(err)
	_, err = reg.CreateOperations(s.ctx, nil, s.lookup("4267"), s.lookup("4269"))
	s.Require().ErrorIs(err, sentinel.ErrBackend)
}

func (s *RegistrySuite) TestConcatenatedChain() {
	s.dataset.AddOperation(epsg.OperationRecord{
		Code:      "90001",
		Name:      "NAD27 to WGS 84 (via NAD83)",
		Type:      operation.TypeConcatenated,
		SourceCRS: "4267",
		TargetCRS: "4326",
		Accuracy:  6,
		Steps:     []string{"1241", "1188"},
	})

	s.Run("forward", func() {
		ops, err := s.registry.CreateOperations(s.ctx, nil, s.lookup("4267"), s.lookup("4326"))
		s.Require().NoError(err)
		s.Require().Len(ops, 1)
		op := ops[0]
		s.Equal("NAD27 to WGS 84 (via NAD83)", op.Name)
		s.Equal(operation.TypeConcatenated, op.Type)
		s.Require().Len(op.Steps, 2)
		s.Equal("NAD27 to NAD83 (1)", op.Steps[0].Name)
		s.Equal("NAD83 to WGS 84 (1)", op.Steps[1].Name)
		s.Require().NotNil(op.Transform)
		s.Equal(2, op.Transform.SourceDim())
		s.InDelta(6, op.Accuracy, 1e-9)
	})

	s.Run("inverse", func() {
		// The opposite direction inverts each step and reverses the chain;
		// the chain accuracy becomes the worst step accuracy.
		ops, err := s.registry.CreateOperations(s.ctx, nil, s.lookup("4326"), s.lookup("4267"))
		s.Require().NoError(err)
		s.Require().Len(ops, 1)
		op := ops[0]
		s.Equal("Inverse of NAD27 to WGS 84 (via NAD83)", op.Name)
		s.Equal(operation.ClassInverse, op.Class)
		s.Require().Len(op.Steps, 2)
		s.Equal("Inverse of NAD83 to WGS 84 (1)", op.Steps[0].Name)
		s.Equal("Inverse of NAD27 to NAD83 (1)", op.Steps[1].Name)
		s.InDelta(5, op.Accuracy, 1e-9)
	})
}

func (s *RegistrySuite) TestLookupFailureIsRecoverable() {
	// A broken pair lookup skips the pair instead of aborting the whole
	// search.
	ctrl := gomock.NewController(s.T())
	lookup := mocks.NewMockAuthorityLookup(ctrl)
	lookup.EXPECT().
		OperationsForCodePair(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("query pair: %w", sentinel.ErrBackend)).
		AnyTimes()

	reg, err := operation.NewRegistry(lookup, s.dataset, nil, log.New(io.Discard, "", 0))
	s.Require().NoError(err)
	ops, err := reg.CreateOperations(s.ctx, nil, s.lookup("4267"), s.lookup("4269"))
	s.Require().NoError(err)
	s.Empty(ops)
}
