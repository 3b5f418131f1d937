package resolve

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"georef/internal/crs"
	"georef/internal/epsg"
	"georef/internal/operation"
	"georef/internal/platform/metrics"
	"georef/internal/platform/sentinel"
)

// fakeCache is a map-backed Cache with call counters.
type fakeCache struct {
	entries map[string][]byte
	gets    int
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	c.gets++
	return c.entries[key], nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.sets++
	c.entries[key] = value
	return nil
}

func (c *fakeCache) Flush(context.Context) error {
	c.entries = map[string][]byte{}
	return nil
}

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	cache   *fakeCache
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	dataset := epsg.DefaultDataset()
	quiet := log.New(io.Discard, "", 0)
	registry, err := operation.NewRegistry(dataset, dataset, nil, quiet)
	s.Require().NoError(err)
	s.cache = newFakeCache()
	s.service, err = New(registry, dataset, s.cache, time.Minute,
		metrics.New(prometheus.NewRegistry()), nil, quiet)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestOperations() {
	got, err := s.service.Operations(s.ctx, Query{Source: "EPSG:4267", Target: "EPSG:4269"})
	s.Require().NoError(err)
	s.Require().Len(got, 2)

	first := got[0]
	s.Equal("NAD27 to NAD83 (1)", first.Name)
	s.Equal("EPSG:1241", first.Identifier)
	s.Equal("transformation", first.Type)
	s.Equal("Geocentric translations (geog2D domain)", first.Method)
	s.InDelta(5, first.Accuracy, 1e-9)
	s.Equal(2, first.SourceDim)
	s.Equal(2, first.TargetDim)
	s.False(first.Inverse)
	s.Require().NotNil(first.Domain)
	s.Equal("NAD27 to NAD83 (9)", got[1].Name)
}

func (s *ServiceSuite) TestBareCodesAccepted() {
	got, err := s.service.Operations(s.ctx, Query{Source: "4267", Target: "4269"})
	s.Require().NoError(err)
	s.Len(got, 2)
}

func (s *ServiceSuite) TestBestOnly() {
	got, err := s.service.Operations(s.ctx, Query{Source: "4267", Target: "4269", BestOnly: true})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("NAD27 to NAD83 (1)", got[0].Name)
}

func (s *ServiceSuite) TestAreaOfInterest() {
	texan := &crs.Extent{West: -103, East: -98, South: 27, North: 33}
	got, err := s.service.Operations(s.ctx, Query{Source: "4267", Target: "4269", AreaOfInterest: texan})
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("NAD27 to NAD83 (9)", got[0].Name)
}

func (s *ServiceSuite) TestInverseDescriptor() {
	got, err := s.service.Operations(s.ctx, Query{Source: "4326", Target: "4269"})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.True(got[0].Inverse)
	s.Equal("Inverse of NAD83 to WGS 84 (1)", got[0].Name)
}

func (s *ServiceSuite) TestEmptyResult() {
	got, err := s.service.Operations(s.ctx, Query{Source: "4258", Target: "4267"})
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *ServiceSuite) TestValidation() {
	cases := map[string]Query{
		"missing source":    {Target: "4269"},
		"missing target":    {Source: "4267"},
		"bad authority":     {Source: "ESRI:104267", Target: "4269"},
		"malformed code":    {Source: "EPSG:", Target: "4269"},
		"inverted extent":   {Source: "4267", Target: "4269", AreaOfInterest: &crs.Extent{West: 10, East: -10, South: 0, North: 1}},
		"empty extent band": {Source: "4267", Target: "4269", AreaOfInterest: &crs.Extent{West: 0, East: 1, South: 5, North: 5}},
	}
	for name, q := range cases {
		s.Run(name, func() {
			_, err := s.service.Operations(s.ctx, q)
			s.Require().ErrorIs(err, sentinel.ErrInvalidParameter)
		})
	}
}

func (s *ServiceSuite) TestUnknownCode() {
	_, err := s.service.Operations(s.ctx, Query{Source: "999999", Target: "4269"})
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ServiceSuite) TestCaching() {
	q := Query{Source: "4267", Target: "4269"}
	first, err := s.service.Operations(s.ctx, q)
	s.Require().NoError(err)
	s.Equal(1, s.cache.sets)

	second, err := s.service.Operations(s.ctx, q)
	s.Require().NoError(err)
	s.Equal(1, s.cache.sets, "second call must be served from cache")
	s.Equal(first, second)

	// Distinct areas of interest are cached separately.
	texan := &crs.Extent{West: -103, East: -98, South: 27, North: 33}
	_, err = s.service.Operations(s.ctx, Query{Source: "4267", Target: "4269", AreaOfInterest: texan})
	s.Require().NoError(err)
	s.Equal(2, s.cache.sets)

	s.Require().NoError(s.service.FlushCache(s.ctx))
	_, err = s.service.Operations(s.ctx, q)
	s.Require().NoError(err)
	s.Equal(3, s.cache.sets)
}
