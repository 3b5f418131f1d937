package operation

import "georef/internal/crs"

// Context carries the per-call state of one CreateOperations invocation:
// the caller's search preferences plus the candidate-code cache. A Context
// must not be shared between calls; create a fresh one each time.
type Context struct {
	// AreaOfInterest restricts and ranks results by geographic overlap.
	// When nil, an area is derived from the CRS domains so that a
	// region-specific transform is not starved by a world-wide one.
	AreaOfInterest *crs.Extent
	// DesiredAccuracy in metres; zero asks for the best available.
	DesiredAccuracy float64
	// Filter, when set, keeps only operations it accepts.
	Filter func(*Operation) bool
	// StopAtFirst truncates the search to the single best operation.
	StopAtFirst bool

	// codes caches candidate lists per CRS: the same CRS is looked up for
	// every decomposition strategy, and candidate search is the expensive
	// part. Keyed by identity, cleared with the context.
	codes map[*crs.CRS][]Candidate
}

// NewContext returns an empty search context.
func NewContext() *Context {
	return &Context{codes: make(map[*crs.CRS][]Candidate)}
}

func (c *Context) cachedCodes(key *crs.CRS) ([]Candidate, bool) {
	if c.codes == nil {
		c.codes = make(map[*crs.CRS][]Candidate)
	}
	codes, ok := c.codes[key]
	return codes, ok
}

func (c *Context) storeCodes(key *crs.CRS, codes []Candidate) {
	if c.codes == nil {
		c.codes = make(map[*crs.CRS][]Candidate)
	}
	c.codes[key] = codes
}
