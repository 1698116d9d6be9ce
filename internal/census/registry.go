package census

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/census-mcp/internal/storage"
)

// CensusID names a standard census table.
type CensusID string

const (
	OrientableCuspedCensus    CensusID = "orientable_cusped"
	NonorientableCuspedCensus CensusID = "nonorientable_cusped"
	OrientableClosedCensus    CensusID = "orientable_closed"
	NonorientableClosedCensus CensusID = "nonorientable_closed"
	LinkExteriors             CensusID = "link_exteriors"
	CensusKnots               CensusID = "census_knots"
	HTLinkExteriors           CensusID = "ht_link_exteriors"
)

// Census describes a standard census table. Alternate censuses live in the
// separate, larger catalog file.
type Census struct {
	ID          CensusID
	Relation    string
	Kind        Kind
	Alternate   bool
	Description string
}

// StandardCensuses lists the tables a registry tries to open.
var StandardCensuses = []Census{
	{OrientableCuspedCensus, storage.OrientableCuspedRelation, Cusped, false,
		"orientable cusped hyperbolic manifolds with at most 9 ideal tetrahedra"},
	{NonorientableCuspedCensus, storage.NonorientableCuspedRelation, Cusped, false,
		"nonorientable cusped hyperbolic manifolds with at most 5 ideal tetrahedra"},
	{OrientableClosedCensus, storage.OrientableClosedRelation, Closed, false,
		"Hodgson-Weeks census of orientable closed hyperbolic manifolds"},
	{NonorientableClosedCensus, storage.NonorientableClosedRelation, Closed, false,
		"Hodgson-Weeks census of nonorientable closed hyperbolic manifolds"},
	{LinkExteriors, storage.LinkExteriorsRelation, Cusped, false,
		"Rolfsen table of knots and links"},
	{CensusKnots, storage.CensusKnotsRelation, Cusped, false,
		"knot exteriors triangulated by at most 7 ideal tetrahedra"},
	{HTLinkExteriors, storage.HTLinksRelation, Link, true,
		"Hoste-Thistlethwaite knots and links up to 14 crossings"},
}

// LookupID names a standard single-manifold lookup.
type LookupID string

const (
	CuspedManifoldData LookupID = "cusped"
	LinkExteriorData   LookupID = "link_exteriors"
	CensusKnotData     LookupID = "census_knots"
	HTLinkExteriorData LookupID = "ht_link_exteriors"
)

// LookupSpec describes a standard lookup.
type LookupSpec struct {
	ID        LookupID
	Relations []string
	Alternate bool
}

// StandardLookups lists the lookups a registry tries to open.
var StandardLookups = []LookupSpec{
	{CuspedManifoldData, []string{storage.OrientableCuspedRelation, storage.NonorientableCuspedRelation}, false},
	{LinkExteriorData, []string{storage.LinkExteriorsRelation}, false},
	{CensusKnotData, []string{storage.CensusKnotsRelation}, false},
	{HTLinkExteriorData, []string{storage.HTLinksRelation}, true},
}

// Sources locates the catalog files.
type Sources struct {
	Database    string
	AltDatabase string
}

func (s Sources) path(alternate bool) string {
	if alternate {
		return s.AltDatabase
	}
	return s.Database
}

// Status describes one census in a registry.
type Status struct {
	Census    Census
	Available bool
	Length    int
	Err       error
}

// Registry holds the standard census tables and lookups of a process. A
// census whose catalog is missing or malformed stays registered as
// unavailable, with the reason kept.
type Registry struct {
	mu      sync.RWMutex
	tables  map[CensusID]*Table
	lookups map[LookupID]*Lookup
	errs    map[string]error
	opts    options
}

// OpenRegistry opens every standard census and lookup it can. It never
// fails as a whole; check Status or the error from Table.
func OpenRegistry(ctx context.Context, src Sources, opts ...Option) *Registry {
	o := buildOptions(opts)
	if o.schemas == nil {
		if cache, err := NewSchemaCache(DefaultSchemaCacheSize); err == nil {
			o.schemas = cache
		}
	}

	r := &Registry{
		tables:  make(map[CensusID]*Table),
		lookups: make(map[LookupID]*Lookup),
		errs:    make(map[string]error),
		opts:    o,
	}

	var g errgroup.Group
	g.SetLimit(4)

	for _, c := range StandardCensuses {
		g.Go(func() error {
			path := src.path(c.Alternate)
			if path == "" {
				r.fail(string(c.ID), errors.New("no catalog configured"))
				return nil
			}
			t, err := openTable(ctx, Source{Path: path, Relation: c.Relation, Kind: c.Kind}, Filter{}, o)
			if err != nil {
				r.fail(string(c.ID), err)
				return nil
			}
			r.mu.Lock()
			r.tables[c.ID] = t
			r.mu.Unlock()
			return nil
		})
	}

	for _, ls := range StandardLookups {
		g.Go(func() error {
			path := src.path(ls.Alternate)
			if path == "" {
				r.fail(lookupKey(ls.ID), errors.New("no catalog configured"))
				return nil
			}
			l, err := OpenLookup(path, ls.Relations, WithMatrixDecoder(o.decoder))
			if err != nil {
				r.fail(lookupKey(ls.ID), err)
				return nil
			}
			r.mu.Lock()
			r.lookups[ls.ID] = l
			r.mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return r
}

func (r *Registry) fail(id string, err error) {
	r.opts.logger.Warn("census unavailable", "census", id, "error", err)
	r.mu.Lock()
	r.errs[id] = err
	r.mu.Unlock()
}

// Table returns the open table for id, or ErrTableUnavailable wrapping the
// reason it could not be opened.
func (r *Registry) Table(id CensusID) (*Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.tables[id]; ok {
		return t, nil
	}
	return nil, r.unavailable(string(id))
}

// Lookup returns the open lookup for id.
func (r *Registry) Lookup(id LookupID) (*Lookup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l, ok := r.lookups[id]; ok {
		return l, nil
	}
	return nil, r.unavailable(lookupKey(id))
}

// lookupKey keeps lookup failures apart from censuses of the same name.
func lookupKey(id LookupID) string { return "lookup/" + string(id) }

func (r *Registry) unavailable(id string) error {
	if err, ok := r.errs[id]; ok {
		return fmt.Errorf("%w: %s: %w", ErrTableUnavailable, id, err)
	}
	return fmt.Errorf("%w: %s: unknown census", ErrTableUnavailable, id)
}

// Status reports every standard census in declaration order.
func (r *Registry) Status() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Status, 0, len(StandardCensuses))
	for _, c := range StandardCensuses {
		s := Status{Census: c}
		if t, ok := r.tables[c.ID]; ok {
			s.Available = true
			s.Length = t.Len()
		} else {
			s.Err = r.errs[string(c.ID)]
		}
		out = append(out, s)
	}
	return out
}

// Close closes every open table and lookup.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for id, t := range r.tables {
		errs = append(errs, t.Close())
		delete(r.tables, id)
	}
	for id, l := range r.lookups {
		errs = append(errs, l.Close())
		delete(r.lookups, id)
	}
	return errors.Join(errs...)
}

// CensusByID returns the standard census description for id.
func CensusByID(id CensusID) (Census, bool) {
	for _, c := range StandardCensuses {
		if c.ID == id {
			return c, true
		}
	}
	return Census{}, false
}
