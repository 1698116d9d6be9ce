package census

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dshills/census-mcp/internal/codec"
	"github.com/dshills/census-mcp/internal/storage"
	"github.com/dshills/census-mcp/pkg/manifold"
)

// RawEntry is the decoded triangulation column of one named manifold,
// without a manifold built from it.
type RawEntry struct {
	UseString     bool
	Cobs          []manifold.Matrix // nil when absent
	Perm          []int             // nil for the identity
	Triangulation []byte
}

// Lookup finds single manifolds by name across an ordered list of cusped or
// link relations, using one plain connection.
type Lookup struct {
	db        *sql.DB
	relations []string
	decoder   codec.MatrixDecoder
}

// OpenLookup opens a lookup over relations of the catalog at path.
func OpenLookup(path string, relations []string, opts ...Option) (*Lookup, error) {
	o := buildOptions(opts)
	db, err := storage.OpenReadOnly(path)
	if err != nil {
		return nil, err
	}
	return &Lookup{db: db, relations: relations, decoder: o.decoder}, nil
}

func (l *Lookup) Close() error {
	return l.db.Close()
}

// Relations returns the relations searched, in order.
func (l *Lookup) Relations() []string { return l.relations }

// Get returns the entry named name from the first relation that has it.
// A relation holding the name twice fails with ErrAmbiguousName; no relation
// holding it fails with ErrNotFound.
func (l *Lookup) Get(ctx context.Context, name string) (RawEntry, error) {
	for _, rel := range l.relations {
		rows, err := l.find(ctx, rel, name)
		if err != nil {
			return RawEntry{}, err
		}
		if len(rows) > 1 {
			return RawEntry{}, fmt.Errorf("%w: %s in %s", ErrAmbiguousName, name, rel)
		}
		if len(rows) == 1 {
			return l.decode(rows[0])
		}
	}
	return RawEntry{}, fmt.Errorf("%w: %s", ErrNotFound, name)
}

type lookupRow struct {
	triangulation []byte
	perm          sql.NullInt64
}

func (l *Lookup) find(ctx context.Context, rel, name string) ([]lookupRow, error) {
	query := fmt.Sprintf("select triangulation, perm from %s where name = ? limit 2", rel)
	rows, err := l.db.QueryContext(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("lookup in %s failed: %w", rel, err)
	}
	defer func() { _ = rows.Close() }()

	var found []lookupRow
	for rows.Next() {
		var r lookupRow
		if err := rows.Scan(&r.triangulation, &r.perm); err != nil {
			return nil, err
		}
		found = append(found, r)
	}
	return found, rows.Err()
}

func (l *Lookup) decode(r lookupRow) (RawEntry, error) {
	p, err := codec.Decode(r.triangulation, l.decoder)
	if err != nil {
		return RawEntry{}, err
	}
	entry := RawEntry{
		UseString:     p.UseString,
		Cobs:          p.Cobs,
		Triangulation: p.Body,
	}
	if r.perm.Valid {
		entry.Perm = codec.DecodePermutation(r.perm.Int64, p.NumCusps)
	}
	return entry, nil
}
