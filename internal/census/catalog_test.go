package census

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/census-mcp/internal/codec"
	"github.com/dshills/census-mcp/internal/storage"
	"github.com/dshills/census-mcp/pkg/manifold"
)

var (
	cuspedRel = storage.Relation{Name: storage.OrientableCuspedRelation, Shape: storage.CuspedShape}
	nonorRel  = storage.Relation{Name: storage.NonorientableCuspedRelation, Shape: storage.CuspedShape}
	closedRel = storage.Relation{Name: storage.OrientableClosedRelation, Shape: storage.ClosedShape}
	linkRel   = storage.Relation{Name: storage.HTLinksRelation, Shape: storage.LinkShape}
)

// testRow describes one catalog row; it is encoded the way catalogs store it.
type testRow struct {
	name   string
	body   string
	text   bool
	cusps  int
	cobs   []manifold.Matrix
	perm   []int
	volume float64
	betti  int
	tets   int
	m, l   int
	dt     string
	hash   []byte // nil means BodyHash of the body
}

func encodeRow(t *testing.T, r testRow) *storage.Row {
	t.Helper()

	blob, err := codec.Encode(codec.Payload{
		UseCobs:   r.cobs != nil,
		UseString: r.text,
		NumCusps:  r.cusps,
		Cobs:      r.cobs,
		Body:      []byte(r.body),
	})
	require.NoError(t, err)

	row := &storage.Row{
		Name:          r.name,
		Triangulation: blob,
		M:             r.m,
		L:             r.l,
		DT:            r.dt,
		Hash:          r.hash,
		Volume:        r.volume,
		Cusps:         r.cusps,
		Tets:          r.tets,
		Betti:         r.betti,
	}
	if r.perm != nil {
		v, err := codec.EncodePermutation(r.perm)
		require.NoError(t, err)
		row.Perm = &v
	}
	if row.Hash == nil {
		row.Hash = recordHash(t, r.body, r.text)
	}
	return row
}

func recordHash(t *testing.T, body string, text bool) []byte {
	t.Helper()
	rec := manifold.NewRecord()
	if text {
		require.NoError(t, rec.FromString(body))
	} else {
		require.NoError(t, rec.FromBytes([]byte(body)))
	}
	h, err := manifold.BodyHash(rec)
	require.NoError(t, err)
	return h
}

// newCatalog writes a catalog file holding rows per relation and returns
// its path. Relations outside the standard schema are created first.
func newCatalog(t *testing.T, rows map[storage.Relation][]testRow) string {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "catalog.sqlite")
	w, err := storage.Create(ctx, path)
	require.NoError(t, err)

	tx, err := w.BeginTx(ctx)
	require.NoError(t, err)
	for rel, rs := range rows {
		for _, r := range rs {
			require.NoError(t, tx.Insert(ctx, rel, encodeRow(t, r)))
		}
	}
	require.NoError(t, tx.Commit())
	require.NoError(t, w.Close())
	return path
}

// cuspedFixture is ten one-cusped binary rows m000..m009 with volumes
// 1.0, 1.1, ... and betti number i mod 3.
func cuspedFixture() []testRow {
	rows := make([]testRow, 10)
	for i := range rows {
		rows[i] = testRow{
			name:   fmt.Sprintf("m%03d", i),
			body:   fmt.Sprintf("body-%d", i),
			cusps:  1,
			volume: 1.0 + 0.1*float64(i),
			betti:  i % 3,
			tets:   1 + i/3,
		}
	}
	return rows
}

func openFixture(t *testing.T, filter Filter, opts ...Option) *Table {
	t.Helper()
	path := newCatalog(t, map[storage.Relation][]testRow{cuspedRel: cuspedFixture()})
	table, err := OpenTable(context.Background(),
		Source{Path: path, Relation: cuspedRel.Name, Kind: Cusped}, filter, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = table.Close() })
	return table
}

func names(ms []manifold.Manifold) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name()
	}
	return out
}

func intPtr(n int) *int { return &n }
