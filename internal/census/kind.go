package census

import (
	"database/sql"
	"fmt"

	"github.com/dshills/census-mcp/internal/codec"
	"github.com/dshills/census-mcp/pkg/manifold"
)

// Kind selects how rows of a relation become manifolds: which columns are
// read and which finishing steps run after the triangulation is loaded.
type Kind int

const (
	// Cusped rows carry a cusp permutation; every cusp is left complete.
	Cusped Kind = iota
	// Closed rows carry the (m,l) filling of their single cusp.
	Closed
	// Link rows are cusped rows with a DT code, and accept the link
	// filter keys.
	Link
)

func (k Kind) String() string {
	switch k {
	case Cusped:
		return "cusped"
	case Closed:
		return "closed"
	case Link:
		return "link"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// catalogRow is one selected row before materialization.
type catalogRow struct {
	name          string
	triangulation []byte
	perm          sql.NullInt64
	m, l          int
	dt            sql.NullString
}

// columns lists the selected columns in scan order.
func (k Kind) columns() string {
	switch k {
	case Closed:
		return "name, triangulation, m, l"
	case Link:
		return "name, triangulation, perm, DT"
	default:
		return "name, triangulation, perm"
	}
}

func (k Kind) scanTargets(r *catalogRow) []any {
	switch k {
	case Closed:
		return []any{&r.name, &r.triangulation, &r.m, &r.l}
	case Link:
		return []any{&r.name, &r.triangulation, &r.perm, &r.dt}
	default:
		return []any{&r.name, &r.triangulation, &r.perm}
	}
}

// build reconstructs a manifold from a row and finalizes it.
func (k Kind) build(r *catalogRow, factory manifold.Factory, dec codec.MatrixDecoder) (manifold.Manifold, error) {
	p, err := codec.Decode(r.triangulation, dec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.name, err)
	}

	m := factory()
	if k == Link && r.dt.Valid {
		m.SetDTCode(r.dt.String)
	}

	if p.UseString {
		if err := m.FromString(string(p.Body)); err != nil {
			return nil, fmt.Errorf("%s: failed to load triangulation: %w", r.name, err)
		}
	} else {
		if err := m.FromBytes(p.Body); err != nil {
			return nil, fmt.Errorf("%s: failed to load triangulation: %w", r.name, err)
		}
		if p.UseCobs {
			if err := m.SetPeripheralCurves(manifold.Combinatorial); err != nil {
				return nil, fmt.Errorf("%s: %w", r.name, err)
			}
			if err := m.SetPeripheralMatrices(p.Cobs); err != nil {
				return nil, fmt.Errorf("%s: %w", r.name, err)
			}
		}
	}

	if err := k.finalize(m, r, p.NumCusps); err != nil {
		return nil, fmt.Errorf("%s: %w", r.name, err)
	}
	return m, nil
}

// finalize names the manifold and applies the relation's fillings. The
// header's cusp count stands in when the manifold cannot count its own.
func (k Kind) finalize(m manifold.Manifold, r *catalogRow, headerCusps int) error {
	m.SetName(r.name)

	if k == Closed {
		return m.DehnFill([]manifold.Filling{{P: r.m, Q: r.l}})
	}

	num := m.NumCusps()
	if num == 0 {
		num = headerCusps
	}
	if r.perm.Valid {
		if perm := codec.DecodePermutation(r.perm.Int64, num); perm != nil {
			if err := m.ReindexCusps(perm); err != nil {
				return fmt.Errorf("failed to reindex cusps: %w", err)
			}
		}
	}
	// Filling every cusp with (0,0) normalizes the triangulation after a
	// raw load.
	return m.DehnFill(make([]manifold.Filling, num))
}
