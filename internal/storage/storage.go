package storage

import (
	"context"
	"fmt"
)

// Shape is the column layout of a census relation.
type Shape int

const (
	// CuspedShape relations carry a packed cusp permutation.
	CuspedShape Shape = iota
	// ClosedShape relations carry the (m,l) filling of their single cusp.
	ClosedShape
	// LinkShape relations are cusped relations with a DT code.
	LinkShape
)

func (s Shape) String() string {
	switch s {
	case CuspedShape:
		return "cusped"
	case ClosedShape:
		return "closed"
	case LinkShape:
		return "link"
	default:
		return "unknown"
	}
}

// ParseShape maps "cusped", "closed" and "link" to their shapes.
func ParseShape(s string) (Shape, error) {
	for _, shape := range []Shape{CuspedShape, ClosedShape, LinkShape} {
		if shape.String() == s {
			return shape, nil
		}
	}
	return 0, fmt.Errorf("unknown relation shape %q", s)
}

// Standard relation names of the census databases.
const (
	OrientableCuspedRelation    = "orientable_cusped_view"
	NonorientableCuspedRelation = "nonorientable_cusped_view"
	OrientableClosedRelation    = "orientable_closed_view"
	NonorientableClosedRelation = "nonorientable_closed_view"
	LinkExteriorsRelation       = "link_exteriors_view"
	CensusKnotsRelation         = "census_knots_view"
	HTLinksRelation             = "HT_links_view"
)

// Relation names a census relation and its layout.
type Relation struct {
	Name  string
	Shape Shape
}

// StandardRelations is the set of relations created by the catalog schema.
var StandardRelations = []Relation{
	{OrientableCuspedRelation, CuspedShape},
	{NonorientableCuspedRelation, CuspedShape},
	{OrientableClosedRelation, ClosedShape},
	{NonorientableClosedRelation, ClosedShape},
	{LinkExteriorsRelation, CuspedShape},
	{CensusKnotsRelation, CuspedShape},
	{HTLinksRelation, LinkShape},
}

// Row is one stored manifold. Columns that do not exist in a relation's
// shape are ignored on insert.
type Row struct {
	ID            int64 // 0 lets SQLite assign the next id
	Name          string
	Triangulation []byte
	Perm          *int64 // Nullable
	M             int
	L             int
	DT            string
	Hash          []byte
	Volume        float64
	Cusps         int
	Tets          int
	Betti         int
}

// Writer provisions census catalogs.
type Writer interface {
	CreateRelation(ctx context.Context, rel Relation) error
	Reset(ctx context.Context) error
	Insert(ctx context.Context, rel Relation, row *Row) error
	BeginTx(ctx context.Context) (Tx, error)
	Close() error
}

// Tx is a provisioning transaction
type Tx interface {
	Commit() error
	Rollback() error
	Insert(ctx context.Context, rel Relation, row *Row) error
}
