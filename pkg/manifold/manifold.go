package manifold

// Matrix is a 2x2 integer change-of-basis matrix for the peripheral curves
// of one cusp, stored row-major.
type Matrix [2][2]int

// Filling is a Dehn filling coefficient pair. (0,0) leaves the cusp complete.
type Filling struct {
	P int
	Q int
}

// PeripheralMode selects a canonical peripheral curve system.
type PeripheralMode string

const (
	// Combinatorial resets peripheral curves to the ones read off the
	// triangulation, before any change-of-basis matrix is applied.
	Combinatorial PeripheralMode = "combinatorial"
)

// Manifold is the triangulated 3-manifold capability the catalog depends on.
// Implementations own all geometry; the catalog only drives reconstruction
// and asks yes/no questions.
type Manifold interface {
	// FromBytes loads a binary triangulation.
	FromBytes(data []byte) error
	// FromString loads a triangulation in its text form.
	FromString(text string) error

	SetName(name string)
	Name() string
	NumCusps() int

	// DehnFill fills cusps in order; fewer fillings than cusps leaves the
	// remaining cusps untouched.
	DehnFill(fillings []Filling) error
	SetPeripheralCurves(mode PeripheralMode) error
	SetPeripheralMatrices(cobs []Matrix) error
	ReindexCusps(perm []int) error
	SetDTCode(code string)

	Copy() Manifold
	IsIsometricTo(other Manifold) (bool, error)
	// Isometries lists the isometries to other, empty when there are none.
	Isometries(other Manifold) ([]Isometry, error)
	// Randomize replaces the triangulation with a random one of the same
	// manifold.
	Randomize() error
	// CuspComplete reports, per cusp, whether the cusp is unfilled.
	CuspComplete() []bool
	// Equal reports combinatorial equality of the triangulations.
	Equal(other Manifold) bool
}

// Isometry is one isometry between two manifolds.
type Isometry interface {
	// ExtendsToLink reports whether meridians are taken to meridians.
	ExtendsToLink() bool
}

// Factory constructs an empty manifold ready to be loaded.
type Factory func() Manifold

// Hasher computes the isometry-invariant signature stored in a catalog's
// hash column.
type Hasher func(m Manifold) ([]byte, error)
