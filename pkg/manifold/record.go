package manifold

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/zeebo/blake3"
)

// HashSize is the width of the signature written by BodyHash.
const HashSize = 16

// ErrForeignManifold is returned when a Record is compared with, or hashed
// as, a Manifold of another implementation.
var ErrForeignManifold = errors.New("manifold is not a Record")

// Record is a Manifold that stores reconstruction inputs verbatim.
type Record struct {
	name     string
	body     []byte
	text     bool
	dtCode   string
	mode     PeripheralMode
	cobs     []Matrix
	perm     []int
	fillings []Filling
}

// NewRecord returns an empty Record. It has the Factory signature.
func NewRecord() Manifold {
	return &Record{}
}

func (r *Record) FromBytes(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty triangulation")
	}
	r.body = bytes.Clone(data)
	r.text = false
	return nil
}

func (r *Record) FromString(text string) error {
	if text == "" {
		return errors.New("empty triangulation")
	}
	r.body = []byte(text)
	r.text = true
	return nil
}

func (r *Record) SetName(name string) { r.name = name }

func (r *Record) Name() string { return r.name }

// NumCusps is the largest cusp count implied by the matrices, permutation
// or fillings applied so far. A record cannot read it off the body.
func (r *Record) NumCusps() int {
	return max(len(r.cobs), len(r.perm), len(r.fillings))
}

func (r *Record) DehnFill(fillings []Filling) error {
	r.fillings = slices.Clone(fillings)
	return nil
}

func (r *Record) SetPeripheralCurves(mode PeripheralMode) error {
	switch mode {
	case Combinatorial:
		r.mode = mode
		r.cobs = nil
		return nil
	default:
		return fmt.Errorf("unknown peripheral mode %q", mode)
	}
}

func (r *Record) SetPeripheralMatrices(cobs []Matrix) error {
	r.cobs = slices.Clone(cobs)
	return nil
}

func (r *Record) ReindexCusps(perm []int) error {
	seen := make(map[int]bool, len(perm))
	for _, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			return fmt.Errorf("invalid cusp permutation %v", perm)
		}
		seen[p] = true
	}
	r.perm = slices.Clone(perm)
	return nil
}

func (r *Record) SetDTCode(code string) { r.dtCode = code }

func (r *Record) Copy() Manifold {
	return &Record{
		name:     r.name,
		body:     bytes.Clone(r.body),
		text:     r.text,
		dtCode:   r.dtCode,
		mode:     r.mode,
		cobs:     slices.Clone(r.cobs),
		perm:     slices.Clone(r.perm),
		fillings: slices.Clone(r.fillings),
	}
}

// IsIsometricTo only recognizes the trivial isometry between identical
// triangulations.
func (r *Record) IsIsometricTo(other Manifold) (bool, error) {
	o, ok := other.(*Record)
	if !ok {
		return false, ErrForeignManifold
	}
	return r.Equal(o), nil
}

func (r *Record) Isometries(other Manifold) ([]Isometry, error) {
	o, ok := other.(*Record)
	if !ok {
		return nil, ErrForeignManifold
	}
	if !r.Equal(o) {
		return nil, nil
	}
	return []Isometry{identity{extends: slices.Equal(r.perm, o.perm)}}, nil
}

// Randomize is a no-op: a record has a single representative.
func (r *Record) Randomize() error { return nil }

func (r *Record) CuspComplete() []bool {
	complete := make([]bool, r.NumCusps())
	for i := range complete {
		complete[i] = i >= len(r.fillings) || r.fillings[i] == Filling{}
	}
	return complete
}

func (r *Record) Equal(other Manifold) bool {
	o, ok := other.(*Record)
	if !ok {
		return false
	}
	return r.text == o.text && bytes.Equal(r.body, o.body)
}

// Body returns the stored triangulation data.
func (r *Record) Body() []byte { return r.body }

// IsText reports whether the body was loaded with FromString.
func (r *Record) IsText() bool { return r.text }

func (r *Record) DTCode() string { return r.dtCode }

func (r *Record) Fillings() []Filling { return r.fillings }

func (r *Record) Permutation() []int { return r.perm }

func (r *Record) PeripheralMatrices() []Matrix { return r.cobs }

// String renders the name followed by the filling of each cusp, e.g.
// "m125(0,0)(0,0)".
func (r *Record) String() string {
	var b strings.Builder
	b.WriteString(r.name)
	for _, f := range r.fillings {
		fmt.Fprintf(&b, "(%d,%d)", f.P, f.Q)
	}
	return b.String()
}

type identity struct {
	extends bool
}

func (i identity) ExtendsToLink() bool { return i.extends }

// BodyHash is a Hasher for Records: the first HashSize bytes of the BLAKE3
// digest of the body, domain-separated by the body's form.
func BodyHash(m Manifold) ([]byte, error) {
	r, ok := m.(*Record)
	if !ok {
		return nil, ErrForeignManifold
	}
	h := blake3.New()
	form := byte('b')
	if r.text {
		form = 's'
	}
	_, _ = h.Write([]byte{form})
	_, _ = h.Write(r.body)
	return h.Sum(nil)[:HashSize], nil
}
