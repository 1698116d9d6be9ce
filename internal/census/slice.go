package census

import (
	"fmt"
	"strconv"
	"strings"
)

type boundKind int

const (
	unbounded boundKind = iota
	ordinalBound
	volumeBound
)

// Bound is one end of a Range: absent, a 0-based ordinal, or a volume.
// The zero value is absent.
type Bound struct {
	kind    boundKind
	ordinal int
	volume  float64
}

// Unbounded is the absent bound.
var Unbounded = Bound{}

// Ordinal returns an ordinal bound. Negative values count from the end.
func Ordinal(i int) Bound { return Bound{kind: ordinalBound, ordinal: i} }

// Volume returns a volume bound.
func Volume(v float64) Bound { return Bound{kind: volumeBound, volume: v} }

// IsSet reports whether the bound is present.
func (b Bound) IsSet() bool { return b.kind != unbounded }

func (b Bound) String() string {
	switch b.kind {
	case ordinalBound:
		return strconv.Itoa(b.ordinal)
	case volumeBound:
		return strconv.FormatFloat(b.volume, 'g', -1, 64)
	default:
		return ""
	}
}

// Range selects rows either by ordinal position or by volume. A Range with
// two absent bounds selects by volume, i.e. every row.
type Range struct {
	Start Bound
	Stop  Bound
	Step  int // must be 0
}

// NewRange validates that start and stop are of the same kind.
func NewRange(start, stop Bound) (Range, error) {
	r := Range{Start: start, Stop: stop}
	if err := r.validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

func (r Range) validate() error {
	if r.Step != 0 {
		return ErrUnsupportedSlice
	}
	if r.Start.IsSet() && r.Stop.IsSet() && r.Start.kind != r.Stop.kind {
		return ErrInvalidIndexType
	}
	return nil
}

func (r Range) byOrdinal() bool {
	return r.Start.kind == ordinalBound || r.Stop.kind == ordinalBound
}

func (r Range) String() string {
	s := r.Start.String() + ":" + r.Stop.String()
	if r.Step != 0 {
		s += ":" + strconv.Itoa(r.Step)
	}
	return s
}

type keyKind int

const (
	invalidKey keyKind = iota
	indexKey
	nameKey
	rangeKey
)

// Key addresses rows of a table: one ordinal, one name, or a Range.
// The zero Key is invalid.
type Key struct {
	kind  keyKind
	index int
	name  string
	rng   Range
}

func IndexKey(i int) Key { return Key{kind: indexKey, index: i} }

func NameKey(name string) Key { return Key{kind: nameKey, name: name} }

func RangeKey(r Range) Key { return Key{kind: rangeKey, rng: r} }

// ParseKey reads a key written the way census indices are usually written:
// "5" is an ordinal, "3:6", "-3:" and "4.1:4.12" are ranges, anything else is
// a name.
func ParseKey(s string) (Key, error) {
	if !strings.Contains(s, ":") {
		if i, err := strconv.Atoi(s); err == nil {
			return IndexKey(i), nil
		}
		return NameKey(s), nil
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidIndexType, s)
	}

	var r Range
	var err error
	if r.Start, err = parseBound(parts[0]); err != nil {
		return Key{}, err
	}
	if r.Stop, err = parseBound(parts[1]); err != nil {
		return Key{}, err
	}
	if len(parts) == 3 && parts[2] != "" {
		if r.Step, err = strconv.Atoi(parts[2]); err != nil {
			return Key{}, fmt.Errorf("%w: step %q", ErrInvalidIndexType, parts[2])
		}
	}
	if err := r.validate(); err != nil {
		return Key{}, err
	}
	return RangeKey(r), nil
}

func parseBound(s string) (Bound, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unbounded, nil
	}
	if i, err := strconv.Atoi(s); err == nil {
		return Ordinal(i), nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return Volume(v), nil
	}
	return Bound{}, fmt.Errorf("%w: bound %q", ErrInvalidIndexType, s)
}
