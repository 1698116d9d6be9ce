package census

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterPredicate(t *testing.T) {
	yes := true
	tests := []struct {
		name   string
		filter Filter
		kind   Kind
		want   string
	}{
		{"empty", Filter{}, Cusped, ""},
		{"raw", Filter{Where: "volume > 2"}, Cusped, "volume > 2"},
		{"order of clauses", Filter{Where: "volume > 2", Tets: intPtr(5), Betti: intPtr(1)}, Cusped,
			"(volume > 2) and betti=1 and tets=5"},
		{"num_cusps and cusps both apply", Filter{NumCusps: intPtr(2), Cusps: intPtr(2)}, Closed,
			"cusps=2 and cusps=2"},
		{"link keys ignored off link tables", Filter{Alternating: &yes, KnotsVsLinks: "knots"}, Cusped, ""},
		{"link keys", Filter{Alternating: &yes, KnotsVsLinks: "links", Crossings: intPtr(11)}, Link,
			"name like '%a%' and cusps>1 and (name like '%_11a%' or name like '%_11n%')"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.predicate(tt.kind))
		})
	}
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter(map[string]any{
		"betti":          float64(2),
		"num_tets":       "6",
		"alternating":    "false",
		"knots_vs_links": "knots",
		"filter":         "volume < 3",
		"unrelated":      []int{1},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, *f.Betti)
	assert.Equal(t, 6, *f.NumTets)
	assert.False(t, *f.Alternating)
	assert.Equal(t, "knots", f.KnotsVsLinks)
	assert.Equal(t, "volume < 3", f.Where)
	assert.Nil(t, f.Cusps)
	assert.False(t, f.IsZero())

	empty, err := ParseFilter(nil)
	require.NoError(t, err)
	assert.True(t, empty.IsZero())

	bad := []map[string]any{
		{"betti": 1.5},
		{"tets": true},
		{"alternating": 3},
		{"knots_vs_links": "both"},
		{"filter": 7},
	}
	for _, args := range bad {
		_, err := ParseFilter(args)
		assert.Error(t, err, args)
	}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		in   string
		want Key
	}{
		{"0", IndexKey(0)},
		{"-3", IndexKey(-3)},
		{"m004", NameKey("m004")},
		{"3:6", RangeKey(Range{Start: Ordinal(3), Stop: Ordinal(6)})},
		{":6", RangeKey(Range{Stop: Ordinal(6)})},
		{"-3:", RangeKey(Range{Start: Ordinal(-3)})},
		{"4.1:4.12", RangeKey(Range{Start: Volume(4.1), Stop: Volume(4.12)})},
		{":", RangeKey(Range{})},
		{"1:5:", RangeKey(Range{Start: Ordinal(1), Stop: Ordinal(5)})},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKey(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseKey("1:5:2")
	assert.ErrorIs(t, err, ErrUnsupportedSlice)

	_, err = ParseKey("1:2.5")
	assert.ErrorIs(t, err, ErrInvalidIndexType)

	_, err = ParseKey("a:b")
	assert.ErrorIs(t, err, ErrInvalidIndexType)

	_, err = ParseKey("1:2:3:4")
	assert.ErrorIs(t, err, ErrInvalidIndexType)
}

func TestNewRange(t *testing.T) {
	r, err := NewRange(Volume(1), Unbounded)
	require.NoError(t, err)
	assert.Equal(t, "1:", r.String())
	assert.False(t, r.byOrdinal())

	_, err = NewRange(Ordinal(1), Volume(2))
	assert.ErrorIs(t, err, ErrInvalidIndexType)

	assert.Equal(t, "-2:5:3", Range{Start: Ordinal(-2), Stop: Ordinal(5), Step: 3}.String())
}
