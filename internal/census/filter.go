package census

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Filter narrows a table. Every set field adds one equality clause; clauses
// are joined with "and". Where is a raw SQL predicate passed through as is.
type Filter struct {
	Where    string
	Betti    *int
	NumCusps *int
	Cusps    *int
	NumTets  *int
	Tets     *int

	// Honoured by Link tables only.
	Alternating  *bool
	KnotsVsLinks string // "knots" or "links"
	Crossings    *int
}

// IsZero reports whether the filter has no clauses.
func (f Filter) IsZero() bool {
	return f.Where == "" && f.Betti == nil && f.NumCusps == nil && f.Cusps == nil &&
		f.NumTets == nil && f.Tets == nil && f.Alternating == nil &&
		f.KnotsVsLinks == "" && f.Crossings == nil
}

// predicate renders the filter as a SQL boolean expression for a table of
// the given kind, or "" when nothing applies.
func (f Filter) predicate(kind Kind) string {
	var conditions []string

	if f.Where != "" {
		conditions = append(conditions, f.Where)
	}
	if f.Betti != nil {
		conditions = append(conditions, fmt.Sprintf("betti=%d", *f.Betti))
	}
	if f.NumCusps != nil {
		conditions = append(conditions, fmt.Sprintf("cusps=%d", *f.NumCusps))
	}
	if f.Cusps != nil {
		conditions = append(conditions, fmt.Sprintf("cusps=%d", *f.Cusps))
	}
	if f.NumTets != nil {
		conditions = append(conditions, fmt.Sprintf("tets=%d", *f.NumTets))
	}
	if f.Tets != nil {
		conditions = append(conditions, fmt.Sprintf("tets=%d", *f.Tets))
	}

	if kind == Link {
		if f.Alternating != nil {
			if *f.Alternating {
				conditions = append(conditions, "name like '%a%'")
			} else {
				conditions = append(conditions, "name like '%n%'")
			}
		}
		switch f.KnotsVsLinks {
		case "knots":
			conditions = append(conditions, "cusps=1")
		case "links":
			conditions = append(conditions, "cusps>1")
		}
		if f.Crossings != nil {
			n := *f.Crossings
			conditions = append(conditions,
				fmt.Sprintf("(name like '%%_%da%%' or name like '%%_%dn%%')", n, n))
		}
	}

	if f.Where != "" && len(conditions) > 1 {
		conditions[0] = "(" + f.Where + ")"
	}
	return strings.Join(conditions, " and ")
}

// ParseFilter builds a Filter from loosely typed arguments, as they arrive
// from JSON or the command line. Unrecognized keys are ignored.
func ParseFilter(args map[string]any) (Filter, error) {
	var f Filter
	var err error

	if v, ok := args["filter"]; ok {
		s, isString := v.(string)
		if !isString {
			return Filter{}, fmt.Errorf("filter must be a string, got %T", v)
		}
		f.Where = s
	}

	ints := []struct {
		key string
		dst **int
	}{
		{"betti", &f.Betti},
		{"num_cusps", &f.NumCusps},
		{"cusps", &f.Cusps},
		{"num_tets", &f.NumTets},
		{"tets", &f.Tets},
		{"crossings", &f.Crossings},
	}
	for _, field := range ints {
		v, ok := args[field.key]
		if !ok {
			continue
		}
		n, convErr := toInt(v)
		if convErr != nil {
			return Filter{}, fmt.Errorf("%s: %w", field.key, convErr)
		}
		*field.dst = &n
	}

	if v, ok := args["alternating"]; ok {
		var b bool
		switch x := v.(type) {
		case bool:
			b = x
		case string:
			b, err = strconv.ParseBool(x)
			if err != nil {
				return Filter{}, fmt.Errorf("alternating: %w", err)
			}
		default:
			return Filter{}, fmt.Errorf("alternating must be a boolean, got %T", v)
		}
		f.Alternating = &b
	}

	if v, ok := args["knots_vs_links"]; ok {
		s, _ := v.(string)
		if s != "knots" && s != "links" {
			return Filter{}, fmt.Errorf("knots_vs_links must be \"knots\" or \"links\", got %v", v)
		}
		f.KnotsVsLinks = s
	}

	return f, nil
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%v is not an integer", x)
		}
		return int(x), nil
	case string:
		return strconv.Atoi(x)
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}
