package docstore

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

type Op string

const (
	OpEquals        Op = "=="
	OpArrayContains Op = "array-contains"
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query narrows a collection listing. Fields are dotted paths into the
// document data.
type Query struct {
	Where   []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

func Equals(field string, value any) Filter {
	return Filter{Field: field, Op: OpEquals, Value: value}
}

func ArrayContains(field string, value any) Filter {
	return Filter{Field: field, Op: OpArrayContains, Value: value}
}

// Apply filters, orders and limits snapshots in memory. Backends load a whole
// collection and delegate here so every backend answers queries identically.
func Apply(snaps []*Snapshot, q Query) ([]*Snapshot, error) {
	for _, f := range q.Where {
		if f.Op != OpEquals && f.Op != OpArrayContains {
			return nil, fmt.Errorf("unsupported query operator %q", f.Op)
		}
	}

	out := make([]*Snapshot, 0, len(snaps))
	for _, s := range snaps {
		if matches(s.Data, q.Where) {
			out = append(out, s)
		}
	}

	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a, _ := Lookup(out[i].Data, q.OrderBy)
			b, _ := Lookup(out[j].Data, q.OrderBy)
			c := compare(a, b)
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Lookup resolves a dotted field path inside data.
func Lookup(data map[string]any, field string) (any, bool) {
	var cur any = data
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := Lookup(data, f.Field)
		if !ok {
			return false
		}
		switch f.Op {
		case OpEquals:
			if !equal(v, f.Value) {
				return false
			}
		case OpArrayContains:
			arr, ok := v.([]any)
			if !ok {
				return false
			}
			found := false
			for _, el := range arr {
				if equal(el, f.Value) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

// compare orders missing < bool < number < string; values of other kinds
// compare equal.
func compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 1:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		default:
			return 1
		}
	case 2:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 3:
		return strings.Compare(a.(string), b.(string))
	}
	return 0
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case string:
		return 3
	}
	if _, ok := toFloat(v); ok {
		return 2
	}
	return 4
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
