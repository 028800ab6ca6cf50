package docstore

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"time"
)

// normalize folds the numeric and list types a caller may pass into float64
// and []any so that values compare the same regardless of how they were built.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		return f
	case time.Time:
		return x.UTC()
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	}
	return v
}

// typeRank orders values of different types: null, bool, number, time, string, other.
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case time.Time:
		return 3
	case string:
		return 4
	}
	return 5
}

// compare returns -1, 0 or 1. ok is false when a and b have different types
// (or a type without an ordering), in which case only the rank is meaningful.
func compare(a, b any) (c int, ok bool) {
	a, b = normalize(a), normalize(b)
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1, false
		}
		return 1, false
	}
	switch x := a.(type) {
	case nil:
		return 0, true
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case time.Time:
		return x.Compare(b.(time.Time)), true
	case string:
		return strings.Compare(x, b.(string)), true
	}
	if reflect.DeepEqual(a, b) {
		return 0, true
	}
	return 0, false
}

func equal(a, b any) bool {
	c, ok := compare(a, b)
	return ok && c == 0
}

func asList(v any) ([]any, bool) {
	l, ok := normalize(v).([]any)
	return l, ok
}

// matches reports whether data satisfies f. A document lacking the field never matches.
func matches(data map[string]any, f Filter) bool {
	v, present := data[f.Field]
	if !present {
		return false
	}
	switch f.Op {
	case OpEq:
		return equal(v, f.Value)
	case OpNe:
		return !equal(v, f.Value)
	case OpLt, OpLte, OpGt, OpGte:
		c, ok := compare(v, f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case OpLt:
			return c < 0
		case OpLte:
			return c <= 0
		case OpGt:
			return c > 0
		}
		return c >= 0
	case OpIn:
		want, ok := asList(f.Value)
		if !ok {
			return false
		}
		for _, w := range want {
			if equal(v, w) {
				return true
			}
		}
	case OpArrayContains:
		have, ok := asList(v)
		if !ok {
			return false
		}
		for _, h := range have {
			if equal(h, f.Value) {
				return true
			}
		}
	case OpArrayContainsAny:
		have, ok := asList(v)
		if !ok {
			return false
		}
		want, ok := asList(f.Value)
		if !ok {
			return false
		}
		for _, h := range have {
			for _, w := range want {
				if equal(h, w) {
					return true
				}
			}
		}
	}
	return false
}

// sortDocs orders docs by id, then stably by each ordering.
func sortDocs(docs []Document, orders []Order) {
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	if len(orders) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, o := range orders {
			c, _ := compare(docs[i].Data[o.Field], docs[j].Data[o.Field])
			if c == 0 {
				continue
			}
			if o.Dir == Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
