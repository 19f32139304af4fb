package memstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/anonto42/storyshare/backend/internal/remote"
)

func clone(r remote.Row) remote.Row {
	out := make(remote.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func project(r remote.Row, columns []string) remote.Row {
	if len(columns) == 0 {
		return clone(r)
	}
	out := make(remote.Row, len(columns))
	for _, c := range columns {
		if v, ok := r[c]; ok {
			out[c] = v
		}
	}
	return out
}

func matchesAll(r remote.Row, filters []remote.Filter) bool {
	for _, f := range filters {
		if !matches(r, f) {
			return false
		}
	}
	return true
}

func matches(r remote.Row, f remote.Filter) bool {
	if f.Column == "" {
		return true
	}
	v, present := r[f.Column]
	switch f.Op {
	case remote.OpEq:
		return present && equal(v, f.Value)
	case remote.OpNeq:
		return !present || !equal(v, f.Value)
	case remote.OpIn:
		values, _ := f.Value.([]string)
		for _, want := range values {
			if equal(v, want) {
				return true
			}
		}
		return false
	case remote.OpIs:
		if f.Value == nil {
			return !present || v == nil
		}
		return present && equal(v, f.Value)
	default:
		return false
	}
}

func sameKey(a, b remote.Row, columns []string) bool {
	for _, c := range columns {
		if !equal(a[c], b[c]) {
			return false
		}
	}
	return true
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func compare(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	}
	ai, bi := toInt(a), toInt(b)
	switch {
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	default:
		return 0
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
