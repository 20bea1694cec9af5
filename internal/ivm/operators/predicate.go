package operators

import (
	"strings"

	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
)

// Predicate evaluates a row for Filter (spec §4.5). Built-in constructors
// below cover the comparison operators already declared in
// change.ComparisonOp; ContainsToken is wired separately per build (see
// contains_cgo.go / contains_stub.go) since it depends on gojieba.
type Predicate func(r row.Row) bool

// And combines predicates, true only when every one holds.
func And(preds ...Predicate) Predicate {
	return func(r row.Row) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// Or combines predicates, true when any one holds.
func Or(preds ...Predicate) Predicate {
	return func(r row.Row) bool {
		for _, p := range preds {
			if p(r) {
				return true
			}
		}
		return false
	}
}

// Not negates a predicate.
func Not(p Predicate) Predicate {
	return func(r row.Row) bool { return !p(r) }
}

// Compare builds a Predicate from one of the change.ComparisonOp operators
// against a fixed value, mirroring change.OptionalFilter but usable as a
// full, non-pushed-down Filter predicate.
func Compare(column string, op change.ComparisonOp, value interface{}) Predicate {
	return func(r row.Row) bool {
		v := r[column]
		switch op {
		case change.OpEq:
			return row.Row{"v": v}.Equal(row.Row{"v": value})
		case change.OpNotEq:
			return !row.Row{"v": v}.Equal(row.Row{"v": value})
		case change.OpLessThan, change.OpLessEq, change.OpGreaterGt, change.OpGreaterEq:
			c := compareAny(v, value)
			switch op {
			case change.OpLessThan:
				return c < 0
			case change.OpLessEq:
				return c <= 0
			case change.OpGreaterGt:
				return c > 0
			default:
				return c >= 0
			}
		case change.OpContainsIn:
			return ContainsToken(v, value)
		default:
			return false
		}
	}
}

func compareAny(a, b interface{}) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, _ := a.(string)
	bs, _ := b.(string)
	return strings.Compare(as, bs)
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
