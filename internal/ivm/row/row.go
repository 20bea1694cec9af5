// Package row holds the IVM core's base data model: rows, primary keys,
// orderings and the lazily-relationshipped Node that every operator passes
// upstream and downstream.
package row

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kasuganosora/ivmsync/internal/collation"
)

// Row is an unordered mapping from column name to a primitive value
// (string, finite number, bool, or nil). Rows are immutable values; a
// mutation is always expressed as an (old, new) pair, never as an in-place
// write to a Row a caller already holds.
type Row map[string]interface{}

// Clone returns a shallow copy. Rows hold only primitive values so a
// shallow copy is a full value copy.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Equal reports deep equality over primitive column values.
func (r Row) Equal(other Row) bool {
	if len(r) != len(other) {
		return false
	}
	for k, v := range r {
		ov, ok := other[k]
		if !ok || !valuesEqual(v, ov) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b) && sameKind(a, b)
}

// sameKind prevents int64(1) and string("1") comparing equal through the
// %v fallback above.
func sameKind(a, b interface{}) bool {
	return kindOf(a) == kindOf(b)
}

func kindOf(v interface{}) string {
	switch v.(type) {
	case int, int32, int64, uint, uint32, uint64:
		return "int"
	case float32, float64:
		return "float"
	case string:
		return "string"
	case bool:
		return "bool"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Column describes one declared column of a source.
type Column struct {
	Name string
	// Collation records the column's declared collation name. Ordering does
	// not read it: Ordering.Compare uses each OrderColumn's own Collation.
	Collation string
}

// PrimaryKey is an ordered, non-empty tuple of column names. Every row in a
// source has a distinct value tuple over these columns.
type PrimaryKey []string

// Values extracts the PK tuple from a row as a comparable string key,
// suitable for use as a Go map key.
func (pk PrimaryKey) Values(r Row) string {
	var b strings.Builder
	for i, col := range pk {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(encodeKeyPart(r[col]))
	}
	return b.String()
}

// Equal reports whether a and b agree on every PK column.
func (pk PrimaryKey) Equal(a, b Row) bool {
	for _, col := range pk {
		if !valuesEqual(a[col], b[col]) {
			return false
		}
	}
	return true
}

func encodeKeyPart(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "\x00n"
	case string:
		return "s:" + x
	case bool:
		if x {
			return "b:1"
		}
		return "b:0"
	case int:
		return "i:" + strconv.FormatInt(int64(x), 10)
	case int32:
		return "i:" + strconv.FormatInt(int64(x), 10)
	case int64:
		return "i:" + strconv.FormatInt(x, 10)
	case float64:
		return "f:" + strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return "f:" + strconv.FormatFloat(float64(x), 'g', -1, 64)
	default:
		return fmt.Sprintf("x:%v", x)
	}
}

// SortDirection is the direction of one ordering component.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// OrderColumn is one (column, direction) pair of a declared Ordering.
type OrderColumn struct {
	Column    string
	Direction SortDirection
	Collation string
}

// Ordering is a sequence of OrderColumn forming a total order once
// canonicalized (see Normalize).
type Ordering []OrderColumn

// Normalize appends any primary-key column not already present, in
// ascending direction, guaranteeing totality (spec: "every ordering is
// closed under appending the primary key columns").
func (o Ordering) Normalize(pk PrimaryKey) Ordering {
	seen := make(map[string]bool, len(o))
	out := make(Ordering, len(o), len(o)+len(pk))
	copy(out, o)
	for _, oc := range o {
		seen[oc.Column] = true
	}
	for _, col := range pk {
		if !seen[col] {
			out = append(out, OrderColumn{Column: col, Direction: Ascending})
			seen[col] = true
		}
	}
	return out
}

// Compare returns -1, 0 or 1 comparing rows a and b by this ordering. The
// ordering must already be normalized (total) for the result to be a
// strict order with no ties.
func (o Ordering) Compare(a, b Row) int {
	for _, oc := range o {
		c := compareOrderedValue(a[oc.Column], b[oc.Column], oc.Collation)
		if oc.Direction == Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// Less reports whether a sorts strictly before b under this ordering.
func (o Ordering) Less(a, b Row) bool { return o.Compare(a, b) < 0 }

func compareOrderedValue(a, b interface{}, collation string) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return compareStrings(as, bs, collation)
	}
	ab, aok := a.(bool)
	bb, bok := b.(bool)
	if aok && bok {
		if ab == bb {
			return 0
		}
		if !ab {
			return -1
		}
		return 1
	}
	// Mismatched/unsupported types: fall back to stable stringification so
	// Compare always returns a total order rather than panicking.
	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

func compareStrings(a, b, collationName string) int {
	return collation.Compare(a, b, collationName)
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
	default:
		return 0, false
	}
}

// SearchInsertIndex returns the index at which row would be inserted into
// rows (already sorted ascending by ordering) to keep it sorted.
func SearchInsertIndex(rows []Row, r Row, ordering Ordering) int {
	return sort.Search(len(rows), func(i int) bool {
		return ordering.Compare(rows[i], r) >= 0
	})
}

// FindByPK returns the index of the row matching r's primary key, or -1.
func FindByPK(rows []Row, r Row, pk PrimaryKey) int {
	for i, candidate := range rows {
		if pk.Equal(candidate, r) {
			return i
		}
	}
	return -1
}
