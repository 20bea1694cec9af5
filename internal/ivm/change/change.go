// Package change defines the tagged Change/SourceChange/Constraint types
// that flow through the IVM dataflow graph (spec §3, §6).
package change

import "github.com/kasuganosora/ivmsync/internal/ivm/row"

// Kind is the closed set of Change variants.
type Kind int

const (
	Add Kind = iota
	Remove
	Edit
	Child
)

func (k Kind) String() string {
	switch k {
	case Add:
		return "add"
	case Remove:
		return "remove"
	case Edit:
		return "edit"
	case Child:
		return "child"
	default:
		return "unknown"
	}
}

// Change is the closed tagged variant the pipeline propagates between
// operators: add(node) / remove(node) / edit(oldRow,row) /
// child(row,relationshipName,change).
type Change struct {
	Kind Kind

	// Add / Remove
	Node row.Node

	// Edit
	OldRow row.Row
	Row    row.Row

	// Child
	ParentRow        row.Row
	RelationshipName string
	Inner            *Change
}

// NewAdd builds an add(node) change.
func NewAdd(n row.Node) Change { return Change{Kind: Add, Node: n} }

// NewRemove builds a remove(node) change.
func NewRemove(n row.Node) Change { return Change{Kind: Remove, Node: n} }

// NewEdit builds an edit(oldRow,row) change. Callers must have already
// verified old and new agree on primary-key columns; crossing-PK edits are
// decomposed into NewRemove+NewAdd by the source boundary, never expressed
// as NewEdit.
func NewEdit(oldRow, newRow row.Row) Change {
	return Change{Kind: Edit, OldRow: oldRow, Row: newRow}
}

// NewChild wraps inner as a change nested under relName of parent.
func NewChild(parent row.Row, relName string, inner Change) Change {
	return Change{Kind: Child, ParentRow: parent, RelationshipName: relName, Inner: &inner}
}

// Cleanup releases any Node relationship sequences still attached to this
// change (recursing through Child envelopes) without requiring a consumer
// to read them first.
func (c Change) Cleanup() {
	switch c.Kind {
	case Add, Remove:
		c.Node.Cleanup()
	case Child:
		if c.Inner != nil {
			c.Inner.Cleanup()
		}
	}
}

// SourceKind is the closed set of primitive leaf-level changes.
type SourceKind int

const (
	SourceAdd SourceKind = iota
	SourceRemove
	SourceEdit
)

// SourceChange is the primitive change a caller pushes into a Source.
type SourceChange struct {
	Kind   SourceKind
	Row    row.Row // Add, and the new value for Edit
	OldRow row.Row // Remove, and the old value for Edit
}

func NewSourceAdd(r row.Row) SourceChange    { return SourceChange{Kind: SourceAdd, Row: r} }
func NewSourceRemove(r row.Row) SourceChange { return SourceChange{Kind: SourceRemove, OldRow: r} }
func NewSourceEdit(oldRow, newRow row.Row) SourceChange {
	return SourceChange{Kind: SourceEdit, OldRow: oldRow, Row: newRow}
}

// Constraint is an equality predicate `column = value` used to request a
// filtered scan from an Input.
type Constraint struct {
	Column string
	Value  interface{}
}

// Matches reports whether r satisfies the constraint.
func (c Constraint) Matches(r row.Row) bool {
	v, ok := r[c.Column]
	if !ok {
		return c.Value == nil
	}
	return valuesEqual(v, c.Value)
}

func valuesEqual(a, b interface{}) bool {
	return row.Row{"v": a}.Equal(row.Row{"v": b})
}

// ComparisonOp is one optional-filter comparison operator an Input may be
// asked to push down; a source reports via Input.AppliedFilters whether it
// actually applied these itself.
type ComparisonOp string

const (
	OpEq         ComparisonOp = "="
	OpNotEq      ComparisonOp = "!="
	OpLessThan   ComparisonOp = "<"
	OpLessEq     ComparisonOp = "<="
	OpGreaterGt  ComparisonOp = ">"
	OpGreaterEq  ComparisonOp = ">="
	OpContainsIn ComparisonOp = "contains_token" // see internal/ivm/operators.ContainsToken
)

// OptionalFilter is a simple comparison conjunction an operator may push
// down alongside a Constraint; sources are free to ignore it.
type OptionalFilter struct {
	Column string
	Op     ComparisonOp
	Value  interface{}
}
