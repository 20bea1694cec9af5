// Package view implements the ordered materialized view of spec §4.6: the
// terminal consumer of a dataflow pipeline, holding the full current
// result (including nested relationships) in memory and notifying
// listeners with a batch of the Change events a push cascade produced.
package view

import (
	"sort"

	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/ivmerr"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
	"github.com/kasuganosora/ivmsync/internal/ivm/source"
)

// Node is one materialized row: its current value plus, recursively, every
// relationship named on it as a fully-realized slice rather than a lazy
// Seq — the view is the one place the dataflow graph stops being lazy.
type Node struct {
	Row           row.Row
	Relationships map[string][]Node
}

// View is the top of a pipeline: it owns no further Input/Output of its
// own, only source.Output (Push), plus Hydrate/Flush/Destroy and a
// read-only Rows() snapshot.
type View struct {
	upstream  source.Input
	singular  map[string]bool
	rows      []Node
	pending   []change.Change
	listeners []func([]change.Change)
}

var _ source.Output = (*View)(nil)

// New wires upstream's output to the new View. singular names the
// relationships that must never materialize more than one child; a
// violation surfaces as ivmerr.KindInvariantViolation.
func New(upstream source.Input, singular map[string]bool) *View {
	if singular == nil {
		singular = map[string]bool{}
	}
	v := &View{upstream: upstream, singular: singular}
	upstream.SetOutput(v)
	return v
}

// AddListener registers fn to be called with every non-empty batch Flush
// produces.
func (v *View) AddListener(fn func([]change.Change)) {
	v.listeners = append(v.listeners, fn)
}

// Hydrate replaces the view's state with a full pull from upstream and
// queues the result as an add-batch, ready for the first Flush.
func (v *View) Hydrate() error {
	seq := v.upstream.Fetch(nil)
	defer seq.Cleanup()

	var rows []Node
	for {
		n, ok := seq.Next()
		if !ok {
			break
		}
		vn, err := materialize(n, v.singular)
		if err != nil {
			return err
		}
		rows = append(rows, vn)
	}
	ordering := v.upstream.Ordering()
	sort.SliceStable(rows, func(i, j int) bool { return ordering.Less(rows[i].Row, rows[j].Row) })
	v.rows = rows
	v.pending = v.pending[:0]
	for _, vn := range rows {
		v.pending = append(v.pending, change.NewAdd(toNode(vn)))
	}
	return nil
}

// Flush hands the accumulated batch to every listener and clears it. A
// caller drives one Flush per completed push cascade (spec §5).
func (v *View) Flush() {
	if len(v.pending) == 0 {
		return
	}
	batch := v.pending
	v.pending = nil
	for _, l := range v.listeners {
		l(batch)
	}
}

// Rows returns the current materialized state as fresh, fully-realized
// row.Node values.
func (v *View) Rows() []row.Node { return toNodes(v.rows) }

func (v *View) Destroy() {
	v.rows = nil
	v.pending = nil
	v.listeners = nil
	v.upstream.Destroy()
}

func (v *View) ordering() row.Ordering { return v.upstream.Ordering() }

// indexOf locates r by its strict-total-order key, which always includes
// the primary key after Ordering.Normalize, so an equal comparison key
// implies the same row.
func (v *View) indexOf(r row.Row) (int, bool) {
	o := v.ordering()
	idx := sort.Search(len(v.rows), func(i int) bool { return !o.Less(v.rows[i].Row, r) })
	if idx < len(v.rows) && o.Compare(v.rows[idx].Row, r) == 0 {
		return idx, true
	}
	return idx, false
}

func (v *View) insertAt(idx int, n Node) {
	v.rows = append(v.rows, Node{})
	copy(v.rows[idx+1:], v.rows[idx:])
	v.rows[idx] = n
}

func (v *View) removeAt(idx int) Node {
	n := v.rows[idx]
	copy(v.rows[idx:], v.rows[idx+1:])
	v.rows = v.rows[:len(v.rows)-1]
	return n
}

func (v *View) Push(c change.Change) error {
	switch c.Kind {
	case change.Add:
		vn, err := materialize(c.Node, v.singular)
		if err != nil {
			return err
		}
		idx, _ := v.indexOf(vn.Row)
		v.insertAt(idx, vn)
		v.pending = append(v.pending, c)
		return nil

	case change.Remove:
		idx, found := v.indexOf(c.Node.Row)
		if found {
			v.removeAt(idx)
		}
		c.Node.Cleanup()
		v.pending = append(v.pending, c)
		return nil

	case change.Edit:
		idx, found := v.indexOf(c.OldRow)
		if !found {
			return ivmerr.New(ivmerr.KindNotFound, "view: edit for a row not currently materialized")
		}
		if v.ordering().Compare(c.OldRow, c.Row) == 0 {
			v.rows[idx].Row = c.Row
		} else {
			moved := v.removeAt(idx)
			moved.Row = c.Row
			newIdx, _ := v.indexOf(moved.Row)
			v.insertAt(newIdx, moved)
		}
		v.pending = append(v.pending, c)
		return nil

	case change.Child:
		idx, found := v.indexOf(c.ParentRow)
		if !found {
			c.Cleanup()
			return nil
		}
		if v.rows[idx].Relationships == nil {
			v.rows[idx].Relationships = map[string][]Node{}
		}
		updated, err := applyChildChange(v.rows[idx].Relationships[c.RelationshipName], c, v.singular)
		if err != nil {
			return err
		}
		v.rows[idx].Relationships[c.RelationshipName] = updated
		v.pending = append(v.pending, c)
		return nil
	}
	return nil
}

// materialize fully drains n's relationship sequences (recursively), so a
// Node handed to the view never leaves a lazy sequence half-consumed.
func materialize(n row.Node, singular map[string]bool) (Node, error) {
	vn := Node{Row: n.Row}
	if len(n.Relationships) == 0 {
		return vn, nil
	}
	vn.Relationships = make(map[string][]Node, len(n.Relationships))
	for relName, seq := range n.Relationships {
		var children []Node
		for {
			cn, ok := seq.Next()
			if !ok {
				break
			}
			cvn, err := materialize(cn, singular)
			if err != nil {
				return Node{}, err
			}
			children = append(children, cvn)
		}
		if singular[relName] && len(children) > 1 {
			return Node{}, ivmerr.New(ivmerr.KindInvariantViolation,
				"relationship %q is declared singular but %d children were observed", relName, len(children))
		}
		vn.Relationships[relName] = children
	}
	return vn, nil
}

func findChildIndex(children []Node, r row.Row) int {
	for i, c := range children {
		if c.Row.Equal(r) {
			return i
		}
	}
	return -1
}

// applyChildChange applies one Child-wrapped change to children, recursing
// through further Child envelopes to reach arbitrarily nested
// relationships.
func applyChildChange(children []Node, c change.Change, singular map[string]bool) ([]Node, error) {
	inner := *c.Inner
	switch inner.Kind {
	case change.Add:
		cvn, err := materialize(inner.Node, singular)
		if err != nil {
			return nil, err
		}
		children = append(children, cvn)
		if singular[c.RelationshipName] && len(children) > 1 {
			return nil, ivmerr.New(ivmerr.KindInvariantViolation,
				"relationship %q is declared singular but %d children were observed", c.RelationshipName, len(children))
		}
		return children, nil

	case change.Remove:
		if idx := findChildIndex(children, inner.Node.Row); idx >= 0 {
			children = append(children[:idx], children[idx+1:]...)
		}
		inner.Node.Cleanup()
		return children, nil

	case change.Edit:
		if idx := findChildIndex(children, inner.OldRow); idx >= 0 {
			children[idx].Row = inner.Row
		}
		return children, nil

	case change.Child:
		idx := findChildIndex(children, inner.ParentRow)
		if idx < 0 {
			inner.Cleanup()
			return children, nil
		}
		if children[idx].Relationships == nil {
			children[idx].Relationships = map[string][]Node{}
		}
		grandchildren, err := applyChildChange(children[idx].Relationships[inner.RelationshipName], inner, singular)
		if err != nil {
			return nil, err
		}
		children[idx].Relationships[inner.RelationshipName] = grandchildren
		return children, nil
	}
	return children, nil
}

func toNode(vn Node) row.Node {
	n := row.NewNode(vn.Row)
	if len(vn.Relationships) == 0 {
		return n
	}
	n.Relationships = make(map[string]*row.Seq[row.Node], len(vn.Relationships))
	for name, children := range vn.Relationships {
		n.Relationships[name] = row.FromSlice(toNodes(children))
	}
	return n
}

func toNodes(vns []Node) []row.Node {
	out := make([]row.Node, len(vns))
	for i, vn := range vns {
		out[i] = toNode(vn)
	}
	return out
}
