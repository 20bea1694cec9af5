package operators

import (
	"fmt"

	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
	"github.com/kasuganosora/ivmsync/internal/ivm/scratch"
	"github.com/kasuganosora/ivmsync/internal/ivm/source"
)

// JoinConfig are the construction parameters of spec §4.4:
// (parent, parentKey, child, childKey, relationshipName, hidden).
// ParentPrimaryKey additionally names the parent's declared PK columns,
// needed to key the primary-key-set scratch.
type JoinConfig struct {
	Parent            source.Input
	ParentKey         string
	ParentPrimaryKey  row.PrimaryKey
	Child             source.Input
	ChildKey          string
	RelationshipName  string
	Hidden            bool
}

// Join composes parent rows with a lazily-fetched sequence of matching
// child nodes under RelationshipName, maintained incrementally (spec
// §4.4). Grounded on the teacher's pkg/executor/operators/hash_join.go
// merge-row shape, generalized from one-shot Execute to incremental
// fetch/push and from a full materialized result to per-parent lazy child
// sequences.
type Join struct {
	base
	cfg JoinConfig
	// ps is the primary-key-set scratch: presence of (childJoinValue,
	// parentPrimaryKey) records which parents above this join currently
	// reference which child-key value, so a parent's disappearance can
	// deterministically release the child's constraint count (spec §3).
	ps *scratch.Store[string]
}

var _ Operator = (*Join)(nil)

// NewJoin builds a Join and wires both upstream sinks. It also hints the
// child side to maintain a hash index on ChildKey — the "fast side" of
// spec §4.2 — since every parent-driven fetch constrains the child by
// exactly that column.
func NewJoin(cfg JoinConfig) *Join {
	j := &Join{cfg: cfg, ps: scratch.New[string]()}
	cfg.Child.EnsureIndex(cfg.ChildKey)
	cfg.Parent.SetOutput(&joinParentSink{j: j})
	cfg.Child.SetOutput(&joinChildSink{j: j})
	return j
}

func (j *Join) Ordering() row.Ordering       { return j.cfg.Parent.Ordering() }
func (j *Join) AppliedFilters() bool         { return j.cfg.Parent.AppliedFilters() }
func (j *Join) EnsureIndex(column string)    { j.cfg.Parent.EnsureIndex(column) }
func (j *Join) Destroy() {
	j.cfg.Parent.Destroy()
	j.cfg.Child.Destroy()
}

func (j *Join) scratchKey(childVal interface{}, parent row.Row) string {
	return fmt.Sprintf("%T:%v\x1f%s", childVal, childVal, j.cfg.ParentPrimaryKey.Values(parent))
}

func (j *Join) composeParent(p row.Node) row.Node {
	childVal := p.Row[j.cfg.ParentKey]
	childSeq := j.cfg.Child.Fetch(&change.Constraint{Column: j.cfg.ChildKey, Value: childVal})
	j.ps.Set(j.scratchKey(childVal, p.Row))
	node := p.WithRelationship(j.cfg.RelationshipName, childSeq)
	if j.cfg.Hidden {
		node = stripRelationship(node, j.cfg.RelationshipName)
	}
	return node
}

// Fetch pulls parents under constraint and, for each, pulls children under
// childKey = parent[parentKey], recording every (childKey, parentPK) pair
// in scratch (spec §4.4 "Fetch semantics").
func (j *Join) Fetch(constraint *change.Constraint) *row.Seq[row.Node] {
	parentSeq := j.cfg.Parent.Fetch(constraint)
	return row.NewSeq(func() (row.Node, bool) {
		p, ok := parentSeq.Next()
		if !ok {
			return row.Node{}, false
		}
		return j.composeParent(p), true
	}, func() { parentSeq.Cleanup() })
}

// Cleanup releases the parent-side scratch (recursively through the
// parent's own Cleanup) and, for each parent, the child's scratch tied to
// that parent's join-key value.
func (j *Join) Cleanup(constraint *change.Constraint) *row.Seq[row.Node] {
	parentSeq := j.cfg.Parent.Cleanup(constraint)
	return row.NewSeq(func() (row.Node, bool) {
		p, ok := parentSeq.Next()
		if !ok {
			return row.Node{}, false
		}
		childVal := p.Row[j.cfg.ParentKey]
		drainAndCleanup(j.cfg.Child.Cleanup(&change.Constraint{Column: j.cfg.ChildKey, Value: childVal}))
		j.ps.Delete(j.scratchKey(childVal, p.Row))
		p.Cleanup()
		return p, true
	}, func() { parentSeq.Cleanup() })
}

// Push implements Join as an Output only for callers that hold a bare
// Join reference (e.g. tests); real wiring goes through the dedicated
// parent/child sinks so pushes are tagged with their origin.
func (j *Join) Push(c change.Change) error { return j.pushFromParent(c) }

type joinParentSink struct{ j *Join }

func (s *joinParentSink) Push(c change.Change) error { return s.j.pushFromParent(c) }

type joinChildSink struct{ j *Join }

func (s *joinChildSink) Push(c change.Change) error { return s.j.pushFromChild(c) }

func (j *Join) pushFromParent(c change.Change) error {
	switch c.Kind {
	case change.Add:
		return j.emit(change.NewAdd(j.composeParent(c.Node)))

	case change.Remove:
		r := c.Node.Row
		childVal := r[j.cfg.ParentKey]
		childSeq := j.cfg.Child.Cleanup(&change.Constraint{Column: j.cfg.ChildKey, Value: childVal})
		node := c.Node.WithRelationship(j.cfg.RelationshipName, childSeq)
		if j.cfg.Hidden {
			node = stripRelationship(node, j.cfg.RelationshipName)
		}
		j.ps.Delete(j.scratchKey(childVal, r))
		return j.emit(change.NewRemove(node))

	case change.Edit:
		oldVal := c.OldRow[j.cfg.ParentKey]
		newVal := c.Row[j.cfg.ParentKey]
		if valuesEqual(oldVal, newVal) {
			return j.emit(change.NewEdit(c.OldRow, c.Row))
		}
		// parentKey rebinds this row to a different child group: release
		// the old association and attach the new one (spec §4.4).
		oldSeq := j.cfg.Child.Cleanup(&change.Constraint{Column: j.cfg.ChildKey, Value: oldVal})
		oldNode := row.NewNode(c.OldRow).WithRelationship(j.cfg.RelationshipName, oldSeq)
		if j.cfg.Hidden {
			oldNode = stripRelationship(oldNode, j.cfg.RelationshipName)
		}
		j.ps.Delete(j.scratchKey(oldVal, c.OldRow))
		if err := j.emit(change.NewRemove(oldNode)); err != nil {
			return err
		}
		newSeq := j.cfg.Child.Fetch(&change.Constraint{Column: j.cfg.ChildKey, Value: newVal})
		newNode := row.NewNode(c.Row).WithRelationship(j.cfg.RelationshipName, newSeq)
		if j.cfg.Hidden {
			newNode = stripRelationship(newNode, j.cfg.RelationshipName)
		}
		j.ps.Set(j.scratchKey(newVal, c.Row))
		return j.emit(change.NewAdd(newNode))

	case change.Child:
		// A change to a relationship this join doesn't own; pass through.
		return j.emit(c)
	}
	return nil
}

func (j *Join) pushFromChild(c change.Change) error {
	switch c.Kind {
	case change.Add:
		r := c.Node.Row
		return j.forwardToMatchingParents(r[j.cfg.ChildKey], func(p row.Row) change.Change {
			return change.NewChild(p, j.cfg.RelationshipName, change.NewAdd(c.Node))
		})

	case change.Remove:
		r := c.Node.Row
		return j.forwardToMatchingParents(r[j.cfg.ChildKey], func(p row.Row) change.Change {
			return change.NewChild(p, j.cfg.RelationshipName, change.NewRemove(c.Node))
		})

	case change.Edit:
		oldVal := c.OldRow[j.cfg.ChildKey]
		newVal := c.Row[j.cfg.ChildKey]
		if valuesEqual(oldVal, newVal) {
			return j.forwardToMatchingParents(newVal, func(p row.Row) change.Change {
				return change.NewChild(p, j.cfg.RelationshipName, change.NewEdit(c.OldRow, c.Row))
			})
		}
		// Child join-key changed: remove from the old parent group, add to
		// the new one. Do not coalesce across parents (spec §4.4).
		if err := j.forwardToMatchingParents(oldVal, func(p row.Row) change.Change {
			return change.NewChild(p, j.cfg.RelationshipName, change.NewRemove(row.NewNode(c.OldRow)))
		}); err != nil {
			return err
		}
		return j.forwardToMatchingParents(newVal, func(p row.Row) change.Change {
			return change.NewChild(p, j.cfg.RelationshipName, change.NewAdd(row.NewNode(c.Row)))
		})

	case change.Child:
		// A deeper relationship changed on one of our child rows; c.ParentRow
		// names that child row, so route by its join-key value and wrap the
		// whole incoming envelope unchanged (spec §4.4 Composition).
		return j.forwardToMatchingParents(c.ParentRow[j.cfg.ChildKey], func(p row.Row) change.Change {
			return change.NewChild(p, j.cfg.RelationshipName, c)
		})
	}
	return nil
}

// forwardToMatchingParents fetches every parent whose parentKey equals
// childVal and emits build(parent) for each, without coalescing.
func (j *Join) forwardToMatchingParents(childVal interface{}, build func(p row.Row) change.Change) error {
	seq := j.cfg.Parent.Fetch(&change.Constraint{Column: j.cfg.ParentKey, Value: childVal})
	defer seq.Cleanup()
	for {
		p, ok := seq.Next()
		if !ok {
			return nil
		}
		err := j.emit(build(p.Row))
		p.Cleanup()
		if err != nil {
			return err
		}
	}
}

func valuesEqual(a, b interface{}) bool {
	return row.Row{"v": a}.Equal(row.Row{"v": b})
}

// stripRelationship fully drains and cleans up relName's sequence (so any
// scratch it seeded is still released) and returns n with that
// relationship absent, implementing the hidden-join / nested-projection
// rule of spec §4.5: "the downstream output simply strips the
// relationship from emitted nodes."
func stripRelationship(n row.Node, relName string) row.Node {
	if seq, ok := n.Relationships[relName]; ok {
		drainAndCleanup(seq)
	}
	return n.WithoutRelationship(relName)
}

func drainAndCleanup(seq *row.Seq[row.Node]) {
	if seq == nil {
		return
	}
	for {
		n, ok := seq.Next()
		if !ok {
			return
		}
		n.Cleanup()
	}
}
