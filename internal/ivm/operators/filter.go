package operators

import (
	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
	"github.com/kasuganosora/ivmsync/internal/ivm/source"
)

// Filter keeps only rows matching Predicate, decomposing edits that cross
// the predicate boundary into an add or remove so the downstream view
// never observes a row entering or leaving except through those two
// change kinds (spec §4.5).
type Filter struct {
	base
	upstream  source.Input
	predicate Predicate
}

var _ Operator = (*Filter)(nil)

func NewFilter(upstream source.Input, predicate Predicate) *Filter {
	f := &Filter{upstream: upstream, predicate: predicate}
	upstream.SetOutput(f)
	return f
}

func (f *Filter) Ordering() row.Ordering    { return f.upstream.Ordering() }
func (f *Filter) AppliedFilters() bool      { return f.upstream.AppliedFilters() }
func (f *Filter) EnsureIndex(column string) { f.upstream.EnsureIndex(column) }
func (f *Filter) Destroy()                  { f.upstream.Destroy() }

// Fetch filters lazily, one upstream node at a time, so a large rejected
// prefix never needs to be materialized.
func (f *Filter) Fetch(constraint *change.Constraint) *row.Seq[row.Node] {
	upstreamSeq := f.upstream.Fetch(constraint)
	return row.NewSeq(func() (row.Node, bool) {
		for {
			n, ok := upstreamSeq.Next()
			if !ok {
				return row.Node{}, false
			}
			if f.predicate(n.Row) {
				return n, true
			}
			n.Cleanup()
		}
	}, func() { upstreamSeq.Cleanup() })
}

// Cleanup has no scratch of its own to release; it simply forwards to
// upstream so any scratch it owns is released.
func (f *Filter) Cleanup(constraint *change.Constraint) *row.Seq[row.Node] {
	return f.upstream.Cleanup(constraint)
}

func (f *Filter) Push(c change.Change) error {
	switch c.Kind {
	case change.Add:
		if f.predicate(c.Node.Row) {
			return f.emit(c)
		}
		c.Node.Cleanup()
		return nil

	case change.Remove:
		if f.predicate(c.Node.Row) {
			return f.emit(c)
		}
		c.Node.Cleanup()
		return nil

	case change.Edit:
		oldMatch := f.predicate(c.OldRow)
		newMatch := f.predicate(c.Row)
		switch {
		case oldMatch && newMatch:
			return f.emit(c)
		case newMatch:
			return f.emit(change.NewAdd(row.NewNode(c.Row)))
		case oldMatch:
			return f.emit(change.NewRemove(row.NewNode(c.OldRow)))
		default:
			return nil
		}

	case change.Child:
		// Relationship changes nested under an already-passing row forward
		// unchanged; Filter only judges top-level rows.
		return f.emit(c)
	}
	return nil
}
