package operators

import (
	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
	"github.com/kasuganosora/ivmsync/internal/ivm/source"
)

// HiddenProjection wraps an upstream Input that carries Relationship on its
// nodes and strips it before handing nodes further downstream (spec §4.5
// "Nested projection / relationship hiding"). A further operator nearer
// upstream — typically a Join with Hidden set — may already rely on that
// relationship internally; HiddenProjection is for the case where the
// stripping needs to happen one level removed from the join itself, e.g.
// a Filter or another Join consumes Relationship before this point.
type HiddenProjection struct {
	base
	upstream     source.Input
	relationship string
}

var _ Operator = (*HiddenProjection)(nil)

func NewHiddenProjection(upstream source.Input, relationship string) *HiddenProjection {
	p := &HiddenProjection{upstream: upstream, relationship: relationship}
	upstream.SetOutput(p)
	return p
}

func (p *HiddenProjection) Ordering() row.Ordering    { return p.upstream.Ordering() }
func (p *HiddenProjection) AppliedFilters() bool      { return p.upstream.AppliedFilters() }
func (p *HiddenProjection) EnsureIndex(column string) { p.upstream.EnsureIndex(column) }
func (p *HiddenProjection) Destroy()                  { p.upstream.Destroy() }

func (p *HiddenProjection) Fetch(constraint *change.Constraint) *row.Seq[row.Node] {
	upstreamSeq := p.upstream.Fetch(constraint)
	return row.NewSeq(func() (row.Node, bool) {
		n, ok := upstreamSeq.Next()
		if !ok {
			return row.Node{}, false
		}
		return stripRelationship(n, p.relationship), true
	}, func() { upstreamSeq.Cleanup() })
}

func (p *HiddenProjection) Cleanup(constraint *change.Constraint) *row.Seq[row.Node] {
	return p.upstream.Cleanup(constraint)
}

func (p *HiddenProjection) Push(c change.Change) error {
	switch c.Kind {
	case change.Add:
		return p.emit(change.NewAdd(stripRelationship(c.Node, p.relationship)))
	case change.Remove:
		return p.emit(change.NewRemove(stripRelationship(c.Node, p.relationship)))
	case change.Edit, change.Child:
		return p.emit(c)
	}
	return nil
}
