package operators

import (
	"sort"

	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
	"github.com/kasuganosora/ivmsync/internal/ivm/source"
)

// Skip mirrors Take: it maintains the first Offset rows of the upstream
// ordering as a hidden "skip zone" and forwards everything past it
// unchanged. A row entering the skip zone displaces its current last
// member into visibility; a row leaving it is refilled from upstream the
// same way Take refills its window.
type Skip struct {
	base
	upstream source.Input
	offset   int
	skipZone []row.Row
}

var _ Operator = (*Skip)(nil)

func NewSkip(upstream source.Input, offset int) *Skip {
	s := &Skip{upstream: upstream, offset: offset}
	upstream.SetOutput(s)
	return s
}

func (s *Skip) Ordering() row.Ordering    { return s.upstream.Ordering() }
func (s *Skip) AppliedFilters() bool      { return s.upstream.AppliedFilters() }
func (s *Skip) EnsureIndex(column string) { s.upstream.EnsureIndex(column) }
func (s *Skip) Destroy()                  { s.upstream.Destroy() }

func (s *Skip) Fetch(constraint *change.Constraint) *row.Seq[row.Node] {
	seq := s.upstream.Fetch(constraint)
	nodes := seq.Collect()
	if constraint == nil {
		rows := rowsOf(nodes)
		s.skipZone = firstN(rows, s.offset)
	}
	if len(nodes) > s.offset {
		for _, n := range nodes[:s.offset] {
			n.Cleanup()
		}
		nodes = nodes[s.offset:]
	} else {
		for _, n := range nodes {
			n.Cleanup()
		}
		nodes = nil
	}
	return row.FromSlice(nodes)
}

func (s *Skip) Cleanup(constraint *change.Constraint) *row.Seq[row.Node] {
	s.skipZone = nil
	return s.upstream.Cleanup(constraint)
}

func (s *Skip) ordering() row.Ordering { return s.upstream.Ordering() }

func (s *Skip) indexInZone(r row.Row) (int, bool) {
	o := s.ordering()
	idx := sort.Search(len(s.skipZone), func(i int) bool { return !o.Less(s.skipZone[i], r) })
	if idx < len(s.skipZone) && o.Compare(s.skipZone[idx], r) == 0 {
		return idx, true
	}
	return idx, false
}

func (s *Skip) insertSorted(r row.Row) {
	idx, _ := s.indexInZone(r)
	s.skipZone = append(s.skipZone, row.Row{})
	copy(s.skipZone[idx+1:], s.skipZone[idx:])
	s.skipZone[idx] = r
}

func (s *Skip) removeAt(idx int) row.Row {
	r := s.skipZone[idx]
	copy(s.skipZone[idx:], s.skipZone[idx+1:])
	s.skipZone = s.skipZone[:len(s.skipZone)-1]
	return r
}

func (s *Skip) Push(c change.Change) error {
	switch c.Kind {
	case change.Add:
		return s.pushAdd(c.Node)
	case change.Remove:
		return s.pushRemove(c.Node)
	case change.Edit:
		return s.pushEdit(c.OldRow, c.Row)
	case change.Child:
		if _, skipped := s.indexInZone(c.ParentRow); skipped {
			c.Cleanup()
			return nil
		}
		return s.emit(c)
	}
	return nil
}

func (s *Skip) pushAdd(n row.Node) error {
	if s.offset == 0 {
		return s.emit(change.NewAdd(n))
	}
	if len(s.skipZone) < s.offset {
		s.insertSorted(n.Row)
		return nil
	}
	last := s.skipZone[len(s.skipZone)-1]
	if s.ordering().Less(n.Row, last) {
		s.insertSorted(n.Row)
		overflow := s.removeAt(len(s.skipZone) - 1)
		return s.emit(change.NewAdd(row.NewNode(overflow)))
	}
	return s.emit(change.NewAdd(n))
}

func (s *Skip) pushRemove(n row.Node) error {
	idx, inZone := s.indexInZone(n.Row)
	if !inZone {
		return s.emit(change.NewRemove(n))
	}
	s.removeAt(idx)
	n.Cleanup()
	return s.refill()
}

// refill asks upstream for its full ordering again and pulls the smallest
// row not already in the skip zone into it, making that row disappear
// from the visible output.
func (s *Skip) refill() error {
	if s.offset == 0 {
		return nil
	}
	seq := s.upstream.Fetch(nil)
	defer seq.Cleanup()
	for {
		n, ok := seq.Next()
		if !ok {
			return nil
		}
		if _, inZone := s.indexInZone(n.Row); inZone {
			n.Cleanup()
			continue
		}
		s.insertSorted(n.Row)
		return s.emit(change.NewRemove(n))
	}
}

func (s *Skip) pushEdit(oldRow, newRow row.Row) error {
	idx, wasIn := s.indexInZone(oldRow)

	if s.ordering().Compare(oldRow, newRow) == 0 {
		if wasIn {
			s.skipZone[idx] = newRow
			return nil
		}
		return s.emit(change.NewEdit(oldRow, newRow))
	}

	if !wasIn {
		if err := s.pushRemove(row.NewNode(oldRow)); err != nil {
			return err
		}
		return s.pushAdd(row.NewNode(newRow))
	}

	// The row occupied a zone slot (hidden) under its old key. By the time
	// an operator observes an Edit, source.Push has already applied it
	// upstream, so the edited row is itself one of the candidates upstream
	// now offers for the freed slot — decomposing into an independent
	// remove followed by an add would make refill() reclaim it as though a
	// previously-visible row just went hidden, which it never was. Ask
	// upstream directly instead: if the smallest row not already in the
	// zone is the edited row itself, it only reordered and stays hidden
	// (no emission at all); if a different row wins the slot, the edited
	// row surfaces as visible and that row takes its place in the zone.
	s.removeAt(idx)
	seq := s.upstream.Fetch(nil)
	defer seq.Cleanup()
	for {
		n, ok := seq.Next()
		if !ok {
			return s.emit(change.NewAdd(row.NewNode(newRow)))
		}
		if _, inZone := s.indexInZone(n.Row); inZone {
			n.Cleanup()
			continue
		}
		s.insertSorted(n.Row)
		if s.ordering().Compare(n.Row, newRow) == 0 {
			n.Cleanup()
			return nil
		}
		if err := s.emit(change.NewAdd(row.NewNode(newRow))); err != nil {
			return err
		}
		return s.emit(change.NewRemove(n))
	}
}
