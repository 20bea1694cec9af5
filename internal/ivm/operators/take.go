package operators

import (
	"sort"

	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
	"github.com/kasuganosora/ivmsync/internal/ivm/source"
)

// Take maintains the first Limit rows of the upstream ordering (spec §4.5
// "Take (Limit)"). The current window is kept as operator state so a push
// near the boundary only touches the one row that enters or leaves, rather
// than recomputing the whole window — except on a boundary shift, where
// refilling the vacated slot asks upstream for its own ordering again,
// which spec §4.5 explicitly allows ("the operator may refetch one row
// from upstream to refill").
type Take struct {
	base
	upstream source.Input
	limit    int
	window   []row.Row
}

var _ Operator = (*Take)(nil)

func NewTake(upstream source.Input, limit int) *Take {
	t := &Take{upstream: upstream, limit: limit}
	upstream.SetOutput(t)
	return t
}

func (t *Take) Ordering() row.Ordering    { return t.upstream.Ordering() }
func (t *Take) AppliedFilters() bool      { return t.upstream.AppliedFilters() }
func (t *Take) EnsureIndex(column string) { t.upstream.EnsureIndex(column) }
func (t *Take) Destroy()                  { t.upstream.Destroy() }

// Fetch (re)hydrates the window from upstream and returns it.
func (t *Take) Fetch(constraint *change.Constraint) *row.Seq[row.Node] {
	seq := t.upstream.Fetch(constraint)
	rows := seq.Collect()
	if constraint == nil {
		t.window = firstN(rowsOf(rows), t.limit)
	}
	if len(rows) > t.limit {
		for _, n := range rows[t.limit:] {
			n.Cleanup()
		}
		rows = rows[:t.limit]
	}
	return row.FromSlice(rows)
}

func (t *Take) Cleanup(constraint *change.Constraint) *row.Seq[row.Node] {
	t.window = nil
	return t.upstream.Cleanup(constraint)
}

func rowsOf(nodes []row.Node) []row.Row {
	out := make([]row.Row, len(nodes))
	for i, n := range nodes {
		out[i] = n.Row
	}
	return out
}

func firstN(rows []row.Row, n int) []row.Row {
	if len(rows) <= n {
		return rows
	}
	return rows[:n]
}

func (t *Take) ordering() row.Ordering { return t.upstream.Ordering() }

// indexInWindow finds r's position by its strict-total-order key (which
// always includes the primary key after normalization, so an equal
// comparison key implies the same row).
func (t *Take) indexInWindow(r row.Row) (int, bool) {
	o := t.ordering()
	idx := sort.Search(len(t.window), func(i int) bool { return !o.Less(t.window[i], r) })
	if idx < len(t.window) && o.Compare(t.window[idx], r) == 0 {
		return idx, true
	}
	return idx, false
}

func (t *Take) insertSorted(r row.Row) int {
	idx, _ := t.indexInWindow(r)
	t.window = append(t.window, row.Row{})
	copy(t.window[idx+1:], t.window[idx:])
	t.window[idx] = r
	return idx
}

func (t *Take) removeAt(idx int) row.Row {
	r := t.window[idx]
	copy(t.window[idx:], t.window[idx+1:])
	t.window = t.window[:len(t.window)-1]
	return r
}

func (t *Take) Push(c change.Change) error {
	switch c.Kind {
	case change.Add:
		return t.pushAdd(c.Node)
	case change.Remove:
		return t.pushRemove(c.Node)
	case change.Edit:
		return t.pushEdit(c.OldRow, c.Row)
	case change.Child:
		if _, in := t.indexInWindow(c.ParentRow); in {
			return t.emit(c)
		}
		c.Cleanup()
		return nil
	}
	return nil
}

func (t *Take) pushAdd(n row.Node) error {
	if len(t.window) < t.limit {
		t.insertSorted(n.Row)
		return t.emit(change.NewAdd(n))
	}
	last := t.window[len(t.window)-1]
	if t.ordering().Less(n.Row, last) {
		t.insertSorted(n.Row)
		dropped := t.removeAt(len(t.window) - 1)
		if err := t.emit(change.NewAdd(n)); err != nil {
			return err
		}
		return t.emit(change.NewRemove(row.NewNode(dropped)))
	}
	n.Cleanup()
	return nil
}

func (t *Take) pushRemove(n row.Node) error {
	idx, in := t.indexInWindow(n.Row)
	if !in {
		n.Cleanup()
		return nil
	}
	t.removeAt(idx)
	if err := t.emit(change.NewRemove(n)); err != nil {
		return err
	}
	return t.refill()
}

// refill asks upstream for its full ordering again and pulls in whichever
// row is the smallest not already present in the window.
func (t *Take) refill() error {
	seq := t.upstream.Fetch(nil)
	defer seq.Cleanup()
	for {
		n, ok := seq.Next()
		if !ok {
			return nil
		}
		if _, in := t.indexInWindow(n.Row); in {
			n.Cleanup()
			continue
		}
		t.insertSorted(n.Row)
		return t.emit(change.NewAdd(n))
	}
}

func (t *Take) pushEdit(oldRow, newRow row.Row) error {
	idx, wasIn := t.indexInWindow(oldRow)

	if t.ordering().Compare(oldRow, newRow) == 0 {
		if wasIn {
			t.window[idx] = newRow
			return t.emit(change.NewEdit(oldRow, newRow))
		}
		return nil
	}

	if !wasIn {
		if err := t.pushRemove(row.NewNode(oldRow)); err != nil {
			return err
		}
		return t.pushAdd(row.NewNode(newRow))
	}

	// The row occupied a window slot under its old key. By the time an
	// operator observes an Edit, source.Push has already applied it
	// upstream, so the edited row is itself one of the candidates upstream
	// now offers for the freed slot — decomposing into an independent
	// remove followed by an add would re-insert it a second time on top of
	// refill() already having reclaimed it. Ask upstream directly instead:
	// if the smallest row not already in the window is the edited row
	// itself, it only reordered and stays in the window (a single Edit);
	// if a different row wins the slot, the edited row is evicted.
	t.removeAt(idx)
	seq := t.upstream.Fetch(nil)
	defer seq.Cleanup()
	for {
		n, ok := seq.Next()
		if !ok {
			return t.emit(change.NewRemove(row.NewNode(oldRow)))
		}
		if _, in := t.indexInWindow(n.Row); in {
			n.Cleanup()
			continue
		}
		t.insertSorted(n.Row)
		if t.ordering().Compare(n.Row, newRow) == 0 {
			n.Cleanup()
			return t.emit(change.NewEdit(oldRow, newRow))
		}
		if err := t.emit(change.NewRemove(row.NewNode(oldRow))); err != nil {
			return err
		}
		return t.emit(change.NewAdd(n))
	}
}
