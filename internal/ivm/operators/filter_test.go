package operators

import (
	"testing"

	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
	"github.com/kasuganosora/ivmsync/internal/ivm/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIssuesSource(t *testing.T) *source.Source {
	t.Helper()
	s, err := source.New(source.Schema{
		Name:       "issues",
		Columns:    []row.Column{{Name: "id"}, {Name: "title"}, {Name: "status"}},
		PrimaryKey: row.PrimaryKey{"id"},
	})
	require.NoError(t, err)
	return s
}

func openPredicate() Predicate {
	return Compare("status", change.OpEq, "open")
}

func TestFilterFetchSkipsNonMatchingRows(t *testing.T) {
	s := newIssuesSource(t)
	in := s.Connect(row.Ordering{{Column: "id", Direction: row.Ascending}})
	f := NewFilter(in, openPredicate())

	require.NoError(t, s.Push(change.NewSourceAdd(row.Row{"id": "i1", "title": "a", "status": "open"})))
	require.NoError(t, s.Push(change.NewSourceAdd(row.Row{"id": "i2", "title": "b", "status": "closed"})))

	rows := f.Fetch(nil).Collect()
	require.Len(t, rows, 1)
	assert.Equal(t, "i1", rows[0].Row["id"])
}

func TestFilterPushAddRejectsNonMatch(t *testing.T) {
	s := newIssuesSource(t)
	in := s.Connect(row.Ordering{{Column: "id", Direction: row.Ascending}})
	f := NewFilter(in, openPredicate())
	out := &recordingOutput{}
	f.SetOutput(out)

	require.NoError(t, s.Push(change.NewSourceAdd(row.Row{"id": "i1", "status": "closed"})))
	assert.Empty(t, out.changes)

	require.NoError(t, s.Push(change.NewSourceAdd(row.Row{"id": "i2", "status": "open"})))
	require.Len(t, out.changes, 1)
	assert.Equal(t, change.Add, out.changes[0].Kind)
}

func TestFilterEditCrossingBoundaryDecomposesIntoAddOrRemove(t *testing.T) {
	s := newIssuesSource(t)
	in := s.Connect(row.Ordering{{Column: "id", Direction: row.Ascending}})
	f := NewFilter(in, openPredicate())
	out := &recordingOutput{}
	f.SetOutput(out)

	require.NoError(t, s.Push(change.NewSourceAdd(row.Row{"id": "i1", "status": "open"})))
	require.Len(t, out.changes, 1)

	// open -> closed: the row leaves the filtered set, so Filter must emit
	// Remove instead of forwarding the raw Edit.
	require.NoError(t, s.Push(change.NewSourceEdit(
		row.Row{"id": "i1", "status": "open"},
		row.Row{"id": "i1", "status": "closed"},
	)))
	require.Len(t, out.changes, 2)
	assert.Equal(t, change.Remove, out.changes[1].Kind)

	// closed -> open: re-enters, so Filter emits Add.
	require.NoError(t, s.Push(change.NewSourceEdit(
		row.Row{"id": "i1", "status": "closed"},
		row.Row{"id": "i1", "status": "open"},
	)))
	require.Len(t, out.changes, 3)
	assert.Equal(t, change.Add, out.changes[2].Kind)
}

func TestFilterEditStayingInsideBoundaryForwardsEdit(t *testing.T) {
	s := newIssuesSource(t)
	in := s.Connect(row.Ordering{{Column: "id", Direction: row.Ascending}})
	f := NewFilter(in, openPredicate())
	out := &recordingOutput{}
	f.SetOutput(out)

	require.NoError(t, s.Push(change.NewSourceAdd(row.Row{"id": "i1", "title": "a", "status": "open"})))
	require.NoError(t, s.Push(change.NewSourceEdit(
		row.Row{"id": "i1", "title": "a", "status": "open"},
		row.Row{"id": "i1", "title": "b", "status": "open"},
	)))

	require.Len(t, out.changes, 2)
	assert.Equal(t, change.Edit, out.changes[1].Kind)
}

func TestFilterEditStayingOutsideBoundaryIsDropped(t *testing.T) {
	s := newIssuesSource(t)
	in := s.Connect(row.Ordering{{Column: "id", Direction: row.Ascending}})
	f := NewFilter(in, openPredicate())
	out := &recordingOutput{}
	f.SetOutput(out)

	require.NoError(t, s.Push(change.NewSourceAdd(row.Row{"id": "i1", "status": "closed"})))
	assert.Empty(t, out.changes)

	require.NoError(t, s.Push(change.NewSourceEdit(
		row.Row{"id": "i1", "status": "closed"},
		row.Row{"id": "i1", "status": "archived"},
	)))
	assert.Empty(t, out.changes)
}
