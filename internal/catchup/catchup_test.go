package catchup

import (
	"testing"

	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAppendAssignsIncreasingSequence(t *testing.T) {
	l := openTestLog(t)

	seq1, err := l.Append(change.NewAdd(row.NewNode(row.Row{"id": "a"})))
	require.NoError(t, err)
	seq2, err := l.Append(change.NewAdd(row.NewNode(row.Row{"id": "b"})))
	require.NoError(t, err)
	assert.Less(t, seq1, seq2)
}

func TestSinceReturnsOnlyNewerEntries(t *testing.T) {
	l := openTestLog(t)

	seq1, err := l.Append(change.NewAdd(row.NewNode(row.Row{"id": "a"})))
	require.NoError(t, err)
	_, err = l.Append(change.NewAdd(row.NewNode(row.Row{"id": "b"})))
	require.NoError(t, err)

	seqs, changes, err := l.Since(seq1)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Len(t, seqs, 1)
	assert.Equal(t, change.Add, changes[0].Kind)
	assert.Equal(t, "b", changes[0].Node.Row["id"])
}

func TestAddRemoveEditRoundTrip(t *testing.T) {
	l := openTestLog(t)

	add := change.NewAdd(row.NewNode(row.Row{"id": "a", "title": "x"}))
	remove := change.NewRemove(row.NewNode(row.Row{"id": "a", "title": "x"}))
	edit := change.NewEdit(row.Row{"id": "a", "title": "x"}, row.Row{"id": "a", "title": "y"})

	_, err := l.Append(add)
	require.NoError(t, err)
	_, err = l.Append(remove)
	require.NoError(t, err)
	_, err = l.Append(edit)
	require.NoError(t, err)

	_, changes, err := l.Since(0)
	require.NoError(t, err)
	require.Len(t, changes, 3)

	assert.Equal(t, change.Add, changes[0].Kind)
	assert.Equal(t, "a", changes[0].Node.Row["id"])

	assert.Equal(t, change.Remove, changes[1].Kind)
	assert.Equal(t, "a", changes[1].Node.Row["id"])

	assert.Equal(t, change.Edit, changes[2].Kind)
	assert.Equal(t, "x", changes[2].OldRow["title"])
	assert.Equal(t, "y", changes[2].Row["title"])
}

func TestChildRoundTripsRecursively(t *testing.T) {
	l := openTestLog(t)

	inner := change.NewAdd(row.NewNode(row.Row{"id": "c1"}))
	child := change.NewChild(row.Row{"id": "p1"}, "comments", inner)

	_, err := l.Append(child)
	require.NoError(t, err)

	_, changes, err := l.Since(0)
	require.NoError(t, err)
	require.Len(t, changes, 1)

	got := changes[0]
	assert.Equal(t, change.Child, got.Kind)
	assert.Equal(t, "p1", got.ParentRow["id"])
	assert.Equal(t, "comments", got.RelationshipName)
	require.NotNil(t, got.Inner)
	assert.Equal(t, change.Add, got.Inner.Kind)
	assert.Equal(t, "c1", got.Inner.Node.Row["id"])
}

func TestListenerAppendsEveryChangeInBatch(t *testing.T) {
	l := openTestLog(t)
	listener := l.Listener()

	batch := []change.Change{
		change.NewAdd(row.NewNode(row.Row{"id": "a"})),
		change.NewAdd(row.NewNode(row.Row{"id": "b"})),
	}
	listener(batch)

	_, changes, err := l.Since(0)
	require.NoError(t, err)
	require.Len(t, changes, 2)
}
