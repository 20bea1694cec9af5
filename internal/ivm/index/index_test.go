package index

import (
	"testing"

	"github.com/kasuganosora/ivmsync/internal/ivm/row"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashIndexAddGetRemove(t *testing.T) {
	idx := New("issueID", row.PrimaryKey{"id"})
	idx.Add(row.Row{"id": "c1", "issueID": "i1"})
	idx.Add(row.Row{"id": "c2", "issueID": "i1"})
	idx.Add(row.Row{"id": "c3", "issueID": "i2"})

	got := idx.Get("i1")
	require.Len(t, got, 2)
	assert.Equal(t, 3, idx.Len())

	idx.Remove(row.Row{"id": "c1", "issueID": "i1"})
	assert.Len(t, idx.Get("i1"), 1)
	assert.Equal(t, 2, idx.Len())
}

func TestHashIndexEditSameBucket(t *testing.T) {
	idx := New("issueID", row.PrimaryKey{"id"})
	idx.Add(row.Row{"id": "c1", "issueID": "i1", "body": "old"})
	idx.Edit(row.Row{"id": "c1", "issueID": "i1", "body": "old"}, row.Row{"id": "c1", "issueID": "i1", "body": "new"})

	got := idx.Get("i1")
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0]["body"])
}

func TestHashIndexEditMovesBucket(t *testing.T) {
	idx := New("issueID", row.PrimaryKey{"id"})
	idx.Add(row.Row{"id": "c1", "issueID": "i1"})
	idx.Edit(row.Row{"id": "c1", "issueID": "i1"}, row.Row{"id": "c1", "issueID": "i2"})

	assert.Empty(t, idx.Get("i1"))
	assert.Len(t, idx.Get("i2"), 1)
	assert.Equal(t, 1, idx.Len())
}

func TestHashIndexRemoveUnknownRowIsNoOp(t *testing.T) {
	idx := New("issueID", row.PrimaryKey{"id"})
	idx.Remove(row.Row{"id": "ghost", "issueID": "i1"})
	assert.Equal(t, 0, idx.Len())
}
