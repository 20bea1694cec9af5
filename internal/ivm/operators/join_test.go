package operators

import (
	"testing"

	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
	"github.com/kasuganosora/ivmsync/internal/ivm/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// joinFixture wires an issues/comments join, the shape used throughout
// spec §8's worked scenarios.
type joinFixture struct {
	issues   *source.Source
	comments *source.Source
	join     *Join
}

func newJoinFixture(t *testing.T) *joinFixture {
	t.Helper()
	issues, err := source.New(source.Schema{
		Name:       "issues",
		Columns:    []row.Column{{Name: "id"}, {Name: "title"}},
		PrimaryKey: row.PrimaryKey{"id"},
	})
	require.NoError(t, err)
	comments, err := source.New(source.Schema{
		Name:       "comments",
		Columns:    []row.Column{{Name: "id"}, {Name: "issueID"}, {Name: "body"}},
		PrimaryKey: row.PrimaryKey{"id"},
	})
	require.NoError(t, err)

	issuesIn := issues.Connect(row.Ordering{{Column: "id", Direction: row.Ascending}})
	commentsIn := comments.Connect(row.Ordering{{Column: "id", Direction: row.Ascending}})

	j := NewJoin(JoinConfig{
		Parent:           issuesIn,
		ParentKey:        "id",
		ParentPrimaryKey: row.PrimaryKey{"id"},
		Child:            commentsIn,
		ChildKey:         "issueID",
		RelationshipName: "comments",
	})
	return &joinFixture{issues: issues, comments: comments, join: j}
}

func commentIDs(t *testing.T, n row.Node) []string {
	t.Helper()
	seq, ok := n.Relationships["comments"]
	if !ok {
		return nil
	}
	var out []string
	for {
		cn, ok := seq.Next()
		if !ok {
			break
		}
		out = append(out, cn.Row["id"].(string))
	}
	return out
}

// TestJoinCommentAddAttachesToExistingIssue is spec §8's comment-join
// scenario: an issue exists, then a comment referencing it arrives.
func TestJoinCommentAddAttachesToExistingIssue(t *testing.T) {
	f := newJoinFixture(t)
	out := &recordingOutput{}
	f.join.SetOutput(out)

	require.NoError(t, f.issues.Push(change.NewSourceAdd(row.Row{"id": "i1", "title": "bug"})))
	require.Len(t, out.changes, 1)
	assert.Empty(t, commentIDs(t, out.changes[0].Node))

	require.NoError(t, f.comments.Push(change.NewSourceAdd(row.Row{"id": "c1", "issueID": "i1", "body": "looks real"})))
	require.Len(t, out.changes, 2)
	child := out.changes[1]
	assert.Equal(t, change.Child, child.Kind)
	assert.Equal(t, "i1", child.ParentRow["id"])
	assert.Equal(t, "comments", child.RelationshipName)
	require.NotNil(t, child.Inner)
	assert.Equal(t, change.Add, child.Inner.Kind)
	assert.Equal(t, "c1", child.Inner.Node.Row["id"])
}

// TestJoinParentRemovalCleansUpScratch is spec §8's issue-removal cascade:
// removing the parent releases its composed child relationship and the
// primary-key-set scratch entry tracking it.
func TestJoinParentRemovalCleansUpScratch(t *testing.T) {
	f := newJoinFixture(t)
	out := &recordingOutput{}
	f.join.SetOutput(out)

	require.NoError(t, f.issues.Push(change.NewSourceAdd(row.Row{"id": "i1", "title": "bug"})))
	require.NoError(t, f.comments.Push(change.NewSourceAdd(row.Row{"id": "c1", "issueID": "i1", "body": "x"})))
	assert.Equal(t, 1, f.join.ps.Len())

	require.NoError(t, f.issues.Push(change.NewSourceRemove(row.Row{"id": "i1", "title": "bug"})))
	require.Len(t, out.changes, 3)
	last := out.changes[2]
	assert.Equal(t, change.Remove, last.Kind)
	assert.Equal(t, "i1", last.Node.Row["id"])
	assert.Equal(t, 0, f.join.ps.Len(), "the parent's scratch entry must be released on removal")
}

// TestJoinEditChangingJoinKeyEmitsRemoveThenAdd covers spec §4.4's
// cross-join-key parent edit: the row moves to a different child group.
// Here the join key is also the parent's primary key, so the source
// decomposes the edit and Join emits a Remove of the old composition
// followed by an Add of the new one.
func TestJoinEditChangingJoinKeyEmitsRemoveThenAdd(t *testing.T) {
	f := newJoinFixture(t)
	out := &recordingOutput{}
	f.join.SetOutput(out)

	require.NoError(t, f.issues.Push(change.NewSourceAdd(row.Row{"id": "i1", "title": "bug"})))
	require.NoError(t, f.comments.Push(change.NewSourceAdd(row.Row{"id": "c1", "issueID": "i1", "body": "x"})))
	out.changes = nil

	require.NoError(t, f.issues.Push(change.NewSourceEdit(
		row.Row{"id": "i1", "title": "bug"},
		row.Row{"id": "i2", "title": "bug"},
	)))
	require.Len(t, out.changes, 2)
	assert.Equal(t, change.Remove, out.changes[0].Kind)
	assert.Equal(t, "i1", out.changes[0].Node.Row["id"])
	assert.Equal(t, change.Add, out.changes[1].Kind)
	assert.Equal(t, "i2", out.changes[1].Node.Row["id"])
	assert.Empty(t, commentIDs(t, out.changes[1].Node), "c1's issueID still points at i1, not the new i2")
}

func TestJoinEditSameJoinKeyForwardsEdit(t *testing.T) {
	f := newJoinFixture(t)
	out := &recordingOutput{}
	f.join.SetOutput(out)

	require.NoError(t, f.issues.Push(change.NewSourceAdd(row.Row{"id": "i1", "title": "bug"})))
	out.changes = nil

	require.NoError(t, f.issues.Push(change.NewSourceEdit(
		row.Row{"id": "i1", "title": "bug"},
		row.Row{"id": "i1", "title": "confirmed bug"},
	)))
	require.Len(t, out.changes, 1)
	assert.Equal(t, change.Edit, out.changes[0].Kind)
}

// TestJoinChildAddWithNoMatchingParentIsDropped exercises a child row
// arriving before any parent references its join-key value.
func TestJoinChildAddWithNoMatchingParentIsDropped(t *testing.T) {
	f := newJoinFixture(t)
	out := &recordingOutput{}
	f.join.SetOutput(out)

	require.NoError(t, f.comments.Push(change.NewSourceAdd(row.Row{"id": "c1", "issueID": "i1", "body": "x"})))
	assert.Empty(t, out.changes)
}

// TestJoinChildEditChangingKeyEmitsPerParentRemoveAndAdd covers the
// child-side decomposition: a comment's issueID changes, so it detaches
// from its old parent and attaches to its new one as two separate Child
// envelopes, not coalesced.
func TestJoinChildEditChangingKeyEmitsPerParentRemoveAndAdd(t *testing.T) {
	f := newJoinFixture(t)
	require.NoError(t, f.issues.Push(change.NewSourceAdd(row.Row{"id": "i1", "title": "a"})))
	require.NoError(t, f.issues.Push(change.NewSourceAdd(row.Row{"id": "i2", "title": "b"})))
	require.NoError(t, f.comments.Push(change.NewSourceAdd(row.Row{"id": "c1", "issueID": "i1", "body": "x"})))
	out := &recordingOutput{}
	f.join.SetOutput(out)

	require.NoError(t, f.comments.Push(change.NewSourceEdit(
		row.Row{"id": "c1", "issueID": "i1", "body": "x"},
		row.Row{"id": "c1", "issueID": "i2", "body": "x"},
	)))
	require.Len(t, out.changes, 2)

	removeEnv := out.changes[0]
	assert.Equal(t, change.Child, removeEnv.Kind)
	assert.Equal(t, "i1", removeEnv.ParentRow["id"])
	assert.Equal(t, change.Remove, removeEnv.Inner.Kind)

	addEnv := out.changes[1]
	assert.Equal(t, change.Child, addEnv.Kind)
	assert.Equal(t, "i2", addEnv.ParentRow["id"])
	assert.Equal(t, change.Add, addEnv.Inner.Kind)
}

func TestJoinHiddenStripsRelationshipFromOwnOutput(t *testing.T) {
	issues, err := source.New(source.Schema{
		Name:       "issues",
		Columns:    []row.Column{{Name: "id"}, {Name: "title"}},
		PrimaryKey: row.PrimaryKey{"id"},
	})
	require.NoError(t, err)
	comments, err := source.New(source.Schema{
		Name:       "comments",
		Columns:    []row.Column{{Name: "id"}, {Name: "issueID"}},
		PrimaryKey: row.PrimaryKey{"id"},
	})
	require.NoError(t, err)

	issuesIn := issues.Connect(row.Ordering{{Column: "id", Direction: row.Ascending}})
	commentsIn := comments.Connect(row.Ordering{{Column: "id", Direction: row.Ascending}})
	j := NewJoin(JoinConfig{
		Parent:           issuesIn,
		ParentKey:        "id",
		ParentPrimaryKey: row.PrimaryKey{"id"},
		Child:            commentsIn,
		ChildKey:         "issueID",
		RelationshipName: "comments",
		Hidden:           true,
	})
	out := &recordingOutput{}
	j.SetOutput(out)

	require.NoError(t, issues.Push(change.NewSourceAdd(row.Row{"id": "i1", "title": "bug"})))
	require.Len(t, out.changes, 1)
	assert.NotContains(t, out.changes[0].Node.Relationships, "comments")
}
