package operators

import (
	"testing"

	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
	"github.com/stretchr/testify/assert"
)

func TestCompareEquality(t *testing.T) {
	p := Compare("status", change.OpEq, "open")
	assert.True(t, p(row.Row{"status": "open"}))
	assert.False(t, p(row.Row{"status": "closed"}))
}

func TestCompareOrdering(t *testing.T) {
	p := Compare("score", change.OpGreaterGt, int64(2))
	assert.True(t, p(row.Row{"score": int64(3)}))
	assert.False(t, p(row.Row{"score": int64(2)}))
	assert.False(t, p(row.Row{"score": int64(1)}))
}

func TestAndOrNot(t *testing.T) {
	open := Compare("status", change.OpEq, "open")
	urgent := Compare("priority", change.OpEq, "urgent")

	r := row.Row{"status": "open", "priority": "urgent"}
	assert.True(t, And(open, urgent)(r))
	assert.True(t, Or(open, Compare("status", change.OpEq, "closed"))(r))
	assert.False(t, Not(open)(r))
}

func TestCompareContainsToken(t *testing.T) {
	p := Compare("body", change.OpContainsIn, "golang")
	assert.True(t, p(row.Row{"body": "golang rocks"}))
	assert.False(t, p(row.Row{"body": "python rocks"}))
}

func TestContainsTokenEmptyNeedleAlwaysMatches(t *testing.T) {
	assert.True(t, ContainsToken("anything", ""))
}

func TestContainsTokenNonStringOperandsNeverMatch(t *testing.T) {
	assert.False(t, ContainsToken(int64(1), "x"))
	assert.False(t, ContainsToken("x", int64(1)))
}
