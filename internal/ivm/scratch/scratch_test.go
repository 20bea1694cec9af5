package scratch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreSetHasDelete(t *testing.T) {
	s := New[string]()
	assert.False(t, s.Has("k1"))
	s.Set("k1")
	assert.True(t, s.Has("k1"))
	s.Delete("k1")
	assert.False(t, s.Has("k1"))
}

func TestStoreIncrDecr(t *testing.T) {
	s := New[string]()
	assert.Equal(t, 1, s.Incr("k1"))
	assert.Equal(t, 2, s.Incr("k1"))
	assert.Equal(t, 1, s.Decr("k1"))
	assert.Equal(t, 0, s.Decr("k1"), "count dropping to zero deletes the entry")
	assert.False(t, s.Has("k1"))
}

func TestStoreLenAndKeys(t *testing.T) {
	s := New[string]()
	s.Set("a")
	s.Set("b")
	assert.Equal(t, 2, s.Len())
	assert.ElementsMatch(t, []string{"a", "b"}, s.Keys())
}
