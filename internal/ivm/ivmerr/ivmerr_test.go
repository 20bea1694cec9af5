package ivmerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFormatsReason(t *testing.T) {
	err := New(KindNotFound, "row %q missing", "i1")
	assert.Equal(t, KindNotFound, err.Kind)
	assert.Equal(t, `row "i1" missing`, err.Reason)
	assert.Equal(t, `not_found: row "i1" missing`, err.Error())
}

func TestIsMatchesKind(t *testing.T) {
	err := New(KindDuplicatePrimaryKey, "dup")
	assert.True(t, Is(err, KindDuplicatePrimaryKey))
	assert.False(t, Is(err, KindNotFound))
}

func TestIsFalseForUnrelatedError(t *testing.T) {
	assert.False(t, Is(errors.New("plain error"), KindNotFound))
}
