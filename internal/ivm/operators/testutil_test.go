package operators

import (
	"testing"

	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
	"github.com/kasuganosora/ivmsync/internal/ivm/source"
	"github.com/stretchr/testify/require"
)

// recordingOutput captures every change pushed to it, in order, for
// assertions across this package's operator tests.
type recordingOutput struct {
	changes []change.Change
}

func (r *recordingOutput) Push(c change.Change) error {
	r.changes = append(r.changes, c)
	return nil
}

// newScoresSource builds a minimal (id, score) source used by Take/Skip
// window-maintenance tests.
func newScoresSource(t *testing.T) *source.Source {
	t.Helper()
	s, err := source.New(source.Schema{
		Name:       "scores",
		Columns:    []row.Column{{Name: "id"}, {Name: "score"}},
		PrimaryKey: row.PrimaryKey{"id"},
	})
	require.NoError(t, err)
	return s
}
