// Package operators implements the IVM operator framework of spec §4.3:
// Filter, Take, Skip, Join and hidden-relationship projection. Every
// operator both consumes an upstream source.Input (or two, for Join) and
// exposes itself as a source.Input, so operators compose into arbitrarily
// deep pipelines. Adapted from the teacher's pkg/executor/operators — the
// one-shot pull-only Execute(ctx) shape there is generalized here into the
// incremental fetch/push shape this spec requires, and plan.Plan-sourced
// configs become directly constructed values since this core receives an
// already-planned pipeline rather than SQL text to plan.
package operators

import (
	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
	"github.com/kasuganosora/ivmsync/internal/ivm/source"
)

// Operator is both an Input (what it exposes downstream) and an Output
// (how upstream delivers pushes to it).
type Operator interface {
	source.Input
	source.Output
}

// base holds the single downstream Output every operator owns, matching
// the teacher's BaseOperator "exactly one downstream set at construction"
// shape generalized from pull-children to a push-output.
type base struct {
	output source.Output
}

func (b *base) SetOutput(o source.Output) { b.output = o }

func (b *base) emit(c change.Change) error {
	if b.output == nil {
		return nil
	}
	return b.output.Push(c)
}

func nodesFrom(seq *row.Seq[row.Node]) []row.Node {
	if seq == nil {
		return nil
	}
	return seq.Collect()
}
