// Package source implements the row source of spec §4.1: the authoritative,
// ordered, optionally-indexed owner of one table's rows, and the Input/
// Output contracts every operator builds on.
package source

import (
	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
)

// Output receives a Change pushed from upstream. Every operator and the
// top-level View implement Output.
type Output interface {
	Push(c change.Change) error
}

// Input is what every operator (and a Source connection) exposes upstream:
// a pull surface (Fetch/Cleanup) plus a push sink wired via SetOutput.
type Input interface {
	// Ordering is this Input's declared, PK-normalized total order.
	Ordering() row.Ordering

	// AppliedFilters reports whether the optionalFilters given at connect
	// time were applied by the producer itself; if false, the caller must
	// still apply them to whatever Fetch returns.
	AppliedFilters() bool

	// Fetch pulls matching nodes in Ordering() order. constraint may be nil
	// for an unconstrained scan.
	Fetch(constraint *change.Constraint) *row.Seq[row.Node]

	// Cleanup pulls (and discards) matching nodes the same way Fetch would,
	// releasing any scratch entries a prior Fetch with the same constraint
	// left behind. Used when a parent disappears and its previously-seeded
	// child relationship must be released.
	Cleanup(constraint *change.Constraint) *row.Seq[row.Node]

	// SetOutput wires this Input's downstream consumer. Called once at
	// pipeline construction time.
	SetOutput(o Output)

	// EnsureIndex hints that column should be backed by a maintained hash
	// index if this Input is ultimately rooted at a Source (spec §4.2).
	// Best-effort: correctness never depends on the index existing.
	EnsureIndex(column string)

	// Destroy recursively releases this Input's subscription and any
	// operators/sources beneath it.
	Destroy()
}
