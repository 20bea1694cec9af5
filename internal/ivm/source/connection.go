package source

import (
	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
)

// Connection is the Input returned by Source.Connect. Each connection is
// independent: it may request its own ordering and optional filters, and
// receives its own Push fan-out.
type Connection struct {
	source          *Source
	ordering        row.Ordering
	optionalFilters []change.OptionalFilter
	output          Output
}

var _ Input = (*Connection)(nil)

func (c *Connection) Ordering() row.Ordering { return c.ordering }

// AppliedFilters is true when the connection was given optionalFilters at
// Connect time and Source.scan evaluates every one of them itself. scan
// does not evaluate a contains_token filter, so a connection holding one
// reports false.
func (c *Connection) AppliedFilters() bool {
	for _, f := range c.optionalFilters {
		if f.Op == change.OpContainsIn {
			return false
		}
	}
	return len(c.optionalFilters) > 0
}

func (c *Connection) Fetch(constraint *change.Constraint) *row.Seq[row.Node] {
	rows := c.source.scan(c.ordering, constraint, c.optionalFilters)
	return row.FromSlice(nodesOf(rows))
}

// Cleanup for a raw source connection has nothing to release — only
// operators above a source hold scratch tied to a fetched sequence — so it
// behaves identically to Fetch. Still pull-shaped to satisfy the Input
// contract uniformly.
func (c *Connection) Cleanup(constraint *change.Constraint) *row.Seq[row.Node] {
	return c.Fetch(constraint)
}

func nodesOf(rows []row.Row) []row.Node {
	out := make([]row.Node, len(rows))
	for i, r := range rows {
		out[i] = row.NewNode(r)
	}
	return out
}

func (c *Connection) SetOutput(o Output)      { c.output = o }
func (c *Connection) EnsureIndex(column string) { c.source.EnsureIndex(column) }
func (c *Connection) Destroy()                {}
