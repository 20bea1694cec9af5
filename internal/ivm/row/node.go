package row

// Node is the unit of output: a row plus its named lazy relationships to
// child nodes. Relationship sequences are single-consumer — a caller that
// receives a Node and doesn't want a relationship must call Cleanup on it
// explicitly rather than letting it fall out of scope.
type Node struct {
	Row           Row
	Relationships map[string]*Seq[Node]
}

// NewNode builds a Node with no relationships (the common case at a leaf
// source, where joins fill relationships in afterward).
func NewNode(r Row) Node {
	return Node{Row: r}
}

// WithRelationship returns a copy of n with relName bound to seq. Used by
// join composition, which must not mutate a Node it didn't itself produce.
func (n Node) WithRelationship(relName string, seq *Seq[Node]) Node {
	out := Node{Row: n.Row, Relationships: make(map[string]*Seq[Node], len(n.Relationships)+1)}
	for k, v := range n.Relationships {
		out.Relationships[k] = v
	}
	out.Relationships[relName] = seq
	return out
}

// WithoutRelationship returns a copy of n with relName removed, used by
// hidden-join/nested-projection operators that strip a relationship an
// upstream join produced only for a further operator's own consumption.
func (n Node) WithoutRelationship(relName string) Node {
	out := Node{Row: n.Row, Relationships: make(map[string]*Seq[Node], len(n.Relationships))}
	for k, v := range n.Relationships {
		if k != relName {
			out.Relationships[k] = v
		}
	}
	return out
}

// Cleanup releases every relationship sequence still attached to n without
// requiring the caller to drain them. Safe to call on a Node whose
// relationships have already been fully consumed.
func (n Node) Cleanup() {
	for _, seq := range n.Relationships {
		seq.Cleanup()
	}
}
