package source

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/index"
	"github.com/kasuganosora/ivmsync/internal/ivm/ivmerr"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
	"github.com/kasuganosora/ivmsync/internal/ivmlog"
)

// Schema declares one source: its columns and primary key (spec §6
// "Schema declaration"). Construction fails with InvalidSchema for
// duplicate columns or a missing primary key.
type Schema struct {
	Name       string
	Columns    []row.Column
	PrimaryKey row.PrimaryKey
}

func (s Schema) validate() error {
	if len(s.PrimaryKey) == 0 {
		return ivmerr.New(ivmerr.KindInvalidSchema, "source %q declares no primary key", s.Name)
	}
	seen := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		if seen[c.Name] {
			return ivmerr.New(ivmerr.KindInvalidSchema, "source %q has duplicate column %q", s.Name, c.Name)
		}
		seen[c.Name] = true
	}
	for _, col := range s.PrimaryKey {
		if !seen[col] {
			return ivmerr.New(ivmerr.KindInvalidSchema, "source %q primary key references unknown column %q", s.Name, col)
		}
	}
	return nil
}

type orderedIndex struct {
	ordering row.Ordering
	rows     []row.Row
}

// Source owns the rows of one table: an ordered map keyed by primary key,
// any number of additional maintained orderings, and any number of
// maintained hash indices (spec §4.1).
type Source struct {
	schema      Schema
	rows        map[string]row.Row // pk-key -> row
	orderedIdxs map[string]*orderedIndex
	hashIdxs    map[string]*index.HashIndex
	connections []*Connection
}

// New creates an empty Source after validating its schema.
func New(schema Schema) (*Source, error) {
	if err := schema.validate(); err != nil {
		return nil, err
	}
	return &Source{
		schema:      schema,
		rows:        make(map[string]row.Row),
		orderedIdxs: make(map[string]*orderedIndex),
		hashIdxs:    make(map[string]*index.HashIndex),
	}, nil
}

// Name returns the declared source name.
func (s *Source) Name() string { return s.schema.Name }

// PrimaryKey returns the declared primary key tuple.
func (s *Source) PrimaryKey() row.PrimaryKey { return s.schema.PrimaryKey }

func orderingKey(o row.Ordering) string {
	var b strings.Builder
	for _, oc := range o {
		fmt.Fprintf(&b, "%s:%d:%s|", oc.Column, oc.Direction, oc.Collation)
	}
	return b.String()
}

func (s *Source) ensureOrderedIndex(o row.Ordering) *orderedIndex {
	key := orderingKey(o)
	if oi, ok := s.orderedIdxs[key]; ok {
		return oi
	}
	oi := &orderedIndex{ordering: o}
	for _, r := range s.rows {
		idx := row.SearchInsertIndex(oi.rows, r, o)
		oi.rows = insertAt(oi.rows, idx, r)
	}
	s.orderedIdxs[key] = oi
	return oi
}

func insertAt(rows []row.Row, idx int, r row.Row) []row.Row {
	rows = append(rows, row.Row{})
	copy(rows[idx+1:], rows[idx:])
	rows[idx] = r
	return rows
}

func removeAt(rows []row.Row, idx int) []row.Row {
	copy(rows[idx:], rows[idx+1:])
	return rows[:len(rows)-1]
}

// GetOrCreateAndMaintainHashIndex lazily builds and incrementally maintains
// a hash index on column, returning the same instance to later callers
// (spec §4.1).
func (s *Source) GetOrCreateAndMaintainHashIndex(column string) *index.HashIndex {
	if idx, ok := s.hashIdxs[column]; ok {
		return idx
	}
	idx := index.New(column, s.schema.PrimaryKey)
	for _, r := range s.rows {
		idx.Add(r)
	}
	s.hashIdxs[column] = idx
	return idx
}

// EnsureIndex implements the Input hash-index hint for connections rooted
// directly at this Source.
func (s *Source) EnsureIndex(column string) { s.GetOrCreateAndMaintainHashIndex(column) }

// Connect returns a new Input producing rows in ordering (normalized with
// the primary key appended), optionally pushing down optionalFilters.
// Connections fan out in the order Connect was called (spec §5).
func (s *Source) Connect(ordering row.Ordering, optionalFilters ...change.OptionalFilter) Input {
	norm := ordering.Normalize(s.schema.PrimaryKey)
	s.ensureOrderedIndex(norm)
	conn := &Connection{
		source:          s,
		ordering:        norm,
		optionalFilters: optionalFilters,
	}
	s.connections = append(s.connections, conn)
	return conn
}

// matches reports whether r satisfies both a constraint and the connection's
// pushed-down optional filters.
func matches(r row.Row, constraint *change.Constraint, filters []change.OptionalFilter) bool {
	if constraint != nil && !constraint.Matches(r) {
		return false
	}
	for _, f := range filters {
		if !matchFilter(r, f) {
			return false
		}
	}
	return true
}

func matchFilter(r row.Row, f change.OptionalFilter) bool {
	v := r[f.Column]
	switch f.Op {
	case change.OpEq:
		return row.Row{"v": v}.Equal(row.Row{"v": f.Value})
	case change.OpNotEq:
		return !row.Row{"v": v}.Equal(row.Row{"v": f.Value})
	case change.OpLessThan, change.OpLessEq, change.OpGreaterGt, change.OpGreaterEq:
		c := compareAny(v, f.Value)
		switch f.Op {
		case change.OpLessThan:
			return c < 0
		case change.OpLessEq:
			return c <= 0
		case change.OpGreaterGt:
			return c > 0
		default:
			return c >= 0
		}
	default:
		return true
	}
}

func compareAny(a, b interface{}) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, _ := a.(string)
	bs, _ := b.(string)
	return strings.Compare(as, bs)
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// scan returns every authoritative row sorted by ordering, matching
// constraint and filters. When constraint names an indexed column the scan
// starts from the index bucket instead of a full table walk.
func (s *Source) scan(ordering row.Ordering, constraint *change.Constraint, filters []change.OptionalFilter) []row.Row {
	if constraint != nil {
		if idx, ok := s.hashIdxs[constraint.Column]; ok {
			candidates := idx.Get(constraint.Value)
			out := make([]row.Row, 0, len(candidates))
			for _, r := range candidates {
				if matches(r, nil, filters) {
					out = append(out, r)
				}
			}
			sort.SliceStable(out, func(i, j int) bool { return ordering.Less(out[i], out[j]) })
			return out
		}
	}
	oi := s.ensureOrderedIndex(ordering)
	out := make([]row.Row, 0, len(oi.rows))
	for _, r := range oi.rows {
		if matches(r, constraint, filters) {
			out = append(out, r)
		}
	}
	return out
}

// Push applies sc and fans a derived Change to every connection, in
// connection-registration order, running the whole cascade synchronously
// before returning (spec §5). On any contract-violation error, no index is
// mutated and no connection observes a partial change.
func (s *Source) Push(sc change.SourceChange) error {
	cascadeID := ivmlog.NewCascadeID()
	ivmlog.Debugf("cascade %s: source %q push kind=%d start", cascadeID, s.schema.Name, sc.Kind)
	err := s.dispatchPush(sc)
	if err != nil {
		ivmlog.Warnf("cascade %s: source %q push failed: %v", cascadeID, s.schema.Name, err)
	} else {
		ivmlog.Debugf("cascade %s: source %q push done", cascadeID, s.schema.Name)
	}
	return err
}

// dispatchPush checks row.Outstanding() at both ends of one push (spec §5's
// single-threaded cascade): nonzero on entry means a consumer is still
// holding a lazy sequence from an earlier fetch that it neither drained
// nor cleaned up before pushing again; nonzero again once this push's own
// cascade has finished means something the cascade itself created (e.g. an
// operator's refill or a join's composed relationship) was left
// half-consumed instead of drained or released.
func (s *Source) dispatchPush(sc change.SourceChange) error {
	if row.Outstanding() > 0 {
		return ivmerr.New(ivmerr.KindOutOfOrder, "source %q: push invoked while a lazy sequence from an earlier fetch is still outstanding", s.schema.Name)
	}

	var err error
	switch sc.Kind {
	case change.SourceAdd:
		err = s.pushAdd(sc.Row)
	case change.SourceRemove:
		err = s.pushRemove(sc.OldRow)
	case change.SourceEdit:
		err = s.pushEdit(sc.OldRow, sc.Row)
	default:
		return ivmerr.New(ivmerr.KindInvalidSchema, "unknown source change kind %d", sc.Kind)
	}
	if err != nil {
		return err
	}
	if n := row.Outstanding(); n > 0 {
		return ivmerr.New(ivmerr.KindLazySequenceAbandoned, "source %q: push cascade left %d lazy sequence(s) undrained", s.schema.Name, n)
	}
	return nil
}

func (s *Source) pushAdd(r row.Row) error {
	key := s.schema.PrimaryKey.Values(r)
	if _, exists := s.rows[key]; exists {
		return ivmerr.New(ivmerr.KindDuplicatePrimaryKey, "source %q: primary key already present", s.schema.Name)
	}
	s.rows[key] = r
	for _, oi := range s.orderedIdxs {
		idx := row.SearchInsertIndex(oi.rows, r, oi.ordering)
		oi.rows = insertAt(oi.rows, idx, r)
	}
	for _, hi := range s.hashIdxs {
		hi.Add(r)
	}
	for _, conn := range s.connections {
		if err := conn.output.Push(change.NewAdd(row.NewNode(r))); err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) pushRemove(r row.Row) error {
	key := s.schema.PrimaryKey.Values(r)
	stored, exists := s.rows[key]
	if !exists || !stored.Equal(r) {
		return ivmerr.New(ivmerr.KindNotFound, "source %q: no row matches the given values", s.schema.Name)
	}
	delete(s.rows, key)
	for _, oi := range s.orderedIdxs {
		if idx := row.FindByPK(oi.rows, stored, s.schema.PrimaryKey); idx >= 0 {
			oi.rows = removeAt(oi.rows, idx)
		}
	}
	for _, hi := range s.hashIdxs {
		hi.Remove(stored)
	}
	for _, conn := range s.connections {
		if err := conn.output.Push(change.NewRemove(row.NewNode(stored))); err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) pushEdit(oldRow, newRow row.Row) error {
	if !s.schema.PrimaryKey.Equal(oldRow, newRow) {
		// Source-local decomposition into remove(old) then add(new),
		// forwarded as two separate changes (spec §4.1, Open Question #2).
		// A new key that is already taken is rejected before the remove
		// mutates anything.
		if stored, ok := s.rows[s.schema.PrimaryKey.Values(oldRow)]; ok && stored.Equal(oldRow) {
			if _, dup := s.rows[s.schema.PrimaryKey.Values(newRow)]; dup {
				return ivmerr.New(ivmerr.KindDuplicatePrimaryKey, "source %q: edit's new primary key already present", s.schema.Name)
			}
		}
		if err := s.pushRemove(oldRow); err != nil {
			if ivmerr.Is(err, ivmerr.KindNotFound) {
				// oldRow isn't there under its claimed identity, yet this
				// push claims a PK-crossing edit of it: a sibling push must
				// already have decomposed and applied this same edit.
				return ivmerr.New(ivmerr.KindPrimaryKeyMismatch, "source %q: edit's old row not found under its claimed primary key; already decomposed by a prior push", s.schema.Name)
			}
			return err
		}
		return s.pushAdd(newRow)
	}

	key := s.schema.PrimaryKey.Values(oldRow)
	stored, exists := s.rows[key]
	if !exists {
		return ivmerr.New(ivmerr.KindNotFound, "source %q: no row matches the given values", s.schema.Name)
	}
	if !stored.Equal(oldRow) {
		return ivmerr.New(ivmerr.KindConstraintViolation, "source %q: claimed old row does not match stored row", s.schema.Name)
	}
	s.rows[key] = newRow
	for _, oi := range s.orderedIdxs {
		if oi.ordering.Compare(oldRow, newRow) == 0 {
			if idx := row.FindByPK(oi.rows, oldRow, s.schema.PrimaryKey); idx >= 0 {
				oi.rows[idx] = newRow
			}
			continue
		}
		if idx := row.FindByPK(oi.rows, oldRow, s.schema.PrimaryKey); idx >= 0 {
			oi.rows = removeAt(oi.rows, idx)
		}
		insertIdx := row.SearchInsertIndex(oi.rows, newRow, oi.ordering)
		oi.rows = insertAt(oi.rows, insertIdx, newRow)
	}
	for _, hi := range s.hashIdxs {
		hi.Edit(oldRow, newRow)
	}
	for _, conn := range s.connections {
		if err := conn.output.Push(change.NewEdit(oldRow, newRow)); err != nil {
			return err
		}
	}
	return nil
}
