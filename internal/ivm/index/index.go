// Package index implements the secondary hash index maintained by a Source
// (spec §4.2): column value -> set of rows, updated synchronously with
// every source change and shared read-only by joins during fetch.
package index

import (
	"fmt"

	"github.com/kasuganosora/ivmsync/internal/ivm/row"
)

// HashIndex maps one column's values to the set of rows currently holding
// that value, keyed internally by primary key for O(1) update on edit.
type HashIndex struct {
	column string
	pk     row.PrimaryKey
	// buckets: encoded column value -> (pk string -> row)
	buckets map[string]map[string]row.Row
}

// New creates a HashIndex on column, keyed by the owning source's primary
// key so Edit can locate and move an entry without a linear scan.
func New(column string, pk row.PrimaryKey) *HashIndex {
	return &HashIndex{
		column:  column,
		pk:      pk,
		buckets: make(map[string]map[string]row.Row),
	}
}

// Column returns the indexed column name.
func (h *HashIndex) Column() string { return h.column }

func encode(v interface{}) string { return fmt.Sprintf("%T:%v", v, v) }

// Add inserts r under its current column value.
func (h *HashIndex) Add(r row.Row) {
	key := encode(r[h.column])
	bucket, ok := h.buckets[key]
	if !ok {
		bucket = make(map[string]row.Row)
		h.buckets[key] = bucket
	}
	bucket[h.pk.Values(r)] = r
}

// Remove deletes r (identified by its primary key) from its current
// column-value bucket.
func (h *HashIndex) Remove(r row.Row) {
	key := encode(r[h.column])
	bucket, ok := h.buckets[key]
	if !ok {
		return
	}
	delete(bucket, h.pk.Values(r))
	if len(bucket) == 0 {
		delete(h.buckets, key)
	}
}

// Edit moves the entry for the row identified by oldRow's PK from oldRow's
// bucket to newRow's bucket when the indexed column changed, or updates
// the stored value in place otherwise.
func (h *HashIndex) Edit(oldRow, newRow row.Row) {
	oldKey := encode(oldRow[h.column])
	newKey := encode(newRow[h.column])
	pkKey := h.pk.Values(oldRow)
	if oldKey == newKey {
		if bucket, ok := h.buckets[oldKey]; ok {
			bucket[pkKey] = newRow
		}
		return
	}
	if bucket, ok := h.buckets[oldKey]; ok {
		delete(bucket, pkKey)
		if len(bucket) == 0 {
			delete(h.buckets, oldKey)
		}
	}
	newBucket, ok := h.buckets[newKey]
	if !ok {
		newBucket = make(map[string]row.Row)
		h.buckets[newKey] = newBucket
	}
	newBucket[h.pk.Values(newRow)] = newRow
}

// Get returns every row currently holding value under the indexed column.
func (h *HashIndex) Get(value interface{}) []row.Row {
	bucket, ok := h.buckets[encode(value)]
	if !ok {
		return nil
	}
	out := make([]row.Row, 0, len(bucket))
	for _, r := range bucket {
		out = append(out, r)
	}
	return out
}

// Len returns the number of distinct rows held across all buckets —
// exposed for tests asserting index maintenance stays in sync with the
// source it indexes.
func (h *HashIndex) Len() int {
	n := 0
	for _, b := range h.buckets {
		n += len(b)
	}
	return n
}
