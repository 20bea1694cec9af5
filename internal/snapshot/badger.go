// Package snapshot hydrates a source.Source from, and exports it back to,
// an on-disk snapshot — grounded on the teacher's pkg/resource/badger
// (BadgerDataSource's txn-scoped iterator-and-JSON-codec shape) and
// pkg/resource/json's encoding/json adapter, generalized from a one-shot
// SQL-engine-backing store to a hydration step that feeds row.Row values
// into a Source via change.SourceChange before the pipeline goes live.
package snapshot

import (
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
	"github.com/kasuganosora/ivmsync/internal/ivm/source"
)

// BadgerStore snapshots one table's rows into a badger key space prefixed
// by the table name, mirroring the row-per-key layout of the teacher's
// BadgerDataSource.
type BadgerStore struct {
	db    *badger.DB
	table string
}

// OpenBadgerStore opens (or creates) a badger database at dir. dir == ""
// opens an in-memory database, matching BadgerDataSource's own in-memory
// fallback.
func OpenBadgerStore(dir, table string) (*BadgerStore, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger snapshot store failed: %w", err)
	}
	return &BadgerStore{db: db, table: table}, nil
}

func (b *BadgerStore) Close() error { return b.db.Close() }

func (b *BadgerStore) rowKey(pkValue string) []byte {
	return []byte(b.table + "\x00" + pkValue)
}

// Hydrate scans every row stored for this table and pushes a
// change.SourceAdd for each into src, in key order.
func (b *BadgerStore) Hydrate(src *source.Source) error {
	prefix := []byte(b.table + "\x00")
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var r row.Row
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return fmt.Errorf("decode snapshot row failed: %w", err)
			}
			if err := src.Push(change.NewSourceAdd(r)); err != nil {
				return fmt.Errorf("hydrate row into source %q failed: %w", src.Name(), err)
			}
		}
		return nil
	})
}

// Export writes a full snapshot of rows (as already read from a Source's
// connection, e.g. the Row of each node Fetch(nil).Collect() returns) back to badger,
// replacing whatever this table previously held.
func (b *BadgerStore) Export(pk row.PrimaryKey, rows []row.Row) error {
	return b.db.Update(func(txn *badger.Txn) error {
		prefix := []byte(b.table + "\x00")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		var stale [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stale = append(stale, append([]byte{}, it.Item().Key()...))
		}
		it.Close()
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		for _, r := range rows {
			data, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("encode snapshot row failed: %w", err)
			}
			if err := txn.Set(b.rowKey(pk.Values(r)), data); err != nil {
				return err
			}
		}
		return nil
	})
}
