// Package catchup persists every Change a View flushes into a durable
// append-only log, so a consumer that was offline can replay everything
// it missed. Backed by modernc.org/sqlite (pure Go, no cgo) rather than
// the badger store internal/snapshot uses for hydration, since a catchup log is
// append-mostly and benefits from SQL range queries over "every change
// since sequence N" that a KV store would need to hand-roll.
package catchup

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
)

func nodeFromRow(r map[string]interface{}) row.Node {
	return row.NewNode(row.Row(r))
}

// Log is a single table of sequentially-numbered serialized Change
// envelopes.
type Log struct {
	db *sql.DB
}

// Open opens (or creates) a catchup log at path. path == ":memory:" opens
// an in-memory log, useful for tests.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catchup log failed: %w", err)
	}
	const ddl = `CREATE TABLE IF NOT EXISTS catchup_log (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create catchup log table failed: %w", err)
	}
	return &Log{db: db}, nil
}

func (l *Log) Close() error { return l.db.Close() }

// record is the durable, JSON-friendly shape of one change.Change; the
// full recursive Child/Inner envelope round-trips since record.Inner is
// itself a *record.
type record struct {
	Kind             string                 `json:"kind"`
	Row              map[string]interface{} `json:"row,omitempty"`
	OldRow           map[string]interface{} `json:"old_row,omitempty"`
	ParentRow        map[string]interface{} `json:"parent_row,omitempty"`
	RelationshipName string                 `json:"relationship_name,omitempty"`
	Inner            *record                `json:"inner,omitempty"`
}

func toRecord(c change.Change) record {
	rec := record{Kind: c.Kind.String()}
	switch c.Kind {
	case change.Add, change.Remove:
		rec.Row = c.Node.Row
	case change.Edit:
		rec.OldRow = c.OldRow
		rec.Row = c.Row
	case change.Child:
		rec.ParentRow = c.ParentRow
		rec.RelationshipName = c.RelationshipName
		if c.Inner != nil {
			inner := toRecord(*c.Inner)
			rec.Inner = &inner
		}
	}
	return rec
}

// Listener returns a func([]change.Change) suitable for view.View.AddListener
// that appends every change in a flushed batch to the log in order.
func (l *Log) Listener() func([]change.Change) {
	return func(batch []change.Change) {
		for _, c := range batch {
			if err := l.Append(c); err != nil {
				// The log is a best-effort replay aid, not the system of
				// record; a write failure here must never abort the
				// cascade that already committed to the view.
				continue
			}
		}
	}
}

// Append serializes and stores one change, returning its assigned
// sequence number.
func (l *Log) Append(c change.Change) (int64, error) {
	rec := toRecord(c)
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("encode catchup record failed: %w", err)
	}
	res, err := l.db.Exec(`INSERT INTO catchup_log (kind, payload) VALUES (?, ?)`, rec.Kind, string(data))
	if err != nil {
		return 0, fmt.Errorf("append catchup record failed: %w", err)
	}
	return res.LastInsertId()
}

// Since returns every logged change with seq > lastSeen, in order, for a
// consumer resuming from a known checkpoint.
func (l *Log) Since(lastSeen int64) ([]int64, []change.Change, error) {
	rows, err := l.db.Query(`SELECT seq, payload FROM catchup_log WHERE seq > ? ORDER BY seq ASC`, lastSeen)
	if err != nil {
		return nil, nil, fmt.Errorf("query catchup log failed: %w", err)
	}
	defer rows.Close()

	var seqs []int64
	var changes []change.Change
	for rows.Next() {
		var seq int64
		var payload string
		if err := rows.Scan(&seq, &payload); err != nil {
			return nil, nil, fmt.Errorf("scan catchup row failed: %w", err)
		}
		var rec record
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, nil, fmt.Errorf("decode catchup record failed: %w", err)
		}
		seqs = append(seqs, seq)
		changes = append(changes, fromRecord(rec))
	}
	return seqs, changes, rows.Err()
}

func fromRecord(rec record) change.Change {
	switch rec.Kind {
	case "add":
		return change.NewAdd(nodeFromRow(rec.Row))
	case "remove":
		return change.NewRemove(nodeFromRow(rec.Row))
	case "edit":
		return change.NewEdit(rec.OldRow, rec.Row)
	case "child":
		var inner change.Change
		if rec.Inner != nil {
			inner = fromRecord(*rec.Inner)
		}
		return change.NewChild(rec.ParentRow, rec.RelationshipName, inner)
	default:
		return change.Change{}
	}
}
