package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/matzehuels/topoview/pkg/errors"
	"github.com/matzehuels/topoview/pkg/topology"
)

// DefaultTable is the node table read by SQLiteLoader.
const DefaultTable = "nodes"

const createTableSQL = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id          TEXT PRIMARY KEY,
	seq         INTEGER NOT NULL DEFAULT 0,
	name        TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT '',
	connections TEXT NOT NULL DEFAULT '[]',
	metrics     TEXT NOT NULL DEFAULT '{}',
	details     TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_seq ON %[1]s(seq);
`

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// SQLiteLoader reads one row per node. The JSON columns hold the
// connection list, the metrics object and the ordered details object.
// Rows come back ordered by seq, then insertion order.
type SQLiteLoader struct {
	db    *sql.DB
	table string
	path  string
}

// OpenSQLite opens the database file at path and makes sure the node
// table exists. An empty table selects DefaultTable.
func OpenSQLite(path, table string) (*SQLiteLoader, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableNameRe.MatchString(table) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid table name %q", table)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, err, "open %s", path)
	}
	if _, err := db.Exec(fmt.Sprintf(createTableSQL, table)); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, err, "init schema")
	}
	return &SQLiteLoader{db: db, table: table, path: path}, nil
}

// LoadTopology implements Loader.
func (l *SQLiteLoader) LoadTopology(ctx context.Context) (*topology.Snapshot, error) {
	rows, err := l.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, name, category, status, connections, metrics, details FROM %s ORDER BY seq, rowid`, l.table))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, err, "query %s", l.table)
	}
	defer rows.Close()

	var nodes []topology.Node
	for rows.Next() {
		var (
			n                             topology.Node
			category, status              string
			connections, metrics, details string
		)
		if err := rows.Scan(&n.ID, &n.Name, &category, &status, &connections, &metrics, &details); err != nil {
			return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, err, "scan %s", l.table)
		}
		n.Category = topology.Category(category)
		n.Status = topology.Status(status)
		if err := decodeColumns(&n, connections, metrics, details); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "node %q", n.ID)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceUnavailable, err, "read %s", l.table)
	}
	if err := topology.Validate(nodes); err != nil {
		return nil, err
	}
	return topology.New(nodes, topology.WithSource("sqlite:"+l.path)), nil
}

func decodeColumns(n *topology.Node, connections, metrics, details string) error {
	if err := json.Unmarshal([]byte(connections), &n.Connections); err != nil {
		return fmt.Errorf("connections: %w", err)
	}
	if err := json.Unmarshal([]byte(metrics), &n.Metrics); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := json.Unmarshal([]byte(details), &n.Details); err != nil {
		return fmt.Errorf("details: %w", err)
	}
	return nil
}

// Save replaces the table's content with snap, in snapshot order.
func (l *SQLiteLoader) Save(ctx context.Context, snap *topology.Snapshot) (err error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, l.table)); err != nil {
		return fmt.Errorf("clear %s: %w", l.table, err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, seq, name, category, status, connections, metrics, details) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, l.table))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, n := range snap.Nodes {
		conns, metrics, details, merr := encodeColumns(n)
		if merr != nil {
			return fmt.Errorf("encode %q: %w", n.ID, merr)
		}
		if _, err = stmt.ExecContext(ctx, n.ID, i, n.Name, string(n.Category), string(n.Status), conns, metrics, details); err != nil {
			return fmt.Errorf("insert %q: %w", n.ID, err)
		}
	}
	return tx.Commit()
}

func encodeColumns(n topology.Node) (conns, metrics, details string, err error) {
	c := n.Connections
	if c == nil {
		c = []string{}
	}
	cb, err := json.Marshal(c)
	if err != nil {
		return "", "", "", err
	}
	mb, err := json.Marshal(n.Metrics)
	if err != nil {
		return "", "", "", err
	}
	if n.Details == nil {
		return string(cb), string(mb), "{}", nil
	}
	db, err := json.Marshal(n.Details)
	if err != nil {
		return "", "", "", err
	}
	return string(cb), string(mb), string(db), nil
}

// Close closes the database.
func (l *SQLiteLoader) Close() error { return l.db.Close() }
