// Package store persists contact messages and privacy-conscious visitor
// metrics in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("store: not found")

// DB wraps a sql.DB with the folio schema.
type DB struct {
	*sql.DB
}

// Open creates or opens the database at path and migrates it.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{DB: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return d, nil
}

// OpenMemory opens a private in-memory database, for tests.
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// Every pooled connection would get its own empty database.
	sqlDB.SetMaxOpenConns(1)

	d := &DB{DB: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return d, nil
}

func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS visitors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hashed_ip TEXT NOT NULL,
	user_agent TEXT NOT NULL DEFAULT '',
	path TEXT NOT NULL DEFAULT '',
	timestamp DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_visitors_timestamp ON visitors(timestamp);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	body TEXT NOT NULL,
	relay TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('sent','failed')),
	error TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at);
`

// Stats is the admin dashboard summary.
type Stats struct {
	TotalVisitors    int64     `json:"total_visitors"`
	UniqueVisitors   int64     `json:"unique_visitors"`
	VisitorsToday    int64     `json:"visitors_today"`
	VisitorsThisWeek int64     `json:"visitors_this_week"`
	TotalMessages    int64     `json:"total_messages"`
	FailedMessages   int64     `json:"failed_messages"`
	TopPaths         []PathHit `json:"top_paths"`
	RecentVisitors   []Visitor `json:"recent_visitors"`
	RecentMessages   []Message `json:"recent_messages"`
}

// PathHit counts visits of one path.
type PathHit struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}

// Stats gathers dashboard numbers relative to now.
func (d *DB) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	s := &Stats{}
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&s.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&s.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&s.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{startOfDay.UTC()}},
		{&s.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{now.Add(-7 * 24 * time.Hour).UTC()}},
		{&s.TotalMessages, `SELECT COUNT(*) FROM messages`, nil},
		{&s.FailedMessages, `SELECT COUNT(*) FROM messages WHERE status = 'failed'`, nil},
	}
	for _, c := range counts {
		if err := d.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("counting: %w", err)
		}
	}

	rows, err := d.QueryContext(ctx, `
		SELECT path, COUNT(*) AS hits FROM visitors
		GROUP BY path ORDER BY hits DESC, path LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("top paths: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var h PathHit
		if err := rows.Scan(&h.Path, &h.Count); err != nil {
			return nil, err
		}
		s.TopPaths = append(s.TopPaths, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if s.RecentVisitors, err = d.RecentVisitors(ctx, 50); err != nil {
		return nil, err
	}
	if s.RecentMessages, err = d.Messages(ctx, 10); err != nil {
		return nil, err
	}
	return s, nil
}
