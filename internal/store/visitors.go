package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Visitor is one tracked page view. The IP is never stored, only a salted
// hash of it.
type Visitor struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// HashIP hashes ip with salt, consistently per IP for the salt's lifetime.
// The result is truncated since it only needs to tell visitors apart.
func HashIP(ip, salt string) string {
	sum := sha256.Sum256([]byte(ip + salt))
	return hex.EncodeToString(sum[:])[:16]
}

// RecordVisit stores a page view.
func (d *DB) RecordVisit(ctx context.Context, hashedIP, userAgent, path string, at time.Time) error {
	_, err := d.ExecContext(ctx, `
		INSERT INTO visitors (hashed_ip, user_agent, path, timestamp)
		VALUES (?, ?, ?, ?)`, hashedIP, userAgent, path, at.UTC())
	if err != nil {
		return fmt.Errorf("recording visit: %w", err)
	}
	return nil
}

// RecentVisitors returns the latest views, newest first.
func (d *DB) RecentVisitors(ctx context.Context, limit int) ([]Visitor, error) {
	rows, err := d.QueryContext(ctx, `
		SELECT id, hashed_ip, user_agent, path, timestamp
		FROM visitors ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing visitors: %w", err)
	}
	defer rows.Close()

	var out []Visitor
	for rows.Next() {
		var v Visitor
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &v.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// PruneVisitors deletes views older than before and returns how many went.
func (d *DB) PruneVisitors(ctx context.Context, before time.Time) (int64, error) {
	res, err := d.ExecContext(ctx, `DELETE FROM visitors WHERE timestamp < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning visitors: %w", err)
	}
	return res.RowsAffected()
}
