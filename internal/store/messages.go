package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Message statuses.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Message is a stored contact form submission.
type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Body      string    `json:"body"`
	Relay     string    `json:"relay"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveMessage inserts m.
func (d *DB) SaveMessage(ctx context.Context, m Message) error {
	_, err := d.ExecContext(ctx, `
		INSERT INTO messages (id, name, email, body, relay, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Email, m.Body, m.Relay, m.Status, m.Error, m.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving message: %w", err)
	}
	return nil
}

// Message loads one message by id.
func (d *DB) Message(ctx context.Context, id string) (Message, error) {
	var m Message
	err := d.QueryRowContext(ctx, `
		SELECT id, name, email, body, relay, status, error, created_at
		FROM messages WHERE id = ?`, id).
		Scan(&m.ID, &m.Name, &m.Email, &m.Body, &m.Relay, &m.Status, &m.Error, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, fmt.Errorf("loading message: %w", err)
	}
	return m, nil
}

// Messages returns the latest submissions, newest first.
func (d *DB) Messages(ctx context.Context, limit int) ([]Message, error) {
	rows, err := d.QueryContext(ctx, `
		SELECT id, name, email, body, relay, status, error, created_at
		FROM messages ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Body, &m.Relay, &m.Status, &m.Error, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteMessage removes a message.
func (d *DB) DeleteMessage(ctx context.Context, id string) error {
	res, err := d.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
