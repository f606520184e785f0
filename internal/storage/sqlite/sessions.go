package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sandevgo/omnimind/internal/core"
)

var ErrSessionNotFound = errors.New("session not found")

type Sessions struct {
	db *sql.DB
}

func NewSessions(db *sql.DB) *Sessions {
	return &Sessions{db: db}
}

// Touch creates the session row on first use and bumps updated_at on
// every later turn.
func (s *Sessions) Touch(ctx context.Context, id string) error {
	query := `INSERT INTO sessions (id) VALUES (?)
		ON CONFLICT(id) DO UPDATE SET updated_at = CURRENT_TIMESTAMP`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

func (s *Sessions) SetTitle(ctx context.Context, id, title string) error {
	query := `UPDATE sessions SET title = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, title, id); err != nil {
		return fmt.Errorf("failed to set session title: %w", err)
	}
	return nil
}

func (s *Sessions) Get(ctx context.Context, id string) (core.Session, error) {
	query := `SELECT id, title, created_at, updated_at FROM sessions WHERE id = ?`

	var out core.Session
	err := s.db.QueryRowContext(ctx, query, id).Scan(&out.ID, &out.Title, &out.CreatedAt, &out.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("failed to load session: %w", err)
	}
	return out, nil
}
