package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sandevgo/omnimind/internal/core"
	"github.com/sandevgo/omnimind/pkg/log"
)

type History struct {
	db *sql.DB
}

func NewHistory(db *sql.DB) *History {
	return &History{db: db}
}

func (h *History) AddTurn(ctx context.Context, turn core.Turn) (string, error) {
	id := turn.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `INSERT INTO conversation_history (id, session_id, role, content, thought) VALUES (?, ?, ?, ?, ?)`
	if _, err := h.db.ExecContext(ctx, query, id, turn.SessionID, turn.Role, turn.Content, turn.Thought); err != nil {
		return "", fmt.Errorf("failed to insert turn: %w", err)
	}
	return id, nil
}

// GetTurns loads the last 'limit' prompt-visible turns for a session.
// Tool traffic and blank rows never reach the prompt, so they are
// filtered here rather than by the caller.
func (h *History) GetTurns(ctx context.Context, sessionID string, limit int) ([]core.Turn, error) {
	query := `SELECT id, session_id, role, content, thought, created_at
		FROM conversation_history
		WHERE session_id = ?
		  AND role IN ('user', 'assistant')
		  AND TRIM(content) != ''
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`

	rows, err := h.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []core.Turn
	for rows.Next() {
		var t core.Turn
		var thought sql.NullString
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Role, &t.Content, &thought, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		t.Thought = thought.String
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The query returned turns newest first; the prompt wants
	// chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	log.FromCtx(ctx).Debug().Int("count", len(turns)).Msg("loaded history turns")
	return turns, nil
}
