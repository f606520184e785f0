package core

import (
	"context"
	"time"
)

// HardRule is a durable behavioral constraint surfaced on every turn.
type HardRule struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Turn is one persisted conversation message.
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Thought   string    `json:"thought,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RulesRepository interface {
	AddRule(ctx context.Context, content string) (string, error)
	// ListRules returns active rules in insertion order.
	ListRules(ctx context.Context) ([]HardRule, error)
	// ListAllRules includes inactive rules, for the management surface.
	ListAllRules(ctx context.Context) ([]HardRule, error)
	// DeleteRule is idempotent; an absent id is not an error.
	DeleteRule(ctx context.Context, id string) error
	SetRuleActive(ctx context.Context, id string, active bool) error
}

type HistoryRepository interface {
	AddTurn(ctx context.Context, turn Turn) (string, error)
	// GetTurns returns the newest limit prompt-visible turns re-ordered
	// oldest first. Rows with blank content or a role outside
	// {user, assistant} are excluded.
	GetTurns(ctx context.Context, sessionID string, limit int) ([]Turn, error)
}

type SessionsRepository interface {
	// Touch creates the session on first use and refreshes updated_at.
	Touch(ctx context.Context, id string) error
	SetTitle(ctx context.Context, id, title string) error
	Get(ctx context.Context, id string) (Session, error)
}
