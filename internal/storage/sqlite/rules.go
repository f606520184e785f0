package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sandevgo/omnimind/internal/core"
)

type Rules struct {
	db *sql.DB
}

func NewRules(db *sql.DB) *Rules {
	return &Rules{db: db}
}

func (r *Rules) AddRule(ctx context.Context, content string) (string, error) {
	id := uuid.NewString()
	query := `INSERT INTO hard_rules (id, content) VALUES (?, ?)`
	if _, err := r.db.ExecContext(ctx, query, id, content); err != nil {
		return "", fmt.Errorf("failed to insert rule: %w", err)
	}
	return id, nil
}

func (r *Rules) ListRules(ctx context.Context) ([]core.HardRule, error) {
	query := `SELECT id, content, is_active, created_at, updated_at FROM hard_rules WHERE is_active = 1 ORDER BY rowid`
	return r.queryRules(ctx, query)
}

func (r *Rules) ListAllRules(ctx context.Context) ([]core.HardRule, error) {
	query := `SELECT id, content, is_active, created_at, updated_at FROM hard_rules ORDER BY rowid`
	return r.queryRules(ctx, query)
}

func (r *Rules) queryRules(ctx context.Context, query string) ([]core.HardRule, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []core.HardRule
	for rows.Next() {
		var rule core.HardRule
		if err := rows.Scan(&rule.ID, &rule.Content, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// DeleteRule removes a rule. Deleting an id that does not exist is not
// an error.
func (r *Rules) DeleteRule(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM hard_rules WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return nil
}

func (r *Rules) SetRuleActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE hard_rules SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, active, id); err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return nil
}
