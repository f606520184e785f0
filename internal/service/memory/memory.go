// Package memory implements the two-tier memory pipeline: durable hard
// rules in SQLite and soft facts in an external vector store. Hard
// rules are authoritative and always loaded; soft facts are best
// effort and a failed fetch degrades to an empty list.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/sandevgo/omnimind/internal/core"
	"github.com/sandevgo/omnimind/pkg/log"
)

type Service struct {
	rules  core.RulesRepository
	vector core.VectorMemory
}

func NewService(rules core.RulesRepository, vector core.VectorMemory) *Service {
	return &Service{rules: rules, vector: vector}
}

func (s *Service) AddHardRule(ctx context.Context, content string) (core.HardRule, error) {
	id, err := s.rules.AddRule(ctx, content)
	if err != nil {
		return core.HardRule{}, core.NewMemoryStoreError("add rule", err)
	}
	return core.HardRule{ID: id, Content: content, IsActive: true}, nil
}

func (s *Service) ListHardRules(ctx context.Context) ([]core.HardRule, error) {
	rules, err := s.rules.ListAllRules(ctx)
	if err != nil {
		return nil, core.NewMemoryStoreError("list rules", err)
	}
	return rules, nil
}

func (s *Service) DeleteHardRule(ctx context.Context, id string) error {
	return core.NewMemoryStoreError("delete rule", s.rules.DeleteRule(ctx, id))
}

func (s *Service) SetHardRuleActive(ctx context.Context, id string, active bool) error {
	return core.NewMemoryStoreError("toggle rule", s.rules.SetRuleActive(ctx, id, active))
}

// AppendSoftFacts hands facts to the vector store. Best effort: a
// missing credential or a store failure is logged and swallowed.
func (s *Service) AppendSoftFacts(ctx context.Context, facts []string, userKey, sessionID string) {
	if len(facts) == 0 {
		return
	}
	err := s.vector.Store(ctx, facts, userKey, sessionID)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrNotConfigured):
		log.FromCtx(ctx).Debug().Msg("vector store not configured, dropping soft facts")
	default:
		log.FromCtx(ctx).Warn().Err(err).Msg("failed to store soft facts")
	}
}

// RetrieveContext assembles the per-turn memory snapshot. The two
// fetches run concurrently; either one failing degrades its tier to
// empty rather than failing the turn.
func (s *Service) RetrieveContext(ctx context.Context, query, userKey string) core.MemoryContext {
	var mc core.MemoryContext
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		rules, err := s.rules.ListRules(ctx)
		if err != nil {
			log.FromCtx(ctx).Warn().Err(err).Msg("failed to load hard rules")
			return
		}
		for _, r := range rules {
			mc.HardRules = append(mc.HardRules, r.Content)
		}
	}()

	go func() {
		defer wg.Done()
		facts, err := s.vector.Search(ctx, query, userKey)
		if err != nil {
			if !errors.Is(err, core.ErrNotConfigured) {
				log.FromCtx(ctx).Warn().Err(err).Msg("soft fact search failed")
			}
			return
		}
		mc.SoftFacts = facts
	}()

	wg.Wait()
	return mc
}
