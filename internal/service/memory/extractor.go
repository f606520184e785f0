package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sandevgo/omnimind/internal/core"
	"github.com/sandevgo/omnimind/pkg/log"
)

// Extractor distills hard rules and soft facts out of a single user
// turn. It runs in the background of the chat turn, so every failure
// path collapses to an empty result rather than an error.
type Extractor struct {
	fast     core.AIProvider
	advanced core.AIProvider
	memory   *Service
}

func NewExtractor(fast, advanced core.AIProvider, memory *Service) *Extractor {
	return &Extractor{fast: fast, advanced: advanced, memory: memory}
}

// Extract analyzes the message, persists whatever it finds and returns
// the result. Image turns go to the advanced model; pure text uses the
// fast one.
func (e *Extractor) Extract(ctx context.Context, message, userKey, sessionID, image string) core.ExtractionResult {
	logger := log.FromCtx(ctx)

	result, err := e.analyze(ctx, message, image)
	if err != nil {
		logger.Warn().Err(err).Msg("memory extraction failed")
		return core.ExtractionResult{}
	}
	if result.Empty() {
		return result
	}

	for _, rule := range result.HardRules {
		if _, err := e.memory.AddHardRule(ctx, rule); err != nil {
			logger.Warn().Err(err).Msg("failed to persist extracted rule")
		}
	}
	e.memory.AppendSoftFacts(ctx, result.SoftFacts, userKey, sessionID)

	logger.Info().
		Int("hard_rules", len(result.HardRules)).
		Int("soft_facts", len(result.SoftFacts)).
		Msg("memory extracted")
	return result
}

func (e *Extractor) analyze(ctx context.Context, message, image string) (core.ExtractionResult, error) {
	provider := e.fast
	if image != "" {
		provider = e.advanced
		if strings.TrimSpace(message) == "" {
			message = "Extract information from this image."
		}
	}

	resp, err := provider.Chat(ctx, []core.Message{
		{Role: core.RoleSystem, Content: extractionSystemPrompt},
		{Role: core.RoleUser, Content: buildExtractionPrompt(message, image != ""), Image: image},
	}, core.ChatOptions{DisableReasoning: true, JSONResponse: true})
	if err != nil {
		return core.ExtractionResult{}, fmt.Errorf("llm chat: %w", err)
	}

	return parseExtractionResponse(resp.Content)
}

func parseExtractionResponse(content string) (core.ExtractionResult, error) {
	jsonStr := extractJSONObject(content)
	if jsonStr == "" {
		return core.ExtractionResult{}, fmt.Errorf("no JSON object found in response")
	}

	var result core.ExtractionResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return core.ExtractionResult{}, fmt.Errorf("unmarshal extraction: %w", err)
	}
	return result, nil
}

// extractJSONObject tolerates models that wrap the object in prose or
// code fences.
func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	if start == -1 {
		return ""
	}

	end := strings.LastIndex(content[start:], "}")
	if end == -1 {
		return ""
	}

	return content[start : start+end+1]
}
