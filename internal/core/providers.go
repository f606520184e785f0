package core

import "context"

// ChatOptions tunes a single provider call.
type ChatOptions struct {
	// DisableReasoning turns the model's thinking mode off for this call.
	DisableReasoning bool
	// JSONResponse requests a json_object response format (extraction).
	JSONResponse bool
	// Tools advertises callable tools for this request.
	Tools []Tool
}

type AIProvider interface {
	// Chat performs a blocking completion and returns the final message.
	Chat(ctx context.Context, history []Message, opts ChatOptions) (Message, error)

	// ChatStream opens a token stream. The returned channel delivers
	// deltas in order and is closed after a DeltaDone or DeltaError.
	ChatStream(ctx context.Context, history []Message, opts ChatOptions) (<-chan Delta, error)
}

// VectorMemory is the narrow contract to the external soft-fact store.
type VectorMemory interface {
	// Store appends facts under the given user key. Returns ErrNotConfigured
	// when no credential is present.
	Store(ctx context.Context, facts []string, userKey, sessionID string) error

	// Search returns fact texts relevant to the query, most relevant first.
	Search(ctx context.Context, query, userKey string) ([]string, error)
}

type ToolProvider interface {
	GetTools(ctx context.Context) ([]Tool, error)
	CallTool(ctx context.Context, name string, args string) (string, error)
}
