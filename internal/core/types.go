package core

import "encoding/json"

const (
	AppName          = "OmniMind"
	AppUserAgent     = "OmniMind-Server/0.1"
	AppRepositoryURL = "https://github.com/sandevgo/omnimind"
	AppVersion       = "0.1.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type Function struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one entry in the prompt sent to the model provider.
// Image carries a data URL; the provider layer decides how to encode it
// into the wire format (multi-part content for user messages).
type Message struct {
	Role       string
	Content    string
	Reasoning  string
	Image      string
	ToolCalls  []ToolCall
	ToolCallID string
}

// DeltaKind discriminates the streaming delta union.
type DeltaKind int

const (
	DeltaReasoning DeltaKind = iota
	DeltaContent
	DeltaToolCall
	DeltaDone
	DeltaError
)

// Delta is one validated streaming event from the model provider.
// Exactly one payload field is meaningful for a given Kind:
// Text for reasoning/content, ToolCalls for tool-call fragments,
// Err for error.
type Delta struct {
	Kind      DeltaKind
	Text      string
	ToolCalls []ToolCallDelta
	Err       error
}

// ToolCallDelta is a fragment of a streamed tool call. Providers emit
// tool calls incrementally; ID, Name and Arguments are concatenated
// across fragments sharing the same Index.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// TurnRequest is the inbound payload of one chat turn, as posted by the
// (external) UI layer.
type TurnRequest struct {
	Message   string `json:"message"`
	Image     string `json:"image,omitempty"`
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId,omitempty"`
	Reasoning bool   `json:"reasoning"`
}

// UserKey returns the key under which soft facts are stored for this
// request. Falls back to the session when no user is identified.
func (r TurnRequest) UserKey() string {
	if r.UserID != "" {
		return r.UserID
	}
	return r.SessionID
}
