package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sandevgo/omnimind/internal/core"
)

// OpenAICompatible talks to any /v1/chat/completions endpoint that
// follows the OpenAI wire format, including reasoning-capable models
// that stream reasoning_content deltas.
type OpenAICompatible struct {
	baseProvider
	authHeader   string
	authPrefix   string
	extraHeaders map[string]string
}

type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	AuthHeader   string // e.g., "Authorization"
	AuthPrefix   string // e.g., "Bearer "
	ExtraHeaders map[string]string
}

func NewOpenAICompatible(cfg Config) *OpenAICompatible {
	return &OpenAICompatible{
		baseProvider: newBaseProvider(cfg.BaseURL, cfg.APIKey, cfg.Model),
		authHeader:   cfg.AuthHeader,
		authPrefix:   cfg.AuthPrefix,
		extraHeaders: cfg.ExtraHeaders,
	}
}

func (o *OpenAICompatible) headers() map[string]string {
	headers := make(map[string]string)
	if o.authHeader != "" && o.apiKey != "" {
		headers[o.authHeader] = o.authPrefix + o.apiKey
	}
	for k, v := range o.extraHeaders {
		headers[k] = v
	}
	return headers
}

func (o *OpenAICompatible) payload(history []core.Message, opts core.ChatOptions, stream bool) map[string]any {
	payload := map[string]any{
		"model":    o.model,
		"messages": buildWireMessages(history),
	}
	if stream {
		payload["stream"] = true
	}
	if len(opts.Tools) > 0 {
		payload["tools"] = opts.Tools
	}
	if opts.JSONResponse {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}
	if opts.DisableReasoning {
		payload["thinking"] = map[string]string{"type": "disabled"}
	}
	return payload
}

// buildWireMessages maps provider-agnostic messages onto the OpenAI
// message shape. A user message with an attached image becomes a
// multi-part content array.
func buildWireMessages(history []core.Message) []map[string]any {
	out := make([]map[string]any, 0, len(history))
	for _, m := range history {
		wm := map[string]any{"role": m.Role}

		if m.Role == core.RoleUser && m.Image != "" {
			text := m.Content
			if text == "" {
				text = "Describe this image."
			}
			wm["content"] = []map[string]any{
				{"type": "image_url", "image_url": map[string]string{"url": m.Image}},
				{"type": "text", "text": text},
			}
		} else {
			wm["content"] = m.Content
		}

		if m.Reasoning != "" {
			wm["reasoning_content"] = m.Reasoning
		}
		if len(m.ToolCalls) > 0 {
			wm["tool_calls"] = m.ToolCalls
			if m.Content == "" {
				wm["content"] = nil
			}
		}
		if m.ToolCallID != "" {
			wm["tool_call_id"] = m.ToolCallID
		}
		out = append(out, wm)
	}
	return out
}

func (o *OpenAICompatible) Chat(ctx context.Context, history []core.Message, opts core.ChatOptions) (core.Message, error) {
	resp, err := o.doRequest(ctx, http.MethodPost, "/v1/chat/completions", o.payload(history, opts, false), o.headers())
	if err != nil {
		return core.Message{}, core.NewProviderError(err)
	}
	defer resp.Body.Close()

	msg, err := parseChatResponse(resp)
	if err != nil {
		return core.Message{}, core.NewProviderError(err)
	}
	return msg, nil
}

func parseChatResponse(resp *http.Response) (core.Message, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.Message{}, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return core.Message{}, fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Role             string          `json:"role"`
				Content          string          `json:"content"`
				ReasoningContent string          `json:"reasoning_content"`
				ToolCalls        []core.ToolCall `json:"tool_calls"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return core.Message{}, fmt.Errorf("decode: %w", err)
	}
	if len(result.Choices) == 0 {
		return core.Message{}, fmt.Errorf("empty choices: %s", string(data))
	}

	m := result.Choices[0].Message
	return core.Message{
		Role:      m.Role,
		Content:   m.Content,
		Reasoning: m.ReasoningContent,
		ToolCalls: m.ToolCalls,
	}, nil
}

// streamChunk is the raw SSE delta shape, validated at this boundary
// and converted into the core.Delta union before anything else sees it.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
			ToolCalls        []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (o *OpenAICompatible) ChatStream(ctx context.Context, history []core.Message, opts core.ChatOptions) (<-chan core.Delta, error) {
	headers := o.headers()
	headers["Accept"] = "text/event-stream"

	resp, err := o.doRequest(ctx, http.MethodPost, "/v1/chat/completions", o.payload(history, opts, true), headers)
	if err != nil {
		return nil, core.NewProviderError(err)
	}

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		return nil, core.NewProviderError(fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	deltas := make(chan core.Delta, 64)
	go o.scanStream(ctx, resp.Body, deltas)
	return deltas, nil
}

func (o *OpenAICompatible) scanStream(ctx context.Context, body io.ReadCloser, deltas chan<- core.Delta) {
	defer close(deltas)
	defer body.Close()

	send := func(d core.Delta) bool {
		select {
		case deltas <- d:
			return true
		case <-ctx.Done():
			return false
		}
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			send(core.Delta{Kind: core.DeltaDone})
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Skip malformed keep-alive noise rather than killing the turn.
			continue
		}
		if chunk.Error != nil {
			send(core.Delta{Kind: core.DeltaError, Err: core.NewProviderError(fmt.Errorf("api error: %s", chunk.Error.Message))})
			return
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta
		if delta.ReasoningContent != "" {
			if !send(core.Delta{Kind: core.DeltaReasoning, Text: delta.ReasoningContent}) {
				return
			}
		}
		if delta.Content != "" {
			if !send(core.Delta{Kind: core.DeltaContent, Text: delta.Content}) {
				return
			}
		}
		if len(delta.ToolCalls) > 0 {
			fragments := make([]core.ToolCallDelta, 0, len(delta.ToolCalls))
			for _, tc := range delta.ToolCalls {
				fragments = append(fragments, core.ToolCallDelta{
					Index:     tc.Index,
					ID:        tc.ID,
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				})
			}
			if !send(core.Delta{Kind: core.DeltaToolCall, ToolCalls: fragments}) {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		send(core.Delta{Kind: core.DeltaError, Err: core.NewProviderError(fmt.Errorf("stream: %w", err))})
		return
	}
	// Stream ended without an explicit [DONE]; treat as done.
	send(core.Delta{Kind: core.DeltaDone})
}
