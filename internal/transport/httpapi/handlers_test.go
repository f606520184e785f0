package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/omnimind/internal/core"
	"github.com/sandevgo/omnimind/internal/service/chat"
	"github.com/sandevgo/omnimind/internal/service/memory"
	"github.com/sandevgo/omnimind/internal/storage/sqlite"
	"github.com/sandevgo/omnimind/internal/stream"
	"github.com/sandevgo/omnimind/pkg/log"
)

type scriptedStream struct {
	deltas []core.Delta
}

func (p *scriptedStream) Chat(ctx context.Context, history []core.Message, opts core.ChatOptions) (core.Message, error) {
	return core.Message{}, errors.New("not implemented")
}

func (p *scriptedStream) ChatStream(ctx context.Context, history []core.Message, opts core.ChatOptions) (<-chan core.Delta, error) {
	out := make(chan core.Delta, len(p.deltas)+1)
	for _, d := range p.deltas {
		out <- d
	}
	out <- core.Delta{Kind: core.DeltaDone}
	close(out)
	return out, nil
}

type scriptedChat struct {
	reply string
}

func (p *scriptedChat) Chat(ctx context.Context, history []core.Message, opts core.ChatOptions) (core.Message, error) {
	return core.Message{Role: core.RoleAssistant, Content: p.reply}, nil
}

func (p *scriptedChat) ChatStream(ctx context.Context, history []core.Message, opts core.ChatOptions) (<-chan core.Delta, error) {
	return nil, errors.New("not implemented")
}

type noVector struct{}

func (noVector) Store(ctx context.Context, facts []string, userKey, sessionID string) error {
	return core.ErrNotConfigured
}

func (noVector) Search(ctx context.Context, query, userKey string) ([]string, error) {
	return nil, core.ErrNotConfigured
}

func newTestServer(t *testing.T) (*httptest.Server, *memory.Service) {
	t.Helper()

	ctx, cleanup := log.NewContextWithLogger(context.Background(), false)
	t.Cleanup(cleanup)

	db, err := sqlite.NewDB(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rules := sqlite.NewRules(db)
	sessions := sqlite.NewSessions(db)
	mem := memory.NewService(rules, noVector{})

	orch := chat.NewOrchestrator(chat.Deps{
		Provider:    &scriptedStream{deltas: []core.Delta{{Kind: core.DeltaContent, Text: "Hello there!"}}},
		Fast:        &scriptedChat{reply: "Friendly Greetings"},
		Memory:      mem,
		Extractor:   memory.NewExtractor(&scriptedChat{reply: `{"hard_rules": [], "soft_facts": []}`}, &scriptedChat{reply: `{}`}, mem),
		History:     sqlite.NewHistory(db),
		Sessions:    sessions,
		WindowSize:  20,
		TokenBudget: 4096,
		CountTokens: func(s string) int { return len(s) },
	})

	handlers := NewHandlers(ctx, orch, mem, sessions)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat", handlers.Chat)
	mux.HandleFunc("GET /v1/rules", handlers.ListRules)
	mux.HandleFunc("DELETE /v1/rules", handlers.DeleteRule)
	mux.HandleFunc("POST /v1/rules/toggle", handlers.ToggleRule)
	mux.HandleFunc("GET /v1/sessions/{id}", handlers.GetSession)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, mem
}

func TestChatEndpointStreamsTaggedChunks(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/chat", "application/json",
		strings.NewReader(`{"message": "hi", "sessionId": "s1", "reasoning": false}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	collector := stream.NewCollector()
	decoder := stream.NewDecoder(collector)
	_, err = decoder.Write(body)
	require.NoError(t, err)
	decoder.Flush()

	assert.Equal(t, "Hello there!", collector.Content())
	assert.Equal(t, "Friendly Greetings", collector.Title())

	// The title landed on the session row too.
	sessResp, err := http.Get(srv.URL + "/v1/sessions/s1")
	require.NoError(t, err)
	defer sessResp.Body.Close()
	require.Equal(t, http.StatusOK, sessResp.StatusCode)

	sessBody, err := io.ReadAll(sessResp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(sessBody), "Friendly Greetings")
}

func TestChatEndpointRejectsBadRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	for name, body := range map[string]string{
		"empty body":      ``,
		"missing message": `{"sessionId": "s1"}`,
		"blank message":   `{"message": "   ", "sessionId": "s1"}`,
		"missing session": `{"message": "hi"}`,
	} {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/v1/chat", "application/json", strings.NewReader(body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestRulesEndpoints(t *testing.T) {
	srv, mem := newTestServer(t)
	ctx := context.Background()

	rule, err := mem.AddHardRule(ctx, "always answer in Polish")
	require.NoError(t, err)

	// List shows the rule.
	resp, err := http.Get(srv.URL + "/v1/rules")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "always answer in Polish")

	// Toggle off.
	resp, err = http.Post(srv.URL+"/v1/rules/toggle", "application/json",
		strings.NewReader(`{"id": "`+rule.ID+`", "active": false}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rules, err := mem.ListHardRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.False(t, rules[0].IsActive)

	// Delete, idempotently.
	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/rules",
			strings.NewReader(`{"id": "`+rule.ID+`"}`))
		resp, err = http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	rules, err = mem.ListHardRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestGetSessionNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/sessions/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
