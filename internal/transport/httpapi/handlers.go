package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sandevgo/omnimind/internal/core"
	"github.com/sandevgo/omnimind/internal/service/chat"
	"github.com/sandevgo/omnimind/internal/service/memory"
	"github.com/sandevgo/omnimind/internal/storage/sqlite"
	"github.com/sandevgo/omnimind/internal/stream"
	"github.com/sandevgo/omnimind/pkg/log"
)

type Handlers struct {
	orch     *chat.Orchestrator
	memory   *memory.Service
	sessions core.SessionsRepository
	logCtx   context.Context
}

// NewHandlers wires the request handlers. logCtx carries the process
// logger; request contexts are derived from it so handler logs keep
// the configured sink.
func NewHandlers(logCtx context.Context, orch *chat.Orchestrator, mem *memory.Service, sessions core.SessionsRepository) *Handlers {
	return &Handlers{orch: orch, memory: mem, sessions: sessions, logCtx: logCtx}
}

func (h *Handlers) ctx(r *http.Request) context.Context {
	return log.FromCtx(h.logCtx).WithContext(r.Context())
}

// Chat runs one conversational turn and streams the tagged substream
// bytes as a chunked plain-text response.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := h.ctx(r)

	var req core.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "message and sessionId are required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	sink := stream.NewFlushingEncoder(w, flusher.Flush)
	if err := h.orch.Run(ctx, req, sink); err != nil {
		// Headers are gone; all we can do is log and drop the conn.
		log.FromCtx(ctx).Error().Err(err).Msg("chat turn failed mid-stream")
	}
}

func (h *Handlers) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.memory.ListHardRules(h.ctx(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if rules == nil {
		rules = []core.HardRule{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (h *Handlers) DeleteRule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.memory.DeleteHardRule(h.ctx(r), req.ID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": req.ID})
}

func (h *Handlers) ToggleRule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     string `json:"id"`
		Active bool   `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.memory.SetHardRuleActive(h.ctx(r), req.ID, req.Active); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": req.ID, "active": req.Active})
}

func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(h.ctx(r), r.PathValue("id"))
	if errors.Is(err, sqlite.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeStoreError(w http.ResponseWriter, err error) {
	var storeErr *core.MemoryStoreError
	if errors.As(err, &storeErr) {
		writeError(w, http.StatusInternalServerError, storeErr.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
