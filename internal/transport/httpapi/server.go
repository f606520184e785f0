// Package httpapi exposes the chat turn and the rule management
// surface over HTTP. The chat endpoint speaks the tagged substream
// wire format; everything else is plain JSON.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sandevgo/omnimind/pkg/log"
)

type Server struct {
	srv *http.Server
}

func NewServer(addr string, h *Handlers) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat", h.Chat)
	mux.HandleFunc("GET /v1/rules", h.ListRules)
	mux.HandleFunc("DELETE /v1/rules", h.DeleteRule)
	mux.HandleFunc("POST /v1/rules/toggle", h.ToggleRule)
	mux.HandleFunc("GET /v1/sessions/{id}", h.GetSession)

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			// No write timeout: chat responses stream for as long as
			// the model generates.
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Str("addr", s.srv.Addr).Msg("http server listening")

	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
