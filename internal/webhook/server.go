// Package webhook serves the WhatsApp Cloud webhook.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/metalagman/coopfunnel/internal/conversation"
	"github.com/metalagman/coopfunnel/internal/inbound"
	"github.com/rs/zerolog/log"
)

const maxBody = 1 << 20

// TurnHandler processes one canonical message for a user.
type TurnHandler interface {
	Handle(ctx context.Context, userID, displayName, text string) (conversation.Result, error)
}

// Normalizer turns a channel message into canonical text.
type Normalizer interface {
	Normalize(ctx context.Context, msg inbound.Message) string
}

// Config holds the server collaborators. Metrics and Health are optional.
type Config struct {
	VerifyToken string
	Turns       TurnHandler
	Normalizer  Normalizer
	Metrics     http.Handler
	Health      func(ctx context.Context) error
}

// Server provides the webhook handlers.
type Server struct {
	cfg Config
}

// NewServer creates a new webhook server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.VerifyToken == "" {
		return nil, fmt.Errorf("verify token is required")
	}
	if cfg.Turns == nil || cfg.Normalizer == nil {
		return nil, fmt.Errorf("turn handler and normalizer are required")
	}
	return &Server{cfg: cfg}, nil
}

// Routes returns the router for the webhook.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /webhook", s.handleVerify)
	mux.HandleFunc("POST /webhook", s.handleEvent)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.cfg.Metrics != nil {
		mux.Handle("GET /metrics", s.cfg.Metrics)
	}
	return mux
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || q.Get("hub.verify_token") != s.cfg.VerifyToken {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(q.Get("hub.challenge")))
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var p inbound.Payload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&p); err != nil {
		log.Warn().Err(err).Msg("webhook: bad payload")
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	ev, ok := inbound.Extract(p)
	if !ok {
		// Status callbacks and other deliveries without a user message.
		writeOK(w)
		return
	}

	text := s.cfg.Normalizer.Normalize(r.Context(), ev.Message)
	if _, err := s.cfg.Turns.Handle(r.Context(), ev.UserID, ev.DisplayName, text); err != nil {
		log.Warn().Err(err).Str("user_id", ev.UserID).Msg("webhook: turn failed")
	}
	writeOK(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Health != nil {
		if err := s.cfg.Health(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	writeOK(w)
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}
