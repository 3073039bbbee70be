// Package http exposes the bot over the WhatsApp webhook, plus health and metrics endpoints.
package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/internal/logging"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/adapters/whatsapp"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MaxBodySize caps webhook payloads.
const MaxBodySize = 1 << 20

// Dispatcher accepts inbound messages for background processing.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg domain.Message)
}

// Server serves the webhook routes.
type Server struct {
	bot         Dispatcher
	verifyToken string
	appSecret   string
	metrics     http.Handler
	health      func(context.Context) error
	version     string
	logger      *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithAppSecret enables X-Hub-Signature-256 verification of webhook posts.
func WithAppSecret(secret string) Option {
	return func(s *Server) {
		s.appSecret = secret
	}
}

// WithMetrics mounts a metrics handler at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithHealthCheck makes /health report the result of check, typically a store ping.
func WithHealthCheck(check func(context.Context) error) Option {
	return func(s *Server) {
		s.health = check
	}
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler. verifyToken answers the subscription handshake.
func NewHandler(bot Dispatcher, verifyToken string, opts ...Option) http.Handler {
	s := &Server{
		bot:         bot,
		verifyToken: verifyToken,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/webhook", s.Verify)
	r.Post("/webhook", s.Receive)
	r.Get("/health", s.GetHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r
}

// Verify handles the GET /webhook subscription handshake.
func (s *Server) Verify(w http.ResponseWriter, r *http.Request) {
	challenge, ok := whatsapp.Verify(r.URL.Query(), s.verifyToken)
	if !ok {
		s.logger.Warn("Webhook verification failed", "remote", r.RemoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	s.logger.Info("Webhook verified")
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, challenge)
}

// Receive handles POST /webhook. It acknowledges as soon as the payload is
// parsed; messages are processed in the background so the provider does not
// time out and redeliver.
func (s *Server) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if s.appSecret != "" && !validSignature(body, r.Header.Get("X-Hub-Signature-256"), s.appSecret) {
		s.logger.Warn("Webhook signature mismatch", "remote", r.RemoteAddr)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	msgs, err := whatsapp.ParseWebhook(body)
	if err != nil {
		// Acknowledge anyway: a payload we cannot parse will not parse on redelivery either.
		s.logger.Warn("Ignoring malformed webhook payload", "err", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	for _, msg := range msgs {
		s.logger.Debug("Webhook message received", "message_id", msg.ID, "kind", msg.Kind)
		s.bot.Dispatch(r.Context(), msg)
	}
	w.WriteHeader(http.StatusOK)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	if s.version != "" {
		resp["version"] = s.version
	}
	status := http.StatusOK
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			status = http.StatusServiceUnavailable
			resp["status"] = "unavailable"
			resp["error"] = err.Error()
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Health response encode failed", "err", err)
	}
}

func validSignature(body []byte, header, secret string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
