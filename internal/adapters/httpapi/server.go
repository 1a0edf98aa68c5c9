// Package httpapi is the HTTP boundary of the wallet daemon. Every request is
// resolved to an Operation once, then dispatched to the signing service or the
// ceremony opener.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"walletd/go-backend/internal/challenge"
	"walletd/go-backend/internal/platform/ratelimiter"
	"walletd/go-backend/internal/session"
	"walletd/go-backend/internal/signing"
	"walletd/go-backend/internal/vault"
)

const (
	componentName = "httpapi"

	// MaxPayloadBytes bounds the body of a sign request.
	MaxPayloadBytes = 1 << 20
	maxJSONBytes    = 16 << 10

	shutdownTimeout = 5 * time.Second
)

// VaultState reports whether the root key is available.
type VaultState interface {
	State() vault.State
}

type Deps struct {
	Vault   VaultState
	Signer  *signing.Service
	Opener  *signing.Opener
	Limiter *ratelimiter.MapLimiter
	Logger  *slog.Logger
}

type Server struct {
	httpServer *http.Server
	vault      VaultState
	signer     *signing.Service
	opener     *signing.Opener
	limiter    *ratelimiter.MapLimiter
	metrics    *metrics
	logger     *slog.Logger
	now        func() time.Time
}

func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		vault:   deps.Vault,
		signer:  deps.Signer,
		opener:  deps.Opener,
		limiter: deps.Limiter,
		metrics: newMetrics(),
		logger:  logger,
		now:     time.Now,
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	default:
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "component", componentName, "operation", "run", "addr", s.httpServer.Addr)
		err := s.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
			return
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	op, status := resolveOperation(r.Method, r.URL.Path)
	switch status {
	case http.StatusNotFound:
		http.NotFound(w, r)
		return
	case http.StatusMethodNotAllowed:
		w.Header().Set("Allow", allowedMethods(r.URL.Path))
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if op.rateLimited() && !s.limiter.Allow(ratelimiter.ClientKey(r), s.now()) {
		s.logger.WarnContext(r.Context(), "rate limited", "component", componentName, "operation", op.String())
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	switch op {
	case OpChallengeRegistration:
		s.handleChallenge(w, r, challenge.KindRegistration)
	case OpChallengeAuthentication:
		s.handleChallenge(w, r, challenge.KindAuthentication)
	case OpRegister:
		s.handleRegister(w, r)
	case OpUnlock:
		s.handleUnlock(w, r)
	case OpSign:
		s.handleSign(w, r)
	case OpAccount:
		s.handleAccount(w, r)
	case OpHealth:
		s.handleHealth(w, r)
	case OpMetrics:
		s.metrics.handler.ServeHTTP(w, r)
	}
}

type challengeResponse struct {
	challenge.Challenge
	// Message is the exact byte string to sign, base64 encoded.
	Message []byte `json:"message"`
}

func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request, kind challenge.Kind) {
	user := r.URL.Query().Get("user")
	var (
		c   challenge.Challenge
		err error
	)
	if kind == challenge.KindRegistration {
		c, err = s.opener.ChallengeForRegistration(r.Context(), user)
	} else {
		c, err = s.opener.ChallengeForAuthentication(r.Context(), user)
	}
	if err != nil {
		s.writeError(w, r, "issue_challenge", err)
		return
	}
	s.metrics.challengesIssued.WithLabelValues(string(kind)).Inc()
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, challengeResponse{Challenge: c, Message: c.Message()})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req signing.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, "register", err)
		return
	}
	cookie, err := s.opener.Register(r.Context(), req)
	if err != nil {
		s.writeError(w, r, "register", err)
		return
	}
	s.metrics.sessionsOpened.WithLabelValues("register").Inc()
	http.SetCookie(w, cookie)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req signing.UnlockRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, "unlock", err)
		return
	}
	cookie, err := s.opener.Unlock(r.Context(), req)
	if err != nil {
		s.writeError(w, r, "unlock", err)
		return
	}
	s.metrics.sessionsOpened.WithLabelValues("unlock").Inc()
	http.SetCookie(w, cookie)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSign(w http.ResponseWriter, r *http.Request) {
	started := s.now()
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxPayloadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.writeError(w, r, "sign", fmt.Errorf("%w: %v", errBadRequestBody, err))
		return
	}
	sig, err := s.signer.Sign(r.Context(), session.CookieHeader(r), payload)
	s.metrics.signRequests.WithLabelValues(metricResult(err)).Inc()
	if err != nil {
		s.writeError(w, r, "sign", err)
		return
	}
	s.metrics.signDuration.Observe(time.Since(started).Seconds())
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(sig)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := s.signer.Account(r.Context(), session.CookieHeader(r))
	if err != nil {
		s.writeError(w, r, "account", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, acct)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	state := s.vault.State()
	if state != vault.Unlocked {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "vault": state.String()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "vault": state.String()})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, body := statusFor(err)
	level := slog.LevelDebug
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed", "component", componentName, "operation", operation, "status", status, "error", err)
	http.Error(w, body, status)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequestBody, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
