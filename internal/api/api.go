// Package api is the JSON surface of the browser client. Each browser gets
// a cookie-bound client id that owns an identity session and a view
// controller.
package api

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/sessions"
	"github.com/patrickmn/go-cache"

	"github.com/joescharf/bugless/internal/identity"
	"github.com/joescharf/bugless/internal/metrics"
	"github.com/joescharf/bugless/internal/models"
	"github.com/joescharf/bugless/internal/review"
	"github.com/joescharf/bugless/internal/view"
)

// DefaultSessionTTL is how long an idle browser client is kept.
const DefaultSessionTTL = 24 * time.Hour

// History lists and records a user's past reviews.
type History interface {
	Save(ctx context.Context, uid string, rec models.ReviewRecord) error
	List(ctx context.Context, uid string) []models.ReviewRecord
}

// Config holds the dependencies of a Server. Analyzer and Metrics may be
// nil.
type Config struct {
	Gateway       *identity.Gateway
	History       History
	Analyzer      view.Analyzer
	Metrics       *metrics.Metrics
	SessionSecret []byte
	SessionTTL    time.Duration
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
	Logger        *slog.Logger
}

// Server provides the REST API handlers.
type Server struct {
	gateway  *identity.Gateway
	history  History
	analyzer view.Analyzer
	metrics  *metrics.Metrics
	ids      *view.IDs
	logger   *slog.Logger

	cookies sessions.Store
	ttl     time.Duration
	clients *cache.Cache
	mu      sync.Mutex
}

// NewServer creates a new API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	secret := cfg.SessionSecret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
	}

	cookies := sessions.NewCookieStore(secret)
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}

	s := &Server{
		gateway:  cfg.Gateway,
		history:  cfg.History,
		analyzer: cfg.Analyzer,
		metrics:  cfg.Metrics,
		ids:      view.NewIDs(),
		logger:   cfg.Logger.With("system", "api"),
		cookies:  cookies,
		ttl:      cfg.SessionTTL,
		clients:  cache.New(cfg.SessionTTL, cfg.SessionTTL/4),
	}
	s.clients.OnEvicted(s.evicted)
	return s, nil
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/state", s.getState)
	mux.HandleFunc("POST /api/v1/navigate", s.navigate)

	mux.HandleFunc("POST /api/v1/auth/signup", s.signUp)
	mux.HandleFunc("POST /api/v1/auth/login", s.login)
	mux.HandleFunc("POST /api/v1/auth/logout", s.logout)
	mux.HandleFunc("GET /api/v1/auth/google", s.googleStart)
	mux.HandleFunc("GET /api/v1/auth/google/callback", s.googleCallback)

	mux.HandleFunc("POST /api/v1/password/check", s.checkPassword)

	mux.HandleFunc("PUT /api/v1/profile/name", s.updateName)
	mux.HandleFunc("PUT /api/v1/profile/email", s.updateEmail)
	mux.HandleFunc("PUT /api/v1/profile/password", s.updatePassword)

	mux.HandleFunc("GET /api/v1/history", s.listHistory)

	mux.HandleFunc("POST /api/v1/workspace/start", s.startReview)
	mux.HandleFunc("PUT /api/v1/workspace", s.editWorkspace)
	mux.HandleFunc("POST /api/v1/workspace/review", s.runReview)
	mux.HandleFunc("GET /api/v1/workspace/report", s.exportReport)

	mux.HandleFunc("GET /api/v1/languages", s.listLanguages)

	mux.HandleFunc("GET /healthz", s.healthz)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

var errBadRequest = errors.New("invalid request body")

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// statusFor maps an error to its HTTP status. The error text itself is
// always safe to show.
func statusFor(err error) int {
	var idErr *identity.Error
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, view.ErrInvalidTarget),
		errors.Is(err, view.ErrUnknownLanguage),
		errors.Is(err, view.ErrEmptyCode):
		return http.StatusBadRequest
	case errors.Is(err, view.ErrNotSignedIn):
		return http.StatusUnauthorized
	case errors.Is(err, view.ErrReviewInProgress):
		return http.StatusConflict
	case errors.Is(err, review.ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, review.ErrValidation),
		errors.Is(err, review.ErrProvider),
		errors.Is(err, review.ErrUnknown):
		return http.StatusBadGateway
	case errors.As(err, &idErr):
		switch idErr.Message {
		case identity.MsgNoUser, identity.MsgInvalidLogin, identity.MsgWrongPassword:
			return http.StatusUnauthorized
		case identity.MsgEmailInUse:
			return http.StatusConflict
		case identity.MsgUnexpected, identity.MsgSignOutFailed:
			return http.StatusInternalServerError
		}
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", "status", status, "error", err)
	}
	writeError(w, status, err.Error())
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listLanguages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.Languages)
}
