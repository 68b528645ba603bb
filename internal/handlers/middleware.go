package handlers

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"quizstack/internal/metrics"
	"quizstack/internal/security"
	"quizstack/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const SessionContextKey ContextKey = "quiz_session"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	quizService *service.QuizService
	limiter     *security.RateLimiter
	admin       *security.AdminAuth
	log         *zap.Logger
}

// NewMiddleware creates a new middleware instance. limiter and admin may be nil.
func NewMiddleware(quizService *service.QuizService, limiter *security.RateLimiter, admin *security.AdminAuth, log *zap.Logger) *Middleware {
	return &Middleware{
		quizService: quizService,
		limiter:     limiter,
		admin:       admin,
		log:         log,
	}
}

// RequireSession resolves the {id} session and checks its bearer token
func (m *Middleware) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")
		token := tokenFromRequest(r)
		if token == "" {
			respondWithError(m.log, w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		session, err := m.quizService.AuthorizeSession(sessionID, token)
		switch {
		case errors.Is(err, security.ErrInvalidToken):
			respondWithError(m.log, w, http.StatusUnauthorized, ErrUnauthorized, "Rejected session token", err)
			return
		case errors.Is(err, service.ErrSessionNotFound):
			respondWithError(m.log, w, http.StatusNotFound, ErrSessionNotFoundMsg, "", nil)
			return
		case err != nil:
			respondWithError(m.log, w, http.StatusInternalServerError, ErrInternalServerError, "Failed to authorize session", err)
			return
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, session)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin checks basic auth credentials against the configured admin hash
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.admin == nil {
			respondWithError(m.log, w, http.StatusServiceUnavailable, ErrServiceUnavailableMsg, "", nil)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || !m.admin.Check(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="quizstack admin"`)
			respondWithError(m.log, w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}
		next(w, r)
	}
}

// RateLimit rejects clients that exceed the configured request rate
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter != nil && !m.limiter.Allow(security.GetClientIP(r)) {
			respondWithError(m.log, w, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}
		next(w, r)
	}
}

// GetSessionFromContext retrieves the quiz session from the request context
func GetSessionFromContext(ctx context.Context) *service.Session {
	session, ok := ctx.Value(SessionContextKey).(*service.Session)
	if !ok {
		return nil
	}
	return session
}

func tokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(auth, BearerPrefix))
	}
	return r.URL.Query().Get(TokenQueryParam)
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes through to the underlying writer for websocket upgrades
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// Logging middleware logs HTTP requests and records request metrics
func Logging(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())

		log.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", duration),
		)
	})
}

// Recover turns handler panics into 500 responses
func Recover(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				log.Error("Handler panic", zap.Any("panic", v), zap.String("path", r.URL.Path), zap.Stack("stack"))
				respondWithError(log, w, http.StatusInternalServerError, ErrInternalServerError, "", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
