package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Startup step names, in the order the server runs them
const (
	StepDatabase   = "Database connection"
	StepMigrations = "Running migrations"
	StepServices   = "Initializing services"
	StepSeed       = "Seeding question banks"
	StepReady      = "Server ready"
)

// StartupStatus tracks the initialization progress
type StartupStatus struct {
	mu       sync.RWMutex
	Ready    bool
	Current  string
	Progress int
	Steps    []StartupStep
}

type startupView struct {
	Ready    bool          `json:"ready"`
	Current  string        `json:"current"`
	Progress int           `json:"progress"`
	Steps    []StartupStep `json:"steps"`
}

type StartupStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// NewStartupStatus creates a tracker for the given steps
func NewStartupStatus(steps ...string) *StartupStatus {
	status := &StartupStatus{Current: "Initializing..."}
	for _, name := range steps {
		status.Steps = append(status.Steps, StartupStep{Name: name})
	}
	return status
}

// DefaultStartupSteps is the step list used by the server
func DefaultStartupSteps() []string {
	return []string{StepDatabase, StepMigrations, StepServices, StepSeed, StepReady}
}

// SetCurrentStep updates the current initialization step
func (s *StartupStatus) SetCurrentStep(step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Current = step
}

// CompleteStep marks a step as completed and updates progress
func (s *StartupStatus) CompleteStep(stepName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.Steps {
		if s.Steps[i].Name == stepName {
			s.Steps[i].Completed = true
			break
		}
	}

	completed := 0
	for _, step := range s.Steps {
		if step.Completed {
			completed++
		}
	}
	if len(s.Steps) > 0 {
		s.Progress = (completed * 100) / len(s.Steps)
	}
}

// MarkReady marks the server as fully initialized
func (s *StartupStatus) MarkReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Steps {
		s.Steps[i].Completed = true
	}
	s.Ready = true
	s.Current = StepReady
	s.Progress = 100
}

// IsReady returns whether the server is fully initialized
func (s *StartupStatus) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Ready
}

func (s *StartupStatus) view() *startupView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &startupView{
		Ready:    s.Ready,
		Current:  s.Current,
		Progress: s.Progress,
		Steps:    append([]StartupStep(nil), s.Steps...),
	}
}

// Pinger is satisfied by *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SessionCounter reports how many sessions are held in memory
type SessionCounter interface {
	ActiveSessions() int
}

type healthResponse struct {
	Status         string         `json:"status"`
	Database       string         `json:"database"`
	ActiveSessions int            `json:"active_sessions"`
	Startup        *startupView   `json:"startup,omitempty"`
}

// HealthHandler reports liveness and startup progress
type HealthHandler struct {
	status   *StartupStatus
	db       Pinger
	sessions SessionCounter
	log      *zap.Logger
}

// NewHealthHandler creates a health handler. db and sessions may be nil
// while the server is still starting.
func NewHealthHandler(status *StartupStatus, db Pinger, sessions SessionCounter, log *zap.Logger) *HealthHandler {
	return &HealthHandler{status: status, db: db, sessions: sessions, log: log}
}

// Health answers 200 once startup finished and the database responds
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if !h.status.IsReady() {
		respondWithJSON(h.log, w, http.StatusServiceUnavailable, healthResponse{
			Status:   "starting",
			Database: "unknown",
			Startup:  h.status.view(),
		})
		return
	}

	resp := healthResponse{Status: "ok", Database: "ok"}
	if h.sessions != nil {
		resp.ActiveSessions = h.sessions.ActiveSessions()
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.log.Error("Health check database ping failed", zap.Error(err))
			resp.Status = "degraded"
			resp.Database = "unreachable"
			respondWithJSON(h.log, w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	respondWithJSON(h.log, w, http.StatusOK, resp)
}

// RequireReady answers 503 for every request until startup has finished
func (h *HealthHandler) RequireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.status.IsReady() && r.URL.Path != "/healthz" {
			w.Header().Set("Retry-After", "2")
			respondWithError(h.log, w, http.StatusServiceUnavailable, ErrServiceUnavailableMsg, "", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
