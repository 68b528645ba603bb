package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// Routes groups the handlers that make up the HTTP API
type Routes struct {
	Middleware *Middleware
	Quiz       *QuizHandler
	Stream     *StreamHandler
	Admin      *AdminHandler
	Health     *HealthHandler
	Metrics    http.Handler
	Log        *zap.Logger
}

// Handler builds the mux and wraps it with readiness, recovery and logging
func (rt *Routes) Handler() http.Handler {
	m := rt.Middleware
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", rt.Health.Health)
	if rt.Metrics != nil {
		mux.Handle("GET /metrics", rt.Metrics)
	}

	// Quiz catalogue
	mux.HandleFunc("GET /api/quizzes", rt.Quiz.ListQuizzes)
	mux.HandleFunc("GET /api/quizzes/{id}", rt.Quiz.GetQuiz)
	mux.HandleFunc("POST /api/quizzes/{id}/sessions", m.RateLimit(rt.Quiz.StartSession))

	// Session events, authorized by the bearer token issued at start
	mux.HandleFunc("GET /api/sessions/{id}", m.RequireSession(rt.Quiz.GetSession))
	mux.HandleFunc("DELETE /api/sessions/{id}", m.RequireSession(rt.Quiz.EndSession))
	mux.HandleFunc("POST /api/sessions/{id}/answer", m.RateLimit(m.RequireSession(rt.Quiz.SubmitAnswer)))
	mux.HandleFunc("POST /api/sessions/{id}/skip", m.RateLimit(m.RequireSession(rt.Quiz.Skip)))
	mux.HandleFunc("POST /api/sessions/{id}/undo", m.RateLimit(m.RequireSession(rt.Quiz.Undo)))
	mux.HandleFunc("GET /api/sessions/{id}/result", rt.Quiz.GetResult)
	mux.HandleFunc("GET /api/sessions/{id}/stream", m.RequireSession(rt.Stream.Stream))

	// Admin routes
	mux.HandleFunc("POST /admin/quizzes", m.RateLimit(m.RequireAdmin(rt.Admin.ImportBank)))
	mux.HandleFunc("GET /admin/quizzes/export", m.RequireAdmin(rt.Admin.ExportBank))
	mux.HandleFunc("DELETE /admin/quizzes/{id}", m.RequireAdmin(rt.Admin.DeleteQuiz))
	mux.HandleFunc("GET /admin/results", m.RequireAdmin(rt.Admin.ListResults))

	return Logging(rt.Log, Recover(rt.Log, rt.Health.RequireReady(mux)))
}
