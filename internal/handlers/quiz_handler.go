package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"quizstack/internal/security"
	"quizstack/internal/service"
)

// QuizHandler serves the quiz and session JSON API
type QuizHandler struct {
	quizService   *service.QuizService
	resultService *service.ResultService
	log           *zap.Logger
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(quizService *service.QuizService, resultService *service.ResultService, log *zap.Logger) *QuizHandler {
	return &QuizHandler{
		quizService:   quizService,
		resultService: resultService,
		log:           log,
	}
}

type startSessionResponse struct {
	SessionID string           `json:"session_id"`
	Token     string           `json:"token"`
	Snapshot  service.Snapshot `json:"snapshot"`
}

type eventResponse struct {
	Applied  bool             `json:"applied"`
	Snapshot service.Snapshot `json:"snapshot"`
}

type answerRequest struct {
	Option string `json:"option"`
}

// ListQuizzes returns every stored quiz
func (h *QuizHandler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizService.ListQuizzes()
	if err != nil {
		respondWithError(h.log, w, http.StatusInternalServerError, ErrInternalServerError, "Failed to list quizzes", err)
		return
	}
	respondWithJSON(h.log, w, http.StatusOK, quizzes)
}

// GetQuiz returns one quiz with its questions
func (h *QuizHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := h.quizIDFromPath(w, r)
	if !ok {
		return
	}

	quiz, err := h.quizService.GetQuiz(quizID)
	if errors.Is(err, service.ErrQuizNotFound) {
		respondWithError(h.log, w, http.StatusNotFound, ErrQuizNotFoundMsg, "", nil)
		return
	}
	if err != nil {
		respondWithError(h.log, w, http.StatusInternalServerError, ErrInternalServerError, "Failed to load quiz", err)
		return
	}
	respondWithJSON(h.log, w, http.StatusOK, quiz)
}

// StartSession starts a timed session and hands back its bearer token
func (h *QuizHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	quizID, ok := h.quizIDFromPath(w, r)
	if !ok {
		return
	}

	session, token, err := h.quizService.StartSession(quizID)
	switch {
	case errors.Is(err, service.ErrQuizNotFound):
		respondWithError(h.log, w, http.StatusNotFound, ErrQuizNotFoundMsg, "", nil)
		return
	case errors.Is(err, service.ErrEmptyQuiz):
		respondWithError(h.log, w, http.StatusUnprocessableEntity, "Quiz has no questions", "", nil)
		return
	case err != nil:
		respondWithError(h.log, w, http.StatusInternalServerError, ErrInternalServerError, "Failed to start session", err)
		return
	}

	respondWithJSON(h.log, w, http.StatusCreated, startSessionResponse{
		SessionID: session.ID,
		Token:     token,
		Snapshot:  session.Snapshot(),
	})
}

// GetSession returns the current snapshot
func (h *QuizHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		respondWithError(h.log, w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}
	respondWithJSON(h.log, w, http.StatusOK, session.Snapshot())
}

// SubmitAnswer records an answer for the current question
func (h *QuizHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		respondWithError(h.log, w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}

	var req answerRequest
	r.Body = http.MaxBytesReader(w, r.Body, 4096)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(h.log, w, http.StatusBadRequest, ErrInvalidRequest, "Malformed answer body", err)
		return
	}

	snapshot, applied := session.Submit(req.Option)
	respondWithJSON(h.log, w, http.StatusOK, eventResponse{Applied: applied, Snapshot: snapshot})
}

// Skip skips the current question
func (h *QuizHandler) Skip(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		respondWithError(h.log, w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}
	snapshot, applied := session.Skip()
	respondWithJSON(h.log, w, http.StatusOK, eventResponse{Applied: applied, Snapshot: snapshot})
}

// Undo reverts the most recent answer or skip
func (h *QuizHandler) Undo(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		respondWithError(h.log, w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}
	snapshot, applied := session.Undo()
	respondWithJSON(h.log, w, http.StatusOK, eventResponse{Applied: applied, Snapshot: snapshot})
}

// EndSession abandons the session and drops it from memory
func (h *QuizHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		respondWithError(h.log, w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}
	if err := h.quizService.EndSession(session.ID); err != nil && !errors.Is(err, service.ErrSessionNotFound) {
		respondWithError(h.log, w, http.StatusInternalServerError, ErrInternalServerError, "Failed to end session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetResult returns the recorded result of a finished session. The session
// itself may already have been swept, so only the token is checked.
func (h *QuizHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if err := h.quizService.VerifyToken(sessionID, tokenFromRequest(r)); err != nil {
		if !errors.Is(err, security.ErrInvalidToken) {
			h.log.Warn("Token verification failed", zap.Error(err))
		}
		respondWithError(h.log, w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}

	result, err := h.resultService.GetResult(sessionID)
	if errors.Is(err, service.ErrSessionNotFound) {
		respondWithError(h.log, w, http.StatusNotFound, "Result not recorded yet", "", nil)
		return
	}
	if err != nil {
		respondWithError(h.log, w, http.StatusInternalServerError, ErrInternalServerError, "Failed to load result", err)
		return
	}
	respondWithJSON(h.log, w, http.StatusOK, result)
}

func (h *QuizHandler) quizIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	quizID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || quizID <= 0 {
		respondWithError(h.log, w, http.StatusBadRequest, "Invalid quiz ID", "", nil)
		return 0, false
	}
	return quizID, true
}
