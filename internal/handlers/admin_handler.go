package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"quizstack/internal/service"
	"quizstack/internal/validation"
)

// AdminHandler handles question bank management and result export
type AdminHandler struct {
	bankService   *service.BankService
	resultService *service.ResultService
	log           *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(bankService *service.BankService, resultService *service.ResultService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		bankService:   bankService,
		resultService: resultService,
		log:           log,
	}
}

// ImportBank stores every quiz of a YAML bank posted as the request body
func (h *AdminHandler) ImportBank(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBankSize)

	imported, err := h.bankService.ImportFromReader(r.Body)
	if err != nil {
		var vErr validation.ValidationError
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &vErr):
			respondWithError(h.log, w, http.StatusUnprocessableEntity, vErr.Error(), "Rejected question bank", err)
		case errors.As(err, &tooLarge):
			respondWithError(h.log, w, http.StatusRequestEntityTooLarge, "Question bank too large", "", nil)
		case errors.Is(err, service.ErrMalformedBank):
			respondWithError(h.log, w, http.StatusBadRequest, "Question bank is not valid YAML", "Rejected question bank", err)
		default:
			respondWithError(h.log, w, http.StatusInternalServerError, "Failed to import question bank", "Error importing question bank", err)
		}
		return
	}

	h.log.Info("Question bank imported", zap.Int("quizzes", len(imported)))
	respondWithJSON(h.log, w, http.StatusCreated, imported)
}

// ExportBank downloads every stored quiz as YAML
func (h *AdminHandler) ExportBank(w http.ResponseWriter, r *http.Request) {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("quizstack_bank_%s.yaml", timestamp)
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if err := h.bankService.ExportBankToWriter(w); err != nil {
		// Headers are already out; all we can do is log.
		h.log.Error("Error exporting question bank", zap.Error(err))
	}
}

// DeleteQuiz removes a quiz with its questions and results
func (h *AdminHandler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || quizID <= 0 {
		respondWithError(h.log, w, http.StatusBadRequest, "Invalid quiz ID", "", nil)
		return
	}

	if err := h.bankService.DeleteQuiz(quizID); err != nil {
		if errors.Is(err, service.ErrQuizNotFound) {
			respondWithError(h.log, w, http.StatusNotFound, ErrQuizNotFoundMsg, "", nil)
			return
		}
		respondWithError(h.log, w, http.StatusInternalServerError, "Failed to delete quiz", "Error deleting quiz", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListResults returns recorded results, newest first. Optional query
// parameters quiz_id and limit narrow the listing.
func (h *AdminHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	var quizID int64
	if v := r.URL.Query().Get("quiz_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			respondWithError(h.log, w, http.StatusBadRequest, "Invalid quiz ID", "", nil)
			return
		}
		quizID = id
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondWithError(h.log, w, http.StatusBadRequest, "Invalid limit", "", nil)
			return
		}
		limit = n
	}

	results, err := h.resultService.ListResults(quizID, limit)
	if err != nil {
		respondWithError(h.log, w, http.StatusInternalServerError, ErrInternalServerError, "Failed to list results", err)
		return
	}
	respondWithJSON(h.log, w, http.StatusOK, results)
}
