package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"quizstack/internal/models"
	"quizstack/internal/repository"
)

// ResultService records finished sessions and reports on them
type ResultService struct {
	resultRepo *repository.ResultRepository
	quizRepo   *repository.QuizRepository
	notifier   *NotificationService
	log        *zap.Logger
}

// NewResultService creates a result service. notifier may be nil.
func NewResultService(resultRepo *repository.ResultRepository, quizRepo *repository.QuizRepository, notifier *NotificationService, log *zap.Logger) *ResultService {
	return &ResultService{
		resultRepo: resultRepo,
		quizRepo:   quizRepo,
		notifier:   notifier,
		log:        log,
	}
}

// Record stores a finished session and sends the result e-mail. A failed
// e-mail is logged, not returned.
func (s *ResultService) Record(ctx context.Context, result models.QuizResult) error {
	if !result.Outcome.Valid() {
		return fmt.Errorf("invalid outcome %q", result.Outcome)
	}
	if _, err := s.resultRepo.SaveResult(&result); err != nil {
		if errors.Is(err, repository.ErrDuplicateResult) {
			s.log.Debug("Result already recorded", zap.String("session_id", result.SessionID))
			return nil
		}
		return err
	}

	if s.notifier.IsEnabled() {
		quiz, err := s.quizRepo.GetQuizByID(result.QuizID)
		if err != nil {
			s.log.Warn("Failed to load quiz for result e-mail", zap.Int64("quiz_id", result.QuizID), zap.Error(err))
		}
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		if err := s.notifier.SendResult(sendCtx, quiz, result); err != nil {
			s.log.Error("Failed to send result e-mail", zap.String("session_id", result.SessionID), zap.Error(err))
		}
	}
	return nil
}

// GetResult returns the recorded result for a session
func (s *ResultService) GetResult(sessionID string) (*models.QuizResult, error) {
	result, err := s.resultRepo.GetResultBySession(sessionID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, ErrSessionNotFound
	}
	return result, nil
}

// ListResults returns recorded results, newest first
func (s *ResultService) ListResults(quizID int64, limit int) ([]models.QuizResult, error) {
	return s.resultRepo.ListResults(quizID, limit)
}
