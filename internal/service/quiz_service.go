package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"quizstack/internal/metrics"
	"quizstack/internal/models"
	"quizstack/internal/repository"
	"quizstack/internal/security"
)

// SessionDefaults are applied to every session the service starts
type SessionDefaults struct {
	Duration        time.Duration
	TickInterval    time.Duration
	TransitionDelay time.Duration
	TTL             time.Duration
}

// QuizService owns the in-memory registry of running quiz sessions
type QuizService struct {
	ctx      context.Context
	quizRepo *repository.QuizRepository
	results  *ResultService
	tokens   *security.TokenIssuer
	defaults SessionDefaults
	log      *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewQuizService creates a quiz service. Session countdowns stop when ctx is cancelled.
func NewQuizService(ctx context.Context, quizRepo *repository.QuizRepository, results *ResultService, tokens *security.TokenIssuer, defaults SessionDefaults, log *zap.Logger) *QuizService {
	return &QuizService{
		ctx:      ctx,
		quizRepo: quizRepo,
		results:  results,
		tokens:   tokens,
		defaults: defaults,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// ListQuizzes returns every stored quiz
func (s *QuizService) ListQuizzes() ([]models.QuizSummary, error) {
	return s.quizRepo.ListQuizzes()
}

// GetQuiz returns a quiz with its questions
func (s *QuizService) GetQuiz(quizID int64) (*models.Quiz, error) {
	quiz, err := s.quizRepo.GetQuizByID(quizID)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, ErrQuizNotFound
	}
	return quiz, nil
}

// StartSession starts a timed session for a quiz and returns it with the
// bearer token that authorizes further events.
func (s *QuizService) StartSession(quizID int64) (*Session, string, error) {
	quiz, err := s.GetQuiz(quizID)
	if err != nil {
		return nil, "", err
	}
	if len(quiz.Questions) == 0 {
		return nil, "", ErrEmptyQuiz
	}

	id := security.GenerateSessionID()
	token, err := s.tokens.Issue(id, quiz.ID)
	if err != nil {
		return nil, "", err
	}

	session := NewSession(id, quiz, SessionOptions{
		Duration:        quiz.Duration(s.defaults.Duration),
		TickInterval:    s.defaults.TickInterval,
		TransitionDelay: s.defaults.TransitionDelay,
		OnComplete: func(answers models.AnswerMap) {
			s.log.Info("Quiz completed", zap.String("session_id", id), zap.Int("answers", len(answers)))
		},
		OnFinish: s.recordResult,
	}, s.log)

	s.mu.Lock()
	s.sessions[id] = session
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	session.Start(s.ctx)
	s.log.Info("Quiz session started", zap.String("session_id", id), zap.Int64("quiz_id", quiz.ID))
	return session, token, nil
}

func (s *QuizService) recordResult(result models.QuizResult) {
	if s.results == nil {
		return
	}
	if err := s.results.Record(s.ctx, result); err != nil {
		s.log.Error("Failed to record quiz result", zap.String("session_id", result.SessionID), zap.Error(err))
	}
}

// GetSession looks up a running or recently finished session
func (s *QuizService) GetSession(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// VerifyToken checks that token was issued for sessionID, whether or not the
// session is still held in memory.
func (s *QuizService) VerifyToken(sessionID, token string) error {
	_, err := s.tokens.Verify(token, sessionID)
	return err
}

// AuthorizeSession returns the session if token was issued for it
func (s *QuizService) AuthorizeSession(sessionID, token string) (*Session, error) {
	if err := s.VerifyToken(sessionID, token); err != nil {
		return nil, err
	}
	return s.GetSession(sessionID)
}

// EndSession abandons the session if it is still running and forgets it
func (s *QuizService) EndSession(sessionID string) error {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
		metrics.ActiveSessions.Set(float64(len(s.sessions)))
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	session.Abandon()
	return nil
}

// ActiveSessions returns the number of sessions held in memory
func (s *QuizService) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CleanupExpiredSessions drops sessions that finished more than the TTL ago
// and abandons sessions idle for longer than the TTL. It returns the number
// of sessions removed.
func (s *QuizService) CleanupExpiredSessions(now time.Time) int {
	ttl := s.defaults.TTL
	if ttl <= 0 {
		return 0
	}

	var stale []*Session
	removed := 0
	s.mu.Lock()
	for id, session := range s.sessions {
		finishedAt, finished := session.Finished()
		last := session.LastActivity()
		if finished {
			last = finishedAt
		}
		if now.Sub(last) > ttl {
			delete(s.sessions, id)
			removed++
			if !finished {
				stale = append(stale, session)
			}
		}
	}
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	for _, session := range stale {
		session.Abandon()
	}
	return removed
}

// RunCleanup sweeps expired sessions every interval until ctx is cancelled
func (s *QuizService) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.CleanupExpiredSessions(now); n > 0 {
				s.log.Info("Cleaned up expired quiz sessions", zap.Int("count", n))
			}
		}
	}
}

// Shutdown abandons every running session so its result is recorded
func (s *QuizService) Shutdown() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.sessions = make(map[string]*Session)
	metrics.ActiveSessions.Set(0)
	s.mu.Unlock()

	abandoned := 0
	for _, session := range sessions {
		if session.Abandon() {
			abandoned++
		}
	}
	if abandoned > 0 {
		s.log.Info("Abandoned running quiz sessions on shutdown", zap.Int("count", abandoned))
	}
}
