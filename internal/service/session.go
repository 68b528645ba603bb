package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"quizstack/internal/metrics"
	"quizstack/internal/models"
	"quizstack/internal/quiz"
	"quizstack/internal/timer"
)

// SessionOptions tunes the runtime behaviour of a session
type SessionOptions struct {
	Duration        time.Duration
	TickInterval    time.Duration
	TransitionDelay time.Duration

	// OnComplete receives the answers once, on natural completion only
	OnComplete func(answers models.AnswerMap)
	// OnFinish runs once when the session ends for any reason
	OnFinish func(result models.QuizResult)
}

// Snapshot is the read-only view of a session handed to renderers
type Snapshot struct {
	SessionID        string           `json:"session_id"`
	QuizID           int64            `json:"quiz_id"`
	Phase            quiz.Phase       `json:"phase"`
	CurrentIndex     int              `json:"current_index"`
	Question         *models.Question `json:"question,omitempty"`
	Pending          bool             `json:"pending"`
	Answers          models.AnswerMap `json:"answers"`
	Skipped          []int            `json:"skipped"`
	HistoryLength    int              `json:"history_length"`
	Cards            []quiz.Card      `json:"cards"`
	RemainingSeconds int              `json:"remaining_seconds"`
	Clock            string           `json:"clock"`
	TimerActive      bool             `json:"timer_active"`
	TimedOut         bool             `json:"timed_out"`
	Outcome          models.Outcome   `json:"outcome,omitempty"`
}

// Session serializes every event for one quiz attempt. Submit and skip apply
// their record step at once and advance after the transition delay.
type Session struct {
	ID        string
	Quiz      *models.Quiz
	StartedAt time.Time

	opts      SessionOptions
	log       *zap.Logger
	scheduler Scheduler
	countdown *timer.Countdown

	mu           sync.Mutex
	state        quiz.State
	seq          uint64
	outcome      models.Outcome
	finishedAt   time.Time
	lastActivity time.Time
	subs         map[int]chan Snapshot
	nextSub      int
}

// NewSession builds a session for quiz. Call Start to begin the countdown.
func NewSession(id string, q *models.Quiz, opts SessionOptions, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now()
	s := &Session{
		ID:           id,
		Quiz:         q,
		StartedAt:    now,
		opts:         opts,
		log:          log.With(zap.String("session_id", id), zap.String("quiz", q.Slug)),
		state:        quiz.New(q.Questions),
		lastActivity: now,
		subs:         make(map[int]chan Snapshot),
	}
	s.countdown = timer.NewCountdown(opts.Duration, opts.TickInterval, func() { s.Timeout() })
	s.countdown.OnTick(s.onTick)
	return s
}

// Start activates the countdown. A quiz without questions finishes at once.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()

	if st.Completed {
		s.finish(st)
		return
	}
	s.countdown.Start(ctx)
}

// Submit answers the current question. It reports false when the event was ignored.
func (s *Session) Submit(option string) (Snapshot, bool) {
	return s.record(quiz.EventSubmit, func(st quiz.State) (quiz.State, bool) {
		return quiz.Answer(st, option)
	})
}

// Skip skips the current question
func (s *Session) Skip() (Snapshot, bool) {
	return s.record(quiz.EventSkip, quiz.SkipQuestion)
}

// Undo reverts the last answer or skip and cancels a pending advance
func (s *Session) Undo() (Snapshot, bool) {
	return s.apply(quiz.EventUndo, quiz.Undo)
}

// Timeout ends the session without firing OnComplete
func (s *Session) Timeout() bool {
	_, ok := s.apply(quiz.EventTimeout, quiz.Timeout)
	return ok
}

// Abandon ends an unfinished session, recording it as abandoned
func (s *Session) Abandon() bool {
	s.mu.Lock()
	if s.state.Completed {
		s.mu.Unlock()
		return false
	}
	s.scheduler.Cancel()
	next, _ := quiz.Timeout(s.state)
	s.state = next
	s.outcome = models.OutcomeAbandoned
	s.mu.Unlock()

	s.finish(next)
	return true
}

// record runs the first half of submit or skip and schedules the advance
func (s *Session) record(kind quiz.EventKind, step func(quiz.State) (quiz.State, bool)) (Snapshot, bool) {
	s.mu.Lock()
	next, ok := step(s.state)
	metrics.SessionEvents.WithLabelValues(string(kind), boolLabel(ok)).Inc()
	if !ok {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, false
	}
	s.state = next
	s.seq++
	seq := s.seq
	s.lastActivity = time.Now()

	if s.opts.TransitionDelay <= 0 {
		next, _ = quiz.Advance(s.state)
		s.state = next
		s.seq++
		s.broadcastLocked()
		snap := s.snapshotLocked()
		s.mu.Unlock()
		if next.Completed {
			s.finish(next)
			return s.Snapshot(), true
		}
		return snap, true
	}

	// Scheduled under s.mu so a later event can always cancel or replace it.
	s.scheduler.Schedule(s.opts.TransitionDelay, func() { s.advance(seq) })
	s.broadcastLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	return snap, true
}

// advance is the delayed second half of submit and skip. It only runs if no
// other event was accepted since the record step that scheduled it.
func (s *Session) advance(seq uint64) {
	s.mu.Lock()
	if s.seq != seq {
		s.mu.Unlock()
		return
	}
	next, ok := quiz.Advance(s.state)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.seq++
	s.broadcastLocked()
	s.mu.Unlock()

	if next.Completed {
		s.finish(next)
	}
}

// apply runs an event that takes effect immediately
func (s *Session) apply(kind quiz.EventKind, step func(quiz.State) (quiz.State, bool)) (Snapshot, bool) {
	s.mu.Lock()
	next, ok := step(s.state)
	metrics.SessionEvents.WithLabelValues(string(kind), boolLabel(ok)).Inc()
	if !ok {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, false
	}
	s.scheduler.Cancel()
	s.state = next
	s.seq++
	s.lastActivity = time.Now()
	s.broadcastLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if next.Completed {
		s.finish(next)
	}
	return snap, true
}

// finish stops the clock and notifies observers. Only the first call for a
// completed state has any effect.
func (s *Session) finish(final quiz.State) {
	s.countdown.Stop()

	s.mu.Lock()
	if !s.finishedAt.IsZero() {
		s.mu.Unlock()
		return
	}
	s.finishedAt = time.Now()
	if s.outcome == "" {
		if final.CompletedNaturally() {
			s.outcome = models.OutcomeCompleted
		} else {
			s.outcome = models.OutcomeTimedOut
		}
	}
	outcome := s.outcome
	result := s.resultLocked()
	s.broadcastLocked()
	s.closeSubscribersLocked()
	s.mu.Unlock()

	metrics.SessionsFinished.WithLabelValues(string(outcome)).Inc()
	s.log.Info("Quiz session finished",
		zap.String("outcome", string(outcome)),
		zap.Int("answered", result.AnsweredCount),
		zap.Int("total", result.TotalQuestions),
	)

	if outcome == models.OutcomeCompleted && s.opts.OnComplete != nil {
		s.opts.OnComplete(result.Answers.Clone())
	}
	if s.opts.OnFinish != nil {
		s.opts.OnFinish(result)
	}
}

func (s *Session) onTick(time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Completed {
		return
	}
	s.broadcastLocked()
}

// Snapshot returns the current view of the session
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// State returns a copy of the underlying state machine state
func (s *Session) State() quiz.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Finished reports whether the session has ended, and when
func (s *Session) Finished() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedAt, !s.finishedAt.IsZero()
}

// LastActivity returns the time of the last accepted event
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *Session) snapshotLocked() Snapshot {
	st := s.state
	remaining := s.countdown.Remaining()
	snap := Snapshot{
		SessionID:        s.ID,
		QuizID:           s.Quiz.ID,
		Phase:            st.Phase(),
		CurrentIndex:     st.Current,
		Pending:          st.Pending,
		Answers:          st.Answers.Clone(),
		Skipped:          append([]int{}, st.Skipped...),
		HistoryLength:    len(st.History),
		Cards:            quiz.Cards(st),
		RemainingSeconds: int(remaining / time.Second),
		Clock:            timer.FormatClock(remaining),
		TimerActive:      s.countdown.Active(),
		TimedOut:         st.TimedOut && s.outcome != models.OutcomeAbandoned,
		Outcome:          s.outcome,
	}
	if q, ok := st.CurrentQuestion(); ok {
		snap.Question = &q
	}
	return snap
}

func (s *Session) resultLocked() models.QuizResult {
	return models.QuizResult{
		SessionID:      s.ID,
		QuizID:         s.Quiz.ID,
		QuizSlug:       s.Quiz.Slug,
		Outcome:        s.outcome,
		Answers:        s.state.Answers.Clone(),
		AnsweredCount:  s.state.AnsweredCount(),
		TotalQuestions: len(s.state.Questions),
		StartedAt:      s.StartedAt,
		FinishedAt:     s.finishedAt,
	}
}

// Subscribe returns a channel that receives a snapshot after every change
// and every timer tick. Slow readers only see the latest snapshot. The
// channel is closed when the session finishes or cancel is called.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, 1)
	ch <- s.snapshotLocked()
	if !s.finishedAt.IsZero() {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Session) broadcastLocked() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Session) closeSubscribersLocked() {
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
