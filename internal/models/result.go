package models

import "time"

// Outcome describes how a quiz session ended
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeAbandoned Outcome = "abandoned"
)

// Valid reports whether o is a known outcome
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeCompleted, OutcomeTimedOut, OutcomeAbandoned:
		return true
	}
	return false
}

// AnswerMap maps question IDs to the chosen option
type AnswerMap map[int64]string

// Clone returns an independent copy of the map
func (m AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// QuizResult is the record kept for a finished session
type QuizResult struct {
	ID             int64     `json:"id"`
	SessionID      string    `json:"session_id"`
	QuizID         int64     `json:"quiz_id"`
	QuizSlug       string    `json:"quiz_slug"`
	Outcome        Outcome   `json:"outcome"`
	Answers        AnswerMap `json:"answers"`
	AnsweredCount  int       `json:"answered_count"`
	TotalQuestions int       `json:"total_questions"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Duration returns how long the session ran
func (r QuizResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
