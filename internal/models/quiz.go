package models

import "time"

// Question is a single quiz card. It is never mutated once a session starts.
type Question struct {
	ID      int64    `json:"id" yaml:"id"`
	Prompt  string   `json:"prompt" yaml:"prompt"`
	Options []string `json:"options" yaml:"options"`
}

// HasOption reports whether option is one of the question's choices
func (q Question) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}

// Quiz is a stored, ordered question bank
type Quiz struct {
	ID              int64      `json:"id" yaml:"-"`
	Slug            string     `json:"slug" yaml:"slug"`
	Title           string     `json:"title" yaml:"title"`
	DurationSeconds int        `json:"duration_seconds" yaml:"duration_seconds"`
	Questions       []Question `json:"questions" yaml:"questions"`
	CreatedAt       time.Time  `json:"created_at" yaml:"-"`
}

// Duration returns the countdown length, falling back to def when unset
func (q Quiz) Duration(def time.Duration) time.Duration {
	if q.DurationSeconds <= 0 {
		return def
	}
	return time.Duration(q.DurationSeconds) * time.Second
}

// QuizSummary is the listing view of a quiz
type QuizSummary struct {
	ID              int64  `json:"id"`
	Slug            string `json:"slug"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"duration_seconds"`
	QuestionCount   int    `json:"question_count"`
}
