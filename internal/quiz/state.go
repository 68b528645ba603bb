// Package quiz holds the navigation state machine behind a quiz card stack.
//
// Every transition is a pure function from State to State. Inputs are never
// modified, so callers can keep old states around for comparison or replay.
package quiz

import "quizstack/internal/models"

// Phase is the externally visible state of a session
type Phase string

const (
	PhaseActive    Phase = "active"
	PhaseReviewing Phase = "reviewing"
	PhaseCompleted Phase = "completed"
)

// ActionKind identifies an undoable action
type ActionKind string

const (
	ActionAnswer ActionKind = "answer"
	ActionSkip   ActionKind = "skip"
)

// Action is one entry of the undo history
type Action struct {
	Kind       ActionKind `json:"kind"`
	Index      int        `json:"index"`
	QuestionID int64      `json:"question_id"`
	Option     string     `json:"option,omitempty"`

	// position of Index in the skip order before the action, -1 if it was not skipped
	skipPos int
}

// State is everything a session knows about its progress
type State struct {
	Questions []models.Question
	Current   int
	Reviewing bool
	Completed bool
	TimedOut  bool

	// Pending is set between the record step of a submit or skip and its advance step.
	Pending bool

	Answers models.AnswerMap
	Skipped []int // in skip order
	History []Action
}

// New creates the initial state for an ordered question list.
// An empty list yields a state that is already completed.
func New(questions []models.Question) State {
	qs := make([]models.Question, len(questions))
	copy(qs, questions)
	return State{
		Questions: qs,
		Completed: len(qs) == 0,
		Answers:   make(models.AnswerMap),
	}
}

func (s State) clone() State {
	next := s
	next.Answers = s.Answers.Clone()
	next.Skipped = append([]int(nil), s.Skipped...)
	next.History = append([]Action(nil), s.History...)
	return next
}

// Phase returns the state machine phase
func (s State) Phase() Phase {
	switch {
	case s.Completed:
		return PhaseCompleted
	case s.Reviewing:
		return PhaseReviewing
	default:
		return PhaseActive
	}
}

// CurrentQuestion returns the question on top of the stack.
// ok is false once the session is completed.
func (s State) CurrentQuestion() (models.Question, bool) {
	if s.Completed || s.Current < 0 || s.Current >= len(s.Questions) {
		return models.Question{}, false
	}
	return s.Questions[s.Current], true
}

// IsAnswered reports whether the question at index i has an answer
func (s State) IsAnswered(i int) bool {
	if i < 0 || i >= len(s.Questions) {
		return false
	}
	_, ok := s.Answers[s.Questions[i].ID]
	return ok
}

// IsSkipped reports whether index i is in the skipped set
func (s State) IsSkipped(i int) bool {
	return s.skipPosition(i) >= 0
}

func (s State) skipPosition(i int) int {
	for pos, idx := range s.Skipped {
		if idx == i {
			return pos
		}
	}
	return -1
}

// AllAnswered reports whether every question has an answer
func (s State) AllAnswered() bool {
	for i := range s.Questions {
		if !s.IsAnswered(i) {
			return false
		}
	}
	return true
}

// AnsweredCount returns the number of answered questions
func (s State) AnsweredCount() int {
	n := 0
	for i := range s.Questions {
		if s.IsAnswered(i) {
			n++
		}
	}
	return n
}

// CompletedNaturally reports completion by answering everything, as opposed to a timeout
func (s State) CompletedNaturally() bool {
	return s.Completed && !s.TimedOut
}

// removeSkipped drops index i from the skip order and returns its old position
func (s *State) removeSkipped(i int) int {
	pos := s.skipPosition(i)
	if pos >= 0 {
		s.Skipped = append(s.Skipped[:pos], s.Skipped[pos+1:]...)
	}
	return pos
}

func (s *State) insertSkipped(i, pos int) {
	if s.IsSkipped(i) {
		return
	}
	if pos > len(s.Skipped) {
		pos = len(s.Skipped)
	}
	s.Skipped = append(s.Skipped, 0)
	copy(s.Skipped[pos+1:], s.Skipped[pos:])
	s.Skipped[pos] = i
}
