package quiz

// EventKind names an input to the state machine
type EventKind string

const (
	EventSubmit  EventKind = "submit"
	EventSkip    EventKind = "skip"
	EventUndo    EventKind = "undo"
	EventTimeout EventKind = "timeout"
	EventAdvance EventKind = "advance"
)

// Event is a single input. Option is only used by EventSubmit.
type Event struct {
	Kind   EventKind `json:"kind"`
	Option string    `json:"option,omitempty"`
}

// Reduce applies ev as one complete transition and reports whether it changed anything.
// Submit and skip include their advance step; invalid events return s unchanged.
func Reduce(s State, ev Event) (State, bool) {
	switch ev.Kind {
	case EventSubmit:
		return Submit(s, ev.Option)
	case EventSkip:
		return Skip(s)
	case EventUndo:
		return Undo(s)
	case EventTimeout:
		return Timeout(s)
	case EventAdvance:
		return Advance(s)
	}
	return s, false
}

// Submit answers the current question and moves on
func Submit(s State, option string) (State, bool) {
	next, ok := Answer(s, option)
	if !ok {
		return s, false
	}
	next, _ = Advance(next)
	return next, true
}

// Skip skips the current question and moves on
func Skip(s State) (State, bool) {
	next, ok := SkipQuestion(s)
	if !ok {
		return s, false
	}
	next, _ = Advance(next)
	return next, true
}

// Answer is the record step of Submit. It stores option for the current
// question and leaves the session pending until Advance runs.
// Empty options and options the question does not offer are ignored.
func Answer(s State, option string) (State, bool) {
	q, ok := s.CurrentQuestion()
	if !ok || s.Pending || option == "" || !q.HasOption(option) {
		return s, false
	}

	next := s.clone()
	pos := next.removeSkipped(next.Current)
	next.Answers[q.ID] = option
	next.History = append(next.History, Action{
		Kind:       ActionAnswer,
		Index:      next.Current,
		QuestionID: q.ID,
		Option:     option,
		skipPos:    pos,
	})
	next.Pending = true
	return next, true
}

// SkipQuestion is the record step of Skip. Skipping an already skipped
// question keeps a single entry in the skip order but still records the action.
func SkipQuestion(s State) (State, bool) {
	q, ok := s.CurrentQuestion()
	if !ok || s.Pending || s.IsAnswered(s.Current) {
		return s, false
	}

	next := s.clone()
	pos := next.skipPosition(next.Current)
	if pos < 0 {
		next.Skipped = append(next.Skipped, next.Current)
	}
	next.History = append(next.History, Action{
		Kind:       ActionSkip,
		Index:      next.Current,
		QuestionID: q.ID,
		skipPos:    pos,
	})
	next.Pending = true
	return next, true
}

// Advance is the deferred half of submit and skip. After an answer it checks
// for completion first; otherwise it picks the next card to present.
func Advance(s State) (State, bool) {
	if !s.Pending || s.Completed || len(s.History) == 0 {
		return s, false
	}

	next := s.clone()
	next.Pending = false

	last := next.History[len(next.History)-1]
	if last.Kind == ActionAnswer && next.AllAnswered() {
		next.Completed = true
		next.Reviewing = false
		return next, true
	}

	if next.Reviewing {
		next.advanceReview()
	} else {
		next.advanceForward()
	}
	return next, true
}

// Undo reverts the most recent action and returns to its question in normal mode
func Undo(s State) (State, bool) {
	if s.Completed || len(s.History) == 0 {
		return s, false
	}

	next := s.clone()
	last := next.History[len(next.History)-1]
	next.History = next.History[:len(next.History)-1]

	switch last.Kind {
	case ActionAnswer:
		delete(next.Answers, last.QuestionID)
		if last.skipPos >= 0 {
			next.insertSkipped(last.Index, last.skipPos)
		}
	case ActionSkip:
		if last.skipPos < 0 {
			next.removeSkipped(last.Index)
		}
	}

	next.Current = last.Index
	next.Reviewing = false
	next.Pending = false
	return next, true
}

// Timeout ends the session whatever is left unanswered
func Timeout(s State) (State, bool) {
	if s.Completed {
		return s, false
	}
	next := s.clone()
	next.Completed = true
	next.TimedOut = true
	next.Reviewing = false
	next.Pending = false
	return next, true
}

func (s *State) advanceForward() {
	for i := s.Current + 1; i < len(s.Questions); i++ {
		if !s.IsAnswered(i) {
			s.Current = i
			return
		}
	}
	if i, ok := s.firstSkipped(); ok {
		s.Reviewing = true
		s.Current = i
		return
	}
	s.fallback()
}

func (s *State) advanceReview() {
	if i, ok := s.nextSkipped(); ok {
		s.Current = i
		return
	}
	s.Reviewing = false
	for i := range s.Questions {
		if !s.IsAnswered(i) && !s.IsSkipped(i) {
			s.Current = i
			return
		}
	}
	s.fallback()
}

// firstSkipped returns the earliest skipped, unanswered index in skip order
func (s *State) firstSkipped() (int, bool) {
	for _, i := range s.Skipped {
		if !s.IsAnswered(i) {
			return i, true
		}
	}
	return 0, false
}

// nextSkipped walks the skip order from just after the current card,
// wrapping around, and returns the first other unanswered index.
func (s *State) nextSkipped() (int, bool) {
	n := len(s.Skipped)
	start := s.skipPosition(s.Current) + 1
	for k := 0; k < n; k++ {
		i := s.Skipped[(start+k)%n]
		if i != s.Current && !s.IsAnswered(i) {
			return i, true
		}
	}
	return 0, false
}

// fallback presents the first unanswered question when every other search came up empty.
func (s *State) fallback() {
	for i := range s.Questions {
		if !s.IsAnswered(i) {
			s.Current = i
			s.Reviewing = s.IsSkipped(i)
			return
		}
	}
}
