package quiz

import (
	"math/rand"
	"reflect"
	"testing"

	"quizstack/internal/models"
)

func sampleQuestions() []models.Question {
	return []models.Question{
		{ID: 1, Prompt: "What is the capital of France?", Options: []string{"London", "Berlin", "Paris", "Madrid"}},
		{ID: 2, Prompt: "Which planet is known as the Red Planet?", Options: []string{"Mars", "Venus", "Jupiter", "Saturn"}},
		{ID: 3, Prompt: "What is the largest mammal?", Options: []string{"African Elephant", "Blue Whale", "Giraffe", "White Rhinoceros"}},
	}
}

func mustApply(t *testing.T, s State, ev Event) State {
	t.Helper()
	next, ok := Reduce(s, ev)
	if !ok {
		t.Fatalf("event %+v was ignored in state current=%d phase=%s", ev, s.Current, s.Phase())
	}
	return next
}

func submit(option string) Event { return Event{Kind: EventSubmit, Option: option} }

var (
	skip = Event{Kind: EventSkip}
	undo = Event{Kind: EventUndo}
)

func TestNewState(t *testing.T) {
	s := New(sampleQuestions())
	if s.Current != 0 || s.Phase() != PhaseActive {
		t.Fatalf("new state: current=%d phase=%s", s.Current, s.Phase())
	}
	if len(s.Answers) != 0 || len(s.Skipped) != 0 || len(s.History) != 0 {
		t.Fatal("new state should be empty")
	}

	empty := New(nil)
	if !empty.Completed {
		t.Error("a quiz without questions should start completed")
	}
}

func TestSkipReviewScenario(t *testing.T) {
	s := New(sampleQuestions())

	s = mustApply(t, s, skip)
	if s.Current != 1 {
		t.Fatalf("after skip current = %d, want 1", s.Current)
	}

	s = mustApply(t, s, submit("Mars"))
	if s.Current != 2 {
		t.Fatalf("after answering id 2 current = %d, want 2", s.Current)
	}

	s = mustApply(t, s, submit("Blue Whale"))
	if s.Completed {
		t.Fatal("session completed with question 1 unanswered")
	}
	if s.Phase() != PhaseReviewing || s.Current != 0 {
		t.Fatalf("expected review at index 0, got phase=%s current=%d", s.Phase(), s.Current)
	}

	s = mustApply(t, s, submit("Paris"))
	if !s.CompletedNaturally() {
		t.Fatal("expected natural completion")
	}
	want := models.AnswerMap{1: "Paris", 2: "Mars", 3: "Blue Whale"}
	if !reflect.DeepEqual(s.Answers, want) {
		t.Errorf("answers = %v, want %v", s.Answers, want)
	}
}

func TestReviewFollowsSkipOrder(t *testing.T) {
	qs := append(sampleQuestions(), models.Question{ID: 4, Prompt: "2+2?", Options: []string{"3", "4"}})
	s := New(qs)
	s.Answers[2] = "Mars"
	s.Skipped = []int{2, 0}
	s.Current = 3

	s = mustApply(t, s, submit("4"))
	if s.Phase() != PhaseReviewing || s.Current != 2 {
		t.Fatalf("expected review to start at index 2, got phase=%s current=%d", s.Phase(), s.Current)
	}

	s = mustApply(t, s, submit("Blue Whale"))
	if s.Current != 0 {
		t.Fatalf("expected index 0 next, got %d", s.Current)
	}

	s = mustApply(t, s, submit("Paris"))
	if !s.CompletedNaturally() {
		t.Fatal("expected completion")
	}
}

func TestReviewLeavesForUntouchedQuestion(t *testing.T) {
	qs := append(sampleQuestions(), models.Question{ID: 4, Prompt: "2+2?", Options: []string{"3", "4"}})
	tests := []struct {
		name string
		ev   Event
	}{
		{name: "answer last skipped", ev: submit("Paris")},
		{name: "skip last skipped again", ev: skip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(qs)
			s.Answers[2] = "Mars"
			s.Skipped = []int{0}
			s.Reviewing = true
			s.Current = 0

			s = mustApply(t, s, tt.ev)
			if s.Reviewing || s.Phase() != PhaseActive {
				t.Fatalf("expected review to end, got phase=%s", s.Phase())
			}
			if s.Current != 2 {
				t.Fatalf("current = %d, want first untouched index 2", s.Current)
			}

			s = mustApply(t, s, submit("Blue Whale"))
			if s.Current != 3 || s.Reviewing {
				t.Fatalf("expected forward move to index 3, got current=%d reviewing=%v", s.Current, s.Reviewing)
			}
		})
	}
}

func TestUndoAfterAnswer(t *testing.T) {
	s := New(sampleQuestions())
	s = mustApply(t, s, submit("Paris"))
	before := len(s.History)

	s = mustApply(t, s, undo)
	if _, ok := s.Answers[1]; ok {
		t.Error("answer for id 1 should be removed")
	}
	if s.Current != 0 {
		t.Errorf("current = %d, want 0", s.Current)
	}
	if len(s.History) != before-1 {
		t.Errorf("history length = %d, want %d", len(s.History), before-1)
	}
}

func TestUndoAfterSkip(t *testing.T) {
	s := New(sampleQuestions())
	s = mustApply(t, s, submit("Paris"))
	s = mustApply(t, s, skip)
	if !s.IsSkipped(1) {
		t.Fatal("index 1 should be skipped")
	}

	s = mustApply(t, s, undo)
	if s.IsSkipped(1) {
		t.Error("index 1 should no longer be skipped")
	}
	if s.Current != 1 {
		t.Errorf("current = %d, want 1", s.Current)
	}
	if len(s.History) != 1 {
		t.Errorf("history length = %d, want 1", len(s.History))
	}
}

func TestUndoLeavesReviewMode(t *testing.T) {
	s := New(sampleQuestions())
	s = mustApply(t, s, skip)
	s = mustApply(t, s, submit("Mars"))
	s = mustApply(t, s, submit("Blue Whale"))
	if !s.Reviewing {
		t.Fatal("expected review mode")
	}

	s = mustApply(t, s, undo)
	if s.Reviewing {
		t.Error("undo should leave review mode")
	}
	if s.Current != 2 {
		t.Errorf("current = %d, want 2", s.Current)
	}
	if _, ok := s.Answers[3]; ok {
		t.Error("answer for id 3 should be removed")
	}
}

func TestUndoAnswerRestoresSkipPosition(t *testing.T) {
	s := New(sampleQuestions())
	s = mustApply(t, s, skip)
	s = mustApply(t, s, skip)
	s = mustApply(t, s, submit("Blue Whale"))
	if s.Current != 0 || !s.Reviewing {
		t.Fatalf("expected review at 0, got current=%d reviewing=%v", s.Current, s.Reviewing)
	}

	s = mustApply(t, s, submit("Paris"))
	if !reflect.DeepEqual(s.Skipped, []int{1}) {
		t.Fatalf("skipped = %v, want [1]", s.Skipped)
	}

	s = mustApply(t, s, undo)
	if !reflect.DeepEqual(s.Skipped, []int{0, 1}) {
		t.Errorf("skipped after undo = %v, want [0 1]", s.Skipped)
	}
	if s.IsAnswered(0) {
		t.Error("index 0 should be unanswered after undo")
	}
}

func TestUndoWithEmptyHistoryIsNoop(t *testing.T) {
	s := New(sampleQuestions())
	next, ok := Undo(s)
	if ok {
		t.Error("undo on a fresh session should be ignored")
	}
	if !reflect.DeepEqual(next, s) {
		t.Error("state changed on ignored undo")
	}
}

func TestReskipDoesNotDuplicate(t *testing.T) {
	s := New(sampleQuestions())
	s = mustApply(t, s, skip)
	s = mustApply(t, s, submit("Mars"))
	s = mustApply(t, s, submit("Blue Whale"))
	if s.Current != 0 {
		t.Fatalf("expected review at 0, got %d", s.Current)
	}

	s = mustApply(t, s, skip)
	if !reflect.DeepEqual(s.Skipped, []int{0}) {
		t.Errorf("skipped = %v, want [0]", s.Skipped)
	}
	if len(s.History) != 4 {
		t.Errorf("history length = %d, want 4", len(s.History))
	}

	// undoing the repeated skip keeps the question skipped
	s = mustApply(t, s, undo)
	if !s.IsSkipped(0) {
		t.Error("index 0 should still be skipped after undoing a repeated skip")
	}
}

func TestSkipInReviewCycles(t *testing.T) {
	s := New(sampleQuestions())
	s = mustApply(t, s, skip)
	s = mustApply(t, s, skip)
	s = mustApply(t, s, submit("Blue Whale"))
	if s.Current != 0 {
		t.Fatalf("expected review at 0, got %d", s.Current)
	}

	s = mustApply(t, s, skip)
	if s.Current != 1 || !s.Reviewing {
		t.Fatalf("expected review at 1, got current=%d reviewing=%v", s.Current, s.Reviewing)
	}
	s = mustApply(t, s, skip)
	if s.Current != 0 || !s.Reviewing {
		t.Fatalf("expected review to wrap to 0, got current=%d reviewing=%v", s.Current, s.Reviewing)
	}
}

func TestLastSkippedQuestionIsPresentedAgain(t *testing.T) {
	s := New(sampleQuestions())
	s = mustApply(t, s, submit("Paris"))
	s = mustApply(t, s, submit("Mars"))
	s = mustApply(t, s, skip)
	if s.Current != 2 || !s.Reviewing {
		t.Fatalf("expected review of the only skipped question, got current=%d reviewing=%v", s.Current, s.Reviewing)
	}

	s = mustApply(t, s, skip)
	if s.Current != 2 || !s.Reviewing || s.Completed {
		t.Fatalf("expected to stay on index 2 in review, got current=%d reviewing=%v completed=%v",
			s.Current, s.Reviewing, s.Completed)
	}
}

func TestTimeoutMidSession(t *testing.T) {
	s := New(sampleQuestions())
	s = mustApply(t, s, submit("Paris"))

	s = mustApply(t, s, Event{Kind: EventTimeout})
	if !s.Completed || !s.TimedOut {
		t.Fatal("timeout should complete the session")
	}
	if s.CompletedNaturally() {
		t.Error("timeout must not count as natural completion")
	}
	if len(s.Answers) != 1 {
		t.Errorf("answers = %v, want one entry", s.Answers)
	}
}

func TestEventsIgnoredAfterCompletion(t *testing.T) {
	s := New(sampleQuestions())
	s, _ = Timeout(s)

	events := []Event{submit("Paris"), skip, undo, {Kind: EventTimeout}, {Kind: EventAdvance}}
	for _, ev := range events {
		t.Run(string(ev.Kind), func(t *testing.T) {
			next, ok := Reduce(s, ev)
			if ok {
				t.Errorf("%s should be ignored once completed", ev.Kind)
			}
			if !reflect.DeepEqual(next, s) {
				t.Errorf("%s changed a completed state", ev.Kind)
			}
		})
	}
}

func TestSubmitRejectsMissingOption(t *testing.T) {
	tests := []struct {
		name   string
		option string
	}{
		{name: "empty option", option: ""},
		{name: "option from another question", option: "Mars"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(sampleQuestions())
			next, ok := Submit(s, tt.option)
			if ok {
				t.Fatal("submit should be ignored")
			}
			if !reflect.DeepEqual(next, s) {
				t.Error("state changed on ignored submit")
			}
		})
	}
}

func TestPendingAdvanceBlocksSecondRecord(t *testing.T) {
	s := New(sampleQuestions())
	s, ok := Answer(s, "Paris")
	if !ok || !s.Pending {
		t.Fatal("answer should leave the session pending")
	}
	if s.Current != 0 {
		t.Fatalf("record step should not move the card, current=%d", s.Current)
	}

	if _, ok := Answer(s, "Paris"); ok {
		t.Error("second answer while pending should be ignored")
	}
	if _, ok := SkipQuestion(s); ok {
		t.Error("skip while pending should be ignored")
	}

	s, ok = Advance(s)
	if !ok || s.Pending || s.Current != 1 {
		t.Fatalf("advance: ok=%v pending=%v current=%d", ok, s.Pending, s.Current)
	}
	if _, ok := Advance(s); ok {
		t.Error("advance without a pending record should be ignored")
	}
}

func TestUndoCancelsPendingAdvance(t *testing.T) {
	s := New(sampleQuestions())
	s, _ = Answer(s, "Paris")
	s = mustApply(t, s, undo)
	if s.Pending {
		t.Error("undo should clear the pending advance")
	}
	if s.Current != 0 || s.IsAnswered(0) {
		t.Errorf("undo should return to an unanswered index 0, current=%d", s.Current)
	}
}

func TestReducerDoesNotMutateInput(t *testing.T) {
	s := New(sampleQuestions())
	s = mustApply(t, s, skip)
	snapshot := s.clone()

	_ = mustApply(t, s, submit("Mars"))
	_ = mustApply(t, s, undo)

	if !reflect.DeepEqual(s, snapshot) {
		t.Error("reducers modified their input state")
	}
}

func TestCards(t *testing.T) {
	s := New(sampleQuestions())
	s = mustApply(t, s, skip)
	s = mustApply(t, s, submit("Mars"))

	cards := Cards(s)
	want := []Card{
		{Index: 0, QuestionID: 1, IsSkipped: true, Placement: PlacementSkipped, StackPosition: 0},
		{Index: 1, QuestionID: 2, IsAnswered: true, Placement: PlacementAnswered, StackPosition: 0},
		{Index: 2, QuestionID: 3, IsCurrent: true, Placement: PlacementCurrent},
	}
	if !reflect.DeepEqual(cards, want) {
		t.Errorf("Cards() = %+v, want %+v", cards, want)
	}

	s = mustApply(t, s, submit("Blue Whale"))
	cards = Cards(s)
	if cards[2].StackPosition != 1 || cards[2].Placement != PlacementAnswered {
		t.Errorf("third card = %+v, want answered at stack position 1", cards[2])
	}
	if !cards[0].IsCurrent || cards[0].Placement != PlacementCurrent {
		t.Errorf("first card = %+v, want current", cards[0])
	}

	s, _ = Timeout(s)
	for _, c := range Cards(s) {
		if c.Placement != PlacementHidden || c.IsCurrent {
			t.Errorf("card %d = %+v, want hidden once completed", c.Index, c)
		}
	}
}

func TestRandomSessionsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		s := New(sampleQuestions())
		actions, undos, completions := 0, 0, 0

		for step := 0; step < 500 && !s.Completed; step++ {
			var ev Event
			switch r := rng.Intn(10); {
			case r < 5:
				q, _ := s.CurrentQuestion()
				ev = submit(q.Options[rng.Intn(len(q.Options))])
			case r < 8:
				ev = skip
			default:
				ev = undo
			}

			next, ok := Reduce(s, ev)
			if ok {
				switch ev.Kind {
				case EventUndo:
					undos++
				default:
					actions++
				}
				if next.Completed && !s.Completed {
					completions++
				}
			}
			s = next

			if len(s.History) != actions-undos {
				t.Fatalf("run %d: history length %d, want %d", run, len(s.History), actions-undos)
			}
			if !s.Completed && (s.Current < 0 || s.Current >= len(s.Questions)) {
				t.Fatalf("run %d: current index %d out of range", run, s.Current)
			}
			for i := range s.Questions {
				if s.IsAnswered(i) && s.IsSkipped(i) {
					t.Fatalf("run %d: index %d is both answered and skipped", run, i)
				}
			}
		}

		if s.Completed {
			if completions != 1 {
				t.Fatalf("run %d: %d completions", run, completions)
			}
			if len(s.Answers) != len(s.Questions) {
				t.Fatalf("run %d: completed with %d answers", run, len(s.Answers))
			}
		}
	}
}
