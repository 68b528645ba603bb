package repository

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"quizstack/internal/database"
	"quizstack/internal/models"
	"quizstack/migrations"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "repo.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(migrations.FS, zap.NewNop()); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func sampleQuiz() *models.Quiz {
	return &models.Quiz{
		Slug:            "planets",
		Title:           "Planets",
		DurationSeconds: 120,
		Questions: []models.Question{
			{ID: 1, Prompt: "Largest planet?", Options: []string{"Jupiter", "Saturn"}},
			{ID: 2, Prompt: "Red planet?", Options: []string{"Venus", "Mars"}},
			{ID: 3, Prompt: "Closest to the sun?", Options: []string{"Mercury", "Earth", "Mars"}},
		},
	}
}

func TestQuizRepositoryRoundTrip(t *testing.T) {
	repo := NewQuizRepository(newTestDB(t))

	quiz := sampleQuiz()
	id, err := repo.SaveQuiz(quiz)
	if err != nil {
		t.Fatalf("SaveQuiz() error = %v", err)
	}
	if id == 0 || quiz.ID != id {
		t.Fatalf("SaveQuiz() id = %d, quiz.ID = %d", id, quiz.ID)
	}

	got, err := repo.GetQuizByID(id)
	if err != nil {
		t.Fatalf("GetQuizByID() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetQuizByID() returned nil")
	}
	if got.Title != "Planets" || got.DurationSeconds != 120 {
		t.Errorf("got quiz %+v", got)
	}
	if !reflect.DeepEqual(got.Questions, quiz.Questions) {
		t.Errorf("Questions = %+v, want %+v", got.Questions, quiz.Questions)
	}

	bySlug, err := repo.GetQuizBySlug("planets")
	if err != nil || bySlug == nil || bySlug.ID != id {
		t.Errorf("GetQuizBySlug() = %+v, %v", bySlug, err)
	}
}

func TestQuizRepositoryReplaceBySlug(t *testing.T) {
	repo := NewQuizRepository(newTestDB(t))

	first := sampleQuiz()
	id, err := repo.SaveQuiz(first)
	if err != nil {
		t.Fatalf("SaveQuiz() error = %v", err)
	}

	second := &models.Quiz{
		Slug:  "planets",
		Title: "Planets, revised",
		Questions: []models.Question{
			{ID: 10, Prompt: "Ringed planet?", Options: []string{"Saturn"}},
		},
	}
	id2, err := repo.SaveQuiz(second)
	if err != nil {
		t.Fatalf("SaveQuiz() second error = %v", err)
	}
	if id2 != id {
		t.Errorf("replacing by slug changed the id: %d -> %d", id, id2)
	}

	got, err := repo.GetQuizByID(id)
	if err != nil {
		t.Fatalf("GetQuizByID() error = %v", err)
	}
	if got.Title != "Planets, revised" || len(got.Questions) != 1 || got.Questions[0].ID != 10 {
		t.Errorf("quiz not replaced: %+v", got)
	}

	count, err := repo.CountQuizzes()
	if err != nil || count != 1 {
		t.Errorf("CountQuizzes() = %d, %v, want 1", count, err)
	}
}

func TestQuizRepositoryNotFound(t *testing.T) {
	repo := NewQuizRepository(newTestDB(t))

	got, err := repo.GetQuizByID(42)
	if err != nil {
		t.Fatalf("GetQuizByID() error = %v", err)
	}
	if got != nil {
		t.Errorf("expected nil quiz, got %+v", got)
	}
}

func TestQuizRepositoryList(t *testing.T) {
	repo := NewQuizRepository(newTestDB(t))

	if _, err := repo.SaveQuiz(sampleQuiz()); err != nil {
		t.Fatalf("SaveQuiz() error = %v", err)
	}
	empty := &models.Quiz{Slug: "empty", Title: "Empty"}
	if _, err := repo.SaveQuiz(empty); err != nil {
		t.Fatalf("SaveQuiz() error = %v", err)
	}

	list, err := repo.ListQuizzes()
	if err != nil {
		t.Fatalf("ListQuizzes() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListQuizzes() returned %d quizzes, want 2", len(list))
	}
	counts := map[string]int{}
	for _, s := range list {
		counts[s.Slug] = s.QuestionCount
	}
	if counts["planets"] != 3 || counts["empty"] != 0 {
		t.Errorf("question counts = %v", counts)
	}

	if err := repo.DeleteQuiz(empty.ID); err != nil {
		t.Fatalf("DeleteQuiz() error = %v", err)
	}
	if n, _ := repo.CountQuizzes(); n != 1 {
		t.Errorf("CountQuizzes() after delete = %d, want 1", n)
	}
}

func TestResultRepository(t *testing.T) {
	db := newTestDB(t)
	quizzes := NewQuizRepository(db)
	results := NewResultRepository(db)

	quiz := sampleQuiz()
	if _, err := quizzes.SaveQuiz(quiz); err != nil {
		t.Fatalf("SaveQuiz() error = %v", err)
	}

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tests := []models.QuizResult{
		{
			SessionID:      "s-1",
			QuizID:         quiz.ID,
			QuizSlug:       quiz.Slug,
			Outcome:        models.OutcomeCompleted,
			Answers:        models.AnswerMap{1: "Jupiter", 2: "Mars", 3: "Mercury"},
			AnsweredCount:  3,
			TotalQuestions: 3,
			StartedAt:      started,
			FinishedAt:     started.Add(90 * time.Second),
		},
		{
			SessionID:      "s-2",
			QuizID:         quiz.ID,
			QuizSlug:       quiz.Slug,
			Outcome:        models.OutcomeTimedOut,
			Answers:        models.AnswerMap{2: "Mars"},
			AnsweredCount:  1,
			TotalQuestions: 3,
			StartedAt:      started,
			FinishedAt:     started.Add(120 * time.Second),
		},
	}
	for i := range tests {
		if _, err := results.SaveResult(&tests[i]); err != nil {
			t.Fatalf("SaveResult(%s) error = %v", tests[i].SessionID, err)
		}
	}

	got, err := results.GetResultBySession("s-1")
	if err != nil {
		t.Fatalf("GetResultBySession() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetResultBySession() returned nil")
	}
	if !reflect.DeepEqual(got.Answers, tests[0].Answers) {
		t.Errorf("Answers = %v, want %v", got.Answers, tests[0].Answers)
	}
	if got.Duration() != 90*time.Second {
		t.Errorf("Duration() = %v, want 90s", got.Duration())
	}

	list, err := results.ListResults(quiz.ID, 0)
	if err != nil {
		t.Fatalf("ListResults() error = %v", err)
	}
	if len(list) != 2 || list[0].SessionID != "s-2" {
		t.Errorf("ListResults() newest first = %+v", list)
	}

	limited, err := results.ListResults(0, 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("ListResults(limit 1) = %d results, %v", len(limited), err)
	}

	missing, err := results.GetResultBySession("nope")
	if err != nil || missing != nil {
		t.Errorf("GetResultBySession(missing) = %+v, %v", missing, err)
	}

	if _, err := results.SaveResult(&tests[0]); err == nil {
		t.Error("expected duplicate session id to be rejected")
	}
}

func TestResultRepositoryRejectsDuplicateSession(t *testing.T) {
	db := newTestDB(t)
	quizzes := NewQuizRepository(db)
	results := NewResultRepository(db)

	quiz := sampleQuiz()
	if _, err := quizzes.SaveQuiz(quiz); err != nil {
		t.Fatalf("SaveQuiz() error = %v", err)
	}

	now := time.Now()
	result := models.QuizResult{
		SessionID:      "dup-session",
		QuizID:         quiz.ID,
		QuizSlug:       quiz.Slug,
		Outcome:        models.OutcomeAbandoned,
		Answers:        models.AnswerMap{},
		TotalQuestions: 3,
		StartedAt:      now,
		FinishedAt:     now,
	}
	if _, err := results.SaveResult(&result); err != nil {
		t.Fatalf("first SaveResult() error = %v", err)
	}

	again := result
	again.ID = 0
	if _, err := results.SaveResult(&again); !errors.Is(err, ErrDuplicateResult) {
		t.Fatalf("second SaveResult() error = %v, want ErrDuplicateResult", err)
	}
}
