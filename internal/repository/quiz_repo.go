package repository

import (
	"database/sql"
	"fmt"

	"quizstack/internal/database"
	"quizstack/internal/models"
)

// QuizRepository handles database operations for quizzes and their questions
type QuizRepository struct {
	db *database.DB
}

// NewQuizRepository creates a new quiz repository
func NewQuizRepository(db *database.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

// SaveQuiz inserts the quiz, or replaces the questions of the quiz with the
// same slug. It returns the quiz ID.
func (r *QuizRepository) SaveQuiz(quiz *models.Quiz) (int64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(r.db.Dialect.UpsertQuizQuery(), quiz.Slug, quiz.Title, quiz.DurationSeconds); err != nil {
		return 0, fmt.Errorf("failed to upsert quiz: %w", err)
	}

	var quizID int64
	if err := tx.QueryRow("SELECT id FROM quizzes WHERE slug = ?", quiz.Slug).Scan(&quizID); err != nil {
		return 0, fmt.Errorf("failed to get quiz ID: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM question_options WHERE question_id IN (SELECT id FROM questions WHERE quiz_id = ?)", quizID); err != nil {
		return 0, fmt.Errorf("failed to clear options: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM questions WHERE quiz_id = ?", quizID); err != nil {
		return 0, fmt.Errorf("failed to clear questions: %w", err)
	}

	for pos, q := range quiz.Questions {
		questionID, err := tx.ExecReturningID(
			"INSERT INTO questions (quiz_id, question_key, position, prompt) VALUES (?, ?, ?, ?)",
			quizID, q.ID, pos, q.Prompt,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert question %d: %w", q.ID, err)
		}
		for optPos, label := range q.Options {
			if _, err := tx.Exec(
				"INSERT INTO question_options (question_id, position, label) VALUES (?, ?, ?)",
				questionID, optPos, label,
			); err != nil {
				return 0, fmt.Errorf("failed to insert option for question %d: %w", q.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit quiz: %w", err)
	}

	quiz.ID = quizID
	return quizID, nil
}

// GetQuizByID retrieves a quiz with its questions, or nil if it does not exist
func (r *QuizRepository) GetQuizByID(quizID int64) (*models.Quiz, error) {
	return r.getQuiz("id = ?", quizID)
}

// GetQuizBySlug retrieves a quiz with its questions, or nil if it does not exist
func (r *QuizRepository) GetQuizBySlug(slug string) (*models.Quiz, error) {
	return r.getQuiz("slug = ?", slug)
}

func (r *QuizRepository) getQuiz(where string, arg interface{}) (*models.Quiz, error) {
	query := `
		SELECT id, slug, title, duration_seconds, created_at
		FROM quizzes
		WHERE ` + where
	quiz := &models.Quiz{}
	err := r.db.QueryRow(query, arg).Scan(
		&quiz.ID,
		&quiz.Slug,
		&quiz.Title,
		&quiz.DurationSeconds,
		&quiz.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	questions, err := r.getQuestions(quiz.ID)
	if err != nil {
		return nil, err
	}
	quiz.Questions = questions
	return quiz, nil
}

// getQuestions loads questions in quiz order with their options in one pass
func (r *QuizRepository) getQuestions(quizID int64) ([]models.Question, error) {
	query := `
		SELECT q.id, q.question_key, q.prompt, o.label
		FROM questions q
		LEFT JOIN question_options o ON o.question_id = q.id
		WHERE q.quiz_id = ?
		ORDER BY q.position, o.position
	`
	rows, err := r.db.Query(query, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	lastRowID := int64(-1)
	for rows.Next() {
		var rowID, key int64
		var prompt string
		var label sql.NullString
		if err := rows.Scan(&rowID, &key, &prompt, &label); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if rowID != lastRowID {
			questions = append(questions, models.Question{ID: key, Prompt: prompt})
			lastRowID = rowID
		}
		if label.Valid {
			last := &questions[len(questions)-1]
			last.Options = append(last.Options, label.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}

	return questions, nil
}

// ListQuizzes returns every quiz with its question count
func (r *QuizRepository) ListQuizzes() ([]models.QuizSummary, error) {
	query := `
		SELECT z.id, z.slug, z.title, z.duration_seconds, COUNT(q.id)
		FROM quizzes z
		LEFT JOIN questions q ON q.quiz_id = z.id
		GROUP BY z.id, z.slug, z.title, z.duration_seconds
		ORDER BY z.title
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []models.QuizSummary
	for rows.Next() {
		var s models.QuizSummary
		if err := rows.Scan(&s.ID, &s.Slug, &s.Title, &s.DurationSeconds, &s.QuestionCount); err != nil {
			return nil, fmt.Errorf("failed to scan quiz: %w", err)
		}
		quizzes = append(quizzes, s)
	}

	return quizzes, rows.Err()
}

// DeleteQuiz deletes a quiz along with its questions and results
func (r *QuizRepository) DeleteQuiz(quizID int64) error {
	_, err := r.db.Exec("DELETE FROM quizzes WHERE id = ?", quizID)
	if err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}
	return nil
}

// CountQuizzes returns the number of stored quizzes
func (r *QuizRepository) CountQuizzes() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM quizzes").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count quizzes: %w", err)
	}
	return count, nil
}
