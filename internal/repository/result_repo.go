package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"quizstack/internal/database"
	"quizstack/internal/models"
)

// ErrDuplicateResult is returned when a session's result was already saved
var ErrDuplicateResult = errors.New("result already recorded for session")

// ResultRepository stores the outcome of finished quiz sessions
type ResultRepository struct {
	db *database.DB
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *database.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// SaveResult records a finished session
func (r *ResultRepository) SaveResult(result *models.QuizResult) (int64, error) {
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return 0, fmt.Errorf("failed to encode answers: %w", err)
	}

	query := `
		INSERT INTO quiz_results
			(session_id, quiz_id, quiz_slug, outcome, answers, answered_count, total_questions, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		result.SessionID,
		result.QuizID,
		result.QuizSlug,
		string(result.Outcome),
		string(answers),
		result.AnsweredCount,
		result.TotalQuestions,
		result.StartedAt.UTC(),
		result.FinishedAt.UTC(),
	)
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return 0, ErrDuplicateResult
		}
		return 0, fmt.Errorf("failed to save result: %w", err)
	}

	result.ID = id
	return id, nil
}

const resultColumns = `id, session_id, quiz_id, quiz_slug, outcome, answers, answered_count, total_questions, started_at, finished_at`

// GetResultBySession returns the result for a session, or nil if none was recorded
func (r *ResultRepository) GetResultBySession(sessionID string) (*models.QuizResult, error) {
	row := r.db.QueryRow("SELECT "+resultColumns+" FROM quiz_results WHERE session_id = ?", sessionID)
	result, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return result, nil
}

// ListResults returns the newest results first. quizID 0 means all quizzes,
// limit 0 means no limit.
func (r *ResultRepository) ListResults(quizID int64, limit int) ([]models.QuizResult, error) {
	query := "SELECT " + resultColumns + " FROM quiz_results"
	var args []interface{}
	if quizID != 0 {
		query += " WHERE quiz_id = ?"
		args = append(args, quizID)
	}
	query += " ORDER BY finished_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []models.QuizResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, *result)
	}

	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanResult(row rowScanner) (*models.QuizResult, error) {
	var result models.QuizResult
	var outcome, answers string
	if err := row.Scan(
		&result.ID,
		&result.SessionID,
		&result.QuizID,
		&result.QuizSlug,
		&outcome,
		&answers,
		&result.AnsweredCount,
		&result.TotalQuestions,
		&result.StartedAt,
		&result.FinishedAt,
	); err != nil {
		return nil, err
	}

	result.Outcome = models.Outcome(outcome)
	result.Answers = make(models.AnswerMap)
	if err := json.Unmarshal([]byte(answers), &result.Answers); err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}
	return &result, nil
}
