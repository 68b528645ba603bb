package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"quizstack/internal/models"
	"quizstack/internal/repository"
	"quizstack/internal/validation"
)

// Bank is the on-disk format of a question bank
type Bank struct {
	Quizzes []models.Quiz `yaml:"quizzes" json:"quizzes"`
}

// ResultsExport is the JSON document written by ExportResults
type ResultsExport struct {
	Version    string              `json:"version"`
	ExportedAt time.Time           `json:"exported_at"`
	Results    []models.QuizResult `json:"results"`
}

// BankService imports and exports question banks and recorded results
type BankService struct {
	quizRepo   *repository.QuizRepository
	resultRepo *repository.ResultRepository
	log        *zap.Logger
}

// NewBankService creates a new bank service
func NewBankService(quizRepo *repository.QuizRepository, resultRepo *repository.ResultRepository, log *zap.Logger) *BankService {
	return &BankService{quizRepo: quizRepo, resultRepo: resultRepo, log: log}
}

// DefaultQuiz is the quiz seeded into an empty database
func DefaultQuiz() models.Quiz {
	return models.Quiz{
		Slug:            "general-knowledge",
		Title:           "General Knowledge",
		DurationSeconds: 300,
		Questions: []models.Question{
			{ID: 1, Prompt: "What is the capital of France?", Options: []string{"London", "Berlin", "Paris", "Madrid"}},
			{ID: 2, Prompt: "Which planet is known as the Red Planet?", Options: []string{"Mars", "Venus", "Jupiter", "Saturn"}},
			{ID: 3, Prompt: "What is the largest mammal?", Options: []string{"African Elephant", "Blue Whale", "Giraffe", "White Rhinoceros"}},
		},
	}
}

// ParseBank decodes and validates a YAML question bank. Unknown keys are rejected.
func ParseBank(r io.Reader) (*Bank, error) {
	var bank Bank
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&bank); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, validation.ValidationError{Field: "quizzes", Message: "question bank is empty"}
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedBank, err)
	}
	if len(bank.Quizzes) == 0 {
		return nil, validation.ValidationError{Field: "quizzes", Message: "question bank is empty"}
	}

	slugs := make(map[string]bool, len(bank.Quizzes))
	for i, quiz := range bank.Quizzes {
		if err := validation.ValidateQuiz(quiz); err != nil {
			var verr validation.ValidationError
			if errors.As(err, &verr) {
				verr.Field = fmt.Sprintf("quizzes[%d].%s", i, verr.Field)
				return nil, verr
			}
			return nil, err
		}
		if slugs[quiz.Slug] {
			return nil, validation.ValidationError{Field: fmt.Sprintf("quizzes[%d].slug", i), Message: fmt.Sprintf("duplicate slug %q", quiz.Slug)}
		}
		slugs[quiz.Slug] = true
	}
	return &bank, nil
}

// ImportFromReader validates a YAML bank and stores every quiz in it,
// replacing quizzes with the same slug.
func (s *BankService) ImportFromReader(r io.Reader) ([]models.QuizSummary, error) {
	bank, err := ParseBank(r)
	if err != nil {
		return nil, err
	}

	imported := make([]models.QuizSummary, 0, len(bank.Quizzes))
	for i := range bank.Quizzes {
		quiz := &bank.Quizzes[i]
		if _, err := s.quizRepo.SaveQuiz(quiz); err != nil {
			return imported, fmt.Errorf("failed to import quiz %s: %w", quiz.Slug, err)
		}
		imported = append(imported, models.QuizSummary{
			ID:              quiz.ID,
			Slug:            quiz.Slug,
			Title:           quiz.Title,
			DurationSeconds: quiz.DurationSeconds,
			QuestionCount:   len(quiz.Questions),
		})
		s.log.Info("Imported quiz", zap.String("slug", quiz.Slug), zap.Int("questions", len(quiz.Questions)))
	}
	return imported, nil
}

// Import loads a YAML bank from a file
func (s *BankService) Import(inputPath string) ([]models.QuizSummary, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// SeedDefault stores DefaultQuiz when the database holds no quizzes yet
func (s *BankService) SeedDefault() error {
	count, err := s.quizRepo.CountQuizzes()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	quiz := DefaultQuiz()
	if _, err := s.quizRepo.SaveQuiz(&quiz); err != nil {
		return fmt.Errorf("failed to seed default quiz: %w", err)
	}
	s.log.Info("Seeded default quiz", zap.String("slug", quiz.Slug))
	return nil
}

// DeleteQuiz removes a quiz with its questions and recorded results
func (s *BankService) DeleteQuiz(quizID int64) error {
	quiz, err := s.quizRepo.GetQuizByID(quizID)
	if err != nil {
		return err
	}
	if quiz == nil {
		return ErrQuizNotFound
	}
	if err := s.quizRepo.DeleteQuiz(quizID); err != nil {
		return err
	}
	s.log.Info("Deleted quiz", zap.String("slug", quiz.Slug))
	return nil
}

// ExportBankToWriter writes every stored quiz as a YAML bank
func (s *BankService) ExportBankToWriter(w io.Writer) error {
	summaries, err := s.quizRepo.ListQuizzes()
	if err != nil {
		return err
	}

	bank := Bank{Quizzes: make([]models.Quiz, 0, len(summaries))}
	for _, summary := range summaries {
		quiz, err := s.quizRepo.GetQuizByID(summary.ID)
		if err != nil {
			return err
		}
		if quiz != nil {
			bank.Quizzes = append(bank.Quizzes, *quiz)
		}
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(bank); err != nil {
		return fmt.Errorf("failed to encode question bank: %w", err)
	}
	return encoder.Close()
}

// ExportResultsToWriter writes every recorded result as indented JSON
func (s *BankService) ExportResultsToWriter(w io.Writer, quizID int64) (int, error) {
	results, err := s.resultRepo.ListResults(quizID, 0)
	if err != nil {
		return 0, err
	}
	if results == nil {
		results = []models.QuizResult{}
	}

	export := ResultsExport{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Results:    results,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return 0, fmt.Errorf("failed to encode results: %w", err)
	}
	return len(results), nil
}

// ExportResults writes recorded results to a JSON file, creating its directory
func (s *BankService) ExportResults(outputPath string, quizID int64) (int, error) {
	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	n, err := s.ExportResultsToWriter(file, quizID)
	if err != nil {
		return 0, err
	}
	s.log.Info("Results exported", zap.String("path", outputPath), zap.Int("count", n))
	return n, nil
}
