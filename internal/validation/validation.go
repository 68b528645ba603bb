// Package validation checks question banks and contact settings before they
// reach storage.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"quizstack/internal/models"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	slugRegex  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

const (
	MaxQuestions   = 500
	MaxOptions     = 12
	MaxSlugLength  = 64
	MaxTitleLength = 200
	MaxDuration    = 24 * 60 * 60
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateSlug checks a quiz slug: lowercase words joined by single hyphens
func ValidateSlug(slug string) error {
	if slug == "" {
		return ValidationError{Field: "slug", Message: "slug is required"}
	}
	if len(slug) > MaxSlugLength {
		return ValidationError{Field: "slug", Message: fmt.Sprintf("slug must be at most %d characters", MaxSlugLength)}
	}
	if !slugRegex.MatchString(slug) {
		return ValidationError{Field: "slug", Message: "slug may only contain lowercase letters, digits and single hyphens"}
	}
	return nil
}

// ValidateQuestion checks one question. prefix names it in error fields.
func ValidateQuestion(prefix string, q models.Question) error {
	if q.ID <= 0 {
		return ValidationError{Field: prefix + ".id", Message: "id must be a positive integer"}
	}
	if strings.TrimSpace(q.Prompt) == "" {
		return ValidationError{Field: prefix + ".prompt", Message: "prompt is required"}
	}
	if len(q.Options) < 2 {
		return ValidationError{Field: prefix + ".options", Message: "at least two options are required"}
	}
	if len(q.Options) > MaxOptions {
		return ValidationError{Field: prefix + ".options", Message: fmt.Sprintf("at most %d options are allowed", MaxOptions)}
	}

	seen := make(map[string]bool, len(q.Options))
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return ValidationError{Field: fmt.Sprintf("%s.options[%d]", prefix, i), Message: "option must not be empty"}
		}
		// Answers are matched byte for byte.
		if strings.TrimSpace(opt) != opt {
			return ValidationError{Field: fmt.Sprintf("%s.options[%d]", prefix, i), Message: "option must not have leading or trailing spaces"}
		}
		if seen[opt] {
			return ValidationError{Field: fmt.Sprintf("%s.options[%d]", prefix, i), Message: fmt.Sprintf("duplicate option %q", opt)}
		}
		seen[opt] = true
	}
	return nil
}

// ValidateQuiz checks a whole quiz: slug, title, duration, and unique question ids
func ValidateQuiz(q models.Quiz) error {
	if err := ValidateSlug(q.Slug); err != nil {
		return err
	}
	title := strings.TrimSpace(q.Title)
	if title == "" {
		return ValidationError{Field: "title", Message: "title is required"}
	}
	if len(title) > MaxTitleLength {
		return ValidationError{Field: "title", Message: fmt.Sprintf("title must be at most %d characters", MaxTitleLength)}
	}
	if q.DurationSeconds < 0 || q.DurationSeconds > MaxDuration {
		return ValidationError{Field: "duration_seconds", Message: fmt.Sprintf("duration must be between 0 and %d seconds", MaxDuration)}
	}
	if len(q.Questions) == 0 {
		return ValidationError{Field: "questions", Message: "at least one question is required"}
	}
	if len(q.Questions) > MaxQuestions {
		return ValidationError{Field: "questions", Message: fmt.Sprintf("at most %d questions are allowed", MaxQuestions)}
	}

	ids := make(map[int64]bool, len(q.Questions))
	for i, question := range q.Questions {
		prefix := fmt.Sprintf("questions[%d]", i)
		if err := ValidateQuestion(prefix, question); err != nil {
			return err
		}
		if ids[question.ID] {
			return ValidationError{Field: prefix + ".id", Message: fmt.Sprintf("duplicate question id %d", question.ID)}
		}
		ids[question.ID] = true
	}
	return nil
}
