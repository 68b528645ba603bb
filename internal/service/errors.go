package service

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrQuizNotFound    = errors.New("quiz not found")
	ErrEmptyQuiz       = errors.New("quiz has no questions")
	ErrMalformedBank   = errors.New("malformed question bank")
)
