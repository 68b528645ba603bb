package handlers

const (
	TokenQueryParam = "token"
	BearerPrefix    = "Bearer "

	maxBankSize = 1 << 20

	ErrInvalidRequest        = "Invalid request"
	ErrUnauthorized          = "Unauthorized"
	ErrTooManyRequests       = "Too many requests"
	ErrInternalServerError   = "Internal server error"
	ErrSessionNotFoundMsg    = "Session not found"
	ErrQuizNotFoundMsg       = "Quiz not found"
	ErrServiceUnavailableMsg = "Service unavailable"
)
