package security

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// AdminAuth checks basic auth credentials for the admin endpoints
type AdminAuth struct {
	username     string
	passwordHash []byte
}

// NewAdminAuth returns nil when no hash is configured, which disables the
// admin endpoints.
func NewAdminAuth(username, passwordHash string) *AdminAuth {
	if passwordHash == "" {
		return nil
	}
	if username == "" {
		username = "admin"
	}
	return &AdminAuth{username: username, passwordHash: []byte(passwordHash)}
}

// Check reports whether the credentials match
func (a *AdminAuth) Check(username, password string) bool {
	if a == nil {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
	return userOK && passOK
}

// HashPassword hashes a password for ADMIN_PASSWORD_HASH
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
