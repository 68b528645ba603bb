package security

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("fourth request should be rejected")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other clients should have their own bucket")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(5, time.Second)
	rl.Allow("a")
	rl.Allow("b")

	if removed := rl.cleanup(time.Now()); removed != 0 {
		t.Errorf("cleanup removed %d fresh visitors", removed)
	}
	if removed := rl.cleanup(time.Now().Add(2 * time.Minute)); removed != 2 {
		t.Errorf("cleanup removed %d, want 2", removed)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{name: "remote addr", remoteAddr: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "forwarded chain", remoteAddr: "10.0.0.1:80", headers: map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, want: "203.0.113.5"},
		{name: "real ip", remoteAddr: "10.0.0.1:80", headers: map[string]string{"X-Real-IP": "198.51.100.7"}, want: "198.51.100.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-that-is-long-enough-123", time.Hour)
	sid := GenerateSessionID()

	token, err := issuer.Issue(sid, 7)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := issuer.Verify(token, sid)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.QuizID != 7 {
		t.Errorf("QuizID = %d, want 7", claims.QuizID)
	}

	if _, err := issuer.Verify(token, GenerateSessionID()); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token for another session: err = %v, want ErrInvalidToken", err)
	}

	other := NewTokenIssuer("a-different-secret-that-is-long-456", time.Hour)
	if _, err := other.Verify(token, sid); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenIssuerExpiry(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-that-is-long-enough-123", time.Minute)
	start := time.Now()
	issuer.now = func() time.Time { return start }

	sid := GenerateSessionID()
	token, err := issuer.Issue(sid, 1)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	issuer.now = func() time.Time { return start.Add(2 * time.Minute) }
	if _, err := issuer.Verify(token, sid); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: err = %v, want ErrInvalidToken", err)
	}
}

func TestAdminAuth(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	auth := NewAdminAuth("", hash)

	tests := []struct {
		name     string
		user     string
		password string
		want     bool
	}{
		{name: "valid", user: "admin", password: "correct horse", want: true},
		{name: "wrong password", user: "admin", password: "battery staple", want: false},
		{name: "wrong user", user: "root", password: "correct horse", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := auth.Check(tt.user, tt.password); got != tt.want {
				t.Errorf("Check() = %v, want %v", got, tt.want)
			}
		})
	}

	var disabled *AdminAuth = NewAdminAuth("admin", "")
	if disabled.Check("admin", "anything") {
		t.Error("disabled admin auth should reject everything")
	}
}

func TestHashPasswordTooShort(t *testing.T) {
	if _, err := HashPassword("short"); err == nil {
		t.Error("expected error for short password")
	}
}
