package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_TYPE", "")
	t.Setenv("PORT", "")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.QuizDuration != 300*time.Second {
		t.Errorf("QuizDuration = %v, want 5m", cfg.QuizDuration)
	}
	if cfg.TransitionDelay != 500*time.Millisecond {
		t.Errorf("TransitionDelay = %v, want 500ms", cfg.TransitionDelay)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("QUIZ_DURATION", "90s")
	t.Setenv("APP_MODE", "debug")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.QuizDuration != 90*time.Second {
		t.Errorf("QuizDuration = %v, want 90s", cfg.QuizDuration)
	}
	if !cfg.IsDebug() {
		t.Error("expected debug mode")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "sqlite default", cfg: Config{DatabaseType: "sqlite"}, wantErr: false},
		{name: "postgres without url", cfg: Config{DatabaseType: "postgres"}, wantErr: true},
		{name: "mysql with url", cfg: Config{DatabaseType: "mysql", DatabaseURL: "user:pass@/quiz"}, wantErr: false},
		{name: "unknown database", cfg: Config{DatabaseType: "oracle"}, wantErr: true},
		{name: "negative duration", cfg: Config{QuizDuration: -time.Second}, wantErr: true},
		{name: "short secret in release", cfg: Config{AppMode: "release", TokenSecret: "short"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadAllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://quiz.example.com, ,http://localhost:3000")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []string{"https://quiz.example.com", "http://localhost:3000"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("AllowedOrigins = %v, want %v", cfg.AllowedOrigins, want)
	}
	for i := range want {
		if cfg.AllowedOrigins[i] != want[i] {
			t.Errorf("AllowedOrigins[%d] = %q, want %q", i, cfg.AllowedOrigins[i], want[i])
		}
	}
	if cfg.AdminUsername != "admin" {
		t.Errorf("AdminUsername = %q, want admin", cfg.AdminUsername)
	}
}
