package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	ServerPort string
	AppMode    string // "debug" or "release"

	DatabaseType   string // sqlite, postgres, mysql
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string
	SeedFile       string

	QuizDuration    time.Duration
	TransitionDelay time.Duration
	TickInterval    time.Duration
	SessionTTL      time.Duration
	CleanupInterval time.Duration

	TokenSecret       string
	AdminUsername     string
	AdminPasswordHash string
	AllowedOrigins    []string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	LogFile string

	AWSRegion      string
	SESFromEmail   string
	SESFromName    string
	ResultsEmailTo string
	EmailDebug     bool
}

// Load reads configuration from an optional .env file, an optional
// config.yaml in configDir and environment variables, in increasing priority.
func Load(configDir string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		ServerPort:        v.GetString("PORT"),
		AppMode:           v.GetString("APP_MODE"),
		DatabaseType:      v.GetString("DB_TYPE"),
		DatabasePath:      v.GetString("DB_PATH"),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		MigrationsPath:    v.GetString("MIGRATIONS_PATH"),
		SeedFile:          v.GetString("SEED_FILE"),
		QuizDuration:      v.GetDuration("QUIZ_DURATION"),
		TransitionDelay:   v.GetDuration("TRANSITION_DELAY"),
		TickInterval:      v.GetDuration("TICK_INTERVAL"),
		SessionTTL:        v.GetDuration("SESSION_TTL"),
		CleanupInterval:   v.GetDuration("CLEANUP_INTERVAL"),
		TokenSecret:       v.GetString("TOKEN_SECRET"),
		AdminUsername:     v.GetString("ADMIN_USERNAME"),
		AdminPasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
		AllowedOrigins:    splitList(v.GetString("ALLOWED_ORIGINS")),
		RateLimitRequests: v.GetInt("RATE_LIMIT_REQUESTS"),
		RateLimitWindow:   v.GetDuration("RATE_LIMIT_WINDOW"),
		LogFile:           v.GetString("LOG_FILE"),
		AWSRegion:         v.GetString("AWS_REGION"),
		SESFromEmail:      v.GetString("SES_FROM_EMAIL"),
		SESFromName:       v.GetString("SES_FROM_NAME"),
		ResultsEmailTo:    v.GetString("RESULTS_EMAIL_TO"),
		EmailDebug:        v.GetBool("EMAIL_DEBUG"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_MODE", "release")
	v.SetDefault("DB_TYPE", "sqlite")
	v.SetDefault("DB_PATH", "./quizstack.db")
	v.SetDefault("QUIZ_DURATION", 300*time.Second)
	v.SetDefault("TRANSITION_DELAY", 500*time.Millisecond)
	v.SetDefault("TICK_INTERVAL", time.Second)
	v.SetDefault("SESSION_TTL", 2*time.Hour)
	v.SetDefault("CLEANUP_INTERVAL", 10*time.Minute)
	v.SetDefault("TOKEN_SECRET", "dev-secret-change-me")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("RATE_LIMIT_REQUESTS", 20)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Second)
	v.SetDefault("LOG_FILE", "logs/quizstack.log")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("SES_FROM_NAME", "QuizStack")
}

// Validate checks settings that would otherwise fail later at runtime
func (c *Config) Validate() error {
	switch strings.ToLower(c.DatabaseType) {
	case "sqlite", "sqlite3", "":
	case "postgres", "postgresql", "mysql":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for database type %s", c.DatabaseType)
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
	if c.QuizDuration < 0 {
		return fmt.Errorf("QUIZ_DURATION must not be negative")
	}
	if c.TransitionDelay < 0 {
		return fmt.Errorf("TRANSITION_DELAY must not be negative")
	}
	if c.AppMode == "release" && len(c.TokenSecret) < 32 && c.TokenSecret != "dev-secret-change-me" {
		return fmt.Errorf("TOKEN_SECRET is too short (%d chars), must be at least 32 characters in release mode", len(c.TokenSecret))
	}
	return nil
}

// IsDebug reports whether verbose logging is enabled
func (c *Config) IsDebug() bool {
	return c.AppMode == "debug"
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
