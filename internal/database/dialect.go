package database

import (
	"database/sql"
	"strconv"
	"strings"
)

// Dialect hides the differences between the supported SQL backends
type Dialect interface {
	DriverName() string

	// DSN builds the connection string, adding driver options the
	// repositories rely on
	DSN(config DialectConfig) string

	// RewriteQuery turns ? placeholders into the backend's syntax
	RewriteQuery(query string) string

	// SupportsLastInsertId is false where inserts need RETURNING id
	SupportsLastInsertId() bool

	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir names the directory holding this backend's .sql files
	MigrationsSubdir() string

	CreateMigrationsTableQuery() string

	// IsUniqueViolation reports whether err came from a UNIQUE or primary
	// key constraint
	IsUniqueViolation(err error) bool

	// UpsertQuizQuery inserts a quiz or updates title and duration when the
	// slug already exists. Arguments: slug, title, duration_seconds.
	UpsertQuizQuery() string
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path string

	// For PostgreSQL/MySQL
	URL string
}

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, ...
// Question marks inside quoted literals and identifiers are left alone.
func rewritePlaceholdersToNumbered(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	counter := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			counter++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(counter))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
