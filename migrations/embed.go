// Package migrations carries the SQL schema for every supported dialect.
package migrations

import (
	"embed"
	"io/fs"
	"os"
)

// FS holds one subdirectory of ordered .sql files per dialect
//
//go:embed sqlite/*.sql postgres/*.sql mysql/*.sql
var FS embed.FS

// Source returns dir as a file system when set, and the embedded schema otherwise
func Source(dir string) fs.FS {
	if dir == "" {
		return FS
	}
	return os.DirFS(dir)
}
