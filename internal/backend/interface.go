package backend

import (
	"context"

	"rbudget/internal/scenario"
	"rbudget/internal/scenario/google"
	"rbudget/internal/scenario/objectstore"
)

// Source is what every backend provides: named scenarios that can be
// listed and loaded. Writable backends also implement scenario.Writer.
type Source interface {
	scenario.Loader
	scenario.Lister
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the source and an optional cleanup function.
type BackendResult struct {
	Source  Source
	Cleanup CleanupFunc
}

// Writer returns the source as a scenario.Writer when it can store
// scenarios.
func (r *BackendResult) Writer() (scenario.Writer, bool) {
	w, ok := r.Source.(scenario.Writer)
	return w, ok
}

// Close runs the cleanup function if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Memory: directory of scenario documents, sample data when empty
	DataDirectory string

	// SQLite
	SQLiteDBPath string
	SeedSample   bool

	Sheets google.Config
	S3     objectstore.Config
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	S3Backend     BackendType = "s3"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, SheetsBackend, S3Backend:
		return true
	default:
		return false
	}
}
