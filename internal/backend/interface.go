package backend

import (
	"context"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/session"
	"finboard/internal/store"
)

// Backend is the transaction store every surface works against.
type Backend interface {
	store.TransactionStore
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	// Queue is nil unless AMQP is configured and reachable.
	Queue *amqp.Client
	// Session is set for the remote backend.
	Session *session.Session
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Remote specific
	APIBaseURL  string
	APITimeout  time.Duration
	APIToken    string
	SessionFile string

	// SQLite specific
	SQLiteDBPath string

	// Memory specific
	SeedCSV string

	// AMQP is optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	RemoteBackend BackendType = "remote"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case RemoteBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
