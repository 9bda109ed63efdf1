package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finboard/internal/amqp"
	"finboard/internal/session"
	"finboard/internal/storage"
	"finboard/internal/store/memory"
	"finboard/internal/store/remote"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory. logger is expected to carry its
// component already; nil logs through the default logger as "backend".
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default().With("component", "backend")
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case RemoteBackend:
		res, err = f.createRemoteBackend(config)
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		res, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.attachQueue(res, config)
	return res, nil
}

func (f *DefaultFactory) createRemoteBackend(config Config) (*BackendResult, error) {
	// An explicit token wins over the session file and is never persisted.
	var (
		sess *session.Session
		err  error
	)
	if config.APIToken != "" {
		sess = session.New(config.APIToken)
	} else {
		sess, err = session.Load(config.SessionFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
	}

	client := remote.New(config.APIBaseURL, sess,
		remote.WithTimeout(config.APITimeout),
		remote.WithLogger(f.logger))

	f.logger.Info("Initialized remote backend",
		"base_url", config.APIBaseURL,
		"authenticated", sess.Authenticated())

	return &BackendResult{Backend: client, Session: sess}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	if err := repo.Ping(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("SQLite repository not reachable: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{Backend: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	st, err := memory.NewFromCSV(config.SeedCSV)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend",
		"seed_csv", config.SeedCSV,
		"transactions", len(st.Snapshot()))

	return &BackendResult{Backend: st}, nil
}

// attachQueue connects the optional AMQP client. A broker that cannot be
// reached leaves the backend usable without events or queued imports.
func (f *DefaultFactory) attachQueue(res *BackendResult, config Config) {
	if config.AMQPURL == "" {
		return
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without queue", "error", err)
		return
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	res.Queue = client
	storeCleanup := res.Cleanup
	res.Cleanup = func() error {
		var errs []error
		if storeCleanup != nil {
			errs = append(errs, storeCleanup())
		}
		errs = append(errs, client.Close())
		return errors.Join(errs...)
	}
}
