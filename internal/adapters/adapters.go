// Package adapters assembles the application services on top of the store
// backend, the optional message queue and the optional outbound integrations.
package adapters

import (
	"context"
	"fmt"
	"log/slog"

	"finboard/internal/advisor"
	"finboard/internal/amqp"
	"finboard/internal/analytics"
	"finboard/internal/backend"
	"finboard/internal/cache"
	"finboard/internal/config"
	"finboard/internal/sheets"
	gsheet "finboard/internal/sheets/google"
	"finboard/internal/services"
)

// App holds the services shared by the server and the worker.
type App struct {
	Store        backend.Backend
	Engine       *analytics.Engine
	Dashboard    *services.DashboardService
	Transactions *services.TransactionService
	Caches       *cache.Manager
}

// NewApp builds the dashboard and transaction services over the backend. The
// transaction service invalidates the dashboard snapshot on every change and
// publishes through the queue when one is attached.
func NewApp(res *backend.BackendResult, cfg *config.Config) *App {
	engine := analytics.NewEngine(cfg.CacheSize, cfg.CacheTTL)

	caches := cache.NewManager()
	caches.Register(engine.Cache())

	dash := services.NewDashboardService(res.Backend, engine,
		services.WithConcurrency(cfg.FetchConcurrency),
		services.WithMaxAge(cfg.CacheTTL))

	opts := append(QueueOptions(res.Queue), services.WithOnChange(dash.Invalidate))
	txs := services.NewTransactionService(res.Backend, opts...)

	return &App{
		Store:        res.Backend,
		Engine:       engine,
		Dashboard:    dash,
		Transactions: txs,
		Caches:       caches,
	}
}

// QueueOptions returns the transaction options publishing through q. A nil
// client yields none, so the service never holds a typed nil publisher.
func QueueOptions(q *amqp.Client) []services.TransactionOption {
	if q == nil {
		return nil
	}
	return []services.TransactionOption{
		services.WithEvents(q),
		services.WithImportQueue(q),
	}
}

// InvalidateOnEvent returns an event handler that marks dash stale, so
// writes made by other processes show up on the next read.
func InvalidateOnEvent(dash *services.DashboardService) amqp.EventHandler {
	return func(context.Context, *amqp.TransactionEventMessage) {
		dash.Invalidate()
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

// ReadyCheck returns a probe for backends that can be pinged, nil otherwise.
func ReadyCheck(b backend.Backend) func(ctx context.Context) error {
	p, ok := b.(pinger)
	if !ok {
		return nil
	}
	return p.Ping
}

// NewSheetsWriter connects the Google Sheets export sink. It returns a nil
// writer without error when export is not configured.
func NewSheetsWriter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (sheets.ReportWriter, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
		return nil, nil
	}
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}

// NewAdvisor returns the chat assistant for cfg. Without an API key it stays
// unconfigured and the server answers with the offline fallback.
func NewAdvisor(cfg *config.Config, currency string) *advisor.Advisor {
	return advisor.New(advisor.Config{
		APIKey:         cfg.AIAPIKey,
		BaseURL:        cfg.AIBaseURL,
		Model:          cfg.AIModel,
		CurrencySymbol: currency,
	})
}
