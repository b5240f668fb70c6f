package cli

import (
	"context"
	"errors"
	"fmt"

	"moneytracker/internal/amqp"
	"moneytracker/internal/backend"
	"moneytracker/internal/config"
	"moneytracker/internal/ledger"
	"moneytracker/internal/log"
	"moneytracker/internal/services"
	"moneytracker/internal/sheets"
	gsheet "moneytracker/internal/sheets/google"
)

// App is the object graph every command works against.
type App struct {
	Config       *config.Config
	Logger       *log.Logger
	Backend      backend.Backend
	Store        *ledger.Store
	Stats        *ledger.Stats
	Processor    *services.RecurringProcessor
	Checkpointer *services.Checkpointer

	publisher *amqp.Client
}

// AppOption customizes Bootstrap.
type AppOption func(*appOptions)

type appOptions struct {
	factory   backend.Factory
	publisher bool
}

// WithFactory replaces the default backend factory.
func WithFactory(f backend.Factory) AppOption {
	return func(o *appOptions) { o.factory = f }
}

// WithPublishing connects the AMQP publisher when AMQP_URL is set. Commands
// that never create transactions leave it off.
func WithPublishing() AppOption {
	return func(o *appOptions) { o.publisher = true }
}

// Bootstrap opens the configured backend, loads the ledger and wires the
// recurring processor and checkpointer.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *log.Logger, opts ...AppOption) (*App, error) {
	o := appOptions{factory: backend.NewFactory(logger)}
	for _, opt := range opts {
		opt(&o)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	b, err := o.factory.CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	store, err := backend.OpenStore(ctx, b, logger)
	if err != nil {
		b.Close()
		return nil, err
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Backend: b,
		Store:   store,
		Stats:   ledger.NewStats(store, cfg.Location()),
	}

	procOpts := []services.ProcessorOption{services.WithLogger(logger)}
	if o.publisher && cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without publishing", log.FieldError, err)
		} else {
			app.publisher = client
			procOpts = append(procOpts, services.WithPublisher(client))
			logger.InfoContext(ctx, "AMQP publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}
	app.Processor = services.NewRecurringProcessor(store, procOpts...)
	app.Checkpointer = services.NewCheckpointer(store, b, logger)

	logger.InfoContext(ctx, "Ledger loaded",
		log.FieldBackend, string(bcfg.Type),
		log.FieldRevision, store.Revision(),
		"accounts", len(store.Accounts()),
		"transactions", len(store.Transactions()))
	return app, nil
}

// ProcessAndSave runs one recurring pass and checkpoints the result. A pass
// that fails partway is still checkpointed for what it changed.
func (a *App) ProcessAndSave(ctx context.Context) (services.Result, error) {
	res, err := a.Processor.Process(ctx)
	if err != nil && !res.Changed() {
		return res, err
	}
	if _, cpErr := a.Checkpointer.Checkpoint(ctx); cpErr != nil {
		return res, errors.Join(err, cpErr)
	}
	return res, err
}

// SheetsWriter returns the configured spreadsheet export target.
func (a *App) SheetsWriter(ctx context.Context) (sheets.RowWriter, error) {
	if !a.Config.SheetsEnabled() {
		return nil, errors.New("sheets export requires GOOGLE_SPREADSHEET_ID")
	}
	client, err := gsheet.NewFromConfig(ctx, gsheet.Config{
		SpreadsheetID:      a.Config.GoogleSpreadsheetID,
		SheetName:          a.Config.GoogleSheetName,
		ServiceAccountJSON: a.Config.GoogleServiceAccountJSON,
		ServiceAccountFile: a.Config.GoogleServiceAccountFile,
	}, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return client, nil
}

// Close saves pending changes and releases the backend and publisher.
func (a *App) Close(ctx context.Context) error {
	_, saveErr := a.Checkpointer.Checkpoint(ctx)
	if a.publisher != nil {
		a.publisher.Close()
	}
	return errors.Join(saveErr, a.Backend.Close())
}
