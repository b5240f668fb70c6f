package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"moneytracker/internal/core"
	"moneytracker/internal/ledger"
	"moneytracker/internal/log"
)

// TransactionPublisher is notified of every transaction the processor creates.
type TransactionPublisher interface {
	PublishTransactionCreated(ctx context.Context, t core.Transaction) error
}

// SkippedTemplate records a template the processor could not evaluate.
type SkippedTemplate struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Result describes the effect of one processing pass.
type Result struct {
	ProcessedAt time.Time          `json:"processedAt"`
	Created     []core.Transaction `json:"created"`
	Deactivated []string           `json:"deactivated"`
	Skipped     []SkippedTemplate  `json:"skipped"`
}

// Changed reports whether the pass modified the store.
func (r Result) Changed() bool {
	return len(r.Created) > 0 || len(r.Deactivated) > 0
}

// RecurringProcessor materializes due recurring templates into transactions.
type RecurringProcessor struct {
	store     *ledger.Store
	clock     core.Clock
	newID     func() string
	publisher TransactionPublisher
	logger    *log.Logger
}

// ProcessorOption configures a RecurringProcessor.
type ProcessorOption func(*RecurringProcessor)

func WithClock(c core.Clock) ProcessorOption {
	return func(p *RecurringProcessor) { p.clock = c }
}

// WithIDGenerator overrides how ids of created transactions are generated.
func WithIDGenerator(fn func() string) ProcessorOption {
	return func(p *RecurringProcessor) { p.newID = fn }
}

func WithPublisher(pub TransactionPublisher) ProcessorOption {
	return func(p *RecurringProcessor) { p.publisher = pub }
}

func WithLogger(l *log.Logger) ProcessorOption {
	return func(p *RecurringProcessor) { p.logger = l }
}

// NewRecurringProcessor creates a new recurring transaction processor
func NewRecurringProcessor(store *ledger.Store, opts ...ProcessorOption) *RecurringProcessor {
	p := &RecurringProcessor{
		store:  store,
		clock:  core.SystemClock,
		newID:  uuid.NewString,
		logger: log.New(log.DefaultConfig()),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithComponent(log.ComponentRecurring)
	return p
}

// Process runs one pass over every active template. A template that is due
// materializes at most one transaction per call, however many periods have
// elapsed since its baseline; later calls catch up one period at a time.
//
// The pass holds the store's write lock throughout. Publishing happens after
// the lock is released.
//
// A failing pass is not rolled back. Transactions created before the failure
// stay in the store, are published and are reported in the returned Result
// alongside the error.
func (p *RecurringProcessor) Process(ctx context.Context) (Result, error) {
	if p.store == nil {
		return Result{}, fmt.Errorf("processor not properly initialized")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	now := p.clock.Now()
	res := Result{ProcessedAt: now}

	err := p.store.Update(func(tx *ledger.Tx) error {
		templates := tx.RecurringTransactions()
		p.logger.DebugContext(ctx, "Processing recurring transactions",
			"total", len(templates),
			"processing_date", now.Format(time.RFC3339))

		for _, rt := range templates {
			if !rt.IsActive {
				continue
			}
			fields := log.NewFields().WithTemplate(rt.ID, rt.Name, string(rt.Frequency))

			if rt.EndDate != nil && rt.EndDate.Before(now) {
				tx.UpdateRecurringTransaction(rt.ID, ledger.RecurringPatch{IsActive: ledger.Ptr(false)})
				res.Deactivated = append(res.Deactivated, rt.ID)
				p.logger.InfoContext(ctx, "Deactivated recurring transaction past its end date", fields.ToSlice()...)
				continue
			}

			if rt.Type != core.Income && rt.Type != core.Expense {
				res.Skipped = append(res.Skipped, SkippedTemplate{
					ID: rt.ID, Name: rt.Name, Reason: fmt.Sprintf("unsupported type %q", rt.Type),
				})
				continue
			}

			due, err := IsDue(rt, now)
			if err != nil {
				res.Skipped = append(res.Skipped, SkippedTemplate{ID: rt.ID, Name: rt.Name, Reason: err.Error()})
				p.logger.WarnContext(ctx, "Skipping recurring transaction", fields.WithError(err).ToSlice()...)
				continue
			}
			if !due {
				continue
			}

			if missing := missingAccount(rt); missing != "" {
				p.logger.WarnContext(ctx, "Recurring transaction has no "+missing+" account, balance will not move",
					fields.ToSlice()...)
			}

			t := p.materialize(rt, now)
			if err := tx.AddTransaction(t); err != nil {
				return fmt.Errorf("add transaction for recurring %s: %w", rt.ID, err)
			}
			tx.UpdateRecurringTransaction(rt.ID, ledger.RecurringPatch{LastProcessed: &now})
			res.Created = append(res.Created, t)

			p.logger.InfoContext(ctx, "Created transaction from recurring template",
				fields.ToSlice()...)
		}
		return nil
	})
	p.publish(ctx, res.Created)
	if err != nil {
		p.logger.ErrorContext(ctx, "Recurring transaction processing stopped",
			"created", len(res.Created),
			log.FieldError, err)
		return res, err
	}

	p.logger.InfoContext(ctx, "Recurring transaction processing complete",
		"created", len(res.Created),
		"deactivated", len(res.Deactivated),
		"skipped", len(res.Skipped))
	return res, nil
}

func (p *RecurringProcessor) materialize(rt core.RecurringTransaction, now time.Time) core.Transaction {
	return core.Transaction{
		ID:            p.newID(),
		Date:          now,
		Amount:        rt.Amount,
		Type:          rt.Type,
		CategoryID:    rt.CategoryID,
		FromAccountID: rt.FromAccountID,
		ToAccountID:   rt.ToAccountID,
		Notes:         "Auto: " + rt.Name,
		Tags:          []string{core.RecurringTag},
		CreatedAt:     now,
	}
}

func (p *RecurringProcessor) publish(ctx context.Context, created []core.Transaction) {
	if p.publisher == nil {
		return
	}
	for _, t := range created {
		if err := p.publisher.PublishTransactionCreated(ctx, t); err != nil {
			p.logger.ErrorContext(ctx, "Failed to publish created transaction",
				log.FieldTransaction, t.ID,
				log.FieldError, err)
		}
	}
}

// missingAccount names the account leg rt's type needs but lacks.
func missingAccount(rt core.RecurringTransaction) string {
	switch {
	case rt.Type == core.Expense && rt.FromAccountID == "":
		return "source"
	case rt.Type == core.Income && rt.ToAccountID == "":
		return "destination"
	}
	return ""
}
