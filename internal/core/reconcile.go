package core

// reconcile.go applies an employee batch to the record store.
//
// Rows are read one at a time and processed strictly in input order. Each
// row's reads and writes complete before the next row is read, so a manager
// written earlier in the batch is visible to later rows through the store.
// There is no batch transaction: rows already written stay written when a
// later row fails with a store error.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/JonMunkholm/orgsync/internal/core")

// EngineOptions configures an Engine.
type EngineOptions struct {
	// LegacyChainQuirks reproduces the historical chain handling: when no
	// chain record is found for the resolved manager (or there is no
	// manager), an existing employee keeps its old chain and a new employee
	// gets an empty one.
	LegacyChainQuirks bool

	Logger *slog.Logger
}

// Engine reconciles batches against a Store.
type Engine struct {
	store  Store
	legacy bool
	logger *slog.Logger
}

// NewEngine creates an engine that reads and writes through store.
func NewEngine(store Store, opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:  store,
		legacy: opts.LegacyChainQuirks,
		logger: logger,
	}
}

// ReconcileText is Reconcile over an in-memory batch.
func (e *Engine) ReconcileText(ctx context.Context, batch string) (*Result, error) {
	return e.Reconcile(ctx, strings.NewReader(batch))
}

// Reconcile applies every data row of the batch in r.
//
// A header mismatch returns a rejected Result and a nil error, with no
// writes. Coercion problems are recorded in Result.Errors. Store failures,
// read failures and context cancellation return the Result so far together
// with a non-nil error.
func (e *Engine) Reconcile(ctx context.Context, r io.Reader) (*Result, error) {
	start := time.Now()
	m := metricsSingleton()

	ctx, span := tracer.Start(ctx, "core.Reconcile",
		trace.WithAttributes(attribute.Bool("reconcile.legacy_chain_quirks", e.legacy)))
	defer span.End()

	logger := e.logger
	if src, ok := BatchSourceFromContext(ctx); ok {
		logger = logger.With(src.logAttrs()...)
		span.SetAttributes(attribute.String("batch.origin", src.Origin))
	}

	result, err := e.reconcile(ctx, r, logger)

	status := statusAccepted
	switch {
	case err != nil:
		status = statusFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case result.Rejected():
		status = statusRejected
	}
	m.batchesTotal.WithLabelValues(status).Inc()
	m.batchDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	span.SetAttributes(
		attribute.String("reconcile.status", status),
		attribute.Int("reconcile.created", result.NumCreated),
		attribute.Int("reconcile.updated", result.NumUpdated),
		attribute.Int("reconcile.errors", len(result.Errors)),
	)

	if err != nil {
		logger.ErrorContext(ctx, "batch failed",
			"created", result.NumCreated,
			"updated", result.NumUpdated,
			"error", err,
		)
		return result, err
	}

	logger.InfoContext(ctx, "batch reconciled",
		"status", status,
		"created", result.NumCreated,
		"updated", result.NumUpdated,
		"errors", len(result.Errors),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (e *Engine) reconcile(ctx context.Context, r io.Reader, logger *slog.Logger) (*Result, error) {
	result := newResult()

	rows := newRowReader(r)

	header, err := rows.Read()
	if err != nil && !errors.Is(err, io.EOF) {
		return result, fmt.Errorf("read header: %w", err)
	}
	if err != nil || ValidateHeader(header) != nil {
		result.Status = BatchRejected
		result.addError(HeaderMismatchMessage())
		logger.WarnContext(ctx, "batch rejected", "header", header)
		return result, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("reconcile cancelled: %w", err)
		}

		fields, err := rows.Read()
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		if err != nil {
			return result, fmt.Errorf("read row: %w", err)
		}

		if err := e.reconcileRow(ctx, fields, result); err != nil {
			return result, fmt.Errorf("line %d: %w", rows.Line(), err)
		}
	}
}

// managerRef is a resolved manager and its stored chain (nil when the
// manager has no chain record).
type managerRef struct {
	ID    uuid.UUID
	Chain *ChainOfCommand
}

func (e *Engine) reconcileRow(ctx context.Context, fields []string, result *Result) error {
	m := metricsSingleton()

	row, ok := parseRow(fields)
	if !ok {
		m.rowsTotal.WithLabelValues(outcomeSkipped).Inc()
		return nil
	}

	mgr, err := e.resolveManager(ctx, row.ManagerEmail)
	if err != nil {
		return err
	}

	coerced := coerceRow(row)
	for _, verr := range coerced.Errors {
		result.addError(verr.Message)
		m.rowErrorsTotal.WithLabelValues(verr.Field).Inc()
	}

	existing, err := e.store.FindEmployeeByEmail(ctx, row.Email)
	if err != nil {
		return fmt.Errorf("find employee %q: %w", row.Email, err)
	}

	emp := Employee{
		NormalizedEmail: row.Email,
		Name:            row.Name,
		Salary:          coerced.Salary,
		HireDate:        coerced.HireDate,
	}
	if mgr != nil {
		emp.ManagerID = ToPgUUID(mgr.ID)
	}
	if existing != nil {
		emp.ID = existing.ID
		emp.NormalizedEmail = existing.NormalizedEmail
	}

	id, err := e.store.UpsertEmployee(ctx, emp)
	if err != nil {
		return fmt.Errorf("upsert employee %q: %w", row.Email, err)
	}

	if existing != nil {
		result.NumUpdated++
		m.rowsTotal.WithLabelValues(outcomeUpdated).Inc()
	} else {
		result.NumCreated++
		m.rowsTotal.WithLabelValues(outcomeCreated).Inc()
	}

	chain, ok := e.chainFor(mgr)
	if !ok {
		if existing != nil {
			return nil
		}
		chain = []uuid.UUID{}
	}
	if err := e.store.UpsertChain(ctx, id, chain); err != nil {
		return fmt.Errorf("upsert chain for %q: %w", row.Email, err)
	}

	e.logger.DebugContext(ctx, "row reconciled",
		"email", row.Email,
		"created", existing == nil,
		"chain_depth", len(chain),
	)
	return nil
}

// resolveManager looks up the manager by normalized email. A blank email or
// an unknown manager resolves to nil without error.
func (e *Engine) resolveManager(ctx context.Context, email string) (*managerRef, error) {
	if email == "" {
		return nil, nil
	}

	mgr, err := e.store.FindEmployeeByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find manager %q: %w", email, err)
	}
	if mgr == nil {
		return nil, nil
	}

	chain, err := e.store.FindChainByEmployeeID(ctx, mgr.ID)
	if err != nil {
		return nil, fmt.Errorf("find chain for manager %q: %w", email, err)
	}
	return &managerRef{ID: mgr.ID, Chain: chain}, nil
}

// chainFor computes the chain for a report of mgr. ok is false when legacy
// handling says the chain must not be rewritten.
func (e *Engine) chainFor(mgr *managerRef) ([]uuid.UUID, bool) {
	switch {
	case mgr == nil:
		if e.legacy {
			return nil, false
		}
		return []uuid.UUID{}, true
	case mgr.Chain == nil:
		if e.legacy {
			return nil, false
		}
		return []uuid.UUID{mgr.ID}, true
	}

	chain := make([]uuid.UUID, 0, len(mgr.Chain.Chain)+1)
	chain = append(chain, mgr.ID)
	chain = append(chain, mgr.Chain.Chain...)
	return chain, true
}
