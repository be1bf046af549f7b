package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/JonMunkholm/orgsync/internal/config"
)

// Service provides the business operations exposed by the web server and
// the CLI: batch reconciliation and chain-of-command lookups.
type Service struct {
	dir     Directory
	engine  *Engine
	limiter *BatchLimiter
	cfg     config.UploadConfig
}

// NewService creates a Service over dir.
func NewService(dir Directory, cfg *config.Config) (*Service, error) {
	if dir == nil {
		return nil, fmt.Errorf("new service: nil directory")
	}
	return &Service{
		dir: dir,
		engine: NewEngine(dir, EngineOptions{
			LegacyChainQuirks: cfg.Reconcile.LegacyChainQuirks,
			Logger:            slog.Default().With("component", "reconcile"),
		}),
		limiter: NewBatchLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWait),
		cfg:     cfg.Upload,
	}, nil
}

// ReconcileBatch runs one batch under the concurrency limit and batch
// timeout. The reader is BOM-stripped, UTF-8 repaired, and size limited.
func (s *Service) ReconcileBatch(ctx context.Context, r io.Reader) (*Result, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	return s.engine.Reconcile(ctx, SanitizeBatch(r, s.cfg.MaxBytes))
}

// Employee returns the stored employee for email.
func (s *Service) Employee(ctx context.Context, email string) (*EmployeeView, error) {
	e, err := s.findEmployee(ctx, email)
	if err != nil {
		return nil, err
	}
	v := NewEmployeeView(*e)
	return &v, nil
}

// Chain returns the employee for email with its stored chain of command
// resolved to employee records, nearest manager first. The chain is read
// as stored; no hierarchy is walked.
func (s *Service) Chain(ctx context.Context, email string) (*ChainView, error) {
	ctx, span := tracer.Start(ctx, "core.Chain")
	defer span.End()

	e, err := s.findEmployee(ctx, email)
	if err != nil {
		return nil, err
	}

	coc, err := s.dir.FindChainByEmployeeID(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("find chain: %w", err)
	}

	view := &ChainView{Employee: NewEmployeeView(*e), Chain: []EmployeeView{}}
	if coc == nil || len(coc.Chain) == 0 {
		return view, nil
	}

	ancestors, err := s.dir.FindEmployeesByIDs(ctx, coc.Chain)
	if err != nil {
		return nil, fmt.Errorf("find chain members: %w", err)
	}
	for _, a := range ancestors {
		view.Chain = append(view.Chain, NewEmployeeView(a))
	}
	return view, nil
}

func (s *Service) findEmployee(ctx context.Context, email string) (*Employee, error) {
	e, err := s.dir.FindEmployeeByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("find employee: %w", err)
	}
	if e == nil {
		return nil, ErrEmployeeNotFound
	}
	return e, nil
}

// Ping checks the backing store.
func (s *Service) Ping(ctx context.Context) error {
	return s.dir.Ping(ctx)
}

// BatchLimiterStatus returns the current concurrency state.
func (s *Service) BatchLimiterStatus() BatchLimiterStatus {
	return s.limiter.Status()
}

// WaitForBatches blocks until running batches finish or ctx is done.
func (s *Service) WaitForBatches(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
