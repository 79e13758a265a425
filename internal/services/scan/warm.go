package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/divvy/internal/common"
	"github.com/bobmcallan/divvy/internal/models"
)

// Warmer re-scans the default watchlist on a cron schedule so the
// provider cache is populated before anyone asks
type Warmer struct {
	svc     *Service
	symbols []string
	budget  float64
	timeout time.Duration
	cron    *cron.Cron
	logger  *common.Logger
}

// NewWarmer creates a warmer for symbols; it does nothing until Start
func NewWarmer(svc *Service, symbols []string, budget float64, logger *common.Logger) *Warmer {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Warmer{
		svc:     svc,
		symbols: symbols,
		budget:  budget,
		timeout: 5 * time.Minute,
		cron:    cron.New(),
		logger:  logger,
	}
}

// Start registers the warm-up job on schedule (standard five-field cron
// syntax or descriptors such as "@every 30m") and starts the scheduler
func (w *Warmer) Start(schedule string) error {
	if _, err := w.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		if _, err := w.Run(ctx); err != nil {
			w.logger.Error().Err(err).Msg("Cache warm-up failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid warm-up schedule %q: %w", schedule, err)
	}
	w.cron.Start()
	w.logger.Info().Str("schedule", schedule).Int("symbols", len(w.symbols)).Msg("Cache warm-up scheduled")
	return nil
}

// Stop stops the scheduler and waits for a running warm-up to finish
func (w *Warmer) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
}

// Run scans the watchlist once
func (w *Warmer) Run(ctx context.Context) (*models.ScanResult, error) {
	start := time.Now()
	result, err := w.svc.RunScan(ctx, models.ScanRequest{
		Symbols: w.symbols,
		Budget:  w.budget,
		Sort:    models.SortByInput,
	})
	if err != nil {
		return nil, err
	}
	w.logger.Info().
		Int("warmed", len(result.Records)).
		Int("dropped", len(result.Dropped)).
		Dur("elapsed", time.Since(start)).
		Msg("Cache warm-up completed")
	return result, nil
}
