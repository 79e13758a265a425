// Package scan runs dividend analyses over watchlists
package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/divvy/internal/analysis"
	"github.com/bobmcallan/divvy/internal/common"
	"github.com/bobmcallan/divvy/internal/interfaces"
	"github.com/bobmcallan/divvy/internal/market"
	"github.com/bobmcallan/divvy/internal/models"
)

const (
	DefaultConcurrency   = 8
	DefaultSymbolTimeout = 15 * time.Second
	DefaultNewsLimit     = 5
)

// Invalidator drops cached provider data
type Invalidator interface {
	Invalidate(symbol string)
	InvalidateAll()
}

// Service implements AnalysisService
type Service struct {
	provider      interfaces.MarketDataProvider
	fetcher       *market.Fetcher
	fx            *market.FXConverter
	engine        *analysis.Engine
	cache         Invalidator
	fees          analysis.FeeSchedule
	logger        *common.Logger
	concurrency   int
	symbolTimeout time.Duration
	newsLimit     int
	newID         func() string
	now           func() time.Time

	mu         sync.Mutex
	cancelPrev context.CancelFunc
	generation uint64
}

// NewService creates a new scan service. provider should be the same
// (cached) provider the fetcher reads from.
func NewService(
	provider interfaces.MarketDataProvider,
	fetcher *market.Fetcher,
	fx *market.FXConverter,
	engine *analysis.Engine,
	logger *common.Logger,
) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		provider:      provider,
		fetcher:       fetcher,
		fx:            fx,
		engine:        engine,
		logger:        logger,
		concurrency:   DefaultConcurrency,
		symbolTimeout: DefaultSymbolTimeout,
		newsLimit:     DefaultNewsLimit,
		newID:         uuid.NewString,
		now:           time.Now,
	}
}

// SetConcurrency sets the worker count of a scan
func (s *Service) SetConcurrency(n int) {
	if n > 0 {
		s.concurrency = n
	}
}

// SetSymbolTimeout sets the time budget of one symbol's fetch and analysis
func (s *Service) SetSymbolTimeout(d time.Duration) {
	if d > 0 {
		s.symbolTimeout = d
	}
}

// SetNewsLimit sets how many headlines AnalyzeOne attaches; n <= 0 turns news off
func (s *Service) SetNewsLimit(n int) {
	s.newsLimit = n
}

// SetFeeSchedule sets the default trading cost assumptions
func (s *Service) SetFeeSchedule(fs analysis.FeeSchedule) {
	s.fees = fs
}

// SetCache sets the cache that Invalidate clears
func (s *Service) SetCache(cache Invalidator) {
	s.cache = cache
}

// ReferenceCurrency returns the currency budgets and income are expressed in
func (s *Service) ReferenceCurrency() string {
	return s.fx.Reference()
}

// AnalyzeOne fetches and analyses a single symbol against a budget
func (s *Service) AnalyzeOne(ctx context.Context, symbol string, budget float64) (*models.AnalysisRecord, error) {
	sym, err := analysis.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if err := analysis.ValidateBudget(budget); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.symbolTimeout)
	defer cancel()

	rec, err := s.analyze(ctx, sym, budget)
	if err != nil {
		return nil, err
	}
	rec.News = s.news(ctx, sym)
	return &rec, nil
}

// news fetches headlines for a single lookup. Failures only cost the
// headlines, never the analysis.
func (s *Service) news(ctx context.Context, symbol string) []models.NewsItem {
	np, ok := s.provider.(interfaces.NewsProvider)
	if !ok || s.newsLimit <= 0 {
		return nil
	}
	items, err := np.GetNews(ctx, symbol, s.newsLimit)
	if err != nil {
		s.logger.Debug().Err(err).Str("symbol", symbol).Msg("News unavailable")
		return nil
	}
	if len(items) > s.newsLimit {
		items = items[:s.newsLimit]
	}
	return items
}

func (s *Service) analyze(ctx context.Context, symbol string, budget float64) (models.AnalysisRecord, error) {
	raw, err := s.fetcher.Fetch(ctx, symbol)
	if err != nil {
		return models.AnalysisRecord{}, err
	}
	rate, err := s.fx.ToReference(ctx, raw.Currency)
	if err != nil {
		return models.AnalysisRecord{}, fmt.Errorf("%s: %w", symbol, err)
	}
	return s.engine.Analyze(raw, budget, rate)
}

// RunScan analyses every requested symbol concurrently and rolls the results up
func (s *Service) RunScan(ctx context.Context, req models.ScanRequest) (*models.ScanResult, error) {
	return s.StreamScan(ctx, req, nil)
}

// Rescan cancels the previous in-flight Rescan, then runs a new scan
func (s *Service) Rescan(ctx context.Context, req models.ScanRequest) (*models.ScanResult, error) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancelPrev != nil {
		s.cancelPrev()
	}
	s.generation++
	gen := s.generation
	s.cancelPrev = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.generation == gen {
			s.cancelPrev = nil
		}
		s.mu.Unlock()
		cancel()
	}()

	return s.RunScan(ctx, req)
}

// Invalidate drops cached market data for one symbol, or everything when symbol is empty
func (s *Service) Invalidate(symbol string) {
	if s.cache == nil {
		return
	}
	if symbol == "" {
		s.cache.InvalidateAll()
		s.fx.Invalidate()
		s.logger.Info().Msg("Market data cache cleared")
		return
	}
	sym, err := analysis.NormalizeSymbol(symbol)
	if err != nil {
		sym = symbol
	}
	s.cache.Invalidate(sym)
	s.logger.Info().Str("symbol", sym).Msg("Market data cache invalidated")
}

// EstimateFees prices the purchase of shares of symbol at its current price.
// shares <= 0 means one board lot; a negative brokerRatePct uses the configured rate.
func (s *Service) EstimateFees(ctx context.Context, symbol string, shares int, brokerRatePct float64) (*models.FeeEstimate, error) {
	sym, err := analysis.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.symbolTimeout)
	defer cancel()

	quote, err := s.provider.GetQuote(ctx, sym)
	if err != nil {
		return nil, err
	}

	fs := s.fees
	if brokerRatePct >= 0 {
		fs.BrokerRatePct = brokerRatePct
	}
	lot := s.engine.Lots().LotSize(sym, quote.LotSize)

	est, err := analysis.EstimateFees(sym, shares, quote.Price, quote.Currency, lot, fs)
	if err != nil {
		return nil, err
	}
	return &est, nil
}

// scanOutcome is one symbol's result inside a scan
type scanOutcome struct {
	index  int
	symbol string
	record models.AnalysisRecord
	err    error
}

// StreamScan is RunScan with emit called for each record as it completes.
// emit runs on the collecting goroutine, one record at a time.
func (s *Service) StreamScan(ctx context.Context, req models.ScanRequest, emit interfaces.RecordFunc) (*models.ScanResult, error) {
	symbols, pinned, sortKey, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	result := &models.ScanResult{
		ScanID:    s.newID(),
		Budget:    req.Budget,
		Sort:      sortKey,
		StartedAt: s.now(),
	}
	log := s.logger.With().Str("scan_id", result.ScanID).Logger()
	log.Info().Int("symbols", len(symbols)).Float64("budget", req.Budget).Str("sort", string(sortKey)).Msg("Scan started")

	workers := s.concurrency
	if workers > len(symbols) {
		workers = len(symbols)
	}

	jobs := make(chan int)
	outcomes := make(chan scanOutcome, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				symCtx, cancel := context.WithTimeout(ctx, s.symbolTimeout)
				rec, err := s.analyze(symCtx, symbols[i], req.Budget)
				cancel()
				outcomes <- scanOutcome{index: i, symbol: symbols[i], record: rec, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range symbols {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	// Each scan owns its slots; records land in input order.
	slots := make([]*models.AnalysisRecord, len(symbols))
	failed := make([]bool, len(symbols))
	for o := range outcomes {
		if o.err != nil {
			failed[o.index] = true
			log.Warn().Err(o.err).Str("symbol", o.symbol).
				Str("kind", kindOf(o.err)).Msg("Symbol dropped from scan")
			continue
		}
		rec := o.record
		rec.Pinned = pinned[o.symbol]
		slots[o.index] = &rec
		if emit != nil && analysis.Passes(&rec, req.Filters) {
			emit(rec)
		}
	}

	if err := ctx.Err(); err != nil {
		log.Info().Err(err).Msg("Scan cancelled")
		return nil, err
	}

	records := make([]models.AnalysisRecord, 0, len(symbols))
	for i, rec := range slots {
		switch {
		case rec != nil:
			records = append(records, *rec)
		case failed[i]:
			result.Dropped = append(result.Dropped, symbols[i])
		}
	}

	records, result.Filtered = analysis.ApplyFilters(records, req.Filters)
	analysis.Rank(records, sortKey)

	result.Records = records
	result.Summary = analysis.Summarize(records, req.Budget, s.fx.Reference())
	result.CompletedAt = s.now()

	log.Info().
		Int("analysed", len(records)).
		Int("dropped", len(result.Dropped)).
		Int("filtered", len(result.Filtered)).
		Float64("projected_income", result.Summary.TotalProjectedIncome).
		Dur("elapsed", result.CompletedAt.Sub(result.StartedAt)).
		Msg("Scan completed")

	return result, nil
}

// validate normalises the request. Pinned symbols missing from the list
// are appended to it.
func (s *Service) validate(req models.ScanRequest) ([]string, map[string]bool, models.SortKey, error) {
	if err := analysis.ValidateBudget(req.Budget); err != nil {
		return nil, nil, "", err
	}
	sortKey, ok := models.ParseSortKey(string(req.Sort))
	if !ok {
		return nil, nil, "", fmt.Errorf("%w: unknown sort %q", analysis.ErrInvalidInput, req.Sort)
	}

	symbols, err := analysis.NormalizeSymbols(append(append([]string(nil), req.Symbols...), req.Pinned...))
	if err != nil {
		return nil, nil, "", err
	}

	pinned := make(map[string]bool, len(req.Pinned))
	for _, p := range req.Pinned {
		if sym, err := analysis.NormalizeSymbol(p); err == nil {
			pinned[sym] = true
		}
	}
	return symbols, pinned, sortKey, nil
}

// kindOf names the failure kind of a dropped symbol for logs
func kindOf(err error) string {
	switch {
	case errors.Is(err, analysis.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	switch market.Classify(err) {
	case market.ErrSymbolNotFound:
		return "not_found"
	case market.ErrProviderTimeout:
		return "timeout"
	case market.ErrPartialData:
		return "partial_data"
	}
	return "provider_error"
}

var _ interfaces.AnalysisService = (*Service)(nil)
