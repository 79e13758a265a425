package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/divvy/internal/analysis"
	"github.com/bobmcallan/divvy/internal/clients/eodhd"
	"github.com/bobmcallan/divvy/internal/clients/fxrate"
	"github.com/bobmcallan/divvy/internal/clients/yahoo"
	"github.com/bobmcallan/divvy/internal/common"
	"github.com/bobmcallan/divvy/internal/interfaces"
	"github.com/bobmcallan/divvy/internal/market"
	"github.com/bobmcallan/divvy/internal/services/report"
	"github.com/bobmcallan/divvy/internal/services/scan"
)

// App holds all initialized services, clients, and the MCP server.
// It is the shared core used by both cmd/divvy-server and cmd/divvy-mcp.
type App struct {
	Config        *common.Config
	Logger        *common.Logger
	Provider      interfaces.MarketDataProvider
	ScanService   interfaces.AnalysisService
	ReportService interfaces.ReportService
	MCPServer     *server.MCPServer
	StartupTime   time.Time

	scanService *scan.Service
	warmer      *scan.Warmer
	logCloser   io.Closer
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes the providers, services and the MCP server.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	// Load configuration - check provided path, DIVVY_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("DIVVY_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "divvy.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/divvy.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative log file path to binary directory
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	logger, logCloser, err := common.NewLoggerFromConfig(config.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	a, err := NewAppWithConfig(config, logger)
	if err != nil {
		logCloser.Close()
		return nil, err
	}
	a.logCloser = logCloser
	a.StartupTime = startupStart

	logger.Info().Str("config", configPath).Dur("startup", time.Since(startupStart)).Msg("App initialized")
	return a, nil
}

// NewAppWithConfig wires the application from an already loaded config
func NewAppWithConfig(config *common.Config, logger *common.Logger) (*App, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	for _, missing := range config.ValidateRequired() {
		logger.Warn().Str("setting", missing).Msg("Configuration incomplete")
	}
	if _, ok := config.FX.Rates[config.ReferenceCurrency]; !ok {
		return nil, fmt.Errorf("fx.rates has no entry for reference currency %s", config.ReferenceCurrency)
	}

	provider, err := buildProvider(config, logger)
	if err != nil {
		return nil, err
	}
	cached := market.NewCached(provider, config.Cache.GetTTL(), logger)

	var live interfaces.FXRateSource
	if config.FX.Live {
		live = fxrate.NewClient(logger)
	}
	fx := market.NewFXConverter(
		analysis.NewFXTable(config.ReferenceCurrency, config.FX.Rates),
		live,
		config.FX.GetRefresh(),
		logger,
	)

	engine := analysis.NewEngine(analysis.Options{
		LookbackDays:     config.Analysis.DividendLookbackDays,
		UrgentWindowDays: config.Analysis.UrgentWindowDays,
		ValuationMargin:  config.Analysis.ValuationMargin,
		RSIPeriod:        config.Analysis.RSIPeriod,
	}, analysis.NewLotRegistry(config.Lots.DefaultHK, config.Lots.Overrides))

	fetcher := market.NewFetcher(cached, config.Analysis.PriceHistoryPeriod, config.Analysis.DividendHistoryYears, logger)

	scanService := scan.NewService(cached, fetcher, fx, engine, logger)
	scanService.SetConcurrency(config.Scan.GetConcurrency())
	scanService.SetSymbolTimeout(config.Scan.GetSymbolTimeout())
	scanService.SetCache(cached)
	scanService.SetNewsLimit(config.Analysis.NewsLimit)
	scanService.SetFeeSchedule(analysis.FeeSchedule{
		BrokerRatePct:     config.Fees.BrokerRatePct,
		HKStampDutyPct:    config.Fees.HKStampDutyPct,
		HKTradingFeePct:   config.Fees.HKTradingFeePct,
		USWithholdingPct:  config.Fees.USWithholdingPct,
		MinimumCommission: config.Fees.MinimumCommission,
	})

	mcpServer := server.NewMCPServer(
		"divvy",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	a := &App{
		Config:        config,
		Logger:        logger,
		Provider:      cached,
		ScanService:   scanService,
		ReportService: report.NewService(logger),
		MCPServer:     mcpServer,
		StartupTime:   time.Now(),
		scanService:   scanService,
		logCloser:     nopCloser{},
	}

	// Register all MCP tools
	a.registerTools()

	return a, nil
}

// buildProvider assembles the primary and fallback providers into a chain
func buildProvider(config *common.Config, logger *common.Logger) (interfaces.MarketDataProvider, error) {
	var providers []interfaces.MarketDataProvider
	for _, name := range []string{config.Provider.Primary, config.Provider.Fallback} {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case "":
			continue
		case "yahoo":
			providers = append(providers, yahoo.NewClient(
				yahoo.WithLogger(logger),
				yahoo.WithRateLimit(config.Clients.Yahoo.RateLimit),
				yahoo.WithRetries(config.Clients.Yahoo.Retries),
			))
		case "eodhd":
			if config.Clients.EODHD.APIKey == "" {
				logger.Warn().Msg("EODHD API key not configured - EODHD provider disabled")
				continue
			}
			providers = append(providers, eodhd.NewClient(config.Clients.EODHD.APIKey,
				eodhd.WithBaseURL(config.Clients.EODHD.BaseURL),
				eodhd.WithLogger(logger),
				eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
				eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
			))
		default:
			return nil, fmt.Errorf("unknown market data provider %q", name)
		}
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no market data provider available")
	}
	if len(providers) == 1 {
		return providers[0], nil
	}
	return market.NewChain(logger, providers...), nil
}

// DefaultScanSymbols returns the configured watchlist
func (a *App) DefaultScanSymbols() []string {
	return a.Config.Scan.Symbols
}

// StartWarmCache runs one warm-up scan in the background and, when the
// scheduler is enabled, keeps re-running it on the configured schedule.
func (a *App) StartWarmCache() {
	if a.scanService == nil || len(a.Config.Scan.Symbols) == 0 {
		return
	}
	if os.Getenv("DIVVY_WARM_CACHE") == "off" {
		a.Logger.Info().Msg("Warm cache: disabled via DIVVY_WARM_CACHE=off")
		return
	}
	a.warmer = scan.NewWarmer(a.scanService, a.Config.Scan.Symbols, a.Config.Scan.Budget, a.Logger)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := a.warmer.Run(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Warm cache: initial scan failed")
		}
	}()

	if a.Config.Scheduler.Enabled {
		if err := a.warmer.Start(a.Config.Scheduler.WarmCron); err != nil {
			a.Logger.Error().Err(err).Msg("Warm cache: scheduler not started")
		}
	}
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.warmer != nil {
		a.warmer.Stop()
		a.warmer = nil
	}
	if a.logCloser != nil {
		a.logCloser.Close()
		a.logCloser = nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
