package interfaces

import (
	"context"

	"github.com/bobmcallan/divvy/internal/models"
)

// RecordFunc receives each analysis record as soon as its symbol completes
type RecordFunc func(models.AnalysisRecord)

// AnalysisService runs per-symbol analysis and watchlist scans
type AnalysisService interface {
	// AnalyzeOne fetches and analyses a single symbol against a budget
	AnalyzeOne(ctx context.Context, symbol string, budget float64) (*models.AnalysisRecord, error)

	// RunScan analyses every requested symbol concurrently and rolls the results up
	RunScan(ctx context.Context, req models.ScanRequest) (*models.ScanResult, error)

	// StreamScan is RunScan with emit called for each record as it completes.
	// Records removed by the request filters are never emitted.
	StreamScan(ctx context.Context, req models.ScanRequest, emit RecordFunc) (*models.ScanResult, error)

	// Rescan cancels the previous in-flight Rescan, then runs a new scan
	Rescan(ctx context.Context, req models.ScanRequest) (*models.ScanResult, error)

	// Invalidate drops cached market data for one symbol, or everything when symbol is empty
	Invalidate(symbol string)

	// EstimateFees prices the trading costs of buying shares of a symbol.
	// shares <= 0 means one board lot; a negative brokerRatePct uses the configured rate.
	EstimateFees(ctx context.Context, symbol string, shares int, brokerRatePct float64) (*models.FeeEstimate, error)
}

// ReportService renders scan output for people
type ReportService interface {
	// IncomeChart renders projected income per calendar month as PNG
	IncomeChart(records []models.AnalysisRecord, currency string) ([]byte, error)

	// FormatScan renders a scan result as markdown
	FormatScan(result *models.ScanResult) string

	// FormatRecord renders one analysis record as markdown
	FormatRecord(rec *models.AnalysisRecord) string
}
