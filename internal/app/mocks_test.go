package app

import (
	"context"
	"fmt"

	"github.com/bobmcallan/divvy/internal/analysis"
	"github.com/bobmcallan/divvy/internal/interfaces"
	"github.com/bobmcallan/divvy/internal/models"
)

// mockScanService records requests and returns canned results
type mockScanService struct {
	lastScan    models.ScanRequest
	lastBudget  float64
	lastRate    float64
	lastShares  int
	invalidated []string
}

func (m *mockScanService) AnalyzeOne(ctx context.Context, symbol string, budget float64) (*models.AnalysisRecord, error) {
	m.lastBudget = budget
	if symbol == "NOPE" {
		return nil, fmt.Errorf("%w: malformed symbol", analysis.ErrInvalidInput)
	}
	return &models.AnalysisRecord{
		Symbol:           symbol,
		CompanyName:      symbol + " Holdings",
		CurrentPrice:     60,
		Currency:         "HKD",
		DividendYieldPct: 6,
		LotSize:          400,
		Affordability:    models.Affordability{Affordable: true, MaxLots: 2, ProjectedAnnualIncome: 2880},
		Valuation:        models.Valuation{Verdict: models.VerdictNoData},
		News:             []models.NewsItem{{Title: "Interim dividend declared", Link: "https://example.com/n"}},
	}, nil
}

func (m *mockScanService) RunScan(ctx context.Context, req models.ScanRequest) (*models.ScanResult, error) {
	m.lastScan = req
	var records []models.AnalysisRecord
	for _, s := range req.Symbols {
		rec, _ := m.AnalyzeOne(ctx, s, req.Budget)
		records = append(records, *rec)
	}
	return &models.ScanResult{
		ScanID:  "scan-1",
		Budget:  req.Budget,
		Sort:    req.Sort,
		Records: records,
		Summary: models.ScanSummary{Count: len(records), Currency: "HKD"},
	}, nil
}

func (m *mockScanService) StreamScan(ctx context.Context, req models.ScanRequest, emit interfaces.RecordFunc) (*models.ScanResult, error) {
	return m.RunScan(ctx, req)
}

func (m *mockScanService) Rescan(ctx context.Context, req models.ScanRequest) (*models.ScanResult, error) {
	return m.RunScan(ctx, req)
}

func (m *mockScanService) Invalidate(symbol string) {
	m.invalidated = append(m.invalidated, symbol)
}

func (m *mockScanService) EstimateFees(ctx context.Context, symbol string, shares int, brokerRatePct float64) (*models.FeeEstimate, error) {
	m.lastShares = shares
	m.lastRate = brokerRatePct
	return &models.FeeEstimate{
		Symbol:     symbol,
		Market:     "US",
		Shares:     10,
		Price:      40,
		Currency:   "USD",
		TradeValue: 400,
		Commission: 0.12,
		TotalFees:  0.12,
		TotalCost:  400.12,
		Notes:      []string{"US dividends paid to non-resident holders are subject to 30% withholding tax"},
	}, nil
}
