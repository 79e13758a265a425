// Package report renders scan results for people: markdown for tools and
// chat surfaces, PNG charts for the dashboard
package report

import (
	"github.com/bobmcallan/divvy/internal/common"
	"github.com/bobmcallan/divvy/internal/interfaces"
	"github.com/bobmcallan/divvy/internal/models"
)

// Service implements ReportService
type Service struct {
	logger *common.Logger
}

// NewService creates a new report service
func NewService(logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{logger: logger}
}

// IncomeChart renders projected income per calendar month as PNG
func (s *Service) IncomeChart(records []models.AnalysisRecord, currency string) ([]byte, error) {
	png, err := RenderIncomeChart(MonthlyIncome(records), currency)
	if err != nil {
		s.logger.Warn().Err(err).Int("records", len(records)).Msg("Income chart not rendered")
		return nil, err
	}
	s.logger.Debug().Int("records", len(records)).Int("bytes", len(png)).Msg("Income chart rendered")
	return png, nil
}

// FormatScan renders a scan result as markdown
func (s *Service) FormatScan(result *models.ScanResult) string {
	return formatScan(result)
}

// FormatRecord renders one analysis record as markdown
func (s *Service) FormatRecord(rec *models.AnalysisRecord) string {
	return formatRecord(rec)
}

var _ interfaces.ReportService = (*Service)(nil)
