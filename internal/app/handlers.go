package app

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/divvy/internal/common"
	"github.com/bobmcallan/divvy/internal/interfaces"
	"github.com/bobmcallan/divvy/internal/models"
)

// registerTools registers all MCP tools on the App's MCPServer.
func (a *App) registerTools() {
	s := a.MCPServer
	cfg := a.Config
	logger := a.Logger

	s.AddTool(createGetVersionTool(), handleGetVersion())
	s.AddTool(createAnalyzeSymbolTool(), handleAnalyzeSymbol(a.ScanService, a.ReportService, cfg, logger))
	s.AddTool(createRunScanTool(), handleRunScan(a.ScanService, a.ReportService, cfg, logger))
	s.AddTool(createEstimateFeesTool(), handleEstimateFees(a.ScanService, logger))
	s.AddTool(createRefreshCacheTool(), handleRefreshCache(a.ScanService, logger))
}

// handleGetVersion implements the get_version tool
func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("Divvy MCP Server\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			common.GetVersion(), common.GetBuild(), common.GetGitCommit())
		return textResult(result), nil
	}
}

// handleAnalyzeSymbol implements the analyze_symbol tool
func handleAnalyzeSymbol(svc interfaces.AnalysisService, reports interfaces.ReportService, cfg *common.Config, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := request.RequireString("symbol")
		if err != nil || symbol == "" {
			return errorResult("Error: symbol parameter is required"), nil
		}
		budget := request.GetFloat("budget", cfg.Scan.Budget)

		rec, err := svc.AnalyzeOne(ctx, symbol, budget)
		if err != nil {
			logger.Error().Err(err).Str("symbol", symbol).Msg("Analyze symbol failed")
			return errorResult(fmt.Sprintf("Analysis error: %v", err)), nil
		}
		return textResult(reports.FormatRecord(rec)), nil
	}
}

// handleRunScan implements the run_scan tool
func handleRunScan(svc interfaces.AnalysisService, reports interfaces.ReportService, cfg *common.Config, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req := models.ScanRequest{
			Symbols: request.GetStringSlice("symbols", cfg.Scan.Symbols),
			Budget:  request.GetFloat("budget", cfg.Scan.Budget),
			Sort:    models.SortKey(request.GetString("sort", cfg.Scan.Sort)),
			Pinned:  request.GetStringSlice("pinned", nil),
			Filters: models.ScanFilters{
				MinYieldPct:       request.GetFloat("min_yield_pct", 0),
				RequireProfitable: request.GetBool("require_profitable", false),
				AffordableOnly:    request.GetBool("affordable_only", false),
			},
		}
		if len(req.Symbols) == 0 {
			req.Symbols = cfg.Scan.Symbols
		}

		result, err := svc.RunScan(ctx, req)
		if err != nil {
			logger.Error().Err(err).Msg("Scan failed")
			return errorResult(fmt.Sprintf("Scan error: %v", err)), nil
		}
		return textResult(reports.FormatScan(result)), nil
	}
}

// handleEstimateFees implements the estimate_fees tool
func handleEstimateFees(svc interfaces.AnalysisService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := request.RequireString("symbol")
		if err != nil || symbol == "" {
			return errorResult("Error: symbol parameter is required"), nil
		}
		shares := request.GetInt("shares", 0)
		rate := request.GetFloat("broker_rate_pct", -1)

		est, err := svc.EstimateFees(ctx, symbol, shares, rate)
		if err != nil {
			logger.Error().Err(err).Str("symbol", symbol).Msg("Fee estimate failed")
			return errorResult(fmt.Sprintf("Fee estimate error: %v", err)), nil
		}
		return textResult(formatFeeEstimate(est)), nil
	}
}

// handleRefreshCache implements the refresh_cache tool
func handleRefreshCache(svc interfaces.AnalysisService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol := request.GetString("symbol", "")
		svc.Invalidate(symbol)
		if symbol == "" {
			return textResult("Market data cache cleared."), nil
		}
		return textResult(fmt.Sprintf("Market data for %s will be refetched.", symbol)), nil
	}
}

func formatFeeEstimate(est *models.FeeEstimate) string {
	if est == nil {
		return "No estimate."
	}
	text := fmt.Sprintf("# Fees: %s (%s)\n\n", est.Symbol, est.Market)
	text += fmt.Sprintf("- Shares: %d @ %s %.3f\n", est.Shares, est.Currency, est.Price)
	text += fmt.Sprintf("- Trade value: %.2f\n", est.TradeValue)
	text += fmt.Sprintf("- Commission: %.2f\n", est.Commission)
	if est.StampDuty > 0 || est.TradingFee > 0 {
		text += fmt.Sprintf("- Stamp duty: %.2f\n", est.StampDuty)
		text += fmt.Sprintf("- Trading fee: %.2f\n", est.TradingFee)
	}
	text += fmt.Sprintf("- Total fees: %.2f\n", est.TotalFees)
	text += fmt.Sprintf("- Total cost: %s %.2f\n", est.Currency, est.TotalCost)
	for _, n := range est.Notes {
		text += "\n> " + n + "\n"
	}
	return text
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
