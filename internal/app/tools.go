package app

import "github.com/mark3labs/mcp-go/mcp"

// createGetVersionTool returns the get_version tool definition
func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the Divvy server version and status. Use this to verify connectivity."),
	)
}

// createAnalyzeSymbolTool returns the analyze_symbol tool definition
func createAnalyzeSymbolTool() mcp.Tool {
	return mcp.NewTool("analyze_symbol",
		mcp.WithDescription("Analyse one dividend stock against a budget: board-lot affordability, projected income, dividend calendar, next ex-date estimate, yield valuation, RSI momentum, safety flags and recent news headlines."),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Ticker, e.g. '0005.HK', '5.HK' or 'VZ'"),
		),
		mcp.WithNumber("budget",
			mcp.Description("Budget in the reference currency (default: configured scan budget)"),
		),
	)
}

// createRunScanTool returns the run_scan tool definition
func createRunScanTool() mcp.Tool {
	return mcp.NewTool("run_scan",
		mcp.WithDescription("Scan a watchlist of dividend stocks concurrently and rank them. Returns a ranked table with projected income and a portfolio summary."),
		mcp.WithArray("symbols",
			mcp.Items(map[string]any{"type": "string"}),
			mcp.Description("Tickers to scan (default: configured watchlist)"),
		),
		mcp.WithNumber("budget",
			mcp.Description("Budget per symbol in the reference currency (default: configured scan budget)"),
		),
		mcp.WithString("sort",
			mcp.Description("Ranking: yield, payout, valuation, urgency or input (default: yield)"),
		),
		mcp.WithArray("pinned",
			mcp.Items(map[string]any{"type": "string"}),
			mcp.Description("Tickers always included and listed first, regardless of filters"),
		),
		mcp.WithNumber("min_yield_pct",
			mcp.Description("Drop symbols yielding less than this percentage"),
		),
		mcp.WithBoolean("require_profitable",
			mcp.Description("Drop symbols without three consecutive profitable years"),
		),
		mcp.WithBoolean("affordable_only",
			mcp.Description("Drop symbols where one board lot exceeds the budget"),
		),
	)
}

// createEstimateFeesTool returns the estimate_fees tool definition
func createEstimateFeesTool() mcp.Tool {
	return mcp.NewTool("estimate_fees",
		mcp.WithDescription("Estimate the trading costs of buying a stock: broker commission, HK stamp duty and trading fee, and the US dividend withholding notice."),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Ticker to price"),
		),
		mcp.WithNumber("shares",
			mcp.Description("Number of shares (default: one board lot). HK purchases must be whole lots."),
		),
		mcp.WithNumber("broker_rate_pct",
			mcp.Description("Broker commission in percent of trade value (default: configured rate)"),
		),
	)
}

// createRefreshCacheTool returns the refresh_cache tool definition
func createRefreshCacheTool() mcp.Tool {
	return mcp.NewTool("refresh_cache",
		mcp.WithDescription("Drop cached market data so the next analysis fetches fresh quotes."),
		mcp.WithString("symbol",
			mcp.Description("Ticker to refresh (default: everything)"),
		),
	)
}
