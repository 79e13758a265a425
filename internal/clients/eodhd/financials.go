package eodhd

import (
	"errors"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/bobmcallan/divvy/internal/models"
)

// parseFinancials reads the yearly statements out of a fundamentals
// payload. Statement periods are keyed by date ("2024-12-31"), and values
// arrive as strings or numbers, so the payload is walked with gjson rather
// than decoded into structs. Both the filtered shape (statements at the
// root) and the full shape (under "Financials") are accepted.
func parseFinancials(body []byte) (*models.Financials, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid fundamentals JSON")
	}
	root := gjson.ParseBytes(body)
	if fin := root.Get("Financials"); fin.Exists() {
		root = fin
	}

	income := root.Get("Income_Statement.yearly")
	if !income.Exists() {
		return nil, errors.New("no yearly income statement")
	}

	out := &models.Financials{}
	income.ForEach(func(key, period gjson.Result) bool {
		ni := period.Get("netIncome")
		if !ni.Exists() || ni.Type == gjson.Null {
			return true
		}
		year, ok := fiscalYear(key.String(), period.Get("date").String())
		if !ok {
			return true
		}
		out.NetIncome = append(out.NetIncome, models.NetIncome{Year: year, Amount: ni.Float()})
		return true
	})
	models.SortNetIncome(out.NetIncome)

	var latestKey string
	var latest gjson.Result
	root.Get("Balance_Sheet.yearly").ForEach(func(key, period gjson.Result) bool {
		if key.String() > latestKey {
			latestKey, latest = key.String(), period
		}
		return true
	})
	if latestKey != "" {
		liab := latest.Get("totalLiab").Float()
		equity := latest.Get("totalStockholderEquity").Float()
		if equity > 0 && liab >= 0 {
			out.DebtToEquity = liab / equity * 100
			out.HasDebtToEquity = true
		}
	}

	return out, nil
}

// fiscalYear takes the year from the period key, or its date field
func fiscalYear(key, date string) (int, bool) {
	for _, s := range []string{key, date} {
		if len(s) < 4 {
			continue
		}
		if y, err := strconv.Atoi(s[:4]); err == nil {
			return y, true
		}
	}
	return 0, false
}
