package yahoo

import (
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// yfTicker adapts a go-yfinance ticker to tickerSource
type yfTicker struct {
	t *ticker.Ticker
}

func openTicker(symbol string) (tickerSource, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, err
	}
	return &yfTicker{t: t}, nil
}

func (y *yfTicker) Close() {
	y.t.Close()
}

// Snapshot prefers the live quote price and reads the rest from the summary
func (y *yfTicker) Snapshot() (*snapshot, error) {
	info, err := y.t.Info()
	if err != nil {
		return nil, err
	}
	s := &snapshot{
		Name:                 info.LongName,
		Currency:             info.Currency,
		Exchange:             info.Exchange,
		Price:                info.CurrentPrice,
		PreviousClose:        info.RegularMarketPreviousClose,
		DividendRate:         info.DividendRate,
		TrailingDividendRate: info.TrailingAnnualDividendRate,
		FiveYearAvgYieldPct:  info.FiveYearAvgDividendYield,
		PayoutRatio:          info.PayoutRatio,
		DebtToEquity:         info.DebtToEquity,
	}
	if s.Name == "" {
		s.Name = info.ShortName
	}
	if quote, err := y.t.Quote(); err == nil && quote != nil && quote.RegularMarketPrice > 0 {
		s.Price = quote.RegularMarketPrice
	}
	return s, nil
}

func (y *yfTicker) History(period string) ([]bar, error) {
	bars, err := y.t.History(models.HistoryParams{
		Period:     period,
		Interval:   "1d",
		AutoAdjust: true,
	})
	if err != nil {
		return nil, err
	}
	out := make([]bar, 0, len(bars))
	for _, b := range bars {
		out = append(out, bar{Date: b.Date, Close: b.Close})
	}
	return out, nil
}

func (y *yfTicker) Dividends() ([]dividend, error) {
	divs, err := y.t.Dividends()
	if err != nil {
		return nil, err
	}
	out := make([]dividend, 0, len(divs))
	for _, d := range divs {
		out = append(out, dividend{Date: d.Date, Amount: d.Amount})
	}
	return out, nil
}

func (y *yfTicker) News(count int) ([]article, error) {
	news, err := y.t.News(count, models.NewsTabNews)
	if err != nil {
		return nil, err
	}
	out := make([]article, 0, len(news))
	for i := range news {
		out = append(out, article{
			Title:     news[i].Title,
			Publisher: news[i].Publisher,
			Link:      news[i].Link,
			Published: news[i].PublishedAt(),
		})
	}
	return out, nil
}
