// Package eodhd provides a market data provider backed by the EODHD API
package eodhd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/divvy/internal/common"
	"github.com/bobmcallan/divvy/internal/interfaces"
	"github.com/bobmcallan/divvy/internal/market"
	"github.com/bobmcallan/divvy/internal/models"
)

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

const (
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
	providerName     = "eodhd"
)

// Client implements interfaces.MarketDataProvider over EODHD
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	now        func() time.Time
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new EODHD client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Ticker maps a normalised symbol to an EODHD code: "0005.HK" stays,
// bare US tickers gain ".US".
func Ticker(symbol string) string {
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + ".US"
}

// Name identifies the provider
func (c *Client) Name() string {
	return providerName
}

// getRaw performs a rate-limited GET request and returns the body
func (c *Client) getRaw(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("EODHD API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}
	return body, nil
}

// get performs a rate-limited GET request and decodes JSON into result
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	body, err := c.getRaw(ctx, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// fail wraps err as a classified fetch error
func (c *Client) fail(symbol, op string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return market.NewFetchError(providerName, symbol, op, market.ErrSymbolNotFound, err)
	}
	return market.NewFetchError(providerName, symbol, op, nil, err)
}

// realTimeResponse is the /real-time payload; unknown codes answer "NA"
type realTimeResponse struct {
	Code          string      `json:"code"`
	Timestamp     flexFloat64 `json:"timestamp"`
	Close         flexFloat64 `json:"close"`
	PreviousClose flexFloat64 `json:"previousClose"`
}

// quoteFundamentals is the subset of /fundamentals the quote needs
type quoteFundamentals struct {
	General struct {
		Code         string `json:"Code"`
		Name         string `json:"Name"`
		Exchange     string `json:"Exchange"`
		CurrencyCode string `json:"CurrencyCode"`
	} `json:"General"`
	Highlights struct {
		DividendShare flexFloat64 `json:"DividendShare"`
		DividendYield flexFloat64 `json:"DividendYield"`
	} `json:"Highlights"`
	SplitsDividends struct {
		ForwardAnnualDividendRate flexFloat64  `json:"ForwardAnnualDividendRate"`
		PayoutRatio               *flexFloat64 `json:"PayoutRatio"`
	} `json:"SplitsDividends"`
}

// GetQuote combines the real-time price with dividend highlights
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	code := Ticker(symbol)

	var rt realTimeResponse
	if err := c.get(ctx, "/real-time/"+code, nil, &rt); err != nil {
		return nil, c.fail(symbol, "quote", err)
	}
	price := float64(rt.Close)
	if price <= 0 {
		price = float64(rt.PreviousClose)
	}
	if price <= 0 && rt.Timestamp == 0 {
		return nil, market.NewFetchError(providerName, symbol, "quote", market.ErrSymbolNotFound, nil)
	}

	params := url.Values{}
	params.Set("filter", "General,Highlights,SplitsDividends")
	var fund quoteFundamentals
	if err := c.get(ctx, "/fundamentals/"+code, params, &fund); err != nil {
		return nil, c.fail(symbol, "quote", err)
	}

	q := &models.Quote{
		Symbol:               symbol,
		Name:                 fund.General.Name,
		Price:                price,
		Currency:             strings.ToUpper(fund.General.CurrencyCode),
		Exchange:             fund.General.Exchange,
		TrailingDividendRate: float64(fund.Highlights.DividendShare),
		ForwardDividendRate:  float64(fund.SplitsDividends.ForwardAnnualDividendRate),
		FetchedAt:            c.now(),
		Source:               providerName,
	}
	if fund.SplitsDividends.PayoutRatio != nil {
		q.PayoutRatio = float64(*fund.SplitsDividends.PayoutRatio)
		q.HasPayoutRatio = true
	}
	if q.Currency == "" {
		q.Currency = currencyFor(symbol)
	}
	return q, nil
}

// currencyFor guesses the trading currency from the exchange suffix
func currencyFor(symbol string) string {
	if strings.HasSuffix(symbol, ".HK") {
		return "HKD"
	}
	return "USD"
}

type dividendResponse struct {
	Date          string      `json:"date"`
	Value         flexFloat64 `json:"value"`
	UnadjustedVal flexFloat64 `json:"unadjustedValue"`
}

// GetDividendHistory retrieves ex-dividend events since the given date
func (c *Client) GetDividendHistory(ctx context.Context, symbol string, since time.Time) ([]models.DividendEvent, error) {
	params := url.Values{}
	if !since.IsZero() {
		params.Set("from", since.Format("2006-01-02"))
	}

	var divs []dividendResponse
	if err := c.get(ctx, "/div/"+Ticker(symbol), params, &divs); err != nil {
		return nil, c.fail(symbol, "dividends", err)
	}

	events := make([]models.DividendEvent, 0, len(divs))
	for _, d := range divs {
		date, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			continue
		}
		amount := float64(d.Value)
		if amount <= 0 {
			amount = float64(d.UnadjustedVal)
		}
		events = append(events, models.DividendEvent{ExDate: date, Amount: amount})
	}
	models.SortDividendEvents(events)
	return events, nil
}

// eodBarResponse represents the API response for EOD data
type eodBarResponse struct {
	Date          string  `json:"date"`
	Close         float64 `json:"close"`
	AdjustedClose float64 `json:"adjusted_close"`
}

// GetPriceHistory retrieves daily closes, oldest first
func (c *Client) GetPriceHistory(ctx context.Context, symbol string, opts ...interfaces.HistoryOption) ([]models.PricePoint, error) {
	p := interfaces.NewHistoryParams(c.now(), opts...)

	params := url.Values{}
	params.Set("period", "d")
	params.Set("order", "a")
	params.Set("from", p.From.Format("2006-01-02"))
	params.Set("to", p.To.Format("2006-01-02"))

	var bars []eodBarResponse
	if err := c.get(ctx, "/eod/"+Ticker(symbol), params, &bars); err != nil {
		return nil, c.fail(symbol, "prices", err)
	}

	points := make([]models.PricePoint, 0, len(bars))
	for _, bar := range bars {
		date, err := time.Parse("2006-01-02", bar.Date)
		if err != nil || bar.Close <= 0 {
			continue
		}
		points = append(points, models.PricePoint{Date: date, Close: bar.Close})
	}
	if p.Limit > 0 && len(points) > p.Limit {
		points = points[len(points)-p.Limit:]
	}
	return points, nil
}

// GetFinancials retrieves yearly net income and balance-sheet leverage
func (c *Client) GetFinancials(ctx context.Context, symbol string) (*models.Financials, error) {
	params := url.Values{}
	params.Set("filter", "Financials")

	body, err := c.getRaw(ctx, "/fundamentals/"+Ticker(symbol), params)
	if err != nil {
		return nil, c.fail(symbol, "financials", err)
	}

	fin, err := parseFinancials(body)
	if err != nil {
		return nil, market.NewFetchError(providerName, symbol, "financials", market.ErrPartialData, err)
	}
	fin.Symbol = symbol
	fin.FetchedAt = c.now()
	fin.Source = providerName
	return fin, nil
}

var _ interfaces.MarketDataProvider = (*Client)(nil)
