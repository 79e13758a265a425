package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bobmcallan/divvy/internal/analysis"
	"github.com/bobmcallan/divvy/internal/common"
	"github.com/bobmcallan/divvy/internal/models"
)

// scanBody is the JSON body of the scan endpoints. Omitted fields take the
// configured defaults.
type scanBody struct {
	Symbols     []string           `json:"symbols"`
	SymbolsText string             `json:"symbols_text"` // free text, comma or line separated
	Budget      *float64           `json:"budget"`
	Sort        string             `json:"sort"`
	Pinned      []string           `json:"pinned"`
	Filters     models.ScanFilters `json:"filters"`
	Rescan      bool               `json:"rescan"` // cancel the previous rescan first
}

// toRequest resolves defaults from config
func (b *scanBody) toRequest(cfg *common.Config) (models.ScanRequest, error) {
	req := models.ScanRequest{
		Symbols: append([]string(nil), b.Symbols...),
		Budget:  cfg.Scan.Budget,
		Sort:    models.SortKey(cfg.Scan.Sort),
		Pinned:  b.Pinned,
		Filters: b.Filters,
	}
	if strings.TrimSpace(b.SymbolsText) != "" {
		parsed, err := analysis.ParseSymbols(b.SymbolsText)
		if err != nil {
			return req, err
		}
		req.Symbols = append(req.Symbols, parsed...)
	}
	if len(req.Symbols) == 0 {
		req.Symbols = cfg.Scan.Symbols
	}
	if b.Budget != nil {
		req.Budget = *b.Budget
	}
	if b.Sort != "" {
		req.Sort = models.SortKey(strings.ToLower(b.Sort))
	}
	return req, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, common.GetVersionInfo())
}

// handleAnalyze serves GET /api/analyze/{symbol}?budget=
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	budget, ok := s.budgetParam(w, r)
	if !ok {
		return
	}
	rec, err := s.app.ScanService.AnalyzeOne(r.Context(), chi.URLParam(r, "symbol"), budget)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

// handleScan serves POST /api/scan
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var body scanBody
	if !DecodeOptionalJSON(w, r, &body) {
		return
	}
	req, err := body.toRequest(s.app.Config)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	run := s.app.ScanService.RunScan
	if body.Rescan {
		run = s.app.ScanService.Rescan
	}
	result, err := run(r.Context(), req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// streamLine is one line of the NDJSON scan stream
type streamLine struct {
	Type   string                 `json:"type"` // record, result or error
	Record *models.AnalysisRecord `json:"record,omitempty"`
	Result *models.ScanResult     `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// handleScanStream serves POST /api/scan/stream as newline-delimited JSON:
// one record line per symbol as it completes, then the ranked result.
func (s *Server) handleScanStream(w http.ResponseWriter, r *http.Request) {
	var body scanBody
	if !DecodeOptionalJSON(w, r, &body) {
		return
	}
	req, err := body.toRequest(s.app.Config)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	write := func(line streamLine) {
		if err := enc.Encode(line); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	result, err := s.app.ScanService.StreamScan(r.Context(), req, func(rec models.AnalysisRecord) {
		write(streamLine{Type: "record", Record: &rec})
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Streaming scan failed")
		write(streamLine{Type: "error", Error: err.Error()})
		return
	}
	write(streamLine{Type: "result", Result: result})
}

// handleInvalidate serves POST /api/cache/invalidate
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Symbol string `json:"symbol"`
	}
	if !DecodeOptionalJSON(w, r, &body) {
		return
	}
	s.app.ScanService.Invalidate(body.Symbol)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "symbol": body.Symbol})
}

// handleFees serves POST /api/fees
func (s *Server) handleFees(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Symbol        string   `json:"symbol"`
		Shares        int      `json:"shares"`
		BrokerRatePct *float64 `json:"broker_rate_pct"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}
	if body.Symbol == "" {
		WriteErrorWithCode(w, http.StatusBadRequest, "symbol is required", "invalid_input")
		return
	}
	rate := -1.0
	if body.BrokerRatePct != nil {
		rate = *body.BrokerRatePct
	}

	est, err := s.app.ScanService.EstimateFees(r.Context(), body.Symbol, body.Shares, rate)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, est)
}

// handleIncomeChart serves GET /api/chart/income?symbols=&budget= as PNG
func (s *Server) handleIncomeChart(w http.ResponseWriter, r *http.Request) {
	budget, ok := s.budgetParam(w, r)
	if !ok {
		return
	}
	body := scanBody{SymbolsText: r.URL.Query().Get("symbols"), Budget: &budget}
	req, err := body.toRequest(s.app.Config)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	result, err := s.app.ScanService.RunScan(r.Context(), req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	png, err := s.app.ReportService.IncomeChart(result.Records, result.Summary.Currency)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// budgetParam reads ?budget=, defaulting to the configured budget
func (s *Server) budgetParam(w http.ResponseWriter, r *http.Request) (float64, bool) {
	raw := r.URL.Query().Get("budget")
	if raw == "" {
		return s.app.Config.Scan.Budget, true
	}
	budget, err := strconv.ParseFloat(raw, 64)
	if err == nil {
		err = analysis.ValidateBudget(budget)
	}
	if err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, "budget must be a positive number", "invalid_input")
		return 0, false
	}
	return budget, true
}
