package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

// Markets recognised by the lot and fee rules
const (
	MarketHK = "HK"
	MarketUS = "US"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{0,9}(\.[A-Z]{1,4})?$`)

// NormalizeSymbol trims and uppercases a ticker and zero-pads numeric HK
// codes to four digits, so "5.hk" becomes "0005.HK".
func NormalizeSymbol(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if base, ok := strings.CutSuffix(s, ".HK"); ok && isDigits(base) && len(base) < 4 {
		s = strings.Repeat("0", 4-len(base)) + base + ".HK"
	}
	if !symbolPattern.MatchString(s) {
		return "", fmt.Errorf("%w: malformed symbol %q", ErrInvalidInput, raw)
	}
	return s, nil
}

// ParseSymbols splits free text on commas, newlines and whitespace,
// normalises each ticker and drops duplicates, keeping first-seen order.
// Every malformed entry is named in the returned error.
func ParseSymbols(input string) ([]string, error) {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r' || r == ' ' || r == '\t'
	})
	return NormalizeSymbols(fields)
}

// NormalizeSymbols applies NormalizeSymbol to a list, de-duplicating it
func NormalizeSymbols(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	var bad []string
	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		s, err := NormalizeSymbol(r)
		if err != nil {
			bad = append(bad, strings.TrimSpace(r))
			continue
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(bad) > 0 {
		return nil, fmt.Errorf("%w: malformed symbols: %s", ErrInvalidInput, strings.Join(bad, ", "))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no symbols given", ErrInvalidInput)
	}
	return out, nil
}

// MarketOf returns the market a normalised symbol trades on
func MarketOf(symbol string) string {
	if strings.HasSuffix(symbol, ".HK") {
		return MarketHK
	}
	return MarketUS
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
