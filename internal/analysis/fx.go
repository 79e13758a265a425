package analysis

import (
	"context"
	"fmt"
	"strings"
)

// FXTable converts currencies through a static table of values expressed
// in a reference currency (with HKD as reference: HKD=1, USD=7.8).
type FXTable struct {
	reference string
	rates     map[string]float64
}

// NewFXTable builds a table; the reference currency is always worth 1
func NewFXTable(reference string, rates map[string]float64) *FXTable {
	reference = strings.ToUpper(reference)
	r := make(map[string]float64, len(rates)+1)
	for ccy, v := range rates {
		if v > 0 {
			r[strings.ToUpper(ccy)] = v
		}
	}
	r[reference] = 1
	return &FXTable{reference: reference, rates: r}
}

// Reference returns the currency budgets are expressed in
func (t *FXTable) Reference() string {
	return t.reference
}

// Rate returns how many units of `to` one unit of `from` buys
func (t *FXTable) Rate(_ context.Context, from, to string) (float64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return 1, nil
	}
	f, ok := t.rates[from]
	if !ok {
		return 0, fmt.Errorf("%w: no FX rate for %s", ErrInvalidInput, from)
	}
	g, ok := t.rates[to]
	if !ok {
		return 0, fmt.Errorf("%w: no FX rate for %s", ErrInvalidInput, to)
	}
	return f / g, nil
}
