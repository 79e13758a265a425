package analysis

// LotRegistry resolves the board lot of a symbol. Configured overrides win,
// then a lot size reported by the data provider, then the market default:
// HK trades in board lots (100 unless configured), other markets in single shares.
type LotRegistry struct {
	defaultHK int
	overrides map[string]int
}

// NewLotRegistry creates a registry; defaultHK <= 0 means 100
func NewLotRegistry(defaultHK int, overrides map[string]int) *LotRegistry {
	if defaultHK <= 0 {
		defaultHK = 100
	}
	o := make(map[string]int, len(overrides))
	for sym, lot := range overrides {
		if norm, err := NormalizeSymbol(sym); err == nil && lot > 0 {
			o[norm] = lot
		}
	}
	return &LotRegistry{defaultHK: defaultHK, overrides: o}
}

// LotSize returns the shares per lot for symbol
func (r *LotRegistry) LotSize(symbol string, reported int) int {
	if lot, ok := r.overrides[symbol]; ok {
		return lot
	}
	if reported > 0 {
		return reported
	}
	if MarketOf(symbol) == MarketHK {
		return r.defaultHK
	}
	return 1
}
