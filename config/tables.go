package config

// BidTables holds the static lookup tables used by the bid-cap calculator.
// The tables are built once at startup and passed explicitly into the
// calculator, so tests can substitute their own.
type BidTables struct {
	// RiskDeductions maps a condition dimension to its per-label fraction
	// deducted from the retail anchor. Labels missing from a dimension
	// contribute 0.
	RiskDeductions map[string]map[string]float64

	// DrinkabilityAdjustment is a signed fraction per drinking-window label.
	DrinkabilityAdjustment map[string]float64

	// EUVATRates maps EU member country codes to their standard VAT rate.
	// Membership in this map doubles as the EU membership test.
	EUVATRates map[string]float64

	DefaultEUVAT          float64
	DefaultSalesTax       float64
	DefaultTargetDiscount float64
}

// DefaultBidTables returns the production lookup tables.
func DefaultBidTables() *BidTables {
	return &BidTables{
		RiskDeductions: map[string]map[string]float64{
			"fill_level": {
				"Into-Neck":     0.0,
				"High-Shoulder": 0.05,
				"Mid-Shoulder":  0.10,
			},
			"capsule": {
				"Pristine":     0.0,
				"Scuffed":      0.02,
				"Torn/Seepage": 0.08,
			},
			"label": {
				"Pristine":   0.0,
				"Bin-Soiled": 0.02,
				"Torn":       0.04,
			},
			"seepage": {
				"No":  0.0,
				"Yes": 0.07,
			},
			"storage": {
				"Provenance Known":     0.0,
				"Unknown/Questionable": 0.05,
			},
			"mold": {
				"No":  0.0,
				"Yes": 0.07,
			},
			"oxidation": {
				"None":            0.0,
				"Light Browning":  0.05,
				"Severe Browning": 0.15,
			},
		},
		DrinkabilityAdjustment: map[string]float64{
			"Prime Now":          0.03,
			"Neutral":            0.0,
			"Early (Needs Time)": -0.03,
			"Late (Drink Up)":    -0.05,
		},
		EUVATRates: map[string]float64{
			"FR": 0.20, "DE": 0.19, "ES": 0.21, "IT": 0.22, "NL": 0.21,
			"BE": 0.21, "LU": 0.17, "DK": 0.25, "SE": 0.25, "FI": 0.24,
			"IE": 0.23, "PT": 0.23, "AT": 0.20, "PL": 0.23, "CZ": 0.21,
			"HU": 0.27, "RO": 0.19, "BG": 0.20, "HR": 0.25, "SI": 0.22,
			"SK": 0.20, "GR": 0.24, "EE": 0.22, "LV": 0.21, "LT": 0.21,
		},
		DefaultEUVAT:          0.20,
		DefaultSalesTax:       0.095,
		DefaultTargetDiscount: 0.12,
	}
}
