package services

import (
	"strings"

	"github.com/mearone/cellar-sage/config"
	"github.com/mearone/cellar-sage/models"
)

// BidCapCalculator turns a bid-cap request plus the stored buyer's premium
// into a maximum bid. It is pure: no I/O, no shared mutable state, identical
// inputs always produce identical results.
type BidCapCalculator struct {
	tables *config.BidTables
}

func NewBidCapCalculator(tables *config.BidTables) *BidCapCalculator {
	return &BidCapCalculator{tables: tables}
}

// Compute calculates the maximum bid. storedPremium is always the rate from
// the fee table; any premium supplied by the client has been discarded
// upstream. ratesAreVATInclusive comes from the house configuration.
func (c *BidCapCalculator) Compute(req *models.BidCapRequest, storedPremium float64, ratesAreVATInclusive bool) *models.BidCapResult {
	bp, tax := c.resolveFees(req, storedPremium, ratesAreVATInclusive)

	targetDiscount := c.tables.DefaultTargetDiscount
	if req.TargetDiscount != nil {
		targetDiscount = *req.TargetDiscount
	}

	riskSum := c.riskSum(req)
	drinkAdj := 1 + c.tables.DrinkabilityAdjustment[req.Drinkability]

	preFeeMax := req.RetailAnchorUSD * (1 - riskSum) * drinkAdj * (1 - targetDiscount)
	maxBid := (preFeeMax - req.ShippingUSD) / (1 + bp + tax)

	return &models.BidCapResult{
		PreFeeMax:      preFeeMax,
		MaxBid:         maxBid,
		RiskSum:        riskSum,
		DrinkAdj:       drinkAdj,
		BuyersPremium:  bp,
		SalesTax:       tax,
		TargetDiscount: targetDiscount,
	}
}

// resolveFees applies the destination-aware tax policy.
//
// Auto-tax on: a house publishing ex-VAT rates gets a VAT uplift on the
// premium for EU destinations; sales tax passes through for US destinations
// and is zero elsewhere. Auto-tax off: the stored premium and the caller's
// sales-tax rate are used as-is. VAT handling is keyed entirely by the
// per-house flag, never guessed from the rate's magnitude.
func (c *BidCapCalculator) resolveFees(req *models.BidCapRequest, storedPremium float64, ratesAreVATInclusive bool) (bp, tax float64) {
	bp = storedPremium

	destination := strings.ToUpper(req.ShippingCountry)
	if destination == "" {
		destination = "US"
	}

	callerTax := c.tables.DefaultSalesTax
	if req.SalesTaxRate != nil {
		callerTax = *req.SalesTaxRate
	}

	if !req.AutoTax {
		return bp, callerTax
	}

	if !ratesAreVATInclusive {
		if vatRate, isEU := c.tables.EUVATRates[destination]; isEU {
			if vatRate == 0 {
				vatRate = c.tables.DefaultEUVAT
			}
			bp = storedPremium * (1 + vatRate)
		}
	}

	if destination == "US" {
		tax = callerTax
		if req.SalesTaxRate == nil {
			tax = 0
		}
	} else {
		tax = 0
	}

	return bp, tax
}

// riskSum totals the condition deductions across all dimensions. Unknown
// labels contribute zero rather than failing the request.
func (c *BidCapCalculator) riskSum(req *models.BidCapRequest) float64 {
	deductions := c.tables.RiskDeductions
	return deductions["fill_level"][req.FillLevel] +
		deductions["capsule"][req.Capsule] +
		deductions["label"][req.Label] +
		deductions["seepage"][req.Seepage] +
		deductions["storage"][req.Storage] +
		deductions["mold"][req.Mold] +
		deductions["oxidation"][req.Oxidation]
}
