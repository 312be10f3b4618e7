package services

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/mearone/cellar-sage/config"
	"github.com/mearone/cellar-sage/models"
)

func floatPtr(v float64) *float64 { return &v }

func bestConditionRequest() *models.BidCapRequest {
	return &models.BidCapRequest{
		AuctionHouse:    "Acker",
		RetailAnchorUSD: 150,
		ShippingUSD:     25,
		SalesTaxRate:    floatPtr(0.095),
		TargetDiscount:  floatPtr(0.12),
		FillLevel:       "Into-Neck",
		Capsule:         "Pristine",
		Label:           "Pristine",
		Seepage:         "No",
		Storage:         "Provenance Known",
		Mold:            "No",
		Oxidation:       "None",
		Drinkability:    "Neutral",
	}
}

func TestComputeEndToEndScenario(t *testing.T) {
	calc := NewBidCapCalculator(config.DefaultBidTables())

	result := calc.Compute(bestConditionRequest(), 0.20, true)

	if result.RiskSum != 0 {
		t.Errorf("expected zero risk sum for best condition labels, got %v", result.RiskSum)
	}
	if result.DrinkAdj != 1 {
		t.Errorf("expected neutral drinkability adjustment of 1, got %v", result.DrinkAdj)
	}
	if math.Abs(result.PreFeeMax-132) > 1e-9 {
		t.Errorf("expected preFeeMax 132, got %v", result.PreFeeMax)
	}
	expectedMaxBid := 107.0 / 1.295
	if math.Abs(result.MaxBid-expectedMaxBid) > 1e-9 {
		t.Errorf("expected maxBid %.4f, got %v", expectedMaxBid, result.MaxBid)
	}
	if result.BuyersPremium != 0.20 {
		t.Errorf("expected stored premium passed through, got %v", result.BuyersPremium)
	}
	if result.SalesTax != 0.095 {
		t.Errorf("expected caller sales tax used as-is, got %v", result.SalesTax)
	}
}

func TestComputeUnknownLabelsContributeZero(t *testing.T) {
	calc := NewBidCapCalculator(config.DefaultBidTables())

	req := bestConditionRequest()
	req.FillLevel = "Totally-Made-Up"
	req.Capsule = "???"
	req.Label = ""
	req.Seepage = "Maybe"
	req.Storage = "Garage"
	req.Mold = "Some"
	req.Oxidation = "Unknown"
	req.Drinkability = "Whenever"

	result := calc.Compute(req, 0.20, true)

	if result.RiskSum != 0 {
		t.Errorf("unknown condition labels must contribute 0 to riskSum, got %v", result.RiskSum)
	}
	if result.DrinkAdj != 1 {
		t.Errorf("unknown drinkability label must leave drinkAdj at 1, got %v", result.DrinkAdj)
	}
}

func TestComputeTargetDiscountDefault(t *testing.T) {
	calc := NewBidCapCalculator(config.DefaultBidTables())

	req := bestConditionRequest()
	req.TargetDiscount = nil

	result := calc.Compute(req, 0.20, true)
	if result.TargetDiscount != 0.12 {
		t.Errorf("expected default target discount 0.12, got %v", result.TargetDiscount)
	}
}

func TestComputeAutoTaxEUVATUplift(t *testing.T) {
	calc := NewBidCapCalculator(config.DefaultBidTables())

	req := bestConditionRequest()
	req.AuctionHouse = "iDealwine"
	req.ShippingCountry = "FR"
	req.AutoTax = true

	// Ex-VAT house shipping into France: premium gets the 20% VAT uplift,
	// sales tax is zero outside the US.
	result := calc.Compute(req, 0.21, false)

	if math.Abs(result.BuyersPremium-0.21*1.20) > 1e-9 {
		t.Errorf("expected VAT-uplifted premium 0.252, got %v", result.BuyersPremium)
	}
	if result.SalesTax != 0 {
		t.Errorf("expected zero sales tax for non-US destination under auto tax, got %v", result.SalesTax)
	}
}

func TestComputeAutoTaxVATInclusiveHouseUnchanged(t *testing.T) {
	calc := NewBidCapCalculator(config.DefaultBidTables())

	req := bestConditionRequest()
	req.ShippingCountry = "DE"
	req.AutoTax = true

	result := calc.Compute(req, 0.25, true)
	if result.BuyersPremium != 0.25 {
		t.Errorf("VAT-inclusive house must keep the stored premium, got %v", result.BuyersPremium)
	}
}

func TestComputeAutoTaxUSPassthrough(t *testing.T) {
	calc := NewBidCapCalculator(config.DefaultBidTables())

	req := bestConditionRequest()
	req.ShippingCountry = "US"
	req.AutoTax = true
	req.SalesTaxRate = floatPtr(0.0825)

	result := calc.Compute(req, 0.20, true)
	if result.SalesTax != 0.0825 {
		t.Errorf("expected US sales tax passthrough under auto tax, got %v", result.SalesTax)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	calc := NewBidCapCalculator(config.DefaultBidTables())

	properties := gopter.NewProperties(nil)

	properties.Property("identical inputs always produce identical results", prop.ForAll(
		func(anchor, shipping, premium float64) bool {
			if anchor <= 0 || shipping < 0 || premium < 0 || premium >= 1 {
				return true
			}

			req := bestConditionRequest()
			req.RetailAnchorUSD = anchor
			req.ShippingUSD = shipping

			first := calc.Compute(req, premium, true)
			second := calc.Compute(req, premium, true)
			return *first == *second
		},
		gen.Float64Range(1, 100000),
		gen.Float64Range(0, 500),
		gen.Float64Range(0, 0.99),
	))

	properties.TestingRun(t)
}
