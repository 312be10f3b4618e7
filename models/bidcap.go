package models

// BidCapRequest is the payload for the compute endpoint. Any buyer's premium
// supplied by the client is ignored; the server always resolves the premium
// from the fee table.
type BidCapRequest struct {
	AuctionHouse    string  `json:"auction_house"`
	RetailAnchorUSD float64 `json:"retail_anchor_usd"`
	ShippingUSD     float64 `json:"shipping_usd"`

	// Destination / tax inputs
	ShippingCountry string   `json:"shipping_country"`
	AutoTax         bool     `json:"auto_tax"`
	SalesTaxRate    *float64 `json:"sales_tax_rate"`
	TargetDiscount  *float64 `json:"target_discount"`

	// Condition selectors
	FillLevel    string `json:"fill_level"`
	Capsule      string `json:"capsule"`
	Label        string `json:"label"`
	Seepage      string `json:"seepage"`
	Storage      string `json:"storage"`
	Mold         string `json:"mold"`
	Oxidation    string `json:"oxidation"`
	Drinkability string `json:"drinkability"`
}

// BidCapResult carries the computed max bid together with every intermediate
// figure used, so callers can render a transparent audit trail.
type BidCapResult struct {
	PreFeeMax      float64 `json:"preFeeMax"`
	MaxBid         float64 `json:"maxBid"`
	RiskSum        float64 `json:"riskSum"`
	DrinkAdj       float64 `json:"drinkAdj"`
	BuyersPremium  float64 `json:"bp"`
	SalesTax       float64 `json:"tax"`
	TargetDiscount float64 `json:"targetDiscount"`
}
