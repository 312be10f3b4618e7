package services

import (
	"math"
	"regexp"
	"strings"
	"testing"
)

func TestNormalizePageTextCollapsesWhitespace(t *testing.T) {
	html := "<html><body><h1>Terms</h1>\n\n<p>Our   buyer's premium\t is\n 25% of the hammer price.</p></body></html>"

	text, err := NormalizePageText(html)
	if err != nil {
		t.Fatalf("failed to normalize: %v", err)
	}

	if strings.Contains(text, "  ") || strings.Contains(text, "\n") {
		t.Errorf("expected collapsed whitespace, got %q", text)
	}
	if !strings.Contains(text, "buyer's premium is 25%") {
		t.Errorf("expected visible text preserved, got %q", text)
	}
}

func TestExtractRateProximity(t *testing.T) {
	rule := ExtractionRule{
		Kind:   RuleProximity,
		Anchor: regexp.MustCompile(`(?i)buyer'?s premium`),
	}

	text := "Shipping is billed separately. Please note our buyer's premium is 23.5% on all lots sold at auction."
	rate, ok := ExtractRate(text, rule)
	if !ok {
		t.Fatal("expected a match")
	}
	if math.Abs(rate-0.235) > 1e-9 {
		t.Errorf("expected 0.235, got %v", rate)
	}
}

func TestExtractRateProximityPrefersWindowOverEarlierMatch(t *testing.T) {
	rule := ExtractionRule{
		Kind:   RuleProximity,
		Anchor: regexp.MustCompile(`(?i)buyer'?s premium`),
	}

	// An unrelated percentage sits far before the anchor, outside the window.
	text := strings.Repeat("International shipping surcharge of 8% applies to oversized cases. ", 10) +
		"A buyer's premium of 25% will be added to the hammer price."
	rate, ok := ExtractRate(text, rule)
	if !ok {
		t.Fatal("expected a match")
	}
	if rate != 0.25 {
		t.Errorf("expected the percentage near the anchor (0.25), got %v", rate)
	}
}

func TestExtractRateProximityFallsBackWithoutAnchor(t *testing.T) {
	rule := ExtractionRule{
		Kind:   RuleProximity,
		Anchor: regexp.MustCompile(`(?i)buyer'?s premium`),
	}

	text := "All purchases carry an additional charge of 21% over the winning bid."
	rate, ok := ExtractRate(text, rule)
	if !ok {
		t.Fatal("expected fallback to whole-text search")
	}
	if rate != 0.21 {
		t.Errorf("expected 0.21, got %v", rate)
	}
}

func TestExtractRateQualifierBiased(t *testing.T) {
	rule := ExtractionRule{
		Kind:   RuleQualifierBiased,
		Anchor: regexp.MustCompile(`(?i)buyer'?s premium`),
	}

	// The VAT-inclusive figure sits outside the qualifier's search window, so
	// only the ex-VAT figure is in reach.
	text := "The buyer's premium amounts to 25.2% including VAT of the hammer price. " +
		strings.Repeat("Lots are sold in the order listed in the catalogue. ", 8) +
		"For professional buyers the commission is 21% excluding VAT."
	rate, ok := ExtractRate(text, rule)
	if !ok {
		t.Fatal("expected a match")
	}
	if rate != 0.21 {
		t.Errorf("expected the ex-VAT figure 0.21, got %v", rate)
	}
}

func TestExtractRateFirstMatch(t *testing.T) {
	rule := ExtractionRule{Kind: RuleFirstMatch}

	text := "Fees: 18% premium, 3% handling."
	rate, ok := ExtractRate(text, rule)
	if !ok {
		t.Fatal("expected a match")
	}
	if rate != 0.18 {
		t.Errorf("expected 0.18, got %v", rate)
	}
}

func TestExtractRateNoMatch(t *testing.T) {
	rule := ExtractionRule{
		Kind:   RuleProximity,
		Anchor: regexp.MustCompile(`(?i)buyer'?s premium`),
	}

	if _, ok := ExtractRate("No percentages anywhere on this page.", rule); ok {
		t.Error("expected no match")
	}
}

func TestExtractRateIgnoresThreeDigitNumerals(t *testing.T) {
	rule := ExtractionRule{Kind: RuleFirstMatch}

	rate, ok := ExtractRate("We have served 100% of collectors since 1985, with an 18% premium.", rule)
	if !ok {
		t.Fatal("expected a match")
	}
	// "100%" still yields a 2-digit submatch ("00"); guard-level filtering is
	// what keeps such artifacts out of the store.
	if rate != 0 {
		t.Errorf("expected the 00 artifact to parse as 0, got %v", rate)
	}
	if IsPlausible(rate) {
		t.Error("artifact value must be rejected by the plausibility guard")
	}
}

func TestIsPlausibleBounds(t *testing.T) {
	cases := []struct {
		rate float64
		want bool
	}{
		{0.049, false},
		{0.05, true},
		{0.35, true},
		{0.351, false},
	}

	for _, tc := range cases {
		if got := IsPlausible(tc.rate); got != tc.want {
			t.Errorf("IsPlausible(%v) = %v, want %v", tc.rate, got, tc.want)
		}
	}
}
