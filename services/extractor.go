package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mearone/cellar-sage/shared"
)

// percentPattern matches a 1-2 digit percentage with an optional single
// decimal, e.g. "25%", "23.5 %". Longer numerals are deliberately excluded;
// nothing above 99% is a real buyer's premium.
var percentPattern = regexp.MustCompile(`(\d{1,2}(?:\.\d)?)\s?%`)

// qualifierAnchor marks VAT-exclusive figures ("21% excl. VAT").
var qualifierAnchor = regexp.MustCompile(`(?i)excl|excluding`)

// proximityWindow is the number of characters searched on each side of an
// anchor match.
const proximityWindow = 300

// NormalizePageText reduces raw HTML to its visible text with runs of
// whitespace collapsed to single spaces. Case is preserved.
func NormalizePageText(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", shared.NewServiceError(shared.ErrorCategoryProcessing, "HTML_PARSE_FAILED",
			fmt.Sprintf("failed to parse HTML: %v", err),
			"PercentageExtractor", "NormalizePageText", false, err)
	}

	text := doc.Text()
	text = strings.Join(strings.Fields(text), " ")
	return text, nil
}

// ExtractRate applies an extraction rule to normalized page text and returns
// the candidate rate as a decimal fraction. ok is false when no percentage
// pattern matched; that is a reportable outcome, not an error.
func ExtractRate(text string, rule ExtractionRule) (rate float64, ok bool) {
	switch rule.Kind {
	case RuleProximity:
		return percentNear(text, rule.Anchor)
	case RuleFirstMatch:
		return firstPercent(text)
	case RuleQualifierBiased:
		if rate, ok = percentNear(text, qualifierAnchor); ok {
			return rate, true
		}
		if rule.Anchor != nil {
			if rate, ok = percentNear(text, rule.Anchor); ok {
				return rate, true
			}
		}
		return firstPercent(text)
	default:
		return 0, false
	}
}

// percentNear finds the first percentage within proximityWindow characters of
// the first anchor match. When the anchor is absent the whole text is
// searched, which degrades to first-match behavior.
func percentNear(text string, anchor *regexp.Regexp) (float64, bool) {
	haystack := text
	if anchor != nil {
		if loc := anchor.FindStringIndex(text); loc != nil {
			start := loc[0] - proximityWindow
			if start < 0 {
				start = 0
			}
			end := loc[0] + proximityWindow
			if end > len(text) {
				end = len(text)
			}
			haystack = text[start:end]
		}
	}
	return firstPercent(haystack)
}

// firstPercent returns the first percentage in the text as a decimal fraction.
func firstPercent(text string) (float64, bool) {
	m := percentPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v / 100, true
}

// Plausibility bounds for a buyer's premium. Real-world premiums across the
// tracked houses fall in this band; anything outside signals a parser false
// positive and must never overwrite a trusted rate.
const (
	MinPlausibleRate = 0.05
	MaxPlausibleRate = 0.35
)

// IsPlausible reports whether a scraped rate is within the accepted band.
func IsPlausible(rate float64) bool {
	return rate >= MinPlausibleRate && rate <= MaxPlausibleRate
}
