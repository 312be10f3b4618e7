package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mearone/cellar-sage/models"
	"github.com/mearone/cellar-sage/shared"
	"github.com/sirupsen/logrus"
)

// rateEpsilon is the tolerance for treating a scraped rate as equal to the
// stored one. Scrapes within epsilon only bump last_verified.
const rateEpsilon = 1e-6

// Outcome statuses for a single house verification.
const (
	OutcomeUpdated    = "updated"
	OutcomeUnchanged  = "unchanged"
	OutcomeNoRow      = "no_db_row"
	OutcomeParseFail  = "parse_failed"
	OutcomeOutOfRange = "out_of_range"
	OutcomeError      = "error"
)

// HouseOutcome is the result of verifying one house.
type HouseOutcome struct {
	House  string `json:"house"`
	Status string `json:"status"`
	Line   string `json:"line"`
	Failed bool   `json:"failed"`
}

// VerificationReport aggregates the outcomes of one verification run.
type VerificationReport struct {
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Outcomes  []HouseOutcome `json:"outcomes"`
	Failures  int            `json:"failures"`
}

// Failed reports whether any house produced a failure outcome.
func (r *VerificationReport) Failed() bool {
	return r.Failures > 0
}

// Lines returns the human-readable per-house report lines in processing order.
func (r *VerificationReport) Lines() []string {
	lines := make([]string, 0, len(r.Outcomes))
	for _, outcome := range r.Outcomes {
		lines = append(lines, outcome.Line)
	}
	return lines
}

// FeeVerificationService re-verifies each configured house's buyer's premium
// against its public terms page and reconciles the result into the rate store.
type FeeVerificationService struct {
	store   RateStore
	fetcher *PageFetcher
	houses  []HouseConfig
	now     func() time.Time
	logger  *logrus.Logger
}

func NewFeeVerificationService(store RateStore, fetcher *PageFetcher, houses []HouseConfig) *FeeVerificationService {
	return &FeeVerificationService{
		store:   store,
		fetcher: fetcher,
		houses:  houses,
		now:     time.Now,
		logger:  logrus.StandardLogger(),
	}
}

// Run processes every configured house sequentially. A failure in one house
// never aborts the rest; each house's outcome is reported independently.
func (s *FeeVerificationService) Run(ctx context.Context) *VerificationReport {
	report := &VerificationReport{StartedAt: s.now()}

	for _, house := range s.houses {
		outcome := s.verifyHouse(ctx, house)
		report.Outcomes = append(report.Outcomes, outcome)
		if outcome.Failed {
			report.Failures++
		}

		s.logger.WithFields(logrus.Fields{
			"house":  outcome.House,
			"status": outcome.Status,
		}).Info(outcome.Line)
	}

	report.Duration = time.Since(report.StartedAt)
	s.logger.WithFields(logrus.Fields{
		"houses":   len(report.Outcomes),
		"failures": report.Failures,
		"duration": report.Duration,
	}).Info("Fee verification run completed")

	return report
}

func (s *FeeVerificationService) verifyHouse(ctx context.Context, house HouseConfig) HouseOutcome {
	current, err := s.store.Get(ctx, house.Name)
	if err != nil {
		return HouseOutcome{House: house.Name, Status: OutcomeError, Failed: true,
			Line: fmt.Sprintf("🔥 %s: %v", house.Name, err)}
	}
	if current == nil {
		return HouseOutcome{House: house.Name, Status: OutcomeNoRow, Failed: true,
			Line: fmt.Sprintf("⚠️ %s: no DB row", house.Name)}
	}

	rawHTML, err := s.fetcher.Fetch(ctx, house.SourceURL)
	if err != nil {
		var svcErr *shared.ServiceError
		if errors.As(err, &svcErr) {
			svcErr.LogError()
		}
		return HouseOutcome{House: house.Name, Status: OutcomeError, Failed: true,
			Line: fmt.Sprintf("🔥 %s: %v", house.Name, err)}
	}

	text, err := NormalizePageText(rawHTML)
	if err != nil {
		return HouseOutcome{House: house.Name, Status: OutcomeError, Failed: true,
			Line: fmt.Sprintf("🔥 %s: %v", house.Name, err)}
	}

	scraped, ok := ExtractRate(text, house.Rule)
	if !ok {
		return HouseOutcome{House: house.Name, Status: OutcomeParseFail, Failed: true,
			Line: fmt.Sprintf("❌ %s: parse failed", house.Name)}
	}

	// Guardrail: never let a parser false positive overwrite a trusted rate.
	if !IsPlausible(scraped) {
		shared.NewServiceError(shared.ErrorCategoryValidation, "RATE_OUT_OF_RANGE",
			fmt.Sprintf("%s: scraped %.2f%% outside the plausible band", house.Name, scraped*100),
			"FeeVerification", "verifyHouse", false, nil).LogError()
		return HouseOutcome{House: house.Name, Status: OutcomeOutOfRange, Failed: true,
			Line: fmt.Sprintf("🚧 %s: scraped %.2f%% out-of-range; no update", house.Name, scraped*100)}
	}

	today := s.today()
	sourceURL := house.SourceURL

	if abs(current.BuyersPremium-scraped) > rateEpsilon {
		oldRate := current.BuyersPremium
		updated := &models.FeeRecord{
			House:         house.Name,
			BuyersPremium: scraped,
			LastVerified:  &today,
			SourceURL:     &sourceURL,
		}
		if err := s.store.Upsert(ctx, updated); err != nil {
			return HouseOutcome{House: house.Name, Status: OutcomeError, Failed: true,
				Line: fmt.Sprintf("🔥 %s: %v", house.Name, err)}
		}
		if err := s.store.AppendAudit(ctx, &models.FeeAuditEntry{
			House:     house.Name,
			OldRate:   &oldRate,
			NewRate:   scraped,
			SourceURL: &sourceURL,
			ChangedAt: s.now(),
		}); err != nil {
			return HouseOutcome{House: house.Name, Status: OutcomeError, Failed: true,
				Line: fmt.Sprintf("🔥 %s: %v", house.Name, err)}
		}
		return HouseOutcome{House: house.Name, Status: OutcomeUpdated,
			Line: fmt.Sprintf("✏️ %s: %g → %g", house.Name, oldRate, scraped)}
	}

	// Unchanged within epsilon: refresh verification metadata only, no audit.
	refreshed := &models.FeeRecord{
		House:         house.Name,
		BuyersPremium: current.BuyersPremium,
		LastVerified:  &today,
		SourceURL:     &sourceURL,
	}
	if err := s.store.Upsert(ctx, refreshed); err != nil {
		return HouseOutcome{House: house.Name, Status: OutcomeError, Failed: true,
			Line: fmt.Sprintf("🔥 %s: %v", house.Name, err)}
	}

	return HouseOutcome{House: house.Name, Status: OutcomeUnchanged,
		Line: fmt.Sprintf("✅ %s: unchanged at %g", house.Name, scraped)}
}

// today returns the run date truncated to midnight UTC, matching the DATE
// column in the fees table.
func (s *FeeVerificationService) today() time.Time {
	year, month, day := s.now().UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
