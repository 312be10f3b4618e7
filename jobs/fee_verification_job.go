package jobs

import (
	"context"
	"time"

	"github.com/mearone/cellar-sage/services"
	"github.com/sirupsen/logrus"
)

// FeeVerificationJob runs the fee verification pipeline on a schedule and
// posts the aggregated report to the webhook after each run.
type FeeVerificationJob struct {
	Service  *services.FeeVerificationService
	Notifier *services.WebhookNotifier
	Interval time.Duration
}

func NewFeeVerificationJob(service *services.FeeVerificationService, notifier *services.WebhookNotifier, interval time.Duration) *FeeVerificationJob {
	return &FeeVerificationJob{
		Service:  service,
		Notifier: notifier,
		Interval: interval,
	}
}

func (j *FeeVerificationJob) Start() {
	logrus.Infof("Starting Fee Verification Job (runs every %v)...", j.Interval)
	ticker := time.NewTicker(j.Interval)

	go func() {
		// Run immediately on start
		j.Run(context.Background())

		for range ticker.C {
			j.Run(context.Background())
		}
	}()
}

// Run executes one verification pass and notifies the webhook. The webhook
// outcome never changes the report.
func (j *FeeVerificationJob) Run(ctx context.Context) *services.VerificationReport {
	startTime := time.Now()
	logrus.Info("Running Fee Verification Job...")

	report := j.Service.Run(ctx)
	j.Notifier.Notify(ctx, report.Lines())

	if report.Failed() {
		logrus.Warnf("Fee Verification Job finished with %d failed house(s) (took %v)",
			report.Failures, time.Since(startTime))
	} else {
		logrus.Infof("Fee Verification Job completed successfully: %d houses verified (took %v)",
			len(report.Outcomes), time.Since(startTime))
	}

	return report
}
