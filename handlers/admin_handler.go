package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mearone/cellar-sage/jobs"
	"github.com/mearone/cellar-sage/models"
	"github.com/mearone/cellar-sage/services"
	"github.com/sirupsen/logrus"
)

type AdminHandler struct {
	Store           services.RateStore
	VerificationJob *jobs.FeeVerificationJob
}

func NewAdminHandler(store services.RateStore, verificationJob *jobs.FeeVerificationJob) *AdminHandler {
	return &AdminHandler{
		Store:           store,
		VerificationJob: verificationJob,
	}
}

// TriggerFeeVerification runs the verification pipeline on demand and returns
// the per-house report.
func (h *AdminHandler) TriggerFeeVerification(c *fiber.Ctx) error {
	logrus.Info("Manual fee verification triggered via admin endpoint")

	startTime := time.Now()
	report := h.VerificationJob.Run(c.Context())
	duration := time.Since(startTime)

	return c.JSON(fiber.Map{
		"success":  !report.Failed(),
		"report":   report.Lines(),
		"failures": report.Failures,
		"duration": duration.String(),
	})
}

// GetFeeAudit returns the most recent audit entries for debugging.
func (h *AdminHandler) GetFeeAudit(c *fiber.Ctx) error {
	entries, err := h.Store.ListAudit(c.Context(), c.QueryInt("limit", 20))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to query audit entries: " + err.Error(),
		})
	}

	if entries == nil {
		entries = []models.FeeAuditEntry{}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    entries,
		"count":   len(entries),
	})
}
