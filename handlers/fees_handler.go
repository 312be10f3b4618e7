package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mearone/cellar-sage/models"
	"github.com/mearone/cellar-sage/services"
	"github.com/sirupsen/logrus"
)

// auditEpsilon mirrors the reconciler's tolerance: an admin edit within this
// distance of the stored rate produces no audit entry.
const auditEpsilon = 1e-6

type FeesHandler struct {
	Store services.RateStore
}

func NewFeesHandler(store services.RateStore) *FeesHandler {
	return &FeesHandler{Store: store}
}

// GetFees returns all fee records ordered by house name.
func (h *FeesHandler) GetFees(c *fiber.Ctx) error {
	records, err := h.Store.ListAll(c.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to list fee records")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load fee records",
		})
	}

	if records == nil {
		records = []models.FeeRecord{}
	}
	return c.JSON(records)
}

type upsertFeeRequest struct {
	House         string   `json:"house"`
	BuyersPremium *float64 `json:"buyers_premium"`
	SourceURL     *string  `json:"source_url"`
	LastVerified  *string  `json:"last_verified"`
}

// UpsertFee writes a fee record from a manual admin edit, appending an audit
// entry when the rate actually changed.
func (h *FeesHandler) UpsertFee(c *fiber.Ctx) error {
	var body upsertFeeRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if body.House == "" || body.BuyersPremium == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "house and buyers_premium (number) are required",
		})
	}
	if *body.BuyersPremium < 0 || *body.BuyersPremium >= 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "buyers_premium must be a decimal (e.g., 0.23)",
		})
	}

	lastVerified := time.Now().UTC().Truncate(24 * time.Hour)
	if body.LastVerified != nil && *body.LastVerified != "" {
		parsed, err := time.Parse("2006-01-02", *body.LastVerified)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "last_verified must be a YYYY-MM-DD date",
			})
		}
		lastVerified = parsed
	}

	current, err := h.Store.Get(c.Context(), body.House)
	if err != nil {
		logrus.WithError(err).Error("Failed to read current fee record")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read current fee record",
		})
	}

	record := &models.FeeRecord{
		House:         body.House,
		BuyersPremium: *body.BuyersPremium,
		LastVerified:  &lastVerified,
		SourceURL:     body.SourceURL,
	}
	if err := h.Store.Upsert(c.Context(), record); err != nil {
		logrus.WithError(err).Error("Failed to upsert fee record")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to write fee record",
		})
	}

	var oldRate *float64
	if current != nil {
		oldRate = &current.BuyersPremium
	}
	changed := oldRate == nil || abs(*oldRate-*body.BuyersPremium) >= auditEpsilon
	if changed {
		if err := h.Store.AppendAudit(c.Context(), &models.FeeAuditEntry{
			House:     body.House,
			OldRate:   oldRate,
			NewRate:   *body.BuyersPremium,
			SourceURL: body.SourceURL,
			ChangedAt: time.Now(),
		}); err != nil {
			logrus.WithError(err).Error("Failed to append audit entry")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to write audit entry",
			})
		}
	}

	return c.JSON(fiber.Map{"ok": true})
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
