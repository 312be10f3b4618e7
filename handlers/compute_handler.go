package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/mearone/cellar-sage/models"
	"github.com/mearone/cellar-sage/services"
	"github.com/sirupsen/logrus"
)

type ComputeHandler struct {
	Store      services.RateStore
	Calculator *services.BidCapCalculator
	Houses     []services.HouseConfig
}

func NewComputeHandler(store services.RateStore, calculator *services.BidCapCalculator, houses []services.HouseConfig) *ComputeHandler {
	return &ComputeHandler{
		Store:      store,
		Calculator: calculator,
		Houses:     houses,
	}
}

// Compute resolves the buyer's premium server-side and returns the full
// bid-cap breakdown. The client never supplies the premium.
func (h *ComputeHandler) Compute(c *fiber.Ctx) error {
	var req models.BidCapRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.AuctionHouse == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "auction_house is required",
		})
	}

	record, err := h.Store.Get(c.Context(), req.AuctionHouse)
	if err != nil {
		logrus.WithError(err).Error("Failed to resolve buyer's premium")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to resolve buyer's premium",
		})
	}
	if record == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("No fees found for house: %s", req.AuctionHouse),
		})
	}

	ratesAreVATInclusive := true
	if houseConfig := services.FindHouseConfig(h.Houses, req.AuctionHouse); houseConfig != nil {
		ratesAreVATInclusive = houseConfig.RatesAreVATInclusive
	}

	result := h.Calculator.Compute(&req, record.BuyersPremium, ratesAreVATInclusive)
	return c.JSON(result)
}
