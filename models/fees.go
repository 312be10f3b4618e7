package models

import (
	"time"

	"github.com/google/uuid"
)

// FeeRecord holds one auction house's current buyer's-premium terms.
// BuyersPremium is always a decimal fraction (0.25 = 25%), never a
// whole-number percentage.
type FeeRecord struct {
	House         string     `json:"house"`
	BuyersPremium float64    `json:"buyers_premium"`
	LastVerified  *time.Time `json:"last_verified"`
	SourceURL     *string    `json:"source_url"`
}

// FeeAuditEntry is an append-only record of a rate change. OldRate is nil
// when no prior record existed for the house.
type FeeAuditEntry struct {
	ID        uuid.UUID `json:"id"`
	House     string    `json:"house"`
	OldRate   *float64  `json:"old_rate"`
	NewRate   float64   `json:"new_rate"`
	SourceURL *string   `json:"source_url"`
	ChangedAt time.Time `json:"changed_at"`
}
