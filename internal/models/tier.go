package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Tier struct {
	ID         uuid.UUID `json:"id"`
	PartyID    string    `json:"party_id"`
	Name       string    `json:"name"`
	PriceCents int       `json:"price_cents"`
	Quantity   int       `json:"quantity"`
	SortOrder  int       `json:"sort_order"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// PriceLabel formats the tier price for emails and admin listings.
func (t Tier) PriceLabel() string {
	if t.PriceCents == 0 {
		return "Free"
	}
	return fmt.Sprintf("$%d.%02d", t.PriceCents/100, t.PriceCents%100)
}

type TierParams struct {
	Name       string
	PriceCents int
	Quantity   int
	SortOrder  int
	Active     bool
}

func (p TierParams) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("tier name is required")
	}
	if p.PriceCents < 0 {
		return fmt.Errorf("price cannot be negative")
	}
	if p.Quantity < 0 {
		return fmt.Errorf("quantity cannot be negative")
	}
	return nil
}
