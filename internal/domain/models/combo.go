package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundTripCombo is one outbound+inbound candidate for a date pair. Never mutated after creation.
type RoundTripCombo struct {
	ID              string          `json:"id"`
	Pair            DatePair        `json:"pair"`
	Outbound        FareRecord      `json:"outbound"`
	Inbound         FareRecord      `json:"inbound"`
	Passengers      int             `json:"passengers"`
	Total           decimal.Decimal `json:"total"`
	MinAvailability int             `json:"min_availability"`
	CreatedAt       time.Time       `json:"created_at"`
}

// PerPerson is the combined price for a single passenger.
func (c RoundTripCombo) PerPerson() decimal.Decimal {
	return c.Outbound.PriceAfterTax.Add(c.Inbound.PriceAfterTax)
}
