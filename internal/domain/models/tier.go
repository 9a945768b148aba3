package models

import "github.com/shopspring/decimal"

type PriceTier string

const (
	TierGreen      PriceTier = "GREEN"
	TierYellow     PriceTier = "YELLOW"
	TierNormal     PriceTier = "NORMAL"
	TierOverpriced PriceTier = "OVERPRICED"
)

// Thresholds are inclusive upper bounds, ascending.
type Thresholds struct {
	GreenMax   decimal.Decimal
	YellowMax  decimal.Decimal
	CeilingMax decimal.Decimal
}
