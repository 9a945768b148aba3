package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AnomalyKind string

const (
	KindFareInversion      AnomalyKind = "FARE_INVERSION"
	KindZeroPrice          AnomalyKind = "ZERO_PRICE"
	KindNegativePrice      AnomalyKind = "NEGATIVE_PRICE"
	KindPromoNotApplied    AnomalyKind = "PROMO_NOT_APPLIED"
	KindPromoDetected      AnomalyKind = "PROMO_DETECTED"
	KindAvailabilityGlitch AnomalyKind = "AVAILABILITY_GLITCH"
)

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// Weight orders severities, higher is worse.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// FareRef is the slice of a FareRecord an anomaly needs to carry around.
type FareRef struct {
	FareType     string          `json:"type"`
	FareClass    string          `json:"class"`
	Rank         int             `json:"rank"`
	Price        decimal.Decimal `json:"price"`
	Availability int             `json:"availability"`
	FareRef      string          `json:"fare_ref,omitempty"`
}

// Anomaly is one finding of the detector. Optional fields depend on Kind.
type Anomaly struct {
	ID            string      `json:"id"`
	Kind          AnomalyKind `json:"kind"`
	Severity      Severity    `json:"severity"`
	FlightNumber  string      `json:"flight_no"`
	Direction     Direction   `json:"direction"`
	DepartureDate string      `json:"departure"`
	Pair          DatePair    `json:"pair"`

	// FareInversion
	Cheap            *FareRef         `json:"cheap_class,omitempty"`
	Expensive        *FareRef         `json:"expensive_class,omitempty"`
	SavingsPerPerson *decimal.Decimal `json:"savings_per_person,omitempty"`
	SavingsTotal     *decimal.Decimal `json:"savings_total,omitempty"`

	// ZeroPrice / NegativePrice
	Fare *FareRef `json:"fare,omitempty"`

	// PromoNotApplied / PromoDetected
	PromoAmount *decimal.Decimal `json:"promo_amount,omitempty"`
	AfterTax    *decimal.Decimal `json:"after_tax,omitempty"`
	BeforeTax   *decimal.Decimal `json:"before_tax,omitempty"`
	DiscountPct *decimal.Decimal `json:"discount_pct,omitempty"`

	// AvailabilityGlitch
	SoldOut   *FareRef `json:"sold_out_class,omitempty"`
	Available *FareRef `json:"available_class,omitempty"`

	DetectedAt time.Time `json:"timestamp"`
}

// DedupKey is the identity used to suppress repeated alerts.
func (a Anomaly) DedupKey() string {
	return string(a.Kind) + "|" + a.FlightNumber + "|" + a.Pair.Label()
}
