package alerts

import (
	"fmt"

	"FarePull/internal/domain/models"

	"github.com/shopspring/decimal"
)

// Classifier grades totals into price tiers and decides what gets pushed actively.
type Classifier struct {
	th models.Thresholds
}

// NewClassifier rejects thresholds that are not strictly ascending.
func NewClassifier(th models.Thresholds) (*Classifier, error) {
	if !th.GreenMax.LessThan(th.YellowMax) || !th.YellowMax.LessThan(th.CeilingMax) {
		return nil, fmt.Errorf("thresholds must be ascending: green=%s yellow=%s ceiling=%s",
			th.GreenMax, th.YellowMax, th.CeilingMax)
	}
	return &Classifier{th: th}, nil
}

func (c *Classifier) Thresholds() models.Thresholds { return c.th }

// Classify uses inclusive upper bounds, so a tie goes to the cheaper tier.
func (c *Classifier) Classify(total decimal.Decimal) models.PriceTier {
	switch {
	case total.LessThanOrEqual(c.th.GreenMax):
		return models.TierGreen
	case total.LessThanOrEqual(c.th.YellowMax):
		return models.TierYellow
	case total.LessThanOrEqual(c.th.CeilingMax):
		return models.TierNormal
	default:
		return models.TierOverpriced
	}
}

// TierNotifies reports whether a tier is worth a push at all.
func TierNotifies(t models.PriceTier) bool {
	return t == models.TierGreen || t == models.TierYellow
}

// TierSilent reports whether a tier push should be delivered without sound.
func TierSilent(t models.PriceTier) bool { return t != models.TierGreen }

// SeverityNotifies reports whether an anomaly deserves an active push.
func SeverityNotifies(s models.Severity) bool {
	return s == models.SeverityCritical || s == models.SeverityHigh
}
