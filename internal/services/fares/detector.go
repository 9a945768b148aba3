package fares

import (
	"time"

	"FarePull/internal/domain/models"
	domsvc "FarePull/internal/domain/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	hundred           = decimal.NewFromInt(100)
	glitchPriceFactor = decimal.NewFromFloat(1.5)
)

// FlightFares is every fare of one flight: one direction, one departure instant.
type FlightFares struct {
	FlightNumber  string
	Direction     models.Direction
	DepartureDate string
	Fares         []models.FareRecord
}

// GroupByFlight splits a fetch result into flights, in first-seen order.
func GroupByFlight(records []models.FareRecord) []FlightFares {
	var out []FlightFares
	index := make(map[string]int)
	for _, r := range records {
		k := r.FlightKey()
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, FlightFares{
				FlightNumber:  r.FlightNumber,
				Direction:     r.Direction,
				DepartureDate: r.DepartureDate(),
			})
		}
		out[i].Fares = append(out[i].Fares, r)
	}
	return out
}

// Detector applies the fare anomaly rules. It holds no mutable state and is
// safe for concurrent use.
type Detector struct {
	hierarchy *Hierarchy
	now       func() time.Time
	newID     func() string
}

var _ domsvc.AnomalyDetector = (*Detector)(nil)

type DetectorOption func(*Detector)

// WithDetectorClock overrides the timestamp source.
func WithDetectorClock(now func() time.Time) DetectorOption {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

func NewDetector(h *Hierarchy, opts ...DetectorOption) *Detector {
	if h == nil {
		h = DefaultHierarchy()
	}
	d := &Detector{
		hierarchy: h,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectAll runs Detect on every flight of the payload.
func (d *Detector) DetectAll(pair models.DatePair, records []models.FareRecord, passengers int) []models.Anomaly {
	var out []models.Anomaly
	for _, flight := range GroupByFlight(records) {
		out = append(out, d.Detect(flight, pair, passengers)...)
	}
	return out
}

// Detect returns the findings for one flight in rule order. Non-adult fares are ignored.
func (d *Detector) Detect(flight FlightFares, pair models.DatePair, passengers int) []models.Anomaly {
	if passengers <= 0 {
		passengers = 1
	}
	adults := make([]models.FareRecord, 0, len(flight.Fares))
	for _, f := range flight.Fares {
		if f.IsAdult() {
			adults = append(adults, f)
		}
	}
	if len(adults) == 0 {
		return nil
	}

	now := d.now()
	base := func(kind models.AnomalyKind, sev models.Severity) models.Anomaly {
		return models.Anomaly{
			ID:            d.newID(),
			Kind:          kind,
			Severity:      sev,
			FlightNumber:  flight.FlightNumber,
			Direction:     flight.Direction,
			DepartureDate: flight.DepartureDate,
			Pair:          pair,
			DetectedAt:    now,
		}
	}

	var out []models.Anomaly
	out = append(out, d.inversions(adults, passengers, base)...)
	out = append(out, d.nonPositive(adults, base)...)
	out = append(out, d.promotions(adults, base)...)
	out = append(out, d.availability(adults, base)...)
	return out
}

type anomalyFactory func(models.AnomalyKind, models.Severity) models.Anomaly

// inversions flags a higher-ranked fare that is cheaper than a lower-ranked one.
// Both orderings of each pair are checked; strict rank order means at most one matches.
func (d *Detector) inversions(fares []models.FareRecord, passengers int, base anomalyFactory) []models.Anomaly {
	n := decimal.NewFromInt(int64(passengers))
	var out []models.Anomaly
	for i := 0; i < len(fares); i++ {
		for j := i + 1; j < len(fares); j++ {
			for _, p := range [2][2]models.FareRecord{{fares[i], fares[j]}, {fares[j], fares[i]}} {
				cheap, expensive := p[0], p[1]
				if !d.inverted(cheap, expensive) {
					continue
				}
				savings := expensive.PriceAfterTax.Sub(cheap.PriceAfterTax)
				total := savings.Mul(n)
				cheapRef := d.hierarchy.ref(cheap)
				expRef := d.hierarchy.ref(expensive)

				a := base(models.KindFareInversion, models.SeverityHigh)
				a.Cheap = &cheapRef
				a.Expensive = &expRef
				a.SavingsPerPerson = &savings
				a.SavingsTotal = &total
				out = append(out, a)
				break
			}
		}
	}
	return out
}

func (d *Detector) inverted(a, b models.FareRecord) bool {
	return d.hierarchy.Rank(a) > d.hierarchy.Rank(b) &&
		a.PriceAfterTax.LessThan(b.PriceAfterTax) &&
		a.PriceAfterTax.IsPositive()
}

func (d *Detector) nonPositive(fares []models.FareRecord, base anomalyFactory) []models.Anomaly {
	var out []models.Anomaly
	for _, f := range fares {
		var a models.Anomaly
		switch {
		case f.PriceAfterTax.IsNegative():
			a = base(models.KindNegativePrice, models.SeverityCritical)
		case f.PriceAfterTax.IsZero() && f.Availability > 0:
			a = base(models.KindZeroPrice, models.SeverityCritical)
		default:
			continue
		}
		ref := d.hierarchy.ref(f)
		a.Fare = &ref
		out = append(out, a)
	}
	return out
}

// promotions checks that an active promotion is reflected in the charged price.
func (d *Detector) promotions(fares []models.FareRecord, base anomalyFactory) []models.Anomaly {
	var out []models.Anomaly
	for _, f := range fares {
		if !f.PromotionAmount.IsPositive() {
			continue
		}
		promo, after, before := f.PromotionAmount, f.PriceAfterTax, f.PriceBeforeTax

		var a models.Anomaly
		if after.GreaterThanOrEqual(before) && before.IsPositive() {
			a = base(models.KindPromoNotApplied, models.SeverityMedium)
		} else {
			a = base(models.KindPromoDetected, models.SeverityInfo)
			pct := decimal.Zero
			if before.IsPositive() {
				pct = decimal.NewFromInt(1).Sub(after.Div(before)).Mul(hundred).Round(1)
			}
			a.DiscountPct = &pct
		}
		ref := d.hierarchy.ref(f)
		a.Fare = &ref
		a.PromoAmount = &promo
		a.AfterTax = &after
		a.BeforeTax = &before
		out = append(out, a)
	}
	return out
}

// availability flags a sold-out cheap tariff while a pricier one, within 1.5x
// of its price, still has stock. Only meaningful when both kinds are present.
func (d *Detector) availability(fares []models.FareRecord, base anomalyFactory) []models.Anomaly {
	var soldOut, inStock []models.FareRecord
	for _, f := range fares {
		if f.Availability == 0 {
			soldOut = append(soldOut, f)
		} else if f.Availability > 0 {
			inStock = append(inStock, f)
		}
	}
	if len(soldOut) == 0 || len(inStock) == 0 {
		return nil
	}

	var out []models.Anomaly
	for _, s := range soldOut {
		limit := s.PriceAfterTax.Mul(glitchPriceFactor)
		for _, av := range inStock {
			if d.hierarchy.Rank(s) >= d.hierarchy.Rank(av) || !av.PriceAfterTax.LessThan(limit) {
				continue
			}
			sRef := d.hierarchy.ref(s)
			aRef := d.hierarchy.ref(av)
			a := base(models.KindAvailabilityGlitch, models.SeverityLow)
			a.SoldOut = &sRef
			a.Available = &aRef
			out = append(out, a)
		}
	}
	return out
}
