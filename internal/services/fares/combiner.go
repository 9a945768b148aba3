package fares

import (
	"time"

	"FarePull/internal/domain/models"
	domsvc "FarePull/internal/domain/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Combiner builds round-trip itineraries from one date pair's fare records.
type Combiner struct {
	now   func() time.Time
	newID func() string
}

var _ domsvc.ItineraryCombiner = (*Combiner)(nil)

type CombinerOption func(*Combiner)

// WithCombinerClock overrides the timestamp source.
func WithCombinerClock(now func() time.Time) CombinerOption {
	return func(c *Combiner) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCombiner(opts ...CombinerOption) *Combiner {
	c := &Combiner{
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Combine returns the cartesian product of eligible outbound and inbound flights.
// An empty result means one of the legs had nothing bookable.
func (c *Combiner) Combine(pair models.DatePair, records []models.FareRecord, passengers int) []models.RoundTripCombo {
	if passengers <= 0 {
		passengers = 1
	}
	outbound, inbound := partitionLegs(pair, records)

	obFares := cheapestPerFlight(outbound)
	ibFares := cheapestPerFlight(inbound)
	if len(obFares) == 0 || len(ibFares) == 0 {
		return []models.RoundTripCombo{}
	}

	n := decimal.NewFromInt(int64(passengers))
	now := c.now()
	combos := make([]models.RoundTripCombo, 0, len(obFares)*len(ibFares))
	for _, ob := range obFares {
		for _, ib := range ibFares {
			minAvail := ob.Availability
			if ib.Availability < minAvail {
				minAvail = ib.Availability
			}
			combos = append(combos, models.RoundTripCombo{
				ID:              c.newID(),
				Pair:            pair,
				Outbound:        ob,
				Inbound:         ib,
				Passengers:      passengers,
				Total:           ob.PriceAfterTax.Add(ib.PriceAfterTax).Mul(n),
				MinAvailability: minAvail,
				CreatedAt:       now,
			})
		}
	}
	return combos
}

// partitionLegs splits by direction tag; untagged payloads fall back to the departure date.
func partitionLegs(pair models.DatePair, records []models.FareRecord) (outbound, inbound []models.FareRecord) {
	for _, r := range records {
		switch r.Direction {
		case models.DirectionOutbound:
			outbound = append(outbound, r)
		case models.DirectionInbound:
			inbound = append(inbound, r)
		}
	}
	if len(outbound) > 0 || len(inbound) > 0 {
		return outbound, inbound
	}

	for _, r := range records {
		switch r.DepartureDate() {
		case pair.Departure:
			outbound = append(outbound, r)
		case pair.Return:
			inbound = append(inbound, r)
		}
	}
	return outbound, inbound
}

// cheapestPerFlight picks, for every flight in first-seen order, the cheapest
// bookable adult fare: cheapest per fare type first, then across types.
func cheapestPerFlight(records []models.FareRecord) []models.FareRecord {
	var order []string
	byFlight := make(map[string][]models.FareRecord)
	for _, r := range records {
		k := r.FlightKey()
		if _, ok := byFlight[k]; !ok {
			order = append(order, k)
		}
		byFlight[k] = append(byFlight[k], r)
	}

	out := make([]models.FareRecord, 0, len(order))
	for _, k := range order {
		if best, ok := cheapestEligible(byFlight[k]); ok {
			out = append(out, best)
		}
	}
	return out
}

func cheapestEligible(fares []models.FareRecord) (models.FareRecord, bool) {
	var types []string
	byType := make(map[string]models.FareRecord)
	for _, f := range fares {
		if !f.IsAdult() || f.Availability <= 0 {
			continue
		}
		cur, ok := byType[f.FareType]
		if !ok {
			types = append(types, f.FareType)
			byType[f.FareType] = f
			continue
		}
		if f.PriceAfterTax.LessThan(cur.PriceAfterTax) {
			byType[f.FareType] = f
		}
	}
	if len(types) == 0 {
		return models.FareRecord{}, false
	}

	best := byType[types[0]]
	for _, t := range types[1:] {
		if byType[t].PriceAfterTax.LessThan(best.PriceAfterTax) {
			best = byType[t]
		}
	}
	return best, true
}
