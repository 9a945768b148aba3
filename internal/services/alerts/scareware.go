package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FarePull/internal/domain/models"
	drepo "FarePull/internal/domain/repository"
	"FarePull/pkg/logger"
)

const (
	DefaultLowSeats   = 5
	DefaultMinSamples = 3
	DefaultMinAge     = 72 * time.Hour
)

// ScarewareWarning flags a "last seats" claim that has not moved in days.
type ScarewareWarning struct {
	FlightNumber string           `json:"flight_no"`
	Direction    models.Direction `json:"direction"`
	Pair         models.DatePair  `json:"pair"`
	Availability int              `json:"availability"`
	LowSince     time.Time        `json:"low_since"`
	Days         int              `json:"days"`
	Samples      int              `json:"samples"`
}

func (w ScarewareWarning) String() string {
	return fmt.Sprintf("flight %s (%s) %s claims %d seats left for %d days",
		w.FlightNumber, w.Direction, w.Pair.Label(), w.Availability, w.Days)
}

// ScarewareTracker keeps per-flight availability history and spots stale scarcity claims.
type ScarewareTracker struct {
	store      drepo.HistoryStore
	log        *logger.Logger
	now        func() time.Time
	lowSeats   int
	minSamples int
	minAge     time.Duration
}

type ScarewareOption func(*ScarewareTracker)

func WithScarewareClock(now func() time.Time) ScarewareOption {
	return func(s *ScarewareTracker) {
		if now != nil {
			s.now = now
		}
	}
}

// WithScarewareRule overrides the low-seat threshold, sample count and minimum age.
func WithScarewareRule(lowSeats, minSamples int, minAge time.Duration) ScarewareOption {
	return func(s *ScarewareTracker) {
		if lowSeats > 0 {
			s.lowSeats = lowSeats
		}
		if minSamples > 0 {
			s.minSamples = minSamples
		}
		if minAge > 0 {
			s.minAge = minAge
		}
	}
}

func NewScarewareTracker(store drepo.HistoryStore, log *logger.Logger, opts ...ScarewareOption) *ScarewareTracker {
	s := &ScarewareTracker{
		store:      store,
		log:        log,
		now:        time.Now,
		lowSeats:   DefaultLowSeats,
		minSamples: DefaultMinSamples,
		minAge:     DefaultMinAge,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AvailabilityKey identifies one flight on one date pair.
func AvailabilityKey(flightNumber string, pair models.DatePair) string {
	return flightNumber + "_" + pair.Departure + "_" + pair.Return
}

// Track records both legs of the combo and returns a warning per leg that looks fake.
func (s *ScarewareTracker) Track(ctx context.Context, combo models.RoundTripCombo) []ScarewareWarning {
	var out []ScarewareWarning
	for _, leg := range []models.FareRecord{combo.Outbound, combo.Inbound} {
		if w, ok := s.TrackLeg(ctx, combo.Pair, leg); ok {
			out = append(out, w)
		}
	}
	return out
}

type availabilityPoint struct {
	at    time.Time
	avail int
}

// TrackLeg records one leg's availability under its flight and date pair.
func (s *ScarewareTracker) TrackLeg(ctx context.Context, pair models.DatePair, leg models.FareRecord) (ScarewareWarning, bool) {
	now := s.now()
	key := AvailabilityKey(leg.FlightNumber, pair)

	history, err := s.store.Load(ctx, models.StreamAvailability, key)
	if err != nil {
		s.log.Warn("availability history load failed", logger.String("key", key), logger.Error(err))
		history = nil
	}

	entry, err := models.NewHistoryEntry(models.StreamAvailability, key, now, models.AvailabilitySample{
		Availability: leg.Availability,
		Price:        leg.PriceAfterTax,
	})
	if err == nil {
		err = s.store.Append(ctx, entry)
	}
	if err != nil {
		s.log.Error("availability history append failed", logger.String("key", key), logger.Error(err))
	}

	points := make([]availabilityPoint, 0, len(history)+1)
	for _, h := range history {
		var sample models.AvailabilitySample
		if err := json.Unmarshal(h.Payload, &sample); err != nil {
			continue
		}
		points = append(points, availabilityPoint{at: h.Timestamp, avail: sample.Availability})
	}
	points = append(points, availabilityPoint{at: now, avail: leg.Availability})

	since, n, ok := s.staleLowRun(points, now)
	if !ok {
		return ScarewareWarning{}, false
	}
	return ScarewareWarning{
		FlightNumber: leg.FlightNumber,
		Direction:    leg.Direction,
		Pair:         pair,
		Availability: leg.Availability,
		LowSince:     since,
		Days:         int(now.Sub(since) / (24 * time.Hour)),
		Samples:      n,
	}, true
}

// staleLowRun looks at the trailing run of low-availability samples. It fires when
// the run is long enough and its oldest sample is old enough.
func (s *ScarewareTracker) staleLowRun(points []availabilityPoint, now time.Time) (time.Time, int, bool) {
	if len(points) < s.minSamples {
		return time.Time{}, 0, false
	}
	start := len(points)
	for start > 0 && points[start-1].avail <= s.lowSeats {
		start--
	}
	run := points[start:]
	if len(run) < s.minSamples {
		return time.Time{}, 0, false
	}
	if now.Sub(run[0].at) < s.minAge {
		return time.Time{}, 0, false
	}
	return run[0].at, len(run), true
}
