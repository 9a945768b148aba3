package service

import (
	"FarePull/internal/domain/models"
)

// ItineraryCombiner builds round-trip candidates from the fares of one date pair.
type ItineraryCombiner interface {
	Combine(pair models.DatePair, records []models.FareRecord, passengers int) []models.RoundTripCombo
}

// AnomalyDetector runs the pricing rules over every flight in a fetch result.
type AnomalyDetector interface {
	DetectAll(pair models.DatePair, records []models.FareRecord, passengers int) []models.Anomaly
}
