package repository

import (
	"context"
	"time"

	"FarePull/internal/domain/models"
)

// FareFetcher retrieves raw fares for one date pair from the pricing source.
type FareFetcher interface {
	FetchFares(ctx context.Context, q models.FareQuery) (*models.FareBatch, error)
}

// Notifier pushes a message to the alert channel. Returns false on delivery failure.
type Notifier interface {
	Notify(ctx context.Context, text string, silent bool) bool
}

// HistoryStore is the append-only temporal state store.
type HistoryStore interface {
	Append(ctx context.Context, entry models.HistoryEntry) error
	AppendBatch(ctx context.Context, entries []models.HistoryEntry) error
	RecentEntries(ctx context.Context, stream models.Stream, key string, since time.Time) ([]models.HistoryEntry, error)
	Load(ctx context.Context, stream models.Stream, key string) ([]models.HistoryEntry, error)
	Latest(ctx context.Context, stream models.Stream, key string) (*models.HistoryEntry, error)
	Trim(ctx context.Context, stream models.Stream, maxEntries int) error
	Close() error
}

// ItineraryStore persists round-trip combos.
type ItineraryStore interface {
	SaveItineraries(ctx context.Context, combos []models.RoundTripCombo) error
	Recent(ctx context.Context, limit int) ([]models.RoundTripCombo, error)
	Health(ctx context.Context) error
	Close() error
}

// EventPublisher emits engine events to downstream consumers.
type EventPublisher interface {
	PublishAnomalies(ctx context.Context, anomalies []models.Anomaly) error
	PublishCombos(ctx context.Context, combos []models.RoundTripCombo) error
	PublishSummary(ctx context.Context, s models.CycleSummary) error
	Close() error
}

// FlagSource returns the current flattened feature-flag state of the source.
type FlagSource interface {
	Snapshot(ctx context.Context) (models.FlagSnapshot, error)
}

type Metrics interface {
	RecordCycle(stream string, d time.Duration)
	RecordPair(result string)
	RecordAnomaly(kind, severity string)
	RecordAlert(result string)
	RecordError(kind string)
	RecordBestTotal(route string, total float64)
	RecordLatency(op string, seconds float64)
}
