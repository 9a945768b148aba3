package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Stream names one append-only history log.
type Stream string

const (
	StreamAvailability Stream = "availability"
	StreamAnomalies    Stream = "anomalies"
	StreamFlags        Stream = "flags"
)

// HistoryEntry is one timestamped observation under a stable key.
type HistoryEntry struct {
	Stream    Stream          `json:"stream"`
	Key       string          `json:"key"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// AvailabilitySample is the payload of the availability stream.
type AvailabilitySample struct {
	Availability int             `json:"availability"`
	Price        decimal.Decimal `json:"price"`
}

// NewHistoryEntry marshals payload into an entry.
func NewHistoryEntry(stream Stream, key string, ts time.Time, payload any) (HistoryEntry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return HistoryEntry{}, err
	}
	return HistoryEntry{Stream: stream, Key: key, Timestamp: ts, Payload: raw}, nil
}
