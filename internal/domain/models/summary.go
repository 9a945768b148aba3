package models

import "time"

// CycleSummary is produced for every polling cycle, even one where every pair failed.
type CycleSummary struct {
	ID                  string          `json:"id"`
	StartedAt           time.Time       `json:"started_at"`
	Duration            time.Duration   `json:"duration"`
	PairsAttempted      int             `json:"pairs_attempted"`
	PairsSucceeded      int             `json:"pairs_succeeded"`
	PairsFailed         int             `json:"pairs_failed"`
	ParseWarnings       int             `json:"parse_warnings"`
	Combos              int             `json:"combos"`
	AnomaliesFound      int             `json:"anomalies_found"`
	AnomaliesSuppressed int             `json:"anomalies_suppressed"`
	ScarewareWarnings   int             `json:"scareware_warnings"`
	AlertsSent          int             `json:"alerts_sent"`
	Best                *RoundTripCombo `json:"best,omitempty"`
	BestTier            PriceTier       `json:"best_tier,omitempty"`
	Canceled            bool            `json:"canceled"`
}

// FlagCheckSummary is the result of one feature-flag check.
type FlagCheckSummary struct {
	StartedAt  time.Time    `json:"started_at"`
	Baseline   bool         `json:"baseline"`
	TotalFlags int          `json:"total_flags"`
	Changes    []FlagChange `json:"changes"`
	Critical   int          `json:"critical"`
	AlertSent  bool         `json:"alert_sent"`
}
