package models

// FlagSnapshot is a flattened view of the feature flags published by the source.
type FlagSnapshot map[string]any

type FlagChangeType string

const (
	FlagNew     FlagChangeType = "NEW"
	FlagChanged FlagChangeType = "CHANGED"
	FlagRemoved FlagChangeType = "REMOVED"
)

type FlagChange struct {
	Type     FlagChangeType `json:"type"`
	Key      string         `json:"key"`
	OldValue any            `json:"old_value"`
	NewValue any            `json:"new_value"`
	Critical bool           `json:"critical"`
}
