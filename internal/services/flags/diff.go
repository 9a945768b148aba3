// Package flags compares feature-flag snapshots and grades the changes.
package flags

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"FarePull/internal/domain/models"
)

// DefaultKeywords mark flag keys that usually precede a pricing change.
var DefaultKeywords = []string{
	"price", "promo", "discount", "usd", "uba", "club", "loyalty", "sale",
	"offer", "flash", "carnival", "carnaval", "commission", "fare", "payment",
	"currency", "special",
}

// DetectChanges lists NEW keys, then CHANGED, then REMOVED, each group sorted by key.
// Values are compared by their canonical JSON form, so a snapshot that went
// through storage compares equal to the live one it came from.
func DetectChanges(prev, curr models.FlagSnapshot) []models.FlagChange {
	var added, changed, removed []models.FlagChange

	for _, k := range sortedKeys(curr) {
		old, ok := prev[k]
		switch {
		case !ok:
			added = append(added, models.FlagChange{Type: models.FlagNew, Key: k, NewValue: curr[k]})
		case valueString(old) != valueString(curr[k]):
			changed = append(changed, models.FlagChange{Type: models.FlagChanged, Key: k, OldValue: old, NewValue: curr[k]})
		}
	}
	for _, k := range sortedKeys(prev) {
		if _, ok := curr[k]; !ok {
			removed = append(removed, models.FlagChange{Type: models.FlagRemoved, Key: k, OldValue: prev[k]})
		}
	}

	out := make([]models.FlagChange, 0, len(added)+len(changed)+len(removed))
	out = append(out, added...)
	out = append(out, changed...)
	return append(out, removed...)
}

// Grader decides which changes are critical.
type Grader struct {
	keywords []string
}

func NewGrader(keywords []string) *Grader {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	kw := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kw = append(kw, k)
		}
	}
	return &Grader{keywords: kw}
}

func (g *Grader) IsCritical(c models.FlagChange) bool {
	key := strings.ToLower(c.Key)
	for _, kw := range g.keywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

// Mark sets Critical on every change and returns how many are critical.
func (g *Grader) Mark(changes []models.FlagChange) int {
	n := 0
	for i := range changes {
		changes[i].Critical = g.IsCritical(changes[i])
		if changes[i].Critical {
			n++
		}
	}
	return n
}

// IsCritical grades with the default keyword list.
func IsCritical(c models.FlagChange) bool {
	return defaultGrader.IsCritical(c)
}

var defaultGrader = NewGrader(nil)

func sortedKeys(s models.FlagSnapshot) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func valueString(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
