package fares

import (
	"strings"

	"FarePull/internal/domain/models"
)

// Default rank tables, lower rank = cheaper tariff.
var (
	DefaultTypeRanks = map[string]int{
		"economy":  1,
		"light":    1,
		"basic":    1,
		"promo":    2,
		"standard": 3,
		"plus":     4,
		"classic":  4,
		"flex":     5,
		"premium":  6,
		"business": 7,
		"first":    8,
	}

	DefaultClassRanks = map[string]int{
		"B": 1,
		"M": 2,
		"Y": 3,
		"W": 4,
		"J": 5,
		"C": 6,
		"F": 7,
	}
)

// Hierarchy ranks fares by type label and class code. Upstream data sometimes
// carries only one of the two, so the effective rank is the max of both lookups.
type Hierarchy struct {
	byType  map[string]int
	byClass map[string]int
}

// NewHierarchy copies the given tables. Nil tables fall back to the defaults.
func NewHierarchy(typeRanks, classRanks map[string]int) *Hierarchy {
	if typeRanks == nil {
		typeRanks = DefaultTypeRanks
	}
	if classRanks == nil {
		classRanks = DefaultClassRanks
	}
	h := &Hierarchy{
		byType:  make(map[string]int, len(typeRanks)),
		byClass: make(map[string]int, len(classRanks)),
	}
	for k, v := range typeRanks {
		h.byType[strings.ToLower(k)] = v
	}
	for k, v := range classRanks {
		h.byClass[strings.ToUpper(k)] = v
	}
	return h
}

// DefaultHierarchy uses the built-in tables.
func DefaultHierarchy() *Hierarchy { return NewHierarchy(nil, nil) }

// With returns a copy where the given ranks replace or extend the existing ones.
func (h *Hierarchy) With(typeRanks, classRanks map[string]int) *Hierarchy {
	out := &Hierarchy{
		byType:  make(map[string]int, len(h.byType)+len(typeRanks)),
		byClass: make(map[string]int, len(h.byClass)+len(classRanks)),
	}
	for k, v := range h.byType {
		out.byType[k] = v
	}
	for k, v := range h.byClass {
		out.byClass[k] = v
	}
	for k, v := range typeRanks {
		out.byType[strings.ToLower(strings.TrimSpace(k))] = v
	}
	for k, v := range classRanks {
		out.byClass[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return out
}

// Rank returns the effective rank, 0 when neither table knows the fare.
func (h *Hierarchy) Rank(f models.FareRecord) int {
	typeRank := h.byType[strings.ToLower(strings.TrimSpace(f.FareType))]
	classRank := h.byClass[strings.ToUpper(strings.TrimSpace(f.FareClass))]
	if typeRank > classRank {
		return typeRank
	}
	return classRank
}

func (h *Hierarchy) ref(f models.FareRecord) models.FareRef {
	return models.FareRef{
		FareType:     strings.ToLower(f.FareType),
		FareClass:    f.FareClass,
		Rank:         h.Rank(f),
		Price:        f.PriceAfterTax,
		Availability: f.Availability,
		FareRef:      f.FareRef,
	}
}
