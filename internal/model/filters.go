package model

import (
	"time"
)

// SortKey selects the ordering of a conversation list.
type SortKey string

const (
	SortRecent     SortKey = "recent"
	SortHot        SortKey = "hot"
	SortWarm       SortKey = "warm"
	SortCold       SortKey = "cold"
	SortOldest     SortKey = "oldest"
	SortBudgetHigh SortKey = "budget-high"
	SortBudgetLow  SortKey = "budget-low"
	SortFollowUp   SortKey = "follow-up"
)

// Normalize maps unknown or empty keys to SortRecent.
func (k SortKey) Normalize() SortKey {
	switch k {
	case SortRecent, SortHot, SortWarm, SortCold, SortOldest, SortBudgetHigh, SortBudgetLow, SortFollowUp:
		return k
	}
	return SortRecent
}

// DateRange is an inclusive creation-time window. Zero bounds are open.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// SearchFilters fully determines a conversation list view. It is never persisted.
type SearchFilters struct {
	Query       string        `json:"query,omitempty"`
	Status      []Status      `json:"status,omitempty"`
	LeadQuality []LeadQuality `json:"leadQuality,omitempty"`
	Intent      []string      `json:"intent,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
	ScoreRange  *[2]int       `json:"scoreRange,omitempty"`
	DateRange   *DateRange    `json:"dateRange,omitempty"`
	Sort        SortKey       `json:"sort,omitempty"`
}
