package model

import (
	"time"
)

// TrendPoint is one day of the conversation trend series.
type TrendPoint struct {
	Date          string `json:"date"`
	Conversations int    `json:"conversations"`
	Leads         int    `json:"leads"`
	Conversions   int    `json:"conversions"`
}

// Bucket is one slice of a distribution chart.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// FunnelStage is one step of the conversion funnel.
type FunnelStage struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

// AnalyticsSnapshot is a precomputed aggregate for a date range. It is a read-only DTO.
type AnalyticsSnapshot struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	TotalConversations int     `json:"totalConversations"`
	HotLeads           int     `json:"hotLeads"`
	WarmLeads          int     `json:"warmLeads"`
	ColdLeads          int     `json:"coldLeads"`
	Converted          int     `json:"converted"`
	ConversionRate     float64 `json:"conversionRate"`
	AverageLeadScore   float64 `json:"averageLeadScore"`
	AverageDuration    float64 `json:"averageDurationMinutes"`

	Trend                    []TrendPoint  `json:"trend"`
	StatusDistribution       []Bucket      `json:"statusDistribution"`
	IntentDistribution       []Bucket      `json:"intentDistribution"`
	PropertyTypeDistribution []Bucket      `json:"propertyTypeDistribution"`
	Funnel                   []FunnelStage `json:"funnel"`
}
