// Package analytics serves precomputed analytics snapshots with defaults for every
// field a chart reads.
package analytics

import (
	"github.com/homefront-realty/admin-backoffice/internal/model"
)

// Funnel stage names.
const (
	StageConversations = "Conversations"
	StageQualified     = "Qualified Leads"
	StageHot           = "Hot Leads"
	StageConverted     = "Converted"
)

// WithDefaults returns s with every collection non-nil and derived values filled in
// from totals already present. It never recomputes what the source supplied.
func WithDefaults(s model.AnalyticsSnapshot) model.AnalyticsSnapshot {
	if s.Trend == nil {
		s.Trend = []model.TrendPoint{}
	}
	if s.StatusDistribution == nil {
		s.StatusDistribution = []model.Bucket{}
	}
	if s.IntentDistribution == nil {
		s.IntentDistribution = []model.Bucket{}
	}
	if s.PropertyTypeDistribution == nil {
		s.PropertyTypeDistribution = []model.Bucket{}
	}

	if s.TotalConversations == 0 {
		s.TotalConversations = s.HotLeads + s.WarmLeads + s.ColdLeads
	}
	if s.ConversionRate == 0 && s.TotalConversations > 0 && s.Converted > 0 {
		s.ConversionRate = float64(s.Converted) / float64(s.TotalConversations) * 100
	}

	if len(s.Funnel) == 0 {
		s.Funnel = []model.FunnelStage{
			{Stage: StageConversations, Count: s.TotalConversations},
			{Stage: StageQualified, Count: s.HotLeads + s.WarmLeads},
			{Stage: StageHot, Count: s.HotLeads},
			{Stage: StageConverted, Count: s.Converted},
		}
	}
	return s
}
