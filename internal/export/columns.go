// Package export renders filtered conversation sets as downloadable artifacts.
package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/homefront-realty/admin-backoffice/internal/model"
)

// Missing is written for absent text fields. Absent numbers are written as 0.
const Missing = "N/A"

// Column is one field of the export schema. Value returns a string or a float64.
type Column struct {
	Header string
	Width  float64
	Value  func(c *model.Conversation) any
}

// Columns is the fixed export schema in output order.
var Columns = []Column{
	{"Customer Name", 30, func(c *model.Conversation) any { return text(c.CustomerName) }},
	{"Phone", 22, func(c *model.Conversation) any { return text(c.CustomerPhone) }},
	{"Email", 30, func(c *model.Conversation) any { return text(c.CustomerEmail) }},
	{"Status", 16, func(c *model.Conversation) any { return text(string(c.Status)) }},
	{"Lead Quality", 14, func(c *model.Conversation) any { return text(string(c.LeadQuality)) }},
	{"Lead Score", 11, func(c *model.Conversation) any { return float64(c.LeadScore) }},
	{"Intent", 14, func(c *model.Conversation) any { return text(c.Intent) }},
	{"Budget", 16, func(c *model.Conversation) any { return text(c.Budget) }},
	{"Property Type", 16, func(c *model.Conversation) any { return text(c.PropertyType) }},
	{"Preferred Area", 20, func(c *model.Conversation) any { return text(c.PreferredArea) }},
	{"Agent", 20, func(c *model.Conversation) any { return text(agentName(c)) }},
	{"Start Time", 20, func(c *model.Conversation) any { return timeText(&c.StartTime) }},
	{"Duration (min)", 14, func(c *model.Conversation) any { return float64(c.DurationMinutes) }},
	{"Follow-up Date", 20, func(c *model.Conversation) any { return timeText(c.FollowUpDate) }},
	{"Tags", 24, func(c *model.Conversation) any { return text(strings.Join(c.Tags, ", ")) }},
	{"Notes", 40, func(c *model.Conversation) any { return text(c.Notes) }},
	{"Last Message", 40, func(c *model.Conversation) any { return text(c.LastMessage) }},
	{"Outcome", 16, func(c *model.Conversation) any { return text(c.Outcome) }},
	{"Conversion Value", 16, func(c *model.Conversation) any { return c.ConversionValue }},
}

// Headers returns the column headers.
func Headers() []string {
	out := make([]string, len(Columns))
	for i, col := range Columns {
		out[i] = col.Header
	}
	return out
}

// Record returns the row for c with every value formatted as text.
func Record(c *model.Conversation) []string {
	out := make([]string, len(Columns))
	for i, col := range Columns {
		out[i] = format(col.Value(c))
	}
	return out
}

func format(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return Missing
}

func text(s string) any {
	if strings.TrimSpace(s) == "" {
		return Missing
	}
	return s
}

func agentName(c *model.Conversation) string {
	if c.Agent != nil && c.Agent.Name != "" {
		return c.Agent.Name
	}
	return c.AssignedAgentID
}

func timeText(t *time.Time) any {
	if t == nil || t.IsZero() {
		return Missing
	}
	return t.UTC().Format("2006-01-02 15:04")
}
