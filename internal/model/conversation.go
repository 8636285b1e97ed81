// Package model defines data structures for the admin back office.
package model

import (
	"time"
)

// Status is the lifecycle status of a conversation.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusLost       Status = "lost"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusCompleted, StatusLost:
		return true
	}
	return false
}

// LeadQuality is the admin-facing lead temperature.
type LeadQuality string

const (
	LeadHot  LeadQuality = "hot"
	LeadWarm LeadQuality = "warm"
	LeadCold LeadQuality = "cold"
)

// Valid reports whether q is a known lead quality.
func (q LeadQuality) Valid() bool {
	switch q {
	case LeadHot, LeadWarm, LeadCold:
		return true
	}
	return false
}

// Conversation represents one customer/chatbot interaction and the lead it produced.
//
// LeadQuality and LeadScore are independent fields. The scoring process that sets them
// lives outside this service and nothing here derives one from the other.
type Conversation struct {
	// Identity
	ID         string `json:"id"`
	CustomerID string `json:"customerId"`

	// Contact
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
	CustomerEmail string `json:"customerEmail"`

	// Timing
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	DurationMinutes int        `json:"durationMinutes"`

	// Lead
	Status      Status      `json:"status"`
	LeadQuality LeadQuality `json:"leadQuality"`
	LeadScore   int         `json:"leadScore"`

	// Classification
	Intent        string `json:"intent"`
	PropertyType  string `json:"propertyType"`
	PreferredArea string `json:"preferredArea"`
	Budget        string `json:"budget"`

	// Assignment
	AssignedAgentID string `json:"assignedAgentId"`
	Agent           *Agent `json:"agent,omitempty"`

	Tags         []string      `json:"tags"`
	Notes        string        `json:"notes"`
	FollowUpDate *time.Time    `json:"followUpDate,omitempty"`
	Messages     []ChatMessage `json:"messages,omitempty"`
	LastMessage  string        `json:"lastMessage"`

	Outcome         string  `json:"outcome"`
	ConversionValue float64 `json:"conversionValue"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasTag reports whether the conversation carries tag.
func (c *Conversation) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ConversationPatch is a partial admin update. Nil fields are left unchanged.
type ConversationPatch struct {
	Status          *Status      `json:"status,omitempty"`
	LeadQuality     *LeadQuality `json:"leadQuality,omitempty"`
	LeadScore       *int         `json:"leadScore,omitempty"`
	AssignedAgentID *string      `json:"assignedAgentId,omitempty"`
	Notes           *string      `json:"notes,omitempty"`
	Tags            []string     `json:"tags,omitempty"`
	FollowUpDate    *time.Time   `json:"followUpDate,omitempty"`
	Outcome         *string      `json:"outcome,omitempty"`
	ConversionValue *float64     `json:"conversionValue,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p *ConversationPatch) Empty() bool {
	return p.Status == nil && p.LeadQuality == nil && p.LeadScore == nil &&
		p.AssignedAgentID == nil && p.Notes == nil && p.Tags == nil &&
		p.FollowUpDate == nil && p.Outcome == nil && p.ConversionValue == nil
}

// Apply writes the patch onto c.
func (p *ConversationPatch) Apply(c *Conversation) {
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.LeadQuality != nil {
		c.LeadQuality = *p.LeadQuality
	}
	if p.LeadScore != nil {
		c.LeadScore = *p.LeadScore
	}
	if p.AssignedAgentID != nil {
		c.AssignedAgentID = *p.AssignedAgentID
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
	if p.Tags != nil {
		c.Tags = append([]string(nil), p.Tags...)
	}
	if p.FollowUpDate != nil {
		t := *p.FollowUpDate
		c.FollowUpDate = &t
	}
	if p.Outcome != nil {
		c.Outcome = *p.Outcome
	}
	if p.ConversionValue != nil {
		c.ConversionValue = *p.ConversionValue
	}
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Data  []Conversation `json:"data"`
	Total int            `json:"total"`
}
