package model

import (
	"time"
)

// FollowUpChannel is how a follow-up reaches the customer.
type FollowUpChannel string

const (
	ChannelEmail    FollowUpChannel = "email"
	ChannelSMS      FollowUpChannel = "sms"
	ChannelWhatsApp FollowUpChannel = "whatsapp"
)

// Priority of a follow-up task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// FollowUpStatus is the stored status of a follow-up task.
type FollowUpStatus string

const (
	FollowUpScheduled FollowUpStatus = "scheduled"
	FollowUpCompleted FollowUpStatus = "completed"
	FollowUpOverdue   FollowUpStatus = "overdue"
)

// FollowUpTask is a scheduled reminder attached to one conversation.
type FollowUpTask struct {
	ID              string          `json:"id"`
	ConversationID  string          `json:"conversationId"`
	ScheduledFor    time.Time       `json:"scheduledFor"`
	Channel         FollowUpChannel `json:"channel"`
	Priority        Priority        `json:"priority"`
	AssignedAgentID string          `json:"assignedAgentId"`
	Status          FollowUpStatus  `json:"status"`
	Notes           string          `json:"notes"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// EffectiveStatus returns the status as of now. A scheduled task whose time has
// passed is overdue even if that was never written back.
func (t *FollowUpTask) EffectiveStatus(now time.Time) FollowUpStatus {
	if t.Status == FollowUpScheduled && now.After(t.ScheduledFor) {
		return FollowUpOverdue
	}
	return t.Status
}

// CreateFollowUpRequest is the request to schedule a follow-up.
type CreateFollowUpRequest struct {
	ScheduledFor    time.Time       `json:"scheduledFor"`
	Channel         FollowUpChannel `json:"channel"`
	Priority        Priority        `json:"priority"`
	AssignedAgentID string          `json:"assignedAgentId"`
	Notes           string          `json:"notes"`
}
