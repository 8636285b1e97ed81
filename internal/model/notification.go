package model

import (
	"time"
)

// NotificationItem is an ephemeral admin alert pushed over the broadcast channel.
type NotificationItem struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	ConversationID string    `json:"conversationId,omitempty"`
	Priority       Priority  `json:"priority,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	Dismissed      bool      `json:"dismissed"`
}

// Summary is an LLM-written digest of a conversation.
type Summary struct {
	ConversationID string    `json:"conversationId"`
	Text           string    `json:"text"`
	Model          string    `json:"model"`
	CreatedAt      time.Time `json:"createdAt"`
}
