package model

import (
	"time"
)

// Sender identifies who wrote a chat message.
type Sender string

const (
	SenderBot      Sender = "bot"
	SenderCustomer Sender = "customer"
	SenderAgent    Sender = "agent"
)

// MessageType is the rendering type of a chat message.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageButton MessageType = "button"
	MessageImage  MessageType = "image"
	MessageForm   MessageType = "form"
	MessageSystem MessageType = "system"
)

// ChatMessage is a single message owned by exactly one conversation.
type ChatMessage struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversationId"`
	Sender         Sender         `json:"sender"`
	Text           string         `json:"text"`
	Type           MessageType    `json:"type"`
	Timestamp      time.Time      `json:"timestamp"`
	Read           bool           `json:"read"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}
