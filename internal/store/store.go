// Package store provides direct database access to conversations, messages, follow-up
// tasks and summaries.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/query"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrFeatureUnavailable is returned when an optional table or function is missing.
	ErrFeatureUnavailable = errors.New("feature unavailable")
)

// Capabilities records which optional schema features exist. They are resolved once
// when the repository is opened.
type Capabilities struct {
	FollowUpTasks         bool `json:"followUpTasks"`
	ConversationSummaries bool `json:"conversationSummaries"`
	AnalyticsRPC          bool `json:"analyticsRpc"`
}

// Repository is the direct-database data source.
type Repository interface {
	ListConversations(ctx context.Context, plan query.Plan, limit, offset int) ([]model.Conversation, int, error)
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	UpdateConversation(ctx context.Context, id string, patch model.ConversationPatch) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error

	ListFollowUps(ctx context.Context, conversationID string) ([]model.FollowUpTask, error)
	CreateFollowUp(ctx context.Context, task *model.FollowUpTask) error

	GetSummary(ctx context.Context, conversationID string) (*model.Summary, error)
	SaveSummary(ctx context.Context, summary *model.Summary) error

	Analytics(ctx context.Context, from, to time.Time) (model.AnalyticsSnapshot, error)

	Capabilities() Capabilities
	Ping(ctx context.Context) error
}
