package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/realtime"
	"github.com/homefront-realty/admin-backoffice/internal/store"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
)

// FollowUpService schedules follow-up tasks. It needs the optional follow_up_tasks
// table; without it scheduling fails and listing is empty.
type FollowUpService struct {
	repo      store.Repository
	publisher *realtime.Publisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewFollowUpService creates a new follow-up service.
func NewFollowUpService(repo store.Repository, publisher *realtime.Publisher, log *logger.Logger) *FollowUpService {
	return &FollowUpService{repo: repo, publisher: publisher, logger: log, now: time.Now}
}

// List returns the tasks of a conversation with overdue status resolved.
func (s *FollowUpService) List(ctx context.Context, conversationID string) ([]model.FollowUpTask, error) {
	if !s.repo.Capabilities().FollowUpTasks {
		return []model.FollowUpTask{}, nil
	}

	tasks, err := s.repo.ListFollowUps(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-ups: %w", err)
	}
	now := s.now()
	for i := range tasks {
		tasks[i].Status = tasks[i].EffectiveStatus(now)
	}
	return tasks, nil
}

// Schedule creates a follow-up task and moves the conversation's follow-up date
// forward when the new task is earlier.
func (s *FollowUpService) Schedule(ctx context.Context, conversationID string, req *model.CreateFollowUpRequest) (*model.FollowUpTask, error) {
	if !s.repo.Capabilities().FollowUpTasks {
		return nil, fmt.Errorf("follow-up scheduling: %w", store.ErrFeatureUnavailable)
	}
	if req.ScheduledFor.IsZero() {
		return nil, fmt.Errorf("%w: scheduledFor is required", ErrInvalidInput)
	}

	channel := model.FollowUpChannel(strings.ToLower(string(req.Channel)))
	switch channel {
	case "":
		channel = model.ChannelEmail
	case model.ChannelEmail, model.ChannelSMS, model.ChannelWhatsApp:
	default:
		return nil, fmt.Errorf("%w: unknown channel %q", ErrInvalidInput, req.Channel)
	}

	priority := model.Priority(strings.ToLower(string(req.Priority)))
	switch priority {
	case "":
		priority = model.PriorityMedium
	case model.PriorityHigh, model.PriorityMedium, model.PriorityLow:
	default:
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, req.Priority)
	}

	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	agent := req.AssignedAgentID
	if agent == "" {
		agent = conv.AssignedAgentID
	}

	task := &model.FollowUpTask{
		ID:              uuid.NewString(),
		ConversationID:  conversationID,
		ScheduledFor:    req.ScheduledFor.UTC(),
		Channel:         channel,
		Priority:        priority,
		AssignedAgentID: agent,
		Status:          model.FollowUpScheduled,
		Notes:           req.Notes,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.repo.CreateFollowUp(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create follow-up: %w", err)
	}

	s.logger.Info("follow-up scheduled",
		zap.String("conversation_id", conversationID),
		zap.String("task_id", task.ID),
		zap.Time("scheduled_for", task.ScheduledFor),
	)

	if conv.FollowUpDate == nil || task.ScheduledFor.Before(*conv.FollowUpDate) {
		updated, err := s.repo.UpdateConversation(ctx, conversationID, model.ConversationPatch{FollowUpDate: &task.ScheduledFor})
		if err != nil {
			s.logger.Warn("failed to move conversation follow-up date", zap.String("conversation_id", conversationID), zap.Error(err))
		} else {
			s.publisher.ConversationUpdated(updated)
		}
	}

	return task, nil
}
