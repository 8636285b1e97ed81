// Package service provides business logic for the admin back office.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/query"
	"github.com/homefront-realty/admin-backoffice/internal/realtime"
	"github.com/homefront-realty/admin-backoffice/internal/store"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
	"github.com/homefront-realty/admin-backoffice/pkg/metrics"
)

// ErrInvalidInput is returned for requests that fail validation.
var ErrInvalidInput = errors.New("invalid input")

// ConversationDetail is a conversation with its messages and, when stored, its summary.
type ConversationDetail struct {
	model.Conversation
	Summary *model.Summary `json:"summary,omitempty"`
}

// Invalidator drops data derived from conversations after a write.
// *analytics.Aggregator implements it.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// ConversationService handles conversation operations.
type ConversationService struct {
	repo        store.Repository
	publisher   *realtime.Publisher
	invalidator Invalidator
	logger      *logger.Logger
	now         func() time.Time
}

// NewConversationService creates a new conversation service. publisher may be nil.
func NewConversationService(repo store.Repository, publisher *realtime.Publisher, log *logger.Logger) *ConversationService {
	return &ConversationService{
		repo:      repo,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

// InvalidateOnWrite registers inv to run after every successful write.
func (s *ConversationService) InvalidateOnWrite(inv Invalidator) {
	s.invalidator = inv
}

func (s *ConversationService) invalidate(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
}

// List returns one page of the filtered, sorted conversation set.
func (s *ConversationService) List(ctx context.Context, f model.SearchFilters, page, limit int) (*model.ListConversationsResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = query.DefaultPageSize
	}
	if limit > query.MaxPageSize {
		limit = query.MaxPageSize
	}

	data, total, err := s.repo.ListConversations(ctx, query.Build(f), limit, query.Offset(page, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	if data == nil {
		data = []model.Conversation{}
	}

	return &model.ListConversationsResponse{Data: data, Total: total}, nil
}

// Search lists conversations matching text across the searchable columns, narrowed
// by the remaining filters.
func (s *ConversationService) Search(ctx context.Context, text string, f model.SearchFilters, page, limit int) (*model.ListConversationsResponse, error) {
	f.Query = text
	return s.List(ctx, f, page, limit)
}

// Get retrieves a conversation with its messages.
func (s *ConversationService) Get(ctx context.Context, id string) (*ConversationDetail, error) {
	conv, err := s.repo.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &ConversationDetail{Conversation: *conv}
	if s.repo.Capabilities().ConversationSummaries {
		summary, err := s.repo.GetSummary(ctx, id)
		if err != nil {
			s.logger.Warn("failed to load conversation summary", zap.String("conversation_id", id), zap.Error(err))
		}
		detail.Summary = summary
	}
	return detail, nil
}

// Update applies an admin edit and publishes the change.
func (s *ConversationService) Update(ctx context.Context, id string, patch model.ConversationPatch) (*model.Conversation, error) {
	if err := validatePatch(&patch); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}

	before, err := s.repo.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	conv, err := s.repo.UpdateConversation(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.logger.Info("conversation updated", zap.String("conversation_id", id))
	s.invalidate(ctx)
	s.publisher.ConversationUpdated(conv)
	if before.LeadQuality != model.LeadHot && conv.LeadQuality == model.LeadHot {
		s.publisher.Alert(s.hotLeadAlert(conv))
	}
	return conv, nil
}

// Delete removes a conversation and its dependent rows.
func (s *ConversationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteConversation(ctx, id); err != nil {
		return err
	}
	s.logger.Info("conversation deleted", zap.String("conversation_id", id))
	s.invalidate(ctx)
	return nil
}

// BulkResult reports how far a bulk operation got.
type BulkResult struct {
	Applied int `json:"applied"`
}

// BulkUpdate applies patch to each id in order. When note is non-empty it is appended
// to each row's notes under a timestamped header. The first failure stops the run;
// rows already updated stay updated.
func (s *ConversationService) BulkUpdate(ctx context.Context, ids []string, patch model.ConversationPatch, note string) (BulkResult, error) {
	var res BulkResult
	defer s.invalidateAfterBulk(ctx, &res)
	if err := validatePatch(&patch); err != nil {
		return res, err
	}
	if patch.Empty() && note == "" {
		return res, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}

	header := BulkNoteHeader(s.now())
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		rowPatch := patch
		if note != "" {
			conv, err := s.repo.GetConversation(ctx, id)
			if err != nil {
				return res, s.bulkFailed("update", id, res, err)
			}
			notes := AppendBulkNote(conv.Notes, header, note)
			rowPatch.Notes = &notes
		}

		conv, err := s.repo.UpdateConversation(ctx, id, rowPatch)
		if err != nil {
			return res, s.bulkFailed("update", id, res, err)
		}
		res.Applied++
		metrics.BulkOperations.WithLabelValues("update", "success").Inc()
		s.publisher.ConversationUpdated(conv)
	}

	s.logger.Info("bulk update complete", zap.Int("rows", res.Applied))
	return res, nil
}

// BulkDelete deletes each id in order with the same failure semantics as BulkUpdate.
func (s *ConversationService) BulkDelete(ctx context.Context, ids []string) (BulkResult, error) {
	var res BulkResult
	defer s.invalidateAfterBulk(ctx, &res)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := s.repo.DeleteConversation(ctx, id); err != nil {
			return res, s.bulkFailed("delete", id, res, err)
		}
		res.Applied++
		metrics.BulkOperations.WithLabelValues("delete", "success").Inc()
	}

	s.logger.Info("bulk delete complete", zap.Int("rows", res.Applied))
	return res, nil
}

// invalidateAfterBulk runs once per bulk run that changed at least one row, even when
// the run stopped early or ctx was canceled.
func (s *ConversationService) invalidateAfterBulk(ctx context.Context, res *BulkResult) {
	if res.Applied > 0 {
		s.invalidate(context.WithoutCancel(ctx))
	}
}

func (s *ConversationService) bulkFailed(op, id string, res BulkResult, err error) error {
	metrics.BulkOperations.WithLabelValues(op, "error").Inc()
	s.logger.Error("bulk operation aborted",
		zap.String("operation", op),
		zap.String("conversation_id", id),
		zap.Int("applied", res.Applied),
		zap.Error(err),
	)
	return fmt.Errorf("bulk %s stopped at %s after %d rows: %w", op, id, res.Applied, err)
}

func (s *ConversationService) hotLeadAlert(c *model.Conversation) model.NotificationItem {
	name := c.CustomerName
	if name == "" {
		name = "A customer"
	}
	return model.NotificationItem{
		ID:             uuid.NewString(),
		Type:           "hot_lead",
		Title:          "New hot lead",
		Message:        fmt.Sprintf("%s is now a hot lead (score %d)", name, c.LeadScore),
		ConversationID: c.ID,
		Priority:       model.PriorityHigh,
		CreatedAt:      s.now().UTC(),
	}
}

// BulkNoteHeader returns the header line written above a bulk note.
func BulkNoteHeader(t time.Time) string {
	return "[Bulk Update " + t.UTC().Format(time.RFC3339) + "]"
}

// AppendBulkNote appends note under header to existing notes.
func AppendBulkNote(existing, header, note string) string {
	if existing == "" {
		return header + "\n" + note
	}
	return existing + "\n\n" + header + "\n" + note
}

func validatePatch(p *model.ConversationPatch) error {
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *p.Status)
	}
	if p.LeadQuality != nil && !p.LeadQuality.Valid() {
		return fmt.Errorf("%w: unknown lead quality %q", ErrInvalidInput, *p.LeadQuality)
	}
	if p.LeadScore != nil && (*p.LeadScore < 0 || *p.LeadScore > 100) {
		return fmt.Errorf("%w: lead score must be within 0-100", ErrInvalidInput)
	}
	if p.ConversionValue != nil && *p.ConversionValue < 0 {
		return fmt.Errorf("%w: conversion value must not be negative", ErrInvalidInput)
	}
	return nil
}
