package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/homefront-realty/admin-backoffice/internal/llm"
	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/store"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
	"github.com/homefront-realty/admin-backoffice/pkg/metrics"
)

const summaryPrompt = `You summarize real-estate chatbot conversations for the sales team.
Write at most five short sentences covering what the customer wants (intent, property type,
area, budget), how ready they are to act, and the next step an agent should take.
Do not invent details that are not in the transcript.`

// maxTranscriptMessages bounds the prompt size for long conversations.
const maxTranscriptMessages = 80

// SummaryService writes LLM summaries of conversations.
type SummaryService struct {
	repo   store.Repository
	client llm.Client
	model  string
	logger *logger.Logger
	now    func() time.Time
}

// NewSummaryService creates a summary service. client may be nil when no provider is
// configured; Generate then reports the feature as unavailable.
func NewSummaryService(repo store.Repository, client llm.Client, modelName string, log *logger.Logger) *SummaryService {
	return &SummaryService{repo: repo, client: client, model: modelName, logger: log, now: time.Now}
}

// Generate summarizes a conversation. The summary is stored when the summaries table
// exists and returned either way.
func (s *SummaryService) Generate(ctx context.Context, conversationID string) (*model.Summary, error) {
	if s.client == nil {
		return nil, fmt.Errorf("conversation summaries: %w", store.ErrFeatureUnavailable)
	}

	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	modelName := s.model
	if modelName == "" {
		modelName = s.client.DefaultModel()
	}

	start := time.Now()
	resp, err := s.client.Complete(ctx, &llm.CompletionRequest{
		Model:       modelName,
		System:      summaryPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: Transcript(conv)}},
		MaxTokens:   400,
		Temperature: 0.2,
	})
	metrics.RecordLLMRequest(modelName, time.Since(start).Seconds(), err)
	if err != nil {
		s.logger.Error("summary generation failed",
			zap.String("conversation_id", conversationID),
			zap.String("provider", s.client.Name()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to generate summary: %w", err)
	}

	summary := &model.Summary{
		ConversationID: conversationID,
		Text:           strings.TrimSpace(resp.Content),
		Model:          resp.Model,
		CreatedAt:      s.now().UTC(),
	}
	if summary.Model == "" {
		summary.Model = modelName
	}

	if s.repo.Capabilities().ConversationSummaries {
		if err := s.repo.SaveSummary(ctx, summary); err != nil {
			return nil, fmt.Errorf("failed to save summary: %w", err)
		}
	}

	s.logger.Info("summary generated",
		zap.String("conversation_id", conversationID),
		zap.String("model", summary.Model),
		zap.Int("tokens_in", resp.TokensIn),
		zap.Int("tokens_out", resp.TokensOut),
	)
	return summary, nil
}

// Transcript renders the lead profile followed by the most recent messages.
func Transcript(c *model.Conversation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Customer: %s\n", orUnknown(c.CustomerName))
	fmt.Fprintf(&b, "Intent: %s\nProperty type: %s\nPreferred area: %s\nBudget: %s\n",
		orUnknown(c.Intent), orUnknown(c.PropertyType), orUnknown(c.PreferredArea), orUnknown(c.Budget))
	fmt.Fprintf(&b, "Lead: %s (score %d)\n\n", orUnknown(string(c.LeadQuality)), c.LeadScore)

	msgs := c.Messages
	if len(msgs) > maxTranscriptMessages {
		msgs = msgs[len(msgs)-maxTranscriptMessages:]
	}
	if len(msgs) == 0 {
		b.WriteString("(no messages)\n")
	}
	for _, m := range msgs {
		fmt.Fprintf(&b, "%s: %s\n", m.Sender, m.Text)
	}
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
