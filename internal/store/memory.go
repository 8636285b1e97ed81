package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/query"
)

// Memory is an in-process Repository. It evaluates query plans with Plan.Match and
// Plan.Less so it selects the same rows the Postgres repository would.
type Memory struct {
	caps Capabilities

	conversations map[string]*model.Conversation
	messages      map[string][]model.ChatMessage
	followUps     map[string][]model.FollowUpTask
	summaries     map[string]model.Summary
	mu            sync.RWMutex
}

// NewMemory creates an empty in-memory repository with the given capabilities.
func NewMemory(caps Capabilities) *Memory {
	return &Memory{
		caps:          caps,
		conversations: make(map[string]*model.Conversation),
		messages:      make(map[string][]model.ChatMessage),
		followUps:     make(map[string][]model.FollowUpTask),
		summaries:     make(map[string]model.Summary),
	}
}

// Capabilities returns the configured optional features.
func (m *Memory) Capabilities() Capabilities {
	return m.caps
}

// Ping always succeeds.
func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

// Put inserts or replaces a conversation. Messages on c are stored separately.
func (m *Memory) Put(c model.Conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(c.Messages) > 0 {
		m.messages[c.ID] = append([]model.ChatMessage(nil), c.Messages...)
	}
	c.Messages = nil
	m.conversations[c.ID] = &c
}

// ListConversations returns one page of conversations matching plan and the total count.
func (m *Memory) ListConversations(ctx context.Context, plan query.Plan, limit, offset int) ([]model.Conversation, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var convs []model.Conversation
	for _, conv := range m.conversations {
		if plan.Match(conv) {
			convs = append(convs, *conv)
		}
	}
	sort.SliceStable(convs, func(i, j int) bool { return plan.Less(&convs[i], &convs[j]) })

	total := len(convs)
	start := offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	page := make([]model.Conversation, end-start)
	copy(page, convs[start:end])
	return page, total, nil
}

// GetConversation returns a conversation with its messages in timestamp order.
func (m *Memory) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, exists := m.conversations[id]
	if !exists {
		return nil, ErrNotFound
	}

	out := *conv
	msgs := append([]model.ChatMessage(nil), m.messages[id]...)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Timestamp.Before(msgs[j].Timestamp) })
	out.Messages = msgs
	return &out, nil
}

// UpdateConversation applies patch and returns the updated conversation.
func (m *Memory) UpdateConversation(ctx context.Context, id string, patch model.ConversationPatch) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, exists := m.conversations[id]
	if !exists {
		return nil, ErrNotFound
	}

	if !patch.Empty() {
		patch.Apply(conv)
		conv.UpdatedAt = time.Now().UTC()
	}

	out := *conv
	return &out, nil
}

// DeleteConversation removes a conversation and everything attached to it.
func (m *Memory) DeleteConversation(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.conversations[id]; !exists {
		return ErrNotFound
	}
	delete(m.conversations, id)
	delete(m.messages, id)
	delete(m.followUps, id)
	delete(m.summaries, id)
	return nil
}

// ListFollowUps returns the follow-up tasks of a conversation ordered by schedule.
func (m *Memory) ListFollowUps(ctx context.Context, conversationID string) ([]model.FollowUpTask, error) {
	if !m.caps.FollowUpTasks {
		return []model.FollowUpTask{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	tasks := append([]model.FollowUpTask{}, m.followUps[conversationID]...)
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].ScheduledFor.Before(tasks[j].ScheduledFor) })
	return tasks, nil
}

// CreateFollowUp stores a follow-up task.
func (m *Memory) CreateFollowUp(ctx context.Context, task *model.FollowUpTask) error {
	if !m.caps.FollowUpTasks {
		return ErrFeatureUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.conversations[task.ConversationID]; !exists {
		return ErrNotFound
	}
	m.followUps[task.ConversationID] = append(m.followUps[task.ConversationID], *task)
	return nil
}

// GetSummary returns the stored summary or nil.
func (m *Memory) GetSummary(ctx context.Context, conversationID string) (*model.Summary, error) {
	if !m.caps.ConversationSummaries {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.summaries[conversationID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// SaveSummary replaces the summary of a conversation.
func (m *Memory) SaveSummary(ctx context.Context, summary *model.Summary) error {
	if !m.caps.ConversationSummaries {
		return ErrFeatureUnavailable
	}

	m.mu.Lock()
	m.summaries[summary.ConversationID] = *summary
	m.mu.Unlock()
	return nil
}

// Analytics aggregates the conversations created within [from, to].
func (m *Memory) Analytics(ctx context.Context, from, to time.Time) (model.AnalyticsSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := model.AnalyticsSnapshot{From: from, To: to}
	status := map[string]int{}
	intent := map[string]int{}
	propertyType := map[string]int{}
	trend := map[string]*model.TrendPoint{}

	var scoreSum, durationSum int
	for _, c := range m.conversations {
		if c.CreatedAt.Before(from) || c.CreatedAt.After(to) {
			continue
		}

		s.TotalConversations++
		scoreSum += c.LeadScore
		durationSum += c.DurationMinutes

		day := c.CreatedAt.UTC().Format(time.DateOnly)
		tp, ok := trend[day]
		if !ok {
			tp = &model.TrendPoint{Date: day}
			trend[day] = tp
		}
		tp.Conversations++

		switch c.LeadQuality {
		case model.LeadHot:
			s.HotLeads++
			tp.Leads++
		case model.LeadWarm:
			s.WarmLeads++
			tp.Leads++
		case model.LeadCold:
			s.ColdLeads++
		}
		if c.Status == model.StatusCompleted {
			s.Converted++
			tp.Conversions++
		}

		status[string(c.Status)]++
		intent[c.Intent]++
		propertyType[c.PropertyType]++
	}

	if s.TotalConversations > 0 {
		n := float64(s.TotalConversations)
		s.ConversionRate = float64(s.Converted) / n * 100
		s.AverageLeadScore = float64(scoreSum) / n
		s.AverageDuration = float64(durationSum) / n
	}

	s.StatusDistribution = distribution(status)
	s.IntentDistribution = distribution(intent)
	s.PropertyTypeDistribution = distribution(propertyType)

	for _, tp := range trend {
		s.Trend = append(s.Trend, *tp)
	}
	sort.Slice(s.Trend, func(i, j int) bool { return s.Trend[i].Date < s.Trend[j].Date })

	return s, nil
}

// distribution orders buckets by count descending, then label.
func distribution(counts map[string]int) []model.Bucket {
	out := make([]model.Bucket, 0, len(counts))
	for label, n := range counts {
		out = append(out, model.Bucket{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}
