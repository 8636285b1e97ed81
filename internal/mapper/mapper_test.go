package mapper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homefront-realty/admin-backoffice/internal/model"
)

func TestConversation_NilRowHasDefaults(t *testing.T) {
	c := Conversation(nil)

	assert.Equal(t, model.StatusNew, c.Status)
	assert.Equal(t, model.LeadCold, c.LeadQuality)
	assert.Equal(t, 0, c.LeadScore)
	assert.NotNil(t, c.Tags)
	assert.Empty(t, c.Tags)
	assert.Nil(t, c.EndTime)
	assert.Nil(t, c.FollowUpDate)
	assert.Nil(t, c.Agent)
}

func TestConversation_SnakeCase(t *testing.T) {
	row := Row{
		"id":               "c1",
		"customer_name":    "Dana",
		"customer_phone":   "+15550100",
		"status":           "in_progress",
		"lead_quality":     "HOT",
		"lead_score":       float64(87),
		"tags":             []any{"vip", " ", "buyer"},
		"conversion_value": "350000.5",
		"created_at":       "2026-03-01T10:00:00Z",
		"start_time":       "2026-03-01 10:00:00",
		"end_time":         "2026-03-01T10:25:00Z",
		"follow_up_date":   "2026-03-05",
	}

	c := Conversation(row)

	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, "Dana", c.CustomerName)
	assert.Equal(t, model.StatusInProgress, c.Status)
	assert.Equal(t, model.LeadHot, c.LeadQuality)
	assert.Equal(t, 87, c.LeadScore)
	assert.Equal(t, []string{"vip", "buyer"}, c.Tags)
	assert.InDelta(t, 350000.5, c.ConversionValue, 0.001)
	assert.Equal(t, 25, c.DurationMinutes)
	require.NotNil(t, c.FollowUpDate)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), *c.FollowUpDate)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)
}

func TestConversation_CamelCaseFallback(t *testing.T) {
	row := Row{
		"id":            "c2",
		"customerName":  "Lee",
		"customerEmail": "lee@example.com",
		"leadQuality":   "warm",
		"leadScore":     float64(140),
		"createdAt":     "2026-03-02T08:00:00Z",
		"agent":         map[string]any{"id": "a1", "name": "Sam", "maxCapacity": float64(10)},
		"messages": []any{
			map[string]any{"id": "m1", "sender": "customer", "text": "hello"},
			map[string]any{"id": "m2", "sender": "assistant", "message": "hi there", "type": "button"},
		},
	}

	c := Conversation(row)

	assert.Equal(t, "Lee", c.CustomerName)
	assert.Equal(t, "lee@example.com", c.CustomerEmail)
	assert.Equal(t, model.LeadWarm, c.LeadQuality)
	assert.Equal(t, 100, c.LeadScore)
	require.NotNil(t, c.Agent)
	assert.Equal(t, "a1", c.AssignedAgentID)
	require.Len(t, c.Messages, 2)
	assert.Equal(t, model.SenderCustomer, c.Messages[0].Sender)
	assert.Equal(t, model.SenderBot, c.Messages[1].Sender)
	assert.Equal(t, model.MessageButton, c.Messages[1].Type)
	assert.Equal(t, "c2", c.Messages[1].ConversationID)
	assert.Equal(t, "hi there", c.LastMessage)
}

func TestConversation_PostgresArrayLiteral(t *testing.T) {
	c := Conversation(Row{"tags": `{vip,"first time buyer"}`})
	assert.Equal(t, []string{"vip", "first time buyer"}, c.Tags)
}

func TestConversation_PostgresArrayQuotingAndNulls(t *testing.T) {
	c := Conversation(Row{"tags": []byte(`{"sea view,pool",downtown,NULL,"say \"hi\"","NULL"}`)})
	assert.Equal(t, []string{"sea view,pool", "downtown", `say "hi"`, "NULL"}, c.Tags)

	c = Conversation(Row{"tags": "{}"})
	assert.NotNil(t, c.Tags)
	assert.Empty(t, c.Tags)

	c = Conversation(Row{"tags": `{"unterminated`})
	assert.Empty(t, c.Tags)

	c = Conversation(Row{"tags": "vip, condo"})
	assert.Equal(t, []string{"vip", "condo"}, c.Tags)
}

func TestConversationRow_RoundTrip(t *testing.T) {
	follow := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	in := model.Conversation{
		ID:           "c3",
		CustomerName: "Kim",
		Status:       model.StatusCompleted,
		LeadQuality:  model.LeadHot,
		LeadScore:    91,
		Tags:         []string{"investor"},
		FollowUpDate: &follow,
		CreatedAt:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}
	in.StartTime = in.CreatedAt

	out := Conversation(ConversationRow(in))

	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Status, out.Status)
	assert.Equal(t, in.LeadScore, out.LeadScore)
	assert.Equal(t, in.Tags, out.Tags)
	require.NotNil(t, out.FollowUpDate)
	assert.True(t, follow.Equal(*out.FollowUpDate))
	assert.True(t, in.UpdatedAt.Equal(out.UpdatedAt))
}

func TestPatchColumns(t *testing.T) {
	st := model.StatusLost
	score := -4
	notes := "called twice"
	cols := PatchColumns(model.ConversationPatch{Status: &st, LeadScore: &score, Notes: &notes})

	assert.Equal(t, Row{"status": "lost", "lead_score": 0, "notes": "called twice"}, cols)
}

func TestFollowUpTask_Defaults(t *testing.T) {
	task := FollowUpTask(Row{"id": "f1", "channel": "pager", "scheduled_for": "2026-05-01T12:00:00Z"})

	assert.Equal(t, model.ChannelEmail, task.Channel)
	assert.Equal(t, model.PriorityMedium, task.Priority)
	assert.Equal(t, model.FollowUpScheduled, task.Status)
	assert.Equal(t, model.FollowUpOverdue, task.EffectiveStatus(time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)))
}

func TestAnalyticsSnapshot_DistributionShapes(t *testing.T) {
	s := AnalyticsSnapshot(Row{
		"totalConversations":  float64(12),
		"status_distribution": map[string]any{"new": float64(4), "completed": float64(8)},
		"intentDistribution":  []any{map[string]any{"label": "buy", "count": float64(7)}},
	})

	assert.Equal(t, 12, s.TotalConversations)
	assert.Equal(t, []model.Bucket{{Label: "completed", Count: 8}, {Label: "new", Count: 4}}, s.StatusDistribution)
	assert.Equal(t, []model.Bucket{{Label: "buy", Count: 7}}, s.IntentDistribution)
	assert.Nil(t, s.Funnel)
}

func TestDecode_Invalid(t *testing.T) {
	assert.Equal(t, Row{}, Decode([]byte("not json")))
	assert.Equal(t, Row{}, Decode([]byte("null")))
}
