// Package mapper converts untyped records from the database or the admin API into
// strictly typed domain records and back.
//
// Every exported mapping function is total: any input, including nil, yields a fully
// populated value with documented defaults. Keys are looked up in snake_case first and
// camelCase second so both payload shapes are accepted.
package mapper

import (
	"database/sql"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/homefront-realty/admin-backoffice/internal/model"
)

// Row is an untyped record as decoded from JSON or scanned from a table.
type Row = map[string]any

// Conversation maps a row to a conversation.
func Conversation(row Row) model.Conversation {
	c := model.Conversation{
		ID:              str(row, "id"),
		CustomerID:      str(row, "customer_id", "customerId"),
		CustomerName:    str(row, "customer_name", "customerName"),
		CustomerPhone:   str(row, "customer_phone", "customerPhone"),
		CustomerEmail:   str(row, "customer_email", "customerEmail"),
		StartTime:       timeVal(row, "start_time", "startTime"),
		EndTime:         timePtr(row, "end_time", "endTime"),
		DurationMinutes: intVal(row, "duration_minutes", "durationMinutes", "duration"),
		Status:          status(str(row, "status")),
		LeadQuality:     quality(str(row, "lead_quality", "leadQuality")),
		LeadScore:       clampScore(intVal(row, "lead_score", "leadScore")),
		Intent:          str(row, "intent"),
		PropertyType:    str(row, "property_type", "propertyType"),
		PreferredArea:   str(row, "preferred_area", "preferredArea"),
		Budget:          str(row, "budget"),
		AssignedAgentID: str(row, "assigned_agent_id", "assignedAgentId"),
		Tags:            strSlice(row, "tags"),
		Notes:           str(row, "notes"),
		FollowUpDate:    timePtr(row, "follow_up_date", "followUpDate"),
		LastMessage:     str(row, "last_message", "lastMessage"),
		Outcome:         str(row, "outcome"),
		ConversionValue: floatVal(row, "conversion_value", "conversionValue"),
		CreatedAt:       timeVal(row, "created_at", "createdAt"),
		UpdatedAt:       timeVal(row, "updated_at", "updatedAt"),
	}

	if c.StartTime.IsZero() {
		c.StartTime = c.CreatedAt
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	if c.DurationMinutes == 0 && c.EndTime != nil && c.EndTime.After(c.StartTime) {
		c.DurationMinutes = int(c.EndTime.Sub(c.StartTime).Minutes())
	}

	if agent, ok := rowVal(row, "agent", "assigned_agent"); ok {
		a := Agent(agent)
		c.Agent = &a
		if c.AssignedAgentID == "" {
			c.AssignedAgentID = a.ID
		}
	}

	for _, m := range rows(row, "messages", "chat_messages") {
		msg := Message(m)
		if msg.ConversationID == "" {
			msg.ConversationID = c.ID
		}
		c.Messages = append(c.Messages, msg)
	}
	if c.LastMessage == "" && len(c.Messages) > 0 {
		c.LastMessage = c.Messages[len(c.Messages)-1].Text
	}

	return c
}

// Conversations maps a slice of rows.
func Conversations(in []Row) []model.Conversation {
	out := make([]model.Conversation, 0, len(in))
	for _, r := range in {
		out = append(out, Conversation(r))
	}
	return out
}

// Message maps a row to a chat message.
func Message(row Row) model.ChatMessage {
	msg := model.ChatMessage{
		ID:             str(row, "id"),
		ConversationID: str(row, "conversation_id", "conversationId"),
		Sender:         sender(str(row, "sender", "sender_type", "senderType")),
		Text:           str(row, "text", "message", "content"),
		Type:           messageType(str(row, "type", "message_type", "messageType")),
		Timestamp:      timeVal(row, "timestamp", "created_at", "createdAt"),
		Read:           boolVal(row, "read", "is_read", "isRead"),
	}
	if md, ok := rowVal(row, "metadata"); ok {
		msg.Metadata = md
	}
	return msg
}

// FollowUpTask maps a row to a follow-up task.
func FollowUpTask(row Row) model.FollowUpTask {
	t := model.FollowUpTask{
		ID:              str(row, "id"),
		ConversationID:  str(row, "conversation_id", "conversationId"),
		ScheduledFor:    timeVal(row, "scheduled_for", "scheduledFor", "follow_up_date", "followUpDate"),
		AssignedAgentID: str(row, "assigned_agent_id", "assignedAgentId"),
		Notes:           str(row, "notes"),
		CreatedAt:       timeVal(row, "created_at", "createdAt"),
	}

	switch ch := model.FollowUpChannel(str(row, "channel")); ch {
	case model.ChannelSMS, model.ChannelWhatsApp:
		t.Channel = ch
	default:
		t.Channel = model.ChannelEmail
	}
	switch p := model.Priority(str(row, "priority")); p {
	case model.PriorityHigh, model.PriorityLow:
		t.Priority = p
	default:
		t.Priority = model.PriorityMedium
	}
	switch s := model.FollowUpStatus(str(row, "status")); s {
	case model.FollowUpCompleted, model.FollowUpOverdue:
		t.Status = s
	default:
		t.Status = model.FollowUpScheduled
	}
	return t
}

// Agent maps a row to an agent.
func Agent(row Row) model.Agent {
	return model.Agent{
		ID:                  str(row, "id"),
		Name:                str(row, "name", "full_name", "fullName"),
		Email:               str(row, "email"),
		ActiveConversations: intVal(row, "active_conversations", "activeConversations"),
		MaxCapacity:         intVal(row, "max_capacity", "maxCapacity"),
	}
}

// Notification maps a broadcast payload to a notification item.
func Notification(row Row) model.NotificationItem {
	n := model.NotificationItem{
		ID:             str(row, "id"),
		Type:           str(row, "type"),
		Title:          str(row, "title"),
		Message:        str(row, "message", "body"),
		ConversationID: str(row, "conversation_id", "conversationId"),
		Priority:       model.Priority(str(row, "priority")),
		CreatedAt:      timeVal(row, "created_at", "createdAt", "timestamp"),
		Dismissed:      boolVal(row, "dismissed"),
	}
	if n.Type == "" {
		n.Type = "info"
	}
	if n.Title == "" {
		n.Title = "Notification"
	}
	return n
}

// AnalyticsSnapshot maps a row to a snapshot. Missing collections stay nil; callers
// backfill them with analytics.WithDefaults.
func AnalyticsSnapshot(row Row) model.AnalyticsSnapshot {
	s := model.AnalyticsSnapshot{
		From:               timeVal(row, "from", "date_from", "dateFrom"),
		To:                 timeVal(row, "to", "date_to", "dateTo"),
		TotalConversations: intVal(row, "total_conversations", "totalConversations"),
		HotLeads:           intVal(row, "hot_leads", "hotLeads"),
		WarmLeads:          intVal(row, "warm_leads", "warmLeads"),
		ColdLeads:          intVal(row, "cold_leads", "coldLeads"),
		Converted:          intVal(row, "converted", "conversions"),
		ConversionRate:     floatVal(row, "conversion_rate", "conversionRate"),
		AverageLeadScore:   floatVal(row, "average_lead_score", "averageLeadScore", "avg_lead_score"),
		AverageDuration:    floatVal(row, "average_duration_minutes", "averageDurationMinutes", "avg_duration"),
	}

	for _, r := range rows(row, "trend", "trends") {
		s.Trend = append(s.Trend, model.TrendPoint{
			Date:          str(r, "date"),
			Conversations: intVal(r, "conversations", "count"),
			Leads:         intVal(r, "leads"),
			Conversions:   intVal(r, "conversions"),
		})
	}
	s.StatusDistribution = buckets(row, "status_distribution", "statusDistribution")
	s.IntentDistribution = buckets(row, "intent_distribution", "intentDistribution")
	s.PropertyTypeDistribution = buckets(row, "property_type_distribution", "propertyTypeDistribution")
	for _, r := range rows(row, "funnel", "conversion_funnel", "conversionFunnel") {
		s.Funnel = append(s.Funnel, model.FunnelStage{
			Stage: str(r, "stage", "name"),
			Count: intVal(r, "count", "value"),
		})
	}
	return s
}

// Summary maps a conversation_summaries row.
func Summary(row Row) model.Summary {
	return model.Summary{
		ConversationID: str(row, "conversation_id", "conversationId"),
		Text:           str(row, "summary", "text"),
		Model:          str(row, "model"),
		CreatedAt:      timeVal(row, "created_at", "createdAt"),
	}
}

// ConversationRow maps a conversation back to its snake_case row. Messages and the
// denormalized agent are not columns and are omitted.
func ConversationRow(c model.Conversation) Row {
	row := Row{
		"id":                c.ID,
		"customer_id":       c.CustomerID,
		"customer_name":     c.CustomerName,
		"customer_phone":    c.CustomerPhone,
		"customer_email":    c.CustomerEmail,
		"start_time":        c.StartTime,
		"duration_minutes":  c.DurationMinutes,
		"status":            string(c.Status),
		"lead_quality":      string(c.LeadQuality),
		"lead_score":        c.LeadScore,
		"intent":            c.Intent,
		"property_type":     c.PropertyType,
		"preferred_area":    c.PreferredArea,
		"budget":            c.Budget,
		"assigned_agent_id": c.AssignedAgentID,
		"tags":              append([]string{}, c.Tags...),
		"notes":             c.Notes,
		"last_message":      c.LastMessage,
		"outcome":           c.Outcome,
		"conversion_value":  c.ConversionValue,
		"created_at":        c.CreatedAt,
		"updated_at":        c.UpdatedAt,
	}
	if c.EndTime != nil {
		row["end_time"] = *c.EndTime
	}
	if c.FollowUpDate != nil {
		row["follow_up_date"] = *c.FollowUpDate
	}
	return row
}

// PatchColumns maps a patch to the snake_case columns it changes.
func PatchColumns(p model.ConversationPatch) Row {
	cols := Row{}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.LeadQuality != nil {
		cols["lead_quality"] = string(*p.LeadQuality)
	}
	if p.LeadScore != nil {
		cols["lead_score"] = clampScore(*p.LeadScore)
	}
	if p.AssignedAgentID != nil {
		cols["assigned_agent_id"] = *p.AssignedAgentID
	}
	if p.Notes != nil {
		cols["notes"] = *p.Notes
	}
	if p.Tags != nil {
		cols["tags"] = append([]string{}, p.Tags...)
	}
	if p.FollowUpDate != nil {
		cols["follow_up_date"] = *p.FollowUpDate
	}
	if p.Outcome != nil {
		cols["outcome"] = *p.Outcome
	}
	if p.ConversionValue != nil {
		cols["conversion_value"] = *p.ConversionValue
	}
	return cols
}

// Decode unmarshals raw JSON into a Row. Invalid or non-object input yields an empty row.
func Decode(data []byte) Row {
	var row Row
	if err := json.Unmarshal(data, &row); err != nil || row == nil {
		return Row{}
	}
	return row
}

func status(s string) model.Status {
	st := model.Status(strings.ToLower(strings.ReplaceAll(s, "_", "-")))
	if st.Valid() {
		return st
	}
	return model.StatusNew
}

func quality(s string) model.LeadQuality {
	q := model.LeadQuality(strings.ToLower(s))
	if q.Valid() {
		return q
	}
	return model.LeadCold
}

func sender(s string) model.Sender {
	switch v := model.Sender(strings.ToLower(s)); v {
	case model.SenderBot, model.SenderCustomer, model.SenderAgent:
		return v
	case "user":
		return model.SenderCustomer
	case "assistant":
		return model.SenderBot
	}
	return model.SenderBot
}

func messageType(s string) model.MessageType {
	switch v := model.MessageType(strings.ToLower(s)); v {
	case model.MessageText, model.MessageButton, model.MessageImage, model.MessageForm, model.MessageSystem:
		return v
	}
	return model.MessageText
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func pick(row Row, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func str(row Row, keys ...string) string {
	v, ok := pick(row, keys...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	}
	return ""
}

func floatVal(row Row, keys ...string) float64 {
	v, ok := pick(row, keys...)
	if !ok {
		return 0
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		f, _ = t.Float64()
	case string:
		f, _ = strconv.ParseFloat(strings.TrimSpace(t), 64)
	case []byte:
		f, _ = strconv.ParseFloat(strings.TrimSpace(string(t)), 64)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func intVal(row Row, keys ...string) int {
	return int(math.Round(floatVal(row, keys...)))
}

func boolVal(row Row, keys ...string) bool {
	v, ok := pick(row, keys...)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	case float64:
		return t != 0
	case int64:
		return t != 0
	case int:
		return t != 0
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func timePtr(row Row, keys ...string) *time.Time {
	v, ok := pick(row, keys...)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return nil
		}
		u := t.UTC()
		return &u
	case *time.Time:
		if t == nil || t.IsZero() {
			return nil
		}
		u := t.UTC()
		return &u
	case string:
		if parsed, ok := parseTime(t); ok {
			return &parsed
		}
	case []byte:
		if parsed, ok := parseTime(string(t)); ok {
			return &parsed
		}
	case float64:
		u := time.UnixMilli(int64(t)).UTC()
		return &u
	case int64:
		u := time.UnixMilli(t).UTC()
		return &u
	}
	return nil
}

func timeVal(row Row, keys ...string) time.Time {
	if t := timePtr(row, keys...); t != nil {
		return *t
	}
	return time.Time{}
}

func strSlice(row Row, keys ...string) []string {
	out := []string{}
	v, ok := pick(row, keys...)
	if !ok {
		return out
	}
	switch t := v.(type) {
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	case []byte:
		return strSlice(Row{"v": string(t)}, "v")
	case string:
		t = strings.TrimSpace(t)
		if strings.HasPrefix(t, "{") {
			return textArray(t)
		}
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// textArray parses a Postgres text[] literal. NULL and blank elements are dropped; a
// malformed literal yields no elements.
func textArray(literal string) []string {
	out := []string{}
	var elems []sql.NullString
	if err := pq.Array(&elems).Scan(literal); err != nil {
		return out
	}
	for _, e := range elems {
		if s := strings.TrimSpace(e.String); e.Valid && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func rowVal(row Row, keys ...string) (Row, bool) {
	v, ok := pick(row, keys...)
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case []byte:
		r := Decode(t)
		return r, len(r) > 0
	case string:
		r := Decode([]byte(t))
		return r, len(r) > 0
	}
	return nil, false
}

func rows(row Row, keys ...string) []Row {
	v, ok := pick(row, keys...)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []Row:
		return t
	case []any:
		out := make([]Row, 0, len(t))
		for _, item := range t {
			if r, ok := item.(map[string]any); ok {
				out = append(out, r)
			}
		}
		return out
	case []byte:
		var out []Row
		_ = json.Unmarshal(t, &out)
		return out
	}
	return nil
}

func buckets(row Row, keys ...string) []model.Bucket {
	v, ok := pick(row, keys...)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case map[string]any:
		// {"hot": 3, "warm": 2}
		out := make([]model.Bucket, 0, len(t))
		for label := range t {
			out = append(out, model.Bucket{Label: label, Count: intVal(t, label)})
		}
		sortBuckets(out)
		return out
	case []any:
		out := make([]model.Bucket, 0, len(t))
		for _, item := range t {
			if r, ok := item.(map[string]any); ok {
				out = append(out, model.Bucket{
					Label: str(r, "label", "name", "key"),
					Count: intVal(r, "count", "value"),
				})
			}
		}
		return out
	}
	return nil
}

func sortBuckets(b []model.Bucket) {
	sort.Slice(b, func(i, j int) bool { return b[i].Label < b[j].Label })
}
