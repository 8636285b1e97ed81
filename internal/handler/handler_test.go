package handler

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homefront-realty/admin-backoffice/internal/analytics"
	"github.com/homefront-realty/admin-backoffice/internal/middleware"
	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/realtime"
	"github.com/homefront-realty/admin-backoffice/internal/service"
	"github.com/homefront-realty/admin-backoffice/internal/source"
	"github.com/homefront-realty/admin-backoffice/internal/store"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
)

const apiKey = "test-admin-key"

var t0 = time.Date(2026, 4, 20, 9, 0, 0, 0, time.UTC)

type testServer struct {
	handler   http.Handler
	repo      *store.Memory
	publisher *realtime.Publisher
}

func newTestServer(t *testing.T, caps store.Capabilities) *testServer {
	t.Helper()
	log := logger.NewNop()

	repo := store.NewMemory(caps)
	for _, c := range []model.Conversation{
		{ID: "c1", CustomerName: "Ava Chen", Status: model.StatusNew, LeadQuality: model.LeadHot, LeadScore: 88, Notes: "A", CreatedAt: t0},
		{ID: "c2", CustomerName: "Ben Ortiz", Status: model.StatusInProgress, LeadQuality: model.LeadWarm, LeadScore: 60, CreatedAt: t0.Add(-time.Hour)},
		{ID: "c3", CustomerName: "Cleo Park", Status: model.StatusCompleted, LeadQuality: model.LeadCold, LeadScore: 15, CreatedAt: t0.Add(-2 * time.Hour), ConversionValue: 420000},
	} {
		repo.Put(c)
	}

	bus := realtime.NewLocalBus()
	pub := realtime.NewPublisher(bus, log)

	convSvc := service.NewConversationService(repo, pub, log)
	h := Handlers{
		Health:        NewHealthHandler(repo, nil),
		Conversations: NewConversationHandler(convSvc, service.NewSummaryService(repo, nil, "", log), log),
		FollowUps:     NewFollowUpHandler(service.NewFollowUpService(repo, pub, log), log),
		Export:        NewExportHandler(source.NewChain(log, source.NewDBStrategy(repo)), nil, 0, log),
		Analytics:     NewAnalyticsHandler(analytics.NewAggregator(nil, log, repo), log),
		Stream:        NewStreamHandler(realtime.NewBridge(bus, log), time.Hour, log),
	}

	cfg := RouterConfig{Auth: middleware.AuthConfig{APIKey: apiKey}}
	return &testServer{handler: NewRouter(cfg, h, log), repo: repo, publisher: pub}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set(middleware.AdminKeyHeader, apiKey)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t, store.Capabilities{})

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/conversations", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListConversations(t *testing.T) {
	s := newTestServer(t, store.Capabilities{})

	rec := s.do(t, http.MethodGet, "/admin/conversations?leadQuality=hot,warm&sort=cold&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[model.ListConversationsResponse](t, rec)
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "c2", resp.Data[0].ID)

	rec = s.do(t, http.MethodGet, "/admin/conversations?status=archived", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch(t *testing.T) {
	s := newTestServer(t, store.Capabilities{})

	rec := s.do(t, http.MethodGet, "/admin/search?query=cleo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[model.ListConversationsResponse](t, rec)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "c3", resp.Data[0].ID)
}

func TestGetAndUpdateConversation(t *testing.T) {
	s := newTestServer(t, store.Capabilities{})

	rec := s.do(t, http.MethodGet, "/admin/conversations/c1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ava Chen", decode[model.Conversation](t, rec).CustomerName)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/admin/conversations/nope", "").Code)

	rec = s.do(t, http.MethodPatch, "/admin/conversations/c2", `{"status":"completed","assignedAgentId":"agent-9"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[model.Conversation](t, rec)
	assert.Equal(t, model.StatusCompleted, updated.Status)
	assert.Equal(t, "agent-9", updated.AssignedAgentID)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPatch, "/admin/conversations/c2", `{"status":"archived"}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPatch, "/admin/conversations/c2", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPatch, "/admin/conversations/c2", `not json`).Code)
}

func TestBulkUpdate(t *testing.T) {
	s := newTestServer(t, store.Capabilities{})

	rec := s.do(t, http.MethodPost, "/admin/conversations/bulk-update", `{"ids":["c1","c2"],"patch":{"status":"lost"},"note":"B"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[bulkResponse](t, rec).Applied)

	c1, err := s.repo.GetConversation(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(c1.Notes, "A\n\n[Bulk Update "))
	assert.True(t, strings.HasSuffix(c1.Notes, "]\nB"))
	assert.Equal(t, model.StatusLost, c1.Status)

	rec = s.do(t, http.MethodPost, "/admin/conversations/bulk-update", `{"ids":["c3","missing","c2"],"patch":{"leadScore":5}}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[bulkResponse](t, rec)
	assert.Equal(t, 1, body.Applied)
	assert.Equal(t, 3, body.Total)
	assert.Contains(t, body.Error, "stopped at missing after 1 rows")

	rec = s.do(t, http.MethodPost, "/admin/conversations/bulk-update", `{"ids":["missing"],"patch":{"leadScore":5}}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, decode[bulkResponse](t, rec).Applied)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/admin/conversations/bulk-update", `{"ids":[],"patch":{"leadScore":5}}`).Code)
}

func TestBulkDelete(t *testing.T) {
	s := newTestServer(t, store.Capabilities{})

	rec := s.do(t, http.MethodPost, "/admin/conversations/bulk-delete", `{"ids":["c1","c3"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[bulkResponse](t, rec).Applied)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/admin/conversations/c3", "").Code)

	rec = s.do(t, http.MethodPost, "/admin/conversations/bulk-delete", `{"ids":["c2","c3"]}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[bulkResponse](t, rec)
	assert.Equal(t, 1, body.Applied)
	assert.Equal(t, 2, body.Total)
	assert.NotEmpty(t, body.Error)
}

func TestFollowUps(t *testing.T) {
	s := newTestServer(t, store.Capabilities{})
	when := t0.Add(24 * time.Hour).Format(time.RFC3339)

	rec := s.do(t, http.MethodPost, "/admin/conversations/c1/follow-ups", `{"scheduledFor":"`+when+`"}`)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = s.do(t, http.MethodGet, "/admin/conversations/c1/follow-ups", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())

	s = newTestServer(t, store.Capabilities{FollowUpTasks: true})
	rec = s.do(t, http.MethodPost, "/admin/conversations/c1/follow-ups", `{"scheduledFor":"`+when+`","channel":"whatsapp","priority":"high"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	task := decode[model.FollowUpTask](t, rec)
	assert.Equal(t, model.ChannelWhatsApp, task.Channel)
	assert.Equal(t, "c1", task.ConversationID)
}

func TestSummaryWithoutProvider(t *testing.T) {
	s := newTestServer(t, store.Capabilities{ConversationSummaries: true})
	assert.Equal(t, http.StatusNotImplemented, s.do(t, http.MethodPost, "/admin/conversations/c1/summary", "").Code)
}

func TestExport(t *testing.T) {
	s := newTestServer(t, store.Capabilities{})

	rec := s.do(t, http.MethodGet, "/admin/conversations/export?format=csv&leadQuality=hot,cold", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename="conversations-\d+\.csv"$`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "2", rec.Header().Get("X-Export-Rows"))

	records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Customer Name", records[0][0])

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/admin/conversations/export?format=docx", "").Code)
	assert.Equal(t, http.StatusNotImplemented, s.do(t, http.MethodGet, "/admin/conversations/export?format=pdf&upload=true", "").Code)

	rec = s.do(t, http.MethodGet, "/admin/conversations/export?format=xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("X-Export-Rows"))
}

func TestAnalytics(t *testing.T) {
	s := newTestServer(t, store.Capabilities{})

	rec := s.do(t, http.MethodGet, "/admin/analytics?from=2026-04-01&to=2026-04-30", "")
	require.Equal(t, http.StatusOK, rec.Code)

	snap := decode[model.AnalyticsSnapshot](t, rec)
	assert.Equal(t, 3, snap.TotalConversations)
	assert.Equal(t, 1, snap.HotLeads)
	assert.Len(t, snap.Funnel, 4)
	assert.NotNil(t, snap.Trend)
	assert.Equal(t, time.Date(2026, 4, 30, 23, 59, 59, 0, time.UTC), snap.To)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/admin/analytics?from=yesterday", "").Code)
}

func TestReady(t *testing.T) {
	s := newTestServer(t, store.Capabilities{FollowUpTasks: true})

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"followUpTasks":true`)
}

func TestStreamRelaysEvents(t *testing.T) {
	s := newTestServer(t, store.Capabilities{})
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/admin/stream", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.AdminKeyHeader, apiKey)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	next := func() (string, string) {
		var event, data string
		for lines.Scan() {
			line := lines.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && event != "":
				return event, data
			}
		}
		return "", ""
	}

	event, _ := next()
	require.Equal(t, "connected", event)

	s.publisher.ConversationUpdated(&model.Conversation{ID: "c2", LeadQuality: model.LeadHot, CreatedAt: t0, UpdatedAt: t0})
	s.publisher.Alert(model.NotificationItem{ID: "n1", Type: "hot_lead", Title: "New hot lead", CreatedAt: t0})

	event, data := next()
	assert.Equal(t, "conversation_update", event)
	var c model.Conversation
	require.NoError(t, json.Unmarshal([]byte(data), &c))
	assert.Equal(t, "c2", c.ID)
	assert.Equal(t, model.LeadHot, c.LeadQuality)

	event, data = next()
	assert.Equal(t, "admin_alert", event)
	assert.Contains(t, data, `"hot_lead"`)
}
