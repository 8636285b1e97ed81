package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/homefront-realty/admin-backoffice/internal/middleware"
	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/realtime"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
	"github.com/homefront-realty/admin-backoffice/pkg/metrics"
)

const (
	defaultHeartbeat = 30 * time.Second
	streamBuffer     = 64
)

// StreamHandler relays realtime conversation changes and admin alerts over SSE.
type StreamHandler struct {
	bridge    *realtime.Bridge
	heartbeat time.Duration
	logger    *logger.Logger
}

// NewStreamHandler creates a new stream handler. A zero heartbeat uses 30s.
func NewStreamHandler(bridge *realtime.Bridge, heartbeat time.Duration, log *logger.Logger) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &StreamHandler{bridge: bridge, heartbeat: heartbeat, logger: log}
}

type sseEvent struct {
	name string
	data interface{}
}

// HeartbeatEvent keeps idle connections open through proxies.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// Stream handles GET /admin/stream
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Bus callbacks must not block; events are dropped while the buffer is full.
	events := make(chan sseEvent, streamBuffer)
	push := func(e sseEvent) {
		select {
		case events <- e:
		default:
			metrics.RealtimeEvents.WithLabelValues(e.name, "dropped").Inc()
		}
	}

	convSub, err := h.bridge.SubscribeConversations(
		func(c model.Conversation) { push(sseEvent{"conversation_insert", c}) },
		func(c model.Conversation) { push(sseEvent{"conversation_update", c}) },
	)
	if err != nil {
		h.logger.Error("failed to subscribe to conversation changes", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "realtime unavailable")
		return
	}
	defer convSub.Unsubscribe()

	alertSub, err := h.bridge.SubscribeAlerts(func(n model.NotificationItem) {
		push(sseEvent{"admin_alert", n})
	})
	if err != nil {
		h.logger.Error("failed to subscribe to admin alerts", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "realtime unavailable")
		return
	}
	defer alertSub.Unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	adminID := middleware.GetAdminID(ctx)
	sendSSEEvent(w, flusher, "connected", map[string]string{"admin_id": adminID})

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("SSE client disconnected", zap.String("admin_id", adminID))
			return

		case e := <-events:
			if err := sendSSEEvent(w, flusher, e.name, e.data); err != nil {
				h.logger.Warn("failed to write SSE event", zap.String("event", e.name), zap.Error(err))
				return
			}
			metrics.RealtimeEvents.WithLabelValues(e.name, "relayed").Inc()

		case <-heartbeat.C:
			if err := sendSSEEvent(w, flusher, "heartbeat", &HeartbeatEvent{Timestamp: time.Now().UTC()}); err != nil {
				return
			}
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}
