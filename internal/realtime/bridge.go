// Package realtime turns conversation change events and admin broadcasts into typed
// callbacks.
package realtime

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/homefront-realty/admin-backoffice/internal/mapper"
	"github.com/homefront-realty/admin-backoffice/internal/model"
	natsclient "github.com/homefront-realty/admin-backoffice/internal/nats"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
	"github.com/homefront-realty/admin-backoffice/pkg/metrics"
)

// Bus is the pub/sub transport. *nats.Client implements it.
type Bus interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(subject string, data []byte)) (func() error, error)
}

// ConversationHandler receives a mapped conversation row.
type ConversationHandler func(model.Conversation)

// AlertHandler receives an admin notification.
type AlertHandler func(model.NotificationItem)

// Subscription is an active bridge subscription.
type Subscription struct {
	once   sync.Once
	cancel func() error
}

// Unsubscribe releases the subscription. Calling it again is a no-op returning nil.
func (s *Subscription) Unsubscribe() error {
	var err error
	s.once.Do(func() { err = s.cancel() })
	return err
}

// Bridge subscribes to realtime subjects and maps their payloads.
type Bridge struct {
	bus    Bus
	logger *logger.Logger
}

// NewBridge creates a bridge over bus.
func NewBridge(bus Bus, log *logger.Logger) *Bridge {
	return &Bridge{bus: bus, logger: log}
}

// SubscribeConversations delivers inserted and updated conversation rows. Both kinds share
// one subscription so callbacks run in publish order. Either handler may be nil.
func (b *Bridge) SubscribeConversations(onInsert, onUpdate ConversationHandler) (*Subscription, error) {
	cancel, err := b.bus.Subscribe(natsclient.ConversationChanges, func(subject string, data []byte) {
		kind := natsclient.ChangeKind(subject)
		metrics.RealtimeEvents.WithLabelValues(kind, "received").Inc()

		row := mapper.Decode(data)
		if len(row) == 0 {
			b.logger.Warn("dropping undecodable conversation event", zap.String("subject", subject))
			return
		}
		conv := mapper.Conversation(row)

		switch subject {
		case natsclient.ConversationInsert:
			if onInsert != nil {
				onInsert(conv)
			}
		case natsclient.ConversationUpdate:
			if onUpdate != nil {
				onUpdate(conv)
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to conversation changes: %w", err)
	}
	return &Subscription{cancel: cancel}, nil
}

// SubscribeAlerts delivers admin broadcast notifications.
func (b *Bridge) SubscribeAlerts(onAlert AlertHandler) (*Subscription, error) {
	cancel, err := b.bus.Subscribe(natsclient.AdminAlert, func(subject string, data []byte) {
		metrics.RealtimeEvents.WithLabelValues("admin_alert", "received").Inc()

		row := mapper.Decode(data)
		if len(row) == 0 {
			b.logger.Warn("dropping undecodable admin alert")
			return
		}
		onAlert(mapper.Notification(row))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to admin alerts: %w", err)
	}
	return &Subscription{cancel: cancel}, nil
}

// Publisher emits change events after successful writes.
type Publisher struct {
	bus    Bus
	logger *logger.Logger
}

// NewPublisher creates a publisher over bus. A nil bus yields a publisher that drops
// every event.
func NewPublisher(bus Bus, log *logger.Logger) *Publisher {
	return &Publisher{bus: bus, logger: log}
}

// ConversationInserted publishes an insert event for c.
func (p *Publisher) ConversationInserted(c *model.Conversation) {
	p.publishRow(natsclient.ConversationInsert, c)
}

// ConversationUpdated publishes an update event for c.
func (p *Publisher) ConversationUpdated(c *model.Conversation) {
	p.publishRow(natsclient.ConversationUpdate, c)
}

// Alert broadcasts an admin notification.
func (p *Publisher) Alert(n model.NotificationItem) {
	p.publish(natsclient.AdminAlert, "admin_alert", n)
}

func (p *Publisher) publishRow(subject string, c *model.Conversation) {
	p.publish(subject, natsclient.ChangeKind(subject), mapper.ConversationRow(*c))
}

// publish never fails the caller; the write has already happened.
func (p *Publisher) publish(subject, kind string, v any) {
	if p == nil || p.bus == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("failed to marshal realtime event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := p.bus.Publish(subject, data); err != nil {
		p.logger.Warn("failed to publish realtime event", zap.String("subject", subject), zap.Error(err))
		return
	}
	metrics.RealtimeEvents.WithLabelValues(kind, "published").Inc()
}
