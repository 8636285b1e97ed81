package store

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/homefront-realty/admin-backoffice/pkg/logger"
)

// ChangeChannel is the NOTIFY channel signalled by the conversations change trigger.
const ChangeChannel = "conversation_changes"

// ChangeTriggerSQL installs a trigger that notifies ChangeChannel with
// {"op":"INSERT"|"UPDATE","id":"<conversation id>"} after every row write. Only the id
// is sent because NOTIFY payloads are limited to 8000 bytes.
const ChangeTriggerSQL = `
CREATE OR REPLACE FUNCTION notify_conversation_change() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('` + ChangeChannel + `', json_build_object('op', TG_OP, 'id', NEW.id)::text);
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS conversations_notify_change ON conversations;
CREATE TRIGGER conversations_notify_change
	AFTER INSERT OR UPDATE ON conversations
	FOR EACH ROW EXECUTE FUNCTION notify_conversation_change();
`

const (
	listenerMinReconnect = 2 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPing         = 90 * time.Second
)

// InstallChangeTrigger creates or replaces the conversations change trigger.
func (p *Postgres) InstallChangeTrigger(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, ChangeTriggerSQL); err != nil {
		return fmt.Errorf("failed to install change trigger: %w", err)
	}
	return nil
}

// Listen opens a dedicated connection listening on channel and delivers notification
// payloads until ctx is done. The listener reconnects on its own; notifications sent
// while it was disconnected are lost.
func Listen(ctx context.Context, databaseURL, channel string, log *logger.Logger) (<-chan string, error) {
	l := pq.NewListener(databaseURL, listenerMinReconnect, listenerMaxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			log.Info("change listener connected", zap.String("channel", channel))
		case pq.ListenerEventDisconnected:
			log.Warn("change listener disconnected", zap.String("channel", channel), zap.Error(err))
		case pq.ListenerEventReconnected:
			log.Info("change listener reconnected", zap.String("channel", channel))
		case pq.ListenerEventConnectionAttemptFailed:
			log.Warn("change listener connection attempt failed", zap.String("channel", channel), zap.Error(err))
		}
	})
	if err := l.Listen(channel); err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", channel, err)
	}

	out := make(chan string, 64)
	go func() {
		defer close(out)
		defer l.Close()

		ping := time.NewTicker(listenerPing)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-l.Notify:
				if !ok {
					return
				}
				// nil after a reconnect
				if n == nil {
					continue
				}
				select {
				case out <- n.Extra:
				case <-ctx.Done():
					return
				}
			case <-ping.C:
				go func() {
					if err := l.Ping(); err != nil {
						log.Debug("change listener ping failed", zap.Error(err))
					}
				}()
			}
		}
	}()
	return out, nil
}
