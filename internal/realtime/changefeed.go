package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/homefront-realty/admin-backoffice/internal/mapper"
	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
)

// Row operations reported by the database change trigger.
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
)

// Loader loads the current version of a changed conversation.
type Loader interface {
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
}

// Change is one database change notification. Row is optional; without it the
// conversation is loaded by ID.
type Change struct {
	Op  string     `json:"op"`
	ID  string     `json:"id"`
	Row mapper.Row `json:"row,omitempty"`
}

// ChangeFeed republishes database row changes as conversation insert and update events,
// so writes made outside this service reach realtime subscribers.
type ChangeFeed struct {
	loader    Loader
	publisher *Publisher
	logger    *logger.Logger
}

// NewChangeFeed creates a change feed publishing through publisher.
func NewChangeFeed(loader Loader, publisher *Publisher, log *logger.Logger) *ChangeFeed {
	return &ChangeFeed{loader: loader, publisher: publisher, logger: log}
}

// Run handles payloads until the channel closes or ctx is done. A payload that cannot
// be handled is logged and skipped.
func (f *ChangeFeed) Run(ctx context.Context, payloads <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-payloads:
			if !ok {
				return
			}
			if err := f.Handle(ctx, p); err != nil {
				f.logger.Warn("skipping conversation change", zap.Error(err))
			}
		}
	}
}

// Handle publishes a single change payload.
func (f *ChangeFeed) Handle(ctx context.Context, payload string) error {
	var ch Change
	if err := json.Unmarshal([]byte(payload), &ch); err != nil {
		return fmt.Errorf("invalid change payload: %w", err)
	}

	op := strings.ToUpper(ch.Op)
	if op != OpInsert && op != OpUpdate {
		return fmt.Errorf("unsupported change operation %q", ch.Op)
	}

	var conv model.Conversation
	switch {
	case len(ch.Row) > 0:
		conv = mapper.Conversation(ch.Row)
	case ch.ID != "" && f.loader != nil:
		c, err := f.loader.GetConversation(ctx, ch.ID)
		if err != nil {
			return fmt.Errorf("failed to load conversation %s: %w", ch.ID, err)
		}
		conv = *c
	default:
		return errors.New("change payload has neither row nor id")
	}

	if op == OpInsert {
		f.publisher.ConversationInserted(&conv)
	} else {
		f.publisher.ConversationUpdated(&conv)
	}
	return nil
}
