package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
)

type loaderFunc func(ctx context.Context, id string) (*model.Conversation, error)

func (f loaderFunc) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	return f(ctx, id)
}

func stored(convs ...model.Conversation) Loader {
	return loaderFunc(func(ctx context.Context, id string) (*model.Conversation, error) {
		for i := range convs {
			if convs[i].ID == id {
				return &convs[i], nil
			}
		}
		return nil, errors.New("not found")
	})
}

func subscribeAll(t *testing.T, bus Bus) *[]string {
	t.Helper()
	var got []string
	sub, err := NewBridge(bus, logger.NewNop()).SubscribeConversations(
		func(c model.Conversation) { got = append(got, "insert:"+c.ID+":"+c.CustomerName) },
		func(c model.Conversation) { got = append(got, "update:"+c.ID+":"+c.CustomerName) },
	)
	require.NoError(t, err)
	t.Cleanup(func() { sub.Unsubscribe() })
	return &got
}

func TestChangeFeed_LoadsAndPublishes(t *testing.T) {
	bus := NewLocalBus()
	got := subscribeAll(t, bus)

	feed := NewChangeFeed(stored(
		model.Conversation{ID: "c1", CustomerName: "Ivy"},
		model.Conversation{ID: "c2", CustomerName: "Leo"},
	), NewPublisher(bus, logger.NewNop()), logger.NewNop())

	ctx := context.Background()
	require.NoError(t, feed.Handle(ctx, `{"op":"INSERT","id":"c1"}`))
	require.NoError(t, feed.Handle(ctx, `{"op":"UPDATE","id":"c2"}`))
	require.NoError(t, feed.Handle(ctx, `{"op":"update","id":"c9","row":{"id":"c9","customer_name":"Ada"}}`))

	assert.Equal(t, []string{"insert:c1:Ivy", "update:c2:Leo", "update:c9:Ada"}, *got)
}

func TestChangeFeed_RejectsBadPayloads(t *testing.T) {
	bus := NewLocalBus()
	got := subscribeAll(t, bus)
	feed := NewChangeFeed(stored(), NewPublisher(bus, logger.NewNop()), logger.NewNop())
	ctx := context.Background()

	assert.Error(t, feed.Handle(ctx, `not json`))
	assert.Error(t, feed.Handle(ctx, `{"op":"DELETE","id":"c1"}`))
	assert.Error(t, feed.Handle(ctx, `{"op":"INSERT"}`))
	assert.Error(t, feed.Handle(ctx, `{"op":"INSERT","id":"gone"}`))
	assert.Empty(t, *got)
}

func TestChangeFeed_RunSkipsFailuresUntilClosed(t *testing.T) {
	bus := NewLocalBus()
	got := subscribeAll(t, bus)
	feed := NewChangeFeed(stored(model.Conversation{ID: "c1", CustomerName: "Ivy"}),
		NewPublisher(bus, logger.NewNop()), logger.NewNop())

	payloads := make(chan string, 3)
	payloads <- `{"op":"INSERT","id":"missing"}`
	payloads <- `{"op":"INSERT","id":"c1"}`
	close(payloads)

	done := make(chan struct{})
	go func() {
		feed.Run(context.Background(), payloads)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("change feed did not stop after its input closed")
	}
	assert.Equal(t, []string{"insert:c1:Ivy"}, *got)
}
