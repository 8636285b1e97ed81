package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/realtime"
)

// watchEvent is one line of JSON watch output.
type watchEvent struct {
	Event string      `json:"event"`
	At    time.Time   `json:"at"`
	Data  interface{} `json:"data"`
}

func (a *app) newWatchCmd() *cobra.Command {
	var (
		duration time.Duration
		noAlerts bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print conversation changes and admin alerts as they happen",
		Example: strings.TrimSpace(`
  # Follow changes until Ctrl+C
  adminctl watch

  # One JSON line per event, for five minutes
  adminctl watch -o json --duration 5m
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			bus, err := a.bus(ctx)
			if err != nil {
				return err
			}
			if err := a.followChanges(ctx, bus); err != nil {
				return err
			}
			bridge := realtime.NewBridge(bus, a.log)

			out := cmd.OutOrStdout()
			var mu sync.Mutex
			emit := func(event string, data interface{}, line string) {
				mu.Lock()
				defer mu.Unlock()
				if a.isJSON() {
					_ = a.printJSONLine(out, watchEvent{Event: event, At: a.opts.Now().UTC(), Data: data})
					return
				}
				_, _ = fmt.Fprintf(out, "%s  %-7s  %s\n", a.opts.Now().Format("15:04:05"), event, line)
			}

			convSub, err := bridge.SubscribeConversations(
				func(c model.Conversation) { emit("insert", c, describe(c)) },
				func(c model.Conversation) { emit("update", c, describe(c)) },
			)
			if err != nil {
				return err
			}
			defer convSub.Unsubscribe()

			if !noAlerts {
				alertSub, err := bridge.SubscribeAlerts(func(n model.NotificationItem) {
					emit("alert", n, fmt.Sprintf("%s: %s", n.Title, n.Message))
				})
				if err != nil {
					return err
				}
				defer alertSub.Unsubscribe()
			}

			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Watching conversation changes (Ctrl+C to stop)")

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 watches until interrupted)")
	cmd.Flags().BoolVar(&noAlerts, "no-alerts", false, "Skip admin alerts")
	return cmd
}

func describe(c model.Conversation) string {
	return fmt.Sprintf("%s  %s  %s/%s  score=%d", c.ID, orDash(c.CustomerName), c.Status, c.LeadQuality, c.LeadScore)
}
