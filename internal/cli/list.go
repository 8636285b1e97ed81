package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/homefront-realty/admin-backoffice/internal/controller"
	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/query"
	"github.com/homefront-realty/admin-backoffice/internal/realtime"
)

// listOutput is the JSON form of a loaded list view.
type listOutput struct {
	Data       []model.Conversation `json:"data"`
	Total      int                  `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"pageSize"`
	TotalPages int                  `json:"totalPages"`
	Source     string               `json:"source"`
}

func (a *app) newListCmd() *cobra.Command {
	var (
		filters  filterFlags
		page     int
		limit    int
		watch    bool
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations",
		Long: `List one page of conversations. The admin API is tried first when ADMIN_API_URL is
set, then the database.

With --watch the page stays open: realtime inserts and updates are merged into it and
the view is printed again after every change.`,
		Example: strings.TrimSpace(`
  # Hot leads, best first
  adminctl list --lead-quality hot --sort hot

  # Second page of new conversations mentioning "condo"
  adminctl list --status new -q condo --page 2

  # IDs only
  adminctl list --jq '.data[].id'

  # Keep the first page of new leads live until Ctrl+C
  adminctl list --status new --watch
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, pageNum, pageSize, err := filters.parse(page, limit)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if watch && duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			fetcher, err := a.fetcher(ctx)
			if err != nil {
				return err
			}

			ctrl := controller.New(fetcher, a.log)
			defer ctrl.Close()

			state, err := ctrl.SetFilters(ctx, f)
			if err == nil && pageSize != state.PageSize {
				state, err = ctrl.SetPageSize(ctx, pageSize)
			}
			if err == nil && pageNum > 1 {
				state, err = ctrl.SetPage(ctx, pageNum)
			}
			if err != nil {
				return fmt.Errorf("failed to list conversations: %w", err)
			}

			if !watch {
				if a.isJSON() {
					return a.printJSON(cmd.OutOrStdout(), newListOutput(state))
				}
				return printConversations(cmd.OutOrStdout(), state)
			}
			return a.watchList(ctx, cmd, ctrl, state)
		},
	}

	filters.register(cmd)
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", query.DefaultPageSize, "Rows per page")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep the page open and apply realtime changes")
	cmd.Flags().DurationVar(&duration, "duration", 0, "With --watch, stop after this long (0 watches until interrupted)")
	return cmd
}

// watchList renders the loaded view, then merges realtime changes into the controller
// and renders again on every change until ctx is done.
func (a *app) watchList(ctx context.Context, cmd *cobra.Command, ctrl *controller.Controller, initial controller.State) error {
	bus, err := a.bus(ctx)
	if err != nil {
		return err
	}
	if err := a.followChanges(ctx, bus); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var mu sync.Mutex
	render := func(s controller.State) {
		mu.Lock()
		defer mu.Unlock()
		if a.isJSON() {
			if err := a.printJSONLine(out, newListOutput(s)); err != nil {
				a.log.Warn("failed to render list", zap.Error(err))
			}
			return
		}
		_, _ = fmt.Fprintf(out, "--- %s\n", a.opts.Now().Format("15:04:05"))
		if err := printConversations(out, s); err != nil {
			a.log.Warn("failed to render list", zap.Error(err))
		}
	}

	render(initial)
	ctrl.OnChange(func(s controller.State) {
		if s.Status == controller.StatusLoaded {
			render(s)
		}
	})

	sub, err := realtime.NewBridge(bus, a.log).SubscribeConversations(ctrl.ApplyInsert, ctrl.ApplyUpdate)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Watching list (Ctrl+C to stop)")
	<-ctx.Done()
	return nil
}

func newListOutput(s controller.State) listOutput {
	data := s.Data
	if data == nil {
		data = []model.Conversation{}
	}
	return listOutput{
		Data:       data,
		Total:      s.Total,
		Page:       s.Page,
		PageSize:   s.PageSize,
		TotalPages: s.TotalPages(),
		Source:     s.Source,
	}
}

func printConversations(out io.Writer, state controller.State) error {
	if len(state.Data) == 0 {
		_, _ = fmt.Fprintln(out, "No conversations found")
		return nil
	}

	w := newTabWriter(out)
	_, _ = fmt.Fprintln(w, "ID\tCUSTOMER\tSTATUS\tQUALITY\tSCORE\tBUDGET\tCREATED")
	for _, c := range state.Data {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			c.ID,
			orDash(c.CustomerName),
			c.Status,
			c.LeadQuality,
			c.LeadScore,
			orDash(c.Budget),
			c.CreatedAt.UTC().Format("2006-01-02 15:04"),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "\nPage %d of %d (%d total, source: %s)\n",
		state.Page, state.TotalPages(), state.Total, state.Source)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
