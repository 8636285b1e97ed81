package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/homefront-realty/admin-backoffice/internal/bootstrap"
	"github.com/homefront-realty/admin-backoffice/internal/middleware"
	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/realtime"
	"github.com/homefront-realty/admin-backoffice/internal/service"
)

// bulkOutput reports a bulk run. Error is set when the run stopped early.
type bulkOutput struct {
	Applied int    `json:"applied"`
	Total   int    `json:"total"`
	Error   string `json:"error,omitempty"`
}

// conversationService opens the database and the bus for write commands.
func (a *app) conversationService(ctx context.Context) (*service.ConversationService, error) {
	repo, err := a.repository(ctx)
	if err != nil {
		return nil, err
	}
	bus, err := a.bus(ctx)
	if err != nil {
		return nil, err
	}
	svc := service.NewConversationService(repo, realtime.NewPublisher(bus, a.log), a.log)

	// Writes drop cached analytics snapshots.
	agg, closeCache := bootstrap.Analytics(ctx, a.cfg, nil, nil, a.log)
	a.closers = append(a.closers, closeCache)
	svc.InvalidateOnWrite(agg)
	return svc, nil
}

func (a *app) newBulkUpdateCmd() *cobra.Command {
	var (
		status      string
		leadQuality string
		leadScore   int
		agent       string
		tags        []string
		outcome     string
		note        string
	)

	cmd := &cobra.Command{
		Use:   "bulk-update <id>...",
		Short: "Apply the same change to several conversations",
		Long: `Apply the same change to each conversation in order. The run stops at the first
failure; conversations already updated stay updated.`,
		Example: strings.TrimSpace(`
  # Mark two conversations hot and in progress
  adminctl bulk-update c1 c2 --lead-quality hot --status in-progress

  # Append a timestamped note
  adminctl bulk-update c1 c2 c3 --note "Called, no answer"
`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, ids []string) error {
			if err := middleware.ValidateIDs(ids); err != nil {
				return err
			}
			if err := middleware.ValidateNote(note); err != nil {
				return err
			}

			var patch model.ConversationPatch
			flags := cmd.Flags()
			if flags.Changed("status") {
				s := model.Status(status)
				patch.Status = &s
			}
			if flags.Changed("lead-quality") {
				q := model.LeadQuality(leadQuality)
				patch.LeadQuality = &q
			}
			if flags.Changed("lead-score") {
				patch.LeadScore = &leadScore
			}
			if flags.Changed("agent") {
				patch.AssignedAgentID = &agent
			}
			if flags.Changed("tags") {
				patch.Tags = tags
				if patch.Tags == nil {
					patch.Tags = []string{}
				}
			}
			if flags.Changed("outcome") {
				patch.Outcome = &outcome
			}

			svc, err := a.conversationService(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.BulkUpdate(cmd.Context(), ids, patch, note)
			return a.reportBulk(cmd, "Updated", res, len(ids), err)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "New status: new|in-progress|completed|lost")
	cmd.Flags().StringVar(&leadQuality, "lead-quality", "", "New lead quality: hot|warm|cold")
	cmd.Flags().IntVar(&leadScore, "lead-score", 0, "New lead score (0-100)")
	cmd.Flags().StringVar(&agent, "agent", "", "Assign to agent ID")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Replace tags")
	cmd.Flags().StringVar(&outcome, "outcome", "", "Set outcome")
	cmd.Flags().StringVar(&note, "note", "", "Append a timestamped note")
	return cmd
}

func (a *app) newBulkDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "bulk-delete <id>...",
		Short: "Delete several conversations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, ids []string) error {
			if !yes {
				return errors.New("bulk-delete is permanent; pass --yes to confirm")
			}
			if err := middleware.ValidateIDs(ids); err != nil {
				return err
			}

			svc, err := a.conversationService(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.BulkDelete(cmd.Context(), ids)
			return a.reportBulk(cmd, "Deleted", res, len(ids), err)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}

// reportBulk prints progress and returns err so the exit status reflects a partial run.
func (a *app) reportBulk(cmd *cobra.Command, verb string, res service.BulkResult, total int, err error) error {
	out := bulkOutput{Applied: res.Applied, Total: total}
	if err != nil {
		if res.Applied == 0 {
			return err
		}
		out.Error = err.Error()
	}

	if a.isJSON() {
		if perr := a.printJSON(cmd.OutOrStdout(), out); perr != nil {
			return perr
		}
	} else {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %d of %d conversations\n", verb, out.Applied, out.Total)
	}
	if err != nil {
		return fmt.Errorf("stopped after %d of %d: %w", res.Applied, total, err)
	}
	return nil
}
