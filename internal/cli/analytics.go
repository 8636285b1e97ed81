package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/homefront-realty/admin-backoffice/internal/analytics"
	"github.com/homefront-realty/admin-backoffice/internal/bootstrap"
	"github.com/homefront-realty/admin-backoffice/internal/model"
	"github.com/homefront-realty/admin-backoffice/internal/query"
)

func (a *app) newAnalyticsCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show the analytics snapshot for a date range",
		Example: strings.TrimSpace(`
  # Last 30 days
  adminctl analytics

  # A quarter, as JSON
  adminctl analytics --from 2026-01-01 --to 2026-03-31 -o json
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			fromTime, err := query.ParseDate(from)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			toTime, err := query.ParseDateEnd(to)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}
			fromTime, toTime = analytics.Range(fromTime, toTime, a.opts.Now())

			rc, repo, err := a.readSources(ctx)
			if err != nil {
				return err
			}
			agg, closeCache := bootstrap.Analytics(ctx, a.cfg, rc, repo, a.log)
			defer closeCache()

			snap, err := agg.Snapshot(ctx, fromTime, toTime)
			if err != nil {
				return err
			}

			if a.isJSON() {
				return a.printJSON(cmd.OutOrStdout(), snap)
			}
			return printSnapshot(cmd, snap)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Range start (defaults to 30 days before --to)")
	cmd.Flags().StringVar(&to, "to", "", "Range end (defaults to now)")
	return cmd
}

func printSnapshot(cmd *cobra.Command, s model.AnalyticsSnapshot) error {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Analytics %s to %s\n\n", s.From.Format("2006-01-02"), s.To.Format("2006-01-02"))

	w := newTabWriter(out)
	_, _ = fmt.Fprintf(w, "Conversations\t%d\n", s.TotalConversations)
	_, _ = fmt.Fprintf(w, "Hot / warm / cold\t%d / %d / %d\n", s.HotLeads, s.WarmLeads, s.ColdLeads)
	_, _ = fmt.Fprintf(w, "Converted\t%d\n", s.Converted)
	_, _ = fmt.Fprintf(w, "Conversion rate\t%.1f%%\n", s.ConversionRate)
	_, _ = fmt.Fprintf(w, "Avg lead score\t%.1f\n", s.AverageLeadScore)
	_, _ = fmt.Fprintf(w, "Avg duration (min)\t%.1f\n", s.AverageDuration)
	if err := w.Flush(); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(out, "\nFunnel")
	w = newTabWriter(out)
	for _, stage := range s.Funnel {
		_, _ = fmt.Fprintf(w, "  %s\t%d\n", stage.Stage, stage.Count)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(s.StatusDistribution) > 0 {
		_, _ = fmt.Fprintln(out, "\nBy status")
		w = newTabWriter(out)
		for _, b := range s.StatusDistribution {
			_, _ = fmt.Fprintf(w, "  %s\t%d\n", b.Label, b.Count)
		}
		return w.Flush()
	}
	return nil
}
