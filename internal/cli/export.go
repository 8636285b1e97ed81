package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/homefront-realty/admin-backoffice/internal/bootstrap"
	"github.com/homefront-realty/admin-backoffice/internal/export"
)

// exportOutput describes a finished export.
type exportOutput struct {
	Filename string `json:"filename"`
	Format   string `json:"format"`
	Rows     int    `json:"rows"`
	Bytes    int    `json:"bytes"`
	Path     string `json:"path,omitempty"`
	Key      string `json:"key,omitempty"`
}

func (a *app) newExportCmd() *cobra.Command {
	var (
		filters filterFlags
		format  string
		outPath string
		upload  bool
		maxRows int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every conversation matching the filters",
		Example: strings.TrimSpace(`
  # CSV of all hot leads into the current directory
  adminctl export --lead-quality hot

  # Print view to a chosen file
  adminctl export --format html --out leads.html

  # Upload a workbook to the export bucket
  adminctl export --format xlsx --upload
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if upload && outPath != "" {
				return errors.New("--upload and --out are mutually exclusive")
			}
			sf, _, _, err := filters.parse(0, 0)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-rows") {
				maxRows = a.cfg.ExportMaxRows
			}

			var uploader *export.Uploader
			if upload {
				uploader, err = bootstrap.Uploader(a.cfg, a.log)
				if err != nil {
					return err
				}
				if uploader == nil {
					return errors.New("--upload requires EXPORT_BUCKET")
				}
			}

			fetcher, err := a.fetcher(ctx)
			if err != nil {
				return err
			}

			artifact, err := export.Build(ctx, fetcher, sf, f, maxRows, a.opts.Now())
			if err != nil {
				return err
			}

			result := exportOutput{
				Filename: artifact.Filename,
				Format:   string(artifact.Format),
				Rows:     artifact.Rows,
				Bytes:    len(artifact.Data),
			}

			switch {
			case upload:
				key, err := uploader.Upload(ctx, artifact.Filename, f, artifact.Data)
				if err != nil {
					return err
				}
				result.Key = key
			case outPath == "-":
				_, err := cmd.OutOrStdout().Write(artifact.Data)
				return err
			default:
				if outPath == "" {
					outPath = artifact.Filename
				}
				if err := os.WriteFile(outPath, artifact.Data, 0o644); err != nil {
					return fmt.Errorf("failed to write export: %w", err)
				}
				result.Path = outPath
			}

			a.log.Info("export finished",
				zap.String("format", result.Format),
				zap.Int("rows", result.Rows),
			)

			if a.isJSON() {
				return a.printJSON(cmd.OutOrStdout(), result)
			}
			dest := result.Path
			if result.Key != "" {
				dest = result.Key
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", result.Rows, dest)
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVar(&format, "format", string(export.FormatCSV), "Format: csv|xlsx|pdf|html")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file, - for stdout (defaults to the generated filename)")
	cmd.Flags().BoolVar(&upload, "upload", false, "Upload to the export bucket instead of writing a file")
	cmd.Flags().IntVar(&maxRows, "max-rows", 0, "Row cap (defaults to EXPORT_MAX_ROWS; 0 or less uses 10000)")
	return cmd
}
