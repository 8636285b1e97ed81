// Package cli implements adminctl, the operator command line for the admin back office.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/homefront-realty/admin-backoffice/internal/bootstrap"
	"github.com/homefront-realty/admin-backoffice/internal/config"
	"github.com/homefront-realty/admin-backoffice/internal/realtime"
	"github.com/homefront-realty/admin-backoffice/internal/remote"
	"github.com/homefront-realty/admin-backoffice/internal/source"
	"github.com/homefront-realty/admin-backoffice/internal/store"
	"github.com/homefront-realty/admin-backoffice/pkg/logger"
)

// Options supplies dependencies to Execute. Zero fields are built from configuration.
type Options struct {
	Config *config.Config
	Logger *logger.Logger
	Repo   store.Repository
	Bus    realtime.Bus
	Stdout io.Writer
	Stderr io.Writer
	Now    func() time.Time
}

// app carries the dependencies shared by every command of one invocation.
type app struct {
	opts Options

	output   string
	jq       string
	logLevel string

	cfg     *config.Config
	log     *logger.Logger
	closers []func()
}

// Execute runs adminctl with args.
func Execute(ctx context.Context, args []string, opts Options) error {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	a := &app{opts: opts, output: outputText}
	defer a.close()

	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)
	return root.ExecuteContext(ctx)
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "adminctl",
		Short:         "Operate the real-estate admin back office",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVarP(&a.output, "output", "o", outputText, "Output format: text|json")
	root.PersistentFlags().StringVar(&a.jq, "jq", "", "jq expression applied to JSON output")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (defaults to LOG_LEVEL)")

	root.AddCommand(
		a.newListCmd(),
		a.newExportCmd(),
		a.newWatchCmd(),
		a.newAnalyticsCmd(),
		a.newBulkUpdateCmd(),
		a.newBulkDeleteCmd(),
	)
	return root
}

func (a *app) init() error {
	switch a.output {
	case outputText, outputJSON:
	default:
		return fmt.Errorf("invalid --output %q: want text or json", a.output)
	}
	if a.jq != "" {
		a.output = outputJSON
	}

	a.cfg = a.opts.Config
	if a.cfg == nil {
		a.cfg = config.Load()
	}

	a.log = a.opts.Logger
	if a.log == nil {
		level := a.logLevel
		if level == "" {
			level = a.cfg.LogLevel
		}
		log, err := logger.NewConsole(level)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		a.log = log
		a.closers = append(a.closers, func() { _ = log.Sync() })
	}
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// repository returns the injected repository or opens the configured one.
func (a *app) repository(ctx context.Context) (store.Repository, error) {
	if a.opts.Repo != nil {
		return a.opts.Repo, nil
	}
	repo, closeStore, err := bootstrap.OpenStore(ctx, a.cfg, a.log)
	if err != nil {
		return nil, err
	}
	a.opts.Repo = repo
	a.closers = append(a.closers, closeStore)
	return repo, nil
}

// bus returns the injected bus or connects the configured one.
func (a *app) bus(ctx context.Context) (realtime.Bus, error) {
	if a.opts.Bus != nil {
		return a.opts.Bus, nil
	}
	bus, nc, err := bootstrap.ConnectBus(ctx, a.cfg, "adminctl", a.log)
	if err != nil {
		return nil, err
	}
	if nc != nil {
		a.closers = append(a.closers, nc.Close)
	}
	a.opts.Bus = bus
	return bus, nil
}

// followChanges feeds database row changes onto bus when CHANGE_FEED is set, so watch
// modes see writes made by other processes without a NATS server.
func (a *app) followChanges(ctx context.Context, bus realtime.Bus) error {
	if !a.cfg.ChangeFeed {
		return nil
	}
	repo, err := a.repository(ctx)
	if err != nil {
		return err
	}
	_, err = bootstrap.StartChangeFeed(ctx, a.cfg, repo, realtime.NewPublisher(bus, a.log), a.log)
	return err
}

func (a *app) remote() *remote.Client {
	return bootstrap.RemoteClient(a.cfg)
}

// readSources returns the admin API client and the repository for read commands. The
// database is optional when the admin API is configured.
func (a *app) readSources(ctx context.Context) (*remote.Client, store.Repository, error) {
	rc := a.remote()
	repo, err := a.repository(ctx)
	if err != nil {
		if rc == nil {
			return nil, nil, err
		}
		a.log.Warn("database unavailable, reading from the admin API only", zap.Error(err))
		return rc, nil, nil
	}
	return rc, repo, nil
}

func (a *app) fetcher(ctx context.Context) (*source.Chain, error) {
	rc, repo, err := a.readSources(ctx)
	if err != nil {
		return nil, err
	}
	return bootstrap.Fetcher(rc, repo, a.log), nil
}
