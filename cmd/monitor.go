package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/draftguard/internal/adapters/bridge"
	metricsadapter "github.com/bnema/draftguard/internal/adapters/metrics"
	"github.com/bnema/draftguard/internal/adapters/notify"
	"github.com/bnema/draftguard/internal/adapters/source/formfile"
	"github.com/bnema/draftguard/internal/adapters/source/jsonl"
	"github.com/bnema/draftguard/internal/application"
	"github.com/bnema/draftguard/internal/domain"
	"github.com/bnema/draftguard/internal/ports"
	"github.com/spf13/cobra"
)

type monitorOptions struct {
	recordID    string
	pageContext string
	listen      string
	watchFile   string
	stdin       bool
	applyFound  bool
}

func newMonitorCmd(app *app) *cobra.Command {
	var opts monitorOptions

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Capture edits for one case and auto-save them as a draft",
		Long: "monitor runs until interrupted. It checks for an existing draft of the case, " +
			"captures field edits from --stdin, --watch-file and the --listen bridge, saves them " +
			"on every auto-save interval and warns before the session times out.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runMonitor(ctx, cmd, app, opts)
		},
	}

	cmd.Flags().StringVar(&opts.recordID, "record", "", "Case record ID (defaults to monitor.record_id)")
	cmd.Flags().StringVar(&opts.pageContext, "page-context", "", "Page context label stored with the draft")
	cmd.Flags().StringVar(&opts.listen, "listen", "", "Serve the host bridge on this address (e.g. 127.0.0.1:7878)")
	cmd.Flags().StringVar(&opts.watchFile, "watch-file", "", "Watch a JSON form file and merge it on every write")
	cmd.Flags().BoolVar(&opts.stdin, "stdin", false, "Read JSON-lines field changes from stdin")
	cmd.Flags().BoolVar(&opts.applyFound, "apply-found-draft", false, "Merge a draft found at start-up into the captured changes")

	return cmd
}

func runMonitor(ctx context.Context, cmd *cobra.Command, app *app, opts monitorOptions) error {
	recordID := opts.recordID
	if recordID == "" {
		recordID = app.cfg.Monitor.RecordID
	}
	if recordID == "" {
		return domain.ErrMissingRecordID
	}
	pageContext := opts.pageContext
	if pageContext == "" {
		pageContext = app.cfg.Monitor.PageContext
	}

	service, err := app.draftService()
	if err != nil {
		return err
	}

	logger := app.logger.Named("monitor")
	collector := metricsadapter.NewCollector()
	notifier := notify.NewTerminal(cmd.ErrOrStderr(), cmd.OutOrStdout(), logger)

	capture := application.NewCaptureAgent(logger, collector)
	scheduler, err := application.NewAutoSaveScheduler(application.AutoSaveConfig{
		RecordID:    domain.RecordID(recordID),
		PageContext: pageContext,
		Interval:    app.cfg.Monitor.AutoSaveInterval,
		Overlap:     application.OverlapPolicy(app.cfg.Monitor.OverlapPolicy),
		Retention:   application.RetentionPolicy(app.cfg.Monitor.Retention),
	}, application.AutoSaveDeps{
		Service:  service,
		Changes:  capture,
		Notifier: notifier,
		Metrics:  collector,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	watchdog, err := application.NewSessionWatchdog(application.WatchdogConfig{
		Interval:  app.cfg.Watchdog.Interval,
		WarnAfter: app.cfg.Watchdog.WarnAfter,
		Window:    app.cfg.Watchdog.Window,
	}, application.WatchdogDeps{
		Store:    app.state,
		Saver:    scheduler,
		Notifier: notifier,
		Metrics:  collector,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	var sources []ports.ChangeSource
	if opts.stdin {
		sources = append(sources, jsonl.New(cmd.InOrStdin(), logger))
	}
	if opts.watchFile != "" {
		sources = append(sources, formfile.New(opts.watchFile, formfile.DefaultDebounce, logger))
	}
	if opts.listen != "" {
		server := bridge.New(opts.listen, scheduler, collector.Handler(), logger)
		sources = append(sources, server)
		go announceBridge(ctx, server, cmd.ErrOrStderr())
	}

	monitor, err := application.NewMonitor(application.MonitorDeps{
		Capture:   capture,
		Scheduler: scheduler,
		Watchdog:  watchdog,
		Existence: &application.ExistenceCheck{
			RecordID:   domain.RecordID(recordID),
			Service:    service,
			Notifier:   notifier,
			ApplyFound: opts.applyFound,
			Logger:     logger,
		},
		Sources: sources,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(cmd.ErrOrStderr(), "%s for case %s (every %s)\n",
		scheduler.Status().Indicator(), recordID, app.cfg.Monitor.AutoSaveInterval); err != nil {
		return err
	}

	return monitor.Run(ctx)
}

func announceBridge(ctx context.Context, server *bridge.Server, out io.Writer) {
	select {
	case addr := <-server.Ready():
		_, _ = fmt.Fprintf(out, "host bridge listening on http://%s\n", addr)
	case <-ctx.Done():
	}
}
