package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/sstent/garmin-summary/internal/logger"
	"github.com/sstent/garmin-summary/internal/models"
	"github.com/sstent/garmin-summary/internal/report"
	"github.com/sstent/garmin-summary/internal/sync"
	"github.com/sstent/garmin-summary/internal/web"
)

func newBuildCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "build [paths...]",
		Short: "Bring the summary cache up to date",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			snapshot, err := a.engine.GetSummary(cmd.Context(), a.paths(args), a.options())
			if err != nil {
				return err
			}
			st := a.engine.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "%d activities (%d files: %d reused, %d copied, %d parsed, %d skipped)\n",
				len(snapshot), st.Candidates, st.Reused, st.Copied, st.Reparsed, st.Dropped)
			return nil
		},
	}
}

type reportFlags struct {
	file, day, week, month, year bool
	average, occur, update       bool
	sport                        string
}

func newReportCmd(flags *globalFlags) *cobra.Command {
	rf := &reportFlags{}
	cmd := &cobra.Command{
		Use:   "report [paths...]",
		Short: "Print activity totals by period",
		Long: `Prints per sport totals for the selected periods, followed by the grand
total. Without period flags the yearly report with averages is printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, flags, rf, args)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&rf.file, "file", false, "One line per activity file")
	f.BoolVar(&rf.day, "day", false, "Daily totals")
	f.BoolVar(&rf.week, "week", false, "Weekly totals")
	f.BoolVar(&rf.month, "month", false, "Monthly totals")
	f.BoolVar(&rf.year, "year", false, "Yearly totals")
	f.BoolVar(&rf.average, "average", false, "Averages per active day, week and month")
	f.BoolVar(&rf.occur, "occur", false, "Histogram of activity streak lengths")
	f.BoolVar(&rf.update, "update", false, "Reparse every activity that has corrections")
	f.StringVar(&rf.sport, "sport", "", "Only report this sport")
	return cmd
}

func runReport(cmd *cobra.Command, flags *globalFlags, rf *reportFlags, args []string) error {
	var sport models.Sport
	if rf.sport != "" {
		s, ok := models.ParseSport(rf.sport)
		if !ok {
			return fmt.Errorf("unknown sport %q", rf.sport)
		}
		sport = s
	}

	a, err := newApp(cmd, flags)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := a.options()
	if rf.update {
		opts.ReprocessKeys = a.corrections.Keys()
	}
	snapshot, err := a.engine.GetSummary(cmd.Context(), a.paths(args), opts)
	if err != nil {
		return err
	}

	records := make([]*models.Summary, 0, len(snapshot))
	for _, r := range snapshot {
		records = append(records, r)
	}
	agg := report.Aggregate(records, sport)
	if err := agg.CheckTotals(); err != nil {
		return err
	}

	ropts := report.Options{
		File:       rf.file,
		Day:        rf.day,
		Week:       rf.week,
		Month:      rf.month,
		Year:       rf.year,
		Average:    rf.average,
		Occurrence: rf.occur,
	}
	if ropts == (report.Options{}) {
		ropts = report.DefaultOptions()
	}

	out := report.Text(agg, ropts)
	if out == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "no activities found")
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

func newInvalidateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate filenames...",
		Short: "Drop cached summaries so the files are reparsed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.engine.Invalidate(cmd.Context(), args...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached summaries\n", n)
			return nil
		},
	}
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	var (
		addr     string
		schedule string
		watch    bool
	)
	cmd := &cobra.Command{
		Use:   "serve [paths...]",
		Short: "Serve reports over HTTP and refresh on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()
			if cmd.Flags().Changed("addr") {
				a.cfg.ListenAddr = addr
			}
			if cmd.Flags().Changed("schedule") {
				a.cfg.Schedule = schedule
			}
			return serve(cmd.Context(), a, a.paths(args), watch)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (GARMIN_LISTEN_ADDR)")
	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron schedule for refreshes (GARMIN_SCHEDULE)")
	cmd.Flags().BoolVar(&watch, "watch", true, "Refresh when activity files change")
	return cmd
}

func serve(ctx context.Context, a *app, paths []string, watch bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []sync.Option
	if a.db != nil {
		opts = append(opts, sync.WithStateRecorder(a.db))
	}
	svc := sync.NewSyncService(a.engine, paths, a.options(), opts...)

	if _, err := svc.Sync(ctx); err != nil {
		return err
	}
	if err := svc.Schedule(a.cfg.Schedule); err != nil {
		return err
	}
	defer svc.Stop()

	if watch {
		go func() {
			if err := svc.Watch(ctx); err != nil {
				logger.Warn("file watching disabled", "error", err)
			}
		}()
	}

	if a.cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := web.NewWebHandler(svc).NewRouter()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	server := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", a.cfg.ListenAddr, "schedule", a.cfg.Schedule)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
