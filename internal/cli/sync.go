package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rida-louchachha/punchsync/internal/device"
	"github.com/rida-louchachha/punchsync/internal/engine"
	"github.com/rida-louchachha/punchsync/internal/notify"
	"github.com/rida-louchachha/punchsync/internal/profile"
	"github.com/rida-louchachha/punchsync/internal/punch"
	"github.com/rida-louchachha/punchsync/internal/store"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Database string
	DeviceID string
	DumpDir  string

	ProfilesDir string
	ProfileName string

	Company  string
	Strict   bool
	Timezone string

	NotifyTo   []string
	NotifyFrom string
	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one reconciliation pass over a device's punch backlog",
		Long: `Run one sync: freeze the device, fetch its roster and punch backlog,
and reconcile every punch into the attendance ledger.

The run audits every resolved punch into the raw log, deduplicates
repeated reads, and maintains non-overlapping check-in/check-out spans
per employee. Committed rows survive a failed run; re-running the same
backlog is idempotent.

Example:
  punchsync sync --db ./ledger.db --device gate-1 --dump ./exports/gate-1
  punchsync sync --db ./ledger.db --device gate-1 --dump ./exports/gate-1 \
    --profiles ./profiles --profile zkteco --strict`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite ledger (required)")
	cmd.Flags().StringVar(&opts.DeviceID, "device", "", "device ID the run is attributed to (required)")
	cmd.Flags().StringVar(&opts.DumpDir, "dump", "", "directory holding the device's CSV export (required)")
	cmd.Flags().StringVar(&opts.ProfilesDir, "profiles", "", "directory of vendor profile .cue files")
	cmd.Flags().StringVar(&opts.ProfileName, "profile", "", "vendor profile name (default: built-in zkteco)")
	cmd.Flags().StringVar(&opts.Company, "company", "", "company scope for the employee registry")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "abort on the first unresolved device user")
	cmd.Flags().StringVar(&opts.Timezone, "tz", "", "fallback device timezone (default GMT)")
	cmd.Flags().StringSliceVar(&opts.NotifyTo, "notify-to", nil, "email recipients for failed-run notifications")
	cmd.Flags().StringVar(&opts.NotifyFrom, "notify-from", "", "sender address for notifications")
	cmd.Flags().StringVar(&opts.SMTPHost, "smtp-host", "", "SMTP host for notifications")
	cmd.Flags().IntVar(&opts.SMTPPort, "smtp-port", 587, "SMTP port for notifications")
	cmd.Flags().StringVar(&opts.SMTPUser, "smtp-user", "", "SMTP username")
	cmd.Flags().StringVar(&opts.SMTPPass, "smtp-pass", "", "SMTP password")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("device")
	_ = cmd.MarkFlagRequired("dump")

	return cmd
}

func runSync(opts *SyncOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	prof, err := resolveProfile(opts.ProfilesDir, opts.ProfileName)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load vendor profile", err)
	}
	formatter.VerboseLog("using vendor profile %s", prof.Name)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	cfg := engine.DefaultConfig()
	cfg.Company = opts.Company
	cfg.Strict = opts.Strict
	if opts.Timezone != "" {
		cfg.DefaultTimezone = opts.Timezone
	}

	runner := engine.New(engine.Bundle(st), device.DumpAdapter{},
		engine.WithConfig(cfg),
		engine.WithProfile(prof),
	)

	ctx, stop := signalContext(cmd)
	defer stop()

	rep, runErr := runner.Run(ctx, device.Config{
		DeviceID: opts.DeviceID,
		DumpDir:  opts.DumpDir,
	})

	notifyFailure(opts, rep, runErr)

	if runErr != nil {
		_ = formatter.Error(runErr.Error(), rep)
		return WrapExitError(ExitFailure, "sync run failed", runErr)
	}

	if opts.Format == "json" {
		return formatter.JSON(rep)
	}
	printSyncReport(formatter.Writer, rep)
	return nil
}

// resolveProfile loads the named vendor profile from a profile directory,
// or falls back to the built-in default when no directory is given.
func resolveProfile(dir, name string) (*punch.VendorProfile, error) {
	if dir == "" {
		if name != "" && name != punch.DefaultProfile().Name {
			return nil, fmt.Errorf("profile %q requested but no --profiles directory given", name)
		}
		return punch.DefaultProfile(), nil
	}

	result, errs := profile.LoadDir(dir)
	if result == nil {
		return nil, errs[0]
	}
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return result.Get(name)
}

// signalContext derives a context cancelled by SIGINT/SIGTERM from the
// command's context. The returned stop must be deferred.
func signalContext(cmd *cobra.Command) (context.Context, func()) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, cancelling run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// notifyFailure mails the run outcome when recipients are configured and
// the run failed. Notification trouble is logged, never fatal: the run's
// real outcome must not be masked by a mail server.
func notifyFailure(opts *SyncOptions, rep *engine.Report, runErr error) {
	if runErr == nil || len(opts.NotifyTo) == 0 {
		return
	}
	mailer := notify.Mailer{
		Host:     opts.SMTPHost,
		Port:     opts.SMTPPort,
		Username: opts.SMTPUser,
		Password: opts.SMTPPass,
		From:     opts.NotifyFrom,
		To:       opts.NotifyTo,
	}
	if err := mailer.RunFailed(rep, runErr); err != nil {
		slog.Warn("failure notification not sent", "error", err)
	}
}

// printSyncReport renders a run report for humans.
func printSyncReport(w io.Writer, rep *engine.Report) {
	fmt.Fprintf(w, "Run %s on device %s: %s (mode %s)\n", rep.RunID, rep.DeviceID, rep.Status, rep.Mode)
	fmt.Fprintf(w, "  punches fetched:   %d\n", rep.Fetched)
	fmt.Fprintf(w, "  audit rows upserted: %d\n", rep.Upserted)
	fmt.Fprintf(w, "  spans created:     %d\n", rep.SpansCreated)
	fmt.Fprintf(w, "  spans closed:      %d\n", rep.SpansClosed)
	fmt.Fprintf(w, "  spans discarded:   %d\n", rep.SpansDiscarded)
	fmt.Fprintf(w, "  deduplicated:      %d\n", rep.Deduplicated)
	fmt.Fprintf(w, "  strays dropped:    %d\n", rep.StraysDropped)
	fmt.Fprintf(w, "  skipped:           %d\n", rep.Skipped)
	if rep.IdentitiesCreated > 0 || rep.IdentitiesLinked > 0 {
		fmt.Fprintf(w, "  identities created: %d, linked: %d\n", rep.IdentitiesCreated, rep.IdentitiesLinked)
	}
	for _, msg := range rep.Errors {
		fmt.Fprintf(w, "  note: %s\n", msg)
	}
}
