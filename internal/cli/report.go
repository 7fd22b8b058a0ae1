package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/rida-louchachha/punchsync/internal/store"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Database string
	Day      string
	Employee int64
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show per-employee attendance for one UTC day",
		Long: `Aggregate the raw audit log and the span ledger for one UTC day:
punch count with first and last read per employee, plus how many spans
started that day and the total closed working time.

Counts come from the audit trail, so deduplicated and stray reads are
still visible here.

Example:
  punchsync report --db ./ledger.db
  punchsync report --db ./ledger.db --day 2024-03-10 --employee 7`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite ledger (required)")
	cmd.Flags().StringVar(&opts.Day, "day", "", "UTC day to report, YYYY-MM-DD (default today)")
	cmd.Flags().Int64Var(&opts.Employee, "employee", 0, "narrow the report to one employee ID")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReport(opts *ReportOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	day := time.Now().UTC()
	if opts.Day != "" {
		parsed, err := time.ParseInLocation("2006-01-02", opts.Day, time.UTC)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("invalid --day %q (want YYYY-MM-DD)", opts.Day), err)
		}
		day = parsed
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	rows, err := st.DailyReport(cmd.Context(), day, opts.Employee)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build report", err)
	}

	if opts.Format == "json" {
		return formatter.JSON(rows)
	}
	printDailyReport(formatter.Writer, day, rows)
	return nil
}

// printDailyReport renders the daily rows for humans.
func printDailyReport(w io.Writer, day time.Time, rows []store.ReportRow) {
	fmt.Fprintf(w, "Attendance for %s (UTC)\n", day.UTC().Format("2006-01-02"))
	if len(rows) == 0 {
		fmt.Fprintln(w, "  no activity")
		return
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  #%d %s: %d punches", r.EmployeeID, r.FullName, r.PunchCount)
		if r.PunchCount > 0 {
			fmt.Fprintf(w, " (%s .. %s)",
				r.FirstPunch.UTC().Format("15:04:05"),
				r.LastPunch.UTC().Format("15:04:05"))
		}
		fmt.Fprintf(w, ", %d spans, %s worked\n", r.SpanCount, r.TotalWork)
	}
}
