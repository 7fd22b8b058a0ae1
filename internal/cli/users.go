package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rida-louchachha/punchsync/internal/device"
	"github.com/rida-louchachha/punchsync/internal/engine"
	"github.com/rida-louchachha/punchsync/internal/store"
)

// UsersOptions holds flags for the users command.
type UsersOptions struct {
	*RootOptions
	Database string
	DeviceID string
	DumpDir  string
	Company  string
	Push     bool
}

// NewUsersCommand creates the users command.
func NewUsersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UsersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Reconcile the device roster with the employee registry",
		Long: `Pull the device's enrolled users, bind them to employees, and provision
device user IDs for employees the device does not know yet.

Binding follows the resolution ladder: stored device ID first, then a
unique case-insensitive full-name match. Automatic linking requires a
two-word name on both sides. Unmatched users stay as unlinked link rows
and are listed in the report.

With --push, provisioned users are written to the device, verified by
readback, and only then stamped onto the employee record.

Example:
  punchsync users --db ./ledger.db --device gate-1 --dump ./exports/gate-1
  punchsync users --db ./ledger.db --device gate-1 --dump ./exports/gate-1 --push`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsers(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite ledger (required)")
	cmd.Flags().StringVar(&opts.DeviceID, "device", "", "device ID the roster belongs to (required)")
	cmd.Flags().StringVar(&opts.DumpDir, "dump", "", "directory holding the device's CSV export (required)")
	cmd.Flags().StringVar(&opts.Company, "company", "", "company scope for the employee registry")
	cmd.Flags().BoolVar(&opts.Push, "push", false, "push provisioned users to the device")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("device")
	_ = cmd.MarkFlagRequired("dump")

	return cmd
}

func runUsers(opts *UsersOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

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

	runner := engine.New(engine.Bundle(st), device.DumpAdapter{},
		engine.WithConfig(cfg),
	)

	ctx, stop := signalContext(cmd)
	defer stop()

	rep, runErr := runner.SyncUsers(ctx, device.Config{
		DeviceID: opts.DeviceID,
		DumpDir:  opts.DumpDir,
	}, opts.Push)
	if runErr != nil {
		_ = formatter.Error(runErr.Error(), rep)
		return WrapExitError(ExitFailure, "roster sync failed", runErr)
	}

	if opts.Format == "json" {
		return formatter.JSON(rep)
	}
	printRosterReport(formatter.Writer, rep)
	return nil
}

// printRosterReport renders a roster report for humans.
func printRosterReport(w io.Writer, rep *engine.RosterReport) {
	fmt.Fprintf(w, "Roster sync on device %s (mode %s)\n", rep.DeviceID, rep.Mode)
	fmt.Fprintf(w, "  device users seen: %d\n", rep.UsersSeen)
	fmt.Fprintf(w, "  links upserted:    %d\n", rep.LinksUpserted)
	fmt.Fprintf(w, "  employees created: %d\n", rep.EmployeesCreated)
	fmt.Fprintf(w, "  linked by id:      %d\n", rep.LinkedByID)
	fmt.Fprintf(w, "  linked by name:    %d\n", rep.LinkedByName)
	fmt.Fprintf(w, "  provisioned:       %d\n", rep.Provisioned)
	fmt.Fprintf(w, "  pushed:            %d\n", rep.Pushed)
	for _, msg := range rep.Errors {
		fmt.Fprintf(w, "  note: %s\n", msg)
	}
}
