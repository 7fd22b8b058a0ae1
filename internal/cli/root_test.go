package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the CLI with the given args and captures stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())

	err := cmd.Execute()
	return out.String(), err
}

// writeDump creates a dump directory with the given punches and users CSV
// content. Empty content skips the file.
func writeDump(t *testing.T, punchesCSV, usersCSV string) string {
	t.Helper()

	dir := t.TempDir()
	if punchesCSV != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "punches.csv"), []byte(punchesCSV), 0o644))
	}
	if usersCSV != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "users.csv"), []byte(usersCSV), 0o644))
	}
	return dir
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "ledger.db")
}

func TestRootCommand_Help(t *testing.T) {
	out, err := executeCommand(t, "--help")
	require.NoError(t, err)

	for _, sub := range []string{"sync", "users", "rebuild", "report", "validate"} {
		assert.Contains(t, out, sub)
	}
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, err := executeCommand(t, "--format", "xml", "report", "--db", "unused.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootCommand_UnknownSubcommand(t *testing.T) {
	_, err := executeCommand(t, "frobnicate")
	require.Error(t, err)
}

func TestRootCommand_MissingRequiredFlag(t *testing.T) {
	_, err := executeCommand(t, "sync", "--device", "dev-1", "--dump", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db")
}
