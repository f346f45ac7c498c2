// Package testutil holds helpers shared by package tests and CLI tests
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/KOMKZ/go-yogan-settings/logger"
	"github.com/spf13/cobra"
)

// CLITestContext bundles what a command test usually needs
type CLITestContext struct {
	Dir    string
	Logger *logger.CtxZapLogger
	Logs   *logger.TestLogs
}

// NewCLITestContext creates a temp working directory and an in-memory logger.
// The working directory is switched to Dir for the duration of the test.
//
//	tc := testutil.NewCLITestContext(t, "settingsctl")
//	path := tc.WriteFile(t, "settings.json", `{"port": 8080}`)
//	out, _, err := testutil.ExecuteCommand(cmd, "check", "--settings", path)
func NewCLITestContext(t *testing.T, module string) *CLITestContext {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	log, logs := logger.NewTestLogger(module)
	return &CLITestContext{Dir: dir, Logger: log, Logs: logs}
}

// WriteFile writes content under the context directory and returns the absolute path
func (c *CLITestContext) WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	return WriteFile(t, c.Dir, name, content)
}

// WriteFile writes content to dir/name and returns the absolute path
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	return writeFile(t, dir, name, content, 0o644)
}

// WriteExecutable writes a script with the execute bit set
func WriteExecutable(t *testing.T, dir, name, content string) string {
	t.Helper()
	return writeFile(t, dir, name, content, 0o755)
}

func writeFile(t *testing.T, dir, name, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create dir for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		t.Fatalf("abs %s: %v", path, err)
	}
	return abs
}

// ExecuteCommand runs cmd with args and captures stdout and stderr separately
func ExecuteCommand(cmd *cobra.Command, args ...string) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return out.String(), errOut.String(), err
}
