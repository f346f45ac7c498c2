package testutil

import (
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLITestContext_WriteFile(t *testing.T) {
	tc := NewCLITestContext(t, "test")
	path := tc.WriteFile(t, "nested/settings.json", `{"a":1}`)

	data, err := os.ReadFile("nested/settings.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
	assert.FileExists(t, path)

	tc.Logger.Info("hello")
	assert.True(t, tc.Logs.HasLog("INFO", "hello"))
}

func TestWriteExecutable(t *testing.T) {
	path := WriteExecutable(t, t.TempDir(), "gen.sh", "#!/bin/sh\necho '{}'\n")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o111)
}

func TestExecuteCommand(t *testing.T) {
	cmd := &cobra.Command{
		Use: "echo",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Print(args[0])
			cmd.PrintErr("to stderr")
			return nil
		},
	}

	out, errOut, err := ExecuteCommand(cmd, "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
	assert.Equal(t, "to stderr", errOut)
}
