package main

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/KOMKZ/go-yogan-settings/cluster"
	"github.com/KOMKZ/go-yogan-settings/testutil"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain lets the test binary act as a worker spawned by "cluster"
func TestMain(m *testing.M) {
	if os.Getenv(cluster.EnvWorkerID) != "" {
		main()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

const schema = `{
  // port is mandatory
  "type": "object",
  "properties": {"port": {"type": "integer"}, "host": {"type": "string", "default": "0.0.0.0"}},
  "required": ["port"],
}`

func TestCheck_Valid(t *testing.T) {
	tc := testutil.NewCLITestContext(t, "settingsctl")
	settingsPath := tc.WriteFile(t, "settings.json", `{"port": 8080}`)
	tc.WriteFile(t, "schema.json", schema)

	out, _, err := testutil.ExecuteCommand(newRootCmd(), "check", "--settings", "settings.json", "--schema", "schema.json")
	require.NoError(t, err)

	var r report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, settingsPath, r.Source)
	assert.Equal(t, map[string]any{"port": float64(8080), "host": "0.0.0.0"}, r.Settings)
}

func TestCheck_Invalid(t *testing.T) {
	tc := testutil.NewCLITestContext(t, "settingsctl")
	tc.WriteFile(t, "settings.json", `{"port": "oops"}`)
	tc.WriteFile(t, "schema.json", schema)

	out, errOut, err := testutil.ExecuteCommand(newRootCmd(), "check", "-s", "settings.json", "--schema", "schema.json")
	require.Error(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "settings are invalid (1 failures)")
	assert.Contains(t, errOut, `#/properties/port/type at "/port"`)
}

func TestCheck_EnvVar(t *testing.T) {
	tc := testutil.NewCLITestContext(t, "settingsctl")
	tc.WriteFile(t, "env.json", `{"from": "env"}`)
	t.Setenv("SETTINGSCTL_TEST_SOURCE", "env.json")

	out, _, err := testutil.ExecuteCommand(newRootCmd(), "check", "--env-var", "SETTINGSCTL_TEST_SOURCE")
	require.NoError(t, err)
	assert.Contains(t, out, `"from": "env"`)
}

func TestCheck_NoSource(t *testing.T) {
	testutil.NewCLITestContext(t, "settingsctl")

	_, errOut, err := testutil.ExecuteCommand(newRootCmd(), "check")
	require.Error(t, err)
	assert.Contains(t, errOut, "settings source not configured")
}

func TestCheck_Loaders(t *testing.T) {
	tc := testutil.NewCLITestContext(t, "settingsctl")
	tc.WriteFile(t, "settings.yaml", "port: 9000\n")

	out, _, err := testutil.ExecuteCommand(newRootCmd(), "check", "--loader", "viper", "--settings", "settings.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, `"port": 9000`)

	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("app:api", `{"port": 7000}`))
	out, _, err = testutil.ExecuteCommand(newRootCmd(), "check", "--loader", "redis", "--redis-addr", mr.Addr(), "--key-prefix", "app:", "--settings", "api")
	require.NoError(t, err)
	assert.Contains(t, out, `"source": "api"`)

	_, _, err = testutil.ExecuteCommand(newRootCmd(), "check", "--loader", "ftp", "--settings", "x")
	assert.ErrorContains(t, err, `unknown loader "ftp"`)
}

func TestCheck_BadLogLevel(t *testing.T) {
	_, _, err := testutil.ExecuteCommand(newRootCmd(), "check", "--log-level", "loud", "--settings", "x.json")
	assert.Error(t, err)
}

func TestWorker_RequiresPrimary(t *testing.T) {
	_, _, err := testutil.ExecuteCommand(newRootCmd(), "worker")
	assert.ErrorContains(t, err, "worker must be started by")
}

func TestCluster(t *testing.T) {
	tc := testutil.NewCLITestContext(t, "settingsctl")
	tc.WriteFile(t, "settings.json", `{"port": 8080}`)
	tc.WriteFile(t, "schema.json", schema)

	out, errOut, err := testutil.ExecuteCommand(newRootCmd(), "cluster", "--settings", "settings.json", "--schema", "schema.json", "--workers", "2", "--timeout", "5s")
	require.NoError(t, err, errOut)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)

	workers := map[string]report{}
	for _, line := range lines {
		var r report
		require.NoError(t, json.Unmarshal([]byte(line), &r), line)
		workers[r.Worker] = r
	}
	require.Contains(t, workers, "primary")
	require.Contains(t, workers, "worker-1")
	require.Contains(t, workers, "worker-2")
	for _, id := range []string{"worker-1", "worker-2"} {
		assert.Equal(t, workers["primary"].Settings, workers[id].Settings)
		assert.Equal(t, workers["primary"].Source, workers[id].Source)
	}
}

func TestCluster_InvalidWorkers(t *testing.T) {
	_, _, err := testutil.ExecuteCommand(newRootCmd(), "cluster", "--settings", "x.json", "--workers", "0")
	assert.ErrorContains(t, err, "--workers must be at least 1")
}

func TestHealth(t *testing.T) {
	testutil.NewCLITestContext(t, "settingsctl")

	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("api", `{"port": 1}`))

	out, _, err := testutil.ExecuteCommand(newRootCmd(), "health", "--loader", "redis", "--redis-addr", mr.Addr(), "--settings", "api")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "healthy"`)
	assert.Contains(t, out, `"redis"`)

	out, _, err = testutil.ExecuteCommand(newRootCmd(), "health", "--settings", "missing.json")
	require.Error(t, err)
	assert.Contains(t, out, `"status": "unhealthy"`)
	assert.Contains(t, out, "settings not initialized")
}
