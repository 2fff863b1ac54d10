package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func withoutDatabase(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("WINGO_INTERVALS_FILE", "")
}

func TestSimulate_RunsWithoutDatabase(t *testing.T) {
	withoutDatabase(t)

	var (
		out string
		err error
	)
	require.NotPanics(t, func() {
		out, err = executeCommand(t, "simulate", "--rounds", "10", "--bets", "2")
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Rounds:             10")
	assert.Contains(t, out, "House edge:")
}

func TestDatabaseCommands_ReturnErrorWithoutDatabase(t *testing.T) {
	withoutDatabase(t)

	commands := [][]string{
		{"rounds", "recent", "--interval", "1m"},
		{"demo-users", "list"},
		{"migrate", "status"},
	}

	for _, args := range commands {
		t.Run(args[0], func(t *testing.T) {
			var err error
			require.NotPanics(t, func() {
				_, err = executeCommand(t, args...)
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "DATABASE_URL is required")
		})
	}
}

func TestRoot_InvalidConfigIsReturned(t *testing.T) {
	withoutDatabase(t)
	t.Setenv("GUARD_BACKEND", "zookeeper")

	var err error
	require.NotPanics(t, func() {
		_, err = executeCommand(t, "simulate", "--rounds", "1", "--bets", "1")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}
