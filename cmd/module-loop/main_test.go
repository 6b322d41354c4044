package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodexForgeBR/module-loop/internal/config"
	"github.com/CodexForgeBR/module-loop/internal/session"
	"github.com/CodexForgeBR/module-loop/internal/storage"
)

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

// seedCompletedSessions persists n completed sessions for module and
// returns their ids in creation order.
func seedCompletedSessions(t *testing.T, dbPath, module string, n int) []session.ID {
	t.Helper()

	store, err := storage.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	mgr := session.NewManager(store)
	ctx := context.Background()

	var ids []session.ID
	for i := 0; i < n; i++ {
		st, err := mgr.Create(ctx, module)
		require.NoError(t, err)
		st.IsComplete = true
		require.NoError(t, store.SaveState(ctx, st))
		ids = append(ids, st.ID)
	}
	return ids
}

func TestPruneHonorsConfigRetention(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, t.TempDir())

	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	ids := seedCompletedSessions(t, dbPath, "billing", 3)

	cfgPath := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(cfgPath, []byte("RETENTION_COUNT=1\n"), 0644))

	cmd := newSessionsCmd(config.NewDefaultConfig())
	cmd.SetArgs([]string{"prune", "--config", cfgPath, "--db", dbPath})
	require.NoError(t, cmd.Execute())

	store, err := storage.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	remaining, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, remaining, 1, "RETENTION_COUNT=1 should leave a single completed session")
	assert.Equal(t, ids[2], remaining[0], "oldest sessions are pruned first")
}

func TestPruneRetainFlagBeatsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, t.TempDir())

	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	seedCompletedSessions(t, dbPath, "billing", 3)

	cfgPath := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(cfgPath, []byte("RETENTION_COUNT=1\n"), 0644))

	cmd := newSessionsCmd(config.NewDefaultConfig())
	cmd.SetArgs([]string{"prune", "--config", cfgPath, "--db", dbPath, "--retain", "2"})
	require.NoError(t, cmd.Execute())

	store, err := storage.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	remaining, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestBuildLoopReportsMissingAgentCLI(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, t.TempDir())

	cfgPath := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(cfgPath, []byte("AI_CLI=no-such-agent-cli-4f2a\n"), 0644))

	cfg := config.NewDefaultConfig()
	cfg.ConfigFile = cfgPath

	_, err := buildLoop(&cobra.Command{}, cfg)
	require.Error(t, err)

	var aerr *authError
	assert.True(t, errors.As(err, &aerr), "missing agent CLI must surface as an auth error, got %v", err)
}
