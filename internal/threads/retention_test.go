package threads

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codex-engine/codex/internal/protocol"
)

func TestNewRetentionSweep_RejectsInvalidSchedule(t *testing.T) {
	m := New(t.TempDir())
	_, err := NewRetentionSweep(m, "not a cron expression", time.Hour)
	require.Error(t, err)
}

func TestRetentionSweep_RunOnceArchivesOldThreads(t *testing.T) {
	home := t.TempDir()
	m := New(home)

	h, err := m.NewThread(Config{Cwd: "/work", Source: protocol.SourceCLI})
	require.NoError(t, err)
	require.NoError(t, h.Recorder().RecordResponseItem(protocol.ResponseItem{
		Kind: protocol.ItemMessage, Role: protocol.RoleUser,
	}))
	rolloutPath := h.Recorder().Path()

	sweep, err := NewRetentionSweep(m, "0 3 * * *", 0)
	require.NoError(t, err)
	sweep.RunOnce()

	_, err = os.Stat(rolloutPath)
	require.True(t, os.IsNotExist(err), "original rollout file should have moved")

	archivedDir := filepath.Join(home, "archived_sessions")
	entries, err := os.ReadDir(archivedDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRetentionSweep_RunOnceKeepsRecentThreads(t *testing.T) {
	home := t.TempDir()
	m := New(home)

	h, err := m.NewThread(Config{Cwd: "/work", Source: protocol.SourceCLI})
	require.NoError(t, err)
	require.NoError(t, h.Recorder().RecordResponseItem(protocol.ResponseItem{
		Kind: protocol.ItemMessage, Role: protocol.RoleUser,
	}))
	rolloutPath := h.Recorder().Path()

	sweep, err := NewRetentionSweep(m, "0 3 * * *", 24*time.Hour)
	require.NoError(t, err)
	sweep.RunOnce()

	_, err = os.Stat(rolloutPath)
	require.NoError(t, err, "recent rollout file should be left in place")
}
