package rollout

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codex-engine/codex/internal/protocol"
)

func newTestMeta(id protocol.ThreadID) protocol.SessionMetaPayload {
	return protocol.SessionMetaPayload{
		ID:        id,
		Timestamp: time.Now().UTC(),
		Cwd:       "/work",
		Source:    protocol.SourceCLI,
	}
}

func TestRecorder_NoFileUntilMaterialized(t *testing.T) {
	dir := t.TempDir()
	id := protocol.NewThreadID()
	rec := NewRecorder(dir, newTestMeta(id), "")

	require.NoError(t, rec.RecordTurnContext(protocol.TurnContext{SubID: "s1"}))
	require.False(t, rec.IsMaterialized())
	require.Empty(t, rec.Path())

	entries, _ := os.ReadDir(dir)
	require.Empty(t, entries)
}

func TestRecorder_MaterializesOnFirstUserMessage(t *testing.T) {
	dir := t.TempDir()
	id := protocol.NewThreadID()
	rec := NewRecorder(dir, newTestMeta(id), "")

	require.NoError(t, rec.RecordTurnContext(protocol.TurnContext{SubID: "s1"}))
	require.NoError(t, rec.RecordResponseItem(protocol.TextOnlyMessage(protocol.RoleUser, "hello")))
	require.True(t, rec.IsMaterialized())
	require.NoError(t, rec.Close())

	result, err := Load(rec.Path())
	require.NoError(t, err)
	require.Equal(t, 0, result.ParseErrors)
	require.Equal(t, id, result.ThreadID)
	require.Len(t, result.Items, 1)
	require.Equal(t, "hello", result.Items[0].Text())
}

func TestRecorder_OtherItemsNeverPersisted(t *testing.T) {
	dir := t.TempDir()
	id := protocol.NewThreadID()
	rec := NewRecorder(dir, newTestMeta(id), "")
	require.NoError(t, rec.RecordResponseItem(protocol.TextOnlyMessage(protocol.RoleUser, "go")))
	require.NoError(t, rec.RecordResponseItem(protocol.ResponseItem{Kind: protocol.ItemOther}))
	require.NoError(t, rec.Close())

	result, err := Load(rec.Path())
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
}
