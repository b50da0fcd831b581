package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsUserLayerOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`[model]
provider = "openai"
`), 0o644))

	stack := NewStack()
	raw, err := DecodeTOMLLayer([]byte(`[model]
provider = "openai"
`))
	require.NoError(t, err)
	require.NoError(t, stack.SetLayer(LayerUser, raw))

	reloaded := make(chan error, 4)
	w := NewWatcher(stack, path, 10*time.Millisecond, func(err error) { reloaded <- err })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte(`[model]
provider = "anthropic"
`), 0o644))

	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	eff := stack.EffectiveConfig()
	model := eff["model"].(map[string]any)
	require.Equal(t, "anthropic", model["provider"])
}
