package modelclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codex-engine/codex/internal/models"
)

func TestNewBedrockCatalogRefresher_DisabledIsNoop(t *testing.T) {
	catalog := models.NewCatalog()
	before := len(catalog.List(nil))
	refresher := NewBedrockCatalogRefresher(models.BedrockDiscoveryConfig{}, catalog, nil)

	require.NoError(t, refresher.Refresh(context.Background()))
	require.Len(t, catalog.List(nil), before)
}
