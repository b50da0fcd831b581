package modelclient

import (
	"log/slog"

	"github.com/codex-engine/codex/internal/models"
)

// NewBedrockCatalogRefresher builds a CatalogRefresher whose Fetch lists
// foundation models from AWS Bedrock (internal/models.BedrockDiscovery),
// so an etag-mismatch refresh (§4.H) can pull in Bedrock-hosted models
// alongside whatever static catalog entries are already registered.
func NewBedrockCatalogRefresher(cfg models.BedrockDiscoveryConfig, catalog *models.Catalog, logger *slog.Logger) *CatalogRefresher {
	discovery := models.NewBedrockDiscovery(cfg, logger)
	return &CatalogRefresher{
		Catalog: catalog,
		Fetch:   discovery.Discover,
	}
}
