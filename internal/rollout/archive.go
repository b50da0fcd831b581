package rollout

import (
	"fmt"
	"os"
	"path/filepath"
)

// Archive moves rolloutPath verbatim into CODEX_HOME/archived_sessions,
// preserving the file's basename. Requires the rollout to already be
// materialized -- callers should check that before invoking this (§4.G).
func Archive(codexHome, rolloutPath string) (string, error) {
	if rolloutPath == "" {
		return "", fmt.Errorf("no rollout found for thread id")
	}
	if _, err := os.Stat(rolloutPath); err != nil {
		return "", fmt.Errorf("no rollout found for thread id")
	}
	dest := ArchivePath(codexHome, rolloutPath)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("rollout: archive: create archive dir: %w", err)
	}
	if err := os.Rename(rolloutPath, dest); err != nil {
		return "", fmt.Errorf("rollout: archive: move rollout: %w", err)
	}
	return dest, nil
}
