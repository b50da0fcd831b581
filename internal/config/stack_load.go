package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// LoadStack builds the five-layer Stack (§4.I, §6 CODEX_HOME layout).
// baseDefaults and systemManaged are supplied by the caller (embedded
// defaults and OS-managed preferences respectively, neither of which has
// a fixed on-disk path); the project layer is read from
// <projectDir>/codex.toml if present, and the user layer from
// <codexHome>/config.toml if present. Session overrides are left empty;
// callers set them later via Stack.SetLayer(LayerSession, ...).
func LoadStack(codexHome, projectDir string, baseDefaults, systemManaged map[string]any) (*Stack, error) {
	stack := NewStack()
	if err := stack.SetLayer(LayerBaseDefaults, baseDefaults); err != nil {
		return nil, err
	}
	if err := stack.SetLayer(LayerSystemManaged, systemManaged); err != nil {
		return nil, err
	}

	if projectDir != "" {
		raw, err := loadTOMLFileIfExists(filepath.Join(projectDir, "codex.toml"))
		if err != nil {
			return nil, err
		}
		if raw != nil {
			if err := stack.SetLayer(LayerProjectDefaults, raw); err != nil {
				return nil, err
			}
		}
	}

	userPath := filepath.Join(codexHome, "config.toml")
	raw, err := loadTOMLFileIfExists(userPath)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		if err := stack.SetLayer(LayerUser, raw); err != nil {
			return nil, err
		}
	}
	return stack, nil
}

func loadTOMLFileIfExists(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return DecodeTOMLLayer(data)
}
