package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"
)

// LayerKind names one of the five precedence slots in the config stack,
// lowest precedence first (§4.I).
type LayerKind int

const (
	LayerBaseDefaults LayerKind = iota
	LayerSystemManaged
	LayerProjectDefaults
	LayerUser
	LayerSession
)

func (k LayerKind) String() string {
	switch k {
	case LayerBaseDefaults:
		return "base_defaults"
	case LayerSystemManaged:
		return "system_managed"
	case LayerProjectDefaults:
		return "project_defaults"
	case LayerUser:
		return "user"
	case LayerSession:
		return "session"
	default:
		return "unknown"
	}
}

// layerOrder is the fixed lowest-to-highest precedence sequence EffectiveConfig
// walks. Exactly one Layer occupies each slot; LayerUser is the single user
// config.toml layer the spec requires to be unique by construction.
var layerOrder = []LayerKind{LayerBaseDefaults, LayerSystemManaged, LayerProjectDefaults, LayerUser, LayerSession}

// Layer is one named slot in the config stack: a raw key/value map decoded
// from TOML, plus the content hash of that map at the time it was set.
type Layer struct {
	Kind   LayerKind
	Values map[string]any
	Hash   string
}

// hashValues returns the hex sha256 of values' canonical JSON encoding.
// encoding/json sorts map keys on marshal, so two maps with the same
// content hash identically regardless of how they were built.
func hashValues(values map[string]any) (string, error) {
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("config: hash layer: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func newLayer(kind LayerKind, values map[string]any) (Layer, error) {
	if values == nil {
		values = map[string]any{}
	}
	hash, err := hashValues(values)
	if err != nil {
		return Layer{}, err
	}
	return Layer{Kind: kind, Values: values, Hash: hash}, nil
}

// DecodeTOMLLayer parses TOML bytes into the raw map a layer is built from.
// Retargets loader.go's parseRawBytes at TOML (the teacher decodes YAML or
// json5 by file extension; config.toml is always TOML, so there is no
// format-sniffing step here).
func DecodeTOMLLayer(data []byte) (map[string]any, error) {
	var raw map[string]any
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, fmt.Errorf("config: decode toml layer: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// Stack holds the five precedence layers and answers EffectiveConfig
// queries. One *Stack is shared by every reader of the merged config; all
// mutation goes through SetLayer.
type Stack struct {
	mu     sync.RWMutex
	layers map[LayerKind]Layer
}

// NewStack creates a Stack with all five layers empty.
func NewStack() *Stack {
	s := &Stack{layers: make(map[LayerKind]Layer, len(layerOrder))}
	for _, k := range layerOrder {
		s.layers[k] = Layer{Kind: k, Values: map[string]any{}}
	}
	return s
}

// SetLayer replaces one layer's values and recomputes its content hash.
// Calling SetLayer(LayerUser, ...) again replaces the prior user layer
// rather than stacking a second one, satisfying "exactly one User layer".
func (s *Stack) SetLayer(kind LayerKind, values map[string]any) error {
	layer, err := newLayer(kind, values)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers[kind] = layer
	return nil
}

// Layer returns a copy of one layer's current state.
func (s *Stack) Layer(kind LayerKind) Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layers[kind]
}

// EffectiveConfig deep-merges every layer lowest-precedence-first: a key in
// a higher layer overrides the same key in a lower one, nested maps merge
// recursively, anything else replaces outright.
func (s *Stack) EffectiveConfig() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	merged := map[string]any{}
	for _, k := range layerOrder {
		merged = mergeLayerValues(merged, s.layers[k].Values)
	}
	return merged
}

// mergeLayerValues deep-merges src over dst, mutating and returning dst.
// Grounded on loader.go's mergeMaps: the same recursive map[string]any
// merge, retargeted from $include-resolved YAML/json5 documents to the
// layer stack's in-memory TOML-decoded maps.
func mergeLayerValues(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for key, value := range src {
		if valueMap, ok := value.(map[string]any); ok {
			if existing, ok := dst[key].(map[string]any); ok {
				dst[key] = mergeLayerValues(existing, valueMap)
				continue
			}
		}
		dst[key] = value
	}
	return dst
}
