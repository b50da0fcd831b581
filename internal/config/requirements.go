package config

import (
	"strings"
	"sync"
)

// FieldRequirement is one key's constraint: the dotted path into the
// merged effective config it governs, its allowed value set (empty means
// unconstrained), and whether the key must be present and non-empty.
type FieldRequirement struct {
	Path     string
	Allowed  []string
	Required bool
}

// Requirements is the ConfigRequirements object: a set of field
// constraints checked against a Stack's EffectiveConfig output. Unlike
// Constrained[T], which guards a single Go-typed field against direct Set
// calls, Requirements validates the merged, TOML-sourced config tree as a
// whole -- the two compose: Requirements.Validate is what a caller runs
// after every SetLayer before trusting EffectiveConfig.
type Requirements struct {
	mu     sync.RWMutex
	fields map[string]FieldRequirement
}

// NewRequirements creates an empty Requirements set.
func NewRequirements() *Requirements {
	return &Requirements{fields: make(map[string]FieldRequirement)}
}

// Require registers (or replaces) the constraint for a dotted config path.
func (r *Requirements) Require(path string, allowed []string, required bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[path] = FieldRequirement{Path: path, Allowed: allowed, Required: required}
}

// Validate checks effective against every registered field constraint,
// returning the first violation as an *InvalidValue or *EmptyField.
func (r *Requirements) Validate(effective map[string]any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for path, req := range r.fields {
		val, ok := lookupPath(effective, path)
		str, isString := val.(string)
		if !ok || (isString && strings.TrimSpace(str) == "") {
			if req.Required {
				return &EmptyField{Field: path}
			}
			continue
		}
		if !isString || len(req.Allowed) == 0 {
			continue
		}
		allowed := false
		for _, a := range req.Allowed {
			if a == str {
				allowed = true
				break
			}
		}
		if !allowed {
			return &InvalidValue{Field: path, Candidate: str, Allowed: req.Allowed}
		}
	}
	return nil
}

// lookupPath walks a dot-separated path ("a.b.c") through nested
// map[string]any values, as produced by EffectiveConfig.
func lookupPath(root map[string]any, path string) (any, bool) {
	cur := any(root)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}
