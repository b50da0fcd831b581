package approval

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// rulesFileSchema is the on-disk shape of CODEX_HOME/rules/default.rules
// (§6 CODEX_HOME layout). Each rule's pattern is a list of tokens; a token
// containing "|" is split into an any-of set (e.g. "rm|rmdir" matches
// either literal), mirroring PrefixRule.Pattern's Token union.
type rulesFileSchema struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	Pattern       []string `yaml:"pattern"`
	Decision      string   `yaml:"decision"`
	Justification string   `yaml:"justification"`
}

// DefaultRulesPath is where LoadRulesFile looks by default, under
// CODEX_HOME.
func DefaultRulesPath(codexHome string) string {
	return filepath.Join(codexHome, "rules", "default.rules")
}

// LoadRulesFile decodes a default.rules YAML document into the PrefixRule
// set NewExecPolicy expects. A missing file is not an error -- it returns a
// nil, nil result so callers fall back to an empty (prompt-everything)
// policy.
func LoadRulesFile(path string) ([]PrefixRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("approval: read rules file %s: %w", path, err)
	}

	var doc rulesFileSchema
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("approval: parse rules file %s: %w", path, err)
	}

	rules := make([]PrefixRule, 0, len(doc.Rules))
	for i, spec := range doc.Rules {
		rule, err := spec.toPrefixRule()
		if err != nil {
			return nil, fmt.Errorf("approval: rules file %s: rule %d: %w", path, i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (spec ruleSpec) toPrefixRule() (PrefixRule, error) {
	if len(spec.Pattern) == 0 {
		return PrefixRule{}, fmt.Errorf("empty pattern")
	}
	decision, err := parseDecision(spec.Decision)
	if err != nil {
		return PrefixRule{}, err
	}
	pattern := make([]Token, len(spec.Pattern))
	for i, raw := range spec.Pattern {
		if candidates := strings.Split(raw, "|"); len(candidates) > 1 {
			pattern[i] = Token{AnyOf: candidates}
		} else {
			pattern[i] = Token{Literal: raw}
		}
	}
	return PrefixRule{Pattern: pattern, Decision: decision, Justification: spec.Justification}, nil
}

func parseDecision(raw string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(raw))) {
	case DecisionAllow:
		return DecisionAllow, nil
	case DecisionPrompt:
		return DecisionPrompt, nil
	case DecisionForbidden:
		return DecisionForbidden, nil
	default:
		return "", fmt.Errorf("unknown decision %q", raw)
	}
}
