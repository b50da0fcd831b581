// Package approval implements the exec policy engine, the elicitation
// stopwatch, and the sandbox/network approval plumbing described for the
// engine's Approval & Sandbox Gate.
package approval

// Decision is the outcome of evaluating a command's argv against an
// ExecPolicy.
type Decision string

const (
	DecisionAllow     Decision = "allow"
	DecisionPrompt    Decision = "prompt"
	DecisionForbidden Decision = "forbidden"
)

// Token is one position in a prefix_rule pattern: either a literal string or
// an "any of" set of candidate literals.
type Token struct {
	Literal string
	AnyOf   []string
}

func (t Token) matches(word string) bool {
	if len(t.AnyOf) > 0 {
		for _, candidate := range t.AnyOf {
			if candidate == word {
				return true
			}
		}
		return false
	}
	return t.Literal == word
}

// PrefixRule matches an ordered token pattern against the leading tokens of
// an argv; the longest matching pattern wins (§4.D exec policy engine).
type PrefixRule struct {
	Pattern       []Token
	Decision      Decision
	Justification string
}

// matches reports whether rule's pattern is a prefix-match of argv.
func (rule PrefixRule) matches(argv []string) bool {
	if len(rule.Pattern) > len(argv) {
		return false
	}
	for i, tok := range rule.Pattern {
		if !tok.matches(argv[i]) {
			return false
		}
	}
	return true
}

// ExecPolicy is an ordered set of prefix rules plus amendments accepted
// during the session (§4.D "cursor/route updates").
type ExecPolicy struct {
	rules []PrefixRule
}

// NewExecPolicy builds a policy from a fixed rule set.
func NewExecPolicy(rules []PrefixRule) *ExecPolicy {
	return &ExecPolicy{rules: append([]PrefixRule(nil), rules...)}
}

// Evaluate chooses the longest-pattern rule matching argv as a prefix and
// returns its decision and justification. No match yields DecisionPrompt
// with an empty justification -- unknown commands are never silently
// allowed or silently forbidden.
func (p *ExecPolicy) Evaluate(argv []string) (Decision, string) {
	var best *PrefixRule
	for i := range p.rules {
		rule := &p.rules[i]
		if !rule.matches(argv) {
			continue
		}
		if best == nil || len(rule.Pattern) > len(best.Pattern) {
			best = rule
		}
	}
	if best == nil {
		return DecisionPrompt, ""
	}
	return best.Decision, best.Justification
}

// Amend appends a new Allow rule for the given literal command, accepted by
// the user for the remainder of the session (§4.D ExecPolicyAmendment).
func (p *ExecPolicy) Amend(amendment ExecPolicyAmendment) {
	pattern := make([]Token, len(amendment.Command))
	for i, word := range amendment.Command {
		pattern[i] = Token{Literal: word}
	}
	p.rules = append(p.rules, PrefixRule{
		Pattern:  pattern,
		Decision: DecisionAllow,
	})
}

// ExecPolicyAmendment carries a user-accepted command prefix that should be
// allowed for the rest of the session.
type ExecPolicyAmendment struct {
	Command []string
}
