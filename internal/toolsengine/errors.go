// Package toolsengine is the Tool Registry & Invoker: it dispatches
// function/tool calls to named handlers and enforces the per-tool
// parallelism rule.
package toolsengine

// FunctionCallError is the sum type a Handler returns on failure. The two
// variants are distinct types (not a single error with a flag) per the
// requirement that RespondToModel and Fatal be told apart at the type
// level: RespondToModel surfaces Message to the model as the call's output
// and the turn continues; Fatal aborts the turn entirely.
type FunctionCallError interface {
	isFunctionCallError()
	Error() string
}

// RespondToModel wraps a message that should be returned to the model as
// the tool call's output, without aborting the turn.
type RespondToModel string

func (RespondToModel) isFunctionCallError() {}
func (e RespondToModel) Error() string      { return string(e) }

// Fatal wraps a message that should abort the turn.
type Fatal string

func (Fatal) isFunctionCallError() {}
func (e Fatal) Error() string      { return string(e) }
