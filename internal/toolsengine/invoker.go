package toolsengine

import (
	"context"
	"fmt"
	"sync"
)

// Result is one call's outcome from a batch dispatch.
type Result struct {
	CallID string
	Output Output
	Err    FunctionCallError
}

// ExecuteBatch dispatches a batch of invocations emitted together by the
// model. Per §4.E's parallelism rule: when every call in the batch targets
// a parallel-safe handler, they execute concurrently; otherwise the whole
// batch executes sequentially in emission order. A Fatal result in
// sequential mode stops the remaining calls in the batch from running (the
// turn is aborting anyway); in concurrent mode every call has already been
// started so all results are returned.
func ExecuteBatch(ctx context.Context, registry *Registry, invocations []Invocation) []Result {
	if len(invocations) == 0 {
		return nil
	}

	if allParallelSafe(registry, invocations) {
		return executeConcurrently(ctx, registry, invocations)
	}
	return executeSequentially(ctx, registry, invocations)
}

func allParallelSafe(registry *Registry, invocations []Invocation) bool {
	for _, inv := range invocations {
		h, ok := registry.Get(inv.Name)
		if !ok || !h.ParallelSafe() {
			return false
		}
	}
	return true
}

func checkPolicy(ctx context.Context, registry *Registry, inv Invocation) *Result {
	if allowed, reason := registry.Allowed(inv.Name); !allowed {
		registry.logf(ctx, "toolsengine: call denied by policy", "tool", inv.Name, "call_id", inv.CallID, "reason", reason)
		return &Result{CallID: inv.CallID, Err: RespondToModel(fmt.Sprintf("tool %s denied: %s", inv.Name, reason))}
	}
	return nil
}

func executeConcurrently(ctx context.Context, registry *Registry, invocations []Invocation) []Result {
	results := make([]Result, len(invocations))
	var wg sync.WaitGroup
	wg.Add(len(invocations))
	for i, inv := range invocations {
		go func(i int, inv Invocation) {
			defer wg.Done()
			results[i] = invokeOne(ctx, registry, inv)
		}(i, inv)
	}
	wg.Wait()
	return results
}

func executeSequentially(ctx context.Context, registry *Registry, invocations []Invocation) []Result {
	results := make([]Result, 0, len(invocations))
	for _, inv := range invocations {
		result := invokeOne(ctx, registry, inv)
		results = append(results, result)
		if _, fatal := result.Err.(Fatal); fatal {
			break
		}
	}
	return results
}

func invokeOne(ctx context.Context, registry *Registry, inv Invocation) Result {
	if denied := checkPolicy(ctx, registry, inv); denied != nil {
		return *denied
	}
	h, ok := registry.Get(inv.Name)
	if !ok {
		registry.logf(ctx, "toolsengine: tool not found", "tool", inv.Name, "call_id", inv.CallID)
		return Result{CallID: inv.CallID, Err: RespondToModel(fmt.Sprintf("tool not found: %s", inv.Name))}
	}
	if !h.MatchesKind(inv.Payload) {
		return Result{CallID: inv.CallID, Err: RespondToModel(fmt.Sprintf("tool %s: payload does not match handler kind", inv.Name))}
	}
	output, err := h.Invoke(ctx, inv)
	if err != nil {
		registry.logf(ctx, "toolsengine: call failed", "tool", inv.Name, "call_id", inv.CallID, "error", err)
	} else {
		registry.logf(ctx, "toolsengine: call completed", "tool", inv.Name, "call_id", inv.CallID, "success", output.Success)
	}
	return Result{CallID: inv.CallID, Output: output, Err: err}
}
