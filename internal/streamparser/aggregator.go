// Package streamparser incrementally consumes UTF-8 chunks from a model
// stream and yields visible text, reasoning, and completed response items,
// per spec §4.A.
package streamparser

import (
	"context"

	"github.com/codex-engine/codex/internal/observability"
	"github.com/codex-engine/codex/internal/protocol"
)

// Upstream is the raw event source the Aggregator wraps: a provider's
// token-delta stream, expressed as the same ParserEvent union the
// Aggregator itself emits downstream.
type Upstream interface {
	Next(ctx context.Context) (protocol.ParserEvent, bool, error)
}

// Aggregator is the stream-of-stream adapter described in §4.A: it
// guarantees the downstream consumer sees exactly one assistant message
// item (and, if reasoning text was streamed, exactly one Reasoning item)
// per turn, regardless of whether the provider emits item-granular events
// or only token deltas.
type Aggregator struct {
	upstream Upstream

	// Logger, if set, records turn synthesis and upstream errors. Nil
	// disables logging entirely.
	Logger *observability.Logger

	cumulative          string
	cumulativeReasoning string
	sawTextDelta        bool
	sawReasoningDelta   bool
	sawAssistantDone    bool
	pendingQueue        []protocol.ParserEvent
}

// NewAggregator wraps upstream with the synthesis guarantee.
func NewAggregator(upstream Upstream) *Aggregator {
	return &Aggregator{upstream: upstream}
}

func (a *Aggregator) logf(ctx context.Context, msg string, args ...any) {
	if a.Logger == nil {
		return
	}
	a.Logger.Debug(ctx, msg, args...)
}

// Next returns the next event, synthesizing a Message/Reasoning item just
// before re-emitting Completed when the provider never sent one itself.
func (a *Aggregator) Next(ctx context.Context) (protocol.ParserEvent, bool, error) {
	if len(a.pendingQueue) > 0 {
		ev := a.pendingQueue[0]
		a.pendingQueue = a.pendingQueue[1:]
		return ev, true, nil
	}

	ev, ok, err := a.upstream.Next(ctx)
	if err != nil || !ok {
		if err != nil {
			a.logf(ctx, "streamparser: upstream error", "error", err)
		}
		return ev, ok, err
	}

	switch ev.Kind {
	case protocol.ParserOutputTextDelta:
		a.sawTextDelta = true
		a.cumulative += ev.Text
		return ev, true, nil
	case protocol.ParserReasoningContentDelta, protocol.ParserReasoningSummaryDelta:
		a.sawReasoningDelta = true
		a.cumulativeReasoning += ev.Text
		return ev, true, nil
	case protocol.ParserOutputItemDone:
		if ev.Item.Kind == protocol.ItemMessage && ev.Item.Role == protocol.RoleAssistant {
			a.sawAssistantDone = true
		}
		return ev, true, nil
	case protocol.ParserCompleted:
		return a.completeTurn(ev), true, nil
	default:
		return ev, true, nil
	}
}

// completeTurn synthesizes missing items and resets per-turn state.
func (a *Aggregator) completeTurn(completed protocol.ParserEvent) protocol.ParserEvent {
	synth := a.synthesize()
	a.reset()
	if len(synth) == 0 {
		return completed
	}
	a.logf(context.Background(), "streamparser: synthesized missing turn items", "count", len(synth))
	a.pendingQueue = append(synth, completed)
	first := a.pendingQueue[0]
	a.pendingQueue = a.pendingQueue[1:]
	return first
}

func (a *Aggregator) synthesize() []protocol.ParserEvent {
	var out []protocol.ParserEvent
	if a.sawReasoningDelta {
		item := protocol.ResponseItem{Kind: protocol.ItemReasoning, ReasoningContent: a.cumulativeReasoning}
		out = append(out, protocol.ParserEvent{Kind: protocol.ParserOutputItemDone, Item: item})
	}
	if a.sawTextDelta && !a.sawAssistantDone {
		item := protocol.TextOnlyMessage(protocol.RoleAssistant, a.cumulative)
		out = append(out, protocol.ParserEvent{Kind: protocol.ParserOutputItemDone, Item: item})
	}
	return out
}

func (a *Aggregator) reset() {
	a.cumulative = ""
	a.cumulativeReasoning = ""
	a.sawTextDelta = false
	a.sawReasoningDelta = false
	a.sawAssistantDone = false
}
