package streamparser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codex-engine/codex/internal/protocol"
)

type fakeUpstream struct {
	events []protocol.ParserEvent
	idx    int
}

func (f *fakeUpstream) Next(ctx context.Context) (protocol.ParserEvent, bool, error) {
	if f.idx >= len(f.events) {
		return protocol.ParserEvent{}, false, nil
	}
	ev := f.events[f.idx]
	f.idx++
	return ev, true, nil
}

func drain(t *testing.T, a *Aggregator) []protocol.ParserEvent {
	t.Helper()
	var out []protocol.ParserEvent
	for {
		ev, ok, err := a.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

func TestAggregator_SynthesizesMessageWhenOnlyDeltasSeen(t *testing.T) {
	up := &fakeUpstream{events: []protocol.ParserEvent{
		{Kind: protocol.ParserOutputTextDelta, Text: "hel"},
		{Kind: protocol.ParserOutputTextDelta, Text: "lo"},
		{Kind: protocol.ParserCompleted, ResponseID: "r1"},
	}}
	a := NewAggregator(up)
	events := drain(t, a)
	require.Len(t, events, 4)
	synthesized := events[2]
	require.Equal(t, protocol.ParserOutputItemDone, synthesized.Kind)
	require.Equal(t, protocol.ItemMessage, synthesized.Item.Kind)
	require.Equal(t, "hello", synthesized.Item.Text())
	require.Equal(t, protocol.ParserCompleted, events[3].Kind)
}

func TestAggregator_NoSynthesisWhenItemDoneProvided(t *testing.T) {
	up := &fakeUpstream{events: []protocol.ParserEvent{
		{Kind: protocol.ParserOutputTextDelta, Text: "hi"},
		{Kind: protocol.ParserOutputItemDone, Item: protocol.TextOnlyMessage(protocol.RoleAssistant, "hi")},
		{Kind: protocol.ParserCompleted},
	}}
	a := NewAggregator(up)
	events := drain(t, a)
	require.Len(t, events, 3)
	require.Equal(t, protocol.ParserCompleted, events[2].Kind)
}

func TestAggregator_ResetsBetweenTurns(t *testing.T) {
	up := &fakeUpstream{events: []protocol.ParserEvent{
		{Kind: protocol.ParserOutputTextDelta, Text: "first"},
		{Kind: protocol.ParserCompleted},
		{Kind: protocol.ParserOutputTextDelta, Text: "second"},
		{Kind: protocol.ParserCompleted},
	}}
	a := NewAggregator(up)
	events := drain(t, a)
	require.Len(t, events, 6)
	require.Equal(t, "first", events[1].Item.Text())
	require.Equal(t, "second", events[4].Item.Text())
}
