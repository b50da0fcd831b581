package approval

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStopwatch_FiresAfterBudget(t *testing.T) {
	sw := NewStopwatch(30 * time.Millisecond)
	defer sw.Stop()
	select {
	case <-sw.CancellationToken():
	case <-time.After(200 * time.Millisecond):
		t.Fatal("stopwatch did not fire within budget")
	}
}

func TestStopwatch_PauseExcludesElapsed(t *testing.T) {
	sw := NewStopwatch(60 * time.Millisecond)
	defer sw.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = sw.PauseFor(context.Background(), func(ctx context.Context) error {
			time.Sleep(150 * time.Millisecond)
			return nil
		})
	}()
	wg.Wait()

	select {
	case <-sw.CancellationToken():
		t.Fatal("stopwatch must not fire while paused, even past the nominal budget")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestStopwatch_NestedPauseRefCounts(t *testing.T) {
	sw := NewStopwatch(50 * time.Millisecond)
	defer sw.Stop()

	sw.pause()
	sw.pause()
	sw.resume() // still paused, one outstanding pause

	time.Sleep(100 * time.Millisecond)
	select {
	case <-sw.CancellationToken():
		t.Fatal("stopwatch must stay paused until every nested pause resumes")
	default:
	}

	sw.resume() // now fully resumed; budget was already exhausted while paused
	select {
	case <-sw.CancellationToken():
	case <-time.After(50 * time.Millisecond):
		t.Fatal("stopwatch should fire promptly once resumed past an already-exhausted budget")
	}
}
