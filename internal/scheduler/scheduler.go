// Package scheduler implements the per-thread cooperative task runner
// (§4.F Turn Scheduler): at most one RunningTask per thread, explicit
// suspension points, cancel/replace/graceful-shutdown semantics, and a
// FIFO pending-input queue that folds queued user submissions into the
// active turn's next model round-trip.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/codex-engine/codex/internal/observability"
	"github.com/codex-engine/codex/internal/protocol"
)

// GracefulAbortWindow is how long abort_all_tasks waits for a task to
// acknowledge cancellation before forcibly detaching it (§4.F, §5).
const GracefulAbortWindow = 100 * time.Millisecond

// Reason values for a turn-abort event. Any string is valid; these cover
// the cases the scheduler itself raises.
const (
	ReasonReplaced = "replaced"
	ReasonUser     = "user"
	ReasonShutdown = "shutdown"
)

// TaskFunc is the body of a scheduled task. It must observe ctx
// cancellation at its suspension points and return promptly once
// cancelled -- the scheduler has no way to forcibly stop a goroutine that
// doesn't cooperate. input is the turn's initial queued items; the task
// calls ActiveTurn.DrainPending on each model round-trip to fold in any
// input submitted while the turn was in progress.
type TaskFunc func(ctx context.Context, turn *ActiveTurn, input []protocol.ResponseItem) (lastAgentMessage string, err error)

// ActiveTurn is the single running task for a thread. It carries the
// cancellation token every suspension point in the task body observes,
// and the pending-input queue the task drains between round-trips.
type ActiveTurn struct {
	SubID       string
	TurnContext protocol.TurnContext

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	pending []protocol.ResponseItem
}

// Context returns the task's cancellation-aware context.
func (t *ActiveTurn) Context() context.Context { return t.ctx }

// DrainPending removes and returns all items queued via the scheduler's
// SubmitInput since the last drain, in FIFO order.
func (t *ActiveTurn) DrainPending() []protocol.ResponseItem {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pending) == 0 {
		return nil
	}
	items := t.pending
	t.pending = nil
	return items
}

func (t *ActiveTurn) enqueue(items []protocol.ResponseItem) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, items...)
}

// Scheduler owns the single active task for one thread, per §5's
// "each Thread owns exactly one scheduler" rule.
type Scheduler struct {
	threadID protocol.ThreadID
	events   chan<- protocol.EventMsg

	mu     sync.Mutex
	active *ActiveTurn

	// Logger, if set, records task lifecycle transitions. Nil disables
	// logging entirely.
	Logger *observability.Logger
}

// New creates a scheduler for a thread. events receives the lifecycle
// events (TurnStarted/TaskComplete/TurnAborted); it may be nil.
func New(threadID protocol.ThreadID, events chan<- protocol.EventMsg) *Scheduler {
	return &Scheduler{threadID: threadID, events: events}
}

func (s *Scheduler) emit(e protocol.EventMsg) {
	if s.events != nil {
		s.events <- e
	}
}

func (s *Scheduler) logf(msg string, args ...any) {
	if s.Logger == nil {
		return
	}
	s.Logger.Info(context.Background(), msg, append(args, "thread_id", s.threadID)...)
}

// SpawnTask implements §4.F's lifecycle: abort any existing task with
// reason Replaced, install a new ActiveTurn, and run task. Emits
// TurnStarted synchronously before returning so callers observe it
// ordered ahead of any streaming deltas the task produces.
func (s *Scheduler) SpawnTask(ctx context.Context, turnCtx protocol.TurnContext, subID string, input []protocol.ResponseItem, task TaskFunc) {
	s.mu.Lock()
	if s.active != nil {
		prior := s.active
		s.active = nil
		s.mu.Unlock()
		s.abort(prior, ReasonReplaced)
		s.mu.Lock()
	}

	taskCtx, cancel := context.WithCancel(ctx)
	turn := &ActiveTurn{
		SubID:       subID,
		TurnContext: turnCtx,
		ctx:         taskCtx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	s.active = turn
	s.mu.Unlock()

	s.logf("scheduler: task spawned", "sub_id", subID)
	s.emit(protocol.EventMsg{Type: protocol.EventTurnStarted, SubID: subID})
	go s.run(turn, task, input)
}

// SubmitInput enqueues items for the thread's in-progress turn, or spawns
// a fresh turn via task if none is running (§4.F pending-input queue).
func (s *Scheduler) SubmitInput(ctx context.Context, turnCtx protocol.TurnContext, subID string, items []protocol.ResponseItem, task TaskFunc) {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active != nil {
		active.enqueue(items)
		return
	}
	s.SpawnTask(ctx, turnCtx, subID, items, task)
}

func (s *Scheduler) run(turn *ActiveTurn, task TaskFunc, input []protocol.ResponseItem) {
	defer close(turn.done)

	lastAgentMsg, err := task(turn.ctx, turn, input)

	s.mu.Lock()
	isCurrent := s.active == turn
	if isCurrent {
		s.active = nil
	}
	s.mu.Unlock()
	if !isCurrent {
		// Already replaced or aborted; that path already emitted its event.
		return
	}

	if turn.ctx.Err() != nil {
		s.logf("scheduler: task aborted", "sub_id", turn.SubID, "reason", ReasonUser)
		s.emit(protocol.EventMsg{Type: protocol.EventTurnAborted, SubID: turn.SubID, Reason: ReasonUser})
		return
	}
	if err != nil {
		s.logf("scheduler: task failed", "sub_id", turn.SubID, "error", err)
		s.emit(protocol.EventMsg{Type: protocol.EventTurnAborted, SubID: turn.SubID, Reason: err.Error()})
		return
	}
	s.logf("scheduler: task completed", "sub_id", turn.SubID)
	s.emit(protocol.EventMsg{Type: protocol.EventTaskComplete, SubID: turn.SubID, LastAgentMsg: lastAgentMsg})

	// A fresh turn starts for whatever queued while this one was running.
	if remaining := turn.DrainPending(); len(remaining) > 0 {
		s.SpawnTask(context.Background(), turn.TurnContext, turn.SubID, remaining, task)
	}
}

// AbortAllTasks signals the active task's cancellation token and waits up
// to GracefulAbortWindow for it to acknowledge by returning (closing
// done); past the deadline it gives up waiting and treats the task as
// forcibly aborted. Emits TurnAborted either way. No-op if no task is
// running.
func (s *Scheduler) AbortAllTasks(reason string) {
	s.mu.Lock()
	turn := s.active
	s.active = nil
	s.mu.Unlock()
	if turn == nil {
		return
	}
	s.abort(turn, reason)
}

func (s *Scheduler) abort(turn *ActiveTurn, reason string) {
	turn.cancel()
	select {
	case <-turn.done:
	case <-time.After(GracefulAbortWindow):
		s.logf("scheduler: abort window elapsed, forcibly detaching task", "sub_id", turn.SubID, "reason", reason)
	}
	s.emit(protocol.EventMsg{Type: protocol.EventTurnAborted, SubID: turn.SubID, Reason: reason})
}

// Active reports whether a task is currently running.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}
