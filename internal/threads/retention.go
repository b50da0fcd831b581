package threads

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/codex-engine/codex/internal/rollout"
)

// retentionCronParser accepts the same standard 5-field and seconds-optional
// 6-field cron syntax the teacher's internal/tasks scheduler parses for its
// due-task schedules.
var retentionCronParser = cron.NewParser(
	cron.SecondOptional |
		cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// RetentionSweep runs on a cron schedule and archives every thread whose
// SessionMetaPayload timestamp is older than MaxAge, per §4.G's retention
// policy. It only archives materialized (on-disk) threads discovered via
// internal/rollout; threads still open in the owning Manager's in-memory
// map are archived the same way ArchiveThread would, since the sweep has no
// way to know whether a caller is mid-turn on one.
type RetentionSweep struct {
	mgr      *Manager
	schedule string
	maxAge   time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRetentionSweep builds a sweep for mgr. schedule is a cron expression
// (e.g. "0 3 * * *" for daily at 03:00); maxAge is how old a thread's
// session_meta timestamp must be before it is archived.
func NewRetentionSweep(mgr *Manager, schedule string, maxAge time.Duration) (*RetentionSweep, error) {
	if _, err := retentionCronParser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("threads: parse retention schedule %q: %w", schedule, err)
	}
	return &RetentionSweep{mgr: mgr, schedule: schedule, maxAge: maxAge}, nil
}

// Start runs the sweep loop until ctx is cancelled or Stop is called.
func (rs *RetentionSweep) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	rs.cancel = cancel
	rs.done = make(chan struct{})
	go rs.loop(runCtx)
}

// Stop cancels the sweep loop and waits for it to exit.
func (rs *RetentionSweep) Stop() {
	if rs.cancel != nil {
		rs.cancel()
	}
	if rs.done != nil {
		<-rs.done
	}
}

func (rs *RetentionSweep) loop(ctx context.Context) {
	defer close(rs.done)
	sched, err := retentionCronParser.Parse(rs.schedule)
	if err != nil {
		// Validated in NewRetentionSweep; unreachable in practice.
		return
	}
	for {
		next := sched.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			rs.RunOnce()
		}
	}
}

// RunOnce archives every discoverable thread older than maxAge. Errors
// archiving one thread don't stop the sweep from considering the rest.
// Exported so callers can force an immediate sweep outside the schedule.
func (rs *RetentionSweep) RunOnce() {
	cutoff := time.Now().Add(-rs.maxAge)
	summaries, _, err := rollout.ListByRecency(rs.mgr.codexHome, 0, "")
	if err != nil {
		rs.mgr.logf("threads: retention sweep list failed", "error", err)
		return
	}
	archived := 0
	for _, s := range summaries {
		if s.Meta.Timestamp.After(cutoff) {
			continue
		}
		dest, err := rollout.Archive(rs.mgr.codexHome, s.Path)
		if err != nil {
			rs.mgr.logf("threads: retention sweep archive failed", "path", s.Path, "error", err)
			continue
		}
		rs.mgr.mu.Lock()
		if h, ok := rs.mgr.open[s.Meta.ID]; ok {
			h.setRolloutPath(dest)
			delete(rs.mgr.open, s.Meta.ID)
		}
		rs.mgr.mu.Unlock()
		archived++
	}
	rs.mgr.logf("threads: retention sweep complete", "archived", archived, "cutoff", cutoff)
}
