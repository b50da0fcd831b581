package rollout

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/codex-engine/codex/internal/observability"
	"github.com/codex-engine/codex/internal/protocol"
)

// Recorder is a single append-only writer for one thread's rollout file.
// Writes are serialized through this type's mutex (§5: "rollout writes are
// serialized through a single writer task per Thread").
type Recorder struct {
	mu sync.Mutex

	codexHome string
	path      string // empty until materialized
	meta      protocol.SessionMetaPayload

	materialized  bool
	pending       []pendingLine
	lastTimestamp time.Time
	file          *os.File

	// Logger, if set, records materialization and write failures. Nil
	// disables logging entirely.
	Logger *observability.Logger
}

type pendingLine struct {
	typ     protocol.RolloutLineType
	payload any
}

// NewRecorder constructs a Recorder for a freshly created (or resumed, with
// an existing path) thread. No file is created by this call.
func NewRecorder(codexHome string, meta protocol.SessionMetaPayload, existingPath string) *Recorder {
	return &Recorder{codexHome: codexHome, meta: meta, path: existingPath, materialized: existingPath != ""}
}

func (r *Recorder) logf(msg string, args ...any) {
	if r.Logger == nil {
		return
	}
	r.Logger.Debug(context.Background(), msg, args...)
}

func (r *Recorder) logErr(msg string, err error, args ...any) {
	if r.Logger == nil {
		return
	}
	r.Logger.Error(context.Background(), msg, append(args, "error", err)...)
}

// Path returns the rollout file path, empty if not yet materialized.
func (r *Recorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// RecordTurnContext always persists per §4.B, buffered until materialization.
func (r *Recorder) RecordTurnContext(tc protocol.TurnContext) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enqueue(protocol.LineTurnContext, tc)
}

// RecordCompacted always persists per §4.B, buffered until materialization.
func (r *Recorder) RecordCompacted(c protocol.CompactedPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enqueue(protocol.LineCompacted, c)
}

// RecordResponseItem applies the §4.B persistence policy. A user-originated
// message item triggers materialization if not already materialized.
func (r *Recorder) RecordResponseItem(item protocol.ResponseItem) error {
	if !protocol.ShouldPersistItem(item.Kind) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.materialized && item.Kind == protocol.ItemMessage && item.Role == protocol.RoleUser {
		if err := r.materializeLocked(); err != nil {
			return err
		}
	}
	return r.enqueue(protocol.LineResponseItem, item)
}

// RecordEvent applies the §4.B event persistence predicate.
func (r *Recorder) RecordEvent(event protocol.EventMsg) error {
	if !protocol.ShouldPersistEvent(event) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enqueue(protocol.LineEventMsg, event)
}

// enqueue buffers a line if not yet materialized, otherwise writes
// immediately. Caller must hold r.mu.
func (r *Recorder) enqueue(typ protocol.RolloutLineType, payload any) error {
	if !r.materialized {
		r.pending = append(r.pending, pendingLine{typ: typ, payload: payload})
		return nil
	}
	return r.writeLocked(typ, payload)
}

// materializeLocked creates the file on disk, writes session_meta first
// (invariant: first line of a non-empty rollout is session_meta), then
// flushes anything buffered so far. Caller must hold r.mu.
func (r *Recorder) materializeLocked() error {
	if r.path == "" {
		r.path = SessionsPath(r.codexHome, r.meta.Timestamp, r.meta.ID)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		r.logErr("rollout: create session dir failed", err, "path", r.path)
		return fmt.Errorf("rollout: create session dir: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		r.logErr("rollout: open rollout file failed", err, "path", r.path)
		return fmt.Errorf("rollout: open rollout file: %w", err)
	}
	r.file = f
	r.materialized = true
	r.logf("rollout: materialized session file", "path", r.path, "pending", len(r.pending))

	if err := r.writeLocked(protocol.LineSessionMeta, r.meta); err != nil {
		return err
	}
	pending := r.pending
	r.pending = nil
	for _, p := range pending {
		if err := r.writeLocked(p.typ, p.payload); err != nil {
			return err
		}
	}
	// Pin the file's modification time to the meta timestamp (§6).
	_ = os.Chtimes(r.path, r.meta.Timestamp, r.meta.Timestamp)
	return nil
}

// writeLocked marshals and appends one line, enforcing monotonic
// timestamps within the file. Caller must hold r.mu and r.file != nil.
func (r *Recorder) writeLocked(typ protocol.RolloutLineType, payload any) error {
	ts := time.Now().UTC()
	if !r.lastTimestamp.IsZero() && ts.Before(r.lastTimestamp) {
		ts = r.lastTimestamp
	}
	r.lastTimestamp = ts

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("rollout: marshal payload: %w", err)
	}
	line := protocol.RolloutLine{Timestamp: ts, Type: typ, Payload: raw}
	encoded, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("rollout: marshal line: %w", err)
	}
	if _, err := r.file.Write(append(encoded, '\n')); err != nil {
		return fmt.Errorf("rollout: append line: %w", err)
	}
	return nil
}

// Close releases the underlying file handle, if any. Per §5, no rollout
// file is held open across await points between record batches in the
// broader engine; Recorder itself may be kept open for a session's
// lifetime and closed when the thread goes idle or is archived.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// IsMaterialized reports whether the rollout file has been created.
func (r *Recorder) IsMaterialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.materialized
}
