// Package threads implements the Thread Manager (§4.G): creating,
// resuming, forking, archiving and rolling back threads, and discovering
// them by id, name, or recency. It owns Thread identity and the Recorder
// writer; persisted history and replay mechanics live in internal/rollout.
package threads

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/codex-engine/codex/internal/contextmgr"
	"github.com/codex-engine/codex/internal/observability"
	"github.com/codex-engine/codex/internal/protocol"
	"github.com/codex-engine/codex/internal/rollout"
)

// Config seeds a newly created thread.
type Config struct {
	Cwd              string
	Originator       string
	CLIVersion       string
	ModelProvider    string
	BaseInstructions string
	Source           protocol.Source
	Name             string
	Git              *protocol.GitInfo
}

// Handle bundles a Thread's identity with its rollout writer. It is the
// unit the Thread Manager hands back from every lifecycle operation.
type Handle struct {
	mu       sync.RWMutex
	thread   protocol.Thread
	recorder *rollout.Recorder
}

// Thread returns a defensive copy of the current thread metadata.
func (h *Handle) Thread() protocol.Thread {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.thread
}

// Recorder returns the handle's rollout writer.
func (h *Handle) Recorder() *rollout.Recorder {
	return h.recorder
}

func (h *Handle) setRolloutPath(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.thread.RolloutPath = path
}

// Manager owns the set of threads currently open in this process and
// dispatches discovery/lifecycle operations to internal/rollout.
type Manager struct {
	codexHome string

	mu   sync.RWMutex
	open map[protocol.ThreadID]*Handle

	// Logger, if set, records thread lifecycle transitions. Nil disables
	// logging entirely.
	Logger *observability.Logger
}

// New creates a Thread Manager rooted at codexHome (§6 CODEX_HOME layout).
func New(codexHome string) *Manager {
	return &Manager{codexHome: codexHome, open: make(map[protocol.ThreadID]*Handle)}
}

func (m *Manager) logf(msg string, args ...any) {
	if m.Logger == nil {
		return
	}
	m.Logger.Info(context.Background(), msg, args...)
}

func (m *Manager) track(h *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open[h.thread.ThreadID] = h
}

// NewThread creates a fresh thread. The rollout file is not created on
// disk until the first persisted line (§3, deferred materialization).
func (m *Manager) NewThread(cfg Config) (*Handle, error) {
	id := protocol.NewThreadID()
	now := time.Now().UTC()

	thread := protocol.Thread{
		ThreadID:         id,
		Source:           cfg.Source,
		Cwd:              cfg.Cwd,
		CLIVersion:       cfg.CLIVersion,
		ModelProvider:    cfg.ModelProvider,
		BaseInstructions: cfg.BaseInstructions,
		CreatedAt:        now,
		UpdatedAt:        now,
		Name:             cfg.Name,
	}
	meta := protocol.SessionMetaPayload{
		ID:               id,
		Timestamp:        now,
		Cwd:              cfg.Cwd,
		Originator:       cfg.Originator,
		CLIVersion:       cfg.CLIVersion,
		Source:           cfg.Source,
		ModelProvider:    cfg.ModelProvider,
		BaseInstructions: cfg.BaseInstructions,
		Git:              cfg.Git,
	}
	handle := &Handle{thread: thread, recorder: rollout.NewRecorder(m.codexHome, meta, "")}
	m.track(handle)
	m.logf("threads: thread created", "thread_id", id, "source", cfg.Source)

	if strings.TrimSpace(cfg.Name) != "" {
		eventualPath := rollout.SessionsPath(m.codexHome, now, id)
		if err := rollout.AppendIndexEntry(m.codexHome, rollout.IndexEntry{Name: cfg.Name, Path: eventualPath, ID: id}); err != nil {
			return nil, fmt.Errorf("threads: index name: %w", err)
		}
	}
	return handle, nil
}

// ResumeThread reopens a thread from its rollout file on disk.
func (m *Manager) ResumeThread(path string) (*Handle, rollout.LoadResult, error) {
	result, err := rollout.Load(path)
	if err != nil {
		return nil, rollout.LoadResult{}, err
	}
	thread := protocol.Thread{
		ThreadID:         result.ThreadID,
		Source:           result.Meta.Source,
		Cwd:              result.Meta.Cwd,
		CLIVersion:       result.Meta.CLIVersion,
		ModelProvider:    result.Meta.ModelProvider,
		BaseInstructions: result.Meta.BaseInstructions,
		CreatedAt:        result.Meta.Timestamp,
		UpdatedAt:        time.Now().UTC(),
		RolloutPath:      path,
	}
	handle := &Handle{thread: thread, recorder: rollout.NewRecorder(m.codexHome, result.Meta, path)}
	m.track(handle)
	m.logf("threads: thread resumed", "thread_id", result.ThreadID, "path", path)
	return handle, result, nil
}

// ForkThread branches sourcePath at the nth-from-last user message,
// opening the resulting prefix as a new thread. When keepName is true the
// fork inherits the source thread's indexed name, if any.
func (m *Manager) ForkThread(n int, cfg Config, sourcePath string, keepName bool) (*Handle, error) {
	if cfg.Source == "" {
		cfg.Source = protocol.SourceUnknown
	}
	newID := protocol.NewThreadID()
	destPath, err := rollout.Fork(m.codexHome, sourcePath, n, newID, cfg.Source)
	if err != nil {
		return nil, err
	}
	handle, _, err := m.ResumeThread(destPath)
	if err != nil {
		return nil, err
	}

	name := cfg.Name
	if keepName && name == "" {
		name = m.nameForPath(sourcePath)
	}
	if strings.TrimSpace(name) != "" {
		handle.mu.Lock()
		handle.thread.Name = name
		handle.mu.Unlock()
		if err := rollout.AppendIndexEntry(m.codexHome, rollout.IndexEntry{Name: name, Path: destPath, ID: newID}); err != nil {
			return nil, fmt.Errorf("threads: index forked name: %w", err)
		}
	}
	return handle, nil
}

// nameForPath looks up the indexed name for a rollout path, if any. A miss
// is not an error -- fork(keep_name) simply leaves the fork unnamed.
func (m *Manager) nameForPath(path string) string {
	// FindByName only searches name -> path; a reverse scan over the same
	// index file is the only lookup direction available without adding a
	// second index, and the index file is small (one line per named
	// thread) so a linear scan is acceptable.
	name, _ := rollout.ReverseLookupName(m.codexHome, path)
	return name
}

// ArchiveThread moves a materialized thread's rollout file into
// archived_sessions. Errors with "no rollout found for thread id" if the
// thread was never materialized (§4.G).
func (m *Manager) ArchiveThread(id protocol.ThreadID) error {
	path, err := m.resolvePath(id)
	if err != nil {
		return fmt.Errorf("no rollout found for thread id")
	}
	dest, err := rollout.Archive(m.codexHome, path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if h, ok := m.open[id]; ok {
		h.setRolloutPath(dest)
		delete(m.open, id)
	}
	m.mu.Unlock()
	m.logf("threads: thread archived", "thread_id", id, "dest", dest)
	return nil
}

// Rollback drops the last numTurns user→assistant turns from cm's history
// and persists a ThreadRolledBack marker on the thread's rollout.
func (m *Manager) Rollback(id protocol.ThreadID, numTurns int, cm *contextmgr.Manager) error {
	m.mu.RLock()
	handle, ok := m.open[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("threads: thread %s is not open", id)
	}
	cm.TruncateByTurnCount(numTurns)
	return handle.recorder.RecordEvent(protocol.EventMsg{
		Type:         protocol.EventThreadRolledBack,
		NumTurnsKept: countUserTurns(cm.Items()),
	})
}

func countUserTurns(items []protocol.ResponseItem) int {
	n := 0
	for _, item := range items {
		if item.Kind == protocol.ItemMessage && item.Role == protocol.RoleUser {
			n++
		}
	}
	return n
}

func (m *Manager) resolvePath(id protocol.ThreadID) (string, error) {
	m.mu.RLock()
	h, ok := m.open[id]
	m.mu.RUnlock()
	if ok {
		if p := h.Recorder().Path(); p != "" {
			return p, nil
		}
		return "", fmt.Errorf("no rollout found for thread id")
	}
	return rollout.FindByID(m.codexHome, id)
}

// FindByID discovers a thread's rollout path by id, preferring an
// in-memory open handle before falling back to a disk scan.
func (m *Manager) FindByID(id protocol.ThreadID) (string, error) {
	return m.resolvePath(id)
}

// FindByName discovers a thread's rollout path by its normalized (trimmed)
// indexed name.
func (m *Manager) FindByName(name string) (string, error) {
	return rollout.FindByName(m.codexHome, name)
}

// ListByRecency paginates discovered threads, most recent first.
func (m *Manager) ListByRecency(limit int, cursor string) ([]rollout.Summary, string, error) {
	return rollout.ListByRecency(m.codexHome, limit, cursor)
}
