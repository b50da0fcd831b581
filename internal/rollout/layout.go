// Package rollout implements the append-only JSONL thread log (§4.B):
// durable recording, replay, discovery, fork, and archival.
package rollout

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/codex-engine/codex/internal/protocol"
)

// SessionsSubdir and ArchiveSubdir mirror the CODEX_HOME layout (§6).
const (
	SessionsSubdir = "sessions"
	ArchiveSubdir  = "archived_sessions"
	IndexFile      = "session_index.jsonl"
)

// FileName deterministically names a rollout file from its creation time
// and thread id, matching `rollout-YYYY-MM-DDThh-mm-ss-<uuid>.jsonl`.
func FileName(createdAt time.Time, id protocol.ThreadID) string {
	return fmt.Sprintf("rollout-%s-%s.jsonl", createdAt.UTC().Format("2006-01-02T15-04-05"), id)
}

// SessionsPath returns the day-bucketed path for a newly created thread,
// relative to codexHome. The file is not created on disk until the first
// persisted line (§3 "materialization is deferred").
func SessionsPath(codexHome string, createdAt time.Time, id protocol.ThreadID) string {
	day := createdAt.UTC()
	return filepath.Join(
		codexHome, SessionsSubdir,
		fmt.Sprintf("%04d", day.Year()),
		fmt.Sprintf("%02d", day.Month()),
		fmt.Sprintf("%02d", day.Day()),
		FileName(createdAt, id),
	)
}

// ArchivePath returns where a thread's rollout goes on archival: same base
// name, flat directory (§4.B "archival moves the file verbatim").
func ArchivePath(codexHome string, rolloutPath string) string {
	return filepath.Join(codexHome, ArchiveSubdir, filepath.Base(rolloutPath))
}
