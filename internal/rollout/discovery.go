package rollout

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codex-engine/codex/internal/protocol"
)

// FindByID walks CODEX_HOME/sessions, reading each file's first JSON line
// to match the given thread id. `.git` directories are always skipped; a
// user's .gitignore is intentionally NOT honored (§4.B).
func FindByID(codexHome string, id protocol.ThreadID) (string, error) {
	var found string
	root := filepath.Join(codexHome, SessionsSubdir)
	err := walkRolloutFiles(root, func(path string) bool {
		meta, ok := firstLineMeta(path)
		if ok && meta.ID == id {
			found = path
			return false
		}
		return true
	})
	if err != nil && err != errStopWalk {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("no rollout found for thread id %s", id)
	}
	return found, nil
}

// IndexEntry is one line of the optional session_index.jsonl name index.
type IndexEntry struct {
	Name string           `json:"name"`
	Path string           `json:"path"`
	ID   protocol.ThreadID `json:"id"`
}

// FindByName consults session_index.jsonl for a normalized (trimmed) name.
func FindByName(codexHome, name string) (string, error) {
	normalized := strings.TrimSpace(name)
	path := filepath.Join(codexHome, IndexFile)
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("no rollout found for thread name %q", name)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry IndexEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if strings.TrimSpace(entry.Name) == normalized {
			return entry.Path, nil
		}
	}
	return "", fmt.Errorf("no rollout found for thread name %q", name)
}

// ReverseLookupName finds the most recently indexed name for a rollout
// path, scanning session_index.jsonl in order so a renamed thread's latest
// entry wins. Returns ("", false) on a miss -- not an error, since an
// unnamed source thread is a normal case for fork(keep_name).
func ReverseLookupName(codexHome, path string) (string, bool) {
	idxPath := filepath.Join(codexHome, IndexFile)
	f, err := os.Open(idxPath)
	if err != nil {
		return "", false
	}
	defer f.Close()

	var name string
	found := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry IndexEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if entry.Path == path {
			name = entry.Name
			found = true
		}
	}
	return name, found
}

// AppendIndexEntry records a name -> path mapping for FindByName.
func AppendIndexEntry(codexHome string, entry IndexEntry) error {
	path := filepath.Join(codexHome, IndexFile)
	if err := os.MkdirAll(codexHome, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = f.Write(append(raw, '\n'))
	return err
}

func walkRolloutFiles(root string, visit func(path string) bool) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort discovery, skip unreadable entries
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".jsonl") {
			return nil
		}
		if !visit(path) {
			return errStopWalk
		}
		return nil
	})
}

var errStopWalk = fmt.Errorf("rollout: stop walk")

func firstLineMeta(path string) (protocol.SessionMetaPayload, bool) {
	f, err := os.Open(path)
	if err != nil {
		return protocol.SessionMetaPayload{}, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	if !scanner.Scan() {
		return protocol.SessionMetaPayload{}, false
	}
	var line protocol.RolloutLine
	if err := json.Unmarshal(scanner.Bytes(), &line); err != nil || line.Type != protocol.LineSessionMeta {
		return protocol.SessionMetaPayload{}, false
	}
	var meta protocol.SessionMetaPayload
	if err := json.Unmarshal(line.Payload, &meta); err != nil {
		return protocol.SessionMetaPayload{}, false
	}
	return meta, true
}

// Summary describes one discovered thread for recency listing.
type Summary struct {
	Path string
	Meta protocol.SessionMetaPayload
}

// ListByRecency returns up to limit threads, most recently created first,
// paginated by an opaque cursor (the base64-encoded path of the last
// returned entry).
func ListByRecency(codexHome string, limit int, cursor string) ([]Summary, string, error) {
	var all []Summary
	root := filepath.Join(codexHome, SessionsSubdir)
	err := walkRolloutFiles(root, func(path string) bool {
		if meta, ok := firstLineMeta(path); ok {
			all = append(all, Summary{Path: path, Meta: meta})
		}
		return true
	})
	if err != nil {
		return nil, "", err
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Meta.Timestamp.After(all[j].Meta.Timestamp)
	})

	start := 0
	if cursor != "" {
		decoded, err := base64.StdEncoding.DecodeString(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %s", cursor)
		}
		target := string(decoded)
		found := false
		for i, s := range all {
			if s.Path == target {
				start = i + 1
				found = true
				break
			}
		}
		if !found {
			return nil, "", fmt.Errorf("invalid cursor: %s", cursor)
		}
	}
	if limit <= 0 {
		limit = len(all) - start
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	if start > len(all) {
		start = len(all)
	}
	page := all[start:end]

	var next string
	if end < len(all) {
		next = base64.StdEncoding.EncodeToString([]byte(page[len(page)-1].Path))
	}
	return page, next, nil
}
