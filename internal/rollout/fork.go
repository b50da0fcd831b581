package rollout

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/codex-engine/codex/internal/protocol"
)

// Fork creates a new rollout whose content is the prefix of sourcePath up
// to (and strictly excluding) the Nth-from-last user_message line. The
// source file is never mutated (§4.B, §8 invariant 5).
func Fork(codexHome, sourcePath string, n int, newID protocol.ThreadID, source protocol.Source) (string, error) {
	lines, err := readAllLines(sourcePath)
	if err != nil {
		return "", err
	}

	userMessageIdxs := make([]int, 0)
	for i, raw := range lines {
		var line protocol.RolloutLine
		if err := json.Unmarshal(raw, &line); err != nil {
			continue
		}
		if line.Type != protocol.LineResponseItem {
			continue
		}
		var item protocol.ResponseItem
		if err := json.Unmarshal(line.Payload, &item); err != nil {
			continue
		}
		if item.Kind == protocol.ItemMessage && item.Role == protocol.RoleUser {
			userMessageIdxs = append(userMessageIdxs, i)
		}
	}
	if n <= 0 || n > len(userMessageIdxs) {
		return "", fmt.Errorf("rollout: fork: n=%d out of range (have %d user messages)", n, len(userMessageIdxs))
	}
	cutAt := userMessageIdxs[len(userMessageIdxs)-n]
	prefix := lines[:cutAt]

	// Rewrite the session_meta line with the new thread id/source so the
	// forked file is self-describing.
	now := time.Now().UTC()
	destPath := SessionsPath(codexHome, now, newID)
	if err := writeForkedPrefix(destPath, prefix, newID, source, now); err != nil {
		return "", err
	}
	return destPath, nil
}

func readAllLines(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rollout: fork: open source: %w", err)
	}
	defer f.Close()

	var lines [][]byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

func writeForkedPrefix(destPath string, prefix [][]byte, newID protocol.ThreadID, source protocol.Source, now time.Time) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("rollout: fork: create dest: %w", err)
	}
	defer f.Close()

	for i, raw := range prefix {
		if i == 0 {
			var line protocol.RolloutLine
			if err := json.Unmarshal(raw, &line); err == nil && line.Type == protocol.LineSessionMeta {
				var meta protocol.SessionMetaPayload
				_ = json.Unmarshal(line.Payload, &meta)
				meta.ID = newID
				meta.Source = source
				meta.Timestamp = now
				payload, _ := json.Marshal(meta)
				line.Payload = payload
				line.Timestamp = now
				encoded, _ := json.Marshal(line)
				if _, err := f.Write(append(encoded, '\n')); err != nil {
					return err
				}
				continue
			}
		}
		if _, err := f.Write(append(raw, '\n')); err != nil {
			return err
		}
	}
	return nil
}
