package rollout

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/codex-engine/codex/internal/protocol"
)

// LoadResult is the outcome of replaying a rollout file.
type LoadResult struct {
	Items       []protocol.ResponseItem
	ThreadID    protocol.ThreadID
	Meta        protocol.SessionMetaPayload
	ParseErrors int
}

// Load reads a rollout file and reconstructs its response-item history.
// Malformed lines are counted and skipped; a truncated or corrupt tail
// still yields the partial prefix that parsed cleanly (§4.B).
func Load(path string) (LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("rollout: open %s: %w", path, err)
	}
	defer f.Close()
	return loadFrom(f)
}

func loadFrom(r io.Reader) (LoadResult, error) {
	var result LoadResult
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	first := true
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var line protocol.RolloutLine
		if err := json.Unmarshal(raw, &line); err != nil {
			result.ParseErrors++
			continue
		}
		if first {
			if line.Type != protocol.LineSessionMeta {
				result.ParseErrors++
			}
			first = false
		}
		switch line.Type {
		case protocol.LineSessionMeta:
			var meta protocol.SessionMetaPayload
			if err := json.Unmarshal(line.Payload, &meta); err != nil {
				result.ParseErrors++
				continue
			}
			result.Meta = meta
			result.ThreadID = meta.ID
		case protocol.LineResponseItem:
			var item protocol.ResponseItem
			if err := json.Unmarshal(line.Payload, &item); err != nil {
				result.ParseErrors++
				continue
			}
			result.Items = append(result.Items, item)
		default:
			// event_msg / compacted / turn_context don't feed response
			// history directly; the Context Manager consumes them via
			// their own replay pass.
		}
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("rollout: scan: %w", err)
	}
	return result, nil
}
