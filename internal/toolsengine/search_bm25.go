package toolsengine

import (
	"context"
	"encoding/json"
	"strings"
)

// ToolCatalog exposes the set of currently discovered MCP tools so
// SearchToolBm25Handler can score them against a query, and lets the
// handler merge the top-k results into the session's active selection.
type ToolCatalog interface {
	Discovered() []toolDoc
	Select(names []string)
}

// SearchToolBm25Handler scores all currently discovered MCP tools against a
// query with BM25 and merges the top-k into the session's active tool
// selection (§4.E "SearchToolBm25"). An empty query is a usage error
// surfaced to the model, not silently ignored.
type SearchToolBm25Handler struct {
	Catalog ToolCatalog
	TopK    int
}

func (h *SearchToolBm25Handler) Name() string       { return "search_tools" }
func (h *SearchToolBm25Handler) Kind() ToolKind     { return KindFunction }
func (h *SearchToolBm25Handler) ParallelSafe() bool { return true }

func (h *SearchToolBm25Handler) MatchesKind(payload json.RawMessage) bool {
	var probe struct {
		Query string `json:"query"`
	}
	return json.Unmarshal(payload, &probe) == nil
}

func (h *SearchToolBm25Handler) Invoke(ctx context.Context, inv Invocation) (Output, FunctionCallError) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(inv.Payload, &args); err != nil {
		return Output{}, RespondToModel("invalid search_tools arguments: " + err.Error())
	}
	if strings.TrimSpace(args.Query) == "" {
		return Output{}, RespondToModel("search_tools requires a non-empty query")
	}

	topK := h.TopK
	if topK <= 0 {
		topK = 5
	}

	index := newBM25Index(h.Catalog.Discovered())
	hits := index.search(args.Query, topK)

	names := make([]string, len(hits))
	for i, hit := range hits {
		names[i] = hit.Name
	}
	h.Catalog.Select(names)

	body, err := json.Marshal(hits)
	if err != nil {
		return Output{}, Fatal("failed to encode search results: " + err.Error())
	}
	return Output{Body: string(body), Success: true}, nil
}
