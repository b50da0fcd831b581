package toolsengine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	docs     []toolDoc
	selected []string
}

func (c *fakeCatalog) Discovered() []toolDoc { return c.docs }
func (c *fakeCatalog) Select(names []string) { c.selected = names }

func TestSearchToolBm25Handler_EmptyQueryRespondsToModel(t *testing.T) {
	h := &SearchToolBm25Handler{Catalog: &fakeCatalog{}}
	payload, _ := json.Marshal(map[string]string{"query": "  "})
	_, err := h.Invoke(context.Background(), Invocation{Payload: payload})
	_, ok := err.(RespondToModel)
	require.True(t, ok)
}

func TestSearchToolBm25Handler_MergesTopKIntoSelection(t *testing.T) {
	catalog := &fakeCatalog{docs: []toolDoc{
		{Name: "read_file", Text: "read file contents"},
		{Name: "web_search", Text: "search the web"},
	}}
	h := &SearchToolBm25Handler{Catalog: catalog, TopK: 1}
	payload, _ := json.Marshal(map[string]string{"query": "search the web"})
	output, fcErr := h.Invoke(context.Background(), Invocation{Payload: payload})
	require.Nil(t, fcErr)
	require.True(t, output.Success)
	require.Equal(t, []string{"web_search"}, catalog.selected)
}
