package toolsengine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBM25Index_RanksRelevantDocHigher(t *testing.T) {
	idx := newBM25Index([]toolDoc{
		{Name: "read_file", Text: "read the contents of a file from the workspace"},
		{Name: "web_search", Text: "search the web for a query and return results"},
		{Name: "send_email", Text: "compose and send an email message"},
	})

	hits := idx.search("search the web", 2)
	require.NotEmpty(t, hits)
	require.Equal(t, "web_search", hits[0].Name)
}

func TestBM25Index_EmptyQueryReturnsNoHits(t *testing.T) {
	idx := newBM25Index([]toolDoc{{Name: "a", Text: "some text"}})
	require.Empty(t, idx.search("", 5))
}

func TestBM25Index_TopKLimitsResults(t *testing.T) {
	idx := newBM25Index([]toolDoc{
		{Name: "a", Text: "alpha beta"},
		{Name: "b", Text: "alpha gamma"},
		{Name: "c", Text: "alpha delta"},
	})
	hits := idx.search("alpha", 1)
	require.Len(t, hits, 1)
}
