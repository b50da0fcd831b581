package toolsengine

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// BM25 tuning parameters, matching the Okapi BM25 defaults used elsewhere
// in the retrieval pack for full-text document search.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// toolDoc is one scoreable entry: an MCP tool's name plus its description.
type toolDoc struct {
	Name string
	Text string
}

type posting struct {
	doc  int
	freq int
}

// bm25Index is a BM25-scored inverted index over a set of tool documents,
// used by SearchToolBm25Handler to rank currently discovered MCP tools
// against a free-text query.
type bm25Index struct {
	docs     []toolDoc
	postings map[string][]posting
	docLens  []int
	avgDL    float64
}

func newBM25Index(docs []toolDoc) *bm25Index {
	idx := &bm25Index{
		docs:     docs,
		postings: make(map[string][]posting),
		docLens:  make([]int, len(docs)),
	}

	totalLen := 0
	for i, d := range docs {
		tokens := tokenize(d.Text)
		idx.docLens[i] = len(tokens)
		totalLen += len(tokens)

		tf := make(map[string]int)
		for _, t := range tokens {
			tf[t]++
		}
		for term, freq := range tf {
			idx.postings[term] = append(idx.postings[term], posting{doc: i, freq: freq})
		}
	}
	if len(docs) > 0 {
		idx.avgDL = float64(totalLen) / float64(len(docs))
	}
	return idx
}

type scoredTool struct {
	Name  string
	Score float64
}

// search ranks docs against query, returning up to topK hits sorted by
// descending score.
func (idx *bm25Index) search(query string, topK int) []scoredTool {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var unique []string
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			unique = append(unique, t)
		}
	}

	n := float64(len(idx.docs))
	scores := make(map[int]float64)

	for _, term := range unique {
		posts, ok := idx.postings[term]
		if !ok {
			continue
		}
		df := float64(len(posts))
		idf := math.Log((n-df+0.5)/(df+0.5) + 1.0)
		for _, p := range posts {
			dl := float64(idx.docLens[p.doc])
			tf := float64(p.freq)
			tfNorm := (tf * (bm25K1 + 1)) / (tf + bm25K1*(1-bm25B+bm25B*(dl/idx.avgDL)))
			scores[p.doc] += idf * tfNorm
		}
	}

	results := make([]scoredTool, 0, len(scores))
	for i, score := range scores {
		if score > 0 {
			results = append(results, scoredTool{Name: idx.docs[i].Name, Score: score})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Name < results[j].Name
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

func tokenize(text string) []string {
	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, strings.ToLower(current.String()))
			current.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
