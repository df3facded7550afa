// Package memory provides an in-memory retrieval provider scoring
// documents by term overlap. It stands in for the external
// retrieval-augmented context service in single-node deployments and
// tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/nexuswealth/mcu/pkg/ports"
)

// Index is an in-memory document index.
type Index struct {
	mu   sync.RWMutex
	docs []ports.Document
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Add stores a document for retrieval.
func (i *Index) Add(doc ports.Document) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.docs = append(i.docs, doc)
}

// Search returns up to k documents ranked by the fraction of query
// terms present in the content. Documents matching no term are
// omitted.
func (i *Index) Search(ctx context.Context, query string, k int) ([]ports.Document, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 || k <= 0 {
		return nil, nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	var results []ports.Document
	for _, doc := range i.docs {
		content := strings.ToLower(doc.Content)
		matched := 0
		for _, term := range terms {
			if strings.Contains(content, term) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		scored := doc
		scored.Score = float64(matched) / float64(len(terms))
		results = append(results, scored)
	}

	sort.SliceStable(results, func(a, b int) bool { return results[a].Score > results[b].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

var _ ports.SearchProvider = (*Index)(nil)
