package ports

import "context"

// Document is one ranked result from the retrieval provider.
type Document struct {
	ID       string                 `json:"id"`
	Content  string                 `json:"content"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SearchProvider is the external retrieval-augmented context service.
// The core depends only on this capability, never on its internals.
type SearchProvider interface {
	Search(ctx context.Context, query string, k int) ([]Document, error)
}
