// Package knowledge answers flower questions from a static corpus: it
// chunks and embeds the corpus into a persisted index and retrieves the
// passages most similar to a query.
package knowledge

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

// DefaultK is the number of passages a recommendation is grounded on.
const DefaultK = 2

// NotFoundMessage is returned when no passage matches a query.
const NotFoundMessage = "I'm sorry, I couldn't find any specific recommendations for that in my knowledge base."

//go:embed corpus/knowledge_base.txt
var defaultCorpus string

// DefaultCorpus returns the built-in knowledge base.
func DefaultCorpus() string {
	return defaultCorpus
}

// Retriever returns the texts of the k passages most similar to query,
// most similar first.
type Retriever interface {
	Query(ctx context.Context, query string, k int) ([]string, error)
}

// Recommender composes grounded answers from retrieved passages.
type Recommender struct {
	retriever Retriever
	k         int
}

// NewRecommender creates a Recommender retrieving DefaultK passages.
func NewRecommender(r Retriever) *Recommender {
	return &Recommender{retriever: r, k: DefaultK}
}

// Recommend answers query with the retrieved passages joined by a visible
// delimiter, prefixed by a sentence naming the query.
func (r *Recommender) Recommend(ctx context.Context, query string) (string, error) {
	passages, err := r.retriever.Query(ctx, query, r.k)
	if err != nil {
		return "", fmt.Errorf("retrieve recommendations: %w", err)
	}
	if len(passages) == 0 {
		return NotFoundMessage, nil
	}
	return fmt.Sprintf("Based on my knowledge base, here is some information about '%s':\n%s",
		query, strings.Join(passages, "\n---\n")), nil
}
