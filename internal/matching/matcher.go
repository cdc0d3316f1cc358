// Package matching implements approximate name matching for the audit
// engine: candidate retrieval over character n-grams, reverse-duplicate
// elimination, and multi-field aggregate scoring.
package matching

import (
	"context"
	"fmt"
)

// Candidate is one ranked retrieval result for a query name. Rank follows
// the matcher's own relevance ordering, which is related to but not the
// same as the gestalt similarity computed downstream.
type Candidate struct {
	TargetIndex int     `json:"target_index"`
	TargetName  string  `json:"target_name"`
	Rank        int     `json:"rank"`
	Relevance   float64 `json:"relevance"`
}

// Matcher retrieves the top-K most relevant target names per query name.
// Implementations must be deterministic: the same inputs produce the same
// ranked output regardless of internal parallelism. When queries and
// targets are the same list, a query's own exact self-pairing may appear
// among its candidates; callers filter self-matches by identifier.
type Matcher interface {
	TopK(ctx context.Context, queries, targets []string) ([][]Candidate, error)
}

const (
	// MinNGram and MaxNGram bound the configurable n-gram length.
	MinNGram = 1
	MaxNGram = 6
)

func validateParams(ngram, k, targetCount int) error {
	if ngram < MinNGram || ngram > MaxNGram {
		return fmt.Errorf("n-gram length %d out of range [%d, %d]", ngram, MinNGram, MaxNGram)
	}
	if k < 1 {
		return fmt.Errorf("top-k must be positive, got %d", k)
	}
	if k > targetCount {
		return fmt.Errorf("top-k %d exceeds candidate pool of %d targets", k, targetCount)
	}
	return nil
}
