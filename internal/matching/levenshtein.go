package matching

import (
	"context"
	"sort"

	"github.com/agnivade/levenshtein"
	radix "github.com/armon/go-radix"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ammopy/vmf-audit/internal/standardize"
)

// LevenshteinMatcher is an alternative Matcher that ranks targets by
// normalized edit-distance similarity. A radix-tree prefix index blocks
// the candidate pool before scoring; when blocking leaves fewer than k
// candidates the full target list is scored instead, so results never
// shrink below the requested k.
type LevenshteinMatcher struct {
	k       int
	keySize int
	workers int
	logger  *zap.Logger
}

// NewLevenshteinMatcher creates an edit-distance matcher. keySize is the
// blocking-key prefix length; zero disables blocking.
func NewLevenshteinMatcher(k, keySize, workers int, logger *zap.Logger) (*LevenshteinMatcher, error) {
	if k < 1 {
		return nil, validateParams(MinNGram, k, k)
	}
	if workers < 1 {
		workers = 1
	}
	return &LevenshteinMatcher{k: k, keySize: keySize, workers: workers, logger: logger}, nil
}

// TopK retrieves the k nearest targets per query by edit-distance
// similarity over standardized names, ties broken by target order.
func (m *LevenshteinMatcher) TopK(ctx context.Context, queries, targets []string) ([][]Candidate, error) {
	if err := validateParams(MinNGram, m.k, len(targets)); err != nil {
		return nil, err
	}

	standardized := make([]string, len(targets))
	index := radix.New()
	for t, name := range targets {
		standardized[t] = standardize.Name(name)
		if m.keySize > 0 {
			key := standardize.BlockingKey(name, m.keySize)
			if existing, ok := index.Get(key); ok {
				index.Insert(key, append(existing.([]int), t))
			} else {
				index.Insert(key, []int{t})
			}
		}
	}

	results := make([][]Candidate, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i := range queries {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = m.retrieve(index, queries[i], targets, standardized)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (m *LevenshteinMatcher) retrieve(index *radix.Tree, query string, targets, standardized []string) []Candidate {
	pool := m.block(index, query, len(targets))
	q := standardize.Name(query)

	scores := make(map[int]float64, len(pool))
	for _, t := range pool {
		scores[t] = editSimilarity(q, standardized[t])
	}
	sort.SliceStable(pool, func(a, b int) bool {
		if scores[pool[a]] != scores[pool[b]] {
			return scores[pool[a]] > scores[pool[b]]
		}
		return pool[a] < pool[b]
	})

	out := make([]Candidate, 0, m.k)
	for rank := 0; rank < m.k && rank < len(pool); rank++ {
		t := pool[rank]
		out = append(out, Candidate{
			TargetIndex: t,
			TargetName:  targets[t],
			Rank:        rank + 1,
			Relevance:   scores[t],
		})
	}
	return out
}

// block narrows the candidate pool to targets sharing the query's prefix
// key. Blocking that strands fewer than k candidates falls back to the
// whole corpus.
func (m *LevenshteinMatcher) block(index *radix.Tree, query string, targetCount int) []int {
	all := func() []int {
		pool := make([]int, targetCount)
		for i := range pool {
			pool[i] = i
		}
		return pool
	}
	if m.keySize == 0 {
		return all()
	}

	var pool []int
	index.WalkPrefix(standardize.BlockingKey(query, m.keySize), func(_ string, v interface{}) bool {
		pool = append(pool, v.([]int)...)
		return false
	})
	if len(pool) < m.k {
		return all()
	}
	sort.Ints(pool)
	return pool
}

func editSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	distance := levenshtein.ComputeDistance(a, b)
	maxLen := len([]rune(a))
	if lb := len([]rune(b)); lb > maxLen {
		maxLen = lb
	}
	return 1 - float64(distance)/float64(maxLen)
}
