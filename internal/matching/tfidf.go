package matching

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ammopy/vmf-audit/internal/standardize"
)

// TFIDFMatcher ranks targets by cosine similarity in a TF-IDF vector
// space built over the target corpus's character n-grams. This is the
// default Matcher.
type TFIDFMatcher struct {
	ngram   int
	k       int
	workers int
	logger  *zap.Logger
}

// NewTFIDFMatcher creates a TF-IDF matcher. The n-gram length must lie in
// [1, 6]; k must be positive. Worker count caps retrieval parallelism and
// never affects output.
func NewTFIDFMatcher(ngram, k, workers int, logger *zap.Logger) (*TFIDFMatcher, error) {
	if ngram < MinNGram || ngram > MaxNGram {
		return nil, validateParams(ngram, k, k)
	}
	if k < 1 {
		return nil, validateParams(ngram, k, k)
	}
	if workers < 1 {
		workers = 1
	}
	return &TFIDFMatcher{ngram: ngram, k: k, workers: workers, logger: logger}, nil
}

// vocabulary is the fitted n-gram vector space of a target corpus.
type vocabulary struct {
	index map[string]int // gram -> column
	idf   []float64
	// posting lists per column: target index and its normalized weight
	postings [][]posting
	targets  int
}

type posting struct {
	target int
	weight float64
}

// TopK retrieves the k most relevant targets per query name. Ties break
// toward the earlier target, so output is stable across runs and worker
// counts.
func (m *TFIDFMatcher) TopK(ctx context.Context, queries, targets []string) ([][]Candidate, error) {
	if err := validateParams(m.ngram, m.k, len(targets)); err != nil {
		return nil, err
	}

	vocab := m.fit(targets)
	m.logger.Debug("fitted tf-idf vector space",
		zap.Int("targets", len(targets)),
		zap.Int("vocabulary", len(vocab.index)),
		zap.Int("ngram", m.ngram))

	results := make([][]Candidate, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i := range queries {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = m.retrieve(vocab, queries[i], targets)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// fit builds the vocabulary, smoothed IDF weights, and L2-normalized
// posting lists for the target corpus.
func (m *TFIDFMatcher) fit(targets []string) *vocabulary {
	vocab := &vocabulary{index: make(map[string]int), targets: len(targets)}

	counts := make([]map[int]int, len(targets))
	df := []int{}
	for t, name := range targets {
		counts[t] = make(map[int]int)
		for _, gram := range standardize.NGrams(name, m.ngram) {
			col, ok := vocab.index[gram]
			if !ok {
				col = len(vocab.index)
				vocab.index[gram] = col
				df = append(df, 0)
			}
			if counts[t][col] == 0 {
				df[col]++
			}
			counts[t][col]++
		}
	}

	n := float64(len(targets))
	vocab.idf = make([]float64, len(df))
	for col, d := range df {
		vocab.idf[col] = math.Log((1+n)/(1+float64(d))) + 1
	}

	vocab.postings = make([][]posting, len(df))
	for t := range targets {
		var norm float64
		for col, c := range counts[t] {
			w := float64(c) * vocab.idf[col]
			norm += w * w
		}
		if norm == 0 {
			continue
		}
		norm = math.Sqrt(norm)
		// Deterministic posting order: ascending column.
		cols := make([]int, 0, len(counts[t]))
		for col := range counts[t] {
			cols = append(cols, col)
		}
		sort.Ints(cols)
		for _, col := range cols {
			w := float64(counts[t][col]) * vocab.idf[col] / norm
			vocab.postings[col] = append(vocab.postings[col], posting{target: t, weight: w})
		}
	}
	return vocab
}

// retrieve projects a query into the fitted space and scores every target
// by accumulating posting-list weights. N-grams unseen in the target
// corpus carry no weight.
func (m *TFIDFMatcher) retrieve(vocab *vocabulary, query string, targets []string) []Candidate {
	queryCounts := make(map[int]int)
	for _, gram := range standardize.NGrams(query, m.ngram) {
		if col, ok := vocab.index[gram]; ok {
			queryCounts[col]++
		}
	}

	var norm float64
	for col, c := range queryCounts {
		w := float64(c) * vocab.idf[col]
		norm += w * w
	}
	scores := make([]float64, vocab.targets)
	if norm > 0 {
		norm = math.Sqrt(norm)
		for col, c := range queryCounts {
			qw := float64(c) * vocab.idf[col] / norm
			for _, p := range vocab.postings[col] {
				scores[p.target] += qw * p.weight
			}
		}
	}

	order := make([]int, vocab.targets)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	out := make([]Candidate, 0, m.k)
	for rank := 0; rank < m.k; rank++ {
		t := order[rank]
		out = append(out, Candidate{
			TargetIndex: t,
			TargetName:  targets[t],
			Rank:        rank + 1,
			Relevance:   scores[t],
		})
	}
	return out
}
