package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTFIDFMatcherTopK(t *testing.T) {
	logger := zap.NewNop()

	t.Run("ranks lexically close names above unrelated ones", func(t *testing.T) {
		matcher, err := NewTFIDFMatcher(3, 2, 2, logger)
		require.NoError(t, err)

		results, err := matcher.TopK(context.Background(),
			[]string{"mcdonald's"},
			[]string{"mcdnld's", "burger king", "mcdonalds inc"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		require.Len(t, results[0], 2)

		names := []string{results[0][0].TargetName, results[0][1].TargetName}
		assert.ElementsMatch(t, []string{"mcdnld's", "mcdonalds inc"}, names)
		assert.Greater(t, results[0][1].Relevance, 0.0)
		assert.Equal(t, 1, results[0][0].Rank)
		assert.Equal(t, 2, results[0][1].Rank)
	})

	t.Run("self pairing appears when queries equal targets", func(t *testing.T) {
		matcher, err := NewTFIDFMatcher(3, 1, 1, logger)
		require.NoError(t, err)

		names := []string{"acme corporation", "zebra holdings"}
		results, err := matcher.TopK(context.Background(), names, names)
		require.NoError(t, err)
		assert.Equal(t, 0, results[0][0].TargetIndex)
		assert.Equal(t, 1, results[1][0].TargetIndex)
	})

	t.Run("identical output regardless of worker count", func(t *testing.T) {
		queries := []string{"gerald maxwell", "maxwell trading", "akatherm fip gmbh"}
		targets := []string{"gerald maxwel", "maxwell trading ltd", "akatherm", "unrelated name co"}

		single, err := NewTFIDFMatcher(2, 3, 1, logger)
		require.NoError(t, err)
		parallel, err := NewTFIDFMatcher(2, 3, 8, logger)
		require.NoError(t, err)

		got1, err := single.TopK(context.Background(), queries, targets)
		require.NoError(t, err)
		got8, err := parallel.TopK(context.Background(), queries, targets)
		require.NoError(t, err)
		assert.Equal(t, got1, got8)
	})

	t.Run("k beyond pool size is rejected", func(t *testing.T) {
		matcher, err := NewTFIDFMatcher(3, 5, 1, logger)
		require.NoError(t, err)

		_, err = matcher.TopK(context.Background(), []string{"a name"}, []string{"one", "two", "three"})
		assert.Error(t, err)
	})

	t.Run("n-gram bounds are enforced", func(t *testing.T) {
		_, err := NewTFIDFMatcher(0, 2, 1, logger)
		assert.Error(t, err)
		_, err = NewTFIDFMatcher(7, 2, 1, logger)
		assert.Error(t, err)
	})
}

func TestLevenshteinMatcherTopK(t *testing.T) {
	logger := zap.NewNop()

	matcher, err := NewLevenshteinMatcher(2, 3, 2, logger)
	require.NoError(t, err)

	results, err := matcher.TopK(context.Background(),
		[]string{"acme corp"},
		[]string{"acme corp", "acme company", "zebra holdings"})
	require.NoError(t, err)
	require.Len(t, results[0], 2)
	assert.Equal(t, "acme corp", results[0][0].TargetName)
	assert.Equal(t, 1.0, results[0][0].Relevance)
	assert.Equal(t, "acme company", results[0][1].TargetName)
}

func TestPairKey(t *testing.T) {
	assert.Equal(t, PairKey("A", "B"), PairKey("B", "A"))
	assert.NotEqual(t, PairKey("A", "B"), PairKey("A", "C"))
}

func TestDedupeByKey(t *testing.T) {
	type row struct {
		left, right string
		score       float64
	}
	rows := []row{
		{"A", "B", 0.9},
		{"B", "A", 0.9},
		{"A", "C", 0.5},
	}
	kept := DedupeByKey(rows, func(r row) string { return PairKey(r.left, r.right) })
	require.Len(t, kept, 2)
	assert.Equal(t, row{"A", "B", 0.9}, kept[0])
	assert.Equal(t, row{"A", "C", 0.5}, kept[1])
}

func TestAggregateScore(t *testing.T) {
	phone := "abcde"
	matchPhone := "abcdx"

	fields, total := AggregateScore(1.0, []FieldPair{
		{Field: "phone", Left: &phone, Right: &matchPhone},
		{Field: "postal_code", Left: nil, Right: &matchPhone},
	})
	require.Len(t, fields, 2)
	assert.Equal(t, 0.8, fields[0].Score)
	assert.Equal(t, 0.0, fields[1].Score)
	assert.InDelta(t, 1.8, total, 1e-9)
}
