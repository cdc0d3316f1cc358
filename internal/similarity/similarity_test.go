package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatio(t *testing.T) {
	t.Run("identical strings score 1", func(t *testing.T) {
		assert.Equal(t, 1.0, Ratio("GERALD MAXWELL", "GERALD MAXWELL"))
	})

	t.Run("both empty score 0", func(t *testing.T) {
		assert.Equal(t, 0.0, Ratio("", ""))
	})

	t.Run("one empty scores 0", func(t *testing.T) {
		assert.Equal(t, 0.0, Ratio("acme", ""))
		assert.Equal(t, 0.0, Ratio("", "acme"))
	})

	t.Run("partial overlap", func(t *testing.T) {
		// longest common block "bcd", 2*3/8
		assert.Equal(t, 0.75, Ratio("abcd", "bcde"))
	})

	t.Run("symmetric", func(t *testing.T) {
		assert.Equal(t, Ratio("abcd", "bcde"), Ratio("bcde", "abcd"))
		assert.Equal(t, Ratio("mcdonald's", "mcdonalds inc"), Ratio("mcdonalds inc", "mcdonald's"))
	})

	t.Run("symmetric when the decompositions disagree", func(t *testing.T) {
		// Scanning "ab" first finds only single-rune blocks; scanning
		// "bacb" first finds the "ab" block. Both orders must agree.
		assert.Equal(t, 0.67, Ratio("ab", "bacb"))
		assert.Equal(t, 0.67, Ratio("bacb", "ab"))
		assert.Equal(t,
			Ratio("GESTALT PATTERN MATCHING", "GESTALT PRACTICE"),
			Ratio("GESTALT PRACTICE", "GESTALT PATTERN MATCHING"))
	})

	t.Run("symmetric over an exhaustive small corpus", func(t *testing.T) {
		corpus := []string{""}
		frontier := []string{""}
		for len(frontier[0]) < 4 {
			next := make([]string, 0, len(frontier)*3)
			for _, s := range frontier {
				for _, r := range "abc" {
					next = append(next, s+string(r))
				}
			}
			corpus = append(corpus, next...)
			frontier = next
		}
		for _, x := range corpus {
			for _, y := range corpus {
				require.Equal(t, Ratio(x, y), Ratio(y, x), "x=%q y=%q", x, y)
			}
		}
	})

	t.Run("rounded to two decimals", func(t *testing.T) {
		// 14/16 = 0.875 rounds away from zero
		assert.Equal(t, 0.88, Ratio("abcdefgh", "abcdefgx"))
	})

	t.Run("close match crosses 0.6", func(t *testing.T) {
		assert.GreaterOrEqual(t, Ratio("John Smith", "John Smith Ltd"), 0.6)
	})
}

func TestRatioOrZero(t *testing.T) {
	left := "abcde"
	right := "abcdx"

	t.Run("absent values score 0", func(t *testing.T) {
		assert.Equal(t, 0.0, RatioOrZero(nil, &right))
		assert.Equal(t, 0.0, RatioOrZero(&left, nil))
		assert.Equal(t, 0.0, RatioOrZero(nil, nil))
	})

	t.Run("present values score like Ratio", func(t *testing.T) {
		assert.Equal(t, 0.8, RatioOrZero(&left, &right))
	})
}
