package standardize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	t.Run("lowercases and strips punctuation", func(t *testing.T) {
		assert.Equal(t, "mcdonalds", Name("McDonald's"))
		assert.Equal(t, "acme corp", Name("ACME Corp."))
	})

	t.Run("folds ampersand", func(t *testing.T) {
		assert.Equal(t, "smith and sons", Name("Smith & Sons"))
	})

	t.Run("collapses whitespace", func(t *testing.T) {
		assert.Equal(t, "a b c", Name("  a   b\tc "))
	})
}

func TestNameTokens(t *testing.T) {
	tokens := NameTokens("The Globe & Mail")
	assert.Contains(t, tokens, "globe")
	assert.Contains(t, tokens, "mail")
	assert.NotContains(t, tokens, "the")
}

func TestBlockingKey(t *testing.T) {
	assert.Equal(t, "acm", BlockingKey("ACME Corp.", 3))
	assert.Equal(t, "acmecorp", BlockingKey("ACME Corp.", 0))
	assert.Equal(t, "ab", BlockingKey("AB", 5))

	// A leading stopword must not claim the prefix.
	assert.Equal(t, "glo", BlockingKey("The Globe", 3))
}

func TestIsASCII(t *testing.T) {
	assert.True(t, IsASCII("Maxwell Trading Ltd"))
	assert.False(t, IsASCII("Müller GmbH"))
	assert.False(t, IsASCII("商事株式会社"))
}

func TestNGrams(t *testing.T) {
	t.Run("overlapping grams", func(t *testing.T) {
		assert.Equal(t, []string{"acm", "cme"}, NGrams("ACME", 3))
	})

	t.Run("short names keep one gram", func(t *testing.T) {
		assert.Equal(t, []string{"ab"}, NGrams("ab", 3))
	})

	t.Run("empty name yields nothing", func(t *testing.T) {
		assert.Nil(t, NGrams("", 3))
	})

	t.Run("stopwords contribute no grams", func(t *testing.T) {
		grams := NGrams("The Globe & Mail", 3)
		assert.NotContains(t, grams, "the")
		assert.Contains(t, grams, "glo")
	})

	t.Run("all-stopword names keep their standardized form", func(t *testing.T) {
		assert.Equal(t, []string{"the"}, NGrams("The", 3))
	})
}
