// Package standardize normalizes vendor and employee names before they are
// tokenized into matching features. Raw names are always what the
// similarity scorer compares; standardization only shapes the n-gram and
// blocking-key space so that punctuation and boilerplate do not dominate
// candidate retrieval.
package standardize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/bbalet/stopwords"
)

var (
	punctuation = regexp.MustCompile(`[()\[\]{}.,|'"]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Name lowercases, folds "&" to "and", strips punctuation, and collapses
// whitespace.
func Name(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "&", " and ")
	s = punctuation.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NameTokens standardizes a name and removes English stopwords, leaving
// the tokens that actually distinguish one vendor from another.
func NameTokens(s string) []string {
	cleaned := stopwords.CleanString(Name(s), "en", false)
	return strings.Fields(cleaned)
}

// matchText is the form the matchers index: the standardized name with
// stopwords removed. A name made of nothing but stopwords keeps its
// standardized form so it still carries at least one feature.
func matchText(s string) string {
	tokens := NameTokens(s)
	if len(tokens) == 0 {
		return Name(s)
	}
	return strings.Join(tokens, " ")
}

// BlockingKey returns the leading characters of the stopword-stripped
// standardized name, used to index candidates by prefix.
func BlockingKey(s string, size int) string {
	key := strings.ReplaceAll(matchText(s), " ", "")
	if size > 0 && len(key) > size {
		key = key[:size]
	}
	return key
}

// IsASCII reports whether every rune of s is in the ASCII range. Vendor
// names failing this check are routed to the non-matching-script report
// instead of the n-gram matchers.
func IsASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// NGrams splits the stopword-stripped standardized name into overlapping
// character n-grams. Names shorter than n yield a single truncated gram so
// they still carry at least one feature.
func NGrams(s string, n int) []string {
	runes := []rune(matchText(s))
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= n {
		return []string{string(runes)}
	}
	grams := make([]string, 0, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+n]))
	}
	return grams
}
