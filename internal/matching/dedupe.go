package matching

// PairKey canonicalizes an unordered pair of comparison keys: the two
// keys are ordered lexicographically and joined, so (A,B) and (B,A) map
// to the same key and reverse duplicates collapse.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "\x1f" + b
}

// DedupeByKey keeps the first row per key, preserving input order. Rows
// arrive ranked best-first from the matchers, so the survivor of each
// pair is its best-ranked representative.
func DedupeByKey[T any](rows []T, key func(T) string) []T {
	seen := make(map[string]struct{}, len(rows))
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		k := key(row)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, row)
	}
	return out
}
