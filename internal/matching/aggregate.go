package matching

import (
	"github.com/ammopy/vmf-audit/internal/model"
	"github.com/ammopy/vmf-audit/internal/similarity"
)

// FieldPair is one attribute pair contributing to a composite score.
// Either side may be absent; absent values score 0 rather than poisoning
// the aggregate.
type FieldPair struct {
	Field string
	Left  *string
	Right *string
}

// AggregateScore scores each field pair with the null-tolerant similarity
// and returns the per-field breakdown plus the total ranking score: name
// similarity plus the sum of field similarities. The total ranks
// composite matches; thresholds are the caller's concern.
func AggregateScore(nameSimilarity float64, pairs []FieldPair) ([]model.FieldSimilarity, float64) {
	fields := make([]model.FieldSimilarity, 0, len(pairs))
	total := nameSimilarity
	for _, p := range pairs {
		score := similarity.RatioOrZero(p.Left, p.Right)
		fields = append(fields, model.FieldSimilarity{Field: p.Field, Score: score})
		total += score
	}
	return fields, total
}
