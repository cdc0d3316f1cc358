// Package sequence scans numeric identifier columns for breaks in the
// expected consecutive ordering: gaps point at deleted or skipped records,
// duplicates at identifiers assigned twice.
package sequence

import (
	"sort"

	"go.uber.org/zap"

	"github.com/ammopy/vmf-audit/internal/model"
)

// Detector scans identifier sequences.
type Detector struct {
	logger *zap.Logger
}

// NewDetector creates a sequence detector.
func NewDetector(logger *zap.Logger) *Detector {
	return &Detector{logger: logger}
}

// Scan sorts the present identifiers ascending and pairs each with its
// successor. A pair with a gap above 1 is a range anomaly spanning the
// missing identifiers; a pair with a gap of 0 is a duplicate. Absent
// values are dropped before sorting, and the final identifier has no
// successor to pair with.
func (d *Detector) Scan(name string, values []*int64) model.SequenceFindings {
	present := make([]int64, 0, len(values))
	for _, v := range values {
		if v != nil {
			present = append(present, *v)
		}
	}
	sort.Slice(present, func(a, b int) bool { return present[a] < present[b] })

	findings := model.SequenceFindings{
		Gaps:       []model.SequenceEntry{},
		Duplicates: []model.SequenceEntry{},
	}
	for i := 0; i+1 < len(present); i++ {
		entry := model.SequenceEntry{
			Value:     present[i],
			Successor: present[i+1],
			Gap:       present[i+1] - present[i],
		}
		switch {
		case entry.Gap > 1:
			findings.Gaps = append(findings.Gaps, entry)
		case entry.Gap == 0:
			findings.Duplicates = append(findings.Duplicates, entry)
		}
	}

	d.logger.Info("sequence scan complete",
		zap.String("sequence", name),
		zap.Int("values", len(present)),
		zap.Int("gaps", len(findings.Gaps)),
		zap.Int("duplicates", len(findings.Duplicates)))
	return findings
}
