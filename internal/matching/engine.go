package matching

import (
	"context"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/ammopy/vmf-audit/internal/config"
	"github.com/ammopy/vmf-audit/internal/model"
	"github.com/ammopy/vmf-audit/internal/similarity"
)

// Engine runs the name-match pipelines: candidate retrieval, gestalt
// scoring, reverse-duplicate elimination, and composite aggregation.
type Engine struct {
	matcher Matcher
	cfg     config.MatchingConfig
	logger  *zap.Logger
}

// NewEngine creates a matching engine. The Matcher selects candidates;
// final similarities always come from the gestalt metric.
func NewEngine(matcher Matcher, cfg config.MatchingConfig, logger *zap.Logger) *Engine {
	return &Engine{matcher: matcher, cfg: cfg, logger: logger}
}

// NewMatcher builds the configured Matcher implementation.
func NewMatcher(cfg config.MatchingConfig, logger *zap.Logger) (Matcher, error) {
	if cfg.Engine == "levenshtein" {
		return NewLevenshteinMatcher(cfg.TopK, cfg.BlockingKeySize, cfg.Workers, logger)
	}
	return NewTFIDFMatcher(cfg.NGramLength, cfg.TopK, cfg.Workers, logger)
}

func vendorIDString(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

// MatchVendors compares every vendor name against the whole vendor list
// and returns the surviving pairs: self-matches removed, reverse
// duplicates collapsed, ordered by descending similarity.
func (e *Engine) MatchVendors(ctx context.Context, vendors []model.Vendor) ([]model.VendorMatch, error) {
	names := make([]string, len(vendors))
	for i, v := range vendors {
		names[i] = v.Name
	}

	candidates, err := e.matcher.TopK(ctx, names, names)
	if err != nil {
		return nil, err
	}

	rows := make([]model.VendorMatch, 0, len(vendors)*e.cfg.TopK)
	for i, v := range vendors {
		for _, c := range candidates[i] {
			if e.isSelfMatch(vendors, i, c.TargetIndex) {
				continue
			}
			match := vendors[c.TargetIndex]
			rows = append(rows, model.VendorMatch{
				VendorID:           v.ID,
				VendorName:         v.Name,
				MatchVendorID:      match.ID,
				MatchVendorName:    match.Name,
				Rank:               c.Rank,
				Similarity:         similarity.Ratio(v.Name, match.Name),
				MatchStatus:        match.Status,
				VendorPhone:        v.Phone,
				VendorPostalCode:   v.PostalCode,
				VendorAddress:      v.Address,
				VendorTaxID:        v.TaxID,
				MatchVendorPhone:   match.Phone,
				MatchVendorPostal:  match.PostalCode,
				MatchVendorAddress: match.Address,
				MatchVendorTaxID:   match.TaxID,
			})
		}
	}

	// Row order at this point is query-major, rank-minor, so the kept
	// representative of each unordered pair is its best-ranked one.
	rowKeys := make([]string, len(rows))
	for i := range rows {
		rowKeys[i] = PairKey(matchVendorKey(rows[i].VendorID, rows[i].VendorName), matchVendorKey(rows[i].MatchVendorID, rows[i].MatchVendorName))
	}
	kept := dedupeIndexed(rows, rowKeys)

	sort.SliceStable(kept, func(a, b int) bool {
		return kept[a].Similarity > kept[b].Similarity
	})
	e.logger.Info("vendor name matching complete",
		zap.Int("vendors", len(vendors)),
		zap.Int("pairs", len(kept)))
	return kept, nil
}

// isSelfMatch reports whether the candidate is the query row itself. Two
// rows sharing a name are not self-matches unless their identifiers agree.
func (e *Engine) isSelfMatch(vendors []model.Vendor, query, target int) bool {
	if query == target {
		return true
	}
	a, b := vendors[query], vendors[target]
	return a.ID != nil && b.ID != nil && *a.ID == *b.ID
}

// MatchEmployees compares employee names against the vendor list. The
// employee roster is deduplicated by name first, so a name shared by
// several employees is matched once.
func (e *Engine) MatchEmployees(ctx context.Context, employees []model.Employee, status model.EmployeeStatus, vendors []model.Vendor) ([]model.EmployeeVendorMatch, error) {
	unique := DedupeByKey(employees, func(emp model.Employee) string { return emp.Name })

	queries := make([]string, len(unique))
	for i, emp := range unique {
		queries[i] = emp.Name
	}
	targets := make([]string, len(vendors))
	for i, v := range vendors {
		targets[i] = v.Name
	}

	candidates, err := e.matcher.TopK(ctx, queries, targets)
	if err != nil {
		return nil, err
	}

	rows := make([]model.EmployeeVendorMatch, 0, len(unique)*e.cfg.TopK)
	rowKeys := make([]string, 0, len(unique)*e.cfg.TopK)
	for i, emp := range unique {
		for _, c := range candidates[i] {
			v := vendors[c.TargetIndex]
			rows = append(rows, model.EmployeeVendorMatch{
				EmployeeID:         emp.ID,
				EmployeeName:       emp.Name,
				EmployeeStatus:     status,
				VendorID:           v.ID,
				VendorName:         v.Name,
				VendorStatus:       v.Status,
				Rank:               c.Rank,
				Similarity:         similarity.Ratio(emp.Name, v.Name),
				EmployeePhone:      emp.Phone,
				EmployeePostalCode: emp.PostalCode,
				EmployeeAddress:    emp.Address,
				EmployeeSSN:        emp.SSN,
				VendorPhone:        v.Phone,
				VendorPostalCode:   v.PostalCode,
				VendorAddress:      v.Address,
				VendorTaxID:        v.TaxID,
			})
			rowKeys = append(rowKeys, PairKey(emp.Name, v.Name))
		}
	}
	kept := dedupeIndexed(rows, rowKeys)

	sort.SliceStable(kept, func(a, b int) bool {
		return kept[a].Similarity > kept[b].Similarity
	})
	e.logger.Info("employee name matching complete",
		zap.String("roster", string(status)),
		zap.Int("employees", len(unique)),
		zap.Int("pairs", len(kept)))
	return kept, nil
}

// dedupeIndexed keeps the first row per precomputed key.
func dedupeIndexed[T any](rows []T, keys []string) []T {
	seen := make(map[string]struct{}, len(rows))
	out := make([]T, 0, len(rows))
	for i, row := range rows {
		if _, dup := seen[keys[i]]; dup {
			continue
		}
		seen[keys[i]] = struct{}{}
		out = append(out, row)
	}
	return out
}

// matchVendorKey resolves a match row back to its canonical vendor key.
// Rows without an ID key by name; the vendor list has at most one
// ID-less row per name once self-matches are filtered.
func matchVendorKey(id *int64, name string) string {
	if id != nil {
		return strconv.FormatInt(*id, 10)
	}
	return "name:" + name
}

// CompositeVendors rescores the close vendor matches over every shared
// attribute and ranks them by total similarity.
func (e *Engine) CompositeVendors(matches []model.VendorMatch) []model.CompositeMatch {
	out := make([]model.CompositeMatch, 0, len(matches))
	for _, m := range matches {
		if m.Similarity < e.cfg.CloseMatchThreshold {
			continue
		}
		fields, total := AggregateScore(m.Similarity, []FieldPair{
			{Field: "phone", Left: m.VendorPhone, Right: m.MatchVendorPhone},
			{Field: "postal_code", Left: m.VendorPostalCode, Right: m.MatchVendorPostal},
			{Field: "address", Left: m.VendorAddress, Right: m.MatchVendorAddress},
			{Field: "tin", Left: m.VendorTaxID, Right: m.MatchVendorTaxID},
		})
		out = append(out, model.CompositeMatch{
			LeftID:            vendorIDString(m.VendorID),
			LeftName:          m.VendorName,
			RightID:           vendorIDString(m.MatchVendorID),
			RightName:         m.MatchVendorName,
			NameSimilarity:    m.Similarity,
			FieldSimilarities: fields,
			TotalScore:        total,
		})
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].TotalScore > out[b].TotalScore
	})
	return out
}

// CompositeEmployees rescores the close employee-vendor matches over
// every shared attribute; the employee SSN pairs against the vendor TIN.
func (e *Engine) CompositeEmployees(matches []model.EmployeeVendorMatch) []model.CompositeMatch {
	out := make([]model.CompositeMatch, 0, len(matches))
	for _, m := range matches {
		if m.Similarity < e.cfg.CloseMatchThreshold {
			continue
		}
		fields, total := AggregateScore(m.Similarity, []FieldPair{
			{Field: "phone", Left: m.EmployeePhone, Right: m.VendorPhone},
			{Field: "postal_code", Left: m.EmployeePostalCode, Right: m.VendorPostalCode},
			{Field: "address", Left: m.EmployeeAddress, Right: m.VendorAddress},
			{Field: "ssn_vs_tin", Left: m.EmployeeSSN, Right: m.VendorTaxID},
		})
		out = append(out, model.CompositeMatch{
			LeftID:            m.EmployeeID,
			LeftName:          m.EmployeeName,
			RightID:           vendorIDString(m.VendorID),
			RightName:         m.VendorName,
			NameSimilarity:    m.Similarity,
			FieldSimilarities: fields,
			TotalScore:        total,
		})
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].TotalScore > out[b].TotalScore
	})
	return out
}

// VendorCompositeSummary filters the vendor composites worth review:
// total score at or above the vendor composite threshold.
func (e *Engine) VendorCompositeSummary(composites []model.CompositeMatch) []model.CompositeMatch {
	out := make([]model.CompositeMatch, 0)
	for _, c := range composites {
		if c.TotalScore >= e.cfg.VendorCompositeThreshold {
			out = append(out, c)
		}
	}
	return out
}

// EmployeeCompositeSummary filters the employee composites worth review:
// an exact name match, or a total score at or above the employee
// composite threshold.
func (e *Engine) EmployeeCompositeSummary(composites []model.CompositeMatch) []model.CompositeMatch {
	out := make([]model.CompositeMatch, 0)
	for _, c := range composites {
		if c.NameSimilarity == 1 || c.TotalScore >= e.cfg.EmployeeCompositeThreshold {
			out = append(out, c)
		}
	}
	return out
}
