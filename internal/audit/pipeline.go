// Package audit orchestrates a full vendor-master-file audit run: name
// matching, purchase-order linkage, access review, temporal anomalies,
// sequence scans, and the summary tables.
package audit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ammopy/vmf-audit/internal/access"
	"github.com/ammopy/vmf-audit/internal/config"
	"github.com/ammopy/vmf-audit/internal/matching"
	"github.com/ammopy/vmf-audit/internal/metrics"
	"github.com/ammopy/vmf-audit/internal/model"
	"github.com/ammopy/vmf-audit/internal/sequence"
	"github.com/ammopy/vmf-audit/internal/standardize"
)

// InactiveVendorStatus is the vendor_status value marking a vendor as no
// longer active.
const InactiveVendorStatus = "In-Active"

// Pipeline runs the complete audit over one input snapshot.
type Pipeline struct {
	cfg       *config.Config
	engine    *matching.Engine
	detector  *access.Detector
	sequences *sequence.Detector
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewPipeline creates an audit pipeline.
func NewPipeline(cfg *config.Config, engine *matching.Engine, detector *access.Detector, sequences *sequence.Detector, collector *metrics.Collector, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		engine:    engine,
		detector:  detector,
		sequences: sequences,
		collector: collector,
		logger:    logger,
	}
}

// Run executes every audit procedure and returns the findings of the run.
func (p *Pipeline) Run(ctx context.Context, snapshot *model.Snapshot) (*model.Findings, error) {
	started := time.Now()
	p.collector.RecordRunStarted()

	findings, err := p.run(ctx, snapshot)
	if err != nil {
		p.collector.RecordRunCompleted(false, 0, time.Since(started))
		return nil, err
	}

	total := len(findings.VendorMatches) + len(findings.ActiveEmployeeMatches) +
		len(findings.TerminatedEmpMatches) + len(findings.UnauthorizedEdits) +
		len(findings.SelfEdits) + len(findings.WeekendEdits) + len(findings.OffHoursEdits) +
		len(findings.EmployeePOs) + len(findings.InactiveVendorPOs) +
		len(findings.VendorIDFindings.Gaps) + len(findings.VendorIDFindings.Duplicates) +
		len(findings.PONumberFindings.Gaps) + len(findings.PONumberFindings.Duplicates)
	p.collector.RecordRunCompleted(true, total, time.Since(started))
	p.logger.Info("audit run complete",
		zap.String("run_id", findings.RunID),
		zap.Int("findings", total),
		zap.Duration("duration", time.Since(started)))
	return findings, nil
}

func (p *Pipeline) run(ctx context.Context, snapshot *model.Snapshot) (*model.Findings, error) {
	if err := p.validate(snapshot); err != nil {
		return nil, err
	}

	findings := &model.Findings{RunID: uuid.New().String()}

	matchStart := time.Now()
	vendorMatches, err := p.engine.MatchVendors(ctx, snapshot.Vendors)
	if err != nil {
		p.collector.MatchingErrors.Inc()
		return nil, fmt.Errorf("matching vendor names: %w", err)
	}
	activeMatches, err := p.engine.MatchEmployees(ctx, snapshot.ActiveEmployees, model.EmployeeActive, snapshot.Vendors)
	if err != nil {
		p.collector.MatchingErrors.Inc()
		return nil, fmt.Errorf("matching active employee names: %w", err)
	}
	terminatedMatches, err := p.engine.MatchEmployees(ctx, snapshot.TerminatedEmployees, model.EmployeeTerminated, snapshot.Vendors)
	if err != nil {
		p.collector.MatchingErrors.Inc()
		return nil, fmt.Errorf("matching terminated employee names: %w", err)
	}
	p.collector.RecordMatchingStage(len(vendorMatches)+len(activeMatches)+len(terminatedMatches), time.Since(matchStart))
	for _, m := range vendorMatches {
		p.collector.RecordSimilarity(m.Similarity)
	}
	for _, m := range activeMatches {
		p.collector.RecordSimilarity(m.Similarity)
	}
	for _, m := range terminatedMatches {
		p.collector.RecordSimilarity(m.Similarity)
	}

	findings.VendorMatches = vendorMatches
	findings.ActiveEmployeeMatches = activeMatches
	findings.TerminatedEmpMatches = terminatedMatches
	findings.NonLatinVendors = nonLatinVendors(snapshot.Vendors)

	findings.EmployeePOs = p.employeePOs(activeMatches, terminatedMatches, snapshot)
	findings.PostTerminationPOs = postTerminationPOs(findings.EmployeePOs)
	findings.PostTerminationSummary = postTerminationSummary(findings.PostTerminationPOs)

	findings.UnauthorizedEdits = p.detector.UnauthorizedEdits(
		snapshot.Vendors, snapshot.ActiveEmployees, snapshot.TerminatedEmployees, snapshot.AccessRights)
	findings.SelfEdits = p.detector.SelfEdits(findings.UnauthorizedEdits)

	weekend, offHours := p.detector.TemporalAnomalies(snapshot.Vendors)
	findings.WeekendEdits = weekend
	findings.OffHoursEdits = offHours
	findings.WeekendUserSummary = p.detector.UserSummary(weekend, snapshot.AccessRights)
	findings.OffHoursUserSummary = p.detector.UserSummary(offHours, snapshot.AccessRights)
	findings.PeriodSummary = p.detector.PeriodSummary(snapshot.Vendors)

	findings.InactiveVendorPOs = inactiveVendorPOs(snapshot.Vendors, snapshot.PurchaseOrders)
	findings.InactiveVendorSummary = inactiveVendorSummary(findings.InactiveVendorPOs)

	findings.VendorIDFindings = p.sequences.Scan("vendor_id", vendorIDs(snapshot.Vendors))
	findings.PONumberFindings = p.sequences.Scan("po_number", poNumbers(snapshot.PurchaseOrders))

	findings.VendorComposites = p.engine.CompositeVendors(vendorMatches)
	findings.ActiveEmpComposites = p.engine.CompositeEmployees(activeMatches)
	findings.TerminatedEmpComposites = p.engine.CompositeEmployees(terminatedMatches)
	findings.VendorCompositeSummary = p.engine.VendorCompositeSummary(findings.VendorComposites)
	findings.ActiveEmpSummary = p.engine.EmployeeCompositeSummary(findings.ActiveEmpComposites)
	findings.TerminatedEmpSummary = p.engine.EmployeeCompositeSummary(findings.TerminatedEmpComposites)

	findings.MissingDetails = missingDetails(snapshot.Vendors)

	p.recordFindingCounts(findings)
	return findings, nil
}

// validate rejects parameters that cannot be satisfied by the input, so
// every matching stage is guaranteed a full candidate pool.
func (p *Pipeline) validate(snapshot *model.Snapshot) error {
	k := p.cfg.Matching.TopK
	if k > len(snapshot.Vendors) {
		return fmt.Errorf("top-k %d exceeds vendor list of %d rows", k, len(snapshot.Vendors))
	}
	if k > len(snapshot.ActiveEmployees) {
		return fmt.Errorf("top-k %d exceeds active employee list of %d rows", k, len(snapshot.ActiveEmployees))
	}
	if k > len(snapshot.TerminatedEmployees) {
		return fmt.Errorf("top-k %d exceeds terminated employee list of %d rows", k, len(snapshot.TerminatedEmployees))
	}
	return nil
}

func (p *Pipeline) recordFindingCounts(f *model.Findings) {
	p.collector.RecordFindings("vendor_name_match", len(f.VendorMatches))
	p.collector.RecordFindings("active_emp_vs_ven_name_match", len(f.ActiveEmployeeMatches))
	p.collector.RecordFindings("term_emp_vs_ven_name_match", len(f.TerminatedEmpMatches))
	p.collector.RecordFindings("non_latin_ven_names", len(f.NonLatinVendors))
	p.collector.RecordFindings("po_to_employees", len(f.EmployeePOs))
	p.collector.RecordFindings("unauthorized_access", len(f.UnauthorizedEdits))
	p.collector.RecordFindings("employees_editing_own_records", len(f.SelfEdits))
	p.collector.RecordFindings("weekend_modifications", len(f.WeekendEdits))
	p.collector.RecordFindings("abnormal_hours_modifications", len(f.OffHoursEdits))
	p.collector.RecordFindings("po_for_inactive_vendors", len(f.InactiveVendorPOs))
	p.collector.RecordFindings("vendor_id_gaps", len(f.VendorIDFindings.Gaps))
	p.collector.RecordFindings("vendor_id_duplicates", len(f.VendorIDFindings.Duplicates))
	p.collector.RecordFindings("po_number_gaps", len(f.PONumberFindings.Gaps))
	p.collector.RecordFindings("po_number_duplicates", len(f.PONumberFindings.Duplicates))
}

// nonLatinVendors keeps vendor rows whose names carry any character
// outside the ASCII range.
func nonLatinVendors(vendors []model.Vendor) []model.Vendor {
	out := []model.Vendor{}
	for _, v := range vendors {
		if !standardize.IsASCII(v.Name) {
			out = append(out, v)
		}
	}
	return out
}

// employeePOs links close employee-vendor matches to the purchase orders
// billed under the matched vendor name. Termination dates are resolved
// from the terminated roster by employee name.
func (p *Pipeline) employeePOs(active, terminated []model.EmployeeVendorMatch, snapshot *model.Snapshot) []model.EmployeePO {
	terminationDates := make(map[string]*time.Time, len(snapshot.TerminatedEmployees))
	for _, e := range snapshot.TerminatedEmployees {
		terminationDates[e.Name] = e.TerminationDate
	}

	ordersByVendor := make(map[string][]model.PurchaseOrder, len(snapshot.PurchaseOrders))
	for _, po := range snapshot.PurchaseOrders {
		ordersByVendor[po.VendorName] = append(ordersByVendor[po.VendorName], po)
	}

	out := []model.EmployeePO{}
	for _, m := range append(append([]model.EmployeeVendorMatch{}, active...), terminated...) {
		if m.Similarity < p.cfg.Matching.CloseMatchThreshold {
			continue
		}
		for _, po := range ordersByVendor[m.VendorName] {
			out = append(out, model.EmployeePO{
				EmployeeID:      m.EmployeeID,
				EmployeeName:    m.EmployeeName,
				EmployeeStatus:  m.EmployeeStatus,
				TerminationDate: terminationDates[m.EmployeeName],
				VendorID:        m.VendorID,
				VendorName:      m.VendorName,
				VendorStatus:    m.VendorStatus,
				Similarity:      m.Similarity,
				PONumber:        po.Number,
				PODate:          po.Date,
				POStatus:        po.Status,
				POTotal:         po.Total,
				Currency:        po.Currency,
			})
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Similarity > out[b].Similarity
	})
	return out
}

// postTerminationPOs keeps purchase orders dated strictly after the
// matched employee's termination date.
func postTerminationPOs(pos []model.EmployeePO) []model.EmployeePO {
	out := []model.EmployeePO{}
	for _, po := range pos {
		if po.TerminationDate == nil || po.PODate == nil {
			continue
		}
		if po.TerminationDate.Before(*po.PODate) {
			out = append(out, po)
		}
	}
	return out
}

// postTerminationSummary aggregates the exact-name post-termination
// orders per employee, ranked by total order value.
func postTerminationSummary(pos []model.EmployeePO) []model.PostTerminationSummary {
	type key struct {
		id   string
		name string
	}
	byEmployee := make(map[key]*model.PostTerminationSummary)
	order := []key{}
	for _, po := range pos {
		if po.Similarity != 1 {
			continue
		}
		k := key{id: po.EmployeeID, name: po.EmployeeName}
		s, ok := byEmployee[k]
		if !ok {
			s = &model.PostTerminationSummary{
				EmployeeID:      po.EmployeeID,
				EmployeeName:    po.EmployeeName,
				TerminationDate: po.TerminationDate,
			}
			byEmployee[k] = s
			order = append(order, k)
		}
		s.POCount++
		s.SumPOValues += model.Int64Value(po.POTotal)
		if po.PODate != nil && (s.EarliestPODate == nil || po.PODate.Before(*s.EarliestPODate)) {
			s.EarliestPODate = po.PODate
		}
	}

	out := make([]model.PostTerminationSummary, 0, len(order))
	for _, k := range order {
		out = append(out, *byEmployee[k])
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].SumPOValues > out[b].SumPOValues
	})
	return out
}

// inactiveVendorPOs flags purchase orders billed to inactive vendors,
// largest totals first.
func inactiveVendorPOs(vendors []model.Vendor, orders []model.PurchaseOrder) []model.InactiveVendorPO {
	statusByName := make(map[string]string, len(vendors))
	for _, v := range vendors {
		statusByName[v.Name] = v.Status
	}

	out := []model.InactiveVendorPO{}
	for _, po := range orders {
		if statusByName[po.VendorName] != InactiveVendorStatus {
			continue
		}
		out = append(out, model.InactiveVendorPO{
			PurchaseOrder: po,
			VendorStatus:  InactiveVendorStatus,
		})
	}
	sort.SliceStable(out, func(a, b int) bool {
		return model.Int64Value(out[a].Total) > model.Int64Value(out[b].Total)
	})
	return out
}

// inactiveVendorSummary aggregates inactive-vendor orders per vendor and
// currency, ranked by total order value.
func inactiveVendorSummary(pos []model.InactiveVendorPO) []model.InactiveVendorSummary {
	type key struct {
		vendor   string
		currency string
	}
	groups := make(map[key]*model.InactiveVendorSummary)
	order := []key{}
	for _, po := range pos {
		k := key{vendor: po.VendorName, currency: po.Currency}
		s, ok := groups[k]
		if !ok {
			s = &model.InactiveVendorSummary{VendorName: po.VendorName, Currency: po.Currency}
			groups[k] = s
			order = append(order, k)
		}
		s.POCount++
		s.SumPOValues += model.Int64Value(po.Total)
	}

	out := make([]model.InactiveVendorSummary, 0, len(order))
	for _, k := range order {
		out = append(out, *groups[k])
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].SumPOValues > out[b].SumPOValues
	})
	return out
}

func vendorIDs(vendors []model.Vendor) []*int64 {
	out := make([]*int64, len(vendors))
	for i, v := range vendors {
		out[i] = v.ID
	}
	return out
}

func poNumbers(orders []model.PurchaseOrder) []*int64 {
	out := make([]*int64, len(orders))
	for i, po := range orders {
		out[i] = po.Number
	}
	return out
}

// vendorColumn counts absent values for one vendor-file column.
type vendorColumn struct {
	name    string
	missing func(model.Vendor) bool
}

var vendorColumns = []vendorColumn{
	{"id", func(v model.Vendor) bool { return v.ID == nil }},
	{"name", func(v model.Vendor) bool { return v.Name == "" }},
	{"vendor_status", func(v model.Vendor) bool { return v.Status == "" }},
	{"phone", func(v model.Vendor) bool { return v.Phone == nil }},
	{"postal_code", func(v model.Vendor) bool { return v.PostalCode == nil }},
	{"address", func(v model.Vendor) bool { return v.Address == nil }},
	{"taxpayer_identification_number_tin", func(v model.Vendor) bool { return v.TaxID == nil }},
	{"creation_user_id", func(v model.Vendor) bool { return v.CreationUserID == "" }},
	{"creation_date", func(v model.Vendor) bool { return v.CreationDate == nil }},
	{"modification_user_id", func(v model.Vendor) bool { return v.ModificationUserID == "" }},
	{"modification_date", func(v model.Vendor) bool { return v.ModificationDate == nil }},
}

// missingDetails counts absent values per vendor-file column, reporting
// only the columns with at least one absence.
func missingDetails(vendors []model.Vendor) []model.MissingDetail {
	out := []model.MissingDetail{}
	for _, col := range vendorColumns {
		count := 0
		for _, v := range vendors {
			if col.missing(v) {
				count++
			}
		}
		if count > 0 {
			out = append(out, model.MissingDetail{Column: col.name, MissingCount: count})
		}
	}
	return out
}
