package audit

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ammopy/vmf-audit/internal/access"
	"github.com/ammopy/vmf-audit/internal/config"
	"github.com/ammopy/vmf-audit/internal/matching"
	"github.com/ammopy/vmf-audit/internal/metrics"
	"github.com/ammopy/vmf-audit/internal/model"
	"github.com/ammopy/vmf-audit/internal/sequence"
)

// Prometheus collectors register globally, so the package shares one.
var testCollector = metrics.NewCollector()

func int64p(v int64) *int64 { return &v }

func strp(s string) *string { return &s }

func timep(t time.Time) *time.Time { return &t }

func testConfig(k int) *config.Config {
	return &config.Config{
		Matching: config.MatchingConfig{
			Engine:                     "tfidf",
			NGramLength:                3,
			TopK:                       k,
			Workers:                    2,
			CloseMatchThreshold:        0.6,
			VendorCompositeThreshold:   2.0,
			EmployeeCompositeThreshold: 1.5,
		},
		Anomaly: config.AnomalyConfig{
			WeekendDays:   []int{4, 5},
			AbnormalHours: []int{20, 5},
		},
	}
}

func newTestPipeline(t *testing.T, cfg *config.Config) *Pipeline {
	t.Helper()
	logger := zap.NewNop()
	matcher, err := matching.NewMatcher(cfg.Matching, logger)
	require.NoError(t, err)
	return NewPipeline(
		cfg,
		matching.NewEngine(matcher, cfg.Matching, logger),
		access.NewDetector(cfg.Anomaly, cfg.Matching.CloseMatchThreshold, logger),
		sequence.NewDetector(logger),
		testCollector,
		logger,
	)
}

func testSnapshot() *model.Snapshot {
	monday := time.Date(2023, 6, 5, 10, 0, 0, 0, time.UTC)
	friday := time.Date(2023, 6, 2, 10, 0, 0, 0, time.UTC)
	lateMonday := time.Date(2023, 6, 5, 23, 0, 0, 0, time.UTC)

	return &model.Snapshot{
		Vendors: []model.Vendor{
			{
				ID: int64p(100), Name: "ACME Corporation", Status: "Active",
				Phone:          strp("555-0100"),
				CreationUserID: "U1", CreationDate: timep(monday),
				ModificationUserID: "U2", ModificationDate: timep(monday),
			},
			{
				ID: int64p(101), Name: "ACME Corporation Inc", Status: "Active",
				Phone:          strp("555-0100"),
				CreationUserID: "U1", CreationDate: timep(friday),
				ModificationUserID: "U2", ModificationDate: timep(monday),
			},
			{
				ID: int64p(103), Name: "John Smith", Status: "In-Active",
				TaxID:          strp("123-45-6789"),
				CreationUserID: "U9", CreationDate: timep(lateMonday),
				ModificationUserID: "U9", ModificationDate: timep(monday),
			},
			{
				ID: int64p(103), Name: "Müller GmbH", Status: "Active",
				CreationUserID: "U1", CreationDate: timep(monday),
				ModificationUserID: "U2", ModificationDate: timep(monday),
			},
		},
		ActiveEmployees: []model.Employee{
			{ID: "E1", Name: "John Smith", SSN: strp("123-45-6789")},
			{ID: "E2", Name: "Alice Wonder"},
		},
		TerminatedEmployees: []model.Employee{
			{ID: "T1", Name: "Bob Onassis", TerminationDate: timep(time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC))},
			{ID: "T2", Name: "Carla Voss", TerminationDate: timep(time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC))},
		},
		PurchaseOrders: []model.PurchaseOrder{
			{VendorName: "John Smith", Number: int64p(9001), Date: timep(monday), Status: "Closed", Total: int64p(500), Currency: "USD"},
			{VendorName: "ACME Corporation", Number: int64p(9003), Date: timep(monday), Status: "Open", Total: int64p(1000), Currency: "USD"},
		},
		AccessRights: []model.AccessRight{
			{CreationUserID: strp("U1"), ModificationUserID: strp("U2")},
			{CreationUserID: strp("U9")},
		},
	}
}

func TestPipelineRun(t *testing.T) {
	pipeline := newTestPipeline(t, testConfig(2))

	findings, err := pipeline.Run(context.Background(), testSnapshot())
	require.NoError(t, err)
	assert.NotEmpty(t, findings.RunID)

	t.Run("vendor id sequence", func(t *testing.T) {
		require.Len(t, findings.VendorIDFindings.Gaps, 1)
		assert.Equal(t, model.SequenceEntry{Value: 101, Successor: 103, Gap: 2}, findings.VendorIDFindings.Gaps[0])
		require.Len(t, findings.VendorIDFindings.Duplicates, 1)
		assert.Equal(t, model.SequenceEntry{Value: 103, Successor: 103, Gap: 0}, findings.VendorIDFindings.Duplicates[0])
	})

	t.Run("po number sequence", func(t *testing.T) {
		require.Len(t, findings.PONumberFindings.Gaps, 1)
		assert.Equal(t, model.SequenceEntry{Value: 9001, Successor: 9003, Gap: 2}, findings.PONumberFindings.Gaps[0])
		assert.Empty(t, findings.PONumberFindings.Duplicates)
	})

	t.Run("non-latin vendor names", func(t *testing.T) {
		require.Len(t, findings.NonLatinVendors, 1)
		assert.Equal(t, "Müller GmbH", findings.NonLatinVendors[0].Name)
	})

	t.Run("purchase orders to employees", func(t *testing.T) {
		require.NotEmpty(t, findings.EmployeePOs)
		top := findings.EmployeePOs[0]
		assert.Equal(t, "E1", top.EmployeeID)
		assert.Equal(t, "John Smith", top.VendorName)
		assert.Equal(t, 1.0, top.Similarity)
		require.NotNil(t, top.PONumber)
		assert.Equal(t, int64(9001), *top.PONumber)
	})

	t.Run("inactive vendor purchase orders", func(t *testing.T) {
		require.Len(t, findings.InactiveVendorPOs, 1)
		assert.Equal(t, "John Smith", findings.InactiveVendorPOs[0].VendorName)

		require.Len(t, findings.InactiveVendorSummary, 1)
		assert.Equal(t, 1, findings.InactiveVendorSummary[0].POCount)
		assert.Equal(t, int64(500), findings.InactiveVendorSummary[0].SumPOValues)
	})

	t.Run("unauthorized edits", func(t *testing.T) {
		// U9 holds a creation grant but no modification grant.
		require.Len(t, findings.UnauthorizedEdits, 1)
		assert.Equal(t, model.ActionModification, findings.UnauthorizedEdits[0].Action)
		assert.Equal(t, "John Smith", findings.UnauthorizedEdits[0].VendorName)
	})

	t.Run("weekend edits take precedence over off-hours", func(t *testing.T) {
		require.Len(t, findings.WeekendEdits, 1)
		require.NotNil(t, findings.WeekendEdits[0].VendorID)
		assert.Equal(t, int64(101), *findings.WeekendEdits[0].VendorID)

		require.Len(t, findings.OffHoursEdits, 1)
		assert.Equal(t, "John Smith", findings.OffHoursEdits[0].VendorName)
		assert.True(t, findings.OffHoursEdits[0].CreationHit)
	})

	t.Run("employee composite summary keeps exact identity overlap", func(t *testing.T) {
		require.NotEmpty(t, findings.ActiveEmpSummary)
		assert.Equal(t, "John Smith", findings.ActiveEmpSummary[0].LeftName)
		// exact name plus matching SSN/TIN
		assert.InDelta(t, 2.0, findings.ActiveEmpSummary[0].TotalScore, 1e-9)
	})

	t.Run("missing vendor details are counted", func(t *testing.T) {
		counts := map[string]int{}
		for _, d := range findings.MissingDetails {
			counts[d.Column] = d.MissingCount
		}
		assert.Equal(t, 2, counts["phone"])
		assert.Equal(t, 4, counts["postal_code"])
		assert.NotContains(t, counts, "name")
	})

	t.Run("match similarities land in the score histogram", func(t *testing.T) {
		families, err := prometheus.DefaultGatherer.Gather()
		require.NoError(t, err)

		var samples uint64
		for _, mf := range families {
			if mf.GetName() == "vmf_audit_similarity_score" {
				samples = mf.GetMetric()[0].GetHistogram().GetSampleCount()
			}
		}
		assert.NotZero(t, samples)
	})

	t.Run("period summary covers all years", func(t *testing.T) {
		require.Len(t, findings.PeriodSummary, 1)
		assert.Equal(t, 2023, findings.PeriodSummary[0].Year)
		assert.Equal(t, 4, findings.PeriodSummary[0].CreatedCount)
		assert.Equal(t, 4, findings.PeriodSummary[0].ModifiedCount)
	})
}

func TestPipelineValidatesTopK(t *testing.T) {
	pipeline := newTestPipeline(t, testConfig(10))

	_, err := pipeline.Run(context.Background(), testSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top-k")
}
