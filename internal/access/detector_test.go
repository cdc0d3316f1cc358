package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ammopy/vmf-audit/internal/config"
	"github.com/ammopy/vmf-audit/internal/model"
)

func timep(t time.Time) *time.Time { return &t }

func strp(s string) *string { return &s }

func newTestDetector() *Detector {
	return NewDetector(config.AnomalyConfig{
		WeekendDays:   []int{4, 5}, // Friday, Saturday
		AbnormalHours: []int{20, 5},
	}, 0.6, zap.NewNop())
}

func TestWeekday(t *testing.T) {
	// 2023-06-02 was a Friday.
	assert.Equal(t, 4, weekday(time.Date(2023, 6, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 5, weekday(time.Date(2023, 6, 3, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 6, weekday(time.Date(2023, 6, 4, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, weekday(time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC)))
}

func TestTemporalAnomalies(t *testing.T) {
	detector := newTestDetector()

	monday := time.Date(2023, 6, 5, 10, 0, 0, 0, time.UTC)
	friday := time.Date(2023, 6, 2, 10, 0, 0, 0, time.UTC)
	lateMonday := time.Date(2023, 6, 5, 23, 0, 0, 0, time.UTC)
	earlyMonday := time.Date(2023, 6, 5, 2, 0, 0, 0, time.UTC)

	t.Run("weekend days are flagged", func(t *testing.T) {
		weekend, offHours := detector.TemporalAnomalies([]model.Vendor{
			{Name: "V1", CreationDate: timep(friday), ModificationDate: timep(monday)},
		})
		require.Len(t, weekend, 1)
		assert.True(t, weekend[0].CreationHit)
		assert.False(t, weekend[0].ModificationHit)
		assert.Empty(t, offHours)
	})

	t.Run("wrap-around hour window spans midnight", func(t *testing.T) {
		_, offHours := detector.TemporalAnomalies([]model.Vendor{
			{Name: "late", CreationDate: timep(lateMonday)},
			{Name: "early", CreationDate: timep(earlyMonday)},
			{Name: "midday", CreationDate: timep(monday)},
		})
		require.Len(t, offHours, 2)
		assert.Equal(t, "late", offHours[0].VendorName)
		assert.Equal(t, "early", offHours[1].VendorName)
	})

	t.Run("weekend precedence excludes off-hours double flagging", func(t *testing.T) {
		lateFriday := time.Date(2023, 6, 2, 23, 0, 0, 0, time.UTC)
		weekend, offHours := detector.TemporalAnomalies([]model.Vendor{
			{Name: "V1", CreationDate: timep(lateFriday)},
		})
		assert.Len(t, weekend, 1)
		assert.Empty(t, offHours)
	})

	t.Run("creation hit excludes modification scan for the record", func(t *testing.T) {
		_, offHours := detector.TemporalAnomalies([]model.Vendor{
			{Name: "V1", CreationDate: timep(lateMonday), ModificationDate: timep(earlyMonday)},
		})
		require.Len(t, offHours, 1)
		assert.True(t, offHours[0].CreationHit)
		assert.False(t, offHours[0].ModificationHit)
	})
}

func TestAbnormalHourWindows(t *testing.T) {
	t.Run("single hour matches exactly", func(t *testing.T) {
		detector := NewDetector(config.AnomalyConfig{
			WeekendDays:   []int{5},
			AbnormalHours: []int{22},
		}, 0.6, zap.NewNop())
		assert.True(t, detector.abnormalHour(timep(time.Date(2023, 6, 5, 22, 15, 0, 0, time.UTC))))
		assert.False(t, detector.abnormalHour(timep(time.Date(2023, 6, 5, 21, 59, 0, 0, time.UTC))))
	})

	t.Run("same-day window is inclusive", func(t *testing.T) {
		detector := NewDetector(config.AnomalyConfig{
			WeekendDays:   []int{5},
			AbnormalHours: []int{1, 4},
		}, 0.6, zap.NewNop())
		assert.True(t, detector.abnormalHour(timep(time.Date(2023, 6, 5, 1, 0, 0, 0, time.UTC))))
		assert.True(t, detector.abnormalHour(timep(time.Date(2023, 6, 5, 4, 0, 0, 0, time.UTC))))
		assert.False(t, detector.abnormalHour(timep(time.Date(2023, 6, 5, 5, 0, 0, 0, time.UTC))))
	})

	t.Run("equal pair collapses to exact hour", func(t *testing.T) {
		detector := NewDetector(config.AnomalyConfig{
			WeekendDays:   []int{5},
			AbnormalHours: []int{3, 3},
		}, 0.6, zap.NewNop())
		assert.True(t, detector.abnormalHour(timep(time.Date(2023, 6, 5, 3, 0, 0, 0, time.UTC))))
		assert.False(t, detector.abnormalHour(timep(time.Date(2023, 6, 5, 4, 0, 0, 0, time.UTC))))
	})

	t.Run("absent timestamp never matches", func(t *testing.T) {
		assert.False(t, newTestDetector().abnormalHour(nil))
	})
}

func TestUnauthorizedEdits(t *testing.T) {
	detector := newTestDetector()

	vendors := []model.Vendor{
		{Name: "Vendor A", CreationUserID: "U3", ModificationUserID: "U2"},
		{Name: "Vendor B", CreationUserID: "U1", ModificationUserID: "U9"},
	}
	active := []model.Employee{
		{ID: "U3", Name: "Carol Mills", Department: "Finance"},
	}
	terminated := []model.Employee{
		{ID: "U9", Name: "Dan Price", Department: "Sales", TerminationDate: timep(time.Date(2022, 1, 15, 0, 0, 0, 0, time.UTC))},
	}
	rights := []model.AccessRight{
		{CreationUserID: strp("U1"), ModificationUserID: strp("U2")},
	}

	edits := detector.UnauthorizedEdits(vendors, active, terminated, rights)
	require.Len(t, edits, 2)

	t.Run("creation violations come first", func(t *testing.T) {
		assert.Equal(t, model.ActionCreation, edits[0].Action)
		assert.Equal(t, "Vendor A", edits[0].VendorName)
		assert.Equal(t, model.ActionModification, edits[1].Action)
		assert.Equal(t, "Vendor B", edits[1].VendorName)
	})

	t.Run("actor details are resolved from the rosters", func(t *testing.T) {
		assert.Equal(t, "Carol Mills", edits[0].CreationUserName)
		assert.Equal(t, "Finance", edits[0].CreationUserDepartment)
		assert.Equal(t, string(model.EmployeeActive), edits[0].CreationUserStatus)

		assert.Equal(t, "Dan Price", edits[1].ModificationUserName)
		assert.Equal(t, string(model.EmployeeTerminated), edits[1].ModificationUserStatus)
		require.NotNil(t, edits[1].TerminationDate)
	})
}

func TestSelfEdits(t *testing.T) {
	detector := newTestDetector()

	unauthorized := []model.UnauthorizedEdit{
		{VendorName: "John Smith Ltd", CreationUserName: "John Smith"},
		{VendorName: "Totally Different", CreationUserName: "John Smith"},
		{VendorName: "Acme", ModificationUserName: ""},
	}

	selfEdits := detector.SelfEdits(unauthorized)
	require.Len(t, selfEdits, 1)
	assert.Equal(t, "John Smith Ltd", selfEdits[0].VendorName)
	assert.GreaterOrEqual(t, selfEdits[0].CreationSimilarity, 0.6)
}

func TestUserSummary(t *testing.T) {
	detector := newTestDetector()

	edits := []model.TemporalEdit{
		{CreationUserID: "U1", CreationHit: true},
		{CreationUserID: "U1", CreationHit: true},
		{CreationUserID: "U2", CreationHit: true, ModificationUserID: "U2", ModificationHit: true},
	}
	rights := []model.AccessRight{{CreationUserID: strp("U1")}}

	summary := detector.UserSummary(edits, rights)
	require.Len(t, summary, 3)

	assert.Equal(t, "U1", summary[0].UserID)
	assert.Equal(t, model.ActionCreation, summary[0].Action)
	assert.Equal(t, 2, summary[0].EditCount)
	assert.True(t, summary[0].Authorized)

	for _, s := range summary[1:] {
		assert.Equal(t, "U2", s.UserID)
		assert.Equal(t, 1, s.EditCount)
		assert.False(t, s.Authorized)
	}
}

func TestPeriodSummary(t *testing.T) {
	detector := newTestDetector()

	vendors := []model.Vendor{
		{CreationDate: timep(time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)), ModificationDate: timep(time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC))},
		{CreationDate: timep(time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC))},
		{ModificationDate: timep(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))},
	}

	summary := detector.PeriodSummary(vendors)
	require.Len(t, summary, 3)
	assert.Equal(t, model.PeriodEditSummary{Year: 2020, CreatedCount: 2, ModifiedCount: 0}, summary[0])
	assert.Equal(t, model.PeriodEditSummary{Year: 2021, CreatedCount: 0, ModifiedCount: 1}, summary[1])
	assert.Equal(t, model.PeriodEditSummary{Year: 2022, CreatedCount: 0, ModifiedCount: 1}, summary[2])
}
