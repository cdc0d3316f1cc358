// Package access detects suspicious edit activity on the vendor master
// file: edits outside business days or hours, edits by users missing from
// the access allowlist, and users editing vendor records resembling their
// own names.
package access

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ammopy/vmf-audit/internal/config"
	"github.com/ammopy/vmf-audit/internal/model"
	"github.com/ammopy/vmf-audit/internal/similarity"
)

// Detector runs the access and temporal anomaly checks.
type Detector struct {
	cfg        config.AnomalyConfig
	closeMatch float64
	logger     *zap.Logger
}

// NewDetector creates an access detector. closeMatch is the similarity
// above which a user name counts as resembling a vendor name.
func NewDetector(cfg config.AnomalyConfig, closeMatch float64, logger *zap.Logger) *Detector {
	return &Detector{cfg: cfg, closeMatch: closeMatch, logger: logger}
}

// weekday maps a timestamp onto 0=Monday through 6=Sunday.
func weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func (d *Detector) weekendDay(t *time.Time) bool {
	if t == nil {
		return false
	}
	day := weekday(*t)
	for _, w := range d.cfg.WeekendDays {
		if day == w {
			return true
		}
	}
	return false
}

// abnormalHour reports whether the timestamp's hour falls in the
// configured window. A single hour (or an equal pair) matches exactly;
// an ascending pair matches the inclusive same-day range; a descending
// PM-to-AM pair wraps past midnight.
func (d *Detector) abnormalHour(t *time.Time) bool {
	if t == nil {
		return false
	}
	h := t.Hour()
	hours := d.cfg.AbnormalHours
	if len(hours) == 1 || hours[0] == hours[1] {
		return h == hours[0]
	}
	start, end := hours[0], hours[1]
	if end < start {
		return h >= start || h <= end
	}
	return h >= start && h <= end
}

// TemporalAnomalies flags vendor records created or modified on weekend
// days or inside the abnormal-hours window. Weekend findings take
// precedence: a record flagged on a weekend day is excluded from the
// off-hours table, and within the off-hours table a creation-hour hit
// excludes the record from the modification-hour scan.
func (d *Detector) TemporalAnomalies(vendors []model.Vendor) (weekend, offHours []model.TemporalEdit) {
	weekend = []model.TemporalEdit{}
	offHours = []model.TemporalEdit{}
	for _, v := range vendors {
		edit := model.TemporalEdit{
			VendorID:           v.ID,
			VendorName:         v.Name,
			Status:             v.Status,
			CreationUserID:     v.CreationUserID,
			CreationDate:       v.CreationDate,
			ModificationUserID: v.ModificationUserID,
			ModificationDate:   v.ModificationDate,
		}

		edit.CreationHit = d.weekendDay(v.CreationDate)
		edit.ModificationHit = d.weekendDay(v.ModificationDate)
		if edit.CreationHit || edit.ModificationHit {
			weekend = append(weekend, edit)
			continue
		}

		edit.CreationHit = d.abnormalHour(v.CreationDate)
		edit.ModificationHit = !edit.CreationHit && d.abnormalHour(v.ModificationDate)
		if edit.CreationHit || edit.ModificationHit {
			offHours = append(offHours, edit)
		}
	}
	d.logger.Info("temporal anomaly scan complete",
		zap.Int("vendors", len(vendors)),
		zap.Int("weekend", len(weekend)),
		zap.Int("off_hours", len(offHours)))
	return weekend, offHours
}

// allowlist splits the access-rights table into its two grants.
type allowlist struct {
	creation     map[string]struct{}
	modification map[string]struct{}
}

func buildAllowlist(rights []model.AccessRight) allowlist {
	al := allowlist{
		creation:     make(map[string]struct{}, len(rights)),
		modification: make(map[string]struct{}, len(rights)),
	}
	for _, r := range rights {
		if r.CreationUserID != nil && *r.CreationUserID != "" {
			al.creation[*r.CreationUserID] = struct{}{}
		}
		if r.ModificationUserID != nil && *r.ModificationUserID != "" {
			al.modification[*r.ModificationUserID] = struct{}{}
		}
	}
	return al
}

// employeeRecord is a directory entry resolved from the two rosters.
type employeeRecord struct {
	name            string
	department      string
	status          model.EmployeeStatus
	terminationDate *time.Time
}

func buildDirectory(active, terminated []model.Employee) map[string]employeeRecord {
	dir := make(map[string]employeeRecord, len(active)+len(terminated))
	for _, e := range active {
		dir[e.ID] = employeeRecord{name: e.Name, department: e.Department, status: model.EmployeeActive}
	}
	for _, e := range terminated {
		dir[e.ID] = employeeRecord{
			name:            e.Name,
			department:      e.Department,
			status:          model.EmployeeTerminated,
			terminationDate: e.TerminationDate,
		}
	}
	return dir
}

// UnauthorizedEdits flags every vendor record whose creation or
// modification user is absent from the corresponding allowlist grant. A
// record failing both checks produces two rows, one per action. User
// details are resolved from the employee rosters; the terminated roster
// wins when an ID appears on both.
func (d *Detector) UnauthorizedEdits(vendors []model.Vendor, active, terminated []model.Employee, rights []model.AccessRight) []model.UnauthorizedEdit {
	al := buildAllowlist(rights)
	dir := buildDirectory(active, terminated)

	// Creation violations first, then modification violations, so each
	// block reads as one review pass.
	out := []model.UnauthorizedEdit{}
	for _, v := range vendors {
		if _, ok := al.creation[v.CreationUserID]; !ok {
			out = append(out, d.unauthorizedRow(v, dir, model.ActionCreation))
		}
	}
	for _, v := range vendors {
		if _, ok := al.modification[v.ModificationUserID]; !ok {
			out = append(out, d.unauthorizedRow(v, dir, model.ActionModification))
		}
	}
	d.logger.Info("access review complete",
		zap.Int("vendors", len(vendors)),
		zap.Int("violations", len(out)))
	return out
}

func (d *Detector) unauthorizedRow(v model.Vendor, dir map[string]employeeRecord, action model.EditAction) model.UnauthorizedEdit {
	row := model.UnauthorizedEdit{
		VendorID:           v.ID,
		VendorName:         v.Name,
		Action:             action,
		CreationUserID:     v.CreationUserID,
		CreationDate:       v.CreationDate,
		ModificationUserID: v.ModificationUserID,
		ModificationDate:   v.ModificationDate,
	}
	if rec, ok := dir[v.CreationUserID]; ok {
		row.CreationUserName = rec.name
		row.CreationUserDepartment = rec.department
		row.CreationUserStatus = string(rec.status)
	}
	if rec, ok := dir[v.ModificationUserID]; ok {
		row.ModificationUserName = rec.name
		row.ModificationUserDepartment = rec.department
		row.ModificationUserStatus = string(rec.status)
		row.TerminationDate = rec.terminationDate
	}
	return row
}

// SelfEdits scans the unauthorized-edit table for users whose own name
// resembles the vendor record they touched. Both user names are scored
// against the vendor name; a row survives when either similarity reaches
// the close-match threshold.
func (d *Detector) SelfEdits(unauthorized []model.UnauthorizedEdit) []model.SelfEdit {
	out := []model.SelfEdit{}
	for _, u := range unauthorized {
		se := model.SelfEdit{UnauthorizedEdit: u}
		if u.CreationUserName != "" {
			se.CreationSimilarity = similarity.Ratio(u.CreationUserName, u.VendorName)
		}
		if u.ModificationUserName != "" {
			se.ModificationSimilarity = similarity.Ratio(u.ModificationUserName, u.VendorName)
		}
		if se.CreationSimilarity >= d.closeMatch || se.ModificationSimilarity >= d.closeMatch {
			out = append(out, se)
		}
	}
	return out
}

// UserSummary aggregates a temporal-anomaly table per user and action,
// annotating each user with their allowlist standing for that action.
func (d *Detector) UserSummary(edits []model.TemporalEdit, rights []model.AccessRight) []model.UserEditSummary {
	al := buildAllowlist(rights)

	type key struct {
		user   string
		action model.EditAction
	}
	counts := make(map[key]int)
	order := []key{}
	for _, e := range edits {
		if e.CreationHit {
			k := key{user: e.CreationUserID, action: model.ActionCreation}
			if counts[k] == 0 {
				order = append(order, k)
			}
			counts[k]++
		}
		if e.ModificationHit {
			k := key{user: e.ModificationUserID, action: model.ActionModification}
			if counts[k] == 0 {
				order = append(order, k)
			}
			counts[k]++
		}
	}

	out := make([]model.UserEditSummary, 0, len(order))
	for _, k := range order {
		grants := al.creation
		if k.action == model.ActionModification {
			grants = al.modification
		}
		_, authorized := grants[k.user]
		out = append(out, model.UserEditSummary{
			UserID:     k.user,
			Action:     k.action,
			EditCount:  counts[k],
			Authorized: authorized,
		})
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].EditCount > out[b].EditCount
	})
	return out
}

// PeriodSummary counts created and modified vendor records per calendar
// year across the whole file, in ascending year order.
func (d *Detector) PeriodSummary(vendors []model.Vendor) []model.PeriodEditSummary {
	created := make(map[int]int)
	modified := make(map[int]int)
	for _, v := range vendors {
		if v.CreationDate != nil {
			created[v.CreationDate.Year()]++
		}
		if v.ModificationDate != nil {
			modified[v.ModificationDate.Year()]++
		}
	}

	years := make(map[int]struct{}, len(created)+len(modified))
	for y := range created {
		years[y] = struct{}{}
	}
	for y := range modified {
		years[y] = struct{}{}
	}
	sorted := make([]int, 0, len(years))
	for y := range years {
		sorted = append(sorted, y)
	}
	sort.Ints(sorted)

	out := make([]model.PeriodEditSummary, 0, len(sorted))
	for _, y := range sorted {
		out = append(out, model.PeriodEditSummary{
			Year:          y,
			CreatedCount:  created[y],
			ModifiedCount: modified[y],
		})
	}
	return out
}
