// Package report renders an audit run into a spreadsheet workbook: a
// summary sheet stacking the review tables under a missing-data chart,
// plus one sheet per detailed finding table.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ammopy/vmf-audit/internal/model"
)

const summarySheet = "summary_tables"

// Writer renders findings workbooks.
type Writer struct {
	logger *zap.Logger
}

// NewWriter creates a report writer.
func NewWriter(logger *zap.Logger) *Writer {
	return &Writer{logger: logger}
}

// Write renders the findings into an xlsx workbook at path, creating the
// parent directory when needed.
func (w *Writer) Write(findings *model.Findings, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := w.writeSummary(f, findings); err != nil {
		return err
	}
	if err := w.writeDetails(f, findings); err != nil {
		return err
	}

	// The default sheet becomes the summary sheet.
	f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex(summarySheet); err == nil {
		f.SetActiveSheet(idx)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	w.logger.Info("report written", zap.String("path", path))
	return nil
}

// writeSummary stacks the review tables on one sheet, with a column
// chart over the missing-details counts beside the first table.
func (w *Writer) writeSummary(f *excelize.File, findings *model.Findings) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}

	row := 1
	var err error
	row, err = writeTable(f, summarySheet, row, "Missing vendor details",
		[]string{"missing_records", "missing_records_count"}, missingDetailRows(findings.MissingDetails))
	if err != nil {
		return err
	}
	chartEnd := row - 2

	sections := []struct {
		title   string
		headers []string
		rows    [][]interface{}
	}{
		{"Summary of vendors having highest similarities across all records",
			compositeHeaders("vendor_id", "vendor_name", "match_vendor_id", "match_vendor_name"),
			compositeRows(findings.VendorCompositeSummary)},
		{"Summary of active employees and vendors having highest similarities across all records",
			compositeHeaders("employee_id", "employee_name", "vendor_id", "vendor_name"),
			compositeRows(findings.ActiveEmpSummary)},
		{"Summary of terminated employees and vendors having highest similarities across all records",
			compositeHeaders("employee_id", "employee_name", "vendor_id", "vendor_name"),
			compositeRows(findings.TerminatedEmpSummary)},
		{"Issued POs after employee termination date, only exact name matches are considered",
			[]string{"employee_id", "employee_name", "termination_date", "earliest_po_date", "po_count", "sum_po_values"},
			postTerminationRows(findings.PostTerminationSummary)},
		{"Issued POs for inactive vendors",
			[]string{"vendor_name", "currency", "po_count", "sum_po_values"},
			inactiveSummaryRows(findings.InactiveVendorSummary)},
		{"Vendor records creation/modification on weekends",
			[]string{"user_id", "action", "edit_count", "user_authorized"},
			userSummaryRows(findings.WeekendUserSummary)},
		{"Vendor records creation/modification at abnormal working hours",
			[]string{"user_id", "action", "edit_count", "user_authorized"},
			userSummaryRows(findings.OffHoursUserSummary)},
		{"Summary of vendor records creation/modification by period",
			[]string{"period", "created_records_count", "modified_records_count"},
			periodRows(findings.PeriodSummary)},
	}
	for _, s := range sections {
		row, err = writeTable(f, summarySheet, row, s.title, s.headers, s.rows)
		if err != nil {
			return err
		}
	}

	if err := f.SetColWidth(summarySheet, "A", "G", 30); err != nil {
		return err
	}
	return w.insertMissingDataChart(f, chartEnd)
}

// insertMissingDataChart draws the missing-details counts as a column
// chart anchored beside the first summary table.
func (w *Writer) insertMissingDataChart(f *excelize.File, lastRow int) error {
	if lastRow < 3 {
		return nil
	}
	return f.AddChart(summarySheet, "C1", &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Categories: fmt.Sprintf("%s!$A$3:$A$%d", summarySheet, lastRow),
			Values:     fmt.Sprintf("%s!$B$3:$B$%d", summarySheet, lastRow),
		}},
		Legend: excelize.ChartLegend{Position: "none"},
		XAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Missing Data"}}},
		YAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Count"}}},
	})
}

// writeDetails renders one sheet per detailed finding table.
func (w *Writer) writeDetails(f *excelize.File, findings *model.Findings) error {
	sheets := []struct {
		name    string
		headers []string
		rows    [][]interface{}
	}{
		{"vendor_name_match", vendorMatchHeaders, vendorMatchRows(findings.VendorMatches)},
		{"active_emp_vs_ven_name_match", employeeMatchHeaders, employeeMatchRows(findings.ActiveEmployeeMatches)},
		{"term_emp_vs_ven_name_match", employeeMatchHeaders, employeeMatchRows(findings.TerminatedEmpMatches)},
		{"non_latin_ven_names", vendorHeaders, vendorRows(findings.NonLatinVendors)},
		{"po_to_employees", employeePOHeaders, employeePORows(findings.EmployeePOs)},
		{"unauthorized_access", unauthorizedHeaders, unauthorizedRows(findings.UnauthorizedEdits)},
		{"employees_editing_own_records", selfEditHeaders, selfEditRows(findings.SelfEdits)},
		{"weekend_modifications", temporalHeaders, temporalRows(findings.WeekendEdits)},
		{"abnormal_hours_modifications", temporalHeaders, temporalRows(findings.OffHoursEdits)},
		{"po_for_inactive_vendors", inactivePOHeaders, inactivePORows(findings.InactiveVendorPOs)},
		{"gaps_vendor_id", sequenceHeaders, sequenceRows(findings.VendorIDFindings.Gaps)},
		{"duplicate_vendor_id", sequenceHeaders, sequenceRows(findings.VendorIDFindings.Duplicates)},
		{"gaps_po_number", sequenceHeaders, sequenceRows(findings.PONumberFindings.Gaps)},
		{"duplicate_po_number", sequenceHeaders, sequenceRows(findings.PONumberFindings.Duplicates)},
		{"similarity_all_vendor_details", compositeDetailHeaders, compositeDetailRows(findings.VendorComposites)},
		{"similarity_all_emp_ven_details", compositeDetailHeaders, compositeDetailRows(findings.ActiveEmpComposites)},
		{"similarity_all_term_ven_details", compositeDetailHeaders, compositeDetailRows(findings.TerminatedEmpComposites)},
		{"po_date_after_emp_term_date", employeePOHeaders, employeePORows(findings.PostTerminationPOs)},
	}
	for _, s := range sheets {
		if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", s.name, err)
		}
		if _, err := writeTable(f, s.name, 1, "", s.headers, s.rows); err != nil {
			return err
		}
	}
	return nil
}

// writeTable writes an optional title row, a header row, and the data
// rows, returning the first free row after a one-row spacer.
func writeTable(f *excelize.File, sheet string, startRow int, title string, headers []string, rows [][]interface{}) (int, error) {
	row := startRow
	if title != "" {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return 0, err
		}
		row++
	}

	headerCells := make([]interface{}, len(headers))
	for i, h := range headers {
		headerCells[i] = h
	}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(sheet, cell, &headerCells); err != nil {
		return 0, err
	}
	row++

	for _, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return 0, err
		}
		row++
	}
	return row + 1, nil
}

func cellDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02 15:04:05")
}

func cellInt(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func cellString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

var vendorMatchHeaders = []string{
	"vendor_id", "vendor_name", "match_vendor_id", "match_vendor_name", "rank", "similarity", "match_vendor_status",
	"vendor_phone", "match_vendor_phone", "vendor_postal_code", "match_vendor_postal_code",
	"vendor_address", "match_vendor_address", "vendor_tin", "match_vendor_tin",
}

func vendorMatchRows(matches []model.VendorMatch) [][]interface{} {
	rows := make([][]interface{}, len(matches))
	for i, m := range matches {
		rows[i] = []interface{}{
			cellInt(m.VendorID), m.VendorName, cellInt(m.MatchVendorID), m.MatchVendorName,
			m.Rank, m.Similarity, m.MatchStatus,
			cellString(m.VendorPhone), cellString(m.MatchVendorPhone),
			cellString(m.VendorPostalCode), cellString(m.MatchVendorPostal),
			cellString(m.VendorAddress), cellString(m.MatchVendorAddress),
			cellString(m.VendorTaxID), cellString(m.MatchVendorTaxID),
		}
	}
	return rows
}

var employeeMatchHeaders = []string{
	"employee_id", "employee_name", "vendor_id", "vendor_name", "rank", "similarity", "vendor_status",
	"employee_phone", "vendor_phone", "employee_postal_code", "vendor_postal_code",
	"employee_address", "vendor_address", "employee_ssn", "vendor_tin",
}

func employeeMatchRows(matches []model.EmployeeVendorMatch) [][]interface{} {
	rows := make([][]interface{}, len(matches))
	for i, m := range matches {
		rows[i] = []interface{}{
			m.EmployeeID, m.EmployeeName, cellInt(m.VendorID), m.VendorName,
			m.Rank, m.Similarity, m.VendorStatus,
			cellString(m.EmployeePhone), cellString(m.VendorPhone),
			cellString(m.EmployeePostalCode), cellString(m.VendorPostalCode),
			cellString(m.EmployeeAddress), cellString(m.VendorAddress),
			cellString(m.EmployeeSSN), cellString(m.VendorTaxID),
		}
	}
	return rows
}

var vendorHeaders = []string{
	"id", "name", "vendor_status", "phone", "postal_code", "address",
	"taxpayer_identification_number_tin", "creation_user_id", "creation_date",
	"modification_user_id", "modification_date",
}

func vendorRows(vendors []model.Vendor) [][]interface{} {
	rows := make([][]interface{}, len(vendors))
	for i, v := range vendors {
		rows[i] = []interface{}{
			cellInt(v.ID), v.Name, v.Status, cellString(v.Phone), cellString(v.PostalCode),
			cellString(v.Address), cellString(v.TaxID), v.CreationUserID, cellDate(v.CreationDate),
			v.ModificationUserID, cellDate(v.ModificationDate),
		}
	}
	return rows
}

var employeePOHeaders = []string{
	"employee_id", "employee_name", "employee_status", "termination_date",
	"vendor_id", "vendor_name", "vendor_status", "similarity",
	"po_number", "po_date", "po_status", "po_total", "currency",
}

func employeePORows(pos []model.EmployeePO) [][]interface{} {
	rows := make([][]interface{}, len(pos))
	for i, po := range pos {
		rows[i] = []interface{}{
			po.EmployeeID, po.EmployeeName, string(po.EmployeeStatus), cellDate(po.TerminationDate),
			cellInt(po.VendorID), po.VendorName, po.VendorStatus, po.Similarity,
			cellInt(po.PONumber), cellDate(po.PODate), po.POStatus, cellInt(po.POTotal), po.Currency,
		}
	}
	return rows
}

var unauthorizedHeaders = []string{
	"vendor_id", "vendor_name", "action",
	"creation_user_id", "creation_date", "creation_user_name", "creation_user_departement", "creation_user_status",
	"modification_user_id", "modification_date", "modification_user_name", "modification_user_departement",
	"modification_user_status", "termination_date",
}

func unauthorizedRow(u model.UnauthorizedEdit) []interface{} {
	return []interface{}{
		cellInt(u.VendorID), u.VendorName, string(u.Action),
		u.CreationUserID, cellDate(u.CreationDate), u.CreationUserName, u.CreationUserDepartment, u.CreationUserStatus,
		u.ModificationUserID, cellDate(u.ModificationDate), u.ModificationUserName, u.ModificationUserDepartment,
		u.ModificationUserStatus, cellDate(u.TerminationDate),
	}
}

func unauthorizedRows(edits []model.UnauthorizedEdit) [][]interface{} {
	rows := make([][]interface{}, len(edits))
	for i, u := range edits {
		rows[i] = unauthorizedRow(u)
	}
	return rows
}

var selfEditHeaders = append(append([]string{}, unauthorizedHeaders...), "similarity_creation", "similarity_modification")

func selfEditRows(edits []model.SelfEdit) [][]interface{} {
	rows := make([][]interface{}, len(edits))
	for i, s := range edits {
		rows[i] = append(unauthorizedRow(s.UnauthorizedEdit), s.CreationSimilarity, s.ModificationSimilarity)
	}
	return rows
}

var temporalHeaders = []string{
	"vendor_id", "vendor_name", "vendor_status",
	"creation_user_id", "creation_date", "modification_user_id", "modification_date",
	"creation_hit", "modification_hit",
}

func temporalRows(edits []model.TemporalEdit) [][]interface{} {
	rows := make([][]interface{}, len(edits))
	for i, e := range edits {
		rows[i] = []interface{}{
			cellInt(e.VendorID), e.VendorName, e.Status,
			e.CreationUserID, cellDate(e.CreationDate), e.ModificationUserID, cellDate(e.ModificationDate),
			e.CreationHit, e.ModificationHit,
		}
	}
	return rows
}

var inactivePOHeaders = []string{
	"vendor_name", "po_number", "po_date", "po_status", "po_total", "currency", "vendor_status",
}

func inactivePORows(pos []model.InactiveVendorPO) [][]interface{} {
	rows := make([][]interface{}, len(pos))
	for i, po := range pos {
		rows[i] = []interface{}{
			po.VendorName, cellInt(po.Number), cellDate(po.Date), po.Status,
			cellInt(po.Total), po.Currency, po.VendorStatus,
		}
	}
	return rows
}

var sequenceHeaders = []string{"start", "end", "gap"}

func sequenceRows(entries []model.SequenceEntry) [][]interface{} {
	rows := make([][]interface{}, len(entries))
	for i, e := range entries {
		rows[i] = []interface{}{e.Value, e.Successor, e.Gap}
	}
	return rows
}

var compositeDetailHeaders = []string{
	"left_id", "left_name", "right_id", "right_name", "similarity",
	"phone_similarity", "postal_code_similarity", "address_similarity", "tax_id_similarity",
	"total_similarity_score",
}

func compositeDetailRows(composites []model.CompositeMatch) [][]interface{} {
	rows := make([][]interface{}, len(composites))
	for i, c := range composites {
		row := []interface{}{c.LeftID, c.LeftName, c.RightID, c.RightName, c.NameSimilarity}
		for _, fs := range c.FieldSimilarities {
			row = append(row, fs.Score)
		}
		row = append(row, c.TotalScore)
		rows[i] = row
	}
	return rows
}

func compositeHeaders(leftID, leftName, rightID, rightName string) []string {
	return []string{leftID, leftName, rightID, rightName, "similarity", "total_similarity_score"}
}

func compositeRows(composites []model.CompositeMatch) [][]interface{} {
	rows := make([][]interface{}, len(composites))
	for i, c := range composites {
		rows[i] = []interface{}{c.LeftID, c.LeftName, c.RightID, c.RightName, c.NameSimilarity, c.TotalScore}
	}
	return rows
}

func missingDetailRows(details []model.MissingDetail) [][]interface{} {
	rows := make([][]interface{}, len(details))
	for i, d := range details {
		rows[i] = []interface{}{d.Column, d.MissingCount}
	}
	return rows
}

func postTerminationRows(summaries []model.PostTerminationSummary) [][]interface{} {
	rows := make([][]interface{}, len(summaries))
	for i, s := range summaries {
		rows[i] = []interface{}{
			s.EmployeeID, s.EmployeeName, cellDate(s.TerminationDate),
			cellDate(s.EarliestPODate), s.POCount, s.SumPOValues,
		}
	}
	return rows
}

func inactiveSummaryRows(summaries []model.InactiveVendorSummary) [][]interface{} {
	rows := make([][]interface{}, len(summaries))
	for i, s := range summaries {
		rows[i] = []interface{}{s.VendorName, s.Currency, s.POCount, s.SumPOValues}
	}
	return rows
}

func userSummaryRows(summaries []model.UserEditSummary) [][]interface{} {
	rows := make([][]interface{}, len(summaries))
	for i, s := range summaries {
		rows[i] = []interface{}{s.UserID, string(s.Action), s.EditCount, s.Authorized}
	}
	return rows
}

func periodRows(summaries []model.PeriodEditSummary) [][]interface{} {
	rows := make([][]interface{}, len(summaries))
	for i, s := range summaries {
		rows[i] = []interface{}{s.Year, s.CreatedCount, s.ModifiedCount}
	}
	return rows
}
