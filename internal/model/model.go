// Package model defines the typed tabular inputs the audit engine consumes
// and the finding tables it produces. All tables are immutable snapshots:
// every pipeline stage reads one table and emits a new one.
package model

import "time"

// Vendor is one row of the vendor master file.
type Vendor struct {
	ID                 *int64     `json:"id"`
	Name               string     `json:"name"`
	Status             string     `json:"vendor_status"`
	Phone              *string    `json:"phone"`
	PostalCode         *string    `json:"postal_code"`
	Address            *string    `json:"address"`
	TaxID              *string    `json:"taxpayer_identification_number_tin"`
	CreationUserID     string     `json:"creation_user_id"`
	CreationDate       *time.Time `json:"creation_date"`
	ModificationUserID string     `json:"modification_user_id"`
	ModificationDate   *time.Time `json:"modification_date"`
}

// Employee is one row of the active or terminated employee roster.
type Employee struct {
	ID              string     `json:"employee_id"`
	Name            string     `json:"employee_name"`
	Department      string     `json:"departement"`
	Phone           *string    `json:"phone"`
	PostalCode      *string    `json:"postal_code"`
	Address         *string    `json:"address"`
	SSN             *string    `json:"social_security_number_ssn"`
	HiringDate      *time.Time `json:"hiring_date"`
	TerminationDate *time.Time `json:"termination_date"`
}

// EmployeeStatus labels which roster an employee row came from.
type EmployeeStatus string

const (
	EmployeeActive     EmployeeStatus = "Active"
	EmployeeTerminated EmployeeStatus = "Terminated"
)

// PurchaseOrder is one row of the purchase-order history.
type PurchaseOrder struct {
	VendorName string     `json:"vendor_name"`
	Number     *int64     `json:"po_number"`
	Date       *time.Time `json:"po_date"`
	Status     string     `json:"po_status"`
	Total      *int64     `json:"po_total"`
	Currency   string     `json:"currency"`
}

// AccessRight is one allowlist row. Either column may be empty: a row can
// grant creation rights, modification rights, or both.
type AccessRight struct {
	CreationUserID     *string `json:"creation_user_id"`
	ModificationUserID *string `json:"modification_user_id"`
}

// Snapshot bundles the five typed inputs of a single audit run.
type Snapshot struct {
	Vendors             []Vendor
	ActiveEmployees     []Employee
	TerminatedEmployees []Employee
	PurchaseOrders      []PurchaseOrder
	AccessRights        []AccessRight
}

// VendorMatch is one surviving vendor-vs-vendor name match.
type VendorMatch struct {
	VendorID        *int64  `json:"vendor_id"`
	VendorName      string  `json:"vendor_name"`
	MatchVendorID   *int64  `json:"match_vendor_id"`
	MatchVendorName string  `json:"match_vendor_name"`
	Rank            int     `json:"rank"`
	Similarity      float64 `json:"similarity"`
	MatchStatus     string  `json:"match_vendor_status"`

	VendorPhone          *string `json:"vendor_phone"`
	VendorPostalCode     *string `json:"vendor_postal_code"`
	VendorAddress        *string `json:"vendor_address"`
	VendorTaxID          *string `json:"vendor_tin"`
	MatchVendorPhone     *string `json:"match_vendor_phone"`
	MatchVendorPostal    *string `json:"match_vendor_postal_code"`
	MatchVendorAddress   *string `json:"match_vendor_address"`
	MatchVendorTaxID     *string `json:"match_vendor_tin"`
}

// EmployeeVendorMatch is one surviving employee-vs-vendor name match.
type EmployeeVendorMatch struct {
	EmployeeID     string         `json:"employee_id"`
	EmployeeName   string         `json:"employee_name"`
	EmployeeStatus EmployeeStatus `json:"employee_status"`
	VendorID       *int64         `json:"vendor_id"`
	VendorName     string         `json:"vendor_name"`
	VendorStatus   string         `json:"vendor_status"`
	Rank           int            `json:"rank"`
	Similarity     float64        `json:"similarity"`

	EmployeePhone      *string `json:"employee_phone"`
	EmployeePostalCode *string `json:"employee_postal_code"`
	EmployeeAddress    *string `json:"employee_address"`
	EmployeeSSN        *string `json:"employee_ssn"`
	VendorPhone        *string `json:"vendor_phone"`
	VendorPostalCode   *string `json:"vendor_postal_code"`
	VendorAddress      *string `json:"vendor_address"`
	VendorTaxID        *string `json:"vendor_tin"`
}

// FieldSimilarity is one scored attribute pair of a composite match.
type FieldSimilarity struct {
	Field string  `json:"field"`
	Score float64 `json:"score"`
}

// CompositeMatch ranks a match by name similarity plus per-field scores.
type CompositeMatch struct {
	LeftID            string            `json:"left_id"`
	LeftName          string            `json:"left_name"`
	RightID           string            `json:"right_id"`
	RightName         string            `json:"right_name"`
	NameSimilarity    float64           `json:"similarity"`
	FieldSimilarities []FieldSimilarity `json:"field_similarities"`
	TotalScore        float64           `json:"total_similarity_score"`
}

// SequenceEntry pairs an identifier with its ascending-order successor.
type SequenceEntry struct {
	Value     int64 `json:"start"`
	Successor int64 `json:"end"`
	Gap       int64 `json:"gap"`
}

// SequenceFindings separates the anomalous entries of a scanned sequence.
type SequenceFindings struct {
	// Gaps holds entries with gap > 1; the missing identifiers span
	// Value+1 through Successor-1.
	Gaps []SequenceEntry `json:"gaps"`
	// Duplicates holds entries with gap == 0.
	Duplicates []SequenceEntry `json:"duplicates"`
}

// EditAction distinguishes which half of an edit trail fired a finding.
type EditAction string

const (
	ActionCreation     EditAction = "creation"
	ActionModification EditAction = "modification"
)

// UnauthorizedEdit flags a vendor record touched by a user absent from the
// access allowlist for that action.
type UnauthorizedEdit struct {
	VendorID   *int64     `json:"vendor_id"`
	VendorName string     `json:"vendor_name"`
	Action     EditAction `json:"action"`

	CreationUserID         string     `json:"creation_user_id"`
	CreationDate           *time.Time `json:"creation_date"`
	CreationUserName       string     `json:"creation_user_name"`
	CreationUserDepartment string     `json:"creation_user_departement"`
	CreationUserStatus     string     `json:"creation_user_status"`

	ModificationUserID         string     `json:"modification_user_id"`
	ModificationDate           *time.Time `json:"modification_date"`
	ModificationUserName       string     `json:"modification_user_name"`
	ModificationUserDepartment string     `json:"modification_user_departement"`
	ModificationUserStatus     string     `json:"modification_user_status"`

	TerminationDate *time.Time `json:"termination_date"`
}

// SelfEdit flags a user editing a vendor record resembling their own name.
type SelfEdit struct {
	UnauthorizedEdit
	CreationSimilarity     float64 `json:"similarity_creation"`
	ModificationSimilarity float64 `json:"similarity_modification"`
}

// TemporalEdit flags a vendor record created or modified inside a
// suspicious weekday or hour-of-day window.
type TemporalEdit struct {
	VendorID           *int64     `json:"vendor_id"`
	VendorName         string     `json:"vendor_name"`
	Status             string     `json:"vendor_status"`
	CreationUserID     string     `json:"creation_user_id"`
	CreationDate       *time.Time `json:"creation_date"`
	ModificationUserID string     `json:"modification_user_id"`
	ModificationDate   *time.Time `json:"modification_date"`
	CreationHit        bool       `json:"creation_hit"`
	ModificationHit    bool       `json:"modification_hit"`
}

// EmployeePO links a purchase order to an employee whose name matches the
// billed vendor.
type EmployeePO struct {
	EmployeeID      string         `json:"employee_id"`
	EmployeeName    string         `json:"employee_name"`
	EmployeeStatus  EmployeeStatus `json:"employee_status"`
	TerminationDate *time.Time     `json:"termination_date"`
	VendorID        *int64         `json:"vendor_id"`
	VendorName      string         `json:"vendor_name"`
	VendorStatus    string         `json:"vendor_status"`
	Similarity      float64        `json:"similarity"`
	PONumber        *int64         `json:"po_number"`
	PODate          *time.Time     `json:"po_date"`
	POStatus        string         `json:"po_status"`
	POTotal         *int64         `json:"po_total"`
	Currency        string         `json:"currency"`
}

// PostTerminationSummary aggregates exact-match purchase orders placed
// after an employee's termination date.
type PostTerminationSummary struct {
	EmployeeID      string     `json:"employee_id"`
	EmployeeName    string     `json:"employee_name"`
	TerminationDate *time.Time `json:"termination_date"`
	EarliestPODate  *time.Time `json:"earliest_po_date"`
	POCount         int        `json:"po_count"`
	SumPOValues     int64      `json:"sum_po_values"`
}

// InactiveVendorPO is a purchase order billed to an inactive vendor.
type InactiveVendorPO struct {
	PurchaseOrder
	VendorStatus string `json:"vendor_status"`
}

// InactiveVendorSummary aggregates inactive-vendor purchase orders per
// vendor and currency.
type InactiveVendorSummary struct {
	VendorName  string `json:"vendor_name"`
	Currency    string `json:"currency"`
	POCount     int    `json:"po_count"`
	SumPOValues int64  `json:"sum_po_values"`
}

// UserEditSummary counts flagged creations/modifications per user.
type UserEditSummary struct {
	UserID     string     `json:"user_id"`
	Action     EditAction `json:"action"`
	EditCount  int        `json:"edit_count"`
	Authorized bool       `json:"user_authorized"`
}

// PeriodEditSummary counts created and modified records per calendar year.
type PeriodEditSummary struct {
	Year          int `json:"period"`
	CreatedCount  int `json:"created_records_count"`
	ModifiedCount int `json:"modified_records_count"`
}

// MissingDetail counts absent values in one vendor-file column.
type MissingDetail struct {
	Column       string `json:"missing_records"`
	MissingCount int    `json:"missing_records_count"`
}

// Findings is the complete output of one audit run.
type Findings struct {
	RunID string `json:"run_id"`

	VendorMatches           []VendorMatch            `json:"vendor_name_match"`
	ActiveEmployeeMatches   []EmployeeVendorMatch    `json:"active_emp_vs_ven_name_match"`
	TerminatedEmpMatches    []EmployeeVendorMatch    `json:"term_emp_vs_ven_name_match"`
	NonLatinVendors         []Vendor                 `json:"non_latin_ven_names"`
	EmployeePOs             []EmployeePO             `json:"po_to_employees"`
	PostTerminationPOs      []EmployeePO             `json:"po_date_after_emp_term_date"`
	PostTerminationSummary  []PostTerminationSummary `json:"post_termination_summary"`
	UnauthorizedEdits       []UnauthorizedEdit       `json:"unauthorized_access"`
	SelfEdits               []SelfEdit               `json:"employees_editing_own_records"`
	WeekendEdits            []TemporalEdit           `json:"weekend_modifications"`
	OffHoursEdits           []TemporalEdit           `json:"abnormal_hours_modifications"`
	InactiveVendorPOs       []InactiveVendorPO       `json:"po_for_inactive_vendors"`
	InactiveVendorSummary   []InactiveVendorSummary  `json:"po_for_inactive_vendors_summary"`
	VendorIDFindings        SequenceFindings         `json:"vendor_id_sequence"`
	PONumberFindings        SequenceFindings         `json:"po_number_sequence"`
	VendorComposites        []CompositeMatch         `json:"similarity_all_vendor_details"`
	ActiveEmpComposites     []CompositeMatch         `json:"similarity_all_emp_ven_details"`
	TerminatedEmpComposites []CompositeMatch         `json:"similarity_all_term_ven_details"`
	VendorCompositeSummary  []CompositeMatch         `json:"vendor_composite_summary"`
	ActiveEmpSummary        []CompositeMatch         `json:"active_emp_composite_summary"`
	TerminatedEmpSummary    []CompositeMatch         `json:"term_emp_composite_summary"`
	WeekendUserSummary      []UserEditSummary        `json:"weekend_user_summary"`
	OffHoursUserSummary     []UserEditSummary        `json:"off_hours_user_summary"`
	PeriodSummary           []PeriodEditSummary      `json:"period_summary"`
	MissingDetails          []MissingDetail          `json:"missing_vendor_details"`
}

// StringValue dereferences an optional string, returning "" when absent.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Int64Value dereferences an optional int64, returning 0 when absent.
func Int64Value(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
