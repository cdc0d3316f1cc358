// Package loader reads the five tab-separated, UTF-16 encoded input files
// into the typed tables the audit engine consumes. Values that fail
// numeric or date coercion degrade to absent rather than aborting the
// run; rows that are entirely blank are dropped.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ammopy/vmf-audit/internal/config"
	"github.com/ammopy/vmf-audit/internal/model"
)

// dateLayouts are tried in order when coercing date columns.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
}

// Loader reads audit input files.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a loader.
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: logger}
}

// LoadSnapshot reads all five configured input files.
func (l *Loader) LoadSnapshot(cfg config.InputConfig) (*model.Snapshot, error) {
	vendors, err := l.LoadVendors(cfg.VendorFile)
	if err != nil {
		return nil, err
	}
	active, err := l.LoadEmployees(cfg.EmployeeFile)
	if err != nil {
		return nil, err
	}
	terminated, err := l.LoadEmployees(cfg.TerminatedEmployeeFile)
	if err != nil {
		return nil, err
	}
	orders, err := l.LoadPurchaseOrders(cfg.PurchaseOrderFile)
	if err != nil {
		return nil, err
	}
	rights, err := l.LoadAccessRights(cfg.AccessRightsFile)
	if err != nil {
		return nil, err
	}
	return &model.Snapshot{
		Vendors:             vendors,
		ActiveEmployees:     active,
		TerminatedEmployees: terminated,
		PurchaseOrders:      orders,
		AccessRights:        rights,
	}, nil
}

// LoadVendors reads the vendor master file.
func (l *Loader) LoadVendors(path string) ([]model.Vendor, error) {
	rows, err := l.readTable(path)
	if err != nil {
		return nil, err
	}
	out := make([]model.Vendor, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Vendor{
			ID:                 optionalInt(r["id"]),
			Name:               r["name"],
			Status:             r["vendor_status"],
			Phone:              optionalString(r["phone"]),
			PostalCode:         optionalString(r["postal_code"]),
			Address:            optionalString(r["address"]),
			TaxID:              optionalString(r["taxpayer_identification_number_tin"]),
			CreationUserID:     r["creation_user_id"],
			CreationDate:       optionalDate(r["creation_date"]),
			ModificationUserID: r["modification_user_id"],
			ModificationDate:   optionalDate(r["modification_date"]),
		})
	}
	l.logger.Info("loaded vendors", zap.String("file", path), zap.Int("rows", len(out)))
	return out, nil
}

// LoadEmployees reads an employee roster, active or terminated. The
// termination_date column is absent from the active roster and simply
// stays unset there.
func (l *Loader) LoadEmployees(path string) ([]model.Employee, error) {
	rows, err := l.readTable(path)
	if err != nil {
		return nil, err
	}
	out := make([]model.Employee, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Employee{
			ID:              r["employee_id"],
			Name:            r["employee_name"],
			Department:      r["departement"],
			Phone:           optionalString(r["phone"]),
			PostalCode:      optionalString(r["postal_code"]),
			Address:         optionalString(r["address"]),
			SSN:             optionalString(r["social_security_number_ssn"]),
			HiringDate:      optionalDate(r["hiring_date"]),
			TerminationDate: optionalDate(r["termination_date"]),
		})
	}
	l.logger.Info("loaded employees", zap.String("file", path), zap.Int("rows", len(out)))
	return out, nil
}

// LoadPurchaseOrders reads the purchase-order history. Totals may carry
// thousands separators.
func (l *Loader) LoadPurchaseOrders(path string) ([]model.PurchaseOrder, error) {
	rows, err := l.readTable(path)
	if err != nil {
		return nil, err
	}
	out := make([]model.PurchaseOrder, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.PurchaseOrder{
			VendorName: r["vendor_name"],
			Number:     optionalInt(r["po_number"]),
			Date:       optionalDate(r["po_date"]),
			Status:     r["po_status"],
			Total:      optionalInt(strings.ReplaceAll(r["po_total"], ",", "")),
			Currency:   r["currency"],
		})
	}
	l.logger.Info("loaded purchase orders", zap.String("file", path), zap.Int("rows", len(out)))
	return out, nil
}

// LoadAccessRights reads the access allowlist.
func (l *Loader) LoadAccessRights(path string) ([]model.AccessRight, error) {
	rows, err := l.readTable(path)
	if err != nil {
		return nil, err
	}
	out := make([]model.AccessRight, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.AccessRight{
			CreationUserID:     optionalString(r["creation_user_id"]),
			ModificationUserID: optionalString(r["modification_user_id"]),
		})
	}
	l.logger.Info("loaded access rights", zap.String("file", path), zap.Int("rows", len(out)))
	return out, nil
}

// readTable decodes a UTF-16 tab-separated file into header-keyed rows,
// dropping rows with no values at all.
func (l *Loader) readTable(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	reader := csv.NewReader(transform.NewReader(f, decoder))
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.ToLower(header[i]))
	}

	rows := []map[string]string{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		row := make(map[string]string, len(header))
		blank := true
		for i, col := range header {
			if i >= len(record) {
				break
			}
			value := strings.TrimSpace(record[i])
			row[col] = value
			if value != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalInt(s string) *int64 {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Some exports render integers as floats.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return nil
		}
		n = int64(f)
	}
	return &n
}

func optionalDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
