// Package database persists audit runs and their findings to Postgres.
// Persistence is optional; a run is complete once the workbook is
// written, the repository is a queryable archive on top.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/ammopy/vmf-audit/internal/config"
	"github.com/ammopy/vmf-audit/internal/model"
)

// Repository handles database operations for audit findings
type Repository struct {
	db             *sql.DB
	migrationsPath string
	logger         *zap.Logger
}

// NewRepository creates a new database repository
func NewRepository(cfg config.DatabaseConfig, logger *zap.Logger) (*Repository, error) {
	db, err := sql.Open("postgres", fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, cfg.SSLMode,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections / 2)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{
		db:             db,
		migrationsPath: cfg.MigrationsPath,
		logger:         logger,
	}, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// Migrate runs database migrations
func (r *Repository) Migrate() error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(r.migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Info("database migrations completed")
	return nil
}

// SaveRun persists an audit run and every finding table in one
// transaction. Each finding row is stored as JSON alongside the table
// name it belongs to.
func (r *Repository) SaveRun(ctx context.Context, findings *model.Findings) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	total := 0
	count, err := r.saveTables(ctx, tx, findings)
	if err != nil {
		return err
	}
	total += count

	_, err = tx.ExecContext(ctx,
		`INSERT INTO audit_runs (id, completed_at, findings_count) VALUES ($1, $2, $3)`,
		findings.RunID, time.Now().UTC(), total,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit run: %w", err)
	}
	r.logger.Info("audit run persisted",
		zap.String("run_id", findings.RunID),
		zap.Int("findings", total))
	return nil
}

func (r *Repository) saveTables(ctx context.Context, tx *sql.Tx, findings *model.Findings) (int, error) {
	tables := []struct {
		name string
		rows interface{}
	}{
		{"vendor_name_match", findings.VendorMatches},
		{"active_emp_vs_ven_name_match", findings.ActiveEmployeeMatches},
		{"term_emp_vs_ven_name_match", findings.TerminatedEmpMatches},
		{"non_latin_ven_names", findings.NonLatinVendors},
		{"po_to_employees", findings.EmployeePOs},
		{"po_date_after_emp_term_date", findings.PostTerminationPOs},
		{"unauthorized_access", findings.UnauthorizedEdits},
		{"employees_editing_own_records", findings.SelfEdits},
		{"weekend_modifications", findings.WeekendEdits},
		{"abnormal_hours_modifications", findings.OffHoursEdits},
		{"po_for_inactive_vendors", findings.InactiveVendorPOs},
		{"gaps_vendor_id", findings.VendorIDFindings.Gaps},
		{"duplicate_vendor_id", findings.VendorIDFindings.Duplicates},
		{"gaps_po_number", findings.PONumberFindings.Gaps},
		{"duplicate_po_number", findings.PONumberFindings.Duplicates},
		{"similarity_all_vendor_details", findings.VendorComposites},
		{"similarity_all_emp_ven_details", findings.ActiveEmpComposites},
		{"similarity_all_term_ven_details", findings.TerminatedEmpComposites},
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO findings (id, run_id, table_name, row_number, payload) VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare findings insert: %w", err)
	}
	defer stmt.Close()

	total := 0
	for _, t := range tables {
		rows, err := marshalRows(t.rows)
		if err != nil {
			return 0, fmt.Errorf("failed to encode %s findings: %w", t.name, err)
		}
		for i, payload := range rows {
			if _, err := stmt.ExecContext(ctx, uuid.New(), findings.RunID, t.name, i, payload); err != nil {
				return 0, fmt.Errorf("failed to insert %s finding: %w", t.name, err)
			}
		}
		total += len(rows)
	}
	return total, nil
}

// marshalRows encodes each element of a findings slice as its own JSON
// document.
func marshalRows(rows interface{}) ([][]byte, error) {
	raw, err := json.Marshal(rows)
	if err != nil {
		return nil, err
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, err
	}
	out := make([][]byte, len(elements))
	for i, e := range elements {
		out[i] = e
	}
	return out, nil
}
