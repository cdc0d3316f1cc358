// Package kafka publishes audit findings as events, so downstream case
// management can pick flagged records up without polling the report.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ammopy/vmf-audit/internal/config"
	"github.com/ammopy/vmf-audit/internal/model"
)

// FindingEvent is one published message: the rows of one finding table
// from one audit run.
type FindingEvent struct {
	EventID   string          `json:"event_id"`
	RunID     string          `json:"run_id"`
	Table     string          `json:"table"`
	RowCount  int             `json:"row_count"`
	Rows      json.RawMessage `json:"rows"`
	EmittedAt time.Time       `json:"emitted_at"`
}

// Producer publishes finding events.
type Producer struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

// NewProducer creates a findings producer.
func NewProducer(cfg config.KafkaConfig, logger *zap.Logger) *Producer {
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.LeastBytes{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafkago.RequireAll,
	}
	return &Producer{writer: writer, logger: logger}
}

// Close closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// PublishFindings emits one event per non-empty finding table, keyed by
// run ID so one run's events land on one partition in order.
func (p *Producer) PublishFindings(ctx context.Context, findings *model.Findings) error {
	tables := []struct {
		name string
		rows interface{}
		size int
	}{
		{"vendor_name_match", findings.VendorMatches, len(findings.VendorMatches)},
		{"active_emp_vs_ven_name_match", findings.ActiveEmployeeMatches, len(findings.ActiveEmployeeMatches)},
		{"term_emp_vs_ven_name_match", findings.TerminatedEmpMatches, len(findings.TerminatedEmpMatches)},
		{"po_to_employees", findings.EmployeePOs, len(findings.EmployeePOs)},
		{"po_date_after_emp_term_date", findings.PostTerminationPOs, len(findings.PostTerminationPOs)},
		{"unauthorized_access", findings.UnauthorizedEdits, len(findings.UnauthorizedEdits)},
		{"employees_editing_own_records", findings.SelfEdits, len(findings.SelfEdits)},
		{"weekend_modifications", findings.WeekendEdits, len(findings.WeekendEdits)},
		{"abnormal_hours_modifications", findings.OffHoursEdits, len(findings.OffHoursEdits)},
		{"po_for_inactive_vendors", findings.InactiveVendorPOs, len(findings.InactiveVendorPOs)},
	}

	messages := make([]kafkago.Message, 0, len(tables))
	for _, t := range tables {
		if t.size == 0 {
			continue
		}
		rows, err := json.Marshal(t.rows)
		if err != nil {
			return fmt.Errorf("encoding %s event: %w", t.name, err)
		}
		event := FindingEvent{
			EventID:   uuid.New().String(),
			RunID:     findings.RunID,
			Table:     t.name,
			RowCount:  t.size,
			Rows:      rows,
			EmittedAt: time.Now().UTC(),
		}
		value, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encoding %s event: %w", t.name, err)
		}
		messages = append(messages, kafkago.Message{
			Key:   []byte(findings.RunID),
			Value: value,
		})
	}
	if len(messages) == 0 {
		return nil
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("publishing findings: %w", err)
	}
	p.logger.Info("findings published",
		zap.String("run_id", findings.RunID),
		zap.Int("events", len(messages)))
	return nil
}
