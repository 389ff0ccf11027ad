package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
	"github.com/Apurer/inventory-orders-service/internal/domains/changes/ports"
)

var _ ports.AuditStore = (*AuditStore)(nil)

// AuditStore persists the change audit log in PostgreSQL using GORM.
// The table is created by migrations.Run.
type AuditStore struct {
	db *gorm.DB
}

// NewAuditStore wires a PostgreSQL-backed audit store. Caller manages DB lifecycle.
func NewAuditStore(db *gorm.DB) *AuditStore {
	return &AuditStore{db: db}
}

// AuditRecord maps an audit entry to the change_audit_log table.
type AuditRecord struct {
	ID              int64     `gorm:"primaryKey;autoIncrement;column:id"`
	ExecutionID     string    `gorm:"column:execution_id;size:64;index"`
	Stage           string    `gorm:"column:stage;size:128"`
	ChangeID        string    `gorm:"column:change_id;size:255;index"`
	Author          string    `gorm:"column:author;size:128"`
	State           string    `gorm:"column:state;type:varchar(32)"`
	TargetSystem    string    `gorm:"column:target_system;size:128"`
	Transactional   bool      `gorm:"column:transactional"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	ExecutionMillis int64     `gorm:"column:execution_millis"`
	ErrorTrace      string    `gorm:"column:error_trace;type:text"`
	Hostname        string    `gorm:"column:hostname;size:255"`
}

func (AuditRecord) TableName() string { return "change_audit_log" }

func (s *AuditStore) Append(ctx context.Context, entry domain.AuditEntry) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	record := AuditRecord{
		ExecutionID:     entry.ExecutionID,
		Stage:           entry.Stage,
		ChangeID:        entry.ChangeID,
		Author:          entry.Author,
		State:           string(entry.State),
		TargetSystem:    entry.TargetSystem,
		Transactional:   entry.Transactional,
		CreatedAt:       entry.CreatedAt,
		ExecutionMillis: entry.ExecutionMillis,
		ErrorTrace:      entry.ErrorTrace,
		Hostname:        entry.Hostname,
	}
	return s.db.WithContext(ctx).Create(&record).Error
}

func (s *AuditStore) History(ctx context.Context) ([]domain.AuditEntry, error) {
	records, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AuditEntry, 0, len(records))
	for i := range records {
		out = append(out, records[i].toDomain())
	}
	return out, nil
}

func (s *AuditStore) LatestStates(ctx context.Context) (map[string]domain.State, error) {
	records, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	states := make(map[string]domain.State, len(records))
	for _, r := range records {
		states[r.ChangeID] = domain.State(r.State)
	}
	return states, nil
}

func (s *AuditStore) all(ctx context.Context) ([]AuditRecord, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var records []AuditRecord
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *AuditStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres audit store not configured")
	}
	return nil
}

func (r AuditRecord) toDomain() domain.AuditEntry {
	return domain.AuditEntry{
		ExecutionID:     r.ExecutionID,
		Stage:           r.Stage,
		ChangeID:        r.ChangeID,
		Author:          r.Author,
		State:           domain.State(r.State),
		TargetSystem:    r.TargetSystem,
		Transactional:   r.Transactional,
		CreatedAt:       r.CreatedAt,
		ExecutionMillis: r.ExecutionMillis,
		ErrorTrace:      r.ErrorTrace,
		Hostname:        r.Hostname,
	}
}
