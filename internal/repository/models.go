package repository

import (
	"time"

	"github.com/kursadbilgin/terminal-registry/internal/domain"
	"gorm.io/datatypes"
)

// TerminalModel is the persistence model for the terminals table.
type TerminalModel struct {
	ID           string                      `gorm:"type:uuid;primaryKey"`
	ProviderID   string                      `gorm:"type:varchar(64);not null;uniqueIndex:idx_terminals_provider_terminal"`
	TerminalID   string                      `gorm:"type:varchar(12);not null;uniqueIndex:idx_terminals_provider_terminal"`
	Enabled      bool                        `gorm:"not null;default:true"`
	PayeeCode    string                      `gorm:"type:char(11);not null"`
	Workstations datatypes.JSONSlice[string] `gorm:"type:jsonb;not null;default:'[]'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (TerminalModel) TableName() string {
	return "terminals"
}

// BatchOutcomeModel is the persistence model for terminal_batch_outcomes.
type BatchOutcomeModel struct {
	BatchID        string                      `gorm:"type:uuid;primaryKey"`
	TotalRecords   int                         `gorm:"not null"`
	SuccessRecords int                         `gorm:"not null"`
	FailedRecords  int                         `gorm:"not null"`
	ErrorMessages  datatypes.JSONSlice[string] `gorm:"type:jsonb;not null;default:'[]'"`
	Status         domain.BatchStatus          `gorm:"type:varchar(20);not null"`
	CreatedAt      time.Time
}

func (BatchOutcomeModel) TableName() string {
	return "terminal_batch_outcomes"
}

func terminalModelFromDomain(t *domain.Terminal) *TerminalModel {
	if t == nil {
		return nil
	}

	return &TerminalModel{
		ID:           t.ID,
		ProviderID:   t.ProviderID,
		TerminalID:   t.TerminalID,
		Enabled:      t.Enabled,
		PayeeCode:    t.PayeeCode,
		Workstations: copyStrings(t.Workstations),
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func terminalModelToDomain(m *TerminalModel) *domain.Terminal {
	if m == nil {
		return nil
	}

	return &domain.Terminal{
		ID:           m.ID,
		ProviderID:   m.ProviderID,
		TerminalID:   m.TerminalID,
		Enabled:      m.Enabled,
		PayeeCode:    m.PayeeCode,
		Workstations: copyStrings(m.Workstations),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func batchOutcomeModelFromDomain(o *domain.BatchOutcome) *BatchOutcomeModel {
	if o == nil {
		return nil
	}

	return &BatchOutcomeModel{
		BatchID:        o.BatchID,
		TotalRecords:   o.TotalRecords,
		SuccessRecords: o.SuccessRecords,
		FailedRecords:  o.FailedRecords,
		ErrorMessages:  copyStrings(o.ErrorMessages),
		Status:         o.Status,
		CreatedAt:      o.CreatedAt,
	}
}

func batchOutcomeModelToDomain(m *BatchOutcomeModel) *domain.BatchOutcome {
	if m == nil {
		return nil
	}

	return &domain.BatchOutcome{
		BatchID:        m.BatchID,
		TotalRecords:   m.TotalRecords,
		SuccessRecords: m.SuccessRecords,
		FailedRecords:  m.FailedRecords,
		ErrorMessages:  copyStrings(m.ErrorMessages),
		Status:         m.Status,
		CreatedAt:      m.CreatedAt,
	}
}

// copyStrings never returns nil so jsonb columns store [] instead of null.
func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
