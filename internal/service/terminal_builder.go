package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/terminal-registry/internal/domain"
)

// TerminalBuilder turns a validated descriptor into a persistable terminal
// record with a fresh handle. It performs no I/O.
type TerminalBuilder struct {
	newID func() string
	now   func() time.Time
}

func NewTerminalBuilder() *TerminalBuilder {
	return &TerminalBuilder{
		newID: uuid.NewString,
		now:   time.Now,
	}
}

func (b *TerminalBuilder) Build(desc domain.TerminalDescriptor) domain.Terminal {
	workstations := make([]string, len(desc.Workstations))
	copy(workstations, desc.Workstations)

	now := b.now().UTC()
	return domain.Terminal{
		ID:           b.newID(),
		ProviderID:   desc.ProviderID,
		TerminalID:   desc.TerminalID,
		Enabled:      desc.Enabled,
		PayeeCode:    desc.PayeeCode,
		Workstations: workstations,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
