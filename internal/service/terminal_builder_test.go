package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/terminal-registry/internal/domain"
)

func TestTerminalBuilderBuild(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2024, 3, 1, 10, 30, 0, 0, time.FixedZone("TRT", 3*60*60))
	builder := NewTerminalBuilder()
	builder.now = func() time.Time { return fixed }

	desc := domain.TerminalDescriptor{
		ProviderID:   "acme-pos",
		TerminalID:   "00012345",
		Enabled:      true,
		PayeeCode:    "12345678901",
		Workstations: []string{"ws-1", "ws-2"},
	}

	terminal := builder.Build(desc)

	if _, err := uuid.Parse(terminal.ID); err != nil {
		t.Fatalf("terminal id %q is not a uuid: %v", terminal.ID, err)
	}
	if terminal.ProviderID != desc.ProviderID || terminal.TerminalID != desc.TerminalID {
		t.Fatalf("identity = %s/%s, want %s/%s", terminal.ProviderID, terminal.TerminalID, desc.ProviderID, desc.TerminalID)
	}
	if !terminal.Enabled || terminal.PayeeCode != desc.PayeeCode {
		t.Fatalf("terminal = %#v, fields not copied", terminal)
	}
	if !terminal.CreatedAt.Equal(fixed) || terminal.CreatedAt.Location() != time.UTC {
		t.Fatalf("createdAt = %v, want %v in UTC", terminal.CreatedAt, fixed)
	}
	if !terminal.UpdatedAt.Equal(terminal.CreatedAt) {
		t.Fatalf("updatedAt = %v, want %v", terminal.UpdatedAt, terminal.CreatedAt)
	}

	desc.Workstations[0] = "mutated"
	if terminal.Workstations[0] != "ws-1" {
		t.Fatal("workstations should be copied, not shared")
	}
}

func TestTerminalBuilderBuildNilWorkstations(t *testing.T) {
	t.Parallel()

	terminal := NewTerminalBuilder().Build(domain.TerminalDescriptor{
		ProviderID: "acme-pos",
		TerminalID: "0001",
		PayeeCode:  "12345678901",
	})

	if terminal.Workstations == nil || len(terminal.Workstations) != 0 {
		t.Fatalf("workstations = %#v, want empty non-nil", terminal.Workstations)
	}
}

func TestTerminalBuilderBuildGeneratesDistinctIDs(t *testing.T) {
	t.Parallel()

	builder := NewTerminalBuilder()
	desc := validDescriptor("00000001")

	first := builder.Build(desc)
	second := builder.Build(desc)
	if first.ID == second.ID {
		t.Fatalf("ids should differ for repeated builds, got %s twice", first.ID)
	}
}
