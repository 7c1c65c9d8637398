package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestTerminalDescriptorValidate(t *testing.T) {
	t.Parallel()

	base := TerminalDescriptor{
		ProviderID:   "acme-psp",
		TerminalID:   "12345678",
		Enabled:      true,
		PayeeCode:    "12345678901",
		Workstations: []string{"ws-1"},
	}

	tests := []struct {
		name    string
		mutate  func(*TerminalDescriptor)
		wantErr bool
	}{
		{
			name:   "valid descriptor",
			mutate: func(d *TerminalDescriptor) {},
		},
		{
			name: "no workstations",
			mutate: func(d *TerminalDescriptor) {
				d.Workstations = nil
			},
		},
		{
			name: "provider id with spaces and punctuation",
			mutate: func(d *TerminalDescriptor) {
				d.ProviderID = "Acme PSP (EU) #1"
			},
		},
		{
			name: "empty provider id",
			mutate: func(d *TerminalDescriptor) {
				d.ProviderID = ""
			},
			wantErr: true,
		},
		{
			name: "provider id over 64 characters",
			mutate: func(d *TerminalDescriptor) {
				d.ProviderID = strings.Repeat("p", 65)
			},
			wantErr: true,
		},
		{
			name: "provider id at 64 characters",
			mutate: func(d *TerminalDescriptor) {
				d.ProviderID = strings.Repeat("p", 64)
			},
		},
		{
			name: "provider id with non-ascii",
			mutate: func(d *TerminalDescriptor) {
				d.ProviderID = "ödeme"
			},
			wantErr: true,
		},
		{
			name: "terminal id too short",
			mutate: func(d *TerminalDescriptor) {
				d.TerminalID = "123"
			},
			wantErr: true,
		},
		{
			name: "terminal id too long",
			mutate: func(d *TerminalDescriptor) {
				d.TerminalID = "1234567890123"
			},
			wantErr: true,
		},
		{
			name: "terminal id with letters",
			mutate: func(d *TerminalDescriptor) {
				d.TerminalID = "12ab"
			},
			wantErr: true,
		},
		{
			name: "payee code wrong length",
			mutate: func(d *TerminalDescriptor) {
				d.PayeeCode = "1234567890"
			},
			wantErr: true,
		},
		{
			name: "payee code with letters",
			mutate: func(d *TerminalDescriptor) {
				d.PayeeCode = "1234567890x"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			current := base
			tt.mutate(&current)

			err := current.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("Validate() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error = %v", err)
			}
		})
	}
}
