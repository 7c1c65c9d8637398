package domain

import (
	"fmt"
	"regexp"
	"time"
)

var (
	providerIDPattern = regexp.MustCompile(`^[\x20-\x7E]{1,64}$`)
	terminalIDPattern = regexp.MustCompile(`^[0-9]{4,12}$`)
	payeeCodePattern  = regexp.MustCompile(`^[0-9]{11}$`)
)

// TerminalDescriptor is the submitted representation of a terminal to provision.
type TerminalDescriptor struct {
	ProviderID   string
	TerminalID   string
	Enabled      bool
	PayeeCode    string
	Workstations []string
}

func (d TerminalDescriptor) Validate() error {
	if !providerIDPattern.MatchString(d.ProviderID) {
		return fmt.Errorf("%w: providerId must be 1-64 printable ASCII characters", ErrValidation)
	}
	if !terminalIDPattern.MatchString(d.TerminalID) {
		return fmt.Errorf("%w: terminalId must be 4-12 digits", ErrValidation)
	}
	if !payeeCodePattern.MatchString(d.PayeeCode) {
		return fmt.Errorf("%w: payeeCode must be 11 digits", ErrValidation)
	}
	return nil
}

// Terminal is a persisted point-of-sale terminal record.
type Terminal struct {
	ID           string
	ProviderID   string
	TerminalID   string
	Enabled      bool
	PayeeCode    string
	Workstations []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
