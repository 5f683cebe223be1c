// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "quickfi/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing an AccountID where a VendorID is expected.
type (
	VendorID  uuid.UUID
	AccountID uuid.UUID
	RunID     uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, CLI flags).

func ParseVendorID(s string) (VendorID, error) {
	id, err := parseUUID(s, "vendor ID")
	return VendorID(id), err
}

func ParseAccountID(s string) (AccountID, error) {
	id, err := parseUUID(s, "account ID")
	return AccountID(id), err
}

// NewRunID returns a fresh random run identifier.
func NewRunID() RunID { return RunID(uuid.New()) }

func (id VendorID) String() string  { return uuid.UUID(id).String() }
func (id AccountID) String() string { return uuid.UUID(id).String() }
func (id RunID) String() string     { return uuid.UUID(id).String() }

func (id VendorID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id AccountID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders IDs as canonical UUID strings in JSON.
func (id VendorID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id AccountID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id RunID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return id, nil
}

// UnmarshalText accepts canonical UUID strings so decoded reports round trip.
func (id *VendorID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = VendorID(u)
	return err
}

func (id *AccountID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = AccountID(u)
	return err
}

func (id *RunID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = RunID(u)
	return err
}
