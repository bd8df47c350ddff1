package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "vaultid/pkg/domain-errors"
)

// Typed identifiers keep identity, verification and share IDs from being swapped at
// call sites. All are UUIDs underneath.
type (
	IdentityID     uuid.UUID
	VerificationID uuid.UUID
	ShareID        uuid.UUID
)

func NewIdentityID() IdentityID         { return IdentityID(uuid.New()) }
func NewVerificationID() VerificationID { return VerificationID(uuid.New()) }
func NewShareID() ShareID               { return ShareID(uuid.New()) }

func (id IdentityID) String() string     { return uuid.UUID(id).String() }
func (id VerificationID) String() string { return uuid.UUID(id).String() }
func (id ShareID) String() string        { return uuid.UUID(id).String() }

func (id IdentityID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id VerificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ShareID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }

// ParseIdentityID parses an identity ID at a trust boundary.
func ParseIdentityID(s string) (IdentityID, error) {
	u, err := parseUUID(s, "identity ID")
	return IdentityID(u), err
}

// ParseVerificationID parses a verification record ID at a trust boundary.
func ParseVerificationID(s string) (VerificationID, error) {
	u, err := parseUUID(s, "verification ID")
	return VerificationID(u), err
}

// ParseShareID parses a share capability ID at a trust boundary.
func ParseShareID(s string) (ShareID, error) {
	u, err := parseUUID(s, "share ID")
	return ShareID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
