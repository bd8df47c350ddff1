package models

import (
	"time"

	id "vaultid/pkg/domain"
	dErrors "vaultid/pkg/domain-errors"
)

// IDType is the closed set of identity documents a record can hold.
type IDType string

const (
	IDTypeNIN            IDType = "nin"
	IDTypeBVN            IDType = "bvn"
	IDTypePassport       IDType = "passport"
	IDTypeDriversLicense IDType = "drivers_license"
	IDTypeVotersCard     IDType = "voters_card"
)

// AllIDTypes lists every document type in display order.
func AllIDTypes() []IDType {
	return []IDType{IDTypeNIN, IDTypeBVN, IDTypePassport, IDTypeDriversLicense, IDTypeVotersCard}
}

// ParseIDType validates s at a trust boundary.
func ParseIDType(s string) (IDType, error) {
	t := IDType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unsupported id type: "+s)
	}
	return t, nil
}

func (t IDType) IsValid() bool {
	switch t {
	case IDTypeNIN, IDTypeBVN, IDTypePassport, IDTypeDriversLicense, IDTypeVotersCard:
		return true
	}
	return false
}

func (t IDType) String() string { return string(t) }

// Label is the long display name.
func (t IDType) Label() string {
	switch t {
	case IDTypeNIN:
		return "National Identity Number (NIN)"
	case IDTypeBVN:
		return "Bank Verification Number (BVN)"
	case IDTypePassport:
		return "International Passport"
	case IDTypeDriversLicense:
		return "Driver's License"
	case IDTypeVotersCard:
		return "Voter's Card"
	}
	return string(t)
}

func (t IDType) ShortLabel() string {
	switch t {
	case IDTypeNIN:
		return "NIN"
	case IDTypeBVN:
		return "BVN"
	case IDTypePassport:
		return "Passport"
	case IDTypeDriversLicense, IDTypeVotersCard:
		return t.Label()
	}
	return string(t)
}

// Status is the verification lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusFailed   Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusFailed:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// VerificationRecord tracks one identity document for one identity. At most one record
// exists per (IdentityID, IDType). StorageKey, IntegrityRoot, LedgerReference and
// StoredOn stay empty until the record is verified.
type VerificationRecord struct {
	ID              id.VerificationID
	IdentityID      id.IdentityID
	IDType          IDType
	IDNumberHash    string
	Status          Status
	StorageKey      string
	IntegrityRoot   string
	LedgerReference string
	StoredOn        string
	VerifiedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewPendingRecord starts a verification attempt.
func NewPendingRecord(identityID id.IdentityID, idType IDType, idNumberHash string, now time.Time) (*VerificationRecord, error) {
	if identityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identity ID required")
	}
	if !idType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid id type")
	}
	if idNumberHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "id number hash required")
	}
	return &VerificationRecord{
		ID:           id.NewVerificationID(),
		IdentityID:   identityID,
		IDType:       idType,
		IDNumberHash: idNumberHash,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (r *VerificationRecord) IsVerified() bool {
	return r != nil && r.Status == StatusVerified
}

func (r *VerificationRecord) BelongsTo(identityID id.IdentityID) bool {
	return r != nil && r.IdentityID == identityID
}

// MarkVerified records a successful vault write. Only pending records can be verified.
func (r *VerificationRecord) MarkVerified(storageKey, integrityRoot, storedOn string, now time.Time) error {
	if r.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "only pending verifications can be verified")
	}
	r.Status = StatusVerified
	r.StorageKey = storageKey
	r.IntegrityRoot = integrityRoot
	r.StoredOn = storedOn
	at := now
	r.VerifiedAt = &at
	r.UpdatedAt = now
	return nil
}

// MarkFailed closes an attempt that could not complete. Verified records are never failed.
func (r *VerificationRecord) MarkFailed(now time.Time) error {
	if r.Status == StatusVerified {
		return dErrors.New(dErrors.CodeInvariantViolation, "verified verifications cannot fail")
	}
	r.Status = StatusFailed
	r.UpdatedAt = now
	return nil
}

// StorageKey is where the encrypted payload of identityID's idType document lives.
func StorageKey(identityID id.IdentityID, idType IDType) string {
	return identityID.String() + ":" + string(idType)
}
