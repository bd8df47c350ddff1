package models

import (
	"encoding/hex"
	"time"

	vaultmodels "vaultid/internal/vault/models"
	id "vaultid/pkg/domain"
	dErrors "vaultid/pkg/domain-errors"
)

const (
	// TokenLength is the hex length of a capability token (128 bits).
	TokenLength    = 32
	maxLabelLength = 255
)

// ShareCapability grants any holder of Token read access to one verified record
// while Active. It is never deleted; revocation clears Active for good.
type ShareCapability struct {
	ID             id.ShareID
	IdentityID     id.IdentityID
	VerificationID id.VerificationID
	Token          string
	Label          string
	Active         bool
	AccessCount    int64
	LastAccessedAt *time.Time
	CreatedAt      time.Time
}

func NewShareCapability(identityID id.IdentityID, verificationID id.VerificationID, token, label string, now time.Time) (*ShareCapability, error) {
	if identityID.IsNil() || verificationID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identity and verification are required")
	}
	if err := ValidateToken(token); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "generated token is malformed")
	}
	if len(label) > maxLabelLength {
		return nil, dErrors.New(dErrors.CodeValidation, "label must be at most 255 characters")
	}
	return &ShareCapability{
		ID:             id.NewShareID(),
		IdentityID:     identityID,
		VerificationID: verificationID,
		Token:          token,
		Label:          label,
		Active:         true,
		CreatedAt:      now,
	}, nil
}

func (c *ShareCapability) BelongsTo(identityID id.IdentityID) bool {
	return c != nil && c.IdentityID == identityID
}

// ValidateToken accepts exactly 32 lowercase hex characters.
func ValidateToken(token string) error {
	if len(token) != TokenLength {
		return dErrors.New(dErrors.CodeValidation, "share token must be 32 hex characters")
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return dErrors.New(dErrors.CodeValidation, "share token must be 32 hex characters")
		}
	}
	if _, err := hex.DecodeString(token); err != nil {
		return dErrors.New(dErrors.CodeValidation, "share token must be 32 hex characters")
	}
	return nil
}

// Integrity tells a verifier where the payload lives and how to check it.
type Integrity struct {
	MerkleRoot      string `json:"merkle_root"`
	LedgerReference string `json:"ledger_reference"`
	StoredOn        string `json:"stored_on"`
}

// PublicView is what a token holder receives on redemption.
type PublicView struct {
	Status      string         `json:"status"`
	IDType      string         `json:"id_type"`
	IDTypeLabel string         `json:"id_type_label"`
	VerifiedAt  time.Time      `json:"verified_at"`
	Data        map[string]any `json:"data"`
	Integrity   Integrity      `json:"integrity"`
}

// NewPublicView assembles the redemption response from a verified record.
func NewPublicView(rec *vaultmodels.VerificationRecord, data map[string]any) *PublicView {
	view := &PublicView{
		Status:      string(vaultmodels.StatusVerified),
		IDType:      string(rec.IDType),
		IDTypeLabel: rec.IDType.ShortLabel(),
		Data:        data,
		Integrity: Integrity{
			MerkleRoot:      rec.IntegrityRoot,
			LedgerReference: rec.LedgerReference,
			StoredOn:        rec.StoredOn,
		},
	}
	if rec.VerifiedAt != nil {
		view.VerifiedAt = rec.VerifiedAt.UTC()
	}
	return view
}

// Stats summarizes an identity's vault for its owner.
type Stats struct {
	TotalVerified int   `json:"total_verified"`
	ActiveShares  int   `json:"active_shares"`
	TotalAccesses int64 `json:"total_accesses"`
}
