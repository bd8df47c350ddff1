package models

import (
	"encoding/hex"
	"strings"
	"time"

	id "vaultid/pkg/domain"
	dErrors "vaultid/pkg/domain-errors"
)

// Identity is a wallet address or an email holding the nonce for its next challenge.
type Identity struct {
	ID            id.IdentityID
	WalletAddress string
	Email         string
	Nonce         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DisplayName shortens a wallet address to 0x1234...abcd, or returns the email.
func (i *Identity) DisplayName() string {
	if len(i.WalletAddress) == 42 {
		return i.WalletAddress[:6] + "..." + i.WalletAddress[38:]
	}
	if i.WalletAddress != "" {
		return i.WalletAddress
	}
	return i.Email
}

// NormalizeAddress validates a 0x-prefixed 20 byte hex address and lowercases it.
func NormalizeAddress(address string) (string, error) {
	a := strings.ToLower(strings.TrimSpace(address))
	if len(a) != 42 || !strings.HasPrefix(a, "0x") {
		return "", dErrors.New(dErrors.CodeValidation, "wallet address must be 0x followed by 40 hex characters")
	}
	if _, err := hex.DecodeString(a[2:]); err != nil {
		return "", dErrors.New(dErrors.CodeValidation, "wallet address must be 0x followed by 40 hex characters")
	}
	return a, nil
}
