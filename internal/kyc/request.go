package kyc

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	vaultmodels "vaultid/internal/vault/models"
	dErrors "vaultid/pkg/domain-errors"
)

const (
	dateLayout    = "2006-01-02"
	maxNameLength = 100
)

// SubmitRequest is a user's claim to one identity document.
type SubmitRequest struct {
	IDType      vaultmodels.IDType `json:"id_type"`
	IDNumber    string             `json:"id_number"`
	DateOfBirth string             `json:"date_of_birth,omitempty"`
	FirstName   string             `json:"firstname,omitempty"`
	LastName    string             `json:"lastname,omitempty"`
}

func (r *SubmitRequest) Normalize() {
	if r == nil {
		return
	}
	r.IDType = vaultmodels.IDType(strings.TrimSpace(strings.ToLower(string(r.IDType))))
	r.IDNumber = strings.TrimSpace(r.IDNumber)
	r.DateOfBirth = strings.TrimSpace(r.DateOfBirth)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
}

// Validate applies the per-document rules. today is the caller's current date; the
// date of birth must fall strictly before it.
func (r *SubmitRequest) Validate(today time.Time) error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.IDType == "" {
		return dErrors.New(dErrors.CodeValidation, "id_type is required")
	}
	if !r.IDType.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unsupported id type: "+string(r.IDType))
	}
	if r.IDNumber == "" {
		return dErrors.New(dErrors.CodeValidation, "id_number is required")
	}

	switch r.IDType {
	case vaultmodels.IDTypeNIN, vaultmodels.IDTypeBVN:
		if !isDigits(r.IDNumber, 11) {
			return dErrors.New(dErrors.CodeValidation, "id_number must be exactly 11 digits")
		}
	case vaultmodels.IDTypePassport, vaultmodels.IDTypeDriversLicense:
		if err := lengthBetween("id_number", r.IDNumber, 6, 20); err != nil {
			return err
		}
		if err := r.validateDateOfBirth(today); err != nil {
			return err
		}
	case vaultmodels.IDTypeVotersCard:
		if err := lengthBetween("id_number", r.IDNumber, 6, 25); err != nil {
			return err
		}
		if err := r.validateDateOfBirth(today); err != nil {
			return err
		}
		if err := requiredName("firstname", r.FirstName); err != nil {
			return err
		}
		if err := requiredName("lastname", r.LastName); err != nil {
			return err
		}
	}
	return nil
}

// ProviderPayload is the document fields the identity provider expects for this type.
func (r *SubmitRequest) ProviderPayload() map[string]any {
	payload := map[string]any{"id_number": r.IDNumber}
	switch r.IDType {
	case vaultmodels.IDTypePassport, vaultmodels.IDTypeDriversLicense:
		payload["date_of_birth"] = r.DateOfBirth
	case vaultmodels.IDTypeVotersCard:
		payload["date_of_birth"] = r.DateOfBirth
		payload["firstname"] = r.FirstName
		payload["lastname"] = r.LastName
	}
	return payload
}

func (r *SubmitRequest) validateDateOfBirth(today time.Time) error {
	if r.DateOfBirth == "" {
		return dErrors.New(dErrors.CodeValidation, "date_of_birth is required")
	}
	dob, err := time.Parse(dateLayout, r.DateOfBirth)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "date_of_birth must be YYYY-MM-DD")
	}
	y, m, d := today.Date()
	if !dob.Before(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)) {
		return dErrors.New(dErrors.CodeValidation, "date_of_birth must be before today")
	}
	return nil
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func lengthBetween(field, s string, lo, hi int) error {
	n := utf8.RuneCountInString(s)
	if n < lo || n > hi {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must be between %d and %d characters", field, lo, hi))
	}
	return nil
}

func requiredName(field, s string) error {
	if s == "" {
		return dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	if utf8.RuneCountInString(s) > maxNameLength {
		return dErrors.New(dErrors.CodeValidation, field+" must be 100 characters or less")
	}
	return nil
}
