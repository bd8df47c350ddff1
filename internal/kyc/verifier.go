package kyc

import (
	"context"
	"encoding/json"
	"maps"

	vaultmodels "vaultid/internal/vault/models"
	dErrors "vaultid/pkg/domain-errors"
)

// IdentityVerifier asks an identity provider to confirm a document. The returned map
// is the provider's response and is stored in the vault as-is.
type IdentityVerifier interface {
	Verify(ctx context.Context, idType vaultmodels.IDType, payload map[string]any) (map[string]any, error)
}

// StaticVerifier answers every request with the same document.
type StaticVerifier struct {
	doc map[string]any
}

// NewStaticVerifier parses raw as a JSON object.
func NewStaticVerifier(raw []byte) (*StaticVerifier, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "provider response must be a JSON object")
	}
	if doc == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "provider response must be a JSON object")
	}
	return &StaticVerifier{doc: doc}, nil
}

func (v *StaticVerifier) Verify(_ context.Context, _ vaultmodels.IDType, _ map[string]any) (map[string]any, error) {
	return maps.Clone(v.doc), nil
}
