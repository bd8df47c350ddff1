// Package jwttoken mints and validates the session tokens handed out after a
// successful wallet login.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "vaultid/pkg/domain"
	dErrors "vaultid/pkg/domain-errors"
)

// Claims carries the identity id as sub and the wallet address as addr.
type Claims struct {
	Address string `json:"addr,omitempty"`
	jwt.RegisteredClaims
}

// JWTService signs HS256 session tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

type Option func(*JWTService)

func WithClock(now func() time.Time) Option {
	return func(s *JWTService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewJWTService(signingKey, issuer string, ttl time.Duration, opts ...Option) (*JWTService, error) {
	if len(signingKey) < 16 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "session signing key must be at least 16 characters")
	}
	s := &JWTService{signingKey: []byte(signingKey), issuer: issuer, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IssueSession returns a token valid for the configured ttl.
func (s *JWTService) IssueSession(identityID id.IdentityID, address string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Address: address,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign session")
	}
	return signed, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return claims, nil
}

// ParseSession validates tokenString and returns the identity it authenticates.
func (s *JWTService) ParseSession(tokenString string) (id.IdentityID, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return id.IdentityID{}, err
	}
	identityID, err := id.ParseIdentityID(claims.Subject)
	if err != nil {
		return id.IdentityID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return identityID, nil
}
