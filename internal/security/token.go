package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails validation
var ErrInvalidToken = errors.New("invalid token")

// FamilyClaims scopes a bearer token to one family's dashboard
type FamilyClaims struct {
	FamilyID int64 `json:"family_id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates family API tokens with HS256
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenIssuer creates a token issuer. A zero ttl issues tokens that never expire.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("JWT secret is required")
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "chorequest",
		now:    time.Now,
	}, nil
}

// Issue returns a signed token for a family
func (t *TokenIssuer) Issue(familyID int64) (string, error) {
	now := t.now()
	claims := FamilyClaims{
		FamilyID: familyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   strconv.FormatInt(familyID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if t.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(t.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses a token and returns its claims
func (t *TokenIssuer) Validate(tokenString string) (*FamilyClaims, error) {
	claims := &FamilyClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(t.now),
	)
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.FamilyID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
