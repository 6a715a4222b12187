package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/avelar/studio-identity/internal/core/domain"
)

var (
	// ErrInvalidToken indicates the token is malformed or its signature
	// failed validation.
	ErrInvalidToken = errors.New("invalid access token")
	// ErrExpiredToken indicates the token was valid but has expired.
	ErrExpiredToken = errors.New("access token expired")
)

// AccessTokenClaims carries the account identity inside the JWT.
type AccessTokenClaims struct {
	AccountID string      `json:"uid"`
	Role      domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HMAC-signed bearer tokens. It holds no
// storage references; expiry and signature are the only things it checks.
type TokenCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenCodec constructs a codec from the server-held signing secret.
func NewTokenCodec(secret, issuer string, ttl time.Duration) (*TokenCodec, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &TokenCodec{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// Issue signs a token carrying the account id and role.
func (c *TokenCodec) Issue(accountID string, role domain.Role) (string, error) {
	if accountID == "" {
		return "", fmt.Errorf("account id is required")
	}

	now := time.Now().UTC()
	claims := AccessTokenClaims{
		AccountID: accountID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.issuer},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Verify validates the token and returns its claims. Tampered and expired
// tokens yield distinct sentinels; callers decide how much to reveal.
func (c *TokenCodec) Verify(token string) (*AccessTokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &AccessTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithIssuer(c.issuer), jwt.WithAudience(c.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if parsed == nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.AccountID) == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// TTL reports the configured token lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}
