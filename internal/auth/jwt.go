// Package auth verifies the bearer tokens issued by the account service and
// exposes the caller's user id to handlers through the request context.
//
// TOKEN SHAPE:
//
//	HEADER.PAYLOAD.SIGNATURE, HMAC-signed (HS256, HS384 or HS512)
//	payload: {"sub": "<user id>", "exp": ..., "iat": ...}
//
// Tokens minted by the older login service carry the user id in an "id" claim
// instead of "sub"; both are accepted. Verification needs only the shared
// secret, no database lookup.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength rejects secrets too short to be worth signing with.
const MinSecretLength = 16

// TokenService signs and validates HMAC JWTs with one shared secret.
type TokenService struct {
	secret []byte
	issuer string // empty disables the issuer check
}

// NewTokenService creates a TokenService. Generate it with:
//
//	JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret, issuer string) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", MinSecretLength)
	}
	return &TokenService{secret: []byte(secret), issuer: issuer}, nil
}

type claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id,omitempty"`
}

// Generate signs a token for userID that expires after ttl.
// Tokens are signed with HS512 to match the login service.
func (s *TokenService) Generate(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("auth: subject is required")
	}
	if ttl <= 0 {
		return "", errors.New("auth: token lifetime must be positive")
	}

	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies tokenStr and returns the user id it carries.
//
// Only HMAC algorithms are accepted, which rules out "none" and any
// public-key confusion. Expiry is mandatory.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.New("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", errors.New("auth: invalid token claims")
	}

	userID := c.Subject
	if userID == "" {
		userID = c.UserID
	}
	if userID == "" {
		return "", errors.New("auth: token has no subject")
	}
	return userID, nil
}
