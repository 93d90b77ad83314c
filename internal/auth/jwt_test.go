package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-at-least-16-chars!!"

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(testSecret, "")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// sign builds a token by hand so tests can vary algorithm and claims.
func sign(t *testing.T, method jwt.SigningMethod, c jwt.Claims, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, c).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	return s
}

func TestNewTokenService_ShortSecret(t *testing.T) {
	if _, err := NewTokenService("short", ""); err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestGenerate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("user-123", time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("token %q is not a three-part JWT", token)
	}

	userID, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if userID != "user-123" {
		t.Errorf("Validate() = %q, want %q", userID, "user-123")
	}
}

func TestGenerate_RejectsBadInput(t *testing.T) {
	ts := newTestTokenService(t)
	if _, err := ts.Generate("", time.Hour); err == nil {
		t.Error("Generate() should reject an empty subject")
	}
	if _, err := ts.Generate("u", 0); err == nil {
		t.Error("Generate() should reject a zero lifetime")
	}
}

func TestValidate_AcceptsEveryHMACVariant(t *testing.T) {
	ts := newTestTokenService(t)
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	for _, m := range []jwt.SigningMethod{jwt.SigningMethodHS256, jwt.SigningMethodHS384, jwt.SigningMethodHS512} {
		t.Run(m.Alg(), func(t *testing.T) {
			token := sign(t, m, jwt.RegisteredClaims{Subject: "u1", ExpiresAt: exp}, testSecret)
			if got, err := ts.Validate(token); err != nil || got != "u1" {
				t.Errorf("Validate() = %q, %v; want u1, nil", got, err)
			}
		})
	}
}

func TestValidate_IDClaimFallback(t *testing.T) {
	ts := newTestTokenService(t)
	token := sign(t, jwt.SigningMethodHS512, jwt.MapClaims{
		"id":  "legacy-7",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	got, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got != "legacy-7" {
		t.Errorf("Validate() = %q, want %q", got, "legacy-7")
	}
}

func TestValidate_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Minute))

	good, _ := ts.Generate("u1", time.Hour)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u1", ExpiresAt: future}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"expired", sign(t, jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1", ExpiresAt: past}, testSecret)},
		{"no expiry", sign(t, jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1"}, testSecret)},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1", ExpiresAt: future}, "another-secret-0123456789")},
		{"no subject", sign(t, jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: future}, testSecret)},
		{"tampered", good[:len(good)-2] + "xx"},
		{"alg none", unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ts.Validate(tt.token); err == nil {
				t.Errorf("Validate(%s) should fail", tt.name)
			}
		})
	}
}

func TestValidate_Issuer(t *testing.T) {
	ts, err := NewTokenService(testSecret, "codeagentix")
	if err != nil {
		t.Fatal(err)
	}
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	own, _ := ts.Generate("u1", time.Hour)
	if _, err := ts.Validate(own); err != nil {
		t.Errorf("own token rejected: %v", err)
	}

	foreign := sign(t, jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1", Issuer: "other", ExpiresAt: exp}, testSecret)
	if _, err := ts.Validate(foreign); err == nil {
		t.Error("token from another issuer should be rejected")
	}
}
