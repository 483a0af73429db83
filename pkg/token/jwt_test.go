package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndVerify(t *testing.T) {
	t.Parallel()
	m := NewJWTManager("s3cret", "love-coach-go", 1)

	tok, err := m.GenerateToken("ops", 0)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := m.VerifyToken(tok)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.Subject != "ops" || claims.Issuer != "love-coach-go" {
		t.Fatalf("claims=%+v", claims)
	}
	if d := time.Until(claims.ExpiresAt.Time); d <= 0 || d > time.Hour {
		t.Fatalf("expires in %v, want within default 1h", d)
	}
}

func TestVerifyToken_Rejects(t *testing.T) {
	t.Parallel()
	m := NewJWTManager("s3cret", "love-coach-go", 1)

	// ttl<=0 会回落到默认有效期，因此直接构造一个已过期的 token
	past := time.Now().Add(-time.Hour)
	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, CustomClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "ops",
		Issuer:    "love-coach-go",
		ExpiresAt: jwt.NewNumericDate(past),
	}}).SignedString([]byte("s3cret"))

	otherSecret, _ := NewJWTManager("other", "love-coach-go", 1).GenerateToken("ops", 0)
	otherIssuer, _ := NewJWTManager("s3cret", "someone-else", 1).GenerateToken("ops", 0)
	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, CustomClaims{}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"garbage":      "not-a-jwt",
		"expired":      expired,
		"other secret": otherSecret,
		"other issuer": otherIssuer,
		"alg none":     noneAlg,
	}
	for name, tok := range tests {
		if _, err := m.VerifyToken(tok); err == nil {
			t.Errorf("%s: expected verification error", name)
		}
	}
}

func TestGenerateToken_RequiresSubject(t *testing.T) {
	t.Parallel()
	if _, err := NewJWTManager("s", "", 1).GenerateToken("", 0); err == nil {
		t.Fatalf("expected error for empty subject")
	}
}
