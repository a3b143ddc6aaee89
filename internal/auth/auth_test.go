package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := MakeToken("user_2abc", "secret", "", 15*time.Minute)
	if err != nil {
		t.Fatalf("make token: %v", err)
	}
	c, err := ParseToken(tok, "secret", "")
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if c.UserID() != "user_2abc" {
		t.Errorf("uid mismatch: %s", c.UserID())
	}
	diff := time.Until(c.ExpiresAt.Time)
	if diff < 14*time.Minute || diff > 16*time.Minute {
		t.Errorf("expected ~15min expiry, got %v", diff)
	}
}

func TestParseTokenRejects(t *testing.T) {
	good, _ := MakeToken("uid", "secret", "https://idp.example", time.Minute)
	expired, _ := MakeToken("uid", "secret", "", -time.Minute)
	noSubject, _ := MakeToken("", "secret", "", time.Minute)
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "uid"}).SignedString([]byte("secret"))

	tests := []struct {
		name   string
		raw    string
		secret string
		issuer string
	}{
		{"wrong secret", good, "other", ""},
		{"wrong issuer", good, "secret", "https://evil.example"},
		{"expired", expired, "secret", ""},
		{"no subject", noSubject, "secret", ""},
		{"no expiry", noExpiry, "secret", ""},
		{"garbage", "not.a.token", "secret", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.raw, tt.secret, tt.issuer); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := ParseToken(good, "secret", "https://idp.example"); err != nil {
		t.Fatalf("matching issuer should pass: %v", err)
	}
}

func TestAlgorithmConfusion(t *testing.T) {
	// unsigned token must never verify
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "uid",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := ParseToken(raw, "secret", ""); err == nil {
		t.Fatal("expected error for alg none")
	}
}

func TestServerToken(t *testing.T) {
	raw, err := MakeServerToken("provider-secret", time.Hour)
	if err != nil {
		t.Fatalf("make server token: %v", err)
	}
	var c serverClaims
	_, err = jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return []byte("provider-secret"), nil
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !c.Server {
		t.Error("server claim not set")
	}
}
