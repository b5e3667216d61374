package security

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func fixedVerifier(t *testing.T, now time.Time) *PresenterVerifier {
	t.Helper()
	v, err := NewHMACVerifier(testSecret, "idp", "poll", 30*time.Second)
	if err != nil {
		t.Fatalf("NewHMACVerifier: %v", err)
	}
	v.now = func() time.Time { return now }
	return v
}

func TestVerify_HMAC(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tok, err := NewHMACSigner(testSecret, "idp", "poll", time.Hour).Sign("presenter-42", "Ada", now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	p, err := fixedVerifier(t, now.Add(time.Minute)).Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.ID != "presenter-42" || p.Name != "Ada" {
		t.Fatalf("unexpected presenter: %+v", p)
	}
}

func TestVerify_Rejects(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	good := NewHMACSigner(testSecret, "idp", "poll", time.Hour)

	cases := []struct {
		name  string
		token func() string
		at    time.Time
		want  error
	}{
		{"empty", func() string { return " " }, now, ErrMissingToken},
		{"expired", func() string { s, _ := good.Sign("p", "", now); return s }, now.Add(2 * time.Hour), ErrInvalidToken},
		{"within skew", func() string { s, _ := good.Sign("p", "", now); return s }, now.Add(time.Hour + 10*time.Second), nil},
		{"wrong issuer", func() string {
			s, _ := NewHMACSigner(testSecret, "other", "poll", time.Hour).Sign("p", "", now)
			return s
		}, now, ErrInvalidToken},
		{"wrong audience", func() string {
			s, _ := NewHMACSigner(testSecret, "idp", "else", time.Hour).Sign("p", "", now)
			return s
		}, now, ErrInvalidToken},
		{"wrong secret", func() string {
			s, _ := NewHMACSigner([]byte("ffffffffffffffffffffffffffffffff"), "idp", "poll", time.Hour).Sign("p", "", now)
			return s
		}, now, ErrInvalidToken},
		{"no subject", func() string { s, _ := good.Sign("", "", now); return s }, now, ErrInvalidSubject},
		{"garbage", func() string { return "not.a.jwt" }, now, ErrInvalidToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fixedVerifier(t, tc.at).Verify(tc.token())
			if tc.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestVerify_RSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	now := time.Now()
	claims := PresenterClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "rsa-presenter",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	p, err := NewRSAVerifier(&key.PublicKey, "", "", 0).Verify(tok)
	if err != nil || p.ID != "rsa-presenter" {
		t.Fatalf("Verify: %+v %v", p, err)
	}

	// HS256 токен не должен пройти RS256 проверку.
	hs, _ := NewHMACSigner(testSecret, "", "", time.Hour).Sign("x", "", now)
	if _, err := NewRSAVerifier(&key.PublicKey, "", "", 0).Verify(hs); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("alg confusion must fail, got %v", err)
	}
}

func TestNewHMACVerifier_ShortSecret(t *testing.T) {
	if _, err := NewHMACVerifier([]byte("short"), "", "", 0); err == nil {
		t.Fatalf("expected error for short secret")
	}
}
