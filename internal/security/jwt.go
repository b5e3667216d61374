package security

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken   = errors.New("missing bearer token")
	ErrInvalidToken   = errors.New("invalid token")
	ErrInvalidSubject = errors.New("invalid subject")
)

// PresenterClaims - от провайдера нам нужен только sub: непрозрачный id ведущего.
type PresenterClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Presenter - проверенная личность ведущего.
type Presenter struct {
	ID   string
	Name string
}

// PresenterVerifier проверяет JWT, выпущенные внешним провайдером:
// HS256 с общим секретом или RS256 с публичным ключом.
type PresenterVerifier struct {
	method    jwt.SigningMethod
	key       any
	issuer    string
	audience  string
	clockSkew time.Duration
	now       func() time.Time
}

func NewHMACVerifier(secret []byte, issuer, audience string, clockSkew time.Duration) (*PresenterVerifier, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("hmac secret must be at least 16 bytes")
	}
	return newVerifier(jwt.SigningMethodHS256, secret, issuer, audience, clockSkew), nil
}

func NewRSAVerifier(public *rsa.PublicKey, issuer, audience string, clockSkew time.Duration) *PresenterVerifier {
	return newVerifier(jwt.SigningMethodRS256, public, issuer, audience, clockSkew)
}

func newVerifier(method jwt.SigningMethod, key any, issuer, audience string, clockSkew time.Duration) *PresenterVerifier {
	return &PresenterVerifier{
		method:    method,
		key:       key,
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
		now:       time.Now,
	}
}

// Verify разбирает токен и возвращает ведущего из sub.
func (v *PresenterVerifier) Verify(tokenStr string) (*Presenter, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{v.method.Alg()}),
		jwt.WithLeeway(v.clockSkew),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &PresenterClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return nil, ErrInvalidSubject
	}
	return &Presenter{ID: sub, Name: claims.Name}, nil
}

// HMACSigner выпускает токены ведущего. Используется локальным окружением и тестами;
// в проде токены выпускает провайдер.
type HMACSigner struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

func NewHMACSigner(secret []byte, issuer, audience string, ttl time.Duration) *HMACSigner {
	return &HMACSigner{secret: secret, issuer: issuer, audience: audience, ttl: ttl}
}

func (s *HMACSigner) Sign(presenterID, name string, now time.Time) (string, error) {
	claims := PresenterClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   presenterID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func LoadRSAPublicKeyFromPEM(path string) (*rsa.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(b)
	if err != nil {
		return nil, err
	}

	return pub, nil
}
