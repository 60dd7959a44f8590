package identity

import (
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/ssh"

	"bizdesk/internal/config"
	"bizdesk/internal/errs"
	"bizdesk/internal/models"
)

const issuer = "bizdesk"

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies session tokens. It uses RS256 when a
// private key is configured and HS256 with the shared secret otherwise.
type TokenIssuer struct {
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	ttl       time.Duration
	now       func() time.Time
}

func NewTokenIssuer(cfg config.AuthConfig) (*TokenIssuer, error) {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	t := &TokenIssuer{ttl: ttl, now: time.Now}

	if cfg.PrivateKey != "" {
		key, err := parsePrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		t.method = jwt.SigningMethodRS256
		t.signKey = key
		t.verifyKey = &key.PublicKey
		return t, nil
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("no token signing key configured")
	}
	t.method = jwt.SigningMethodHS256
	t.signKey = []byte(cfg.JWTSecret)
	t.verifyKey = []byte(cfg.JWTSecret)
	return t, nil
}

// parsePrivateKey decodes a base64 encoded PEM RSA key.
func parsePrivateKey(encoded string) (*rsa.PrivateKey, error) {
	pem, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	raw, err := ssh.ParseRawPrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	key, ok := raw.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is %T, want RSA", raw)
	}
	return key, nil
}

// Issue returns a signed token for user and its expiry.
func (t *TokenIssuer) Issue(user *models.User) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(t.method, claims).SignedString(t.signKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies a token and returns its claims.
func (t *TokenIssuer) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, errs.Unauthenticated("missing token")
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if tok.Method.Alg() != t.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method %s", tok.Method.Alg())
		}
		return t.verifyKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, errs.Unauthenticated("invalid or expired token")
	}
	if claims.Issuer != issuer {
		return nil, errs.Unauthenticated("invalid token issuer")
	}
	return claims, nil
}
