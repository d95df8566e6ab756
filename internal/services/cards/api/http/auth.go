package httpapi

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/louisbranch/cardpress/internal/platform/errors"
)

const (
	tokenIssuer     = "cardpress"
	defaultTokenTTL = 12 * time.Hour
)

var errBadCredentials = apperrors.New(apperrors.CodeUnauthenticated, "invalid username or password")

// AuthConfig configures the single administrator account.
type AuthConfig struct {
	Username     string
	PasswordHash string
	Secret       string
	TTL          time.Duration
}

// Authenticator issues and verifies administrator bearer tokens.
type Authenticator struct {
	username     string
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	clock        func() time.Time
}

// NewAuthenticator validates cfg. The password hash must be bcrypt.
func NewAuthenticator(cfg AuthConfig) (*Authenticator, error) {
	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		return nil, errors.New("admin username is required")
	}
	if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
		return nil, fmt.Errorf("admin password hash: %w", err)
	}
	if len(cfg.Secret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Authenticator{
		username:     username,
		passwordHash: []byte(cfg.PasswordHash),
		secret:       []byte(cfg.Secret),
		ttl:          ttl,
		clock:        time.Now,
	}, nil
}

// Login checks credentials and returns a signed token and its expiry.
func (a *Authenticator) Login(username, password string) (string, time.Time, error) {
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(a.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		return "", time.Time{}, errBadCredentials
	}

	now := a.clock().UTC()
	expires := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   a.username,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign admin token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses a bearer token and returns the administrator it names.
func (a *Authenticator) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.clock),
	)
	if err != nil || !token.Valid {
		return "", apperrors.Wrap(apperrors.CodeUnauthenticated, "invalid or expired token", err)
	}
	if claims.Subject != a.username {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "unknown administrator")
	}
	return claims.Subject, nil
}
