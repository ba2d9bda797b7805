package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every token that fails to verify: bad signature,
// wrong audience, malformed or expired.
var ErrInvalidToken = errors.New("invalid token")

const (
	DefaultSessionTTL  = 24 * time.Hour
	DefaultTransferTTL = 2 * time.Minute

	audienceSession  = "dbdash-session"
	audienceTransfer = "dbdash-transfer"
)

// File identifies a stored file a transfer token grants access to.
type File struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	User User `json:"user"`
	jwt.RegisteredClaims
}

// TransferClaims is the payload of a short-lived file transfer token.
type TransferClaims struct {
	File File `json:"file"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 tokens with a shared secret.
type Tokens struct {
	secret      []byte
	sessionTTL  time.Duration
	transferTTL time.Duration
	now         func() time.Time
}

// NewTokens creates a token issuer. Zero lifetimes take the defaults.
func NewTokens(secret string, sessionTTL, transferTTL time.Duration) *Tokens {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	if transferTTL <= 0 {
		transferTTL = DefaultTransferTTL
	}
	return &Tokens{
		secret:      []byte(secret),
		sessionTTL:  sessionTTL,
		transferTTL: transferTTL,
		now:         time.Now,
	}
}

// IssueSession signs a session token for u.
func (t *Tokens) IssueSession(u User) (string, error) {
	claims := SessionClaims{
		User:             u,
		RegisteredClaims: t.registered(audienceSession, t.sessionTTL),
	}
	claims.Subject = fmt.Sprint(u.ID)
	return t.sign(claims)
}

// ParseSession verifies a session token and returns its claims.
func (t *Tokens) ParseSession(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := t.parse(token, claims, audienceSession); err != nil {
		return nil, err
	}
	return claims, nil
}

// IssueTransfer signs a transfer token for f.
func (t *Tokens) IssueTransfer(f File) (string, error) {
	claims := TransferClaims{
		File:             f,
		RegisteredClaims: t.registered(audienceTransfer, t.transferTTL),
	}
	return t.sign(claims)
}

// ParseTransfer verifies a transfer token and returns its claims.
func (t *Tokens) ParseTransfer(token string) (*TransferClaims, error) {
	claims := &TransferClaims{}
	if err := t.parse(token, claims, audienceTransfer); err != nil {
		return nil, err
	}
	return claims, nil
}

func (t *Tokens) registered(audience string, ttl time.Duration) jwt.RegisteredClaims {
	now := t.now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (t *Tokens) sign(claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *Tokens) parse(token string, claims jwt.Claims, audience string) error {
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}
