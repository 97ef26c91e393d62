package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"userapi/internal/domain"
)

// Keys signs and verifies HS256 access tokens with one process-wide secret.
// It is immutable after construction and safe for concurrent use.
type Keys struct {
	secret []byte
	now    func() time.Time
}

// NewKeys builds Keys from the configured secret.
// clock is injectable for deterministic testing; nil means time.Now.
func NewKeys(secret []byte, clock func() time.Time) (*Keys, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	if clock == nil {
		clock = time.Now
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return &Keys{secret: s, now: clock}, nil
}

// Issue signs a token for subject valid for domain.TokenLifetime.
func (k *Keys) Issue(subject string) (string, error) {
	c := domain.NewClaims(subject, k.now())
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   c.Subject,
		IssuedAt:  jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)),
		ExpiresAt: jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)),
	})
	signed, err := tok.SignedString(k.secret)
	if err != nil {
		return "", domain.TokenCreation(err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of raw and returns its claims.
// The returned error is the library error; callers map it to InvalidToken.
func (k *Keys) Verify(raw string) (domain.Claims, error) {
	var rc jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(raw, &rc, func(*jwt.Token) (any, error) {
		return k.secret, nil
	},
		// Only HS256: a token signed with any other algorithm is rejected.
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(k.now),
	)
	if err != nil {
		return domain.Claims{}, err
	}
	if !parsed.Valid {
		return domain.Claims{}, errors.New("token not valid")
	}
	if rc.Subject == "" {
		return domain.Claims{}, errors.New("token has no subject")
	}

	c := domain.Claims{Subject: rc.Subject, ExpiresAt: rc.ExpiresAt.Unix()}
	if rc.IssuedAt != nil {
		c.IssuedAt = rc.IssuedAt.Unix()
	}
	if c.IssuedAt != 0 && c.ExpiresAt <= c.IssuedAt {
		return domain.Claims{}, fmt.Errorf("token expires at %d before issue time %d", c.ExpiresAt, c.IssuedAt)
	}
	return c, nil
}
