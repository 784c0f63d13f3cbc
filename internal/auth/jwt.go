package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidToken covers every verification failure: bad signature,
	// malformed token, expired token, wrong algorithm.
	ErrInvalidToken     = errors.New("invalid token")
	ErrMissingSubject   = errors.New("token subject missing")
	ErrMalformedSubject = errors.New("token subject is not a numeric id")
)

// Claims represents JWT claims for authenticated requests.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID decodes the numeric identity carried in the subject claim.
func (c *Claims) UserID() (uint, error) {
	if c == nil || strings.TrimSpace(c.Subject) == "" {
		return 0, ErrMissingSubject
	}
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrMalformedSubject
	}
	return uint(id), nil
}

// Manager encapsulates JWT generation and validation.
type Manager struct {
	secret    []byte
	issuer    string
	expiry    time.Duration
	maxExpiry time.Duration
	now       func() time.Time
}

// NewManager creates a new JWT manager.
func NewManager(secret, issuer string, expiry, maxExpiry time.Duration) (*Manager, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	if expiry <= 0 {
		expiry = 30 * time.Minute
	}
	if maxExpiry < expiry {
		maxExpiry = expiry
	}
	if strings.TrimSpace(issuer) == "" {
		issuer = "chathub"
	}
	return &Manager{
		secret:    []byte(trimmed),
		issuer:    issuer,
		expiry:    expiry,
		maxExpiry: maxExpiry,
		now:       time.Now,
	}, nil
}

// DefaultTTL returns the lifetime applied when callers pass ttl <= 0.
func (m *Manager) DefaultTTL() time.Duration {
	return m.expiry
}

// GenerateToken issues a signed token whose subject is the user id.
// A non-positive ttl selects the default lifetime; longer ones are clamped.
func (m *Manager) GenerateToken(userID uint, ttl time.Duration) (string, time.Time, error) {
	if m == nil {
		return "", time.Time{}, errors.New("jwt manager is nil")
	}
	if userID == 0 {
		return "", time.Time{}, errors.New("invalid user for token generation")
	}
	if ttl <= 0 {
		ttl = m.expiry
	}
	if ttl > m.maxExpiry {
		ttl = m.maxExpiry
	}

	now := m.now().UTC()
	expiry := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiry, nil
}

// ParseToken validates the token and returns claims.
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	if m == nil {
		return nil, errors.New("jwt manager is nil")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		logrus.WithError(err).Debug("token verification failed")
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
