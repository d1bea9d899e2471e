// Package token issues and validates the signed bearer tokens used to
// authenticate employees. Tokens are stateless: they are validated by
// signature and expiry alone, with no server-side session storage.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/enquirydesk/enquirydesk/internal/identity"
)

var (
	ErrMalformed = errors.New("malformed token")
	ErrExpired   = errors.New("token expired")
)

// DefaultTTL matches the original deployment default of seven days.
const DefaultTTL = 7 * 24 * time.Hour

// Claims are the JWT claims carried by an access token.
type Claims struct {
	EmployeeID string `json:"employee_id"`
	Email      string `json:"email"`
	jwt.RegisteredClaims
}

// Service signs and validates access tokens with a shared HMAC key.
type Service struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

// NewService creates a token service. A zero ttl means DefaultTTL.
func NewService(signingKey string, issuer string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
	}
}

// TTL returns the configured token lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue creates a signed token for the employee, valid for the service TTL.
func (s *Service) Issue(employee *identity.Employee) (string, error) {
	return s.IssueWithTTL(employee, s.ttl)
}

// IssueWithTTL creates a signed token with an explicit lifetime.
// A negative ttl produces an already-expired token; tests use this to
// exercise the expiry path without waiting.
func (s *Service) IssueWithTTL(employee *identity.Employee, ttl time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		EmployeeID: employee.ID,
		Email:      employee.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	})

	signed, err := t.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify validates the token signature and expiry and returns the claims.
// Returns ErrExpired for an expired token and ErrMalformed for anything
// else that fails validation. Whether the employee still exists is the
// caller's concern.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}

	if !parsed.Valid {
		return nil, ErrMalformed
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrMalformed
	}

	return claims, nil
}
