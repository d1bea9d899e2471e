package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// TokenMinter signs an access token for an employee. Implemented by the
// token service; declared here so the issuer doesn't depend on the JWT
// library directly.
type TokenMinter interface {
	Issue(employee *Employee) (string, error)
}

// Issuer handles registration and login, producing an employee record and
// a signed bearer token.
type Issuer struct {
	repo   Repo
	hasher *PasswordHasher
	tokens TokenMinter
}

// NewIssuer creates an Issuer.
func NewIssuer(repo Repo, hasher *PasswordHasher, tokens TokenMinter) *Issuer {
	return &Issuer{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
	}
}

// Register creates a new employee account and issues a token for it.
// Returns ErrEmailExists if the email is already registered.
func (i *Issuer) Register(ctx context.Context, email, password, name string) (*Employee, string, error) {
	hash, err := i.hasher.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	employee := &Employee{
		Email:        NormalizeEmail(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
	}
	if err := i.repo.Create(ctx, employee); err != nil {
		return nil, "", err
	}

	signed, err := i.tokens.Issue(employee)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	return employee, signed, nil
}

// Login verifies the credentials and issues a token.
// Returns ErrInvalidCredentials for an unknown email or a wrong password;
// the two cases are indistinguishable to the caller.
func (i *Issuer) Login(ctx context.Context, email, password string) (*Employee, string, error) {
	employee, err := i.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrEmployeeNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := i.hasher.Verify(employee.PasswordHash, password); err != nil {
		return nil, "", err
	}

	signed, err := i.tokens.Issue(employee)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	return employee, signed, nil
}
