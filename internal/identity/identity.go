// Package identity provides employee accounts, password verification, and
// registration/login with bearer token issuance.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Employee is a worker account able to claim enquiries.
type Employee struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // argon2id PHC string, never serialized
	CreatedAt    time.Time `json:"created_at"`
}

// Projection is the minimal employee view handed to downstream components
// after authentication. It never carries the credential hash.
type Projection struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Project returns the employee's projection.
func (e *Employee) Project() Projection {
	return Projection{ID: e.ID, Email: e.Email, Name: e.Name}
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Repo provides employee storage operations.
type Repo interface {
	// Create creates a new employee. Returns ErrEmailExists if the email
	// is already registered.
	Create(ctx context.Context, employee *Employee) error

	// Get retrieves an employee by ID. Returns ErrEmployeeNotFound if not found.
	Get(ctx context.Context, id string) (*Employee, error)

	// GetByEmail retrieves an employee by normalized email.
	// Returns ErrEmployeeNotFound if not found.
	GetByEmail(ctx context.Context, email string) (*Employee, error)
}

// NewID returns a time-ordered UUIDv7 for a new employee record.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the random source does; fall back to v4.
		return uuid.NewString()
	}
	return id.String()
}

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu        sync.RWMutex
	employees map[string]*Employee // by ID
	byEmail   map[string]string    // normalized email -> ID
}

// NewMemoryRepo creates a new in-memory employee repository.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		employees: make(map[string]*Employee),
		byEmail:   make(map[string]string),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, employee *Employee) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := NormalizeEmail(employee.Email)
	if _, exists := r.byEmail[email]; exists {
		return ErrEmailExists
	}

	if employee.ID == "" {
		employee.ID = NewID()
	}
	if employee.CreatedAt.IsZero() {
		employee.CreatedAt = time.Now()
	}
	employee.Email = email

	// Store a copy
	e := *employee
	r.employees[employee.ID] = &e
	r.byEmail[email] = employee.ID

	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (*Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	employee, ok := r.employees[id]
	if !ok {
		return nil, ErrEmployeeNotFound
	}

	e := *employee
	return &e, nil
}

func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (*Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrEmployeeNotFound
	}

	e := *r.employees[id]
	return &e, nil
}
