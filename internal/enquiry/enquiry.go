// Package enquiry holds enquiry records and coordinates claim operations.
//
// The claim path is the correctness-critical part of the system: when
// several employees race to claim the same enquiry, exactly one must win.
// Every implementation of Repo funnels the decision through a single
// conditional update (claim only if still unclaimed) whose affected-row
// count reports the outcome; no caller ever does a read-then-write.
package enquiry

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("enquiry not found")

// ClaimOutcome is the closed set of results a claim attempt can produce.
type ClaimOutcome string

const (
	OutcomeClaimed        ClaimOutcome = "claimed"
	OutcomeAlreadyClaimed ClaimOutcome = "already_claimed"
	OutcomeNotFound       ClaimOutcome = "not_found"
)

// Enquiry is a service request submitted by an external party. ClaimedBy is
// nil while unclaimed and set exactly once: after a successful claim it
// never changes to another employee.
type Enquiry struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	Message   string    `json:"message"`
	ClaimedBy *string   `json:"claimed_by,omitempty" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsClaimed reports whether the enquiry has an owner.
func (e *Enquiry) IsClaimed() bool {
	return e.ClaimedBy != nil
}

// Repo provides enquiry storage operations.
// Implementations must be safe for concurrent use.
type Repo interface {
	// CreateUnclaimed stores a new enquiry with no claim owner.
	CreateUnclaimed(ctx context.Context, enquiry *Enquiry) error

	// Get retrieves an enquiry by ID. Returns ErrNotFound if not found.
	Get(ctx context.Context, id string) (*Enquiry, error)

	// ListUnclaimed returns unclaimed enquiries, newest first.
	ListUnclaimed(ctx context.Context) ([]*Enquiry, error)

	// ListClaimedBy returns enquiries claimed by the employee, newest first.
	ListClaimedBy(ctx context.Context, employeeID string) ([]*Enquiry, error)

	// ClaimIfUnclaimed atomically sets the claim owner if, and only if,
	// the enquiry identified by id still has none. It returns the number
	// of records updated: 1 when the caller won the claim, 0 when the
	// enquiry is missing or already claimed. The check and the write are
	// a single operation against the backing store; two concurrent calls
	// for the same id can never both return 1.
	ClaimIfUnclaimed(ctx context.Context, id, employeeID string) (int64, error)
}
