package enquiry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ClaimResult is the outcome of a claim attempt. Enquiry is set only when
// Outcome is OutcomeClaimed.
type ClaimResult struct {
	Outcome ClaimOutcome
	Enquiry *Enquiry
}

// Service coordinates enquiry operations. It never mutates records
// directly; all writes go through the repository's narrow write API.
type Service struct {
	repo Repo
	log  *slog.Logger
}

// NewService creates an enquiry service.
func NewService(repo Repo, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, log: log}
}

// Submit stores a new unclaimed enquiry from the public form.
// Input syntax is validated at the HTTP layer; Submit only normalizes.
func (s *Service) Submit(ctx context.Context, name, email string, phone *string, message string) (*Enquiry, error) {
	enquiry := &Enquiry{
		Name:    strings.TrimSpace(name),
		Email:   strings.ToLower(strings.TrimSpace(email)),
		Message: strings.TrimSpace(message),
	}
	if phone != nil && strings.TrimSpace(*phone) != "" {
		p := strings.TrimSpace(*phone)
		enquiry.Phone = &p
	}

	if err := s.repo.CreateUnclaimed(ctx, enquiry); err != nil {
		return nil, fmt.Errorf("failed to store enquiry: %w", err)
	}

	s.log.Info("enquiry submitted", "enquiry_id", enquiry.ID, "email", enquiry.Email)
	return enquiry, nil
}

// ListUnclaimed returns the current snapshot of unclaimed enquiries,
// newest first.
func (s *Service) ListUnclaimed(ctx context.Context) ([]*Enquiry, error) {
	return s.repo.ListUnclaimed(ctx)
}

// ListClaimedBy returns the enquiries owned by the employee, newest first.
func (s *Service) ListClaimedBy(ctx context.Context, employeeID string) ([]*Enquiry, error) {
	return s.repo.ListClaimedBy(ctx, employeeID)
}

// Claim attempts to assign the enquiry to the employee. The conditional
// update decides the winner; interpreting its affected-row count happens
// here:
//
//   - 1 row updated: the caller won. The record is re-read (safe, it can
//     no longer change owner) and returned.
//   - 0 rows updated: the enquiry is missing or already owned. A follow-up
//     read disambiguates the two; it is advisory only and mutates nothing,
//     so it introduces no race.
//
// A claim by the employee who already owns the enquiry reports
// OutcomeAlreadyClaimed like any other losing attempt.
func (s *Service) Claim(ctx context.Context, enquiryID, employeeID string) (*ClaimResult, error) {
	affected, err := s.repo.ClaimIfUnclaimed(ctx, enquiryID, employeeID)
	if err != nil {
		return nil, fmt.Errorf("claim update failed: %w", err)
	}

	if affected == 1 {
		enquiry, err := s.repo.Get(ctx, enquiryID)
		if err != nil {
			return nil, fmt.Errorf("failed to load claimed enquiry: %w", err)
		}
		s.log.Info("enquiry claimed", "enquiry_id", enquiryID, "employee_id", employeeID)
		return &ClaimResult{Outcome: OutcomeClaimed, Enquiry: enquiry}, nil
	}

	enquiry, err := s.repo.Get(ctx, enquiryID)
	if errors.Is(err, ErrNotFound) {
		return &ClaimResult{Outcome: OutcomeNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to inspect enquiry after claim: %w", err)
	}
	if enquiry.ClaimedBy == nil {
		// The conditional update reported no match yet the record exists
		// unclaimed. The repository broke its contract; surface it.
		return nil, fmt.Errorf("claim predicate mismatch for enquiry %s", enquiryID)
	}

	return &ClaimResult{Outcome: OutcomeAlreadyClaimed}, nil
}
