package enquiry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory implementation of Repo. The single mutex
// makes ClaimIfUnclaimed's check-and-set atomic within the process.
type MemoryRepo struct {
	mu        sync.RWMutex
	enquiries map[string]*Enquiry
	seq       map[string]uint64 // insertion order, tiebreak for equal timestamps
	nextSeq   uint64
}

// NewMemoryRepo creates a new in-memory enquiry repository.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		enquiries: make(map[string]*Enquiry),
		seq:       make(map[string]uint64),
	}
}

func (r *MemoryRepo) CreateUnclaimed(ctx context.Context, enquiry *Enquiry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if enquiry.ID == "" {
		enquiry.ID = uuid.New().String()
	}
	now := time.Now()
	if enquiry.CreatedAt.IsZero() {
		enquiry.CreatedAt = now
	}
	enquiry.UpdatedAt = enquiry.CreatedAt
	enquiry.ClaimedBy = nil

	e := *enquiry
	r.enquiries[enquiry.ID] = &e
	r.seq[enquiry.ID] = r.nextSeq
	r.nextSeq++

	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (*Enquiry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	enquiry, ok := r.enquiries[id]
	if !ok {
		return nil, ErrNotFound
	}

	e := *enquiry
	return &e, nil
}

func (r *MemoryRepo) ListUnclaimed(ctx context.Context) ([]*Enquiry, error) {
	return r.list(func(e *Enquiry) bool { return e.ClaimedBy == nil })
}

func (r *MemoryRepo) ListClaimedBy(ctx context.Context, employeeID string) ([]*Enquiry, error) {
	return r.list(func(e *Enquiry) bool {
		return e.ClaimedBy != nil && *e.ClaimedBy == employeeID
	})
}

func (r *MemoryRepo) list(keep func(*Enquiry) bool) ([]*Enquiry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Enquiry, 0)
	for _, enquiry := range r.enquiries {
		if keep(enquiry) {
			e := *enquiry
			result = append(result, &e)
		}
	}

	// Newest first; fall back to insertion order for identical timestamps.
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return r.seq[result[i].ID] > r.seq[result[j].ID]
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func (r *MemoryRepo) ClaimIfUnclaimed(ctx context.Context, id, employeeID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	enquiry, ok := r.enquiries[id]
	if !ok {
		return 0, nil
	}
	if enquiry.ClaimedBy != nil {
		return 0, nil
	}

	owner := employeeID
	enquiry.ClaimedBy = &owner
	enquiry.UpdatedAt = time.Now()
	return 1, nil
}
