package store

import (
	"context"

	"github.com/enquirydesk/enquirydesk/internal/enquiry"
	"github.com/enquirydesk/enquirydesk/internal/identity"
)

func init() {
	Register("memory", func(cfg *DriverConfig) (Driver, error) {
		return NewMemoryDriver(), nil
	})
}

// MemoryDriver bundles the in-memory repositories behind the Driver
// interface. It is the default backend and the one tests use.
type MemoryDriver struct {
	employees *identity.MemoryRepo
	enquiries *enquiry.MemoryRepo
}

// NewMemoryDriver creates a memory driver with empty repositories.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{
		employees: identity.NewMemoryRepo(),
		enquiries: enquiry.NewMemoryRepo(),
	}
}

func (d *MemoryDriver) Init(ctx context.Context) error { return nil }

func (d *MemoryDriver) Close() error { return nil }

func (d *MemoryDriver) Name() string { return "memory" }

func (d *MemoryDriver) Employees() identity.Repo { return d.employees }

func (d *MemoryDriver) Enquiries() enquiry.Repo { return d.enquiries }
