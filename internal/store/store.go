// Package store provides persistence driver abstractions and a registry.
//
// A driver owns the backing storage for both employee and enquiry records
// and hands out the repository implementations the rest of the system
// works against. Drivers register themselves from init() so the set of
// available backends is decided by imports in main.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/enquirydesk/enquirydesk/internal/enquiry"
	"github.com/enquirydesk/enquirydesk/internal/identity"
)

// Driver defines the interface for a persistence backend.
// Implementations must be safe for concurrent use: the enquiry repository
// they return carries the atomic claim-if-unclaimed guarantee.
type Driver interface {
	// Init initializes the driver (open files, create tables, etc).
	Init(ctx context.Context) error

	// Close releases resources held by the driver.
	Close() error

	// Name returns the driver name (memory, sqlite).
	Name() string

	// Employees returns the employee repository.
	Employees() identity.Repo

	// Enquiries returns the enquiry repository.
	Enquiries() enquiry.Repo
}

// DriverConfig holds configuration for driver selection and initialization.
type DriverConfig struct {
	// Driver is the driver name: memory, sqlite
	Driver string `json:"driver"`

	// DataDir is the directory for data files (sqlite db)
	DataDir string `json:"data_dir"`

	// Options holds driver-specific settings, decoded by each driver
	// from the [store.drivers.<name>] config section.
	Options map[string]any `json:"options"`
}

// DriverFactory is a function that creates a driver instance.
type DriverFactory func(cfg *DriverConfig) (Driver, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]DriverFactory)
)

// Register registers a driver factory by name.
// This is typically called from init() in driver packages.
func Register(name string, factory DriverFactory) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = factory
}

// New creates a driver instance based on the configuration.
func New(cfg *DriverConfig) (Driver, error) {
	driversMu.RLock()
	factory, ok := drivers[cfg.Driver]
	driversMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}

	return factory(cfg)
}

// AvailableDrivers returns the list of registered driver names.
func AvailableDrivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	return names
}
