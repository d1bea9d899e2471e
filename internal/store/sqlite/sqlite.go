// Package sqlite implements a SQLite-based persistence driver using GORM.
//
// The claim operation relies on SQLite serializing writes per record: the
// conditional UPDATE with a "claimed_by IS NULL" predicate either matches
// the row or it doesn't, and RowsAffected reports which. Two concurrent
// claims on the same enquiry can never both see RowsAffected == 1.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/enquirydesk/enquirydesk/internal/cfg"
	"github.com/enquirydesk/enquirydesk/internal/enquiry"
	"github.com/enquirydesk/enquirydesk/internal/identity"
	"github.com/enquirydesk/enquirydesk/internal/store"
)

func init() {
	store.Register("sqlite", NewDriver)
}

// Settings holds sqlite-specific options from the [store.drivers.sqlite]
// config section. Implements cfg.Setter.
type Settings struct {
	// File is the database filename inside DataDir.
	File string `mapstructure:"file"`

	// BusyTimeoutMS bounds how long a write waits on a locked database
	// before failing instead of returning SQLITE_BUSY immediately.
	BusyTimeoutMS int `mapstructure:"busy_timeout_ms"`
}

// ApplyDefaults sets defaults. Called by cfg.Decode().
func (s *Settings) ApplyDefaults() {
	if s.File == "" {
		s.File = "enquirydesk.db"
	}
	if s.BusyTimeoutMS == 0 {
		s.BusyTimeoutMS = 5000
	}
}

// Driver implements the store.Driver interface using SQLite via GORM.
type Driver struct {
	dataDir  string
	settings Settings
	db       *gorm.DB
}

// NewDriver creates a new SQLite driver instance.
func NewDriver(c *store.DriverConfig) (store.Driver, error) {
	if c.DataDir == "" {
		return nil, fmt.Errorf("data_dir is required for sqlite driver")
	}

	var settings Settings
	if err := cfg.Decode(c.Options, &settings); err != nil {
		return nil, fmt.Errorf("invalid sqlite driver options: %w", err)
	}

	return &Driver{
		dataDir:  c.DataDir,
		settings: settings,
	}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return "sqlite"
}

// Init opens the SQLite database and runs AutoMigrate.
func (d *Driver) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_busy_timeout=%d",
		filepath.Join(d.dataDir, d.settings.File), d.settings.BusyTimeoutMS)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	d.db = db

	if err := db.AutoMigrate(
		&identity.Employee{},
		&enquiry.Enquiry{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	if d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Employees returns the employee repository.
func (d *Driver) Employees() identity.Repo {
	return &employeeStore{db: d.db}
}

// Enquiries returns the enquiry repository.
func (d *Driver) Enquiries() enquiry.Repo {
	return &enquiryStore{db: d.db}
}

// employeeStore implements identity.Repo on the shared database handle.
type employeeStore struct {
	db *gorm.DB
}

func (s *employeeStore) Create(ctx context.Context, employee *identity.Employee) error {
	if employee.ID == "" {
		employee.ID = identity.NewID()
	}
	employee.Email = identity.NormalizeEmail(employee.Email)

	result := s.db.WithContext(ctx).Create(employee)
	if result.Error != nil {
		// The unique index on email enforces uniqueness at creation even
		// when two registrations race past an application-level check.
		if strings.Contains(result.Error.Error(), "UNIQUE constraint failed") {
			return identity.ErrEmailExists
		}
		return result.Error
	}
	return nil
}

func (s *employeeStore) Get(ctx context.Context, id string) (*identity.Employee, error) {
	var employee identity.Employee
	result := s.db.WithContext(ctx).First(&employee, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, identity.ErrEmployeeNotFound
		}
		return nil, result.Error
	}
	return &employee, nil
}

func (s *employeeStore) GetByEmail(ctx context.Context, email string) (*identity.Employee, error) {
	var employee identity.Employee
	result := s.db.WithContext(ctx).First(&employee, "email = ?", identity.NormalizeEmail(email))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, identity.ErrEmployeeNotFound
		}
		return nil, result.Error
	}
	return &employee, nil
}

// enquiryStore implements enquiry.Repo on the shared database handle.
type enquiryStore struct {
	db *gorm.DB
}

func (s *enquiryStore) CreateUnclaimed(ctx context.Context, e *enquiry.Enquiry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.ClaimedBy = nil
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.UpdatedAt = e.CreatedAt

	result := s.db.WithContext(ctx).Create(e)
	return result.Error
}

func (s *enquiryStore) Get(ctx context.Context, id string) (*enquiry.Enquiry, error) {
	var e enquiry.Enquiry
	result := s.db.WithContext(ctx).First(&e, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, enquiry.ErrNotFound
		}
		return nil, result.Error
	}
	return &e, nil
}

func (s *enquiryStore) ListUnclaimed(ctx context.Context) ([]*enquiry.Enquiry, error) {
	var enquiries []*enquiry.Enquiry
	result := s.db.WithContext(ctx).
		Where("claimed_by IS NULL").
		Order("created_at DESC").
		Find(&enquiries)
	if result.Error != nil {
		return nil, result.Error
	}
	return enquiries, nil
}

func (s *enquiryStore) ListClaimedBy(ctx context.Context, employeeID string) ([]*enquiry.Enquiry, error) {
	var enquiries []*enquiry.Enquiry
	result := s.db.WithContext(ctx).
		Where("claimed_by = ?", employeeID).
		Order("created_at DESC").
		Find(&enquiries)
	if result.Error != nil {
		return nil, result.Error
	}
	return enquiries, nil
}

// ClaimIfUnclaimed issues the single conditional UPDATE the claim design
// rests on. The predicate and the write are one statement; the engine
// serializes it at the row level.
func (s *enquiryStore) ClaimIfUnclaimed(ctx context.Context, id, employeeID string) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&enquiry.Enquiry{}).
		Where("id = ? AND claimed_by IS NULL", id).
		Updates(map[string]any{
			"claimed_by": employeeID,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Compile-time interface checks
var _ store.Driver = (*Driver)(nil)
var _ identity.Repo = (*employeeStore)(nil)
var _ enquiry.Repo = (*enquiryStore)(nil)
