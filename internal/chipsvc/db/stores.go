package db

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
	"github.com/avvvet/tapchip-services/internal/chipsvc/store"
	"github.com/avvvet/tapchip-services/internal/chipsvc/store/lite"
)

type ChipStore interface {
	Get(ctx context.Context, uid string) (*models.Chip, error)
	GetByID(ctx context.Context, id string) (*models.Chip, error)
	GetForTap(ctx context.Context, uid string) (*models.TapChip, error)
	ConditionalAssign(ctx context.Context, uid, userID string) (*models.Chip, error)
	Update(ctx context.Context, id string, patch models.ChipPatch) (*models.Chip, error)
	ListByOwner(ctx context.Context, userID string) ([]*models.Chip, error)
	CreateUnassigned(ctx context.Context, uids []string) (int64, error)
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetBySubject(ctx context.Context, subject string) (*models.User, error)
}

type CompanyStore interface {
	Create(ctx context.Context, c *models.Company) error
}

type ScanStore interface {
	Append(ctx context.Context, ev models.ScanEvent) error
	ListByChip(ctx context.Context, chipID string, limit int) ([]models.ScanEvent, error)
}

type LeadStore interface {
	Create(ctx context.Context, lead *models.Lead) error
}

// Stores bundles one backend's stores behind driver-neutral interfaces.
type Stores struct {
	Chips     ChipStore
	Users     UserStore
	Companies CompanyStore
	Scans     ScanStore
	Leads     LeadStore

	migrate func(ctx context.Context) error
	close   func()
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects the named driver. target is a Postgres DSN or a SQLite path.
func Open(ctx context.Context, driver, target string) (*Stores, error) {
	switch driver {
	case DriverPostgres:
		pool, err := Connect(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		log.Info("pg connection established successfully")
		return &Stores{
			Chips:     store.NewChipStore(pool),
			Users:     store.NewUserStore(pool),
			Companies: store.NewCompanyStore(pool),
			Scans:     store.NewScanStore(pool),
			Leads:     store.NewLeadStore(pool),
			migrate:   func(ctx context.Context) error { return Migrate(ctx, pool) },
			close:     ClosePool,
		}, nil
	case DriverSQLite:
		l, err := lite.Open(ctx, target)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Chips:     l.Chips,
			Users:     l.Users,
			Companies: l.Companies,
			Scans:     l.Scans,
			Leads:     l.Leads,
			migrate:   l.Migrate,
			close:     func() { l.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}

func (s *Stores) Migrate(ctx context.Context) error {
	return s.migrate(ctx)
}

func (s *Stores) Close() {
	s.close()
}
