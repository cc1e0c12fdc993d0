// Package store caches registry lookups so repeated batches over the same
// CNPJs do not hit the public API again.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-cli/internal/model"
)

// Store persists successful registry lookups with an expiry.
type Store interface {
	// GetCachedCompany returns nil, nil on a miss or an expired entry.
	GetCachedCompany(ctx context.Context, taxID string) (*model.CompanyRecord, error)
	SetCachedCompany(ctx context.Context, record model.CompanyRecord, ttl time.Duration) error
	DeleteExpiredCompanies(ctx context.Context) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store for driver: "sqlite" (dsn is a file path) or
// "postgres" (dsn is a connection string).
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", "sqlite":
		return NewSQLite(dsn)
	case "postgres", "postgresql":
		return NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", driver)
	}
}
