package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-cli/internal/db"
	"github.com/sells-group/risk-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS company_cache (
	id         TEXT PRIMARY KEY,
	tax_id     TEXT NOT NULL UNIQUE,
	record     JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_company_cache_expires_at ON company_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetCachedCompany(ctx context.Context, taxID string) (*model.CompanyRecord, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM company_cache WHERE tax_id = $1 AND expires_at > now()`,
		taxID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get cached company")
	}

	var rec model.CompanyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached company")
	}
	return &rec, nil
}

func (s *PostgresStore) SetCachedCompany(ctx context.Context, record model.CompanyRecord, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal company")
	}

	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO company_cache (id, tax_id, record, cached_at, expires_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (tax_id) DO UPDATE SET record = $3, cached_at = $4, expires_at = $5`,
		uuid.New().String(), record.TaxID, data, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached company")
}

func (s *PostgresStore) DeleteExpiredCompanies(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM company_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired companies")
	}
	return int(tag.RowsAffected()), nil
}
