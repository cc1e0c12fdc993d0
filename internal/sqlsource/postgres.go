package sqlsource

import (
	"context"
	"net"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-cli/internal/db"
	"github.com/sells-group/risk-cli/internal/resilience"
)

const pgTablesQuery = `SELECT table_schema, table_name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE'
  AND table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY table_schema, table_name`

// PostgresSource queries a PostgreSQL database through a pgx pool.
type PostgresSource struct {
	pool db.Pool
}

// NewPostgres connects to the configured PostgreSQL server.
func NewPostgres(ctx context.Context, cfg ConnectionConfig) (*PostgresSource, error) {
	pool, err := db.Connect(ctx, PostgresDSN(cfg), &db.PoolConfig{MaxConns: 4})
	if err != nil {
		return nil, resilience.Unavailable(eris.Wrap(err, "sqlsource: connect postgres"))
	}
	return &PostgresSource{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool.
func NewPostgresFromPool(pool db.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// PostgresDSN renders cfg as a postgres URL.
func PostgresDSN(cfg ConnectionConfig) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Server, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}
	switch {
	case cfg.UseWindowsAuth && cfg.Username != "":
		u.User = url.User(cfg.Username)
	case !cfg.UseWindowsAuth:
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	q := url.Values{}
	q.Set("connect_timeout", strconv.Itoa(int(connectTimeout.Seconds())))
	q.Set("application_name", "risk-cli")
	u.RawQuery = q.Encode()
	return u.String()
}

// Ping implements Source.
func (s *PostgresSource) Ping(ctx context.Context) (*ServerInfo, error) {
	var version, database string
	err := s.pool.QueryRow(ctx, "SELECT version(), current_database()").Scan(&version, &database)
	if err != nil {
		return nil, resilience.Unavailable(eris.Wrap(err, "sqlsource: ping postgres"))
	}
	return &ServerInfo{Version: versionLine(version), Database: database}, nil
}

// Query implements Source.
func (s *PostgresSource) Query(ctx context.Context, query string) (*Result, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, queryError(err, "sqlsource: query")
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	res := &Result{
		Columns: make([]string, len(fields)),
		Rows:    []map[string]string{},
	}
	for i, f := range fields {
		res.Columns[i] = f.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, queryError(err, "sqlsource: read row")
		}
		row := make(map[string]string, len(values))
		for i, v := range values {
			if i < len(res.Columns) {
				row[res.Columns[i]] = stringify(v)
			}
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err, "sqlsource: iterate rows")
	}
	return res, nil
}

// Exec implements Source.
func (s *PostgresSource) Exec(ctx context.Context, stmt string) (int64, error) {
	tag, err := s.pool.Exec(ctx, stmt)
	if err != nil {
		return 0, queryError(err, "sqlsource: exec")
	}
	return tag.RowsAffected(), nil
}

// Tables implements Source.
func (s *PostgresSource) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, pgTablesQuery)
	if err != nil {
		return nil, queryError(err, "sqlsource: list tables")
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var schema, name string
		if err := rows.Scan(&schema, &name); err != nil {
			return nil, eris.Wrap(err, "sqlsource: scan table")
		}
		tables = append(tables, schema+"."+name)
	}
	return tables, eris.Wrap(rows.Err(), "sqlsource: iterate tables")
}

// Close implements Source.
func (s *PostgresSource) Close() { s.pool.Close() }
