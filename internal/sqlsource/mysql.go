package sqlsource

import (
	"context"
	"database/sql"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-cli/internal/resilience"
)

const mysqlTablesQuery = `SELECT table_schema, table_name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE' AND table_schema = DATABASE()
ORDER BY table_schema, table_name`

// MySQLSource queries a MySQL database through database/sql.
type MySQLSource struct {
	db *sql.DB
}

// NewMySQL connects to the configured MySQL server.
func NewMySQL(ctx context.Context, cfg ConnectionConfig) (*MySQLSource, error) {
	conn, err := sql.Open("mysql", MySQLDSN(cfg))
	if err != nil {
		return nil, eris.Wrap(err, "sqlsource: open mysql")
	}
	conn.SetMaxOpenConns(4)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, resilience.Unavailable(eris.Wrap(err, "sqlsource: connect mysql"))
	}
	return &MySQLSource{db: conn}, nil
}

// NewMySQLFromDB wraps an open *sql.DB.
func NewMySQLFromDB(conn *sql.DB) *MySQLSource {
	return &MySQLSource{db: conn}
}

// MySQLDSN renders cfg in go-sql-driver DSN form.
func MySQLDSN(cfg ConnectionConfig) string {
	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Server, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	mc.User = cfg.Username
	if !cfg.UseWindowsAuth {
		mc.Passwd = cfg.Password
	}
	mc.Timeout = connectTimeout
	return mc.FormatDSN()
}

// Ping implements Source.
func (s *MySQLSource) Ping(ctx context.Context) (*ServerInfo, error) {
	var version string
	var database sql.NullString
	if err := s.db.QueryRowContext(ctx, "SELECT VERSION(), DATABASE()").Scan(&version, &database); err != nil {
		return nil, resilience.Unavailable(eris.Wrap(err, "sqlsource: ping mysql"))
	}
	return &ServerInfo{Version: versionLine(version), Database: database.String}, nil
}

// Query implements Source.
func (s *MySQLSource) Query(ctx context.Context, query string) (*Result, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, queryError(err, "sqlsource: query")
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "sqlsource: read columns")
	}
	res := &Result{Columns: cols, Rows: []map[string]string{}}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, queryError(err, "sqlsource: read row")
		}
		row := make(map[string]string, len(cols))
		for i, c := range cols {
			row[c] = stringify(values[i])
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err, "sqlsource: iterate rows")
	}
	return res, nil
}

// Exec implements Source.
func (s *MySQLSource) Exec(ctx context.Context, stmt string) (int64, error) {
	r, err := s.db.ExecContext(ctx, stmt)
	if err != nil {
		return 0, queryError(err, "sqlsource: exec")
	}
	n, err := r.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlsource: rows affected")
	}
	return n, nil
}

// Tables implements Source.
func (s *MySQLSource) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, mysqlTablesQuery)
	if err != nil {
		return nil, queryError(err, "sqlsource: list tables")
	}
	defer rows.Close() //nolint:errcheck

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
func (s *MySQLSource) Close() { _ = s.db.Close() }
