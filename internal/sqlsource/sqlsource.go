// Package sqlsource runs caller-supplied queries against an external SQL
// database so their rows can feed a batch.
package sqlsource

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/risk-cli/internal/resilience"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

const connectTimeout = 5 * time.Second

// ConnectionConfig describes how to reach the source database. With
// UseWindowsAuth the server authenticates the connection itself (peer,
// trust or pgpass) and no password is sent.
type ConnectionConfig struct {
	Driver         string `json:"driver,omitempty" mapstructure:"driver"`
	Server         string `json:"server" mapstructure:"server"`
	Port           int    `json:"port,omitempty" mapstructure:"port"`
	Database       string `json:"database" mapstructure:"database"`
	Username       string `json:"username,omitempty" mapstructure:"username"`
	Password       string `json:"password,omitempty" mapstructure:"password"`
	UseWindowsAuth bool   `json:"use_windows_auth" mapstructure:"use_windows_auth"`
}

// WithDefaults fills the driver and port.
func (c ConnectionConfig) WithDefaults(defaultDriver string, defaultPort int) ConnectionConfig {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	if c.Driver == "" {
		c.Driver = defaultDriver
	}
	if c.Driver == "postgresql" {
		c.Driver = DriverPostgres
	}
	if c.Port == 0 {
		switch {
		case defaultPort > 0 && c.Driver == defaultDriver:
			c.Port = defaultPort
		case c.Driver == DriverMySQL:
			c.Port = 3306
		default:
			c.Port = 5432
		}
	}
	return c
}

// Validate checks the config. Problems are bad requests.
func (c ConnectionConfig) Validate() error {
	var problems []string
	switch c.Driver {
	case DriverPostgres, DriverMySQL:
	default:
		problems = append(problems, fmt.Sprintf("unsupported driver %q", c.Driver))
	}
	if strings.TrimSpace(c.Server) == "" {
		problems = append(problems, "server is required")
	}
	if strings.TrimSpace(c.Database) == "" {
		problems = append(problems, "database is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", c.Port))
	}
	if !c.UseWindowsAuth && (c.Username == "" || c.Password == "") {
		problems = append(problems, "username and password are required for SQL authentication")
	}
	if len(problems) > 0 {
		return resilience.BadRequest(eris.Errorf("sqlsource: %s", strings.Join(problems, "; ")))
	}
	return nil
}

// ServerInfo is returned by a successful connection test.
type ServerInfo struct {
	Version  string `json:"server_version"`
	Database string `json:"database"`
}

// Result is a query result with every value rendered as a string. Columns
// keeps the server's column order.
type Result struct {
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"data"`
}

// Source is an open connection to a source database.
type Source interface {
	// Ping verifies the connection and reports the server version.
	Ping(ctx context.Context) (*ServerInfo, error)
	// Query runs a row-returning statement.
	Query(ctx context.Context, query string) (*Result, error)
	// Exec runs a statement that returns no rows and reports rows affected.
	Exec(ctx context.Context, stmt string) (int64, error)
	// Tables lists base tables as "schema.table".
	Tables(ctx context.Context) ([]string, error)
	Close()
}

// Open validates cfg and connects.
func Open(ctx context.Context, cfg ConnectionConfig) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Driver == DriverMySQL {
		src, err := NewMySQL(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	src, err := NewPostgres(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return src, nil
}

var rowStatements = map[string]bool{
	"select": true, "with": true, "show": true, "values": true,
	"table": true, "explain": true, "describe": true, "desc": true,
}

// ReturnsRows reports whether stmt is a row-returning statement, judged by
// its first keyword.
func ReturnsRows(stmt string) bool {
	s := strings.TrimLeft(strings.TrimSpace(stmt), "(")
	for strings.HasPrefix(s, "--") {
		_, rest, _ := strings.Cut(s, "\n")
		s = strings.TrimSpace(rest)
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return false
	}
	return rowStatements[strings.ToLower(strings.TrimRight(fields[0], ";"))]
}

// queryError tags a statement failure: transient failures are unavailable,
// everything else is the caller's query.
func queryError(err error, msg string) error {
	wrapped := eris.Wrap(err, msg)
	if resilience.IsTransient(err) {
		return resilience.Unavailable(wrapped)
	}
	return resilience.BadRequest(wrapped)
}

// stringify renders a driver value the way it is reported to callers.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case [16]byte:
		return uuid.UUID(t).String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case driver.Valuer:
		dv, err := t.Value()
		if err != nil {
			return fmt.Sprint(v)
		}
		if _, again := dv.(driver.Valuer); again {
			return fmt.Sprint(dv)
		}
		return stringify(dv)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

func versionLine(v string) string {
	for _, sep := range []string{" - ", " on ", ","} {
		if head, _, ok := strings.Cut(v, sep); ok {
			return strings.TrimSpace(head)
		}
	}
	return strings.TrimSpace(v)
}
