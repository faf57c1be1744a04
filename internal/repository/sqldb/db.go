// Package sqldb implements the repositories on server databases through sqlx.
// Postgres (lib/pq) and MySQL (go-sql-driver/mysql) are supported.
package sqldb

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Dialect names a supported server database.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// ParseDialect maps a configured driver name to a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	default:
		return "", fmt.Errorf("unsupported sql dialect %q", name)
	}
}

type Config struct {
	Dialect Dialect
	// DSN takes precedence over the discrete connection fields.
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DataSourceName renders the driver specific connection string.
func (c Config) DataSourceName() (string, error) {
	switch c.Dialect {
	case Postgres:
		if c.DSN != "" {
			return c.DSN, nil
		}
		parts := []string{
			"host=" + quoteValue(c.Host),
			"port=" + strconv.Itoa(c.Port),
			"user=" + quoteValue(c.User),
			"dbname=" + quoteValue(c.Name),
		}
		if c.Password != "" {
			parts = append(parts, "password="+quoteValue(c.Password))
		}
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		parts = append(parts, "sslmode="+sslMode)
		return strings.Join(parts, " "), nil
	case MySQL:
		var mc *mysql.Config
		if c.DSN != "" {
			parsed, err := mysql.ParseDSN(c.DSN)
			if err != nil {
				return "", fmt.Errorf("parse mysql dsn: %w", err)
			}
			mc = parsed
		} else {
			mc = mysql.NewConfig()
			mc.User = c.User
			mc.Passwd = c.Password
			mc.Net = "tcp"
			mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
			mc.DBName = c.Name
		}
		mc.ParseTime = true
		// report matched rather than changed rows so no-op updates still count
		mc.ClientFoundRows = true
		return mc.FormatDSN(), nil
	default:
		return "", fmt.Errorf("unsupported sql dialect %q", c.Dialect)
	}
}

func quoteValue(v string) string {
	if v == "" || strings.ContainsAny(v, ` '\`) {
		return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
	}
	return v
}

// Open connects to the configured database and applies pool settings.
func Open(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	dsn, err := cfg.DataSourceName()
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, string(cfg.Dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Dialect, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

type store struct {
	db      *sqlx.DB
	dialect Dialect
}

func (s store) execAll(ctx context.Context, statements []string) error {
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}
