package sqldb

import (
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{
		"postgres":   Postgres,
		"PostgreSQL": Postgres,
		" pg ":       Postgres,
		"mysql":      MySQL,
		"mariadb":    MySQL,
	} {
		got, err := ParseDialect(in)
		if err != nil {
			t.Fatalf("ParseDialect(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseDialect(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := ParseDialect("oracle"); err == nil {
		t.Fatal("expected error for unsupported dialect")
	}
}

func TestDataSourceName_Postgres(t *testing.T) {
	cfg := Config{
		Dialect: Postgres,
		Host:    "localhost",
		Port:    5432,
		User:    "postgres",
		Name:    "postgres",
	}
	dsn, err := cfg.DataSourceName()
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	want := "host=localhost port=5432 user=postgres dbname=postgres sslmode=disable"
	if dsn != want {
		t.Fatalf("got %q, want %q", dsn, want)
	}

	cfg.Password = "it's secret"
	cfg.SSLMode = "require"
	dsn, _ = cfg.DataSourceName()
	want = `host=localhost port=5432 user=postgres dbname=postgres password='it\'s secret' sslmode=require`
	if dsn != want {
		t.Fatalf("got %q, want %q", dsn, want)
	}

	cfg.DSN = "postgres://u@h/db"
	if dsn, _ = cfg.DataSourceName(); dsn != cfg.DSN {
		t.Fatalf("explicit dsn not honoured: %q", dsn)
	}
}

func TestDataSourceName_MySQL(t *testing.T) {
	cfg := Config{
		Dialect:  MySQL,
		Host:     "db",
		Port:     3306,
		User:     "inv",
		Password: "pw",
		Name:     "inventory",
	}
	dsn, err := cfg.DataSourceName()
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("parse rendered dsn %q: %v", dsn, err)
	}
	if parsed.Addr != "db:3306" || parsed.User != "inv" || parsed.Passwd != "pw" || parsed.DBName != "inventory" {
		t.Fatalf("unexpected config %+v", parsed)
	}
	if !parsed.ParseTime || !parsed.ClientFoundRows {
		t.Fatalf("expected parseTime and clientFoundRows, got %q", dsn)
	}

	cfg.DSN = "root:root@tcp(localhost:3306)/flash"
	dsn, err = cfg.DataSourceName()
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	parsed, _ = mysql.ParseDSN(dsn)
	if parsed.DBName != "flash" || !parsed.ClientFoundRows {
		t.Fatalf("explicit dsn not normalised: %q", dsn)
	}
}
