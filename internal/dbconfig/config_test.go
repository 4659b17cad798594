package dbconfig

import (
	"strings"
	"testing"
)

func TestResolvePrecedence(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("DB_NAME", "")
	t.Setenv("DB_SSLMODE", "")

	cfg := Config{Host: "file-host", Port: 5433, Database: "filedb"}.Resolve()

	if cfg.Host != "db.internal" {
		t.Fatalf("expected env to win over file, got %q", cfg.Host)
	}
	if cfg.Port != 5433 {
		t.Fatalf("expected file value kept without env, got %d", cfg.Port)
	}
	if cfg.Database != "filedb" {
		t.Fatalf("expected file database kept, got %q", cfg.Database)
	}
	if cfg.User != "postgres" || cfg.SSLMode != "disable" {
		t.Fatalf("expected defaults for unset fields, got user=%q sslmode=%q", cfg.User, cfg.SSLMode)
	}
}

func TestDSNPrefersDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@elsewhere:5432/other")

	cfg := Config{Host: "ignored"}.Resolve()
	if got := cfg.DSN(); got != "postgres://u:p@elsewhere:5432/other" {
		t.Fatalf("expected DATABASE_URL to win, got %q", got)
	}
}

func TestRedactedMasksPassword(t *testing.T) {
	t.Setenv("DB_PASSWORD", "")

	cfg := Config{Password: "hunter2"}.Resolve()
	redacted := cfg.Redacted()
	if strings.Contains(redacted, "hunter2") {
		t.Fatalf("password leaked into %q", redacted)
	}
	if !strings.Contains(redacted, "***") {
		t.Fatalf("expected masked password in %q", redacted)
	}
}
