package postgres

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestRunMigrationsMissingSource(t *testing.T) {
	err := RunMigrations("postgres://localhost:1/db?sslmode=disable", t.TempDir()+"/missing", zerolog.Nop())
	if err == nil {
		t.Fatalf("expected error for a missing migrations directory")
	}
}

func TestRunMigrationsDownMissingSource(t *testing.T) {
	err := RunMigrationsDown("postgres://localhost:1/db?sslmode=disable", t.TempDir()+"/missing", zerolog.Nop())
	if err == nil {
		t.Fatalf("expected error for a missing migrations directory")
	}
}
