package db

import (
	"strings"
	"testing"
)

func TestLoadMigrations_SortedAndParsed(t *testing.T) {
	migrations, err := LoadMigrations()
	if err != nil {
		t.Fatalf("load migrations: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected at least one embedded migration")
	}
	if migrations[0].Version != 1 || migrations[0].Name != "001_init" {
		t.Fatalf("unexpected first migration %+v", migrations[0])
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version <= migrations[i-1].Version {
			t.Fatalf("migrations not strictly ordered: %d after %d", migrations[i].Version, migrations[i-1].Version)
		}
	}
}

func TestInitMigration_DeclaresSchedulingConstraints(t *testing.T) {
	migrations, err := LoadMigrations()
	if err != nil {
		t.Fatalf("load migrations: %v", err)
	}
	sql := migrations[0].SQL

	for _, want := range []string{
		"appointments_doctor_time_scheduled_uidx",
		"WHERE status = 'SCHEDULED'",
		"UNIQUE (doctor_id, available_time)",
		"ON DELETE CASCADE",
	} {
		if !strings.Contains(sql, want) {
			t.Fatalf("init migration missing %q", want)
		}
	}
}
