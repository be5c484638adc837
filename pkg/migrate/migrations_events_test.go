package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/migrate"
)

func TestFunnelEventsMigrationContainsSchema(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_funnel_events.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no funnel events migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS funnel_events",
		"session_id TEXT NOT NULL",
		"event_name TEXT NOT NULL",
		"idx_funnel_events_session_id",
		"DROP TABLE IF EXISTS funnel_events",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationFilenamesValidate(t *testing.T) {
	// cmd/migrate runs the same validation before applying anything.
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir invalid: %v", err)
	}
}
