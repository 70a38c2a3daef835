package search

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/KnotATypo/Rent-Finder/models"
	"github.com/KnotATypo/Rent-Finder/storage"
)

func TestStageLogAttribution(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.db")
	ops, err := storage.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("Failed to open ops store: %v", err)
	}

	r := &Runner{ops: ops}

	// Before a run row exists the log must stay unattributed, not point at
	// run id 0.
	run := &models.Run{UUID: "test-run", Status: models.RunStatusRunning}
	r.log(run, models.LogLevelInfo, "starting without a run row", models.StageCrawl)

	run.ID = 7
	r.log(run, models.LogLevelInfo, "crawl finished", models.StageCrawl)

	if err := ops.Close(); err != nil {
		t.Fatalf("Failed to close ops store: %v", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("Failed to reopen ops db: %v", err)
	}
	defer db.Close()

	var unattributed int
	if err := db.QueryRow(`SELECT COUNT(*) FROM logs WHERE run_id IS NULL`).Scan(&unattributed); err != nil {
		t.Fatalf("Failed to count logs: %v", err)
	}
	if unattributed != 1 {
		t.Errorf("unattributed logs = %d, want 1", unattributed)
	}

	var attributed int64
	if err := db.QueryRow(`SELECT run_id FROM logs WHERE run_id IS NOT NULL`).Scan(&attributed); err != nil {
		t.Fatalf("Failed to read attributed log: %v", err)
	}
	if attributed != 7 {
		t.Errorf("attributed run_id = %d, want 7", attributed)
	}
}
