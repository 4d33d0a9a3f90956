package pipeline

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestPostgresRow_KeyedByPosition(t *testing.T) {
	results := []Result{
		{UID: "1.2.3", Success: true, Masks: []MaskOutcome{{Path: "m1.png", Status: MaskApplied}}},
		{UID: "1.2.3", Error: "image not found"},
		{UID: ""},
	}

	seen := make(map[int]bool)
	for i, r := range results {
		row := postgresRow("run-1", i, r)
		if len(row) != 9 {
			t.Fatalf("row %d: got %d args, want 9", i, len(row))
		}
		if row[0] != "run-1" {
			t.Errorf("row %d run id: got %v", i, row[0])
		}
		idx := row[1].(int)
		if seen[idx] {
			t.Errorf("duplicate key index %d", idx)
		}
		seen[idx] = true
	}

	if uid := postgresRow("run-1", 2, results[2])[2]; uid != "N/A" {
		t.Errorf("empty uid: got %v, want N/A", uid)
	}
	if errText := postgresRow("run-1", 1, results[1])[4].(sql.NullString); !errText.Valid || errText.String != "image not found" {
		t.Errorf("error column: got %+v", errText)
	}
}

// TestPostgresSink runs against a real database when MASS_TOOLS_TEST_DSN is set.
func TestPostgresSink(t *testing.T) {
	dsn := os.Getenv("MASS_TOOLS_TEST_DSN")
	if dsn == "" {
		t.Skip("MASS_TOOLS_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sink, err := OpenPostgresSink(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenPostgresSink: %v", err)
	}
	defer sink.Close()

	runID := uuid.New().String()
	results := []Result{
		{UID: "1.2.3", Success: true, Masks: []MaskOutcome{{Path: "m1.png", Status: MaskApplied}}},
		{UID: "4.5.6", Error: "image not found"},
		{UID: "1.2.3", Success: true},
		{UID: ""},
		{UID: ""},
	}

	if err := sink.Write(ctx, runID, results); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// A second write upserts instead of duplicating.
	if err := sink.Write(ctx, runID, results); err != nil {
		t.Fatalf("second Write: %v", err)
	}

	total, ok, err := sink.CountRun(ctx, runID)
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 || ok != 2 {
		t.Errorf("rows: total %d succeeded %d", total, ok)
	}
}
