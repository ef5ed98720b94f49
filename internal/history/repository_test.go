package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/sensaur/sensaur-hub/migrations"

	"github.com/sensaur/sensaur-hub/internal/hub"
	"github.com/sensaur/sensaur-hub/internal/infrastructure/database"
)

// testRepo opens a fresh migrated database in a temp dir.
func testRepo(t *testing.T) *Repository {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return NewRepository(db.DB)
}

// =============================================================================
// Record and GetReadings Tests
// =============================================================================

func TestRecordAndGetReadings(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	readings := []Reading{
		{DeviceID: "devA", Component: "temp", Type: "temp", Units: "C", Value: "21.5"},
		{DeviceID: "devA", Component: "temp", Type: "temp", Units: "C", Value: "22.0"},
		{DeviceID: "devB", Component: "hum", Type: "hum", Value: "61"},
	}
	for _, r := range readings {
		if err := repo.Record(ctx, r); err != nil {
			t.Fatalf("Record(%+v) error = %v", r, err)
		}
	}

	got, err := repo.GetReadings(ctx, "temp", 0)
	if err != nil {
		t.Fatalf("GetReadings() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetReadings(temp) returned %d readings, want 2", len(got))
	}
	for _, r := range got {
		if r.Component != "temp" || r.DeviceID != "devA" || r.Units != "C" {
			t.Errorf("reading = %+v", r)
		}
		if r.ID == 0 {
			t.Error("ID not assigned")
		}
		if r.CreatedAt.IsZero() {
			t.Error("CreatedAt not assigned")
		}
	}

	got, err = repo.GetReadings(ctx, "hum", 0)
	if err != nil {
		t.Fatalf("GetReadings() error = %v", err)
	}
	if len(got) != 1 || got[0].Value != "61" {
		t.Errorf("GetReadings(hum) = %+v, want one reading of 61", got)
	}
}

func TestGetReadingsLimit(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := repo.Record(ctx, Reading{DeviceID: "devA", Component: "temp", Type: "temp", Value: "1"}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := repo.GetReadings(ctx, "temp", 3)
	if err != nil {
		t.Fatalf("GetReadings() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("GetReadings(limit=3) returned %d readings", len(got))
	}
}

func TestGetReadingsUnknownComponent(t *testing.T) {
	repo := testRepo(t)

	got, err := repo.GetReadings(context.Background(), "nothing", 0)
	if err != nil {
		t.Fatalf("GetReadings() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("GetReadings(nothing) = %+v, want empty", got)
	}
}

func TestRecordRequiresComponent(t *testing.T) {
	repo := testRepo(t)

	if err := repo.Record(context.Background(), Reading{DeviceID: "devA", Value: "1"}); err == nil {
		t.Error("Record() expected error for missing component")
	}
}

// =============================================================================
// Prune Tests
// =============================================================================

func TestPrune(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	if err := repo.Record(ctx, Reading{DeviceID: "devA", Component: "temp", Type: "temp", Value: "1"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	// Fresh rows survive a generous retention window.
	deleted, err := repo.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("Prune(24h) deleted %d, want 0", deleted)
	}

	// Backdate the row, then prune it.
	if _, err := repo.db.ExecContext(ctx,
		"UPDATE readings SET created_at = ?",
		time.Now().UTC().Add(-48*time.Hour).Format(time.RFC3339)); err != nil {
		t.Fatalf("backdating reading: %v", err)
	}
	deleted, err = repo.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("Prune(24h) deleted %d, want 1", deleted)
	}

	if _, err := repo.Prune(ctx, 0); err == nil {
		t.Error("Prune(0) expected error")
	}
}

func TestPruneKeepsRowsInsideCutoffSecond(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	if err := repo.Record(ctx, Reading{DeviceID: "devA", Component: "temp", Type: "temp", Value: "1"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	// A row a few hundred milliseconds younger than the cutoff must
	// survive; created_at carries fractional seconds and compares
	// lexically against the cutoff.
	retention := 24 * time.Hour
	inside := time.Now().UTC().Add(-retention + 500*time.Millisecond)
	if _, err := repo.db.ExecContext(ctx,
		"UPDATE readings SET created_at = ?",
		inside.Format(createdAtLayout)); err != nil {
		t.Fatalf("backdating reading: %v", err)
	}

	deleted, err := repo.Prune(ctx, retention)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("Prune() deleted %d rows inside the retention window, want 0", deleted)
	}

	// Push it just past the cutoff and it goes.
	outside := time.Now().UTC().Add(-retention - time.Second)
	if _, err := repo.db.ExecContext(ctx,
		"UPDATE readings SET created_at = ?",
		outside.Format(createdAtLayout)); err != nil {
		t.Fatalf("backdating reading: %v", err)
	}
	deleted, err = repo.Prune(ctx, retention)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("Prune() deleted %d, want 1", deleted)
	}
}

// =============================================================================
// Recorder Tests
// =============================================================================

func TestRecorderHandleReading(t *testing.T) {
	repo := testRepo(t)
	rec := NewRecorder(repo, 0, noopLog{})

	d := &hub.Device{Index: 0, ID: "devA"}
	c := &hub.Component{Device: d, Name: "temp", Type: "temp", Units: "C"}
	rec.HandleReading(c, "19.5")

	got, err := repo.GetReadings(context.Background(), "temp", 0)
	if err != nil {
		t.Fatalf("GetReadings() error = %v", err)
	}
	if len(got) != 1 || got[0].Value != "19.5" || got[0].DeviceID != "devA" {
		t.Errorf("stored readings = %+v", got)
	}
}

func TestRecorderStartStopWithoutRetention(t *testing.T) {
	repo := testRepo(t)
	rec := NewRecorder(repo, 0, noopLog{})

	rec.Start(context.Background())
	rec.Stop()
	rec.Stop() // idempotent
}

type noopLog struct{}

func (noopLog) Warn(string, ...any) {}
func (noopLog) Info(string, ...any) {}
