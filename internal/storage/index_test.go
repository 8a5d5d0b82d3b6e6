package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/popsim/internal/models"
	"github.com/san-kum/popsim/internal/sim"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := OpenIndex(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func testMetadata(label string, at time.Time, eq *models.Equilibrium) RunMetadata {
	return RunMetadata{
		ID:           uuid.NewString(),
		Label:        label,
		Timestamp:    at,
		Integrator:   "rk45",
		Coefficients: models.DefaultCoefficients(),
		Equilibrium:  eq,
		Stability:    "stable focus",
		Stats:        sim.Stats{Steps: 40, Rejected: 5, Evals: 300},
		Elapsed:      3 * time.Millisecond,
	}
}

func TestIndexRoundTrip(t *testing.T) {
	ix := openTestIndex(t)

	eq, err := models.Predict(models.DefaultCoefficients())
	if err != nil {
		t.Fatal(err)
	}
	meta := testMetadata("classroom", time.Now().UTC(), &eq)

	if err := ix.Record(meta); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	entry, err := ix.Get(meta.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if entry.Label != "classroom" || entry.Integrator != "rk45" || entry.BD1 != 3.5 {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if !entry.HasEquilibrium() || entry.X1Star.Float64 != eq.X1 || !entry.Feasible {
		t.Errorf("equilibrium not stored: %+v", entry)
	}
	if entry.Steps != 40 || entry.Rejected != 5 {
		t.Errorf("stats not stored: %+v", entry)
	}
	if !entry.Time().Equal(meta.Timestamp) {
		t.Errorf("time = %v, want %v", entry.Time(), meta.Timestamp)
	}
}

func TestIndexNoEquilibrium(t *testing.T) {
	ix := openTestIndex(t)
	meta := testMetadata("singular", time.Now(), nil)

	if err := ix.Record(meta); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	entry, err := ix.Get(meta.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if entry.HasEquilibrium() || entry.Feasible {
		t.Errorf("expected no equilibrium, got %+v", entry)
	}
}

func TestIndexRecentAndRemove(t *testing.T) {
	ix := openTestIndex(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 5; i++ {
		meta := testMetadata("run", base.Add(time.Duration(i)*time.Minute), nil)
		ids = append(ids, meta.ID)
		if err := ix.Record(meta); err != nil {
			t.Fatalf("record %d failed: %v", i, err)
		}
	}

	recent, err := ix.Recent(3)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(recent))
	}
	if recent[0].ID != ids[4] || recent[2].ID != ids[2] {
		t.Errorf("expected newest first")
	}

	if err := ix.Remove(ids[4]); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := ix.Get(ids[4]); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if err := ix.Remove(ids[4]); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound on second remove, got %v", err)
	}

	n, err := ix.Count()
	if err != nil || n != 4 {
		t.Errorf("count = %d, %v; want 4", n, err)
	}
}

func TestIndexRecordReplaces(t *testing.T) {
	ix := openTestIndex(t)
	meta := testMetadata("before", time.Now(), nil)
	if err := ix.Record(meta); err != nil {
		t.Fatal(err)
	}
	meta.Label = "after"
	if err := ix.Record(meta); err != nil {
		t.Fatal(err)
	}

	entry, err := ix.Get(meta.ID)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Label != "after" {
		t.Errorf("expected replaced label, got %q", entry.Label)
	}
	if n, _ := ix.Count(); n != 1 {
		t.Errorf("expected 1 row, got %d", n)
	}
}
