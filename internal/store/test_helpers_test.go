package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun inserts a run with minimal required fields.
func createTestRun(t *testing.T, s *Store, id string) {
	t.Helper()
	err := s.CreateRun(context.Background(), Run{ID: id, Seed: 1, Ticks: 100, Config: `{"seed":1}`})
	if err != nil {
		t.Fatalf("CreateRun(%q) failed: %v", id, err)
	}
}

// testPopulation builds a small population with distinct records.
func testPopulation() cell.Population {
	return cell.Population{
		1: {ID: 1, CellType: cell.RBr, Volume: 1.5, TargetVol: 2, GrowthRate: 1.02, Species: []float64{0.3}, Signals: []float64{4}},
		2: {ID: 2, CellType: cell.IB, Volume: 1.1, TargetVol: 2, Color: cell.Color{0, 0, 2.5}, Species: []float64{0}, Signals: []float64{4}},
		5: {ID: 5, CellType: cell.EB, Volume: 0.9, TargetVol: 2, Coinflip: 1, Species: []float64{0}, Signals: []float64{4}},
	}
}
