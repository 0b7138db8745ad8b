package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
)

// ErrRunNotFound is returned when a run id is not in the store.
var ErrRunNotFound = errors.New("run not found")

// ErrSnapshotNotFound is returned when a run has no snapshot at a tick.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is the summary row of one stored snapshot.
type Snapshot struct {
	Tick   int64              `json:"tick"`
	Cells  int                `json:"cells"`
	Counts [cell.NumTypes]int `json:"counts"`
	Digest string             `json:"digest"`
}

const runColumns = `id, seed, ticks, config, status, final_tick, final_digest`

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.Seed, &r.Ticks, &r.Config, &r.Status, &r.FinalTick, &r.FinalDigest)
	return r, err
}

// GetRun returns the run with the given id.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return r, nil
}

// LatestRun returns the most recently created run. UUIDv7 ids sort by
// creation time, so this is the greatest id.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+` FROM runs
		ORDER BY id COLLATE BINARY DESC
		LIMIT 1
	`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("latest run: %w", ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("latest run: %w", err)
	}
	return r, nil
}

// ListRuns returns every run ordered by id.
//
// Returns an empty slice (not nil) if the store has no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadEvents returns every event of a run ordered by sequence.
func (s *Store) ReadEvents(ctx context.Context, runID string) ([]cell.Event, error) {
	return s.queryEvents(ctx, `
		SELECT seq, tick, kind, cell_id, from_type, to_type, daughter1, daughter2, code, message
		FROM events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

// ReadCellEvents returns the events that mention a cell, either as subject
// or as a division daughter, ordered by sequence.
func (s *Store) ReadCellEvents(ctx context.Context, runID string, id cell.ID) ([]cell.Event, error) {
	return s.queryEvents(ctx, `
		SELECT seq, tick, kind, cell_id, from_type, to_type, daughter1, daughter2, code, message
		FROM events
		WHERE run_id = ? AND (cell_id = ? OR daughter1 = ? OR daughter2 = ?)
		ORDER BY seq ASC
	`, runID, int64(id), int64(id), int64(id))
}

// ParentOf returns the parent of a daughter cell. ok is false for founders
// and unknown cells.
func (s *Store) ParentOf(ctx context.Context, runID string, id cell.ID) (parent cell.ID, ok bool, err error) {
	var p int64
	err = s.db.QueryRowContext(ctx, `
		SELECT cell_id FROM events
		WHERE run_id = ? AND kind = ? AND (daughter1 = ? OR daughter2 = ?)
		ORDER BY seq ASC
		LIMIT 1
	`, runID, string(cell.EventDivision), int64(id), int64(id)).Scan(&p)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("parent of %d: %w", id, err)
	}
	return cell.ID(p), true, nil
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]cell.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []cell.Event{}
	for rows.Next() {
		var (
			ev       cell.Event
			kind     string
			id       int64
			from, to int
			d1, d2   int64
		)
		if err := rows.Scan(&ev.Seq, &ev.Tick, &kind, &id, &from, &to, &d1, &d2, &ev.Code, &ev.Message); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = cell.EventKind(kind)
		ev.CellID = cell.ID(id)
		ev.From = cell.Type(from)
		ev.To = cell.Type(to)
		ev.Daughters = [2]cell.ID{cell.ID(d1), cell.ID(d2)}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// ReadSnapshots returns a run's snapshot summaries ordered by tick.
func (s *Store) ReadSnapshots(ctx context.Context, runID string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tick, cells, counts, digest
		FROM snapshots
		WHERE run_id = ?
		ORDER BY tick ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	snaps := []Snapshot{}
	for rows.Next() {
		var (
			snap   Snapshot
			counts string
		)
		if err := rows.Scan(&snap.Tick, &snap.Cells, &counts, &snap.Digest); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.Counts, err = unmarshalCounts(counts)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}

// ReadPopulation rebuilds the population stored at a snapshot tick.
func (s *Store) ReadPopulation(ctx context.Context, runID string, tick int64) (cell.Population, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM snapshots WHERE run_id = ? AND tick = ?`, runID, tick,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("read population: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("run %s tick %d: %w", runID, tick, ErrSnapshotNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT state FROM snapshot_cells
		WHERE run_id = ? AND tick = ?
		ORDER BY cell_id ASC
	`, runID, tick)
	if err != nil {
		return nil, fmt.Errorf("query snapshot cells: %w", err)
	}
	defer rows.Close()

	pop := cell.Population{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan snapshot cell: %w", err)
		}
		st, err := unmarshalState(data)
		if err != nil {
			return nil, err
		}
		pop[st.ID] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot cells: %w", err)
	}
	return pop, nil
}
