package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusComplete  = "complete"
	StatusCapped    = "capped"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// Run is one stored simulation.
type Run struct {
	ID          string `json:"id"`
	Seed        int64  `json:"seed"`
	Ticks       int64  `json:"ticks"`
	Config      string `json:"config"`
	Status      string `json:"status"`
	FinalTick   int64  `json:"final_tick"`
	FinalDigest string `json:"final_digest"`
}

// CreateRun inserts a new run in the running state.
// A duplicate id is an error: run ids are never reused.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, seed, ticks, config, status)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Seed, run.Ticks, run.Config, StatusRunning)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FinishRun records how a run ended.
func (s *Store) FinishRun(ctx context.Context, id, status string, finalTick int64, digest string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, final_tick = ?, final_digest = ?
		WHERE id = ?
	`, status, finalTick, digest, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// RunSink writes one run's events and snapshots.
// It satisfies culture.Sink.
type RunSink struct {
	store *Store
	runID string
}

// Sink returns a RunSink bound to runID. The run must already exist.
func (s *Store) Sink(runID string) *RunSink {
	return &RunSink{store: s, runID: runID}
}

// WriteEvents inserts a batch of events in one transaction.
// Re-writing an event with an existing sequence number is ignored.
func (w *RunSink) WriteEvents(ctx context.Context, events []cell.Event) error {
	return w.store.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO events
			(run_id, seq, tick, kind, cell_id, from_type, to_type, daughter1, daughter2, code, message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, seq) DO NOTHING
		`)
		if err != nil {
			return fmt.Errorf("prepare events: %w", err)
		}
		defer stmt.Close()

		for _, ev := range events {
			_, err := stmt.ExecContext(ctx,
				w.runID,
				ev.Seq,
				ev.Tick,
				string(ev.Kind),
				int64(ev.CellID),
				int(ev.From),
				int(ev.To),
				int64(ev.Daughters[0]),
				int64(ev.Daughters[1]),
				ev.Code,
				ev.Message,
			)
			if err != nil {
				return fmt.Errorf("write event %d: %w", ev.Seq, err)
			}
		}
		return nil
	})
}

// WriteSnapshot stores the population at tick together with its digest.
// Cells are written in ascending id order.
func (w *RunSink) WriteSnapshot(ctx context.Context, tick int64, pop cell.Population, digest string) error {
	counts, err := marshalCounts(pop.Counts())
	if err != nil {
		return err
	}

	return w.store.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshots (run_id, tick, cells, counts, digest)
			VALUES (?, ?, ?, ?, ?)
		`, w.runID, tick, len(pop), counts, digest)
		if err != nil {
			return fmt.Errorf("write snapshot %d: %w", tick, err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO snapshot_cells (run_id, tick, cell_id, cell_type, state)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare snapshot cells: %w", err)
		}
		defer stmt.Close()

		for _, id := range pop.IDs() {
			s := pop[id]
			state, err := marshalState(s)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, w.runID, tick, int64(id), int(s.CellType), state); err != nil {
				return fmt.Errorf("write snapshot %d cell %d: %w", tick, id, err)
			}
		}
		return nil
	})
}
