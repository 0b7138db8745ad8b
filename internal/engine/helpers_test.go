package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/timing"
)

// recorder is a test Observer that keeps everything it is told.
type recorder struct {
	transitions []edge
	faults      []*RuntimeError
}

type edge struct {
	tick     int64
	id       cell.ID
	from, to cell.Type
}

func (r *recorder) Transition(tick int64, id cell.ID, from, to cell.Type) {
	r.transitions = append(r.transitions, edge{tick, id, from, to})
}

func (r *recorder) Fault(err *RuntimeError) {
	r.faults = append(r.faults, err)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, src timing.Source, opts ...EngineOption) (*Engine, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts = append([]EngineOption{WithLogger(quietLogger()), WithObserver(rec)}, opts...)
	return New(src, opts...), rec
}

// newCell builds an initialized record with a seeded source so tests that
// script the engine's own draws are unaffected.
func newCell(id cell.ID, t cell.Type) *cell.State {
	s := &cell.State{ID: id, CellType: t, Volume: 1}
	New(timing.NewSource(int64(id)), WithLogger(quietLogger())).Init(s)
	return s
}
