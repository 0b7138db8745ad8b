package engine

import (
	"context"
	"log/slog"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/timing"
)

// Observer receives the engine's per-cell outcomes.
// Implemented by the culture host, which turns them into run events.
type Observer interface {
	// Transition is called for every stage change, in the order they happen.
	Transition(tick int64, id cell.ID, from, to cell.Type)

	// Fault is called for every per-cell fault that did not abort the pass.
	Fault(err *RuntimeError)
}

// Engine applies the developmental rules to cell records.
//
// Thread-safety model:
//   - Init, Update and Divide all consume the shared random source and
//     must be called from one goroutine (the host loop)
//   - The engine holds no population state between calls
type Engine struct {
	params   Params
	src      timing.Source
	logger   *slog.Logger
	observer Observer
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithParams replaces the default parameters.
func WithParams(p Params) EngineOption {
	return func(e *Engine) {
		e.params = p
	}
}

// WithLogger sets the logger used for fault diagnostics.
//
// Default: slog.Default()
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithObserver registers the receiver of transitions and faults.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		e.observer = o
	}
}

// New creates an Engine drawing randomness from src.
//
// All draws of a run must come from the one src passed here so the run is
// reproducible from its seed.
func New(src timing.Source, opts ...EngineOption) *Engine {
	e := &Engine{
		params: DefaultParams(),
		src:    src,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Params returns the engine's parameters.
func (e *Engine) Params() Params {
	return e.params
}

func (e *Engine) transition(s *cell.State, to cell.Type, tick int64) {
	from := s.CellType
	s.CellType = to
	e.logger.Debug("cell transition", "cell_id", s.ID, "from", from, "to", to, "tick", tick)
	if e.observer != nil {
		e.observer.Transition(tick, s.ID, from, to)
	}
}

func (e *Engine) fault(err *RuntimeError, level slog.Level) {
	e.logger.Log(context.Background(), level, "cell fault",
		"code", err.Code,
		"cell_id", err.CellID,
		"tick", err.Tick,
		"error", err.Message,
	)
	if e.observer != nil {
		e.observer.Fault(err)
	}
}
