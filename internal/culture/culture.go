// Package culture is the host loop around the developmental engine.
//
// A Culture owns the live population and plays the role of the external
// engine: it ages and grows cells, evaluates the reaction-rate contracts,
// calls Engine.Update once per tick, splits flagged cells through
// Engine.Init and Engine.Divide, and streams events and snapshots to a Sink.
//
// Growth is a plain exponential volume update and the reaction contracts are
// stepped with forward Euler at dt = 1. There are no mechanics and no
// diffusion grid.
package culture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/engine"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/timing"
)

// ErrPopulationCap is returned when the cells flagged in a tick would
// divide past MaxCells. None of them is split: the population is left as it
// was after the tick's Update, with the flags still set.
var ErrPopulationCap = errors.New("population cap reached")

// Config holds the host's own settings.
type Config struct {
	// InitialVolume is the volume of founder cells.
	InitialVolume float64 `json:"initial_volume"`

	// GrowthStep scales growthRate into a per-tick relative volume increase.
	GrowthStep float64 `json:"growth_step"`

	// MaxCells caps the population size.
	MaxCells int `json:"max_cells"`

	// SnapshotEvery is the snapshot cadence in ticks. Zero disables
	// periodic snapshots; the first and last tick are always captured.
	SnapshotEvery int64 `json:"snapshot_every"`
}

// DefaultConfig returns the shipped host settings.
func DefaultConfig() Config {
	return Config{
		InitialVolume: 1.0,
		GrowthStep:    0.01,
		MaxCells:      1 << 15,
		SnapshotEvery: 10,
	}
}

// Sink receives what a culture produces. Implemented by the run store.
type Sink interface {
	WriteEvents(ctx context.Context, events []cell.Event) error
	WriteSnapshot(ctx context.Context, tick int64, pop cell.Population, digest string) error
}

// Culture is the single-writer host loop.
//
// Thread-safety: a Culture must be driven from one goroutine.
type Culture struct {
	eng    *engine.Engine
	cfg    Config
	clock  *engine.Clock
	pop    cell.Population
	nextID cell.ID
	seq    int64

	sink         Sink
	logger       *slog.Logger
	pending      []cell.Event
	lastSnapshot int64
	faulted      map[cell.ID]bool
}

// Option configures a Culture.
type Option func(*Culture)

// WithSink streams events and snapshots to s.
func WithSink(s Sink) Option {
	return func(c *Culture) {
		c.sink = s
	}
}

// WithLogger sets the logger.
//
// Default: slog.Default()
func WithLogger(l *slog.Logger) Option {
	return func(c *Culture) {
		c.logger = l
	}
}

// New creates an empty culture at tick 0.
//
// The engine is wrapped so that its transitions and faults become events.
// Options passed to build the engine must not include another observer.
func New(cfg Config, src timing.Source, params engine.Params, opts ...Option) *Culture {
	c := &Culture{
		cfg:          cfg,
		clock:        engine.NewClock(),
		pop:          cell.Population{},
		nextID:       1,
		lastSnapshot: -1,
		faulted:      map[cell.ID]bool{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.eng = engine.New(src,
		engine.WithParams(params),
		engine.WithLogger(c.logger),
		engine.WithObserver(c),
	)
	return c
}

// Tick returns the last completed tick.
func (c *Culture) Tick() int64 {
	return c.clock.Current()
}

// Population returns the live population. Callers must not mutate it.
func (c *Culture) Population() cell.Population {
	return c.pop
}

// Engine returns the wrapped engine.
func (c *Culture) Engine() *engine.Engine {
	return c.eng
}

// Spawn places a founder cell of the given stage. The record is initialized
// and then passed to mutate, if any, before it joins the population.
func (c *Culture) Spawn(t cell.Type, mutate func(*cell.State)) cell.ID {
	s := c.newCell(c.cfg.InitialVolume)
	s.CellType = t
	if mutate != nil {
		mutate(s)
	}
	s.ID = c.allocate()
	c.pop[s.ID] = s
	c.emit(cell.Event{Tick: c.Tick(), Kind: cell.EventSpawn, CellID: s.ID, To: s.CellType})
	return s.ID
}

// Start flushes spawn events and writes the initial snapshot.
func (c *Culture) Start(ctx context.Context) error {
	return c.flush(ctx, true)
}

// Step runs one tick and returns it.
func (c *Culture) Step(ctx context.Context) (int64, error) {
	tick := c.clock.Advance()

	c.advance()

	if err := c.eng.Update(c.pop, tick); err != nil {
		return tick, fmt.Errorf("tick %d: %w", tick, err)
	}

	divErr := c.divide(tick)

	snapshot := c.cfg.SnapshotEvery > 0 && tick%c.cfg.SnapshotEvery == 0
	if err := c.flush(ctx, snapshot); err != nil {
		return tick, err
	}
	return tick, divErr
}

// Result summarizes a finished run.
type Result struct {
	Ticks  int64              `json:"ticks"`
	Cells  int                `json:"cells"`
	Counts [cell.NumTypes]int `json:"counts"`
	Digest string             `json:"digest"`
}

// Run steps the culture until it has completed ticks ticks, the context is
// cancelled, or the population cap is reached. The last completed tick is
// always snapshotted, even when the run stops early.
func (c *Culture) Run(ctx context.Context, ticks int64) (Result, error) {
	var runErr error
	for c.Tick() < ticks {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		tick, err := c.Step(ctx)
		if err != nil {
			runErr = err
			switch {
			case errors.Is(err, ErrPopulationCap):
				c.logger.Info("population cap reached", "tick", tick, "cells", len(c.pop))
			case engine.IsCorruptPopulation(err):
				c.logger.Error("population rejected", "tick", tick, "error", err)
			}
			break
		}
	}

	if c.lastSnapshot != c.Tick() || len(c.pending) > 0 {
		if err := c.flush(context.WithoutCancel(ctx), true); err != nil {
			return Result{}, err
		}
	}

	digest, err := Digest(c.pop)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Ticks:  c.Tick(),
		Cells:  len(c.pop),
		Counts: c.pop.Counts(),
		Digest: digest,
	}, runErr
}

// advance ages and grows every cell and steps its local chemistry.
func (c *Culture) advance() {
	rx := c.eng.Params().Reactions
	for _, id := range c.pop.IDs() {
		s := c.pop[id]
		s.CellAge++
		s.Volume *= 1 + s.GrowthRate*c.cfg.GrowthStep

		for i, r := range rx.SpeciesRate(s.Species) {
			s.Species[i] += r
		}
		for i, r := range rx.SignalRate(s.Signals) {
			s.Signals[i] += r
		}
	}
}

// divide splits every flagged cell in ascending id order. The cap is
// checked once for the whole tick, before any cell is split.
func (c *Culture) divide(tick int64) error {
	ids := c.pop.IDs()
	flagged := 0
	for _, id := range ids {
		if c.pop[id].DivideFlag {
			flagged++
		}
	}
	if flagged == 0 {
		return nil
	}
	if c.cfg.MaxCells > 0 && len(c.pop)+flagged > c.cfg.MaxCells {
		return ErrPopulationCap
	}

	for _, id := range ids {
		parent := c.pop[id]
		if !parent.DivideFlag {
			continue
		}

		d1 := c.newCell(parent.Volume / 2)
		d2 := c.newCell(parent.Volume / 2)
		if err := c.eng.Divide(parent, d1, d2); err != nil {
			if !engine.IsUnsupportedDivisionParent(err) {
				return fmt.Errorf("divide cell %d: %w", id, err)
			}
			// Rejected: the parent stays and will be flagged again while
			// it is over its target volume.
			parent.DivideFlag = false
			continue
		}

		d1.ID, d2.ID = c.allocate(), c.allocate()
		for _, d := range []*cell.State{d1, d2} {
			d.Species = append([]float64(nil), parent.Species...)
			d.Signals = append([]float64(nil), parent.Signals...)
			c.pop[d.ID] = d
		}
		delete(c.pop, id)

		c.emit(cell.Event{
			Tick:      tick,
			Kind:      cell.EventDivision,
			CellID:    id,
			From:      parent.CellType,
			To:        parent.CellType,
			Daughters: [2]cell.ID{d1.ID, d2.ID},
		})
	}
	return nil
}

func (c *Culture) newCell(volume float64) *cell.State {
	s := &cell.State{Volume: volume}
	c.eng.Init(s)
	return s
}

func (c *Culture) allocate() cell.ID {
	id := c.nextID
	c.nextID++
	return id
}

func (c *Culture) emit(ev cell.Event) {
	c.seq++
	ev.Seq = c.seq
	c.pending = append(c.pending, ev)
}

func (c *Culture) flush(ctx context.Context, snapshot bool) error {
	events := c.pending
	c.pending = nil
	if c.sink == nil {
		return nil
	}
	if len(events) > 0 {
		if err := c.sink.WriteEvents(ctx, events); err != nil {
			return fmt.Errorf("write events: %w", err)
		}
	}
	if !snapshot {
		return nil
	}
	digest, err := Digest(c.pop)
	if err != nil {
		return err
	}
	if err := c.sink.WriteSnapshot(ctx, c.Tick(), c.pop, digest); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	c.lastSnapshot = c.Tick()
	return nil
}

// Transition implements engine.Observer.
func (c *Culture) Transition(tick int64, id cell.ID, from, to cell.Type) {
	c.emit(cell.Event{Tick: tick, Kind: cell.EventTransition, CellID: id, From: from, To: to})
}

// Fault implements engine.Observer. A dormant cell that has never divided
// hits the degenerate modulus every tick, and a cell of an undefined stage
// is skipped every tick; only the first occurrence per cell is kept.
func (c *Culture) Fault(err *engine.RuntimeError) {
	if engine.IsDegenerateModulus(err) || engine.IsUnknownCellType(err) {
		if c.faulted[err.CellID] {
			return
		}
		c.faulted[err.CellID] = true
	}
	tick := err.Tick
	if tick < 0 {
		tick = c.Tick()
	}
	c.emit(cell.Event{
		Tick:    tick,
		Kind:    cell.EventFault,
		CellID:  err.CellID,
		Code:    string(err.Code),
		Message: err.Message,
	})
}
