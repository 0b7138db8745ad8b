package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/config"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/culture"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/store"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/timing"
)

// Harness is the scenario execution engine.
// It runs scenarios against an isolated store with fixed run ids.
type Harness struct {
	store  *store.Store
	runs   culture.RunIDGenerator
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Resolve the scenario's configuration
// 2. Create fresh in-memory database and run record
// 3. Place founder cells and run the culture
// 4. Read the run back from the store
// 5. Evaluate assertions and return result with pass/fail and errors
//
// The returned error is for scenarios that could not be executed at all;
// failed assertions are reported in the Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	cfg, err := config.Parse([]byte(scenario.Config), scenario.Name+".cue")
	if err != nil {
		return nil, fmt.Errorf("scenario config: %w", err)
	}
	cfg.Seed = scenario.Seed
	cfg.Ticks = scenario.Ticks

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		runs:   culture.NewFixedGenerator("scenario-" + scenario.Name),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return h.run(ctx, scenario, cfg)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario, cfg *config.Config) (*Result, error) {
	runID := h.runs.Generate()
	cfgJSON, err := cfg.JSON()
	if err != nil {
		return nil, err
	}
	err = h.store.CreateRun(ctx, store.Run{
		ID:     runID,
		Seed:   cfg.Seed,
		Ticks:  cfg.Ticks,
		Config: string(cfgJSON),
	})
	if err != nil {
		return nil, err
	}

	c := culture.New(cfg.Culture(), timing.NewSource(cfg.Seed), cfg.Params(),
		culture.WithSink(h.store.Sink(runID)),
		culture.WithLogger(h.logger),
	)
	if len(scenario.Cells) > 0 {
		placeCells(c, scenario.Cells)
	} else if err := cfg.Populate(c); err != nil {
		return nil, err
	}

	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("start culture: %w", err)
	}
	res, runErr := c.Run(ctx, cfg.Ticks)
	status := store.StatusComplete
	switch {
	case errors.Is(runErr, culture.ErrPopulationCap):
		status = store.StatusCapped
	case runErr != nil:
		return nil, fmt.Errorf("run culture: %w", runErr)
	}
	if err := h.store.FinishRun(ctx, runID, status, res.Ticks, res.Digest); err != nil {
		return nil, err
	}

	events, err := h.store.ReadEvents(ctx, runID)
	if err != nil {
		return nil, err
	}
	pop, err := h.store.ReadPopulation(ctx, runID, res.Ticks)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	result.Ticks = res.Ticks
	result.Counts = res.Counts
	result.Digest = res.Digest
	result.Events = events

	actx := &AssertionContext{
		Population: pop,
		Events:     events,
	}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}

	h.logger.Debug("scenario finished",
		"scenario", scenario.Name,
		"run_id", runID,
		"pass", result.Pass,
		"cells", res.Cells)
	return result, nil
}

// placeCells spawns the listed founders in order.
func placeCells(c *culture.Culture, cells []CellSpec) {
	for _, spec := range cells {
		t, _ := cell.ParseType(spec.Type)
		n := spec.Count
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			c.Spawn(t, spec.apply)
		}
	}
}
