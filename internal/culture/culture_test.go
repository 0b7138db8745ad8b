package culture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/engine"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/timing"
)

// memSink keeps everything a culture writes.
type memSink struct {
	events    []cell.Event
	snapshots []int64
	digests   map[int64]string
	sizes     map[int64]int
}

func newMemSink() *memSink {
	return &memSink{digests: map[int64]string{}, sizes: map[int64]int{}}
}

func (m *memSink) WriteEvents(_ context.Context, events []cell.Event) error {
	m.events = append(m.events, events...)
	return nil
}

func (m *memSink) WriteSnapshot(_ context.Context, tick int64, pop cell.Population, digest string) error {
	m.snapshots = append(m.snapshots, tick)
	m.digests[tick] = digest
	m.sizes[tick] = len(pop)
	return nil
}

var allowedEdges = map[[2]cell.Type]bool{
	{cell.Germinating, cell.RBr}: true,
	{cell.RBr, cell.RBe}:         true,
	{cell.RBe, cell.IB}:          true,
	{cell.IB, cell.PreEB}:        true,
	{cell.PreEB, cell.EB}:        true,
	{cell.RBr, cell.Dormant}:     true,
	{cell.RBe, cell.Dormant}:     true,
	{cell.Dormant, cell.IB}:      true,
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCulture(t *testing.T, seed int64, cfg Config, params engine.Params) (*Culture, *memSink) {
	t.Helper()
	sink := newMemSink()
	c := New(cfg, timing.NewSource(seed), params, WithSink(sink), WithLogger(quiet()))
	return c, sink
}

func TestCulture_FullCycle(t *testing.T) {
	c, sink := newTestCulture(t, 1, DefaultConfig(), engine.DefaultParams())
	c.Spawn(cell.Germinating, nil)
	require.NoError(t, c.Start(context.Background()))

	res, err := c.Run(context.Background(), 600)
	require.NoError(t, err)

	assert.Equal(t, int64(600), res.Ticks)
	assert.Equal(t, len(c.Population()), res.Cells)
	total := 0
	for _, n := range res.Counts {
		total += n
	}
	assert.Equal(t, res.Cells, total)

	digest, err := Digest(c.Population())
	require.NoError(t, err)
	assert.Equal(t, digest, res.Digest)

	assert.Equal(t, int64(0), sink.snapshots[0])
	assert.Equal(t, int64(600), sink.snapshots[len(sink.snapshots)-1])
	assert.Len(t, sink.snapshots, 61)

	var divisions int
	for _, ev := range sink.events {
		switch ev.Kind {
		case cell.EventTransition:
			assert.True(t, allowedEdges[[2]cell.Type{ev.From, ev.To}], "edge %s->%s", ev.From, ev.To)
		case cell.EventDivision:
			divisions++
		}
	}
	assert.Greater(t, divisions, 0)

	for _, s := range c.Population() {
		assert.True(t, s.CellType.Valid())
	}
}

func TestCulture_SeedDeterminism(t *testing.T) {
	run := func(seed int64) (Result, *memSink) {
		c, sink := newTestCulture(t, seed, DefaultConfig(), engine.DefaultParams())
		c.Spawn(cell.Germinating, nil)
		c.Spawn(cell.Germinating, nil)
		require.NoError(t, c.Start(context.Background()))
		res, err := c.Run(context.Background(), 300)
		require.NoError(t, err)
		return res, sink
	}

	a, sinkA := run(9)
	b, sinkB := run(9)
	assert.Equal(t, a, b)
	assert.Empty(t, cmp.Diff(sinkA.events, sinkB.events))
	assert.Equal(t, sinkA.digests, sinkB.digests)

	other, _ := run(10)
	assert.NotEqual(t, a.Digest, other.Digest)
}

func TestCulture_EventSeqMonotonic(t *testing.T) {
	c, sink := newTestCulture(t, 4, DefaultConfig(), engine.DefaultParams())
	c.Spawn(cell.Germinating, nil)
	require.NoError(t, c.Start(context.Background()))
	_, err := c.Run(context.Background(), 250)
	require.NoError(t, err)

	for i := 1; i < len(sink.events); i++ {
		require.Equal(t, sink.events[i-1].Seq+1, sink.events[i].Seq)
		require.LessOrEqual(t, sink.events[i-1].Tick, sink.events[i].Tick)
	}
}

func TestCulture_DivisionReplacesParent(t *testing.T) {
	c, sink := newTestCulture(t, 2, DefaultConfig(), engine.DefaultParams())
	parentID := c.Spawn(cell.RBr, func(s *cell.State) {
		s.Volume = 2.5
		s.GrowthRate = 1
		s.ParentGrowth = 1
		s.GeneAmt[cell.Euo] = 8
		s.Species = []float64{1}
	})

	tick, err := c.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), tick)

	pop := c.Population()
	require.Len(t, pop, 2)
	_, ok := pop[parentID]
	assert.False(t, ok)

	d1, d2 := pop[2], pop[3]
	require.NotNil(t, d1)
	require.NotNil(t, d2)

	// Daughters are not stepped in the tick they are created.
	assert.Equal(t, int64(0), d1.CellAge)
	assert.Equal(t, d1.GeneAmt[cell.Euo], d2.GeneAmt[cell.Euo])
	assert.InDelta(t, 2.5*1.01/2, d1.Volume, 1e-12)
	assert.Equal(t, cell.RBr, d1.CellType)
	assert.Equal(t, 1.0, d1.ParentGrowth)
	assert.InDelta(t, 0.7, d1.Species[0], 1e-12)

	var div *cell.Event
	for i := range sink.events {
		if sink.events[i].Kind == cell.EventDivision {
			div = &sink.events[i]
		}
	}
	require.NotNil(t, div)
	assert.Equal(t, parentID, div.CellID)
	assert.Equal(t, [2]cell.ID{2, 3}, div.Daughters)
}

func TestCulture_AdvanceStepsChemistry(t *testing.T) {
	c, _ := newTestCulture(t, 3, DefaultConfig(), engine.DefaultParams())
	id := c.Spawn(cell.Germinating, func(s *cell.State) {
		s.Species = []float64{1}
	})

	g := c.Population()[id].GrowthRate

	_, err := c.Step(context.Background())
	require.NoError(t, err)

	s := c.Population()[id]
	assert.InDelta(t, 0.7, s.Species[0], 1e-12)
	assert.Equal(t, 1.0, s.Signals[0])
	assert.Equal(t, int64(1), s.CellAge)
	assert.InDelta(t, 1+g*0.01, s.Volume, 1e-12)

	// Germination zeroes the growth rate, so the volume holds from here on.
	_, err = c.Step(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1+g*0.01, s.Volume, 1e-12)
	assert.InDelta(t, 0.49, s.Species[0], 1e-12)
}

func TestCulture_PopulationCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxCells = 2
	c, sink := newTestCulture(t, 5, cfg, engine.DefaultParams())
	for i := 0; i < 2; i++ {
		c.Spawn(cell.RBr, func(s *cell.State) {
			s.Volume = 3
			s.ParentGrowth = 1
		})
	}

	res, err := c.Run(context.Background(), 50)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPopulationCap))
	assert.Equal(t, int64(1), res.Ticks)
	assert.Equal(t, 2, res.Cells)
	assert.Contains(t, sink.snapshots, int64(1))
}

func TestCulture_PopulationCapSplitsNothing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxCells = 4
	c, sink := newTestCulture(t, 5, cfg, engine.DefaultParams())
	for i := 0; i < 3; i++ {
		c.Spawn(cell.RBr, func(s *cell.State) {
			s.Volume = 3
			s.ParentGrowth = 1
		})
	}

	_, err := c.Step(context.Background())
	require.ErrorIs(t, err, ErrPopulationCap)

	pop := c.Population()
	require.Len(t, pop, 3)
	for _, id := range pop.IDs() {
		assert.True(t, pop[id].DivideFlag, "cell %d", id)
	}
	for _, ev := range sink.events {
		assert.NotEqual(t, cell.EventDivision, ev.Kind)
	}
}

func TestCulture_PopulationCapExactFit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxCells = 6
	c, _ := newTestCulture(t, 5, cfg, engine.DefaultParams())
	for i := 0; i < 3; i++ {
		c.Spawn(cell.RBr, func(s *cell.State) {
			s.Volume = 3
			s.ParentGrowth = 1
		})
	}

	_, err := c.Step(context.Background())
	require.NoError(t, err)
	assert.Len(t, c.Population(), 6)
}

func TestCulture_UnknownStageFaultsOnce(t *testing.T) {
	c, sink := newTestCulture(t, 8, DefaultConfig(), engine.DefaultParams())
	id := c.Spawn(cell.Type(9), nil)

	for i := 0; i < 5; i++ {
		_, err := c.Step(context.Background())
		require.NoError(t, err)
	}

	var faults []cell.Event
	for _, ev := range sink.events {
		if ev.Kind == cell.EventFault {
			faults = append(faults, ev)
		}
	}
	require.Len(t, faults, 1)
	assert.Equal(t, id, faults[0].CellID)
	assert.Equal(t, string(engine.ErrCodeUnknownCellType), faults[0].Code)
}

func TestCulture_RunStopsOnCorruptPopulation(t *testing.T) {
	c, _ := newTestCulture(t, 9, DefaultConfig(), engine.DefaultParams())
	id := c.Spawn(cell.RBr, nil)
	c.Population()[id].ID = id + 100

	_, err := c.Run(context.Background(), 10)
	require.Error(t, err)
	assert.True(t, engine.IsCorruptPopulation(err))
	assert.Equal(t, int64(1), c.Tick())
}

func TestCulture_LongDormancyKeepsDigest(t *testing.T) {
	// The founder goes dormant at tick 10 without ever dividing, so it never
	// leaves state 6 and its Euo decays past the subnormal range.
	cfg := DefaultConfig()
	cfg.SnapshotEvery = 0
	params := engine.DefaultParams()
	params.DormantAfter = 1
	c, _ := newTestCulture(t, 1, cfg, params)
	id := c.Spawn(cell.RBr, nil)
	require.NoError(t, c.Start(context.Background()))

	res, err := c.Run(context.Background(), 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), res.Ticks)
	assert.NotEmpty(t, res.Digest)

	s := c.Population()[id]
	require.Equal(t, cell.Dormant, s.CellType)
	assert.Less(t, s.GeneAmt[cell.Euo], 1e-308)
	assert.Equal(t, cell.Color{0, 1, 0}, s.Color)
}

func TestCulture_RejectPolicyKeepsParent(t *testing.T) {
	params := engine.DefaultParams()
	params.DivisionPolicy = engine.DivisionReject
	c, sink := newTestCulture(t, 6, DefaultConfig(), params)
	id := c.Spawn(cell.IB, func(s *cell.State) {
		s.Volume = 3
		s.ParentGrowth = 1
	})

	_, err := c.Step(context.Background())
	require.NoError(t, err)

	require.Len(t, c.Population(), 1)
	assert.False(t, c.Population()[id].DivideFlag)

	var faults []cell.Event
	for _, ev := range sink.events {
		if ev.Kind == cell.EventFault {
			faults = append(faults, ev)
		}
	}
	require.Len(t, faults, 1)
	assert.Equal(t, string(engine.ErrCodeUnsupportedDivisionParent), faults[0].Code)
	assert.Equal(t, int64(1), faults[0].Tick)
}

func TestCulture_CancelledRunStillSnapshots(t *testing.T) {
	c, sink := newTestCulture(t, 7, DefaultConfig(), engine.DefaultParams())
	c.Spawn(cell.Germinating, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := c.Run(ctx, 100)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), res.Ticks)
	assert.Equal(t, []int64{0}, sink.snapshots)
}

func TestDigest_OrderIndependent(t *testing.T) {
	a := cell.Population{1: {ID: 1, Volume: 1}, 2: {ID: 2, Volume: 2}}
	b := cell.Population{}
	b[2] = &cell.State{ID: 2, Volume: 2}
	b[1] = &cell.State{ID: 1, Volume: 1}

	da, err := Digest(a)
	require.NoError(t, err)
	db, err := Digest(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
	assert.Len(t, da, 64)

	b[2].Volume = 2.5
	db, err = Digest(b)
	require.NoError(t, err)
	assert.NotEqual(t, da, db)
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("run-1", "run-2")
	assert.Equal(t, "run-1", g.Generate())
	assert.Equal(t, "run-2", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestUUIDv7Generator(t *testing.T) {
	id := UUIDv7Generator{}.Generate()
	assert.Len(t, id, 36)
	assert.NotEqual(t, id, UUIDv7Generator{}.Generate())
}
