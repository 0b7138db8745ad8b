package timing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_GermTimeBounds(t *testing.T) {
	m := DefaultModel()
	src := NewSource(7)
	for i := 0; i < 10000; i++ {
		g := m.GermTime(src)
		require.GreaterOrEqual(t, g, 80.0)
		require.LessOrEqual(t, g, 120.0)
	}
}

func TestModel_GrowthRateBounds(t *testing.T) {
	m := DefaultModel()
	src := NewSource(11)
	for i := 0; i < 10000; i++ {
		g := m.GrowthRate(src)
		require.GreaterOrEqual(t, g, 0.95)
		require.LessOrEqual(t, g, 1.05)
	}
}

func TestModel_MaturationRateBounds(t *testing.T) {
	m := DefaultModel()
	src := NewSource(3)
	for i := 0; i < 1000; i++ {
		r := m.MaturationRate(src)
		require.GreaterOrEqual(t, r, 0.95)
		require.LessOrEqual(t, r, 1.05)
	}
}

func TestCurve_Bounded(t *testing.T) {
	c := DefaultCurve()
	for t2 := 0.0; t2 <= 40; t2 += 0.1 {
		p := c.Percent(t2, 1.0)
		assert.Greater(t, p, 2.19)
		assert.LessOrEqual(t, p, 100.0)
	}
}

func TestCurve_Monotonic(t *testing.T) {
	c := DefaultCurve()
	for _, rate := range []float64{0.95, 1.0, 1.05} {
		prev := math.Inf(-1)
		for t2 := 0.0; t2 <= 60; t2 += 0.5 {
			p := c.Percent(t2, rate)
			require.GreaterOrEqual(t, p, prev, "t2=%v rate=%v", t2, rate)
			prev = p
		}
	}
}

func TestCurve_Midpoint(t *testing.T) {
	c := DefaultCurve()
	// At t2·rate == midpoint the logistic term is exactly half the amplitude.
	assert.InDelta(t, 97.81/2+2.19, c.Percent(21.5841312, 1.0), 1e-9)
}

func TestDecade(t *testing.T) {
	assert.Equal(t, 10.0, Decade(100))
	assert.Equal(t, 10.5, Decade(105))
	assert.True(t, OnDecade(0))
	assert.True(t, OnDecade(120))
	assert.False(t, OnDecade(121))
}

func TestCoin_RoughlyFair(t *testing.T) {
	src := NewSource(99)
	ones := 0
	const n = 20000
	for i := 0; i < n; i++ {
		v := Coin(src)
		require.Contains(t, []int{0, 1}, v)
		ones += v
	}
	assert.InDelta(t, 0.5, float64(ones)/n, 0.02)
}

func TestCommit_Extremes(t *testing.T) {
	src := NewSource(1)
	for i := 0; i < 100; i++ {
		assert.True(t, Commit(src, 100))
		assert.False(t, Commit(src, -1))
	}
}

func TestNewSource_Reproducible(t *testing.T) {
	a, b := NewSource(5), NewSource(5)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Float64(), b.Float64())
	}
}
