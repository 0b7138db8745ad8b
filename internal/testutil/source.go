package testutil

import (
	"fmt"
	"sync"
)

// ScriptedSource returns predetermined draws in order.
//
// Every call consumes the next scripted value: Float64 returns it as is,
// NormFloat64 returns it as a standard-normal deviate, and Intn returns it
// truncated to an int. Tests script the exact draw sequence the engine is
// expected to consume and can verify nothing was left over.
//
// Panics when the script is exhausted or an Intn draw is out of range. This
// is a fail-fast approach to catch a test that consumed more draws than it
// scripted.
//
// Thread-safety: ScriptedSource is safe for concurrent use via internal mutex.
type ScriptedSource struct {
	mu    sync.Mutex
	draws []float64
	idx   int
}

// NewScriptedSource creates a source that yields draws in order.
func NewScriptedSource(draws ...float64) *ScriptedSource {
	return &ScriptedSource{draws: draws}
}

func (s *ScriptedSource) next(call string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.draws) {
		panic(fmt.Sprintf("ScriptedSource: %s after all %d draws consumed", call, len(s.draws)))
	}
	v := s.draws[s.idx]
	s.idx++
	return v
}

// Float64 returns the next draw.
func (s *ScriptedSource) Float64() float64 {
	return s.next("Float64")
}

// NormFloat64 returns the next draw.
func (s *ScriptedSource) NormFloat64() float64 {
	return s.next("NormFloat64")
}

// Intn returns the next draw as an int in [0, n).
func (s *ScriptedSource) Intn(n int) int {
	v := int(s.next("Intn"))
	if v < 0 || v >= n {
		panic(fmt.Sprintf("ScriptedSource: Intn(%d) scripted value %d out of range", n, v))
	}
	return v
}

// Remaining returns how many scripted draws have not been consumed.
func (s *ScriptedSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.draws) - s.idx
}

// Consumed returns how many draws have been consumed.
func (s *ScriptedSource) Consumed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx
}
