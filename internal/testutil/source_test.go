package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScriptedSource_Order(t *testing.T) {
	src := NewScriptedSource(0.25, -1.5, 1)

	assert.Equal(t, 0.25, src.Float64())
	assert.Equal(t, -1.5, src.NormFloat64())
	assert.Equal(t, 1, src.Intn(2))
	assert.Equal(t, 0, src.Remaining())
	assert.Equal(t, 3, src.Consumed())
}

func TestScriptedSource_PanicsWhenExhausted(t *testing.T) {
	src := NewScriptedSource(0.5)
	src.Float64()

	assert.PanicsWithValue(t,
		"ScriptedSource: Float64 after all 1 draws consumed",
		func() { src.Float64() })
}

func TestScriptedSource_IntnOutOfRange(t *testing.T) {
	src := NewScriptedSource(2)
	assert.Panics(t, func() { src.Intn(2) })
}
