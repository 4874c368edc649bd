package procmodel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeedsLiteralValues(t *testing.T) {
	m := New(1)
	s := m.Snapshot()

	require.Equal(t, 22.5, s.Temperature)
	require.Equal(t, 1.02, s.Pressure)
	require.False(t, s.Motor1Running)
	require.True(t, s.Motor2Running)
	require.Equal(t, 74.0, s.Level)
	require.False(t, s.ValveOpen)
	require.Equal(t, 8.5, s.CPULoad)
	require.Equal(t, 12.3, s.ScanTime)
	require.Equal(t, uint16(0), s.ErrorCode)
}

func TestCycleUpdateBoundsPerTick(t *testing.T) {
	m := New(42)
	prev := m.Snapshot()

	for i := 0; i < 100; i++ {
		m.CycleUpdate()
		next := m.Snapshot()

		assert.LessOrEqual(t, math.Abs(next.Temperature-prev.Temperature), 0.1+1e-9)
		assert.LessOrEqual(t, math.Abs(next.Pressure-prev.Pressure), 0.01+1e-9)

		// motor flags and error code are never mutated by cycle_update
		assert.Equal(t, prev.Motor1Running, next.Motor1Running)
		assert.Equal(t, prev.Motor2Running, next.Motor2Running)
		assert.Equal(t, prev.ErrorCode, next.ErrorCode)

		prev = next
	}
}

func TestSnapshotIsNotATornMix(t *testing.T) {
	m := New(7)
	// a snapshot taken mid-flight must always match one assignment of
	// CycleUpdate's fields, never a partial update; since CycleUpdate and
	// Snapshot share the same mutex this holds trivially, exercised here
	// as a smoke test rather than a race detector.
	for i := 0; i < 10; i++ {
		m.CycleUpdate()
	}
	s := m.Snapshot()
	assert.False(t, math.IsNaN(s.Temperature))
	assert.False(t, math.IsInf(s.CPULoad, 0))
}
