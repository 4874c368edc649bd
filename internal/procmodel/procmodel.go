// Package procmodel implements the simulated process-data model: three
// fixed-schema data blocks (DB1, DB10, DB100) whose values drift on a scan
// cycle. The schema is a Go struct rather than a string-keyed map per the
// source's own design note — field count and order are fixed at compile
// time and never change.
package procmodel

import (
	"math/rand"
	"sync"
)

// Snapshot is a consistent, read-only view of every field across all three
// data blocks at one instant. Callers never see a torn mix of values from
// two different cycles.
type Snapshot struct {
	// DB1
	Temperature    float64
	Pressure       float64
	Motor1Running  bool
	Motor2Running  bool

	// DB10
	Level     float64
	ValveOpen bool

	// DB100
	CPULoad   float64
	ScanTime  float64
	ErrorCode uint16 // never mutated; retained in the schema for parity
}

// Model owns the process data exclusively; the Scan Driver is its only
// writer. Readers (the Register Projection) call Snapshot to get an
// atomically-consistent copy — never a mutable alias.
type Model struct {
	mu      sync.RWMutex
	current Snapshot
	rng     *rand.Rand
}

// New seeds the model with the literal startup values from the data model
// (§3): Temperature=22.5, Pressure=1.02, Motor1=false, Motor2=true,
// Level=74.0, Valve_Open=false, CPU_Load=8.5, Scan_Time=12.3, Error_Code=0.
func New(seed int64) *Model {
	return &Model{
		current: Snapshot{
			Temperature:   22.5,
			Pressure:      1.02,
			Motor1Running: false,
			Motor2Running: true,
			Level:         74.0,
			ValveOpen:     false,
			CPULoad:       8.5,
			ScanTime:      12.3,
			ErrorCode:     0,
		},
		rng: rand.New(rand.NewSource(seed)),
	}
}

// CycleUpdate applies one random perturbation, matching db_simulation.py's
// cycle_update: Motor flags and Error_Code are never touched. Numeric drift
// is unbounded by design — no clamping is applied, matching source
// behavior.
func (m *Model) CycleUpdate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current.Temperature += uniform(m.rng, -0.1, 0.1)
	m.current.Pressure += uniform(m.rng, -0.01, 0.01)
	m.current.Level += uniform(m.rng, -1.0, 1.0)
	m.current.ValveOpen = m.rng.Intn(2) == 1
	m.current.CPULoad = uniform(m.rng, 5, 40)
	m.current.ScanTime = uniform(m.rng, 8, 15)
}

// Snapshot returns a point-in-time copy of every field.
func (m *Model) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
