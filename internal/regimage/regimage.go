// Package regimage holds the 200-word Modbus holding-register image and the
// fixed table that projects the process model into it.
package regimage

import (
	"fmt"
	"math"
	"sync"

	"github.com/JeanBonBeurre34/scadadinosaur-honey/internal/procmodel"
)

// RegisterCount is the fixed size of the holding-register map exposed by
// the internal Modbus server.
const RegisterCount = 200

// Image is an ordered sequence of 200 uint16 words, initially zero.
// Written only by the Register Projection; read by the internal Modbus
// server's request path. Per-address tearing across word boundaries is
// acceptable (each register is atomically representable); torn reads
// within one word are not, hence the mutex.
type Image struct {
	mu    sync.RWMutex
	words [RegisterCount]uint16
}

// New returns an all-zero register image.
func New() *Image {
	return &Image{}
}

// ReadRange returns a copy of [addr, addr+quantity) or an error if the
// range runs past RegisterCount.
func (img *Image) ReadRange(addr, quantity uint16) ([]uint16, error) {
	if int(addr)+int(quantity) > RegisterCount {
		return nil, fmt.Errorf("regimage: range [%d,%d) exceeds %d registers", addr, int(addr)+int(quantity), RegisterCount)
	}

	img.mu.RLock()
	defer img.mu.RUnlock()

	out := make([]uint16, quantity)
	copy(out, img.words[addr:int(addr)+int(quantity)])
	return out, nil
}

// WriteBatch applies every (addr, value) update atomically, in a single
// locked pass — the Register Projection's per-tick write is never
// interleaved with a partial read.
func (img *Image) WriteBatch(updates map[uint16]uint16) {
	img.mu.Lock()
	defer img.mu.Unlock()

	for addr, val := range updates {
		if int(addr) < RegisterCount {
			img.words[addr] = val
		}
	}
}

// projEntry is one row of the Register Projection Table: a fixed
// (address, extractor) pair. The encoder is folded into the extractor
// closure, matching the design note's "static array of (address,
// extractor, encoder) tuples".
type projEntry struct {
	Addr    uint16
	Extract func(procmodel.Snapshot) uint16
}

// Table is the authoritative projection mapping from spec.md §3. Unlisted
// addresses remain zero. Overflow wraps modulo 2^16 — no clamping is
// applied, matching source behavior.
var Table = []projEntry{
	{Addr: 0, Extract: func(s procmodel.Snapshot) uint16 { return wrapU16(s.Temperature * 10) }},
	{Addr: 1, Extract: func(s procmodel.Snapshot) uint16 { return wrapU16(s.Pressure * 1000) }},
	{Addr: 2, Extract: func(s procmodel.Snapshot) uint16 { return wrapU16(s.Level) }},
	{Addr: 3, Extract: func(s procmodel.Snapshot) uint16 { return boolU16(s.ValveOpen) }},
	{Addr: 4, Extract: func(s procmodel.Snapshot) uint16 { return boolU16(s.Motor1Running) }},
	{Addr: 5, Extract: func(s procmodel.Snapshot) uint16 { return boolU16(s.Motor2Running) }},
	{Addr: 100, Extract: func(s procmodel.Snapshot) uint16 { return wrapU16(s.CPULoad) }},
	{Addr: 101, Extract: func(s procmodel.Snapshot) uint16 { return wrapU16(s.ScanTime * 10) }},
}

func wrapU16(x float64) uint16 {
	return uint16(int64(math.Round(x)) & 0xFFFF)
}

func boolU16(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}

// Project computes the full set of projection-table updates for one
// snapshot, ready to hand to Image.WriteBatch.
func Project(s procmodel.Snapshot) map[uint16]uint16 {
	out := make(map[uint16]uint16, len(Table))
	for _, entry := range Table {
		out[entry.Addr] = entry.Extract(s)
	}
	return out
}
