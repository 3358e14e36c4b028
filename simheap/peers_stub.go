package simheap

import (
	"sync"
	"time"

	incmark "github.com/domyhero/v8gc"
)

// Compactor is a minimal incmark.Compactor: it answers StartCompaction
// with the decision given to NewCompactor and records slots into an
// in-memory log, good enough for tests and the demo binary to assert
// against.
type Compactor struct {
	mu        sync.Mutex
	sweeping  bool
	slots     []SlotRecord
	relocs    []RelocRecord
	compact   bool
}

// SlotRecord is one RecordSlot call.
type SlotRecord struct {
	Host, Slot uintptr
	Value      incmark.Object
}

// RelocRecord is one RecordRelocSlot call.
type RelocRecord struct {
	Host  incmark.Object
	Reloc uintptr
	Value incmark.Object
}

// NewCompactor returns a Compactor that will decide to compact iff
// startCompacting is true.
func NewCompactor(startCompacting bool) *Compactor {
	return &Compactor{compact: startCompacting}
}

func (c *Compactor) StartCompaction() bool { return c.compact }

func (c *Compactor) RecordSlot(host, slot uintptr, value incmark.Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots = append(c.slots, SlotRecord{Host: host, Slot: slot, Value: value})
}

func (c *Compactor) RecordRelocSlot(host incmark.Object, reloc uintptr, value incmark.Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.relocs = append(c.relocs, RelocRecord{Host: host, Reloc: reloc, Value: value})
}

func (c *Compactor) SetSweeping(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweeping = v
}

func (c *Compactor) SweepingInProgress() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweeping
}

func (c *Compactor) EnsureSweepingCompleted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweeping = false
}

func (c *Compactor) Slots() []SlotRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SlotRecord(nil), c.slots...)
}

// EmbedderTracer is a minimal incmark.EmbedderTracer stub. Its zero value
// is not in use and has no wrappers to trace, so the controller treats it
// as ready to finalize; SetInUse, SetReadyToFinalize and
// SetWrappersToTrace change that.
type EmbedderTracer struct {
	mu               sync.Mutex
	wrappers         int
	inUse            bool
	readyToFinalize  bool
	tracePrologue    int
	emptyNotified    int
}

func (e *EmbedderTracer) TracePrologue()           { e.mu.Lock(); e.tracePrologue++; e.mu.Unlock() }
func (e *EmbedderTracer) Trace(time.Time)          {}
func (e *EmbedderTracer) InUse() bool              { e.mu.Lock(); defer e.mu.Unlock(); return e.inUse }
func (e *EmbedderTracer) SetInUse(v bool)          { e.mu.Lock(); e.inUse = v; e.mu.Unlock() }
func (e *EmbedderTracer) SetReadyToFinalize(v bool) {
	e.mu.Lock()
	e.readyToFinalize = v
	e.mu.Unlock()
}
func (e *EmbedderTracer) ShouldFinalizeIncrementalMarking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.readyToFinalize
}
func (e *EmbedderTracer) NumberOfCachedWrappersToTrace() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wrappers
}
func (e *EmbedderTracer) SetWrappersToTrace(n int) { e.mu.Lock(); e.wrappers = n; e.mu.Unlock() }
func (e *EmbedderTracer) RegisterWrappersWithRemoteTracer() {}
func (e *EmbedderTracer) NotifyMarkingWorklistWasEmpty() {
	e.mu.Lock()
	e.emptyNotified++
	e.mu.Unlock()
}

// StackGuard is a minimal incmark.StackGuard recording request/clear
// calls for assertions in tests.
type StackGuard struct {
	mu        sync.Mutex
	requested bool
}

func (s *StackGuard) RequestGC() { s.mu.Lock(); s.requested = true; s.mu.Unlock() }
func (s *StackGuard) ClearGC()   { s.mu.Lock(); s.requested = false; s.mu.Unlock() }
func (s *StackGuard) Requested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requested
}

// StubsRegistry is a minimal incmark.StubsRegistry recording the last
// patched mode.
type StubsRegistry struct {
	mu   sync.Mutex
	mode incmark.BarrierMode
}

func (s *StubsRegistry) Patch(mode incmark.BarrierMode) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
}

func (s *StubsRegistry) Mode() incmark.BarrierMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}
