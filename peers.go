package incmark

import "time"

// Object is an opaque reference to a heap object as seen by the marker. The
// actual heap/allocator/space machinery that produces these is out of scope
// (see spec §1); simheap provides a concrete implementation for tests and
// the demo binary.
type Object uintptr

// TypeDescriptor is the "map" of spec §4.3: it knows the object's size and
// how to enumerate its pointer fields. Concrete heaps register a
// TypeDescriptor per shape in a dispatch table (see MapRegistry).
type TypeDescriptor interface {
	// SizeOf returns the size in bytes of obj, given this descriptor.
	SizeOf(obj Object) uintptr
	// Scan calls fn once per outgoing pointer field of obj. fn receives the
	// slot address (for RecordSlot) and the value stored there.
	Scan(obj Object, fn func(slot uintptr, value Object))
	// ScanRange calls fn once per outgoing pointer field of obj whose byte
	// offset lies in [start, end). Used by the large-array partial scan
	// (spec §4.3); descriptors for non-array shapes may implement this as
	// Scan ignoring the range, since only large backing arrays carry a
	// progress bar.
	ScanRange(obj Object, start, end uintptr, fn func(slot uintptr, value Object))
}

// MapRegistry resolves an object to its type descriptor. In V8's own
// vocabulary the descriptor object is called a "map"; the name is kept to
// match spec §4.3's terminology ("Given (map, object)").
type MapRegistry interface {
	// MapOf returns the map object describing obj's shape.
	MapOf(obj Object) Object
	// Descriptor returns the TypeDescriptor for a map object, as installed
	// by RegisterDescriptor.
	Descriptor(mapObj Object) TypeDescriptor
}

// NativeContext models the "normalized-map cache" special case of spec
// §4.3: its slot is colored grey but never pushed, and is finalized black
// in one sweep at Hurry time (spec §4.7).
type NativeContext interface {
	NormalizedMapCacheSlot() Object
}

// PageSpace is the allocator/page/space interface consumed by the core
// (spec §6 "Page/space interface consumed").
type PageSpace interface {
	// SetPointersFromHereInteresting marks o's page as a possible barrier
	// source (PTR_FROM_HERE_INTERESTING).
	SetPointersFromHereInteresting(o Object)
	// SetPointersToHereInteresting marks o's page as a possible barrier
	// target (PTR_TO_HERE_INTERESTING).
	SetPointersToHereInteresting(o Object)
	// HasProgressBar reports whether o's containing page carries a
	// progress bar (large-object pages hosting arrays).
	HasProgressBar(o Object) bool
	// ProgressBar returns the current scan cursor for o's page.
	ProgressBar(o Object) uintptr
	// SetProgressBar updates the scan cursor for o's page.
	SetProgressBar(o Object, n uintptr)
	// ActivateInterestingPointers flips the "interesting pointers" flags on
	// every old, map, code, new, and large-object page (StartMarking).
	ActivateInterestingPointers()
	// DeactivateInterestingPointers reverses ActivateInterestingPointers
	// (Stop).
	DeactivateInterestingPointers()
}

// Compactor is the compacting collector interface consumed by the core
// (spec §6 "Compacting collector interface consumed").
type Compactor interface {
	// StartCompaction decides, at StartMarking time, whether this cycle
	// will also compact, and returns the decision.
	StartCompaction() bool
	// RecordSlot registers a pointer slot inside host for relocation
	// fix-up during evacuation.
	RecordSlot(host, slot uintptr, value Object)
	// RecordRelocSlot registers a code-relative reference for relocation
	// fix-up, used by the code-target write barrier.
	RecordRelocSlot(host Object, reloc uintptr, value Object)
	// SweepingInProgress reports whether the sweeper still owns pages the
	// marker would need to touch.
	SweepingInProgress() bool
	// EnsureSweepingCompleted blocks (synchronously, from the controller's
	// point of view) until sweeping has finished.
	EnsureSweepingCompleted()
}

// EmbedderTracer is the embedder tracer interface consumed by the core
// (spec §6 "Embedder tracer").
type EmbedderTracer interface {
	TracePrologue()
	Trace(deadline time.Time)
	InUse() bool
	ShouldFinalizeIncrementalMarking() bool
	NumberOfCachedWrappersToTrace() int
	RegisterWrappersWithRemoteTracer()
	NotifyMarkingWorklistWasEmpty()
}

// ConcurrentMarker is the concurrent marker worker-pool interface consumed
// by the core (spec §6 "Concurrent marker").
type ConcurrentMarker interface {
	ScheduleTasks()
	RescheduleTasksIfNeeded()
	// Stop requests all background workers to terminate at their next
	// suspension point (spec §5 "Suspension points"); it does not block.
	Stop()
}

// StackGuard is the stack-guard interface consumed by the core (spec §6
// "Stack guard").
type StackGuard interface {
	RequestGC()
	ClearGC()
}

// StubsRegistry is the write-barrier code-stub registry consumed by the
// core (spec §6 "Stubs registry").
type StubsRegistry interface {
	// Patch rewrites every enumerated RecordWrite stub to the given mode.
	Patch(mode BarrierMode)
}

// BarrierMode selects which write-barrier code path is installed.
type BarrierMode int

const (
	StoreBufferOnly BarrierMode = iota
	Incremental
	IncrementalCompaction
)
