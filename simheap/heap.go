// Package simheap is a minimal concrete heap — objects, pages, spaces —
// that implements the peer interfaces incmark.Controller consumes
// (PageSpace, MapRegistry, Compactor, EmbedderTracer stub, ScavengeQuery,
// LeftTrimQuery). It plays the role spec.md explicitly puts out of
// scope: the real allocator, page/space abstractions, and the
// compacting/scavenging collectors. It exists so tests and cmd/gcdemo
// have something concrete to drive the marker against.
package simheap

import (
	"sync"

	"golang.org/x/sys/unix"

	incmark "github.com/domyhero/v8gc"
)

// PageSize mirrors the host page size via unix.Getpagesize rather than a
// hardcoded constant. Nothing else in this module reads it; progress-bar
// chunking uses incmark's fixed 32 KiB chunk.
var PageSize = unix.Getpagesize()

// object is one heap object's bookkeeping.
type object struct {
	desc         incmark.TypeDescriptor
	mapObj       incmark.Object
	fields       []incmark.Object // pointer fields, index*8 is the slot
	size         uintptr
	progressBar  uintptr
	hasProgress  bool
	fromSpace    bool
	forwarded    incmark.Object
	hasForward   bool
	sweepToIter  bool
	onePointer   bool
	filler       bool
}

// Heap is the concrete object graph. Object addresses are simply
// monotonically increasing handles; this package does not model real
// memory layout, only the coloring/worklist-visible bookkeeping the core
// needs.
type Heap struct {
	mu       sync.Mutex
	objects  map[incmark.Object]*object
	descOf   map[incmark.Object]incmark.TypeDescriptor // map object -> descriptor
	next     incmark.Object
	colors   *incmark.ColorStore
}

// New returns an empty heap wired to colors, the shared mark-bit store.
func New(colors *incmark.ColorStore) *Heap {
	return &Heap{
		objects: make(map[incmark.Object]*object),
		descOf:  make(map[incmark.Object]incmark.TypeDescriptor),
		next:    1,
		colors:  colors,
	}
}

// RegisterDescriptor installs desc as the descriptor for map object
// mapObj (spec §9 "dispatch table keyed by the type descriptor").
func (h *Heap) RegisterDescriptor(mapObj incmark.Object, desc incmark.TypeDescriptor) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.descOf[mapObj] = desc
}

// Alloc creates a new object of the given map, size, and initial pointer
// fields (all nil/zero until SetField is called), honoring black allocation
// if black is true.
func (h *Heap) Alloc(mapObj incmark.Object, size uintptr, nFields int, black bool) incmark.Object {
	h.mu.Lock()
	o := h.next
	h.next++
	h.objects[o] = &object{mapObj: mapObj, size: size, fields: make([]incmark.Object, nFields)}
	h.mu.Unlock()
	if black {
		h.colors.Set(o, incmark.Black)
	}
	return o
}

// AllocFiller marks a filler object (spec §4.5 "skip fillers (of any
// color)"), which MapOf reports as 0.
func (h *Heap) AllocFiller(size uintptr, onePointer bool) incmark.Object {
	h.mu.Lock()
	o := h.next
	h.next++
	h.objects[o] = &object{size: size, filler: true, onePointer: onePointer}
	h.mu.Unlock()
	return o
}

// SetField stores value into obj's pointer field i, returning the slot
// address used for RecordSlot bookkeeping.
func (h *Heap) SetField(obj incmark.Object, i int, value incmark.Object) (slot uintptr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	o := h.objects[obj]
	o.fields[i] = value
	return uintptr(obj)*1024 + uintptr(i)*8
}

// EnableProgressBar marks obj's page as carrying a progress bar (large
// backing arrays, spec §4.3).
func (h *Heap) EnableProgressBar(obj incmark.Object) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.objects[obj].hasProgress = true
}

// --- incmark.MapRegistry ---

func (h *Heap) MapOf(obj incmark.Object) incmark.Object {
	h.mu.Lock()
	defer h.mu.Unlock()
	o, ok := h.objects[obj]
	if !ok || o.filler {
		return 0
	}
	return o.mapObj
}

func (h *Heap) Descriptor(mapObj incmark.Object) incmark.TypeDescriptor {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.descOf[mapObj]
}

// --- incmark.PageSpace ---

func (h *Heap) SetPointersFromHereInteresting(incmark.Object) {}
func (h *Heap) SetPointersToHereInteresting(incmark.Object)   {}

func (h *Heap) HasProgressBar(obj incmark.Object) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	o, ok := h.objects[obj]
	return ok && o.hasProgress
}

func (h *Heap) ProgressBar(obj incmark.Object) uintptr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.objects[obj].progressBar
}

func (h *Heap) SetProgressBar(obj incmark.Object, n uintptr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.objects[obj].progressBar = n
}

func (h *Heap) ActivateInterestingPointers()   {}
func (h *Heap) DeactivateInterestingPointers() {}
