package simheap

import incmark "github.com/domyhero/v8gc"

// ScavengeState is a minimal incmark.ScavengeQuery: from-space membership
// and forwarding addresses are tracked per object; sweep-to-iterate and
// externally-grey bookkeeping are tracked per page, modeled here simply
// as per-object flags since simheap does not model real pages.
type ScavengeState struct {
	heap            *Heap
	externallyGrey  map[incmark.Object]bool
}

// NewScavengeState returns a query view over h.
func NewScavengeState(h *Heap) *ScavengeState {
	return &ScavengeState{heap: h, externallyGrey: make(map[incmark.Object]bool)}
}

// MarkFromSpace records obj as having been located in from-space before
// evacuation, optionally forwarded to to.
func (s *ScavengeState) MarkFromSpace(obj incmark.Object, to incmark.Object) {
	s.heap.mu.Lock()
	defer s.heap.mu.Unlock()
	o := s.heap.objects[obj]
	if o == nil {
		return
	}
	o.fromSpace = true
	if to != 0 {
		o.forwarded = to
		o.hasForward = true
	}
}

// MarkSweepToIterate flags obj's (simulated) page as sweep-to-iterate.
func (s *ScavengeState) MarkSweepToIterate(obj incmark.Object) {
	s.heap.mu.Lock()
	defer s.heap.mu.Unlock()
	if o := s.heap.objects[obj]; o != nil {
		o.sweepToIter = true
	}
}

// SetExternallyGrey records obj as grey by bookkeeping external to the
// core's color store (spec §4.8 table).
func (s *ScavengeState) SetExternallyGrey(obj incmark.Object, v bool) {
	s.externallyGrey[obj] = v
}

func (s *ScavengeState) InFromSpace(obj incmark.Object) bool {
	s.heap.mu.Lock()
	defer s.heap.mu.Unlock()
	o := s.heap.objects[obj]
	return o != nil && o.fromSpace
}

func (s *ScavengeState) ForwardingAddress(obj incmark.Object) (incmark.Object, bool) {
	s.heap.mu.Lock()
	defer s.heap.mu.Unlock()
	o := s.heap.objects[obj]
	if o == nil || !o.hasForward {
		return 0, false
	}
	return o.forwarded, true
}

func (s *ScavengeState) SweepToIteratePage(obj incmark.Object) bool {
	s.heap.mu.Lock()
	defer s.heap.mu.Unlock()
	o := s.heap.objects[obj]
	return o != nil && o.sweepToIter
}

func (s *ScavengeState) ExternallyGrey(obj incmark.Object) bool {
	return s.externallyGrey[obj]
}

func (s *ScavengeState) IsOnePointerFiller(obj incmark.Object) bool {
	s.heap.mu.Lock()
	defer s.heap.mu.Unlock()
	o := s.heap.objects[obj]
	return o != nil && o.filler && o.onePointer
}

// LeftTrimState is a minimal incmark.LeftTrimQuery.
type LeftTrimState struct {
	blackAllocArea map[incmark.Object]bool
	overlapping    map[[2]incmark.Object]bool
}

// NewLeftTrimState returns an empty query view; callers register facts
// with MarkBlackAllocationArea and MarkOverlap before calling
// Controller.NotifyLeftTrimming.
func NewLeftTrimState() *LeftTrimState {
	return &LeftTrimState{
		blackAllocArea: make(map[incmark.Object]bool),
		overlapping:    make(map[[2]incmark.Object]bool),
	}
}

func (l *LeftTrimState) MarkBlackAllocationArea(to incmark.Object) { l.blackAllocArea[to] = true }

func (l *LeftTrimState) MarkOverlap(from, to incmark.Object) {
	l.overlapping[[2]incmark.Object{from, to}] = true
}

func (l *LeftTrimState) DestinationIsBlackAllocationArea(to incmark.Object) bool {
	return l.blackAllocArea[to]
}

func (l *LeftTrimState) BitmapsOverlap(from, to incmark.Object) bool {
	return l.overlapping[[2]incmark.Object{from, to}]
}
