package incmark

// eligibleForBlackAllocation implements spec §4.6: black allocation is
// enabled at StartMarking under concurrent marking (handled directly in
// startMarking), or at the first finalization round under non-concurrent
// marking, unless reducing memory.
func (c *Controller) eligibleForBlackAllocation() bool {
	if c.concurrentMarkingEnabled {
		return false // already enabled in startMarking
	}
	if c.reduceMemoryFootprint {
		return false
	}
	return c.incrementalMarkingFinalizationRounds <= 1
}

// startBlackAllocation flips on the black-allocation regime. Pausing
// around operations that would observe inconsistent colors (spec §4.6)
// is the allocator's responsibility; PauseBlackAllocation/
// ResumeBlackAllocation below give it the hooks.
func (c *Controller) startBlackAllocation() {
	c.blackAllocation = true
}

// IsBlackAllocationEnabled reports whether newly allocated objects should
// be born Black (spec §4.6, Testable Property 4).
func (c *Controller) IsBlackAllocationEnabled() bool { return c.blackAllocation }

// PauseBlackAllocation and ResumeBlackAllocation bracket allocator
// operations that would otherwise observe inconsistent colors while
// black allocation is active (spec §4.6 "Paused around operations").
func (c *Controller) PauseBlackAllocation() bool {
	was := c.blackAllocation
	c.blackAllocation = false
	return was
}

func (c *Controller) ResumeBlackAllocation(was bool) { c.blackAllocation = was }

// AllocateBlack implements the allocator-facing half of spec §4.6: when
// black allocation is enabled, the allocator must color new objects
// Black immediately upon return. An allocator calls this right after
// reserving obj's address; it is exported here so any conforming
// allocator can share the core's color store rather than re-implementing
// the invariant. simheap.Heap.Alloc does not call it: it takes a black
// flag and sets the color itself.
func (c *Controller) AllocateBlack(obj Object) {
	if !c.blackAllocation {
		return
	}
	c.colors.Set(obj, Black)
}

// ReviseBlackAllocated implements spec §4.6's closing paragraph: because
// black objects bypass the normal coloring path, the write barrier can
// still create grey children of a black parent. ReviseBlackAllocated
// rescans a Black obj's pointer fields exactly as if it were grey,
// greying and pushing any White children; it does nothing when obj is
// not Black.
func (c *Controller) ReviseBlackAllocated(obj Object) {
	if !c.colors.IsBlack(obj) {
		return
	}
	c.visitor.scanPointers(obj, c.visitor.maps.Descriptor(c.visitor.maps.MapOf(obj)))
}
