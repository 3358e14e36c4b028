package incmark

// Start implements spec §4.5's STOPPED transitions: to SWEEPING while
// sweeping is in progress, to MARKING otherwise.
func (c *Controller) Start(reason StartReason) {
	if c.state != Stopped {
		return
	}
	c.startReason = reason
	c.wasActivated = true
	c.startTimeMs = c.nowMs()
	if c.tracer != nil {
		c.tracer.StartEvent(reason)
	}

	if c.compactor != nil && c.compactor.SweepingInProgress() {
		c.state = Sweeping
		return
	}
	c.startMarking()
}

// startMarking implements spec §4.5 "StartMarking". It refuses to begin
// while the serializer is enabled (spec §7 "Serializer active at
// StartMarking: skip this start entirely").
func (c *Controller) startMarking() {
	if c.serializerEnabled {
		c.state = Stopped
		return
	}

	c.worklist.StartUsing()
	c.isCompacting = false
	if c.compactor != nil {
		c.isCompacting = c.compactor.StartCompaction()
	}
	c.state = Marking
	c.finalizeMarkingCompleted = false
	c.incrementalMarkingFinalizationRounds = 0
	c.idleMarkingDelayCounter = 0
	c.oldGenerationAllocationSnapshot = c.oldGenerationAllocationCounter
	c.bytesMarkedAheadOfSchedule = 0

	if c.embedder != nil {
		c.embedder.TracePrologue()
	}

	mode := Incremental
	if c.isCompacting {
		mode = IncrementalCompaction
	}
	if c.stubs != nil {
		c.stubs.Patch(mode)
	}
	if c.barrier != nil {
		c.barrier.SetConcurrentMarking(c.concurrentMarkingEnabled)
		c.barrier.SetCompacting(c.isCompacting)
	}
	if c.visitor != nil {
		c.visitor.SetConcurrent(c.concurrentMarkingEnabled)
	}
	if c.pages != nil {
		c.pages.ActivateInterestingPointers()
	}

	if c.concurrentMarkingEnabled {
		c.blackAllocation = true
		if c.concurrent != nil {
			c.concurrent.ScheduleTasks()
		}
	}

	if c.roots != nil {
		c.roots.ColorRootsGrey(c.colors, c.worklist)
	}
}

// SetConcurrentMarkingEnabled toggles whether StartMarking will dispatch
// background worker tasks (spec §4.5 "if concurrent marking").
func (c *Controller) SetConcurrentMarkingEnabled(v bool) { c.concurrentMarkingEnabled = v }

// Stop implements spec §5 "Cancellation": synchronous from the mutator's
// viewpoint. It patches stubs back to store-buffer-only mode, clears
// per-page barrier flags, detaches allocator observers (the caller owns
// that registration; Stop only flips the barrier/page state here),
// clears any pending stack-guard GC request, and flips state to STOPPED.
// The worklist is not destructively cleared so in-flight workers may
// finish their current item (spec §5).
func (c *Controller) Stop() {
	if c.state == Stopped {
		return
	}
	if c.stubs != nil {
		c.stubs.Patch(StoreBufferOnly)
	}
	if c.pages != nil {
		c.pages.DeactivateInterestingPointers()
	}
	if c.barrier != nil {
		c.barrier.SetConcurrentMarking(false)
		c.barrier.SetCompacting(false)
	}
	if c.stackGuard != nil {
		c.stackGuard.ClearGC()
	}
	if c.concurrent != nil {
		c.concurrent.Stop()
	}
	c.blackAllocation = false
	c.isCompacting = false
	c.state = Stopped
}

func (c *Controller) nowMs() float64 {
	if c.now == nil {
		return 0
	}
	return float64(c.now().UnixNano()) / 1e6
}
