package incmark

import "time"

// ForceCompletion selects whether ProcessMarkingWorklist should drain
// until the budget is exhausted (default) or until the worklist is empty
// regardless of budget (spec §4.5 "Drain").
type ForceCompletion bool

const (
	NoForceCompletion ForceCompletion = false
	ForceCompletionOn ForceCompletion = true
)

// OldGenerationAllocationCounter returns the cumulative bytes promoted
// into old space; the allocator observer advances this externally via
// RecordAllocation.
func (c *Controller) OldGenerationAllocationCounter() uintptr { return c.oldGenerationAllocationCounter }

// RecordAllocation is called by the allocator observer (spec §6) on
// every ALLOCATED_THRESHOLD bytes allocated; it both advances the
// counters and runs AdvanceIncrementalMarkingOnAllocation.
func (c *Controller) RecordAllocation(bytesAllocated uintptr, isOldGeneration bool) {
	c.bytesAllocated += bytesAllocated
	if isOldGeneration {
		c.oldGenerationAllocationCounter += bytesAllocated
	}
	if c.state == Stopped {
		return
	}
	c.AdvanceIncrementalMarkingOnAllocation()
}

// computeStepSize implements spec §4.5's step-size formula.
func (c *Controller) computeStepSize() uintptr {
	catchUp := c.oldGenerationAllocationCounter - c.oldGenerationAllocationSnapshot

	elapsedMs := c.nowMs() - c.startTimeMs
	frac := elapsedMs / c.tuning.StepSizeWindowMs
	if frac > 1.0 {
		frac = 1.0
	}
	if frac < 0 {
		frac = 0
	}

	base := c.initialOldGenerationSize / c.tuning.OldGenerationDivisor
	if base < c.tuning.MinStepSize {
		base = c.tuning.MinStepSize
	}
	progress := uintptr(float64(base) * frac)

	slack := c.tuning.YoungGenerationCapacity + c.tuning.OOMSlackBytes
	if c.promotedSize+c.bytesAllocated >= slack {
		// Spec §4.5 / §7: near out-of-memory, collapse the step-count
		// target (128 -> 16), effectively accelerating completion.
		progress = c.promotedSize / c.tuning.OOMDivisor
	}

	bytesToProcess := catchUp + progress
	maxStep := c.estimateForMs(c.tuning.MaxStepSizeMs)
	if bytesToProcess > maxStep {
		bytesToProcess = maxStep
	}
	return bytesToProcess
}

// estimateForMs estimates how many bytes can be processed in the given
// number of milliseconds. Absent a calibrated scan rate, 1 MB/ms matches
// the figure cited by spec §4.1's root-scan budget commentary
// (grounded on mgcmark.go's "we can scan 1-2 MB/ms" comment).
func (c *Controller) estimateForMs(ms float64) uintptr {
	const bytesPerMs = 1 << 20
	return uintptr(ms * bytesPerMs)
}

// AdvanceIncrementalMarkingOnAllocation implements spec §4.5's allocation-
// observer callback body: compute the step size, consume ahead-of-
// schedule credit if sufficient, else run Step.
func (c *Controller) AdvanceIncrementalMarkingOnAllocation() {
	if c.state == Stopped || c.state == Complete {
		return
	}
	bytesToProcess := c.computeStepSize()
	if c.bytesMarkedAheadOfSchedule >= bytesToProcess {
		c.bytesMarkedAheadOfSchedule -= bytesToProcess
		return
	}
	bytesToProcess -= c.bytesMarkedAheadOfSchedule
	c.bytesMarkedAheadOfSchedule = 0
	c.Step(bytesToProcess, NoForceCompletion)
}

// Step implements spec §4.5 "Step". If SWEEPING, it finalizes sweeping
// (which may transition to MARKING). If MARKING, it drains up to
// bytesToProcess from the worklist. Under concurrent marking it
// reschedules worker tasks afterwards.
func (c *Controller) Step(bytesToProcess uintptr, force ForceCompletion) uintptr {
	started := c.now()

	if c.state == Sweeping {
		if c.compactor != nil {
			c.compactor.EnsureSweepingCompleted()
			if !c.compactor.SweepingInProgress() {
				c.startMarking()
			}
		}
	}

	var marked uintptr
	if c.state == Marking {
		marked = c.ProcessMarkingWorklist(bytesToProcess, force)
		if c.bytesMarkedAheadOfSchedule == 0 && marked > bytesToProcess {
			c.bytesMarkedAheadOfSchedule = marked - bytesToProcess
		}

		if c.worklist.IsEmpty() {
			c.FinalizeIncrementally()
		}

		if c.concurrentMarkingEnabled && c.concurrent != nil {
			c.concurrent.RescheduleTasksIfNeeded()
		}
	}

	if c.tracer != nil {
		c.tracer.StepEvent(c.now().Sub(started))
	}
	return marked
}

// ProcessMarkingWorklist implements spec §4.5 "Drain":
// ProcessMarkingWorklist(bytes_to_process, force?): repeatedly pop, skip
// fillers (of any color), visit, accumulate size minus unscanned bytes
// of a partially-scanned large object. It terminates when the budget is
// exhausted OR (under ForceCompletionOn) the queue is empty.
func (c *Controller) ProcessMarkingWorklist(bytesToProcess uintptr, force ForceCompletion) uintptr {
	var processed uintptr
	for {
		if !force && processed >= bytesToProcess {
			break
		}
		obj, ok := c.worklist.Pop()
		if !ok {
			break
		}
		if c.isFiller(obj) {
			continue
		}
		result := c.visitor.Visit(obj)
		if result.Done {
			processed += result.SizeVisited
		} else {
			// Partial large-array scan: only the scanned chunk counts
			// towards the budget (spec §4.3 "unscanned bytes").
			processed += result.SizeVisited
		}
	}
	if c.embedder != nil {
		c.embedder.RegisterWrappersWithRemoteTracer()
	}
	return processed
}

// isFiller reports whether obj is a filler object that should be skipped
// during drain without being visited (spec §4.5 "skip fillers (of any
// color)"). The concrete heap model (simheap) tags fillers with a
// per-object filler flag and reports their map as 0; the core itself
// treats the MapOf lookup returning the zero Object as the filler signal.
func (c *Controller) isFiller(obj Object) bool {
	if c.visitor == nil {
		return false
	}
	return c.visitor.maps.MapOf(obj) == 0
}

// Advance implements spec §4.5 "Advance (deadline-driven)": while
// incremental wrapper-tracing is due and the toggle is set, call the
// embedder's Trace(deadline); otherwise call Step. The toggle flips every
// iteration. The loop continues while remaining time is at least one
// step's worth and the controller is neither complete nor the worklist
// empty.
func (c *Controller) Advance(deadline time.Time, stepEstimateMs float64) {
	for {
		remaining := deadline.Sub(c.now())
		if remaining <= 0 || float64(remaining.Milliseconds()) < stepEstimateMs {
			break
		}
		if c.state == Complete || (c.state == Marking && c.worklist.IsEmpty()) {
			break
		}

		wrapperTracingDue := c.embedder != nil && c.embedder.NumberOfCachedWrappersToTrace() > 0
		if wrapperTracingDue && c.traceWrapperToggle {
			c.embedder.Trace(deadline)
		} else {
			c.Step(c.estimateForMs(stepEstimateMs), NoForceCompletion)
		}
		c.traceWrapperToggle = !c.traceWrapperToggle
	}
}

// Hurry implements spec §4.7 "Hurry": if the worklist is non-empty, drains
// it with ForceCompletionOn and transitions straight to COMPLETE (a
// scavenge can push new objects onto the worklist via black allocation
// even after COMPLETE, which is why the check happens before draining,
// not after). Native contexts whose normalized-map cache is Grey are
// finalized to Black unconditionally, whether or not a drain happened.
func (c *Controller) Hurry(contexts []NativeContext) {
	if !c.worklist.IsEmpty() {
		c.ProcessMarkingWorklist(0, ForceCompletionOn)
		c.finalizeMarkingCompleted = true
		c.state = Complete
	}

	for _, ctx := range contexts {
		slot := ctx.NormalizedMapCacheSlot()
		if slot != 0 && c.colors.IsGrey(slot) {
			c.colors.GreyToBlack(slot)
		}
	}
}
