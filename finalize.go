package incmark

// WeakMap is a weak reference to a map object, as stored in the retained-
// maps list (spec §3 "Retained-map list").
type WeakMap interface {
	// Object returns the map object if it is still alive, or 0 if it has
	// been collected.
	Object() Object
	// ConstructorIsDead reports whether the map's constructor has died
	// (spec §4.7 step 2 "constructor is not dead").
	ConstructorIsDead() bool
	// PrototypeUnmarked reports whether the map's prototype is currently
	// unmarked (spec §4.7 step 2).
	PrototypeUnmarked() bool
}

// retainedEntry is one (weak_reference_to_map, age) pair (spec §3).
type retainedEntry struct {
	weak WeakMap
	age  int
}

// RetainedMaps implements spec §4.7's RetainMaps and the invariant of
// spec §3: entries before numberOfDisposedMaps are never aged.
type RetainedMaps struct {
	entries              []retainedEntry
	numberOfDisposedMaps int
}

// NewRetainedMaps returns an empty retained-maps list.
func NewRetainedMaps() *RetainedMaps { return &RetainedMaps{} }

// Add appends a (map, age) pair to the list.
func (r *RetainedMaps) Add(weak WeakMap, age int) {
	r.entries = append(r.entries, retainedEntry{weak: weak, age: age})
}

// SetNumberOfDisposedMaps records how many of the leading entries are
// "disposed" and therefore exempt from aging.
func (r *RetainedMaps) SetNumberOfDisposedMaps(n int) { r.numberOfDisposedMaps = n }

// Retain implements spec §4.7 step 2. For each (weak_map, age) past the
// disposed-maps prefix: if the map is alive and its constructor is not
// dead, either decrement age (if age>0 and the prototype is unmarked) or
// keep age and color the map grey. Age resets to maxAge for maps whose
// retention window elapsed or that are disposed.
//
// spec §9's Open Question leaves number_of_disposed_maps > len(entries)
// implementation-defined; this implementation clamps the disposed prefix
// to len(entries) so the loop below never indexes out of range, and
// treats every entry as eligible for disposal-reset once that clamp is
// hit (documented in DESIGN.md).
func (r *RetainedMaps) Retain(colors *ColorStore, worklist *Worklist, maxAge int) {
	disposed := r.numberOfDisposedMaps
	if disposed > len(r.entries) {
		disposed = len(r.entries)
	}
	for i := range r.entries {
		e := &r.entries[i]
		if i < disposed {
			e.age = maxAge
			continue
		}
		obj := e.weak.Object()
		if obj == 0 || e.weak.ConstructorIsDead() {
			e.age = maxAge
			continue
		}
		if e.age > 0 && e.weak.PrototypeUnmarked() {
			e.age--
			continue
		}
		if colors.WhiteToGrey(obj) {
			worklist.Push(obj)
		}
	}
}

// FinalizeIncrementally implements spec §4.7. It is invoked when the
// worklist empties while marking is active.
func (c *Controller) FinalizeIncrementally() {
	if c.state != Marking {
		return
	}

	if c.roots != nil {
		c.roots.ColorRootsGrey(c.colors, c.worklist)
	}

	if c.incrementalMarkingFinalizationRounds == 0 {
		c.maps.Retain(c.colors, c.worklist, c.tuning.MaxMapAge)
	}

	progress := uintptr(c.worklist.Size())
	if c.embedder != nil {
		progress += uintptr(c.embedder.NumberOfCachedWrappersToTrace())
	}

	c.incrementalMarkingFinalizationRounds++
	if c.incrementalMarkingFinalizationRounds >= c.tuning.MaxFinalizationRounds ||
		progress < c.tuning.MinFinalizationProgress {
		c.finalizeMarkingCompleted = true
	}

	if c.eligibleForBlackAllocation() && !c.blackAllocation {
		c.startBlackAllocation()
	}

	if c.finalizeMarkingCompleted {
		c.MarkingComplete()
	}
}

// MarkingComplete transitions MARKING -> COMPLETE once the worklist is
// drained and finalization has converged (spec §4.5 state table). It
// requests an asynchronous completion via the stack guard rather than
// freeing anything itself (spec §1 Non-goals, §7).
func (c *Controller) MarkingComplete() {
	if c.state != Marking || !c.finalizeMarkingCompleted {
		return
	}
	if !c.worklist.IsEmpty() {
		return
	}
	embedderReady := c.embedder == nil || !c.embedder.InUse() || c.embedder.ShouldFinalizeIncrementalMarking()
	if !embedderReady {
		c.idleMarkingDelayCounter++
		if c.idleMarkingDelayCounter <= c.tuning.IdleDelayLimit {
			// spec §7 "Idle-marker stall": avoid livelock by not
			// requesting completion until the delay limit is exceeded.
			return
		}
	}
	if c.embedder != nil {
		c.embedder.NotifyMarkingWorklistWasEmpty()
	}
	c.state = Complete
	if c.stackGuard != nil {
		c.stackGuard.RequestGC()
	}
}
