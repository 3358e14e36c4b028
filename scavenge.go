package incmark

// ScavengeQuery is the predicate set spec §4.8 needs to classify a
// worklist entry after a young-generation evacuation. A concrete heap
// (simheap) implements this against its from-space/to-space bookkeeping.
type ScavengeQuery interface {
	// InFromSpace reports whether obj was located in from-space before
	// evacuation.
	InFromSpace(obj Object) bool
	// ForwardingAddress returns the to-space address obj was copied to,
	// or (0, false) if none was recorded.
	ForwardingAddress(obj Object) (Object, bool)
	// SweepToIteratePage reports whether obj's page is a "sweep-to-
	// iterate" page (spec §4.8 table, to-space and old-space rows).
	SweepToIteratePage(obj Object) bool
	// ExternallyGrey reports whether obj is grey by some external
	// bookkeeping distinct from the core's own color store (used for the
	// sweep-to-iterate rows of the spec §4.8 table).
	ExternallyGrey(obj Object) bool
	// IsOnePointerFiller reports whether obj is a one-pointer filler in
	// old space (spec §4.8 table, "old space, one-pointer filler").
	IsOnePointerFiller(obj Object) bool
}

// UpdateMarkingWorklistAfterScavenge implements spec §4.8: after young-
// generation evacuation, every worklist entry is rewritten via the
// table-driven predicate.
func (c *Controller) UpdateMarkingWorklistAfterScavenge(q ScavengeQuery) {
	c.worklist.Update(func(o Object) (Object, bool) {
		if q.InFromSpace(o) {
			if fwd, ok := q.ForwardingAddress(o); ok {
				return fwd, true
			}
			return 0, false // dead: filler or stale root
		}
		if q.SweepToIteratePage(o) {
			return o, q.ExternallyGrey(o)
		}
		if q.IsOnePointerFiller(o) {
			return 0, false
		}
		return o, true
	})
}

// LeftTrimQuery supplies the bitmap-overlap fact spec §4.8's left-
// trimming algorithm needs.
type LeftTrimQuery interface {
	// BitmapsOverlap reports whether from and to, on the same chunk,
	// share a mark-bit word (from+word == to).
	BitmapsOverlap(from, to Object) bool
	// DestinationIsBlackAllocationArea reports whether to already lies
	// in the black-allocation area, in which case no color transfer is
	// needed.
	DestinationIsBlackAllocationArea(to Object) bool
}

// NotifyLeftTrimming implements spec §4.8 "Left-trimming": in-place
// array head removal requires preserving color across an address shift
// from `from` to `to` on the same chunk.
func (c *Controller) NotifyLeftTrimming(from, to Object, q LeftTrimQuery) {
	if q.DestinationIsBlackAllocationArea(to) {
		return
	}

	wasBlack := c.colors.IsBlack(from)
	wasGrey := c.colors.IsGrey(from)

	if c.concurrentMarkingEnabled && wasGrey {
		// Atomically promote from Grey->Black to prevent a concurrent
		// worker from observing the stale (pre-trim) length while still
		// mid-scan of `from` (spec §4.8). The destination's color below
		// is still decided from the pre-promotion state captured above,
		// not this temporary one.
		c.colors.GreyToBlack(from)
	}

	overlap := q.BitmapsOverlap(from, to)

	switch {
	case wasBlack:
		if overlap {
			// Bitmaps overlap: setting the second bit on the shared word
			// is equivalent to marking `to` Black directly.
			c.colors.Set(to, Black)
		} else {
			c.colors.WhiteToBlack(to)
		}
	case wasGrey:
		// Both the overlap and non-overlap cases land `to` on Grey in
		// this object-keyed color store; overlap only matters to a
		// packed-bitmap layout's "set only the first bit" optimization,
		// which has no separate observable effect here.
		c.colors.Set(to, Grey)
		c.worklist.Push(to)
	}
}
