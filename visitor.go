package incmark

// progressBarChunk is the fixed chunk size large-array scanning advances
// by on each step (spec §3 "Progress bar").
const progressBarChunk = 32 * 1024

// Visitor is the marking visitor of spec §4.3. Given a map and an object,
// it computes the object's size from the map, colors the map itself grey,
// and scans the object's pointer fields, greying and pushing White targets
// while recording every slot with the compacting collector.
type Visitor struct {
	colors    *ColorStore
	worklist  *Worklist
	pages     PageSpace
	compactor Compactor
	maps      MapRegistry
	concurrent bool
}

// NewVisitor wires a Visitor to the shared mark-bit store, worklist, and
// peer collaborators. concurrent selects whether an unfinished large-array
// scan re-pushes to the bailout queue (spec §4.3 "Large-array partial
// scan").
func NewVisitor(colors *ColorStore, worklist *Worklist, pages PageSpace, compactor Compactor, maps MapRegistry, concurrent bool) *Visitor {
	return &Visitor{colors: colors, worklist: worklist, pages: pages, compactor: compactor, maps: maps, concurrent: concurrent}
}

// SetConcurrent toggles bailout-queue use for resumed large-array scans;
// the controller flips this when concurrent marking is enabled or
// disabled.
func (v *Visitor) SetConcurrent(c bool) { v.concurrent = c }

// VisitResult reports the accounting the controller needs after Visit
// returns (spec §4.3 "report object_size - already_scanned_offset
// unscanned bytes").
type VisitResult struct {
	// SizeVisited is the number of bytes the controller should credit
	// towards its step budget.
	SizeVisited uintptr
	// Done is false when a large object was only partially scanned and
	// has been re-enqueued for a later step.
	Done bool
}

// Visit implements spec §4.3. obj must currently be Grey (the caller is
// expected to have transitioned it via ColorStore before pushing); Visit
// scans it, pushes White pointer targets as Grey, and blackens obj unless
// it is a partially-scanned large array.
func (v *Visitor) Visit(obj Object) VisitResult {
	mapObj := v.maps.MapOf(obj)
	if v.colors.WhiteToGrey(mapObj) {
		v.worklist.Push(mapObj)
	}
	desc := v.maps.Descriptor(mapObj)
	size := desc.SizeOf(obj)

	if v.pages != nil && v.pages.HasProgressBar(obj) {
		return v.visitLargeArray(obj, desc, size)
	}

	v.scanPointers(obj, desc)
	v.colors.GreyToBlack(obj)
	return VisitResult{SizeVisited: size, Done: true}
}

// scanPointers runs desc.Scan over obj's pointer fields, recording each
// slot with the compacting collector and greying+pushing White targets
// (spec §4.3 steps 1-2).
func (v *Visitor) scanPointers(obj Object, desc TypeDescriptor) {
	desc.Scan(obj, func(slot uintptr, value Object) {
		if v.compactor != nil {
			v.compactor.RecordSlot(uintptr(obj), slot, value)
		}
		if value == 0 {
			return
		}
		if v.colors.WhiteToGrey(value) {
			if !v.worklist.Push(value) {
				// Worklist full: BlackToGrey-style overflow recovery does
				// not apply since value was just greyed, not blackened.
				// The value goes to the bailout queue instead, which has
				// no capacity limit, so it is not dropped.
				v.worklist.PushBailout(value)
			}
		}
	})
}

// visitLargeArray implements spec §4.3 "Large-array partial scan".
func (v *Visitor) visitLargeArray(obj Object, desc TypeDescriptor, size uintptr) VisitResult {
	start := v.pages.ProgressBar(obj)
	if start > size {
		start = size
	}
	end := start + progressBarChunk
	if end > size {
		end = size
	}

	full := false
	desc.ScanRange(obj, start, end, func(slot uintptr, value Object) {
		if v.compactor != nil {
			v.compactor.RecordSlot(uintptr(obj), slot, value)
		}
		if value == 0 {
			return
		}
		if v.colors.WhiteToGrey(value) {
			if !v.worklist.Push(value) {
				full = true
			}
		}
	})
	scannedThisStep := end - start

	if full {
		// Overflow fallback: continue scanning the array through to the
		// end in place rather than yielding (spec §4.3).
		desc.ScanRange(obj, end, size, func(slot uintptr, value Object) {
			if v.compactor != nil {
				v.compactor.RecordSlot(uintptr(obj), slot, value)
			}
			if value != 0 && v.colors.WhiteToGrey(value) {
				v.worklist.PushBailout(value)
			}
		})
		v.pages.SetProgressBar(obj, size)
		v.colors.GreyToBlack(obj)
		return VisitResult{SizeVisited: size, Done: true}
	}

	v.pages.SetProgressBar(obj, end)
	if end >= size {
		v.colors.GreyToBlack(obj)
		return VisitResult{SizeVisited: scannedThisStep, Done: true}
	}

	// Re-push the object so a subsequent step resumes scanning; under
	// concurrent mode use the bailout queue (spec §4.3).
	if v.concurrent {
		v.worklist.PushBailout(obj)
	} else {
		v.worklist.Push(obj)
	}
	return VisitResult{SizeVisited: scannedThisStep, Done: false}
}

// FinalizeNativeContext implements the "native context special case" of
// spec §4.3: the normalized-map cache slot is colored grey but never
// pushed; Hurry (spec §4.7) later blackens it in one sweep.
func (v *Visitor) FinalizeNativeContext(ctx NativeContext) {
	slot := ctx.NormalizedMapCacheSlot()
	if slot == 0 {
		return
	}
	v.colors.WhiteToGrey(slot)
}
