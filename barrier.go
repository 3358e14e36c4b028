package incmark

// WriteBarrier implements spec §4.4: interposed on every pointer store
// from mutator code, it preserves the tri-color invariant and records
// slot locations for the compacting collector. It must never allocate and
// must be reentrant-safe (spec §5 "Reentrancy").
type WriteBarrier struct {
	colors             *ColorStore
	worklist           *Worklist
	compactor          Compactor
	concurrentMarking  bool
	compactingMode     bool
	// onRestart is invoked after every White->Grey transition the barrier
	// makes, so the controller can restart stepping if marking is paused
	// mid-cycle (spec §4.4 step 3); the hook decides whether to step. nil
	// is a valid no-op.
	onRestart func()
}

// NewWriteBarrier wires a WriteBarrier to the shared mark-bit store,
// worklist, and compactor.
func NewWriteBarrier(colors *ColorStore, worklist *Worklist, compactor Compactor) *WriteBarrier {
	return &WriteBarrier{colors: colors, worklist: worklist, compactor: compactor}
}

// SetConcurrentMarking toggles whether every write is conservatively
// treated as needing recording (spec §4.4 step 2 rationale). The
// controller flips this in lockstep with StartMarking/Stop.
func (b *WriteBarrier) SetConcurrentMarking(on bool) { b.concurrentMarking = on }

// SetCompacting toggles whether this cycle also compacts (spec §4.4 step
// 4); set once per cycle from Controller.isCompacting.
func (b *WriteBarrier) SetCompacting(on bool) { b.compactingMode = on }

// SetRestartHook installs the callback used to resume stepping after a
// paused-mid-cycle write (spec §4.4 step 3).
func (b *WriteBarrier) SetRestartHook(f func()) { b.onRestart = f }

// RecordWrite implements spec §4.4. host is the object being written into,
// slot is the address of the pointer field (0 if unavailable, e.g. a
// register-only store), and value is the new pointer value (0 if the
// stored value is not a heap object).
func (b *WriteBarrier) RecordWrite(host Object, slot uintptr, value Object) {
	if value == 0 {
		// Step 1: store target is not a heap object.
		return
	}

	needRecording := b.concurrentMarking || b.colors.IsBlack(host)
	if !needRecording {
		return
	}

	if b.colors.IsWhite(value) {
		if b.colors.WhiteToGrey(value) {
			b.worklist.Push(value)
			if b.onRestart != nil {
				b.onRestart()
			}
		}
	}

	if needRecording && b.compactingMode && slot != 0 && b.compactor != nil {
		b.compactor.RecordSlot(uintptr(host), slot, value)
	}
}

// RelocDescriptor identifies a code-target reference rewritten by the
// specialized code-target barrier instead of a pointer slot (spec §4.4
// "A specialized code-target barrier").
type RelocDescriptor uintptr

// RecordCodeTargetWrite is the code-target variant of RecordWrite: it
// rewrites an instruction reference rather than a pointer slot but
// follows the same coloring rules, using a relocation descriptor in place
// of a slot address.
func (b *WriteBarrier) RecordCodeTargetWrite(host Object, reloc RelocDescriptor, value Object) {
	if value == 0 {
		return
	}
	needRecording := b.concurrentMarking || b.colors.IsBlack(host)
	if !needRecording {
		return
	}
	if b.colors.IsWhite(value) {
		if b.colors.WhiteToGrey(value) {
			b.worklist.Push(value)
			if b.onRestart != nil {
				b.onRestart()
			}
		}
	}
	if needRecording && b.compactingMode && b.compactor != nil {
		b.compactor.RecordRelocSlot(host, uintptr(reloc), value)
	}
}
