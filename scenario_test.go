package incmark_test

import (
	"testing"

	incmark "github.com/domyhero/v8gc"
	"github.com/domyhero/v8gc/simheap"
)

func newTestController(t *testing.T, tuning incmark.Tuning) (*incmark.Controller, *simheap.Heap, *incmark.ColorStore, *[]incmark.Object, *incmark.WriteBarrier) {
	t.Helper()
	colors := incmark.NewColorStore()
	heap := simheap.New(colors)
	worklist := incmark.NewWorklist(0)
	compactor := simheap.NewCompactor(false)
	visitor := incmark.NewVisitor(colors, worklist, heap, compactor, heap, false)
	barrier := incmark.NewWriteBarrier(colors, worklist, compactor)

	roots := []incmark.Object{}
	rootSet := simheap.NewRootSet(&roots)

	ctrl := incmark.NewController(tuning, colors, worklist, visitor, barrier, rootSet, nil)
	ctrl.SetPeers(heap, compactor, &simheap.EmbedderTracer{}, nil, &simheap.StackGuard{}, &simheap.StubsRegistry{})
	return ctrl, heap, colors, &roots, barrier
}

// TestSimpleCycle is scenario S1 of spec §8: A->B->A, all White, root={A}.
// Driving Step to completion should blacken both A and B and leave the
// worklist empty.
func TestSimpleCycle(t *testing.T) {
	ctrl, heap, colors, roots, _ := newTestController(t, incmark.DefaultTuning())

	structMap := incmark.Object(1)
	heap.RegisterDescriptor(structMap, simheap.NewFieldDescriptor(heap, 16))
	a := heap.Alloc(structMap, 16, 1, false)
	b := heap.Alloc(structMap, 16, 1, false)
	heap.SetField(a, 0, b)
	heap.SetField(b, 0, a)
	*roots = []incmark.Object{a}

	ctrl.Start(incmark.ReasonTesting)
	ctrl.Step(1<<20, incmark.NoForceCompletion)

	if ctrl.State() != incmark.Complete {
		t.Fatalf("state = %v, want COMPLETE", ctrl.State())
	}
	if !colors.IsBlack(a) || !colors.IsBlack(b) {
		t.Fatalf("both A and B should be Black, got A=%v B=%v", colors.IsBlack(a), colors.IsBlack(b))
	}
}

// TestBarrierCatchesBlackToWhiteStore is scenario S2 of spec §8: once A
// is Black, a mutator store of a White, otherwise-unreachable C into A
// must grey C immediately, and a subsequent Step must blacken it. Had
// the barrier been a no-op, C would stay White and be reclaimable.
func TestBarrierCatchesBlackToWhiteStore(t *testing.T) {
	colors := incmark.NewColorStore()
	heap := simheap.New(colors)
	worklist := incmark.NewWorklist(0)
	compactor := simheap.NewCompactor(false)
	visitor := incmark.NewVisitor(colors, worklist, heap, compactor, heap, false)
	barrier := incmark.NewWriteBarrier(colors, worklist, compactor)

	structMap := incmark.Object(1)
	heap.RegisterDescriptor(structMap, simheap.NewFieldDescriptor(heap, 16))
	a := heap.Alloc(structMap, 16, 1, false)

	// A Black after first step: drain the root directly with the
	// visitor, as the controller would on its first Step.
	colors.WhiteToGrey(a)
	worklist.Push(a)
	for {
		o, ok := worklist.Pop()
		if !ok {
			break
		}
		visitor.Visit(o)
	}
	if !colors.IsBlack(a) {
		t.Fatalf("A should be Black after the first drain")
	}

	c := heap.Alloc(structMap, 16, 1, false)
	if !colors.IsWhite(c) {
		t.Fatalf("C should start White")
	}

	// Mutator executes A.field = C, where C is White and otherwise
	// unreachable (not rooted, not referenced elsewhere).
	slot := heap.SetField(a, 0, c)
	barrier.RecordWrite(a, slot, c)

	if !colors.IsGrey(c) {
		t.Fatalf("barrier should grey C immediately since its Black host A makes the write dangerous; had the barrier been a no-op, C would stay White and be reclaimable")
	}

	// Next Step (drain) blackens C.
	o, ok := worklist.Pop()
	if !ok || o != c {
		t.Fatalf("C should have been pushed by the barrier")
	}
	visitor.Visit(c)
	if !colors.IsBlack(c) {
		t.Fatalf("C should be Black after the next step drains it")
	}
}

// TestFinalizationRoundsConverge is scenario S6 of spec §8: the first
// finalization round discovers one newly-rooted grey object whose
// presence keeps progress at or above MIN_PROGRESS; the second round,
// finding nothing new, drops below MIN_PROGRESS and completes.
func TestFinalizationRoundsConverge(t *testing.T) {
	tuning := incmark.DefaultTuning()
	tuning.MinFinalizationProgress = 1

	ctrl, heap, colors, roots, _ := newTestController(t, tuning)

	structMap := incmark.Object(1)
	heap.RegisterDescriptor(structMap, simheap.NewFieldDescriptor(heap, 16))
	a := heap.Alloc(structMap, 16, 1, false)
	late := heap.Alloc(structMap, 16, 1, false)
	*roots = []incmark.Object{a}

	ctrl.Start(incmark.ReasonTesting)
	// Simulate the root set moving mid-cycle: by the time the first
	// finalization round re-marks roots, a second root has appeared.
	*roots = []incmark.Object{a, late}

	// Round 1: drains `a`, then FinalizeIncrementally discovers `late`
	// via the moved root set, keeping progress at MIN_PROGRESS.
	ctrl.Step(1<<20, incmark.NoForceCompletion)
	if ctrl.State() != incmark.Marking {
		t.Fatalf("state = %v, want MARKING after round 1 discovers a new root", ctrl.State())
	}

	// Round 2: drains `late`, then FinalizeIncrementally finds nothing
	// new, progress drops below MIN_PROGRESS, and MarkingComplete fires.
	ctrl.Step(1<<20, incmark.NoForceCompletion)

	if !colors.IsBlack(a) || !colors.IsBlack(late) {
		t.Fatalf("both roots should end Black, got a=%v late=%v", colors.IsBlack(a), colors.IsBlack(late))
	}
	if ctrl.State() != incmark.Complete {
		t.Fatalf("state = %v, want COMPLETE once the second round finds nothing new", ctrl.State())
	}
}
