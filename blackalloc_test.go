package incmark_test

import (
	"testing"

	incmark "github.com/domyhero/v8gc"
	"github.com/domyhero/v8gc/simheap"
)

// TestBlackAllocationSoundness exercises Testable Property 4 (spec §4.6):
// once black allocation is enabled, every newly allocated heap object must
// be Black immediately upon return from the allocator, with no White/Grey
// window a concurrent worker or the write barrier could observe; pausing
// must suppress that behavior and resuming must restore it.
func TestBlackAllocationSoundness(t *testing.T) {
	colors := incmark.NewColorStore()
	heap := simheap.New(colors)
	worklist := incmark.NewWorklist(0)
	compactor := simheap.NewCompactor(false)
	visitor := incmark.NewVisitor(colors, worklist, heap, compactor, heap, false)
	barrier := incmark.NewWriteBarrier(colors, worklist, compactor)

	structMap := incmark.Object(1)
	heap.RegisterDescriptor(structMap, simheap.NewFieldDescriptor(heap, 16))
	root := heap.Alloc(structMap, 16, 0, false)
	roots := []incmark.Object{root}
	rootSet := simheap.NewRootSet(&roots)

	ctrl := incmark.NewController(incmark.DefaultTuning(), colors, worklist, visitor, barrier, rootSet, nil)
	ctrl.SetPeers(heap, compactor, &simheap.EmbedderTracer{}, nil, &simheap.StackGuard{}, &simheap.StubsRegistry{})

	if ctrl.IsBlackAllocationEnabled() {
		t.Fatalf("black allocation should start disabled")
	}

	// Drive one finalization round: ProcessMarkingWorklist blackens root,
	// the worklist empties, and FinalizeIncrementally flips
	// eligibleForBlackAllocation once incrementalMarkingFinalizationRounds
	// reaches 1 (spec §4.6).
	ctrl.Start(incmark.ReasonTesting)
	ctrl.Step(1<<20, incmark.NoForceCompletion)

	if !ctrl.IsBlackAllocationEnabled() {
		t.Fatalf("black allocation should be eligible and enabled after the first finalization round")
	}

	fresh := heap.Alloc(structMap, 16, 0, false)
	if !colors.IsWhite(fresh) {
		t.Fatalf("sanity check: a freshly allocated object should start White before AllocateBlack runs")
	}

	ctrl.AllocateBlack(fresh)
	if !colors.IsBlack(fresh) {
		t.Fatalf("newly allocated object should be Black immediately upon return from the allocator once black allocation is enabled")
	}

	was := ctrl.PauseBlackAllocation()
	if !was {
		t.Fatalf("PauseBlackAllocation should report the prior enabled state")
	}
	if ctrl.IsBlackAllocationEnabled() {
		t.Fatalf("black allocation should be paused")
	}
	paused := heap.Alloc(structMap, 16, 0, false)
	ctrl.AllocateBlack(paused)
	if !colors.IsWhite(paused) {
		t.Fatalf("AllocateBlack should be a no-op while black allocation is paused")
	}

	ctrl.ResumeBlackAllocation(was)
	if !ctrl.IsBlackAllocationEnabled() {
		t.Fatalf("black allocation should resume to its pre-pause state")
	}
}

// TestReviseBlackAllocatedScansChildrenOfBlackAllocatedParent exercises
// blackalloc.go's closing paragraph (spec §4.6): a black-allocated parent
// bypasses the normal coloring path, so once a child is wired in, the
// controller must still be able to walk it via ReviseBlackAllocated rather
// than leaving it unreachable from the marker's worklist.
func TestReviseBlackAllocatedScansChildrenOfBlackAllocatedParent(t *testing.T) {
	colors := incmark.NewColorStore()
	heap := simheap.New(colors)
	worklist := incmark.NewWorklist(0)
	compactor := simheap.NewCompactor(false)
	visitor := incmark.NewVisitor(colors, worklist, heap, compactor, heap, false)
	barrier := incmark.NewWriteBarrier(colors, worklist, compactor)
	roots := simheap.NewRootSet(&[]incmark.Object{})

	ctrl := incmark.NewController(incmark.DefaultTuning(), colors, worklist, visitor, barrier, roots, nil)
	ctrl.SetPeers(heap, compactor, &simheap.EmbedderTracer{}, nil, &simheap.StackGuard{}, &simheap.StubsRegistry{})

	structMap := incmark.Object(1)
	heap.RegisterDescriptor(structMap, simheap.NewFieldDescriptor(heap, 16))
	parent := heap.Alloc(structMap, 16, 1, false)

	ctrl.Start(incmark.ReasonTesting)
	ctrl.Step(1<<20, incmark.NoForceCompletion)
	if !ctrl.IsBlackAllocationEnabled() {
		t.Fatalf("black allocation should be enabled after the first finalization round")
	}

	ctrl.AllocateBlack(parent)
	if !colors.IsBlack(parent) {
		t.Fatalf("parent should be Black")
	}

	child := heap.Alloc(structMap, 16, 0, false)
	heap.SetField(parent, 0, child)

	ctrl.ReviseBlackAllocated(parent)

	if !colors.IsGrey(child) {
		t.Fatalf("ReviseBlackAllocated should grey the newly wired child of a black-allocated parent")
	}
	o, ok := worklist.Pop()
	if !ok || o != child {
		t.Fatalf("child should have been pushed onto the worklist")
	}
}
