package incmark_test

import (
	"testing"

	incmark "github.com/domyhero/v8gc"
	"github.com/domyhero/v8gc/simheap"
)

// TestScavengeForwardsBlackSurvivor is scenario S5 of spec §8: a Black
// worklist entry that was evacuated out of from-space is rewritten to its
// forwarding address; the color itself (already Black) is untouched by
// this table, only the worklist entry moves.
func TestScavengeForwardsBlackSurvivor(t *testing.T) {
	colors := incmark.NewColorStore()
	heap := simheap.New(colors)
	worklist := incmark.NewWorklist(0)
	visitor := incmark.NewVisitor(colors, worklist, heap, nil, heap, false)
	barrier := incmark.NewWriteBarrier(colors, worklist, nil)
	roots := simheap.NewRootSet(&[]incmark.Object{})
	ctrl := incmark.NewController(incmark.DefaultTuning(), colors, worklist, visitor, barrier, roots, nil)
	ctrl.SetPeers(heap, nil, &simheap.EmbedderTracer{}, nil, &simheap.StackGuard{}, &simheap.StubsRegistry{})

	structMap := incmark.Object(1)
	heap.RegisterDescriptor(structMap, simheap.NewFieldDescriptor(heap, 16))
	survivor := heap.Alloc(structMap, 16, 1, false)
	colors.WhiteToBlack(survivor)
	worklist.Push(survivor)

	// A stale root left in from-space with no forwarding address is dead
	// and must drop silently rather than be rewritten.
	dead := heap.Alloc(structMap, 16, 1, false)
	worklist.Push(dead)

	to := heap.Alloc(structMap, 16, 1, false)
	q := simheap.NewScavengeState(heap)
	q.MarkFromSpace(survivor, to)
	q.MarkFromSpace(dead, 0)

	ctrl.UpdateMarkingWorklistAfterScavenge(q)

	seen := map[incmark.Object]bool{}
	for {
		o, ok := worklist.Pop()
		if !ok {
			break
		}
		seen[o] = true
	}
	if !seen[to] {
		t.Fatalf("survivor should have been rewritten to its forwarding address %d, got %v", to, seen)
	}
	if seen[survivor] {
		t.Fatalf("the pre-evacuation address should not remain in the worklist")
	}
	if seen[dead] {
		t.Fatalf("an unforwarded from-space entry should be dropped, not kept")
	}
}

// TestScavengeKeepsSweepToIterateEntryOnlyIfExternallyGrey is scenario S5's
// second row of spec §8's table: an entry on a sweep-to-iterate page
// (to-space or old-space) is kept only if externally-grey bookkeeping says
// so, independent of from-space membership.
func TestScavengeKeepsSweepToIterateEntryOnlyIfExternallyGrey(t *testing.T) {
	colors := incmark.NewColorStore()
	heap := simheap.New(colors)
	worklist := incmark.NewWorklist(0)
	visitor := incmark.NewVisitor(colors, worklist, heap, nil, heap, false)
	barrier := incmark.NewWriteBarrier(colors, worklist, nil)
	roots := simheap.NewRootSet(&[]incmark.Object{})
	ctrl := incmark.NewController(incmark.DefaultTuning(), colors, worklist, visitor, barrier, roots, nil)
	ctrl.SetPeers(heap, nil, &simheap.EmbedderTracer{}, nil, &simheap.StackGuard{}, &simheap.StubsRegistry{})

	structMap := incmark.Object(1)
	heap.RegisterDescriptor(structMap, simheap.NewFieldDescriptor(heap, 16))
	kept := heap.Alloc(structMap, 16, 1, false)
	dropped := heap.Alloc(structMap, 16, 1, false)
	worklist.Push(kept)
	worklist.Push(dropped)

	q := simheap.NewScavengeState(heap)
	q.MarkSweepToIterate(kept)
	q.SetExternallyGrey(kept, true)
	q.MarkSweepToIterate(dropped)
	q.SetExternallyGrey(dropped, false)

	ctrl.UpdateMarkingWorklistAfterScavenge(q)

	seen := map[incmark.Object]bool{}
	for {
		o, ok := worklist.Pop()
		if !ok {
			break
		}
		seen[o] = true
	}
	if !seen[kept] {
		t.Fatalf("the externally-grey sweep-to-iterate entry should survive")
	}
	if seen[dropped] {
		t.Fatalf("the non-grey sweep-to-iterate entry should be dropped")
	}
}

// TestLeftTrimPreservesBlackAcrossShift is scenario S4 of spec §8: trimming
// a Black array's head must carry Black to the new head address, whether
// or not the mark-bit words overlap.
func TestLeftTrimPreservesBlackAcrossShift(t *testing.T) {
	colors := incmark.NewColorStore()
	worklist := incmark.NewWorklist(0)
	heap := simheap.New(colors)
	visitor := incmark.NewVisitor(colors, worklist, heap, nil, heap, false)
	barrier := incmark.NewWriteBarrier(colors, worklist, nil)
	roots := simheap.NewRootSet(&[]incmark.Object{})
	ctrl := incmark.NewController(incmark.DefaultTuning(), colors, worklist, visitor, barrier, roots, nil)

	structMap := incmark.Object(1)
	heap.RegisterDescriptor(structMap, simheap.NewFieldDescriptor(heap, 16))
	from := heap.Alloc(structMap, 16, 1, false)
	to := heap.Alloc(structMap, 16, 1, false)
	colors.WhiteToBlack(from)

	q := simheap.NewLeftTrimState()
	q.MarkOverlap(from, to)
	ctrl.NotifyLeftTrimming(from, to, q)

	if !colors.IsBlack(to) {
		t.Fatalf("trimmed head should carry Black to the new address, got %v", to)
	}
}

// TestLeftTrimPreservesGreyAndRequeues covers the Grey row of the same
// table: the new head must become Grey and be pushed back onto the
// worklist so it still gets scanned.
func TestLeftTrimPreservesGreyAndRequeues(t *testing.T) {
	colors := incmark.NewColorStore()
	worklist := incmark.NewWorklist(0)
	heap := simheap.New(colors)
	visitor := incmark.NewVisitor(colors, worklist, heap, nil, heap, false)
	barrier := incmark.NewWriteBarrier(colors, worklist, nil)
	roots := simheap.NewRootSet(&[]incmark.Object{})
	ctrl := incmark.NewController(incmark.DefaultTuning(), colors, worklist, visitor, barrier, roots, nil)

	structMap := incmark.Object(1)
	heap.RegisterDescriptor(structMap, simheap.NewFieldDescriptor(heap, 16))
	from := heap.Alloc(structMap, 16, 1, false)
	to := heap.Alloc(structMap, 16, 1, false)
	colors.WhiteToGrey(from)

	q := simheap.NewLeftTrimState()
	ctrl.NotifyLeftTrimming(from, to, q)

	if !colors.IsGrey(to) {
		t.Fatalf("trimmed head should carry Grey to the new address, got %v", to)
	}
	o, ok := worklist.Pop()
	if !ok || o != to {
		t.Fatalf("the new head should have been re-enqueued for scanning")
	}
}

// TestLeftTrimSkipsBlackAllocationArea covers the early-return row: if the
// destination already lies in the black-allocation area, no color
// transfer happens at all.
func TestLeftTrimSkipsBlackAllocationArea(t *testing.T) {
	colors := incmark.NewColorStore()
	worklist := incmark.NewWorklist(0)
	heap := simheap.New(colors)
	visitor := incmark.NewVisitor(colors, worklist, heap, nil, heap, false)
	barrier := incmark.NewWriteBarrier(colors, worklist, nil)
	roots := simheap.NewRootSet(&[]incmark.Object{})
	ctrl := incmark.NewController(incmark.DefaultTuning(), colors, worklist, visitor, barrier, roots, nil)

	structMap := incmark.Object(1)
	heap.RegisterDescriptor(structMap, simheap.NewFieldDescriptor(heap, 16))
	from := heap.Alloc(structMap, 16, 1, false)
	to := heap.Alloc(structMap, 16, 1, false)
	colors.WhiteToBlack(from)

	q := simheap.NewLeftTrimState()
	q.MarkBlackAllocationArea(to)
	ctrl.NotifyLeftTrimming(from, to, q)

	if !colors.IsWhite(to) {
		t.Fatalf("destination in the black-allocation area should be left untouched, got %v", to)
	}
}
