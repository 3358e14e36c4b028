package concurrentmark

import (
	"testing"
	"time"

	incmark "github.com/domyhero/v8gc"
	"github.com/domyhero/v8gc/simheap"
)

// TestPoolDrainsWorklistConcurrently exercises the concurrent marking model
// of spec §5: independent background workers pop from the shared worklist
// and visit objects in parallel with the (here, idle) mutator, driving the
// marking color store to the same fixed point a single-threaded drain
// would reach.
func TestPoolDrainsWorklistConcurrently(t *testing.T) {
	colors := incmark.NewColorStore()
	heap := simheap.New(colors)
	worklist := incmark.NewWorklist(0)
	visitor := incmark.NewVisitor(colors, worklist, heap, nil, heap, true)

	structMap := incmark.Object(1)
	heap.RegisterDescriptor(structMap, simheap.NewFieldDescriptor(heap, 8))

	const n = 50
	objs := make([]incmark.Object, n)
	for i := range objs {
		objs[i] = heap.Alloc(structMap, 8, 0, false)
		colors.WhiteToGrey(objs[i])
		worklist.Push(objs[i])
	}

	pool := New(4, worklist.Pop, func(o incmark.Object) bool {
		visitor.Visit(o)
		return true
	})
	pool.ScheduleTasks()

	deadline := time.Now().Add(2 * time.Second)
	for !worklist.IsEmpty() {
		if time.Now().After(deadline) {
			pool.Stop()
			pool.Wait()
			t.Fatalf("worklist did not drain within the deadline")
		}
		time.Sleep(time.Millisecond)
	}

	pool.Stop()
	pool.Wait()

	for _, o := range objs {
		if !colors.IsBlack(o) {
			t.Fatalf("object %d should be Black after concurrent draining", o)
		}
	}
}

// TestPoolStopIsIdempotentAndDoesNotBlock exercises the suspension-point
// contract of spec §5: Stop must be safe to call on a pool with no
// scheduled tasks and must not block the caller.
func TestPoolStopIsIdempotentAndDoesNotBlock(t *testing.T) {
	pool := New(2, func() (incmark.Object, bool) { return 0, false }, func(incmark.Object) bool { return false })
	pool.Stop()
	pool.Stop()

	pool.ScheduleTasks()
	pool.Stop()
	pool.Wait()
}
