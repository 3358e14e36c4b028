// Package concurrentmark implements the concurrent-marker worker pool
// spec.md §1 lists as out of scope for the core: independent goroutines
// that drain the shared marking worklist in parallel with the mutator,
// using the bailout queue to hand back work they cannot finish.
//
// Grounded on the goroutine/channel worker-pool shape of
// tangzhangming-nova's gc_concurrent.go and the atomic color CAS idiom of
// LgDiscovery-Stellaris's gc_tri_color_demo.go from the retrieval pack.
package concurrentmark

import (
	"sync"
	"time"

	incmark "github.com/domyhero/v8gc"
)

// Pool is a fixed-size set of background marking workers satisfying
// incmark.ConcurrentMarker.
type Pool struct {
	mu       sync.Mutex
	size     int
	running  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
	scanFn   func(incmark.Object) bool // false when the worklist was empty
	nextFn   func() (incmark.Object, bool)
}

// New returns a Pool with the given worker count. scan visits one object
// popped from the shared worklist (including the bailout queue) and
// reports whether it found work to do; it is expected to call
// Visitor.Visit and push any bailout objects itself.
func New(size int, next func() (incmark.Object, bool), scan func(incmark.Object) bool) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{size: size, nextFn: next, scanFn: scan}
}

// ScheduleTasks starts the worker goroutines if they are not already
// running (incmark.ConcurrentMarker).
func (p *Pool) ScheduleTasks() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stop := p.stopCh
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(stop)
	}
}

// RescheduleTasksIfNeeded (incmark.ConcurrentMarker) starts no new
// workers in this pool: workers keep polling the worklist until Stop, so
// while the pool is running there is nothing to restart, and after Stop
// it returns without scheduling.
func (p *Pool) RescheduleTasksIfNeeded() {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()
	if !running {
		return
	}
	p.ScheduleTasks()
}

// Stop requests every worker to terminate at its next suspension point
// (spec §5 "Suspension points") and does not block.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.running = false
	p.mu.Unlock()
}

// Wait blocks until every worker goroutine has observed the stop request
// and exited. Exposed for tests and for a clean cmd/gcdemo shutdown; the
// controller itself never blocks (spec §5).
func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) worker(stop <-chan struct{}) {
	defer p.wg.Done()
	for {
		select {
		case <-stop:
			return
		default:
		}
		obj, ok := p.nextFn()
		if !ok {
			// Worklist empty: suspend briefly rather than busy-spin
			// (spec §5 "Background workers suspend ... at queue-empty").
			select {
			case <-stop:
				return
			case <-time.After(time.Millisecond):
			}
			continue
		}
		p.scanFn(obj)
	}
}
