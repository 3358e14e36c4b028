// Package incmark implements the control logic of an incremental,
// tri-color mark phase for a managed object heap: the mark-bit store, the
// marking worklist, the marking visitor, the write-barrier contract, the
// incremental marker controller's state machine and step scheduler, the
// black-allocation optimization, the finalization handshake, and the
// young-generation scavenge integration.
//
// The actual heap allocator, the mark-sweep collector that consumes the
// produced mark bits, the young-generation scavenger, the embedder
// tracer, and the concurrent-marker worker pool are peers this package
// consumes through narrow interfaces (see peers.go); package simheap
// supplies a reference implementation of those peers for tests and the
// cmd/gcdemo harness.
package incmark
