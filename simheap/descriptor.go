package simheap

import incmark "github.com/domyhero/v8gc"

const pointerSize = 8

// FieldDescriptor is a fixed-size TypeDescriptor: every object using it
// reports the same size, and its pointer fields are the object's own
// field slots (as many as it was allocated with), laid out at
// i*pointerSize. It is the "struct" shape in V8's map vocabulary (spec
// §4.3 leaf functions size_of/scan).
type FieldDescriptor struct {
	heap *Heap
	size uintptr
}

// NewFieldDescriptor returns a descriptor reporting a fixed size for
// every object that uses it.
func NewFieldDescriptor(h *Heap, size uintptr) *FieldDescriptor {
	return &FieldDescriptor{heap: h, size: size}
}

func (d *FieldDescriptor) SizeOf(incmark.Object) uintptr { return d.size }

func (d *FieldDescriptor) Scan(obj incmark.Object, fn func(slot uintptr, value incmark.Object)) {
	d.heap.mu.Lock()
	o := d.heap.objects[obj]
	fields := append([]incmark.Object(nil), o.fields...)
	d.heap.mu.Unlock()
	for i, v := range fields {
		fn(uintptr(obj)*1024+uintptr(i)*pointerSize, v)
	}
}

func (d *FieldDescriptor) ScanRange(obj incmark.Object, start, end uintptr, fn func(slot uintptr, value incmark.Object)) {
	d.heap.mu.Lock()
	o := d.heap.objects[obj]
	fields := append([]incmark.Object(nil), o.fields...)
	d.heap.mu.Unlock()
	lo := int(start / pointerSize)
	hi := int(end / pointerSize)
	if hi > len(fields) {
		hi = len(fields)
	}
	for i := lo; i < hi; i++ {
		fn(uintptr(obj)*1024+uintptr(i)*pointerSize, fields[i])
	}
}

// ArrayDescriptor is the large-backing-array shape of spec §4.3: its size
// is len(fields)*pointerSize and ScanRange honors [start, end) rather
// than scanning the whole array, which is what lets Heap.EnableProgressBar
// objects resume across steps.
type ArrayDescriptor struct {
	heap *Heap
}

// NewArrayDescriptor returns a descriptor for variable-length pointer
// arrays.
func NewArrayDescriptor(h *Heap) *ArrayDescriptor { return &ArrayDescriptor{heap: h} }

func (d *ArrayDescriptor) SizeOf(obj incmark.Object) uintptr {
	d.heap.mu.Lock()
	defer d.heap.mu.Unlock()
	return uintptr(len(d.heap.objects[obj].fields)) * pointerSize
}

func (d *ArrayDescriptor) Scan(obj incmark.Object, fn func(slot uintptr, value incmark.Object)) {
	size := d.SizeOf(obj)
	d.ScanRange(obj, 0, size, fn)
}

func (d *ArrayDescriptor) ScanRange(obj incmark.Object, start, end uintptr, fn func(slot uintptr, value incmark.Object)) {
	d.heap.mu.Lock()
	o := d.heap.objects[obj]
	fields := append([]incmark.Object(nil), o.fields...)
	d.heap.mu.Unlock()
	lo := int(start / pointerSize)
	hi := int(end / pointerSize)
	if hi > len(fields) {
		hi = len(fields)
	}
	for i := lo; i < hi; i++ {
		fn(uintptr(obj)*1024+uintptr(i)*pointerSize, fields[i])
	}
}
