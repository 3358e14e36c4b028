package simheap

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/sigurn/crc16"

	incmark "github.com/domyhero/v8gc"
)

// Snapshot is a deterministic dump of a heap's object graph. Comparing a
// Snapshot taken before an UpdateMarkingWorklistAfterScavenge or
// NotifyLeftTrimming call with Verify afterwards detects corruption of
// the heap introduced by that call (the "dead entries" and "pages swept
// in-place" hazards of spec §2 component 8). No test in this module calls
// Dump or Verify.
type Snapshot struct {
	Bytes    []byte
	Checksum uint16
}

var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// Dump serializes every live (non-filler) object's address, size, and
// field values, in address order, and checksums the result with CRC-16/
// CCITT-FALSE via github.com/sigurn/crc16.
func Dump(h *Heap, colors *incmark.ColorStore) Snapshot {
	h.mu.Lock()
	addrs := make([]incmark.Object, 0, len(h.objects))
	for addr, o := range h.objects {
		if !o.filler {
			addrs = append(addrs, addr)
		}
	}
	h.mu.Unlock()
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	var buf bytes.Buffer
	for _, addr := range addrs {
		h.mu.Lock()
		o := h.objects[addr]
		size := o.size
		fields := append([]incmark.Object(nil), o.fields...)
		h.mu.Unlock()

		binary.Write(&buf, binary.LittleEndian, uint64(addr))
		binary.Write(&buf, binary.LittleEndian, uint64(size))
		buf.WriteByte(boolToByte(colors.IsBlack(addr)))
		for _, f := range fields {
			binary.Write(&buf, binary.LittleEndian, uint64(f))
		}
	}

	data := buf.Bytes()
	return Snapshot{Bytes: data, Checksum: crc16.Checksum(data, crcTable)}
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// Verify reports whether a prior Snapshot's checksum still matches a
// freshly computed dump of h, returning a descriptive error if not.
func Verify(h *Heap, colors *incmark.ColorStore, want Snapshot) error {
	got := Dump(h, colors)
	if got.Checksum != want.Checksum {
		return fmt.Errorf("simheap: snapshot checksum mismatch: want %#04x got %#04x", want.Checksum, got.Checksum)
	}
	return nil
}
