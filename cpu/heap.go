package cpu

const (
	HEAP_LIMIT = 16 << 20 // Maximum heap size in bytes
)

// Heap is the byte addressed, zero-filled data memory grown by ALLOC.
type Heap struct {
	Data []byte
}

// Alloc grows the heap by size zero bytes.
func (h *Heap) Alloc(size uint32) (err error) {
	end := uint64(len(h.Data)) + uint64(size)
	if end > HEAP_LIMIT {
		err = ErrHeapRange(end)
		return
	}

	h.Data = append(h.Data, make([]byte, size)...)
	return
}

// Set writes a byte at offset.
func (h *Heap) Set(offset uint32, value byte) (err error) {
	if uint64(offset) >= uint64(len(h.Data)) {
		err = ErrHeapRange(offset)
		return
	}

	h.Data[offset] = value
	return
}

// Get reads the byte at offset.
func (h *Heap) Get(offset uint32) (value byte, ok bool) {
	if uint64(offset) >= uint64(len(h.Data)) {
		return
	}

	return h.Data[offset], true
}

func (h *Heap) Len() int {
	return len(h.Data)
}

func (h *Heap) Reset() {
	if len(h.Data) > 0 {
		h.Data = h.Data[:0]
	}
}
