// Package bitio packs and unpacks MSB-first bit streams.
package bitio

var setBits [256]byte

func init() {
	for i := range setBits {
		setBits[i] = setBits[i>>1] + byte(i&1)
	}
}

// CountSetBits returns the number of ones in v.
func CountSetBits(v uint32) int {
	return int(setBits[v&0xFF]) +
		int(setBits[(v>>8)&0xFF]) +
		int(setBits[(v>>16)&0xFF]) +
		int(setBits[v>>24])
}

// Writer packs bits MSB-first into a destination slice. A partial byte is
// held until eight bits have accumulated, across any number of writes.
type Writer struct {
	dst  []byte
	n    int
	acc  byte
	bits uint
}

func NewWriter(dst []byte) *Writer {
	return &Writer{dst: dst}
}

// Reset discards pending bits and starts writing at the beginning of dst.
func (w *Writer) Reset(dst []byte) {
	w.dst = dst
	w.n = 0
	w.acc = 0
	w.bits = 0
}

// WriteBit appends the least significant bit of bit.
func (w *Writer) WriteBit(bit byte) {
	w.acc = w.acc<<1 | bit&1
	w.bits++
	if w.bits == 8 {
		w.dst[w.n] = w.acc
		w.n++
		w.acc = 0
		w.bits = 0
	}
}

// WriteBitsReversed appends count bits taken from src[count-1] down to
// src[0]. Each source byte carries one bit in its least significant position.
func (w *Writer) WriteBitsReversed(src []byte, count int) {
	for idx := count - 1; idx >= 0; idx-- {
		w.WriteBit(src[idx])
	}
}

// WriteBits appends the low n bits of v (n <= 32), most significant first.
func (w *Writer) WriteBits(v uint32, n int) {
	for shift := n - 1; shift >= 0; shift-- {
		w.WriteBit(byte(v >> uint(shift)))
	}
}

// Flush writes any partial byte, padding the low bits with zeros.
func (w *Writer) Flush() {
	if w.bits == 0 {
		return
	}
	w.dst[w.n] = w.acc << (8 - w.bits)
	w.n++
	w.acc = 0
	w.bits = 0
}

// Len returns the number of bits written.
func (w *Writer) Len() int {
	return w.n<<3 + int(w.bits)
}

// Bytes returns the completed bytes.
func (w *Writer) Bytes() []byte {
	return w.dst[:w.n]
}

// Reader extracts MSB-first bit fields from a byte slice.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Peek returns the next n bits (n <= 32) without advancing.
func (r *Reader) Peek(n int) (v uint32) {
	for idx := r.pos; idx < r.pos+n; idx++ {
		v = v<<1 | uint32(r.buf[idx>>3]>>(7-uint(idx&7)))&1
	}
	return
}

// Fetch returns the next n bits (n <= 32) and advances past them.
func (r *Reader) Fetch(n int) (v uint32) {
	v = r.Peek(n)
	r.pos += n
	return
}

func (r *Reader) Skip(n int) {
	r.pos += n
}

// Pos returns the current offset in bits.
func (r *Reader) Pos() int {
	return r.pos
}

// Remaining returns the number of unread bits.
func (r *Reader) Remaining() int {
	return len(r.buf)<<3 - r.pos
}
