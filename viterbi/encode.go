package viterbi

import "github.com/bemasher/lrpt/bitio"

// Rate 1/2, constraint length 7 code. Taps are bit-reversed with respect to
// the usual octal notation 171/133 (0o117/0o155 here), with the newest bit
// in the least significant position.
const (
	K     = 7
	Poly1 = 0x4F
	Poly2 = 0x6D

	States = 1 << K
)

// outputs holds the coded bit pair produced when the shift register holds
// r, first symbol in bit 0.
var outputs [States]byte

func init() {
	for r := range outputs {
		outputs[r] = parity(r&Poly1) | parity(r&Poly2)<<1
	}
}

func parity(v int) (p byte) {
	for ; v != 0; v >>= 1 {
		p ^= byte(v & 1)
	}
	return
}

// Encoder is the convolutional encoder matching Decoder. The register is
// carried across calls.
type Encoder struct {
	state byte
}

func (e *Encoder) Reset() {
	e.state = 0
}

func (e *Encoder) State() byte {
	return e.state
}

// EncodeBit shifts in one data bit and returns the two coded bits, first
// symbol in bit 0.
func (e *Encoder) EncodeBit(bit byte) byte {
	e.state = (e.state<<1 | bit&1) & (States - 1)
	return outputs[e.state]
}

// Encode returns data encoded MSB-first, two coded bits per data bit packed
// MSB-first with the first symbol of each pair leading.
func (e *Encoder) Encode(data []byte) []byte {
	coded := make([]byte, len(data)<<1)

	r := bitio.NewReader(data)
	w := bitio.NewWriter(coded)
	for r.Remaining() > 0 {
		o := e.EncodeBit(byte(r.Fetch(1)))
		w.WriteBit(o)
		w.WriteBit(o >> 1)
	}

	return coded
}
