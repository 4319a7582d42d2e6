// Package scramble implements the CCSDS pseudo-randomizer,
// h(x) = x^8 + x^7 + x^5 + x^3 + 1, seeded with all ones.
package scramble

// Period of the sequence in bytes.
const Period = 255

var sequence [Period]byte

func init() {
	state := byte(0xFF)
	for idx := range sequence {
		var v byte
		for bit := 0; bit < 8; bit++ {
			v = v<<1 | state&1
			fb := (state ^ state>>3 ^ state>>5 ^ state>>7) & 1
			state = state>>1 | fb<<7
		}
		sequence[idx] = v
	}
}

// Sequence returns a copy of one period of the sequence.
func Sequence() (s [Period]byte) {
	return sequence
}

// Apply XORs buf with the sequence starting from its first byte.
// Applying twice restores the input.
func Apply(buf []byte) {
	for idx := range buf {
		buf[idx] ^= sequence[idx%Period]
	}
}
