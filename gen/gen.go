// Package gen synthesizes LRPT soft symbol streams for testing.
package gen

import (
	"encoding/binary"
	"math"
	"math/rand"

	"github.com/bemasher/lrpt/correlate"
	"github.com/bemasher/lrpt/rs"
	"github.com/bemasher/lrpt/scramble"
	"github.com/bemasher/lrpt/vcdu"
	"github.com/bemasher/lrpt/viterbi"
)

const SecondaryHeaderLength = 8

// NewPacket builds an unsegmented source packet with a day segmented time
// code secondary header followed by data.
func NewPacket(apid, seq uint16, day uint16, millis uint32, micros uint16, data []byte) []byte {
	pkt := make([]byte, vcdu.PacketHeaderLength+SecondaryHeaderLength+len(data))

	vcdu.PacketHeader{
		SecondaryHeader: true,
		APID:            apid,
		SeqFlags:        vcdu.Unsegmented,
		SeqCount:        seq,
		Length:          uint16(len(pkt) - vcdu.PacketHeaderLength - 1),
	}.Put(pkt)

	field := pkt[vcdu.PacketHeaderLength:]
	binary.BigEndian.PutUint16(field[0:], day)
	binary.BigEndian.PutUint32(field[2:], millis)
	binary.BigEndian.PutUint16(field[6:], micros)
	copy(field[SecondaryHeaderLength:], data)

	return pkt
}

// NewIdlePacket builds an idle packet n bytes long, n >= 7.
func NewIdlePacket(n int) []byte {
	pkt := make([]byte, n)
	vcdu.PacketHeader{
		APID:     vcdu.IdleAPID,
		SeqFlags: vcdu.Unsegmented,
		Length:   uint16(n - vcdu.PacketHeaderLength - 1),
	}.Put(pkt)
	return pkt
}

// Multiplex packs packets back to back into VCDU packet zones, padding the
// last zone with an idle packet. Each VCDU takes hdr with its counter
// incremented and the first header pointer set.
func Multiplex(hdr vcdu.Header, packets ...[]byte) (frames [][]byte) {
	var stream []byte
	starts := map[int]bool{}
	for _, pkt := range packets {
		starts[len(stream)] = true
		stream = append(stream, pkt...)
	}

	if rem := len(stream) % vcdu.ZoneLength; rem != 0 {
		pad := vcdu.ZoneLength - rem
		if pad < vcdu.PacketHeaderLength+1 {
			pad += vcdu.ZoneLength
		}
		starts[len(stream)] = true
		stream = append(stream, NewIdlePacket(pad)...)
	}

	for zone := 0; zone < len(stream); zone += vcdu.ZoneLength {
		h := hdr
		h.Counter = (hdr.Counter + uint32(len(frames))) & vcdu.CounterMask
		h.FirstHeader = vcdu.NoHeader
		for pos := zone; pos < zone+vcdu.ZoneLength; pos++ {
			if starts[pos] {
				h.FirstHeader = uint16(pos - zone)
				break
			}
		}

		frame := make([]byte, vcdu.Length)
		h.Put(frame)
		copy(frame[vcdu.ZoneOffset:], stream[zone:zone+vcdu.ZoneLength])
		frames = append(frames, frame)
	}

	return
}

// FrameEncoder wraps VCDUs into randomized, Reed-Solomon protected
// channel access data units.
type FrameEncoder struct {
	codec *rs.Codec
	depth int
}

func NewFrameEncoder(depth int, dualBasis bool) FrameEncoder {
	return FrameEncoder{rs.NewCodec(dualBasis), depth}
}

// Encode returns the hard frame for data, which holds depth*223 bytes.
func (fe FrameEncoder) Encode(data []byte) []byte {
	frame := make([]byte, 4+fe.depth*rs.N)
	binary.BigEndian.PutUint32(frame, correlate.SyncMarker)

	payload := frame[4:]
	cw := make([]byte, rs.N)
	for idx := 0; idx < fe.depth; idx++ {
		rs.Deinterleave(cw[:rs.K], data, idx, fe.depth)
		if err := fe.codec.Encode(cw[:rs.K], cw[rs.K:], 0); err != nil {
			panic(err)
		}
		rs.Interleave(payload, cw, idx, fe.depth)
	}
	scramble.Apply(payload)

	return frame
}

func UnpackBits(data []byte) []byte {
	bits := make([]byte, len(data)<<3)

	for idx, b := range data {
		offset := idx << 3
		for bit := 7; bit >= 0; bit-- {
			bits[offset+(7-bit)] = (b >> uint8(bit)) & 0x01
		}
	}

	return bits
}

// Modulator turns hard frames into soft symbols. The convolutional encoder
// runs continuously across calls, as on the downlink.
type Modulator struct {
	Amplitude float64
	Sigma     float64 // noise standard deviation
	Pattern   int     // phase and IQ ambiguity, see correlate
	Rand      *rand.Rand

	enc viterbi.Encoder
}

func (m *Modulator) Modulate(hard []byte) []byte {
	soft := UnpackBits(m.enc.Encode(hard))

	for idx, bit := range soft {
		v := m.Amplitude
		if bit == 1 {
			v = -v
		}
		if m.Sigma > 0 {
			v += m.Rand.NormFloat64() * m.Sigma
		}
		soft[idx] = clamp(v)
	}

	Channel(soft, m.Pattern)
	return soft
}

// Channel applies the phase rotation and IQ exchange that correlate
// reports as pattern.
func Channel(soft []byte, pattern int) {
	n := len(soft) &^ 1
	for r := 0; r < pattern%4; r++ {
		for idx := 0; idx < n; idx += 2 {
			soft[idx], soft[idx+1] = negate(soft[idx+1]), soft[idx]
		}
	}
	if pattern >= 4 {
		for idx := 0; idx < n; idx += 2 {
			soft[idx], soft[idx+1] = soft[idx+1], soft[idx]
		}
	}
}

// Noise returns n uniformly random soft symbols.
func Noise(n int, r *rand.Rand) []byte {
	noise := make([]byte, n)
	r.Read(noise)
	return noise
}

func clamp(v float64) byte {
	v = math.Max(-128, math.Min(127, math.Round(v)))
	return byte(int8(v))
}

func negate(s byte) byte {
	if s == 0x80 {
		return 0x7F
	}
	return byte(-int8(s))
}
