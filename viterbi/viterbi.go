// Package viterbi implements soft decision maximum likelihood decoding of
// the K=7 rate 1/2 convolutional code.
//
// Soft symbols are signed bytes, negative values meaning a coded one. Two
// soft symbols make up one trellis step.
package viterbi

import (
	"github.com/bemasher/lrpt/bitio"
	"github.com/bemasher/lrpt/ring"
)

const (
	TracebackMin = 25  // steps walked before bits are trusted
	TracebackLen = 105 // bits emitted per traceback

	historyLen     = TracebackMin + TracebackLen
	renormInterval = 128

	// Magnitude of the QPSK reference points.
	softMag = 255

	// Initial metric of states unreachable from the zero state.
	unreachable = 1 << 30
)

// distance[s][bit] is the Manhattan distance from soft symbol s to the
// reference point of a coded bit.
var distance [256][2]uint32

func init() {
	for b := range distance {
		s := int(int8(b))
		distance[b][0] = uint32(abs(s - softMag))
		distance[b][1] = uint32(abs(s + softMag))
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Hard returns the hard decision for soft symbol s.
func Hard(s byte) byte {
	return s >> 7
}

type decisions [States]byte

// Decoder holds the trellis and traceback state. Buffers are allocated once
// and reset on every call to Decode.
type Decoder struct {
	metrics [2][States]uint32
	history *ring.Ring[decisions]
	chain   [historyLen]byte
	writer  *bitio.Writer
	encoder Encoder

	end byte // register at the close of the last decode
}

func NewDecoder() *Decoder {
	return &Decoder{
		history: ring.New[decisions](historyLen),
		writer:  bitio.NewWriter(nil),
	}
}

// Decode decodes len(soft)/2 trellis steps into out, one bit per step packed
// MSB-first, and returns the estimated channel bit error rate in percent.
// The encoder is assumed to start in the zero state. Decoding always
// completes; errors are left for the outer code to detect.
func (d *Decoder) Decode(soft, out []byte) float64 {
	return d.decode(soft, out, 0, true)
}

// Continue decodes symbols that directly follow those of the previous call,
// starting the trellis from the register the previous call ended in.
func (d *Decoder) Continue(soft, out []byte) float64 {
	return d.decode(soft, out, d.end, false)
}

// End returns the register the last decode ended in: its final K bits,
// newest in bit 0.
func (d *Decoder) End() byte {
	return d.end
}

func (d *Decoder) decode(soft, out []byte, start byte, fanIn bool) float64 {
	steps := len(soft) >> 1

	d.history.Reset()
	d.writer.Reset(out)

	old, cur := &d.metrics[0], &d.metrics[1]
	for r := range old {
		old[r] = unreachable
	}
	old[start] = 0

	var bm [4]uint32
	for t := 0; t < steps; t++ {
		s0, s1 := soft[t<<1], soft[t<<1+1]
		bm[0] = distance[s0][0] + distance[s1][0]
		bm[1] = distance[s0][1] + distance[s1][0]
		bm[2] = distance[s0][0] + distance[s1][1]
		bm[3] = distance[s0][1] + distance[s1][1]

		dec := d.history.Next()

		if fanIn && t < K-1 {
			// Only registers reachable from the zero state are live.
			for r := range cur {
				cur[r] = unreachable
			}
			for r := 0; r < 2<<t; r++ {
				cur[r] = old[r>>1] + bm[outputs[r]]
				dec[r] = 0
			}
		} else {
			// Registers 2j and 2j+1 share predecessors j and j|64, and
			// their outputs are complementary.
			for j := 0; j < States>>1; j++ {
				m, choice := old[j], byte(0)
				if p1 := old[j|States>>1]; p1 < m {
					m, choice = p1, 1
				}

				o := outputs[j<<1]
				cur[j<<1] = m + bm[o]
				cur[j<<1|1] = m + bm[o^3]
				dec[j<<1] = choice
				dec[j<<1|1] = choice
			}
		}

		old, cur = cur, old

		if (t+1)%renormInterval == 0 {
			renormalize(old)
		}

		if d.history.Full() {
			d.traceback(best(old), TracebackMin, TracebackLen)
			d.history.Discard(TracebackLen)
		}
	}

	// Flush the remaining history from the best surviving state.
	d.end = best(old)
	d.traceback(d.end, 0, d.history.Len())
	d.writer.Flush()

	return d.errorRate(soft[:steps<<1], out, start)
}

// traceback walks the history backward from state r, discarding the first
// skip steps and emitting the next count bits.
func (d *Decoder) traceback(r byte, skip, count int) {
	k := d.history.Len() - 1

	for i := 0; i < skip; i++ {
		r = r>>1 | d.history.At(k)[r]<<(K-1)
		k--
	}

	for i := 0; i < count; i++ {
		d.chain[i] = r & 1
		r = r>>1 | d.history.At(k)[r]<<(K-1)
		k--
	}

	d.writer.WriteBitsReversed(d.chain[:], count)
}

// errorRate re-encodes the decoded bits and counts disagreements with the
// hard decisions of the received symbols. The first K-1 steps depend on
// bits sent before the symbols began and are not counted.
func (d *Decoder) errorRate(soft, decoded []byte, start byte) float64 {
	counted := len(soft) - 2*(K-1)
	if counted <= 0 {
		return 0
	}

	d.encoder.state = start
	r := bitio.NewReader(decoded)

	errs := 0
	for idx := 0; idx < len(soft); idx += 2 {
		o := d.encoder.EncodeBit(byte(r.Fetch(1)))
		if idx < 2*(K-1) {
			continue
		}
		if o&1 != Hard(soft[idx]) {
			errs++
		}
		if o>>1 != Hard(soft[idx+1]) {
			errs++
		}
	}

	return float64(errs) * 100 / float64(counted)
}

func renormalize(metrics *[States]uint32) {
	m := metrics[0]
	for _, v := range metrics[1:] {
		if v < m {
			m = v
		}
	}
	for r := range metrics {
		metrics[r] -= m
	}
}

func best(metrics *[States]uint32) (r byte) {
	for idx, v := range metrics {
		if v < metrics[r] {
			r = byte(idx)
		}
	}
	return
}

// SignalQuality maps a bit error rate in percent to a 0-100 quality score.
func SignalQuality(ber float64) int {
	q := int(100 - ber)
	if q < 0 {
		return 0
	}
	if q > 100 {
		return 100
	}
	return q
}
