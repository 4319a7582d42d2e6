// Package correlate locates the convolutionally encoded attached sync marker
// in a stream of soft symbols under every QPSK phase and IQ ambiguity.
package correlate

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/bemasher/lrpt/viterbi"
)

const (
	SyncMarker = 0x1ACFFC1D

	PatternCount = 8
	PatternLen   = 64 // soft symbols

	// A score above FullMatch stops the search early.
	FullMatch = 55
	// Scores below MinConfidence are treated as no alignment.
	MinConfidence = 45

	NoMatch = -1
)

var ErrShortWindow = errors.New("correlate: window shorter than sync pattern")

var (
	// rotate and swap permute the four coded bit pairs held in a byte.
	// rotate turns (I, Q) into (-Q, I), swap exchanges I and Q.
	rotate [256]byte
	swap   [256]byte

	// Packed patterns: 0-3 are the marker rotated by 0, 90, 180 and 270
	// degrees, 4-7 the same with I and Q exchanged.
	packed [PatternCount][PatternLen / 8]byte

	// Patterns expanded to one byte per symbol, 0xFF for a coded one.
	patterns [PatternCount][PatternLen]byte

	// agree[s][p] is 1 when the hard decision of soft symbol s matches
	// pattern symbol p.
	agree [256][256]byte
)

func init() {
	for x := 0; x < 256; x++ {
		var r, s byte
		for shift := 6; shift >= 0; shift -= 2 {
			i := byte(x>>(shift+1)) & 1
			q := byte(x>>shift) & 1
			r |= ((q^1)<<1 | i) << shift
			s |= (q<<1 | i) << shift
		}
		rotate[x] = r
		swap[x] = s
	}

	var marker [4]byte
	binary.BigEndian.PutUint32(marker[:], SyncMarker)

	var enc viterbi.Encoder
	copy(packed[0][:], enc.Encode(marker[:]))
	for k := 1; k < 4; k++ {
		for idx, v := range packed[k-1] {
			packed[k][idx] = rotate[v]
		}
	}
	for k := 0; k < 4; k++ {
		for idx, v := range packed[k] {
			packed[k+4][idx] = swap[v]
		}
	}

	for k := range packed {
		for idx := range patterns[k] {
			if packed[k][idx>>3]>>(7-uint(idx&7))&1 == 1 {
				patterns[k][idx] = 0xFF
			}
		}
	}

	for s := range agree {
		for p := range agree[s] {
			if viterbi.Hard(byte(s)) == byte(p>>7) {
				agree[s][p] = 1
			}
		}
	}
}

// Pattern returns the packed coded bits of pattern k.
func Pattern(k int) uint64 {
	return binary.BigEndian.Uint64(packed[k][:])
}

// Result describes the strongest pattern found by a search.
type Result struct {
	Pattern int
	Offset  int
	Score   int
}

// Correlator keeps the per-pattern peaks of the most recent search.
type Correlator struct {
	scores  [PatternCount]int
	offsets [PatternCount]int
}

func New() *Correlator {
	return &Correlator{}
}

// Correlate scores every pattern at every offset in [0, len(window)-64] and
// returns the pattern with the highest peak, the lowest index winning ties.
// The search stops at the first offset where any pattern exceeds FullMatch.
// If no pattern scores above zero, Result.Pattern is NoMatch.
func (c *Correlator) Correlate(window []byte) (Result, error) {
	if len(window) < PatternLen {
		return Result{Pattern: NoMatch}, ErrShortWindow
	}

	c.scores = [PatternCount]int{}
	c.offsets = [PatternCount]int{}

	for offset := 0; offset <= len(window)-PatternLen; offset++ {
		w := window[offset : offset+PatternLen]

		done := false
		for k := range patterns {
			score := 0
			for idx, p := range patterns[k] {
				score += int(agree[w[idx]][p])
			}

			if score > c.scores[k] {
				c.scores[k] = score
				c.offsets[k] = offset
			}
			if score > FullMatch {
				done = true
			}
		}

		if done {
			break
		}
	}

	res := Result{Pattern: NoMatch}
	for k, score := range c.scores {
		if score > res.Score {
			res = Result{k, c.offsets[k], score}
		}
	}

	return res, nil
}

// Scores returns the best score of each pattern from the last search.
func (c *Correlator) Scores() [PatternCount]int {
	return c.scores
}

func negate(s byte) byte {
	if s == 0x80 {
		return 0x7F
	}
	return byte(-int8(s))
}

// FixSymbols undoes in place the phase rotation and IQ exchange described
// by pattern, leaving soft symbols as they would have been transmitted.
func FixSymbols(buf []byte, pattern int) {
	if pattern <= 0 {
		return
	}

	n := len(buf) &^ 1
	if pattern >= 4 {
		for idx := 0; idx < n; idx += 2 {
			buf[idx], buf[idx+1] = buf[idx+1], buf[idx]
		}
	}

	for r := 0; r < pattern%4; r++ {
		for idx := 0; idx < n; idx += 2 {
			buf[idx], buf[idx+1] = buf[idx+1], negate(buf[idx])
		}
	}
}
