// LRPT - A decoder for Meteor-M LRPT soft symbol streams.
// Copyright (C) 2015 Douglas Hall
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package decode

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bemasher/lrpt/correlate"
	"github.com/bemasher/lrpt/rs"
	"github.com/bemasher/lrpt/viterbi"
)

const (
	MarkerLength = 4
	Depth        = 4 // interleaved codewords per frame
	// Two soft symbols per coded bit pair, two coded bits per data bit.
	SymbolsPerByte = 16
)

var ErrEmptyInput = errors.New("decode: empty input block")

// Config specifies frame geometry. Everything but DualBasis is derived by
// NewDecoder.
type Config struct {
	DualBasis bool // codewords in the Berlekamp dual basis

	HardFrameLength int // marker plus interleaved codewords, in bytes
	SoftFrameLength int // soft symbols per frame
	DataLength      int // VCDU bytes per frame
	BufferLength    int // soft symbols buffered before an attempt
	HuntStep        int // advance after an unaligned window
}

// NewConfig returns the Meteor-M LRPT configuration: four interleaved
// codewords in conventional representation making 1024 byte frames.
func NewConfig() Config {
	return Config{}
}

func (cfg Config) Log(log logrus.FieldLogger) {
	log.Infoln("Depth:", Depth)
	log.Infoln("DualBasis:", cfg.DualBasis)
	log.Infoln("HardFrameLength:", cfg.HardFrameLength)
	log.Infoln("SoftFrameLength:", cfg.SoftFrameLength)
	log.Infoln("DataLength:", cfg.DataLength)
	log.Infoln("BufferLength:", cfg.BufferLength)
}

// State of frame alignment.
type State int

const (
	Searching State = iota // no alignment hypothesis
	Tracking               // last frame decoded from a trusted offset
)

func (s State) String() string {
	switch s {
	case Searching:
		return "searching"
	case Tracking:
		return "tracking"
	}
	return "unknown"
}

// Stats counts frame attempts over the life of a decoder.
type Stats struct {
	Attempts    uint64
	Valid       uint64
	Tracked     uint64 // valid frames taken without a search
	Searches    uint64
	Hunts       uint64 // searches below MinConfidence
	Corrections uint64
	LockLost    uint64
}

// Decoder turns a soft symbol stream into frames. It buffers input across
// calls and is not safe for concurrent use.
type Decoder struct {
	Cfg Config

	log   logrus.FieldLogger
	state State
	// Phase and IQ fix-up of the tracked signal.
	pattern int

	buf      []byte
	pos      int
	consumed int64

	window []byte
	hard   []byte
	cw     []byte

	corr  *correlate.Correlator
	vit   *viterbi.Decoder
	codec *rs.Codec

	stats Stats
}

// NewDecoder derives the frame geometry from cfg and allocates buffers.
func NewDecoder(cfg Config, log logrus.FieldLogger) *Decoder {
	if log == nil {
		log = logrus.StandardLogger()
	}

	d := &Decoder{
		Cfg:   cfg,
		log:   log,
		corr:  correlate.New(),
		vit:   viterbi.NewDecoder(),
		codec: rs.NewCodec(cfg.DualBasis),
	}

	d.Cfg.HardFrameLength = MarkerLength + Depth*rs.N
	d.Cfg.SoftFrameLength = d.Cfg.HardFrameLength * SymbolsPerByte
	d.Cfg.DataLength = Depth * rs.K
	d.Cfg.BufferLength = d.Cfg.SoftFrameLength << 1
	d.Cfg.HuntStep = d.Cfg.SoftFrameLength >> 2

	d.buf = make([]byte, 0, d.Cfg.BufferLength<<1)
	d.window = make([]byte, d.Cfg.SoftFrameLength)
	d.hard = make([]byte, d.Cfg.HardFrameLength)
	d.cw = make([]byte, rs.N)

	return d
}

func (d *Decoder) State() State {
	return d.state
}

func (d *Decoder) Stats() Stats {
	return d.stats
}

// Decode appends a block of soft symbols and returns one Frame per attempt
// made while at least two frames of symbols are buffered.
func (d *Decoder) Decode(block []byte) ([]Frame, error) {
	if len(block) == 0 {
		return nil, ErrEmptyInput
	}

	d.buf = append(d.buf, block...)
	frames := d.run(d.Cfg.BufferLength)

	// Shift unconsumed symbols to the front of the buffer.
	if d.pos > 0 {
		n := copy(d.buf, d.buf[d.pos:])
		d.buf = d.buf[:n]
		d.consumed += int64(d.pos)
		d.pos = 0
	}

	return frames, nil
}

// Flush attempts frames in whatever remains buffered, discards the rest
// and returns to Searching.
func (d *Decoder) Flush() []Frame {
	frames := d.run(d.Cfg.SoftFrameLength)

	d.consumed += int64(len(d.buf))
	d.buf = d.buf[:0]
	d.pos = 0
	d.state = Searching

	return frames
}

func (d *Decoder) run(need int) (frames []Frame) {
	for len(d.buf)-d.pos >= need {
		f, ok := d.next()
		if !ok {
			break
		}
		frames = append(frames, f)
	}
	return
}

// next makes one frame attempt at the current position. It reports false
// if a realigned frame would extend past the buffered symbols.
func (d *Decoder) next() (f Frame, ok bool) {
	frameLen := d.Cfg.SoftFrameLength
	f.Offset = d.consumed + int64(d.pos)

	if d.state == Tracking {
		copy(d.window, d.buf[d.pos:d.pos+frameLen])
		correlate.FixSymbols(d.window, d.pattern)

		d.stats.Attempts++
		if d.decodeFrame(&f, true) {
			f.Pattern = d.pattern
			f.Tracked = true
			d.stats.Tracked++
			d.pos += frameLen
			return f, true
		}

		d.state = Searching
		d.stats.LockLost++
		d.log.WithField("offset", f.Offset).Info("lost frame lock")
		f = Frame{Offset: f.Offset}
	}

	// Window length is always at least one pattern.
	res, _ := d.corr.Correlate(d.buf[d.pos : d.pos+frameLen])
	f.Pattern = res.Pattern
	f.Score = res.Score

	if res.Pattern == correlate.NoMatch || res.Score < correlate.MinConfidence {
		d.stats.Searches++
		d.stats.Hunts++
		d.pos += d.Cfg.HuntStep
		return f, true
	}

	start := d.pos + res.Offset
	if start+frameLen > len(d.buf) {
		return f, false
	}

	d.stats.Searches++
	d.stats.Attempts++

	copy(d.window, d.buf[start:start+frameLen])
	correlate.FixSymbols(d.window, res.Pattern)
	f.Offset += int64(res.Offset)

	if d.decodeFrame(&f, false) {
		d.log.WithFields(logrus.Fields{
			"offset":  f.Offset,
			"pattern": res.Pattern,
			"score":   res.Score,
		}).Info("acquired frame lock")
		d.state = Tracking
		d.pattern = res.Pattern
	} else {
		d.state = Searching
	}

	d.pos = start + frameLen
	return f, true
}
