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
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bemasher/lrpt/bitio"
	"github.com/bemasher/lrpt/correlate"
	"github.com/bemasher/lrpt/rs"
	"github.com/bemasher/lrpt/scramble"
	"github.com/bemasher/lrpt/viterbi"
)

// Frame is the outcome of one frame attempt. Data is only meaningful when
// Valid is set.
type Frame struct {
	Valid bool
	Data  []byte // corrected VCDU, parity removed

	Offset  int64 // stream offset of the first soft symbol
	Pattern int   // sync pattern, correlate.NoMatch when unaligned
	Score   int   // correlation score, zero for tracked frames
	Tracked bool

	Marker      uint32
	Inverted    bool
	BER         float64 // percent
	Quality     int     // 0-100
	Corrections int
}

func (f Frame) String() string {
	return fmt.Sprintf("{Valid:%t Offset:%d Pattern:%d Score:%2d Tracked:%t Marker:0x%08X Inverted:%t Quality:%3d Corrections:%d}",
		f.Valid, f.Offset, f.Pattern, f.Score, f.Tracked, f.Marker, f.Inverted, f.Quality, f.Corrections,
	)
}

// The leading K-1 marker bits depend on the encoder state before the frame
// and take no part in the polarity vote.
const polarityMask = ^uint32(0) >> (viterbi.K - 1)

// Polarity reports whether marker is closer to the complement of the
// sync marker than to the sync marker itself.
func Polarity(marker uint32) (inverted bool) {
	normal := bitio.CountSetBits((marker ^ correlate.SyncMarker) & polarityMask)
	flipped := bitio.CountSetBits((marker ^ ^uint32(correlate.SyncMarker)) & polarityMask)
	return flipped < normal
}

// decodeFrame runs the aligned soft frame in d.window through the inner
// and outer codes. A frame contiguous with the last decoded one continues
// its trellis.
func (d *Decoder) decodeFrame(f *Frame, contiguous bool) bool {
	if contiguous {
		f.BER = d.vit.Continue(d.window, d.hard)
	} else {
		f.BER = d.vit.Decode(d.window, d.hard)
	}
	f.Quality = viterbi.SignalQuality(f.BER)

	if Polarity(binary.BigEndian.Uint32(d.hard)) {
		for idx := range d.hard {
			d.hard[idx] = ^d.hard[idx]
		}
		f.Inverted = true
	}
	f.Marker = binary.BigEndian.Uint32(d.hard)

	payload := d.hard[MarkerLength:]
	scramble.Apply(payload)

	corrections := 0
	for idx := 0; idx < Depth; idx++ {
		rs.Deinterleave(d.cw, payload, idx, Depth)

		n, err := d.codec.Decode(d.cw, 0)
		if err != nil {
			d.log.WithFields(logrus.Fields{
				"offset":   f.Offset,
				"codeword": idx,
				"quality":  f.Quality,
			}).Debug("frame rejected")
			return false
		}
		corrections += n

		rs.Interleave(payload, d.cw, idx, Depth)
	}

	f.Valid = true
	f.Corrections = corrections
	f.Data = append([]byte(nil), payload[:d.Cfg.DataLength]...)

	d.stats.Valid++
	d.stats.Corrections += uint64(corrections)

	d.log.WithFields(logrus.Fields{
		"offset":      f.Offset,
		"quality":     f.Quality,
		"corrections": corrections,
		"inverted":    f.Inverted,
	}).Debug("frame decoded")

	return true
}
