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

// Package msumr parses the image segment packets of the MSU-MR radiometer.
package msumr

import (
	"fmt"
	"strconv"

	"github.com/bemasher/lrpt/parse"
	"github.com/bemasher/lrpt/vcdu"
)

func init() {
	parse.Register("msumr", NewParser)
}

const (
	FirstAPID = 64
	Channels  = 6

	// Fields following the time code, ahead of the compressed payload.
	HeaderLength = 6

	MCUsPerLine    = 196
	MCUsPerSegment = 14
)

type Parser struct{}

func NewParser() parse.Parser {
	return Parser{}
}

func (p Parser) APIDs() (apids []uint16) {
	for ch := 0; ch < Channels; ch++ {
		apids = append(apids, FirstAPID+uint16(ch))
	}
	return
}

func (p Parser) Parse(pkt vcdu.Packet) (parse.Message, error) {
	return NewSegment(pkt)
}

// Segment carries 14 JPEG compressed 8x8 MCUs of one image channel.
type Segment struct {
	ID  uint16 `xml:"APID,attr"`
	Seq uint16 `xml:",attr"`

	Time parse.Time

	MCU     uint8  `xml:",attr"` // index of the first MCU in the line
	QT      uint8  `xml:",attr"` // quantization table
	DC      uint8  `xml:",attr"` // huffman table selectors
	AC      uint8  `xml:",attr"`
	QFM     uint16 `xml:",attr"`
	Quality uint8  `xml:",attr"`

	Payload []byte `xml:"-"`
}

func NewSegment(pkt vcdu.Packet) (seg Segment, err error) {
	if len(pkt.Data) < parse.SecondaryHeaderLength+HeaderLength {
		return seg, parse.ErrShortPacket
	}

	seg.ID = pkt.PacketHeader.APID
	seg.Seq = pkt.SeqCount
	if seg.Time, err = parse.ParseTime(pkt.Data); err != nil {
		return seg, err
	}

	p := pkt.Data[parse.SecondaryHeaderLength:]
	seg.MCU = p[0]
	seg.QT = p[1]
	seg.DC = p[2] >> 4
	seg.AC = p[2] & 0x0F
	seg.QFM = uint16(p[3])<<8 | uint16(p[4])
	seg.Quality = p[5]
	seg.Payload = p[HeaderLength:]

	return
}

// Channel returns the zero based image channel.
func (seg Segment) Channel() int {
	return int(seg.ID) - FirstAPID
}

func (seg Segment) MsgType() string {
	return "MSUMR"
}

func (seg Segment) APID() uint16 {
	return seg.ID
}

func (seg Segment) SeqCount() uint16 {
	return seg.Seq
}

func (seg Segment) String() string {
	return fmt.Sprintf("{Channel:%d Seq:%5d Time:%s MCU:%3d QT:%d DC:%d AC:%d QFM:0x%04X Q:%3d Payload:%d}",
		seg.Channel(), seg.Seq, seg.Time, seg.MCU, seg.QT, seg.DC, seg.AC, seg.QFM, seg.Quality, len(seg.Payload),
	)
}

func (seg Segment) Record() (r []string) {
	r = append(r, strconv.FormatUint(uint64(seg.ID), 10))
	r = append(r, strconv.FormatUint(uint64(seg.Seq), 10))
	r = append(r, seg.Time.String())
	r = append(r, strconv.FormatUint(uint64(seg.MCU), 10))
	r = append(r, strconv.FormatUint(uint64(seg.QT), 10))
	r = append(r, strconv.FormatUint(uint64(seg.DC), 10))
	r = append(r, strconv.FormatUint(uint64(seg.AC), 10))
	r = append(r, "0x"+strconv.FormatUint(uint64(seg.QFM), 16))
	r = append(r, strconv.FormatUint(uint64(seg.Quality), 10))
	r = append(r, strconv.Itoa(len(seg.Payload)))

	return
}
