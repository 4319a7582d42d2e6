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

// Package telemetry parses the onboard time packets of virtual channel APID 70.
package telemetry

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bemasher/lrpt/parse"
	"github.com/bemasher/lrpt/vcdu"
)

func init() {
	parse.Register("telemetry", NewParser)
}

const (
	APID = 70

	fieldOffset = parse.SecondaryHeaderLength
	fieldLength = 4
)

type Parser struct{}

func NewParser() parse.Parser {
	return Parser{}
}

func (p Parser) APIDs() []uint16 {
	return []uint16{APID}
}

func (p Parser) Parse(pkt vcdu.Packet) (parse.Message, error) {
	return NewTelemetry(pkt)
}

// Telemetry holds the spacecraft clock as hour, minute, second and
// millisecond in four byte wide fields.
type Telemetry struct {
	Seq    uint16 `xml:",attr"`
	Time   parse.Time
	Hour   uint8  `xml:",attr"`
	Minute uint8  `xml:",attr"`
	Second uint8  `xml:",attr"`
	Millis uint16 `xml:",attr"`
}

func NewTelemetry(pkt vcdu.Packet) (tlm Telemetry, err error) {
	if len(pkt.Data) < fieldOffset+fieldLength {
		return tlm, parse.ErrShortPacket
	}

	tlm.Seq = pkt.SeqCount
	if tlm.Time, err = parse.ParseTime(pkt.Data); err != nil {
		return tlm, err
	}

	p := pkt.Data[fieldOffset:]
	tlm.Hour = p[0]
	tlm.Minute = p[1]
	tlm.Second = p[2]
	tlm.Millis = uint16(p[3]) * 4

	return
}

// Onboard returns the clock reading as time since midnight.
func (tlm Telemetry) Onboard() time.Duration {
	return time.Duration(tlm.Hour)*time.Hour +
		time.Duration(tlm.Minute)*time.Minute +
		time.Duration(tlm.Second)*time.Second +
		time.Duration(tlm.Millis)*time.Millisecond
}

func (tlm Telemetry) MsgType() string {
	return "TLM"
}

func (tlm Telemetry) APID() uint16 {
	return APID
}

func (tlm Telemetry) SeqCount() uint16 {
	return tlm.Seq
}

func (tlm Telemetry) String() string {
	return fmt.Sprintf("{Seq:%5d Time:%s Onboard:%02d:%02d:%02d.%03d}",
		tlm.Seq, tlm.Time, tlm.Hour, tlm.Minute, tlm.Second, tlm.Millis,
	)
}

func (tlm Telemetry) Record() (r []string) {
	r = append(r, strconv.FormatUint(uint64(tlm.Seq), 10))
	r = append(r, tlm.Time.String())
	r = append(r, strconv.FormatUint(uint64(tlm.Hour), 10))
	r = append(r, strconv.FormatUint(uint64(tlm.Minute), 10))
	r = append(r, strconv.FormatUint(uint64(tlm.Second), 10))
	r = append(r, strconv.FormatUint(uint64(tlm.Millis), 10))

	return
}
