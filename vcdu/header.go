// Package vcdu parses AOS virtual channel data units and reassembles the
// CCSDS source packets multiplexed into their packet zones.
package vcdu

import (
	"fmt"

	"github.com/bemasher/lrpt/bitio"
)

const (
	Length = 892 // VCDU without parity

	PrimaryHeaderLength = 6
	InsertZoneLength    = 2
	MPDUHeaderLength    = 2

	ZoneOffset = PrimaryHeaderLength + InsertZoneLength + MPDUHeaderLength
	ZoneLength = Length - ZoneOffset

	Version     = 1
	IdleVCID    = 63
	CounterMask = 1<<24 - 1

	// First header pointer values with no packet header in the zone.
	NoHeader = 0x7FF // zone continues the pending packet
	IdleZone = 0x7FE // zone carries idle data only
)

// Header is the VCDU primary header, insert zone and M_PDU header.
type Header struct {
	Version     uint8
	SCID        uint8
	VCID        uint8
	Counter     uint32
	Replay      bool
	Insert      uint16
	FirstHeader uint16
}

// ParseHeader reads the header from the first ZoneOffset bytes of b.
func ParseHeader(b []byte) (h Header) {
	r := bitio.NewReader(b[:ZoneOffset])

	h.Version = uint8(r.Fetch(2))
	h.SCID = uint8(r.Fetch(8))
	h.VCID = uint8(r.Fetch(6))
	h.Counter = r.Fetch(24)
	h.Replay = r.Fetch(1) == 1
	r.Skip(7)
	h.Insert = uint16(r.Fetch(16))
	r.Skip(5)
	h.FirstHeader = uint16(r.Fetch(11))

	return
}

// Put writes the header into the first ZoneOffset bytes of b.
func (h Header) Put(b []byte) {
	w := bitio.NewWriter(b[:ZoneOffset])

	w.WriteBits(uint32(h.Version), 2)
	w.WriteBits(uint32(h.SCID), 8)
	w.WriteBits(uint32(h.VCID), 6)
	w.WriteBits(h.Counter, 24)
	if h.Replay {
		w.WriteBit(1)
	} else {
		w.WriteBit(0)
	}
	w.WriteBits(0, 7)
	w.WriteBits(uint32(h.Insert), 16)
	w.WriteBits(0, 5)
	w.WriteBits(uint32(h.FirstHeader), 11)
}

func (h Header) String() string {
	return fmt.Sprintf("{Version:%d SCID:%d VCID:%d Counter:%d Replay:%t FirstHeader:0x%03X}",
		h.Version, h.SCID, h.VCID, h.Counter, h.Replay, h.FirstHeader,
	)
}

const (
	PacketHeaderLength = 6

	IdleAPID = 0x7FF

	// Sequence flags.
	Continuation = 0
	FirstSegment = 1
	LastSegment  = 2
	Unsegmented  = 3
)

// PacketHeader is the CCSDS source packet primary header.
type PacketHeader struct {
	Version         uint8
	Type            uint8
	SecondaryHeader bool
	APID            uint16
	SeqFlags        uint8
	SeqCount        uint16
	Length          uint16 // data field length minus one
}

func ParsePacketHeader(b []byte) (h PacketHeader) {
	r := bitio.NewReader(b[:PacketHeaderLength])

	h.Version = uint8(r.Fetch(3))
	h.Type = uint8(r.Fetch(1))
	h.SecondaryHeader = r.Fetch(1) == 1
	h.APID = uint16(r.Fetch(11))
	h.SeqFlags = uint8(r.Fetch(2))
	h.SeqCount = uint16(r.Fetch(14))
	h.Length = uint16(r.Fetch(16))

	return
}

func (h PacketHeader) Put(b []byte) {
	w := bitio.NewWriter(b[:PacketHeaderLength])

	w.WriteBits(uint32(h.Version), 3)
	w.WriteBits(uint32(h.Type), 1)
	if h.SecondaryHeader {
		w.WriteBit(1)
	} else {
		w.WriteBit(0)
	}
	w.WriteBits(uint32(h.APID), 11)
	w.WriteBits(uint32(h.SeqFlags), 2)
	w.WriteBits(uint32(h.SeqCount), 14)
	w.WriteBits(uint32(h.Length), 16)
}

// TotalLength returns the length of the whole packet in bytes.
func (h PacketHeader) TotalLength() int {
	return PacketHeaderLength + int(h.Length) + 1
}
