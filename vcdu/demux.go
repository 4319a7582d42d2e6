package vcdu

import (
	"github.com/sirupsen/logrus"
)

// Packet is a reassembled source packet.
type Packet struct {
	PacketHeader
	Data []byte // packet data field, secondary header included

	VCID    uint8
	Counter uint32 // VCDU in which the packet completed
}

// Stats counts demultiplexer events.
type Stats struct {
	Frames    uint64
	Dropped   uint64 // bad version or excluded VCID
	Gaps      uint64
	Discarded uint64 // partial packets lost to gaps or bad pointers
	Packets   uint64
	Idle      uint64
}

type channel struct {
	started bool
	last    uint32

	pending bool
	partial []byte
}

// Demux reassembles packets per virtual channel. It is not safe for
// concurrent use.
type Demux struct {
	log      logrus.FieldLogger
	channels map[uint8]*channel
	stats    Stats
}

func NewDemux(log logrus.FieldLogger) *Demux {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Demux{
		log:      log,
		channels: make(map[uint8]*channel),
	}
}

func (d *Demux) Stats() Stats {
	return d.stats
}

// Reset discards all partial packets and counter history.
func (d *Demux) Reset() {
	for vcid := range d.channels {
		delete(d.channels, vcid)
	}
}

// Frame consumes one corrected VCDU and returns the packets it completes.
func (d *Demux) Frame(data []byte) (pkts []Packet) {
	if len(data) < Length {
		d.stats.Dropped++
		return nil
	}

	h := ParseHeader(data)
	if h.Version != Version || h.VCID == 0 || h.VCID == IdleVCID {
		d.stats.Dropped++
		return nil
	}
	d.stats.Frames++

	ch, ok := d.channels[h.VCID]
	if !ok {
		ch = &channel{}
		d.channels[h.VCID] = ch
	}

	if ch.started && h.Counter != (ch.last+1)&CounterMask {
		d.stats.Gaps++
		d.log.WithFields(logrus.Fields{
			"vcid":     h.VCID,
			"expected": (ch.last + 1) & CounterMask,
			"counter":  h.Counter,
		}).Warn("vcdu sequence gap")
		ch.drop(d)
	}
	ch.started = true
	ch.last = h.Counter

	emit := func(pkt []byte) {
		p := Packet{
			PacketHeader: ParsePacketHeader(pkt),
			Data:         append([]byte(nil), pkt[PacketHeaderLength:]...),
			VCID:         h.VCID,
			Counter:      h.Counter,
		}
		if p.APID == IdleAPID {
			d.stats.Idle++
			return
		}
		d.stats.Packets++
		pkts = append(pkts, p)
	}

	zone := data[ZoneOffset:Length]

	switch {
	case h.FirstHeader == IdleZone:
		return nil
	case h.FirstHeader == NoHeader:
		if ch.pending {
			ch.partial = append(ch.partial, zone...)
			if pkt, done := ch.complete(); done {
				emit(pkt)
			}
		}
		return
	case int(h.FirstHeader) >= len(zone):
		ch.drop(d)
		return nil
	}

	// Bytes ahead of the first header finish the pending packet.
	if ch.pending {
		ch.partial = append(ch.partial, zone[:h.FirstHeader]...)
		if pkt, done := ch.complete(); done {
			emit(pkt)
		} else {
			ch.drop(d)
		}
	}
	ch.reset()

	for pos := int(h.FirstHeader); pos < len(zone); {
		rest := zone[pos:]
		if len(rest) < PacketHeaderLength {
			ch.hold(rest)
			break
		}

		total := ParsePacketHeader(rest).TotalLength()
		if total > len(rest) {
			ch.hold(rest)
			break
		}

		emit(rest[:total])
		pos += total
	}

	return
}

// complete reports whether the partial packet holds its declared length
// and if so returns it. The channel is reset on completion.
func (ch *channel) complete() ([]byte, bool) {
	if len(ch.partial) < PacketHeaderLength {
		return nil, false
	}

	total := ParsePacketHeader(ch.partial).TotalLength()
	if len(ch.partial) < total {
		return nil, false
	}

	pkt := ch.partial[:total]
	ch.pending = false
	ch.partial = ch.partial[:0]
	return pkt, true
}

func (ch *channel) hold(rest []byte) {
	ch.partial = append(ch.partial[:0], rest...)
	ch.pending = true
}

func (ch *channel) reset() {
	ch.pending = false
	ch.partial = ch.partial[:0]
}

func (ch *channel) drop(d *Demux) {
	if ch.pending {
		d.stats.Discarded++
	}
	ch.reset()
}
