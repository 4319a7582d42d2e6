package parse

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/bemasher/lrpt/csv"
	"github.com/bemasher/lrpt/vcdu"
)

const (
	TimeFormat = "2006-01-02T15:04:05.000"

	SecondaryHeaderLength = 8
)

var (
	parserMutex sync.Mutex
	parsers     = make(map[string]NewParserFunc)
)

var ErrShortPacket = errors.New("parse: packet shorter than its fixed fields")

type NewParserFunc func() Parser

func Register(name string, parserFn NewParserFunc) {
	parserMutex.Lock()
	defer parserMutex.Unlock()

	if parserFn == nil {
		panic("parser: new parser func is nil")
	}
	if _, dup := parsers[name]; dup {
		panic(fmt.Sprintf("parser: parser already registered (%s)", name))
	}
	parsers[name] = parserFn
}

func NewParser(name string) (Parser, error) {
	parserMutex.Lock()
	defer parserMutex.Unlock()

	if parserFn, exists := parsers[name]; exists {
		return parserFn(), nil
	}
	return nil, errors.Errorf("invalid message type: %q", name)
}

// Names returns the registered parser names in sorted order.
func Names() (names []string) {
	parserMutex.Lock()
	defer parserMutex.Unlock()

	for name := range parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

// Parser decodes the packets of the APIDs it claims.
type Parser interface {
	APIDs() []uint16
	Parse(vcdu.Packet) (Message, error)
}

type Message interface {
	csv.Recorder
	MsgType() string
	APID() uint16
	SeqCount() uint16
}

// Time is the day segmented CCSDS time code carried in each packet's
// secondary header.
type Time struct {
	Day    uint16
	Millis uint32 // of day
	Micros uint16 // of millisecond
}

func ParseTime(data []byte) (t Time, err error) {
	if len(data) < SecondaryHeaderLength {
		return t, ErrShortPacket
	}

	t.Day = binary.BigEndian.Uint16(data[0:])
	t.Millis = binary.BigEndian.Uint32(data[2:])
	t.Micros = binary.BigEndian.Uint16(data[6:])
	return
}

// OfDay returns the time elapsed since the start of the day.
func (t Time) OfDay() time.Duration {
	return time.Duration(t.Millis)*time.Millisecond + time.Duration(t.Micros)*time.Microsecond
}

func (t Time) String() string {
	d := t.OfDay()
	return fmt.Sprintf("%d/%02d:%02d:%02d.%06d", t.Day,
		int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60, int64(d%time.Second/time.Microsecond),
	)
}

// Raw is any packet without a registered parser.
type Raw struct {
	ID     uint16 `xml:"APID,attr"`
	Seq    uint16 `xml:",attr"`
	Time   Time
	Length int `xml:",attr"`
}

func NewRaw(pkt vcdu.Packet) (raw Raw) {
	raw.ID = pkt.PacketHeader.APID
	raw.Seq = pkt.SeqCount
	raw.Length = len(pkt.Data)
	if pkt.SecondaryHeader {
		raw.Time, _ = ParseTime(pkt.Data)
	}
	return
}

func (raw Raw) MsgType() string {
	return "Raw"
}

func (raw Raw) APID() uint16 {
	return raw.ID
}

func (raw Raw) SeqCount() uint16 {
	return raw.Seq
}

func (raw Raw) String() string {
	return fmt.Sprintf("{APID:%4d Seq:%5d Time:%s Length:%d}", raw.ID, raw.Seq, raw.Time, raw.Length)
}

func (raw Raw) Record() (r []string) {
	r = append(r, strconv.FormatUint(uint64(raw.ID), 10))
	r = append(r, strconv.FormatUint(uint64(raw.Seq), 10))
	r = append(r, raw.Time.String())
	r = append(r, strconv.Itoa(raw.Length))
	return
}

// Dispatcher routes packets to parsers by APID.
type Dispatcher struct {
	byAPID map[uint16]Parser
}

// NewDispatcher instantiates the named parsers.
func NewDispatcher(names ...string) (*Dispatcher, error) {
	d := &Dispatcher{make(map[uint16]Parser)}

	for _, name := range names {
		p, err := NewParser(name)
		if err != nil {
			return nil, err
		}

		for _, apid := range p.APIDs() {
			if _, dup := d.byAPID[apid]; dup {
				return nil, errors.Errorf("apid %d claimed by more than one parser", apid)
			}
			d.byAPID[apid] = p
		}
	}

	return d, nil
}

// Dispatch parses pkt with the parser registered for its APID, falling back
// to Raw.
func (d *Dispatcher) Dispatch(pkt vcdu.Packet) (Message, error) {
	if p, ok := d.byAPID[pkt.PacketHeader.APID]; ok {
		msg, err := p.Parse(pkt)
		return msg, errors.Wrapf(err, "apid %d", pkt.PacketHeader.APID)
	}
	return NewRaw(pkt), nil
}

type LogMessage struct {
	Time    time.Time
	Offset  int64  // stream offset of the frame completing the packet
	Counter uint32 // VCDU counter
	Message
}

func (msg LogMessage) String() string {
	return fmt.Sprintf("{Time:%s Offset:%d Counter:%d %s:%s}",
		msg.Time.Format(TimeFormat), msg.Offset, msg.Counter, msg.MsgType(), msg.Message,
	)
}

func (msg LogMessage) StringNoOffset() string {
	return fmt.Sprintf("{Time:%s %s:%s}", msg.Time.Format(TimeFormat), msg.MsgType(), msg.Message)
}

func (msg LogMessage) Record() (r []string) {
	r = append(r, msg.Time.Format(time.RFC3339Nano))
	r = append(r, strconv.FormatInt(msg.Offset, 10))
	r = append(r, strconv.FormatUint(uint64(msg.Counter), 10))
	r = append(r, msg.MsgType())
	r = append(r, msg.Message.Record()...)
	return r
}

type FilterChain []MessageFilter

func (fc *FilterChain) Add(filter MessageFilter) {
	*fc = append(*fc, filter)
}

func (fc FilterChain) Match(msg Message) bool {
	if len(fc) == 0 {
		return true
	}

	for _, filter := range fc {
		if !filter.Filter(msg) {
			return false
		}
	}

	return true
}

type MessageFilter interface {
	Filter(Message) bool
}
