package gen

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bemasher/lrpt/correlate"
	"github.com/bemasher/lrpt/rs"
	"github.com/bemasher/lrpt/scramble"
	"github.com/bemasher/lrpt/vcdu"
	"github.com/bemasher/lrpt/viterbi"
)

func TestNewPacket(t *testing.T) {
	pkt := NewPacket(65, 1234, 7, 43200000, 250, []byte{1, 2, 3})

	h := vcdu.ParsePacketHeader(pkt)
	assert.Equal(t, uint16(65), h.APID)
	assert.Equal(t, uint16(1234), h.SeqCount)
	assert.True(t, h.SecondaryHeader)
	assert.Equal(t, uint8(vcdu.Unsegmented), h.SeqFlags)
	assert.Equal(t, len(pkt), h.TotalLength())

	assert.Equal(t, []byte{0, 7, 0x02, 0x93, 0x2E, 0x00, 0, 250, 1, 2, 3}, pkt[vcdu.PacketHeaderLength:])
}

func TestMultiplex(t *testing.T) {
	a := NewPacket(64, 0, 0, 0, 0, make([]byte, 1000))
	b := NewPacket(70, 1, 0, 0, 0, make([]byte, 10))

	frames := Multiplex(vcdu.Header{Version: vcdu.Version, VCID: 5, Counter: vcdu.CounterMask}, a, b)
	require.Len(t, frames, 2)

	h0 := vcdu.ParseHeader(frames[0])
	h1 := vcdu.ParseHeader(frames[1])

	assert.Equal(t, uint16(0), h0.FirstHeader)
	assert.Equal(t, uint32(vcdu.CounterMask), h0.Counter)
	assert.Equal(t, uint16(len(a)-vcdu.ZoneLength), h1.FirstHeader)
	assert.Equal(t, uint32(0), h1.Counter, "counter wraps")

	// Packet b is followed by idle fill to the end of the zone.
	idle := frames[1][vcdu.ZoneOffset+int(h1.FirstHeader)+len(b):]
	assert.Equal(t, uint16(vcdu.IdleAPID), vcdu.ParsePacketHeader(idle).APID)
	assert.Equal(t, len(idle), vcdu.ParsePacketHeader(idle).TotalLength())
}

func TestMultiplexContinuation(t *testing.T) {
	big := NewPacket(64, 0, 0, 0, 0, make([]byte, 2*vcdu.ZoneLength))

	frames := Multiplex(vcdu.Header{Version: vcdu.Version, VCID: 5}, big)
	require.Len(t, frames, 3)
	assert.Equal(t, uint16(vcdu.NoHeader), vcdu.ParseHeader(frames[1]).FirstHeader)
}

func TestFrameEncoder(t *testing.T) {
	data := make([]byte, 4*rs.K)
	rand.New(rand.NewSource(2)).Read(data)

	for _, dual := range []bool{false, true} {
		frame := NewFrameEncoder(4, dual).Encode(data)
		require.Len(t, frame, 1024)
		assert.Equal(t, uint32(correlate.SyncMarker), binary.BigEndian.Uint32(frame))

		payload := append([]byte(nil), frame[4:]...)
		scramble.Apply(payload)
		assert.Equal(t, data, payload[:len(data)])

		codec := rs.NewCodec(dual)
		cw := make([]byte, rs.N)
		for idx := 0; idx < 4; idx++ {
			rs.Deinterleave(cw, payload, idx, 4)
			n, err := codec.Decode(cw, 0)
			require.NoError(t, err)
			assert.Zero(t, n)
		}
	}
}

func TestModulate(t *testing.T) {
	hard := make([]byte, 1024)
	binary.BigEndian.PutUint32(hard, correlate.SyncMarker)

	for pattern := 0; pattern < correlate.PatternCount; pattern++ {
		m := Modulator{Amplitude: 100, Pattern: pattern}
		soft := m.Modulate(hard)
		require.Len(t, soft, len(hard)*16)

		res, err := correlate.New().Correlate(soft[:4096])
		require.NoError(t, err)
		assert.Equal(t, pattern, res.Pattern)
		assert.Equal(t, 0, res.Offset)

		correlate.FixSymbols(soft, res.Pattern)
		out := make([]byte, len(hard))
		viterbi.NewDecoder().Decode(soft, out)
		assert.True(t, bytes.Equal(hard, out), "pattern %d", pattern)
	}
}

func TestUnpackBits(t *testing.T) {
	assert.Equal(t, []byte{1, 1, 1, 1, 1, 0, 0, 1, 0, 1, 0, 1, 0, 0, 1, 1}, UnpackBits([]byte{0xF9, 0x53}))
}
