package decode

import (
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bemasher/lrpt/correlate"
	"github.com/bemasher/lrpt/gen"
	"github.com/bemasher/lrpt/vcdu"
)

func init() {
	logrus.SetLevel(logrus.WarnLevel)
}

// newFixture multiplexes random image packets into at least n VCDUs.
func newFixture(r *rand.Rand, n int) (vcdus [][]byte) {
	hdr := vcdu.Header{Version: vcdu.Version, SCID: 0x9A, VCID: 5, Counter: 1000}

	var packets [][]byte
	for idx := 0; len(vcdus) < n; idx++ {
		data := make([]byte, 50+r.Intn(1200))
		r.Read(data)
		packets = append(packets, gen.NewPacket(64+uint16(idx%6), uint16(idx), 1, uint32(idx)*1000, 0, data))
		vcdus = gen.Multiplex(hdr, packets...)
	}

	return vcdus[:n]
}

func modulate(m *gen.Modulator, vcdus [][]byte) (soft []byte) {
	fe := gen.NewFrameEncoder(Depth, false)
	for _, v := range vcdus {
		soft = append(soft, m.Modulate(fe.Encode(v))...)
	}
	return
}

func newDecoder(t *testing.T) *Decoder {
	return NewDecoder(NewConfig(), nil)
}

func decodeAll(t *testing.T, d *Decoder, soft []byte, chunk int) (frames []Frame) {
	for len(soft) > 0 {
		n := chunk
		if n > len(soft) {
			n = len(soft)
		}

		f, err := d.Decode(soft[:n])
		require.NoError(t, err)
		frames = append(frames, f...)
		soft = soft[n:]
	}
	return append(frames, d.Flush()...)
}

func valid(frames []Frame) (v []Frame) {
	for _, f := range frames {
		if f.Valid {
			v = append(v, f)
		}
	}
	return
}

func TestNewDecoder(t *testing.T) {
	d := newDecoder(t)
	assert.Equal(t, 1024, d.Cfg.HardFrameLength)
	assert.Equal(t, 16384, d.Cfg.SoftFrameLength)
	assert.Equal(t, vcdu.Length, d.Cfg.DataLength)
	assert.Equal(t, Searching, d.State())
	assert.False(t, d.Cfg.DualBasis)
}

func TestEmptyInput(t *testing.T) {
	_, err := newDecoder(t).Decode(nil)
	assert.Equal(t, ErrEmptyInput, err)
}

func TestPolarity(t *testing.T) {
	assert.False(t, Polarity(correlate.SyncMarker))
	assert.True(t, Polarity(^uint32(correlate.SyncMarker)))

	// The leading six bits carry no vote.
	assert.False(t, Polarity(correlate.SyncMarker^0xFC000000))
	assert.True(t, Polarity(^uint32(correlate.SyncMarker)^0xFC000000))
	assert.False(t, Polarity(correlate.SyncMarker^0xFC001000))

	// A few bit errors do not change the decision.
	assert.False(t, Polarity(correlate.SyncMarker^0x80000101))
	assert.True(t, Polarity(^uint32(correlate.SyncMarker)^0x00F00000))
}

// One frame preceded by 500 symbols of noise is found by search.
func TestEndToEnd(t *testing.T) {
	r := rand.New(rand.NewSource(500))
	vcdus := newFixture(r, 1)

	m := &gen.Modulator{Amplitude: 100}
	soft := append(gen.Noise(500, r), modulate(m, vcdus)...)

	d := newDecoder(t)
	frames, err := d.Decode(soft)
	require.NoError(t, err)
	assert.Empty(t, frames, "a single frame is held until flush")

	frames = d.Flush()
	require.Len(t, frames, 1)

	f := frames[0]
	require.True(t, f.Valid)
	assert.Equal(t, int64(500), f.Offset)
	assert.Equal(t, 0, f.Pattern)
	assert.Equal(t, correlate.PatternLen, f.Score)
	assert.False(t, f.Tracked)
	assert.False(t, f.Inverted)
	assert.Equal(t, uint32(correlate.SyncMarker), f.Marker)
	assert.Equal(t, 100, f.Quality)
	assert.Zero(t, f.Corrections)
	assert.Equal(t, vcdus[0], f.Data)
}

func TestTracking(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	vcdus := newFixture(r, 5)

	m := &gen.Modulator{Amplitude: 90, Sigma: 30, Rand: r}
	soft := append(gen.Noise(500, r), modulate(m, vcdus)...)

	for _, chunk := range []int{7, 4096, 20000, len(soft)} {
		d := newDecoder(t)
		frames := decodeAll(t, d, soft, chunk)

		require.Len(t, frames, len(vcdus), "chunk %d", chunk)
		for idx, f := range frames {
			require.True(t, f.Valid, "frame %d", idx)
			assert.Equal(t, vcdus[idx], f.Data)
			assert.Equal(t, int64(500+idx*d.Cfg.SoftFrameLength), f.Offset)
			assert.Equal(t, idx > 0, f.Tracked)
		}

		stats := d.Stats()
		assert.Equal(t, uint64(len(vcdus)), stats.Valid)
		assert.Equal(t, uint64(len(vcdus)-1), stats.Tracked)
		assert.Equal(t, uint64(1), stats.Searches)
		assert.Zero(t, stats.LockLost)
	}
}

// Tracked frames continue the trellis of the frame before them, so a clean
// stream decodes every marker bit and measures no channel errors.
func TestTrackedQuality(t *testing.T) {
	r := rand.New(rand.NewSource(41))
	vcdus := newFixture(r, 4)

	soft := append(gen.Noise(500, r), modulate(&gen.Modulator{Amplitude: 100}, vcdus)...)

	frames := decodeAll(t, newDecoder(t), soft, len(soft))
	require.Len(t, frames, len(vcdus))

	for idx, f := range frames {
		require.True(t, f.Valid, "frame %d", idx)
		assert.Equal(t, idx > 0, f.Tracked, "frame %d", idx)
		assert.Equal(t, uint32(correlate.SyncMarker), f.Marker, "frame %d", idx)
		assert.Zero(t, f.BER, "frame %d", idx)
		assert.Equal(t, 100, f.Quality, "frame %d", idx)
		assert.Zero(t, f.Corrections, "frame %d", idx)
	}
}

func TestDualBasis(t *testing.T) {
	r := rand.New(rand.NewSource(22))
	vcdus := newFixture(r, 2)

	fe := gen.NewFrameEncoder(Depth, true)
	m := &gen.Modulator{Amplitude: 100}

	soft := gen.Noise(100, r)
	for _, v := range vcdus {
		soft = append(soft, m.Modulate(fe.Encode(v))...)
	}

	frames := decodeAll(t, NewDecoder(Config{DualBasis: true}, nil), soft, len(soft))
	require.Len(t, frames, len(vcdus))
	for idx, f := range frames {
		require.True(t, f.Valid, "frame %d", idx)
		assert.Equal(t, vcdus[idx], f.Data)
	}

	// Conventional decoding rejects dual basis codewords.
	assert.Empty(t, valid(decodeAll(t, newDecoder(t), soft, len(soft))))
}

func TestAmbiguity(t *testing.T) {
	r := rand.New(rand.NewSource(9))
	vcdus := newFixture(r, 3)

	for pattern := 0; pattern < correlate.PatternCount; pattern++ {
		m := &gen.Modulator{Amplitude: 100, Pattern: pattern}
		soft := append(gen.Noise(1234, r), modulate(m, vcdus)...)

		frames := decodeAll(t, newDecoder(t), soft, 8192)
		require.Len(t, frames, len(vcdus), "pattern %d", pattern)
		for idx, f := range frames {
			require.True(t, f.Valid, "pattern %d frame %d", pattern, idx)
			assert.Equal(t, pattern, f.Pattern)
			assert.False(t, f.Inverted)
			assert.Equal(t, vcdus[idx], f.Data)
		}
	}
}

// A half turn phase slip while tracking decodes as inverted bits, which the
// sync marker polarity check restores.
func TestPhaseSlip(t *testing.T) {
	r := rand.New(rand.NewSource(180))
	vcdus := newFixture(r, 4)

	m := &gen.Modulator{Amplitude: 100}
	fe := gen.NewFrameEncoder(Depth, false)

	soft := gen.Noise(321, r)
	for idx, v := range vcdus {
		if idx == 2 {
			m.Pattern = 2
		}
		soft = append(soft, m.Modulate(fe.Encode(v))...)
	}

	frames := decodeAll(t, newDecoder(t), soft, len(soft))
	require.Len(t, frames, len(vcdus))

	for idx, f := range frames {
		require.True(t, f.Valid, "frame %d", idx)
		assert.Equal(t, idx >= 2, f.Inverted, "frame %d", idx)
		assert.Equal(t, idx > 0, f.Tracked, "frame %d", idx)
		assert.Equal(t, vcdus[idx], f.Data)
	}
}

func TestNoiseOnly(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	d := newDecoder(t)

	frames := decodeAll(t, d, gen.Noise(4*d.Cfg.SoftFrameLength, r), 16384)
	require.NotEmpty(t, frames)
	assert.Empty(t, valid(frames))
	assert.Equal(t, Searching, d.State())

	stats := d.Stats()
	assert.Equal(t, uint64(len(frames)), stats.Searches)
	assert.Zero(t, stats.Valid)
}

// Acquisition from a stream that starts with windows of pure noise.
func TestAcquire(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	vcdus := newFixture(r, 6)

	m := &gen.Modulator{Amplitude: 100}
	soft := append(gen.Noise(40000, r), modulate(m, vcdus)...)

	d := newDecoder(t)
	frames := decodeAll(t, d, soft, 4096)
	require.NotEmpty(t, frames)
	assert.False(t, frames[0].Valid, "noise window must not decode")

	good := valid(frames)
	require.NotEmpty(t, good)

	assert.Equal(t, vcdus[len(vcdus)-1], good[len(good)-1].Data)

	for _, f := range good {
		idx := int(f.Offset-40000) / d.Cfg.SoftFrameLength
		assert.Equal(t, vcdus[idx], f.Data)
	}
}

// Decoded frames carry the packets that were multiplexed into them.
func TestPackets(t *testing.T) {
	r := rand.New(rand.NewSource(64))
	vcdus := newFixture(r, 3)

	m := &gen.Modulator{Amplitude: 100, Sigma: 20, Rand: r}
	soft := append(gen.Noise(500, r), modulate(m, vcdus)...)

	expected := vcdu.NewDemux(nil)
	var want []vcdu.Packet
	for _, v := range vcdus {
		want = append(want, expected.Frame(v)...)
	}
	require.NotEmpty(t, want)

	demux := vcdu.NewDemux(nil)
	var got []vcdu.Packet
	for _, f := range decodeAll(t, newDecoder(t), soft, 16384) {
		require.True(t, f.Valid)
		got = append(got, demux.Frame(f.Data)...)
	}

	assert.Equal(t, want, got)
}

func BenchmarkDecode(b *testing.B) {
	r := rand.New(rand.NewSource(1))
	vcdus := newFixture(r, 4)
	soft := modulate(&gen.Modulator{Amplitude: 100}, vcdus)

	d := NewDecoder(NewConfig(), nil)

	b.SetBytes(int64(len(soft)))
	b.ReportAllocs()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		d.Decode(soft)
		d.Flush()
	}
}
