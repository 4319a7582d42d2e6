package rs

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestGenerator(t *testing.T) {
	c := NewCodec(false)

	expected := []byte{1, 91, 127, 86}
	for i, v := range expected {
		assert.Equal(t, v, c.alphaTo[c.genpoly[i]], "g[%d]", i)
	}
	assert.Equal(t, byte(1), c.alphaTo[c.genpoly[NRoots]], "monic")
}

func TestDualBasisTables(t *testing.T) {
	assert.Equal(t, byte(0x00), ToDual(0x00))
	assert.Equal(t, byte(0x7b), ToDual(0x01))
	assert.Equal(t, byte(0xaf), ToDual(0x02))
	assert.Equal(t, byte(0xd4), ToDual(0x03))
	assert.Equal(t, byte(0x8d), ToDual(0x80))

	for i := 0; i < 256; i++ {
		require.Equal(t, byte(i), FromDual(ToDual(byte(i))))
	}
}

func encodeRandom(t require.TestingT, c *Codec, r *rand.Rand, pad int) []byte {
	cw := make([]byte, N-pad)
	r.Read(cw[:K-pad])
	require.NoError(t, c.Encode(cw[:K-pad], cw[K-pad:], pad))
	return cw
}

func TestDecodeClean(t *testing.T) {
	for _, dual := range []bool{false, true} {
		c := NewCodec(dual)
		cw := encodeRandom(t, c, rand.New(rand.NewSource(1)), 0)

		n, err := c.Decode(cw, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	}
}

func TestDecodeAllZero(t *testing.T) {
	c := NewCodec(true)
	cw := make([]byte, N)

	n, err := c.Decode(cw, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

// Up to NRoots/2 symbol errors anywhere in the codeword are corrected.
func TestDecodeCorrects(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dual := rapid.Bool().Draw(t, "dual")
		pad := rapid.SampledFrom([]int{0, 0, 1, 100, 200}).Draw(t, "pad")
		seed := rapid.Int64().Draw(t, "seed")

		c := NewCodec(dual)
		r := rand.New(rand.NewSource(seed))
		cw := encodeRandom(t, c, r, pad)

		nerr := rapid.IntRange(0, NRoots/2).Draw(t, "errors")
		rx := append([]byte(nil), cw...)
		for _, pos := range r.Perm(len(rx))[:nerr] {
			rx[pos] ^= byte(r.Intn(255) + 1)
		}

		n, err := c.Decode(rx, pad)
		if err != nil {
			t.Fatalf("%d errors: %v", nerr, err)
		}
		if n != nerr {
			t.Fatalf("corrected %d, expected %d", n, nerr)
		}
		if !bytes.Equal(rx, cw) {
			t.Fatal("codeword not restored")
		}
	})
}

func TestDecodeFails(t *testing.T) {
	c := NewCodec(false)
	r := rand.New(rand.NewSource(17))

	for _, nerr := range []int{17, 18, 20, 32, 40, 64} {
		for trial := 0; trial < 8; trial++ {
			cw := encodeRandom(t, c, r, 0)
			for _, pos := range r.Perm(N)[:nerr] {
				cw[pos] ^= byte(r.Intn(255) + 1)
			}
			rx := append([]byte(nil), cw...)

			_, err := c.Decode(rx, 0)
			require.ErrorIs(t, err, ErrUncorrectable, "%d errors", nerr)
			require.Equal(t, cw, rx, "codeword modified on failure")
		}
	}
}

func TestDecodeLength(t *testing.T) {
	c := NewCodec(false)

	_, err := c.Decode(make([]byte, N-1), 0)
	assert.ErrorIs(t, err, ErrLength)

	assert.ErrorIs(t, c.Encode(make([]byte, K), make([]byte, NRoots-1), 0), ErrLength)
}

func TestInterleave(t *testing.T) {
	r := rand.New(rand.NewSource(4))

	for _, depth := range []int{1, 2, 3, 4, 5, 8} {
		t.Run(fmt.Sprint(depth), func(t *testing.T) {
			src := make([]byte, N*depth)
			r.Read(src)

			cw := make([]byte, N)
			for idx := 0; idx < depth; idx++ {
				Deinterleave(cw, src, idx, depth)
				assert.Equal(t, src[idx], cw[0])
				assert.Equal(t, src[(N-1)*depth+idx], cw[N-1])

				// Only stream idx is written back.
				dst := append([]byte(nil), src...)
				for i := idx; i < len(dst); i += depth {
					dst[i] = 0
				}
				Interleave(dst, cw, idx, depth)
				require.Equal(t, src, dst, "stream %d", idx)
			}
		})
	}
}

func BenchmarkDecode(b *testing.B) {
	c := NewCodec(true)
	r := rand.New(rand.NewSource(1))
	cw := encodeRandom(b, c, r, 0)
	for _, pos := range r.Perm(N)[:NRoots/2] {
		cw[pos] ^= 0x5A
	}
	rx := make([]byte, N)

	b.SetBytes(N)
	b.ReportAllocs()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		copy(rx, cw)
		c.Decode(rx, 0)
	}
}
