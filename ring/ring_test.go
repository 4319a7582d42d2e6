package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRingWraps(t *testing.T) {
	r := New[int](4)

	for i := 0; i < 4; i++ {
		*r.Next() = i
	}
	require.True(t, r.Full())

	r.Discard(3)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 3, *r.At(0))

	*r.Next() = 4
	*r.Next() = 5
	assert.Equal(t, []int{3, 4, 5}, collect(r))

	assert.Panics(t, func() { r.At(3) })
	assert.Panics(t, func() { r.Discard(4) })
}

func TestRingFullPanics(t *testing.T) {
	r := New[byte](1)
	r.Next()
	assert.Panics(t, func() { r.Next() })

	r.Reset()
	assert.Equal(t, 0, r.Len())
	assert.NotPanics(t, func() { r.Next() })
}

// Any interleaving of pushes and discards behaves like a slice queue.
func TestRingMatchesQueue(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 16).Draw(t, "capacity")
		r := New[int](capacity)

		var queue []int
		next := 0

		ops := rapid.SliceOfN(rapid.IntRange(-capacity, capacity), 1, 64).Draw(t, "ops")
		for _, op := range ops {
			switch {
			case op > 0:
				for i := 0; i < op && !r.Full(); i++ {
					*r.Next() = next
					queue = append(queue, next)
					next++
				}
			case op < 0:
				n := -op
				if n > r.Len() {
					n = r.Len()
				}
				r.Discard(n)
				queue = queue[n:]
			}

			if r.Len() != len(queue) {
				t.Fatalf("length %d, expected %d", r.Len(), len(queue))
			}
			for i, v := range queue {
				if *r.At(i) != v {
					t.Fatalf("element %d = %d, expected %d", i, *r.At(i), v)
				}
			}
		}
	})
}

func collect(r *Ring[int]) (s []int) {
	for i := 0; i < r.Len(); i++ {
		s = append(s, *r.At(i))
	}
	return
}
