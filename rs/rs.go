// Package rs implements the CCSDS (255,223) Reed-Solomon code with
// Berlekamp-Massey decoding.
package rs

import (
	"github.com/pkg/errors"

	"github.com/bemasher/lrpt/gf"
)

const (
	N      = 255    // codeword length
	K      = 223    // message length
	NRoots = N - K // parity symbols, corrects NRoots/2 errors

	FieldPoly = 0x187
	FCR       = 112 // first consecutive root, index form
	Prim      = 11  // primitive element, index form
	iprim     = 116 // prim-th root of 1, index form

	a0 = N // log of zero
)

var (
	ErrUncorrectable = errors.New("rs: uncorrectable codeword")
	ErrLength        = errors.New("rs: invalid codeword length")
)

// Codec holds the field and generator tables for one code. A Codec is
// immutable after construction and may be shared.
type Codec struct {
	field   *gf.Field
	alphaTo [N + 1]byte
	indexOf [N + 1]byte
	genpoly [NRoots + 1]byte // index form

	dualBasis bool
}

// NewCodec builds the code tables. With dualBasis set, symbols on the wire
// are in the Berlekamp dual basis representation of CCSDS 131.0-B.
func NewCodec(dualBasis bool) *Codec {
	c := &Codec{
		field:     gf.NewField(N+1, FieldPoly, 2),
		dualBasis: dualBasis,
	}

	for i := 0; i < N; i++ {
		c.alphaTo[i] = c.field.Exp(i)
		c.indexOf[c.alphaTo[i]] = byte(i)
	}
	c.alphaTo[a0] = 0
	c.indexOf[0] = a0

	var g [NRoots + 1]byte
	g[0] = 1
	for i, root := 0, FCR*Prim; i < NRoots; i, root = i+1, root+Prim {
		g[i+1] = 1

		// Multiply g by (x + α^root).
		for j := i; j > 0; j-- {
			if g[j] != 0 {
				g[j] = g[j-1] ^ c.alphaTo[modnn(int(c.indexOf[g[j]])+root)]
			} else {
				g[j] = g[j-1]
			}
		}
		g[0] = c.alphaTo[modnn(int(c.indexOf[g[0]])+root)]
	}

	for i, v := range g {
		c.genpoly[i] = c.indexOf[v]
	}

	return c
}

// DualBasis reports whether the codec works in the dual basis.
func (c *Codec) DualBasis() bool {
	return c.dualBasis
}

func modnn(x int) int {
	return x % N
}

// Encode computes NRoots parity symbols over K-pad data symbols.
func (c *Codec) Encode(data, parity []byte, pad int) error {
	if pad < 0 || pad >= K || len(data) != K-pad || len(parity) != NRoots {
		return ErrLength
	}

	for i := range parity {
		parity[i] = 0
	}

	for _, d := range data {
		if c.dualBasis {
			d = tal1tab[d]
		}

		fb := c.indexOf[d^parity[0]]
		if fb != a0 {
			for j := 1; j < NRoots; j++ {
				parity[j] ^= c.alphaTo[modnn(int(fb)+int(c.genpoly[NRoots-j]))]
			}
		}

		copy(parity, parity[1:])
		if fb != a0 {
			parity[NRoots-1] = c.alphaTo[modnn(int(fb)+int(c.genpoly[0]))]
		} else {
			parity[NRoots-1] = 0
		}
	}

	if c.dualBasis {
		for i, p := range parity {
			parity[i] = taltab[p]
		}
	}

	return nil
}

// Decode corrects codeword in place and returns the number of symbols
// corrected. The codeword is N-pad symbols long, the first pad symbols of a
// full codeword being implicit zeros. If the error locator's degree does not
// match its number of roots the codeword is left untouched and
// ErrUncorrectable is returned.
func (c *Codec) Decode(codeword []byte, pad int) (int, error) {
	if pad < 0 || pad >= K || len(codeword) != N-pad {
		return 0, ErrLength
	}

	var buf [N]byte
	cw := buf[:N-pad]
	copy(cw, codeword)
	if c.dualBasis {
		for i, v := range cw {
			cw[i] = tal1tab[v]
		}
	}

	var synErr byte
	var s [NRoots]int
	for i, v := range c.field.Syndrome(cw, NRoots, FCR, Prim) {
		synErr |= v
		s[i] = int(c.indexOf[v])
	}

	if synErr == 0 {
		return 0, nil
	}

	// Berlekamp-Massey: lambda in polynomial form, b in index form.
	var lambda, b, t [NRoots + 1]int
	lambda[0] = 1
	b[0] = 0
	for i := 1; i <= NRoots; i++ {
		b[i] = a0
	}

	el := 0
	for r := 1; r <= NRoots; r++ {
		discr := 0
		for i := 0; i < r; i++ {
			if lambda[i] != 0 && s[r-i-1] != a0 {
				discr ^= int(c.alphaTo[modnn(int(c.indexOf[lambda[i]])+s[r-i-1])])
			}
		}
		discr = int(c.indexOf[discr])

		if discr == a0 {
			copy(b[1:], b[:NRoots])
			b[0] = a0
			continue
		}

		t[0] = lambda[0]
		for i := 0; i < NRoots; i++ {
			if b[i] != a0 {
				t[i+1] = lambda[i+1] ^ int(c.alphaTo[modnn(discr+b[i])])
			} else {
				t[i+1] = lambda[i+1]
			}
		}

		if 2*el <= r-1 {
			el = r - el
			for i := range b {
				if lambda[i] == 0 {
					b[i] = a0
				} else {
					b[i] = modnn(int(c.indexOf[lambda[i]]) - discr + N)
				}
			}
		} else {
			copy(b[1:], b[:NRoots])
			b[0] = a0
		}
		lambda = t
	}

	degLambda := 0
	for i := range lambda {
		lambda[i] = int(c.indexOf[lambda[i]])
		if lambda[i] != a0 {
			degLambda = i
		}
	}
	if degLambda == 0 {
		return 0, ErrUncorrectable
	}

	// Chien search over the nonzero field elements.
	var reg [NRoots + 1]int
	copy(reg[1:], lambda[1:])

	var root, loc [NRoots]int
	count := 0
	for i, k := 1, iprim-1; i <= N; i, k = i+1, modnn(k+iprim) {
		q := 1
		for j := degLambda; j > 0; j-- {
			if reg[j] != a0 {
				reg[j] = modnn(reg[j] + j)
				q ^= int(c.alphaTo[reg[j]])
			}
		}
		if q != 0 {
			continue
		}

		root[count] = i
		loc[count] = k
		count++
		if count == degLambda {
			break
		}
	}

	if count != degLambda {
		return 0, ErrUncorrectable
	}

	// Error evaluator omega = s * lambda mod x^NRoots, index form.
	degOmega := degLambda - 1
	var omega [NRoots + 1]int
	for i := 0; i <= degOmega; i++ {
		tmp := 0
		for j := i; j >= 0; j-- {
			if s[i-j] != a0 && lambda[j] != a0 {
				tmp ^= int(c.alphaTo[modnn(s[i-j]+lambda[j])])
			}
		}
		omega[i] = int(c.indexOf[tmp])
	}

	// Forney: err = X^(1-FCR) * omega(1/X) / lambda'(1/X).
	for j := count - 1; j >= 0; j-- {
		num1 := 0
		for i := degOmega; i >= 0; i-- {
			if omega[i] != a0 {
				num1 ^= int(c.alphaTo[modnn(omega[i]+i*root[j])])
			}
		}
		num2 := int(c.alphaTo[modnn(root[j]*(FCR-1)+N)])

		den := 0
		for i := min(degLambda, NRoots-1) &^ 1; i >= 0; i -= 2 {
			if lambda[i+1] != a0 {
				den ^= int(c.alphaTo[modnn(lambda[i+1]+i*root[j])])
			}
		}
		if den == 0 {
			return 0, ErrUncorrectable
		}

		if num1 == 0 {
			continue
		}

		// Errors in the implicit zero padding cannot be real.
		if loc[j] < pad {
			return 0, ErrUncorrectable
		}

		cw[loc[j]-pad] ^= c.alphaTo[modnn(int(c.indexOf[num1])+int(c.indexOf[num2])+N-int(c.indexOf[den]))]
	}

	if c.dualBasis {
		for i, v := range cw {
			cw[i] = taltab[v]
		}
	}
	copy(codeword, cw)

	return count, nil
}

// Deinterleave copies codeword index of depth byte-interleaved codewords in
// src into dst.
func Deinterleave(dst, src []byte, index, depth int) {
	for i := range dst {
		dst[i] = src[i*depth+index]
	}
}

// Interleave is the inverse of Deinterleave.
func Interleave(dst, src []byte, index, depth int) {
	for i, v := range src {
		dst[i*depth+index] = v
	}
}
