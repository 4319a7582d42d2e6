// Copyright 2010 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gf implements arithmetic over GF(2^m) for m <= 8.
package gf

import "strconv"

// A Field is GF(2^m) in the power representation of a primitive element.
type Field struct {
	n   int           // nonzero elements, 2^m - 1
	log [256]byte     // log[0] is unused
	exp [2 * 255]byte // doubled so log sums need no reduction
}

// NewField builds the tables of GF(size) reduced by poly, in powers of the
// generator α. It panics unless α has multiplicative order size-1, which
// rules out reducible polynomials too.
func NewField(size, poly, α int) *Field {
	if size < 2 || size > 256 || size&(size-1) != 0 {
		panic("gf: invalid size: " + strconv.Itoa(size))
	}
	if poly < size || poly >= size<<1 {
		panic("gf: invalid polynomial: " + strconv.Itoa(poly))
	}

	f := &Field{n: size - 1}

	var seen [256]bool
	x := 1
	for i := 0; i < f.n; i++ {
		if x == 0 || seen[x] {
			panic("gf: " + strconv.Itoa(α) + " does not generate " + strconv.Itoa(poly))
		}
		seen[x] = true

		f.exp[i] = byte(x)
		f.exp[i+f.n] = byte(x)
		f.log[x] = byte(i)
		x = mulMod(x, α, size, poly)
	}

	return f
}

// mulMod is shift and add multiplication of x and y reduced by poly.
func mulMod(x, y, size, poly int) (z int) {
	for ; x > 0; x >>= 1 {
		if x&1 != 0 {
			z ^= y
		}
		if y <<= 1; y&size != 0 {
			y ^= poly
		}
	}
	return z
}

func (f *Field) Order() int {
	return f.n
}

func (f *Field) Add(x, y byte) byte {
	return x ^ y
}

// Exp returns α^e. Exponents are reduced modulo the field order and
// negative exponents yield 0.
func (f *Field) Exp(e int) byte {
	if e < 0 {
		return 0
	}
	return f.exp[e%f.n]
}

// Log returns the discrete log of x, or -1 for x == 0.
func (f *Field) Log(x byte) int {
	if x == 0 {
		return -1
	}
	return int(f.log[x])
}

// Inv returns 1/x, or 0 for x == 0.
func (f *Field) Inv(x byte) byte {
	if x == 0 {
		return 0
	}
	return f.exp[f.n-int(f.log[x])]
}

func (f *Field) Mul(x, y byte) byte {
	if x == 0 || y == 0 {
		return 0
	}
	return f.exp[int(f.log[x])+int(f.log[y])]
}

// Div returns x/y. Division by zero yields 0.
func (f *Field) Div(x, y byte) byte {
	if x == 0 || y == 0 {
		return 0
	}
	return f.exp[int(f.log[x])+f.n-int(f.log[y])]
}

// Pow returns x^e for e >= 0.
func (f *Field) Pow(x byte, e int) byte {
	switch {
	case e == 0:
		return 1
	case x == 0:
		return 0
	}
	return f.exp[int(f.log[x])*(e%f.n)%f.n]
}

// Syndrome evaluates message, highest degree coefficient first, at the
// roots α^((fcr+i)*prim) for i in [0, count).
func (f *Field) Syndrome(message []byte, count, fcr, prim int) []byte {
	if fcr < 0 || prim <= 0 {
		panic("gf: invalid root: " + strconv.Itoa(fcr) + "*" + strconv.Itoa(prim))
	}
	if count < 0 {
		panic("gf: invalid count: " + strconv.Itoa(count))
	}

	syndrome := make([]byte, count)
	if len(message) == 0 {
		return syndrome
	}

	for idx := range syndrome {
		root := f.Exp((fcr + idx) * prim)
		acc := message[0]
		for _, v := range message[1:] {
			acc = f.Mul(acc, root) ^ v
		}
		syndrome[idx] = acc
	}
	return syndrome
}
