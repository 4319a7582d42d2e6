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

package main

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	gzipMagic = []byte{0x1F, 0x8B}
)

type input struct {
	io.Reader
	closers []func() error
}

func (in *input) Close() (err error) {
	for idx := len(in.closers) - 1; idx >= 0; idx-- {
		if cerr := in.closers[idx](); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// OpenInput opens a soft symbol capture, "-" for stdin. Zstandard and gzip
// streams are detected by their magic numbers and decompressed.
func OpenInput(name string) (io.ReadCloser, error) {
	in := &input{}

	var r io.Reader = os.Stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, errors.Wrap(err, "open input")
		}
		in.closers = append(in.closers, f.Close)
		r = f
	}

	if err := in.wrap(r); err != nil {
		in.Close()
		return nil, err
	}

	return in, nil
}

func (in *input) wrap(r io.Reader) error {
	br := bufio.NewReader(r)
	magic, _ := br.Peek(len(zstdMagic))

	switch {
	case bytes.HasPrefix(magic, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return errors.Wrap(err, "zstd input")
		}
		in.closers = append(in.closers, func() error { zr.Close(); return nil })
		in.Reader = zr
	case bytes.HasPrefix(magic, gzipMagic):
		gr, err := gzip.NewReader(br)
		if err != nil {
			return errors.Wrap(err, "gzip input")
		}
		in.closers = append(in.closers, gr.Close)
		in.Reader = gr
	default:
		in.Reader = br
	}

	return nil
}
