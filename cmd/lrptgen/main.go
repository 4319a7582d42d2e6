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

// Lrptgen writes a synthetic LRPT soft symbol capture: MSU-MR segments and
// telemetry packets multiplexed into VCDUs, channel coded and modulated
// with optional noise and phase ambiguity.
package main

import (
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/bemasher/lrpt/decode"
	"github.com/bemasher/lrpt/gen"
	"github.com/bemasher/lrpt/msumr"
	"github.com/bemasher/lrpt/rs"
	"github.com/bemasher/lrpt/telemetry"
	"github.com/bemasher/lrpt/vcdu"
)

var output = flag.StringP("output", "o", "-", "capture file, - for stdout, .zst and .gz are compressed")
var lines = flag.Int("lines", 8, "scan lines to generate")
var amplitude = flag.Float64("amplitude", 100, "soft symbol amplitude")
var sigma = flag.Float64("sigma", 0, "noise standard deviation")
var pattern = flag.Int("pattern", 0, "phase rotation and iq swap, 0 through 7")
var lead = flag.Int("lead", 1000, "soft symbols of noise ahead of the first frame")
var seed = flag.Int64("seed", 1, "random seed")
var dualBasis = flag.Bool("dualbasis", false, "reed-solomon symbols in the berlekamp dual basis")
var vcid = flag.Uint8("vcid", 5, "virtual channel id")
var scid = flag.Uint8("scid", 0x9A, "spacecraft id")

// packets builds one telemetry packet and the six channels' segments per
// scan line.
func packets(r *rand.Rand, n int) (pkts [][]byte) {
	var seq uint16

	for line := 0; line < n; line++ {
		now := time.Duration(line) * 1536 * time.Millisecond
		millis := uint32(now / time.Millisecond)

		tlm := []byte{
			byte(now / time.Hour),
			byte(now / time.Minute % 60),
			byte(now / time.Second % 60),
			byte(now % time.Second / time.Millisecond / 4),
		}
		pkts = append(pkts, gen.NewPacket(telemetry.APID, seq, 1, millis, 0, tlm))
		seq++

		for ch := 0; ch < msumr.Channels; ch++ {
			for mcu := 0; mcu < msumr.MCUsPerLine; mcu += msumr.MCUsPerSegment {
				fields := make([]byte, msumr.HeaderLength+64+r.Intn(512))
				fields[0] = byte(mcu)
				fields[5] = 80
				r.Read(fields[msumr.HeaderLength:])

				pkts = append(pkts, gen.NewPacket(msumr.FirstAPID+uint16(ch), seq, 1, millis, 0, fields))
				seq = (seq + 1) & 0x3FFF
			}
		}
	}

	return
}

func create(name string) (io.WriteCloser, error) {
	if name == "-" {
		return os.Stdout, nil
	}

	f, err := os.Create(name)
	if err != nil {
		return nil, errors.Wrap(err, "create output")
	}

	switch filepath.Ext(name) {
	case ".zst":
		zw, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrap(err, "zstd output")
		}
		return chain{zw, f}, nil
	case ".gz":
		return chain{gzip.NewWriter(f), f}, nil
	}

	return f, nil
}

// chain closes a compressor before the file beneath it.
type chain struct {
	io.WriteCloser
	file *os.File
}

func (c chain) Close() error {
	if err := c.WriteCloser.Close(); err != nil {
		c.file.Close()
		return err
	}
	return c.file.Close()
}

func main() {
	flag.Parse()

	if *pattern < 0 || *pattern > 7 {
		logrus.Fatalf("invalid pattern: %d", *pattern)
	}

	r := rand.New(rand.NewSource(*seed))

	hdr := vcdu.Header{Version: vcdu.Version, SCID: *scid, VCID: *vcid}
	vcdus := gen.Multiplex(hdr, packets(r, *lines)...)

	out, err := create(*output)
	if err != nil {
		logrus.Fatal(err)
	}

	m := &gen.Modulator{Amplitude: *amplitude, Sigma: *sigma, Pattern: *pattern, Rand: r}
	fe := gen.NewFrameEncoder(decode.Depth, *dualBasis)

	if _, err := out.Write(gen.Noise(*lead, r)); err != nil {
		logrus.Fatal(err)
	}

	// Frames hold Depth codewords of data, VCDUs are cut to fit.
	data := make([]byte, decode.Depth*rs.K)
	for _, v := range vcdus {
		copy(data, v)
		if _, err := out.Write(m.Modulate(fe.Encode(data))); err != nil {
			logrus.Fatal(err)
		}
	}

	if err := out.Close(); err != nil {
		logrus.Fatal(err)
	}

	logrus.WithFields(logrus.Fields{
		"frames": len(vcdus),
		"lines":  *lines,
		"output": *output,
	}).Info("capture written")
}
