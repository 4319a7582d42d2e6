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
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/bemasher/lrpt/decode"
	"github.com/bemasher/lrpt/msumr"
	"github.com/bemasher/lrpt/parse"
	"github.com/bemasher/lrpt/vcdu"

	_ "github.com/bemasher/lrpt/telemetry"
)

type Receiver struct {
	dec   *decode.Decoder
	demux *vcdu.Demux
	disp  *parse.Dispatcher
	fc    parse.FilterChain
	sink  msumr.Sink
	enc   Encoder

	metrics *Metrics
	log     logrus.FieldLogger

	blockSize int
	status    time.Duration
	single    bool

	messages uint64
}

func NewReceiver(cfg decode.Config, parsers []string, log logrus.FieldLogger) (*Receiver, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	dec := decode.NewDecoder(cfg, log)

	disp, err := parse.NewDispatcher(parsers...)
	if err != nil {
		return nil, errors.Wrap(err, "packet parsers")
	}

	return &Receiver{
		dec:       dec,
		demux:     vcdu.NewDemux(log),
		disp:      disp,
		sink:      msumr.NewCounter(log),
		enc:       PlainEncoder{os.Stdout, false},
		metrics:   NewMetrics(prometheus.NewRegistry()),
		log:       log,
		blockSize: dec.Cfg.SoftFrameLength,
	}, nil
}

// Run decodes soft symbols from r until it is exhausted or ctx is done.
func (rcvr *Receiver) Run(ctx context.Context, r io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()

	blockCh := make(chan []byte)
	errCh := make(chan error, 1)

	// Read and send blocks to the decoder.
	go func() {
		// Make two blocks, one for reading, and one for the receiver to
		// decode, these are exchanged each time we read a new block.
		blockA := make([]byte, rcvr.blockSize)
		blockB := make([]byte, rcvr.blockSize)

		defer close(blockCh)

		for {
			n, err := io.ReadFull(r, blockA)
			if n > 0 {
				select {
				case blockCh <- blockA[:n]:
				case <-ctx.Done():
					return
				}
				blockA, blockB = blockB, blockA
			}

			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return
			}
			if err != nil {
				errCh <- err
				return
			}
		}
	}()

	var status <-chan time.Time
	if rcvr.status > 0 {
		ticker := time.NewTicker(rcvr.status)
		defer ticker.Stop()
		status = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			rcvr.logStatus(start)
			return nil
		case <-status:
			rcvr.logStatus(start)
		case block, ok := <-blockCh:
			if !ok {
				select {
				case err := <-errCh:
					return errors.Wrap(err, "read input")
				default:
				}

				_, err := rcvr.handle(rcvr.dec.Flush())
				rcvr.logStatus(start)
				return err
			}

			frames, err := rcvr.dec.Decode(block)
			if err != nil {
				return err
			}

			done, err := rcvr.handle(frames)
			if err != nil || done {
				return err
			}
		}
	}
}

// handle demultiplexes valid frames, parses their packets and encodes the
// messages passing the filter chain. It reports whether a single shot
// receiver is done.
func (rcvr *Receiver) handle(frames []decode.Frame) (bool, error) {
	defer func() {
		rcvr.metrics.Update(rcvr.dec.State(), rcvr.dec.Stats(), rcvr.demux.Stats())
	}()

	for _, f := range frames {
		rcvr.metrics.Frame(f)

		// Data of invalid frames is not parsed.
		if !f.Valid {
			continue
		}

		for _, pkt := range rcvr.demux.Frame(f.Data) {
			rcvr.metrics.Packet(pkt)

			msg, err := rcvr.disp.Dispatch(pkt)
			if err != nil {
				rcvr.log.WithError(err).Warn("dropping packet")
				continue
			}

			if seg, ok := msg.(msumr.Segment); ok {
				if err := rcvr.sink.Put(seg); err != nil {
					return false, errors.Wrap(err, "image sink")
				}
			}

			if !rcvr.fc.Match(msg) {
				continue
			}

			var logMsg parse.LogMessage
			logMsg.Time = time.Now()
			logMsg.Offset = f.Offset
			logMsg.Counter = pkt.Counter
			logMsg.Message = msg

			if err := rcvr.enc.Encode(logMsg); err != nil {
				return false, errors.Wrap(err, "encode message")
			}
			rcvr.messages++

			if rcvr.single {
				return true, nil
			}
		}
	}

	return false, nil
}

func (rcvr *Receiver) logStatus(start time.Time) {
	dec := rcvr.dec.Stats()
	demux := rcvr.demux.Stats()

	rcvr.log.WithFields(logrus.Fields{
		"elapsed":  time.Since(start).Round(time.Millisecond),
		"state":    rcvr.dec.State(),
		"attempts": dec.Attempts,
		"valid":    dec.Valid,
		"hunts":    dec.Hunts,
		"packets":  demux.Packets,
		"gaps":     demux.Gaps,
		"messages": rcvr.messages,
	}).Info("status")
}

var (
	buildTag   = "dev"     // v#.#.#
	buildDate  = "unknown" // date -u '+%Y-%m-%d'
	commitHash = "unknown" // git rev-parse HEAD
)

func main() {
	RegisterFlags()
	EnvOverride()
	flag.Parse()

	if *version {
		fmt.Println("Build Tag: ", buildTag)
		fmt.Println("Build Date:", buildDate)
		fmt.Println("Commit:    ", commitHash)
		os.Exit(0)
	}

	if *configFilename != "" {
		if err := LoadConfig(flag.CommandLine, *configFilename); err != nil {
			logrus.Fatal(err)
		}
	}

	if err := HandleFlags(); err != nil {
		logrus.Fatal(err)
	}

	log := logrus.WithField("session", uuid.New().String())

	cfg := decode.NewConfig()
	cfg.DualBasis = *dualBasis

	rcvr, err := NewReceiver(cfg, Parsers(), log)
	if err != nil {
		log.Fatal(err)
	}
	rcvr.dec.Cfg.Log(log)

	rcvr.enc = encoder
	rcvr.status = *statusInterval
	rcvr.single = *single
	if *blockSize > 0 {
		rcvr.blockSize = *blockSize
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "filterapid":
			rcvr.fc.Add(apidFilter)
		}
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rcvr.metrics = NewMetrics(reg)

	if *metricsAddr != "" {
		srv := ServeMetrics(*metricsAddr, reg, log)
		defer srv.Close()
	}

	in, err := OpenInput(*inputFilename)
	if err != nil {
		log.Fatal(err)
	}
	defer in.Close()

	// Exit on interrupt or time limit.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *timeLimit != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeLimit)
		defer cancel()
	}

	log.WithField("input", *inputFilename).Info("running")
	if err := rcvr.Run(ctx, in); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
