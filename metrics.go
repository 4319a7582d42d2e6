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
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/bemasher/lrpt/decode"
	"github.com/bemasher/lrpt/vcdu"
)

// Metrics holds the receiver's prometheus collectors. Decoder and
// demultiplexer statistics are folded in as deltas from their last reading.
type Metrics struct {
	frames      *prometheus.CounterVec // by result and path
	corrections prometheus.Counter
	hunts       prometheus.Counter
	lockLost    prometheus.Counter
	packets     *prometheus.CounterVec // by apid
	gaps        prometheus.Counter
	discarded   prometheus.Counter
	quality     prometheus.Gauge
	locked      prometheus.Gauge

	lastDecode decode.Stats
	lastDemux  vcdu.Stats
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		frames: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lrpt_frames_total",
				Help: "Frame decode attempts",
			},
			[]string{"result", "path"},
		),
		corrections: factory.NewCounter(prometheus.CounterOpts{
			Name: "lrpt_rs_corrections_total",
			Help: "Symbol errors corrected by Reed-Solomon decoding",
		}),
		hunts: factory.NewCounter(prometheus.CounterOpts{
			Name: "lrpt_hunts_total",
			Help: "Searches that found no sync marker",
		}),
		lockLost: factory.NewCounter(prometheus.CounterOpts{
			Name: "lrpt_lock_lost_total",
			Help: "Transitions from tracking to searching",
		}),
		packets: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lrpt_packets_total",
				Help: "Reassembled source packets",
			},
			[]string{"apid"},
		),
		gaps: factory.NewCounter(prometheus.CounterOpts{
			Name: "lrpt_vcdu_gaps_total",
			Help: "Discontinuities in VCDU counters",
		}),
		discarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "lrpt_packets_discarded_total",
			Help: "Partial packets dropped on gaps or bad pointers",
		}),
		quality: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lrpt_signal_quality",
			Help: "Signal quality of the last frame, 0 to 100",
		}),
		locked: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lrpt_locked",
			Help: "1 while frames are tracked, 0 while searching",
		}),
	}
}

func (m *Metrics) Frame(f decode.Frame) {
	result, path := "invalid", "search"
	if f.Valid {
		result = "valid"
	}
	if f.Tracked {
		path = "tracked"
	}
	m.frames.WithLabelValues(result, path).Inc()
	m.quality.Set(float64(f.Quality))
}

func (m *Metrics) Packet(pkt vcdu.Packet) {
	m.packets.WithLabelValues(strconv.Itoa(int(pkt.PacketHeader.APID))).Inc()
}

// Update folds in statistics read after each block.
func (m *Metrics) Update(state decode.State, dec decode.Stats, demux vcdu.Stats) {
	m.corrections.Add(float64(dec.Corrections - m.lastDecode.Corrections))
	m.hunts.Add(float64(dec.Hunts - m.lastDecode.Hunts))
	m.lockLost.Add(float64(dec.LockLost - m.lastDecode.LockLost))
	m.gaps.Add(float64(demux.Gaps - m.lastDemux.Gaps))
	m.discarded.Add(float64(demux.Discarded - m.lastDemux.Discarded))

	if state == decode.Tracking {
		m.locked.Set(1)
	} else {
		m.locked.Set(0)
	}

	m.lastDecode, m.lastDemux = dec, demux
}

// ServeMetrics exposes g on addr until the process exits.
func ServeMetrics(addr string, g prometheus.Gatherer, log logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server")
		}
	}()

	log.WithField("addr", addr).Info("serving metrics")
	return srv
}
