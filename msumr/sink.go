package msumr

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Sink receives image segments in packet order. Image plane decoding lives
// behind it.
type Sink interface {
	Put(Segment) error
}

// Counter is a Sink that tallies segments per channel and tracks line
// boundaries by MCU index.
type Counter struct {
	mu sync.Mutex

	log      logrus.FieldLogger
	segments [Channels]uint64
	lines    [Channels]uint64
	last     [Channels]int
}

func NewCounter(log logrus.FieldLogger) *Counter {
	if log == nil {
		log = logrus.StandardLogger()
	}

	c := &Counter{log: log}
	for idx := range c.last {
		c.last[idx] = -1
	}
	return c
}

func (c *Counter) Put(seg Segment) error {
	ch := seg.Channel()
	if ch < 0 || ch >= Channels {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.segments[ch]++

	// MCU indices restart at zero on each new scan line.
	if int(seg.MCU) <= c.last[ch] {
		c.lines[ch]++
		c.log.WithFields(logrus.Fields{
			"channel": ch,
			"lines":   c.lines[ch],
		}).Debug("scan line complete")
	}
	c.last[ch] = int(seg.MCU)

	return nil
}

// Segments returns the number of segments seen on channel ch.
func (c *Counter) Segments(ch int) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.segments[ch]
}

// Lines returns the number of completed scan lines on channel ch.
func (c *Counter) Lines(ch int) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines[ch]
}
