// Package acquire provides the acquisition boundary of the pipeline:
// sources that hand raw gaze samples to the processing loop in arrival
// order.
//
// Real tracker hardware is driven by the vendor SDK outside this module;
// the sources here are the mock driver used for development, a scripted
// source for tests, and a replay source for recorded sessions. Every
// source owns a bounded output channel with a drop-oldest policy, so a
// stalled consumer loses the oldest samples instead of blocking
// acquisition.
package acquire

import (
	"context"
	"sync/atomic"

	"github.com/banshee-data/gaze.report/internal/gaze"
)

// Sample is the acquisition-side alias for a raw sample.
type Sample = gaze.RawSample

// DefaultBuffer is the output buffer used when none is configured. At
// 600 Hz it absorbs well under a second of consumer stall.
const DefaultBuffer = 256

// Source produces raw gaze samples until its context is cancelled or it
// runs out of data. Run closes the Samples channel on return and reports
// ctx.Err() on cancellation, nil on normal exhaustion.
type Source interface {
	// Run drives the source. Call it once, from its own goroutine.
	Run(ctx context.Context) error

	// Samples is the ordered output stream.
	Samples() <-chan Sample

	// Dropped reports how many samples were discarded because the
	// consumer fell behind.
	Dropped() int64
}

// output implements the shared bounded drop-oldest channel for sources.
type output struct {
	ch      chan Sample
	dropped atomic.Int64
}

func newOutput(buffer int) *output {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &output{ch: make(chan Sample, buffer)}
}

func (o *output) Samples() <-chan Sample { return o.ch }

func (o *output) Dropped() int64 { return o.dropped.Load() }

// offer queues one sample, evicting the oldest queued sample when the
// buffer is full so the newest data and the acquisition cadence are
// preserved. Returns false when the context is done.
func (o *output) offer(ctx context.Context, s Sample) bool {
	select {
	case <-ctx.Done():
		return false
	case o.ch <- s:
		return true
	default:
	}
	select {
	case <-o.ch:
		o.dropped.Add(1)
	default:
	}
	select {
	case <-ctx.Done():
		return false
	case o.ch <- s:
		return true
	default:
		o.dropped.Add(1)
		return true
	}
}
