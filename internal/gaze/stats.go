package gaze

import (
	"sync"
	"time"

	"github.com/banshee-data/gaze.report/internal/timeutil"
)

// PipelineStats tracks per-session sample counters with thread-safe
// operations. The composer itself is single-threaded; the stats object is
// shared with HTTP handlers, hence the mutex.
type PipelineStats struct {
	mu              sync.Mutex
	clock           timeutil.Clock
	samplesIn       int64
	recordsOut      int64
	nanSamples      int64
	timingAnomalies int64
	lastReset       time.Time
}

// NewPipelineStats creates a PipelineStats instance.
func NewPipelineStats() *PipelineStats {
	return NewPipelineStatsWithClock(timeutil.RealClock{})
}

// NewPipelineStatsWithClock creates a PipelineStats instance with an
// injected clock, for tests.
func NewPipelineStatsWithClock(clock timeutil.Clock) *PipelineStats {
	return &PipelineStats{clock: clock, lastReset: clock.Now()}
}

// AddSample increments the incoming-sample count.
func (ps *PipelineStats) AddSample() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.samplesIn++
}

// AddRecord increments the emitted-record count.
func (ps *PipelineStats) AddRecord() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.recordsOut++
}

// AddNaNSample counts a sample with at least one lost eye.
func (ps *PipelineStats) AddNaNSample() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.nanSamples++
}

// AddTimingAnomaly counts a non-positive or non-monotonic time delta.
func (ps *PipelineStats) AddTimingAnomaly() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.timingAnomalies++
}

// Snapshot returns the current counters without resetting them.
func (ps *PipelineStats) Snapshot() (samplesIn, recordsOut, nanSamples, timingAnomalies int64, since time.Duration) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.samplesIn, ps.recordsOut, ps.nanSamples, ps.timingAnomalies, ps.clock.Since(ps.lastReset)
}

// GetAndReset returns the current counters and resets them.
func (ps *PipelineStats) GetAndReset() (samplesIn, recordsOut, nanSamples, timingAnomalies int64, duration time.Duration) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := ps.clock.Now()
	duration = now.Sub(ps.lastReset)
	samplesIn = ps.samplesIn
	recordsOut = ps.recordsOut
	nanSamples = ps.nanSamples
	timingAnomalies = ps.timingAnomalies

	ps.samplesIn = 0
	ps.recordsOut = 0
	ps.nanSamples = 0
	ps.timingAnomalies = 0
	ps.lastReset = now
	return
}
