package acquire

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/banshee-data/gaze.report/internal/monitoring"
)

// MockConfig tunes the synthetic gaze source.
type MockConfig struct {
	// Rate is the sample rate in Hz.
	Rate int

	// NaNProbability is the per-sample chance of an eye-loss gap on each
	// eye independently.
	NaNProbability float64

	// Buffer overrides the output channel size (DefaultBuffer when 0).
	Buffer int

	// Seed makes the walk reproducible; 0 seeds from the wall clock.
	Seed int64
}

// DefaultMockConfig matches the hardware the mock stands in for: 600 Hz
// with occasional eye loss.
func DefaultMockConfig() MockConfig {
	return MockConfig{Rate: 600, NaNProbability: 0.02}
}

// Mock is a synthetic gaze source: a smooth random walk over the
// normalized screen with jittered pupil diameters and optional eye-loss
// gaps. It stands in for tracker hardware during development and demos.
type Mock struct {
	cfg MockConfig
	out *output
	rng *rand.Rand

	x, y   float64
	vx, vy float64
}

// NewMock creates a mock source. Start it with Run.
func NewMock(cfg MockConfig) *Mock {
	if cfg.Rate <= 0 {
		cfg.Rate = 600
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Mock{
		cfg: cfg,
		out: newOutput(cfg.Buffer),
		rng: rand.New(rand.NewSource(seed)),
		x:   0.5,
		y:   0.5,
	}
}

// Samples is the ordered output stream.
func (m *Mock) Samples() <-chan Sample { return m.out.Samples() }

// Dropped reports samples discarded because the consumer fell behind.
func (m *Mock) Dropped() int64 { return m.out.Dropped() }

// Run emits samples at the configured rate until ctx is cancelled.
func (m *Mock) Run(ctx context.Context) error {
	defer close(m.out.ch)
	monitoring.Logf("mock tracker: %d Hz, nan probability %.3f", m.cfg.Rate, m.cfg.NaNProbability)

	start := time.Now()
	ticker := time.NewTicker(time.Second / time.Duration(m.cfg.Rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if !m.out.offer(ctx, m.sample(now.Sub(start).Seconds())) {
				return ctx.Err()
			}
		}
	}
}

func (m *Mock) sample(deviceTime float64) Sample {
	m.step()

	s := Sample{
		LeftX: m.x, LeftY: m.y,
		RightX: m.x, RightY: m.y,
		LeftPupil:  8.0 + 4.0*(2*m.rng.Float64()-1),
		RightPupil: 8.0 + 4.0*(2*m.rng.Float64()-1),
		DeviceTime: deviceTime,
		LocalClock: float64(time.Now().UnixNano()) / 1e9,
	}
	if m.rng.Float64() < m.cfg.NaNProbability {
		s.LeftX, s.LeftY = math.NaN(), math.NaN()
		s.LeftPupil = math.NaN()
	}
	if m.rng.Float64() < m.cfg.NaNProbability {
		s.RightX, s.RightY = math.NaN(), math.NaN()
		s.RightPupil = math.NaN()
	}
	return s
}

// step advances the smooth random walk, keeping the point on screen.
func (m *Mock) step() {
	const accel = 0.002
	m.vx = 0.95*m.vx + accel*(2*m.rng.Float64()-1)
	m.vy = 0.95*m.vy + accel*(2*m.rng.Float64()-1)
	m.x = clamp01(m.x + m.vx)
	m.y = clamp01(m.y + m.vy)
	if m.x == 0 || m.x == 1 {
		m.vx = -m.vx
	}
	if m.y == 0 || m.y == 1 {
		m.vy = -m.vy
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
