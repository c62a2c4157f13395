package acquire

import "context"

// Scripted replays a fixed sequence of samples as fast as the consumer
// takes them. It exists for tests that need exact, reproducible input.
type Scripted struct {
	samples []Sample
	out     *output
}

// NewScripted creates a source that will emit exactly the given samples
// in order.
func NewScripted(samples []Sample) *Scripted {
	n := len(samples)
	if n > DefaultBuffer {
		n = DefaultBuffer
	}
	return &Scripted{samples: samples, out: newOutput(n)}
}

// Samples is the ordered output stream.
func (s *Scripted) Samples() <-chan Sample { return s.out.Samples() }

// Dropped reports samples discarded because the consumer fell behind.
// The scripted buffer is sized to the script, so this stays zero unless
// the caller shrank it.
func (s *Scripted) Dropped() int64 { return s.out.Dropped() }

// Run emits the script and returns.
func (s *Scripted) Run(ctx context.Context) error {
	defer close(s.out.ch)
	for _, sample := range s.samples {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s.out.ch <- sample:
		}
	}
	return nil
}
