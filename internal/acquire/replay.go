package acquire

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Replay plays back raw samples from a fixtures file, one sample per
// line as eight comma-separated floats:
//
//	left_x,left_y,right_x,right_y,left_pupil,right_pupil,device_time,local_clock
//
// "NaN" marks a lost eye. Blank lines and lines starting with # are
// skipped. With Realtime set, playback follows the recorded device-time
// deltas; otherwise samples go out as fast as the consumer takes them.
type Replay struct {
	samples  []Sample
	realtime bool
	out      *output
}

// NewReplay loads the fixtures file at path.
func NewReplay(path string, realtime bool) (*Replay, error) {
	samples, err := loadFixtures(path)
	if err != nil {
		return nil, err
	}
	return &Replay{samples: samples, realtime: realtime, out: newOutput(0)}, nil
}

// Samples is the ordered output stream.
func (r *Replay) Samples() <-chan Sample { return r.out.Samples() }

// Dropped reports samples discarded because the consumer fell behind.
func (r *Replay) Dropped() int64 { return r.out.Dropped() }

// Len returns the number of loaded samples.
func (r *Replay) Len() int { return len(r.samples) }

// Run emits the recorded samples and returns when the recording is
// exhausted or the context is cancelled.
func (r *Replay) Run(ctx context.Context) error {
	defer close(r.out.ch)
	var prev float64
	for i, s := range r.samples {
		if r.realtime && i > 0 {
			if dt := s.DeviceTime - prev; dt > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Duration(dt * float64(time.Second))):
				}
			}
		}
		prev = s.DeviceTime

		if r.realtime {
			if !r.out.offer(ctx, s) {
				return ctx.Err()
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r.out.ch <- s:
		}
	}
	return nil
}

func loadFixtures(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixtures file: %w", err)
	}
	defer f.Close()

	var samples []Sample
	scan := bufio.NewScanner(f)
	lineNo := 0
	for scan.Scan() {
		lineNo++
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s, err := parseFixtureLine(line)
		if err != nil {
			return nil, fmt.Errorf("fixtures line %d: %w", lineNo, err)
		}
		samples = append(samples, s)
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fixtures file: %w", err)
	}
	return samples, nil
}

func parseFixtureLine(line string) (Sample, error) {
	segments := strings.Split(line, ",")
	if len(segments) != 8 {
		return Sample{}, fmt.Errorf("invalid sample format: %d segments, expected 8", len(segments))
	}
	vals := make([]float64, 8)
	for i, seg := range segments {
		v, err := strconv.ParseFloat(strings.TrimSpace(seg), 64)
		if err != nil {
			return Sample{}, fmt.Errorf("failed to parse field %d: %w", i, err)
		}
		vals[i] = v
	}
	return Sample{
		LeftX: vals[0], LeftY: vals[1],
		RightX: vals[2], RightY: vals[3],
		LeftPupil: vals[4], RightPupil: vals[5],
		DeviceTime: vals[6], LocalClock: vals[7],
	}, nil
}
