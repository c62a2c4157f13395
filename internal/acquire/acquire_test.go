package acquire

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestScriptedEmitsInOrder(t *testing.T) {
	script := []Sample{
		{LeftX: 0.1, DeviceTime: 0.0},
		{LeftX: 0.2, DeviceTime: 0.1},
		{LeftX: 0.3, DeviceTime: 0.2},
	}
	src := NewScripted(script)

	done := make(chan error, 1)
	go func() { done <- src.Run(context.Background()) }()

	var got []Sample
	for s := range src.Samples() {
		got = append(got, s)
	}
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if len(got) != len(script) {
		t.Fatalf("received %d samples, want %d", len(got), len(script))
	}
	for i := range script {
		if got[i].LeftX != script[i].LeftX {
			t.Errorf("sample %d LeftX = %v, want %v", i, got[i].LeftX, script[i].LeftX)
		}
	}
	if src.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", src.Dropped())
	}
}

func TestScriptedCancellation(t *testing.T) {
	src := NewScripted(make([]Sample, 1000))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// nobody draining: Run must still return promptly
	if err := src.Run(ctx); err != context.Canceled {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
}

func TestMockProducesSamples(t *testing.T) {
	mock := NewMock(MockConfig{Rate: 1000, Seed: 7})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	go mock.Run(ctx)

	var count int
	var lastTime float64 = -1
	for s := range mock.Samples() {
		count++
		if s.DeviceTime <= lastTime {
			t.Fatalf("device time went backwards: %v after %v", s.DeviceTime, lastTime)
		}
		lastTime = s.DeviceTime
		if !math.IsNaN(s.LeftX) && (s.LeftX < 0 || s.LeftX > 1) {
			t.Fatalf("LeftX = %v out of [0,1]", s.LeftX)
		}
		if !math.IsNaN(s.LeftX) != !math.IsNaN(s.LeftY) {
			t.Fatal("eye-loss invariant violated: one coordinate NaN without the other")
		}
	}
	if count == 0 {
		t.Fatal("mock produced no samples")
	}
}

func TestMockNaNInjection(t *testing.T) {
	mock := NewMock(MockConfig{Rate: 2000, NaNProbability: 0.5, Seed: 3})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	go mock.Run(ctx)

	var total, lost int
	for s := range mock.Samples() {
		total++
		if math.IsNaN(s.LeftX) {
			lost++
			if !math.IsNaN(s.LeftPupil) {
				t.Fatal("lost eye must also lose its pupil diameter")
			}
		}
	}
	if total == 0 || lost == 0 {
		t.Fatalf("expected some lost samples, got %d of %d", lost, total)
	}
}

func TestReplayFixtures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixtures.txt")
	content := "# recorded session\n" +
		"0.5,0.5,0.51,0.5,3.2,3.1,0.0,100.0\n" +
		"\n" +
		"NaN,NaN,0.52,0.5,NaN,3.1,0.1,100.1\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	replay, err := NewReplay(path, false)
	if err != nil {
		t.Fatalf("NewReplay: %v", err)
	}
	if replay.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", replay.Len())
	}

	go replay.Run(context.Background())

	first := <-replay.Samples()
	if first.LeftX != 0.5 || first.DeviceTime != 0.0 {
		t.Fatalf("first sample = %+v", first)
	}
	second := <-replay.Samples()
	if !math.IsNaN(second.LeftX) || !math.IsNaN(second.LeftPupil) {
		t.Fatalf("second sample should carry NaN left eye, got %+v", second)
	}
	if second.RightX != 0.52 {
		t.Fatalf("second sample RightX = %v, want 0.52", second.RightX)
	}
	if _, ok := <-replay.Samples(); ok {
		t.Fatal("channel should close after the recording is exhausted")
	}
}

func TestReplayRejectsMalformedLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(path, []byte("0.5,0.5,0.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewReplay(path, false); err == nil {
		t.Fatal("expected error for malformed fixtures line")
	}
}

func TestOfferDropsOldest(t *testing.T) {
	o := newOutput(2)
	ctx := context.Background()

	o.offer(ctx, Sample{DeviceTime: 1})
	o.offer(ctx, Sample{DeviceTime: 2})
	o.offer(ctx, Sample{DeviceTime: 3})

	got := <-o.ch
	if got.DeviceTime != 2 {
		t.Fatalf("oldest surviving sample DeviceTime = %v, want 2", got.DeviceTime)
	}
	if o.Dropped() != 1 {
		t.Fatalf("Dropped() = %d, want 1", o.Dropped())
	}
}
