package rollback

import (
	"testing"
	"time"
)

// fakeClock is advanced manually by tests rather than by wall-clock time, so
// Pacer behavior can be checked deterministically (§9, "Tests inject a
// virtual clock for reproducibility").
type fakeClock struct {
	now time.Duration
}

func (c *fakeClock) Now() time.Duration {
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.now += d
}

func TestPacerFirstAdvanceDoesNotTick(t *testing.T) {
	clock := &fakeClock{}
	p := NewPacer(clock, 60)

	ticks := 0
	p.Advance(func() { ticks++ }, nil)

	if ticks != 0 {
		t.Fatalf("ticks on first Advance = %d, want 0 (no elapsed delta yet)", ticks)
	}
}

func TestPacerTicksOncePerFramePeriod(t *testing.T) {
	clock := &fakeClock{}
	p := NewPacer(clock, 60)

	p.Advance(func() {}, nil) // establish baseline, zero delta

	clock.advance(p.FramePeriod())

	ticks := 0
	p.Advance(func() { ticks++ }, nil)

	if ticks != 1 {
		t.Fatalf("ticks after one frame period = %d, want 1", ticks)
	}
}

func TestPacerAccumulatesMultipleTicks(t *testing.T) {
	clock := &fakeClock{}
	p := NewPacer(clock, 60)

	p.Advance(func() {}, nil)

	clock.advance(3 * p.FramePeriod())

	ticks := 0
	p.Advance(func() { ticks++ }, nil)

	if ticks != 3 {
		t.Fatalf("ticks after 3 frame periods = %d, want 3", ticks)
	}
}

func TestPacerCarriesPartialFrameForward(t *testing.T) {
	clock := &fakeClock{}
	p := NewPacer(clock, 60)

	p.Advance(func() {}, nil)

	half := p.FramePeriod() / 2
	clock.advance(half)

	ticks := 0
	p.Advance(func() { ticks++ }, nil)
	if ticks != 0 {
		t.Fatalf("ticks after half a frame period = %d, want 0", ticks)
	}

	// The remaining half plus another half period should now total
	// one full frame period's worth of accumulated time.
	clock.advance(half)
	p.Advance(func() { ticks++ }, nil)
	if ticks != 1 {
		t.Fatalf("ticks after accumulated full period = %d, want 1", ticks)
	}
}

func TestPacerRendersExactlyOncePerAdvanceRegardlessOfTickCount(t *testing.T) {
	clock := &fakeClock{}
	p := NewPacer(clock, 60)

	p.Advance(func() {}, nil)
	clock.advance(5 * p.FramePeriod())

	renders := 0
	p.Advance(func() {}, func() { renders++ })

	if renders != 1 {
		t.Fatalf("renders = %d, want exactly 1", renders)
	}
}

func TestPacerCapsBacklogAtMaxAccumulator(t *testing.T) {
	clock := &fakeClock{}
	p := NewPacer(clock, 60)

	p.Advance(func() {}, nil)

	// A huge stall (e.g. a breakpoint) must not produce a burst of ticks
	// proportional to the full stall; it's capped at maxAccumulator.
	clock.advance(10 * time.Second)

	ticks := 0
	p.Advance(func() { ticks++ }, nil)

	want := int(maxAccumulator / p.FramePeriod())
	if ticks != want {
		t.Fatalf("ticks after a 10s stall = %d, want %d (capped at maxAccumulator)", ticks, want)
	}
}

func TestPacerNilRenderIsSafe(t *testing.T) {
	clock := &fakeClock{}
	p := NewPacer(clock, 60)

	p.Advance(func() {}, nil)
	clock.advance(p.FramePeriod())

	// Must not panic when render is omitted.
	p.Advance(func() {}, nil)
}

func TestPacerDefaultsInvalidTargetFPS(t *testing.T) {
	clock := &fakeClock{}
	p := NewPacer(clock, 0)

	if p.FramePeriod() != time.Second/60 {
		t.Fatalf("FramePeriod with targetFPS=0 = %v, want %v (defaulted to 60)", p.FramePeriod(), time.Second/60)
	}
}
