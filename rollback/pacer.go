package rollback

import "time"

// Clock abstracts wall-clock time so the pacer can be driven by a virtual
// clock in tests (§9, "Tests inject a virtual clock for reproducibility").
// Production code wires RealClock; tests advance a fake manually.
type Clock interface {
	Now() time.Duration
}

// RealClock reports elapsed time since it was created, via time.Now.
type RealClock struct {
	start time.Time
}

// NewRealClock creates a Clock anchored to the current wall-clock time.
func NewRealClock() *RealClock {
	return &RealClock{start: time.Now()}
}

func (c *RealClock) Now() time.Duration {
	return time.Since(c.start)
}

// maxAccumulator caps the pacer's backlog at 100ms to prevent a
// death-spiral after a long pause (tab backgrounded, debugger breakpoint,
// etc.), §4.5.
const maxAccumulator = 100 * time.Millisecond

// Pacer drives a Scheduler at a fixed simulation rate using accumulated
// wall-clock time, decoupling the number of simulation ticks per outer
// iteration from the caller's frame rate (§4.5).
type Pacer struct {
	clock       Clock
	framePeriod time.Duration
	lastTick    time.Duration
	accumulator time.Duration
	initialized bool
}

// NewPacer creates a Pacer for the given target simulation rate.
func NewPacer(clock Clock, targetFPS int) *Pacer {
	if targetFPS <= 0 {
		targetFPS = 60
	}

	return &Pacer{
		clock:       clock,
		framePeriod: time.Second / time.Duration(targetFPS),
	}
}

// Advance should be called once per outer-loop iteration. It measures the
// wall-clock delta since the previous call, accumulates it (capped at
// 100ms), and invokes tick() zero or more times while the accumulator
// holds at least one frame period. render() is called exactly once,
// regardless of how many ticks ran, to avoid flicker.
func (p *Pacer) Advance(tick func(), render func()) {
	now := p.clock.Now()

	if !p.initialized {
		p.lastTick = now
		p.initialized = true
	}

	delta := now - p.lastTick
	p.lastTick = now

	p.accumulator += delta
	if p.accumulator > maxAccumulator {
		p.accumulator = maxAccumulator
	}

	for p.accumulator >= p.framePeriod {
		tick()
		p.accumulator -= p.framePeriod
	}

	if render != nil {
		render()
	}
}

// FramePeriod returns the fixed simulation-frame duration derived from
// target FPS.
func (p *Pacer) FramePeriod() time.Duration {
	return p.framePeriod
}
