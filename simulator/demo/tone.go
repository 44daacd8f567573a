package demo

import (
	"math"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

const sampleRate beep.SampleRate = 44100

// pelletTone is a square-wave beep.Streamer played continuously by the
// speaker, independent of the simulation's own frame clock; outside of the
// few frames where a player just collected a pellet it streams silence.
// Its phase is a presentation side effect like Render, not simulation
// state: it is never saved or restored, so rollback re-simulation can
// re-trigger it freely without touching anything SaveState depends on
// (§4.1). Muting during re-simulation exists only to stop an audible
// replay of chimes the player already heard the first time through.
type pelletTone struct {
	freq    float64
	phase   float64
	samples int // samples remaining in the current pellet chime
	muted   bool
}

func newPelletTone() *pelletTone {
	return &pelletTone{freq: 880}
}

// trigger starts (or restarts) a short chime. Called once per Step when
// anySounding reports a collection, muted or not: the phase must advance
// identically regardless of mute state, only the emitted amplitude differs.
func (t *pelletTone) trigger() {
	speaker.Lock()
	t.samples = int(sampleRate) / 10 // 100ms chime
	speaker.Unlock()
}

func (t *pelletTone) setMuted(muted bool) {
	t.muted = muted
}

func (t *pelletTone) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		var val float64

		if t.samples > 0 {
			if t.phase < 0.5 {
				val = 0.25
			} else {
				val = -0.25
			}

			t.phase += t.freq / float64(sampleRate)
			t.phase -= math.Floor(t.phase)
			t.samples--
		}

		if t.muted {
			val = 0
		}

		samples[i][0] = val
		samples[i][1] = val
	}

	return len(samples), true
}

func (t *pelletTone) Err() error { return nil }
