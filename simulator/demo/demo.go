package demo

import (
	"log"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/gopxl/beep/speaker"

	"github.com/kurodenkou/playtogether/input"
	"github.com/kurodenkou/playtogether/playerid"
	"github.com/kurodenkou/playtogether/simulator"
)

// Demo is the built-in deterministic simulator (§2, "a built-in
// deterministic demo"). It implements simulator.Simulator and
// simulator.AudioMuter and requires no external assets: every visual and
// audible element is generated procedurally from the World's own state.
type Demo struct {
	world    *World
	renderer renderer
	tone     *pelletTone
	seed     uint64
}

var _ simulator.Simulator = (*Demo)(nil)
var _ simulator.AudioMuter = (*Demo)(nil)

// New creates a Demo for the given fixed player set. seed fixes the
// pellet-spawn sequence so that two independently constructed Demos with
// the same players and seed start identically (§4.1, determinism applies
// from construction, not just from Step onward).
func New(players []playerid.PlayerID, seed uint64) *Demo {
	d := &Demo{
		world: newWorld(players, seed),
		tone:  newPelletTone(),
		seed:  seed,
	}

	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		log.Printf("[WARN] demo: speaker init failed (already initialized?): %v", err)
	} else {
		speaker.Play(d.tone)
	}

	return d
}

// Step advances the world by one frame (§4.1, "Step advances the
// simulation by exactly one logical frame").
func (d *Demo) Step(inputs input.Map) {
	d.world.step(inputs)

	if d.world.anySounding() {
		d.tone.trigger()
	}
}

// SaveState returns an opaque snapshot of the world (§4.1, "SaveState").
func (d *Demo) SaveState() []byte {
	return d.world.saveState()
}

// LoadState restores the world from a snapshot previously returned by
// SaveState (§4.1, "LoadState").
func (d *Demo) LoadState(snapshot []byte) {
	d.world.loadState(snapshot)
}

// Render draws the current frame into an off-screen texture a ui.Window
// can present (§4.1, "Render... may be skipped entirely without affecting
// determinism").
func (d *Demo) Render() {
	d.renderer.draw(d.world)
}

// Texture exposes the off-screen render target for a ui.Window to
// composite onto the actual window.
func (d *Demo) Texture() rl.RenderTexture2D {
	return d.renderer.Texture()
}

// ArenaSize returns the fixed pixel dimensions of the playfield, for a
// ui.Window sizing its own viewport around it.
func (d *Demo) ArenaSize() (width, height int32) {
	return arenaWidth, arenaHeight
}

// SetAudioMuted implements simulator.AudioMuter: the scheduler calls this
// around rollback re-simulation so replayed frames don't re-sound chimes
// the player already heard (§4.1, "rollback-safe audio handling").
func (d *Demo) SetAudioMuted(muted bool) {
	speaker.Lock()
	d.tone.setMuted(muted)
	speaker.Unlock()
}

// Reset rebuilds the world from scratch with the same player set and seed
// it was constructed with, for a rematch without tearing down the window
// or audio device.
func (d *Demo) Reset() {
	players := make([]playerid.PlayerID, len(d.world.players))
	for i, p := range d.world.players {
		players[i] = p.ID
	}

	d.world = newWorld(players, d.seed)
}

// PlayerScore returns a participant's current score, for a UI overlay.
func (d *Demo) PlayerScore(id playerid.PlayerID) (uint32, bool) {
	for _, p := range d.world.players {
		if p.ID == id {
			return p.Score, true
		}
	}

	return 0, false
}
