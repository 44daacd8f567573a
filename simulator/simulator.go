// Package simulator defines the adapter contract (§4.1) that keeps the
// rollback engine ignorant of which game is running. Any object
// implementing Simulator can be driven by rollback.Scheduler; the engine
// requires only the semantics documented on each method, never a
// particular implementation technique.
package simulator

import "github.com/kurodenkou/playtogether/input"

// Simulator is the capability set the rollback engine requires of a
// concrete game implementation: step, save, load, render. Every method
// must be callable without consulting external entropy, wall-clock time,
// or platform-specific floating-point variance; see the determinism
// rules in §4.1.
type Simulator interface {
	// Step advances the simulation by exactly one logical frame using the
	// full input map for the current frame. Must be deterministic: the
	// same prior state plus the same inputs produces bit-identical
	// resulting state on every participant.
	Step(inputs input.Map)

	// SaveState returns an opaque snapshot of all mutable state sufficient
	// to restore an equivalent simulator via LoadState. Two snapshots
	// taken from bit-identical states must be equal byte-for-byte. The
	// returned slice is owned by the caller; implementations must not
	// retain or mutate it afterwards.
	SaveState() []byte

	// LoadState restores the simulator from a snapshot previously returned
	// by SaveState, such that subsequent Step calls behave identically to
	// the original from that point on. LoadState(SaveState()) is the
	// identity on simulator behavior.
	LoadState(snapshot []byte)

	// Render presents the current frame. Must be a pure read of state: it
	// must not mutate anything Step or SaveState depend on, and may be
	// skipped entirely without affecting determinism.
	Render()
}

// AudioMuter is an optional capability. A Simulator that emits audio
// implements it so the engine can silence re-simulated (rolled-back)
// frames without altering their determinism; muted Step calls must still
// be byte-deterministic, they simply must not emit audible samples.
type AudioMuter interface {
	SetAudioMuted(muted bool)
}

// SetAudioMuted toggles mute on sim if it implements AudioMuter, and is a
// no-op otherwise. The scheduler calls this rather than type-asserting
// inline at every call site.
func SetAudioMuted(sim Simulator, muted bool) {
	if m, ok := sim.(AudioMuter); ok {
		m.SetAudioMuted(muted)
	}
}
