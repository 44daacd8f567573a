package rollback

import (
	"fmt"
	"hash/crc32"
	"log"

	"github.com/kurodenkou/playtogether/input"
	"github.com/kurodenkou/playtogether/playerid"
	"github.com/kurodenkou/playtogether/simulator"
)

// Config holds the scheduler's tuning parameters, fixed at construction
// (§4.4, "Tuning parameters").
type Config struct {
	// InputDelay is the number of frames of artificial local delay before
	// a local input takes effect. Default 2 (~33ms at 60Hz).
	InputDelay int

	// MaxRollback is the maximum number of frames the engine will rewind.
	// Default 8.
	MaxRollback int

	// TargetFPS is the nominal simulation rate, used only to derive the
	// frame period for the pacer (§4.5); the scheduler itself is
	// frame-counted, not wall-clock-timed.
	TargetFPS int

	// LocalPlayer is this participant's own id, excluded from rollback
	// triggering on its own echoed input (§4.4.3 step 1).
	LocalPlayer playerid.PlayerID

	// Players is the fixed, match-start-immutable set of participant ids
	// (§3, "Player id").
	Players []playerid.PlayerID

	// Strict selects the §7 error-handling mode for a duplicate but
	// conflicting confirmed input: true panics (protocol violation is
	// fatal), false logs and discards the conflicting value.
	Strict bool
}

func (c Config) historyCapacity() int {
	return c.MaxRollback + c.InputDelay + 2
}

// Callbacks are the scheduler's contract with its environment (§4.4,
// "Operations (contract with environment)").
type Callbacks struct {
	// ReadLocalInput is called once per tick to get the current local
	// input bits (live controller state, not delayed).
	ReadLocalInput func() input.Bits

	// SendLocalInput is called once per tick with the delayed frame
	// number and local input; the environment transmits it to peers.
	SendLocalInput func(frame Frame, bits input.Bits)

	// OnStats is an optional diagnostic callback invoked after every tick
	// and after every ingested remote input.
	OnStats func(Stats)
}

// Scheduler is the rollback engine's outer loop: it reads local input,
// queues it with input delay, broadcasts it, consumes pending rollback
// requests, snapshots, steps, updates bookkeeping, and prunes history
// (§4.4). A Scheduler is single-threaded cooperative (§5): Tick and
// ReceiveRemoteInput must never be called concurrently with each other.
type Scheduler struct {
	cfg Config
	sim simulator.Simulator
	cb  Callbacks

	history *History

	receiveWatermark map[playerid.PlayerID]Frame
	confirmedFrame   Frame
	currentFrame     Frame

	pendingRollback    Frame
	hasPendingRollback bool

	running bool
	stats   Stats
}

// New creates a Scheduler for sim, configured by cfg and wired to the
// environment via cb.
func New(cfg Config, sim simulator.Simulator, cb Callbacks) *Scheduler {
	if cfg.InputDelay <= 0 {
		cfg.InputDelay = 2
	}

	if cfg.MaxRollback <= 0 {
		cfg.MaxRollback = 8
	}

	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 60
	}

	s := &Scheduler{
		cfg:              cfg,
		sim:              sim,
		cb:               cb,
		receiveWatermark: make(map[playerid.PlayerID]Frame, len(cfg.Players)),
	}

	s.history = NewHistory(cfg.historyCapacity())
	s.resetWatermarks()

	return s
}

func (s *Scheduler) resetWatermarks() {
	for _, p := range s.cfg.Players {
		if p != s.cfg.LocalPlayer {
			s.receiveWatermark[p] = NoFrame
		}
	}

	s.confirmedFrame = NoFrame
}

// Start begins driving the simulation: the frame counter resets to 0 and
// the confirmed-frame watermark to -1. Idempotent after Stop.
func (s *Scheduler) Start() {
	s.currentFrame = 0
	s.hasPendingRollback = false
	s.history = NewHistory(s.cfg.historyCapacity())
	s.resetWatermarks()
	s.running = true
}

// Stop ceases driving the simulation. The simulator itself is not torn
// down; it is merely no longer stepped.
func (s *Scheduler) Stop() {
	s.running = false
}

// Running reports whether the scheduler is currently driving ticks.
func (s *Scheduler) Running() bool {
	return s.running
}

// CurrentFrame returns the next frame number to be stepped.
func (s *Scheduler) CurrentFrame() Frame {
	return s.currentFrame
}

// ConfirmedFrame returns the confirmed-frame watermark.
func (s *Scheduler) ConfirmedFrame() Frame {
	return s.confirmedFrame
}

// Checkpoint returns the most recent frame and state snapshot that is
// guaranteed free of future mispredictions (the confirmed-frame
// watermark), for use by a resync request (§7, "Out-of-horizon
// misprediction"). ok is false if no snapshot has been taken yet.
func (s *Scheduler) Checkpoint() (frame Frame, snapshot []byte, ok bool) {
	if s.confirmedFrame < 0 {
		return 0, nil, false
	}

	snapshot, ok = s.history.States.Get(s.confirmedFrame)
	return s.confirmedFrame, snapshot, ok
}

// RequestResync returns the most recent frame and state snapshot known to
// be free of future mispredictions, for sending to a peer whose receive
// watermark has fallen silent past max-rollback (§9, "Resync / full-state
// catch-up"). It does not alter scheduler state; the environment is
// responsible for packaging the result into a relay message.
func (s *Scheduler) RequestResync() (frame Frame, snapshot []byte, ok bool) {
	return s.Checkpoint()
}

// ApplyResync discards the current timeline and adopts frame/snapshot as
// a new, already-confirmed starting point (§9, "Resync / full-state
// catch-up"). It is the receiving side of RequestResync: for a peer whose
// receive watermark fell silent past max-rollback, this is the only way
// back onto a shared timeline short of leaving the match.
func (s *Scheduler) ApplyResync(frame Frame, snapshot []byte) {
	s.sim.LoadState(snapshot)

	s.currentFrame = frame
	s.confirmedFrame = frame
	s.hasPendingRollback = false
	s.history = NewHistory(s.cfg.historyCapacity())

	for p := range s.receiveWatermark {
		s.receiveWatermark[p] = frame
	}
}

// ShouldStall reports whether the engine has run ahead of its peers by
// max-rollback frames and should pause ticking until fresh remote input
// arrives (§5, "Backpressure / stall behavior").
func (s *Scheduler) ShouldStall() bool {
	lowest, any := s.minReceiveWatermark()
	if !any {
		return false
	}

	return int64(s.currentFrame-lowest) >= int64(s.cfg.MaxRollback)
}

func (s *Scheduler) minReceiveWatermark() (Frame, bool) {
	lowest := Frame(0)
	any := false

	for _, w := range s.receiveWatermark {
		if !any || w < lowest {
			lowest = w
			any = true
		}
	}

	return lowest, any
}

// Tick advances the simulation by exactly one frame (§4.4.1). It is an
// atomic unit that must run to completion without interleaving with
// ReceiveRemoteInput (§5).
func (s *Scheduler) Tick() {
	if !s.running {
		return
	}

	// 1. Capture local input.
	queueFrame := s.currentFrame + Frame(s.cfg.InputDelay)
	localBits := s.cb.ReadLocalInput()

	if err := s.history.Confirmed.Set(queueFrame, s.cfg.LocalPlayer, localBits); err != nil {
		log.Printf("[ERROR] rollback: local input conflict at frame %d: %v", queueFrame, err)
	}

	if s.cb.SendLocalInput != nil {
		s.cb.SendLocalInput(queueFrame, localBits)
	}

	// 2. Execute pending rollback, if any and feasible.
	s.consumePendingRollback()

	// 3. Snapshot current frame.
	s.history.States.Set(s.currentFrame, s.sim.SaveState())

	// 4. Gather inputs for current frame.
	gathered := s.gatherInputs(s.currentFrame)
	s.history.Used.Set(s.currentFrame, gathered)

	// 5. Step.
	s.sim.Step(gathered)

	// 6. Update watermark, prune history, publish stats.
	s.updateWatermarkAndPrune()

	// 7. Advance.
	s.currentFrame++
}

func (s *Scheduler) consumePendingRollback() {
	if !s.hasPendingRollback {
		return
	}

	target := s.pendingRollback
	s.hasPendingRollback = false

	// updateWatermarkAndPrune keeps the confirmed-frame watermark below a
	// pending target, so this guard is defensive: a target at or behind
	// the watermark has nothing left to rewind to, and the rollback is a
	// no-op (§4.4.4): log, discard, continue.
	if target <= s.confirmedFrame {
		log.Printf("[WARN] rollback: pending target %d at or behind confirmed watermark %d, discarding",
			target, s.confirmedFrame)
		return
	}

	if target >= s.currentFrame {
		log.Printf("[WARN] rollback: discarding stale rollback target %d (current=%d)",
			target, s.currentFrame)
		return
	}

	if _, ok := s.history.States.Get(target); !ok {
		log.Printf("[WARN] rollback: no snapshot for rollback target %d, discarding", target)
		return
	}

	s.executeRollback(target)
}

// executeRollback rewinds to frame target and re-steps forward through
// current-frame-1 with freshly gathered inputs (§4.4.5).
func (s *Scheduler) executeRollback(target Frame) {
	snapshot, _ := s.history.States.Get(target)

	simulator.SetAudioMuted(s.sim, true)
	s.sim.LoadState(snapshot)

	for f := target; f < s.currentFrame; f++ {
		s.history.States.Set(f, s.sim.SaveState())

		m := s.gatherInputs(f)
		s.history.Used.Set(f, m)

		s.sim.Step(m)
	}

	simulator.SetAudioMuted(s.sim, false)

	depth := int(s.currentFrame - target)
	s.stats.RollbackCount++
	s.stats.LastRollbackDepth = depth

	if depth > s.stats.MaxRollbackDepth {
		s.stats.MaxRollbackDepth = depth
	}
}

// gatherInputs builds the input map for frame: the confirmed value where
// known, a hold-last prediction otherwise (§4.4.1 step 4).
func (s *Scheduler) gatherInputs(frame Frame) input.Map {
	m := make(input.Map, len(s.cfg.Players))

	for _, player := range s.cfg.Players {
		if bits, ok := s.history.Confirmed.GetPlayer(frame, player); ok {
			m[player] = bits
			continue
		}

		m[player] = Predict(s.history.Confirmed, frame, player, s.cfg.MaxRollback)
	}

	return m
}

// ReceiveRemoteInput ingests a confirmed input from a remote peer
// (§4.4.3). It must not be called concurrently with Tick.
func (s *Scheduler) ReceiveRemoteInput(frame Frame, player playerid.PlayerID, bits input.Bits) {
	if player == s.cfg.LocalPlayer {
		return
	}

	if _, known := s.receiveWatermark[player]; !known {
		log.Printf("[DEBUG] rollback: input from unknown player %s discarded", player)
		return
	}

	s.detectMisprediction(frame, player, bits)

	if err := s.history.Confirmed.Set(frame, player, bits); err != nil {
		if s.cfg.Strict {
			panic(fmt.Errorf("rollback: strict mode: %w", err))
		}

		log.Printf("[WARN] rollback: %v (discarding)", err)
		return
	}

	if frame > s.receiveWatermark[player] {
		s.receiveWatermark[player] = frame
	}

	s.updateWatermarkAndPrune()
}

// detectMisprediction checks whether a just-arrived remote input
// contradicts what was already fed to the simulator for a past frame, and
// if so schedules a rollback to the earliest such frame (§4.4.3 step 2,
// §4.4.4).
func (s *Scheduler) detectMisprediction(frame Frame, player playerid.PlayerID, bits input.Bits) {
	if frame >= s.currentFrame {
		return
	}

	used, ok := s.history.Used.Get(frame)
	if !ok {
		return
	}

	usedBits, ok := used[player]
	if !ok || usedBits == bits {
		return
	}

	if frame <= s.confirmedFrame {
		// Out-of-horizon: the frame is already pruned or beyond recovery.
		// §7 says this should be vanishingly rare; log and move on.
		log.Printf("[WARN] rollback: misprediction at frame %d is past the confirmed watermark %d, dropping",
			frame, s.confirmedFrame)
		return
	}

	if !s.hasPendingRollback || frame < s.pendingRollback {
		s.pendingRollback = frame
		s.hasPendingRollback = true
	}
}

// updateWatermarkAndPrune recomputes the confirmed-frame watermark and
// prunes history below it (§4.4.6). While a rollback is pending the
// watermark is held strictly below its target. Called after every tick and
// after every ingested remote input.
func (s *Scheduler) updateWatermarkAndPrune() {
	watermarkCap := s.currentFrame + Frame(s.cfg.InputDelay)

	if lowest, any := s.minReceiveWatermark(); any && lowest < watermarkCap {
		watermarkCap = lowest
	}

	// The remote input that reveals a misprediction also raises that
	// peer's receive watermark, usually up to the target itself; holding
	// the watermark below the target keeps the target's snapshot out of
	// the prune range until the next Tick has rolled back to it.
	if s.hasPendingRollback && watermarkCap >= s.pendingRollback {
		watermarkCap = s.pendingRollback - 1
	}

	if watermarkCap > s.confirmedFrame {
		s.confirmedFrame = watermarkCap
	}

	threshold := s.confirmedFrame - 1

	if threshold < 0 {
		threshold = 0
	}

	s.history.PruneBelow(threshold)

	s.publishStats()
}

func (s *Scheduler) publishStats() {
	if s.cb.OnStats == nil {
		return
	}

	s.stats.CurrentFrame = s.currentFrame
	s.stats.ConfirmedFrame = s.confirmedFrame
	s.stats.SilentPeers = s.silentPeers()
	s.stats.Checksum = crc32.ChecksumIEEE(s.sim.SaveState())

	s.cb.OnStats(s.stats)
}

func (s *Scheduler) silentPeers() []playerid.PlayerID {
	var silent []playerid.PlayerID

	for p, w := range s.receiveWatermark {
		if int64(s.currentFrame-w) >= int64(s.cfg.MaxRollback) {
			silent = append(silent, p)
		}
	}

	return silent
}
