package rollback

import (
	"testing"

	"github.com/kurodenkou/playtogether/input"
	"github.com/kurodenkou/playtogether/playerid"
)

func newTestScheduler(t *testing.T, local, remote playerid.PlayerID, inputDelay, maxRollback int) (*Scheduler, *fakeSimulator) {
	t.Helper()

	sim := newFakeSimulator([]playerid.PlayerID{local, remote})

	cfg := Config{
		InputDelay:  inputDelay,
		MaxRollback: maxRollback,
		LocalPlayer: local,
		Players:     []playerid.PlayerID{local, remote},
	}

	cb := Callbacks{
		ReadLocalInput: func() input.Bits { return 0x00 },
		SendLocalInput: func(Frame, input.Bits) {},
	}

	s := New(cfg, sim, cb)
	s.Start()

	return s, sim
}

// TestScenarioS1NoJitterNoMispredict: two peers, input-delay=2,
// max-rollback=8. Local reads 0x00 every frame; remote sends 0x00 every
// frame and it always arrives before it's needed. After 60 ticks there
// should be no rollbacks.
func TestScenarioS1NoJitterNoMispredict(t *testing.T) {
	local, remote := playerid.New(), playerid.New()
	s, _ := newTestScheduler(t, local, remote, 2, 8)

	for f := Frame(0); f < 60; f++ {
		s.ReceiveRemoteInput(f, remote, 0x00)
		s.Tick()
	}

	if got := s.stats.RollbackCount; got != 0 {
		t.Fatalf("rollback count = %d, want 0", got)
	}

	if s.CurrentFrame() != 60 {
		t.Fatalf("current frame = %d, want 60", s.CurrentFrame())
	}

	if s.ConfirmedFrame() < 58 {
		t.Fatalf("confirmed frame = %d, want >= 58", s.ConfirmedFrame())
	}
}

// TestScenarioS2LateArrivalCorrectPrediction: remote goes silent for one
// tick (frame 10 arrives one tick late). Since the predictor holds the
// same value the late input turns out to have, no rollback is triggered.
func TestScenarioS2LateArrivalCorrectPrediction(t *testing.T) {
	local, remote := playerid.New(), playerid.New()
	s, _ := newTestScheduler(t, local, remote, 2, 8)

	for f := Frame(0); f < 60; f++ {
		switch f {
		case 10:
			// Withhold frame 10's input this tick; deliver next tick.
		case 11:
			s.ReceiveRemoteInput(10, remote, 0x00)
			s.ReceiveRemoteInput(11, remote, 0x00)
		default:
			s.ReceiveRemoteInput(f, remote, 0x00)
		}

		s.Tick()
	}

	if got := s.stats.RollbackCount; got != 0 {
		t.Fatalf("rollback count = %d, want 0", got)
	}
}

// TestScenarioS3MispredictionTriggersRollback: frame 10's remote input
// differs from the held prediction and arrives two ticks late. The engine
// must roll back to frame 10 and re-step through frame 11 with the
// correct value.
func TestScenarioS3MispredictionTriggersRollback(t *testing.T) {
	local, remote := playerid.New(), playerid.New()
	s, _ := newTestScheduler(t, local, remote, 2, 8)

	for f := Frame(0); f < 10; f++ {
		s.ReceiveRemoteInput(f, remote, 0x00)
		s.Tick()
	}

	// Frames 10, 11 tick with the prediction (0x00) held, no delivery yet.
	s.Tick() // currentFrame 10 -> 11
	s.Tick() // currentFrame 11 -> 12... but deliver frame10's real value first below.

	// The above ticked past 10 and 11 speculatively; now deliver the real,
	// contradicting value for frame 10.
	s.ReceiveRemoteInput(10, remote, 0x01)
	s.Tick() // this tick rewinds to frame 10 before stepping frame 12.

	if got := s.stats.RollbackCount; got != 1 {
		t.Fatalf("rollback count = %d, want 1", got)
	}

	if got := s.stats.LastRollbackDepth; got != 2 {
		t.Fatalf("rollback depth = %d, want 2", got)
	}
}

// TestScenarioS4MultiFrameConsolidation: three remote messages arrive
// between ticks: frame 20 and 22 contradict the prediction, frame 21
// matches it. The rollback target must be the earliest contradiction
// (20), and only one rollback is counted even though two frames
// mispredicted.
func TestScenarioS4MultiFrameConsolidation(t *testing.T) {
	local, remote := playerid.New(), playerid.New()
	s, _ := newTestScheduler(t, local, remote, 2, 8)

	for f := Frame(0); f < 20; f++ {
		s.ReceiveRemoteInput(f, remote, 0x00)
		s.Tick()
	}

	// Frames 20, 21, 22 tick speculatively with no remote delivery.
	s.Tick() // 20 -> 21
	s.Tick() // 21 -> 22
	s.Tick() // 22 -> 23

	s.ReceiveRemoteInput(20, remote, 0x01) // mispredict
	s.ReceiveRemoteInput(22, remote, 0x01) // mispredict
	s.ReceiveRemoteInput(21, remote, 0x00) // matches prediction

	if !s.hasPendingRollback || s.pendingRollback != 20 {
		t.Fatalf("pending rollback = %v/%d, want true/20", s.hasPendingRollback, s.pendingRollback)
	}

	s.Tick() // executes the consolidated rollback

	if got := s.stats.RollbackCount; got != 1 {
		t.Fatalf("rollback count = %d, want 1", got)
	}

	if got := s.stats.LastRollbackDepth; got < 3 {
		t.Fatalf("rollback depth = %d, want >= 3", got)
	}
}

// TestScenarioS5PastHorizonMispredictionDropped: a remote input arrives
// for a frame at or below the confirmed-frame watermark and contradicts
// what was used. No rollback is scheduled; the event is simply logged.
func TestScenarioS5PastHorizonMispredictionDropped(t *testing.T) {
	local, remote := playerid.New(), playerid.New()
	s, _ := newTestScheduler(t, local, remote, 2, 8)

	s.currentFrame = 100
	s.confirmedFrame = 95
	s.history.Used.Set(90, input.Map{local: 0x00, remote: 0x00})

	s.ReceiveRemoteInput(90, remote, 0x01)

	if s.hasPendingRollback {
		t.Fatalf("pending rollback scheduled for past-horizon frame: %d", s.pendingRollback)
	}

	if got := s.stats.RollbackCount; got != 0 {
		t.Fatalf("rollback count = %d, want 0", got)
	}
}

// TestScenarioS7PendingRollbackStaleByTickTimeDiscarded: a misprediction is
// detected and a rollback target scheduled while it is still ahead of the
// confirmed-frame watermark, but the very same remote message also advances
// that watermark up to the target before the next Tick consumes it. Per
// §4.4.4 this makes the rollback a no-op: Tick must discard it rather than
// execute a rewind, and must not retain the target's snapshot in history
// past the ordinary prune threshold.
func TestScenarioS7PendingRollbackStaleByTickTimeDiscarded(t *testing.T) {
	local, remote := playerid.New(), playerid.New()
	s, _ := newTestScheduler(t, local, remote, 2, 8)

	for f := Frame(0); f < 20; f++ {
		s.ReceiveRemoteInput(f, remote, 0x00)
		s.Tick()
	}

	// Frames 20, 21, 22 tick speculatively with no remote delivery.
	s.Tick() // 20 -> 21
	s.Tick() // 21 -> 22
	s.Tick() // 22 -> 23

	// This single message both contradicts the held prediction for frame
	// 20 (scheduling a rollback target of 20) and, by raising the remote
	// watermark to 20, advances confirmedFrame to 20 in the same call:
	// the target is stale before Tick ever runs.
	s.ReceiveRemoteInput(20, remote, 0x01)

	if !s.hasPendingRollback || s.pendingRollback != 20 {
		t.Fatalf("pending rollback = %v/%d, want true/20", s.hasPendingRollback, s.pendingRollback)
	}

	if s.confirmedFrame < s.pendingRollback {
		t.Fatalf("confirmed frame = %d, want >= pending target %d for this scenario", s.confirmedFrame, s.pendingRollback)
	}

	s.Tick()

	if got := s.stats.RollbackCount; got != 0 {
		t.Fatalf("rollback count = %d, want 0 (stale target must be discarded, not executed)", got)
	}

	if s.hasPendingRollback {
		t.Fatalf("pending rollback still set after Tick consumed it")
	}

	if _, ok := s.history.States.Get(s.confirmedFrame - 2); ok {
		t.Fatalf("history retains a snapshot below the prune threshold")
	}
}

// TestScenarioS6DeterminismRoundTrip: save/load round-tripping mid-stream
// must not change subsequent behavior. Replaying the same inputs from a
// reloaded snapshot produces byte-identical snapshots at every subsequent
// frame compared to the un-interrupted run.
func TestScenarioS6DeterminismRoundTrip(t *testing.T) {
	local, remote := playerid.New(), playerid.New()
	sim := newFakeSimulator([]playerid.PlayerID{local, remote})

	const warmup = 500
	const replay = 100

	inputs := make([]input.Map, replay)
	for i := range inputs {
		inputs[i] = input.Map{local: input.Bits(i % 7), remote: input.Bits((i * 3) % 5)}
	}

	for i := 0; i < warmup; i++ {
		sim.Step(input.Map{local: input.Bits(i % 3), remote: input.Bits(i % 2)})
	}

	checkpoint := sim.SaveState()

	var baseline [][]byte
	for _, m := range inputs {
		sim.Step(m)
		baseline = append(baseline, sim.SaveState())
	}

	sim.LoadState(checkpoint)

	for i, m := range inputs {
		sim.Step(m)
		got := sim.SaveState()

		if string(got) != string(baseline[i]) {
			t.Fatalf("snapshot %d diverged after reload", i)
		}
	}
}

// TestRequestResyncReturnsCheckpointAtConfirmedFrame verifies RequestResync
// is exactly Checkpoint: the most recent snapshot known free of future
// mispredictions.
func TestRequestResyncReturnsCheckpointAtConfirmedFrame(t *testing.T) {
	local, remote := playerid.New(), playerid.New()
	s, _ := newTestScheduler(t, local, remote, 2, 8)

	for f := Frame(0); f < 20; f++ {
		s.ReceiveRemoteInput(f, remote, 0x00)
		s.Tick()
	}

	wantFrame, wantSnapshot, wantOK := s.Checkpoint()
	gotFrame, gotSnapshot, gotOK := s.RequestResync()

	if !wantOK || !gotOK {
		t.Fatalf("Checkpoint/RequestResync ok = %v/%v, want both true", wantOK, gotOK)
	}

	if gotFrame != wantFrame || string(gotSnapshot) != string(wantSnapshot) {
		t.Fatalf("RequestResync = (%d, %x), want (%d, %x)", gotFrame, gotSnapshot, wantFrame, wantSnapshot)
	}
}

// TestApplyResyncAdoptsSnapshotAsNewConfirmedTimeline verifies a resync
// resets the engine onto a fresh timeline: the simulator's state matches
// the snapshot, current/confirmed frame both become the resync frame, any
// pending rollback is discarded, and history is cleared so nothing from
// before the resync can be looked up.
func TestApplyResyncAdoptsSnapshotAsNewConfirmedTimeline(t *testing.T) {
	local, remote := playerid.New(), playerid.New()
	s, sim := newTestScheduler(t, local, remote, 2, 8)

	for f := Frame(0); f < 20; f++ {
		s.ReceiveRemoteInput(f, remote, 0x00)
		s.Tick()
	}

	other := newFakeSimulator([]playerid.PlayerID{local, remote})
	for i := 0; i < 5; i++ {
		other.Step(input.Map{local: 0x03, remote: 0x05})
	}

	snapshot := other.SaveState()
	s.ApplyResync(5, snapshot)

	if s.CurrentFrame() != 5 {
		t.Fatalf("current frame after resync = %d, want 5", s.CurrentFrame())
	}

	if s.ConfirmedFrame() != 5 {
		t.Fatalf("confirmed frame after resync = %d, want 5", s.ConfirmedFrame())
	}

	if string(sim.SaveState()) != string(snapshot) {
		t.Fatalf("simulator state after resync does not match the applied snapshot")
	}

	if _, ok := s.history.States.Get(0); ok {
		t.Fatalf("history should be cleared after resync, but frame 0 snapshot is still present")
	}
}
