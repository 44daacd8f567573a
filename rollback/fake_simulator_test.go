package rollback

import (
	"encoding/binary"

	"github.com/kurodenkou/playtogether/input"
	"github.com/kurodenkou/playtogether/playerid"
)

// fakeSimulator is a minimal deterministic Simulator used to exercise the
// scheduler without depending on a real game. Its state is just an
// accumulator per player plus a frame counter, which is enough to verify
// determinism, save/load round-tripping, and rollback re-simulation.
type fakeSimulator struct {
	players []playerid.PlayerID
	totals  map[playerid.PlayerID]uint64
	frame   uint64
	muted   bool
	history []input.Map // every input map ever stepped, for test assertions
}

func newFakeSimulator(players []playerid.PlayerID) *fakeSimulator {
	totals := make(map[playerid.PlayerID]uint64, len(players))
	for _, p := range players {
		totals[p] = 0
	}

	return &fakeSimulator{players: players, totals: totals}
}

func (f *fakeSimulator) Step(inputs input.Map) {
	for _, p := range f.players {
		f.totals[p] += uint64(inputs[p])
	}

	f.frame++
	f.history = append(f.history, inputs.Clone())
}

func (f *fakeSimulator) SaveState() []byte {
	buf := make([]byte, 8+8*len(f.players))
	binary.LittleEndian.PutUint64(buf[:8], f.frame)

	for i, p := range f.players {
		binary.LittleEndian.PutUint64(buf[8+8*i:16+8*i], f.totals[p])
	}

	return buf
}

func (f *fakeSimulator) LoadState(snapshot []byte) {
	f.frame = binary.LittleEndian.Uint64(snapshot[:8])

	for i, p := range f.players {
		f.totals[p] = binary.LittleEndian.Uint64(snapshot[8+8*i : 16+8*i])
	}
}

func (f *fakeSimulator) Render() {}

func (f *fakeSimulator) SetAudioMuted(muted bool) {
	f.muted = muted
}
