package rollback

import "github.com/kurodenkou/playtogether/playerid"

// Stats is the diagnostic snapshot delivered to the optional on_stats
// callback (§4.4) after every tick.
type Stats struct {
	CurrentFrame       Frame
	ConfirmedFrame     Frame
	RollbackCount      uint64
	LastRollbackDepth  int
	MaxRollbackDepth   int
	// SilentPeers lists remote players whose receive watermark has not
	// advanced within MaxRollback frames of CurrentFrame, the
	// "connection quality" signal §7 recommends surfacing for an
	// out-of-horizon misprediction before it actually happens.
	SilentPeers []playerid.PlayerID

	// Checksum is a CRC-32 (IEEE) of the simulator's current state, for
	// out-of-band comparison against peers to catch a diverged simulator
	// ("simulator non-determinism detected", §7) before it manifests as
	// an unrecoverable out-of-horizon misprediction.
	Checksum uint32
}
