package rollback

import (
	"github.com/kurodenkou/playtogether/input"
	"github.com/kurodenkou/playtogether/playerid"
)

// Predict implements the hold-last policy (§4.3): given a frame and
// player whose confirmed input for that frame is unknown, return the most
// recently confirmed input for that player at any frame strictly before
// it. The search looks back at most 2*maxRollback frames; if nothing is
// found in that window it returns zero (all bits clear).
//
// Human controller inputs exhibit high temporal autocorrelation, so
// holding the last known value is correct far more often than assuming a
// neutral input.
func Predict(confirmed *ConfirmedStore, frame Frame, player playerid.PlayerID, maxRollback int) input.Bits {
	window := Frame(2 * maxRollback)

	floor := frame - window
	if floor < 0 {
		floor = 0
	}

	for f := frame - 1; f >= floor; f-- {
		if bits, ok := confirmed.GetPlayer(f, player); ok {
			return bits
		}
	}

	return 0
}
