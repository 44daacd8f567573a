package demo

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/kurodenkou/playtogether/internal/binario"
	"github.com/kurodenkou/playtogether/playerid"
)

// saveState encodes the world to a flat byte slice (§4.1, "SaveState
// returns an opaque snapshot... sufficient to restore an equivalent
// simulator"). Field order matches World's declaration order.
func (w *World) saveState() []byte {
	var buf bytes.Buffer
	wr := binario.NewWriter(&buf, binary.LittleEndian)

	err := errors.Join(
		wr.WriteUint64(w.frame),
		wr.WriteUint64(w.rng.state),
		wr.WriteUint32(uint32(len(w.players))),
	)

	for _, p := range w.players {
		err = errors.Join(err,
			wr.WriteRaw(p.ID[:]),
			wr.WriteUint32(uint32(p.Pos.X)),
			wr.WriteUint32(uint32(p.Pos.Y)),
			wr.WriteUint32(p.Score),
			wr.WriteBool(p.Sounding),
		)
	}

	for _, pel := range w.pellets {
		err = errors.Join(err,
			wr.WriteUint32(uint32(pel.Pos.X)),
			wr.WriteUint32(uint32(pel.Pos.Y)),
		)
	}

	if err != nil {
		panic(fmt.Errorf("demo: failed to save state: %w", err))
	}

	return buf.Bytes()
}

// loadState restores the world from a snapshot previously returned by
// saveState. The player slice length must match; the fixed player set
// never changes mid-match (§3, "Player id... fixed for the match").
func (w *World) loadState(snapshot []byte) {
	rd := binario.NewReader(bytes.NewReader(snapshot), binary.LittleEndian)

	var playerCount uint32

	err := errors.Join(
		rd.ReadUint64To(&w.frame),
		rd.ReadUint64To(&w.rng.state),
		rd.ReadUint32To(&playerCount),
	)

	if err != nil {
		panic(fmt.Errorf("demo: failed to load state header: %w", err))
	}

	if int(playerCount) != len(w.players) {
		panic(fmt.Errorf("demo: snapshot has %d players, world has %d", playerCount, len(w.players)))
	}

	for _, p := range w.players {
		var idBuf [16]byte
		var x, y uint32

		err = errors.Join(
			rd.ReadRaw(idBuf[:]),
			rd.ReadUint32To(&x),
			rd.ReadUint32To(&y),
			rd.ReadUint32To(&p.Score),
			rd.ReadBoolTo(&p.Sounding),
		)

		if err != nil {
			panic(fmt.Errorf("demo: failed to load player state: %w", err))
		}

		p.ID = playerid.PlayerID(idBuf)
		p.Pos = vec2{X: int32(x), Y: int32(y)}
	}

	for i := range w.pellets {
		var x, y uint32

		err = errors.Join(
			rd.ReadUint32To(&x),
			rd.ReadUint32To(&y),
		)

		if err != nil {
			panic(fmt.Errorf("demo: failed to load pellet state: %w", err))
		}

		w.pellets[i].Pos = vec2{X: int32(x), Y: int32(y)}
	}
}
