// Package input defines the bit-packed controller input encoding the
// rollback engine carries but never interprets (§3, "Input bits").
package input

import "github.com/kurodenkou/playtogether/playerid"

// Bits is a fixed-width, bit-packed encoding of one player's controller
// state for one frame. The engine compares two Bits values only for
// equality; it never inspects individual bits. Sixteen bits covers every
// simulator adapter in this genre (the built-in demo assigns 5, emulator
// adapters up to 16 per §3).
type Bits uint16

// Map is the total input for a frame: one Bits value per player in the
// match's fixed player set.
type Map map[playerid.PlayerID]Bits

// Equal reports whether m and other assign the same Bits to the same set
// of players.
func (m Map) Equal(other Map) bool {
	if len(m) != len(other) {
		return false
	}

	for player, bits := range m {
		if otherBits, ok := other[player]; !ok || otherBits != bits {
			return false
		}
	}

	return true
}

// Clone returns a shallow copy of m, safe to mutate independently.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for player, bits := range m {
		out[player] = bits
	}
	return out
}
