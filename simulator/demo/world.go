// Package demo implements the built-in deterministic simulator referenced
// by §2 and §4.1: a small multiplayer arena where each player chases
// pellets, driven entirely by integer arithmetic so that Step is bit-exact
// across every participant and every re-simulation.
package demo

import (
	"sort"

	"github.com/kurodenkou/playtogether/input"
	"github.com/kurodenkou/playtogether/playerid"
)

// Input bit assignments. The demo assigns the low 5 of the 16 available
// bits.
const (
	BitUp input.Bits = 1 << iota
	BitDown
	BitLeft
	BitRight
	BitDash
)

const (
	arenaWidth  int32 = 256
	arenaHeight int32 = 224

	playerRadius int32 = 6
	pelletRadius int32 = 3

	moveSpeed int32 = 2
	dashBonus int32 = 3

	pelletCount = 6
)

type vec2 struct {
	X, Y int32
}

type playerState struct {
	ID       playerid.PlayerID
	Pos      vec2
	Score    uint32
	Sounding bool // true for one Step after collecting a pellet
}

type pellet struct {
	Pos vec2
}

// World is the deterministic game state. Field order here is the order
// state.go reads and writes them in; keep the two in sync.
type World struct {
	frame   uint64
	rng     prng
	players []*playerState // sorted by PlayerID, fixed for the match
	pellets [pelletCount]pellet
}

// newWorld builds a World for the given fixed player set. Player order is
// sorted once here so iteration is deterministic regardless of map or
// input ordering upstream.
func newWorld(players []playerid.PlayerID, seed uint64) *World {
	sorted := make([]playerid.PlayerID, len(players))
	copy(sorted, players)

	sort.Slice(sorted, func(i, j int) bool {
		return lessPlayerID(sorted[i], sorted[j])
	})

	w := &World{rng: newPRNG(seed)}

	for i, id := range sorted {
		w.players = append(w.players, &playerState{
			ID:  id,
			Pos: vec2{X: int32(40 + i*30), Y: arenaHeight / 2},
		})
	}

	for i := range w.pellets {
		w.pellets[i].Pos = w.randomPelletPos()
	}

	return w
}

func lessPlayerID(a, b playerid.PlayerID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}

	return false
}

func (w *World) randomPelletPos() vec2 {
	return vec2{
		X: pelletRadius + w.rng.intn(arenaWidth-2*pelletRadius),
		Y: pelletRadius + w.rng.intn(arenaHeight-2*pelletRadius),
	}
}

// step advances the world by one frame given the full input map. Player
// order is fixed at construction, so two calls with equal maps always
// touch player and pellet state in the same sequence.
func (w *World) step(inputs input.Map) {
	w.frame++

	for _, p := range w.players {
		p.Sounding = false

		bits := inputs[p.ID]
		speed := moveSpeed
		if bits&BitDash != 0 {
			speed += dashBonus
		}

		if bits&BitUp != 0 {
			p.Pos.Y -= speed
		}
		if bits&BitDown != 0 {
			p.Pos.Y += speed
		}
		if bits&BitLeft != 0 {
			p.Pos.X -= speed
		}
		if bits&BitRight != 0 {
			p.Pos.X += speed
		}

		p.Pos = clampToArena(p.Pos)
	}

	// Collision pass runs after all movement so a two-player swap can't
	// let either claim a pellet the other already passed through.
	for _, p := range w.players {
		for i := range w.pellets {
			if collides(p.Pos, w.pellets[i].Pos) {
				p.Score++
				p.Sounding = true
				w.pellets[i].Pos = w.randomPelletPos()
			}
		}
	}
}

func clampToArena(v vec2) vec2 {
	if v.X < playerRadius {
		v.X = playerRadius
	}
	if v.X > arenaWidth-playerRadius {
		v.X = arenaWidth - playerRadius
	}
	if v.Y < playerRadius {
		v.Y = playerRadius
	}
	if v.Y > arenaHeight-playerRadius {
		v.Y = arenaHeight - playerRadius
	}

	return v
}

func collides(a, b vec2) bool {
	dx := int64(a.X - b.X)
	dy := int64(a.Y - b.Y)
	r := int64(playerRadius + pelletRadius)

	return dx*dx+dy*dy <= r*r
}

// anySounding reports whether any player collected a pellet this step, the
// gate the tone generator uses to decide whether to sound at all.
func (w *World) anySounding() bool {
	for _, p := range w.players {
		if p.Sounding {
			return true
		}
	}

	return false
}
