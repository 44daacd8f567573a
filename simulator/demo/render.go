package demo

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

var playerColors = [...]rl.Color{rl.SkyBlue, rl.Orange, rl.Lime, rl.Pink}

// renderer owns the off-screen texture the demo draws into; ui.Window
// composites it onto the actual window.
type renderer struct {
	viewport    rl.RenderTexture2D
	initialized bool
}

func (r *renderer) ensureInit() {
	if r.initialized {
		return
	}

	r.viewport = rl.LoadRenderTexture(arenaWidth, arenaHeight)
	rl.SetTextureFilter(r.viewport.Texture, rl.FilterPoint)
	r.initialized = true
}

// Texture returns the render target the arena was most recently drawn
// into, for a ui.Window to present.
func (r *renderer) Texture() rl.RenderTexture2D {
	r.ensureInit()
	return r.viewport
}

func (r *renderer) draw(w *World) {
	r.ensureInit()

	rl.BeginTextureMode(r.viewport)
	rl.ClearBackground(rl.NewColor(20, 20, 28, 255))

	for i := range w.pellets {
		rl.DrawCircle(w.pellets[i].Pos.X, w.pellets[i].Pos.Y, float32(pelletRadius), rl.Gold)
	}

	for i, p := range w.players {
		colour := playerColors[i%len(playerColors)]
		rl.DrawCircle(p.Pos.X, p.Pos.Y, float32(playerRadius), colour)

		if p.Sounding {
			rl.DrawCircleLines(p.Pos.X, p.Pos.Y, float32(playerRadius)+3, rl.White)
		}
	}

	rl.EndTextureMode()
}
