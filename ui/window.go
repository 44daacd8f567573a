// Package ui presents a simulator's rendered frame in an on-screen window
// and reads local controller input. Composites whatever render texture
// and arena size the simulator reports, so it is not tied to any one
// simulator implementation.
package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/kurodenkou/playtogether/input"
	"github.com/kurodenkou/playtogether/simulator/demo"
)

// Texturer is implemented by a simulator whose Render draws into an
// off-screen raylib render texture this window can present.
type Texturer interface {
	Texture() rl.RenderTexture2D
	ArenaSize() (width, height int32)
}

type Window struct {
	MuteDelegate   func()
	ResyncDelegate func()
	ResetDelegate  func()
	ShowFPS        bool

	shouldClose bool
	scale       int
	width       int
	height      int
}

// CreateWindow opens a window sized for sim's arena at the given integer
// scale.
func CreateWindow(sim Texturer, scale int, verbose bool) *Window {
	if !verbose {
		rl.SetTraceLogLevel(rl.LogNone)
	}

	arenaW, arenaH := sim.ArenaSize()
	windowWidth := int(arenaW) * scale
	windowHeight := int(arenaH) * scale

	rl.InitWindow(int32(windowWidth), int32(windowHeight), "Play Together")
	rl.SetExitKey(0) // disable exit on ESC

	return &Window{
		scale:  scale,
		width:  windowWidth,
		height: windowHeight,
	}
}

func (w *Window) SetTitle(title string) {
	rl.SetWindowTitle(title)
}

func (w *Window) SetFrameRate(fps int) {
	rl.SetTargetFPS(int32(fps))
}

func (w *Window) Close() {
	rl.CloseWindow()
}

func (w *Window) ShouldClose() bool {
	return w.shouldClose || rl.WindowShouldClose()
}

func (w *Window) drawTextWithShadow(text string, x int32, y int32, size int32, colour rl.Color) {
	rl.DrawText(text, x+1, y+1, size, rl.Black)
	rl.DrawText(text, x, y, size, colour)
}

// Present composites sim's current render texture into the window and
// draws the FPS overlay. This window owns no texture of its own; sim
// renders into its own, and Present only composites it.
func (w *Window) Present(sim Texturer) {
	tex := sim.Texture()

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	rl.DrawTexturePro(
		tex.Texture,
		rl.Rectangle{
			Width:  float32(tex.Texture.Width),
			Height: float32(tex.Texture.Height),
		},
		rl.Rectangle{
			Width:  float32(w.width),
			Height: float32(w.height),
		},
		rl.Vector2{
			X: 0,
			Y: 0,
		},
		0,
		rl.White,
	)

	if w.ShowFPS {
		fps := fmt.Sprintf("%d fps", rl.GetFPS())
		w.drawTextWithShadow(fps, 6, 5, 10, rl.White)
	}

	rl.EndDrawing()
}

func (w *Window) InFocus() bool {
	return rl.IsWindowFocused()
}

func (w *Window) isModifierPressed() bool {
	ctrl := rl.IsKeyDown(rl.KeyLeftControl) || rl.IsKeyDown(rl.KeyRightControl)
	super := rl.IsKeyDown(rl.KeyLeftSuper) || rl.IsKeyDown(rl.KeyRightSuper)
	return super || ctrl
}

func (w *Window) HandleHotKeys() {
	switch {
	case rl.IsKeyPressed(rl.KeyF12):
		rl.TakeScreenshot("screenshot.png")

	case rl.IsKeyPressed(rl.KeyM):
		if w.MuteDelegate != nil {
			w.MuteDelegate()
		}

	case w.isModifierPressed() && rl.IsKeyPressed(rl.KeyQ):
		w.shouldClose = true

	case w.isModifierPressed() && rl.IsKeyPressed(rl.KeyR):
		if w.ResetDelegate != nil {
			w.ResetDelegate()
		}

	case w.isModifierPressed() && rl.IsKeyPressed(rl.KeyX):
		if w.ResyncDelegate != nil {
			w.ResyncDelegate()
		}
	}
}

// ReadLocalInput polls the keyboard into an input.Bits value: arrow keys
// or WASD for movement, either shift key for dash. Bits reflect whatever
// is currently held, so a prediction that holds the last-seen bits stays
// correct for as long as a key is held.
func ReadLocalInput() input.Bits {
	var bits input.Bits

	if rl.IsKeyDown(rl.KeyUp) || rl.IsKeyDown(rl.KeyW) {
		bits |= demo.BitUp
	}

	if rl.IsKeyDown(rl.KeyDown) || rl.IsKeyDown(rl.KeyS) {
		bits |= demo.BitDown
	}

	if rl.IsKeyDown(rl.KeyLeft) || rl.IsKeyDown(rl.KeyA) {
		bits |= demo.BitLeft
	}

	if rl.IsKeyDown(rl.KeyRight) || rl.IsKeyDown(rl.KeyD) {
		bits |= demo.BitRight
	}

	if rl.IsKeyDown(rl.KeyLeftShift) || rl.IsKeyDown(rl.KeyRightShift) {
		bits |= demo.BitDash
	}

	return bits
}
