// Package console wires the CPU, PPU, mapper and audio unit together
// and drives them with a fixed-ratio stepper: one CPU cycle, one
// mapper interrupt poll, then three PPU dots. It is also the ebiten
// host surface - one Update is one emulated frame.
package console

import (
	"bytes"
	"encoding/gob"

	"github.com/bdwalton/famigo/apu"
	"github.com/bdwalton/famigo/mappers"
	"github.com/bdwalton/famigo/mos6502"
	"github.com/bdwalton/famigo/ppu"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// SAVE_SLOTS is how many save-state slots the console keeps.
const SAVE_SLOTS = 9

type Console struct {
	cpu    *mos6502.CPU
	ppu    *ppu.PPU
	mapper mappers.Mapper
	audio  apu.Unit

	savestates [SAVE_SLOTS][]byte

	rgba []byte // scratch buffer for handing frames to ebiten
}

func New(m mappers.Mapper, audio apu.Unit) *Console {
	c := &Console{
		mapper: m,
		audio:  audio,
	}
	c.ppu = ppu.New(m)
	c.cpu = mos6502.New(m, c.ppu, audio)
	c.audio.Init(c.cpu.Read)

	w, h := c.ppu.Resolution()
	c.rgba = make([]byte, w*h*4)
	ebiten.SetWindowSize(w*2, h*2) // Start with 2x the screen size
	ebiten.SetWindowTitle("Famigo")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	return c
}

// RunFrame steps the machine until the PPU reaches vertical blank:
// per CPU cycle, the mapper interrupt line is polled and the PPU runs
// three dots. Horizontal blank tokens drive the mapper's scanline
// counter.
func (c *Console) RunFrame() error {
	for {
		if err := c.cpu.Tick(); err != nil {
			return err
		}
		if c.mapper.Pending() {
			c.cpu.TriggerIRQ()
		}

		vblank := false
		for i := 0; i < 3; i++ {
			switch c.ppu.Step() {
			case ppu.HBLANK:
				c.mapper.Scanline()
			case ppu.VBLANK:
				vblank = true
			}
		}

		if vblank {
			c.audio.RunFrame(c.cpu.Elapsed())
			c.cpu.Frame()
			if c.ppu.NMIEnabled() {
				c.cpu.TriggerNMI()
			}
			return nil
		}
	}
}

// Update runs one frame of emulation and is called by ebiten roughly
// every 1/60s, which is also our frame pacing.
func (c *Console) Update() error {
	if err := c.RunFrame(); err != nil {
		return err
	}

	c.handleSaveStates()
	c.pollInput()

	return nil
}

// Draw updates the displayed ebiten window with the current frame
// buffer.
func (c *Console) Draw(screen *ebiten.Image) {
	px := c.ppu.Screen()
	for i := 0; i < len(px)/3; i++ {
		c.rgba[i*4] = px[i*3]
		c.rgba[i*4+1] = px[i*3+1]
		c.rgba[i*4+2] = px[i*3+2]
		c.rgba[i*4+3] = 0xFF
	}
	screen.WritePixels(c.rgba)
}

// Layout returns the constant resolution of the NES and is part of
// the ebiten.Game interface. By returning constants here, we will
// force ebiten to scale the display when the window size changes.
func (c *Console) Layout(w, h int) (int, int) {
	return c.ppu.Resolution()
}

// Buttons, in shift order: A, B, Select, Start, Up, Down, Left, Right.
var padKeys = [2][8]ebiten.Key{
	{
		ebiten.KeyZ,          // A
		ebiten.KeyX,          // B
		ebiten.KeyShiftRight, // Select
		ebiten.KeyEnter,      // Start
		ebiten.KeyUp,         // Up
		ebiten.KeyDown,       // Down
		ebiten.KeyLeft,       // Left
		ebiten.KeyRight,      // Right
	},
	{
		ebiten.KeyA, // A
		ebiten.KeyS, // B
		ebiten.KeyF, // Select
		ebiten.KeyD, // Start
		ebiten.KeyI, // Up
		ebiten.KeyK, // Down
		ebiten.KeyJ, // Left
		ebiten.KeyL, // Right
	},
}

// pollInput resamples both controllers. Called once per frame, at
// vertical blank.
func (c *Console) pollInput() {
	for pad, keys := range padKeys {
		var buttons [8]bool
		for i, key := range keys {
			buttons[i] = ebiten.IsKeyPressed(key)
		}
		c.cpu.SetInputs(pad, buttons)
	}
}

var saveKeys = [SAVE_SLOTS]ebiten.Key{
	ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3,
	ebiten.KeyDigit4, ebiten.KeyDigit5, ebiten.KeyDigit6,
	ebiten.KeyDigit7, ebiten.KeyDigit8, ebiten.KeyDigit9,
}

var restoreKeys = [SAVE_SLOTS]ebiten.Key{
	ebiten.KeyF1, ebiten.KeyF2, ebiten.KeyF3,
	ebiten.KeyF4, ebiten.KeyF5, ebiten.KeyF6,
	ebiten.KeyF7, ebiten.KeyF8, ebiten.KeyF9,
}

// handleSaveStates captures to slot n on keys 1-9 and restores from
// slot n on F1-F9.
func (c *Console) handleSaveStates() {
	for i := 0; i < SAVE_SLOTS; i++ {
		if inpututil.IsKeyJustPressed(saveKeys[i]) {
			if data, err := c.SaveState(); err == nil {
				c.savestates[i] = data
			}
		}
		if inpututil.IsKeyJustPressed(restoreKeys[i]) {
			// Bad or empty slots are ignored.
			c.RestoreState(c.savestates[i])
		}
	}
}

// snapshot is a save state: one opaque blob per component.
type snapshot struct {
	CPU    []byte
	APU    []byte
	PPU    []byte
	Mapper []byte
}

// SaveState captures the full machine state as a single blob.
func (c *Console) SaveState() ([]byte, error) {
	var s snapshot
	var err error

	if s.CPU, err = c.cpu.Serialize(); err != nil {
		return nil, err
	}
	s.APU = c.audio.Snapshot()
	if s.PPU, err = c.ppu.Serialize(); err != nil {
		return nil, err
	}
	if s.Mapper, err = c.mapper.Serialize(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RestoreState applies a blob captured by SaveState. Malformed input
// returns an error with the machine state unchanged.
func (c *Console) RestoreState(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}

	// Components are applied one at a time; if a later one fails to
	// decode, the ones already applied are rolled back from prev.
	prev, err := c.SaveState()
	if err != nil {
		return err
	}
	if err = c.cpu.Deserialize(s.CPU); err == nil {
		c.audio.Restore(s.APU)
		if err = c.ppu.Deserialize(s.PPU); err == nil {
			err = c.mapper.Deserialize(s.Mapper)
		}
	}
	if err != nil {
		c.RestoreState(prev)
	}
	return err
}

// SaveData dumps the mapper's battery-backed work RAM for the host's
// save file.
func (c *Console) SaveData() []byte {
	return c.mapper.SaveData()
}
