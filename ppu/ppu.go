// Package ppu implements the NES picture processing unit: a cycle
// driven renderer running 262 scanlines of 341 dots per frame,
// producing a 256x240 RGB frame buffer.
package ppu

import (
	"bytes"
	"encoding/gob"

	"github.com/bdwalton/famigo/mappers"
)

const (
	SCREEN_WIDTH  = 256
	SCREEN_HEIGHT = 240
	SCREEN_SIZE   = SCREEN_WIDTH * SCREEN_HEIGHT * 3

	OAM_SIZE     = 256
	PALETTE_SIZE = 32

	DOTS_PER_LINE   = 341
	LINES_PER_FRAME = 262
)

// Status tokens returned from Step. The console uses HBLANK to drive
// the mapper's scanline counter and VBLANK as the frame boundary.
type Status uint8

const (
	NOTHING Status = iota
	HBLANK
	VBLANK
)

// PPU carries the register file, the loopy scroll state, both fetch
// pipelines and the frame buffer.
type PPU struct {
	mapper mappers.Mapper

	// PPUCTRL flags
	vramIncrement         uint16
	spritePatternBase     uint16
	backgroundPatternBase uint16
	bigSprites            bool
	generateNMI           bool

	// PPUMASK flags
	greyscale          bool
	showLeftBackground bool
	showLeftSprites    bool
	showBackground     bool
	showSprites        bool
	emphasizeRed       bool
	emphasizeGreen     bool
	emphasizeBlue      bool

	// PPUSTATUS flags
	spriteOverflow bool
	spriteZeroHit  bool
	vblank         bool

	// OAM
	oamAddr uint8
	oam     [OAM_SIZE]uint8

	// loopy's scroll registers
	// https://www.nesdev.org/wiki/PPU_scrolling
	v uint16 // current VRAM address; 15 bits
	t uint16 // temporary VRAM address; 15 bits
	x uint8  // fine X scroll; 3 bits
	w bool   // first/second write toggle

	// background fetch pipeline
	nametableByte      uint8
	bitmapLowInput     uint8
	bitmapHighInput    uint8
	bitmapLowShift     uint16
	bitmapHighShift    uint16
	attributeInput     uint8
	attributeLowShift  uint8
	attributeHighShift uint8
	attributeLowInput  uint8
	attributeHighInput uint8

	palette [PALETTE_SIZE]uint8

	scanline  uint16 // 0-261; 240 is post-render, 241 starts vblank, 261 is pre-render
	scancycle uint16 // 0-340
	oddFrame  bool

	// sprite slots for the line being drawn
	spriteLowBitmaps  [8]uint8
	spriteHighBitmaps [8]uint8
	spriteXCounters   [8]uint8
	spriteAttributes  [8]uint8
	spriteIndices     [8]int
	found             int

	screen [SCREEN_SIZE]uint8

	// delayed PPUDATA read buffer
	readBuffer uint8
}

func New(m mappers.Mapper) *PPU {
	return &PPU{
		mapper:             m,
		vramIncrement:      1,
		showLeftBackground: true,
		showLeftSprites:    true,
	}
}

// Screen returns the frame buffer: 256x240 pixels, 3 bytes per pixel
// in R, G, B order, row major.
func (p *PPU) Screen() []uint8 {
	return p.screen[:]
}

// NMIEnabled reports whether PPUCTRL currently asks for an NMI at
// vertical blank.
func (p *PPU) NMIEnabled() bool {
	return p.generateNMI
}

func (p *PPU) Resolution() (int, int) {
	return SCREEN_WIDTH, SCREEN_HEIGHT
}

// vramRead reads the PPU bus: pattern tables and nametables live in
// the mapper, palette RAM is internal.
func (p *PPU) vramRead(addr uint16) uint8 {
	addr &= 0x3FFF
	if addr >= 0x3F00 {
		return p.palette[paletteIndex(addr)]
	}
	return p.mapper.ChrRead(addr)
}

func (p *PPU) vramWrite(addr uint16, val uint8) {
	addr &= 0x3FFF
	if addr >= 0x3F00 {
		p.palette[paletteIndex(addr)] = val
		return
	}
	p.mapper.ChrWrite(addr, val)
}

func bitwiseReverse(x uint8) uint8 {
	x = (x&0xF0)>>4 | (x&0x0F)<<4
	x = (x&0xCC)>>2 | (x&0x33)<<2
	x = (x&0xAA)>>1 | (x&0x55)<<1
	return x
}

func getBit(what uint16, which uint8) uint8 {
	return uint8((what >> which) & 1)
}

// evaluateSprites scans OAM for the up-to-eight sprites covering the
// current scanline and loads their bitmaps into the sprite slots.
func (p *PPU) evaluateSprites() {
	var oam2 [0x20]uint8
	for i := range oam2 {
		oam2[i] = 0xFF
	}

	height := uint16(8)
	if p.bigSprites {
		height = 16
	}

	p.found = 0
	for n := 0; n < 64 && p.found < 8; n++ {
		y := uint16(p.oam[n*4])
		if y <= p.scanline && p.scanline < y+height {
			oam2[p.found*4] = p.oam[n*4]
			oam2[p.found*4+1] = p.oam[n*4+1]
			oam2[p.found*4+2] = p.oam[n*4+2]
			// X counters are pre-decremented during
			// composition, so store X+1.
			oam2[p.found*4+3] = p.oam[n*4+3] + 1
			p.spriteIndices[p.found] = n
			p.found++
		}
	}

	for i := 0; i < p.found; i++ {
		p.spriteXCounters[i] = oam2[i*4+3]
		p.spriteAttributes[i] = oam2[i*4+2]

		row := p.scanline - uint16(oam2[i*4])
		if p.spriteAttributes[i]&0x80 != 0 { // vertical flip
			flip := uint16(0)
			if p.bigSprites {
				flip = 8
			}
			row = ((row & 8) ^ flip) | (7 - (row & 7))
		}

		tile := uint16(oam2[i*4+1])
		var addr uint16
		if !p.bigSprites {
			addr = p.spritePatternBase | tile<<4 | row
		} else {
			// 8x16 sprites pick their pattern table from
			// the tile number's low bit.
			row = row&7 | (row&8)<<1
			addr = (tile&1)<<12 | (tile&0xFE)<<4 | row
		}

		p.spriteLowBitmaps[i] = p.vramRead(addr)
		p.spriteHighBitmaps[i] = p.vramRead(addr | 8)
		if p.spriteAttributes[i]&0x40 != 0 { // horizontal flip
			p.spriteLowBitmaps[i] = bitwiseReverse(p.spriteLowBitmaps[i])
			p.spriteHighBitmaps[i] = bitwiseReverse(p.spriteHighBitmaps[i])
		}
	}
}

// composePixel produces one pixel at the current dot from the
// background shifters and the sprite slots.
func (p *PPU) composePixel() {
	attributeBits := getBit(uint16(p.attributeLowShift), 7-p.x) + 2*getBit(uint16(p.attributeHighShift), 7-p.x)
	bitmapBits := getBit(p.bitmapLowShift, 15-p.x) + 2*getBit(p.bitmapHighShift, 15-p.x)
	background := true

	// No sprites ever render on the first line; evaluation runs on
	// the line before the sprites appear.
	if p.scanline != 0 {
		spritePx := true
		for i := 0; i < p.found; i++ {
			if p.spriteXCounters[i] != 0 {
				p.spriteXCounters[i]--
			}
			if p.spriteXCounters[i] != 0 {
				continue
			}

			spriteBitmapBits := p.spriteLowBitmaps[i]>>7 + 2*(p.spriteHighBitmaps[i]>>7)
			p.spriteLowBitmaps[i] <<= 1
			p.spriteHighBitmaps[i] <<= 1

			priority := p.spriteAttributes[i]&0x20 == 0
			spriteAttributeBits := p.spriteAttributes[i] & 0x3

			if spriteBitmapBits != 0 && bitmapBits != 0 && p.spriteIndices[i] == 0 {
				p.spriteZeroHit = true
			}
			if spritePx && spriteBitmapBits != 0 && !(p.scancycle < 9 && !p.showLeftSprites) {
				spritePx = false
				if bitmapBits == 0 || priority {
					bitmapBits = spriteBitmapBits
					attributeBits = spriteAttributeBits
					background = false
				}
			}
		}
	}

	color := p.fetchColor(background, attributeBits, bitmapBits)
	px, py := int(p.scancycle)-1, int(p.scanline)
	if background && px < 8 && !p.showLeftBackground {
		color = p.fetchColor(true, 0, 0)
	}
	p.pixel(px, py, color)
}

// backgroundFetch runs the 8-dot background fetch cadence: nametable
// byte, attribute byte, low bitplane, high bitplane, then a shifter
// reload.
func (p *PPU) backgroundFetch() {
	switch p.scancycle % 8 {
	case 1:
		// Index at the nametable base, ignoring fine Y in the
		// high bits.
		p.nametableByte = p.vramRead(0x2000 | (p.v & 0xFFF))
	case 3:
		// Attribute table: indexed by nametable chosen, high
		// bits of coarse Y and coarse X...
		attrIndex := 0x23C0 | p.v&0xC00 | (p.v>>4)&0x38 | (p.v>>2)&0x7
		// ...with the 2-bit group selected by the low bits.
		shift := (p.v & 0b10) | (p.v>>4)&0b100
		p.attributeInput = (p.vramRead(attrIndex) >> shift) & 0b11
	case 5:
		// The tile we fetched, indexed by fine Y.
		p.bitmapLowInput = p.vramRead(p.backgroundPatternBase | uint16(p.nametableByte)<<4 | p.v>>12)
	case 7:
		p.bitmapHighInput = p.vramRead(p.backgroundPatternBase | uint16(p.nametableByte)<<4 | p.v>>12 | 8)
	case 0:
		p.bitmapLowShift |= uint16(p.bitmapLowInput)
		p.bitmapHighShift |= uint16(p.bitmapHighInput)
		p.attributeLowInput = p.attributeInput & 0b1
		p.attributeHighInput = (p.attributeInput & 0b10) >> 1
	}
}

// incrementCoarseX moves v one tile right, wrapping into the other
// horizontal nametable.
func (p *PPU) incrementCoarseX() {
	if p.v&0x1F == 0x1F {
		p.v &^= 0x1F
		p.v ^= 0x400
	} else {
		p.v += 1
	}
}

// incrementFineY moves v one line down, carrying into coarse Y and
// wrapping into the other vertical nametable past row 29.
func (p *PPU) incrementFineY() {
	if p.v&0x7000 != 0x7000 {
		p.v += 0x1000
		return
	}

	p.v &^= 0x7000
	y := (p.v & 0x3E0) >> 5
	switch y {
	case 29:
		y = 0
		p.v ^= 0x800
	case 31:
		// Rows 30 and 31 hold attribute data; wrapping from
		// there doesn't switch nametables.
		y = 0
	default:
		y += 1
	}
	p.v = (p.v &^ 0x3E0) | (y << 5)
}

// Step advances the PPU by one dot, returning a status token when the
// dot starts horizontal or vertical blank.
// Sources:
// https://www.nesdev.org/wiki/PPU_scrolling
// https://www.nesdev.org/wiki/PPU_rendering
func (p *PPU) Step() Status {
	result := NOTHING
	draw := p.showSprites || p.showBackground
	fetchLine := p.scanline < 240 || p.scanline == 261
	fetchCycle := draw && fetchLine &&
		((0 < p.scancycle && p.scancycle <= 256) ||
			(321 <= p.scancycle && p.scancycle <= 336))

	if fetchCycle {
		if p.scanline < 240 && p.scancycle <= 256 {
			p.composePixel()
		}

		p.bitmapLowShift <<= 1
		p.bitmapHighShift <<= 1
		p.attributeLowShift = p.attributeLowShift<<1 | p.attributeLowInput
		p.attributeHighShift = p.attributeHighShift<<1 | p.attributeHighInput

		p.backgroundFetch()
	}

	if p.showSprites && p.scancycle == 321 && p.scanline < 239 {
		p.evaluateSprites()
	}

	if draw {
		if p.scanline < 240 && p.scancycle == 256 {
			p.incrementFineY()
		}
		if (p.scanline < 240 || p.scanline == 261) && p.scancycle == 257 {
			// Copy the horizontal bits from t.
			p.v = (p.v &^ 0x41F) | (p.t & 0x41F)
		}
		if p.scanline == 261 && 280 <= p.scancycle && p.scancycle <= 304 {
			// Copy the vertical bits from t.
			p.v = (p.v &^ 0x7BE0) | (p.t & 0x7BE0)
		}
		if fetchCycle && p.scancycle%8 == 0 {
			p.incrementCoarseX()
		}
	}

	if p.scancycle == 280 && fetchLine && draw {
		result = HBLANK
	}
	if p.scanline == 241 && p.scancycle == 1 {
		p.vblank = true
		p.spriteZeroHit = false
		result = VBLANK
	}

	p.scancycle += 1
	if p.scancycle == DOTS_PER_LINE ||
		(p.scanline == 261 && p.oddFrame && draw && p.scancycle == DOTS_PER_LINE-1) {
		p.scancycle = 0
		p.scanline += 1
		if p.scanline == LINES_PER_FRAME {
			p.scanline = 0
			p.oddFrame = !p.oddFrame
		}
	}

	return result
}

// ppuState mirrors PPU for serialization.
type ppuState struct {
	VRAMIncrement         uint16
	SpritePatternBase     uint16
	BackgroundPatternBase uint16
	BigSprites            bool
	GenerateNMI           bool

	Greyscale          bool
	ShowLeftBackground bool
	ShowLeftSprites    bool
	ShowBackground     bool
	ShowSprites        bool
	EmphasizeRed       bool
	EmphasizeGreen     bool
	EmphasizeBlue      bool

	SpriteOverflow bool
	SpriteZeroHit  bool
	VBlank         bool

	OAMAddr uint8
	OAM     []uint8

	V uint16
	T uint16
	X uint8
	W bool

	NametableByte      uint8
	BitmapLowInput     uint8
	BitmapHighInput    uint8
	BitmapLowShift     uint16
	BitmapHighShift    uint16
	AttributeInput     uint8
	AttributeLowShift  uint8
	AttributeHighShift uint8
	AttributeLowInput  uint8
	AttributeHighInput uint8

	Palette []uint8

	Scanline  uint16
	Scancycle uint16
	OddFrame  bool

	SpriteLowBitmaps  [8]uint8
	SpriteHighBitmaps [8]uint8
	SpriteXCounters   [8]uint8
	SpriteAttributes  [8]uint8
	SpriteIndices     [8]int
	Found             int

	Screen []uint8

	ReadBuffer uint8
}

// Serialize captures every mutable field of the PPU.
func (p *PPU) Serialize() ([]byte, error) {
	s := ppuState{
		VRAMIncrement:         p.vramIncrement,
		SpritePatternBase:     p.spritePatternBase,
		BackgroundPatternBase: p.backgroundPatternBase,
		BigSprites:            p.bigSprites,
		GenerateNMI:           p.generateNMI,
		Greyscale:             p.greyscale,
		ShowLeftBackground:    p.showLeftBackground,
		ShowLeftSprites:       p.showLeftSprites,
		ShowBackground:        p.showBackground,
		ShowSprites:           p.showSprites,
		EmphasizeRed:          p.emphasizeRed,
		EmphasizeGreen:        p.emphasizeGreen,
		EmphasizeBlue:         p.emphasizeBlue,
		SpriteOverflow:        p.spriteOverflow,
		SpriteZeroHit:         p.spriteZeroHit,
		VBlank:                p.vblank,
		OAMAddr:               p.oamAddr,
		OAM:                   p.oam[:],
		V:                     p.v,
		T:                     p.t,
		X:                     p.x,
		W:                     p.w,
		NametableByte:         p.nametableByte,
		BitmapLowInput:        p.bitmapLowInput,
		BitmapHighInput:       p.bitmapHighInput,
		BitmapLowShift:        p.bitmapLowShift,
		BitmapHighShift:       p.bitmapHighShift,
		AttributeInput:        p.attributeInput,
		AttributeLowShift:     p.attributeLowShift,
		AttributeHighShift:    p.attributeHighShift,
		AttributeLowInput:     p.attributeLowInput,
		AttributeHighInput:    p.attributeHighInput,
		Palette:               p.palette[:],
		Scanline:              p.scanline,
		Scancycle:             p.scancycle,
		OddFrame:              p.oddFrame,
		SpriteLowBitmaps:      p.spriteLowBitmaps,
		SpriteHighBitmaps:     p.spriteHighBitmaps,
		SpriteXCounters:       p.spriteXCounters,
		SpriteAttributes:      p.spriteAttributes,
		SpriteIndices:         p.spriteIndices,
		Found:                 p.found,
		Screen:                p.screen[:],
		ReadBuffer:            p.readBuffer,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Deserialize restores a previously captured state in place.
func (p *PPU) Deserialize(data []byte) error {
	var s ppuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}

	p.vramIncrement = s.VRAMIncrement
	p.spritePatternBase = s.SpritePatternBase
	p.backgroundPatternBase = s.BackgroundPatternBase
	p.bigSprites = s.BigSprites
	p.generateNMI = s.GenerateNMI
	p.greyscale = s.Greyscale
	p.showLeftBackground = s.ShowLeftBackground
	p.showLeftSprites = s.ShowLeftSprites
	p.showBackground = s.ShowBackground
	p.showSprites = s.ShowSprites
	p.emphasizeRed = s.EmphasizeRed
	p.emphasizeGreen = s.EmphasizeGreen
	p.emphasizeBlue = s.EmphasizeBlue
	p.spriteOverflow = s.SpriteOverflow
	p.spriteZeroHit = s.SpriteZeroHit
	p.vblank = s.VBlank
	p.oamAddr = s.OAMAddr
	copy(p.oam[:], s.OAM)
	p.v = s.V
	p.t = s.T
	p.x = s.X
	p.w = s.W
	p.nametableByte = s.NametableByte
	p.bitmapLowInput = s.BitmapLowInput
	p.bitmapHighInput = s.BitmapHighInput
	p.bitmapLowShift = s.BitmapLowShift
	p.bitmapHighShift = s.BitmapHighShift
	p.attributeInput = s.AttributeInput
	p.attributeLowShift = s.AttributeLowShift
	p.attributeHighShift = s.AttributeHighShift
	p.attributeLowInput = s.AttributeLowInput
	p.attributeHighInput = s.AttributeHighInput
	copy(p.palette[:], s.Palette)
	p.scanline = s.Scanline
	p.scancycle = s.Scancycle
	p.oddFrame = s.OddFrame
	p.spriteLowBitmaps = s.SpriteLowBitmaps
	p.spriteHighBitmaps = s.SpriteHighBitmaps
	p.spriteXCounters = s.SpriteXCounters
	p.spriteAttributes = s.SpriteAttributes
	p.spriteIndices = s.SpriteIndices
	p.found = s.Found
	copy(p.screen[:], s.Screen)
	p.readBuffer = s.ReadBuffer
	return nil
}
