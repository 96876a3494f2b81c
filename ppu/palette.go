package ppu

// COLORS is the 64-entry master palette, as 0xRRGGBB. The 6-bit
// values stored in palette RAM index into this table.
// https://www.nesdev.org/wiki/PPU_palettes
var COLORS = [64]uint32{
	0x666666, 0x002A88, 0x1412A7, 0x3B00A4, 0x5C007E, 0x6E0040, 0x6C0600, 0x561D00,
	0x333500, 0x0B4800, 0x005200, 0x004F08, 0x00404D, 0x000000, 0x000000, 0x000000,
	0xADADAD, 0x155FD9, 0x4240FF, 0x7527FE, 0xA01ACC, 0xB71E7B, 0xB53120, 0x994E00,
	0x6B6D00, 0x388700, 0x0C9300, 0x008F32, 0x007C8D, 0x000000, 0x000000, 0x000000,
	0xFFFEFF, 0x64B0FF, 0x9290FF, 0xC676FF, 0xF36AFF, 0xFE6ECC, 0xFE8170, 0xEA9E22,
	0xBCBE00, 0x88D800, 0x5CE430, 0x45E082, 0x48CDDE, 0x4F4F4F, 0x000000, 0x000000,
	0xFFFEFF, 0xC0DFFF, 0xD3D2FF, 0xE8C8FF, 0xFBC2FF, 0xFEC4EA, 0xFECCC5, 0xF7D8A5,
	0xE4E594, 0xCFEF96, 0xBDF4AB, 0xB3F3CC, 0xB5EBF2, 0xB8B8B8, 0x000000, 0x000000,
}

// paletteIndex folds a palette RAM offset, aliasing the sprite
// backdrop entries 0x10/0x14/0x18/0x1C onto the background ones.
func paletteIndex(addr uint16) uint16 {
	i := addr & 0x1F
	switch i {
	case 0x10, 0x14, 0x18, 0x1C:
		i -= 0x10
	}
	return i
}

// fetchColor resolves a 2-bit color within a palette to an RGB value.
// Color 0 of every palette aliases the universal background color.
func (p *PPU) fetchColor(background bool, paletteNo, color uint8) uint32 {
	if color == 0 {
		return COLORS[p.palette[0]&0x3F]
	}

	i := paletteNo<<2 + color
	if !background {
		i += 0x10
	}
	return COLORS[p.palette[i]&0x3F]
}

// pixel writes one RGB pixel into the frame buffer.
func (p *PPU) pixel(x, y int, color uint32) {
	off := (y*SCREEN_WIDTH + x) * 3
	p.screen[off] = uint8(color >> 16)
	p.screen[off+1] = uint8(color >> 8)
	p.screen[off+2] = uint8(color)
}
