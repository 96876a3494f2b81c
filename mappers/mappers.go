// Package mappers implements the cartridge-resident bank switching
// logic that sits between the CPU/PPU buses and the ROM payloads.
// Mappers are referenced numerically by iNES ROM files.
package mappers

import (
	"fmt"

	"github.com/bdwalton/famigo/nesrom"
)

// A Mapper virtualises two address spaces: the CPU bus from
// 0x4020-0xFFFF (PRG ROM, work RAM, control registers) and the PPU
// bus from 0x0000-0x3EFF (CHR ROM/RAM and the two physical
// nametables). It also carries the per-scanline IRQ machinery used by
// MMC3-class boards.
type Mapper interface {
	// PrgRead and PrgWrite cover the CPU bus, 0x4020-0xFFFF.
	PrgRead(addr uint16) uint8
	PrgWrite(addr uint16, val uint8)
	// ChrRead and ChrWrite cover the PPU bus, 0x0000-0x3EFF.
	ChrRead(addr uint16) uint8
	ChrWrite(addr uint16, val uint8)
	// Scanline is the per-scanline tick, fired at horizontal blank.
	Scanline()
	// Pending reports a latched IRQ request, clearing it.
	Pending() bool
	// SaveData dumps the 8KB work RAM image.
	SaveData() []byte
	Serialize() ([]byte, error)
	Deserialize(data []byte) error
}

const (
	PRG_RAM_SIZE   = 0x2000
	NAMETABLE_SIZE = 0x400
)

// Nametable arrangements. The two physical nametables cover four
// logical quadrants; the arrangement decides which backs which.
const (
	MIRROR_SINGLE_LOW = iota
	MIRROR_SINGLE_HIGH
	MIRROR_VERTICAL
	MIRROR_HORIZONTAL
)

// ntSelect maps arrangement and quadrant to a physical nametable.
var ntSelect = [4][4]int{
	MIRROR_SINGLE_LOW:  {0, 0, 0, 0},
	MIRROR_SINGLE_HIGH: {1, 1, 1, 1},
	MIRROR_VERTICAL:    {0, 1, 0, 1},
	MIRROR_HORIZONTAL:  {0, 0, 1, 1},
}

// resolveNametable reduces a PPU bus address in 0x2000-0x3EFF to a
// physical nametable and an offset within it.
func resolveNametable(arrangement int, addr uint16) (int, uint16) {
	a := addr & 0xFFF
	return ntSelect[arrangement][a>>10], a & (NAMETABLE_SIZE - 1)
}

// Get returns a mapper for the given ROM or an error naming the
// unsupported mapper id.
func Get(rom *nesrom.ROM) (Mapper, error) {
	switch id := rom.MapperNum(); id {
	case 0:
		return newNROM(rom), nil
	case 1:
		return newMMC1(rom), nil
	case 4:
		return newMMC3(rom), nil
	default:
		return nil, fmt.Errorf("unsupported mapper id %d", id)
	}
}
