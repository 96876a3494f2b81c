package mappers

import (
	"bytes"
	"encoding/gob"

	"github.com/bdwalton/famigo/nesrom"
)

// nrom is mapper 0: no bank switching at all. PRG ROM appears
// directly at 0x8000, with a single 16KB bank mirrored into the upper
// half, and the CHR payload appears directly on the PPU bus.
type nrom struct {
	rom        *nesrom.ROM
	prgRAM     [PRG_RAM_SIZE]uint8
	nametables [2][NAMETABLE_SIZE]uint8
}

func newNROM(rom *nesrom.ROM) *nrom {
	m := &nrom{rom: rom}
	copy(m.prgRAM[:], rom.SaveData())
	return m
}

func (m *nrom) arrangement() int {
	if m.rom.VerticalMirroring() {
		return MIRROR_VERTICAL
	}
	return MIRROR_HORIZONTAL
}

func (m *nrom) PrgRead(addr uint16) uint8 {
	switch {
	case 0x6000 <= addr && addr <= 0x7FFF:
		return m.prgRAM[addr-0x6000]
	case addr >= 0x8000:
		a := int(addr)
		if m.rom.NumPrgBlocks() == 1 {
			// A lone 16KB bank is mirrored at 0xC000.
			a &= 0xBFFF
		}
		return m.rom.PrgRead(a - 0x8000)
	}
	return 0
}

func (m *nrom) PrgWrite(addr uint16, val uint8) {
	if 0x6000 <= addr && addr <= 0x7FFF {
		m.prgRAM[addr-0x6000] = val
	}
}

func (m *nrom) ChrRead(addr uint16) uint8 {
	switch {
	case addr <= 0x1FFF:
		return m.rom.ChrRead(int(addr))
	case addr <= 0x3EFF:
		nt, off := resolveNametable(m.arrangement(), addr)
		return m.nametables[nt][off]
	}
	return 0
}

func (m *nrom) ChrWrite(addr uint16, val uint8) {
	switch {
	case addr <= 0x1FFF:
		if m.rom.ChrIsRAM() {
			m.rom.ChrWrite(int(addr), val)
		}
	case addr <= 0x3EFF:
		nt, off := resolveNametable(m.arrangement(), addr)
		m.nametables[nt][off] = val
	}
}

func (m *nrom) Scanline() {}

func (m *nrom) Pending() bool {
	return false
}

func (m *nrom) SaveData() []byte {
	d := make([]byte, PRG_RAM_SIZE)
	copy(d, m.prgRAM[:])
	return d
}

type nromState struct {
	PrgRAM     []uint8
	Nametables [2][]uint8
}

func (m *nrom) Serialize() ([]byte, error) {
	s := nromState{
		PrgRAM:     m.prgRAM[:],
		Nametables: [2][]uint8{m.nametables[0][:], m.nametables[1][:]},
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *nrom) Deserialize(data []byte) error {
	var s nromState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}

	copy(m.prgRAM[:], s.PrgRAM)
	copy(m.nametables[0][:], s.Nametables[0])
	copy(m.nametables[1][:], s.Nametables[1])
	return nil
}
