package mappers

import (
	"bytes"
	"encoding/gob"

	"github.com/bdwalton/famigo/nesrom"
)

// mmc1 is mapper 1. All control traffic arrives through a single
// 5-bit serial port: writes to 0x8000-0xFFFF shift their low bit into
// a latch, LSB first, and the fifth shift commits the assembled value
// to the register selected by bits 13-14 of the write address.
// https://www.nesdev.org/wiki/MMC1
type mmc1 struct {
	rom *nesrom.ROM

	// input is the serial latch. The 1 bit seeded at position 4
	// marks the fill level: when it shifts out the bottom, the
	// five data bits are in and the write commits.
	input uint8

	mirroring uint8 // 0=single low, 1=single high, 2=vertical, 3=horizontal
	prgMode   uint8 // 0/1=32KB window, 2=fix first bank, 3=fix last bank
	chrMode   uint8 // 0=one 8KB window, 1=two 4KB windows
	chr0Bank  int
	chr1Bank  int
	prgBank   int
	ramEnable bool

	prgRAM     [PRG_RAM_SIZE]uint8
	nametables [2][NAMETABLE_SIZE]uint8
}

const mmc1InputReset = 1 << 4

func newMMC1(rom *nesrom.ROM) *mmc1 {
	m := &mmc1{
		rom:       rom,
		input:     mmc1InputReset,
		prgMode:   3,
		ramEnable: true,
	}
	copy(m.prgRAM[:], rom.SaveData())
	return m
}

func (m *mmc1) PrgRead(addr uint16) uint8 {
	switch {
	case 0x6000 <= addr && addr <= 0x7FFF:
		return m.prgRAM[addr-0x6000]
	case addr >= 0x8000:
		off := int(addr) - 0x8000
		size := m.rom.PrgSize()
		switch m.prgMode {
		case 0, 1:
			// 32KB window; the selector's low bit is ignored.
			return m.rom.PrgRead((0x8000*(m.prgBank>>1) + off) % size)
		case 2:
			if off < 0x4000 {
				return m.rom.PrgRead(off)
			}
			return m.rom.PrgRead((0x4000*m.prgBank + off - 0x4000) % size)
		case 3:
			if off < 0x4000 {
				return m.rom.PrgRead((0x4000*m.prgBank + off) % size)
			}
			return m.rom.PrgRead(0x4000*(int(m.rom.NumPrgBlocks())-1) + off - 0x4000)
		}
	}
	return 0
}

func (m *mmc1) PrgWrite(addr uint16, val uint8) {
	switch {
	case 0x6000 <= addr && addr <= 0x7FFF:
		m.prgRAM[addr-0x6000] = val
	case addr >= 0x8000:
		if val&0x80 != 0 {
			m.input = mmc1InputReset
			m.prgMode = 3
			return
		}

		full := m.input&1 != 0
		m.input >>= 1
		m.input |= (val & 1) << 4
		if full {
			m.commit(addr, m.input)
			m.input = mmc1InputReset
		}
	}
}

// commit applies a fully shifted-in 5-bit value to the register
// addressed by bits 13-14 of the final write.
func (m *mmc1) commit(addr uint16, val uint8) {
	switch (addr >> 13) & 3 {
	case 0: // 0x8000-0x9FFF: control
		m.mirroring = val & 3
		m.prgMode = (val >> 2) & 3
		m.chrMode = (val >> 4) & 1
	case 1: // 0xA000-0xBFFF: CHR bank 0
		m.chr0Bank = int(val)
	case 2: // 0xC000-0xDFFF: CHR bank 1
		m.chr1Bank = int(val)
	case 3: // 0xE000-0xFFFF: PRG bank, RAM enable
		m.prgBank = int(val & 0xF)
		m.ramEnable = val&0x10 == 0
	}
}

func (m *mmc1) chrOffset(addr uint16) int {
	a := int(addr)
	var off int
	if m.chrMode == 0 {
		// One 8KB window; the selector's low bit is ignored.
		off = 0x2000*(m.chr0Bank>>1) + a
	} else if a < 0x1000 {
		off = 0x1000*m.chr0Bank + a
	} else {
		off = 0x1000*m.chr1Bank + a - 0x1000
	}
	return off % m.rom.ChrSize()
}

func (m *mmc1) ChrRead(addr uint16) uint8 {
	switch {
	case addr <= 0x1FFF:
		return m.rom.ChrRead(m.chrOffset(addr))
	case addr <= 0x3EFF:
		nt, off := resolveNametable(int(m.mirroring), addr)
		return m.nametables[nt][off]
	}
	return 0
}

func (m *mmc1) ChrWrite(addr uint16, val uint8) {
	switch {
	case addr <= 0x1FFF:
		if m.rom.ChrIsRAM() {
			m.rom.ChrWrite(m.chrOffset(addr), val)
		}
	case addr <= 0x3EFF:
		nt, off := resolveNametable(int(m.mirroring), addr)
		m.nametables[nt][off] = val
	}
}

func (m *mmc1) Scanline() {}

func (m *mmc1) Pending() bool {
	return false
}

func (m *mmc1) SaveData() []byte {
	d := make([]byte, PRG_RAM_SIZE)
	copy(d, m.prgRAM[:])
	return d
}

type mmc1State struct {
	Input      uint8
	Mirroring  uint8
	PrgMode    uint8
	ChrMode    uint8
	Chr0Bank   int
	Chr1Bank   int
	PrgBank    int
	RAMEnable  bool
	PrgRAM     []uint8
	Nametables [2][]uint8
}

func (m *mmc1) Serialize() ([]byte, error) {
	s := mmc1State{
		Input:      m.input,
		Mirroring:  m.mirroring,
		PrgMode:    m.prgMode,
		ChrMode:    m.chrMode,
		Chr0Bank:   m.chr0Bank,
		Chr1Bank:   m.chr1Bank,
		PrgBank:    m.prgBank,
		RAMEnable:  m.ramEnable,
		PrgRAM:     m.prgRAM[:],
		Nametables: [2][]uint8{m.nametables[0][:], m.nametables[1][:]},
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *mmc1) Deserialize(data []byte) error {
	var s mmc1State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}

	m.input = s.Input
	m.mirroring = s.Mirroring
	m.prgMode = s.PrgMode
	m.chrMode = s.ChrMode
	m.chr0Bank = s.Chr0Bank
	m.chr1Bank = s.Chr1Bank
	m.prgBank = s.PrgBank
	m.ramEnable = s.RAMEnable
	copy(m.prgRAM[:], s.PrgRAM)
	copy(m.nametables[0][:], s.Nametables[0])
	copy(m.nametables[1][:], s.Nametables[1])
	return nil
}
