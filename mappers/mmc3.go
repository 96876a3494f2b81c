package mappers

import (
	"bytes"
	"encoding/gob"

	"github.com/bdwalton/famigo/nesrom"
)

// mmc3 is mapper 4: a bank array of 8KB PRG and 1KB/2KB CHR windows
// plus a scanline-counted IRQ, ticked by the PPU at horizontal blank.
// https://www.nesdev.org/wiki/MMC3
type mmc3 struct {
	rom *nesrom.ROM

	bankSelect uint8 // which bank register the next odd write commits to
	prgMode    bool  // swaps which PRG half is fixed to the second-last bank
	chrMode    bool  // XORs 0x1000 into CHR bus addresses
	chrBanks   [6]int
	prgBanks   [2]int

	horizontalMirroring bool

	irqReload  uint8
	irqCounter uint8
	irqEnable  bool
	pending    bool

	prgRAM     [PRG_RAM_SIZE]uint8
	nametables [2][NAMETABLE_SIZE]uint8
}

func newMMC3(rom *nesrom.ROM) *mmc3 {
	m := &mmc3{rom: rom}
	copy(m.prgRAM[:], rom.SaveData())
	return m
}

func (m *mmc3) arrangement() int {
	if m.horizontalMirroring {
		return MIRROR_HORIZONTAL
	}
	return MIRROR_VERTICAL
}

// prg8k reads the PRG ROM through an 8KB bank window.
func (m *mmc3) prg8k(bank, off int) uint8 {
	return m.rom.PrgRead((0x2000*bank + off) % m.rom.PrgSize())
}

// numBanks returns the PRG ROM size in 8KB units.
func (m *mmc3) numBanks() int {
	return 2 * int(m.rom.NumPrgBlocks())
}

func (m *mmc3) PrgRead(addr uint16) uint8 {
	switch {
	case 0x6000 <= addr && addr <= 0x7FFF:
		return m.prgRAM[addr-0x6000]
	case addr <= 0x9FFF:
		if m.prgMode {
			return m.prg8k(m.numBanks()-2, int(addr)-0x8000)
		}
		return m.prg8k(m.prgBanks[0], int(addr)-0x8000)
	case addr <= 0xBFFF:
		return m.prg8k(m.prgBanks[1], int(addr)-0xA000)
	case addr <= 0xDFFF:
		if m.prgMode {
			return m.prg8k(m.prgBanks[0], int(addr)-0xC000)
		}
		return m.prg8k(m.numBanks()-2, int(addr)-0xC000)
	default:
		return m.prg8k(m.numBanks()-1, int(addr)-0xE000)
	}
}

func (m *mmc3) PrgWrite(addr uint16, val uint8) {
	even := addr&1 == 0
	switch {
	case 0x6000 <= addr && addr <= 0x7FFF:
		m.prgRAM[addr-0x6000] = val
	case addr <= 0x9FFF && addr >= 0x8000:
		if even {
			m.bankSelect = val & 0x7
			m.prgMode = val&0x40 != 0
			m.chrMode = val&0x80 != 0
		} else {
			switch m.bankSelect {
			case 0, 1:
				// 2KB CHR windows only take even banks.
				m.chrBanks[m.bankSelect] = int(val >> 1)
			case 2, 3, 4, 5:
				m.chrBanks[m.bankSelect] = int(val)
			case 6, 7:
				m.prgBanks[m.bankSelect-6] = int(val & 0x3F)
			}
		}
	case addr <= 0xBFFF:
		if even {
			m.horizontalMirroring = val&1 != 0
		}
		// Odd writes configure RAM write protection, which we
		// don't emulate.
	case addr <= 0xDFFF:
		if even {
			m.irqReload = val
		} else {
			m.irqCounter = 0
		}
	default:
		if even {
			m.irqEnable = false
			m.pending = false
		} else {
			m.irqEnable = true
		}
	}
}

func (m *mmc3) chrOffset(addr uint16) int {
	a := int(addr)
	if m.chrMode {
		a ^= 0x1000
	}

	var off int
	switch {
	case a <= 0x7FF:
		off = 0x800*m.chrBanks[0] + a
	case a <= 0xFFF:
		off = 0x800*m.chrBanks[1] + a - 0x800
	case a <= 0x13FF:
		off = 0x400*m.chrBanks[2] + a - 0x1000
	case a <= 0x17FF:
		off = 0x400*m.chrBanks[3] + a - 0x1400
	case a <= 0x1BFF:
		off = 0x400*m.chrBanks[4] + a - 0x1800
	default:
		off = 0x400*m.chrBanks[5] + a - 0x1C00
	}
	return off % m.rom.ChrSize()
}

func (m *mmc3) ChrRead(addr uint16) uint8 {
	switch {
	case addr <= 0x1FFF:
		return m.rom.ChrRead(m.chrOffset(addr))
	case addr <= 0x3EFF:
		nt, off := resolveNametable(m.arrangement(), addr)
		return m.nametables[nt][off]
	}
	return 0
}

func (m *mmc3) ChrWrite(addr uint16, val uint8) {
	switch {
	case addr <= 0x1FFF:
		if m.rom.ChrIsRAM() {
			m.rom.ChrWrite(m.chrOffset(addr), val)
		}
	case addr <= 0x3EFF:
		nt, off := resolveNametable(m.arrangement(), addr)
		m.nametables[nt][off] = val
	}
}

// Scanline decrements the IRQ counter, reloading it when it would
// underflow and latching an interrupt when it reaches zero while IRQ
// generation is enabled.
func (m *mmc3) Scanline() {
	if m.irqCounter == 0 {
		m.irqCounter = m.irqReload
		return
	}

	m.irqCounter--
	if m.irqCounter == 0 && m.irqEnable {
		m.pending = true
	}
}

func (m *mmc3) Pending() bool {
	old := m.pending
	m.pending = false
	return old
}

func (m *mmc3) SaveData() []byte {
	d := make([]byte, PRG_RAM_SIZE)
	copy(d, m.prgRAM[:])
	return d
}

type mmc3State struct {
	BankSelect          uint8
	PrgMode             bool
	ChrMode             bool
	ChrBanks            [6]int
	PrgBanks            [2]int
	HorizontalMirroring bool
	IRQReload           uint8
	IRQCounter          uint8
	IRQEnable           bool
	Pending             bool
	PrgRAM              []uint8
	Nametables          [2][]uint8
}

func (m *mmc3) Serialize() ([]byte, error) {
	s := mmc3State{
		BankSelect:          m.bankSelect,
		PrgMode:             m.prgMode,
		ChrMode:             m.chrMode,
		ChrBanks:            m.chrBanks,
		PrgBanks:            m.prgBanks,
		HorizontalMirroring: m.horizontalMirroring,
		IRQReload:           m.irqReload,
		IRQCounter:          m.irqCounter,
		IRQEnable:           m.irqEnable,
		Pending:             m.pending,
		PrgRAM:              m.prgRAM[:],
		Nametables:          [2][]uint8{m.nametables[0][:], m.nametables[1][:]},
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *mmc3) Deserialize(data []byte) error {
	var s mmc3State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}

	m.bankSelect = s.BankSelect
	m.prgMode = s.PrgMode
	m.chrMode = s.ChrMode
	m.chrBanks = s.ChrBanks
	m.prgBanks = s.PrgBanks
	m.horizontalMirroring = s.HorizontalMirroring
	m.irqReload = s.IRQReload
	m.irqCounter = s.IRQCounter
	m.irqEnable = s.IRQEnable
	m.pending = s.Pending
	copy(m.prgRAM[:], s.PrgRAM)
	copy(m.nametables[0][:], s.Nametables[0])
	copy(m.nametables[1][:], s.Nametables[1])
	return nil
}
