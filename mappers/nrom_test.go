package mappers

import (
	"testing"
)

func TestNROMSingleBankMirroring(t *testing.T) {
	rom := testROM(t, 1, 1, 0, 0)
	m := newNROM(rom)

	for _, off := range []uint16{0x0000, 0x1234, 0x3FFF} {
		lo, hi := m.PrgRead(0x8000+off), m.PrgRead(0xC000+off)
		if lo != hi {
			t.Errorf("0x%04x: lower bank = 0x%02x, upper mirror = 0x%02x", off, lo, hi)
		}
	}
}

func TestNROMTwoBanks(t *testing.T) {
	rom := testROM(t, 2, 1, 0, 0)
	m := newNROM(rom)

	if got := m.PrgRead(0x8000); got != 0 {
		t.Errorf("PrgRead(0x8000) = 0x%02x, want bank marker 0", got)
	}
	if got := m.PrgRead(0xC000); got != 2 {
		t.Errorf("PrgRead(0xC000) = 0x%02x, want bank marker 2", got)
	}
}

func TestNROMPrgRAM(t *testing.T) {
	m := newNROM(testROM(t, 1, 1, 0, 0))

	m.PrgWrite(0x6123, 0xAB)
	if got := m.PrgRead(0x6123); got != 0xAB {
		t.Errorf("PrgRead(0x6123) = 0x%02x, want 0xAB", got)
	}

	// ROM writes are ignored.
	m.PrgWrite(0x8000, 0xCD)
	if got := m.PrgRead(0x8000); got == 0xCD {
		t.Error("PRG ROM accepted a write")
	}

	save := m.SaveData()
	if len(save) != PRG_RAM_SIZE || save[0x123] != 0xAB {
		t.Errorf("SaveData() lost the work RAM: len %d, [0x123] = 0x%02x", len(save), save[0x123])
	}
}

func TestNROMChrRAM(t *testing.T) {
	// No CHR blocks means 8KB of writable CHR RAM.
	m := newNROM(testROM(t, 1, 0, 0, 0))
	m.ChrWrite(0x1000, 0x42)
	if got := m.ChrRead(0x1000); got != 0x42 {
		t.Errorf("CHR RAM read = 0x%02x, want 0x42", got)
	}

	// With CHR ROM, writes are ignored.
	m = newNROM(testROM(t, 1, 1, 0, 0))
	old := m.ChrRead(0x1000)
	m.ChrWrite(0x1000, old+1)
	if got := m.ChrRead(0x1000); got != old {
		t.Error("CHR ROM accepted a write")
	}
}

func TestNROMNametables(t *testing.T) {
	// Vertical mirroring: 0x2000 and 0x2800 share a table,
	// 0x2400 and 0x2C00 the other.
	m := newNROM(testROM(t, 1, 1, 0x01, 0))
	m.ChrWrite(0x2005, 0x11)
	m.ChrWrite(0x2405, 0x22)
	if got := m.ChrRead(0x2805); got != 0x11 {
		t.Errorf("vertical: ChrRead(0x2805) = 0x%02x, want 0x11", got)
	}
	if got := m.ChrRead(0x2C05); got != 0x22 {
		t.Errorf("vertical: ChrRead(0x2C05) = 0x%02x, want 0x22", got)
	}

	// Horizontal mirroring: 0x2000/0x2400 share, 0x2800/0x2C00 share.
	m = newNROM(testROM(t, 1, 1, 0x00, 0))
	m.ChrWrite(0x2005, 0x33)
	m.ChrWrite(0x2805, 0x44)
	if got := m.ChrRead(0x2405); got != 0x33 {
		t.Errorf("horizontal: ChrRead(0x2405) = 0x%02x, want 0x33", got)
	}
	if got := m.ChrRead(0x2C05); got != 0x44 {
		t.Errorf("horizontal: ChrRead(0x2C05) = 0x%02x, want 0x44", got)
	}
}

func TestNROMRoundTrip(t *testing.T) {
	rom := testROM(t, 1, 1, 0, 0)
	m := newNROM(rom)
	m.PrgWrite(0x6000, 0x99)
	m.ChrWrite(0x2345, 0x77)

	roundTrip(t, m, newNROM(rom))
}
