package mappers

import (
	"testing"
)

// mmc1Commit clocks a 5-bit value into the serial port, LSB first.
func mmc1Commit(m *mmc1, addr uint16, val uint8) {
	for i := 0; i < 5; i++ {
		m.PrgWrite(addr, val>>i)
	}
}

func TestMMC1SerialCommit(t *testing.T) {
	m := newMMC1(testROM(t, 4, 2, 0x10, 0))

	// Five writes, low bits 1,1,0,0,0, assemble 0b00011 LSB first.
	for _, b := range []uint8{1, 1, 0, 0, 0} {
		m.PrgWrite(0xE000, b)
	}

	if m.prgBank != 0b00011 {
		t.Errorf("prgBank = %d, want 3", m.prgBank)
	}
	if m.input != mmc1InputReset {
		t.Errorf("serial latch = 0x%02x, not reset", m.input)
	}
}

func TestMMC1ResetWrite(t *testing.T) {
	m := newMMC1(testROM(t, 4, 2, 0x10, 0))

	mmc1Commit(m, 0x8000, 0x00) // prgMode 0
	if m.prgMode != 0 {
		t.Fatalf("prgMode = %d after control commit, want 0", m.prgMode)
	}

	// Two shifts, then a high-bit write aborts them and forces
	// prgMode 3.
	m.PrgWrite(0x8000, 1)
	m.PrgWrite(0x8000, 1)
	m.PrgWrite(0x8000, 0x80)
	if m.input != mmc1InputReset || m.prgMode != 3 {
		t.Errorf("after reset write: latch = 0x%02x, prgMode = %d; want reset, 3", m.input, m.prgMode)
	}
}

func TestMMC1PrgModes(t *testing.T) {
	// 4 x 16KB PRG; 8KB markers are 0,1 / 2,3 / 4,5 / 6,7.
	cases := []struct {
		control    uint8 // committed to 0x8000
		prgBank    uint8 // committed to 0xE000
		wantLower  uint8 // marker at 0x8000
		wantUpper  uint8 // marker at 0xC000
	}{
		{0x0C, 1, 2, 6}, // mode 3: switch at 0x8000, last fixed at 0xC000
		{0x08, 1, 0, 2}, // mode 2: first fixed at 0x8000, switch at 0xC000
		{0x00, 2, 4, 6}, // mode 0: 32KB window, bank pair 1
	}

	for i, tc := range cases {
		m := newMMC1(testROM(t, 4, 2, 0x10, 0))
		mmc1Commit(m, 0x8000, tc.control)
		mmc1Commit(m, 0xE000, tc.prgBank)

		if got := m.PrgRead(0x8000); got != tc.wantLower {
			t.Errorf("%d: PrgRead(0x8000) = %d, want %d", i, got, tc.wantLower)
		}
		if got := m.PrgRead(0xC000); got != tc.wantUpper {
			t.Errorf("%d: PrgRead(0xC000) = %d, want %d", i, got, tc.wantUpper)
		}
	}
}

func TestMMC1ChrModes(t *testing.T) {
	// 2 x 8KB CHR; 1KB markers 0-15, so 4KB bank n starts at
	// marker 4n.
	m := newMMC1(testROM(t, 4, 2, 0x10, 0))

	// 4KB mode with two independent windows.
	mmc1Commit(m, 0x8000, 0x10)
	mmc1Commit(m, 0xA000, 1) // CHR bank 0 = 4KB bank 1
	mmc1Commit(m, 0xC000, 3) // CHR bank 1 = 4KB bank 3
	if got := m.ChrRead(0x0000); got != 4 {
		t.Errorf("4KB mode: ChrRead(0x0000) = %d, want 4", got)
	}
	if got := m.ChrRead(0x1000); got != 12 {
		t.Errorf("4KB mode: ChrRead(0x1000) = %d, want 12", got)
	}

	// 8KB mode ignores the selector's low bit and chr1Bank.
	mmc1Commit(m, 0x8000, 0x00)
	mmc1Commit(m, 0xA000, 3) // 8KB window at bank pair 1
	if got := m.ChrRead(0x0000); got != 8 {
		t.Errorf("8KB mode: ChrRead(0x0000) = %d, want 8", got)
	}
	if got := m.ChrRead(0x1FFF); got != 15 {
		t.Errorf("8KB mode: ChrRead(0x1FFF) = %d, want 15", got)
	}
}

func TestMMC1Mirroring(t *testing.T) {
	m := newMMC1(testROM(t, 4, 2, 0x10, 0))

	// Single-screen low: every quadrant hits the same table.
	mmc1Commit(m, 0x8000, 0x0C) // mirroring 0, keep prgMode 3
	m.ChrWrite(0x2005, 0x5A)
	for _, addr := range []uint16{0x2405, 0x2805, 0x2C05} {
		if got := m.ChrRead(addr); got != 0x5A {
			t.Errorf("single-screen: ChrRead(0x%04x) = 0x%02x, want 0x5A", addr, got)
		}
	}

	// Vertical.
	mmc1Commit(m, 0x8000, 0x0E)
	m.ChrWrite(0x2005, 0x11)
	m.ChrWrite(0x2405, 0x22)
	if m.ChrRead(0x2805) != 0x11 || m.ChrRead(0x2C05) != 0x22 {
		t.Error("vertical mirroring quadrants wrong")
	}

	// Horizontal.
	mmc1Commit(m, 0x8000, 0x0F)
	m.ChrWrite(0x2005, 0x33)
	m.ChrWrite(0x2805, 0x44)
	if m.ChrRead(0x2405) != 0x33 || m.ChrRead(0x2C05) != 0x44 {
		t.Error("horizontal mirroring quadrants wrong")
	}
}

func TestMMC1RoundTrip(t *testing.T) {
	rom := testROM(t, 4, 2, 0x10, 0)
	m := newMMC1(rom)
	mmc1Commit(m, 0x8000, 0x1E)
	mmc1Commit(m, 0xA000, 2)
	mmc1Commit(m, 0xE000, 1)
	m.PrgWrite(0x6000, 0x88)
	m.PrgWrite(0x8000, 1) // leave a partial shift in the latch

	roundTrip(t, m, newMMC1(rom))
}
