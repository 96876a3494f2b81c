package mappers

import (
	"testing"

	"github.com/bdwalton/famigo/nesrom"
)

// testROM builds an in-memory iNES image. PRG bytes carry their 8KB
// bank number and CHR bytes their 1KB bank number, so bank mapping
// tests can read the marker back.
func testROM(t *testing.T, prgBlocks, chrBlocks int, flags6, flags7 uint8) *nesrom.ROM {
	t.Helper()

	data := make([]byte, 16+prgBlocks*16384+chrBlocks*8192)
	copy(data, "NES\x1a")
	data[4] = byte(prgBlocks)
	data[5] = byte(chrBlocks)
	data[6] = flags6
	data[7] = flags7

	prg := data[16 : 16+prgBlocks*16384]
	for i := range prg {
		prg[i] = byte(i / 8192)
	}
	chr := data[16+len(prg):]
	for i := range chr {
		chr[i] = byte(i / 1024)
	}

	rom, err := nesrom.NewFromBytes(data)
	if err != nil {
		t.Fatalf("NewFromBytes() = %v", err)
	}
	return rom
}

func TestGet(t *testing.T) {
	cases := []struct {
		flags6  uint8
		wantErr bool
	}{
		{0x00, false}, // NROM
		{0x10, false}, // MMC1
		{0x40, false}, // MMC3
		{0x20, true},  // mapper 2: unsupported
		{0x30, true},  // mapper 3: unsupported
	}

	for i, tc := range cases {
		rom := testROM(t, 1, 1, tc.flags6, 0)
		_, err := Get(rom)
		if gotErr := err != nil; gotErr != tc.wantErr {
			t.Errorf("%d: Get() for mapper %d = %v, wantErr = %t", i, rom.MapperNum(), err, tc.wantErr)
		}
	}
}

func TestResolveNametable(t *testing.T) {
	cases := []struct {
		arrangement int
		want        [4]int // physical table per quadrant
	}{
		{MIRROR_SINGLE_LOW, [4]int{0, 0, 0, 0}},
		{MIRROR_SINGLE_HIGH, [4]int{1, 1, 1, 1}},
		{MIRROR_VERTICAL, [4]int{0, 1, 0, 1}},
		{MIRROR_HORIZONTAL, [4]int{0, 0, 1, 1}},
	}

	for i, tc := range cases {
		for q := 0; q < 4; q++ {
			addr := uint16(0x2000 + q*0x400 + 0x123)
			nt, off := resolveNametable(tc.arrangement, addr)
			if nt != tc.want[q] || off != 0x123 {
				t.Errorf("%d: resolveNametable(%d, 0x%04x) = %d, 0x%03x; want %d, 0x123", i, tc.arrangement, addr, nt, off, tc.want[q])
			}
		}
	}
}

func roundTrip(t *testing.T, m, fresh Mapper) {
	t.Helper()

	data, err := m.Serialize()
	if err != nil {
		t.Fatalf("Serialize() = %v", err)
	}
	if err := fresh.Deserialize(data); err != nil {
		t.Fatalf("Deserialize() = %v", err)
	}
	data2, err := fresh.Serialize()
	if err != nil {
		t.Fatalf("re-Serialize() = %v", err)
	}
	if string(data) != string(data2) {
		t.Error("state changed across a serialize/deserialize round trip")
	}
}
