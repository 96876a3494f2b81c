package mos6502

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/bdwalton/famigo/apu"
	"github.com/bdwalton/famigo/mappers"
	"github.com/bdwalton/famigo/nesrom"
)

// TestNestest replays the nestest ROM against its golden PC trace,
// covering the official opcodes and the supported undocumented ones.
// Neither file ships with the repo; drop nestest.nes and a log with
// one hex PC per line into testdata/ to enable it.
func TestNestest(t *testing.T) {
	romBytes, err := os.ReadFile("testdata/nestest.nes")
	if err != nil {
		t.Skip("testdata/nestest.nes not present")
	}
	logFile, err := os.Open("testdata/nestest.log")
	if err != nil {
		t.Skip("testdata/nestest.log not present")
	}
	defer logFile.Close()

	rom, err := nesrom.NewFromBytes(romBytes)
	if err != nil {
		t.Fatalf("NewFromBytes() = %v", err)
	}
	m, err := mappers.Get(rom)
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}

	c := New(m, newFakePPU(), apu.NewNull())
	c.pc = 0xC000 // the automated, headless entry point

	scanner := bufio.NewScanner(logFile)
	n := 0
	for scanner.Scan() {
		want, err := strconv.ParseUint(strings.TrimSpace(scanner.Text()), 16, 16)
		if err != nil {
			t.Fatalf("line %d: bad PC in golden log: %v", n, err)
		}
		if c.pc != uint16(want) {
			t.Fatalf("instruction %d: PC = 0x%04X, want 0x%04X", n, c.pc, want)
		}
		if err := c.step(); err != nil {
			t.Fatalf("instruction %d: %v", n, err)
		}
		n++
	}

	// nestest latches its error codes in the zero page.
	if got := c.Read(0x0002); got != 0 {
		t.Errorf("nestest reported error code 0x%02x at 0x0002", got)
	}
	if got := c.Read(0x0003); got != 0 {
		t.Errorf("nestest reported error code 0x%02x at 0x0003", got)
	}
}
