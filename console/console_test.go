package console

import (
	"bytes"
	"testing"

	"github.com/bdwalton/famigo/apu"
	"github.com/bdwalton/famigo/mappers"
	"github.com/bdwalton/famigo/ppu"
)

func newConsole() *Console {
	return New(mappers.NewDummy(), apu.NewNull())
}

func TestRunFrame(t *testing.T) {
	c := newConsole()

	if err := c.RunFrame(); err != nil {
		t.Fatalf("RunFrame() = %v", err)
	}
	// The frame boundary resets the elapsed counter the APU keys on.
	if got := c.cpu.Elapsed(); got != 0 {
		t.Errorf("cpu.Elapsed() = %d after a frame, want 0", got)
	}
}

func TestSaveStateRoundTrip(t *testing.T) {
	c := newConsole()
	if err := c.RunFrame(); err != nil {
		t.Fatalf("RunFrame() = %v", err)
	}

	saved, err := c.SaveState()
	if err != nil {
		t.Fatalf("SaveState() = %v", err)
	}

	// Let the machine drift, then restore.
	for i := 0; i < 3; i++ {
		if err := c.RunFrame(); err != nil {
			t.Fatalf("RunFrame() = %v", err)
		}
	}
	if err := c.RestoreState(saved); err != nil {
		t.Fatalf("RestoreState() = %v", err)
	}

	again, err := c.SaveState()
	if err != nil {
		t.Fatalf("SaveState() after restore = %v", err)
	}
	if !bytes.Equal(saved, again) {
		t.Error("restored machine state differs from the captured one")
	}
}

func TestRestoreStateBadData(t *testing.T) {
	c := newConsole()
	before, err := c.SaveState()
	if err != nil {
		t.Fatalf("SaveState() = %v", err)
	}

	if err := c.RestoreState([]byte("not a snapshot")); err == nil {
		t.Error("RestoreState() accepted garbage")
	}
	// An empty blob is a no-op, not an error.
	if err := c.RestoreState(nil); err != nil {
		t.Errorf("RestoreState(nil) = %v", err)
	}

	after, err := c.SaveState()
	if err != nil {
		t.Fatalf("SaveState() = %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Error("failed restore mutated machine state")
	}
}

func TestFrameTiming(t *testing.T) {
	c := newConsole()
	c.cpu.Write(0x2001, 0x08) // background on

	// Align on a vblank, then measure two frames. A frame is
	// 89342 dots, or one fewer on the odd field; at three dots
	// per CPU tick the pair always totals 59561 ticks.
	if err := c.RunFrame(); err != nil {
		t.Fatalf("RunFrame() = %v", err)
	}

	ticks := func() int {
		n := 0
		for {
			n++
			if err := c.cpu.Tick(); err != nil {
				t.Fatalf("Tick() = %v", err)
			}
			for i := 0; i < 3; i++ {
				if c.ppu.Step() == ppu.VBLANK {
					return n
				}
			}
		}
	}

	a, b := ticks(), ticks()
	if a+b != 59561 {
		t.Errorf("two frames took %d + %d = %d CPU ticks, want 59561", a, b, a+b)
	}
	if d := a - b; d < -1 || d > 1 {
		t.Errorf("frame tick counts %d and %d differ by more than the dot skip", a, b)
	}
}
