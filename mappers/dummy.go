package mappers

import (
	"bytes"
	"encoding/gob"
	"math"
)

// dummyMapper is a flat 64KB of CPU memory plus 16KB of PPU memory
// with no banking at all. Tests in other packages use it to drive the
// CPU and PPU without a ROM image.
type dummyMapper struct {
	memory []uint8
	vram   []uint8
}

// NewDummy returns a fresh, zeroed test mapper.
func NewDummy() *dummyMapper {
	return &dummyMapper{
		memory: make([]uint8, math.MaxUint16+1),
		vram:   make([]uint8, 0x4000),
	}
}

func (dm *dummyMapper) PrgRead(addr uint16) uint8 {
	return dm.memory[addr]
}

func (dm *dummyMapper) PrgWrite(addr uint16, val uint8) {
	dm.memory[addr] = val
}

func (dm *dummyMapper) ChrRead(addr uint16) uint8 {
	return dm.vram[addr&0x3FFF]
}

func (dm *dummyMapper) ChrWrite(addr uint16, val uint8) {
	dm.vram[addr&0x3FFF] = val
}

func (dm *dummyMapper) Scanline() {}

func (dm *dummyMapper) Pending() bool {
	return false
}

func (dm *dummyMapper) SaveData() []byte {
	return make([]byte, PRG_RAM_SIZE)
}

type dummyState struct {
	Memory []uint8
	VRAM   []uint8
}

func (dm *dummyMapper) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(dummyState{Memory: dm.memory, VRAM: dm.vram}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (dm *dummyMapper) Deserialize(data []byte) error {
	var s dummyState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}

	copy(dm.memory, s.Memory)
	copy(dm.vram, s.VRAM)
	return nil
}
