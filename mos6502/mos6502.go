// Package mos6502 implements the MOS Technologies 6502 processor as
// wired into the NES: 2KB of internal RAM, memory mapped PPU and APU
// registers, two controller shift registers and the cartridge mapper
// for everything above 0x4020.
// https://en.wikipedia.org/wiki/MOS_Technology_6502
package mos6502

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"strings"

	"github.com/bdwalton/famigo/apu"
	"github.com/bdwalton/famigo/mappers"
)

const (
	RAM_SIZE = 0x0800 // 2k of real (non-cartridge) memory
	DMA_SIZE = 0x100  // one page per OAM DMA transfer
)

// 6502 Interrupt Vectors
// https://en.wikipedia.org/wiki/Interrupts_in_65xx_processors
const (
	INT_IRQ   = 0xFFFE
	INT_BRK   = INT_IRQ
	INT_RESET = 0xFFFC
	INT_NMI   = 0xFFFA
)

// 6502 Processor Status Flags
// https://www.nesdev.org/obelisk-6502-guide/registers.html
const (
	STATUS_FLAG_CARRY             = 1 << 0 // C
	STATUS_FLAG_ZERO              = 1 << 1 // Z
	STATUS_FLAG_INTERRUPT_DISABLE = 1 << 2 // I
	STATUS_FLAG_DECIMAL           = 1 << 3 // D (stored but not honoured)
	STATUS_FLAG_BREAK             = 1 << 4 // B
	UNUSED_STATUS_FLAG            = 1 << 5 // Never used but always on
	STATUS_FLAG_OVERFLOW          = 1 << 6 // V
	STATUS_FLAG_NEGATIVE          = 1 << 7 // N
)

const STACK_PAGE = 0x0100

// Pending interrupt kinds. NMI is latched level-style; IRQ honours
// the interrupt disable flag.
const (
	INTERRUPT_NONE = iota
	INTERRUPT_NMI
	INTERRUPT_IRQ
)

// VideoRegs is the CPU's window onto the PPU register file at
// 0x2000-0x2007. Reads of write-only registers return 0.
type VideoRegs interface {
	ReadReg(reg uint16) uint8
	WriteReg(reg uint16, val uint8)
}

// CPU implements all of the machine state for the NES's 6502.
type CPU struct {
	acc    uint8  // main register
	x, y   uint8  // index registers
	status uint8  // a register for storing various status bits
	sp     uint8  // stack pointer - stack is 0x0100-0x01FF so only 8 bits needed
	pc     uint16 // the program counter

	mapper mappers.Mapper
	ppu    VideoRegs
	audio  apu.Unit

	ram [RAM_SIZE]uint8

	cycles  uint32 // how many cycles to wait until the next instruction
	total   uint64 // cycles since power on
	elapsed int64  // cycles this frame; feeds APU timestamps

	interrupt uint8 // pending interrupt, if any

	// Controller state: two 8-deep shift registers with explicit
	// cursors. While the strobe latch's low bit is set the
	// cursors snap back to 0 after every read.
	inputs  [2][8]bool
	inputID [2]uint8
	strobe  uint8
}

// New builds a CPU wired to the given mapper, PPU register file and
// audio unit, with the program counter loaded from the reset vector.
func New(m mappers.Mapper, p VideoRegs, a apu.Unit) *CPU {
	// Power on state values from:
	// https://www.nesdev.org/wiki/CPU_power_up_state
	c := &CPU{
		sp:      0xFD,
		status:  UNUSED_STATUS_FLAG | STATUS_FLAG_BREAK | STATUS_FLAG_INTERRUPT_DISABLE,
		mapper:  m,
		ppu:     p,
		audio:   a,
		inputID: [2]uint8{8, 8},
	}
	c.pc = c.read16(INT_RESET)
	return c
}

var flagMap map[uint8]byte = map[uint8]byte{
	STATUS_FLAG_CARRY:             'C',
	STATUS_FLAG_ZERO:              'Z',
	STATUS_FLAG_INTERRUPT_DISABLE: 'I',
	STATUS_FLAG_DECIMAL:           'D',
	STATUS_FLAG_BREAK:             'B',
	UNUSED_STATUS_FLAG:            '-',
	STATUS_FLAG_OVERFLOW:          'V',
	STATUS_FLAG_NEGATIVE:          'N',
}

func statusString(p uint8) string {
	var sb strings.Builder

	flags := []uint8{
		STATUS_FLAG_NEGATIVE,
		STATUS_FLAG_OVERFLOW,
		UNUSED_STATUS_FLAG,
		STATUS_FLAG_BREAK,
		STATUS_FLAG_DECIMAL,
		STATUS_FLAG_INTERRUPT_DISABLE,
		STATUS_FLAG_ZERO,
		STATUS_FLAG_CARRY,
	}

	for _, f := range flags {
		if p&f > 0 {
			sb.WriteByte(flagMap[f])
		} else {
			sb.WriteByte('.')
		}
	}

	return sb.String()
}

func (c *CPU) String() string {
	return fmt.Sprintf("A,X,Y: %4d, %4d, %4d; PC: 0x%04x, SP: 0x%02x, P: %s", c.acc, c.x, c.y, c.pc, c.sp, statusString(c.status))
}

var invalidInstruction = errors.New("invalid instruction")

// Read returns an observable byte from the CPU bus.
// https://www.nesdev.org/wiki/CPU_memory_map
func (c *CPU) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x1FFF:
		// 0x0800-0x1FFF mirrors 0x0000-0x07FF
		return c.ram[addr&(RAM_SIZE-1)]
	case addr <= 0x3FFF:
		// PPU registers are mirrored every 8 bytes up to 0x4000
		return c.ppu.ReadReg(0x2000 | (addr & 0x7))
	case addr == 0x4015:
		return c.audio.Read(c.elapsed + int64(c.cycles))
	case addr == 0x4016:
		return c.readController(0)
	case addr == 0x4017:
		return c.readController(1)
	case addr >= 0x4020:
		return c.mapper.PrgRead(addr)
	}

	return 0
}

// Write stores an observable byte on the CPU bus.
func (c *CPU) Write(addr uint16, val uint8) {
	switch {
	case addr <= 0x1FFF:
		c.ram[addr&(RAM_SIZE-1)] = val
	case addr <= 0x3FFF:
		c.ppu.WriteReg(0x2000|(addr&0x7), val)
	case addr <= 0x4013 || addr == 0x4015 || addr == 0x4017:
		c.audio.Write(c.elapsed+int64(c.cycles), addr, val)
	case addr == 0x4014:
		c.oamDMA(val)
	case addr == 0x4016:
		c.strobe = val
		if c.strobe&1 != 0 {
			c.inputID[0], c.inputID[1] = 0, 0
		}
	case addr >= 0x4020:
		c.mapper.PrgWrite(addr, val)
	}
}

// oamDMA copies one page of CPU memory into PPU OAM. The transfer
// stalls the CPU for 513 cycles, plus one more when it starts on an
// odd cycle.
func (c *CPU) oamDMA(page uint8) {
	base := uint16(page) << 8
	for i := uint16(0); i < DMA_SIZE; i++ {
		c.ppu.WriteReg(0x2004, c.Read(base+i))
	}
	c.cycles += 513 + uint32(c.total%2)
}

func (c *CPU) readController(pad int) uint8 {
	if c.inputID[pad] == 8 {
		return 1
	}

	var ret uint8
	if c.inputs[pad][c.inputID[pad]] {
		ret = 1
	}
	c.inputID[pad]++
	if c.strobe&1 != 0 {
		c.inputID[pad] = 0
	}
	return ret
}

// SetInputs installs the current button states for one controller,
// ordered A, B, Select, Start, Up, Down, Left, Right.
func (c *CPU) SetInputs(pad int, buttons [8]bool) {
	c.inputs[pad] = buttons
}

// read16 returns the two bytes from memory at addr (lower byte is
// first).
func (c *CPU) read16(addr uint16) uint16 {
	lsb := uint16(c.Read(addr))
	msb := uint16(c.Read(addr + 1))

	return (msb << 8) | lsb
}

func (c *CPU) getStackAddr() uint16 {
	return STACK_PAGE + uint16(c.sp)
}

func (c *CPU) pushStack(val uint8) {
	c.Write(c.getStackAddr(), val)
	c.sp -= 1
}

func (c *CPU) popStack() uint8 {
	c.sp += 1
	return c.Read(c.getStackAddr())
}

func (c *CPU) pushAddress(addr uint16) {
	c.pushStack(uint8(addr >> 8))     // high
	c.pushStack(uint8(addr & 0x00FF)) // low
}

func (c *CPU) popAddress() uint16 {
	return uint16(c.popStack()) | (uint16(c.popStack()) << 8)
}

// TriggerNMI latches a non-maskable interrupt request.
func (c *CPU) TriggerNMI() {
	c.interrupt = INTERRUPT_NMI
}

// TriggerIRQ latches a maskable interrupt request.
func (c *CPU) TriggerIRQ() {
	c.interrupt = INTERRUPT_IRQ
}

// Frame marks a frame boundary, resetting the elapsed cycle counter
// the APU timestamps are keyed on.
func (c *CPU) Frame() {
	c.elapsed = 0
}

// Elapsed returns the number of cycles consumed this frame.
func (c *CPU) Elapsed() int64 {
	return c.elapsed
}

// Tick advances the CPU by one master cycle. When the previous
// instruction has burned off its cycles, a pending interrupt is
// entered (NMI unconditionally, IRQ only with the disable flag clear)
// or the next instruction is dispatched.
func (c *CPU) Tick() error {
	var err error
	if c.cycles == 0 {
		switch c.interrupt {
		case INTERRUPT_NMI:
			c.interruptEntry(INT_NMI, false)
		case INTERRUPT_IRQ:
			if c.status&STATUS_FLAG_INTERRUPT_DISABLE == 0 {
				c.interruptEntry(INT_IRQ, false)
			} else {
				c.interrupt = INTERRUPT_NONE
				err = c.step()
			}
		default:
			err = c.step()
		}
	}

	if c.cycles > 0 {
		c.cycles -= 1
	}
	c.total += 1
	c.elapsed += 1

	return err
}

// interruptEntry pushes the return address and status (bit 5 always
// set, bit 4 only for BRK), disables interrupts and vectors.
func (c *CPU) interruptEntry(vector uint16, isBrk bool) {
	c.pushAddress(c.pc)

	p := c.status | UNUSED_STATUS_FLAG
	if isBrk {
		p |= STATUS_FLAG_BREAK
	} else {
		p &^= STATUS_FLAG_BREAK
	}
	c.pushStack(p)

	c.status |= STATUS_FLAG_INTERRUPT_DISABLE
	c.pc = c.read16(vector)
	c.cycles = 7
	c.interrupt = INTERRUPT_NONE
}

// operandAddr computes the effective address for the operand of the
// current instruction. It assumes the PC was already advanced past
// the operand bytes, which therefore sit at pc-stride..pc-1.
func (c *CPU) operandAddr(mode uint8) uint16 {
	pc := c.pc
	switch mode {
	case IMMEDIATE, RELATIVE:
		return pc - 1
	case ZERO_PAGE:
		return uint16(c.Read(pc - 1))
	case ZERO_PAGE_X:
		return uint16(c.Read(pc-1) + c.x)
	case ZERO_PAGE_Y:
		return uint16(c.Read(pc-1) + c.y)
	case ABSOLUTE:
		return c.read16(pc - 2)
	case ABSOLUTE_X:
		return c.read16(pc-2) + uint16(c.x)
	case ABSOLUTE_Y:
		return c.read16(pc-2) + uint16(c.y)
	case INDIRECT_X:
		zp := c.Read(pc-1) + c.x
		return uint16(c.Read(uint16(zp))) | uint16(c.Read(uint16(zp+1)))<<8
	case INDIRECT_Y:
		zp := c.Read(pc - 1)
		base := uint16(c.Read(uint16(zp))) | uint16(c.Read(uint16(zp+1)))<<8
		return base + uint16(c.y)
	}

	return 0
}

// fetchArgument reads the operand value for the current instruction.
func (c *CPU) fetchArgument(mode uint8) uint8 {
	switch mode {
	case IMPLICIT:
		return 0
	case ACCUMULATOR:
		return c.acc
	default:
		return c.Read(c.operandAddr(mode))
	}
}

// replaceArgument writes back over the operand of the current
// instruction, for read-modify-write style semantics.
func (c *CPU) replaceArgument(mode uint8, val uint8) {
	switch mode {
	case IMPLICIT:
	case ACCUMULATOR:
		c.acc = val
	default:
		c.Write(c.operandAddr(mode), val)
	}
}

// pageCross reports whether the current instruction's indexed access
// (or taken branch) lands in a different 256-byte page than its base.
func (c *CPU) pageCross(mode uint8) bool {
	pc := c.pc
	switch mode {
	case ABSOLUTE_X:
		base := c.read16(pc - 2)
		return base&0xFF00 != (base+uint16(c.x))&0xFF00
	case ABSOLUTE_Y:
		base := c.read16(pc - 2)
		return base&0xFF00 != (base+uint16(c.y))&0xFF00
	case INDIRECT_Y:
		zp := c.Read(pc - 1)
		base := uint16(c.Read(uint16(zp))) | uint16(c.Read(uint16(zp+1)))<<8
		return base&0xFF00 != (base+uint16(c.y))&0xFF00
	case RELATIVE:
		delta := int8(c.Read(pc - 1))
		return (uint16(int32(pc)+int32(delta)))&0xFF00 != pc&0xFF00
	}

	return false
}

// step fetches, decodes and executes one instruction, charging its
// timing to the cycle counter.
func (c *CPU) step() error {
	b := c.Read(c.pc)
	op, ok := opcodes[b]
	if !ok {
		return fmt.Errorf("pc: 0x%04x, inst: 0x%02x - %w", c.pc, b, invalidInstruction)
	}

	c.pc += 1 + stride(op.mode)
	pagecross := c.pageCross(op.mode)

	c.cycles = uint32(op.cycles)
	switch op.inst {
	case ADC, AND, CMP, EOR, LDA, LDX, LDY, NOP, ORA, SBC, LAX, LAR:
		// Memory-read instructions pay for crossing a page.
		if pagecross {
			c.cycles += 1
		}
	}

	// All instructions fetch their operand except the pure stores.
	var arg uint8
	switch op.inst {
	case STA, STX, STY, AAX, AXA:
	default:
		arg = c.fetchArgument(op.mode)
	}

	return c.execute(op, arg, pagecross, b)
}

// setNegativeAndZeroFlags sets the STATUS_FLAG_NEGATIVE and
// STATUS_FLAG_ZERO bits of the status register accordingly for the
// value specified in n.
func (c *CPU) setNegativeAndZeroFlags(n uint8) {
	if n == 0 {
		c.flagsOn(STATUS_FLAG_ZERO)
	} else {
		c.flagsOff(STATUS_FLAG_ZERO)
	}

	if n&0x80 != 0 {
		c.flagsOn(STATUS_FLAG_NEGATIVE)
	} else {
		c.flagsOff(STATUS_FLAG_NEGATIVE)
	}
}

// flagsOn forces the flags in mask (STATUS_FLAG_XXX|STATUS_FLAG_YYY)
// on in the status register.
func (c *CPU) flagsOn(mask uint8) {
	c.status = c.status | mask
}

// flagsOff forces the flags in mask (STATUS_FLAG_XXX|STATUS_FLAG_YYY)
// off in the status register.
func (c *CPU) flagsOff(mask uint8) {
	c.status = c.status &^ mask
}

// addWithOverflow adds b to the accumulator handling overflow, carry
// and ZN flag setting as appropriate. SBC and friends route through
// here with the operand complemented.
func (c *CPU) addWithOverflow(b uint8) {
	res16 := uint16(c.acc) + uint16(b) + uint16(c.status&STATUS_FLAG_CARRY)
	res := uint8(res16)

	c.flagsOff(STATUS_FLAG_CARRY | STATUS_FLAG_OVERFLOW)
	if res16 > 0xFF {
		c.flagsOn(STATUS_FLAG_CARRY)
	}
	if (c.acc^res)&(b^res)&0x80 != 0 {
		c.flagsOn(STATUS_FLAG_OVERFLOW)
	}

	c.acc = res
	c.setNegativeAndZeroFlags(c.acc)
}

// baseCMP does comparison operations on a and b, setting flags
// accordingly.
func (c *CPU) baseCMP(a, b uint8) {
	c.flagsOff(STATUS_FLAG_CARRY)
	if a >= b {
		c.flagsOn(STATUS_FLAG_CARRY)
	}
	c.setNegativeAndZeroFlags(a - b)
}

// branch conditionally moves the PC by the relative operand. Taken
// branches cost one extra cycle, two when they cross a page.
func (c *CPU) branch(taken, pagecross bool) {
	if !taken {
		return
	}

	c.cycles += 1
	if pagecross {
		c.cycles += 1
	}
	delta := int8(c.Read(c.pc - 1))
	c.pc = uint16(int32(c.pc) + int32(delta))
}

// shiftLeft shifts the argument left one bit, moving the old bit 7
// into carry, and writes the result back.
func (c *CPU) shiftLeft(mode uint8, arg uint8) uint8 {
	c.flagsOff(STATUS_FLAG_CARRY)
	if arg&0x80 != 0 {
		c.flagsOn(STATUS_FLAG_CARRY)
	}
	res := arg << 1
	c.replaceArgument(mode, res)
	c.setNegativeAndZeroFlags(res)
	return res
}

// shiftRight shifts the argument right one bit, moving the old bit 0
// into carry, and writes the result back.
func (c *CPU) shiftRight(mode uint8, arg uint8) uint8 {
	c.flagsOff(STATUS_FLAG_CARRY)
	if arg&1 != 0 {
		c.flagsOn(STATUS_FLAG_CARRY)
	}
	res := arg >> 1
	c.replaceArgument(mode, res)
	c.setNegativeAndZeroFlags(res)
	return res
}

// rotateLeft rotates the argument left through carry and writes the
// result back.
func (c *CPU) rotateLeft(mode uint8, arg uint8) uint8 {
	old := c.status & STATUS_FLAG_CARRY
	c.flagsOff(STATUS_FLAG_CARRY)
	if arg&0x80 != 0 {
		c.flagsOn(STATUS_FLAG_CARRY)
	}
	res := arg<<1 | old
	c.replaceArgument(mode, res)
	c.setNegativeAndZeroFlags(res)
	return res
}

// rotateRight rotates the argument right through carry and writes the
// result back.
func (c *CPU) rotateRight(mode uint8, arg uint8) uint8 {
	old := (c.status & STATUS_FLAG_CARRY) << 7
	c.flagsOff(STATUS_FLAG_CARRY)
	if arg&1 != 0 {
		c.flagsOn(STATUS_FLAG_CARRY)
	}
	res := arg>>1 | old
	c.replaceArgument(mode, res)
	c.setNegativeAndZeroFlags(res)
	return res
}

func (c *CPU) execute(op opcode, arg uint8, pagecross bool, b uint8) error {
	switch op.inst {
	case ADC:
		c.addWithOverflow(arg)
	case AND:
		c.acc &= arg
		c.setNegativeAndZeroFlags(c.acc)
	case ASL:
		c.shiftLeft(op.mode, arg)
	case BCC:
		c.branch(c.status&STATUS_FLAG_CARRY == 0, pagecross)
	case BCS:
		c.branch(c.status&STATUS_FLAG_CARRY != 0, pagecross)
	case BEQ:
		c.branch(c.status&STATUS_FLAG_ZERO != 0, pagecross)
	case BIT:
		c.flagsOff(STATUS_FLAG_ZERO | STATUS_FLAG_OVERFLOW | STATUS_FLAG_NEGATIVE)
		if c.acc&arg == 0 {
			c.flagsOn(STATUS_FLAG_ZERO)
		}
		c.flagsOn(arg & (STATUS_FLAG_OVERFLOW | STATUS_FLAG_NEGATIVE))
	case BMI:
		c.branch(c.status&STATUS_FLAG_NEGATIVE != 0, pagecross)
	case BNE:
		c.branch(c.status&STATUS_FLAG_ZERO == 0, pagecross)
	case BPL:
		c.branch(c.status&STATUS_FLAG_NEGATIVE == 0, pagecross)
	case BRK:
		// BRK pushes the address of the byte after its padding
		// byte, then vectors through 0xFFFE with B set.
		c.pc += 1
		c.interruptEntry(INT_BRK, true)
	case BVC:
		c.branch(c.status&STATUS_FLAG_OVERFLOW == 0, pagecross)
	case BVS:
		c.branch(c.status&STATUS_FLAG_OVERFLOW != 0, pagecross)
	case CLC:
		c.flagsOff(STATUS_FLAG_CARRY)
	case CLD:
		c.flagsOff(STATUS_FLAG_DECIMAL)
	case CLI:
		c.flagsOff(STATUS_FLAG_INTERRUPT_DISABLE)
	case CLV:
		c.flagsOff(STATUS_FLAG_OVERFLOW)
	case CMP:
		c.baseCMP(c.acc, arg)
	case CPX:
		c.baseCMP(c.x, arg)
	case CPY:
		c.baseCMP(c.y, arg)
	case DEC:
		arg -= 1
		c.setNegativeAndZeroFlags(arg)
		c.replaceArgument(op.mode, arg)
	case DEX:
		c.x -= 1
		c.setNegativeAndZeroFlags(c.x)
	case DEY:
		c.y -= 1
		c.setNegativeAndZeroFlags(c.y)
	case EOR:
		c.acc ^= arg
		c.setNegativeAndZeroFlags(c.acc)
	case INC:
		arg += 1
		c.setNegativeAndZeroFlags(arg)
		c.replaceArgument(op.mode, arg)
	case INX:
		c.x += 1
		c.setNegativeAndZeroFlags(c.x)
	case INY:
		c.y += 1
		c.setNegativeAndZeroFlags(c.y)
	case JMP:
		addr := c.read16(c.pc - 2)
		if op.mode == INDIRECT {
			// The pointer's high byte never carries out of
			// its page (hardware bug).
			next := addr + 1
			if addr&0xFF == 0xFF {
				next = addr & 0xFF00
			}
			addr = uint16(c.Read(addr)) | uint16(c.Read(next))<<8
		}
		c.pc = addr
	case JSR:
		target := c.read16(c.pc - 2)
		c.pushAddress(c.pc - 1) // the second byte of the JSR argument
		c.pc = target
	case LDA:
		c.acc = arg
		c.setNegativeAndZeroFlags(c.acc)
	case LDX:
		c.x = arg
		c.setNegativeAndZeroFlags(c.x)
	case LDY:
		c.y = arg
		c.setNegativeAndZeroFlags(c.y)
	case LSR:
		c.shiftRight(op.mode, arg)
	case NOP:
	case ORA:
		c.acc |= arg
		c.setNegativeAndZeroFlags(c.acc)
	case PHA:
		c.pushStack(c.acc)
	case PHP:
		// The 6502 always sets bits 4 and 5 when pushing the
		// status register to the stack.
		c.pushStack(c.status | STATUS_FLAG_BREAK | UNUSED_STATUS_FLAG)
	case PLA:
		c.acc = c.popStack()
		c.setNegativeAndZeroFlags(c.acc)
	case PLP:
		c.status = c.popStack()&^STATUS_FLAG_BREAK | UNUSED_STATUS_FLAG
	case ROL:
		c.rotateLeft(op.mode, arg)
	case ROR:
		c.rotateRight(op.mode, arg)
	case RTI:
		c.status = c.popStack()&^STATUS_FLAG_BREAK | UNUSED_STATUS_FLAG
		c.pc = c.popAddress()
	case RTS:
		c.pc = c.popAddress() + 1
	case SBC:
		c.addWithOverflow(^arg)
	case SEC:
		c.flagsOn(STATUS_FLAG_CARRY)
	case SED:
		c.flagsOn(STATUS_FLAG_DECIMAL)
	case SEI:
		c.flagsOn(STATUS_FLAG_INTERRUPT_DISABLE)
	case STA:
		c.replaceArgument(op.mode, c.acc)
	case STX:
		c.replaceArgument(op.mode, c.x)
	case STY:
		c.replaceArgument(op.mode, c.y)
	case TAX:
		c.x = c.acc
		c.setNegativeAndZeroFlags(c.x)
	case TAY:
		c.y = c.acc
		c.setNegativeAndZeroFlags(c.y)
	case TSX:
		c.x = c.sp
		c.setNegativeAndZeroFlags(c.x)
	case TXA:
		c.acc = c.x
		c.setNegativeAndZeroFlags(c.acc)
	case TXS:
		c.sp = c.x
	case TYA:
		c.acc = c.y
		c.setNegativeAndZeroFlags(c.acc)
	case LAX:
		c.acc = arg
		c.x = arg
		c.setNegativeAndZeroFlags(arg)
	case AAX:
		c.replaceArgument(op.mode, c.acc&c.x)
	case DCP:
		arg -= 1
		c.replaceArgument(op.mode, arg)
		c.baseCMP(c.acc, arg)
	case ISC:
		arg += 1
		c.replaceArgument(op.mode, arg)
		c.addWithOverflow(^arg)
	case SLO:
		c.acc |= c.shiftLeft(op.mode, arg)
		c.setNegativeAndZeroFlags(c.acc)
	case RLA:
		c.acc &= c.rotateLeft(op.mode, arg)
		c.setNegativeAndZeroFlags(c.acc)
	case SRE:
		c.acc ^= c.shiftRight(op.mode, arg)
		c.setNegativeAndZeroFlags(c.acc)
	case RRA:
		c.addWithOverflow(c.rotateRight(op.mode, arg))
	case LAR:
		v := arg & c.sp
		c.acc, c.x, c.sp = v, v, v
		c.setNegativeAndZeroFlags(v)
	default:
		// Anything else would silently corrupt state.
		return fmt.Errorf("pc: 0x%04x, inst: 0x%02x (%s) - %w", c.pc, b, op.name, invalidInstruction)
	}

	return nil
}

// cpuState mirrors CPU for serialization.
type cpuState struct {
	Acc, X, Y, Status, SP uint8
	PC                    uint16
	RAM                   []uint8
	Cycles                uint32
	Total                 uint64
	Elapsed               int64
	Interrupt             uint8
	Inputs                [2][8]bool
	InputID               [2]uint8
	Strobe                uint8
}

// Serialize captures every mutable field of the CPU.
func (c *CPU) Serialize() ([]byte, error) {
	s := cpuState{
		Acc:       c.acc,
		X:         c.x,
		Y:         c.y,
		Status:    c.status,
		SP:        c.sp,
		PC:        c.pc,
		RAM:       c.ram[:],
		Cycles:    c.cycles,
		Total:     c.total,
		Elapsed:   c.elapsed,
		Interrupt: c.interrupt,
		Inputs:    c.inputs,
		InputID:   c.inputID,
		Strobe:    c.strobe,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Deserialize restores a previously captured state in place.
func (c *CPU) Deserialize(data []byte) error {
	var s cpuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}

	c.acc = s.Acc
	c.x = s.X
	c.y = s.Y
	c.status = s.Status
	c.sp = s.SP
	c.pc = s.PC
	copy(c.ram[:], s.RAM)
	c.cycles = s.Cycles
	c.total = s.Total
	c.elapsed = s.Elapsed
	c.interrupt = s.Interrupt
	c.inputs = s.Inputs
	c.inputID = s.InputID
	c.strobe = s.Strobe
	return nil
}
