// Package cpu implements the NES's 6502-family CPU core: registers,
// addressing modes, the official instruction set, and interrupt
// handling.
package cpu

const (
	stackBase = 0x0100

	nFlagMask = 0x80
	vFlagMask = 0x40
	uFlagMask = 0x20
	bFlagMask = 0x10
	dFlagMask = 0x08
	iFlagMask = 0x04
	zFlagMask = 0x02
	cFlagMask = 0x01

	zeroPageMask = 0x00FF
	pageMask     = 0xFF00

	nmiVector   = 0xFFFA
	resetVector = 0xFFFC
	irqVector   = 0xFFFE
)

// Bus is the memory interface the CPU reads and writes through. The
// console wires this to the work RAM mirror, PPU/APU register
// windows, and the cartridge mapper.
type Bus interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// CPU is a single 6502 core: the NES never has more than one.
type CPU struct {
	A  uint8
	X  uint8
	Y  uint8
	SP uint8
	PC uint16

	C bool // Carry
	Z bool // Zero
	I bool // Interrupt disable
	D bool // Decimal (accepted but never consulted: the 2A03 lacks BCD math)
	V bool // Overflow
	N bool // Negative

	bus Bus

	cycles uint64

	nmiPending  bool
	nmiPrevious bool
	irqLine     bool
}

// New creates a CPU wired to bus. Registers are undefined until Reset
// is called.
func New(bus Bus) *CPU {
	return &CPU{bus: bus, SP: 0xFD}
}

// Cycles returns the total number of machine cycles consumed since
// construction. Reset does not clear it; it adds the seven cycles of the
// reset sequence.
func (c *CPU) Cycles() uint64 { return c.cycles }

// Reset performs the 6502 power-up/reset sequence: seven bus cycles
// (five dummy reads, two vector reads), I set, PC loaded from $FFFC.
func (c *CPU) Reset() {
	c.A, c.X, c.Y = 0, 0, 0
	c.SP = 0xFD
	c.C, c.Z, c.V, c.N, c.D = false, false, false, false, false
	c.I = true

	for i := 0; i < 5; i++ {
		c.bus.Read(c.PC)
		c.cycles++
	}
	low := uint16(c.bus.Read(resetVector))
	high := uint16(c.bus.Read(resetVector + 1))
	c.PC = (high << 8) | low
	c.cycles += 2
}

// Step executes a single instruction and returns the number of
// machine cycles it consumed. An unknown opcode halts deterministically
// by returning a non-nil *DecodeError; PC and cycle count are left as
// they stood at the failed fetch.
func (c *CPU) Step() (uint64, error) {
	pc := c.PC
	opcode := c.bus.Read(c.PC)
	instruction := opcodeTable[opcode]
	if instruction == nil {
		return 0, &DecodeError{PC: pc, Opcode: opcode, Cycle: c.cycles}
	}

	c.PC++
	address, pageCrossed := c.operandAddress(instruction.Mode)
	extra := c.execute(opcode, address, pageCrossed)

	if pageCrossed {
		switch opcode {
		case 0x9D, 0x99, 0x91: // STA absolute,X / absolute,Y / (zp),Y always pays the cross: already in the base count
		default:
			switch opcode {
			case 0xBD, 0xB9, 0xB1, 0xBE, 0xBC, 0x7D, 0x79, 0x71, 0xFD, 0xF9, 0xF1, 0x3D, 0x39, 0x31, 0x1D, 0x19, 0x11, 0x5D, 0x59, 0x51, 0xDD, 0xD9, 0xD1:
				extra++
			}
		}
	}

	total := uint64(instruction.Cycles) + uint64(extra)
	c.cycles += total

	beforeInterrupt := c.cycles
	c.pollInterrupts()
	total += c.cycles - beforeInterrupt
	return total, nil
}

// operandAddress computes the effective address for mode, advancing
// PC past the instruction's operand bytes, and reports whether a page
// boundary was crossed (for the read-instruction cycle penalty).
func (c *CPU) operandAddress(mode AddressingMode) (uint16, bool) {
	switch mode {
	case Implied, Accumulator:
		return 0, false

	case Immediate:
		addr := c.PC
		c.PC++
		return addr, false

	case ZeroPage:
		addr := uint16(c.bus.Read(c.PC))
		c.PC++
		return addr, false

	case ZeroPageX:
		base := c.bus.Read(c.PC)
		c.PC++
		return uint16(base+c.X) & zeroPageMask, false

	case ZeroPageY:
		base := c.bus.Read(c.PC)
		c.PC++
		return uint16(base+c.Y) & zeroPageMask, false

	case Relative:
		offset := int8(c.bus.Read(c.PC))
		c.PC++
		base := c.PC
		target := uint16(int32(base) + int32(offset))
		return target, (base & pageMask) != (target & pageMask)

	case Absolute:
		low := uint16(c.bus.Read(c.PC))
		high := uint16(c.bus.Read(c.PC + 1))
		c.PC += 2
		return (high << 8) | low, false

	case AbsoluteX:
		low := uint16(c.bus.Read(c.PC))
		high := uint16(c.bus.Read(c.PC + 1))
		c.PC += 2
		base := (high << 8) | low
		addr := base + uint16(c.X)
		return addr, (base & pageMask) != (addr & pageMask)

	case AbsoluteY:
		low := uint16(c.bus.Read(c.PC))
		high := uint16(c.bus.Read(c.PC + 1))
		c.PC += 2
		base := (high << 8) | low
		addr := base + uint16(c.Y)
		return addr, (base & pageMask) != (addr & pageMask)

	case Indirect: // JMP only; reproduces the page-wrap hardware bug
		lowPtr := uint16(c.bus.Read(c.PC))
		highPtr := uint16(c.bus.Read(c.PC + 1))
		c.PC += 2
		ptr := (highPtr << 8) | lowPtr
		low := uint16(c.bus.Read(ptr))
		var high uint16
		if (ptr & zeroPageMask) == zeroPageMask {
			high = uint16(c.bus.Read(ptr & pageMask))
		} else {
			high = uint16(c.bus.Read(ptr + 1))
		}
		return (high << 8) | low, false

	case IndexedIndirect: // (zp,X)
		base := c.bus.Read(c.PC)
		c.PC++
		ptr := (base + c.X) & zeroPageMask
		low := uint16(c.bus.Read(uint16(ptr)))
		high := uint16(c.bus.Read(uint16((ptr + 1) & zeroPageMask)))
		return (high << 8) | low, false

	case IndirectIndexed: // (zp),Y
		ptr := uint16(c.bus.Read(c.PC))
		c.PC++
		low := uint16(c.bus.Read(ptr))
		high := uint16(c.bus.Read((ptr + 1) & zeroPageMask))
		base := (high << 8) | low
		addr := base + uint16(c.Y)
		return addr, (base & pageMask) != (addr & pageMask)

	default:
		return 0, false
	}
}

func (c *CPU) push(v uint8) {
	c.bus.Write(stackBase+uint16(c.SP), v)
	c.SP--
}

func (c *CPU) pop() uint8 {
	c.SP++
	return c.bus.Read(stackBase + uint16(c.SP))
}

func (c *CPU) pushWord(v uint16) {
	c.push(uint8(v >> 8))
	c.push(uint8(v))
}

func (c *CPU) popWord() uint16 {
	low := uint16(c.pop())
	high := uint16(c.pop())
	return (high << 8) | low
}

func (c *CPU) setZN(v uint8) {
	c.Z = v == 0
	c.N = v&nFlagMask != 0
}

// StatusByte packs the flags into P. The unused bit is always read as
// 1; breakFlag selects B's value for this particular transfer (set by
// BRK/PHP, clear for a hardware NMI/IRQ push), matching the fact that
// the 6502 has no persistent B storage — it only exists at the moment
// status is pushed to the stack.
func (c *CPU) StatusByte(breakFlag bool) uint8 {
	var s uint8
	if c.N {
		s |= nFlagMask
	}
	if c.V {
		s |= vFlagMask
	}
	s |= uFlagMask
	if breakFlag {
		s |= bFlagMask
	}
	if c.D {
		s |= dFlagMask
	}
	if c.I {
		s |= iFlagMask
	}
	if c.Z {
		s |= zFlagMask
	}
	if c.C {
		s |= cFlagMask
	}
	return s
}

// SetStatusByte loads flags from a status byte pulled off the stack
// (PLP/RTI). B and the unused bit are not stored in CPU state.
func (c *CPU) SetStatusByte(s uint8) {
	c.N = s&nFlagMask != 0
	c.V = s&vFlagMask != 0
	c.D = s&dFlagMask != 0
	c.I = s&iFlagMask != 0
	c.Z = s&zFlagMask != 0
	c.C = s&cFlagMask != 0
}

// SetNMI updates the NMI line. NMI is edge-triggered: it latches on
// the falling (asserted high-to-low) transition.
func (c *CPU) SetNMI(asserted bool) {
	if c.nmiPrevious && !asserted {
		c.nmiPending = true
	}
	c.nmiPrevious = asserted
}

// SetIRQ updates the level-triggered IRQ line (mapper IRQs, frame/DMC
// IRQs all drive this the same way: asserted stays asserted until the
// source clears it).
func (c *CPU) SetIRQ(asserted bool) {
	c.irqLine = asserted
}

func (c *CPU) pollInterrupts() {
	if c.nmiPending {
		c.nmiPending = false
		c.handleNMI()
		return
	}
	if c.irqLine && !c.I {
		c.handleIRQ()
	}
}

func (c *CPU) handleNMI() {
	c.pushWord(c.PC)
	c.push(c.StatusByte(false))
	c.I = true
	low := uint16(c.bus.Read(nmiVector))
	high := uint16(c.bus.Read(nmiVector + 1))
	c.PC = (high << 8) | low
	c.cycles += 7
}

func (c *CPU) handleIRQ() {
	c.pushWord(c.PC)
	c.push(c.StatusByte(false))
	c.I = true
	low := uint16(c.bus.Read(irqVector))
	high := uint16(c.bus.Read(irqVector + 1))
	c.PC = (high << 8) | low
	c.cycles += 7
}
