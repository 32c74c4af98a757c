// Package console wires the CPU, APU, and cartridge mapper together
// behind the address-decoded bus the CPU sees as cpu.Bus, grounded on
// the teacher's internal/bus.Bus but stripped of PPU-rendering and
// input-polling internals, which are out of scope here and represented
// only as thin collaborator interfaces.
package console

import (
	"nescore/internal/apu"
	"nescore/internal/cartridge"
	"nescore/internal/cpu"
)

// PPUPort is the register-level surface the console forwards
// $2000-$3FFF accesses to. The real PPU is an external collaborator
// (out of scope); NopPPU satisfies this trivially for headless runs.
type PPUPort interface {
	ReadRegister(address uint16) uint8
	WriteRegister(address uint16, value uint8)
}

// InputPort is the register-level surface the console forwards
// $4016/$4017 controller strobe/read accesses to.
type InputPort interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// NopPPU is a PPUPort stand-in for headless operation: reads return 0,
// writes are discarded.
type NopPPU struct{}

func (NopPPU) ReadRegister(address uint16) uint8        { return 0 }
func (NopPPU) WriteRegister(address uint16, value uint8) {}

// NopInput is an InputPort stand-in with no connected controllers.
type NopInput struct{}

func (NopInput) Read(address uint16) uint8         { return 0 }
func (NopInput) Write(address uint16, value uint8) {}

// Console owns the CPU, APU, and loaded cartridge, and implements
// cpu.Bus by address-decoding every access per the system memory map.
type Console struct {
	CPU *cpu.CPU
	APU *apu.APU
	Cart *cartridge.Cartridge

	PPU   PPUPort
	Input InputPort

	ram [0x800]uint8

	cycles          uint64
	dmaStallRemaining uint64
}

// New constructs a console around an already-loaded cartridge. PPU and
// Input default to no-op stand-ins; callers that do supply a PPU
// implementation should assign Console.PPU before calling Reset.
func New(cart *cartridge.Cartridge) *Console {
	c := &Console{
		Cart:  cart,
		APU:   apu.New(),
		PPU:   NopPPU{},
		Input: NopInput{},
	}
	c.CPU = cpu.New(c)
	c.Reset()
	return c
}

// Reset resets CPU and APU state; PC is loaded from the reset vector.
func (c *Console) Reset() {
	c.APU.Reset()
	c.CPU.Reset()
	c.cycles = 0
	c.dmaStallRemaining = 0
}

// Read implements cpu.Bus.
func (c *Console) Read(address uint16) uint8 {
	switch {
	case address < 0x2000:
		return c.ram[address&0x07FF]
	case address < 0x4000:
		return c.PPU.ReadRegister(0x2000 + (address & 0x0007))
	case address == 0x4015:
		return c.APU.ReadStatus()
	case address == 0x4016, address == 0x4017:
		return c.Input.Read(address)
	case address < 0x4020:
		return 0
	case address < 0x6000:
		return 0 // cartridge expansion area, unmapped
	default:
		return c.Cart.ReadPRG(address)
	}
}

// Write implements cpu.Bus.
func (c *Console) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		c.ram[address&0x07FF] = value
	case address < 0x4000:
		c.PPU.WriteRegister(0x2000+(address&0x0007), value)
	case address == 0x4014:
		c.triggerOAMDMA(value)
	case address == 0x4016:
		c.Input.Write(address, value)
	case address >= 0x4000 && address <= 0x4013, address == 0x4015, address == 0x4017:
		c.APU.WriteRegister(address, value)
	case address < 0x4020:
		// test-mode registers, ignored
	case address < 0x6000:
		// cartridge expansion area, ignored
	default:
		c.Cart.WritePRG(address, value)
	}
}

// triggerOAMDMA copies 256 bytes from sourcePage<<8 into the PPU's OAM
// via repeated $2004 writes, and schedules the CPU stall the real
// hardware imposes: 513 cycles, or 514 if DMA starts on an odd cycle.
func (c *Console) triggerOAMDMA(sourcePage uint8) {
	base := uint16(sourcePage) << 8
	for i := 0; i < 256; i++ {
		value := c.Read(base + uint16(i))
		c.PPU.WriteRegister(0x2004, value)
	}
	stall := uint64(513)
	if c.cycles%2 == 1 {
		stall = 514
	}
	c.dmaStallRemaining += stall
}

// NotifyPPUAddress forwards a PPU pattern-table address to the
// cartridge mapper's scanline IRQ counter (MMC3's A12 edge detector),
// for callers that drive a real PPU collaborator.
func (c *Console) NotifyPPUAddress(address uint16) {
	if n := c.Cart.ScanlineNotifier(); n != nil {
		n.NotifyPPUAddress(address)
	}
}

// Step advances the console by one CPU instruction (or, while a DMA
// stall is outstanding, by one stalled cycle) and returns the number
// of CPU cycles consumed.
func (c *Console) Step() (uint64, error) {
	if c.dmaStallRemaining > 0 {
		c.dmaStallRemaining--
		c.tickAPU(1)
		c.cycles++
		return 1, nil
	}

	c.CPU.SetIRQ(c.irqAsserted())

	cycles, err := c.CPU.Step()
	if err != nil {
		return cycles, err
	}
	c.tickAPU(cycles)
	c.cycles += cycles
	return cycles, nil
}

func (c *Console) irqAsserted() bool {
	if c.APU.IRQ() {
		return true
	}
	if src := c.Cart.IRQSource(); src != nil && src.PollIRQ() {
		return true
	}
	return false
}

// tickAPU advances the APU by n cycles, servicing any DMC DMA fetch
// request synchronously against this same bus.
func (c *Console) tickAPU(n uint64) {
	for i := uint64(0); i < n; i++ {
		c.APU.Step()
		if addr, ok := c.APU.RequestFetch(); ok {
			c.APU.ProvideSample(c.Read(addr))
			c.stallForDMCFetch()
		}
	}
}

// stallForDMCFetch accounts for the CPU cycles a DMC sample fetch steals
// from the CPU: 4 cycles best case, extended up to the documented
// worst case of 514 when the fetch lands during an outstanding OAM DMA
// stall.
func (c *Console) stallForDMCFetch() {
	const dmcFetchStall = 4
	const maxCombinedStall = 514
	if c.dmaStallRemaining+dmcFetchStall > maxCombinedStall {
		c.dmaStallRemaining = maxCombinedStall
		return
	}
	c.dmaStallRemaining += dmcFetchStall
}

// RunCycles steps the console until at least the given number of CPU
// cycles have elapsed, stopping early on a decode error.
func (c *Console) RunCycles(target uint64) (uint64, error) {
	var total uint64
	for total < target {
		n, err := c.Step()
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// CycleCount returns the total CPU cycles elapsed since construction or reset.
func (c *Console) CycleCount() uint64 { return c.cycles }
