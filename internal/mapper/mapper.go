// Package mapper implements the NES cartridge-side bank-switching
// state machines: the address-translation layer between the CPU/PPU
// buses and a cartridge's PRG/CHR memory.
package mapper

import "fmt"

// Mirroring identifies how the two physical nametables are mapped
// onto the PPU's four logical nametable slots.
type Mirroring int

const (
	Horizontal Mirroring = iota
	Vertical
	SingleScreenLow
	SingleScreenHigh
	FourScreen
)

// Mapper is the polymorphic cartridge interface. All five required
// variants (NROM, UxROM, CNROM, MMC1, MMC3) implement it; new mappers
// plug in without touching the console. ReadCHR takes a pointer
// receiver on every implementation because MMC3 mutates its A12-edge
// IRQ counter during what the caller sees as a pure read.
type Mapper interface {
	ReadPRG(address uint16) uint8
	WritePRG(address uint16, value uint8)
	ReadCHR(address uint16) uint8
	WriteCHR(address uint16, value uint8)
	Mirroring() Mirroring
}

// IRQSource is implemented by mappers that can assert a CPU IRQ
// (currently only MMC3). The console polls PollIRQ once per instruction
// step, before the CPU executes it; PPU address activity reaches the
// counter through CHR accesses or NotifyPPUAddress.
type IRQSource interface {
	PollIRQ() bool
}

// ScanlineNotifier is implemented by mappers whose IRQ counter is
// clocked by PPU address-bus activity (MMC3's A12 rising edge).
// Implementations may alternatively be driven by explicit scanline
// notifications from a PPU collaborator; both produce the same
// counter sequence for standard rendering.
type ScanlineNotifier interface {
	NotifyPPUAddress(address uint16)
}

// Config is the cartridge loader's contract to a mapper constructor:
// PRG/CHR byte sequences (CHR may be empty, meaning CHR-RAM), the
// declared mirroring, and whether the header forces four-screen
// regardless of what the mapper itself would otherwise select.
type Config struct {
	PRG        []byte
	CHR        []byte
	CHRIsRAM   bool
	Mirroring  Mirroring
	FourScreen bool
	HasBattery bool
}

// UnsupportedMapperError is returned by New when id names a mapper
// this implementation does not provide. Per the cartridge loader
// contract, this is a fatal error reported to the caller rather than
// silently substituting a different mapper.
type UnsupportedMapperError struct {
	ID uint8
}

func (e *UnsupportedMapperError) Error() string {
	return fmt.Sprintf("mapper: unsupported mapper id %d", e.ID)
}

// New constructs the concrete mapper named by id.
func New(id uint8, cfg Config) (Mapper, error) {
	switch id {
	case 0:
		return newNROM(cfg), nil
	case 1:
		return newMMC1(cfg), nil
	case 2:
		return newUxROM(cfg), nil
	case 3:
		return newCNROM(cfg), nil
	case 4:
		return newMMC3(cfg), nil
	default:
		return nil, &UnsupportedMapperError{ID: id}
	}
}

// chrBacking returns the cartridge's CHR bytes, or allocates a default
// 8 KiB CHR-RAM bank when the cartridge declares none (CHR size 0 in the
// header).
func chrBacking(cfg Config) []byte {
	if len(cfg.CHR) > 0 {
		return cfg.CHR
	}
	return make([]byte, 0x2000)
}
