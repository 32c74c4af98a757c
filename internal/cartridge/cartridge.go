// Package cartridge implements iNES ROM loading and parsing, producing
// a mapper.Config for the internal/mapper package to dispatch on.
package cartridge

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"nescore/internal/mapper"
)

// Cartridge owns the parsed PRG/CHR images and the dispatched mapper
// that exposes them to the CPU and PPU address spaces.
type Cartridge struct {
	mapperImpl mapper.Mapper
	id         uint8

	hasBattery bool
	hasCHRRAM  bool
	mirror     mapper.Mirroring
}

var errInvalidMagic = errors.New("cartridge: not an iNES file")
var errZeroPRG = errors.New("cartridge: header declares zero PRG ROM banks")

// iNESHeader is the 16-byte iNES 1.0 file header.
type iNESHeader struct {
	Magic      [4]uint8
	PRGROMSize uint8 // 16 KiB units
	CHRROMSize uint8 // 8 KiB units
	Flags6     uint8
	Flags7     uint8
	PRGRAMSize uint8
	TVSystem1  uint8
	TVSystem2  uint8
	Padding    [5]uint8
}

// LoadFromFile loads a cartridge from an iNES file on disk.
func LoadFromFile(filename string) (*Cartridge, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadFromReader(file)
}

// LoadFromReader parses an iNES image and dispatches the declared
// mapper. An unsupported mapper ID is returned as a wrapped
// *mapper.UnsupportedMapperError, never silently substituted.
func LoadFromReader(r io.Reader) (*Cartridge, error) {
	var header iNESHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("cartridge: reading header: %w", err)
	}

	if string(header.Magic[:]) != "NES\x1A" {
		return nil, errInvalidMagic
	}
	if header.PRGROMSize == 0 {
		return nil, errZeroPRG
	}

	id := (header.Flags6 >> 4) | (header.Flags7 & 0xF0)
	fourScreen := header.Flags6&0x08 != 0

	var mirror mapper.Mirroring
	switch {
	case fourScreen:
		mirror = mapper.FourScreen
	case header.Flags6&0x01 != 0:
		mirror = mapper.Vertical
	default:
		mirror = mapper.Horizontal
	}

	if header.Flags6&0x04 != 0 {
		trainer := make([]uint8, 512)
		if _, err := io.ReadFull(r, trainer); err != nil {
			return nil, fmt.Errorf("cartridge: reading trainer: %w", err)
		}
	}

	prg := make([]uint8, int(header.PRGROMSize)*16384)
	if _, err := io.ReadFull(r, prg); err != nil {
		return nil, fmt.Errorf("cartridge: reading PRG ROM: %w", err)
	}

	// CHR-RAM detection is header-size-based, not content-based: a
	// header declaring zero CHR banks means CHR-RAM, regardless of
	// what bytes an all-zero CHR ROM image happens to contain.
	var chr []uint8
	chrIsRAM := header.CHRROMSize == 0
	if !chrIsRAM {
		chr = make([]uint8, int(header.CHRROMSize)*8192)
		if _, err := io.ReadFull(r, chr); err != nil {
			return nil, fmt.Errorf("cartridge: reading CHR ROM: %w", err)
		}
	}

	cfg := mapper.Config{
		PRG:        prg,
		CHR:        chr,
		CHRIsRAM:   chrIsRAM,
		Mirroring:  mirror,
		FourScreen: fourScreen,
		HasBattery: header.Flags6&0x02 != 0,
	}

	m, err := mapper.New(id, cfg)
	if err != nil {
		return nil, fmt.Errorf("cartridge: %w", err)
	}

	return &Cartridge{
		mapperImpl: m,
		id:         id,
		hasBattery: cfg.HasBattery,
		hasCHRRAM:  chrIsRAM,
		mirror:     mirror,
	}, nil
}

func (c *Cartridge) ReadPRG(address uint16) uint8         { return c.mapperImpl.ReadPRG(address) }
func (c *Cartridge) WritePRG(address uint16, value uint8) { c.mapperImpl.WritePRG(address, value) }
func (c *Cartridge) ReadCHR(address uint16) uint8         { return c.mapperImpl.ReadCHR(address) }
func (c *Cartridge) WriteCHR(address uint16, value uint8) { c.mapperImpl.WriteCHR(address, value) }

// Mirroring returns the cartridge's current nametable mirroring mode,
// which for MMC1/MMC3 can change at runtime via mapper register writes.
func (c *Cartridge) Mirroring() mapper.Mirroring { return c.mapperImpl.Mirroring() }

// MapperID returns the iNES mapper number this cartridge declared.
func (c *Cartridge) MapperID() uint8 { return c.id }

// HasBattery reports whether the cartridge declares battery-backed PRG-RAM.
func (c *Cartridge) HasBattery() bool { return c.hasBattery }

// HasCHRRAM reports whether CHR memory is RAM (header declared zero CHR banks).
func (c *Cartridge) HasCHRRAM() bool { return c.hasCHRRAM }

// IRQSource returns the mapper as a mapper.IRQSource if it asserts
// CPU interrupts (MMC3), or nil otherwise.
func (c *Cartridge) IRQSource() mapper.IRQSource {
	if src, ok := c.mapperImpl.(mapper.IRQSource); ok {
		return src
	}
	return nil
}

// ScanlineNotifier returns the mapper as a mapper.ScanlineNotifier if
// its IRQ counter is clocked by PPU address-bus activity (MMC3), or
// nil otherwise.
func (c *Cartridge) ScanlineNotifier() mapper.ScanlineNotifier {
	if n, ok := c.mapperImpl.(mapper.ScanlineNotifier); ok {
		return n
	}
	return nil
}
