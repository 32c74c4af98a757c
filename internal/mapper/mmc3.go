package mapper

const (
	mmc3PRGBankSize = 0x2000
	mmc3CHRBank1KB  = 0x400
)

// MMC3 (mapper 4). Eight bank registers selected by $8000/$8001,
// PRG-mode and CHR-inversion bits in bank-select, a scanline IRQ
// counter clocked by PPU address bit A12's rising edge, and PRG-RAM
// enable/protect via $A001. Grounded closely on the reference Rust
// mapper, translated from its Cell<T>-based interior mutation to
// ordinary pointer-receiver mutation, which is the natural Go
// equivalent for "mutates on what the caller sees as a read".
type MMC3 struct {
	prg      []byte
	chr      []byte
	chrIsRAM bool
	sram     [0x2000]byte
	sramWriteProtect bool
	sramEnable       bool

	bankSelect uint8
	bankRegs   [8]uint8
	chrBanks   [8]int
	prgBanks   [4]int

	irqLatch   uint8
	irqCounter uint8
	irqReload  bool
	irqEnabled bool
	irqPending bool
	lastA12    bool

	mirror       Mirroring
	forceFourScr bool
}

func newMMC3(cfg Config) *MMC3 {
	m := &MMC3{
		prg:          cfg.PRG,
		chr:          chrBacking(cfg),
		chrIsRAM:     cfg.CHRIsRAM,
		sramEnable:   true,
		mirror:       cfg.Mirroring,
		forceFourScr: cfg.FourScreen,
	}
	m.bankRegs = [8]uint8{0, 2, 4, 5, 6, 7, 0, 1}
	m.updateCHRBanks()
	m.updatePRGBanks()
	return m
}

func (m *MMC3) prgBankOffset(index int) int {
	if len(m.prg) == 0 {
		return 0
	}
	count := len(m.prg) / mmc3PRGBankSize
	if count == 0 {
		count = 1
	}
	bank := index % count
	return bank * mmc3PRGBankSize
}

func (m *MMC3) chrBankOffset1K(index int) int {
	if len(m.chr) == 0 {
		return 0
	}
	count := len(m.chr) / mmc3CHRBank1KB
	if count == 0 {
		count = 1
	}
	bank := index % count
	return bank * mmc3CHRBank1KB
}

func (m *MMC3) setCHR2KBank(slot int, value uint8) {
	bank := int(value &^ 1)
	m.chrBanks[slot] = m.chrBankOffset1K(bank)
	m.chrBanks[slot+1] = m.chrBankOffset1K(bank + 1)
}

func (m *MMC3) setCHR1KBank(slot int, value uint8) {
	m.chrBanks[slot] = m.chrBankOffset1K(int(value))
}

func (m *MMC3) updateCHRBanks() {
	invert := m.bankSelect&0x80 != 0
	if invert {
		m.setCHR1KBank(0, m.bankRegs[2])
		m.setCHR1KBank(1, m.bankRegs[3])
		m.setCHR1KBank(2, m.bankRegs[4])
		m.setCHR1KBank(3, m.bankRegs[5])
		m.setCHR2KBank(4, m.bankRegs[0])
		m.setCHR2KBank(6, m.bankRegs[1])
	} else {
		m.setCHR2KBank(0, m.bankRegs[0])
		m.setCHR2KBank(2, m.bankRegs[1])
		m.setCHR1KBank(4, m.bankRegs[2])
		m.setCHR1KBank(5, m.bankRegs[3])
		m.setCHR1KBank(6, m.bankRegs[4])
		m.setCHR1KBank(7, m.bankRegs[5])
	}
}

func (m *MMC3) updatePRGBanks() {
	count := len(m.prg) / mmc3PRGBankSize
	if count == 0 {
		count = 1
	}
	lastIdx := count - 1
	secondLastIdx := lastIdx - 1
	if secondLastIdx < 0 {
		secondLastIdx = lastIdx
	}
	fixedLast := m.prgBankOffset(lastIdx)
	fixedSecondLast := m.prgBankOffset(secondLastIdx)
	bank6 := m.prgBankOffset(int(m.bankRegs[6]))
	bank7 := m.prgBankOffset(int(m.bankRegs[7]))

	if m.bankSelect&0x40 == 0 {
		m.prgBanks[0] = bank6
		m.prgBanks[1] = bank7
		m.prgBanks[2] = fixedSecondLast
	} else {
		m.prgBanks[0] = fixedSecondLast
		m.prgBanks[1] = bank7
		m.prgBanks[2] = bank6
	}
	m.prgBanks[3] = fixedLast
}

func (m *MMC3) mapCHRAddr(addr uint16) int {
	if len(m.chr) == 0 {
		return 0
	}
	slot := int(addr) / mmc3CHRBank1KB
	if slot > len(m.chrBanks)-1 {
		slot = len(m.chrBanks) - 1
	}
	offset := int(addr) % mmc3CHRBank1KB
	base := m.chrBanks[slot]
	return (base + offset) % len(m.chr)
}

func (m *MMC3) handleScanlineCounter(addr uint16) {
	a12 := addr&0x1000 != 0
	if a12 && !m.lastA12 {
		m.clockIRQCounter()
	}
	m.lastA12 = a12
}

func (m *MMC3) clockIRQCounter() {
	if m.irqCounter == 0 || m.irqReload {
		m.irqCounter = m.irqLatch
		m.irqReload = false
	} else {
		m.irqCounter--
	}
	if m.irqCounter == 0 && m.irqEnabled {
		m.irqPending = true
	}
}

func (m *MMC3) readPRGBank(slot int, addr uint16) uint8 {
	if len(m.prg) == 0 {
		return 0
	}
	base := m.prgBanks[slot]
	offset := int(addr) & (mmc3PRGBankSize - 1)
	index := (base + offset) % len(m.prg)
	return m.prg[index]
}

func (m *MMC3) ReadPRG(address uint16) uint8 {
	switch {
	case address >= 0x6000 && address < 0x8000:
		if m.sramEnable {
			return m.sram[address-0x6000]
		}
		return 0xFF
	case address >= 0x8000 && address < 0xA000:
		return m.readPRGBank(0, address-0x8000)
	case address >= 0xA000 && address < 0xC000:
		return m.readPRGBank(1, address-0xA000)
	case address >= 0xC000 && address < 0xE000:
		return m.readPRGBank(2, address-0xC000)
	case address >= 0xE000:
		return m.readPRGBank(3, address-0xE000)
	}
	return 0
}

func (m *MMC3) WritePRG(address uint16, value uint8) {
	switch {
	case address >= 0x6000 && address < 0x8000:
		if m.sramEnable && !m.sramWriteProtect {
			m.sram[address-0x6000] = value
		}
	case address >= 0x8000 && address < 0xA000:
		if address&1 == 0 {
			m.bankSelect = value
			m.updateCHRBanks()
			m.updatePRGBanks()
		} else {
			reg := int(m.bankSelect & 0x07)
			v := value
			if reg == 0 || reg == 1 {
				v = value &^ 1
			}
			m.bankRegs[reg] = v
			if reg <= 5 {
				m.updateCHRBanks()
			} else {
				m.updatePRGBanks()
			}
		}
	case address >= 0xA000 && address < 0xC000:
		if address&1 == 0 {
			if !m.forceFourScr {
				if value&0x01 == 0 {
					m.mirror = Vertical
				} else {
					m.mirror = Horizontal
				}
			}
		} else {
			m.sramWriteProtect = value&0x40 != 0
			m.sramEnable = value&0x80 != 0
		}
	case address >= 0xC000 && address < 0xE000:
		if address&1 == 0 {
			m.irqLatch = value
		} else {
			m.irqReload = true
		}
	case address >= 0xE000:
		if address&1 == 0 {
			m.irqEnabled = false
			m.irqPending = false
		} else {
			m.irqEnabled = true
		}
	}
}

func (m *MMC3) ReadCHR(address uint16) uint8 {
	m.handleScanlineCounter(address)
	if len(m.chr) == 0 {
		return 0
	}
	return m.chr[m.mapCHRAddr(address)]
}

func (m *MMC3) WriteCHR(address uint16, value uint8) {
	m.handleScanlineCounter(address)
	if m.chrIsRAM {
		m.chr[m.mapCHRAddr(address)] = value
	}
}

func (m *MMC3) Mirroring() Mirroring {
	if m.forceFourScr {
		return FourScreen
	}
	return m.mirror
}

// PollIRQ reports (and does not clear) the pending IRQ state; the
// console clears it by writing $E000.
func (m *MMC3) PollIRQ() bool { return m.irqPending }

// NotifyPPUAddress lets a PPU collaborator drive the A12-edge counter
// directly instead of routing every CHR access through ReadCHR/WriteCHR.
func (m *MMC3) NotifyPPUAddress(address uint16) { m.handleScanlineCounter(address) }
