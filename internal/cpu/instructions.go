package cpu

// execute runs opcode against the already-computed operand address
// and returns any extra cycles beyond the table's base count (branch
// instructions report their own taken/page-cross bonus here).
func (c *CPU) execute(opcode uint8, address uint16, pageCrossed bool) uint8 {
	switch opcode {
	case 0xA9, 0xA5, 0xB5, 0xAD, 0xBD, 0xB9, 0xA1, 0xB1:
		return c.lda(address)
	case 0xA2, 0xA6, 0xB6, 0xAE, 0xBE:
		return c.ldx(address)
	case 0xA0, 0xA4, 0xB4, 0xAC, 0xBC:
		return c.ldy(address)
	case 0x85, 0x95, 0x8D, 0x9D, 0x99, 0x81, 0x91:
		return c.sta(address)
	case 0x86, 0x96, 0x8E:
		return c.stx(address)
	case 0x84, 0x94, 0x8C:
		return c.sty(address)

	case 0x69, 0x65, 0x75, 0x6D, 0x7D, 0x79, 0x61, 0x71:
		return c.adc(address)
	case 0xE9, 0xE5, 0xF5, 0xED, 0xFD, 0xF9, 0xE1, 0xF1:
		return c.sbc(address)

	case 0x29, 0x25, 0x35, 0x2D, 0x3D, 0x39, 0x21, 0x31:
		return c.and(address)
	case 0x09, 0x05, 0x15, 0x0D, 0x1D, 0x19, 0x01, 0x11:
		return c.ora(address)
	case 0x49, 0x45, 0x55, 0x4D, 0x5D, 0x59, 0x41, 0x51:
		return c.eor(address)

	case 0x0A:
		c.C = c.A&0x80 != 0
		c.A <<= 1
		c.setZN(c.A)
		return 0
	case 0x06, 0x16, 0x0E, 0x1E:
		return c.asl(address)
	case 0x4A:
		c.C = c.A&0x01 != 0
		c.A >>= 1
		c.setZN(c.A)
		return 0
	case 0x46, 0x56, 0x4E, 0x5E:
		return c.lsr(address)
	case 0x2A:
		old := c.C
		c.C = c.A&0x80 != 0
		c.A <<= 1
		if old {
			c.A |= 0x01
		}
		c.setZN(c.A)
		return 0
	case 0x26, 0x36, 0x2E, 0x3E:
		return c.rol(address)
	case 0x6A:
		old := c.C
		c.C = c.A&0x01 != 0
		c.A >>= 1
		if old {
			c.A |= 0x80
		}
		c.setZN(c.A)
		return 0
	case 0x66, 0x76, 0x6E, 0x7E:
		return c.ror(address)

	case 0xC9, 0xC5, 0xD5, 0xCD, 0xDD, 0xD9, 0xC1, 0xD1:
		return c.cmp(address)
	case 0xE0, 0xE4, 0xEC:
		return c.cpx(address)
	case 0xC0, 0xC4, 0xCC:
		return c.cpy(address)

	case 0xE6, 0xF6, 0xEE, 0xFE:
		return c.inc(address)
	case 0xC6, 0xD6, 0xCE, 0xDE:
		return c.dec(address)
	case 0xE8:
		c.X++
		c.setZN(c.X)
		return 0
	case 0xCA:
		c.X--
		c.setZN(c.X)
		return 0
	case 0xC8:
		c.Y++
		c.setZN(c.Y)
		return 0
	case 0x88:
		c.Y--
		c.setZN(c.Y)
		return 0

	case 0xAA:
		c.X = c.A
		c.setZN(c.X)
		return 0
	case 0x8A:
		c.A = c.X
		c.setZN(c.A)
		return 0
	case 0xA8:
		c.Y = c.A
		c.setZN(c.Y)
		return 0
	case 0x98:
		c.A = c.Y
		c.setZN(c.A)
		return 0
	case 0xBA:
		c.X = c.SP
		c.setZN(c.X)
		return 0
	case 0x9A:
		c.SP = c.X
		return 0

	case 0x48:
		c.push(c.A)
		return 0
	case 0x68:
		c.A = c.pop()
		c.setZN(c.A)
		return 0
	case 0x08:
		c.push(c.StatusByte(true))
		return 0
	case 0x28:
		c.SetStatusByte(c.pop())
		return 0

	case 0x18:
		c.C = false
		return 0
	case 0x38:
		c.C = true
		return 0
	case 0x58:
		c.I = false
		return 0
	case 0x78:
		c.I = true
		return 0
	case 0xB8:
		c.V = false
		return 0
	case 0xD8:
		c.D = false
		return 0
	case 0xF8:
		c.D = true
		return 0

	case 0x4C, 0x6C:
		c.PC = address
		return 0
	case 0x20:
		c.pushWord(c.PC - 1)
		c.PC = address
		return 0
	case 0x60:
		c.PC = c.popWord() + 1
		return 0
	case 0x40:
		c.SetStatusByte(c.pop())
		c.PC = c.popWord()
		return 0

	case 0x90:
		return c.branch(!c.C, address, pageCrossed)
	case 0xB0:
		return c.branch(c.C, address, pageCrossed)
	case 0xD0:
		return c.branch(!c.Z, address, pageCrossed)
	case 0xF0:
		return c.branch(c.Z, address, pageCrossed)
	case 0x10:
		return c.branch(!c.N, address, pageCrossed)
	case 0x30:
		return c.branch(c.N, address, pageCrossed)
	case 0x50:
		return c.branch(!c.V, address, pageCrossed)
	case 0x70:
		return c.branch(c.V, address, pageCrossed)

	case 0x24, 0x2C:
		return c.bit(address)
	case 0xEA:
		return 0
	case 0x00:
		return c.brk()

	default:
		return 0
	}
}

func (c *CPU) branch(taken bool, address uint16, pageCrossed bool) uint8 {
	if !taken {
		return 0
	}
	c.PC = address
	if pageCrossed {
		return 2
	}
	return 1
}

func (c *CPU) lda(address uint16) uint8 {
	c.A = c.bus.Read(address)
	c.setZN(c.A)
	return 0
}

func (c *CPU) ldx(address uint16) uint8 {
	c.X = c.bus.Read(address)
	c.setZN(c.X)
	return 0
}

func (c *CPU) ldy(address uint16) uint8 {
	c.Y = c.bus.Read(address)
	c.setZN(c.Y)
	return 0
}

func (c *CPU) sta(address uint16) uint8 {
	c.bus.Write(address, c.A)
	return 0
}

func (c *CPU) stx(address uint16) uint8 {
	c.bus.Write(address, c.X)
	return 0
}

func (c *CPU) sty(address uint16) uint8 {
	c.bus.Write(address, c.Y)
	return 0
}

func (c *CPU) adc(address uint16) uint8 {
	value := c.bus.Read(address)
	carry := uint16(0)
	if c.C {
		carry = 1
	}
	result := uint16(c.A) + uint16(value) + carry
	c.V = (c.A^uint8(result))&0x80 != 0 && (c.A^value)&0x80 == 0
	c.C = result > 0xFF
	c.A = uint8(result)
	c.setZN(c.A)
	return 0
}

func (c *CPU) sbc(address uint16) uint8 {
	value := c.bus.Read(address) ^ 0xFF
	carry := uint16(0)
	if c.C {
		carry = 1
	}
	result := uint16(c.A) + uint16(value) + carry
	c.V = (c.A^uint8(result))&0x80 != 0 && (c.A^value)&0x80 == 0
	c.C = result > 0xFF
	c.A = uint8(result)
	c.setZN(c.A)
	return 0
}

func (c *CPU) and(address uint16) uint8 {
	c.A &= c.bus.Read(address)
	c.setZN(c.A)
	return 0
}

func (c *CPU) ora(address uint16) uint8 {
	c.A |= c.bus.Read(address)
	c.setZN(c.A)
	return 0
}

func (c *CPU) eor(address uint16) uint8 {
	c.A ^= c.bus.Read(address)
	c.setZN(c.A)
	return 0
}

func (c *CPU) asl(address uint16) uint8 {
	v := c.bus.Read(address)
	c.C = v&0x80 != 0
	v <<= 1
	c.bus.Write(address, v)
	c.setZN(v)
	return 0
}

func (c *CPU) lsr(address uint16) uint8 {
	v := c.bus.Read(address)
	c.C = v&0x01 != 0
	v >>= 1
	c.bus.Write(address, v)
	c.setZN(v)
	return 0
}

func (c *CPU) rol(address uint16) uint8 {
	v := c.bus.Read(address)
	old := c.C
	c.C = v&0x80 != 0
	v <<= 1
	if old {
		v |= 0x01
	}
	c.bus.Write(address, v)
	c.setZN(v)
	return 0
}

func (c *CPU) ror(address uint16) uint8 {
	v := c.bus.Read(address)
	old := c.C
	c.C = v&0x01 != 0
	v >>= 1
	if old {
		v |= 0x80
	}
	c.bus.Write(address, v)
	c.setZN(v)
	return 0
}

func (c *CPU) cmp(address uint16) uint8 {
	v := c.bus.Read(address)
	c.C = c.A >= v
	c.setZN(c.A - v)
	return 0
}

func (c *CPU) cpx(address uint16) uint8 {
	v := c.bus.Read(address)
	c.C = c.X >= v
	c.setZN(c.X - v)
	return 0
}

func (c *CPU) cpy(address uint16) uint8 {
	v := c.bus.Read(address)
	c.C = c.Y >= v
	c.setZN(c.Y - v)
	return 0
}

func (c *CPU) inc(address uint16) uint8 {
	v := c.bus.Read(address) + 1
	c.bus.Write(address, v)
	c.setZN(v)
	return 0
}

func (c *CPU) dec(address uint16) uint8 {
	v := c.bus.Read(address) - 1
	c.bus.Write(address, v)
	c.setZN(v)
	return 0
}

func (c *CPU) bit(address uint16) uint8 {
	v := c.bus.Read(address)
	c.N = v&nFlagMask != 0
	c.V = v&vFlagMask != 0
	c.Z = c.A&v == 0
	return 0
}

// brk implements the BRK/software-interrupt sequence: it pushes PC+2
// (one past BRK's own padding byte), then P with B and U set.
func (c *CPU) brk() uint8 {
	c.PC++
	c.pushWord(c.PC)
	c.push(c.StatusByte(true))
	c.I = true
	low := uint16(c.bus.Read(irqVector))
	high := uint16(c.bus.Read(irqVector + 1))
	c.PC = (high << 8) | low
	return 0
}
