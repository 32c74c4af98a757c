package console

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"nescore/internal/cartridge"
)

func buildNROM(t *testing.T, resetLow, resetHigh uint8, program ...uint8) *cartridge.Cartridge {
	t.Helper()
	header := make([]byte, 16)
	copy(header, []byte("NES\x1A"))
	header[4] = 2 // 32 KiB PRG
	header[5] = 1 // 8 KiB CHR

	prg := make([]byte, 0x8000)
	copy(prg[0x7FFC:], []byte{resetLow, resetHigh}) // reset vector at $FFFC ($7FFC + $8000 base)
	copy(prg, program)

	var buf bytes.Buffer
	buf.Write(header)
	buf.Write(prg)
	buf.Write(make([]byte, 0x2000))

	cart, err := cartridge.LoadFromReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	return cart
}

func TestConsoleRunsSimpleProgram(t *testing.T) {
	cart := buildNROM(t, 0x00, 0x80, 0xA9, 0x42, 0x8D, 0x00, 0x00, 0x00) // LDA #$42; STA $0000; BRK
	c := New(cart)

	_, err := c.Step() // LDA
	require.NoError(t, err)
	_, err = c.Step() // STA
	require.NoError(t, err)

	require.Equal(t, uint8(0x42), c.Read(0x0000))
}

func TestConsoleRAMIsMirrored(t *testing.T) {
	cart := buildNROM(t, 0x00, 0x80, 0x00)
	c := New(cart)

	c.Write(0x0000, 0x37)
	require.Equal(t, uint8(0x37), c.Read(0x0800))
	require.Equal(t, uint8(0x37), c.Read(0x1800))
}

func TestConsoleOAMDMAStallsCycles(t *testing.T) {
	cart := buildNROM(t, 0x00, 0x80, 0x00)
	c := New(cart)

	c.Write(0x4014, 0x02)
	require.True(t, c.dmaStallRemaining == 513 || c.dmaStallRemaining == 514)

	remaining := c.dmaStallRemaining
	for remaining > 0 {
		n, err := c.Step()
		require.NoError(t, err)
		require.Equal(t, uint64(1), n)
		remaining--
	}
	require.Equal(t, uint64(0), c.dmaStallRemaining)
}

func TestConsoleUnknownOpcodeSurfacesError(t *testing.T) {
	cart := buildNROM(t, 0x00, 0x80, 0x02) // $02 is not an official opcode
	c := New(cart)

	_, err := c.Step()
	require.Error(t, err)
}

func TestConsoleDMCFetchServicedFromCartridgePRG(t *testing.T) {
	cart := buildNROM(t, 0x00, 0x80, 0x00)
	// The sample byte is whatever PRG holds at $C000 (zero in this image).
	c := New(cart)

	c.APU.WriteRegister(0x4010, 0x00) // rate index 0, no loop, no IRQ
	c.APU.WriteRegister(0x4012, 0x00) // sample address $C000
	c.APU.WriteRegister(0x4013, 0x00) // sample length 1 byte
	c.APU.WriteRegister(0x4015, 0x10) // enable DMC

	for i := 0; i < 500; i++ {
		_, err := c.Step()
		require.NoError(t, err)
	}
	// The one-byte sample has been fetched over the bus, so the DMC's
	// bytes-remaining bit in $4015 is clear.
	require.Zero(t, c.Read(0x4015)&0x10)
}

func TestConsoleDMCFetchStallsCPU(t *testing.T) {
	cart := buildNROM(t, 0x00, 0x80, 0x00)
	c := New(cart)

	c.APU.WriteRegister(0x4010, 0x00) // rate index 0 (slowest), no loop, no IRQ
	c.APU.WriteRegister(0x4012, 0x00) // sample address $C000
	c.APU.WriteRegister(0x4013, 0x00) // sample length 1 byte
	c.APU.WriteRegister(0x4015, 0x10) // enable DMC

	for i := 0; i < 20; i++ {
		c.Step()
		if c.dmaStallRemaining > 0 {
			return
		}
	}
	t.Fatal("expected a DMC fetch to schedule a CPU stall")
}

func TestConsoleDMCFetchDuringOAMDMAIsCappedAt514(t *testing.T) {
	cart := buildNROM(t, 0x00, 0x80, 0x00)
	c := New(cart)

	c.APU.WriteRegister(0x4010, 0x00)
	c.APU.WriteRegister(0x4012, 0x00)
	c.APU.WriteRegister(0x4013, 0x00)
	c.APU.WriteRegister(0x4015, 0x10)

	c.Write(0x4014, 0x02) // start an OAM DMA stall concurrently
	c.stallForDMCFetch()
	require.LessOrEqual(t, c.dmaStallRemaining, uint64(514))
}
