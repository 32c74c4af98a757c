package apu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameSequencerIRQOncePerCycle(t *testing.T) {
	a := New()
	a.WriteRegister(0x4017, 0x00) // 4-step, IRQ enabled

	// Writing $4017 schedules a delayed reset (3 or 4 cycles); step
	// past that before measuring the 14916-cycle period.
	for i := 0; i < 10; i++ {
		a.Step()
	}
	require.False(t, a.FrameIRQ())

	fired := 0
	for i := 0; i < 14920; i++ {
		a.Step()
		if a.FrameIRQ() {
			fired++
			a.ReadStatus() // clears it, matching how a real poll loop would observe it
		}
	}
	require.Equal(t, 1, fired)
}

func TestFrameCounterFiveStepNoIRQ(t *testing.T) {
	a := New()
	a.WriteRegister(0x4017, 0x80) // 5-step mode
	for i := 0; i < 20000; i++ {
		a.Step()
		require.False(t, a.FrameIRQ())
	}
}

func TestPulseTimerHighLoadsLengthCounter(t *testing.T) {
	a := New()
	a.WriteRegister(0x4015, 0x01) // enable pulse 1
	a.WriteRegister(0x4000, 0xBF) // constant volume, volume 15, halt
	a.WriteRegister(0x4002, 0xFD)
	a.WriteRegister(0x4003, 0x00) // loads length counter

	require.Greater(t, a.pulse1.lengthCounter, uint8(0))
}

func TestPulseDisableZeroesLengthCounter(t *testing.T) {
	a := New()
	a.WriteRegister(0x4015, 0x01)
	a.WriteRegister(0x4003, 0x08)
	require.Greater(t, a.pulse1.lengthCounter, uint8(0))

	a.WriteRegister(0x4015, 0x00)
	require.Equal(t, uint8(0), a.pulse1.lengthCounter)
}

func TestNoiseShiftRegisterNeverZero(t *testing.T) {
	a := New()
	a.WriteRegister(0x4015, 0x08)
	a.WriteRegister(0x400E, 0x00)
	for i := 0; i < 100000; i++ {
		a.Step()
		require.NotEqual(t, uint16(0), a.noise.shiftRegister)
	}
}

func TestDMCFetchHandshake(t *testing.T) {
	a := New()
	a.WriteRegister(0x4010, 0x0F) // rate index 15 (fastest), no loop, IRQ disabled
	a.WriteRegister(0x4012, 0x00) // sample address $C000
	a.WriteRegister(0x4013, 0x01) // length = 17 bytes
	a.WriteRegister(0x4015, 0x10) // enable DMC
	a.Step()                      // the DMC tick raises the fetch request

	addr, ok := a.RequestFetch()
	require.True(t, ok)
	require.Equal(t, uint16(0xC000), addr)

	a.ProvideSample(0xAA)
	_, ok = a.RequestFetch()
	require.False(t, ok)
}

func TestDMCIRQFiresOnSampleExhaustion(t *testing.T) {
	a := New()
	a.WriteRegister(0x4010, 0x80) // rate index 0 (slowest), IRQ enabled
	a.WriteRegister(0x4012, 0x00)
	a.WriteRegister(0x4013, 0x00) // length = 1 byte
	a.WriteRegister(0x4015, 0x10)

	for i := 0; i < 10; i++ {
		if addr, ok := a.RequestFetch(); ok {
			_ = addr
			a.ProvideSample(0x00)
		}
		a.Step()
	}
	require.True(t, a.DMCIRQ())
}

func TestReadStatusClearsBothIRQFlags(t *testing.T) {
	a := New()
	a.frameIRQFlag = true
	a.dmc.irqFlag = true

	status := a.ReadStatus()
	require.NotEqual(t, uint8(0), status&0x40)
	require.NotEqual(t, uint8(0), status&0x80)
	require.False(t, a.FrameIRQ())
	require.False(t, a.DMCIRQ())
}

func TestMixerOutputIsClampedToUnitRange(t *testing.T) {
	a := New()
	sample := a.mixChannels(15, 15, 15, 15, 127)
	require.LessOrEqual(t, sample, float32(1.0))
	require.GreaterOrEqual(t, sample, float32(-1.0))
}

func TestSampleBufferDropsOldestWhenFull(t *testing.T) {
	buf := newSampleBuffer(4)
	for i := 0; i < 10; i++ {
		buf.push(float32(i))
	}
	drained := buf.drain()
	require.Len(t, drained, 4)
	require.Equal(t, float32(6), drained[0])
	require.Equal(t, float32(9), drained[3])
}
