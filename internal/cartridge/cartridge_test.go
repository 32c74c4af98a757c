package cartridge

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"nescore/internal/mapper"
)

func buildINES(t *testing.T, mapperID uint8, prgBanks, chrBanks uint8, flags6Extra uint8) []byte {
	t.Helper()
	header := make([]byte, 16)
	copy(header, []byte("NES\x1A"))
	header[4] = prgBanks
	header[5] = chrBanks
	header[6] = (mapperID << 4) | flags6Extra
	header[7] = mapperID & 0xF0

	var buf bytes.Buffer
	buf.Write(header)
	buf.Write(make([]byte, int(prgBanks)*16384))
	if chrBanks > 0 {
		buf.Write(make([]byte, int(chrBanks)*8192))
	}
	return buf.Bytes()
}

func TestLoadFromReaderRejectsBadMagic(t *testing.T) {
	data := buildINES(t, 0, 1, 1, 0)
	data[0] = 'X'
	_, err := LoadFromReader(bytes.NewReader(data))
	require.ErrorIs(t, err, errInvalidMagic)
}

func TestLoadFromReaderRejectsZeroPRG(t *testing.T) {
	data := buildINES(t, 0, 0, 1, 0)
	_, err := LoadFromReader(bytes.NewReader(data))
	require.ErrorIs(t, err, errZeroPRG)
}

func TestLoadFromReaderNROM(t *testing.T) {
	data := buildINES(t, 0, 2, 1, 0)
	cart, err := LoadFromReader(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, uint8(0), cart.MapperID())
	require.False(t, cart.HasCHRRAM())
	require.Equal(t, mapper.Horizontal, cart.Mirroring())
}

func TestLoadFromReaderVerticalMirroring(t *testing.T) {
	data := buildINES(t, 0, 1, 1, 0x01)
	cart, err := LoadFromReader(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, mapper.Vertical, cart.Mirroring())
}

func TestLoadFromReaderCHRRAMDetectedBySize(t *testing.T) {
	// CHR size 0 in the header means CHR-RAM, even though the image
	// bytes are indistinguishable from an all-zero CHR ROM.
	data := buildINES(t, 0, 1, 0, 0)
	cart, err := LoadFromReader(bytes.NewReader(data))
	require.NoError(t, err)
	require.True(t, cart.HasCHRRAM())

	cart.WriteCHR(0x0000, 0x42)
	require.Equal(t, uint8(0x42), cart.ReadCHR(0x0000))
}

func TestLoadFromReaderUnsupportedMapperPropagates(t *testing.T) {
	data := buildINES(t, 200, 1, 1, 0)
	_, err := LoadFromReader(bytes.NewReader(data))
	require.Error(t, err)
	var unsupported *mapper.UnsupportedMapperError
	require.True(t, errors.As(err, &unsupported))
	require.Equal(t, uint8(200), unsupported.ID)
}

func TestLoadFromReaderTrainerIsSkipped(t *testing.T) {
	header := make([]byte, 16)
	copy(header, []byte("NES\x1A"))
	header[4] = 1
	header[5] = 1
	header[6] = 0x04 // trainer present

	var buf bytes.Buffer
	buf.Write(header)
	buf.Write(make([]byte, 512)) // trainer
	prg := make([]byte, 16384)
	prg[0] = 0x7A
	buf.Write(prg)
	buf.Write(make([]byte, 8192))

	cart, err := LoadFromReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, uint8(0x7A), cart.ReadPRG(0x8000))
}

func TestCartridgeExposesMMC3IRQSource(t *testing.T) {
	data := buildINES(t, 4, 4, 1, 0)
	cart, err := LoadFromReader(bytes.NewReader(data))
	require.NoError(t, err)
	require.NotNil(t, cart.IRQSource())
	require.NotNil(t, cart.ScanlineNotifier())
}

func TestCartridgeNROMHasNoIRQSource(t *testing.T) {
	data := buildINES(t, 0, 1, 1, 0)
	cart, err := LoadFromReader(bytes.NewReader(data))
	require.NoError(t, err)
	require.Nil(t, cart.IRQSource())
}
