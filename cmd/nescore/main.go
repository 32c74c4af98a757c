// Command nescore is a headless runner: it loads an iNES ROM, steps the
// console for a fixed number of cycles, optionally writes the generated
// audio to a WAV file, and prints the final CPU/APU state.
package main

import (
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"nescore/internal/cartridge"
	"nescore/internal/console"
	"nescore/internal/cpu"
	"nescore/internal/mapper"
)

// runnerConfig holds defaults that are tedious to repeat on every
// invocation. sample_rate sets the APU output rate; the -sample-rate
// flag wins over it. buffer_size is parsed but not applied: the APU's
// sample buffer keeps its fixed 4096-sample capacity.
type runnerConfig struct {
	SampleRate int `yaml:"sample_rate"`
	BufferSize int `yaml:"buffer_size"`
}

func loadConfig(path string) (runnerConfig, error) {
	cfg := runnerConfig{SampleRate: 44100, BufferSize: 4096}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func main() {
	var (
		romPath    = flag.String("rom", "", "path to an iNES ROM file")
		configPath = flag.String("config", "", "path to an optional YAML config file")
		cycles     = flag.Uint64("cycles", 1789773, "number of CPU cycles to run")
		sampleRate = flag.Int("sample-rate", 0, "APU output sample rate in Hz (0 = use config default)")
		wavOut     = flag.String("wav-out", "", "path to write generated audio as a WAV file (optional)")
		debug      = flag.Bool("debug", false, "enable debug-level logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *romPath == "" {
		logger.Error("missing required flag", "flag", "-rom")
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("loading config", "error", err)
		os.Exit(1)
	}
	if *sampleRate != 0 {
		cfg.SampleRate = *sampleRate
	}

	cart, err := cartridge.LoadFromFile(*romPath)
	if err != nil {
		var unsupported *mapper.UnsupportedMapperError
		if errors.As(err, &unsupported) {
			logger.Error("unsupported mapper", "mapper_id", unsupported.ID)
		} else {
			logger.Error("loading cartridge", "rom", *romPath, "error", err)
		}
		os.Exit(1)
	}
	logger.Info("cartridge loaded",
		"mapper_id", cart.MapperID(),
		"has_battery", cart.HasBattery(),
		"has_chr_ram", cart.HasCHRRAM(),
	)

	c := console.New(cart)
	c.APU.SetSampleRate(cfg.SampleRate)

	var decodeErr error
	ran, err := c.RunCycles(*cycles)
	if err != nil {
		var de *cpu.DecodeError
		if errors.As(err, &de) {
			logger.Error("decode error", "pc", fmt.Sprintf("%#04x", de.PC), "opcode", fmt.Sprintf("%#02x", de.Opcode))
		} else {
			logger.Error("run error", "error", err)
		}
		decodeErr = err
	}
	logger.Info("run complete", "cycles_requested", *cycles, "cycles_run", ran)

	printState(c)

	if *wavOut != "" {
		samples := c.APU.Samples()
		if err := writeWAV(*wavOut, cfg.SampleRate, samples); err != nil {
			logger.Error("writing wav", "path", *wavOut, "error", err)
			os.Exit(1)
		}
		logger.Info("audio written", "path", *wavOut, "samples", len(samples))
	}

	if decodeErr != nil {
		os.Exit(1)
	}
}

func printState(c *console.Console) {
	cpuState := c.CPU
	fmt.Printf("CPU: PC=%#04x A=%#02x X=%#02x Y=%#02x SP=%#02x cycles=%d\n",
		cpuState.PC, cpuState.A, cpuState.X, cpuState.Y, cpuState.SP, c.CycleCount())
	fmt.Printf("APU: frame_irq=%t dmc_irq=%t sample_rate=%d\n",
		c.APU.FrameIRQ(), c.APU.DMCIRQ(), c.APU.SampleRate())
}

// writeWAV encodes mono float32 PCM samples in [-1, 1] to a 16-bit PCM
// WAV file. No library in the retrieval pack offers a WAV encoder
// (see DESIGN.md), and the format itself is a handful of fixed-size
// RIFF chunk headers, so it's hand-rolled here rather than pulled in
// from an unrelated dependency.
func writeWAV(path string, sampleRate int, samples []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	const bitsPerSample = 16
	const numChannels = 1
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8
	dataSize := len(samples) * 2

	write := func(v any) error { return binary.Write(f, binary.LittleEndian, v) }

	if _, err := f.WriteString("RIFF"); err != nil {
		return err
	}
	if err := write(uint32(36 + dataSize)); err != nil {
		return err
	}
	if _, err := f.WriteString("WAVE"); err != nil {
		return err
	}
	if _, err := f.WriteString("fmt "); err != nil {
		return err
	}
	if err := write(uint32(16)); err != nil {
		return err
	}
	if err := write(uint16(1)); err != nil { // PCM
		return err
	}
	if err := write(uint16(numChannels)); err != nil {
		return err
	}
	if err := write(uint32(sampleRate)); err != nil {
		return err
	}
	if err := write(uint32(byteRate)); err != nil {
		return err
	}
	if err := write(uint16(blockAlign)); err != nil {
		return err
	}
	if err := write(uint16(bitsPerSample)); err != nil {
		return err
	}
	if _, err := f.WriteString("data"); err != nil {
		return err
	}
	if err := write(uint32(dataSize)); err != nil {
		return err
	}
	for _, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		if err := write(int16(s * 32767)); err != nil {
			return err
		}
	}
	return nil
}
