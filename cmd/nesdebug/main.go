// Command nesdebug is an interactive TUI inspector for stepping a
// loaded ROM one CPU instruction at a time.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"

	"nescore/internal/cartridge"
	"nescore/internal/console"
	"nescore/internal/cpu"
)

type model struct {
	console *console.Console
	prevPC  uint16
	err     error
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ", "j":
		m.prevPC = m.console.CPU.PC
		if _, err := m.console.Step(); err != nil {
			m.err = err
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) renderPage(start uint16) string {
	s := fmt.Sprintf("%04x | ", start)
	for i := 0; i < 16; i++ {
		addr := start + uint16(i)
		b := m.console.Read(addr)
		if addr == m.console.CPU.PC {
			s += fmt.Sprintf("[%02x] ", b)
		} else {
			s += fmt.Sprintf(" %02x  ", b)
		}
	}
	return s
}

func (m model) status() string {
	c := m.console.CPU
	flags := ""
	for _, f := range []bool{c.N, c.V, c.D, c.I, c.Z, c.C} {
		if f {
			flags += "/ "
		} else {
			flags += "  "
		}
	}
	return fmt.Sprintf(`
PC: %04x (prev %04x)
 A: %02x
 X: %02x
 Y: %02x
SP: %02x
Cycles: %d
N V D I Z C
%s`, c.PC, m.prevPC, c.A, c.X, c.Y, c.SP, m.console.CycleCount(), flags)
}

func (m model) pageTable() string {
	header := "page | "
	for b := 0; b < 16; b++ {
		header += fmt.Sprintf("  %01x  ", b)
	}
	lines := []string{header}
	base := m.console.CPU.PC &^ 0x0F
	for row := -2; row <= 2; row++ {
		lines = append(lines, m.renderPage(base+uint16(row*16)))
	}
	return strings.Join(lines, "\n")
}

// decodedInstruction pairs an opcode's static decode information with
// its operand bytes read from the current PC, for display only: it
// does not consult or affect CPU state.
type decodedInstruction struct {
	*cpu.Instruction
	Operands []uint8
}

func (m model) currentInstruction() decodedInstruction {
	pc := m.console.CPU.PC
	opcode := m.console.Read(pc)
	inst := cpu.Lookup(opcode)
	if inst == nil {
		return decodedInstruction{}
	}
	operands := make([]uint8, 0, inst.Bytes-1)
	for i := uint8(1); i < inst.Bytes; i++ {
		operands = append(operands, m.console.Read(pc+uint16(i)))
	}
	return decodedInstruction{Instruction: inst, Operands: operands}
}

func (m model) View() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, m.pageTable(), m.status()),
		"",
		spew.Sdump(m.currentInstruction()),
		"space/j: step   q: quit",
	)
}

func main() {
	romPath := flag.String("rom", "", "path to an iNES ROM file")
	flag.Parse()

	if *romPath == "" {
		fmt.Fprintln(os.Stderr, "nesdebug: -rom is required")
		os.Exit(1)
	}

	cart, err := cartridge.LoadFromFile(*romPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nesdebug: loading cartridge: %v\n", err)
		os.Exit(1)
	}
	c := console.New(cart)

	m, err := tea.NewProgram(model{console: c}).Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "nesdebug: %v\n", err)
		os.Exit(1)
	}
	if final, ok := m.(model); ok && final.err != nil {
		fmt.Println("halted:", final.err)
	}
}
