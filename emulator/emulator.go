// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"errors"
	"io"
	"iter"
	"log"
	"maps"
	"strings"

	"github.com/ezrec/regvm/asm"
	"github.com/ezrec/regvm/cpu"
	"github.com/ezrec/regvm/internal"
)

const (
	STEP_LIMIT = 1 << 20 // Default step budget of a bounded run.
)

var _emulator_defines = map[string]int64{
	"STEP_LIMIT": STEP_LIMIT,
}

// Line is a listing entry: a source line and the program bytes it produced.
type Line struct {
	LineNo int    // Line number, counted over every assembled unit.
	Offset uint32 // Program offset of the first byte.
	Size   int    // Number of program bytes.
	Text   string // Source text, trimmed.
}

// Emulator state. CPU + assembler + listing.
type Emulator struct {
	Verbose       bool // If set, enables verbose logging.
	*cpu.Cpu           // Reference to the CPU simulation.
	asm.Assembler      // Assembler appending to the resident program.

	Listing []Line // Listing of every assembled line.

	lines int // Lines assembled so far.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu: cpu.NewCpu(),
	}

	emu.Assembler.Keep = true
	for name, value := range emu.Defines() {
		emu.Assembler.Predefine(name, value)
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, int64] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Assemble assembles text at the end of the resident program and loads it.
// Returns the number of bytes loaded.
func (emu *Emulator) Assemble(text string) (n int, err error) {
	emu.Assembler.Verbose = emu.Verbose
	emu.Assembler.Origin = uint32(len(emu.Cpu.Program))

	code, err := emu.Assembler.Parse(strings.NewReader(text))
	if err != nil {
		var syntax *asm.ErrSyntax
		if errors.As(err, &syntax) && syntax.LineNo > 0 {
			syntax.LineNo += emu.lines
		}
		return
	}

	text = strings.TrimSuffix(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var lines []string
	if len(text) > 0 {
		lines = strings.Split(text, "\n")
	}
	listing := make([]Line, len(lines))
	for n, line := range lines {
		listing[n] = Line{
			LineNo: emu.lines + n + 1,
			Offset: emu.Assembler.Origin + uint32(len(code)),
			Text:   strings.TrimSpace(line),
		}
	}
	for _, stmt := range emu.Assembler.Statements {
		entry := &listing[stmt.Pos.Line-1]
		if entry.Size == 0 {
			entry.Offset = stmt.Offset
		}
		entry.Size += stmt.Size()
	}
	for _, entry := range listing {
		if len(entry.Text) > 0 {
			emu.Listing = append(emu.Listing, entry)
		}
	}
	emu.lines += len(lines)

	emu.Cpu.Load(code)
	n = len(code)

	return
}

// Load assembles an entire source file at the end of the resident program.
func (emu *Emulator) Load(input io.Reader) (err error) {
	text, err := io.ReadAll(input)
	if err != nil {
		return
	}

	_, err = emu.Assemble(string(text))
	return
}

// Reset the machine state. The resident program and listing are kept.
func (emu *Emulator) Reset() {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset()
}

// LineNo returns the current line number for the executing instruction.
func (emu *Emulator) LineNo() int {
	pc := emu.Cpu.Pc
	for _, line := range emu.Listing {
		if pc >= line.Offset && pc < line.Offset+uint32(line.Size) {
			return line.LineNo
		}
	}

	return 0
}

// step executes one instruction, locating runtime errors in the listing.
func (emu *Emulator) step() (state cpu.State, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	lineno := emu.LineNo()
	offset := emu.Cpu.Pc

	state, err = emu.Cpu.Step()
	if err != nil {
		err = &ErrRuntime{LineNo: lineno, Offset: offset, Err: err}
	}

	return
}

// Tick performs a single step of the emulator.
// done is set when the machine can make no further progress:
// it halted, faulted, or ran out of loaded program.
func (emu *Emulator) Tick() (done bool, err error) {
	state, err := emu.step()
	done = state != cpu.RUNNING

	return
}

// Run steps the emulator until it stops, or limit steps have executed.
// A limit of zero or less is unbounded.
func (emu *Emulator) Run(limit int) (state cpu.State, err error) {
	for steps := 0; ; steps++ {
		if limit > 0 && steps >= limit {
			state = emu.Cpu.State()
			err = ErrStepLimit
			if emu.Verbose {
				log.Printf("emulator: %v after %d steps", err, steps)
			}
			return
		}

		state, err = emu.step()
		if state != cpu.RUNNING {
			return
		}
	}
}
