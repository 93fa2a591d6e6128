package shell

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/prefixtree/v2"

	"github.com/ezrec/regvm/asm"
	"github.com/ezrec/regvm/emulator"
)

// command is a dot command of the shell.
type command struct {
	name    string
	args    string
	help    string
	handler func(sh *Shell, args []string) error
}

const (
	LINE_LIMIT = 1 << 20 // Longest accepted input line, in bytes.
)

var (
	commands    []command
	commandTree = prefixtree.New[*command]()
)

func init() {
	commands = []command{
		{".bytes", "HEX...", "Append raw program bytes", (*Shell).cmdBytes},
		{".heap", "", "Dump the heap", (*Shell).cmdHeap},
		{".help", "", "List the commands", (*Shell).cmdHelp},
		{".history", "", "List the lines entered so far", (*Shell).cmdHistory},
		{".pc", "", "Show the program counter", (*Shell).cmdPc},
		{".program", "", "Disassemble the resident program", (*Shell).cmdProgram},
		{".quit", "", "Leave the shell", (*Shell).cmdQuit},
		{".registers", "", "Show the register file", (*Shell).cmdRegisters},
		{".reset", "", "Reset the machine, keeping the program", (*Shell).cmdReset},
		{".run", "[STEPS]", "Run until the machine stops", (*Shell).cmdRun},
		{".symbols", "", "List the labels", (*Shell).cmdSymbols},
	}

	for n := range commands {
		commandTree.Add(commands[n].name, &commands[n])
	}
}

// Shell is a line driven front end to an emulator.
// Lines starting with a dot command are dispatched by unambiguous prefix,
// or by full name when arguments follow. Everything else is assembled
// into the program and executed for one step.
type Shell struct {
	Emulator *emulator.Emulator
	History  []string

	input       *bufio.Scanner
	output      *bufio.Writer
	interactive bool
	done        bool
}

// NewShell creates a shell driving emu.
func NewShell(emu *emulator.Emulator) *Shell {
	return &Shell{Emulator: emu}
}

// Run accepts lines from r and writes the results to w until the input
// ends or .quit is entered. If interactive, a prompt is displayed while
// the shell waits for the next line.
func (sh *Shell) Run(r io.Reader, w io.Writer, interactive bool) (err error) {
	sh.input = bufio.NewScanner(r)
	sh.input.Buffer(nil, LINE_LIMIT)
	sh.output = bufio.NewWriter(w)
	sh.interactive = interactive
	sh.done = false

	defer sh.output.Flush()

	for !sh.done {
		sh.prompt()

		var line string
		line, err = sh.getLine()
		if err == io.EOF {
			err = nil
			break
		}
		if err != nil {
			return
		}

		sh.Exec(line)
	}

	return
}

// Exec executes a single line. Errors are reported to the output.
func (sh *Shell) Exec(line string) {
	line = strings.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	sh.History = append(sh.History, line)

	if strings.HasPrefix(line, ".") {
		words := strings.Fields(line)
		c, err := commandTree.FindValue(words[0])
		if err == nil && len(words) > 1 && c.name != words[0] {
			// An abbreviation with arguments is a data directive.
			err = prefixtree.ErrPrefixNotFound
		}
		switch {
		case err == nil:
			err = c.handler(sh, words[1:])
			if err != nil {
				sh.printf("error: %v\n", err)
			}
			return
		case errors.Is(err, prefixtree.ErrPrefixAmbiguous) && len(words) == 1:
			sh.println("Command is ambiguous.")
			return
		}
		// Not a command; assemble it as a directive.
	}

	sh.step(line)
}

// step assembles a line and executes one instruction.
// Strings are not executed: if the machine was waiting at the start of
// the line, it is moved past any leading string blobs first.
func (sh *Shell) step(line string) {
	emu := sh.Emulator

	origin := uint32(len(emu.Cpu.Program))
	n, err := emu.Assemble(line)
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	if n == 0 {
		return
	}

	entry, ok := entryPoint(emu.Assembler.Statements)
	if emu.Cpu.Pc == origin && !emu.Cpu.State().Terminal() {
		if ok {
			emu.Cpu.Pc = entry
		} else {
			emu.Cpu.Pc = origin + uint32(n)
		}
	}
	if !ok {
		return
	}

	_, err = emu.Tick()
	if err != nil {
		sh.printf("error: %v\n", err)
	}
	if state := emu.Cpu.State(); state.Terminal() {
		sh.printf("%v\n", state)
	}
}

// entryPoint returns the offset of the first instruction word.
func entryPoint(statements []asm.Statement) (offset uint32, ok bool) {
	for _, stmt := range statements {
		switch stmt.Kind {
		case asm.STATEMENT_INSTRUCTION, asm.STATEMENT_DATA:
			return stmt.Offset, true
		}
	}
	return
}

func (sh *Shell) printf(format string, args ...any) {
	if sh.output == nil {
		return
	}
	fmt.Fprintf(sh.output, format, args...)
	sh.output.Flush()
}

func (sh *Shell) println(args ...any) {
	if sh.output == nil {
		return
	}
	fmt.Fprintln(sh.output, args...)
	sh.output.Flush()
}

func (sh *Shell) getLine() (string, error) {
	if sh.input.Scan() {
		return sh.input.Text(), nil
	}
	if sh.input.Err() != nil {
		return "", sh.input.Err()
	}
	return "", io.EOF
}

func (sh *Shell) prompt() {
	if sh.interactive {
		sh.printf("regvm> ")
	}
}

func (sh *Shell) cmdBytes(args []string) (err error) {
	code := make([]byte, 0, len(args))
	for _, arg := range args {
		var value uint64
		value, err = strconv.ParseUint(strings.TrimPrefix(arg, "0x"), 16, 8)
		if err != nil {
			return
		}
		code = append(code, byte(value))
	}

	for _, b := range code {
		sh.Emulator.Cpu.AddByte(b)
	}
	return
}

func (sh *Shell) cmdHeap(args []string) (err error) {
	sh.printf("%s", hex.Dump(sh.Emulator.Cpu.Heap.Data))
	return
}

func (sh *Shell) cmdHelp(args []string) (err error) {
	for _, c := range commands {
		sh.printf("%-24s %s\n", strings.TrimSpace(c.name+" "+c.args), c.help)
	}
	sh.printf("%-24s %s\n", ".NAME VALUE", "Data directive, unless NAME is a full command name")
	sh.printf("%-24s %s\n", "...", "Any other line is assembled and executed")
	return
}

func (sh *Shell) cmdHistory(args []string) (err error) {
	for n, line := range sh.History {
		sh.printf("%4d  %s\n", n+1, line)
	}
	return
}

func (sh *Shell) cmdPc(args []string) (err error) {
	emu := sh.Emulator
	sh.printf("pc: %04x (line %v, %v)\n", emu.Cpu.Pc, emu.LineNo(), emu.Cpu.State())
	return
}

func (sh *Shell) cmdProgram(args []string) (err error) {
	for offset, word := range sh.Emulator.Cpu.Program.Words() {
		sh.printf("%04x: %v\n", offset, word)
	}
	return
}

func (sh *Shell) cmdQuit(args []string) (err error) {
	sh.done = true
	return
}

func (sh *Shell) cmdRegisters(args []string) (err error) {
	sh.printf("%v", sh.Emulator.Cpu)
	return
}

func (sh *Shell) cmdReset(args []string) (err error) {
	sh.Emulator.Reset()
	return
}

func (sh *Shell) cmdRun(args []string) (err error) {
	limit := emulator.STEP_LIMIT
	if len(args) > 0 {
		limit, err = strconv.Atoi(args[0])
		if err != nil {
			return
		}
	}

	state, err := sh.Emulator.Run(limit)
	if err != nil {
		return
	}

	sh.printf("%v\n", state)
	return
}

func (sh *Shell) cmdSymbols(args []string) (err error) {
	symbols := sh.Emulator.Assembler.Symbols
	if symbols == nil {
		return
	}

	for name, sym := range symbols.All() {
		sh.printf("%04x: %-16s %v\n", sym.Offset, name, sym.Kind)
	}
	return
}
