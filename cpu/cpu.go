package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"strings"
)

const (
	REGISTER_COUNT = 32 // Size of the register file.
	DATA_REGISTER  = 31 // Register written by data directives.
)

var _cpu_defines = map[string]int64{
	"REGISTER_COUNT": REGISTER_COUNT,
	"DATA_REGISTER":  DATA_REGISTER,
	"WORD_SIZE":      WORD_SIZE,
	"HEAP_LIMIT":     HEAP_LIMIT,
}

// State is the execution state reported by Step.
type State int

// HALTED and FAULTED are terminal. IDLE is reported while the
// instruction at pc is not (fully) loaded yet.
//
//go:generate go tool stringer -linecomment -type=State
const (
	RUNNING = State(0) // running
	HALTED  = State(1) // halted
	FAULTED = State(2) // faulted
	IDLE    = State(3) // idle
)

// Terminal returns true for states that no further Step can leave.
func (state State) Terminal() bool {
	return state == HALTED || state == FAULTED
}

// Cpu is the register machine: register file, program counter,
// comparison flag, remainder, heap and the resident program.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Register  [REGISTER_COUNT]int32 // Register bank.
	Pc        uint32                // Byte offset of the next instruction.
	Equal     bool                  // Result of the last comparison.
	Remainder uint32                // Remainder of the last DIV.
	Heap      Heap                  // Data memory.
	Program   Program               // Resident program.

	Ticks int // Executed instruction counter.

	state State
	fault error
}

// NewCpu creates a new CPU with an empty program.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{}

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, int64] {
	return maps.All(_cpu_defines)
}

// Load appends code to the resident program.
func (cpu *Cpu) Load(code []byte) {
	cpu.Program = append(cpu.Program, code...)
}

// AddByte appends a single byte to the resident program.
func (cpu *Cpu) AddByte(b byte) {
	cpu.Program = append(cpu.Program, b)
}

// State returns the current execution state.
func (cpu *Cpu) State() State {
	return cpu.state
}

// Fault returns the error that faulted the CPU, if any.
func (cpu *Cpu) Fault() error {
	return cpu.fault
}

// Reset the CPU state.
// - Clears the registers, flags and heap.
// - Moves the program counter to zero.
// - Leaves the resident program in place.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Register[:])
	cpu.Pc = 0
	cpu.Equal = false
	cpu.Remainder = 0
	cpu.Heap.Reset()
	cpu.Ticks = 0
	cpu.state = RUNNING
	cpu.fault = nil
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text += fmt.Sprintf("%5s: %04X_%04X\n", "pc", cpu.Pc>>16, cpu.Pc&0xffff)
	text += fmt.Sprintf("%5s: %v\n", "state", cpu.state)
	text += fmt.Sprintf("%5s: %v\n", "equal", cpu.Equal)
	text += fmt.Sprintf("%5s: %04X_%04X\n", "rem", cpu.Remainder>>16, cpu.Remainder&0xffff)
	text += fmt.Sprintf("%5s: %d bytes\n", "heap", cpu.Heap.Len())

	var line []string
	for n, val := range cpu.Register {
		line = append(line, fmt.Sprintf("%5s: %11d", fmt.Sprintf("r%d", n), val))
		if len(line) == 4 {
			text += strings.Join(line, " ") + "\n"
			line = line[:0]
		}
	}

	return
}

// Fetch fetches the instruction word at the program counter.
// ok is false when the word is not fully resident yet.
func (cpu *Cpu) Fetch() (word Word, ok bool, err error) {
	if uint64(cpu.Pc) >= uint64(len(cpu.Program)) {
		return
	}

	word[0] = cpu.Program[cpu.Pc]
	if Decode(word[0]) == IGL {
		err = ErrIllegalOpcode(word[0])
		return
	}

	word, ok = cpu.Program.Word(cpu.Pc)
	return
}

// Step decodes and executes exactly one instruction.
//
// Once HALTED or FAULTED, Step returns the same state (and fault) again
// without touching the machine.
func (cpu *Cpu) Step() (state State, err error) {
	if cpu.state.Terminal() {
		return cpu.state, cpu.fault
	}

	word, ok, err := cpu.Fetch()
	if err == nil {
		if !ok {
			state = IDLE
			return
		}
		err = cpu.Execute(word)
	}

	if err != nil {
		err = errors.Join(&ErrInstruction{Offset: cpu.Pc, Word: word}, err)
		cpu.state = FAULTED
		cpu.fault = err
		if cpu.Verbose {
			log.Printf("cpu: fault: %v", err)
		}
	}

	state = cpu.state
	return
}

// Run steps until the CPU halts, faults or runs out of loaded program.
func (cpu *Cpu) Run() (state State, err error) {
	for state, err = cpu.Step(); state == RUNNING; state, err = cpu.Step() {
	}

	return
}

// Execute executes a single instruction word located at the program counter.
// On error nothing in the machine has changed.
func (cpu *Cpu) Execute(word Word) (err error) {
	if cpu.Verbose {
		log.Printf("%04x: %v", cpu.Pc, word)
	}

	next_pc := cpu.Pc + WORD_SIZE
	op := word.Opcode()

	switch op {
	case HLT:
		cpu.state = HALTED
	case LABEL:
		// marker only
	case LOAD:
		var dst int
		dst, err = cpu.regIndex(word, 0)
		if err != nil {
			return
		}
		cpu.Register[dst] = int32(word.Imm16())
	case ADD, SUB, MUL, DIV:
		var a, b int32
		var dst int
		a, err = cpu.regValue(word, 0)
		if err != nil {
			return
		}
		b, err = cpu.regValue(word, 1)
		if err != nil {
			return
		}
		dst, err = cpu.regIndex(word, 2)
		if err != nil {
			return
		}
		var value int32
		switch op {
		case ADD:
			value = a + b
		case SUB:
			value = a - b
		case MUL:
			value = a * b
		case DIV:
			if b == 0 {
				err = ErrDivisionByZero
				return
			}
			value = a / b
			cpu.Remainder = uint32(a % b)
		}
		cpu.Register[dst] = value
	case SQUARE:
		var src int32
		var dst int
		src, err = cpu.regValue(word, 0)
		if err != nil {
			return
		}
		dst, err = cpu.regIndex(word, 1)
		if err != nil {
			return
		}
		cpu.Register[dst] = src * src
	case EQ, NEQ, GT, LT, GTQ, LTQ:
		var a, b int32
		a, err = cpu.regValue(word, 0)
		if err != nil {
			return
		}
		b, err = cpu.regValue(word, 1)
		if err != nil {
			return
		}
		cpu.Equal = compare(op, a, b)
	case JMP, JMPF, JMPEQ:
		var value int32
		value, err = cpu.regValue(word, 0)
		if err != nil {
			return
		}
		if op == JMPEQ && !cpu.Equal {
			break
		}
		target := int64(value)
		if op == JMPF {
			target += int64(next_pc)
		}
		if target < 0 || target >= int64(len(cpu.Program)) {
			err = ErrJumpRange(target)
			return
		}
		next_pc = uint32(target)
	case ALLOC:
		var size int32
		size, err = cpu.regValue(word, 0)
		if err != nil {
			return
		}
		err = cpu.Heap.Alloc(uint32(size))
		if err != nil {
			return
		}
	case SET:
		var offset, value int32
		offset, err = cpu.regValue(word, 0)
		if err != nil {
			return
		}
		value, err = cpu.regValue(word, 1)
		if err != nil {
			return
		}
		err = cpu.Heap.Set(uint32(offset), byte(value))
		if err != nil {
			return
		}
	default:
		err = ErrIllegalOpcode(word[0])
		return
	}

	cpu.Pc = next_pc
	cpu.Ticks += 1

	return
}

// regIndex returns the n'th operand of the word as a register index.
func (cpu *Cpu) regIndex(word Word, n int) (index int, err error) {
	reg := word.Reg(n)
	if int(reg) >= len(cpu.Register) {
		err = ErrRegisterRange(reg)
		return
	}

	index = int(reg)
	return
}

// regValue returns the contents of the register named by the n'th operand.
func (cpu *Cpu) regValue(word Word, n int) (value int32, err error) {
	index, err := cpu.regIndex(word, n)
	if err != nil {
		return
	}

	value = cpu.Register[index]
	return
}

// compare evaluates a comparison opcode on signed operands.
func compare(op Opcode, a, b int32) bool {
	switch op {
	case EQ:
		return a == b
	case NEQ:
		return a != b
	case GT:
		return a > b
	case LT:
		return a < b
	case GTQ:
		return a >= b
	case LTQ:
		return a <= b
	}
	return false
}
