package cpu

import (
	"errors"

	"github.com/ezrec/regvm/translate"
)

var f = translate.From

var (
	// Execution errors
	ErrDivisionByZero = errors.New(f("division by zero"))
)

// ErrIllegalOpcode is the fault raised for an opcode byte with no table entry.
type ErrIllegalOpcode byte

func (err ErrIllegalOpcode) Error() string {
	return f("illegal opcode 0x%02x", byte(err))
}

func (err ErrIllegalOpcode) Is(target error) (ok bool) {
	_, ok = target.(ErrIllegalOpcode)
	return
}

// ErrRegisterRange is the fault raised for a register operand outside the register file.
type ErrRegisterRange byte

func (err ErrRegisterRange) Error() string {
	return f("register $%d out of range", byte(err))
}

func (err ErrRegisterRange) Is(target error) (ok bool) {
	_, ok = target.(ErrRegisterRange)
	return
}

// ErrJumpRange is the fault raised for a jump target outside the program.
type ErrJumpRange int64

func (err ErrJumpRange) Error() string {
	return f("jump target %d out of range", int64(err))
}

func (err ErrJumpRange) Is(target error) (ok bool) {
	_, ok = target.(ErrJumpRange)
	return
}

// ErrHeapRange is the fault raised for a heap offset or size outside the heap.
type ErrHeapRange uint64

func (err ErrHeapRange) Error() string {
	return f("heap offset %d out of range", uint64(err))
}

func (err ErrHeapRange) Is(target error) (ok bool) {
	_, ok = target.(ErrHeapRange)
	return
}

// ErrInstruction locates a fault at the instruction that raised it.
type ErrInstruction struct {
	Offset uint32
	Word   Word
}

func (err *ErrInstruction) Error() string {
	return f("pc %04x '%v'", err.Offset, err.Word)
}
