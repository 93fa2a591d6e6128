package asm

import (
	"github.com/ezrec/regvm/cpu"
	"github.com/ezrec/regvm/translate"
)

var f = translate.From

// Positioned is implemented by assembly errors that refer to a source location.
type Positioned interface {
	Position() Position
}

// ErrLex is the first unrecognized position in the source.
type ErrLex struct {
	Pos  Position
	Text string
}

func (err *ErrLex) Error() string {
	return f("%v: unrecognized input '%v'", err.Pos, err.Text)
}

func (err *ErrLex) Position() Position {
	return err.Pos
}

// ErrLabelUnresolved is a label usage with no declaration in the unit.
type ErrLabelUnresolved struct {
	Name string
	Pos  Position
}

func (err *ErrLabelUnresolved) Error() string {
	return f("%v: label %v missing", err.Pos, err.Name)
}

func (err *ErrLabelUnresolved) Position() Position {
	return err.Pos
}

// ErrLabelDuplicate is a second declaration of the same label.
type ErrLabelDuplicate struct {
	Name string
	Pos  Position
}

func (err *ErrLabelDuplicate) Error() string {
	return f("%v: label %v duplicated", err.Pos, err.Name)
}

func (err *ErrLabelDuplicate) Position() Position {
	return err.Pos
}

// ErrLabelDangling is a label declared after the last emitted byte.
type ErrLabelDangling struct {
	Name string
	Pos  Position
}

func (err *ErrLabelDangling) Error() string {
	return f("%v: label %v does not precede any code", err.Pos, err.Name)
}

func (err *ErrLabelDangling) Position() Position {
	return err.Pos
}

// ErrOperandShape is an operand token that does not fit the opcode's operand shape.
type ErrOperandShape struct {
	Opcode  cpu.Opcode
	Operand int    // Operand number, from 1.
	Want    string // Expected operand class.
	Got     string // Offending token, or "end of input".
	Pos     Position
}

func (err *ErrOperandShape) Error() string {
	return f("%v: %v operand %d expects %v, got %v", err.Pos, err.Opcode, err.Operand, err.Want, err.Got)
}

func (err *ErrOperandShape) Position() Position {
	return err.Pos
}

// ErrImmediateRange is an immediate value that does not fit its 16-bit field.
type ErrImmediateRange struct {
	Value int64
	Pos   Position
}

func (err *ErrImmediateRange) Error() string {
	return f("%v: immediate %v out of range 0..65535", err.Pos, err.Value)
}

func (err *ErrImmediateRange) Position() Position {
	return err.Pos
}

// ErrTokenStray is an operand-like token outside of any instruction.
type ErrTokenStray struct {
	Token Token
}

func (err *ErrTokenStray) Error() string {
	return f("%v: unexpected %v '%v'", err.Token.Pos, err.Token.Kind, err.Token)
}

func (err *ErrTokenStray) Position() Position {
	return err.Token.Pos
}

// ErrOpcodeIllegal is an attempt to encode the illegal opcode.
type ErrOpcodeIllegal struct {
	Pos Position
}

func (err *ErrOpcodeIllegal) Error() string {
	return f("%v: opcode igl cannot be encoded", err.Pos)
}

func (err *ErrOpcodeIllegal) Position() Position {
	return err.Pos
}

// ErrExpression is a $(...) expression that did not evaluate to an integer.
type ErrExpression struct {
	Source string
	Pos    Position
	Err    error
}

func (err *ErrExpression) Error() string {
	if err.Err != nil {
		return f("%v: $(%v) is not a valid expression: %v", err.Pos, err.Source, err.Err)
	}
	return f("%v: $(%v) is not a valid expression", err.Pos, err.Source)
}

func (err *ErrExpression) Position() Position {
	return err.Pos
}

func (err *ErrExpression) Unwrap() error {
	return err.Err
}

// ErrSyntax locates an assembly error at its source line.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}
