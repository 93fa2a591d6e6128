package cpu

import (
	"fmt"
	"strings"
)

// WORD_SIZE is the width in bytes of every instruction word.
const WORD_SIZE = 4

// Opcode is the one byte operation code at the start of an instruction word.
type Opcode uint8

const (
	HLT    = Opcode(0)
	LOAD   = Opcode(1)
	ADD    = Opcode(2)
	SUB    = Opcode(3)
	MUL    = Opcode(4)
	DIV    = Opcode(5)
	JMP    = Opcode(6)
	JMPF   = Opcode(7)
	EQ     = Opcode(8)
	NEQ    = Opcode(9)
	GT     = Opcode(10)
	LT     = Opcode(11)
	GTQ    = Opcode(12)
	LTQ    = Opcode(13)
	JMPEQ  = Opcode(14)
	LABEL  = Opcode(15)
	SQUARE = Opcode(16)
	ALLOC  = Opcode(17)
	SET    = Opcode(18)

	OPCODE_COUNT = 19 // Number of encodable opcodes.

	IGL = Opcode(0xff) // Decode result of any unmapped byte.
)

// Operand is the kind of a single operand slot in an instruction word.
type Operand int

const (
	OPERAND_PAD          = Operand(0) // Zero byte, no source operand.
	OPERAND_REG          = Operand(1) // Register index byte.
	OPERAND_REG_OPTIONAL = Operand(2) // Register index byte, may be omitted in source, ignored by decode.
	OPERAND_IMM16        = Operand(3) // Big-endian 16-bit immediate.
)

// Size returns the number of bytes the operand occupies.
func (operand Operand) Size() int {
	if operand == OPERAND_IMM16 {
		return 2
	}
	return 1
}

// Shape is the operand layout of an instruction word.
type Shape int

const (
	SHAPE_NONE    = Shape(0) // op pad pad pad
	SHAPE_REG_IMM = Shape(1) // op reg imm16
	SHAPE_REG3    = Shape(2) // op src1 src2 dst
	SHAPE_COMPARE = Shape(3) // op src1 src2 [pad]
	SHAPE_REG1    = Shape(4) // op reg pad pad
	SHAPE_REG2    = Shape(5) // op reg reg pad
	SHAPE_ILLEGAL = Shape(6) // not encodable
)

var shapeOperands = map[Shape][]Operand{
	SHAPE_NONE:    {OPERAND_PAD, OPERAND_PAD, OPERAND_PAD},
	SHAPE_REG_IMM: {OPERAND_REG, OPERAND_IMM16},
	SHAPE_REG3:    {OPERAND_REG, OPERAND_REG, OPERAND_REG},
	SHAPE_COMPARE: {OPERAND_REG, OPERAND_REG, OPERAND_REG_OPTIONAL},
	SHAPE_REG1:    {OPERAND_REG, OPERAND_PAD, OPERAND_PAD},
	SHAPE_REG2:    {OPERAND_REG, OPERAND_REG, OPERAND_PAD},
	SHAPE_ILLEGAL: nil,
}

// Operands returns the operand slots following the opcode byte, in encoding order.
func (shape Shape) Operands() []Operand {
	return shapeOperands[shape]
}

// Arity returns the number of operands written in assembly source,
// and how many of those are optional.
func (shape Shape) Arity() (count int, optional int) {
	for _, operand := range shape.Operands() {
		switch operand {
		case OPERAND_REG, OPERAND_IMM16:
			count++
		case OPERAND_REG_OPTIONAL:
			count++
			optional++
		}
	}
	return
}

// OpcodeInfo is an entry of the opcode table.
type OpcodeInfo struct {
	Opcode   Opcode
	Mnemonic string
	Shape    Shape
}

// opcodeTable is the canonical mapping of opcode byte, mnemonic and operand shape.
var opcodeTable = [OPCODE_COUNT]OpcodeInfo{
	HLT:    {HLT, "hlt", SHAPE_NONE},
	LOAD:   {LOAD, "load", SHAPE_REG_IMM},
	ADD:    {ADD, "add", SHAPE_REG3},
	SUB:    {SUB, "sub", SHAPE_REG3},
	MUL:    {MUL, "mul", SHAPE_REG3},
	DIV:    {DIV, "div", SHAPE_REG3},
	JMP:    {JMP, "jmp", SHAPE_REG1},
	JMPF:   {JMPF, "jmpf", SHAPE_REG1},
	EQ:     {EQ, "eq", SHAPE_COMPARE},
	NEQ:    {NEQ, "neq", SHAPE_COMPARE},
	GT:     {GT, "gt", SHAPE_COMPARE},
	LT:     {LT, "lt", SHAPE_COMPARE},
	GTQ:    {GTQ, "gtq", SHAPE_COMPARE},
	LTQ:    {LTQ, "ltq", SHAPE_COMPARE},
	JMPEQ:  {JMPEQ, "jmpeq", SHAPE_REG1},
	LABEL:  {LABEL, "label", SHAPE_NONE},
	SQUARE: {SQUARE, "square", SHAPE_REG2},
	ALLOC:  {ALLOC, "alloc", SHAPE_REG1},
	SET:    {SET, "set", SHAPE_REG2},
}

// mnemonicAlias maps alternate spellings to their opcode.
var mnemonicAlias = map[string]Opcode{
	"halt": HLT,
}

var mnemonicMap = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeTable)+len(mnemonicAlias))
	for _, info := range opcodeTable {
		m[info.Mnemonic] = info.Opcode
	}
	for alias, op := range mnemonicAlias {
		m[alias] = op
	}
	return m
}()

// Decode maps an opcode byte to its Opcode, or IGL if the byte is unmapped.
func Decode(b byte) Opcode {
	if int(b) >= OPCODE_COUNT {
		return IGL
	}
	return Opcode(b)
}

// Lookup finds the opcode for a mnemonic, ignoring case.
// IGL has no mnemonic.
func Lookup(mnemonic string) (op Opcode, ok bool) {
	op, ok = mnemonicMap[strings.ToLower(mnemonic)]
	return
}

// Opcodes returns the encodable opcode table, in opcode order.
func Opcodes() []OpcodeInfo {
	return opcodeTable[:]
}

// Valid returns true if the opcode has an encoding.
func (op Opcode) Valid() bool {
	return int(op) < OPCODE_COUNT
}

// Info returns the opcode table entry.
func (op Opcode) Info() (info OpcodeInfo, ok bool) {
	if !op.Valid() {
		info = OpcodeInfo{Opcode: IGL, Mnemonic: "igl", Shape: SHAPE_ILLEGAL}
		return
	}
	return opcodeTable[op], true
}

// Shape returns the operand layout of the opcode.
func (op Opcode) Shape() Shape {
	info, _ := op.Info()
	return info.Shape
}

// String returns the lower case mnemonic.
func (op Opcode) String() string {
	info, _ := op.Info()
	return info.Mnemonic
}

// Word is a single encoded instruction.
type Word [WORD_SIZE]byte

// MakeWord packs an instruction word. Values are consumed in operand order,
// skipping pad slots; a missing value encodes as zero.
func MakeWord(op Opcode, values ...uint16) (word Word) {
	word[0] = byte(op)

	pos := 1
	for _, operand := range op.Shape().Operands() {
		var value uint16
		if operand != OPERAND_PAD && len(values) > 0 {
			value = values[0]
			values = values[1:]
		}
		switch operand {
		case OPERAND_IMM16:
			word[pos] = byte(value >> 8)
			word[pos+1] = byte(value & 0xff)
		default:
			word[pos] = byte(value & 0xff)
		}
		pos += operand.Size()
	}

	return
}

// Opcode returns the decoded opcode of the word.
func (word Word) Opcode() Opcode {
	return Decode(word[0])
}

// Reg returns the n'th operand byte (0..2).
func (word Word) Reg(n int) byte {
	return word[1+n]
}

// Imm16 returns the big-endian immediate held in the last two bytes.
func (word Word) Imm16() uint16 {
	return (uint16(word[2]) << 8) | uint16(word[3])
}

// String returns the assembly language representation of this word.
func (word Word) String() string {
	op := word.Opcode()
	parts := []string{op.String()}

	pos := 1
	for _, operand := range op.Shape().Operands() {
		switch operand {
		case OPERAND_REG:
			parts = append(parts, fmt.Sprintf("$%d", word[pos]))
		case OPERAND_REG_OPTIONAL:
			if word[pos] != 0 {
				parts = append(parts, fmt.Sprintf("$%d", word[pos]))
			}
		case OPERAND_IMM16:
			parts = append(parts, fmt.Sprintf("%d", word.Imm16()))
		}
		pos += operand.Size()
	}

	if op == IGL {
		parts = append(parts, fmt.Sprintf("0x%02x", word[0]))
	}

	return strings.Join(parts, " ")
}
