package asm

import (
	"fmt"
	"strings"

	"github.com/ezrec/regvm/cpu"
)

// StatementKind is the class of an assembled statement.
type StatementKind int

const (
	STATEMENT_INSTRUCTION = StatementKind(0) // Opcode with operands.
	STATEMENT_DATA        = StatementKind(1) // Directive with a value, encoded as LOAD $31.
	STATEMENT_STRING      = StatementKind(2) // Length prefixed string blob.
	STATEMENT_MARKER      = StatementKind(3) // Directive without a value. Emits nothing.
)

// Instruction is an opcode with up to three operand tokens, in source order.
// Pad slots have no operand; an omitted optional register is nil.
type Instruction struct {
	Opcode  cpu.Opcode
	Operand [3]*Token
}

func (inst Instruction) String() string {
	parts := []string{inst.Opcode.String()}
	for _, operand := range inst.Operand {
		if operand != nil {
			parts = append(parts, operand.String())
		}
	}
	return strings.Join(parts, " ")
}

// Statement is one placed unit of output.
type Statement struct {
	Kind   StatementKind
	Pos    Position // Position of the first token.
	Offset uint32   // Absolute program offset.

	Instruction        // STATEMENT_INSTRUCTION and STATEMENT_DATA
	Name        string // Directive name, or string content.
}

// Size returns the number of encoded bytes.
func (stmt *Statement) Size() int {
	switch stmt.Kind {
	case STATEMENT_INSTRUCTION, STATEMENT_DATA:
		return cpu.WORD_SIZE
	case STATEMENT_STRING:
		return 2 + len(stmt.Name)
	}
	return 0
}

func (stmt *Statement) String() string {
	switch stmt.Kind {
	case STATEMENT_DATA:
		return fmt.Sprintf(".%v %v", stmt.Name, stmt.Operand[1])
	case STATEMENT_STRING:
		return fmt.Sprintf("%q", stmt.Name)
	case STATEMENT_MARKER:
		return "." + stmt.Name
	}
	return stmt.Instruction.String()
}
