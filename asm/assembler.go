// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"errors"
	"io"
	"log"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/regvm/cpu"
)

// Assembler is a two pass assembler for the register machine.
type Assembler struct {
	Verbose bool   // If set, verbosely logs the assembler actions.
	Origin  uint32 // Program offset the output will be loaded at.
	Keep    bool   // If set, labels of previous units stay visible to later ones.

	Symbols    *SymbolTable // Symbols of the last successful unit.
	Statements []Statement  // Statements of the last successful unit.

	predefine map[string]int64 // Predefines
}

// Predefine defines a named integer visible to $(...) expressions.
func (asm *Assembler) Predefine(name string, value int64) {
	if asm.predefine == nil {
		asm.predefine = map[string]int64{name: value}
	} else {
		asm.predefine[name] = value
	}
}

// Assemble tokenizes and compiles assembly text.
func (asm *Assembler) Assemble(text string) (code []byte, err error) {
	tokens, err := Tokenize(text)
	if err != nil {
		return
	}

	code, err = asm.Compile(tokens)
	return
}

// Parse assembles an entire input stream.
// Errors are located at their source line with ErrSyntax.
func (asm *Assembler) Parse(input io.Reader) (code []byte, err error) {
	text, err := io.ReadAll(input)
	if err != nil {
		err = &ErrSyntax{Err: err}
		return
	}

	lines := strings.Split(string(text), "\n")
	for n, line := range lines {
		lines[n] = strings.TrimSuffix(line, "\r")
		if asm.Verbose {
			log.Printf("%v: %v\n", n+1, lines[n])
		}
	}

	code, err = asm.Assemble(strings.Join(lines, "\n"))
	if err != nil {
		var lineno int
		var line string
		var positioned Positioned
		if errors.As(err, &positioned) {
			lineno = positioned.Position().Line
			if lineno > 0 && lineno <= len(lines) {
				line = strings.TrimSpace(lines[lineno-1])
			}
		}
		err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
	}

	return
}

// unit is the working state of a single Compile call.
type unit struct {
	symbols    *SymbolTable
	statements []Statement
	declared   []*Symbol
	usages     []*Token
	strays     []*Token
	size       uint32
}

// Compile encodes a token sequence into program bytes.
// Output is all or nothing: on error no bytes are returned.
func (asm *Assembler) Compile(tokens []Token) (code []byte, err error) {
	u := &unit{symbols: NewSymbolTable()}

	if asm.Keep && asm.Symbols != nil {
		for name, sym := range asm.Symbols.Resolved() {
			err = u.symbols.Declare(name, sym.Kind, sym.Pos)
			if err != nil {
				return
			}
			err = u.symbols.Resolve(name, sym.Offset)
			if err != nil {
				return
			}
		}
	}

	var source []Token
	for _, tok := range tokens {
		if tok.Kind != TOKEN_COMMENT {
			source = append(source, tok)
		}
	}

	// Pass 1: group and place.
	err = asm.group(u, source)
	if err != nil {
		return
	}

	err = asm.link(u)
	if err != nil {
		return
	}

	// Pass 2: encode.
	for n := range u.statements {
		stmt := &u.statements[n]
		if asm.Verbose {
			log.Printf("%04x: %v", stmt.Offset, stmt)
		}
		var bytes []byte
		bytes, err = asm.encode(u, stmt)
		if err != nil {
			code = nil
			return
		}
		code = append(code, bytes...)
	}

	asm.Symbols = u.symbols
	asm.Statements = u.statements

	return
}

// group splits the tokens into statements, placing labels at the running offset.
func (asm *Assembler) group(u *unit, source []Token) (err error) {
	place := func(stmt Statement) {
		stmt.Offset = asm.Origin + u.size
		u.size += uint32(stmt.Size())
		u.statements = append(u.statements, stmt)
	}

	for n := 0; n < len(source); n++ {
		tok := &source[n]
		var next *Token
		if n+1 < len(source) {
			next = &source[n+1]
		}

		switch tok.Kind {
		case TOKEN_LABEL_DECLARATION:
			kind := SYMBOL_LABEL
			if next != nil && next.Kind == TOKEN_STRING {
				kind = SYMBOL_STRING
			} else if next != nil && next.Kind == TOKEN_DIRECTIVE && n+2 < len(source) && isDataValue(&source[n+2]) {
				kind = SYMBOL_INTEGER
			}
			err = u.symbols.Declare(tok.Text, kind, tok.Pos)
			if err != nil {
				return
			}
			err = u.symbols.Resolve(tok.Text, asm.Origin+u.size)
			if err != nil {
				return
			}
			if sym, ok := u.symbols.Lookup(tok.Text); ok {
				u.declared = append(u.declared, sym)
			}
		case TOKEN_OP:
			var inst Instruction
			inst, err = asm.instruction(source[n:])
			if err != nil {
				return
			}
			for _, operand := range inst.Operand {
				if operand != nil {
					n++
					if operand.Kind == TOKEN_LABEL_USAGE {
						u.usages = append(u.usages, operand)
					}
				}
			}
			place(Statement{Kind: STATEMENT_INSTRUCTION, Pos: tok.Pos, Instruction: inst})
		case TOKEN_DIRECTIVE:
			if next == nil || !isDataValue(next) {
				place(Statement{Kind: STATEMENT_MARKER, Pos: tok.Pos, Name: tok.Text})
				continue
			}
			data := MakeRegister(cpu.DATA_REGISTER)
			data.Pos = tok.Pos
			inst := Instruction{Opcode: cpu.LOAD, Operand: [3]*Token{&data, next}}
			place(Statement{Kind: STATEMENT_DATA, Pos: tok.Pos, Instruction: inst, Name: tok.Text})
			n++
		case TOKEN_STRING:
			if len(tok.Text) > 0xffff {
				err = &ErrImmediateRange{Value: int64(len(tok.Text)), Pos: tok.Pos}
				return
			}
			place(Statement{Kind: STATEMENT_STRING, Pos: tok.Pos, Name: tok.Text})
		case TOKEN_LABEL_USAGE:
			u.usages = append(u.usages, tok)
			u.strays = append(u.strays, tok)
		default:
			err = &ErrTokenStray{Token: *tok}
			return
		}
	}

	return
}

// isDataValue returns true for tokens a data directive accepts as its value.
func isDataValue(tok *Token) bool {
	return tok.Kind == TOKEN_INTEGER || tok.Kind == TOKEN_EXPRESSION
}

// instruction consumes an opcode token and its operands, as the opcode's shape demands.
func (asm *Assembler) instruction(source []Token) (inst Instruction, err error) {
	tok := source[0]
	inst.Opcode = tok.Opcode

	if !tok.Opcode.Valid() {
		err = &ErrOpcodeIllegal{Pos: tok.Pos}
		return
	}

	slot := 0
	rest := source[1:]
	for _, operand := range tok.Opcode.Shape().Operands() {
		if operand == cpu.OPERAND_PAD {
			continue
		}

		var next *Token
		if len(rest) > 0 {
			next = &rest[0]
		}

		var want string
		var fits bool
		switch operand {
		case cpu.OPERAND_REG, cpu.OPERAND_REG_OPTIONAL:
			want = "register"
			fits = next != nil && next.Kind == TOKEN_REGISTER
		case cpu.OPERAND_IMM16:
			want = "immediate"
			fits = next != nil && (next.Kind == TOKEN_INTEGER || next.Kind == TOKEN_LABEL_USAGE || next.Kind == TOKEN_EXPRESSION)
		}

		slot++
		if !fits {
			if operand == cpu.OPERAND_REG_OPTIONAL {
				continue
			}
			shape := &ErrOperandShape{Opcode: inst.Opcode, Operand: slot, Want: want, Got: "end of input", Pos: tok.Pos}
			if next != nil {
				shape.Got = next.String()
				shape.Pos = next.Pos
			}
			err = shape
			return
		}

		inst.Operand[slot-1] = next
		rest = rest[1:]
	}

	return
}

// link checks that every label usage names a declared symbol,
// and that every declared label indexes the finished output.
func (asm *Assembler) link(u *unit) (err error) {
	for _, tok := range u.usages {
		if _, ok := u.symbols.Lookup(tok.Text); !ok {
			err = &ErrLabelUnresolved{Name: tok.Text, Pos: tok.Pos}
			return
		}
	}

	for _, sym := range u.declared {
		if sym.Offset >= asm.Origin+u.size {
			err = &ErrLabelDangling{Name: sym.Name, Pos: sym.Pos}
			return
		}
	}

	if len(u.strays) > 0 {
		err = &ErrTokenStray{Token: *u.strays[0]}
		return
	}

	return
}

// encode emits the bytes of a single statement.
func (asm *Assembler) encode(u *unit, stmt *Statement) (code []byte, err error) {
	switch stmt.Kind {
	case STATEMENT_MARKER:
		return
	case STATEMENT_STRING:
		size := len(stmt.Name)
		code = append([]byte{byte(size >> 8), byte(size & 0xff)}, stmt.Name...)
		return
	}

	var values []uint16
	for _, operand := range stmt.Operand {
		if operand == nil {
			continue
		}
		var value uint16
		value, err = asm.value(u, operand)
		if err != nil {
			return
		}
		values = append(values, value)
	}

	word := cpu.MakeWord(stmt.Opcode, values...)
	code = word[:]
	return
}

// value converts an operand token into its encoded value.
func (asm *Assembler) value(u *unit, tok *Token) (value uint16, err error) {
	var v64 int64
	switch tok.Kind {
	case TOKEN_REGISTER:
		value = uint16(tok.Register)
		return
	case TOKEN_INTEGER:
		v64 = int64(tok.Integer)
	case TOKEN_LABEL_USAGE:
		var offset uint32
		offset, err = u.symbols.Offset(tok.Text, tok.Pos)
		if err != nil {
			return
		}
		v64 = int64(offset)
	case TOKEN_EXPRESSION:
		v64, err = asm.eval(u, tok)
		if err != nil {
			return
		}
	default:
		err = &ErrTokenStray{Token: *tok}
		return
	}

	if v64 < 0 || v64 > 0xffff {
		err = &ErrImmediateRange{Value: v64, Pos: tok.Pos}
		return
	}

	value = uint16(v64)
	return
}

// eval does compile-time $(...) evaluations.
func (asm *Assembler) eval(u *unit, tok *Token) (value int64, err error) {
	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for name, val := range asm.predefine {
		pred[name] = starlark.MakeInt64(val)
	}
	for name, sym := range u.symbols.Resolved() {
		pred[name] = starlark.MakeUint(uint(sym.Offset))
	}

	prog := "rc=" + tok.Text + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = &ErrExpression{Source: tok.Text, Pos: tok.Pos, Err: err}
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = &ErrExpression{Source: tok.Text, Pos: tok.Pos}
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = &ErrExpression{Source: tok.Text, Pos: tok.Pos}
		return
	}

	return
}
