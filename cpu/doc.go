// Package cpu implements the register machine executed by the regvm system.
//
// The machine consists of a program counter (pc) addressing a byte stream of
// fixed-width 4 byte instruction words, thirty-two signed 32-bit registers
// ($0-$31), an equal flag set by the comparison instructions, a remainder
// register updated by DIV, and a zero-filled heap grown by ALLOC and written
// by SET.
//
// The opcode table in this package is the binary contract shared with the
// assembler: opcode byte, mnemonic, and operand shape of every instruction.
//
// Execution errors never abort the host. Step reports them as a FAULTED state,
// and leaves the machine as it was before the faulting instruction.
package cpu
