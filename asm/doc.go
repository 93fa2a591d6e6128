// Package asm assembles mnemonic text into register machine program bytes.
//
// Assembly runs in three stages. Tokenize splits source text into tokens.
// Pass 1 groups tokens into statements and places each label at the program
// offset of the statement that follows it. Pass 2 encodes every statement,
// substituting label offsets and evaluating $(...) expressions.
//
// Syntax:
//
//	start:              ; label declaration
//	load $0 1024        ; opcode, register, immediate
//	load r1 start       ; label offset as immediate
//	load $2 $(start+8)  ; compile-time expression
//	eq $0 $1            ; comparisons take an optional third register
//	.value 12           ; data directive, encoded as 'load $31 12'
//	.text               ; section marker, emits nothing
//	msg: "hello"        ; length prefixed string blob
//	halt
package asm
