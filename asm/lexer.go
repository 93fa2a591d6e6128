package asm

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ezrec/regvm/cpu"
)

var (
	reRegister = regexp.MustCompile(`^[rR]([0-9]+)$`)
	reNumber   = regexp.MustCompile(`^-?[0-9]+(\.[0-9]*)?([eE][-+]?[0-9]+)?`)
)

// lexer walks assembly text one token at a time.
type lexer struct {
	text string
	pos  Position
}

// Tokenize converts assembly text into a token sequence.
// Comments are kept as TOKEN_COMMENT so that callers may count them;
// the assembler drops them.
func Tokenize(text string) (tokens []Token, err error) {
	lex := &lexer{text: text, pos: Position{Line: 1, Column: 1}}

	for {
		lex.skipSpace()
		if lex.done() {
			break
		}

		var tok Token
		tok, err = lex.next()
		if err != nil {
			tokens = nil
			return
		}
		tokens = append(tokens, tok)
	}

	return
}

func (lex *lexer) done() bool {
	return lex.pos.Offset >= len(lex.text)
}

// rest is the unconsumed input.
func (lex *lexer) rest() string {
	return lex.text[lex.pos.Offset:]
}

// peek returns the rune at n bytes past the current position.
func (lex *lexer) peek(n int) rune {
	rest := lex.rest()
	if n >= len(rest) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(rest[n:])
	return r
}

// advance consumes n bytes, tracking line and column.
func (lex *lexer) advance(n int) {
	for _, r := range lex.rest()[:n] {
		if r == '\n' {
			lex.pos.Line++
			lex.pos.Column = 1
		} else {
			lex.pos.Column++
		}
	}
	lex.pos.Offset += n
}

func (lex *lexer) skipSpace() {
	n := len(lex.rest()) - len(strings.TrimLeftFunc(lex.rest(), unicode.IsSpace))
	lex.advance(n)
}

// errorf reports a lex error at the current position.
func (lex *lexer) errorf() error {
	text := lex.rest()
	if n := strings.IndexFunc(text, unicode.IsSpace); n >= 0 {
		text = text[:n]
	}
	if len(text) > 16 {
		text = text[:16]
	}
	return &ErrLex{Pos: lex.pos, Text: text}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentChar(r rune) bool {
	return isIdentStart(r) || r == '@' || unicode.IsDigit(r)
}

// boundary returns true if the input n bytes ahead does not continue a word.
func (lex *lexer) boundary(n int) bool {
	return n >= len(lex.rest()) || !isIdentChar(lex.peek(n))
}

// identifier returns the length of the identifier at n bytes ahead.
func (lex *lexer) identifier(n int) (size int) {
	rest := lex.rest()[n:]
	for size < len(rest) {
		r, width := utf8.DecodeRuneInString(rest[size:])
		if !isIdentChar(r) {
			break
		}
		size += width
	}
	return
}

// next scans a single token.
func (lex *lexer) next() (tok Token, err error) {
	pos := lex.pos
	rest := lex.rest()
	size := 0

	switch r := lex.peek(0); {
	case r == ';':
		size = strings.IndexByte(rest, '\n')
		if size < 0 {
			size = len(rest)
		}
		tok = MakeComment()
	case r == '"':
		end := strings.IndexByte(rest[1:], '"')
		if end < 0 {
			err = lex.errorf()
			return
		}
		tok = MakeText(TOKEN_STRING, rest[1:1+end])
		size = end + 2
	case r == '$' && lex.peek(1) == '(':
		depth := 0
		for n, c := range rest[1:] {
			if c == '(' {
				depth++
			} else if c == ')' {
				depth--
				if depth == 0 {
					size = n + 2
					break
				}
			}
		}
		if size == 0 {
			err = lex.errorf()
			return
		}
		tok = MakeText(TOKEN_EXPRESSION, strings.TrimSpace(rest[2:size-1]))
	case r == '$':
		digits := 0
		for digits+1 < len(rest) && rest[digits+1] >= '0' && rest[digits+1] <= '9' {
			digits++
		}
		size = 1 + digits
		if digits == 0 || !lex.boundary(size) {
			err = lex.errorf()
			return
		}
		tok, err = lex.register(rest[1:size])
		if err != nil {
			return
		}
	case r == '.':
		if !isIdentStart(lex.peek(1)) {
			err = lex.errorf()
			return
		}
		size = 1 + lex.identifier(1)
		tok = MakeText(TOKEN_DIRECTIVE, rest[1:size])
	case r == '-' || (r >= '0' && r <= '9'):
		number := reNumber.FindString(rest)
		size = len(number)
		if size == 0 || !lex.boundary(size) || lex.peek(size) == '.' {
			err = lex.errorf()
			return
		}
		if strings.ContainsAny(number, ".eE") {
			var value float64
			value, err = strconv.ParseFloat(number, 32)
			if err != nil {
				err = lex.errorf()
				return
			}
			tok = MakeFloat(float32(value))
		} else {
			var value int64
			value, err = strconv.ParseInt(number, 10, 32)
			if err != nil {
				err = lex.errorf()
				return
			}
			tok = MakeInteger(int32(value))
		}
	case isIdentStart(r):
		size = lex.identifier(0)
		word := rest[:size]
		if op, ok := cpu.Lookup(word); ok {
			tok = MakeOp(op)
		} else if match := reRegister.FindStringSubmatch(word); match != nil {
			tok, err = lex.register(match[1])
			if err != nil {
				return
			}
		} else if lex.peek(size) == ':' {
			tok = MakeText(TOKEN_LABEL_DECLARATION, word)
			size++
		} else {
			tok = MakeText(TOKEN_LABEL_USAGE, word)
		}
	default:
		err = lex.errorf()
		return
	}

	tok.Pos = pos
	lex.advance(size)
	return
}

// register converts register digits into a register token.
func (lex *lexer) register(digits string) (tok Token, err error) {
	value, err := strconv.ParseUint(digits, 10, 8)
	if err != nil {
		err = lex.errorf()
		return
	}

	tok = MakeRegister(uint8(value))
	return
}
