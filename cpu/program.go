package cpu

import (
	"iter"
)

// Program is the append-only instruction byte stream.
type Program []byte

// Word returns the instruction word at offset, if it is fully resident.
func (prog Program) Word(offset uint32) (word Word, ok bool) {
	if uint64(offset)+WORD_SIZE > uint64(len(prog)) {
		return
	}

	copy(word[:], prog[offset:offset+WORD_SIZE])
	return word, true
}

// Words iterates over the program as consecutive instruction words.
// A trailing partial word is not yielded.
func (prog Program) Words() iter.Seq2[uint32, Word] {
	return func(yield func(offset uint32, word Word) bool) {
		for offset := uint32(0); ; offset += WORD_SIZE {
			word, ok := prog.Word(offset)
			if !ok {
				return
			}
			if !yield(offset, word) {
				return
			}
		}
	}
}
