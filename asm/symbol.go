package asm

import (
	"iter"

	"github.com/ezrec/regvm/internal"
)

// SymbolKind is the class of data a symbol names.
type SymbolKind int

//go:generate go tool stringer -linecomment -type=SymbolKind
const (
	SYMBOL_LABEL   = SymbolKind(0) // label
	SYMBOL_INTEGER = SymbolKind(1) // integer
	SYMBOL_STRING  = SymbolKind(2) // string
)

// Symbol is a named program offset.
type Symbol struct {
	Name     string
	Offset   uint32 // Program offset, valid if Resolved.
	Resolved bool
	Kind     SymbolKind
	Pos      Position // Declaration position.
}

// SymbolTable holds symbols in declaration order, keyed by unique name.
type SymbolTable struct {
	symbols []*Symbol
	index   map[string]int
}

// NewSymbolTable creates an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{index: map[string]int{}}
}

// Len returns the number of symbols.
func (st *SymbolTable) Len() int {
	return len(st.symbols)
}

// Declare adds an unresolved symbol.
func (st *SymbolTable) Declare(name string, kind SymbolKind, pos Position) (err error) {
	if _, ok := st.index[name]; ok {
		err = &ErrLabelDuplicate{Name: name, Pos: pos}
		return
	}

	st.index[name] = len(st.symbols)
	st.symbols = append(st.symbols, &Symbol{Name: name, Kind: kind, Pos: pos})
	return
}

// Resolve sets the program offset of a declared symbol.
func (st *SymbolTable) Resolve(name string, offset uint32) (err error) {
	sym, ok := st.Lookup(name)
	if !ok {
		err = &ErrLabelUnresolved{Name: name}
		return
	}

	sym.Offset = offset
	sym.Resolved = true
	return
}

// Lookup finds a symbol by name.
func (st *SymbolTable) Lookup(name string) (sym *Symbol, ok bool) {
	n, ok := st.index[name]
	if !ok {
		return
	}

	sym = st.symbols[n]
	return
}

// Offset returns the program offset of a resolved symbol.
func (st *SymbolTable) Offset(name string, pos Position) (offset uint32, err error) {
	sym, ok := st.Lookup(name)
	if !ok || !sym.Resolved {
		err = &ErrLabelUnresolved{Name: name, Pos: pos}
		return
	}

	offset = sym.Offset
	return
}

// All iterates over the symbols in declaration order.
func (st *SymbolTable) All() iter.Seq2[string, *Symbol] {
	return func(yield func(string, *Symbol) bool) {
		for _, sym := range st.symbols {
			if !yield(sym.Name, sym) {
				return
			}
		}
	}
}

// Resolved iterates over the symbols that have a program offset.
func (st *SymbolTable) Resolved() iter.Seq2[string, *Symbol] {
	return internal.IterSeq2Filter(st.All(), func(_ string, sym *Symbol) bool {
		return sym.Resolved
	})
}
