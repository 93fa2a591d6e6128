package emulator

import (
	"errors"

	"github.com/ezrec/regvm/translate"
)

var f = translate.From

var (
	ErrStepLimit = errors.New(f("step limit reached"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	LineNo int
	Offset uint32
	Err    error
}

func (err *ErrRuntime) Error() string {
	return f("line %d (pc %04x) %v", err.LineNo, err.Offset, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
