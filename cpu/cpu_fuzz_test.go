package cpu

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func FuzzCpu(f *testing.F) {
	for op := range OPCODE_COUNT + 2 {
		f.Add(uint8(op), uint8(0), uint8(1), uint8(2), int32(0), int32(4), true)
		f.Add(uint8(op), uint8(31), uint8(32), uint8(0), int32(-1), int32(0), false)
	}

	f.Fuzz(func(t *testing.T, op, b1, b2, b3 uint8, r0, r1 int32, equal bool) {
		assert := assert.New(t)

		cpu := NewCpu()
		cpu.Load([]byte{op, b1, b2, b3, byte(HLT), 0, 0, 0})
		cpu.Heap.Alloc(8)
		cpu.Equal = equal
		for n := range cpu.Register {
			cpu.Register[n] = r0 + int32(n)*r1
		}

		pre_register := cpu.Register
		pre_heap := slices.Clone(cpu.Heap.Data)
		pre_remainder := cpu.Remainder
		pre_equal := cpu.Equal

		state, err := cpu.Step()
		switch state {
		case FAULTED:
			assert.Error(err)
			assert.Equal(pre_register, cpu.Register)
			assert.Equal(pre_heap, cpu.Heap.Data)
			assert.Equal(pre_remainder, cpu.Remainder)
			assert.Equal(pre_equal, cpu.Equal)
			assert.Equal(uint32(0), cpu.Pc)

			again, again_err := cpu.Step()
			assert.Equal(FAULTED, again)
			assert.Equal(err, again_err)
		case RUNNING, HALTED:
			assert.NoError(err)
			assert.Less(int(cpu.Pc), len(cpu.Program)+1)
		default:
			t.Fatalf("unexpected state %v", state)
		}
	})
}
