package emulator_test

import (
	"errors"
	"strconv"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ezrec/regvm/asm"
	"github.com/ezrec/regvm/cpu"
	"github.com/ezrec/regvm/emulator"
)

func source(lines ...string) string {
	return strings.Join(lines, "\n")
}

var _ = Describe("Emulator", func() {
	var emu *emulator.Emulator

	BeforeEach(func() {
		emu = emulator.NewEmulator()
	})

	Context("when assembling", func() {
		It("should encode LOAD $6 1024 as a single word", func() {
			n, err := emu.Assemble("LOAD $6 1024")

			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(4))
			Expect(emu.Cpu.Program).To(Equal(cpu.Program{1, 6, 4, 0}))
		})

		It("should append each unit at the end of the program", func() {
			_, err := emu.Assemble("top: load $0 7")
			Expect(err).NotTo(HaveOccurred())
			_, err = emu.Assemble("load $1 top")
			Expect(err).NotTo(HaveOccurred())

			Expect(emu.Cpu.Program).To(Equal(cpu.Program{1, 0, 0, 7, 1, 1, 0, 0}))
			Expect(emu.Listing).To(Equal([]emulator.Line{
				{LineNo: 1, Offset: 0, Size: 4, Text: "top: load $0 7"},
				{LineNo: 2, Offset: 4, Size: 4, Text: "load $1 top"},
			}))
		})

		It("should leave the program untouched on error", func() {
			_, err := emu.Assemble("halt")
			Expect(err).NotTo(HaveOccurred())

			n, err := emu.Assemble(source("load $0 1", "load $0 nowhere"))
			Expect(n).To(Equal(0))

			var syntax *asm.ErrSyntax
			Expect(errors.As(err, &syntax)).To(BeTrue())
			Expect(syntax.LineNo).To(Equal(3))
			Expect(syntax.Line).To(Equal("load $0 nowhere"))

			var unresolved *asm.ErrLabelUnresolved
			Expect(err).To(MatchError(ContainSubstring("nowhere")))
			Expect(errors.As(err, &unresolved)).To(BeTrue())

			Expect(emu.Cpu.Program).To(HaveLen(4))
			Expect(emu.Listing).To(HaveLen(1))
		})

		It("should assemble deterministically", func() {
			text := source("start: load $0 start", ".data $(start + 4)", `"str"`, "halt")

			other := emulator.NewEmulator()
			_, err := emu.Assemble(text)
			Expect(err).NotTo(HaveOccurred())
			_, err = other.Assemble(text)
			Expect(err).NotTo(HaveOccurred())

			Expect(emu.Cpu.Program).To(Equal(other.Cpu.Program))
		})

		It("should predefine the machine constants", func() {
			_, err := emu.Assemble(source("load $0 $(DATA_REGISTER)", "load $1 $(WORD_SIZE * 2)", "halt"))
			Expect(err).NotTo(HaveOccurred())

			state, err := emu.Run(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(Equal(cpu.HALTED))
			Expect(emu.Cpu.Register[0]).To(Equal(int32(cpu.DATA_REGISTER)))
			Expect(emu.Cpu.Register[1]).To(Equal(int32(8)))
		})

		It("should load a whole source file", func() {
			err := emu.Load(strings.NewReader(source(
				"; counts to three",
				"load $0 0",
				"load $1 1",
				"load $2 3",
				"load $3 loop",
				"loop: add $0 $1 $0",
				"neq $0 $2",
				"jmpeq $3",
				"halt",
			)))
			Expect(err).NotTo(HaveOccurred())

			state, err := emu.Run(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(Equal(cpu.HALTED))
			Expect(emu.Cpu.Register[0]).To(Equal(int32(3)))
			Expect(emu.Cpu.Pc).To(Equal(uint32(32)))

			Expect(emu.Listing).To(HaveLen(9))
			Expect(emu.Listing[0].Size).To(Equal(0))
			Expect(emu.Listing[5]).To(Equal(emulator.Line{LineNo: 6, Offset: 16, Size: 4, Text: "loop: add $0 $1 $0"}))
		})

		It("should accept a string literal of the largest size", func() {
			text := strings.Repeat("a", 0xffff)

			n, err := emu.Assemble(`"` + text + `"`)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2 + 0xffff))
			Expect(emu.Cpu.Program[:2]).To(Equal(cpu.Program{0xff, 0xff}))

			err = emu.Load(strings.NewReader("halt\n\"" + text + "a\"\n"))
			var syntax *asm.ErrSyntax
			Expect(errors.As(err, &syntax)).To(BeTrue())
			Expect(syntax.LineNo).To(Equal(3))

			var imm *asm.ErrImmediateRange
			Expect(errors.As(err, &imm)).To(BeTrue())
			Expect(emu.Cpu.Program).To(HaveLen(2 + 0xffff))
		})
	})

	Context("when running", func() {
		It("should round trip arithmetic", func() {
			_, err := emu.Assemble(source(
				"load $0 10",
				"load $1 3",
				"div $0 $1 $2",
				"mul $2 $1 $3",
				"sub $0 $3 $4",
				"square $4 $5",
				"halt",
			))
			Expect(err).NotTo(HaveOccurred())

			state, err := emu.Run(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(Equal(cpu.HALTED))
			Expect(emu.Cpu.Register[2]).To(Equal(int32(3)))
			Expect(emu.Cpu.Remainder).To(Equal(uint32(1)))
			Expect(emu.Cpu.Register[3]).To(Equal(int32(9)))
			Expect(emu.Cpu.Register[4]).To(Equal(int32(1)))
			Expect(emu.Cpu.Register[5]).To(Equal(int32(1)))
		})

		DescribeTable("JMPEQ",
			func(b int, expected int32) {
				_, err := emu.Assemble(source(
					"load $0 5",
					"load $1 "+strconv.Itoa(b),
					"load $2 skip",
					"eq $0 $1",
					"jmpeq $2",
					"load $3 1",
					"skip: halt",
				))
				Expect(err).NotTo(HaveOccurred())

				state, err := emu.Run(0)
				Expect(err).NotTo(HaveOccurred())
				Expect(state).To(Equal(cpu.HALTED))
				Expect(emu.Cpu.Register[3]).To(Equal(expected))
			},
			Entry("is taken when equal", 5, int32(0)),
			Entry("falls through when not equal", 6, int32(1)),
		)

		It("should jump forward relative to the next instruction", func() {
			_, err := emu.Assemble(source("load $0 4", "jmpf $0", "load $1 1", "halt"))
			Expect(err).NotTo(HaveOccurred())

			state, err := emu.Run(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(Equal(cpu.HALTED))
			Expect(emu.Cpu.Register[1]).To(Equal(int32(0)))
		})

		It("should skip over string blobs", func() {
			_, err := emu.Assemble(source("load $0 after", "jmp $0", `"abc"`, "after: .value 42", "halt"))
			Expect(err).NotTo(HaveOccurred())

			state, err := emu.Run(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(Equal(cpu.HALTED))
			Expect(emu.Cpu.Register[cpu.DATA_REGISTER]).To(Equal(int32(42)))
		})

		It("should fault on division by zero without touching registers", func() {
			_, err := emu.Assemble(source("load $0 5", "load $1 0", "div $0 $1 $2", "halt"))
			Expect(err).NotTo(HaveOccurred())

			state, err := emu.Run(0)
			Expect(state).To(Equal(cpu.FAULTED))
			Expect(err).To(MatchError(cpu.ErrDivisionByZero))

			var runtime *emulator.ErrRuntime
			Expect(errors.As(err, &runtime)).To(BeTrue())
			Expect(runtime.LineNo).To(Equal(3))
			Expect(runtime.Offset).To(Equal(uint32(8)))

			Expect(emu.Cpu.Register[0]).To(Equal(int32(5)))
			Expect(emu.Cpu.Register[1]).To(Equal(int32(0)))
			Expect(emu.Cpu.Register[2]).To(Equal(int32(0)))
			Expect(emu.Cpu.Pc).To(Equal(uint32(8)))
		})

		It("should fault on an illegal opcode, every time", func() {
			emu.Cpu.Load([]byte{0xee, 0, 0, 0})

			done, err := emu.Tick()
			Expect(done).To(BeTrue())
			Expect(err).To(MatchError(cpu.ErrIllegalOpcode(0xee)))
			fault := emu.Cpu.Fault()

			done, err = emu.Tick()
			Expect(done).To(BeTrue())
			Expect(err).To(MatchError(cpu.ErrIllegalOpcode(0)))
			Expect(emu.Cpu.Fault()).To(BeIdenticalTo(fault))
			Expect(emu.Cpu.State()).To(Equal(cpu.FAULTED))
			Expect(emu.Cpu.Pc).To(Equal(uint32(0)))
		})

		It("should allocate and write the heap", func() {
			_, err := emu.Assemble(source(
				"load $0 8",
				"alloc $0",
				"load $1 3",
				"load $2 65",
				"set $1 $2",
				"halt",
			))
			Expect(err).NotTo(HaveOccurred())

			state, err := emu.Run(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(Equal(cpu.HALTED))
			Expect(emu.Cpu.Heap.Len()).To(Equal(8))

			value, ok := emu.Cpu.Heap.Get(3)
			Expect(ok).To(BeTrue())
			Expect(value).To(Equal(byte(65)))
		})

		It("should fault on a heap write out of range", func() {
			_, err := emu.Assemble(source("load $0 8", "alloc $0", "load $1 8", "set $1 $0", "halt"))
			Expect(err).NotTo(HaveOccurred())

			state, err := emu.Run(0)
			Expect(state).To(Equal(cpu.FAULTED))
			Expect(err).To(MatchError(cpu.ErrHeapRange(8)))
		})

		It("should stop at the step limit", func() {
			_, err := emu.Assemble(source("top: load $0 top", "jmp $0"))
			Expect(err).NotTo(HaveOccurred())

			state, err := emu.Run(100)
			Expect(err).To(MatchError(emulator.ErrStepLimit))
			Expect(state).To(Equal(cpu.RUNNING))
			Expect(emu.Cpu.Ticks).To(Equal(100))
		})

		It("should idle at the end of the program, until more is loaded", func() {
			_, err := emu.Assemble("load $0 1")
			Expect(err).NotTo(HaveOccurred())

			state, err := emu.Run(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(Equal(cpu.IDLE))

			done, err := emu.Tick()
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeTrue())

			_, err = emu.Assemble(source("load $1 2", "halt"))
			Expect(err).NotTo(HaveOccurred())

			done, err = emu.Tick()
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeFalse())

			state, err = emu.Run(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(Equal(cpu.HALTED))
			Expect(emu.Cpu.Register[1]).To(Equal(int32(2)))
		})

		It("should keep the program across a reset", func() {
			_, err := emu.Assemble(source("load $0 9", "halt"))
			Expect(err).NotTo(HaveOccurred())

			_, err = emu.Run(0)
			Expect(err).NotTo(HaveOccurred())

			emu.Reset()
			Expect(emu.Cpu.Pc).To(Equal(uint32(0)))
			Expect(emu.Cpu.Register[0]).To(Equal(int32(0)))
			Expect(emu.Cpu.State()).To(Equal(cpu.RUNNING))
			Expect(emu.LineNo()).To(Equal(1))

			state, err := emu.Run(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(Equal(cpu.HALTED))
			Expect(emu.Cpu.Register[0]).To(Equal(int32(9)))
		})
	})
})
