// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tebeka/atexit"

	"github.com/ezrec/regvm/emulator"
	"github.com/ezrec/regvm/shell"
)

func main() {
	var compile string
	var binary string
	var output string
	var steps int
	var interactive bool
	var verbose bool

	flag.StringVar(&compile, "c", "", ".asm file to assemble")
	flag.StringVar(&binary, "b", "", ".bin file to load before assembling")
	flag.StringVar(&output, "o", "", "Write the program bytes to a .bin file, do not execute")
	flag.IntVar(&steps, "n", emulator.STEP_LIMIT, "Step budget, 0 for unbounded")
	flag.BoolVar(&interactive, "i", false, "Interactive shell")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		atexit.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose

	// Load a raw program image.
	if len(binary) != 0 {
		code, err := os.ReadFile(binary)
		if err != nil {
			atexit.Fatalf("%v: %v", binary, err)
		}
		emu.Cpu.Load(code)
	}

	// Assemble after the raw image.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			atexit.Fatalf("%v: %v", compile, err)
		}
		atexit.Register(func() { inf.Close() })

		err = emu.Load(inf)
		if err != nil {
			atexit.Fatalf("%v: %v", compile, err)
		}
	}

	if len(output) != 0 {
		err := os.WriteFile(output, emu.Cpu.Program, 0o644)
		if err != nil {
			atexit.Fatalf("%v: %v", output, err)
		}
		atexit.Exit(0)
	}

	if interactive {
		sh := shell.NewShell(emu)
		err := sh.Run(os.Stdin, os.Stdout, true)
		if err != nil {
			atexit.Fatalf("%v", err)
		}
		atexit.Exit(0)
	}

	state, err := emu.Run(steps)
	if verbose {
		log.Printf("%v after %d steps", state, emu.Cpu.Ticks)
	}
	fmt.Print(emu.Cpu)
	if err != nil {
		atexit.Fatalf("%v", err)
	}

	atexit.Exit(0)
}
