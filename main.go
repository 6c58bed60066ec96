//go:build !js

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/retroenv/retrogolib/log"

	"goemu/pkg/asm"
	"goemu/pkg/chip8"
	"goemu/pkg/config"
	"goemu/pkg/machine"
	"goemu/pkg/utils"
	"goemu/pkg/video"
	"goemu/pkg/wavwriter"
)

const frame = time.Second / 60

type options struct {
	rom        string
	configPath string
	machine    string
	frames     int
	screenshot string
	wav        string
	trace      bool

	asmIn  string
	asmOut string
	disasm string

	debug bool
	quiet bool
}

func main() {
	var opts options
	flag.StringVar(&opts.rom, "rom", "", "program to run headless")
	flag.StringVar(&opts.configPath, "config", "", "JSON config file")
	flag.StringVar(&opts.machine, "machine", "", "machine to emulate: chip8 or bytepusher (default from config or ROM extension)")
	flag.IntVar(&opts.frames, "frames", 60, "number of 1/60 s frames to run")
	flag.StringVar(&opts.screenshot, "screenshot", "", "write the final frame to this PNG file")
	flag.StringVar(&opts.wav, "wav", "", "record BytePusher audio to this WAV file")
	flag.BoolVar(&opts.trace, "trace", false, "log every executed CHIP-8 instruction (needs -debug)")
	flag.StringVar(&opts.asmIn, "asm", "", "assemble a CHIP-8 source file")
	flag.StringVar(&opts.asmOut, "out", "", "assembler output path (default: input with .ch8 extension)")
	flag.StringVar(&opts.disasm, "disasm", "", "disassemble a CHIP-8 program")
	flag.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flag.BoolVar(&opts.quiet, "quiet", false, "only log errors")
	flag.Parse()

	if opts.rom == "" && opts.asmIn == "" && opts.disasm == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: provide -rom to run, -asm to assemble or -disasm to disassemble")
		flag.Usage()
		os.Exit(2)
	}

	logger := config.CreateLogger(opts.debug, opts.quiet)
	if err := execute(opts, os.Stdout, logger); err != nil {
		logger.Error("Failed", log.Err(err))
		os.Exit(1)
	}
}

func execute(opts options, out io.Writer, logger *log.Logger) error {
	if opts.asmIn != "" {
		output := opts.asmOut
		if output == "" {
			output = utils.OutputPath(opts.asmIn, ".ch8")
		}
		size, err := assembleFile(opts.asmIn, output)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "assembled %d bytes -> %s\n", size, output)
	}

	if opts.disasm != "" {
		if err := disassembleFile(opts.disasm, out); err != nil {
			return err
		}
	}

	if opts.rom != "" {
		return runHeadless(opts, out, logger)
	}
	return nil
}

func assembleFile(in, out string) (int, error) {
	source, err := os.ReadFile(in)
	if err != nil {
		return 0, fmt.Errorf("reading source: %w", err)
	}
	code, _, err := asm.Assemble(string(source))
	if err != nil {
		return 0, fmt.Errorf("assembly failed: %w", err)
	}
	if err := os.WriteFile(out, code, 0o644); err != nil {
		return 0, fmt.Errorf("writing program: %w", err)
	}
	return len(code), nil
}

func disassembleFile(path string, out io.Writer) error {
	program, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading program: %w", err)
	}
	for _, line := range chip8.Disassemble(program, asm.DefaultOrigin) {
		fmt.Fprintln(out, line)
	}
	return nil
}

func buildConfig(opts options) (config.File, error) {
	f := config.Default()
	if opts.configPath != "" {
		var err error
		if f, err = config.Load(opts.configPath); err != nil {
			return f, err
		}
	} else if utils.IsBytePusherROM(opts.rom) {
		f.Machine = config.MachineBytePusher
	}
	if opts.machine != "" {
		f.Machine = strings.ToLower(opts.machine)
	}
	return f, f.Validate()
}

func runHeadless(opts options, out io.Writer, logger *log.Logger) (rerr error) {
	f, err := buildConfig(opts)
	if err != nil {
		return err
	}

	machineOpts := []machine.Option{machine.WithLogger(logger)}
	if opts.trace {
		machineOpts = append(machineOpts, machine.WithTracer(func(pc uint16, in chip8.Instruction) {
			logger.Debug("Trace", log.Hex("pc", pc), log.String("instruction", in.String()))
		}))
	}
	var wav *wavwriter.Writer
	if opts.wav != "" {
		wav = wavwriter.New(opts.wav)
		machineOpts = append(machineOpts, machine.WithAudioSink(wav))
		defer func() {
			if err := wav.Close(); err != nil && rerr == nil {
				rerr = err
			}
		}()
	}

	m, err := machine.New(f, machineOpts...)
	if err != nil {
		return err
	}
	if err := m.LoadFile(opts.rom); err != nil {
		return err
	}

	ran := 0
	for ran < opts.frames && m.IsRunning() {
		err := m.Update(frame)
		ran++
		if err != nil {
			fmt.Fprintf(out, "halted: %v\n", err)
			break
		}
	}
	fmt.Fprintf(out, "ran %d frames of %s\n", ran, m.Name())
	printState(out, m)

	if opts.screenshot != "" {
		if err := video.SaveScreenshot(opts.screenshot, m.Image(), f.Scale); err != nil {
			return fmt.Errorf("writing screenshot: %w", err)
		}
		fmt.Fprintf(out, "screenshot -> %s\n", opts.screenshot)
	}
	return nil
}

func printState(out io.Writer, m machine.Machine) {
	chip, ok := m.(*machine.Chip8)
	if !ok {
		return
	}
	c := chip.CPU()
	fmt.Fprintf(out, "state=%s PC=0x%04X I=0x%04X SP=%d DT=%d ST=%d\n",
		c.State(), c.PC(), c.Index(), c.StackDepth(), chip.DelayTimer(), chip.SoundTimer())
	var regs strings.Builder
	for x := range uint8(16) {
		if x > 0 {
			regs.WriteByte(' ')
		}
		fmt.Fprintf(&regs, "V%X=%02X", x, c.Register(x))
	}
	fmt.Fprintln(out, regs.String())
}
