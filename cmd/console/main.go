package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/retroenv/retrogolib/log"

	"goemu/pkg/config"
	"goemu/pkg/machine"
	"goemu/pkg/utils"
)

const frameInterval = time.Second / 60

func main() {
	configPath := flag.String("config", "", "JSON config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: console [flags] <rom>")
		flag.Usage()
		os.Exit(2)
	}

	// Log output would corrupt the screen, so only errors are logged unless
	// debugging.
	logger := config.CreateLogger(*debug, true)
	if err := run(flag.Arg(0), *configPath, logger); err != nil {
		logger.Fatal("Emulator failed", log.Err(err))
	}
}

func run(romArg, configPath string, logger *log.Logger) error {
	romPath, err := utils.ResolveROM(romArg)
	if err != nil {
		return err
	}

	f := config.Default()
	if configPath != "" {
		if f, err = config.Load(configPath); err != nil {
			return err
		}
	} else if utils.IsBytePusherROM(romPath) {
		f.Machine = config.MachineBytePusher
	}

	m, err := machine.New(f, machine.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := m.LoadFile(romPath); err != nil {
		return err
	}
	if !terminalFits(os.Stdout, m.Width(), (m.Height()+1)/2) {
		logger.Warn("Terminal is smaller than the display",
			log.Int("columns", m.Width()),
			log.Int("rows", (m.Height()+1)/2))
	}

	rt, err := enableRawMode(os.Stdin)
	if err != nil {
		return err
	}
	defer func() {
		_ = rt.restore()
		fmt.Print(escReset, escShowCursor, "\r\n")
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	input := make(chan byte, 64)
	go readInput(os.Stdin, input)

	fmt.Print(escClear, escHideCursor)
	return loop(ctx, m, newKeypad(f, m, logger), input, logger)
}

func loop(ctx context.Context, m machine.Machine, pad *keypad, input <-chan byte, logger *log.Logger) error {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	var screen bytes.Buffer
	halted := false
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil

		case b, ok := <-input:
			if !ok || pad.input(b, time.Now()) {
				logger.Info("Closing on user request")
				return nil
			}

		case now := <-ticker.C:
			pad.expire(now)
			if err := m.Update(now.Sub(last)); err != nil {
				logger.Error("Machine halted", log.Err(err))
			}
			last = now

			if m.Changed() {
				m.ResetChanged()
				screen.Reset()
				renderHalfBlocks(&screen, m.Image())
				if _, err := os.Stdout.Write(screen.Bytes()); err != nil {
					return err
				}
			}
			if !m.IsRunning() && !halted {
				halted = true
				logger.Info("Machine stopped running, press Escape to quit")
			}
		}
	}
}
