package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/retroenv/retrogolib/log"

	"goemu/pkg/config"
	"goemu/pkg/machine"
	"goemu/pkg/savestore"
	"goemu/pkg/utils"
	"goemu/pkg/video"
)

const (
	maxWindowWidth  = 1280
	maxWindowHeight = 960
	syncInterval    = 3 * time.Second
)

func main() {
	configPath := flag.String("config", "", "JSON config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	quiet := flag.Bool("quiet", false, "only log errors")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: desktop [flags] <rom>")
		flag.Usage()
		os.Exit(2)
	}

	logger := config.CreateLogger(*debug, *quiet)
	if err := run(flag.Arg(0), *configPath, logger); err != nil {
		logger.Fatal("Emulator failed", log.Err(err))
	}
}

func loadConfig(romPath, configPath string) (config.File, error) {
	f := config.Default()
	if configPath != "" {
		var err error
		if f, err = config.Load(configPath); err != nil {
			return f, err
		}
	} else if utils.IsBytePusherROM(romPath) {
		f.Machine = config.MachineBytePusher
		f.Scale = 2
	}
	return f, nil
}

func run(romArg, configPath string, logger *log.Logger) error {
	romPath, err := utils.ResolveROM(romArg)
	if err != nil {
		return err
	}
	f, err := loadConfig(romPath, configPath)
	if err != nil {
		return err
	}

	m, err := machine.New(f, machine.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := m.LoadFile(romPath); err != nil {
		return err
	}

	stateDir, err := utils.StateDir(romPath)
	if err != nil {
		return err
	}
	store := savestore.New(stateDir, savestore.DefaultQuota)
	if err := store.Open(); err != nil {
		return err
	}

	// Flush save states in the background and once more on exit.
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.Run(ctx, syncInterval, logger)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	scale := min(f.Scale, video.Fit(m.Width(), m.Height(), maxWindowWidth, maxWindowHeight))
	game := newGame(m, bindKeys(f), store, romPath, scale, logger)

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(m.Width()*scale, m.Height()*scale)
	ebiten.SetWindowTitle("goemu - " + m.Name())
	return ebiten.RunGame(game)
}
