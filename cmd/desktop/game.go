package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/retroenv/retrogolib/log"

	"goemu/pkg/machine"
	"goemu/pkg/savestore"
	"goemu/pkg/utils"
	"goemu/pkg/video"
)

const (
	slotCount     = 10
	statusTimeout = 2 * time.Second
)

// Game adapts a Machine to ebiten's Update/Draw loop.
type Game struct {
	m        machine.Machine
	logger   *log.Logger
	store    *savestore.Store
	bindings []binding
	romPath  string
	scale    int

	frame *ebiten.Image
	last  time.Time
	now   func() time.Time

	slot        int
	status      string
	statusUntil time.Time
}

func newGame(m machine.Machine, bindings []binding, store *savestore.Store, romPath string, scale int, logger *log.Logger) *Game {
	return &Game{
		m:        m,
		logger:   logger,
		store:    store,
		bindings: bindings,
		romPath:  romPath,
		scale:    scale,
		now:      time.Now,
	}
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	for _, b := range g.bindings {
		switch {
		case inpututil.IsKeyJustPressed(b.host):
			g.setKey(b.pad, true)
		case inpututil.IsKeyJustReleased(b.host):
			g.setKey(b.pad, false)
		}
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyF5):
		g.saveState()
	case inpututil.IsKeyJustPressed(ebiten.KeyF6):
		g.nextSlot()
	case inpututil.IsKeyJustPressed(ebiten.KeyF9):
		g.loadState()
	case inpututil.IsKeyJustPressed(ebiten.KeyF12):
		g.screenshot()
	}

	return g.tick()
}

// setKey forwards a keypad edge to the machine and reports whether it was
// accepted.
func (g *Game) setKey(pad uint8, down bool) bool {
	var err error
	if down {
		err = g.m.Press(pad)
	} else {
		err = g.m.Release(pad)
	}
	if err != nil {
		g.logger.Debug("Key ignored", log.Int("key", int(pad)), log.Err(err))
		return false
	}
	return true
}

// tick advances the machine by the wall time since the previous tick.
func (g *Game) tick() error {
	now := g.now()
	if g.last.IsZero() {
		g.last = now
		return nil
	}
	delta := now.Sub(g.last)
	g.last = now

	if err := g.m.Update(delta); err != nil {
		g.setStatus(fmt.Sprintf("halted: %v", err))
	}
	return nil
}

func (g *Game) setStatus(msg string) {
	g.status = msg
	g.statusUntil = g.now().Add(statusTimeout)
	g.logger.Info(msg)
}

func (g *Game) nextSlot() {
	g.slot = (g.slot + 1) % slotCount
	g.setStatus(fmt.Sprintf("slot %d", g.slot))
}

func (g *Game) saveState() {
	data, err := g.m.Snapshot()
	if err == nil {
		err = g.store.Save(savestore.SlotName(g.romPath, g.slot), data)
	}
	if err != nil {
		g.setStatus(fmt.Sprintf("save failed: %v", err))
		return
	}
	g.setStatus(fmt.Sprintf("saved slot %d", g.slot))
}

func (g *Game) loadState() {
	data, err := g.store.Load(savestore.SlotName(g.romPath, g.slot))
	if err == nil {
		err = g.m.Restore(data)
	}
	switch {
	case errors.Is(err, savestore.ErrSlotNotFound):
		g.setStatus(fmt.Sprintf("slot %d is empty", g.slot))
	case err != nil:
		g.setStatus(fmt.Sprintf("load failed: %v", err))
	default:
		g.setStatus(fmt.Sprintf("loaded slot %d", g.slot))
	}
}

func (g *Game) screenshot() {
	name := utils.OutputPath(g.romPath, g.now().Format("_20060102_150405")+".png")
	if err := video.SaveScreenshot(name, g.m.Image(), g.scale); err != nil {
		g.setStatus(fmt.Sprintf("screenshot failed: %v", err))
		return
	}
	g.setStatus("screenshot " + name)
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.frame == nil {
		g.frame = ebiten.NewImage(g.m.Width(), g.m.Height())
	}
	if g.m.Changed() {
		g.m.ResetChanged()
		g.frame.WritePixels(g.m.Image().Pix)
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(g.scale), float64(g.scale))
	screen.DrawImage(g.frame, op)

	var line string
	switch {
	case !g.m.IsRunning():
		line = "HALTED"
	case g.now().Before(g.statusUntil):
		line = g.status
	case g.m.Beeping():
		line = "BEEP"
	}
	if line != "" {
		ebitenutil.DebugPrint(screen, line)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.m.Width() * g.scale, g.m.Height() * g.scale
}
