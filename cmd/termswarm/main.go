// Command termswarm runs the swarm in a terminal.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/game"
	"github.com/pthm-cable/swarm/renderer/palette"
	"github.com/pthm-cable/swarm/systems"
)

// Frame units per terminal cell. Cells are about twice as tall as wide.
const (
	defaultCellW = 8
	defaultCellH = 16
)

type app struct {
	screen tcell.Screen
	runner *game.Runner
	sim    *game.Simulation
	trails *trailBuffer

	cellW, cellH float64
	particles    []systems.Particle
}

func newApp(screen tcell.Screen, opts game.RunnerOptions, cellW, cellH float64) (*app, error) {
	a := &app{screen: screen, cellW: cellW, cellH: cellH}

	cols, rows := a.gridSize()
	opts.Sim.Width = float64(cols) * cellW
	opts.Sim.Height = float64(rows) * cellH

	r, err := game.NewRunner(opts)
	if err != nil {
		return nil, err
	}
	a.runner = r
	a.sim = r.Sim()
	a.trails = newTrailBuffer(cols, rows)
	return a, nil
}

// gridSize is the drawable area: the last row is the status line.
func (a *app) gridSize() (cols, rows int) {
	w, h := a.screen.Size()
	return max(w, 1), max(h-1, 1)
}

func (a *app) resize() {
	cols, rows := a.gridSize()
	if err := a.sim.Resize(float64(cols)*a.cellW, float64(rows)*a.cellH); err != nil {
		slog.Error("resize failed", "error", err)
		return
	}
	a.trails.resize(cols, rows)
	a.screen.Sync()
}

// handleEvent returns false when the user asked to quit.
func (a *app) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q', 'Q':
				return false
			case ' ':
				a.sim.Toggle()
			case 'r', 'R':
				p := a.sim.Randomize()
				slog.Info("randomized", "params", p)
			}
		}
	case *tcell.EventResize:
		a.resize()
	}
	return true
}

func (a *app) tick() {
	if a.runner.Update() > 0 {
		a.particles = a.sim.AppendParticles(a.particles[:0])
		a.trails.fade(a.sim.Params().DecayRate)
		a.trails.plot(a.particles, a.cellW, a.cellH)
	}
	a.draw()
}

func (a *app) draw() {
	bg := tcell.NewRGBColor(int32(palette.Background.R), int32(palette.Background.G), int32(palette.Background.B))
	base := tcell.StyleDefault.Background(bg)

	for row := 0; row < a.trails.rows; row++ {
		for col := 0; col < a.trails.cols; col++ {
			c := a.trails.at(col, row)
			fg := palette.Faded(c.hue, c.level)
			style := base.Foreground(tcell.NewRGBColor(int32(fg.R), int32(fg.G), int32(fg.B)))
			a.screen.SetContent(col, row, glyph(c.level), nil, style)
		}
	}

	a.drawStatus(a.trails.rows, base)
	a.screen.Show()
}

func (a *app) drawStatus(row int, base tcell.Style) {
	w, _ := a.screen.Size()
	p := a.sim.Params()
	state := ""
	if a.sim.State() == game.StatePaused {
		state = " PAUSED"
	}
	status := fmt.Sprintf(" %s | %d particles | step %d | t %.2f%s | [space] play/pause [r] randomize [q] quit",
		p.Name, a.sim.Len(), a.sim.Steps(), a.sim.Time(), state)

	style := base.Foreground(tcell.ColorGray)
	col := 0
	for _, ch := range status {
		if col >= w {
			break
		}
		a.screen.SetContent(col, row, ch, nil, style)
		col++
	}
	for ; col < w; col++ {
		a.screen.SetContent(col, row, ' ', nil, style)
	}
}

func (a *app) run(fps int) {
	if fps <= 0 {
		fps = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !a.handleEvent(ev) {
				return
			}
		case <-ticker.C:
			a.tick()
		}
	}
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	logPath := flag.String("log", "", "Write JSON logs to this file (empty = discard)")
	cellW := flag.Float64("cell-width", defaultCellW, "Frame units per terminal column")
	cellH := flag.Float64("cell-height", defaultCellH, "Frame units per terminal row")
	flag.Parse()

	// The terminal is the display, so logs go to a file or nowhere
	handler := slog.DiscardHandler
	if *logPath != "" {
		f, err := os.Create(*logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		handler = slog.NewJSONHandler(f, nil)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if *cellW <= 0 || *cellH <= 0 {
		fmt.Fprintln(os.Stderr, "--cell-width and --cell-height must be positive")
		os.Exit(1)
	}

	if err := config.Init(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	simOpts, err := game.OptionsFromConfig(cfg, rngSeed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid swarm config: %v\n", err)
		os.Exit(1)
	}
	simOpts.Logger = logger

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init screen: %v\n", err)
		os.Exit(1)
	}

	a, err := newApp(screen, game.RunnerOptions{
		Sim:            simOpts,
		StatsWindowSec: cfg.Telemetry.StatsWindow,
		PerfWindow:     cfg.Telemetry.PerfCollectorWindow,
		StepsPerUpdate: 1,
	}, *cellW, *cellH)
	if err != nil {
		screen.Fini()
		fmt.Fprintf(os.Stderr, "failed to create simulation: %v\n", err)
		os.Exit(1)
	}

	a.run(cfg.Screen.TargetFPS)
	screen.Fini()
}
