package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/Garsondee/Siege-Sense/internal/config"
	"github.com/Garsondee/Siege-Sense/internal/sim"
	"github.com/Garsondee/Siege-Sense/internal/tui"
	"github.com/gdamore/tcell/v2"
)

func main() {
	var scenario string
	var ticks int
	var interval time.Duration
	flag.StringVar(&scenario, "scenario", "", "scenario YAML file (default: built-in wall-breach)")
	flag.IntVar(&ticks, "ticks", 0, "stop ticking after this many ticks (0: scenario length)")
	flag.DurationVar(&interval, "interval", 16*time.Millisecond, "wall time per tick")
	flag.Parse()

	if err := run(scenario, ticks, interval); err != nil {
		fmt.Fprintf(os.Stderr, "battle-tui: %v\n", err)
		os.Exit(1)
	}
}

func run(scenario string, ticks int, interval time.Duration) error {
	sc := config.Builtin()
	if scenario != "" {
		var err error
		if sc, err = config.Load(scenario); err != nil {
			return err
		}
	}
	if ticks <= 0 {
		ticks = sc.Ticks
	}
	s, err := sim.FromScenario(sc)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err = tui.New(screen, s).Run(ctx, interval, ticks)
	if err == context.Canceled {
		return nil
	}
	return err
}
