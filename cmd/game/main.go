package main

import (
	"flag"
	"log"

	"github.com/Garsondee/Siege-Sense/internal/config"
	"github.com/Garsondee/Siege-Sense/internal/sim"
	"github.com/Garsondee/Siege-Sense/internal/view"
	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	var scenario string
	var verbose bool
	flag.StringVar(&scenario, "scenario", "", "scenario YAML file (default: built-in wall-breach)")
	flag.BoolVar(&verbose, "verbose", false, "log per-tick positions")
	flag.Parse()

	sc := config.Builtin()
	if scenario != "" {
		var err error
		if sc, err = config.Load(scenario); err != nil {
			log.Fatal(err)
		}
	}
	s, err := sim.FromScenario(sc, sim.WithVerbose(verbose))
	if err != nil {
		log.Fatal(err)
	}

	g := view.New(s)
	ebiten.SetWindowTitle("Siege Sense: " + s.Name())
	ebiten.SetWindowSize(g.Size())
	ebiten.SetTPS(int(1/s.Delta() + 0.5))
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
