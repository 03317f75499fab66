// Package config loads battle scenarios from YAML.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Garsondee/Siege-Sense/internal/agent"
	"github.com/Garsondee/Siege-Sense/internal/grid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// ErrInvalidScenario wraps every schema or consistency failure.
var ErrInvalidScenario = errors.New("invalid scenario")

//go:embed scenario.schema.json
var schemaText string

var schema = jsonschema.MustCompileString("scenario.schema.json", schemaText)

//go:embed builtin.yaml
var builtinText []byte

// Board is the grid geometry.
type Board struct {
	CellWidth  float64 `yaml:"cell_width"`
	CellHeight float64 `yaml:"cell_height"`
	Extent     int     `yaml:"extent"`
}

// Grid converts the board section into a grid config.
func (b Board) Grid() grid.Config {
	return grid.Config{CellW: b.CellWidth, CellH: b.CellHeight, Extent: b.Extent}
}

// Structure is one building or wall to place before the first tick.
type Structure struct {
	Kind string `yaml:"kind"`
	Cell [2]int `yaml:"cell"`
	Size int    `yaml:"size"`
}

// GridKind maps the YAML kind name onto the grid enum.
func (s Structure) GridKind() grid.Kind {
	if s.Kind == "wall" {
		return grid.KindWall
	}
	return grid.KindBuilding
}

// Origin returns the top-left cell.
func (s Structure) Origin() grid.Cell { return grid.Cell{X: s.Cell[0], Y: s.Cell[1]} }

// Troop spawns at the centre of a cell.
type Troop struct {
	Cell [2]int `yaml:"cell"`
}

// Scenario is a complete battle setup.
type Scenario struct {
	Name       string       `yaml:"name"`
	Ticks      int          `yaml:"ticks"`
	Delta      float64      `yaml:"delta"`
	Board      Board        `yaml:"board"`
	Agent      agent.Config `yaml:"agent"`
	Structures []Structure  `yaml:"structures"`
	Troops     []Troop      `yaml:"troops"`
}

// Builtin returns the bundled wall-breach scenario used when no file is given.
func Builtin() Scenario {
	sc, err := Parse(builtinText)
	if err != nil {
		panic(fmt.Sprintf("builtin scenario: %v", err))
	}
	return sc
}

// Default returns an empty 10×10 battlefield run for ten seconds at 60 Hz.
func Default() Scenario {
	g := grid.DefaultConfig()
	return Scenario{
		Name:  "default",
		Ticks: 600,
		Delta: 1.0 / 60,
		Board: Board{CellWidth: g.CellW, CellHeight: g.CellH, Extent: g.Extent},
		Agent: agent.DefaultConfig(),
	}
}

// Load reads and parses a scenario file.
func Load(path string) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	sc, err := Parse(raw)
	if err != nil {
		return Scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse validates raw YAML against the scenario schema and decodes it over
// the defaults, so omitted fields keep their stock values.
func Parse(raw []byte) (Scenario, error) {
	if err := validateSchema(raw); err != nil {
		return Scenario{}, err
	}
	sc := Default()
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return Scenario{}, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	for i := range sc.Structures {
		if sc.Structures[i].Size == 0 {
			sc.Structures[i].Size = 1
		}
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

func validateSchema(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if doc == nil {
		return nil
	}
	// Round-trip through JSON so the validator sees JSON value types.
	js, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	var v any
	if err := json.Unmarshal(js, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	return nil
}

// Validate checks what the schema cannot: placements against the board.
func (s Scenario) Validate() error {
	n := s.Board.Extent
	for i, st := range s.Structures {
		if st.Cell[0] < 0 || st.Cell[1] < 0 || st.Cell[0]+st.Size > n || st.Cell[1]+st.Size > n {
			return fmt.Errorf("%w: structure %d (%s at %v size %d) leaves the %dx%d board",
				ErrInvalidScenario, i, st.Kind, st.Cell, st.Size, n, n)
		}
		if st.Kind == "wall" && st.Size != 1 {
			return fmt.Errorf("%w: structure %d: walls are 1x1", ErrInvalidScenario, i)
		}
	}
	for i, tr := range s.Troops {
		if tr.Cell[0] < 0 || tr.Cell[1] < 0 || tr.Cell[0] >= n || tr.Cell[1] >= n {
			return fmt.Errorf("%w: troop %d at %v is off the board", ErrInvalidScenario, i, tr.Cell)
		}
	}
	return nil
}
