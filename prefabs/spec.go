package prefabs

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"

	"github.com/milk9111/tilenav/motion"
	"github.com/milk9111/tilenav/nav"
)

const (
	AgentFile      = "agent.yaml"
	NavigationFile = "navigation.yaml"
)

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// AgentSpec tunes the agent body and how it follows paths.
type AgentSpec struct {
	Name     string        `yaml:"name"`
	Motion   motion.Config `yaml:",inline"`
	Spawn    PointSpec     `yaml:"spawn"`
	Collider ColliderSpec  `yaml:"collider"`
	Color    YAMLColor     `yaml:"color"`
}

func LoadAgentSpec() (*AgentSpec, error) {
	spec, err := LoadSpec[AgentSpec](AgentFile)
	if err != nil {
		return nil, err
	}
	if spec.Collider.Radius <= 0 {
		return nil, fmt.Errorf("prefabs: %s: collider radius must be positive", AgentFile)
	}
	return &spec, nil
}

// NavigationSpec tunes the planner and spawn recovery.
type NavigationSpec struct {
	Planner         nav.Config `yaml:",inline"`
	SpawnSearchHops int        `yaml:"spawn_search_hops"`
	PathColor       YAMLColor  `yaml:"path_color"`
	BlockedColor    YAMLColor  `yaml:"blocked_color"`
}

func LoadNavigationSpec() (*NavigationSpec, error) {
	spec, err := LoadSpec[NavigationSpec](NavigationFile)
	if err != nil {
		return nil, err
	}
	if r := spec.Planner.WaypointPreferRatio; r <= 0 || r > 1 {
		return nil, fmt.Errorf("prefabs: %s: waypoint_prefer_ratio %v out of (0,1]", NavigationFile, r)
	}
	return &spec, nil
}

type PointSpec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type ColliderSpec struct {
	Radius   float64 `yaml:"radius"`
	Mass     float64 `yaml:"mass"`
	Friction float64 `yaml:"friction"`
}

// YAMLColor accepts "#rrggbb", "#rrggbbaa" or an SVG colour name.
type YAMLColor struct {
	color.Color
}

func (c *YAMLColor) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("color must be a string")
	}

	if named, ok := colornames.Map[strings.ToLower(value.Value)]; ok {
		c.Color = named
		return nil
	}

	s := strings.TrimPrefix(value.Value, "#")

	if len(s) != 6 && len(s) != 8 {
		return fmt.Errorf("invalid color format: %s", value.Value)
	}

	parse := func(start int) (uint8, error) {
		v, err := strconv.ParseUint(s[start:start+2], 16, 8)
		return uint8(v), err
	}

	r, err := parse(0)
	if err != nil {
		return err
	}
	g, err := parse(2)
	if err != nil {
		return err
	}
	b, err := parse(4)
	if err != nil {
		return err
	}

	a := uint8(255)
	if len(s) == 8 {
		a, err = parse(6)
		if err != nil {
			return err
		}
	}

	c.Color = color.NRGBA{R: r, G: g, B: b, A: a}
	return nil
}

// Or returns the colour, or fallback when none was configured.
func (c YAMLColor) Or(fallback color.Color) color.Color {
	if c.Color == nil {
		return fallback
	}
	return c.Color
}
