// Package config reads and writes the tiler's YAML settings file. The same
// file carries the room polygons, the pattern palette and, after a run, the
// generated tile records, so it doubles as a save file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/hextile/internal/world"
)

// ErrInvalid is returned for settings that fail validation.
var ErrInvalid = errors.New("invalid settings")

// File is the full settings document.
type File struct {
	Settings  Settings                  `yaml:"settings"`
	Patterns  Patterns                  `yaml:"patterns"`
	Rooms     Rooms                     `yaml:"rooms"`
	Generated map[string][]world.Record `yaml:"generated,omitempty"`
}

// Settings holds tiling parameters.
type Settings struct {
	Scale           float64 `yaml:"scale"`
	TileRadius      float64 `yaml:"tileRadius"`
	MaxInlineColors int     `yaml:"maxInlineColors"` // max same-colour cluster
	PerBoxCount     int     `yaml:"perBoxCount"`     // tiles per box, for stats
	MaxCells        int     `yaml:"maxCells"`
	Seed            int64   `yaml:"seed,omitempty"`
	Noise           bool    `yaml:"noise,omitempty"`
}

// Pattern is one colour slot: a texture image path or a #rrggbb colour.
type Pattern struct {
	Name   string
	Source string
}

// Patterns keeps the file order, which fixes each pattern's colour index.
type Patterns []Pattern

// Room is one named polygon.
type Room struct {
	Name   string
	Points [][]float64
}

// Rooms keeps the file order, which is also the growth order.
type Rooms []Room

// Default returns the stock example: one living room and three patterns.
func Default() *File {
	return &File{
		Settings: Settings{
			Scale:           1,
			TileRadius:      10.5,
			MaxInlineColors: 3,
			PerBoxCount:     20,
			MaxCells:        1000,
		},
		Patterns: Patterns{
			{Name: "cotton", Source: "public/images/texture/cotton_pattern.png"},
			{Name: "shell", Source: "public/images/texture/shell_pattern.png"},
			{Name: "sand", Source: "public/images/texture/sand_pattern.png"},
		},
		Rooms: Rooms{
			{Name: "living", Points: [][]float64{{10, 10}, {210, 10}, {210, 210}, {30, 210}}},
		},
	}
}

// Load reads settings from a YAML file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	return Parse(data)
}

// Parse decodes settings, fills defaults for missing values and validates.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	f.applyDefaults()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) applyDefaults() {
	def := Default()
	if f.Settings.Scale == 0 {
		f.Settings.Scale = def.Settings.Scale
	}
	if f.Settings.TileRadius == 0 {
		f.Settings.TileRadius = def.Settings.TileRadius
	}
	if f.Settings.MaxInlineColors == 0 {
		f.Settings.MaxInlineColors = def.Settings.MaxInlineColors
	}
	if f.Settings.PerBoxCount == 0 {
		f.Settings.PerBoxCount = def.Settings.PerBoxCount
	}
	if f.Settings.MaxCells == 0 {
		f.Settings.MaxCells = def.Settings.MaxCells
	}
	if len(f.Patterns) == 0 {
		f.Patterns = def.Patterns
	}
	if len(f.Rooms) == 0 {
		f.Rooms = def.Rooms
	}
}

// Validate checks the settings and every room polygon.
func (f *File) Validate() error {
	if _, err := f.Borders(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := f.GenConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	seen := make(map[string]bool, len(f.Rooms))
	for _, r := range f.Rooms {
		if seen[r.Name] {
			return fmt.Errorf("%w: duplicate room %q", ErrInvalid, r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// Radius returns the effective tile radius.
func (f *File) Radius() float64 {
	return f.Settings.TileRadius * f.Settings.Scale
}

// GenConfig returns the grower parameters described by the settings.
func (f *File) GenConfig() world.GenConfig {
	return world.GenConfig{
		Radius:         f.Radius(),
		MaxClusterSize: f.Settings.MaxInlineColors,
		Colors:         len(f.Patterns),
		MaxCells:       f.Settings.MaxCells,
		Seed:           f.Settings.Seed,
		Noise:          f.Settings.Noise,
	}
}

// Borders builds one border per room, in file order.
func (f *File) Borders() ([]*world.Border, error) {
	out := make([]*world.Border, 0, len(f.Rooms))
	for _, r := range f.Rooms {
		path := make([]world.Point, len(r.Points))
		for i, p := range r.Points {
			if len(p) != 2 {
				return nil, fmt.Errorf("room %q point %d: want [x, y], got %v", r.Name, i, p)
			}
			path[i] = world.Point{X: p[0], Y: p[1]}
		}
		b, err := world.NewBorder(r.Name, path)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Sources returns the pattern sources in colour index order.
func (f *File) Sources() []string {
	out := make([]string, len(f.Patterns))
	for i, p := range f.Patterns {
		out[i] = p.Source
	}
	return out
}

// Marshal encodes the file as YAML.
func (f *File) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

// Save writes the file as YAML.
func (f *File) Save(path string) error {
	data, err := f.Marshal()
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}

// UnmarshalYAML decodes a mapping of name to source, keeping key order.
func (p *Patterns) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: patterns must be a mapping", value.Line)
	}
	out := make(Patterns, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var src string
		if err := value.Content[i+1].Decode(&src); err != nil {
			return fmt.Errorf("pattern %q: %w", value.Content[i].Value, err)
		}
		out = append(out, Pattern{Name: value.Content[i].Value, Source: src})
	}
	*p = out
	return nil
}

// MarshalYAML encodes patterns as an ordered mapping.
func (p Patterns) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, pat := range p {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: pat.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: pat.Source},
		)
	}
	return node, nil
}

// UnmarshalYAML decodes a mapping of room name to [[x, y], ...], keeping key order.
func (r *Rooms) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: rooms must be a mapping", value.Line)
	}
	out := make(Rooms, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var pts [][]float64
		if err := value.Content[i+1].Decode(&pts); err != nil {
			return fmt.Errorf("room %q: %w", value.Content[i].Value, err)
		}
		out = append(out, Room{Name: value.Content[i].Value, Points: pts})
	}
	*r = out
	return nil
}

// MarshalYAML encodes rooms as an ordered mapping with flow-style points.
func (r Rooms) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, room := range r {
		var pts yaml.Node
		if err := pts.Encode(room.Points); err != nil {
			return nil, fmt.Errorf("room %q: %w", room.Name, err)
		}
		for _, p := range pts.Content {
			p.Style = yaml.FlowStyle
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: room.Name},
			&pts,
		)
	}
	return node, nil
}
