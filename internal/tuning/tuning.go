package tuning

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"voxelmaze.ai/internal/geometry"
	"voxelmaze.ai/internal/maze"
)

var ErrInvalidConfig = errors.New("invalid maze config")

const (
	MaxDimension     = 256
	MaxLevels        = 64
	MaxPartSize      = 16
	MaxHolesPerLevel = MaxDimension * MaxDimension

	// MaxVoxels bounds the built volume. Every voxel is tracked in memory
	// while the commands are emitted.
	MaxVoxels = 1 << 25
)

// Config is the immutable input of one generation run.
type Config struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
	Levels int `yaml:"levels" json:"levels"`

	WallSize   int `yaml:"wall_size" json:"wall_size"`
	WalkSize   int `yaml:"walk_size" json:"walk_size"`
	WallHeight int `yaml:"wall_height" json:"wall_height"`

	Block           string `yaml:"block" json:"block"`
	GenerateHoles   bool   `yaml:"generate_holes" json:"generate_holes"`
	GenerateLadders bool   `yaml:"generate_ladders" json:"generate_ladders"`
	HolesPerLevel   int    `yaml:"holes_per_level" json:"holes_per_level"`
	AddRoof         bool   `yaml:"add_roof" json:"add_roof"`
	Mode            string `yaml:"mode" json:"mode"`

	// Seed 0 asks for a time based seed.
	Seed int64 `yaml:"seed" json:"seed"`
}

func Defaults() Config {
	return Config{
		Width:           10,
		Height:          10,
		Levels:          3,
		WallSize:        1,
		WalkSize:        2,
		WallHeight:      3,
		Block:           "stone",
		GenerateHoles:   true,
		GenerateLadders: true,
		HolesPerLevel:   2,
		Mode:            "3d",
	}
}

// Load reads a YAML config on top of Defaults. Keys missing from the file
// keep their default values.
func Load(path string) (Config, error) {
	c := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (c Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}
	check(c.Width >= 1 && c.Width <= MaxDimension, "width %d not in 1..%d", c.Width, MaxDimension)
	check(c.Height >= 1 && c.Height <= MaxDimension, "height %d not in 1..%d", c.Height, MaxDimension)
	check(c.Levels >= 1 && c.Levels <= MaxLevels, "levels %d not in 1..%d", c.Levels, MaxLevels)
	check(c.WallSize >= 1 && c.WallSize <= MaxPartSize, "wall_size %d not in 1..%d", c.WallSize, MaxPartSize)
	check(c.WalkSize >= 1 && c.WalkSize <= MaxPartSize, "walk_size %d not in 1..%d", c.WalkSize, MaxPartSize)
	check(c.WallHeight >= 1 && c.WallHeight <= MaxPartSize, "wall_height %d not in 1..%d", c.WallHeight, MaxPartSize)
	check(c.HolesPerLevel >= 0 && c.HolesPerLevel <= MaxHolesPerLevel, "holes_per_level %d not in 0..%d", c.HolesPerLevel, MaxHolesPerLevel)
	check(c.Block != "" && !strings.ContainsAny(c.Block, " \t\r\n"), "block %q is not a single token", c.Block)
	_, err := maze.ParseMode(c.Mode)
	check(err == nil, "mode %q is not 2d or 3d", c.Mode)
	if len(problems) == 0 {
		v := c.Voxels()
		check(v <= MaxVoxels, "maze spans %d voxels, limit is %d", v, MaxVoxels)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Voxels is the size of the box the commands build in, roof layer included.
func (c Config) Voxels() int64 {
	p := c.Params()
	return int64(p.TotalWidth(c.Width)) * int64(p.TotalWidth(c.Height)) * int64(p.RoofY(c.Levels)+1)
}

func (c Config) Params() geometry.Params {
	return geometry.Params{WallSize: c.WallSize, WalkSize: c.WalkSize, WallHeight: c.WallHeight}
}

// MazeMode returns the parsed mode. Validate first; an unknown mode reads as 3D.
func (c Config) MazeMode() maze.Mode {
	m, err := maze.ParseMode(c.Mode)
	if err != nil {
		return maze.Mode3D
	}
	return m
}
