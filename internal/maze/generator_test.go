package maze

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shape struct {
	w, h, levels int
	mode         Mode
}

var shapes = []shape{
	{1, 1, 1, Mode2D},
	{1, 1, 2, Mode3D},
	{1, 1, 3, Mode2D},
	{5, 1, 1, Mode2D},
	{1, 7, 2, Mode3D},
	{4, 4, 1, Mode3D},
	{6, 5, 3, Mode3D},
	{6, 5, 3, Mode2D},
	{12, 9, 4, Mode3D},
	{20, 20, 1, Mode2D},
}

func TestGenerate_InvalidDimensions(t *testing.T) {
	for _, tc := range []shape{{0, 3, 1, Mode2D}, {3, 0, 1, Mode3D}, {3, 3, 0, Mode2D}, {-1, 2, 2, Mode3D}} {
		_, err := Generate(tc.w, tc.h, tc.levels, tc.mode, rand.New(rand.NewSource(1)))
		if !errors.Is(err, ErrInvalidDimensions) {
			t.Fatalf("Generate(%d,%d,%d): err=%v want ErrInvalidDimensions", tc.w, tc.h, tc.levels, err)
		}
	}
}

func TestGenerate_PassageSymmetry(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		for _, s := range shapes {
			g, err := Generate(s.w, s.h, s.levels, s.mode, rand.New(rand.NewSource(seed)))
			require.NoError(t, err)

			for l := 0; l < g.Levels; l++ {
				for r := 0; r < g.Height; r++ {
					for c := 0; c < g.Width; c++ {
						here := Coord{Level: l, Row: r, Col: c}
						for _, d := range AllDirections() {
							n, ok := g.Neighbor(here, d)
							if !ok {
								if g.At(here).Has(d) {
									require.Truef(t, g.IsPortal(here, d), "seed=%d %v: open %s off the grid", seed, here, d)
								}
								continue
							}
							assert.Equalf(t, g.At(here).Has(d), g.At(n).Has(d.Opposite()),
								"seed=%d shape=%v cell=%v dir=%s", seed, s, here, d)
						}
					}
				}
			}
		}
	}
}

func TestGenerate_EveryCellReachable3D(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		for _, s := range shapes {
			if s.mode != Mode3D {
				continue
			}
			g, err := Generate(s.w, s.h, s.levels, s.mode, rand.New(rand.NewSource(seed)))
			require.NoError(t, err)
			require.Zerof(t, Unreachable(g.LevelMazes()), "seed=%d shape=%v", seed, s)
		}
	}
}

func TestGenerate_EachLevelConnected2D(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		g, err := Generate(9, 7, 3, Mode2D, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		levels := g.LevelMazes()
		for l := range levels {
			got := Reachable(levels, Coord{Level: l}).Size()
			require.Equalf(t, 9*7, got, "seed=%d level=%d", seed, l)
		}
	}
}

func TestGenerate_2DWithHolesReachesEverything(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		rng := rand.New(rand.NewSource(seed))
		g, err := Generate(6, 6, 4, Mode2D, rng)
		require.NoError(t, err)
		levels := g.LevelMazes()
		require.Equal(t, 3*2, InjectHoles(levels, 2, rng))
		require.Zerof(t, Unreachable(levels), "seed=%d", seed)
	}
}

func TestGenerate_EntranceAndExitOpen(t *testing.T) {
	for seed := int64(1); seed <= 30; seed++ {
		for _, s := range shapes {
			g, err := Generate(s.w, s.h, s.levels, s.mode, rand.New(rand.NewSource(seed)))
			require.NoError(t, err)

			if s.levels == 1 {
				assert.Equal(t, Portal{Coord: Coord{}, Side: West}, g.Entrance)
				assert.Equal(t, Portal{Coord: Coord{Row: s.h - 1, Col: s.w - 1}, Side: East}, g.Exit)
			} else {
				assert.Equal(t, Portal{Coord: Coord{}, Side: North}, g.Entrance)
				assert.Equal(t, Portal{Coord: Coord{Level: s.levels - 1, Row: s.h - 1, Col: s.w - 1}, Side: South}, g.Exit)
			}
			assert.True(t, g.At(g.Entrance.Coord).Has(g.Entrance.Side))
			assert.True(t, g.At(g.Exit.Coord).Has(g.Exit.Side))
		}
	}
}

func TestGenerate_ExitLinkedInward(t *testing.T) {
	for seed := int64(1); seed <= 30; seed++ {
		for _, s := range shapes {
			if s.w*s.h*s.levels == 1 || (s.mode == Mode2D && s.w*s.h == 1) {
				continue
			}
			g, err := Generate(s.w, s.h, s.levels, s.mode, rand.New(rand.NewSource(seed)))
			require.NoError(t, err)
			inward := 0
			for _, d := range AllDirections() {
				if _, ok := g.Neighbor(g.Exit.Coord, d); ok && g.At(g.Exit.Coord).Has(d) {
					inward++
				}
			}
			require.Positivef(t, inward, "seed=%d shape=%v", seed, s)
		}
	}
}

func TestGenerate_SameSeedSameGrid(t *testing.T) {
	a, err := Generate(10, 8, 3, Mode3D, rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	b, err := Generate(10, 8, 3, Mode3D, rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	require.Equal(t, a.Cells, b.Cells)
}

func TestGenerate_2DHasNoVerticalPassages(t *testing.T) {
	g, err := Generate(7, 7, 3, Mode2D, rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	for _, level := range g.Cells {
		for _, row := range level {
			for _, c := range row {
				require.False(t, c.Has(Up) || c.Has(Down))
			}
		}
	}
}

func TestDirection_OppositeAndOffset(t *testing.T) {
	for _, d := range AllDirections() {
		require.Equal(t, d, d.Opposite().Opposite())
		dx, dy, dz := d.Offset()
		ox, oy, oz := d.Opposite().Offset()
		require.Equal(t, [3]int{-dx, -dy, -dz}, [3]int{ox, oy, oz})
	}
	require.Equal(t, NoDir, NoDir.Opposite())
	require.Equal(t, Cell(1), North.Bit())
	require.Equal(t, Cell(32), Down.Bit())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("3D")
	require.NoError(t, err)
	require.Equal(t, Mode3D, m)
	m, err = ParseMode("")
	require.NoError(t, err)
	require.Equal(t, Mode2D, m)
	_, err = ParseMode("4d")
	require.Error(t, err)
}
