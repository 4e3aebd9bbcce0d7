package maze

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHoleCells_DerivedFrom3DPassages(t *testing.T) {
	g, err := Generate(1, 1, 2, Mode3D, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	levels := g.LevelMazes()

	bottom := HoleCells(levels[0], 2)
	top := HoleCells(levels[1], 2)
	require.Equal(t, []HoleCell{{X: 0, Y: 0, HasUp: true}}, bottom)
	require.Equal(t, []HoleCell{{X: 0, Y: 0, HasDown: true}}, top)
}

func TestHoleCells_IgnoresConnectionsPastTheStack(t *testing.T) {
	lm := NewLevelMaze(2, 1, 0)
	lm.Cells[0][0].Walls = DownBit
	lm.Cells[0][1].HasUp = true
	require.Empty(t, HoleCells(lm, 1))

	lm.Level = 0
	require.Equal(t, []HoleCell{{X: 1, Y: 0, HasUp: true}}, HoleCells(lm, 2))
}

func TestHoleCells_MatchAcrossLevels3D(t *testing.T) {
	g, err := Generate(8, 6, 4, Mode3D, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	levels := g.LevelMazes()
	for l := 0; l+1 < len(levels); l++ {
		ups := map[[2]int]bool{}
		for _, h := range HoleCells(levels[l], len(levels)) {
			if h.HasUp {
				ups[[2]int{h.X, h.Y}] = true
			}
		}
		downs := map[[2]int]bool{}
		for _, h := range HoleCells(levels[l+1], len(levels)) {
			if h.HasDown {
				downs[[2]int{h.X, h.Y}] = true
			}
		}
		require.Equal(t, ups, downs, "level %d/%d", l, l+1)
		require.NotEmpty(t, ups, "3D carve must join level %d to %d", l, l+1)
	}
}

func TestInjectHoles_InteriorOnlyAndPaired(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	g, err := Generate(7, 6, 3, Mode2D, rng)
	require.NoError(t, err)
	levels := g.LevelMazes()

	n := InjectHoles(levels, 3, rng)
	require.Equal(t, 6, n)

	for l, lm := range levels {
		for _, h := range HoleCells(lm, len(levels)) {
			require.Greater(t, h.X, 0)
			require.Greater(t, h.Y, 0)
			require.Less(t, h.X, lm.Width-1)
			require.Less(t, h.Y, lm.Height-1)
			if h.HasUp {
				require.True(t, levels[l+1].At(h.X, h.Y).HasDown)
			}
			if h.HasDown {
				require.True(t, levels[l-1].At(h.X, h.Y).HasUp)
			}
		}
	}

	ups := 0
	for _, h := range HoleCells(levels[0], len(levels)) {
		if h.HasUp {
			ups++
		}
	}
	require.Equal(t, 3, ups)
}

func TestInjectHoles_CapsAtPoolSize(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	g, err := Generate(3, 3, 2, Mode2D, rng)
	require.NoError(t, err)
	levels := g.LevelMazes()
	require.Equal(t, 1, InjectHoles(levels, 5, rng))
	require.True(t, levels[0].At(1, 1).HasUp)
	require.True(t, levels[1].At(1, 1).HasDown)
}

func TestInjectHoles_NoInteriorNoHoles(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	g, err := Generate(2, 5, 3, Mode2D, rng)
	require.NoError(t, err)
	require.Zero(t, InjectHoles(g.LevelMazes(), 4, rng))
	require.Zero(t, InjectHoles(g.LevelMazes(), 0, rng))
}

func TestInjectHoles_WrapsPoolAcrossPairs(t *testing.T) {
	// A 4x4 level has a 2x2 interior, so every pair past the first reuses cells.
	for _, tc := range []struct {
		perLevel, take int
	}{
		{3, 3},
		{4, 4},
		{10, 4},
		{math.MaxInt, 4},
	} {
		rng := rand.New(rand.NewSource(1))
		g, err := Generate(4, 4, 5, Mode2D, rng)
		require.NoError(t, err)
		levels := g.LevelMazes()

		var n int
		require.NotPanics(t, func() { n = InjectHoles(levels, tc.perLevel, rng) }, "holesPerLevel=%d", tc.perLevel)
		require.Equal(t, 4*tc.take, n, "holesPerLevel=%d", tc.perLevel)

		var sets []map[[2]int]bool
		for l := 0; l+1 < len(levels); l++ {
			ups := map[[2]int]bool{}
			for _, h := range HoleCells(levels[l], len(levels)) {
				if h.HasUp {
					ups[[2]int{h.X, h.Y}] = true
					require.True(t, levels[l+1].At(h.X, h.Y).HasDown)
				}
			}
			require.Len(t, ups, tc.take, "holesPerLevel=%d pair %d", tc.perLevel, l)
			sets = append(sets, ups)
		}
		if tc.take < 4 {
			require.NotEqual(t, sets[0], sets[1], "consecutive pairs should start at different pool offsets")
		}
	}
}
