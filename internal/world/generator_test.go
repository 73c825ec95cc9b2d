package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-terrain/internal/config"
	"github.com/annel0/voxel-terrain/internal/util"
	"github.com/annel0/voxel-terrain/internal/vec"
	"github.com/annel0/voxel-terrain/internal/voxel"
)

// flatGenerator строит плоский рельеф: твердь ниже мировой высоты height
func flatGenerator(depth int, height float64) *Generator {
	return NewGenerator(depth, util.NewHeightNoise(1, 0, 0, 0), GeneratorParams{
		NoiseScale: 0.05,
		BaseHeight: height,
		Material:   1,
	})
}

func TestGenerateDeterministic(t *testing.T) {
	cfg := config.Default()
	a := NewGeneratorFromConfig(cfg)
	b := NewGeneratorFromConfig(cfg)

	keys := []vec.Vec3{{}, {X: -3, Y: 0, Z: 2}, {X: 5, Y: -1, Z: -7}}
	for _, key := range keys {
		for lod := 0; lod <= 2; lod++ {
			ca, cb := a.Generate(key, lod), b.Generate(key, lod)
			rawA, err := ca.MarshalBinary()
			require.NoError(t, err)
			rawB, err := cb.MarshalBinary()
			require.NoError(t, err)

			assert.Equal(t, rawA, rawB, "ключ %s lod %d", key, lod)
			assert.Equal(t, ca.Mode, cb.Mode)
			assert.Equal(t, ca.IsDefault, cb.IsDefault)
		}
	}
}

func TestGenerateSeedChangesTerrain(t *testing.T) {
	cfg := config.Default()
	a := NewGeneratorFromConfig(cfg)
	cfg.World.Seed++
	b := NewGeneratorFromConfig(cfg)

	differs := false
	for x := int64(0); x < 64 && !differs; x++ {
		differs = a.Elevation(x, x*3+1) != b.Elevation(x, x*3+1)
	}
	assert.True(t, differs)
	assert.Equal(t, cfg.World.Seed, b.Seed())
}

func TestGenerateFlatTerrainModes(t *testing.T) {
	g := flatGenerator(4, 5)

	surface := g.Generate(vec.Vec3{}, 0)
	assert.Equal(t, ModeMixed, surface.Mode)
	assert.False(t, surface.IsDefault, "Чанк с вариациями не по умолчанию")
	assert.False(t, surface.Edited)
	for y := 0; y < 16; y++ {
		want := voxel.Air
		if y < 5 {
			want = 1
		}
		assert.Equal(t, want, surface.Grid.Get(3, y, 11), "y=%d", y)
	}

	sky := g.Generate(vec.Vec3{Y: 2}, 0)
	assert.Equal(t, ModeEmpty, sky.Mode)
	assert.True(t, sky.IsDefault)
	assert.Equal(t, 1, sky.Grid.NodeCount(), "Пустой чанк схлопывается в один узел")

	ground := g.Generate(vec.Vec3{Y: -3}, 0)
	assert.Equal(t, ModeEmpty, ground.Mode)
	assert.True(t, ground.IsDefault)
	m, uniform := ground.Grid.Uniform()
	assert.True(t, uniform)
	assert.Equal(t, voxel.Material(1), m)
}

func TestGenerateLODStride(t *testing.T) {
	g := flatGenerator(4, 5)

	// На lod 2 воксели берут значение из угла блока 4: y=4..7 читают y=4 (< 5)
	coarse := g.Generate(vec.Vec3{}, 2)
	assert.Equal(t, 2, coarse.LOD)
	for y := 0; y < 16; y++ {
		want := voxel.Air
		if y < 8 {
			want = 1
		}
		assert.Equal(t, want, coarse.Grid.Get(0, y, 0), "y=%d", y)
	}

	clamped := g.Generate(vec.Vec3{}, 99)
	assert.Equal(t, 4, clamped.LOD)
	assert.Equal(t, 0, g.Generate(vec.Vec3{}, -1).LOD)
}

func TestGenerateBordersAgreeBetweenNeighbours(t *testing.T) {
	g := NewGeneratorFromConfig(config.Default())
	s := int(SeamlessSize(g.Depth()))
	size := 1 << g.Depth()

	// Точка (s, a, b) нижнего чанка и (0, a, b) верхнего по оси axis
	at := func(axis, along, a, b int) (int, int, int) {
		switch axis {
		case 0:
			return along, a, b
		case 1:
			return a, along, b
		default:
			return a, b, along
		}
	}
	steps := []vec.Vec3{{X: 1}, {Y: 1}, {Z: 1}}
	bases := []vec.Vec3{{}, {X: -1, Y: -1, Z: -1}, {X: 3, Y: 0, Z: -2}}

	for lod := 0; lod <= g.Depth(); lod++ {
		for axis, step := range steps {
			for _, base := range bases {
				lower := g.Generate(base, lod)
				upper := g.Generate(base.Add(step), lod)
				mismatched := 0
				for a := 0; a < size; a++ {
					for b := 0; b < size; b++ {
						for d := 0; d < size-s; d++ {
							lx, ly, lz := at(axis, s+d, a, b)
							ux, uy, uz := at(axis, d, a, b)
							if lower.Grid.Get(lx, ly, lz) != upper.Grid.Get(ux, uy, uz) {
								mismatched++
							}
						}
					}
				}
				assert.Zero(t, mismatched, "lod %d, ось %d, ключ %s", lod, axis, base)
			}
		}
	}
}

func TestGenerateLODSamplesAlignedToWorld(t *testing.T) {
	// Чанк Y=1 начинается с мировой y=14, не кратной шагу 4: воксели y=14 и 15
	// читают отсчёт 12 и остаются твердью при высоте 13
	g := flatGenerator(4, 13)
	c := g.Generate(vec.Vec3{Y: 1}, 2)
	for y := 0; y < 16; y++ {
		wy := 14 + y
		want := voxel.Air
		if wy/4*4 < 13 {
			want = 1
		}
		assert.Equal(t, want, c.Grid.Get(2, y, 2), "мировая y=%d", wy)
	}
	assert.Equal(t, ModeMixed, c.Mode)
}
