package world

import (
	"github.com/annel0/voxel-terrain/internal/config"
	"github.com/annel0/voxel-terrain/internal/util"
	"github.com/annel0/voxel-terrain/internal/vec"
	"github.com/annel0/voxel-terrain/internal/voxel"
)

// GeneratorParams параметры карты высот
type GeneratorParams struct {
	NoiseScale  float64           // Масштаб шума (чем меньше, тем глаже рельеф)
	BaseHeight  float64           // Высота при нулевом шуме
	Amplitude   float64           // Размах высот
	Material    voxel.Material    // Материал тверди
	Compression voxel.Compression // Политика слияния узлов при заполнении
}

// Generator процедурно заполняет чанки по карте высот.
// Результат зависит только от ключа, уровня LOD и сида, поэтому один
// генератор можно вызывать из нескольких горутин.
type Generator struct {
	depth  int
	noise  *util.HeightNoise
	params GeneratorParams
}

// NewGenerator создаёт генератор для мира глубины depth
func NewGenerator(depth int, noise *util.HeightNoise, params GeneratorParams) *Generator {
	if params.NoiseScale <= 0 {
		params.NoiseScale = 0.05
	}
	if params.Material == voxel.Air {
		params.Material = 1
	}
	return &Generator{
		depth:  depth,
		noise:  noise,
		params: params,
	}
}

// NewGeneratorFromConfig собирает генератор из секций world и generator конфигурации
func NewGeneratorFromConfig(cfg *config.Config) *Generator {
	noise := util.NewHeightNoise(cfg.World.Seed, cfg.Generator.Alpha, cfg.Generator.Beta, cfg.Generator.Octaves)

	policy := voxel.CompressExact
	if cfg.World.Compression == voxel.CompressRepresentative.String() {
		policy = voxel.CompressRepresentative
	}

	return NewGenerator(cfg.World.Depth, noise, GeneratorParams{
		NoiseScale:  cfg.Generator.NoiseScale,
		BaseHeight:  cfg.Generator.BaseHeight,
		Amplitude:   cfg.Generator.Amplitude,
		Material:    cfg.Generator.Material,
		Compression: policy,
	})
}

// Depth возвращает глубину сеток мира
func (g *Generator) Depth() int {
	return g.depth
}

// Seed возвращает сид шума
func (g *Generator) Seed() int64 {
	return g.noise.Seed()
}

// Elevation высота поверхности в мировой колонке (x, z)
func (g *Generator) Elevation(x, z int64) float64 {
	n := g.noise.Noise2D(float64(x)*g.params.NoiseScale, float64(z)*g.params.NoiseScale)
	return g.params.BaseHeight + g.params.Amplitude*n
}

// Generate строит чанк key на уровне детализации lod.
//
// На уровне lod шаг выборки равен 2^lod: воксель берёт значение из угла своего
// блока шага. Блоки выровнены по мировым координатам, поэтому дублированная
// граница соседей одного уровня читает одни и те же отсчёты.
// Чанк без вариаций получает ModeEmpty и остаётся IsDefault.
func (g *Generator) Generate(key vec.Vec3, lod int) *Chunk {
	if lod < 0 {
		lod = 0
	}
	if lod > g.depth {
		lod = g.depth
	}
	size := 1 << g.depth
	stride := 1 << lod
	origin := KeyOrigin(key, SeamlessSize(g.depth))

	heights := make([]float64, size*size)
	for z := 0; z < size; z++ {
		sz := snapToStride(origin.Z+int64(z), stride)
		for x := 0; x < size; x++ {
			sx := snapToStride(origin.X+int64(x), stride)
			heights[x+z*size] = g.Elevation(sx, sz)
		}
	}

	var solid, empty bool
	fill := func(x, y, z int) voxel.Material {
		sy := snapToStride(origin.Y+int64(y), stride)
		if float64(sy) < heights[x+z*size] {
			solid = true
			return g.params.Material
		}
		empty = true
		return voxel.Air
	}

	c := &Chunk{
		Key:  key,
		Grid: voxel.NewFromFill(g.depth, fill, g.params.Compression),
		LOD:  lod,
	}
	if solid && empty {
		c.Mode = ModeMixed
	} else {
		c.Mode = ModeEmpty
		c.IsDefault = true
	}
	return c
}

// snapToStride округляет мировую координату вниз до кратного stride
func snapToStride(p int64, stride int) int64 {
	return floorDiv(p, int64(stride)) * int64(stride)
}
