// Package mesh строит треугольную поверхность сетки вокселей методом surface nets.
//
// В каждой двойной ячейке (2x2x2 точки сетки) со смешанной занятостью ставится
// одна вершина: среднее точек пересечения поверхности с рёбрами ячейки. Для
// каждого ребра сетки, на котором занятость меняется, четыре ячейки вокруг ребра
// дают квад. Треугольники ориентированы наружу от твёрдого материала.
package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxel-terrain/internal/vec"
	"github.com/annel0/voxel-terrain/internal/voxel"
)

// Volume источник вокселей для построения сетки. *voxel.Grid удовлетворяет ему.
type Volume interface {
	Size() int
	Flatten(dst []voxel.Material) []voxel.Material
}

const noVertex = int32(-1)

// Значения поля: твердь отрицательна, воздух положителен
const (
	solidValue = -1
	emptyValue = 1
)

// Смещения восьми углов ячейки, биты 0..2 соответствуют осям x, y, z
var cornerOffsets = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
}

// Двенадцать рёбер ячейки как пары номеров углов
var cubeEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7}, // вдоль x
	{0, 2}, {1, 3}, {4, 6}, {5, 7}, // вдоль y
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // вдоль z
}

// MeshData результат построения. Позиции заданы в локальных координатах чанка
// (единицы сетки, умноженные на масштаб).
type MeshData struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Colors    []mgl32.Vec3
	Indices   []uint32
	Key       vec.Vec3
	LOD       int
}

// IsEmpty сообщает, что геометрии нет. Это штатный результат для однородного чанка.
func (m *MeshData) IsEmpty() bool {
	return len(m.Indices) == 0
}

// TriangleCount возвращает число треугольников
func (m *MeshData) TriangleCount() int {
	return len(m.Indices) / 3
}

// Scratch переиспользуемые буферы одного вызова мешера.
// Один Scratch нельзя отдавать двум параллельным вызовам.
type Scratch struct {
	size      int
	materials []voxel.Material
	vertices  []int32 // индекс вершины ячейки или noVertex
}

// NewScratch выделяет буферы под сетку размера size
func NewScratch(size int) *Scratch {
	n := size * size * size
	return &Scratch{
		size:      size,
		materials: make([]voxel.Material, n),
		vertices:  make([]int32, n),
	}
}

// Size возвращает размер сетки, под который выделены буферы
func (s *Scratch) Size() int {
	return s.size
}

// SurfaceMesher строит сетки с общей палитрой и масштабом
type SurfaceMesher struct {
	Palette Palette
	Scale   float32
}

// NewSurfaceMesher создаёт мешер. Неположительный масштаб заменяется на 1.
func NewSurfaceMesher(palette Palette, scale float32) *SurfaceMesher {
	if scale <= 0 {
		scale = 1
	}
	return &SurfaceMesher{Palette: palette, Scale: scale}
}

// Mesh строит поверхность объёма. scratch может быть nil или другого размера,
// тогда буферы выделяются заново. Возвращаемые срезы принадлежат вызывающему.
func (m *SurfaceMesher) Mesh(vol Volume, scratch *Scratch, key vec.Vec3, lod int) *MeshData {
	out := &MeshData{Key: key, LOD: lod}

	n := vol.Size()
	if n < 2 {
		return out
	}
	if scratch == nil || scratch.size != n {
		scratch = NewScratch(n)
	}
	scratch.materials = vol.Flatten(scratch.materials)

	b := builder{
		mesher:    m,
		n:         n,
		materials: scratch.materials,
		vertices:  scratch.vertices,
		out:       out,
	}
	if !b.placeVertices() {
		return out
	}
	b.emitQuads()
	return out
}

type builder struct {
	mesher    *SurfaceMesher
	n         int
	materials []voxel.Material
	vertices  []int32
	out       *MeshData
}

func (b *builder) index(x, y, z int) int {
	return voxel.Index(b.n, x, y, z)
}

func (b *builder) solid(x, y, z int) bool {
	return b.materials[b.index(x, y, z)] != voxel.Air
}

// placeVertices ставит вершину в каждую смешанную ячейку. Ячейка адресуется
// своим минимальным углом 0..n-2. Возвращает false, если поверхности нет.
func (b *builder) placeVertices() bool {
	for i := range b.vertices {
		b.vertices[i] = noVertex
	}

	var corners [8]voxel.Material
	found := false
	for z := 0; z < b.n-1; z++ {
		for y := 0; y < b.n-1; y++ {
			for x := 0; x < b.n-1; x++ {
				solidCount := 0
				for c, off := range cornerOffsets {
					corners[c] = b.materials[b.index(x+off[0], y+off[1], z+off[2])]
					if corners[c] != voxel.Air {
						solidCount++
					}
				}
				if solidCount == 0 || solidCount == 8 {
					continue
				}

				b.vertices[b.index(x, y, z)] = int32(len(b.out.Positions))
				b.out.Positions = append(b.out.Positions, b.cellVertex(x, y, z, &corners))
				b.out.Normals = append(b.out.Normals, cellNormal(&corners))
				b.out.Colors = append(b.out.Colors, b.mesher.Palette.blend(&corners))
				found = true
			}
		}
	}
	return found
}

// cellVertex среднее точек пересечения на рёбрах со сменой занятости.
// Точка на ребре v1->v2 лежит на доле v1/(v1-v2) от первого угла.
func (b *builder) cellVertex(x, y, z int, corners *[8]voxel.Material) mgl32.Vec3 {
	var sum mgl32.Vec3
	count := 0
	for _, e := range cubeEdges {
		a, c := corners[e[0]], corners[e[1]]
		if (a != voxel.Air) == (c != voxel.Air) {
			continue
		}
		v1, v2 := value(a), value(c)
		t := v1 / (v1 - v2)
		pa, pc := cornerOffsets[e[0]], cornerOffsets[e[1]]
		sum = sum.Add(mgl32.Vec3{
			float32(pa[0]) + t*float32(pc[0]-pa[0]),
			float32(pa[1]) + t*float32(pc[1]-pa[1]),
			float32(pa[2]) + t*float32(pc[2]-pa[2]),
		})
		count++
	}

	local := sum.Mul(1 / float32(count))
	return mgl32.Vec3{
		float32(x) + local[0],
		float32(y) + local[1],
		float32(z) + local[2],
	}.Mul(b.mesher.Scale)
}

// cellNormal градиент поля по восьми углам: по каждой оси сумма значений
// на дальней грани минус сумма на ближней. Направлен из тверди в воздух.
func cellNormal(corners *[8]voxel.Material) mgl32.Vec3 {
	var g mgl32.Vec3
	for c, off := range cornerOffsets {
		v := value(corners[c])
		for axis := 0; axis < 3; axis++ {
			if off[axis] == 1 {
				g[axis] += v
			} else {
				g[axis] -= v
			}
		}
	}
	if g.Len() == 0 {
		return mgl32.Vec3{0, 1, 0}
	}
	return g.Normalize()
}

func value(m voxel.Material) float32 {
	if m != voxel.Air {
		return solidValue
	}
	return emptyValue
}

// emitQuads выпускает квад для каждого ребра сетки p -> p+e(axis), на котором
// меняется занятость. Квад собирается из ячеек p, p-u, p-v, p-u-v, где u и v
// две другие оси в циклическом порядке. Рёбра с нулевой координатой по u или v
// пропускаются: их ячеек в этой сетке нет, грань строит соседний чанк по
// своей дублированной границе. Ребро n-2 -> n-1 целиком лежит в верхней
// дублированной границе, его строит сосед по +axis как ребро 0 -> 1.
func (b *builder) emitQuads() {
	for axis := 0; axis < 3; axis++ {
		u, v := (axis+1)%3, (axis+2)%3
		for z := 0; z < b.n-1; z++ {
			for y := 0; y < b.n-1; y++ {
				for x := 0; x < b.n-1; x++ {
					p := [3]int{x, y, z}
					if p[u] == 0 || p[v] == 0 || p[axis] == b.n-2 {
						continue
					}
					q := p
					q[axis]++

					from := b.solid(p[0], p[1], p[2])
					if from == b.solid(q[0], q[1], q[2]) {
						continue
					}
					b.emitQuad(p, u, v, from)
				}
			}
		}
	}
}

// emitQuad добавляет два треугольника вокруг ребра, начинающегося в p.
// Если твердь в начале ребра, поверхность смотрит в +axis и обход (v0,v1,v2),
// (v0,v2,v3) идёт против часовой стрелки со стороны воздуха; иначе обход обратный.
func (b *builder) emitQuad(p [3]int, u, v int, solidFirst bool) {
	cell := func(du, dv int) int32 {
		c := p
		c[u] -= du
		c[v] -= dv
		return b.vertices[b.index(c[0], c[1], c[2])]
	}
	v0, v1, v2, v3 := cell(1, 1), cell(0, 1), cell(0, 0), cell(1, 0)
	if v0 == noVertex || v1 == noVertex || v2 == noVertex || v3 == noVertex {
		return
	}

	i0, i1, i2, i3 := uint32(v0), uint32(v1), uint32(v2), uint32(v3)
	if solidFirst {
		b.out.Indices = append(b.out.Indices, i0, i1, i2, i0, i2, i3)
	} else {
		b.out.Indices = append(b.out.Indices, i0, i3, i2, i0, i2, i1)
	}
}
