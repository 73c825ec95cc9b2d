package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxel-terrain/internal/voxel"
)

// MissingColor цвет материала, которого нет в палитре
var MissingColor = mgl32.Vec3{1, 0, 1}

// Palette цвета материалов, индекс равен идентификатору материала
type Palette []mgl32.Vec3

// NewPalette строит палитру из RGB-троек конфигурации
func NewPalette(rgb [][3]float32) Palette {
	p := make(Palette, len(rgb))
	for i, c := range rgb {
		p[i] = mgl32.Vec3{c[0], c[1], c[2]}
	}
	return p
}

// Color возвращает цвет материала
func (p Palette) Color(m voxel.Material) mgl32.Vec3 {
	if int(m) >= len(p) {
		return MissingColor
	}
	return p[m]
}

// blend усредняет цвета всех различных ненулевых материалов в углах ячейки
func (p Palette) blend(corners *[8]voxel.Material) mgl32.Vec3 {
	var seen [256]bool
	var sum mgl32.Vec3
	count := 0
	for _, m := range corners {
		if m == voxel.Air || seen[m] {
			continue
		}
		seen[m] = true
		sum = sum.Add(p.Color(m))
		count++
	}
	if count == 0 {
		return MissingColor
	}
	return sum.Mul(1 / float32(count))
}
