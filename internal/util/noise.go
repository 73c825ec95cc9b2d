package util

import (
	"github.com/aquilax/go-perlin"
)

// Параметры шума Перлина по умолчанию
const (
	DefaultNoiseAlpha   = 2.0 // Сглаживание шума
	DefaultNoiseBeta    = 2.0 // Частота шума
	DefaultNoiseOctaves = 3   // Количество октав
)

// HeightNoise двумерный когерентный шум для карты высот.
// Сид передаётся явно, глобального состояния нет. После создания
// генератор только читается, поэтому его можно использовать из нескольких горутин.
type HeightNoise struct {
	seed   int64
	perlin *perlin.Perlin
}

// NewHeightNoise создаёт генератор шума Перлина с указанным сидом и параметрами.
// Неположительные alpha, beta или octaves заменяются значениями по умолчанию.
func NewHeightNoise(seed int64, alpha, beta float64, octaves int) *HeightNoise {
	if alpha <= 0 {
		alpha = DefaultNoiseAlpha
	}
	if beta <= 0 {
		beta = DefaultNoiseBeta
	}
	if octaves <= 0 {
		octaves = DefaultNoiseOctaves
	}
	return &HeightNoise{
		seed:   seed,
		perlin: perlin.NewPerlin(alpha, beta, int32(octaves), seed),
	}
}

// Seed возвращает сид генератора
func (n *HeightNoise) Seed() int64 {
	return n.seed
}

// Noise2D возвращает значение шума Перлина для указанных координат (от 0 до 1)
func (n *HeightNoise) Noise2D(x, y float64) float64 {
	// Значение шума примерно от -1 до 1
	v := (n.perlin.Noise2D(x, y) + 1.0) / 2.0
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
