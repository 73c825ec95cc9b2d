// Package lod вычисляет концентрические оболочки уровней детализации вокруг
// наблюдателя: какие ключи чанков принадлежат оболочке и какие ключи входят в
// неё при перемещении центра.
//
// Оболочка 0 это куб (расстояние Чебышёва), оболочки начиная с 1 это сферические
// слои (евклидово расстояние). Оболочка 1 дополнительно исключает куб
// оболочки 0, поэтому уровни делят пространство без пропусков и пересечений.
package lod

import (
	"errors"
	"fmt"

	"github.com/annel0/voxel-terrain/internal/vec"
)

// ErrInvalidRanges возвращается Ranges.Validate
var ErrInvalidRanges = errors.New("некорректная таблица дальностей LOD")

// Ranges возрастающая таблица порогов расстояния [0, r1, r2, ..., rn].
// Оболочка i занимает полосу ranges[i] < d <= ranges[i+1].
type Ranges []int64

// Validate проверяет таблицу: минимум два элемента, ranges[0] == 0, строгое
// возрастание. При наличии оболочки 2 куб оболочки 0 обязан помещаться в сферу
// радиуса ranges[2] (3*r1² <= r2²), иначе углы куба попадут в две оболочки.
func (r Ranges) Validate() error {
	if len(r) < 2 {
		return fmt.Errorf("%w: нужно минимум два порога, получено %d", ErrInvalidRanges, len(r))
	}
	if r[0] != 0 {
		return fmt.Errorf("%w: ranges[0] должен быть 0, получено %d", ErrInvalidRanges, r[0])
	}
	for i := 1; i < len(r); i++ {
		if r[i] <= r[i-1] {
			return fmt.Errorf("%w: ranges[%d]=%d не больше ranges[%d]=%d", ErrInvalidRanges, i, r[i], i-1, r[i-1])
		}
	}
	if len(r) >= 4 && 3*r[1]*r[1] > r[2]*r[2] {
		return fmt.Errorf("%w: куб радиуса %d не помещается в сферу радиуса %d", ErrInvalidRanges, r[1], r[2])
	}
	return nil
}

// Levels возвращает число оболочек
func (r Ranges) Levels() int {
	if len(r) < 2 {
		return 0
	}
	return len(r) - 1
}

// MaxRange возвращает внешний радиус последней оболочки
func (r Ranges) MaxRange() int64 {
	if len(r) == 0 {
		return 0
	}
	return r[len(r)-1]
}

// TileDistance расстояние Чебышёва между ключами
func TileDistance(a, b vec.Vec3) int64 {
	return max(abs(a.X-b.X), abs(a.Y-b.Y), abs(a.Z-b.Z))
}

// EuclidInRange проверяет min² < |a-b|² <= max². Нижняя граница строгая,
// верхняя включительная, чтобы соседние оболочки не пересекались на границе.
func EuclidInRange(a, b vec.Vec3, minRange, maxRange int64) bool {
	d := a.DistanceSq(b)
	return minRange*minRange < d && d <= maxRange*maxRange
}

// InShell проверяет, принадлежит ли ключ оболочке level вокруг center.
// Уровни вне таблицы не содержат ни одного ключа.
func InShell(center, key vec.Vec3, ranges Ranges, level int) bool {
	if level < 0 || level >= ranges.Levels() {
		return false
	}

	switch level {
	case 0:
		return TileDistance(center, key) <= ranges[1]
	case 1:
		return TileDistance(center, key) > ranges[1] && EuclidInRange(center, key, ranges[1], ranges[2])
	default:
		return EuclidInRange(center, key, ranges[level], ranges[level+1])
	}
}

// LevelOf возвращает оболочку, которой принадлежит ключ
func LevelOf(center, key vec.Vec3, ranges Ranges) (int, bool) {
	for level := 0; level < ranges.Levels(); level++ {
		if InShell(center, key, ranges, level) {
			return level, true
		}
	}
	return 0, false
}

// KeysInShell перечисляет ключи оболочки в порядке x, y, z.
func KeysInShell(center vec.Vec3, ranges Ranges, level int) []vec.Vec3 {
	var keys []vec.Vec3
	forEachInBox(center, ranges, level, func(key vec.Vec3) {
		if InShell(center, key, ranges, level) {
			keys = append(keys, key)
		}
	})
	return keys
}

// DeltaKeys возвращает ключи, которые вошли в оболочку при перемещении центра
// из prevCenter в center. Полные множества не строятся: каждый ключ новой
// оболочки проверяется предикатом относительно старого центра.
func DeltaKeys(prevCenter, center vec.Vec3, ranges Ranges, level int) []vec.Vec3 {
	if prevCenter.Equals(center) {
		return nil
	}

	var keys []vec.Vec3
	forEachInBox(center, ranges, level, func(key vec.Vec3) {
		if InShell(center, key, ranges, level) && !InShell(prevCenter, key, ranges, level) {
			keys = append(keys, key)
		}
	})
	return keys
}

// LeavingKeys возвращает ключи, покинувшие оболочку при перемещении центра.
func LeavingKeys(prevCenter, center vec.Vec3, ranges Ranges, level int) []vec.Vec3 {
	return DeltaKeys(center, prevCenter, ranges, level)
}

func forEachInBox(center vec.Vec3, ranges Ranges, level int, fn func(vec.Vec3)) {
	if level < 0 || level >= ranges.Levels() {
		return
	}
	r := ranges[level+1]
	for x := center.X - r; x <= center.X+r; x++ {
		for y := center.Y - r; y <= center.Y+r; y++ {
			for z := center.Z - r; z <= center.Z+r; z++ {
				fn(vec.Vec3{X: x, Y: y, Z: z})
			}
		}
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
