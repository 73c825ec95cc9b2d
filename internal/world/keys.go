package world

import (
	"github.com/annel0/voxel-terrain/internal/vec"
)

// Offset число граничных слоёв, которые соседние чанки дублируют по каждой оси.
// Бесшовный размер чанка на Offset меньше размера его сетки.
const Offset = 2

// SeamlessSize возвращает логический (неперекрывающийся) размер чанка для глубины сетки.
func SeamlessSize(depth int) int64 {
	return int64(1)<<depth - Offset
}

// VoxelPosToKey возвращает ключ чанка, которому принадлежит мировая координата вокселя.
// Деление выполняется с округлением вниз, поэтому границы ключей симметричны
// относительно нуля: -1 попадает в ключ -1, а не в 0.
func VoxelPosToKey(pos vec.Vec3, seamless int64) vec.Vec3 {
	return vec.Vec3{
		X: floorDiv(pos.X, seamless),
		Y: floorDiv(pos.Y, seamless),
		Z: floorDiv(pos.Z, seamless),
	}
}

// KeyOrigin возвращает мировую координату локального вокселя (0,0,0) чанка.
func KeyOrigin(key vec.Vec3, seamless int64) vec.Vec3 {
	return key.Mul(seamless)
}

// LocalCoord переводит мировую координату в локальную координату сетки чанка key.
// Результат может лежать вне сетки: проверка остаётся за вызывающим.
func LocalCoord(pos, key vec.Vec3, seamless int64) vec.Vec3 {
	return pos.Sub(KeyOrigin(key, seamless))
}

// VoxelFromWorld переводит позицию в мировых единицах в координату вокселя.
// scale задаёт размер вокселя; неположительный масштаб считается равным 1.
func VoxelFromWorld(pos vec.Vec3Float, scale float64) vec.Vec3 {
	if scale <= 0 {
		scale = 1
	}
	return pos.Mul(1 / scale).Floor()
}

// keyRange возвращает диапазон ключей [lo, hi] по одной оси, в сетках которых
// лежит координата p: 0 <= p - k*seamless < size.
func keyRange(p, size, seamless int64) (lo, hi int64) {
	return ceilDiv(p-size+1, seamless), floorDiv(p, seamless)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 {
	return -floorDiv(-a, b)
}
