package vec

import "math"

// Vec3Float представляет трехмерный вектор с плавающими координатами
type Vec3Float struct {
	X float64
	Y float64
	Z float64
}

// Add складывает два вектора
func (v Vec3Float) Add(other Vec3Float) Vec3Float {
	return Vec3Float{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Mul умножает вектор на скаляр
func (v Vec3Float) Mul(scalar float64) Vec3Float {
	return Vec3Float{X: v.X * scalar, Y: v.Y * scalar, Z: v.Z * scalar}
}

// Floor округляет каждую координату вниз.
// Простое приведение int64(x) обрезает к нулю и даёт сдвиг на единицу для отрицательных координат.
func (v Vec3Float) Floor() Vec3 {
	return Vec3{
		X: int64(math.Floor(v.X)),
		Y: int64(math.Floor(v.Y)),
		Z: int64(math.Floor(v.Z)),
	}
}
