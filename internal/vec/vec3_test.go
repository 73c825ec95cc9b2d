package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3Arithmetic(t *testing.T) {
	a := Vec3{X: 1, Y: -2, Z: 3}
	b := Vec3{X: -4, Y: 5, Z: 6}

	assert.Equal(t, Vec3{X: -3, Y: 3, Z: 9}, a.Add(b))
	assert.Equal(t, Vec3{X: 5, Y: -7, Z: -3}, a.Sub(b))
	assert.Equal(t, Vec3{X: 3, Y: -6, Z: 9}, a.Mul(3))
	assert.Equal(t, int64(25+49+9), a.DistanceSq(b))
	assert.True(t, a.Equals(Vec3{X: 1, Y: -2, Z: 3}))
}

func TestVec3Less(t *testing.T) {
	assert.True(t, Vec3{X: 0, Y: 9, Z: 9}.Less(Vec3{X: 1}))
	assert.True(t, Vec3{X: 1, Y: 0, Z: 9}.Less(Vec3{X: 1, Y: 1}))
	assert.True(t, Vec3{X: 1, Y: 1, Z: 0}.Less(Vec3{X: 1, Y: 1, Z: 1}))
	assert.False(t, Vec3{X: 1, Y: 1, Z: 1}.Less(Vec3{X: 1, Y: 1, Z: 1}))
}

func TestVec3FloatFloorNegative(t *testing.T) {
	// Отрицательные дробные координаты должны уходить вниз, а не к нулю
	v := Vec3Float{X: -0.5, Y: 0.5, Z: -1.0}
	assert.Equal(t, Vec3{X: -1, Y: 0, Z: -1}, v.Floor())
	assert.Equal(t, Vec3Float{X: -1, Y: 1, Z: -2}, v.Mul(2))
}
