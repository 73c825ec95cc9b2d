package lod

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-terrain/internal/vec"
)

var testTables = []Ranges{
	{0, 1},
	{0, 3, 6},
	{0, 1, 2, 4},
	{0, 2, 4, 7, 9},
}

func TestTileDistance(t *testing.T) {
	a := vec.Vec3{X: 1, Y: -2, Z: 3}
	assert.Equal(t, int64(0), TileDistance(a, a))
	assert.Equal(t, int64(5), TileDistance(a, vec.Vec3{X: -4, Y: 0, Z: 4}))
	assert.Equal(t, int64(7), TileDistance(a, vec.Vec3{X: 1, Y: 5, Z: 3}))
}

func TestEuclidInRangeBounds(t *testing.T) {
	o := vec.Vec3{}
	// Нижняя граница строгая, верхняя включительная
	assert.False(t, EuclidInRange(o, vec.Vec3{X: 2}, 2, 4))
	assert.True(t, EuclidInRange(o, vec.Vec3{X: 3}, 2, 4))
	assert.True(t, EuclidInRange(o, vec.Vec3{X: 4}, 2, 4))
	assert.False(t, EuclidInRange(o, vec.Vec3{X: 4, Y: 1}, 2, 4))
	assert.False(t, EuclidInRange(o, o, 0, 4), "Центр не принадлежит сферическому слою с нулевой нижней границей")
}

func TestRangesValidate(t *testing.T) {
	for _, r := range testTables {
		assert.NoError(t, r.Validate(), "%v", r)
	}

	invalid := []Ranges{
		nil,
		{0},
		{1, 2},
		{0, 2, 2},
		{0, 3, 1},
		{0, 3, 4, 8}, // куб 3 не помещается в сферу 4
	}
	for _, r := range invalid {
		assert.ErrorIs(t, r.Validate(), ErrInvalidRanges, "%v", r)
	}

	assert.Equal(t, 3, Ranges{0, 1, 2, 4}.Levels())
	assert.Equal(t, int64(4), Ranges{0, 1, 2, 4}.MaxRange())
	assert.Equal(t, 0, Ranges{}.Levels())
}

func TestInShellOutOfTableLevels(t *testing.T) {
	r := Ranges{0, 1, 2, 4}
	assert.False(t, InShell(vec.Vec3{}, vec.Vec3{}, r, -1))
	assert.False(t, InShell(vec.Vec3{}, vec.Vec3{}, r, 3))
	assert.Empty(t, KeysInShell(vec.Vec3{}, r, 3))
}

// Закреплённое поведение: оболочка 0 это куб, оболочка 1 это сфера без этого куба.
// Ключ на углу куба дальше r1 по евклидовой метрике, но остаётся в оболочке 0.
func TestLevelOneExcludesLevelZeroCube(t *testing.T) {
	r := Ranges{0, 2, 4, 8}
	center := vec.Vec3{X: 5, Y: -3, Z: 1}
	corner := center.Add(vec.Vec3{X: 2, Y: 2, Z: 2})

	assert.True(t, InShell(center, corner, r, 0))
	assert.False(t, InShell(center, corner, r, 1))
	assert.False(t, InShell(center, corner, r, 2))

	justOutside := center.Add(vec.Vec3{X: 3})
	assert.True(t, InShell(center, justOutside, r, 1))

	level, ok := LevelOf(center, corner, r)
	require.True(t, ok)
	assert.Equal(t, 0, level)
}

func TestShellsPartitionSpace(t *testing.T) {
	centers := []vec.Vec3{{}, {X: -3, Y: 7, Z: -11}}

	for _, r := range testTables {
		for _, center := range centers {
			seen := make(map[vec.Vec3]int)
			for level := 0; level < r.Levels(); level++ {
				keys := KeysInShell(center, r, level)
				local := make(map[vec.Vec3]struct{}, len(keys))
				for _, k := range keys {
					_, dup := local[k]
					require.False(t, dup, "дубликат %v в оболочке %d таблицы %v", k, level, r)
					local[k] = struct{}{}

					prev, again := seen[k]
					require.False(t, again, "ключ %v в оболочках %d и %d таблицы %v", k, prev, level, r)
					seen[k] = level
				}
			}

			// Каждый ключ в пределах максимальной дальности принадлежит ровно одной оболочке
			m := r.MaxRange()
			for x := -m; x <= m; x++ {
				for y := -m; y <= m; y++ {
					for z := -m; z <= m; z++ {
						k := center.Add(vec.Vec3{X: x, Y: y, Z: z})
						within := k.DistanceSq(center) <= m*m || TileDistance(k, center) <= r[1]

						count := 0
						for level := 0; level < r.Levels(); level++ {
							if InShell(center, k, r, level) {
								count++
							}
						}
						if within {
							require.Equal(t, 1, count, "ключ %v таблицы %v", k, r)
							_, ok := seen[k]
							require.True(t, ok, "пропущен ключ %v таблицы %v", k, r)
						} else {
							require.Equal(t, 0, count, "ключ %v вне всех оболочек таблицы %v", k, r)
						}
					}
				}
			}
		}
	}
}

func setDifference(a, b []vec.Vec3) map[vec.Vec3]struct{} {
	out := make(map[vec.Vec3]struct{})
	skip := make(map[vec.Vec3]struct{}, len(b))
	for _, k := range b {
		skip[k] = struct{}{}
	}
	for _, k := range a {
		if _, ok := skip[k]; !ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func toSet(keys []vec.Vec3) map[vec.Vec3]struct{} {
	out := make(map[vec.Vec3]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

func TestDeltaKeysEqualsSetDifference(t *testing.T) {
	rng := rand.New(rand.NewSource(2024))

	for i := 0; i < 60; i++ {
		r := testTables[rng.Intn(len(testTables))]
		prev := vec.Vec3{X: int64(rng.Intn(9) - 4), Y: int64(rng.Intn(9) - 4), Z: int64(rng.Intn(9) - 4)}
		step := vec.Vec3{X: int64(rng.Intn(5) - 2), Y: int64(rng.Intn(5) - 2), Z: int64(rng.Intn(5) - 2)}
		center := prev.Add(step)

		for level := 0; level < r.Levels(); level++ {
			want := setDifference(KeysInShell(center, r, level), KeysInShell(prev, r, level))
			got := DeltaKeys(prev, center, r, level)
			assert.Len(t, got, len(want), "без дубликатов: %v -> %v, уровень %d", prev, center, level)
			assert.Equal(t, want, toSet(got), "вход: %v -> %v, уровень %d, таблица %v", prev, center, level, r)

			wantLeaving := setDifference(KeysInShell(prev, r, level), KeysInShell(center, r, level))
			assert.Equal(t, wantLeaving, toSet(LeavingKeys(prev, center, r, level)))
		}
	}
}

func TestDeltaKeysNoMovement(t *testing.T) {
	c := vec.Vec3{X: 1, Y: 2, Z: 3}
	assert.Empty(t, DeltaKeys(c, c, Ranges{0, 1, 2, 4}, 2))
}

func TestDeltaKeysSingleStep(t *testing.T) {
	r := Ranges{0, 1}
	got := DeltaKeys(vec.Vec3{}, vec.Vec3{X: 1}, r, 0)

	// Куб 3x3x3 сдвигается на 1 по x: входит одна грань 3x3
	require.Len(t, got, 9)
	for _, k := range got {
		assert.Equal(t, int64(2), k.X)
	}
}
