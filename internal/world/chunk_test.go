package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-terrain/internal/vec"
	"github.com/annel0/voxel-terrain/internal/voxel"
)

func TestNewChunkIsDefault(t *testing.T) {
	c := NewChunk(vec.Vec3{X: 1, Y: -2, Z: 3}, 4)

	assert.True(t, c.IsDefault)
	assert.False(t, c.Edited)
	assert.Equal(t, ModeEmpty, c.Mode)
	assert.False(t, c.NeedsMesh())
	assert.Equal(t, 16, c.Grid.Size())
}

func TestChunkSetMarksEdited(t *testing.T) {
	c := NewChunk(vec.Vec3{}, 4)
	c.set(vec.Vec3{X: 3, Y: 4, Z: 5}, 2)

	assert.False(t, c.IsDefault)
	assert.True(t, c.Edited)
	assert.Equal(t, ModeUnclassified, c.Mode)
	assert.True(t, c.NeedsMesh(), "Неклассифицированный чанк требует построения сетки")
	assert.Equal(t, voxel.Material(2), c.Get(vec.Vec3{X: 3, Y: 4, Z: 5}))

	assert.Equal(t, ModeMixed, c.Classify())
	assert.True(t, c.NeedsMesh())
}

func TestChunkClassifyUniformSolid(t *testing.T) {
	c := &Chunk{Grid: voxel.NewFromFill(3, func(x, y, z int) voxel.Material { return 4 }, voxel.CompressExact)}
	assert.Equal(t, ModeEmpty, c.Classify(), "Сплошной чанк не имеет поверхности")
}

func TestChunkInBounds(t *testing.T) {
	c := NewChunk(vec.Vec3{}, 4)
	assert.True(t, c.InBounds(vec.Vec3{}))
	assert.True(t, c.InBounds(vec.Vec3{X: 15, Y: 15, Z: 15}))
	assert.False(t, c.InBounds(vec.Vec3{X: 16}))
	assert.False(t, c.InBounds(vec.Vec3{Z: -1}))
	assert.Equal(t, voxel.Air, c.Get(vec.Vec3{X: -1}))
}

func TestChunkFromBytesRoundTrip(t *testing.T) {
	src := NewChunk(vec.Vec3{X: -2}, 4)
	src.set(vec.Vec3{X: 1, Y: 2, Z: 3}, 7)
	src.set(vec.Vec3{X: 15, Y: 0, Z: 9}, 200)

	raw, err := src.MarshalBinary()
	require.NoError(t, err)

	restored, err := ChunkFromBytes(src.Key, raw, 4)
	require.NoError(t, err)
	assert.Equal(t, src.Key, restored.Key)
	assert.False(t, restored.IsDefault, "Восстановленный чанк не может быть по умолчанию")
	assert.True(t, restored.Edited)
	assert.Equal(t, ModeMixed, restored.Mode)

	again, err := restored.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, raw, again, "Повторная сериализация должна совпадать бит в бит")
	assert.Equal(t, src.Grid.Flatten(nil), restored.Grid.Flatten(nil))
}

func TestChunkFromBytesFailsClosed(t *testing.T) {
	raw, err := NewChunk(vec.Vec3{}, 4).MarshalBinary()
	require.NoError(t, err)

	c, err := ChunkFromBytes(vec.Vec3{}, raw, 5)
	assert.ErrorIs(t, err, ErrDepthMismatch)
	assert.Nil(t, c)

	c, err = ChunkFromBytes(vec.Vec3{}, raw[:len(raw)-1], 4)
	assert.ErrorIs(t, err, voxel.ErrCorruptGrid)
	assert.Nil(t, c)

	c, err = ChunkFromBytes(vec.Vec3{}, append(raw, 0), 4)
	assert.ErrorIs(t, err, voxel.ErrCorruptGrid)
	assert.Nil(t, c)
}

func TestChunkModeString(t *testing.T) {
	assert.Equal(t, "unclassified", ModeUnclassified.String())
	assert.Equal(t, "empty", ModeEmpty.String())
	assert.Equal(t, "mixed", ModeMixed.String())
}
