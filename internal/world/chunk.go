package world

import (
	"errors"
	"fmt"

	"github.com/annel0/voxel-terrain/internal/vec"
	"github.com/annel0/voxel-terrain/internal/voxel"
)

// ErrDepthMismatch возвращается при восстановлении сетки чужой глубины
var ErrDepthMismatch = errors.New("глубина сетки не совпадает с глубиной мира")

// ChunkMode кэшированная классификация содержимого чанка
type ChunkMode int

const (
	ModeUnclassified ChunkMode = iota
	// ModeEmpty чанк однороден (весь воздух или весь один материал), поверхности нет
	ModeEmpty
	// ModeMixed в чанке есть граница материала
	ModeMixed
)

// String возвращает название режима
func (m ChunkMode) String() string {
	switch m {
	case ModeUnclassified:
		return "unclassified"
	case ModeEmpty:
		return "empty"
	case ModeMixed:
		return "mixed"
	default:
		return "unknown"
	}
}

// Chunk сетка вокселей с ключом в решётке мира.
//
// IsDefault означает, что чанк можно выбросить и сгенерировать заново без потерь.
// Edited ставится при любой пользовательской правке и при восстановлении из байтов.
type Chunk struct {
	Key       vec.Vec3
	Grid      *voxel.Grid
	Mode      ChunkMode
	IsDefault bool
	Edited    bool
	LOD       int
}

// NewChunk создаёт пустой чанк по умолчанию
func NewChunk(key vec.Vec3, depth int) *Chunk {
	return &Chunk{
		Key:       key,
		Grid:      voxel.New(depth),
		Mode:      ModeEmpty,
		IsDefault: true,
	}
}

// Get возвращает материал по локальной координате (вне сетки воздух)
func (c *Chunk) Get(local vec.Vec3) voxel.Material {
	return c.Grid.Get(int(local.X), int(local.Y), int(local.Z))
}

// InBounds проверяет, что локальная координата лежит в сетке чанка
func (c *Chunk) InBounds(local vec.Vec3) bool {
	size := int64(c.Grid.Size())
	return local.X >= 0 && local.Y >= 0 && local.Z >= 0 &&
		local.X < size && local.Y < size && local.Z < size
}

// set записывает воксель как пользовательскую правку.
// Классификация сбрасывается до следующего Classify.
func (c *Chunk) set(local vec.Vec3, m voxel.Material) {
	c.Grid.Set(int(local.X), int(local.Y), int(local.Z), m)
	c.Edited = true
	c.IsDefault = false
	c.Mode = ModeUnclassified
}

// Classify пересчитывает Mode по содержимому сетки и возвращает его
func (c *Chunk) Classify() ChunkMode {
	if _, uniform := c.Grid.Uniform(); uniform {
		c.Mode = ModeEmpty
	} else {
		c.Mode = ModeMixed
	}
	return c.Mode
}

// NeedsMesh сообщает, может ли у чанка быть поверхность.
// Неклассифицированный чанк считается требующим построения сетки.
func (c *Chunk) NeedsMesh() bool {
	return c.Mode != ModeEmpty
}

// MarshalBinary сериализует сетку чанка
func (c *Chunk) MarshalBinary() ([]byte, error) {
	return c.Grid.MarshalBinary()
}

// ChunkFromBytes восстанавливает чанк из байтов сетки.
// Восстановленный чанк всегда считается пользовательским: IsDefault=false, Edited=true.
// При любой ошибке чанк не создаётся.
func ChunkFromBytes(key vec.Vec3, raw []byte, depth int) (*Chunk, error) {
	grid, err := voxel.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("чанк %s: %w", key, err)
	}
	if grid.Depth() != depth {
		return nil, fmt.Errorf("чанк %s: %w: %d вместо %d", key, ErrDepthMismatch, grid.Depth(), depth)
	}

	c := &Chunk{
		Key:    key,
		Grid:   grid,
		Edited: true,
	}
	c.Classify()
	return c, nil
}
