package mesh

import (
	"github.com/annel0/voxel-terrain/internal/world"
)

// MeshChunk строит сетку чанка. Чанк, классифицированный как однородный,
// сразу даёт пустой результат без обхода сетки.
func (m *SurfaceMesher) MeshChunk(c *world.Chunk, scratch *Scratch) *MeshData {
	if !c.NeedsMesh() {
		return &MeshData{Key: c.Key, LOD: c.LOD}
	}
	return m.Mesh(c.Grid, scratch, c.Key, c.LOD)
}
