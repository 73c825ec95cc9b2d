package voxel

import (
	"errors"
	"fmt"
)

// Формат: "VXG" | версия | глубина | дерево в прямом порядке обхода.
// Лист кодируется как tagLeaf + материал, узел как tagBranch + восемь детей.
const (
	codecVersion = 1
	headerSize   = 5

	tagLeaf   = 0x00
	tagBranch = 0x01
)

var codecMagic = [3]byte{'V', 'X', 'G'}

// ErrCorruptGrid возвращается, если байты не описывают корректную сетку.
var ErrCorruptGrid = errors.New("повреждённые данные сетки")

// MarshalBinary сериализует дерево как есть, поэтому Decode(MarshalBinary())
// воспроизводит те же байты бит в бит.
func (g *Grid) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, headerSize+2*g.NodeCount())
	out = append(out, codecMagic[:]...)
	out = append(out, codecVersion, byte(g.depth))
	out = g.encode(out, 0)
	return out, nil
}

func (g *Grid) encode(out []byte, idx int32) []byte {
	n := g.nodes[idx]
	if n.first == noChildren {
		return append(out, tagLeaf, n.value)
	}
	out = append(out, tagBranch)
	for o := int32(0); o < 8; o++ {
		out = g.encode(out, n.first+o)
	}
	return out
}

// UnmarshalBinary заменяет содержимое сетки декодированными данными.
// При ошибке сетка не меняется.
func (g *Grid) UnmarshalBinary(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*g = *decoded
	return nil
}

// Decode восстанавливает сетку из байтов MarshalBinary. Любое отклонение от
// формата (включая лишние байты в конце) даёт ErrCorruptGrid.
func Decode(data []byte) (*Grid, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: заголовок короче %d байт", ErrCorruptGrid, headerSize)
	}
	if data[0] != codecMagic[0] || data[1] != codecMagic[1] || data[2] != codecMagic[2] {
		return nil, fmt.Errorf("%w: неверная сигнатура", ErrCorruptGrid)
	}
	if data[3] != codecVersion {
		return nil, fmt.Errorf("%w: неподдерживаемая версия %d", ErrCorruptGrid, data[3])
	}
	depth := int(data[4])
	if depth < MinDepth || depth > MaxDepth {
		return nil, fmt.Errorf("%w: недопустимая глубина %d", ErrCorruptGrid, depth)
	}

	d := decoder{data: data, pos: headerSize}
	g := New(depth)
	if err := d.decode(g, 0, g.size); err != nil {
		return nil, err
	}
	if d.pos != len(data) {
		return nil, fmt.Errorf("%w: %d лишних байт после дерева", ErrCorruptGrid, len(data)-d.pos)
	}
	return g, nil
}

type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) next() (byte, error) {
	if d.pos >= len(d.data) {
		return 0, fmt.Errorf("%w: неожиданный конец данных на позиции %d", ErrCorruptGrid, d.pos)
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) decode(g *Grid, idx int32, s int) error {
	tag, err := d.next()
	if err != nil {
		return err
	}

	switch tag {
	case tagLeaf:
		value, err := d.next()
		if err != nil {
			return err
		}
		g.nodes[idx] = node{value: value, first: noChildren}
		return nil
	case tagBranch:
		if s == 1 {
			return fmt.Errorf("%w: узел глубже единичного вокселя на позиции %d", ErrCorruptGrid, d.pos-1)
		}
		first := g.alloc8(Air)
		g.nodes[idx].first = first
		for o := int32(0); o < 8; o++ {
			if err := d.decode(g, first+o, s>>1); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: неизвестный тег 0x%02x на позиции %d", ErrCorruptGrid, tag, d.pos-1)
	}
}
