// Package voxel хранит кубическую сетку материалов в виде разреженного октодерева.
//
// Узлы лежат в одном массиве (арене) и ссылаются на детей по индексу: узел либо
// лист с материалом, либо индекс первого из восьми подряд идущих детей.
// Однородные поддеревья схлопываются в один лист.
package voxel

// Material идентификатор материала вокселя. 0 означает воздух.
type Material = uint8

// Air пустой воксель
const Air Material = 0

// Compression задаёт правило слияния восьми детей в родителя при заполнении.
type Compression int

const (
	// CompressExact сливает детей только если все восемь листьев одинаковы.
	CompressExact Compression = iota
	// CompressRepresentative сливает детей в наиболее частое значение,
	// если с ним согласны не менее representativeQuorum детей из восьми.
	CompressRepresentative
)

const (
	// MinDepth и MaxDepth ограничивают глубину дерева (размер 2..256).
	MinDepth = 1
	MaxDepth = 8

	representativeQuorum = 7
	noChildren           = int32(-1)
)

// String возвращает название политики сжатия
func (c Compression) String() string {
	switch c {
	case CompressExact:
		return "exact"
	case CompressRepresentative:
		return "representative"
	default:
		return "unknown"
	}
}

type node struct {
	value Material
	first int32 // индекс первого ребёнка или noChildren для листа
}

// Grid кубическая сетка размером 2^depth по каждой оси.
//
// Grid не потокобезопасна: запись допускается только одним владельцем,
// чтение без параллельной записи безопасно.
type Grid struct {
	depth int
	size  int
	nodes []node
	free  []int32 // освободившиеся блоки по восемь узлов
}

// New создаёт пустую (полностью воздушную) сетку глубины depth.
func New(depth int) *Grid {
	depth = clampDepth(depth)
	return &Grid{
		depth: depth,
		size:  1 << depth,
		nodes: []node{{value: Air, first: noChildren}},
	}
}

// NewFromFill строит сетку, вызывая fill для каждого вокселя, и схлопывает
// однородные поддеревья согласно policy.
func NewFromFill(depth int, fill func(x, y, z int) Material, policy Compression) *Grid {
	g := New(depth)
	g.build(0, 0, 0, 0, g.size, fill, policy)
	return g
}

func clampDepth(depth int) int {
	if depth < MinDepth {
		return MinDepth
	}
	if depth > MaxDepth {
		return MaxDepth
	}
	return depth
}

// Size возвращает длину ребра сетки
func (g *Grid) Size() int {
	return g.size
}

// Depth возвращает глубину дерева (log2 размера)
func (g *Grid) Depth() int {
	return g.depth
}

// InBounds проверяет, что координата лежит внутри сетки
func (g *Grid) InBounds(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < g.size && y < g.size && z < g.size
}

// Get возвращает материал вокселя. За пределами сетки всегда воздух.
func (g *Grid) Get(x, y, z int) Material {
	if !g.InBounds(x, y, z) {
		return Air
	}

	idx := int32(0)
	for half := g.size >> 1; ; half >>= 1 {
		n := g.nodes[idx]
		if n.first == noChildren {
			return n.value
		}
		idx = n.first + octant(x, y, z, half)
	}
}

// Set записывает материал вокселя, разбивая схлопнутые узлы по пути.
// После записи однородные родители снова сливаются (только точное совпадение,
// чтобы запись никогда не терялась). Координаты вне сетки игнорируются.
func (g *Grid) Set(x, y, z int, m Material) {
	if !g.InBounds(x, y, z) {
		return
	}

	var path [MaxDepth]int32
	depth := 0
	idx := int32(0)
	for half := g.size >> 1; half > 0; half >>= 1 {
		if g.nodes[idx].first == noChildren {
			if g.nodes[idx].value == m {
				return
			}
			g.split(idx)
		}
		path[depth] = idx
		depth++
		idx = g.nodes[idx].first + octant(x, y, z, half)
	}

	if g.nodes[idx].value == m {
		return
	}
	g.nodes[idx].value = m

	for i := depth - 1; i >= 0; i-- {
		if !g.collapse(path[i], CompressExact) {
			break
		}
	}
}

// NodeCount возвращает число живых узлов арены
func (g *Grid) NodeCount() int {
	return len(g.nodes) - len(g.free)*8
}

// Uniform сообщает, состоит ли сетка из одного материала, и какого.
func (g *Grid) Uniform() (Material, bool) {
	first := true
	var value Material
	uniform := true
	g.walk(0, 0, 0, 0, g.size, func(_, _, _, _ int, m Material) bool {
		if first {
			value = m
			first = false
			return true
		}
		if m != value {
			uniform = false
			return false
		}
		return true
	})
	return value, uniform
}

// Index возвращает индекс вокселя в плоском массиве: x меняется быстрее всего.
func Index(size, x, y, z int) int {
	return x + y*size + z*size*size
}

// Flatten раскладывает сетку в плоский массив (см. Index) и возвращает его.
// Если dst мал, выделяется новый.
func (g *Grid) Flatten(dst []Material) []Material {
	n := g.size * g.size * g.size
	if cap(dst) < n {
		dst = make([]Material, n)
	}
	dst = dst[:n]

	size := g.size
	g.walk(0, 0, 0, 0, size, func(x0, y0, z0, s int, m Material) bool {
		if s == 1 {
			dst[Index(size, x0, y0, z0)] = m
			return true
		}
		for z := z0; z < z0+s; z++ {
			for y := y0; y < y0+s; y++ {
				row := Index(size, x0, y, z)
				for x := 0; x < s; x++ {
					dst[row+x] = m
				}
			}
		}
		return true
	})
	return dst
}

// walk обходит листья дерева. fn получает угол блока, его размер и материал;
// false останавливает обход.
func (g *Grid) walk(idx int32, x0, y0, z0, s int, fn func(x0, y0, z0, s int, m Material) bool) bool {
	n := g.nodes[idx]
	if n.first == noChildren {
		return fn(x0, y0, z0, s, n.value)
	}
	h := s >> 1
	for o := int32(0); o < 8; o++ {
		cx, cy, cz := x0+h*int(o&1), y0+h*int((o>>1)&1), z0+h*int((o>>2)&1)
		if !g.walk(n.first+o, cx, cy, cz, h, fn) {
			return false
		}
	}
	return true
}

func (g *Grid) build(idx int32, x0, y0, z0, s int, fill func(x, y, z int) Material, policy Compression) {
	if s == 1 {
		g.nodes[idx] = node{value: fill(x0, y0, z0), first: noChildren}
		return
	}

	// alloc8 может переаллоцировать арену, поэтому дальше работаем только с индексами
	first := g.alloc8(Air)
	g.nodes[idx].first = first
	h := s >> 1
	for o := int32(0); o < 8; o++ {
		g.build(first+o, x0+h*int(o&1), y0+h*int((o>>1)&1), z0+h*int((o>>2)&1), h, fill, policy)
	}
	g.collapse(idx, policy)
}

// split превращает лист в узел с восемью детьми того же материала
func (g *Grid) split(idx int32) {
	first := g.alloc8(g.nodes[idx].value)
	g.nodes[idx].first = first
}

// collapse сливает восемь листьев-детей в родителя, если это позволяет policy.
func (g *Grid) collapse(idx int32, policy Compression) bool {
	first := g.nodes[idx].first
	if first == noChildren {
		return true
	}
	children := g.nodes[first : first+8]
	for _, c := range children {
		if c.first != noChildren {
			return false
		}
	}

	value := children[0].value
	switch policy {
	case CompressRepresentative:
		best, bestCount := value, 0
		for i := range children {
			count := 0
			for j := range children {
				if children[j].value == children[i].value {
					count++
				}
			}
			if count > bestCount {
				best, bestCount = children[i].value, count
			}
		}
		if bestCount < representativeQuorum {
			return false
		}
		value = best
	default:
		for _, c := range children[1:] {
			if c.value != value {
				return false
			}
		}
	}

	g.nodes[idx] = node{value: value, first: noChildren}
	g.free = append(g.free, first)
	return true
}

func (g *Grid) alloc8(value Material) int32 {
	var first int32
	if n := len(g.free); n > 0 {
		first = g.free[n-1]
		g.free = g.free[:n-1]
	} else {
		first = int32(len(g.nodes))
		g.nodes = append(g.nodes, make([]node, 8)...)
	}
	for i := first; i < first+8; i++ {
		g.nodes[i] = node{value: value, first: noChildren}
	}
	return first
}

// octant номер ребёнка, в который попадает координата на уровне с половиной half
func octant(x, y, z, half int) int32 {
	var o int32
	if x&half != 0 {
		o |= 1
	}
	if y&half != 0 {
		o |= 2
	}
	if z&half != 0 {
		o |= 4
	}
	return o
}
