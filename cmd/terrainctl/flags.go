package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/annel0/voxel-terrain/internal/vec"
	"github.com/annel0/voxel-terrain/internal/voxel"
)

// editRequest правка в мировых единицах: "x,y,z=material"
type editRequest struct {
	Pos      vec.Vec3Float
	Material voxel.Material
}

// editList накапливает повторяющийся флаг -edit
type editList []editRequest

func (l *editList) String() string {
	parts := make([]string, len(*l))
	for i, e := range *l {
		parts[i] = fmt.Sprintf("%g,%g,%g=%d", e.Pos.X, e.Pos.Y, e.Pos.Z, e.Material)
	}
	return strings.Join(parts, " ")
}

func (l *editList) Set(s string) error {
	e, err := parseEdit(s)
	if err != nil {
		return err
	}
	*l = append(*l, e)
	return nil
}

func splitTriple(s string) ([3]string, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return [3]string{}, fmt.Errorf("ожидалось три координаты через запятую: %q", s)
	}
	return [3]string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2])}, nil
}

// parseKey разбирает ключ чанка "x,y,z"
func parseKey(s string) (vec.Vec3, error) {
	parts, err := splitTriple(s)
	if err != nil {
		return vec.Vec3{}, err
	}
	var out [3]int64
	for i, p := range parts {
		out[i], err = strconv.ParseInt(p, 10, 64)
		if err != nil {
			return vec.Vec3{}, fmt.Errorf("координата %q: %w", p, err)
		}
	}
	return vec.Vec3{X: out[0], Y: out[1], Z: out[2]}, nil
}

func parseEdit(s string) (editRequest, error) {
	pos, mat, ok := strings.Cut(s, "=")
	if !ok {
		return editRequest{}, fmt.Errorf("правка должна иметь вид x,y,z=материал: %q", s)
	}
	parts, err := splitTriple(pos)
	if err != nil {
		return editRequest{}, err
	}
	var out [3]float64
	for i, p := range parts {
		out[i], err = strconv.ParseFloat(p, 64)
		if err != nil {
			return editRequest{}, fmt.Errorf("координата %q: %w", p, err)
		}
	}
	m, err := strconv.ParseUint(strings.TrimSpace(mat), 10, 8)
	if err != nil {
		return editRequest{}, fmt.Errorf("материал %q: %w", mat, err)
	}
	return editRequest{
		Pos:      vec.Vec3Float{X: out[0], Y: out[1], Z: out[2]},
		Material: voxel.Material(m),
	}, nil
}
