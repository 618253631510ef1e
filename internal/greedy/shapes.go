// Package greedy покрывает сетку занятости непересекающимися
// прямоугольниками (по слоям) или параллелепипедами. Алгоритм жадный:
// расширение идет по осям X, Y, Z до упора, без поиска оптимального покрытия.
package greedy

import (
	"fmt"

	"github.com/annel0/voxelcore/internal/bitarray"
	"github.com/annel0/voxelcore/internal/vec"
)

// Quad прямоугольник в слое Layer
type Quad struct {
	Layer  uint32
	StartX uint32
	StartY uint32
	SizeX  uint32
	SizeY  uint32
}

// Area возвращает площадь прямоугольника
func (q Quad) Area() int {
	return int(q.SizeX * q.SizeY)
}

func (q Quad) String() string {
	return fmt.Sprintf("quad{layer=%d (%d,%d) %dx%d}", q.Layer, q.StartX, q.StartY, q.SizeX, q.SizeY)
}

// Box параллелепипед в сетке
type Box struct {
	StartX uint32
	StartY uint32
	StartZ uint32
	SizeX  uint32
	SizeY  uint32
	SizeZ  uint32
}

// Volume возвращает объем в ячейках
func (b Box) Volume() int {
	return int(b.SizeX * b.SizeY * b.SizeZ)
}

// Bounds возвращает бокс в координатах сетки
func (b Box) Bounds() vec.IntBox {
	start := vec.Vec3{X: int(b.StartX), Y: int(b.StartY), Z: int(b.StartZ)}
	return vec.NewIntBox(start, start.Add(vec.Vec3{X: int(b.SizeX), Y: int(b.SizeY), Z: int(b.SizeZ)}))
}

func (b Box) String() string {
	return fmt.Sprintf("box{(%d,%d,%d) %dx%dx%d}", b.StartX, b.StartY, b.StartZ, b.SizeX, b.SizeY, b.SizeZ)
}

// Rasterize2D записывает прямоугольники в новый массив sizeX*sizeY*layers.
// Второе значение false, если прямоугольники перекрываются или выходят за сетку.
func Rasterize2D(sizeX, sizeY, layers int, quads []Quad) (*bitarray.BitArray, bool) {
	out := bitarray.New(sizeX*sizeY*layers, false)
	area := 0
	for _, q := range quads {
		if int(q.Layer) >= layers || int(q.StartX+q.SizeX) > sizeX || int(q.StartY+q.SizeY) > sizeY {
			return out, false
		}
		base := int(q.Layer)*sizeX*sizeY + int(q.StartX)
		for y := q.StartY; y < q.StartY+q.SizeY; y++ {
			out.SetRange(base+int(y)*sizeX, int(q.SizeX), true)
		}
		area += q.Area()
	}
	return out, area == out.CountSetBits()
}

// Rasterize3D записывает боксы в новый массив size.
// Второе значение false, если боксы перекрываются или выходят за сетку.
func Rasterize3D(size vec.Vec3, boxes []Box) (*bitarray.BitArray, bool) {
	out := bitarray.New(size.Volume(), false)
	grid := vec.NewIntBox(vec.Vec3{}, size)
	volume := 0
	for _, b := range boxes {
		bounds := b.Bounds()
		if !grid.ContainsBox(bounds) {
			return out, false
		}
		for z := bounds.Min.Z; z < bounds.Max.Z; z++ {
			for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
				out.SetRange(vec.Vec3{X: bounds.Min.X, Y: y, Z: z}.Index(size), int(b.SizeX), true)
			}
		}
		volume += b.Volume()
	}
	return out, volume == out.CountSetBits()
}
