package greedy

import (
	"math/bits"

	"github.com/annel0/voxelcore/internal/bitarray"
	"github.com/annel0/voxelcore/internal/check"
	"github.com/annel0/voxelcore/internal/vec"
)

// Mesh3D покрывает занятые ячейки сетки size параллелепипедами.
// Ячейки обходятся в порядке хранения (Z, Y, X), рост идет по X, затем по Y
// строками, затем по Z слоями. Массив расходуется: после вызова он пуст.
func Mesh3D(size vec.Vec3, data *bitarray.BitArray) []Box {
	check.Slow(data.Num() == size.Volume(), "greedy: размер массива %d не равен %v", data.Num(), size)

	m := mesher3D{size: size, layer: size.X * size.Y, data: data}
	if size.X == bitarray.WordBits {
		m.meshWords()
	} else {
		m.mesh()
	}
	return m.boxes
}

// Mesh3DCopy работает как Mesh3D, но не изменяет data
func Mesh3DCopy(size vec.Vec3, data *bitarray.BitArray) []Box {
	return Mesh3D(size, data.Clone())
}

type mesher3D struct {
	size  vec.Vec3
	layer int
	data  *bitarray.BitArray
	boxes []Box
}

func (m *mesher3D) mesh() {
	for z := 0; z < m.size.Z; z++ {
		for y := 0; y < m.size.Y; y++ {
			for x := 0; x < m.size.X; {
				index := x + y*m.size.X + z*m.layer
				if !m.data.TestAndClear(index) {
					x++
					continue
				}

				sizeX := 1
				for x+sizeX < m.size.X && m.data.TestAndClear(index+sizeX) {
					sizeX++
				}
				m.grow(x, y, z, index, sizeX)
				x += sizeX
			}
		}
	}
}

// meshWords ветка для строк ровно в одно слово. Пустые слои в начале и
// конце сетки пропускаются целиком.
func (m *mesher3D) meshWords() {
	first, last, ok := nonEmptyWords(m.data, 0, m.data.NumWords())
	if !ok {
		return
	}

	for w := first; w <= last; w++ {
		y := w % m.size.Y
		z := w / m.size.Y
		for word := m.data.Word(w); word != 0; word = m.data.Word(w) {
			x := bits.TrailingZeros32(word)
			sizeX := bits.TrailingZeros32(^(word >> uint(x)))
			index := w*bitarray.WordBits + x
			m.data.SetRange(index, sizeX, false)
			m.grow(x, y, z, index, sizeX)
		}
	}
}

// grow расширяет уже израсходованную строку [index, index+sizeX) по Y и Z
func (m *mesher3D) grow(x, y, z, index, sizeX int) {
	sizeY := 1
	for y+sizeY < m.size.Y && m.data.TestAndClearRange(index+sizeY*m.size.X, sizeX) {
		sizeY++
	}

	sizeZ := 1
	for z+sizeZ < m.size.Z && m.testSlab(index+sizeZ*m.layer, sizeX, sizeY) {
		m.clearSlab(index+sizeZ*m.layer, sizeX, sizeY)
		sizeZ++
	}

	m.boxes = append(m.boxes, Box{
		StartX: uint32(x),
		StartY: uint32(y),
		StartZ: uint32(z),
		SizeX:  uint32(sizeX),
		SizeY:  uint32(sizeY),
		SizeZ:  uint32(sizeZ),
	})
}

func (m *mesher3D) testSlab(index, sizeX, sizeY int) bool {
	for j := 0; j < sizeY; j++ {
		if !m.data.TestRange(index+j*m.size.X, sizeX) {
			return false
		}
	}
	return true
}

func (m *mesher3D) clearSlab(index, sizeX, sizeY int) {
	for j := 0; j < sizeY; j++ {
		m.data.SetRange(index+j*m.size.X, sizeX, false)
	}
}
