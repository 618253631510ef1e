package greedy

import (
	"math/bits"

	"github.com/annel0/voxelcore/internal/bitarray"
	"github.com/annel0/voxelcore/internal/check"
)

// Mesh2D покрывает каждый слой сетки sizeX*sizeY прямоугольниками.
// faces содержит layers слоев подряд, внутри слоя X меняется быстрее Y.
// Массив расходуется: после вызова все его биты сброшены.
func Mesh2D(sizeX, sizeY, layers int, faces *bitarray.BitArray) []Quad {
	check.Slow(faces.Num() == sizeX*sizeY*layers, "greedy: размер массива %d не равен %dx%dx%d", faces.Num(), sizeX, sizeY, layers)

	var quads []Quad
	for layer := 0; layer < layers; layer++ {
		if sizeX == bitarray.WordBits {
			quads = meshLayerWords(sizeY, layer, faces, quads)
		} else {
			quads = meshLayer(sizeX, sizeY, layer, faces, quads)
		}
	}
	return quads
}

// Mesh2DCopy работает как Mesh2D, но не изменяет faces
func Mesh2DCopy(sizeX, sizeY, layers int, faces *bitarray.BitArray) []Quad {
	return Mesh2D(sizeX, sizeY, layers, faces.Clone())
}

func meshLayer(sizeX, sizeY, layer int, faces *bitarray.BitArray, quads []Quad) []Quad {
	base := layer * sizeX * sizeY
	for y := 0; y < sizeY; y++ {
		row := base + y*sizeX
		for x := 0; x < sizeX; {
			if !faces.TestAndClear(row + x) {
				x++
				continue
			}

			width := 1
			for x+width < sizeX && faces.TestAndClear(row+x+width) {
				width++
			}

			height := 1
			for y+height < sizeY && faces.TestAndClearRange(row+height*sizeX+x, width) {
				height++
			}

			quads = append(quads, Quad{
				Layer:  uint32(layer),
				StartX: uint32(x),
				StartY: uint32(y),
				SizeX:  uint32(width),
				SizeY:  uint32(height),
			})
			x += width
		}
	}
	return quads
}

// meshLayerWords ветка для строк ровно в одно слово: поиск и расширение по X
// делаются над словом целиком, пустые строки в начале и конце слоя пропускаются
func meshLayerWords(sizeY, layer int, faces *bitarray.BitArray, quads []Quad) []Quad {
	firstWord := layer * sizeY
	first, last, ok := nonEmptyWords(faces, firstWord, firstWord+sizeY)
	if !ok {
		return quads
	}

	for w := first; w <= last; w++ {
		y := w - firstWord
		for word := faces.Word(w); word != 0; word = faces.Word(w) {
			x := bits.TrailingZeros32(word)
			width := bits.TrailingZeros32(^(word >> uint(x)))
			row := w * bitarray.WordBits
			faces.SetRange(row+x, width, false)

			height := 1
			for y+height < sizeY && faces.TestAndClearRange(row+height*bitarray.WordBits+x, width) {
				height++
			}

			quads = append(quads, Quad{
				Layer:  uint32(layer),
				StartX: uint32(x),
				StartY: uint32(y),
				SizeX:  uint32(width),
				SizeY:  uint32(height),
			})
		}
	}
	return quads
}

// nonEmptyWords возвращает первое и последнее ненулевое слово в [from, to)
func nonEmptyWords(a *bitarray.BitArray, from, to int) (first, last int, ok bool) {
	words := a.Words()
	first = from
	for first < to && words[first] == 0 {
		first++
	}
	if first == to {
		return 0, 0, false
	}
	last = to - 1
	for words[last] == 0 {
		last--
	}
	return first, last, true
}
