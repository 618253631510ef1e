// Package sdf собирает разреженное поле расстояний в формате бриков:
// для каждого мипа таблица косвенной адресации и плотно упакованные брики
// квантованных расстояний.
package sdf

import "github.com/go-gl/mathgl/mgl32"

const (
	// NumMips количество мипов поля
	NumMips = 3
	// BrickSize сторона брика в текселях
	BrickSize = 8
	// UniqueDataBrickSize количество уникальных текселей брика по оси,
	// последний тексель дублирует первый тексель соседнего брика
	UniqueDataBrickSize = 7
	// MeshDistanceFieldObjectBorder рамка в текселях вокруг границ меша
	MeshDistanceFieldObjectBorder = 1
	// BandSizeInVoxels ширина полосы кодируемых расстояний в вокселях
	BandSizeInVoxels = 4
	// BytesPerTexel размер текселя формата G8
	BytesPerTexel = 1
	// BrickBytes размер одного брика в байтах
	BrickBytes = BrickSize * BrickSize * BrickSize * BytesPerTexel
	// InvalidBrickIndex значение таблицы для ячейки без брика
	InvalidBrickIndex = 0xFFFFFFFF
)

// Bounds бокс в локальном пространстве меша
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Size возвращает размер бокса
func (b Bounds) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Extent возвращает половину размера
func (b Bounds) Extent() mgl32.Vec3 {
	return b.Size().Mul(0.5)
}

// Center возвращает центр бокса
func (b Bounds) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// IsValid проверяет Min < Max по всем осям
func (b Bounds) IsValid() bool {
	return b.Min.X() < b.Max.X() && b.Min.Y() < b.Max.Y() && b.Min.Z() < b.Max.Z()
}

// ExpandBy расширяет бокс на v в обе стороны
func (b Bounds) ExpandBy(v mgl32.Vec3) Bounds {
	return Bounds{Min: b.Min.Sub(v), Max: b.Max.Add(v)}
}

// ShiftBy сдвигает бокс на v
func (b Bounds) ShiftBy(v mgl32.Vec3) Bounds {
	return Bounds{Min: b.Min.Add(v), Max: b.Max.Add(v)}
}

func maxComponent(v mgl32.Vec3) float32 {
	return max(v.X(), v.Y(), v.Z())
}

func divide(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a.X() / b.X(), a.Y() / b.Y(), a.Z() / b.Z()}
}

func multiply(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a.X() * b.X(), a.Y() * b.Y(), a.Z() * b.Z()}
}

func splat(v float32) mgl32.Vec3 {
	return mgl32.Vec3{v, v, v}
}

// Brick куб квантованных расстояний, X меняется быстрее всего
type Brick [BrickSize * BrickSize * BrickSize]uint8

func brickIndex(x, y, z int) int {
	return x + y*BrickSize + z*BrickSize*BrickSize
}

// Get возвращает тексель брика
func (b *Brick) Get(x, y, z int) uint8 {
	return b[brickIndex(x, y, z)]
}

// Set записывает тексель брика
func (b *Brick) Set(x, y, z int, value uint8) {
	b[brickIndex(x, y, z)] = value
}

// Fill заполняет брик одним значением
func (b *Brick) Fill(value uint8) {
	for i := range b {
		b[i] = value
	}
}
