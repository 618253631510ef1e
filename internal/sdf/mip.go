package sdf

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxelcore/internal/check"
	"github.com/annel0/voxelcore/internal/vec"
)

// Mip уровень поля: сетка косвенной адресации и лениво созданные брики
type Mip struct {
	localToVolumeScale   float32
	scaleBias            mgl32.Vec2
	indirectionSize      vec.Vec3
	volumeBounds         Bounds
	indirectionVoxelSize mgl32.Vec3
	bricks               []*Brick
}

// initialize вычисляет параметры кодирования. Границы меша расширяются на
// один тексель, чтобы у билинейной выборки градиента была рамка.
func (m *Mip) initialize(meshBounds Bounds, localToVolumeScale float32) {
	m.localToVolumeScale = localToVolumeScale

	texels := m.indirectionSize.Scale(UniqueDataBrickSize).Sub(vec.Splat(2 * MeshDistanceFieldObjectBorder))
	texelObjectSpaceSize := divide(meshBounds.Size(), toFloat(texels))
	m.volumeBounds = meshBounds.ExpandBy(texelObjectSpaceSize)

	m.indirectionVoxelSize = divide(m.volumeBounds.Size(), toFloat(m.indirectionSize))

	volumeSpaceVoxelSize := m.indirectionVoxelSize.Mul(localToVolumeScale / UniqueDataBrickSize)
	maxDistanceForEncoding := volumeSpaceVoxelSize.Len() * BandSizeInVoxels
	m.scaleBias = mgl32.Vec2{2 * maxDistanceForEncoding, -maxDistanceForEncoding}
}

func toFloat(v vec.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

// IndirectionSize возвращает размер сетки косвенной адресации
func (m *Mip) IndirectionSize() vec.Vec3 {
	return m.indirectionSize
}

// ScaleBias возвращает (scale, bias) для перевода байта в расстояние объема
func (m *Mip) ScaleBias() mgl32.Vec2 {
	return m.scaleBias
}

// VolumeBounds возвращает границы меша, расширенные на рамку
func (m *Mip) VolumeBounds() Bounds {
	return m.volumeBounds
}

// IndirectionVoxelSize возвращает размер ячейки косвенной адресации
func (m *Mip) IndirectionVoxelSize() mgl32.Vec3 {
	return m.indirectionVoxelSize
}

// VoxelSize возвращает расстояние между соседними текселями брика
func (m *Mip) VoxelSize() mgl32.Vec3 {
	return m.indirectionVoxelSize.Mul(1.0 / UniqueDataBrickSize)
}

// MaxEncodedDistance возвращает максимальное кодируемое расстояние в локальном пространстве
func (m *Mip) MaxEncodedDistance() float32 {
	return -m.scaleBias.Y() / m.localToVolumeScale
}

// Quantize переводит расстояние в локальном пространстве в байт
func (m *Mip) Quantize(distance float32) uint8 {
	volumeSpaceDistance := distance * m.localToVolumeScale
	rescaled := (volumeSpaceDistance - m.scaleBias.Y()) / m.scaleBias.X()
	q := math.Floor(float64(rescaled)*255 + 0.5)
	return uint8(min(max(q, 0), 255))
}

// Dequantize обратное к Quantize преобразование
func (m *Mip) Dequantize(value uint8) float32 {
	rescaled := float32(value) / 255
	return (rescaled*m.scaleBias.X() + m.scaleBias.Y()) / m.localToVolumeScale
}

func (m *Mip) cellIndex(pos vec.Vec3) int {
	if check.Enabled {
		check.Slow(vec.NewIntBox(vec.Vec3{}, m.indirectionSize).Contains(pos),
			"sdf: ячейка %v вне сетки %v", pos, m.indirectionSize)
	}
	return pos.Index(m.indirectionSize)
}

// FindBrick возвращает брик ячейки или nil
func (m *Mip) FindBrick(pos vec.Vec3) *Brick {
	return m.bricks[m.cellIndex(pos)]
}

// FindOrAddBrick возвращает брик ячейки, создавая его при первом обращении.
// Параллельные вызовы допустимы только для разных ячеек.
func (m *Mip) FindOrAddBrick(pos vec.Vec3) *Brick {
	index := m.cellIndex(pos)
	if m.bricks[index] == nil {
		m.bricks[index] = new(Brick)
	}
	return m.bricks[index]
}

// NumBricks возвращает количество созданных бриков
func (m *Mip) NumBricks() int {
	count := 0
	for _, b := range m.bricks {
		if b != nil {
			count++
		}
	}
	return count
}
