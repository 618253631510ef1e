package sdf

import (
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxelcore/internal/check"
	"github.com/annel0/voxelcore/internal/vec"
)

// Builder собирает поле расстояний для бокса меша.
// Порядок работы: SetSize, заполнение бриков через FindOrAddBrick, Build.
type Builder struct {
	meshBounds         Bounds
	localToVolumeScale float32
	mips               [NumMips]Mip
}

// NewBuilder создает сборщик для границ меша в локальном пространстве
func NewBuilder(meshBounds Bounds) *Builder {
	check.Always(meshBounds.IsValid(), "sdf: пустые границы меша %v", meshBounds)
	return &Builder{
		meshBounds:         meshBounds,
		localToVolumeScale: 1 / maxComponent(meshBounds.Extent()),
	}
}

// MeshBounds возвращает границы меша
func (b *Builder) MeshBounds() Bounds {
	return b.meshBounds
}

// LocalToVolumeScale возвращает множитель перевода локального пространства в пространство объема
func (b *Builder) LocalToVolumeScale() float32 {
	return b.localToVolumeScale
}

// Mip возвращает уровень index
func (b *Builder) Mip(index int) *Mip {
	return &b.mips[index]
}

// SetSize задает размер сетки мипа 0; мип m получает ceil(size / 2^m).
// Все ранее созданные брики удаляются.
func (b *Builder) SetSize(mip0IndirectionSize vec.Vec3) {
	check.Always(mip0IndirectionSize.AllGreaterEqual(vec.Splat(1)), "sdf: размер сетки %v", mip0IndirectionSize)

	for i := range b.mips {
		mip := &b.mips[i]
		mip.indirectionSize = mip0IndirectionSize.DivideCeil(1 << i)
		mip.bricks = make([]*Brick, mip.indirectionSize.Volume())
		mip.initialize(b.meshBounds, b.localToVolumeScale)
	}
}

// Build упаковывает мипы: [таблица uint32 little-endian][брики в порядке индексов].
// Самый грубый мип попадает в AlwaysLoadedMip, остальные дописываются в StreamableMips.
func (b *Builder) Build() *VolumeData {
	out := &VolumeData{MostlyTwoSided: true}

	for i := range b.mips {
		mip := &b.mips[i]
		check.Slow(len(mip.bricks) > 0, "sdf: Build до SetSize")

		size := mip.indirectionSize
		numBricks := mip.NumBricks()
		tableBytes := 4 * size.Volume()
		data := make([]byte, tableBytes, tableBytes+numBricks*BrickBytes)

		// Ячейки обходятся в порядке хранения таблицы: X быстрее всего
		brickIndex := 0
		for cell, brick := range mip.bricks {
			entry := uint32(InvalidBrickIndex)
			if brick != nil {
				entry = uint32(brickIndex)
				data = append(data, brick[:]...)
				brickIndex++
			}
			binary.LittleEndian.PutUint32(data[4*cell:], entry)
		}
		check.Always(brickIndex == numBricks, "sdf: записано %d бриков из %d", brickIndex, numBricks)

		outMip := &out.Mips[i]
		if i == NumMips-1 {
			out.AlwaysLoadedMip = data
		} else {
			outMip.BulkOffset = len(out.StreamableMips)
			out.StreamableMips = append(out.StreamableMips, data...)
			outMip.BulkSize = len(data)
		}

		outMip.IndirectionSize = size
		outMip.ScaleBias = mip.scaleBias
		outMip.NumBricks = numBricks

		// Учитываем рамку, добавленную в initialize
		texels := toFloat(size.Scale(UniqueDataBrickSize))
		virtualUVMin := divide(splat(MeshDistanceFieldObjectBorder), texels)
		virtualUVSize := divide(texels.Sub(splat(2*MeshDistanceFieldObjectBorder)), texels)
		volumePositionExtent := b.meshBounds.Extent().Mul(b.localToVolumeScale)

		// [-extent, extent] -> [virtualUVMin, virtualUVMin + virtualUVSize]
		outMip.VolumeToVirtualUVScale = divide(virtualUVSize, volumePositionExtent.Mul(2))
		outMip.VolumeToVirtualUVAdd = multiply(volumePositionExtent, outMip.VolumeToVirtualUVScale).Add(virtualUVMin)
	}

	out.LocalSpaceMeshBounds = b.meshBounds.ShiftBy(splat(-0.5))
	return out
}

// BuildStats сводка по собранному полю
type BuildStats struct {
	BricksPerMip    [NumMips]int
	AlwaysLoaded    int
	Streamable      int
	IndirectionSize vec.Vec3
}

// Stats возвращает сводку по данным Build
func (d *VolumeData) Stats() BuildStats {
	s := BuildStats{
		AlwaysLoaded:    len(d.AlwaysLoadedMip),
		Streamable:      len(d.StreamableMips),
		IndirectionSize: d.Mips[0].IndirectionSize,
	}
	for i, m := range d.Mips {
		s.BricksPerMip[i] = m.NumBricks
	}
	return s
}

// MipData параметры мипа для рендерера
type MipData struct {
	IndirectionSize        vec.Vec3
	ScaleBias              mgl32.Vec2
	NumBricks              int
	BulkOffset             int
	BulkSize               int
	VolumeToVirtualUVScale mgl32.Vec3
	VolumeToVirtualUVAdd   mgl32.Vec3
}
