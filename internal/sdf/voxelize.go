package sdf

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"github.com/annel0/voxelcore/internal/vec"
)

// DistanceFunc возвращает знаковое расстояние до поверхности в локальном пространстве
type DistanceFunc func(p mgl32.Vec3) float32

// Voxelize заполняет брики всех мипов выборками distance. Брик создается
// только для ячеек, где хотя бы одна выборка попала в кодируемую полосу.
// Слои по Z обрабатываются параллельно (не более workers одновременно),
// отмена ctx проверяется перед каждым слоем.
func Voxelize(ctx context.Context, b *Builder, distance DistanceFunc, workers int) error {
	for i := range b.mips {
		mip := &b.mips[i]

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(workers, 1))
		for z := 0; z < mip.indirectionSize.Z; z++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				mip.voxelizeLayer(z, distance)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// voxelizeLayer обрабатывает ячейки слоя z. Разные слои не пересекаются по ячейкам.
func (m *Mip) voxelizeLayer(z int, distance DistanceFunc) {
	voxelSize := m.VoxelSize()
	var scratch Brick

	for y := 0; y < m.indirectionSize.Y; y++ {
		for x := 0; x < m.indirectionSize.X; x++ {
			cell := vec.Vec3{X: x, Y: y, Z: z}
			brickMin := m.volumeBounds.Min.Add(multiply(toFloat(cell), m.indirectionVoxelSize))

			inBand := false
			for k := 0; k < BrickSize; k++ {
				for j := 0; j < BrickSize; j++ {
					for i := 0; i < BrickSize; i++ {
						p := brickMin.Add(multiply(mgl32.Vec3{float32(i), float32(j), float32(k)}, voxelSize))
						q := m.Quantize(distance(p))
						scratch.Set(i, j, k, q)
						if q > 0 && q < 255 {
							inBand = true
						}
					}
				}
			}

			if inBand {
				*m.FindOrAddBrick(cell) = scratch
			}
		}
	}
}

// SphereDistance возвращает функцию расстояния до сферы
func SphereDistance(center mgl32.Vec3, radius float32) DistanceFunc {
	return func(p mgl32.Vec3) float32 {
		return p.Sub(center).Len() - radius
	}
}
