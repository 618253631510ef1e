// Package terrain генерирует занятость вокселей по карте высот из шума Перлина
package terrain

import (
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxelcore/internal/bitarray"
	"github.com/annel0/voxelcore/internal/check"
	"github.com/annel0/voxelcore/internal/config"
	"github.com/annel0/voxelcore/internal/vec"
)

// Generator карта высот: воксель (x, y, z) занят, если z ниже поверхности столбца (x, y).
// Ось Z направлена вверх. Безопасен для параллельного чтения.
type Generator struct {
	noise      *perlin.Perlin
	scale      float64
	baseHeight float64
	amplitude  float64
}

// NewGenerator создает генератор по параметрам конфигурации
func NewGenerator(cfg config.TerrainConfig) *Generator {
	alpha := 2.0 // Сглаживание шума
	beta := 2.0  // Частота шума
	return &Generator{
		noise:      perlin.NewPerlin(alpha, beta, int32(cfg.Octaves), cfg.Seed),
		scale:      cfg.Scale,
		baseHeight: cfg.BaseHeight,
		amplitude:  cfg.Amplitude,
	}
}

// HeightAt возвращает высоту поверхности в точке (x, y)
func (g *Generator) HeightAt(x, y float64) float64 {
	// Шум от -1 до 1 переводим в диапазон от 0 до 1
	n := (g.noise.Noise2D(x*g.scale, y*g.scale) + 1.0) / 2.0
	n = min(max(n, 0), 1)
	return g.baseHeight + n*g.amplitude
}

// columnTop возвращает первый незанятый z столбца с целыми координатами
func (g *Generator) columnTop(x, y int) int {
	return int(math.Ceil(g.HeightAt(float64(x), float64(y))))
}

// IsSolid проверяет, занят ли воксель p
func (g *Generator) IsSolid(p vec.Vec3) bool {
	return p.Z < g.columnTop(p.X, p.Y)
}

// FillChunk записывает занятость вокселей box в out (X быстрее всего).
// out должен иметь box.Size().Volume() бит и быть заполнен нулями.
func (g *Generator) FillChunk(box vec.IntBox, out *bitarray.BitArray) {
	size := box.Size()
	check.Slow(out.Num() == size.Volume(), "terrain: массив на %d бит для бокса %v", out.Num(), box)

	tops := make([]int, size.X*size.Y)
	maxTop := math.MinInt
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			top := g.columnTop(box.Min.X+x, box.Min.Y+y) - box.Min.Z
			tops[x+y*size.X] = top
			maxTop = max(maxTop, top)
		}
	}

	for z := 0; z < min(size.Z, maxTop); z++ {
		for y := 0; y < size.Y; y++ {
			row := vec.Vec3{Y: y, Z: z}.Index(size)
			// Занятые ячейки строки записываются отрезками
			for x := 0; x < size.X; {
				if tops[x+y*size.X] <= z {
					x++
					continue
				}
				start := x
				for x < size.X && tops[x+y*size.X] > z {
					x++
				}
				out.SetRange(row+start, x-start, true)
			}
		}
	}
}

// Distance возвращает вертикальное знаковое расстояние до поверхности:
// отрицательное внутри земли
func (g *Generator) Distance(p mgl32.Vec3) float32 {
	return p.Z() - float32(g.HeightAt(float64(p.X()), float64(p.Y())))
}
