package vec

import "fmt"

// IntBox полуоткрытый целочисленный бокс [Min, Max)
type IntBox struct {
	Min Vec3
	Max Vec3
}

// NewIntBox создает бокс по двум углам
func NewIntBox(min, max Vec3) IntBox {
	return IntBox{Min: min, Max: max}
}

// BoxFromCenter создает куб со стороной size вокруг center.
// size должен быть четным, иначе центр смещается к Min.
func BoxFromCenter(center Vec3, size int) IntBox {
	half := size / 2
	return IntBox{
		Min: center.Sub(Splat(half)),
		Max: center.Add(Splat(size - half)),
	}
}

// Size возвращает размер бокса по осям
func (b IntBox) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// IsValid возвращает true, если бокс не пустой
func (b IntBox) IsValid() bool {
	return b.Min.AllLess(b.Max)
}

// Contains проверяет Min <= p < Max
func (b IntBox) Contains(p Vec3) bool {
	return p.AllGreaterEqual(b.Min) && p.AllLess(b.Max)
}

// ContainsBox проверяет, что other целиком лежит внутри b
func (b IntBox) ContainsBox(other IntBox) bool {
	return other.Min.AllGreaterEqual(b.Min) && b.Max.AllGreaterEqual(other.Max)
}

// Intersects проверяет строгое пересечение (касание гранями не считается)
func (b IntBox) Intersects(other IntBox) bool {
	if b.Min.X >= other.Max.X || other.Min.X >= b.Max.X {
		return false
	}
	if b.Min.Y >= other.Max.Y || other.Min.Y >= b.Max.Y {
		return false
	}
	if b.Min.Z >= other.Max.Z || other.Min.Z >= b.Max.Z {
		return false
	}
	return true
}

// Overlap возвращает пересечение двух боксов; результат может быть невалидным
func (b IntBox) Overlap(other IntBox) IntBox {
	return IntBox{Min: b.Min.Max(other.Min), Max: b.Max.Min(other.Max)}
}

// Extend расширяет бокс на amount во все стороны
func (b IntBox) Extend(amount int) IntBox {
	return IntBox{Min: b.Min.Sub(Splat(amount)), Max: b.Max.Add(Splat(amount))}
}

// ForEach вызывает fn для каждой точки бокса, X меняется быстрее всего
func (b IntBox) ForEach(fn func(p Vec3)) {
	for z := b.Min.Z; z < b.Max.Z; z++ {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				fn(Vec3{X: x, Y: y, Z: z})
			}
		}
	}
}

func (b IntBox) String() string {
	return fmt.Sprintf("(%d,%d,%d)-(%d,%d,%d)", b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
}
