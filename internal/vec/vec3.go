package vec

import "math"

// Vec3 представляет трехмерный вектор с целочисленными координатами
type Vec3 struct {
	X int
	Y int
	Z int
}

// Splat возвращает вектор с одинаковыми компонентами
func Splat(v int) Vec3 {
	return Vec3{X: v, Y: v, Z: v}
}

// DistanceTo возвращает квадрат расстояния до другого вектора
func (v Vec3) DistanceTo(other Vec3) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return float64(dx*dx + dy*dy + dz*dz)
}

// Length возвращает евклидову длину вектора
func (v Vec3) Length() float64 {
	return math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z))
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub вычитает вектор
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

// Scale умножает все компоненты на скаляр
func (v Vec3) Scale(s int) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// DivideCeil делит компоненты на d с округлением вверх (для неотрицательных значений)
func (v Vec3) DivideCeil(d int) Vec3 {
	return Vec3{
		X: (v.X + d - 1) / d,
		Y: (v.Y + d - 1) / d,
		Z: (v.Z + d - 1) / d,
	}
}

// Min покомпонентный минимум
func (v Vec3) Min(other Vec3) Vec3 {
	return Vec3{X: min(v.X, other.X), Y: min(v.Y, other.Y), Z: min(v.Z, other.Z)}
}

// Max покомпонентный максимум
func (v Vec3) Max(other Vec3) Vec3 {
	return Vec3{X: max(v.X, other.X), Y: max(v.Y, other.Y), Z: max(v.Z, other.Z)}
}

// Volume возвращает X*Y*Z
func (v Vec3) Volume() int {
	return v.X * v.Y * v.Z
}

// Index возвращает линейный индекс точки в сетке size (X меняется быстрее всего)
func (v Vec3) Index(size Vec3) int {
	return v.X + v.Y*size.X + v.Z*size.X*size.Y
}

// FromIndex восстанавливает точку сетки size по линейному индексу
func FromIndex(index int, size Vec3) Vec3 {
	return Vec3{
		X: index % size.X,
		Y: (index / size.X) % size.Y,
		Z: index / (size.X * size.Y),
	}
}

// AllGreaterEqual проверяет v >= other по всем осям
func (v Vec3) AllGreaterEqual(other Vec3) bool {
	return v.X >= other.X && v.Y >= other.Y && v.Z >= other.Z
}

// AllLess проверяет v < other по всем осям
func (v Vec3) AllLess(other Vec3) bool {
	return v.X < other.X && v.Y < other.Y && v.Z < other.Z
}
