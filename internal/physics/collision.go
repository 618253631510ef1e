package physics

import (
	"github.com/annel0/voxelcore/internal/vec"
)

// BoxSource поставляет мировые боксы занятой геометрии
type BoxSource interface {
	CollisionBoxes(area vec.IntBox) []vec.IntBox
}

// BoxCollider представляет прямоугольный коллайдер сущности.
// Позиция сущности: центр основания (X, Y по центру, Z снизу).
type BoxCollider struct {
	Size vec.Vec3 // Размер в вокселях
}

// NewBoxCollider создаёт новый коллайдер с указанными размерами
func NewBoxCollider(width, depth, height int) *BoxCollider {
	return &BoxCollider{Size: vec.Vec3{X: width, Y: depth, Z: height}}
}

// Bounds возвращает мировые границы коллайдера в позиции pos
func (bc *BoxCollider) Bounds(pos vec.Vec3) vec.IntBox {
	origin := vec.Vec3{X: pos.X - bc.Size.X/2, Y: pos.Y - bc.Size.Y/2, Z: pos.Z}
	return vec.NewIntBox(origin, origin.Add(bc.Size))
}

// IsPointInside проверяет, находится ли точка внутри коллайдера
func (bc *BoxCollider) IsPointInside(colliderPos, point vec.Vec3) bool {
	return bc.Bounds(colliderPos).Contains(point)
}

// CheckBoxCollision проверяет столкновение двух коллайдеров
func CheckBoxCollision(pos1 vec.Vec3, collider1 *BoxCollider, pos2 vec.Vec3, collider2 *BoxCollider) bool {
	return collider1.Bounds(pos1).Intersects(collider2.Bounds(pos2))
}

// CanMoveToPosition проверяет, помещается ли коллайдер в позицию newPos
func CanMoveToPosition(newPos vec.Vec3, collider *BoxCollider, world BoxSource) bool {
	area := collider.Bounds(newPos)
	for _, box := range world.CollisionBoxes(area) {
		if box.Intersects(area) {
			return false
		}
	}
	return true
}

// DropToGround опускает коллайдер из pos вниз до первой опоры, но не ниже minZ.
// Возвращает позицию и признак того, что опора найдена.
func DropToGround(pos vec.Vec3, collider *BoxCollider, world BoxSource, minZ int) (vec.Vec3, bool) {
	if !CanMoveToPosition(pos, collider, world) {
		return pos, false
	}

	// Столбец под коллайдером: ищем самую высокую верхнюю грань
	column := collider.Bounds(pos)
	column.Min.Z = minZ
	ground := minZ
	found := false
	for _, box := range world.CollisionBoxes(column) {
		if box.Intersects(column) && box.Max.Z <= pos.Z && box.Max.Z >= ground {
			ground = box.Max.Z
			found = true
		}
	}

	pos.Z = ground
	return pos, found
}
