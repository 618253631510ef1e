package octree

import (
	"fmt"

	"github.com/annel0/voxelcore/internal/vec"
)

// Node легковесная ссылка на узел: индекс слота в плоском хранилище.
// Нулевое значение Node невалидно. Ссылка становится висячей после
// DestroyChildren у одного из предков.
type Node struct {
	ref int32 // индекс слота + 1
}

// Root возвращает ссылку на корень
func Root() Node {
	return Node{ref: 1}
}

func nodeAt(group int32, child int) Node {
	return Node{ref: group*8 + int32(child) + 1}
}

// IsValid возвращает false для нулевой ссылки
func (n Node) IsValid() bool {
	return n.ref > 0
}

// IsRoot проверяет, что ссылка указывает на корень
func (n Node) IsRoot() bool {
	return n.ref == 1
}

// Index возвращает индекс слота в хранилище
func (n Node) Index() int {
	return int(n.ref - 1)
}

// GroupIndex возвращает индекс группы из 8 узлов
func (n Node) GroupIndex() int {
	return n.Index() / 8
}

// ChildIndex возвращает номер узла внутри группы
func (n Node) ChildIndex() int {
	return n.Index() % 8
}

func (n Node) String() string {
	if !n.IsValid() {
		return "node{invalid}"
	}
	return fmt.Sprintf("node{%d:%d}", n.GroupIndex(), n.ChildIndex())
}

// childDirection возвращает знаки смещения октанта: бит 0 - X, бит 1 - Y, бит 2 - Z
func childDirection(child int) vec.Vec3 {
	dir := vec.Splat(-1)
	if child&1 != 0 {
		dir.X = 1
	}
	if child&2 != 0 {
		dir.Y = 1
	}
	if child&4 != 0 {
		dir.Z = 1
	}
	return dir
}

// octantOf возвращает номер октанта, полупространство которого содержит pos
func octantOf(center, pos vec.Vec3) int {
	child := 0
	if pos.X >= center.X {
		child |= 1
	}
	if pos.Y >= center.Y {
		child |= 2
	}
	if pos.Z >= center.Z {
		child |= 4
	}
	return child
}
