package octree

import "github.com/annel0/voxelcore/internal/vec"

// Visitor вызывается для каждого посещенного узла.
// Возврат false отменяет спуск в детей узла, обход соседей продолжается.
type Visitor func(n Node) bool

// Continue превращает функцию без результата в Visitor, всегда спускающийся вниз
func Continue(fn func(n Node)) Visitor {
	return func(n Node) bool {
		fn(n)
		return true
	}
}

// Traverse обходит поддерево n в глубину, начиная с самого n
func (o *Octree[T]) Traverse(n Node, visit Visitor) {
	if !visit(n) || !o.HasChildren(n) {
		return
	}
	for i := 0; i < 8; i++ {
		o.Traverse(o.ChildAt(n, i), visit)
	}
}

// TraverseAll обходит все дерево от корня
func (o *Octree[T]) TraverseAll(visit Visitor) {
	o.Traverse(Root(), visit)
}

// TraverseChildren обходит поддерево n, не вызывая visit для самого n
func (o *Octree[T]) TraverseChildren(n Node, visit Visitor) {
	o.Traverse(n, func(child Node) bool {
		if child == n {
			return true
		}
		return visit(child)
	})
}

// TraverseBounds обходит узлы, границы которых пересекаются с bounds
func (o *Octree[T]) TraverseBounds(bounds vec.IntBox, visit Visitor) {
	o.TraverseAll(func(n Node) bool {
		if !o.Bounds(n).Intersects(bounds) {
			return false
		}
		return visit(n)
	})
}

// ForAllNodes перебирает все выделенные узлы без рекурсии: корень, затем
// группы в порядке хранения
func (o *Octree[T]) ForAllNodes(fn func(n Node)) {
	fn(Root())
	for group := 1; group < len(o.pool.groups); group++ {
		if !o.pool.used[group] {
			continue
		}
		for i := 0; i < 8; i++ {
			fn(nodeAt(int32(group), i))
		}
	}
}

// ForAllData вызывает fn для данных каждого выделенного узла
func (o *Octree[T]) ForAllData(fn func(data *T)) {
	o.ForAllNodes(func(n Node) {
		fn(o.Data(n))
	})
}

// Leaves возвращает все выделенные узлы нулевой высоты
func (o *Octree[T]) Leaves() []Node {
	var leaves []Node
	o.ForAllNodes(func(n Node) {
		if o.Height(n) == 0 {
			leaves = append(leaves, n)
		}
	})
	return leaves
}
