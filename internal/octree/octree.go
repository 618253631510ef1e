// Package octree реализует разреженное октодерево над ограниченной областью
// без выделения памяти на каждый узел. Узлы хранятся группами по 8 в одном
// плоском массиве: корень занимает слот 0 группы 0 (остальные 7 слотов
// группы 0 не используются), дети узла - одна группа целиком.
//
// Структурные изменения (CreateChildren, DestroyChildren, CreateLeaf) не
// потокобезопасны. Параллельный обход дерева без изменения структуры
// безопасен.
package octree

import (
	"unsafe"

	"github.com/annel0/voxelcore/internal/check"
	"github.com/annel0/voxelcore/internal/logging"
	"github.com/annel0/voxelcore/internal/vec"
)

// Octree октодерево с данными T в каждом узле.
// Лист высоты 0 имеет сторону chunkSize, узел высоты h - chunkSize << h.
type Octree[T any] struct {
	chunkSize int
	depth     int
	pool      groupPool[T]
}

// New создает дерево из одного корня высоты depth с центром в начале координат.
// chunkSize должен быть степенью двойки не меньше 2.
func New[T any](chunkSize, depth int) *Octree[T] {
	check.Always(chunkSize >= 2 && chunkSize&(chunkSize-1) == 0, "octree: размер чанка %d не степень двойки", chunkSize)
	check.Always(depth >= 0 && depth < 24, "octree: недопустимая глубина %d", depth)

	o := &Octree[T]{chunkSize: chunkSize, depth: depth}
	group := o.pool.add()
	for i := range o.pool.groups[group] {
		o.pool.groups[group][i].children = -1
	}

	root := &o.pool.groups[group][0]
	root.height = int32(depth)
	root.bounds = vec.BoxFromCenter(root.center, chunkSize<<depth)
	return o
}

// ChunkSize возвращает сторону листа
func (o *Octree[T]) ChunkSize() int {
	return o.chunkSize
}

// Depth возвращает высоту корня
func (o *Octree[T]) Depth() int {
	return o.depth
}

// NumGroups возвращает количество выделенных групп, включая группу корня
func (o *Octree[T]) NumGroups() int {
	return o.pool.numAllocated()
}

// NumNodes возвращает количество узлов без 7 неиспользуемых слотов группы корня
func (o *Octree[T]) NumNodes() int {
	return o.pool.numAllocated()*8 - 7
}

// AllocatedSize возвращает размер хранилища в байтах
func (o *Octree[T]) AllocatedSize() int {
	return cap(o.pool.groups)*int(unsafe.Sizeof(nodeGroup[T]{})) + cap(o.pool.used) + cap(o.pool.free)*4
}

func (o *Octree[T]) storage(n Node) *nodeStorage[T] {
	if check.Enabled {
		check.Slow(n.IsValid(), "octree: невалидный узел")
		check.Slow(o.pool.isAllocated(n.GroupIndex()), "octree: узел %v ссылается на удаленную группу", n)
		check.Slow(n.GroupIndex() != 0 || n.IsRoot(), "octree: узел %v - пустой слот группы корня", n)
	}
	return &o.pool.groups[n.GroupIndex()][n.ChildIndex()]
}

// Data возвращает указатель на данные узла. Указатель действителен до
// следующего CreateChildren или CreateLeaf.
func (o *Octree[T]) Data(n Node) *T {
	return &o.storage(n).data
}

// Height возвращает высоту узла (0 у листа)
func (o *Octree[T]) Height(n Node) int {
	return int(o.storage(n).height)
}

// NodeSize возвращает сторону узла
func (o *Octree[T]) NodeSize(n Node) int {
	return o.chunkSize << o.storage(n).height
}

// Center возвращает центр узла
func (o *Octree[T]) Center(n Node) vec.Vec3 {
	return o.storage(n).center
}

// Bounds возвращает границы узла
func (o *Octree[T]) Bounds(n Node) vec.IntBox {
	return o.storage(n).bounds
}

// HasChildren проверяет, есть ли у узла дети
func (o *Octree[T]) HasChildren(n Node) bool {
	return o.storage(n).children != -1
}

// ChildAt возвращает ребенка с номером child (бит 0 - X, бит 1 - Y, бит 2 - Z)
func (o *Octree[T]) ChildAt(n Node, child int) Node {
	s := o.storage(n)
	check.Slow(s.children != -1, "octree: у узла %v нет детей", n)
	check.Slow(child >= 0 && child < 8, "octree: номер ребенка %d вне [0, 8)", child)
	return nodeAt(s.children, child)
}

// Child возвращает ребенка, содержащего pos
func (o *Octree[T]) Child(n Node, pos vec.Vec3) Node {
	return o.ChildAt(n, octantOf(o.storage(n).center, pos))
}

// CreateChildren создает 8 детей листа ненулевой высоты
func (o *Octree[T]) CreateChildren(n Node) {
	check.Slow(!o.HasChildren(n), "octree: у узла %v уже есть дети", n)
	check.Slow(o.Height(n) > 0, "octree: узел %v нулевой высоты", n)

	// Группа выделяется до взятия указателя на родителя: массив может переехать
	group := o.pool.add()
	parent := o.storage(n)
	parent.children = group

	height := parent.height - 1
	offset := (o.chunkSize << parent.height) / 4
	for i := range o.pool.groups[group] {
		child := &o.pool.groups[group][i]
		child.center = parent.center.Add(childDirection(i).Scale(offset))
		child.height = height
		child.children = -1
		child.bounds = vec.BoxFromCenter(child.center, o.chunkSize<<height)
	}
}

// DestroyChildren рекурсивно удаляет всех потомков узла
func (o *Octree[T]) DestroyChildren(n Node) {
	s := o.storage(n)
	check.Slow(s.children != -1, "octree: у узла %v нет детей", n)

	group := s.children
	for i := 0; i < 8; i++ {
		if child := nodeAt(group, i); o.HasChildren(child) {
			o.DestroyChildren(child)
		}
	}
	o.pool.remove(group)
	s.children = -1
}

// CreateLeaf создает недостающие узлы на пути от корня и возвращает лист,
// содержащий pos. Для pos вне корня возвращает невалидный узел.
func (o *Octree[T]) CreateLeaf(pos vec.Vec3) Node {
	if !o.Bounds(Root()).Contains(pos) {
		logging.GetOctreeLogger().Warn("точка (%d,%d,%d) вне корня %v", pos.X, pos.Y, pos.Z, o.Bounds(Root()))
		return Node{}
	}

	n := Root()
	for o.Height(n) > 0 {
		if !o.HasChildren(n) {
			o.CreateChildren(n)
		}
		n = o.Child(n, pos)
	}
	return n
}

// Find возвращает самый глубокий существующий узел, содержащий pos,
// или невалидный узел для pos вне корня
func (o *Octree[T]) Find(pos vec.Vec3) Node {
	if !o.Bounds(Root()).Contains(pos) {
		return Node{}
	}
	n := Root()
	for o.HasChildren(n) {
		n = o.Child(n, pos)
	}
	return n
}

// Clone возвращает копию дерева. Данные узлов копируются присваиванием.
func (o *Octree[T]) Clone() *Octree[T] {
	return &Octree[T]{
		chunkSize: o.chunkSize,
		depth:     o.depth,
		pool:      o.pool.clone(),
	}
}
