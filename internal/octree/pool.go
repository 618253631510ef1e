package octree

import "github.com/annel0/voxelcore/internal/vec"

// nodeStorage слот узла в плоском хранилище
type nodeStorage[T any] struct {
	data     T
	center   vec.Vec3
	bounds   vec.IntBox
	height   int32
	children int32 // индекс группы детей или -1
}

type nodeGroup[T any] [8]nodeStorage[T]

// groupPool разреженный массив групп по 8 узлов. Освобожденные группы
// попадают в список свободных и переиспользуются.
type groupPool[T any] struct {
	groups []nodeGroup[T]
	used   []bool
	free   []int32
}

func (p *groupPool[T]) add() int32 {
	if n := len(p.free); n > 0 {
		index := p.free[n-1]
		p.free = p.free[:n-1]
		p.used[index] = true
		return index
	}
	p.groups = append(p.groups, nodeGroup[T]{})
	p.used = append(p.used, true)
	return int32(len(p.groups) - 1)
}

func (p *groupPool[T]) remove(index int32) {
	p.groups[index] = nodeGroup[T]{}
	p.used[index] = false
	p.free = append(p.free, index)
}

func (p *groupPool[T]) isAllocated(index int) bool {
	return index >= 0 && index < len(p.used) && p.used[index]
}

// numAllocated возвращает количество живых групп
func (p *groupPool[T]) numAllocated() int {
	return len(p.groups) - len(p.free)
}

func (p *groupPool[T]) clone() groupPool[T] {
	c := groupPool[T]{
		groups: make([]nodeGroup[T], len(p.groups)),
		used:   make([]bool, len(p.used)),
		free:   make([]int32, len(p.free)),
	}
	copy(c.groups, p.groups)
	copy(c.used, p.used)
	copy(c.free, p.free)
	return c
}
