package octree

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxelcore/internal/vec"
)

type payload struct {
	value int
}

func TestNewRejectsBadChunkSize(t *testing.T) {
	assert.Panics(t, func() { New[payload](12, 2) })
	assert.Panics(t, func() { New[payload](1, 2) })
	assert.NotPanics(t, func() { New[payload](16, 0) })
}

func TestRootGeometry(t *testing.T) {
	o := New[payload](16, 3)
	root := Root()

	assert.Equal(t, 3, o.Height(root))
	assert.Equal(t, 128, o.NodeSize(root))
	assert.Equal(t, vec.Vec3{}, o.Center(root))
	assert.Equal(t, vec.BoxFromCenter(vec.Vec3{}, 128), o.Bounds(root))
	assert.False(t, o.HasChildren(root))
	assert.Equal(t, 1, o.NumNodes())
	assert.Equal(t, 1, o.NumGroups())
	assert.False(t, Node{}.IsValid())
}

func TestCreateChildrenGeometry(t *testing.T) {
	o := New[payload](16, 3)
	root := Root()
	o.CreateChildren(root)

	require.True(t, o.HasChildren(root))
	assert.Equal(t, 9, o.NumNodes())
	for i := 0; i < 8; i++ {
		child := o.ChildAt(root, i)
		assert.Equal(t, 2, o.Height(child))
		assert.Equal(t, 64, o.NodeSize(child))
		assert.Equal(t, childDirection(i).Scale(32), o.Center(child), "центр ребенка %d", i)
		assert.True(t, o.Bounds(root).ContainsBox(o.Bounds(child)))
	}

	// Точка на центре относится к положительному октанту по всем осям
	assert.Equal(t, o.ChildAt(root, 7), o.Child(root, vec.Vec3{}))
	assert.Equal(t, o.ChildAt(root, 0), o.Child(root, vec.Splat(-1)))
	assert.Equal(t, o.ChildAt(root, 1), o.Child(root, vec.Vec3{X: 5, Y: -5, Z: -5}))
	assert.Equal(t, o.ChildAt(root, 6), o.Child(root, vec.Vec3{X: -5, Y: 5, Z: 5}))
}

func TestDestroyChildrenRestoresAllocation(t *testing.T) {
	o := New[payload](8, 4)
	o.CreateLeaf(vec.Vec3{X: 3, Y: -7, Z: 20})
	before := o.NumGroups()

	child := o.ChildAt(Root(), 2)
	o.CreateChildren(child)
	o.CreateChildren(o.ChildAt(child, 0))
	assert.Equal(t, before+2, o.NumGroups())

	o.DestroyChildren(child)
	assert.Equal(t, before, o.NumGroups())
	assert.False(t, o.HasChildren(child))

	// Освобожденные группы переиспользуются, хранилище не растет
	groups := len(o.pool.groups)
	o.CreateChildren(child)
	assert.Equal(t, groups, len(o.pool.groups))
}

func TestDestroyRootChildren(t *testing.T) {
	o := New[payload](8, 3)
	for i := 0; i < 20; i++ {
		o.CreateLeaf(vec.Vec3{X: i*3 - 30, Y: i, Z: -i})
	}
	o.DestroyChildren(Root())
	assert.Equal(t, 1, o.NumGroups())
	assert.Equal(t, 1, o.NumNodes())
}

func TestCreateLeafContainsPosition(t *testing.T) {
	o := New[payload](16, 4)
	rng := rand.New(rand.NewSource(5))
	half := o.NodeSize(Root()) / 2

	for i := 0; i < 300; i++ {
		p := vec.Vec3{
			X: rng.Intn(2*half) - half,
			Y: rng.Intn(2*half) - half,
			Z: rng.Intn(2*half) - half,
		}
		leaf := o.CreateLeaf(p)
		require.True(t, leaf.IsValid())
		require.Equal(t, 0, o.Height(leaf))
		require.True(t, o.Bounds(leaf).Contains(p), "лист %v не содержит %v", o.Bounds(leaf), p)
		require.Equal(t, leaf, o.Find(p))
		require.Equal(t, leaf, o.CreateLeaf(p), "повторный вызов должен вернуть тот же лист")
	}
}

func TestCreateLeafOutsideRoot(t *testing.T) {
	o := New[payload](16, 2)
	assert.False(t, o.CreateLeaf(vec.Vec3{X: 32}).IsValid(), "Max не входит в корень")
	assert.False(t, o.CreateLeaf(vec.Vec3{Y: -100}).IsValid())
	assert.False(t, o.Find(vec.Vec3{Z: 1000}).IsValid())
	assert.Equal(t, 1, o.NumNodes())
}

func TestParentChildInvariant(t *testing.T) {
	o := New[payload](4, 5)
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 100; i++ {
		o.CreateLeaf(vec.Vec3{X: rng.Intn(128) - 64, Y: rng.Intn(128) - 64, Z: rng.Intn(128) - 64})
	}

	visited := 0
	o.TraverseAll(Continue(func(n Node) {
		visited++
		if !o.HasChildren(n) {
			return
		}
		for i := 0; i < 8; i++ {
			child := o.ChildAt(n, i)
			assert.Equal(t, o.Height(n), o.Height(child)+1)
			assert.True(t, o.Bounds(n).Contains(o.Center(child)))
		}
	}))
	assert.Equal(t, o.NumNodes(), visited)

	flat := 0
	o.ForAllNodes(func(Node) { flat++ })
	assert.Equal(t, o.NumNodes(), flat)
}

func TestTraversePruning(t *testing.T) {
	o := New[payload](8, 2)
	o.CreateLeaf(vec.Vec3{X: 1, Y: 1, Z: 1})

	count := 0
	o.TraverseAll(func(n Node) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count, "false на корне отменяет спуск")

	count = 0
	o.TraverseChildren(Root(), Continue(func(n Node) {
		assert.False(t, n.IsRoot())
		count++
	}))
	assert.Equal(t, o.NumNodes()-1, count)
}

func TestTraverseBounds(t *testing.T) {
	o := New[payload](8, 3)
	half := o.NodeSize(Root()) / 2
	for x := -half; x < half; x += 8 {
		o.CreateLeaf(vec.Vec3{X: x, Y: 0, Z: 0})
	}

	query := vec.NewIntBox(vec.Vec3{X: 0, Y: 0, Z: 0}, vec.Vec3{X: 8, Y: 8, Z: 8})
	var leaves []Node
	o.TraverseBounds(query, Continue(func(n Node) {
		assert.True(t, o.Bounds(n).Intersects(query))
		if o.Height(n) == 0 {
			leaves = append(leaves, n)
		}
	}))
	require.Len(t, leaves, 1)
	assert.Equal(t, query, o.Bounds(leaves[0]))
}

func TestDataAndClone(t *testing.T) {
	o := New[payload](8, 2)
	leaf := o.CreateLeaf(vec.Vec3{X: 2, Y: 3, Z: 4})
	o.Data(leaf).value = 42

	sum := 0
	o.ForAllData(func(d *payload) { sum += d.value })
	assert.Equal(t, 42, sum)

	c := o.Clone()
	c.Data(leaf).value = 7
	assert.Equal(t, 42, o.Data(leaf).value)
	assert.Equal(t, o.NumNodes(), c.NumNodes())

	leaves := o.Leaves()
	assert.Len(t, leaves, 8)
	assert.Greater(t, o.AllocatedSize(), 0)
}
