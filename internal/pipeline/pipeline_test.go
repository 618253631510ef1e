package pipeline

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxelcore/internal/config"
	"github.com/annel0/voxelcore/internal/metrics"
	"github.com/annel0/voxelcore/internal/octree"
	"github.com/annel0/voxelcore/internal/physics"
	"github.com/annel0/voxelcore/internal/sdf"
	"github.com/annel0/voxelcore/internal/storage"
	"github.com/annel0/voxelcore/internal/vec"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Octree = config.OctreeConfig{ChunkSize: 16, Depth: 2}
	cfg.SDF = config.SDFConfig{IndirectionX: 4, IndirectionY: 4, IndirectionZ: 4}
	cfg.Pipeline = config.PipelineConfig{Workers: 3, VerifyMeshes: true}
	return cfg
}

func setupTestPipeline(t *testing.T) (*Pipeline, *storage.ChunkStore, *prometheus.Registry) {
	store, err := storage.Open(storage.Options{InMemory: true, Compress: true})
	require.NoError(t, err, "Не удалось открыть хранилище")
	t.Cleanup(func() { store.Close() })

	reg := prometheus.NewRegistry()
	return New(testConfig(), store, metrics.NewCollector(reg)), store, reg
}

// Регион 4x4x3 чанков по 16 вокселей внутри корня [-32, 32)
var testRegion = vec.NewIntBox(vec.Vec3{X: -32, Y: -32, Z: -16}, vec.Vec3{X: 32, Y: 32, Z: 32})

func TestAlignRegion(t *testing.T) {
	p, _, _ := setupTestPipeline(t)

	aligned, err := p.AlignRegion(vec.NewIntBox(vec.Splat(-5), vec.Splat(3)))
	require.NoError(t, err)
	assert.Equal(t, vec.NewIntBox(vec.Splat(-16), vec.Splat(16)), aligned)

	aligned, err = p.AlignRegion(vec.NewIntBox(vec.Splat(-100), vec.Vec3{X: 1, Y: 1, Z: 100}))
	require.NoError(t, err)
	assert.Equal(t, vec.NewIntBox(vec.Splat(-32), vec.Vec3{X: 16, Y: 16, Z: 32}), aligned)

	_, err = p.AlignRegion(vec.NewIntBox(vec.Splat(100), vec.Splat(200)))
	assert.ErrorIs(t, err, ErrEmptyRegion)
}

func TestRunBuildsRegion(t *testing.T) {
	p, store, reg := setupTestPipeline(t)

	report, err := p.Run(context.Background(), testRegion)
	require.NoError(t, err)
	require.NotEmpty(t, report.BuildID)

	assert.Equal(t, testRegion, report.Region)
	assert.Equal(t, 48, report.Chunks)
	assert.GreaterOrEqual(t, report.Boxes, report.Chunks-report.EmptyChunks)
	assert.Equal(t, 1+8+64, report.OctreeNodes, "корень, 8 узлов высоты 1, 64 листа")
	assert.Equal(t, p.Tree().NumNodes(), report.OctreeNodes)
	assert.NotEmpty(t, report.String())

	// Нижний слой целиком под поверхностью: один бокс на чанк
	for _, chunk := range p.ChunksIn(vec.NewIntBox(vec.Vec3{X: -32, Y: -32, Z: -16}, vec.Vec3{X: 32, Y: 32, Z: 0})) {
		assert.Len(t, chunk.Data.Boxes, 1, "чанк %v", chunk.Bounds)
		assert.Equal(t, 16*16*16, chunk.Data.Occupancy.CountSetBits())
	}

	chunks := p.ChunksIn(p.Tree().Bounds(octree.Root()))
	require.Len(t, chunks, 48)
	voxels := 0
	for _, chunk := range chunks {
		voxels += chunk.Data.Occupancy.CountSetBits()
	}
	assert.Equal(t, report.Voxels, voxels)

	// Занятость совпадает с генератором
	for _, pos := range []vec.Vec3{{X: -32, Y: -32, Z: -16}, {X: 0, Y: 0, Z: 5}, {X: 31, Y: -7, Z: 12}, {X: 3, Y: 17, Z: 31}} {
		solid, ok := p.IsSolid(pos)
		require.True(t, ok, "воксель %v", pos)
		assert.Equal(t, p.generator.IsSolid(pos), solid, "воксель %v", pos)
	}
	_, ok := p.IsSolid(vec.Vec3{X: 0, Y: 0, Z: -20})
	assert.False(t, ok, "чанк вне региона не собран")

	positions, err := store.ListChunks()
	require.NoError(t, err)
	assert.Len(t, positions, 48)

	manifest, err := store.LoadManifest("")
	require.NoError(t, err)
	assert.Equal(t, report.BuildID, manifest.BuildID)
	assert.Equal(t, report.Chunks, manifest.Chunks)
	assert.Equal(t, testRegion, manifest.Region)

	volume, err := store.LoadVolume(report.BuildID)
	require.NoError(t, err)
	assert.Equal(t, report.BricksPerMip, volume.Stats().BricksPerMip)
	assert.Positive(t, report.BricksPerMip[0], "поверхность проходит через регион")
	assert.Equal(t, vec.Vec3{X: 4, Y: 4, Z: 4}, volume.Mips[0].IndirectionSize)
	assert.Len(t, volume.Mips, sdf.NumMips)

	built, err := testutil.GatherAndCount(reg, "voxelcore_chunk_build_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, built)
}

func TestRunCanceled(t *testing.T) {
	p, _, _ := setupTestPipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, testRegion)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunOutsideRoot(t *testing.T) {
	p, _, _ := setupTestPipeline(t)

	_, err := p.Run(context.Background(), vec.NewIntBox(vec.Splat(64), vec.Splat(128)))
	assert.ErrorIs(t, err, ErrEmptyRegion)
	assert.Equal(t, 1, p.Tree().NumNodes())
}

func TestPrune(t *testing.T) {
	p, store, _ := setupTestPipeline(t)

	_, err := p.Run(context.Background(), testRegion)
	require.NoError(t, err)

	keep := vec.NewIntBox(vec.Splat(-32), vec.Splat(0))
	removed, err := p.Prune(keep)
	require.NoError(t, err)
	assert.Equal(t, 44, removed)

	// Сохраняется только узел [-32, 0)^3 со своими листьями
	assert.Equal(t, 1+8+8, p.Tree().NumNodes())
	assert.Len(t, p.ChunksIn(p.Tree().Bounds(octree.Root())), 4)

	positions, err := store.ListChunks()
	require.NoError(t, err)
	assert.Len(t, positions, 4)
	for _, pos := range positions {
		assert.True(t, keep.Contains(pos), "чанк %v", pos)
	}
}

func TestPruneFailureKeepsTreeConsistent(t *testing.T) {
	p, store, _ := setupTestPipeline(t)

	_, err := p.Run(context.Background(), testRegion)
	require.NoError(t, err)
	nodes := p.Tree().NumNodes()

	require.NoError(t, store.Close())
	removed, err := p.Prune(vec.NewIntBox(vec.Splat(-32), vec.Splat(0)))
	require.Error(t, err)
	assert.Zero(t, removed)

	// Ни один чанк не удален: все листья остаются собранными, структура цела
	assert.Len(t, p.ChunksIn(p.Tree().Bounds(octree.Root())), 48)
	assert.Equal(t, nodes, p.Tree().NumNodes())
}

func TestRestore(t *testing.T) {
	p, store, _ := setupTestPipeline(t)

	_, err := p.Run(context.Background(), testRegion)
	require.NoError(t, err)

	restored := New(testConfig(), store, metrics.NewCollector(prometheus.NewRegistry()))
	n, err := restored.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 48, n)
	assert.Equal(t, p.Tree().NumNodes(), restored.Tree().NumNodes())

	for _, chunk := range p.ChunksIn(testRegion) {
		found := restored.Tree().Find(chunk.Bounds.Min)
		require.True(t, found.IsValid())
		data := restored.Tree().Data(found)
		require.True(t, data.Built)
		assert.True(t, data.Occupancy.Equal(chunk.Data.Occupancy), "чанк %v", chunk.Bounds)
		assert.Equal(t, chunk.Data.Boxes, data.Boxes)
	}
}

func TestCollisionBoxesFollowTerrain(t *testing.T) {
	p, _, _ := setupTestPipeline(t)

	_, err := p.Run(context.Background(), testRegion)
	require.NoError(t, err)

	// Боксы покрывают столбец ровно до поверхности
	column := vec.NewIntBox(vec.Vec3{X: 5, Y: -3, Z: -16}, vec.Vec3{X: 6, Y: -2, Z: 32})
	solid := 0
	for _, box := range p.CollisionBoxes(column) {
		solid += box.Overlap(column).Size().Volume()
	}
	top := 0
	for z := -16; z < 32; z++ {
		if p.generator.IsSolid(vec.Vec3{X: 5, Y: -3, Z: z}) {
			top = z + 1
		}
	}
	assert.Equal(t, top+16, solid)

	collider := physics.NewBoxCollider(1, 1, 2)
	pos, ok := physics.DropToGround(vec.Vec3{X: 5, Y: -3, Z: 30}, collider, p, -16)
	require.True(t, ok)
	assert.Equal(t, top, pos.Z)
	assert.True(t, physics.CanMoveToPosition(pos, collider, p))
	assert.False(t, physics.CanMoveToPosition(pos.Add(vec.Vec3{Z: -1}), collider, p))
}

func TestReportBoxesPerChunk(t *testing.T) {
	r := &Report{Chunks: 4, EmptyChunks: 2, Boxes: 10}
	assert.Equal(t, 5.0, r.BoxesPerChunk())
	assert.Zero(t, (&Report{Chunks: 3, EmptyChunks: 3}).BoxesPerChunk())
}
