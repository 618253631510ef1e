// Package pipeline собирает воксельный регион: размечает чанки в октодереве,
// заполняет занятость по карте высот, покрывает ее боксами, строит поле
// расстояний и сохраняет все в хранилище.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/annel0/voxelcore/internal/bitarray"
	"github.com/annel0/voxelcore/internal/config"
	"github.com/annel0/voxelcore/internal/greedy"
	"github.com/annel0/voxelcore/internal/logging"
	"github.com/annel0/voxelcore/internal/metrics"
	"github.com/annel0/voxelcore/internal/observability"
	"github.com/annel0/voxelcore/internal/octree"
	"github.com/annel0/voxelcore/internal/sdf"
	"github.com/annel0/voxelcore/internal/storage"
	"github.com/annel0/voxelcore/internal/terrain"
	"github.com/annel0/voxelcore/internal/vec"
)

var (
	// ErrEmptyRegion регион не пересекается с корнем октодерева
	ErrEmptyRegion = errors.New("регион вне октодерева")
	// ErrMeshMismatch боксы не совпадают с занятостью чанка
	ErrMeshMismatch = errors.New("боксы не совпадают с занятостью")
)

// ChunkData данные листа октодерева
type ChunkData struct {
	Occupancy *bitarray.BitArray
	Boxes     []greedy.Box
	Built     bool
}

// Pipeline конвейер сборки. Структура октодерева меняется только в
// вызывающей горутине; воркеры пишут лишь данные своих листьев.
type Pipeline struct {
	cfg       *config.Config
	tree      *octree.Octree[ChunkData]
	store     *storage.ChunkStore
	generator *terrain.Generator
	collector *metrics.Collector
	logger    *logging.Logger
	tracer    trace.Tracer
}

// New создает конвейер с пустым октодеревом
func New(cfg *config.Config, store *storage.ChunkStore, collector *metrics.Collector) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		tree:      octree.New[ChunkData](cfg.Octree.ChunkSize, cfg.Octree.Depth),
		store:     store,
		generator: terrain.NewGenerator(cfg.Terrain),
		collector: collector,
		logger:    logging.GetPipelineLogger(),
		tracer:    observability.Tracer(),
	}
}

// Tree возвращает октодерево чанков
func (p *Pipeline) Tree() *octree.Octree[ChunkData] {
	return p.tree
}

// AlignRegion расширяет регион до границ чанков и обрезает по корню
func (p *Pipeline) AlignRegion(region vec.IntBox) (vec.IntBox, error) {
	root := p.tree.Bounds(octree.Root())
	cs := p.cfg.Octree.ChunkSize

	aligned := vec.NewIntBox(
		alignDown(region.Min.Sub(root.Min), cs).Add(root.Min),
		alignDown(region.Max.Sub(root.Min).Add(vec.Splat(cs-1)), cs).Add(root.Min),
	).Overlap(root)
	if !aligned.IsValid() {
		return aligned, fmt.Errorf("%w: %v, корень %v", ErrEmptyRegion, region, root)
	}
	return aligned, nil
}

// alignDown округляет компоненты вниз до кратных step (v >= 0)
func alignDown(v vec.Vec3, step int) vec.Vec3 {
	return vec.Vec3{X: v.X / step * step, Y: v.Y / step * step, Z: v.Z / step * step}
}

// Run собирает регион и сохраняет результат под новым идентификатором сборки
func (p *Pipeline) Run(ctx context.Context, region vec.IntBox) (*Report, error) {
	start := time.Now()
	report := &Report{BuildID: uuid.NewString()}

	ctx, span := p.tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("build.id", report.BuildID),
	))
	defer span.End()

	aligned, err := p.AlignRegion(region)
	if err != nil {
		return nil, p.fail(span, err)
	}
	report.Region = aligned
	p.logger.Info("🚀 Сборка %s: регион %v", report.BuildID, aligned)

	leaves := p.createLeaves(aligned)
	p.collector.SetOctreeNodes(p.tree.NumNodes())
	span.SetAttributes(attribute.Int("chunks", len(leaves)))

	if err := p.buildChunks(ctx, leaves, report); err != nil {
		return nil, p.fail(span, err)
	}

	volume, err := p.buildVolume(ctx, aligned)
	if err != nil {
		return nil, p.fail(span, err)
	}
	stats := volume.Stats()
	report.BricksPerMip = stats.BricksPerMip

	report.VolumeBytes, err = p.store.SaveVolume(report.BuildID, volume)
	if err != nil {
		return nil, p.fail(span, fmt.Errorf("ошибка сохранения поля: %w", err))
	}
	p.collector.ObserveVolume(stats.BricksPerMip[:], report.VolumeBytes)

	report.OctreeNodes = p.tree.NumNodes()
	report.OctreeBytes = p.tree.AllocatedSize()
	report.Duration = time.Since(start)

	err = p.store.SaveManifest(storage.Manifest{
		BuildID:    report.BuildID,
		CreatedAt:  start.UTC(),
		ChunkSize:  p.cfg.Octree.ChunkSize,
		Depth:      p.cfg.Octree.Depth,
		Region:     aligned,
		Chunks:     report.Chunks,
		Boxes:      report.Boxes,
		Volume:     report.BuildID,
		VolumeSize: report.VolumeBytes,
	})
	if err != nil {
		return nil, p.fail(span, fmt.Errorf("ошибка сохранения манифеста: %w", err))
	}

	p.logger.Info("✅ Сборка %s завершена за %v", report.BuildID, report.Duration)
	return report, nil
}

func (p *Pipeline) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	p.logger.Error("Сборка прервана: %v", err)
	return err
}

// createLeaves создает листья для всех чанков региона
func (p *Pipeline) createLeaves(region vec.IntBox) []octree.Node {
	cs := p.cfg.Octree.ChunkSize
	var leaves []octree.Node
	for z := region.Min.Z; z < region.Max.Z; z += cs {
		for y := region.Min.Y; y < region.Max.Y; y += cs {
			for x := region.Min.X; x < region.Max.X; x += cs {
				leaf := p.tree.CreateLeaf(vec.Vec3{X: x, Y: y, Z: z})
				if leaf.IsValid() {
					leaves = append(leaves, leaf)
				}
			}
		}
	}
	p.logger.Debug("Создано %d листьев, узлов в дереве %d", len(leaves), p.tree.NumNodes())
	return leaves
}

func (p *Pipeline) buildChunks(ctx context.Context, leaves []octree.Node, report *Report) error {
	ctx, span := p.tracer.Start(ctx, "pipeline.buildChunks")
	defer span.End()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Pipeline.GetWorkers())

	for _, leaf := range leaves {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := p.buildChunk(leaf)
			if err != nil {
				return err
			}

			mu.Lock()
			report.Chunks++
			report.Boxes += result.boxes
			report.Voxels += result.voxels
			if result.voxels == 0 {
				report.EmptyChunks++
			}
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

type chunkResult struct {
	boxes  int
	voxels int
}

// buildChunk заполняет, покрывает боксами и сохраняет один лист
func (p *Pipeline) buildChunk(leaf octree.Node) (chunkResult, error) {
	start := time.Now()
	bounds := p.tree.Bounds(leaf)
	size := bounds.Size()

	occupancy := bitarray.New(size.Volume(), false)
	p.generator.FillChunk(bounds, occupancy)

	var boxes []greedy.Box
	if value, uniform := occupancy.TryGetAll(); uniform {
		// Однородный чанк покрывается одним боксом без обхода
		if value {
			boxes = []greedy.Box{{SizeX: uint32(size.X), SizeY: uint32(size.Y), SizeZ: uint32(size.Z)}}
		}
	} else {
		boxes = greedy.Mesh3DCopy(size, occupancy)
	}

	if p.cfg.Pipeline.VerifyMeshes {
		raster, disjoint := greedy.Rasterize3D(size, boxes)
		if !disjoint || !raster.Equal(occupancy) {
			return chunkResult{}, fmt.Errorf("%w: чанк %v", ErrMeshMismatch, bounds)
		}
	}

	if err := p.store.SaveChunk(bounds.Min, occupancy, boxes); err != nil {
		return chunkResult{}, fmt.Errorf("чанк %v: %w", bounds, err)
	}

	*p.tree.Data(leaf) = ChunkData{Occupancy: occupancy, Boxes: boxes, Built: true}

	voxels := occupancy.CountSetBits()
	p.collector.ObserveChunk(len(boxes), voxels == 0, time.Since(start))
	p.logger.Trace("Чанк %v: %d вокселей, %d боксов", bounds, voxels, len(boxes))
	return chunkResult{boxes: len(boxes), voxels: voxels}, nil
}

// buildVolume строит поле расстояний по поверхности региона
func (p *Pipeline) buildVolume(ctx context.Context, region vec.IntBox) (*sdf.VolumeData, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.buildVolume")
	defer span.End()

	builder := sdf.NewBuilder(sdf.Bounds{Min: toFloat(region.Min), Max: toFloat(region.Max)})
	builder.SetSize(p.cfg.SDF.Mip0IndirectionSize())

	if err := sdf.Voxelize(ctx, builder, p.generator.Distance, p.cfg.Pipeline.GetWorkers()); err != nil {
		return nil, fmt.Errorf("ошибка построения поля: %w", err)
	}
	return builder.Build(), nil
}
