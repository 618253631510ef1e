package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxelcore/internal/octree"
	"github.com/annel0/voxelcore/internal/storage"
	"github.com/annel0/voxelcore/internal/vec"
)

func toFloat(v vec.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

// ChunkInfo собранный чанк
type ChunkInfo struct {
	Node   octree.Node
	Bounds vec.IntBox
	Data   *ChunkData
}

// ChunksIn возвращает собранные чанки, пересекающиеся с box
func (p *Pipeline) ChunksIn(box vec.IntBox) []ChunkInfo {
	var chunks []ChunkInfo
	p.tree.TraverseBounds(box, octree.Continue(func(n octree.Node) {
		if p.tree.Height(n) != 0 {
			return
		}
		if data := p.tree.Data(n); data.Built {
			chunks = append(chunks, ChunkInfo{Node: n, Bounds: p.tree.Bounds(n), Data: data})
		}
	}))
	return chunks
}

// IsSolid возвращает занятость вокселя по собранным чанкам
func (p *Pipeline) IsSolid(pos vec.Vec3) (bool, bool) {
	n := p.tree.Find(pos)
	if !n.IsValid() || p.tree.Height(n) != 0 {
		return false, false
	}
	data := p.tree.Data(n)
	if !data.Built {
		return false, false
	}
	bounds := p.tree.Bounds(n)
	return data.Occupancy.Test(pos.Sub(bounds.Min).Index(bounds.Size())), true
}

// Prune удаляет из дерева и хранилища все чанки вне keep.
// Поддеревья, целиком лежащие вне keep, освобождаются.
// Данные листа сбрасываются сразу после удаления его записей, поэтому при
// ошибке дерево совпадает с хранилищем: возвращается число уже удаленных
// чанков, а поддеревья не освобождаются.
func (p *Pipeline) Prune(keep vec.IntBox) (int, error) {
	var removed []octree.Node
	var subtrees []octree.Node

	p.tree.TraverseAll(func(n octree.Node) bool {
		if p.tree.Bounds(n).Intersects(keep) {
			return true
		}
		p.tree.Traverse(n, octree.Continue(func(c octree.Node) {
			if p.tree.Height(c) == 0 && p.tree.Data(c).Built {
				removed = append(removed, c)
			}
		}))
		if p.tree.HasChildren(n) {
			subtrees = append(subtrees, n)
		}
		return false
	})

	for i, n := range removed {
		if err := p.store.DeleteChunk(p.tree.Bounds(n).Min); err != nil {
			return i, fmt.Errorf("ошибка удаления чанка %v: %w", p.tree.Bounds(n), err)
		}
		*p.tree.Data(n) = ChunkData{}
	}
	for _, n := range subtrees {
		p.tree.DestroyChildren(n)
	}

	p.collector.SetOctreeNodes(p.tree.NumNodes())
	p.logger.Info("🧹 Удалено чанков: %d, освобождено поддеревьев: %d", len(removed), len(subtrees))
	return len(removed), nil
}

// Restore загружает в дерево все чанки из хранилища
func (p *Pipeline) Restore(ctx context.Context) (int, error) {
	positions, err := p.store.ListChunks()
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения списка чанков: %w", err)
	}

	restored := 0
	for _, pos := range positions {
		if err := ctx.Err(); err != nil {
			return restored, err
		}

		leaf := p.tree.CreateLeaf(pos)
		if !leaf.IsValid() || p.tree.Bounds(leaf).Min != pos {
			p.logger.Warn("Чанк %v не совпадает с сеткой дерева, пропущен", pos)
			continue
		}

		occupancy, err := p.store.LoadOccupancy(pos)
		if err != nil {
			return restored, err
		}
		boxes, err := p.store.LoadBoxes(pos)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return restored, err
		}

		*p.tree.Data(leaf) = ChunkData{Occupancy: occupancy, Boxes: boxes, Built: true}
		restored++
	}

	p.collector.SetOctreeNodes(p.tree.NumNodes())
	return restored, nil
}

// CollisionBoxes возвращает мировые боксы собранных чанков, пересекающие area
func (p *Pipeline) CollisionBoxes(area vec.IntBox) []vec.IntBox {
	var boxes []vec.IntBox
	for _, chunk := range p.ChunksIn(area) {
		for _, b := range chunk.Data.Boxes {
			local := b.Bounds()
			world := vec.NewIntBox(local.Min.Add(chunk.Bounds.Min), local.Max.Add(chunk.Bounds.Min))
			if world.Intersects(area) {
				boxes = append(boxes, world)
			}
		}
	}
	return boxes
}
