package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/annel0/voxelcore/internal/sdf"
	"github.com/annel0/voxelcore/internal/vec"
)

// Report итоги одной сборки
type Report struct {
	BuildID      string
	Region       vec.IntBox
	Chunks       int
	EmptyChunks  int
	Boxes        int
	Voxels       int
	OctreeNodes  int
	OctreeBytes  int
	BricksPerMip [sdf.NumMips]int
	VolumeBytes  int
	Duration     time.Duration
}

// String возвращает многострочную сводку для вывода в консоль
func (r *Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "сборка %s, регион %v\n", r.BuildID, r.Region)
	fmt.Fprintf(&sb, "  чанков: %s (пустых %s), вокселей: %s, боксов: %s\n",
		humanize.Comma(int64(r.Chunks)), humanize.Comma(int64(r.EmptyChunks)),
		humanize.Comma(int64(r.Voxels)), humanize.Comma(int64(r.Boxes)))
	fmt.Fprintf(&sb, "  октодерево: %s узлов, %s\n", humanize.Comma(int64(r.OctreeNodes)), humanize.Bytes(uint64(r.OctreeBytes)))
	fmt.Fprintf(&sb, "  поле расстояний: брики по мипам %v, %s\n", r.BricksPerMip, humanize.Bytes(uint64(r.VolumeBytes)))
	fmt.Fprintf(&sb, "  время: %v", r.Duration.Round(time.Millisecond))
	return sb.String()
}

// BoxesPerChunk среднее число боксов на непустой чанк
func (r *Report) BoxesPerChunk() float64 {
	filled := r.Chunks - r.EmptyChunks
	if filled == 0 {
		return 0
	}
	return float64(r.Boxes) / float64(filled)
}
