package metrics

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats потребление ресурсов процессом
type ProcessStats struct {
	RSS        uint64
	HeapAlloc  uint64
	CPUPercent float64
}

// ReadProcessStats читает RSS и CPU процесса через gopsutil, кучу через runtime
func ReadProcessStats() (ProcessStats, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	stats := ProcessStats{HeapAlloc: m.HeapAlloc}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return stats, err
	}

	if mem, err := proc.MemoryInfo(); err == nil {
		stats.RSS = mem.RSS
	}

	// Получаем процент использования CPU процессом
	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		// Если не удалось получить метрику процесса, попробуем системную
		cpuPercents, err := cpu.Percent(100*time.Millisecond, false)
		if err != nil || len(cpuPercents) == 0 {
			return stats, err
		}
		cpuPercent = cpuPercents[0]
	}
	stats.CPUPercent = cpuPercent
	return stats, nil
}
