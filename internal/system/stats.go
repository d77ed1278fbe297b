package system

import (
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats — снимок потребления ресурсов текущим процессом
// для отчета о производительности.
type ProcessStats struct {
	RSSBytes   uint64
	CPUPercent float64
}

// CollectProcessStats читает RSS и загрузку CPU текущего процесса.
// Ошибки не фатальны: отчет просто выводится без этих полей.
func CollectProcessStats() (ProcessStats, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return ProcessStats{}, err
	}

	var stats ProcessStats
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		stats.RSSBytes = mem.RSS
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	return stats, nil
}
