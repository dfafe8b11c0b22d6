package batch

import (
	"runtime"
	"time"
)

// MemoryMetrics captures memory usage statistics at the end of a run.
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
}

// Metrics captures the throughput of a run.
type Metrics struct {
	Workers         int           `json:"workers"`
	NumCPU          int           `json:"num_cpu"`
	ImagesPerSecond float64       `json:"images_per_second"`
	MeanImageTime   time.Duration `json:"mean_image_time"`
	MaxImageTime    time.Duration `json:"max_image_time"`
	Memory          MemoryMetrics `json:"memory"`
}

func collectMetrics(workers int, images []ImageSummary, elapsed time.Duration) Metrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m := Metrics{
		Workers: workers,
		NumCPU:  runtime.NumCPU(),
		Memory: MemoryMetrics{
			AllocBytes:      ms.Alloc,
			TotalAllocBytes: ms.TotalAlloc,
			SysBytes:        ms.Sys,
			NumGC:           ms.NumGC,
			HeapAllocBytes:  ms.HeapAlloc,
		},
	}
	if len(images) == 0 {
		return m
	}

	var total time.Duration
	for _, img := range images {
		total += img.Duration
		m.MaxImageTime = max(m.MaxImageTime, img.Duration)
	}
	m.MeanImageTime = total / time.Duration(len(images))
	if elapsed > 0 {
		m.ImagesPerSecond = float64(len(images)) / elapsed.Seconds()
	}
	return m
}
