// Package diagnostics reports on the local machine running the CLI.
// Long monitor sessions and port-forward tunnels run on the operator's
// workstation, so doctor surfaces its health alongside the cluster's.
package diagnostics

import (
	"context"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// GPU describes one local GPU. Utilization fields are best-effort; when
// nvidia-smi is absent only the name is filled in.
type GPU struct {
	Name        string  `json:"name"`
	UtilPercent float64 `json:"util_percent,omitempty"`
	MemTotalMB  float64 `json:"mem_total_mb,omitempty"`
	MemUsedMB   float64 `json:"mem_used_mb,omitempty"`
	HasMetrics  bool    `json:"has_metrics"`
}

// SystemReport is a point-in-time snapshot of the local machine.
type SystemReport struct {
	CPUModel   string  `json:"cpu_model,omitempty"`
	CPUThreads int     `json:"cpu_threads,omitempty"`
	MemTotalMB float64 `json:"mem_total_mb,omitempty"`
	MemUsedMB  float64 `json:"mem_used_mb,omitempty"`
	MemPercent float64 `json:"mem_percent,omitempty"`

	DiskTotalGB float64 `json:"disk_total_gb,omitempty"`
	DiskUsedGB  float64 `json:"disk_used_gb,omitempty"`
	DiskPercent float64 `json:"disk_percent,omitempty"`

	LoadAvg1 float64 `json:"load_avg_1,omitempty"`

	GPUs []GPU `json:"gpus,omitempty"`
}

// CollectSystem gathers the snapshot. Every probe is best-effort; fields
// stay zero when a probe fails.
func CollectSystem(ctx context.Context) SystemReport {
	var report SystemReport

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		report.CPUModel = strings.TrimSpace(infos[0].ModelName)
	}
	if threads, err := cpu.Counts(true); err == nil {
		report.CPUThreads = threads
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		report.MemTotalMB = float64(vm.Total) / 1024 / 1024
		report.MemUsedMB = float64(vm.Used) / 1024 / 1024
		report.MemPercent = vm.UsedPercent
	}

	if usage, err := disk.Usage(rootDiskPath()); err == nil {
		report.DiskTotalGB = float64(usage.Total) / 1024 / 1024 / 1024
		report.DiskUsedGB = float64(usage.Used) / 1024 / 1024 / 1024
		report.DiskPercent = usage.UsedPercent
	}

	if avg, err := load.Avg(); err == nil {
		report.LoadAvg1 = avg.Load1
	}

	report.GPUs = collectGPUs(ctx)
	return report
}

func rootDiskPath() string {
	if runtime.GOOS == "windows" {
		return `C:\`
	}
	return "/"
}

// collectGPUs prefers nvidia-smi for live metrics and falls back to ghw
// for bare device names. The training cluster is NVIDIA-only, so other
// vendor tools are not probed.
func collectGPUs(ctx context.Context) []GPU {
	if gpus := queryNvidiaSMI(ctx); len(gpus) > 0 {
		return gpus
	}
	return queryGhw()
}

func queryNvidiaSMI(ctx context.Context) []GPU {
	if _, err := exec.LookPath("nvidia-smi"); err != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=name,utilization.gpu,memory.total,memory.used",
		"--format=csv,noheader,nounits").Output()
	if err != nil {
		return nil
	}
	return parseNvidiaSMI(string(out))
}

func parseNvidiaSMI(out string) []GPU {
	var gpus []GPU
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.Split(line, ",")
		if len(fields) < 4 {
			continue
		}
		gpu := GPU{Name: strings.TrimSpace(fields[0])}
		util, utilErr := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		total, totalErr := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		used, usedErr := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
		if utilErr == nil && totalErr == nil && usedErr == nil {
			gpu.UtilPercent = util
			gpu.MemTotalMB = total
			gpu.MemUsedMB = used
			gpu.HasMetrics = true
		}
		if gpu.Name != "" {
			gpus = append(gpus, gpu)
		}
	}
	return gpus
}

func queryGhw() []GPU {
	info, err := ghw.GPU()
	if err != nil || info == nil {
		return nil
	}
	var gpus []GPU
	for _, card := range info.GraphicsCards {
		if card.DeviceInfo == nil || card.DeviceInfo.Product == nil {
			continue
		}
		name := strings.TrimSpace(card.DeviceInfo.Product.Name)
		if name != "" {
			gpus = append(gpus, GPU{Name: name})
		}
	}
	return gpus
}
