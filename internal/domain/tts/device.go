package tts

import (
	"os"
	"os/exec"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Compute devices the model runtime can target.
const (
	DeviceCUDA = "cuda"
	DeviceMPS  = "mps"
	DeviceCPU  = "cpu"
)

// DetectDevice picks the compute device for model loading. An explicit,
// non-empty configured value always wins; otherwise cuda is preferred,
// then mps on Apple silicon, then cpu.
func DetectDevice(configured string) string {
	if configured != "" {
		return configured
	}
	if cudaAvailable() {
		return DeviceCUDA
	}
	if mpsAvailable() {
		return DeviceMPS
	}
	return DeviceCPU
}

func cudaAvailable() bool {
	if _, err := os.Stat("/proc/driver/nvidia/version"); err == nil {
		return true
	}
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}

func mpsAvailable() bool {
	return runtime.GOOS == "darwin" && runtime.GOARCH == "arm64"
}

// HostInfo is the machine summary reported by the health endpoint.
type HostInfo struct {
	Hostname    string  `json:"hostname"`
	Platform    string  `json:"platform"`
	CPUModel    string  `json:"cpu_model"`
	CPUCores    int     `json:"cpu_cores"`
	MemoryTotal uint64  `json:"memory_total_mb"`
	MemoryUsed  float64 `json:"memory_used_percent"`
}

// CollectHostInfo gathers a best-effort machine snapshot. Fields that
// fail to resolve are left at their zero value.
func CollectHostInfo() HostInfo {
	info := HostInfo{CPUCores: runtime.NumCPU()}
	if hi, err := host.Info(); err == nil {
		info.Hostname = hi.Hostname
		info.Platform = hi.Platform + " " + hi.PlatformVersion
	}
	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemoryTotal = vm.Total / 1024 / 1024
		info.MemoryUsed = vm.UsedPercent
	}
	return info
}
