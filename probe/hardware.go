package probe

import (
	"context"
	"os/exec"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// Docker profiles for the local translation server.
const (
	ProfileGPU     = "gpu"
	ProfileCPUAVX2 = "cpu-avx2"
	ProfileCPU     = "cpu"
)

// Hardware summarizes what the local model server could run on.
type Hardware struct {
	CPU      string
	Cores    int
	Threads  int
	AVX2     bool
	AVX512   bool
	GPU      bool
	GPUNames []string
}

// lookPath and gpuQuery are replaced in tests.
var (
	lookPath = exec.LookPath
	gpuQuery = func(ctx context.Context, bin string) ([]byte, error) {
		return exec.CommandContext(ctx, bin, "--query-gpu=name", "--format=csv,noheader").Output()
	}
)

// DetectHardware inspects the CPU and looks for an NVIDIA GPU.
func DetectHardware(ctx context.Context) Hardware {
	hw := Hardware{
		CPU:     strings.TrimSpace(cpuid.CPU.BrandName),
		Cores:   cpuid.CPU.PhysicalCores,
		Threads: cpuid.CPU.LogicalCores,
		AVX2:    cpuid.CPU.Supports(cpuid.AVX2),
		AVX512:  cpuid.CPU.Supports(cpuid.AVX512F),
	}
	hw.GPUNames = detectGPUs(ctx)
	hw.GPU = len(hw.GPUNames) > 0

	return hw
}

func detectGPUs(ctx context.Context) []string {
	bin, err := lookPath("nvidia-smi")
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	out, err := gpuQuery(ctx, bin)
	if err != nil {
		return nil
	}

	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// RecommendProfile picks the fastest server profile the hardware supports.
func RecommendProfile(hw Hardware) string {
	switch {
	case hw.GPU:
		return ProfileGPU
	case hw.AVX2:
		return ProfileCPUAVX2
	default:
		return ProfileCPU
	}
}
