// Package cpuspec sizes the batch analysis worker pool from the host CPU.
package cpuspec

import (
	"regexp"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// CPUSpec contains information about CPU specifications
type CPUSpec struct {
	BrandName        string
	PhysicalCores    int
	LogicalCores     int
	PerformanceCores int // 0 when the CPU is not a known hybrid design
}

// GetCPUSpec returns the specification of the host CPU
func GetCPUSpec() CPUSpec {
	return CPUSpec{
		BrandName:        cpuid.CPU.BrandName,
		PhysicalCores:    cpuid.CPU.PhysicalCores,
		LogicalCores:     cpuid.CPU.LogicalCores,
		PerformanceCores: determinePerformanceCores(cpuid.CPU.BrandName),
	}
}

// WorkerCount returns how many clips to analyse in parallel. A positive
// configured value wins; otherwise spectral work is spread over performance
// cores, or physical cores, never exceeding the CPUs visible to the process.
func (c CPUSpec) WorkerCount(configured int) int {
	if configured > 0 {
		return configured
	}

	available := runtime.NumCPU()
	workers := c.PerformanceCores
	if workers == 0 {
		workers = c.PhysicalCores
	}
	if workers == 0 {
		workers = c.LogicalCores
	}
	if workers <= 0 || workers > available {
		workers = available
	}
	return max(workers, 1)
}

var (
	intelHybridRegex = regexp.MustCompile(`intel.*(?:core.*i[3579]-(1[234])(\d)00|core.*ultra\s+([579])\s+(?:processor\s+)?(\d{3}))`)
	appleRegex       = regexp.MustCompile(`apple\s+(m[1-4])\s*(pro|max|ultra)?`)
)

// determinePerformanceCores maps hybrid CPU brand names to their P-core count
func determinePerformanceCores(brandName string) int {
	brandName = strings.ToLower(brandName)

	if m := intelHybridRegex.FindStringSubmatch(brandName); m != nil {
		switch {
		case m[1] != "":
			// 12th to 14th gen: tier digit decides the P-core count
			switch m[2] {
			case "9", "7":
				return 8
			case "6", "5", "4":
				return 6
			case "1":
				return 4
			}
		case m[3] != "":
			switch m[3] {
			case "9", "7":
				return 8
			case "5":
				if m[4] == "225" {
					return 4
				}
				return 6
			}
		}
	}

	if m := appleRegex.FindStringSubmatch(brandName); m != nil {
		chip, variant := m[1], m[2]
		switch variant {
		case "pro":
			return 8
		case "max":
			if chip == "m1" {
				return 8
			}
			return 12
		case "ultra":
			if chip == "m1" {
				return 16
			}
			return 24
		default:
			if chip == "m4" {
				return 6
			}
			return 4
		}
	}

	return 0
}
