// internal/api/v2/health.go
package api

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/cardoc/cardoc-go/internal/buildinfo"
	"github.com/cardoc/cardoc-go/internal/logger"
)

// bytesPerMB converts byte counts for the health report
const bytesPerMB = 1024 * 1024

// HealthResponse is the body of GET /api/v2/health.
type HealthResponse struct {
	Status        string            `json:"status"`
	Build         map[string]string `json:"build"`
	Environment   string            `json:"environment"`
	Uptime        string            `json:"uptime"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	Timestamp     string            `json:"timestamp"`
	System        SystemMetrics     `json:"system"`
}

// SystemMetrics is a snapshot of host resource usage.
type SystemMetrics struct {
	CPUPercent float64       `json:"cpu_usage"`
	Goroutines int           `json:"goroutines"`
	Memory     MemoryMetrics `json:"memory"`
	Disk       DiskMetrics   `json:"disk_space"`
}

// MemoryMetrics reports system memory in megabytes.
type MemoryMetrics struct {
	UsedPercent float64 `json:"used_percent"`
	TotalMB     uint64  `json:"total_mb"`
	UsedMB      uint64  `json:"used_mb"`
}

// DiskMetrics reports the volume holding the temp directory.
type DiskMetrics struct {
	Path        string  `json:"path"`
	UsedPercent float64 `json:"used_percent"`
	TotalGB     float64 `json:"total_gb"`
	FreeGB      float64 `json:"free_gb"`
}

// HealthCheck handles the API health check endpoint
func (c *Controller) HealthCheck(ctx echo.Context) error {
	uptime := time.Since(c.startTime)

	env := "production"
	if c.Settings != nil && (c.Settings.WebServer.Debug || c.Settings.Debug) {
		env = "development"
	}

	return ctx.JSON(http.StatusOK, HealthResponse{
		Status:        "healthy",
		Build:         buildinfo.Summary(c.build),
		Environment:   env,
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: uptime.Seconds(),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		System:        c.systemMetrics(),
	})
}

// systemMetrics collects host metrics. A metric that cannot be read is
// reported as zero.
func (c *Controller) systemMetrics() SystemMetrics {
	m := SystemMetrics{Goroutines: runtime.NumGoroutine()}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		m.CPUPercent = percents[0]
	} else if err != nil {
		c.logger.Debug("cpu usage unavailable", logger.Error(err))
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		m.Memory = MemoryMetrics{
			UsedPercent: vm.UsedPercent,
			TotalMB:     vm.Total / bytesPerMB,
			UsedMB:      vm.Used / bytesPerMB,
		}
	} else {
		c.logger.Debug("memory usage unavailable", logger.Error(err))
	}

	path := os.TempDir()
	if c.Settings != nil && c.Settings.Analysis.TempDir != "" {
		path = c.Settings.Analysis.TempDir
	}
	if usage, err := disk.Usage(path); err == nil {
		m.Disk = DiskMetrics{
			Path:        path,
			UsedPercent: usage.UsedPercent,
			TotalGB:     float64(usage.Total) / (bytesPerMB * 1024),
			FreeGB:      float64(usage.Free) / (bytesPerMB * 1024),
		}
	} else {
		c.logger.Debug("disk usage unavailable", logger.String("path", path), logger.Error(err))
	}

	return m
}
