package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/tdeslauriers/cantor/internal/util"
)

// DiskGuard is the interface for advisory back-pressure on the processing
// volume: when the volume is near capacity the pipeline stops starting new
// conversions for the remainder of the batch pass.
type DiskGuard interface {

	// NearCapacity reports whether used space on the processing volume is at
	// or above the configured threshold percent. A failed query is logged
	// and reported as not-near, so processing is never wedged by a
	// diagnostics failure.
	NearCapacity() bool
}

// NewDiskGuard creates a disk guard for the volume containing path,
// returning a pointer to the concrete implementation.
func NewDiskGuard(path string, thresholdPercent float64) DiskGuard {
	return &diskGuard{
		path:      path,
		threshold: thresholdPercent,

		logger: slog.Default().
			With(slog.String(util.ServiceKey, util.ServiceCantor)).
			With(slog.String(util.PackageKey, util.PackagePipeline)).
			With(slog.String(util.ComponentKey, util.ComponentDiskGuard)),
	}
}

var _ DiskGuard = (*diskGuard)(nil)

// diskGuard is the concrete implementation of the DiskGuard interface.
type diskGuard struct {
	path      string
	threshold float64

	logger *slog.Logger
}

// NearCapacity is the concrete implementation of the interface method which
// reports whether the processing volume is near capacity.
func (g *diskGuard) NearCapacity() bool {

	usage, err := disk.Usage(g.path)
	if err != nil {
		g.logger.Error(fmt.Sprintf("failed to check disk usage for %s: %v", g.path, err))
		return false
	}

	if usage.UsedPercent >= g.threshold {
		g.logger.Warn(fmt.Sprintf("disk usage %.1f%% at or above threshold %.1f%% on %s", usage.UsedPercent, g.threshold, g.path))
		return true
	}

	return false
}
