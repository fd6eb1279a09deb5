package probe

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Dicklesworthstone/rulewatch/internal/checks"
	"github.com/Dicklesworthstone/rulewatch/internal/rules"
)

// Memory target identifiers
const (
	TargetVirtual = "virtual"
	TargetRAM     = "ram"
	TargetSwap    = "swap"
)

// PartitionsFunc lists mounted partitions
type PartitionsFunc func(ctx context.Context, all bool) ([]disk.PartitionStat, error)

// UsageFunc returns usage for a mount point
type UsageFunc func(ctx context.Context, path string) (*disk.UsageStat, error)

// VirtualMemoryFunc returns RAM statistics
type VirtualMemoryFunc func(ctx context.Context) (*mem.VirtualMemoryStat, error)

// SwapMemoryFunc returns swap statistics
type SwapMemoryFunc func(ctx context.Context) (*mem.SwapMemoryStat, error)

// SystemSource probes the local host through gopsutil
type SystemSource struct {
	logger     zerolog.Logger
	partitions PartitionsFunc
	usage      UsageFunc
	virtual    VirtualMemoryFunc
	swap       SwapMemoryFunc
}

// Option configures a SystemSource
type Option func(*SystemSource)

// WithDiskFuncs replaces the partition and usage probes. Intended for tests.
func WithDiskFuncs(p PartitionsFunc, u UsageFunc) Option {
	return func(s *SystemSource) {
		s.partitions = p
		s.usage = u
	}
}

// WithMemoryFuncs replaces the memory probes. Intended for tests.
func WithMemoryFuncs(v VirtualMemoryFunc, sw SwapMemoryFunc) Option {
	return func(s *SystemSource) {
		s.virtual = v
		s.swap = sw
	}
}

// NewSystemSource creates a Source backed by the running system
func NewSystemSource(logger zerolog.Logger, opts ...Option) *SystemSource {
	s := &SystemSource{
		logger:     logger.With().Str("component", "probe").Logger(),
		partitions: disk.PartitionsWithContext,
		usage:      disk.UsageWithContext,
		virtual:    mem.VirtualMemoryWithContext,
		swap:       mem.SwapMemoryWithContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshots implements Source
func (s *SystemSource) Snapshots(ctx context.Context, family rules.ResourceType) (map[string]checks.Snapshot, error) {
	switch family {
	case rules.ResourceDisk:
		return s.diskSnapshots(ctx)
	case rules.ResourceMemory:
		return s.memorySnapshots(ctx)
	default:
		return nil, fmt.Errorf("probe: unsupported resource family %s", family)
	}
}

func (s *SystemSource) diskSnapshots(ctx context.Context) (map[string]checks.Snapshot, error) {
	disks, err := s.Disks(ctx)
	if err != nil {
		return nil, err
	}

	snaps := make(map[string]checks.Snapshot, len(disks))
	for _, d := range disks {
		snaps[d.MountPoint] = checks.Snapshot{
			Total:     float64(d.Total),
			Available: float64(d.Free),
		}
	}
	return snaps, nil
}

// Disks lists mounted physical filesystems with their usage, sorted by
// mount point. Mount points whose usage cannot be read are skipped.
func (s *SystemSource) Disks(ctx context.Context) ([]DiskInfo, error) {
	parts, err := s.partitions(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("listing partitions: %w", err)
	}

	var disks []DiskInfo
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		if seen[p.Mountpoint] {
			continue
		}
		seen[p.Mountpoint] = true

		u, err := s.usage(ctx, p.Mountpoint)
		if err != nil {
			s.logger.Debug().Err(err).Str("mount_point", p.Mountpoint).Msg("skipping unreadable mount point")
			continue
		}

		s.logger.Debug().
			Str("device", p.Device).
			Str("mount_point", p.Mountpoint).
			Uint64("total", u.Total).
			Uint64("free", u.Free).
			Msg("disk probed")

		disks = append(disks, DiskInfo{
			MountPoint: p.Mountpoint,
			Device:     p.Device,
			FSType:     p.Fstype,
			Total:      u.Total,
			Used:       u.Used,
			Free:       u.Free,
		})
	}

	sort.Slice(disks, func(i, j int) bool {
		return disks[i].MountPoint < disks[j].MountPoint
	})
	return disks, nil
}

func (s *SystemSource) memorySnapshots(ctx context.Context) (map[string]checks.Snapshot, error) {
	vm, err := s.virtual(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading virtual memory: %w", err)
	}

	ram := checks.Snapshot{Total: float64(vm.Total), Available: float64(vm.Available)}
	snaps := map[string]checks.Snapshot{
		TargetVirtual: ram,
		TargetRAM:     ram,
	}

	sw, err := s.swap(ctx)
	if err != nil {
		// Hosts without swap still get RAM checks.
		s.logger.Debug().Err(err).Msg("swap statistics unavailable")
		return snaps, nil
	}
	snaps[TargetSwap] = checks.Snapshot{Total: float64(sw.Total), Available: float64(sw.Free)}

	return snaps, nil
}
