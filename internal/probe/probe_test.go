package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/rulewatch/internal/checks"
	"github.com/Dicklesworthstone/rulewatch/internal/rules"
)

func fakeDisks() (PartitionsFunc, UsageFunc) {
	parts := []disk.PartitionStat{
		{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4"},
		{Device: "/dev/sdb1", Mountpoint: "/data", Fstype: "xfs"},
		{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4"},
		{Device: "/dev/sdc1", Mountpoint: "/broken", Fstype: "ext4"},
	}
	usage := map[string]*disk.UsageStat{
		"/":     {Path: "/", Total: 1000, Used: 600, Free: 350},
		"/data": {Path: "/data", Total: 5000, Used: 1000, Free: 4000},
	}

	return func(context.Context, bool) ([]disk.PartitionStat, error) {
			return parts, nil
		}, func(_ context.Context, path string) (*disk.UsageStat, error) {
			u, ok := usage[path]
			if !ok {
				return nil, errors.New("permission denied")
			}
			return u, nil
		}
}

func TestSystemSourceDisks(t *testing.T) {
	p, u := fakeDisks()
	src := NewSystemSource(zerolog.Nop(), WithDiskFuncs(p, u))

	disks, err := src.Disks(context.Background())
	require.NoError(t, err)
	require.Len(t, disks, 2)
	assert.Equal(t, DiskInfo{MountPoint: "/", Device: "/dev/sda1", FSType: "ext4", Total: 1000, Used: 600, Free: 350}, disks[0])
	assert.Equal(t, "/data", disks[1].MountPoint)
}

func TestSystemSourceDiskSnapshots(t *testing.T) {
	p, u := fakeDisks()
	src := NewSystemSource(zerolog.Nop(), WithDiskFuncs(p, u))

	snaps, err := src.Snapshots(context.Background(), rules.ResourceDisk)
	require.NoError(t, err)
	assert.Equal(t, checks.Snapshot{Total: 1000, Available: 350}, snaps["/"])
	assert.Equal(t, checks.Snapshot{Total: 5000, Available: 4000}, snaps["/data"])
	assert.NotContains(t, snaps, "/broken")
}

func TestSystemSourcePartitionError(t *testing.T) {
	src := NewSystemSource(zerolog.Nop(), WithDiskFuncs(
		func(context.Context, bool) ([]disk.PartitionStat, error) { return nil, errors.New("boom") },
		nil,
	))

	_, err := src.Snapshots(context.Background(), rules.ResourceDisk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing partitions")
}

func TestSystemSourceMemory(t *testing.T) {
	src := NewSystemSource(zerolog.Nop(), WithMemoryFuncs(
		func(context.Context) (*mem.VirtualMemoryStat, error) {
			return &mem.VirtualMemoryStat{Total: 8000, Available: 2000}, nil
		},
		func(context.Context) (*mem.SwapMemoryStat, error) {
			return &mem.SwapMemoryStat{Total: 1000, Free: 900}, nil
		},
	))

	snaps, err := src.Snapshots(context.Background(), rules.ResourceMemory)
	require.NoError(t, err)
	assert.Equal(t, checks.Snapshot{Total: 8000, Available: 2000}, snaps[TargetVirtual])
	assert.Equal(t, snaps[TargetVirtual], snaps[TargetRAM])
	assert.Equal(t, checks.Snapshot{Total: 1000, Available: 900}, snaps[TargetSwap])
}

func TestSystemSourceMemoryWithoutSwap(t *testing.T) {
	src := NewSystemSource(zerolog.Nop(), WithMemoryFuncs(
		func(context.Context) (*mem.VirtualMemoryStat, error) {
			return &mem.VirtualMemoryStat{Total: 8000, Available: 2000}, nil
		},
		func(context.Context) (*mem.SwapMemoryStat, error) {
			return nil, errors.New("no swap")
		},
	))

	snaps, err := src.Snapshots(context.Background(), rules.ResourceMemory)
	require.NoError(t, err)
	assert.Contains(t, snaps, TargetVirtual)
	assert.NotContains(t, snaps, TargetSwap)
}

func TestStaticSource(t *testing.T) {
	src := StaticSource{
		rules.ResourceDisk: {"/": {Total: 10, Available: 5}},
	}

	snaps, err := src.Snapshots(context.Background(), rules.ResourceDisk)
	require.NoError(t, err)
	assert.Equal(t, checks.Snapshot{Total: 10, Available: 5}, snaps["/"])

	snaps["/"] = checks.Snapshot{}
	again, _ := src.Snapshots(context.Background(), rules.ResourceDisk)
	assert.Equal(t, 10.0, again["/"].Total, "callers must not mutate the source")

	_, err = src.Snapshots(context.Background(), rules.ResourceMemory)
	assert.Error(t, err)
}
