// Package probe gathers resource snapshots (disk mount points, memory)
// from the running system.
package probe

import (
	"context"
	"fmt"

	"github.com/Dicklesworthstone/rulewatch/internal/checks"
	"github.com/Dicklesworthstone/rulewatch/internal/rules"
)

// Source supplies snapshots for every target of a resource family, keyed by
// target identifier (mount point for disks, "virtual"/"swap" for memory).
type Source interface {
	Snapshots(ctx context.Context, family rules.ResourceType) (map[string]checks.Snapshot, error)
}

// DiskInfo describes one mounted filesystem for listings
type DiskInfo struct {
	MountPoint string `json:"mount_point"`
	Device     string `json:"device"`
	FSType     string `json:"fs_type"`
	Total      uint64 `json:"total"`
	Used       uint64 `json:"used"`
	Free       uint64 `json:"free"`
}

// StaticSource serves fixed snapshots. Useful for tests and rule dry runs.
type StaticSource map[rules.ResourceType]map[string]checks.Snapshot

// Snapshots implements Source
func (s StaticSource) Snapshots(_ context.Context, family rules.ResourceType) (map[string]checks.Snapshot, error) {
	snaps, ok := s[family]
	if !ok {
		return nil, fmt.Errorf("no snapshots for %s", family)
	}
	out := make(map[string]checks.Snapshot, len(snaps))
	for k, v := range snaps {
		out[k] = v
	}
	return out, nil
}
