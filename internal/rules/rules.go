// Package rules loads declarative rule definitions from the rules directory.
// Each rule lives in its own file, named after the rule, encoded as JSON,
// YAML or TOML.
package rules

import (
	"fmt"
	"sort"
	"strings"
)

// ResourceType selects which resource family a rule checks
type ResourceType int

const (
	// ResourceDisk checks mounted filesystems, targets are mount points
	ResourceDisk ResourceType = iota + 1
	// ResourceMemory checks virtual memory and swap
	ResourceMemory
)

// String returns the rule_type keyword
func (r ResourceType) String() string {
	switch r {
	case ResourceDisk:
		return "disk"
	case ResourceMemory:
		return "memory"
	default:
		return fmt.Sprintf("ResourceType(%d)", int(r))
	}
}

// TargetNoun is how a target of this family is described in alert text
func (r ResourceType) TargetNoun() string {
	switch r {
	case ResourceMemory:
		return "memory"
	default:
		return "mount point"
	}
}

// ParseResourceType converts a rule_type keyword into a ResourceType
func ParseResourceType(s string) (ResourceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disk":
		return ResourceDisk, nil
	case "memory", "mem":
		return ResourceMemory, nil
	case "":
		return 0, fmt.Errorf("rule_type is required")
	default:
		return 0, fmt.Errorf("unsupported rule_type %q (supported: disk, memory)", s)
	}
}

// Check is one target + mode + limit entry. Mode and Limit are kept raw;
// they are parsed per check during evaluation so one bad entry does not
// invalidate the whole rule.
type Check struct {
	Target string `json:"target"`
	Mode   string `json:"mode"`
	Limit  string `json:"limit"`
}

// ChannelConfig is the per-rule configuration of one alert channel
type ChannelConfig struct {
	Contacts []string `json:"contacts,omitempty" yaml:"contacts" toml:"contacts"`
}

// Channel names understood by the dispatcher
const (
	ChannelEmail   = "email"
	ChannelLog     = "log"
	ChannelWebhook = "webhook"
)

// Rule is a validated rule definition
type Rule struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	Type        ResourceType             `json:"-"`
	Checks      []Check                  `json:"checks"`
	Alerts      map[string]ChannelConfig `json:"alerts"`
	// Path is the file the rule was loaded from
	Path string `json:"path,omitempty"`
}

// ChannelNames returns the rule's alert channel names in sorted order
func (r *Rule) ChannelNames() []string {
	names := make([]string, 0, len(r.Alerts))
	for name := range r.Alerts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConfigError reports a missing, unreadable or malformed rule definition
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("rules: %v", e.Err)
	}
	return fmt.Sprintf("rule %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
