package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// rawRule mirrors the on-disk rule layout
type rawRule struct {
	Name        string                   `json:"name" yaml:"name" toml:"name"`
	Description string                   `json:"description" yaml:"description" toml:"description"`
	RuleType    string                   `json:"rule_type" yaml:"rule_type" toml:"rule_type"`
	Rules       []map[string]string      `json:"rules" yaml:"rules" toml:"rules"`
	Alerts      map[string]ChannelConfig `json:"alerts" yaml:"alerts" toml:"alerts"`
}

// ErrNotFound is wrapped by Load when no file matches the rule name
var ErrNotFound = errors.New("not found")

// supportedExts lists rule file extensions, in lookup preference order
var supportedExts = []string{".json", ".yaml", ".yml", ".toml"}

func isRuleFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range supportedExts {
		if ext == e {
			return true
		}
	}
	return false
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// List returns the rule files in dir, sorted by file name
func List(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigError{Err: fmt.Errorf("rules path %s doesn't exist, check the config file", dir)}
		}
		return nil, &ConfigError{Err: fmt.Errorf("reading rules path: %w", err)}
	}
	if !info.IsDir() {
		return nil, &ConfigError{Err: fmt.Errorf("rules path %s is not a directory", dir)}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("reading rules path: %w", err)}
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !isRuleFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Load reads a single rule by name. The name is matched case-insensitively
// against the file name without extension.
func Load(dir, name string) (*Rule, error) {
	paths, err := List(dir)
	if err != nil {
		return nil, err
	}

	for _, p := range paths {
		if strings.EqualFold(stem(p), name) {
			return LoadFile(p)
		}
	}

	return nil, &ConfigError{Err: fmt.Errorf("rule %q %w in %s", name, ErrNotFound, dir)}
}

// LoadAll reads every rule in dir, sorted by rule name. Any malformed file
// fails the whole load; all problems are reported together.
func LoadAll(dir string) ([]*Rule, error) {
	paths, err := List(dir)
	if err != nil {
		return nil, err
	}

	var (
		loaded []*Rule
		errs   error
		seen   = make(map[string]string)
	)
	for _, p := range paths {
		r, err := LoadFile(p)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		key := strings.ToLower(r.Name)
		if prev, dup := seen[key]; dup {
			errs = multierr.Append(errs, &ConfigError{Path: p, Err: fmt.Errorf("duplicate rule name %q (also in %s)", r.Name, prev)})
			continue
		}
		seen[key] = p
		loaded = append(loaded, r)
	}

	if errs != nil {
		return nil, &ConfigError{Err: errs}
	}

	sort.Slice(loaded, func(i, j int) bool {
		return loaded[i].Name < loaded[j].Name
	})
	return loaded, nil
}

// LoadFile reads and validates one rule file
func LoadFile(path string) (*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("failed to open rules file for reading: %w", err)}
	}

	raw, err := decode(path, data)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("failed to read rules file: %w", err)}
	}

	r, err := build(raw, path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return r, nil
}

func decode(path string, data []byte) (rawRule, error) {
	var raw rawRule
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&raw); err != nil {
			return raw, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return raw, err
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return raw, err
		}
	default:
		return raw, fmt.Errorf("unsupported rule file extension %q", filepath.Ext(path))
	}
	return raw, nil
}

// build validates a decoded rule. Mode and limit values are not checked here.
func build(raw rawRule, path string) (*Rule, error) {
	var errs error

	name := strings.TrimSpace(raw.Name)
	if name == "" {
		name = stem(path)
	}

	rt, err := ParseResourceType(raw.RuleType)
	if err != nil {
		errs = multierr.Append(errs, err)
	}

	if len(raw.Rules) == 0 {
		errs = multierr.Append(errs, errors.New("rule has no checks"))
	}

	checks := make([]Check, 0, len(raw.Rules))
	for i, entry := range raw.Rules {
		c := checkFromEntry(entry)
		if c.Target == "" {
			errs = multierr.Append(errs, fmt.Errorf("check #%d: target is required (disk, memory or target key)", i+1))
		}
		checks = append(checks, c)
	}

	alerts := make(map[string]ChannelConfig, len(raw.Alerts))
	for ch, cc := range raw.Alerts {
		ch = strings.ToLower(strings.TrimSpace(ch))
		if ch == ChannelEmail && len(cc.Contacts) == 0 {
			errs = multierr.Append(errs, errors.New("email alert requires at least one contact"))
		}
		alerts[ch] = cc
	}

	if errs != nil {
		return nil, errs
	}

	return &Rule{
		Name:        name,
		Description: strings.TrimSpace(raw.Description),
		Type:        rt,
		Checks:      checks,
		Alerts:      alerts,
		Path:        path,
	}, nil
}

// checkFromEntry reads a check entry, accepting the key aliases used by
// older rule files.
func checkFromEntry(entry map[string]string) Check {
	norm := make(map[string]string, len(entry))
	for k, v := range entry {
		norm[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return Check{
		Target: firstNonEmpty(norm["target"], norm["disk"], norm["memory"]),
		Mode:   firstNonEmpty(norm["option"], norm["mode"]),
		Limit:  norm["limit"],
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
