package rules

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRule(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const jsonRule = `{
  "name": "root",
  "description": "Root filesystem",
  "rule_type": "disk",
  "rules": [
    {"disk": "/", "option": "free", "limit": "20%"},
    {"disk": "/var", "option": "used", "limit": "200 MB"}
  ],
  "alerts": {"email": {"contacts": ["ops@example.com", "oncall@example.com"]}, "log": {}}
}`

const yamlRule = `name: swap
rule_type: memory
rules:
  - memory: swap
    mode: used
    limit: 50%
alerts:
  log: {}
`

const tomlRule = `name = "data"
rule_type = "disk"

[[rules]]
target = "/data"
option = "free"
limit = "10GB"

[alerts.webhook]
`

func TestLoadFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeRule(t, dir, "root.json", jsonRule)

	r, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "root", r.Name)
	assert.Equal(t, "Root filesystem", r.Description)
	assert.Equal(t, ResourceDisk, r.Type)
	require.Len(t, r.Checks, 2)
	assert.Equal(t, Check{Target: "/", Mode: "free", Limit: "20%"}, r.Checks[0])
	assert.Equal(t, Check{Target: "/var", Mode: "used", Limit: "200 MB"}, r.Checks[1])
	assert.Equal(t, []string{"ops@example.com", "oncall@example.com"}, r.Alerts[ChannelEmail].Contacts)
	assert.Equal(t, []string{"email", "log"}, r.ChannelNames())
	assert.Equal(t, path, r.Path)
}

func TestLoadFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeRule(t, dir, "swap.yaml", yamlRule)

	r, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, ResourceMemory, r.Type)
	assert.Equal(t, []Check{{Target: "swap", Mode: "used", Limit: "50%"}}, r.Checks)
	assert.Contains(t, r.Alerts, ChannelLog)
}

func TestLoadFileTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeRule(t, dir, "data.toml", tomlRule)

	r, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "data", r.Name)
	assert.Equal(t, []Check{{Target: "/data", Mode: "free", Limit: "10GB"}}, r.Checks)
	assert.Contains(t, r.Alerts, ChannelWebhook)
}

func TestLoadFileNameDefaultsToStem(t *testing.T) {
	dir := t.TempDir()
	path := writeRule(t, dir, "home.json", `{"rule_type":"disk","rules":[{"disk":"/home","option":"free","limit":"1GB"}],"alerts":{}}`)

	r, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "home", r.Name)
}

func TestLoadFileValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"malformed json", `{"name": "x",`, "failed to read rules file"},
		{"missing rule type", `{"name":"x","rules":[{"disk":"/","option":"free","limit":"1GB"}]}`, "rule_type is required"},
		{"cpu not supported", `{"name":"x","rule_type":"cpu","rules":[{"target":"all","option":"used","limit":"90%"}]}`, `unsupported rule_type "cpu"`},
		{"no checks", `{"name":"x","rule_type":"disk","rules":[]}`, "no checks"},
		{"missing target", `{"name":"x","rule_type":"disk","rules":[{"option":"free","limit":"1GB"}]}`, "target is required"},
		{"email without contacts", `{"name":"x","rule_type":"disk","rules":[{"disk":"/","option":"free","limit":"1GB"}],"alerts":{"email":{"contacts":[]}}}`, "at least one contact"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeRule(t, dir, "x.json", tt.content)

			_, err := LoadFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, path, cerr.Path)
		})
	}
}

func TestLoadFileKeepsBadLimitsForEvaluation(t *testing.T) {
	dir := t.TempDir()
	path := writeRule(t, dir, "lax.json", `{"name":"lax","rule_type":"disk","rules":[{"disk":"/","option":"sideways","limit":"lots"}]}`)

	r, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sideways", r.Checks[0].Mode)
	assert.Equal(t, "lots", r.Checks[0].Limit)
}

func TestLoadByName(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "root.json", jsonRule)
	writeRule(t, dir, "swap.yml", yamlRule)

	r, err := Load(dir, "ROOT")
	require.NoError(t, err)
	assert.Equal(t, "root", r.Name)

	r, err = Load(dir, "swap")
	require.NoError(t, err)
	assert.Equal(t, "swap", r.Name)

	_, err = Load(dir, "missing")
	require.Error(t, err)
	var cerr *ConfigError
	assert.True(t, errors.As(err, &cerr))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "root.json", jsonRule)
	writeRule(t, dir, "swap.yaml", yamlRule)
	writeRule(t, dir, "data.toml", tomlRule)
	writeRule(t, dir, "README.md", "# not a rule")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.json"), 0755))

	all, err := LoadAll(dir)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "data", all[0].Name)
	assert.Equal(t, "root", all[1].Name)
	assert.Equal(t, "swap", all[2].Name)
}

func TestLoadAllFailsOnAnyBadFile(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "root.json", jsonRule)
	writeRule(t, dir, "bad1.json", `{`)
	writeRule(t, dir, "bad2.yaml", "rule_type: [")

	_, err := LoadAll(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad1.json")
	assert.Contains(t, err.Error(), "bad2.yaml")

	var cerr *ConfigError
	assert.True(t, errors.As(err, &cerr))
}

func TestLoadAllDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "a.json", `{"name":"same","rule_type":"disk","rules":[{"disk":"/","option":"free","limit":"1GB"}]}`)
	writeRule(t, dir, "b.json", `{"name":"SAME","rule_type":"disk","rules":[{"disk":"/","option":"free","limit":"1GB"}]}`)

	_, err := LoadAll(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate rule name")
}

func TestListMissingDir(t *testing.T) {
	_, err := List(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doesn't exist")
}

func TestParseResourceType(t *testing.T) {
	rt, err := ParseResourceType("DISK")
	require.NoError(t, err)
	assert.Equal(t, ResourceDisk, rt)

	rt, err = ParseResourceType("mem")
	require.NoError(t, err)
	assert.Equal(t, ResourceMemory, rt)
	assert.Equal(t, "memory", rt.TargetNoun())
	assert.Equal(t, "mount point", ResourceDisk.TargetNoun())
}
