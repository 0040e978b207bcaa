package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
  "Wacom Intuos Pro M": {
    "default": {
      "pad": ["Button 1 'key ctrl z'"],
      "stylus": ["PressureCurve 0 0 100 100"]
    },
    "gimp": {
      "window-class": "Gimp",
      "mapping": "window",
      "pad": ["Button 1 'key ctrl shift e'"]
    },
    "editor docs": {
      "window-class": "Code",
      "window-title": "docs/",
      "mapping": 1
    }
  },
  "XP-Pen Deco": {
    "fullscreen": {
      "mapping": "DP-2"
    }
  }
}`

func TestParsePreservesDeclarationOrder(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	require.Len(t, cfg.Devices, 2)
	assert.Equal(t, "Wacom Intuos Pro M", cfg.Devices[0].Prefix)
	assert.Equal(t, "XP-Pen Deco", cfg.Devices[1].Prefix)

	rules := cfg.Devices[0].Rules
	require.Len(t, rules, 3)
	assert.Equal(t, "default", rules[0].Name)
	assert.Equal(t, "gimp", rules[1].Name)
	assert.Equal(t, "editor docs", rules[2].Name)
}

func TestParseRuleFields(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	defaultRule := cfg.Devices[0].Rules[0]
	assert.Nil(t, defaultRule.Title)
	assert.Nil(t, defaultRule.Class)
	assert.Nil(t, defaultRule.ID)
	assert.False(t, defaultRule.HasMapping)
	assert.Equal(t, []any{"Button 1 'key ctrl z'"}, defaultRule.Pad)

	gimp := cfg.Devices[0].Rules[1]
	require.NotNil(t, gimp.Class)
	assert.Equal(t, "Gimp", *gimp.Class)
	assert.True(t, gimp.HasMapping)
	assert.Equal(t, "window", gimp.Mapping)

	editor := cfg.Devices[0].Rules[2]
	require.NotNil(t, editor.Title)
	assert.Equal(t, "docs/", *editor.Title)
	assert.Equal(t, 1, editor.Mapping)
}

func TestParseRejectsDuplicatePrefix(t *testing.T) {
	_, err := Parse([]byte("{\"Wacom\": {}, \"Wacom\": {}}"))
	// yaml.v3 reports duplicate mapping keys itself before our decoder runs,
	// but either layer rejecting is acceptable.
	assert.Error(t, err)
}

func TestParseRejectsDuplicateRule(t *testing.T) {
	_, err := Parse([]byte(`
Wacom:
  sketch: {}
  sketch: {}
`))
	assert.Error(t, err)
}

func TestParseRejectsUnknownRuleKey(t *testing.T) {
	_, err := Parse([]byte(`{"Wacom": {"r": {"window-titel": "x"}}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key")
}

func TestParseRejectsListMatcher(t *testing.T) {
	_, err := Parse([]byte(`{"Wacom": {"r": {"window-class": ["a", "b"]}}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a string")
}

func TestParseRejectsNullMatcher(t *testing.T) {
	_, err := Parse([]byte(`{"Wacom": {"r": {"window-class": null}}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a string")
}

func TestParseRejectsScalarTopLevel(t *testing.T) {
	_, err := Parse([]byte(`"just a string"`))
	assert.Error(t, err)
}

func TestParseEmptyRuleName(t *testing.T) {
	_, err := Parse([]byte(`{"Wacom": {"": {}}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule name cannot be empty")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Devices, 2)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestDiff(t *testing.T) {
	previous := []byte("a\nb\nc\n")
	current := []byte("a\nB\nc\n")

	diff := Diff(previous, current)
	assert.NotEmpty(t, diff)
	assert.Empty(t, Diff(previous, previous))
}
