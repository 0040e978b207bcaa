package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merklejerk/wacom-profile-daemon/internal/config"
	"github.com/merklejerk/wacom-profile-daemon/internal/engine"
	"github.com/merklejerk/wacom-profile-daemon/internal/geometry"
	"github.com/merklejerk/wacom-profile-daemon/internal/rules"
	"github.com/merklejerk/wacom-profile-daemon/internal/state"
)

type stubTablets struct{}

func (stubTablets) ListDevices(ctx context.Context) ([]state.Device, error) {
	return nil, nil
}

func (stubTablets) InitialArea(ctx context.Context, id string) (geometry.Bounds, error) {
	return geometry.Bounds{}, nil
}

func (stubTablets) SetArea(ctx context.Context, id string, area geometry.Bounds) error {
	return nil
}

func (stubTablets) MapToOutput(ctx context.Context, id string, output geometry.Bounds) error {
	return nil
}

func (stubTablets) SetOption(ctx context.Context, id string, opt string) error {
	return nil
}

type stubWindows struct{}

func (stubWindows) ActiveWindowID(ctx context.Context) (string, error) { return "", nil }

func (stubWindows) Snapshot(ctx context.Context) (state.WindowSnapshot, error) {
	return state.WindowSnapshot{}, nil
}

func (stubWindows) WindowBounds(ctx context.Context, id string, includeFrame bool) (geometry.Bounds, error) {
	return geometry.Bounds{}, nil
}

func (stubWindows) TransientChildren(ctx context.Context, id string) ([]string, error) {
	return nil, nil
}

func (stubWindows) ListDisplays(ctx context.Context) ([]state.Display, error) {
	return nil, nil
}

const initialConfig = `{"Wacom": {"default": {"pad": ["Button 1 key a"]}}}`

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func newTestReloader(t *testing.T, path string) (*configReloader, *engine.Engine) {
	t.Helper()
	cfg, err := config.Parse([]byte(initialConfig))
	require.NoError(t, err)
	rulesets, err := rules.Compile(cfg)
	require.NoError(t, err)
	eng := engine.New(stubTablets{}, stubWindows{}, zerolog.Nop(), nil, rulesets, false, time.Second)
	return newConfigReloader(path, zerolog.Nop(), eng, []byte(initialConfig)), eng
}

func TestReloadSwapsRulesets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeConfig(t, path, initialConfig)
	reloader, eng := newTestReloader(t, path)

	writeConfig(t, path, `{"XP-Pen": {"sketch": {"stylus": ["RawSample 4"]}}}`)
	require.NoError(t, reloader.Reload(context.Background(), "test"))

	rulesets := eng.Rulesets()
	require.Len(t, rulesets, 1)
	assert.Equal(t, "XP-Pen", rulesets[0].Prefix)
}

func TestReloadRejectsInvalidConfigAndKeepsLastGood(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeConfig(t, path, initialConfig)
	reloader, eng := newTestReloader(t, path)

	writeConfig(t, path, `{"Wacom": {"bad": {"window-title": "([unclosed"}}}`)
	err := reloader.Reload(context.Background(), "test")
	require.Error(t, err)

	rulesets := eng.Rulesets()
	require.Len(t, rulesets, 1)
	assert.Equal(t, "Wacom", rulesets[0].Prefix)
	require.Len(t, rulesets[0].Rules, 1)
	assert.Equal(t, "default", rulesets[0].Rules[0].Name)
}

func TestReloadRejectsUnparseableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeConfig(t, path, initialConfig)
	reloader, eng := newTestReloader(t, path)

	writeConfig(t, path, `{"Wacom": [1, 2, 3]}`)
	err := reloader.Reload(context.Background(), "test")
	require.Error(t, err)
	assert.Len(t, eng.Rulesets(), 1)
}

func TestReloadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	reloader, _ := newTestReloader(t, path)

	err := reloader.Reload(context.Background(), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}
