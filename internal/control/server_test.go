package control_test

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merklejerk/wacom-profile-daemon/internal/config"
	"github.com/merklejerk/wacom-profile-daemon/internal/control"
	"github.com/merklejerk/wacom-profile-daemon/internal/control/client"
	"github.com/merklejerk/wacom-profile-daemon/internal/engine"
	"github.com/merklejerk/wacom-profile-daemon/internal/geometry"
	"github.com/merklejerk/wacom-profile-daemon/internal/metrics"
	"github.com/merklejerk/wacom-profile-daemon/internal/rules"
	"github.com/merklejerk/wacom-profile-daemon/internal/state"
)

type stubTablets struct {
	devices []state.Device
}

func (s *stubTablets) ListDevices(ctx context.Context) ([]state.Device, error) {
	return s.devices, nil
}

func (s *stubTablets) InitialArea(ctx context.Context, id string) (geometry.Bounds, error) {
	return geometry.FromRect(0, 0, 62200, 43200), nil
}

func (s *stubTablets) SetArea(ctx context.Context, id string, area geometry.Bounds) error {
	return nil
}

func (s *stubTablets) MapToOutput(ctx context.Context, id string, output geometry.Bounds) error {
	return nil
}

func (s *stubTablets) SetOption(ctx context.Context, id string, opt string) error {
	return nil
}

type stubWindows struct {
	snapshot state.WindowSnapshot
}

func (s *stubWindows) ActiveWindowID(ctx context.Context) (string, error) {
	return s.snapshot.ID, nil
}

func (s *stubWindows) Snapshot(ctx context.Context) (state.WindowSnapshot, error) {
	return s.snapshot, nil
}

func (s *stubWindows) WindowBounds(ctx context.Context, id string, includeFrame bool) (geometry.Bounds, error) {
	return geometry.FromRect(0, 0, 800, 600), nil
}

func (s *stubWindows) TransientChildren(ctx context.Context, id string) ([]string, error) {
	return nil, nil
}

func (s *stubWindows) ListDisplays(ctx context.Context) ([]state.Display, error) {
	return nil, nil
}

func strptr(s string) *string { return &s }

func startServer(t *testing.T, reloadErr error) (*client.Client, *metrics.Collector, func() int) {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "control.sock")
	t.Setenv("WACOMPROFILED_CONTROL_SOCKET", socketPath)

	cfg := &config.Config{Devices: []config.DeviceRules{{
		Prefix: "Wacom Intuos Pro M",
		Rules: []config.RuleSpec{
			{Name: "default", Pad: []any{"Button 1 key a"}},
			{Name: "gimp", Class: strptr("Gimp"), Mapping: "window", HasMapping: true},
		},
	}}}
	rulesets, err := rules.Compile(cfg)
	require.NoError(t, err)

	tablets := &stubTablets{devices: []state.Device{
		{ID: "21", Name: "Wacom Intuos Pro M Pad pad", Type: state.DevicePad},
	}}
	windows := &stubWindows{snapshot: state.WindowSnapshot{ID: "0x1", Title: "GIMP", Classes: []string{"Gimp"}}}
	collector := metrics.NewCollector()
	eng := engine.New(tablets, windows, zerolog.Nop(), collector, rulesets, false, time.Second)
	require.NoError(t, eng.Reconcile(context.Background()))

	var reloads atomic.Int64
	srv, err := control.NewServer(eng, collector, zerolog.Nop(), func(reason string) error {
		if reloadErr != nil {
			return reloadErr
		}
		reloads.Add(1)
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("control server did not shut down")
		}
	})

	require.Eventually(t, func() bool {
		conn, err := net.Dial("unix", socketPath)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	cli, err := client.New("")
	require.NoError(t, err)
	return cli, collector, func() int { return int(reloads.Load()) }
}

func TestServerStatus(t *testing.T) {
	cli, _, _ := startServer(t, nil)

	status, err := cli.Status()
	require.NoError(t, err)

	assert.False(t, status.DryRun)
	require.NotNil(t, status.ActiveWindow)
	assert.Equal(t, "0x1", status.ActiveWindow.ID)
	assert.Equal(t, []string{"Gimp"}, status.ActiveWindow.Classes)
	require.Len(t, status.Devices, 1)
	assert.Equal(t, "21", status.Devices[0].ID)
	assert.NotEmpty(t, status.Devices[0].InitialArea)
	require.Len(t, status.Rulesets, 1)
	assert.Equal(t, "Wacom Intuos Pro M", status.Rulesets[0].Prefix)
	assert.Equal(t, []string{"default", "gimp"}, status.Rulesets[0].Rules)
}

func TestServerDevices(t *testing.T) {
	cli, _, _ := startServer(t, nil)

	devices, err := cli.Devices()
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "Wacom Intuos Pro M Pad pad", devices[0].Name)
	assert.Equal(t, "PAD", devices[0].Type)
}

func TestServerReload(t *testing.T) {
	cli, _, reloads := startServer(t, nil)

	require.NoError(t, cli.Reload())
	assert.Equal(t, 1, reloads())
}

func TestServerReloadFailure(t *testing.T) {
	cli, _, _ := startServer(t, errors.New("bad config"))

	err := cli.Reload()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad config")
}

func TestServerResolve(t *testing.T) {
	cli, _, _ := startServer(t, nil)

	result, err := cli.Resolve()
	require.NoError(t, err)
	require.Len(t, result.Resolutions, 1)
	assert.Equal(t, []string{"default", "gimp"}, result.Resolutions[0].Matched)
	assert.Equal(t, "window", result.Resolutions[0].Mapping)
}

func TestServerMetrics(t *testing.T) {
	cli, _, _ := startServer(t, nil)

	result, err := cli.Metrics()
	require.NoError(t, err)
	assert.NotZero(t, result.Metrics.Totals.Matched)
}

func TestDefaultSocketPathEnvOverride(t *testing.T) {
	t.Setenv("WACOMPROFILED_CONTROL_SOCKET", "/tmp/custom.sock")
	path, err := control.DefaultSocketPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.sock", path)

	t.Setenv("WACOMPROFILED_CONTROL_SOCKET", "")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	path, err = control.DefaultSocketPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/run/user/1000", "wacom-profile-daemon", control.SocketFileName), path)
}

func TestServerRemovesSocketOnShutdown(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "control.sock")
	t.Setenv("WACOMPROFILED_CONTROL_SOCKET", socketPath)

	tablets := &stubTablets{}
	windows := &stubWindows{}
	eng := engine.New(tablets, windows, zerolog.Nop(), nil, nil, false, time.Second)
	srv, err := control.NewServer(eng, nil, zerolog.Nop(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(socketPath)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
	_, err = os.Stat(socketPath)
	assert.True(t, os.IsNotExist(err))
}
