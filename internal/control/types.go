package control

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/merklejerk/wacom-profile-daemon/internal/engine"
	"github.com/merklejerk/wacom-profile-daemon/internal/metrics"
)

const (
	// SocketFileName is the filename of the control socket within the
	// runtime dir.
	SocketFileName = "control.sock"

	// Action names supported by the control protocol.
	ActionStatus  = "status"
	ActionDevices = "devices"
	ActionReload  = "reload"
	ActionResolve = "resolve"
	ActionMetrics = "metrics"

	// Response statuses.
	StatusOK    = "ok"
	StatusError = "error"
)

// Request represents a control API request.
type Request struct {
	Action string `json:"action"`
}

// Response represents a control API response.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// DeviceStatus describes one tracked tablet component.
type DeviceStatus struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	InitialArea string `json:"initialArea,omitempty"`
}

// RulesetStatus summarizes one compiled ruleset.
type RulesetStatus struct {
	Prefix string   `json:"prefix"`
	Rules  []string `json:"rules"`
}

// WindowStatus describes the focused window at the time of the request.
type WindowStatus struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Classes []string `json:"classes,omitempty"`
}

// DaemonStatus is the payload returned by the status action.
type DaemonStatus struct {
	DryRun       bool            `json:"dryRun"`
	ActiveWindow *WindowStatus   `json:"activeWindow,omitempty"`
	Devices      []DeviceStatus  `json:"devices"`
	Rulesets     []RulesetStatus `json:"rulesets"`
}

// ResolveResult captures per-prefix resolution previews.
type ResolveResult struct {
	Resolutions []engine.PrefixResolution `json:"resolutions"`
}

// MetricsResult wraps the collector snapshot.
type MetricsResult struct {
	Metrics metrics.Snapshot `json:"metrics"`
}

// DefaultSocketPath returns the expected location of the control socket.
func DefaultSocketPath() (string, error) {
	if env := os.Getenv("WACOMPROFILED_CONTROL_SOCKET"); env != "" {
		return env, nil
	}
	base := os.Getenv("XDG_RUNTIME_DIR")
	if base == "" {
		base = os.TempDir()
		if base == "" {
			return "", errors.New("no runtime directory available")
		}
	}
	return filepath.Join(base, "wacom-profile-daemon", SocketFileName), nil
}
