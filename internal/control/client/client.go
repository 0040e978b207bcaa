package client

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/merklejerk/wacom-profile-daemon/internal/control"
)

// DefaultTimeout bounds a single control round trip.
const DefaultTimeout = 3 * time.Second

// Client talks to a running daemon over its control socket.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// New creates a client for the given socket path. An empty path selects
// the default location.
func New(socketPath string) (*Client, error) {
	if socketPath == "" {
		path, err := control.DefaultSocketPath()
		if err != nil {
			return nil, err
		}
		socketPath = path
	}
	return &Client{socketPath: socketPath, timeout: DefaultTimeout}, nil
}

// Status returns the daemon's current state.
func (c *Client) Status() (control.DaemonStatus, error) {
	var status control.DaemonStatus
	err := c.do(control.Request{Action: control.ActionStatus}, &status)
	return status, err
}

// Devices returns the tracked tablet components.
func (c *Client) Devices() ([]control.DeviceStatus, error) {
	var devices []control.DeviceStatus
	err := c.do(control.Request{Action: control.ActionDevices}, &devices)
	return devices, err
}

// Reload asks the daemon to re-read its configuration.
func (c *Client) Reload() error {
	return c.do(control.Request{Action: control.ActionReload}, nil)
}

// Resolve previews the resolution for the currently focused window.
func (c *Client) Resolve() (control.ResolveResult, error) {
	var result control.ResolveResult
	err := c.do(control.Request{Action: control.ActionResolve}, &result)
	return result, err
}

// Metrics returns the daemon's counters.
func (c *Client) Metrics() (control.MetricsResult, error) {
	var result control.MetricsResult
	err := c.do(control.Request{Action: control.ActionMetrics}, &result)
	return result, err
}

func (c *Client) do(req control.Request, out any) error {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return fmt.Errorf("connect to daemon at %s: %w", c.socketPath, err)
	}
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	var raw struct {
		Status string          `json:"status"`
		Error  string          `json:"error,omitempty"`
		Data   json.RawMessage `json:"data,omitempty"`
	}
	if err := json.NewDecoder(conn).Decode(&raw); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if raw.Status != control.StatusOK {
		if raw.Error != "" {
			return fmt.Errorf("daemon error: %s", raw.Error)
		}
		return fmt.Errorf("daemon returned status %q", raw.Status)
	}
	if out == nil || len(raw.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
