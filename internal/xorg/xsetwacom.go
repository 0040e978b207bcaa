package xorg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/merklejerk/wacom-profile-daemon/internal/geometry"
	"github.com/merklejerk/wacom-profile-daemon/internal/state"
)

// Wacom wraps xsetwacom shell-outs.
type Wacom struct {
	Binary string
}

// NewWacom returns a client using the xsetwacom binary on PATH.
func NewWacom() *Wacom {
	return &Wacom{Binary: "xsetwacom"}
}

func (w *Wacom) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, w.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("xsetwacom %s: %v: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

var deviceLinePattern = regexp.MustCompile(`^(.*\S)\s+id:\s+(\d+)\s+type:\s+(PAD|STYLUS|ERASER)\s*$`)

// ListDevices enumerates connected tablet components. Devices of types other
// than pad, stylus, and eraser (touch, cursor) are ignored.
func (w *Wacom) ListDevices(ctx context.Context) ([]state.Device, error) {
	out, err := w.run(ctx, "--list", "devices")
	if err != nil {
		return nil, err
	}
	return parseDeviceList(out), nil
}

func parseDeviceList(out string) []state.Device {
	var devices []state.Device
	for _, line := range strings.Split(out, "\n") {
		m := deviceLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		devices = append(devices, state.Device{
			ID:   m[2],
			Name: strings.TrimSpace(m[1]),
			Type: state.DeviceType(m[3]),
		})
	}
	return devices
}

// InitialArea resets any previous area mapping on the device and queries the
// resulting area, which is the full physical active area. Called once per
// device when it first appears.
func (w *Wacom) InitialArea(ctx context.Context, id string) (geometry.Bounds, error) {
	// resetarea fails on components without an Area property; that is fine,
	// the follow-up query reports the real state either way.
	_, _ = w.run(ctx, "--set", id, "resetarea")
	return w.QueryArea(ctx, id)
}

var areaPattern = regexp.MustCompile(`^(-?\d+)\s+(-?\d+)\s+(-?\d+)\s+(-?\d+)`)

// QueryArea reads the device's current Area property.
func (w *Wacom) QueryArea(ctx context.Context, id string) (geometry.Bounds, error) {
	out, err := w.run(ctx, "--get", id, "Area")
	if err != nil {
		return geometry.Bounds{}, err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	area, err := parseArea(line)
	if err != nil {
		return geometry.Bounds{}, fmt.Errorf("device %s: %w", id, err)
	}
	return area, nil
}

func parseArea(line string) (geometry.Bounds, error) {
	m := areaPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return geometry.Bounds{}, fmt.Errorf("invalid area %q", line)
	}
	nums := make([]float64, 4)
	for i, s := range m[1:] {
		n, err := strconv.Atoi(s)
		if err != nil {
			return geometry.Bounds{}, fmt.Errorf("invalid area %q: %w", line, err)
		}
		nums[i] = float64(n)
	}
	return geometry.Bounds{MinX: nums[0], MinY: nums[1], MaxX: nums[2], MaxY: nums[3]}, nil
}

// SetArea writes the device's Area property.
func (w *Wacom) SetArea(ctx context.Context, id string, area geometry.Bounds) error {
	x1, y1, x2, y2 := area.Values()
	_, err := w.run(ctx, "--set", id, "Area",
		strconv.Itoa(x1), strconv.Itoa(y1), strconv.Itoa(x2), strconv.Itoa(y2))
	return err
}

// MapToOutput points the device at a screen rectangle.
func (w *Wacom) MapToOutput(ctx context.Context, id string, output geometry.Bounds) error {
	_, err := w.run(ctx, "--set", id, "MapToOutput", output.String())
	return err
}

// SetOption applies one raw option string verbatim, e.g. "Button 2 key f5".
func (w *Wacom) SetOption(ctx context.Context, id string, opt string) error {
	fields := strings.Fields(opt)
	if len(fields) == 0 {
		return fmt.Errorf("empty option for device %s", id)
	}
	args := append([]string{"--set", id}, fields...)
	_, err := w.run(ctx, args...)
	return err
}
