package state

import (
	"sort"
	"strings"

	"github.com/merklejerk/wacom-profile-daemon/internal/geometry"
)

// DeviceType identifies a tablet component as reported by xsetwacom.
type DeviceType string

const (
	DevicePad    DeviceType = "PAD"
	DeviceStylus DeviceType = "STYLUS"
	DeviceEraser DeviceType = "ERASER"
)

// Device describes one tablet component (pad, stylus, or eraser).
type Device struct {
	ID   string
	Name string
	Type DeviceType

	// InitialArea is the full physical active area captured right after the
	// device appeared, before any mapping shrank it. Valid when HasArea is set.
	InitialArea geometry.Bounds
	HasArea     bool
}

// MatchesPrefix reports whether the device name starts with the given prefix.
// Surrounding whitespace on both sides is ignored; the comparison itself is
// case-sensitive.
func (d Device) MatchesPrefix(prefix string) bool {
	return strings.HasPrefix(strings.TrimSpace(d.Name), strings.TrimSpace(prefix))
}

// WindowSnapshot captures the attributes of the focused window at event time.
// It is immutable for the duration of one resolution pass.
type WindowSnapshot struct {
	ID      string
	Title   string
	Classes []string
}

// Focused reports whether the snapshot refers to an actual window.
func (s WindowSnapshot) Focused() bool {
	return s.ID != ""
}

// Display describes a connected output and its screen rectangle.
type Display struct {
	Name   string
	Bounds geometry.Bounds
}

// DeviceDelta lists devices that appeared or disappeared between two scans.
type DeviceDelta struct {
	Added   []Device
	Removed []Device
}

// Changed reports whether the delta contains any difference.
func (d DeviceDelta) Changed() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0
}

// DiffDevices compares the known device table against a fresh enumeration.
// Devices are keyed by ID; a device whose name or type changed under the same
// ID counts as removed and re-added.
func DiffDevices(known map[string]Device, current []Device) DeviceDelta {
	var delta DeviceDelta
	seen := make(map[string]struct{}, len(current))
	for _, dev := range current {
		seen[dev.ID] = struct{}{}
		prev, ok := known[dev.ID]
		if !ok || prev.Name != dev.Name || prev.Type != dev.Type {
			delta.Added = append(delta.Added, dev)
		}
	}
	for id, dev := range known {
		if _, ok := seen[id]; !ok {
			delta.Removed = append(delta.Removed, dev)
			continue
		}
		for _, curr := range current {
			if curr.ID == id && (curr.Name != dev.Name || curr.Type != dev.Type) {
				delta.Removed = append(delta.Removed, dev)
				break
			}
		}
	}
	sortDevices(delta.Added)
	sortDevices(delta.Removed)
	return delta
}

func sortDevices(devices []Device) {
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
}
