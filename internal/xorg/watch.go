package xorg

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/merklejerk/wacom-profile-daemon/internal/geometry"
	"github.com/merklejerk/wacom-profile-daemon/internal/state"
)

// EventKind identifies what changed between two polls.
type EventKind string

const (
	// EventFocus fires when the focused window changed, or when the focused
	// window moved or resized.
	EventFocus EventKind = "focus"
	// EventDevices fires when the connected device set changed.
	EventDevices EventKind = "devices"
)

// Event is one change notification. Focus events carry the snapshot of the
// window focused at the moment the change was observed; device events carry
// the current enumeration.
type Event struct {
	Kind    EventKind
	Window  state.WindowSnapshot
	Devices []state.Device
}

// FocusSource is the window-system surface the watcher polls.
type FocusSource interface {
	ActiveWindowID(ctx context.Context) (string, error)
	WindowBounds(ctx context.Context, id string, includeFrame bool) (geometry.Bounds, error)
	Snapshot(ctx context.Context) (state.WindowSnapshot, error)
}

// DeviceSource enumerates connected tablet components.
type DeviceSource interface {
	ListDevices(ctx context.Context) ([]state.Device, error)
}

// Watch polls the window system and the device list at the given interval and
// streams change events until context cancellation. X11 offers no portable
// push notification for either concern without a persistent display
// connection, so polling mirrors what the desktop tools themselves do.
// Transient query failures are logged and skipped; the next tick retries.
func Watch(ctx context.Context, focus FocusSource, devices DeviceSource, interval time.Duration, logger zerolog.Logger) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var (
			lastWindow  string
			lastBounds  geometry.Bounds
			lastDevices string
			primed      bool
		)
		prime := func() {
			if id, err := focus.ActiveWindowID(ctx); err == nil {
				lastWindow = id
				if id != "" {
					lastBounds, _ = focus.WindowBounds(ctx, id, false)
				}
			}
			if devs, err := devices.ListDevices(ctx); err == nil {
				lastDevices = deviceSignature(devs)
			}
			primed = true
		}
		prime()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if !primed {
				prime()
				continue
			}

			devs, err := devices.ListDevices(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("device enumeration failed")
			} else if sig := deviceSignature(devs); sig != lastDevices {
				lastDevices = sig
				if !emit(ctx, events, Event{Kind: EventDevices, Devices: devs}) {
					return
				}
			}

			id, err := focus.ActiveWindowID(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("active window query failed")
				continue
			}
			var bounds geometry.Bounds
			if id != "" {
				if bounds, err = focus.WindowBounds(ctx, id, false); err != nil {
					logger.Warn().Err(err).Str("window", id).Msg("window bounds query failed")
					continue
				}
			}
			if id == lastWindow && bounds == lastBounds {
				continue
			}
			lastWindow = id
			lastBounds = bounds
			snap, err := focus.Snapshot(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("window snapshot failed")
				continue
			}
			if !emit(ctx, events, Event{Kind: EventFocus, Window: snap}) {
				return
			}
		}
	}()
	return events
}

func emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func deviceSignature(devices []state.Device) string {
	parts := make([]string, 0, len(devices))
	for _, d := range devices {
		parts = append(parts, fmt.Sprintf("%s|%s|%s", d.ID, d.Name, d.Type))
	}
	// Enumeration order from xsetwacom is stable in practice, but sort anyway
	// so a reordered listing does not fake a hotplug.
	sort.Strings(parts)
	return strings.Join(parts, ";")
}
