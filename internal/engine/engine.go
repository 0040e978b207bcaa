package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/merklejerk/wacom-profile-daemon/internal/geometry"
	"github.com/merklejerk/wacom-profile-daemon/internal/metrics"
	"github.com/merklejerk/wacom-profile-daemon/internal/rules"
	"github.com/merklejerk/wacom-profile-daemon/internal/state"
	"github.com/merklejerk/wacom-profile-daemon/internal/xorg"
)

// tabletClient issues xsetwacom queries and commands.
type tabletClient interface {
	ListDevices(ctx context.Context) ([]state.Device, error)
	InitialArea(ctx context.Context, id string) (geometry.Bounds, error)
	SetArea(ctx context.Context, id string, area geometry.Bounds) error
	MapToOutput(ctx context.Context, id string, output geometry.Bounds) error
	SetOption(ctx context.Context, id string, opt string) error
}

// windowSystem answers the focus and geometry queries a resolution pass
// needs.
type windowSystem interface {
	xorg.FocusSource
	TransientChildren(ctx context.Context, id string) ([]string, error)
	ListDisplays(ctx context.Context) ([]state.Display, error)
}

type subscribeFunc func(ctx context.Context) <-chan xorg.Event

// Engine ties together device tracking, rule resolution, and dispatch. The
// compiled ruleset set is read-only between reloads; Reload swaps it
// wholesale so no resolution pass ever observes a half-updated set.
type Engine struct {
	tablets tabletClient
	windows windowSystem
	logger  zerolog.Logger
	metrics *metrics.Collector
	dryRun  bool

	mu       sync.Mutex
	rulesets []rules.Ruleset
	devices  map[string]state.Device
	focused  state.WindowSnapshot

	subscribe subscribeFunc
}

// New creates an engine polling at the given interval.
func New(tablets tabletClient, windows windowSystem, logger zerolog.Logger, collector *metrics.Collector, rulesets []rules.Ruleset, dryRun bool, pollInterval time.Duration) *Engine {
	e := &Engine{
		tablets:  tablets,
		windows:  windows,
		logger:   logger,
		metrics:  collector,
		dryRun:   dryRun,
		rulesets: rulesets,
		devices:  make(map[string]state.Device),
	}
	e.subscribe = func(ctx context.Context) <-chan xorg.Event {
		return xorg.Watch(ctx, windows, tablets, pollInterval, logger)
	}
	return e
}

// Run performs an initial reconcile and then processes change events until
// context cancellation. Events are handled strictly in arrival order; each
// triggers one synchronous resolution pass per configured device prefix.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Reconcile(ctx); err != nil {
		return err
	}
	events := e.subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("event stream closed")
			}
			switch ev.Kind {
			case xorg.EventDevices:
				e.logger.Debug().Int("devices", len(ev.Devices)).Msg("device set changed")
				e.syncDevices(ctx, ev.Devices)
				e.applyAll(ctx)
			case xorg.EventFocus:
				e.logger.Debug().Str("window", ev.Window.ID).Str("title", ev.Window.Title).Msg("focus changed")
				e.setFocused(ev.Window)
				e.applyAll(ctx)
			}
		}
	}
}

// Reconcile refreshes devices and the focused-window snapshot from the
// window system and runs a full resolution pass.
func (e *Engine) Reconcile(ctx context.Context) error {
	devices, err := e.tablets.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("enumerate devices: %w", err)
	}
	e.syncDevices(ctx, devices)
	snap, err := e.windows.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot focused window: %w", err)
	}
	e.setFocused(snap)
	e.applyAll(ctx)
	return nil
}

// Reload atomically replaces the compiled ruleset set. The next resolution
// pass sees either the old set or the new one, never a mixture.
func (e *Engine) Reload(rulesets []rules.Ruleset) {
	e.mu.Lock()
	e.rulesets = rulesets
	e.mu.Unlock()
	e.metrics.Reset()
	e.logger.Info().Int("rulesets", len(rulesets)).Msg("reloaded rulesets")
}

// Focused returns the current focused-window snapshot.
func (e *Engine) Focused() state.WindowSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.focused
}

// Devices returns the tracked devices sorted by id.
func (e *Engine) Devices() []state.Device {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sortedDevicesLocked()
}

// Rulesets returns the active compiled ruleset set.
func (e *Engine) Rulesets() []rules.Ruleset {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]rules.Ruleset, len(e.rulesets))
	copy(out, e.rulesets)
	return out
}

// DryRun reports whether dispatch is suppressed.
func (e *Engine) DryRun() bool { return e.dryRun }

// PrefixResolution is the outcome of resolving the current snapshot for one
// device prefix, without dispatching anything.
type PrefixResolution struct {
	Prefix  string   `json:"prefix"`
	Matched []string `json:"matched,omitempty"`
	Mapping string   `json:"mapping,omitempty"`
	Pad     []string `json:"pad,omitempty"`
	Stylus  []string `json:"stylus,omitempty"`
	Eraser  []string `json:"eraser,omitempty"`
}

// PreviewResolution resolves a fresh focused-window snapshot against every
// ruleset and returns what would be applied.
func (e *Engine) PreviewResolution(ctx context.Context) ([]PrefixResolution, error) {
	snap, err := e.windows.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	rulesets := e.rulesets
	e.mu.Unlock()
	out := make([]PrefixResolution, 0, len(rulesets))
	for _, rs := range rulesets {
		resolved := rs.Resolve(snap)
		entry := PrefixResolution{
			Prefix:  rs.Prefix,
			Matched: resolved.Matched,
			Pad:     resolved.Pad,
			Stylus:  resolved.Stylus,
			Eraser:  resolved.Eraser,
		}
		if !resolved.Mapping.IsZero() {
			entry.Mapping = resolved.Mapping.String()
		}
		out = append(out, entry)
	}
	return out, nil
}

func (e *Engine) setFocused(snap state.WindowSnapshot) {
	e.mu.Lock()
	e.focused = snap
	e.mu.Unlock()
}

// syncDevices reconciles the device table against a fresh enumeration,
// capturing the initial physical area of every device that just appeared.
func (e *Engine) syncDevices(ctx context.Context, current []state.Device) {
	e.mu.Lock()
	known := make(map[string]state.Device, len(e.devices))
	for id, dev := range e.devices {
		known[id] = dev
	}
	e.mu.Unlock()

	delta := state.DiffDevices(known, current)
	for _, dev := range delta.Removed {
		e.logger.Info().Str("device", dev.Name).Str("type", string(dev.Type)).Msg("device removed")
		e.mu.Lock()
		delete(e.devices, dev.ID)
		e.mu.Unlock()
	}
	for _, dev := range delta.Added {
		area, err := e.tablets.InitialArea(ctx, dev.ID)
		if err != nil {
			e.logger.Warn().Err(err).Str("device", dev.Name).Msg("could not capture initial area; mapping disabled for device")
		} else {
			dev.InitialArea = area
			dev.HasArea = true
		}
		e.logger.Info().Str("device", dev.Name).Str("type", string(dev.Type)).Msg("device added")
		e.mu.Lock()
		e.devices[dev.ID] = dev
		e.mu.Unlock()
	}
}

// applyAll runs one resolution pass per configured device prefix against the
// current snapshot. Per-pass failures are contained: a mapping error skips
// only that mapping update, and no error aborts the remaining prefixes.
func (e *Engine) applyAll(ctx context.Context) {
	e.mu.Lock()
	rulesets := e.rulesets
	snap := e.focused
	devices := e.sortedDevicesLocked()
	e.mu.Unlock()

	for _, rs := range rulesets {
		matching := matchingDevices(devices, rs.Prefix)
		if len(matching) == 0 {
			continue
		}
		resolved := rs.Resolve(snap)
		for _, name := range resolved.Matched {
			e.metrics.RecordMatched(rs.Prefix, name)
		}
		if resolved.Empty() {
			e.logger.Debug().Str("prefix", rs.Prefix).Msg("no rule produced anything to apply")
			continue
		}
		e.logger.Debug().
			Str("prefix", rs.Prefix).
			Strs("rules", resolved.Matched).
			Msg("applying resolved profile")
		e.applyMapping(ctx, rs.Prefix, resolved, matching, snap)
		e.applyOptions(ctx, rs.Prefix, resolved, matching)
		for _, name := range resolved.Matched {
			e.metrics.RecordApplied(rs.Prefix, name)
		}
	}
}

func (e *Engine) applyMapping(ctx context.Context, prefix string, resolved rules.Resolved, devices []state.Device, snap state.WindowSnapshot) {
	if resolved.Mapping.IsZero() {
		return
	}
	targets, err := e.mappingTargets(ctx, resolved.Mapping, snap)
	if err != nil {
		e.logger.Warn().Err(err).Str("prefix", prefix).Msg("mapping skipped")
		e.metrics.RecordMappingError(prefix, resolved.MappingRule)
		return
	}
	for _, dev := range devices {
		if !dev.HasArea {
			e.logger.Debug().Str("device", dev.Name).Msg("no initial area; mapping skipped")
			continue
		}
		mapping, err := rules.ComputeMapping(resolved.Mapping, targets, dev.InitialArea)
		if err != nil {
			e.logger.Warn().Err(err).Str("device", dev.Name).Msg("mapping skipped")
			e.metrics.RecordMappingError(prefix, resolved.MappingRule)
			continue
		}
		if e.dryRun {
			e.logger.Info().
				Str("device", dev.Name).
				Stringer("output", mapping.Output).
				Stringer("area", mapping.Tablet).
				Msg("dry-run: would map device")
			continue
		}
		if err := e.tablets.MapToOutput(ctx, dev.ID, mapping.Output); err != nil {
			e.logger.Error().Err(err).Str("device", dev.Name).Msg("MapToOutput failed")
			e.metrics.RecordDispatchError(prefix, resolved.MappingRule)
			continue
		}
		if err := e.tablets.SetArea(ctx, dev.ID, mapping.Tablet); err != nil {
			e.logger.Error().Err(err).Str("device", dev.Name).Msg("Area update failed")
			e.metrics.RecordDispatchError(prefix, resolved.MappingRule)
			continue
		}
		e.logger.Debug().
			Str("device", dev.Name).
			Stringer("output", mapping.Output).
			Stringer("area", mapping.Tablet).
			Msg("mapped device")
	}
}

func (e *Engine) applyOptions(ctx context.Context, prefix string, resolved rules.Resolved, devices []state.Device) {
	for _, dev := range devices {
		opts := resolved.ActionsFor(dev.Type)
		if len(opts) == 0 {
			continue
		}
		for _, opt := range opts {
			if e.dryRun {
				e.logger.Info().Str("device", dev.Name).Str("option", opt).Msg("dry-run: would set option")
				continue
			}
			if err := e.tablets.SetOption(ctx, dev.ID, opt); err != nil {
				e.logger.Error().Err(err).Str("device", dev.Name).Str("option", opt).Msg("option dispatch failed")
				e.metrics.RecordDispatchError(prefix, "")
				continue
			}
			e.logger.Debug().Str("device", dev.Name).Str("option", opt).Msg("set option")
		}
	}
}

// mappingTargets gathers only the window-system geometry the directive's
// kind consumes.
func (e *Engine) mappingTargets(ctx context.Context, d rules.MappingDirective, snap state.WindowSnapshot) (rules.MappingTargets, error) {
	var targets rules.MappingTargets
	switch d.Kind {
	case rules.MapWindow, rules.MapApp:
		if !snap.Focused() {
			return targets, &rules.MappingError{Kind: rules.DegenerateTarget, Directive: d, Detail: "no focused window"}
		}
		bounds, err := e.windows.WindowBounds(ctx, snap.ID, true)
		if err != nil {
			return targets, err
		}
		targets.Window = bounds
		if d.Kind == rules.MapApp {
			children, err := e.windows.TransientChildren(ctx, snap.ID)
			if err != nil {
				return targets, err
			}
			for _, id := range children {
				childBounds, err := e.windows.WindowBounds(ctx, id, true)
				if err != nil {
					e.logger.Debug().Err(err).Str("window", id).Msg("child bounds unavailable")
					continue
				}
				targets.Children = append(targets.Children, childBounds)
			}
		}
	case rules.MapMonitorIndex, rules.MapMonitorID:
		displays, err := e.windows.ListDisplays(ctx)
		if err != nil {
			return targets, err
		}
		targets.Displays = displays
	}
	return targets, nil
}

func (e *Engine) sortedDevicesLocked() []state.Device {
	out := make([]state.Device, 0, len(e.devices))
	for _, dev := range e.devices {
		out = append(out, dev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func matchingDevices(devices []state.Device, prefix string) []state.Device {
	var out []state.Device
	for _, dev := range devices {
		if dev.MatchesPrefix(prefix) {
			out = append(out, dev)
		}
	}
	return out
}
