package rules

import (
	"fmt"

	"github.com/merklejerk/wacom-profile-daemon/internal/geometry"
	"github.com/merklejerk/wacom-profile-daemon/internal/state"
)

// MappingKind enumerates the tablet-to-screen mapping modes.
type MappingKind int

const (
	MapNone MappingKind = iota
	MapApp
	MapWindow
	MapMonitorIndex
	MapMonitorID
)

// MappingDirective is the compiled form of a rule's mapping value. The zero
// value means the rule does not alter the mapping.
type MappingDirective struct {
	Kind   MappingKind
	Index  int    // MapMonitorIndex
	Output string // MapMonitorID
}

func (d MappingDirective) IsZero() bool { return d.Kind == MapNone }

func (d MappingDirective) String() string {
	switch d.Kind {
	case MapApp:
		return "app"
	case MapWindow:
		return "window"
	case MapMonitorIndex:
		return fmt.Sprintf("monitor[%d]", d.Index)
	case MapMonitorID:
		return fmt.Sprintf("monitor[%s]", d.Output)
	default:
		return "none"
	}
}

// compileMappingValue interprets the raw mapping scalar: "app" and "window"
// select the matching modes, a non-negative integer selects a monitor by
// connection order, any other string selects a monitor by output name.
func compileMappingValue(raw any) (MappingDirective, error) {
	switch v := raw.(type) {
	case string:
		switch v {
		case "app":
			return MappingDirective{Kind: MapApp}, nil
		case "window":
			return MappingDirective{Kind: MapWindow}, nil
		default:
			return MappingDirective{Kind: MapMonitorID, Output: v}, nil
		}
	case int:
		if v < 0 {
			return MappingDirective{}, fmt.Errorf("monitor index cannot be negative, got %d", v)
		}
		return MappingDirective{Kind: MapMonitorIndex, Index: v}, nil
	case int64:
		if v < 0 {
			return MappingDirective{}, fmt.Errorf("monitor index cannot be negative, got %d", v)
		}
		return MappingDirective{Kind: MapMonitorIndex, Index: int(v)}, nil
	default:
		return MappingDirective{}, fmt.Errorf("must be \"app\", \"window\", a monitor index, or an output name, got %T", raw)
	}
}

// MappingTargets carries the window-system geometry a directive may need.
// Callers fill only what the directive's kind consumes.
type MappingTargets struct {
	// Window is the focused window's bounding rectangle, frame included.
	Window geometry.Bounds
	// Children are the bounding rectangles of the focused window's
	// transient children, for app mapping.
	Children []geometry.Bounds
	// Displays are the connected outputs in connection order.
	Displays []state.Display
}

// AreaMapping pairs the screen rectangle a device maps onto with the fitted
// tablet sub-area that keeps the mapping distortion-free.
type AreaMapping struct {
	Output geometry.Bounds
	Tablet geometry.Bounds
}

// ComputeMapping resolves a directive to its target screen rectangle and fits
// the tablet's physical area to it. The fitted rectangle preserves the
// target's aspect ratio, stays within the tablet's bounds, and is centered,
// maximizing the usable area. A zero-sized target (a window that is not
// mapped yet) yields a DegenerateTarget error; the caller keeps the previous
// mapping.
func ComputeMapping(d MappingDirective, targets MappingTargets, tablet geometry.Bounds) (AreaMapping, error) {
	output, err := targetRect(d, targets)
	if err != nil {
		return AreaMapping{}, err
	}
	if output.Empty() {
		return AreaMapping{}, &MappingError{Kind: DegenerateTarget, Directive: d, Detail: "target rectangle has no area"}
	}
	if tablet.Empty() {
		return AreaMapping{}, &MappingError{Kind: DegenerateTarget, Directive: d, Detail: "tablet area has no area"}
	}
	return AreaMapping{Output: output, Tablet: geometry.FitWithin(output, tablet)}, nil
}

func targetRect(d MappingDirective, targets MappingTargets) (geometry.Bounds, error) {
	switch d.Kind {
	case MapWindow:
		return targets.Window, nil
	case MapApp:
		rect := targets.Window
		for _, child := range targets.Children {
			rect = rect.Union(child)
		}
		return rect, nil
	case MapMonitorIndex:
		if d.Index >= len(targets.Displays) {
			return geometry.Bounds{}, &MappingError{
				Kind:      DisplayNotFound,
				Directive: d,
				Detail:    fmt.Sprintf("%d connected displays", len(targets.Displays)),
			}
		}
		return targets.Displays[d.Index].Bounds, nil
	case MapMonitorID:
		for _, disp := range targets.Displays {
			if disp.Name == d.Output {
				return disp.Bounds, nil
			}
		}
		return geometry.Bounds{}, &MappingError{Kind: DisplayNotFound, Directive: d}
	default:
		return geometry.Bounds{}, &MappingError{Kind: DegenerateTarget, Directive: d, Detail: "no directive"}
	}
}
