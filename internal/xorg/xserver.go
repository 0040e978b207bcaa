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

// XServer queries window and display state through the standard X11 CLI
// tools (xprop, xwininfo, xrandr).
type XServer struct {
	XProp    string
	XWinInfo string
	XRandr   string
}

// NewXServer returns a client using the tools on PATH.
func NewXServer() *XServer {
	return &XServer{XProp: "xprop", XWinInfo: "xwininfo", XRandr: "xrandr"}
}

func (x *XServer) run(ctx context.Context, binary string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s: %v: %s", binary, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

var activeWindowPattern = regexp.MustCompile(`window id # (\S+)\s*$`)

// ActiveWindowID returns the focused window's id, or "" when no window has
// focus.
func (x *XServer) ActiveWindowID(ctx context.Context) (string, error) {
	out, err := x.run(ctx, x.XProp, "-root", "_NET_ACTIVE_WINDOW")
	if err != nil {
		return "", err
	}
	return parseActiveWindow(out), nil
}

func parseActiveWindow(out string) string {
	m := activeWindowPattern.FindStringSubmatch(strings.TrimSpace(out))
	if m == nil {
		return ""
	}
	id := m[1]
	if windowID(id) == 0 {
		return ""
	}
	return id
}

// windowID parses an X window id for comparison; hex ids print with varying
// zero padding across tools.
func windowID(s string) uint64 {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	n, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0
	}
	return n
}

// SameWindow reports whether two window id strings refer to the same window.
func SameWindow(a, b string) bool {
	ida := windowID(a)
	return ida != 0 && ida == windowID(b)
}

var windowNamePattern = regexp.MustCompile(`=\s+"(.*)"\s*$`)

// WindowTitle returns the window's WM_NAME, or "" when unset.
func (x *XServer) WindowTitle(ctx context.Context, id string) (string, error) {
	out, err := x.run(ctx, x.XProp, "-id", id, "WM_NAME")
	if err != nil {
		return "", err
	}
	if m := windowNamePattern.FindStringSubmatch(strings.TrimSpace(out)); m != nil {
		return m[1], nil
	}
	return "", nil
}

var windowClassPattern = regexp.MustCompile(`[^=]+=\s+(.+)$`)

// WindowClasses returns the window's WM_CLASS strings (instance and class
// names).
func (x *XServer) WindowClasses(ctx context.Context, id string) ([]string, error) {
	out, err := x.run(ctx, x.XProp, "-id", id, "WM_CLASS")
	if err != nil {
		return nil, err
	}
	return parseWindowClasses(out), nil
}

func parseWindowClasses(out string) []string {
	m := windowClassPattern.FindStringSubmatch(strings.TrimSpace(out))
	if m == nil {
		return nil
	}
	parts := strings.Split(m[1], ", ")
	classes := make([]string, 0, len(parts))
	for _, p := range parts {
		classes = append(classes, strings.Trim(p, `"`))
	}
	return classes
}

// Snapshot captures the focused window's attributes. When no window has
// focus the zero snapshot is returned.
func (x *XServer) Snapshot(ctx context.Context) (state.WindowSnapshot, error) {
	id, err := x.ActiveWindowID(ctx)
	if err != nil {
		return state.WindowSnapshot{}, err
	}
	if id == "" {
		return state.WindowSnapshot{}, nil
	}
	title, err := x.WindowTitle(ctx, id)
	if err != nil {
		return state.WindowSnapshot{}, err
	}
	classes, err := x.WindowClasses(ctx, id)
	if err != nil {
		return state.WindowSnapshot{}, err
	}
	return state.WindowSnapshot{ID: id, Title: title, Classes: classes}, nil
}

var (
	winfoXPattern      = regexp.MustCompile(`^\s*Absolute upper-left X:\s+(-?\d+)`)
	winfoYPattern      = regexp.MustCompile(`^\s*Absolute upper-left Y:\s+(-?\d+)`)
	winfoWidthPattern  = regexp.MustCompile(`^\s*Width:\s+(\d+)`)
	winfoHeightPattern = regexp.MustCompile(`^\s*Height:\s+(\d+)`)
	frameExtentsPattern = regexp.MustCompile(`=\s*(\d+),\s*(\d+),\s*(\d+),\s*(\d+)`)
)

// WindowBounds returns the window's bounding rectangle. With includeFrame the
// rectangle is extended upward by the window-manager title bar reported in
// _NET_FRAME_EXTENTS, matching what the user sees on screen.
func (x *XServer) WindowBounds(ctx context.Context, id string, includeFrame bool) (geometry.Bounds, error) {
	out, err := x.run(ctx, x.XWinInfo, "-id", id)
	if err != nil {
		return geometry.Bounds{}, err
	}
	bounds := parseWindowBounds(out)
	if includeFrame {
		extents, err := x.run(ctx, x.XProp, "-id", id, "_NET_FRAME_EXTENTS")
		if err == nil {
			bounds.MinY -= parseFrameTop(extents)
		}
	}
	return bounds, nil
}

func parseWindowBounds(out string) geometry.Bounds {
	var x, y, w, h float64
	for _, line := range strings.Split(out, "\n") {
		if m := winfoXPattern.FindStringSubmatch(line); m != nil {
			x = atof(m[1])
			continue
		}
		if m := winfoYPattern.FindStringSubmatch(line); m != nil {
			y = atof(m[1])
			continue
		}
		if m := winfoWidthPattern.FindStringSubmatch(line); m != nil {
			w = atof(m[1])
			continue
		}
		if m := winfoHeightPattern.FindStringSubmatch(line); m != nil {
			h = atof(m[1])
		}
	}
	return geometry.FromRect(x, y, w, h)
}

// parseFrameTop extracts the top inset from a _NET_FRAME_EXTENTS reply
// (left, right, top, bottom).
func parseFrameTop(out string) float64 {
	m := frameExtentsPattern.FindStringSubmatch(out)
	if m == nil {
		return 0
	}
	return atof(m[3])
}

func atof(s string) float64 {
	n, _ := strconv.Atoi(s)
	return float64(n)
}

var clientListPattern = regexp.MustCompile(`#\s+(.*)$`)

// ClientList returns the ids of all windows the window manager tracks.
func (x *XServer) ClientList(ctx context.Context) ([]string, error) {
	out, err := x.run(ctx, x.XProp, "-root", "_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}
	return parseClientList(out), nil
}

func parseClientList(out string) []string {
	m := clientListPattern.FindStringSubmatch(strings.TrimSpace(out))
	if m == nil {
		return nil
	}
	parts := strings.Split(m[1], ", ")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

// TransientChildren returns the ids of windows transient for the given
// window (dialogs, tool palettes), for app mapping.
func (x *XServer) TransientChildren(ctx context.Context, id string) ([]string, error) {
	all, err := x.ClientList(ctx)
	if err != nil {
		return nil, err
	}
	var children []string
	for _, candidate := range all {
		if SameWindow(candidate, id) {
			continue
		}
		out, err := x.run(ctx, x.XProp, "-id", candidate, "WM_TRANSIENT_FOR")
		if err != nil {
			continue
		}
		m := activeWindowPattern.FindStringSubmatch(strings.TrimSpace(out))
		if m != nil && SameWindow(m[1], id) {
			children = append(children, candidate)
		}
	}
	return children, nil
}

var displayPattern = regexp.MustCompile(`^(\S+) connected (?:primary )?(\d+x\d+[+-]\d+[+-]\d+)`)

// ListDisplays returns the connected outputs in xrandr order.
func (x *XServer) ListDisplays(ctx context.Context) ([]state.Display, error) {
	out, err := x.run(ctx, x.XRandr)
	if err != nil {
		return nil, err
	}
	return parseDisplays(out)
}

func parseDisplays(out string) ([]state.Display, error) {
	var displays []state.Display
	for _, line := range strings.Split(out, "\n") {
		m := displayPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		bounds, err := geometry.ParseGeometry(m[2])
		if err != nil {
			return nil, fmt.Errorf("output %s: %w", m[1], err)
		}
		displays = append(displays, state.Display{Name: m[1], Bounds: bounds})
	}
	return displays, nil
}
