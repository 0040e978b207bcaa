package xorg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merklejerk/wacom-profile-daemon/internal/geometry"
)

func TestParseActiveWindow(t *testing.T) {
	out := "_NET_ACTIVE_WINDOW(WINDOW): window id # 0x3a00007\n"
	assert.Equal(t, "0x3a00007", parseActiveWindow(out))

	// No focused window.
	out = "_NET_ACTIVE_WINDOW(WINDOW): window id # 0x0\n"
	assert.Equal(t, "", parseActiveWindow(out))

	assert.Equal(t, "", parseActiveWindow("_NET_ACTIVE_WINDOW:  not found.\n"))
}

func TestSameWindow(t *testing.T) {
	assert.True(t, SameWindow("0x3a00007", "0x03a00007"))
	assert.True(t, SameWindow("0x3A00007", "0x3a00007"))
	assert.False(t, SameWindow("0x3a00007", "0x3a00008"))
	assert.False(t, SameWindow("", "0x3a00007"))
	assert.False(t, SameWindow("0x0", "0x0"))
}

func TestParseWindowClasses(t *testing.T) {
	out := `WM_CLASS(STRING) = "gimp-2.10", "Gimp"` + "\n"
	assert.Equal(t, []string{"gimp-2.10", "Gimp"}, parseWindowClasses(out))

	out = `WM_CLASS(STRING) = "krita"` + "\n"
	assert.Equal(t, []string{"krita"}, parseWindowClasses(out))

	assert.Nil(t, parseWindowClasses("WM_CLASS:  not found.\n"))
}

const winfoOutput = `
xwininfo: Window id: 0x3a00007 "scene.kra - Krita"

  Absolute upper-left X:  1920
  Absolute upper-left Y:  27
  Relative upper-left X:  0
  Relative upper-left Y:  0
  Width: 2560
  Height: 1413
  Depth: 24
`

func TestParseWindowBounds(t *testing.T) {
	got := parseWindowBounds(winfoOutput)
	assert.Equal(t, geometry.FromRect(1920, 27, 2560, 1413), got)
}

func TestParseFrameTop(t *testing.T) {
	out := "_NET_FRAME_EXTENTS(CARDINAL) = 0, 0, 27, 0\n"
	assert.Equal(t, 27.0, parseFrameTop(out))

	assert.Equal(t, 0.0, parseFrameTop("_NET_FRAME_EXTENTS:  not found.\n"))
}

func TestParseClientList(t *testing.T) {
	out := "_NET_CLIENT_LIST(WINDOW): window id # 0x1400001, 0x3a00007, 0x4200003\n"
	assert.Equal(t, []string{"0x1400001", "0x3a00007", "0x4200003"}, parseClientList(out))

	assert.Nil(t, parseClientList("_NET_CLIENT_LIST:  not found.\n"))
}

const xrandrOutput = `Screen 0: minimum 320 x 200, current 4480 x 1440, maximum 16384 x 16384
DP-1 connected primary 1920x1080+0+360 (normal left inverted right x axis y axis) 527mm x 296mm
   1920x1080     60.00*+
HDMI-1 connected 2560x1440+1920+0 (normal left inverted right x axis y axis) 597mm x 336mm
   2560x1440     59.95*+
DP-2 disconnected (normal left inverted right x axis y axis)
`

func TestParseDisplays(t *testing.T) {
	displays, err := parseDisplays(xrandrOutput)
	require.NoError(t, err)

	require.Len(t, displays, 2)
	assert.Equal(t, "DP-1", displays[0].Name)
	assert.Equal(t, geometry.FromRect(0, 360, 1920, 1080), displays[0].Bounds)
	assert.Equal(t, "HDMI-1", displays[1].Name)
	assert.Equal(t, geometry.FromRect(1920, 0, 2560, 1440), displays[1].Bounds)
}
