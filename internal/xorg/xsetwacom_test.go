package xorg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merklejerk/wacom-profile-daemon/internal/geometry"
	"github.com/merklejerk/wacom-profile-daemon/internal/state"
)

const deviceListOutput = `Wacom Intuos Pro M Pad pad              	id: 21	type: PAD
Wacom Intuos Pro M Pen stylus           	id: 22	type: STYLUS
Wacom Intuos Pro M Pen eraser           	id: 23	type: ERASER
Wacom Intuos Pro M Finger touch         	id: 24	type: TOUCH
`

func TestParseDeviceList(t *testing.T) {
	devices := parseDeviceList(deviceListOutput)

	require.Len(t, devices, 3)
	assert.Equal(t, state.Device{ID: "21", Name: "Wacom Intuos Pro M Pad pad", Type: state.DevicePad}, devices[0])
	assert.Equal(t, state.Device{ID: "22", Name: "Wacom Intuos Pro M Pen stylus", Type: state.DeviceStylus}, devices[1])
	assert.Equal(t, state.Device{ID: "23", Name: "Wacom Intuos Pro M Pen eraser", Type: state.DeviceEraser}, devices[2])
}

func TestParseDeviceListEmpty(t *testing.T) {
	assert.Empty(t, parseDeviceList(""))
	assert.Empty(t, parseDeviceList("no tablet devices\n"))
}

func TestParseArea(t *testing.T) {
	got, err := parseArea("0 0 62200 43200")
	require.NoError(t, err)
	assert.Equal(t, geometry.Bounds{MinX: 0, MinY: 0, MaxX: 62200, MaxY: 43200}, got)

	got, err = parseArea("  -10 -20 100 200  ")
	require.NoError(t, err)
	assert.Equal(t, geometry.Bounds{MinX: -10, MinY: -20, MaxX: 100, MaxY: 200}, got)

	_, err = parseArea("not an area")
	assert.Error(t, err)
	_, err = parseArea("1 2 3")
	assert.Error(t, err)
}
