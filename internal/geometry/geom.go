package geometry

import (
	"fmt"
	"math"
	"regexp"
)

// Bounds is an axis-aligned rectangle stored as min/max corners, the form
// xsetwacom reports tablet areas in. Screen rectangles use the same type.
type Bounds struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// FromRect builds a Bounds from an origin and a size.
func FromRect(x, y, width, height float64) Bounds {
	return Bounds{MinX: x, MinY: y, MaxX: x + width, MaxY: y + height}
}

func (b Bounds) Width() float64 {
	return b.MaxX - b.MinX
}

func (b Bounds) Height() float64 {
	return b.MaxY - b.MinY
}

// Aspect returns width/height, or 0 for a rectangle with no height.
func (b Bounds) Aspect() float64 {
	h := b.Height()
	if h == 0 {
		return 0
	}
	return b.Width() / h
}

// Empty reports whether the rectangle has zero or negative area.
func (b Bounds) Empty() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

// Union returns the smallest rectangle enclosing both operands. Empty
// operands contribute nothing.
func (b Bounds) Union(other Bounds) Bounds {
	if other.Empty() {
		return b
	}
	if b.Empty() {
		return other
	}
	return Bounds{
		MinX: math.Min(b.MinX, other.MinX),
		MinY: math.Min(b.MinY, other.MinY),
		MaxX: math.Max(b.MaxX, other.MaxX),
		MaxY: math.Max(b.MaxY, other.MaxY),
	}
}

// Values returns the rectangle corners rounded to whole device units, in the
// x1 y1 x2 y2 order the xsetwacom Area option expects.
func (b Bounds) Values() (x1, y1, x2, y2 int) {
	return int(math.Round(b.MinX)), int(math.Round(b.MinY)),
		int(math.Round(b.MaxX)), int(math.Round(b.MaxY))
}

// String formats the rectangle as an X geometry spec (WxH+X+Y).
// Sizes round up and offsets round down so the spec always covers the rect.
func (b Bounds) String() string {
	return fmt.Sprintf("%dx%d+%d+%d",
		int(math.Ceil(b.Width())), int(math.Ceil(b.Height())),
		int(math.Floor(b.MinX)), int(math.Floor(b.MinY)))
}

var geometryPattern = regexp.MustCompile(`^(\d+)x(\d+)([+-]\d+)([+-]\d+)$`)

// ParseGeometry parses an X geometry spec (WxH+X+Y) as printed by xrandr.
func ParseGeometry(s string) (Bounds, error) {
	m := geometryPattern.FindStringSubmatch(s)
	if m == nil {
		return Bounds{}, fmt.Errorf("invalid geometry %q", s)
	}
	var w, h, x, y int
	// Submatches are guaranteed numeric by the pattern.
	fmt.Sscanf(m[1], "%d", &w)
	fmt.Sscanf(m[2], "%d", &h)
	fmt.Sscanf(m[3], "%d", &x)
	fmt.Sscanf(m[4], "%d", &y)
	return FromRect(float64(x), float64(y), float64(w), float64(h)), nil
}

// FitWithin computes the largest sub-rectangle of tablet whose aspect ratio
// matches target's, centered within tablet. The full tablet area is used when
// the ratios already agree; otherwise one axis is reduced and the other kept
// at its physical extent, so the mapping scales uniformly in both axes.
func FitWithin(target, tablet Bounds) Bounds {
	if target.Empty() || tablet.Empty() {
		return Bounds{}
	}
	width := tablet.Width()
	height := tablet.Height()
	switch {
	case tablet.Aspect() > target.Aspect():
		width = height * target.Aspect()
	case tablet.Aspect() < target.Aspect():
		height = width / target.Aspect()
	}
	x := tablet.MinX + (tablet.Width()-width)/2
	y := tablet.MinY + (tablet.Height()-height)/2
	return Bounds{
		MinX: math.Max(tablet.MinX, x),
		MinY: math.Max(tablet.MinY, y),
		MaxX: math.Min(tablet.MaxX, x+width),
		MaxY: math.Min(tablet.MaxY, y+height),
	}
}

// ApproximatelyEqual reports whether two rectangles are almost equal.
func ApproximatelyEqual(a, b Bounds, tolerance float64) bool {
	return math.Abs(a.MinX-b.MinX) <= tolerance && math.Abs(a.MinY-b.MinY) <= tolerance &&
		math.Abs(a.MaxX-b.MaxX) <= tolerance && math.Abs(a.MaxY-b.MaxY) <= tolerance
}
