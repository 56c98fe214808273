package images

import (
	"image"

	"github.com/chewxy/math32"
)

// Box is an axis-aligned box expressed as top-left corner plus extent.
type Box struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	W float32 `json:"w"`
	H float32 `json:"h"`
}

// BoxFromCenter converts a center-x, center-y, width, height box into a Box,
// clamping the top-left corner to be non-negative. The extent is kept as given.
//
// Arguments:
//   - cx, cy: The box center.
//   - w, h: The box width and height.
//
// Returns:
//   - The corresponding top-left Box.
func BoxFromCenter(cx, cy, w, h float32) Box {
	return Box{
		X: math32.Max(cx-w/2, 0),
		Y: math32.Max(cy-h/2, 0),
		W: w,
		H: h,
	}
}

// Right returns the x coordinate of the right edge.
func (b Box) Right() float32 { return b.X + b.W }

// Bottom returns the y coordinate of the bottom edge.
func (b Box) Bottom() float32 { return b.Y + b.H }

// Area returns the box area, zero for degenerate boxes.
func (b Box) Area() float32 {
	if b.W <= 0 || b.H <= 0 {
		return 0
	}
	return b.W * b.H
}

// Empty reports whether the box covers no area.
func (b Box) Empty() bool { return b.W <= 0 || b.H <= 0 }

// Clip intersects the box with the rectangle [0, width) x [0, height).
//
// Arguments:
//   - width: The width of the clipping area.
//   - height: The height of the clipping area.
//
// Returns:
//   - The clipped box. Boxes outside the area collapse to zero extent.
func (b Box) Clip(width, height int) Box {
	x1 := math32.Min(math32.Max(b.X, 0), float32(width))
	y1 := math32.Min(math32.Max(b.Y, 0), float32(height))
	x2 := math32.Min(math32.Max(b.Right(), 0), float32(width))
	y2 := math32.Min(math32.Max(b.Bottom(), 0), float32(height))
	return Box{X: x1, Y: y1, W: math32.Max(x2-x1, 0), H: math32.Max(y2-y1, 0)}
}

// Bounds rounds the box corners to the integer pixel rectangle it covers.
func (b Box) Bounds() image.Rectangle {
	return image.Rect(
		int(math32.Round(b.X)),
		int(math32.Round(b.Y)),
		int(math32.Round(b.Right())),
		int(math32.Round(b.Bottom())),
	)
}

// IoU (Intersection over Union) measures how much two boxes overlap: the area
// of their intersection divided by the area they cover together.
//
//	IoU = Area of Intersection / (Area(A) + Area(B) - Area of Intersection)
//
// A value of 1.0 means the boxes are identical, 0.0 means they do not overlap
// (touching edges do not count as overlap).
//
// See also:
//   - http://ronny.rest/tutorials/module/localization_001/iou
//
// Arguments:
//   - b (receiver Box): The first box.
//   - o (Box): The other box to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0 representing the IoU score.
//
// Example Usage:
// ```go
//
//	a := Box{X: 0, Y: 0, W: 10, H: 10}
//	b := Box{X: 5, Y: 5, W: 10, H: 10}
//	a.IoU(b) // intersection 25, union 175: 0.142857
//
// ```
func (b Box) IoU(o Box) float32 {
	ix1 := math32.Max(b.X, o.X)
	iy1 := math32.Max(b.Y, o.Y)
	ix2 := math32.Min(b.Right(), o.Right())
	iy2 := math32.Min(b.Bottom(), o.Bottom())

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	inter := interW * interH

	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0.0
	}
	return inter / union
}
