package images

// Size is a width and height pair in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Geometry records how an original image was mapped into network-input space
// so that coordinates can be mapped back. Network coordinates relate to
// original coordinates by net = orig*Scale + pad.
type Geometry struct {
	// Original is the size of the image before preprocessing.
	Original Size
	// Input is the size of the tensor fed to the network.
	Input Size
	// Scale is the ratio of resized to original extent.
	Scale float32
	// PadLeft and PadTop are the pixels added before the resized content.
	PadLeft, PadTop float32
}

// ToOriginal maps a network-input space box into original image space.
//
// Arguments:
//   - b: The box in network-input pixels.
//
// Returns:
//   - The box in original image pixels (not clipped).
func (g Geometry) ToOriginal(b Box) Box {
	x, y := g.PointToOriginal(b.X, b.Y)
	return Box{X: x, Y: y, W: b.W / g.Scale, H: b.H / g.Scale}
}

// ToNetwork maps an original image space box into network-input space.
func (g Geometry) ToNetwork(b Box) Box {
	return Box{
		X: b.X*g.Scale + g.PadLeft,
		Y: b.Y*g.Scale + g.PadTop,
		W: b.W * g.Scale,
		H: b.H * g.Scale,
	}
}

// PointToOriginal maps a single network-input space point into original image space.
func (g Geometry) PointToOriginal(x, y float32) (float32, float32) {
	return (x - g.PadLeft) / g.Scale, (y - g.PadTop) / g.Scale
}
