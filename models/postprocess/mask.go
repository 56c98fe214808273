package postprocess

import (
	"image"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Prototype is the shared low resolution mask basis of one segmentation call.
// It is a read-only view over the network output buffer.
type Prototype struct {
	// Features is the number of basis masks.
	Features int
	// Width and Height are the basis resolution.
	Width, Height int

	basis *tensor.Dense
}

// NewPrototype wraps a [1, features, height, width] output as a
// (features, height*width) matrix without copying.
//
// Arguments:
//   - t: The prototype output tensor.
//
// Returns:
//   - The prototype view, or ErrShapeMismatch.
func NewPrototype(t Tensor) (*Prototype, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if len(t.Shape) != 4 || t.Shape[0] != 1 {
		return nil, errors.Wrapf(ErrShapeMismatch, "expected [1, features, height, width] prototype, got %v", t.Shape)
	}

	features, height, width := int(t.Shape[1]), int(t.Shape[2]), int(t.Shape[3])
	return &Prototype{
		Features: features,
		Width:    width,
		Height:   height,
		basis:    tensor.New(tensor.WithShape(features, height*width), tensor.WithBacking(t.Data)),
	}, nil
}

// MaskReconstructor turns per-detection mask coefficients into binary masks.
type MaskReconstructor struct {
	// Threshold is the probability a pixel must exceed to be foreground.
	Threshold float32
	// Upsample brings probabilities to network resolution.
	Upsample gocv.InterpolationFlags
	// Rescale brings the network window to original resolution.
	Rescale gocv.InterpolationFlags
}

// NewMaskReconstructor returns a reconstructor using Lanczos4 upsampling and
// bilinear rescaling, the interpolations ultralytics exports are tuned for.
func NewMaskReconstructor(threshold float32) *MaskReconstructor {
	return &MaskReconstructor{
		Threshold: threshold,
		Upsample:  gocv.InterpolationLanczos4,
		Rescale:   gocv.InterpolationLinear,
	}
}

// Project computes sigmoid(coefficients x basis) for every detection in a
// single expression graph.
//
// Arguments:
//   - coefficients: One coefficient vector per detection, each of length proto.Features.
//   - proto: The shared prototype.
//
// Returns:
//   - One probability plane per detection at prototype resolution.
func (r *MaskReconstructor) Project(coefficients [][]float32, proto *Prototype) ([]*images.Plane, error) {
	n := len(coefficients)
	if n == 0 {
		return nil, nil
	}

	flat := make([]float32, 0, n*proto.Features)
	for i, c := range coefficients {
		if len(c) != proto.Features {
			return nil, errors.Wrapf(ErrShapeMismatch, "detection %d has %d mask coefficients, prototype has %d", i, len(c), proto.Features)
		}
		flat = append(flat, c...)
	}

	g := G.NewGraph()
	coeffs := G.NewMatrix(g, tensor.Float32,
		G.WithShape(n, proto.Features),
		G.WithName("coefficients"),
		G.WithValue(tensor.New(tensor.WithShape(n, proto.Features), tensor.WithBacking(flat))),
	)
	basis := G.NewMatrix(g, tensor.Float32,
		G.WithShape(proto.Features, proto.Width*proto.Height),
		G.WithName("prototype"),
		G.WithValue(proto.basis),
	)

	logits, err := G.Mul(coeffs, basis)
	if err != nil {
		return nil, errors.Wrap(err, "mask projection")
	}
	probs, err := G.Sigmoid(logits)
	if err != nil {
		return nil, errors.Wrap(err, "mask activation")
	}

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		return nil, errors.Wrap(err, "run mask graph")
	}

	data, ok := probs.Value().Data().([]float32)
	if !ok {
		return nil, errors.New("mask graph produced non float32 data")
	}

	area := proto.Width * proto.Height
	planes := make([]*images.Plane, n)
	for i := range planes {
		pix := make([]float32, area)
		copy(pix, data[i*area:(i+1)*area])
		planes[i] = &images.Plane{Width: proto.Width, Height: proto.Height, Pix: pix}
	}
	return planes, nil
}

// Reconstruct builds the binary mask of one detection from its probability
// plane. The plane is upsampled to network resolution, the box's network
// window is cut out, rescaled to original resolution and thresholded.
//
// Arguments:
//   - probs: The detection's probability plane at prototype resolution.
//   - box: The detection box in original pixels, already clipped.
//   - geometry: The preprocessing geometry of the call.
//
// Returns:
//   - A mask sized to box.Bounds().
//   - error if OpenCV cannot resample the plane.
func (r *MaskReconstructor) Reconstruct(probs *images.Plane, box images.Box, geometry images.Geometry) (*Mask, error) {
	bounds := box.Bounds().Intersect(image.Rect(0, 0, geometry.Original.Width, geometry.Original.Height))
	if bounds.Empty() {
		return &Mask{}, nil
	}
	mask := NewMask(bounds.Dx(), bounds.Dy())

	net := geometry.ToNetwork(images.Box{
		X: float32(bounds.Min.X),
		Y: float32(bounds.Min.Y),
		W: float32(bounds.Dx()),
		H: float32(bounds.Dy()),
	})

	// Nothing to sample when the box vanishes at prototype resolution.
	sx := float32(probs.Width) / float32(geometry.Input.Width)
	sy := float32(probs.Height) / float32(geometry.Input.Height)
	low := images.Box{X: net.X * sx, Y: net.Y * sy, W: net.W * sx, H: net.H * sy}.Clip(probs.Width, probs.Height)
	if low.Empty() {
		return mask, nil
	}

	window := image.Rect(
		int(math32.Floor(net.X)),
		int(math32.Floor(net.Y)),
		int(math32.Ceil(net.Right())),
		int(math32.Ceil(net.Bottom())),
	).Intersect(image.Rect(0, 0, geometry.Input.Width, geometry.Input.Height))
	if window.Empty() {
		return mask, nil
	}

	upsampled, err := images.ResizePlaneWindow(probs, geometry.Input.Width, geometry.Input.Height, window, r.Upsample)
	if err != nil {
		return nil, errors.Wrap(err, "mask upsample")
	}

	// Bring the window to original resolution.
	ox, oy := geometry.PointToOriginal(float32(window.Min.X), float32(window.Min.Y))
	tw := max(int(math32.Round(float32(window.Dx())/geometry.Scale)), 1)
	th := max(int(math32.Round(float32(window.Dy())/geometry.Scale)), 1)
	scaled, err := images.ResizePlane(upsampled, tw, th, r.Rescale)
	if err != nil {
		return nil, errors.Wrap(err, "mask rescale")
	}

	for y := 0; y < mask.Height; y++ {
		py := int(math32.Floor(float32(bounds.Min.Y+y) + 0.5 - oy))
		for x := 0; x < mask.Width; x++ {
			px := int(math32.Floor(float32(bounds.Min.X+x) + 0.5 - ox))
			if scaled.At(px, py) > r.Threshold {
				mask.Pix[y*mask.Width+x] = 255
			}
		}
	}

	return mask, nil
}
