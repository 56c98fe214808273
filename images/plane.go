package images

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Plane is a single-channel float32 raster stored row-major.
type Plane struct {
	Width  int
	Height int
	Pix    []float32
}

// NewPlane allocates a zeroed plane.
func NewPlane(width, height int) *Plane {
	return &Plane{Width: width, Height: height, Pix: make([]float32, width*height)}
}

// At returns the sample at (x, y), clamping coordinates to the plane edges.
func (p *Plane) At(x, y int) float32 {
	x = min(max(x, 0), p.Width-1)
	y = min(max(y, 0), p.Height-1)
	return p.Pix[y*p.Width+x]
}

// Set writes the sample at (x, y).
func (p *Plane) Set(x, y int, v float32) {
	p.Pix[y*p.Width+x] = v
}

// Bounds returns the plane extent as a rectangle anchored at the origin.
func (p *Plane) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.Width, p.Height)
}

// ToMat copies the plane into a new CV_32FC1 matrix. The caller must Close it.
func (p *Plane) ToMat() (gocv.Mat, error) {
	mat := gocv.NewMatWithSize(p.Height, p.Width, gocv.MatTypeCV32F)
	data, err := mat.DataPtrFloat32()
	if err != nil {
		mat.Close()
		return gocv.Mat{}, errors.Wrap(err, "plane to mat")
	}
	copy(data, p.Pix)
	return mat, nil
}

// PlaneFromMat copies a CV_32FC1 matrix, including a region view, into a plane.
func PlaneFromMat(mat gocv.Mat) (*Plane, error) {
	if mat.Type() != gocv.MatTypeCV32F {
		return nil, errors.Errorf("expected a CV_32FC1 matrix, got %v", mat.Type())
	}

	src := mat
	if !mat.IsContinuous() {
		src = mat.Clone()
		defer src.Close()
	}
	data, err := src.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "mat to plane")
	}

	out := NewPlane(src.Cols(), src.Rows())
	copy(out.Pix, data)
	return out, nil
}

// ResizePlane resamples the plane to width x height with OpenCV.
//
// Arguments:
// - src: Source plane.
// - width, height: Target dimensions.
// - interp: OpenCV interpolation, e.g. gocv.InterpolationLanczos4.
//
// Returns:
// - A new plane of the requested size.
// - error if the plane cannot be handed to OpenCV.
func ResizePlane(src *Plane, width, height int, interp gocv.InterpolationFlags) (*Plane, error) {
	return ResizePlaneWindow(src, width, height, image.Rect(0, 0, width, height), interp)
}

// ResizePlaneWindow resamples the plane to width x height and returns only
// the samples inside window.
//
// Arguments:
// - src: Source plane.
// - width, height: Target dimensions of the full resize.
// - window: Region of the resized raster to keep; clipped to its bounds.
// - interp: OpenCV interpolation flag.
//
// Returns:
// - A new plane of the window's (clipped) size.
// - error if the plane cannot be handed to OpenCV.
func ResizePlaneWindow(src *Plane, width, height int, window image.Rectangle, interp gocv.InterpolationFlags) (*Plane, error) {
	window = window.Intersect(image.Rect(0, 0, width, height))
	if window.Empty() || src.Width == 0 || src.Height == 0 {
		return NewPlane(window.Dx(), window.Dy()), nil
	}

	mat, err := src.ToMat()
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(mat, &resized, image.Pt(width, height), 0, 0, interp)

	region := resized.Region(window)
	defer region.Close()

	return PlaneFromMat(region)
}
