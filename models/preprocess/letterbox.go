package preprocess

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/nfnt/resize"
	"github.com/nvr-ai/go-yolo/images"
)

// DefaultFill is the neutral gray used for letterbox padding.
var DefaultFill = color.RGBA{114, 114, 114, 255}

// LetterboxOptions controls the aspect-preserving resize.
type LetterboxOptions struct {
	// Stride aligns padding when Auto is set.
	Stride int
	// Auto pads only to the smallest stride-aligned rectangle instead of the
	// full target size. Only useful for models with dynamic input shapes.
	Auto bool
	// ScaleUp allows images smaller than the target to be enlarged.
	ScaleUp bool
	// Fill is the padding colour, DefaultFill when nil.
	Fill color.Color
}

// Letterbox resizes img preserving its aspect ratio to fit target and pads the
// remainder so the output has exactly the target size (or a stride-aligned
// size in Auto mode).
//
// Arguments:
//   - img: The source image.
//   - target: The network input size.
//   - opts: Padding and scaling options.
//
// Returns:
//   - The letterboxed image.
//   - The geometry needed to map network coordinates back onto img.
func Letterbox(img image.Image, target images.Size, opts LetterboxOptions) (*image.RGBA, images.Geometry) {
	bounds := img.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()

	r := math.Min(float64(target.Height)/float64(srcHeight), float64(target.Width)/float64(srcWidth))
	if !opts.ScaleUp {
		r = math.Min(r, 1.0)
	}

	newWidth := int(math.Round(float64(srcWidth) * r))
	newHeight := int(math.Round(float64(srcHeight) * r))

	dw := float64(target.Width - newWidth)
	dh := float64(target.Height - newHeight)
	if opts.Auto && opts.Stride > 0 {
		dw = math.Mod(dw, float64(opts.Stride))
		dh = math.Mod(dh, float64(opts.Stride))
	}
	dw /= 2
	dh /= 2

	top, bottom := int(math.Round(dh-0.1)), int(math.Round(dh+0.1))
	left, right := int(math.Round(dw-0.1)), int(math.Round(dw+0.1))

	var resized image.Image = img
	if newWidth != srcWidth || newHeight != srcHeight {
		resized = resize.Resize(uint(newWidth), uint(newHeight), img, resize.Bilinear)
	}

	fill := opts.Fill
	if fill == nil {
		fill = DefaultFill
	}

	outWidth := newWidth + left + right
	outHeight := newHeight + top + bottom
	out := image.NewRGBA(image.Rect(0, 0, outWidth, outHeight))
	draw.Draw(out, out.Bounds(), &image.Uniform{fill}, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(left, top, left+newWidth, top+newHeight), resized, resized.Bounds().Min, draw.Src)

	return out, images.Geometry{
		Original: images.Size{Width: srcWidth, Height: srcHeight},
		Input:    images.Size{Width: outWidth, Height: outHeight},
		Scale:    float32(r),
		PadLeft:  float32(left),
		PadTop:   float32(top),
	}
}

// CenterCrop resizes img proportionally so it covers target, then crops the
// centered target-sized region. Regions the resized image does not cover are
// filled with fill.
//
// Arguments:
//   - img: The source image.
//   - target: The network input size.
//   - fill: The colour for uncovered pixels, DefaultFill when nil.
//
// Returns:
//   - The cropped image.
//   - The geometry relating img to the crop; padding is negative where the
//     crop cut the image.
func CenterCrop(img image.Image, target images.Size, fill color.Color) (*image.RGBA, images.Geometry) {
	bounds := img.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()

	r := math.Max(float64(target.Height)/float64(srcHeight), float64(target.Width)/float64(srcWidth))
	newWidth := int(math.Round(float64(srcWidth) * r))
	newHeight := int(math.Round(float64(srcHeight) * r))

	var resized image.Image = img
	if newWidth != srcWidth || newHeight != srcHeight {
		resized = resize.Resize(uint(newWidth), uint(newHeight), img, resize.Bilinear)
	}

	// Offsets of the resized image inside the target, negative when cropping.
	left := (target.Width - newWidth) / 2
	top := (target.Height - newHeight) / 2

	if fill == nil {
		fill = DefaultFill
	}

	out := image.NewRGBA(image.Rect(0, 0, target.Width, target.Height))
	draw.Draw(out, out.Bounds(), &image.Uniform{fill}, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(left, top, left+newWidth, top+newHeight), resized, resized.Bounds().Min, draw.Src)

	return out, images.Geometry{
		Original: images.Size{Width: srcWidth, Height: srcHeight},
		Input:    target,
		Scale:    float32(r),
		PadLeft:  float32(left),
		PadTop:   float32(top),
	}
}
