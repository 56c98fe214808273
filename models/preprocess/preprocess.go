// Package preprocess - Prepares images into the planar float tensors YOLO
// family networks expect.
package preprocess

import (
	"image"
	"image/color"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/models"
	"github.com/pkg/errors"
)

// ErrChannelMismatch is returned when an image's channel count differs from
// the model's expected channel count.
var ErrChannelMismatch = errors.New("image channel count does not match model")

// Config defines the preprocessing for a specific model.
type Config struct {
	// Task selects letterboxing (detect, segment, pose) or center cropping (classify).
	Task models.Task
	// InputSize is the network input size.
	InputSize images.Size
	// Channels is the expected input channel count (1 or 3).
	Channels int
	// Stride is the network stride, used by Auto letterboxing.
	Stride int
	// Auto pads to the minimal stride-aligned rectangle.
	Auto bool
	// Fill is the padding colour, DefaultFill when nil.
	Fill color.Color
	// SwapRB packs channels as B, G, R instead of R, G, B.
	SwapRB bool
}

// ConfigFromMetadata builds a preprocessing config for a resolved model.
func ConfigFromMetadata(m models.Metadata) Config {
	return Config{
		Task:      m.Task,
		InputSize: m.ResizeTarget(),
		Channels:  m.Channels,
		Stride:    m.Stride,
	}
}

// Result contains the packed tensor and the geometry to invert it.
type Result struct {
	// Data is the planar float32 tensor, all of channel 0 then channel 1 and so on.
	Data []float32
	// Shape is the tensor shape (1, channels, height, width).
	Shape []int64
	// Geometry maps network coordinates back to the source image.
	Geometry images.Geometry
}

// Preprocessor handles image preprocessing for a model.
type Preprocessor struct {
	config Config
}

// NewPreprocessor creates a new preprocessor with the given configuration.
//
// Arguments:
// - config: The model-specific preprocessing configuration.
//
// Returns:
// - A configured Preprocessor instance.
//
// @example
//
//	p := NewPreprocessor(Config{
//	    Task:      models.TaskDetect,
//	    InputSize: images.Size{Width: 640, Height: 640},
//	    Channels:  3,
//	    Stride:    32,
//	})
func NewPreprocessor(config Config) *Preprocessor {
	if config.Channels == 0 {
		config.Channels = models.DefaultChannels
	}
	if config.Fill == nil {
		config.Fill = DefaultFill
	}
	return &Preprocessor{config: config}
}

// Config returns the preprocessor configuration.
func (p *Preprocessor) Config() Config {
	return p.config
}

// Preprocess letterboxes or center crops img, then normalizes and packs it
// into a planar tensor.
//
// Arguments:
// - img: The input image.
//
// Returns:
// - Result containing the tensor and its geometry.
// - error if the image is empty or its channel count does not match.
func (p *Preprocessor) Preprocess(img image.Image) (*Result, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, errors.New("image is empty")
	}

	if got := Channels(img); got != p.config.Channels {
		return nil, errors.Wrapf(ErrChannelMismatch, "image has %d channels, model expects %d", got, p.config.Channels)
	}

	var (
		prepared *image.RGBA
		geometry images.Geometry
	)
	if p.config.Task.Letterboxed() {
		prepared, geometry = Letterbox(img, p.config.InputSize, LetterboxOptions{
			Stride:  p.config.Stride,
			Auto:    p.config.Auto,
			ScaleUp: true,
			Fill:    p.config.Fill,
		})
	} else {
		prepared, geometry = CenterCrop(img, p.config.InputSize, p.config.Fill)
	}

	data := p.imageToTensor(prepared)

	return &Result{
		Data: data,
		Shape: []int64{
			1,
			int64(p.config.Channels),
			int64(geometry.Input.Height),
			int64(geometry.Input.Width),
		},
		Geometry: geometry,
	}, nil
}

// imageToTensor converts interleaved RGBA pixels into a planar tensor
// normalized to [0, 1].
func (p *Preprocessor) imageToTensor(img *image.RGBA) []float32 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	area := width * height

	tensor := make([]float32, area*p.config.Channels)

	images.Parallel(height, func(start, end int) {
		for y := start; y < end; y++ {
			row := img.Pix[y*img.Stride : y*img.Stride+width*4]
			for x := 0; x < width; x++ {
				r := float32(row[x*4]) / 255.0
				g := float32(row[x*4+1]) / 255.0
				b := float32(row[x*4+2]) / 255.0
				i := y*width + x

				if p.config.Channels == 1 {
					// Grayscale images are stored with equal components.
					tensor[i] = r
					continue
				}

				if p.config.SwapRB {
					r, b = b, r
				}
				tensor[i] = r
				tensor[area+i] = g
				tensor[2*area+i] = b
			}
		}
	})

	return tensor
}

// Channels reports the number of channels an image carries: 1 for gray
// models, 4 for non-premultiplied alpha models and 3 otherwise.
func Channels(img image.Image) int {
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		return 1
	case color.NRGBAModel, color.NRGBA64Model:
		return 4
	}
	return 3
}
