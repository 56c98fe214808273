package preprocess

import (
	"image"
	"image/color"
	"testing"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestLetterbox_Geometry(t *testing.T) {
	tests := []struct {
		name     string
		src      images.Size
		target   images.Size
		opts     LetterboxOptions
		expected images.Geometry
	}{
		{
			name:   "landscape to square",
			src:    images.Size{Width: 1280, Height: 720},
			target: images.Size{Width: 640, Height: 640},
			opts:   LetterboxOptions{ScaleUp: true},
			expected: images.Geometry{
				Original: images.Size{Width: 1280, Height: 720},
				Input:    images.Size{Width: 640, Height: 640},
				Scale:    0.5,
				PadTop:   140,
			},
		},
		{
			name:   "odd padding splits with extra pixel at the bottom",
			src:    images.Size{Width: 100, Height: 99},
			target: images.Size{Width: 64, Height: 64},
			opts:   LetterboxOptions{ScaleUp: true},
			expected: images.Geometry{
				Original: images.Size{Width: 100, Height: 99},
				Input:    images.Size{Width: 64, Height: 64},
				Scale:    0.64,
			},
		},
		{
			name:   "auto pads to stride",
			src:    images.Size{Width: 1280, Height: 720},
			target: images.Size{Width: 640, Height: 640},
			opts:   LetterboxOptions{ScaleUp: true, Auto: true, Stride: 32},
			expected: images.Geometry{
				Original: images.Size{Width: 1280, Height: 720},
				Input:    images.Size{Width: 640, Height: 384},
				Scale:    0.5,
				PadTop:   12,
			},
		},
		{
			name:   "no upscaling",
			src:    images.Size{Width: 320, Height: 320},
			target: images.Size{Width: 640, Height: 640},
			opts:   LetterboxOptions{},
			expected: images.Geometry{
				Original: images.Size{Width: 320, Height: 320},
				Input:    images.Size{Width: 640, Height: 640},
				Scale:    1,
				PadLeft:  160,
				PadTop:   160,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := solidImage(tt.src.Width, tt.src.Height, color.White)
			out, geometry := Letterbox(img, tt.target, tt.opts)

			assert.Equal(t, tt.expected.Original, geometry.Original)
			assert.Equal(t, tt.expected.Input, geometry.Input)
			assert.InDelta(t, tt.expected.Scale, geometry.Scale, 1e-6)
			assert.Equal(t, tt.expected.PadLeft, geometry.PadLeft)
			assert.Equal(t, tt.expected.PadTop, geometry.PadTop)
			assert.Equal(t, tt.expected.Input.Width, out.Bounds().Dx(), "output width should match geometry")
			assert.Equal(t, tt.expected.Input.Height, out.Bounds().Dy(), "output height should match geometry")
		})
	}
}

func TestLetterbox_FillsPadding(t *testing.T) {
	img := solidImage(1280, 720, color.White)
	out, _ := Letterbox(img, images.Size{Width: 640, Height: 640}, LetterboxOptions{ScaleUp: true})

	assert.Equal(t, DefaultFill, out.RGBAAt(0, 0), "padding should use the default fill")
	assert.GreaterOrEqual(t, out.RGBAAt(320, 320).R, uint8(250), "content should be preserved")

	black, _ := Letterbox(img, images.Size{Width: 640, Height: 640}, LetterboxOptions{ScaleUp: true, Fill: color.Black})
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, black.RGBAAt(0, 0))
}

func TestLetterbox_Invertible(t *testing.T) {
	img := solidImage(1280, 720, color.White)
	_, geometry := Letterbox(img, images.Size{Width: 640, Height: 640}, LetterboxOptions{ScaleUp: true})

	boxes := []images.Box{
		{X: 0, Y: 140, W: 640, H: 360},
		{X: 75.5, Y: 200.25, W: 50, H: 33.3},
		{X: 600, Y: 480, W: 10, H: 10},
	}
	for _, b := range boxes {
		back := geometry.ToNetwork(geometry.ToOriginal(b))
		assert.InDelta(t, b.X, back.X, 1e-3)
		assert.InDelta(t, b.Y, back.Y, 1e-3)
		assert.InDelta(t, b.W, back.W, 1e-3)
		assert.InDelta(t, b.H, back.H, 1e-3)
	}

	full := geometry.ToOriginal(images.Box{X: 0, Y: 140, W: 640, H: 360})
	assert.InDelta(t, 0, full.Y, 1e-4, "content top edge maps to the image top")
	assert.InDelta(t, 1280, full.W, 1e-3)
	assert.InDelta(t, 720, full.H, 1e-3)
}

func TestCenterCrop(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			if x < 100 {
				img.Set(x, y, color.RGBA{255, 0, 0, 255})
			} else {
				img.Set(x, y, color.RGBA{0, 0, 255, 255})
			}
		}
	}

	out, geometry := CenterCrop(img, images.Size{Width: 100, Height: 100}, nil)
	require.Equal(t, image.Rect(0, 0, 100, 100), out.Bounds())
	assert.Equal(t, float32(1), geometry.Scale)
	assert.Equal(t, float32(-50), geometry.PadLeft, "crop cuts 50 pixels on the left")
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, out.RGBAAt(10, 50))
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, out.RGBAAt(90, 50))
}

func TestPreprocess_PlanarLayout(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(1, 0, color.RGBA{0, 51, 255, 255})

	p := NewPreprocessor(Config{Task: models.TaskClassify, InputSize: images.Size{Width: 2, Height: 1}})
	result, err := p.Preprocess(img)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 3, 1, 2}, result.Shape)
	assert.InDeltaSlice(t, []float32{
		1, 0, // R plane
		0, 0.2, // G plane
		0, 1, // B plane
	}, result.Data, 1e-6)

	swapped := NewPreprocessor(Config{Task: models.TaskClassify, InputSize: images.Size{Width: 2, Height: 1}, SwapRB: true})
	result, err = swapped.Preprocess(img)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{
		0, 1, // B plane
		0, 0.2, // G plane
		1, 0, // R plane
	}, result.Data, 1e-6)
}

func TestPreprocess_Letterboxed(t *testing.T) {
	p := NewPreprocessor(Config{Task: models.TaskDetect, InputSize: images.Size{Width: 64, Height: 64}, Stride: 32})
	result, err := p.Preprocess(solidImage(128, 64, color.White))
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 3, 64, 64}, result.Shape)
	assert.Len(t, result.Data, 3*64*64)
	assert.Equal(t, float32(16), result.Geometry.PadTop)
	assert.InDelta(t, 114.0/255.0, result.Data[0], 1e-6, "padding is normalized fill")
	assert.InDelta(t, 1.0, result.Data[32*64+32], 0.02, "content is normalized white")
	for _, v := range result.Data {
		require.True(t, v >= 0 && v <= 1, "values must be normalized to [0, 1]")
	}
}

func TestPreprocess_Channels(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 8, 8))

	rgb := NewPreprocessor(Config{Task: models.TaskDetect, InputSize: images.Size{Width: 8, Height: 8}})
	_, err := rgb.Preprocess(gray)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChannelMismatch), "unexpected error: %v", err)

	mono := NewPreprocessor(Config{Task: models.TaskDetect, InputSize: images.Size{Width: 8, Height: 8}, Channels: 1})
	result, err := mono.Preprocess(gray)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 8, 8}, result.Shape)
	assert.Len(t, result.Data, 64)

	assert.Equal(t, 4, Channels(image.NewNRGBA(image.Rect(0, 0, 1, 1))))
	assert.Equal(t, 3, Channels(image.NewYCbCr(image.Rect(0, 0, 1, 1), image.YCbCrSubsampleRatio420)))
}

func TestPreprocess_EmptyImage(t *testing.T) {
	p := NewPreprocessor(Config{Task: models.TaskDetect, InputSize: images.Size{Width: 8, Height: 8}})
	_, err := p.Preprocess(image.NewRGBA(image.Rectangle{}))
	assert.Error(t, err)
}
