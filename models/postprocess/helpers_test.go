package postprocess

import (
	"github.com/nvr-ai/go-yolo/images"
)

// predictionTensor packs prediction rows into a [1, features, rows] tensor,
// the transposed layout YOLO exports produce.
func predictionTensor(rows ...[]float32) Tensor {
	features := len(rows[0])
	data := make([]float32, features*len(rows))
	for r, row := range rows {
		for f, v := range row {
			data[f*len(rows)+r] = v
		}
	}
	return Tensor{Shape: []int64{1, int64(features), int64(len(rows))}, Data: data}
}

// prototypeTensor builds a [1, features, height, width] tensor from a
// per-feature value function.
func prototypeTensor(features, width, height int, value func(f, x, y int) float32) Tensor {
	data := make([]float32, features*width*height)
	for f := 0; f < features; f++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				data[f*width*height+y*width+x] = value(f, x, y)
			}
		}
	}
	return Tensor{Shape: []int64{1, int64(features), int64(height), int64(width)}, Data: data}
}

func identityGeometry(width, height int) images.Geometry {
	return images.Geometry{
		Original: images.Size{Width: width, Height: height},
		Input:    images.Size{Width: width, Height: height},
		Scale:    1,
	}
}

// letterboxGeometry is the geometry of a 1280x720 image letterboxed into 640x640.
func letterboxGeometry() images.Geometry {
	return images.Geometry{
		Original: images.Size{Width: 1280, Height: 720},
		Input:    images.Size{Width: 640, Height: 640},
		Scale:    0.5,
		PadTop:   140,
	}
}
