// Package postprocess - Decodes raw YOLO family network outputs into
// image-space detections.
package postprocess

import (
	"github.com/nvr-ai/go-yolo/images"
)

// Keypoint is a single pose keypoint in original image coordinates.
type Keypoint struct {
	X     float32 `json:"x"`
	Y     float32 `json:"y"`
	Score float32 `json:"score"`
}

// Mask is a binary instance mask covering a detection's box. Foreground
// pixels are 255, background pixels are 0.
type Mask struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Pix    []uint8 `json:"-"`
}

// NewMask allocates an all-background mask.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// Empty reports whether the mask has no pixels.
func (m *Mask) Empty() bool {
	return m == nil || m.Width == 0 || m.Height == 0
}

// At reports whether (x, y) is foreground.
func (m *Mask) At(x, y int) bool {
	return m.Pix[y*m.Width+x] != 0
}

// Area returns the number of foreground pixels.
func (m *Mask) Area() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Detection represents a single decoded result.
type Detection struct {
	// Class is the predicted class index.
	Class int `json:"class"`
	// Label is the class name, when known.
	Label string `json:"label,omitempty"`
	// Score is the confidence of the prediction.
	Score float32 `json:"score"`
	// Box is in original image pixels, clipped to the image. Zero for classification.
	Box images.Box `json:"box"`
	// Mask is set for segmentation results and covers Box.Bounds().
	Mask *Mask `json:"mask,omitempty"`
	// Keypoints is set for pose results.
	Keypoints []Keypoint `json:"keypoints,omitempty"`
}
