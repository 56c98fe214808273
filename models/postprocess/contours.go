package postprocess

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Contours traces the external boundaries of a detection's mask and returns
// them in original image coordinates. Detections without a mask have no
// contours.
//
// Arguments:
//   - det: The detection; it is not modified.
//
// Returns:
//   - One polygon per external boundary.
//   - error if the mask cannot be handed to OpenCV.
func Contours(det Detection) ([][]image.Point, error) {
	if det.Mask.Empty() {
		return nil, nil
	}

	mat, err := gocv.NewMatFromBytes(det.Mask.Height, det.Mask.Width, gocv.MatTypeCV8UC1, det.Mask.Pix)
	if err != nil {
		return nil, errors.Wrap(err, "mask to mat")
	}
	defer mat.Close()

	found := gocv.FindContours(mat, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer found.Close()

	offset := det.Box.Bounds().Min
	contours := found.ToPoints()
	for _, contour := range contours {
		for i := range contour {
			contour[i] = contour[i].Add(offset)
		}
	}
	return contours, nil
}

// BoundaryPoints returns the contours of every detection, in order.
func BoundaryPoints(dets []Detection) ([][][]image.Point, error) {
	out := make([][][]image.Point, len(dets))
	for i, det := range dets {
		c, err := Contours(det)
		if err != nil {
			return nil, errors.Wrapf(err, "detection %d", i)
		}
		out[i] = c
	}
	return out, nil
}
