package postprocess

import (
	"github.com/pkg/errors"
)

// ErrShapeMismatch is returned when an output tensor does not have the shape
// a decoder requires.
var ErrShapeMismatch = errors.New("output tensor shape mismatch")

// Tensor is a raw float32 network output with its declared shape.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Validate checks that the data length matches the declared shape.
func (t Tensor) Validate() error {
	if len(t.Shape) == 0 {
		return errors.Wrap(ErrShapeMismatch, "tensor has no shape")
	}
	n := int64(1)
	for _, d := range t.Shape {
		if d <= 0 {
			return errors.Wrapf(ErrShapeMismatch, "non-positive dimension in %v", t.Shape)
		}
		n *= d
	}
	if n != int64(len(t.Data)) {
		return errors.Wrapf(ErrShapeMismatch, "shape %v holds %d values, data has %d", t.Shape, n, len(t.Data))
	}
	return nil
}

// PredictionView is a strided view over a [1, features, predictions] output
// that reads it as one row of features per prediction.
type PredictionView struct {
	data     []float32
	features int
	rows     int
}

// NewPredictionView validates t and wraps it without copying.
//
// Arguments:
//   - t: A tensor of shape [1, features, predictions].
//
// Returns:
//   - The view, or ErrShapeMismatch when the shape does not fit.
func NewPredictionView(t Tensor) (PredictionView, error) {
	if err := t.Validate(); err != nil {
		return PredictionView{}, err
	}
	if len(t.Shape) != 3 || t.Shape[0] != 1 {
		return PredictionView{}, errors.Wrapf(ErrShapeMismatch, "expected [1, features, predictions], got %v", t.Shape)
	}
	return PredictionView{data: t.Data, features: int(t.Shape[1]), rows: int(t.Shape[2])}, nil
}

// Rows returns the number of predictions.
func (v PredictionView) Rows() int { return v.rows }

// Features returns the number of values per prediction.
func (v PredictionView) Features() int { return v.features }

// At returns feature f of prediction row r.
func (v PredictionView) At(r, f int) float32 {
	return v.data[f*v.rows+r]
}

// Row copies features [from, to) of prediction r into a new slice.
func (v PredictionView) Row(r, from, to int) []float32 {
	out := make([]float32, to-from)
	for f := from; f < to; f++ {
		out[f-from] = v.data[f*v.rows+r]
	}
	return out
}
