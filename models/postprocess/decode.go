package postprocess

import (
	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/models"
	"github.com/pkg/errors"
)

// ErrTaskNotImplemented is returned for tasks without a decode path.
var ErrTaskNotImplemented = errors.New("task not implemented")

// Params are the per-call thresholds.
type Params struct {
	// Confidence is the score a prediction must exceed.
	Confidence float32
	// IoU is the NMS suppression threshold.
	IoU float32
	// MaskThreshold is the probability a mask pixel must exceed.
	MaskThreshold float32
	// ClassAware runs NMS per class instead of across classes.
	ClassAware bool
}

// DefaultParams returns the thresholds ultralytics uses for prediction.
func DefaultParams() Params {
	return Params{Confidence: 0.25, IoU: 0.45, MaskThreshold: 0.5}
}

// Decoder turns raw outputs of one model into detections.
// It holds only read-only model metadata and is safe for concurrent use.
type Decoder struct {
	meta models.Metadata
}

// NewDecoder creates a decoder for a resolved model.
func NewDecoder(meta models.Metadata) *Decoder {
	return &Decoder{meta: meta}
}

// Decode dispatches the outputs of one inference call to the decode path of
// the model's task.
//
// Arguments:
//   - outputs: The network outputs in model order.
//   - geometry: The preprocessing geometry of the call.
//   - params: The thresholds of the call.
//
// Returns:
//   - Detections ordered by descending score (class index order for classify).
//   - An error when the outputs do not match the task or the task is unknown.
func (d *Decoder) Decode(outputs []Tensor, geometry images.Geometry, params Params) ([]Detection, error) {
	switch d.meta.Task {
	case models.TaskDetect:
		if err := expectOutputs(outputs, 1); err != nil {
			return nil, err
		}
		return d.decodeDetect(outputs[0], geometry, params)
	case models.TaskSegment:
		if err := expectOutputs(outputs, 2); err != nil {
			return nil, err
		}
		return d.decodeSegment(outputs[0], outputs[1], geometry, params)
	case models.TaskPose:
		if err := expectOutputs(outputs, 1); err != nil {
			return nil, err
		}
		return d.decodePose(outputs[0], geometry, params)
	case models.TaskClassify:
		if err := expectOutputs(outputs, 1); err != nil {
			return nil, err
		}
		return d.decodeClassify(outputs[0], params)
	default:
		return nil, errors.Wrapf(ErrTaskNotImplemented, "task %q", d.meta.Task)
	}
}

func expectOutputs(outputs []Tensor, n int) error {
	if len(outputs) < n {
		return errors.Wrapf(ErrShapeMismatch, "expected %d outputs, got %d", n, len(outputs))
	}
	return nil
}

// classCount resolves the number of class slots given the number of trailing
// values per row. An unresolved class count is derived from the row width.
func (d *Decoder) classCount(features, extra int) (int, error) {
	nc := d.meta.ClassCount
	if nc == 0 {
		nc = features - 4 - extra
	}
	if nc <= 0 || 4+nc+extra != features {
		return 0, errors.Wrapf(ErrShapeMismatch, "%d features cannot hold 4 box values, %d classes and %d extra values", features, nc, extra)
	}
	return nc, nil
}

// finalize runs NMS and maps the kept candidates to clipped original-space detections.
func (d *Decoder) finalize(cands []Candidate, geometry images.Geometry, params Params) ([]Candidate, []Detection) {
	for i := range cands {
		cands[i].Box = geometry.ToOriginal(cands[i].Box)
	}

	kept := ApplyGreedyNMS(cands, NMSConfig{IoUThreshold: params.IoU, ClassAware: params.ClassAware})

	dets := make([]Detection, len(kept))
	for i, c := range kept {
		dets[i] = Detection{
			Class: c.Class,
			Label: d.label(c.Class),
			Score: c.Score,
			Box:   c.Box.Clip(geometry.Original.Width, geometry.Original.Height),
		}
	}
	return kept, dets
}

func (d *Decoder) label(class int) string {
	if len(d.meta.Names) == 0 {
		return ""
	}
	return d.meta.Names.Name(class)
}

func (d *Decoder) decodeDetect(output Tensor, geometry images.Geometry, params Params) ([]Detection, error) {
	view, err := NewPredictionView(output)
	if err != nil {
		return nil, errors.Wrap(err, "detect output")
	}
	nc, err := d.classCount(view.Features(), 0)
	if err != nil {
		return nil, err
	}

	_, dets := d.finalize(FilterCandidates(view, nc, 0, params.Confidence), geometry, params)
	return dets, nil
}

func (d *Decoder) decodeSegment(output, protoOutput Tensor, geometry images.Geometry, params Params) ([]Detection, error) {
	view, err := NewPredictionView(output)
	if err != nil {
		return nil, errors.Wrap(err, "segment output")
	}
	proto, err := NewPrototype(protoOutput)
	if err != nil {
		return nil, errors.Wrap(err, "segment prototype")
	}
	nc, err := d.classCount(view.Features(), proto.Features)
	if err != nil {
		return nil, err
	}

	kept, dets := d.finalize(FilterCandidates(view, nc, proto.Features, params.Confidence), geometry, params)
	if len(kept) == 0 {
		return dets, nil
	}

	coefficients := make([][]float32, len(kept))
	for i, c := range kept {
		coefficients[i] = c.Extra
	}

	masks := NewMaskReconstructor(params.MaskThreshold)
	planes, err := masks.Project(coefficients, proto)
	if err != nil {
		return nil, err
	}
	for i := range dets {
		if dets[i].Mask, err = masks.Reconstruct(planes[i], dets[i].Box, geometry); err != nil {
			return nil, errors.Wrapf(err, "detection %d", i)
		}
	}
	return dets, nil
}

func (d *Decoder) decodePose(output Tensor, geometry images.Geometry, params Params) ([]Detection, error) {
	view, err := NewPredictionView(output)
	if err != nil {
		return nil, errors.Wrap(err, "pose output")
	}

	count, dims := d.meta.KeypointDims()
	var nc, extra int
	switch {
	case count > 0:
		extra = count * dims
		nc, err = d.classCount(view.Features(), extra)
	case d.meta.ClassCount > 0:
		nc = d.meta.ClassCount
		extra = view.Features() - 4 - nc
		if extra <= 0 || extra%dims != 0 {
			err = errors.Wrapf(ErrShapeMismatch, "%d trailing values are not %d-value keypoints", extra, dims)
		}
	default:
		// Single class pose models.
		nc = 1
		extra = view.Features() - 5
		if extra <= 0 || extra%dims != 0 {
			err = errors.Wrapf(ErrShapeMismatch, "%d trailing values are not %d-value keypoints", extra, dims)
		}
	}
	if err != nil {
		return nil, err
	}

	kept, dets := d.finalize(FilterCandidates(view, nc, extra, params.Confidence), geometry, params)
	width := float32(geometry.Original.Width)
	height := float32(geometry.Original.Height)
	for i, c := range kept {
		kpts := make([]Keypoint, 0, len(c.Extra)/dims)
		for k := 0; k+dims <= len(c.Extra); k += dims {
			x, y := geometry.PointToOriginal(c.Extra[k], c.Extra[k+1])
			kp := Keypoint{
				X:     math32.Min(math32.Max(x, 0), width),
				Y:     math32.Min(math32.Max(y, 0), height),
				Score: 1,
			}
			if dims == 3 {
				kp.Score = c.Extra[k+2]
			}
			kpts = append(kpts, kp)
		}
		dets[i].Keypoints = kpts
	}
	return dets, nil
}

func (d *Decoder) decodeClassify(output Tensor, params Params) ([]Detection, error) {
	if err := output.Validate(); err != nil {
		return nil, errors.Wrap(err, "classify output")
	}
	if len(output.Shape) != 2 || output.Shape[0] != 1 {
		return nil, errors.Wrapf(ErrShapeMismatch, "expected [1, classes] scores, got %v", output.Shape)
	}

	var dets []Detection
	for class, score := range output.Data {
		if score > params.Confidence {
			dets = append(dets, Detection{Class: class, Label: d.label(class), Score: score})
		}
	}
	return dets, nil
}
