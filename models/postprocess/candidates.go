package postprocess

import (
	"github.com/nvr-ai/go-yolo/images"
)

// Candidate is a prediction row that passed the confidence filter.
type Candidate struct {
	// Box is in network-input pixels.
	Box images.Box
	// Score is the maximum class score.
	Score float32
	// Class is the arg-max class index.
	Class int
	// Extra holds the trailing values after the class scores: mask
	// coefficients for segmentation, keypoints for pose.
	Extra []float32
}

// FilterCandidates keeps every prediction whose best class score is strictly
// greater than conf.
//
// Arguments:
//   - view: The prediction rows.
//   - classCount: The number of class-score slots after the 4 box values.
//   - extra: The number of trailing values to keep per candidate.
//   - conf: The confidence threshold.
//
// Returns:
//   - The candidates in row order.
func FilterCandidates(view PredictionView, classCount, extra int, conf float32) []Candidate {
	var out []Candidate
	for r := 0; r < view.Rows(); r++ {
		class := 0
		score := view.At(r, 4)
		for c := 1; c < classCount; c++ {
			if s := view.At(r, 4+c); s > score {
				score, class = s, c
			}
		}
		if score <= conf {
			continue
		}

		cand := Candidate{
			Box:   images.BoxFromCenter(view.At(r, 0), view.At(r, 1), view.At(r, 2), view.At(r, 3)),
			Score: score,
			Class: class,
		}
		if extra > 0 {
			cand.Extra = view.Row(r, 4+classCount, 4+classCount+extra)
		}
		out = append(out, cand)
	}
	return out
}
