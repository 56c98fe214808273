package postprocess

import (
	"sort"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// IoUThreshold suppresses boxes overlapping a kept box by at least this much.
	IoUThreshold float32
	// ClassAware suppresses only within the same class. The default suppresses
	// across all classes jointly.
	ClassAware bool
}

// ApplyGreedyNMS performs standard greedy Non-Maximum Suppression: candidates
// are visited by descending score and each kept candidate removes every
// remaining candidate whose IoU with it is >= the threshold.
//
// Arguments:
//   - candidates: Candidates in any order; the slice is not modified.
//   - config: NMS configuration.
//
// Returns:
//   - The kept candidates sorted by descending score. Equal scores keep their
//     input order.
func ApplyGreedyNMS(candidates []Candidate, config NMSConfig) []Candidate {
	n := len(candidates)
	if n == 0 {
		return nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return candidates[order[a]].Score > candidates[order[b]].Score
	})

	kept := make([]Candidate, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := candidates[order[i]]
		kept = append(kept, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			other := candidates[order[j]]
			if config.ClassAware && other.Class != anchor.Class {
				continue
			}
			if anchor.Box.IoU(other.Box) >= config.IoUThreshold {
				used[j] = true
			}
		}
	}

	return kept
}
