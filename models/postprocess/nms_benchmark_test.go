package postprocess

import (
	"math/rand"
	"testing"

	"github.com/nvr-ai/go-yolo/images"
)

// randomCandidates scatters n boxes over a 640x640 input, seeded so every run
// sees the same workload.
func randomCandidates(n, classes int) []Candidate {
	rng := rand.New(rand.NewSource(42))
	out := make([]Candidate, n)
	for i := range out {
		w := 20 + rng.Float32()*120
		h := 20 + rng.Float32()*120
		out[i] = Candidate{
			Box:   images.Box{X: rng.Float32() * (640 - w), Y: rng.Float32() * (640 - h), W: w, H: h},
			Score: rng.Float32(),
			Class: rng.Intn(classes),
		}
	}
	return out
}

// BenchmarkApplyGreedyNMS_Sparse is the usual post-filter load of a few
// hundred candidates.
func BenchmarkApplyGreedyNMS_Sparse(b *testing.B) {
	cands := randomCandidates(300, 80)
	cfg := NMSConfig{IoUThreshold: 0.45}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = ApplyGreedyNMS(cands, cfg)
	}
}

// BenchmarkApplyGreedyNMS_Dense approximates a low confidence threshold.
func BenchmarkApplyGreedyNMS_Dense(b *testing.B) {
	cands := randomCandidates(5000, 80)
	cfg := NMSConfig{IoUThreshold: 0.45}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = ApplyGreedyNMS(cands, cfg)
	}
}

func BenchmarkApplyGreedyNMS_ClassAware(b *testing.B) {
	cands := randomCandidates(5000, 80)
	cfg := NMSConfig{IoUThreshold: 0.45, ClassAware: true}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = ApplyGreedyNMS(cands, cfg)
	}
}
