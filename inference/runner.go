// Package inference - Runs YOLO models end to end: preprocessing, the
// network call and decoding.
package inference

import (
	"context"

	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// Runner invokes a network on a single input tensor.
type Runner interface {
	// Run executes the network and returns its outputs in declaration order.
	Run(ctx context.Context, input postprocess.Tensor) ([]postprocess.Tensor, error)
	// Close releases the resources held by the runner.
	Close() error
}
