package providers

import (
	"strconv"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// CUDAProviderBackend uses NVIDIA CUDA for inference optimization.
	CUDAProviderBackend ProviderBackend = "cuda"
)

// CUDAOptions contains arguments for the CUDA provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/CUDA-ExecutionProvider.html#configuration-options
type CUDAOptions struct {
	// The device ID.
	DeviceID int `json:"device_id" yaml:"device_id" mapstructure:"device_id"`
	// The size limit of the device memory arena in bytes, 0 for unlimited.
	GPUMemLimit int64 `json:"gpu_mem_limit" yaml:"gpu_mem_limit" mapstructure:"gpu_mem_limit"`
	// kNextPowerOfTwo or kSameAsRequested, empty for the runtime default.
	ArenaExtendStrategy string `json:"arena_extend_strategy" yaml:"arena_extend_strategy" mapstructure:"arena_extend_strategy"`
	// EXHAUSTIVE, HEURISTIC or DEFAULT, empty for the runtime default.
	CudnnConvAlgoSearch string `json:"cudnn_conv_algo_search" yaml:"cudnn_conv_algo_search" mapstructure:"cudnn_conv_algo_search"`
	// Whether to do copies in the default stream.
	DoCopyInDefaultStream bool `json:"do_copy_in_default_stream" yaml:"do_copy_in_default_stream" mapstructure:"do_copy_in_default_stream"`
}

func (CUDAOptions) isProviderOptions() {}

// ToMap renders the options as ONNX Runtime provider option keys.
//
// Returns:
//   - map[string]string: The provider options, unset fields omitted.
func (o CUDAOptions) ToMap() map[string]string {
	out := map[string]string{
		"device_id":                 strconv.Itoa(o.DeviceID),
		"do_copy_in_default_stream": boolFlag(o.DoCopyInDefaultStream),
	}
	if o.GPUMemLimit > 0 {
		out["gpu_mem_limit"] = strconv.FormatInt(o.GPUMemLimit, 10)
	}
	if o.ArenaExtendStrategy != "" {
		out["arena_extend_strategy"] = o.ArenaExtendStrategy
	}
	if o.CudnnConvAlgoSearch != "" {
		out["cudnn_conv_algo_search"] = o.CudnnConvAlgoSearch
	}
	return out
}

// CUDAProvider implements the ExecutionProvider interface.
type CUDAProvider struct {
	options CUDAOptions
}

// NewCUDAProvider creates a new CUDA provider.
func NewCUDAProvider(options CUDAOptions) *CUDAProvider {
	return &CUDAProvider{options: options}
}

// Backend returns the backend of the CUDA provider.
func (p *CUDAProvider) Backend() ProviderBackend { return CUDAProviderBackend }

// Options returns the options of the CUDA provider.
func (p *CUDAProvider) Options() ProviderOptions { return p.options }

// Append registers CUDA on the session options.
func (p *CUDAProvider) Append(options *ort.SessionOptions) error {
	native, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return errors.Wrap(err, "error creating CUDA provider options")
	}
	defer native.Destroy()

	if err := native.Update(p.options.ToMap()); err != nil {
		return errors.Wrap(err, "error updating CUDA provider options")
	}
	return options.AppendExecutionProviderCUDA(native)
}

func boolFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
