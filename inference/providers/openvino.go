package providers

import (
	"strconv"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	// OpenVINOProviderBackend uses Intel OpenVINO for inference optimization.
	OpenVINOProviderBackend ProviderBackend = "openvino"
)

// OpenVINOOptions contains arguments for the OpenVINO provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html
type OpenVINOOptions struct {
	// DeviceType such as CPU, GPU or NPU.
	DeviceType string `json:"device_type" yaml:"device_type" mapstructure:"device_type"`
	// Precision such as FP32 or FP16, empty for the device default.
	Precision string `json:"precision" yaml:"precision" mapstructure:"precision"`
	// NumThreads for CPU inference, 0 for the default.
	NumThreads int `json:"num_threads" yaml:"num_threads" mapstructure:"num_threads"`
	// CacheDir stores compiled blobs between runs.
	CacheDir string `json:"cache_dir" yaml:"cache_dir" mapstructure:"cache_dir"`
	// DisableDynamicShapes reshapes dynamic inputs to static ones at compile time.
	DisableDynamicShapes bool `json:"disable_dynamic_shapes" yaml:"disable_dynamic_shapes" mapstructure:"disable_dynamic_shapes"`
}

func (OpenVINOOptions) isProviderOptions() {}

// ToMap renders the options as ONNX Runtime provider option keys.
func (o OpenVINOOptions) ToMap() map[string]string {
	deviceType := o.DeviceType
	if deviceType == "" {
		deviceType = "CPU"
	}
	out := map[string]string{"device_type": deviceType}
	if o.Precision != "" {
		out["precision"] = o.Precision
	}
	if o.NumThreads > 0 {
		out["num_of_threads"] = strconv.Itoa(o.NumThreads)
	}
	if o.CacheDir != "" {
		out["cache_dir"] = o.CacheDir
	}
	if o.DisableDynamicShapes {
		out["disable_dynamic_shapes"] = "true"
	}
	return out
}

// OpenVINOProvider implements the ExecutionProvider interface.
type OpenVINOProvider struct {
	options OpenVINOOptions
}

// NewOpenVINOProvider creates a new OpenVINO provider.
func NewOpenVINOProvider(options OpenVINOOptions) *OpenVINOProvider {
	return &OpenVINOProvider{options: options}
}

// Backend returns the backend of the OpenVINO provider.
func (p *OpenVINOProvider) Backend() ProviderBackend { return OpenVINOProviderBackend }

// Options returns the options of the OpenVINO provider.
func (p *OpenVINOProvider) Options() ProviderOptions { return p.options }

// Append registers OpenVINO on the session options.
func (p *OpenVINOProvider) Append(options *ort.SessionOptions) error {
	return options.AppendExecutionProviderOpenVINO(p.options.ToMap())
}
