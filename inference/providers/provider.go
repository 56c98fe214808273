// Package providers - ONNX Runtime environment and execution providers.
package providers

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// ProviderBackend represents different ONNX Runtime execution providers.
type ProviderBackend string

const (
	// CPUProviderBackend runs on the default CPU provider.
	CPUProviderBackend ProviderBackend = "cpu"
)

// ProviderOptions is a marker interface for provider-specific config.
type ProviderOptions interface {
	isProviderOptions()
}

// ExecutionProvider represents the contract that all execution providers must implement.
type ExecutionProvider interface {
	// Backend returns the backend identifier.
	Backend() ProviderBackend
	// Options returns the provider specific options.
	Options() ProviderOptions
	// Append registers the provider on the session options.
	Append(options *ort.SessionOptions) error
}

// Config selects the execution provider and session tuning.
type Config struct {
	// Backend specifies the backend to use.
	Backend ProviderBackend `json:"backend" yaml:"backend" mapstructure:"backend"`
	// Options contains provider-specific configuration options.
	Options ProviderOptions `json:"options" yaml:"options" mapstructure:"-"`
	// LibraryPath is the ONNX Runtime shared library, GetSharedLibPath() when empty.
	LibraryPath string `json:"library_path" yaml:"library_path" mapstructure:"library_path"`
	// IntraOpThreads bounds parallelism inside graph nodes, 0 for the runtime default.
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads" mapstructure:"intra_op_threads"`
	// GraphOptimization is the graph rewrite level.
	GraphOptimization ort.GraphOptimizationLevel `json:"-" yaml:"-" mapstructure:"-"`
}

// DefaultConfig returns a CPU configuration with extended graph optimizations.
func DefaultConfig() Config {
	return Config{
		Backend:           CPUProviderBackend,
		GraphOptimization: ort.GraphOptimizationLevelEnableExtended,
	}
}

type cpuOptions struct{}

func (cpuOptions) isProviderOptions() {}

// CPUProvider uses the runtime's default provider.
type CPUProvider struct{}

// Backend returns the backend of the CPU provider.
func (CPUProvider) Backend() ProviderBackend { return CPUProviderBackend }

// Options returns the options of the CPU provider.
func (CPUProvider) Options() ProviderOptions { return cpuOptions{} }

// Append is a no-op, the CPU provider is always registered.
func (CPUProvider) Append(*ort.SessionOptions) error { return nil }

// NewProvider creates a new provider based on the required backend.
//
// Arguments:
//   - config: The provider configuration. Options must match the backend when set.
//
// Returns:
//   - ExecutionProvider: The new provider.
//   - error: An error if the backend is unknown or the options do not match it.
func NewProvider(config Config) (ExecutionProvider, error) {
	switch config.Backend {
	case "", CPUProviderBackend:
		return CPUProvider{}, nil
	case CoreMLProviderBackend:
		opts, err := optionsAs[CoreMLOptions](config)
		if err != nil {
			return nil, err
		}
		return NewCoreMLProvider(opts), nil
	case OpenVINOProviderBackend:
		opts, err := optionsAs[OpenVINOOptions](config)
		if err != nil {
			return nil, err
		}
		return NewOpenVINOProvider(opts), nil
	case CUDAProviderBackend:
		opts, err := optionsAs[CUDAOptions](config)
		if err != nil {
			return nil, err
		}
		return NewCUDAProvider(opts), nil
	default:
		return nil, errors.Errorf("no matching provider backend registered: %s", config.Backend)
	}
}

// optionsAs returns the typed options of config, or the zero value when unset.
func optionsAs[T ProviderOptions](config Config) (T, error) {
	var zero T
	if config.Options == nil {
		return zero, nil
	}
	opts, ok := config.Options.(T)
	if !ok {
		return zero, errors.Errorf("invalid options type for %s: %T", config.Backend, config.Options)
	}
	return opts, nil
}

// NewSessionOptions creates session options tuned by config with the
// configured execution provider appended. The caller must Destroy them.
//
// Arguments:
//   - config: The provider configuration.
//
// Returns:
//   - *ort.SessionOptions: The session options.
//   - error: An error if the provider cannot be configured.
func NewSessionOptions(config Config) (*ort.SessionOptions, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "error creating ORT session options")
	}

	if err := options.SetIntraOpNumThreads(config.IntraOpThreads); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "error setting intra-op threads")
	}
	if err := options.SetGraphOptimizationLevel(config.GraphOptimization); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "error setting graph optimization level")
	}
	if err := provider.Append(options); err != nil {
		options.Destroy()
		return nil, errors.Wrapf(err, "error enabling %s", provider.Backend())
	}

	return options, nil
}
