package providers

import (
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// CoreMLProviderBackend uses Apple CoreML for inference optimization.
	CoreMLProviderBackend ProviderBackend = "coreml"
)

// CoreML provider flags from coreml_provider_factory.h.
const (
	coreMLFlagUseCPUOnly                 uint32 = 0x001
	coreMLFlagEnableOnSubgraph           uint32 = 0x002
	coreMLFlagOnlyEnableDeviceWithANE    uint32 = 0x004
	coreMLFlagOnlyAllowStaticInputShapes uint32 = 0x008
	coreMLFlagCreateMLProgram            uint32 = 0x010
)

// CoreMLOptions contains arguments for the CoreML provider.
type CoreMLOptions struct {
	// CPUOnly limits CoreML to the CPU, useful for debugging.
	CPUOnly bool `json:"cpu_only" yaml:"cpu_only" mapstructure:"cpu_only"`
	// EnableOnSubgraphs lets CoreML run on control flow subgraphs.
	EnableOnSubgraphs bool `json:"enable_on_subgraphs" yaml:"enable_on_subgraphs" mapstructure:"enable_on_subgraphs"`
	// RequireANE enables CoreML only on devices with a Neural Engine.
	RequireANE bool `json:"require_ane" yaml:"require_ane" mapstructure:"require_ane"`
	// StaticInputShapes restricts CoreML to inputs with static shapes.
	StaticInputShapes bool `json:"static_input_shapes" yaml:"static_input_shapes" mapstructure:"static_input_shapes"`
	// MLProgram creates an MLProgram instead of a NeuralNetwork model.
	MLProgram bool `json:"ml_program" yaml:"ml_program" mapstructure:"ml_program"`
}

func (CoreMLOptions) isProviderOptions() {}

// Flags packs the options into the provider flag word.
func (o CoreMLOptions) Flags() uint32 {
	var flags uint32
	if o.CPUOnly {
		flags |= coreMLFlagUseCPUOnly
	}
	if o.EnableOnSubgraphs {
		flags |= coreMLFlagEnableOnSubgraph
	}
	if o.RequireANE {
		flags |= coreMLFlagOnlyEnableDeviceWithANE
	}
	if o.StaticInputShapes {
		flags |= coreMLFlagOnlyAllowStaticInputShapes
	}
	if o.MLProgram {
		flags |= coreMLFlagCreateMLProgram
	}
	return flags
}

// CoreMLProvider implements the ExecutionProvider interface.
type CoreMLProvider struct {
	options CoreMLOptions
}

// NewCoreMLProvider creates a new CoreML provider.
func NewCoreMLProvider(options CoreMLOptions) *CoreMLProvider {
	return &CoreMLProvider{options: options}
}

// Backend returns the backend of the CoreML provider.
func (p *CoreMLProvider) Backend() ProviderBackend { return CoreMLProviderBackend }

// Options returns the options of the CoreML provider.
func (p *CoreMLProvider) Options() ProviderOptions { return p.options }

// Append registers CoreML on the session options.
func (p *CoreMLProvider) Append(options *ort.SessionOptions) error {
	return options.AppendExecutionProviderCoreML(p.options.Flags())
}
