package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		backend ProviderBackend
		wantErr bool
	}{
		{name: "empty backend is cpu", config: Config{}, backend: CPUProviderBackend},
		{name: "cpu", config: Config{Backend: CPUProviderBackend}, backend: CPUProviderBackend},
		{name: "cuda default options", config: Config{Backend: CUDAProviderBackend}, backend: CUDAProviderBackend},
		{
			name:    "coreml typed options",
			config:  Config{Backend: CoreMLProviderBackend, Options: CoreMLOptions{MLProgram: true}},
			backend: CoreMLProviderBackend,
		},
		{
			name:    "mismatched options",
			config:  Config{Backend: OpenVINOProviderBackend, Options: CUDAOptions{}},
			wantErr: true,
		},
		{name: "unknown backend", config: Config{Backend: "tpu"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.backend, p.Backend())
		})
	}
}

func TestCUDAOptionsToMap(t *testing.T) {
	m := CUDAOptions{DeviceID: 1}.ToMap()
	assert.Equal(t, map[string]string{"device_id": "1", "do_copy_in_default_stream": "0"}, m)

	m = CUDAOptions{GPUMemLimit: 1 << 30, CudnnConvAlgoSearch: "HEURISTIC", DoCopyInDefaultStream: true}.ToMap()
	assert.Equal(t, "1073741824", m["gpu_mem_limit"])
	assert.Equal(t, "HEURISTIC", m["cudnn_conv_algo_search"])
	assert.Equal(t, "1", m["do_copy_in_default_stream"])
	assert.NotContains(t, m, "arena_extend_strategy")
}

func TestOpenVINOOptionsToMap(t *testing.T) {
	assert.Equal(t, map[string]string{"device_type": "CPU"}, OpenVINOOptions{}.ToMap())

	m := OpenVINOOptions{DeviceType: "GPU", Precision: "FP16", NumThreads: 4, DisableDynamicShapes: true}.ToMap()
	assert.Equal(t, "GPU", m["device_type"])
	assert.Equal(t, "FP16", m["precision"])
	assert.Equal(t, "4", m["num_of_threads"])
	assert.Equal(t, "true", m["disable_dynamic_shapes"])
}

func TestCoreMLOptionsFlags(t *testing.T) {
	assert.Equal(t, uint32(0), CoreMLOptions{}.Flags())
	assert.Equal(t, uint32(0x011), CoreMLOptions{CPUOnly: true, MLProgram: true}.Flags())
	assert.Equal(t, uint32(0x00e), CoreMLOptions{EnableOnSubgraphs: true, RequireANE: true, StaticInputShapes: true}.Flags())
}

func TestInitializeMissingLibrary(t *testing.T) {
	err := Initialize("/nonexistent/libonnxruntime.so")
	assert.Error(t, err)
}
