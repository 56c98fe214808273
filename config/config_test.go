package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/nvr-ai/go-yolo/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yolo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "model:\n  path: yolo11n.onnx\n"))
	require.NoError(t, err)

	assert.Equal(t, "yolo11n.onnx", cfg.Model.Path)
	assert.Equal(t, 32, cfg.Model.Stride)
	assert.InDelta(t, 0.25, cfg.Predict.Confidence, 1e-6)
	assert.InDelta(t, 0.45, cfg.Predict.IoU, 1e-6)
	assert.InDelta(t, 0.5, cfg.Predict.MaskThreshold, 1e-6)
	assert.Equal(t, 114, cfg.Predict.Fill)
	assert.Equal(t, 4, cfg.Predict.Workers)
	assert.Equal(t, "cpu", cfg.Runtime.Provider)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Explicit(), "no task or imgsz means metadata mode")
}

func TestLoadExplicitModel(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
model:
  path: custom.onnx
  task: segment
  imgsz: [480, 640]
  names:
    0: person
    1: car
runtime:
  provider: cuda
  device_id: 1
predict:
  confidence: 0.4
  class_aware: true
`))
	require.NoError(t, err)
	require.True(t, cfg.Explicit())

	meta := cfg.Metadata()
	assert.Equal(t, models.TaskSegment, meta.Task)
	assert.Equal(t, images.Size{Width: 640, Height: 480}, meta.InputSize)
	assert.Equal(t, 2, meta.ClassCount)
	assert.Equal(t, "car", meta.Names[1])

	pc := cfg.ProviderConfig()
	assert.Equal(t, providers.CUDAProviderBackend, pc.Backend)
	assert.Equal(t, providers.CUDAOptions{DeviceID: 1}, pc.Options)

	params := cfg.Params()
	assert.InDelta(t, 0.4, params.Confidence, 1e-6)
	assert.True(t, params.ClassAware)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("YOLO_PREDICT_CONFIDENCE", "0.6")
	t.Setenv("YOLO_RUNTIME_PROVIDER", "openvino")

	cfg, err := Load(writeConfig(t, "predict:\n  confidence: 0.3\n"))
	require.NoError(t, err)
	assert.InDelta(t, 0.6, cfg.Predict.Confidence, 1e-6)
	assert.Equal(t, "openvino", cfg.Runtime.Provider)
}

func TestLoadSquareImgsz(t *testing.T) {
	cfg, err := Load(writeConfig(t, "model:\n  task: detect\n  imgsz: [320]\n"))
	require.NoError(t, err)
	assert.Equal(t, images.Size{Width: 320, Height: 320}, cfg.Metadata().InputSize)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "confidence above one", body: "predict:\n  confidence: 1.5\n"},
		{name: "unknown provider", body: "runtime:\n  provider: tpu\n"},
		{name: "three imgsz values", body: "model:\n  imgsz: [1, 2, 3]\n"},
		{name: "fill out of range", body: "predict:\n  fill: 300\n"},
		{name: "no workers", body: "predict:\n  workers: 0\n"},
		{name: "bad log level", body: "log:\n  level: loud\n"},
		{name: "bad log format", body: "log:\n  format: xml\n"},
		{name: "unknown task", body: "model:\n  task: obb\n"},
		{name: "four channels", body: "model:\n  channels: 4\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestFillColor(t *testing.T) {
	cfg := &Config{Predict: PredictConfig{Fill: 114}}
	r, g, b, a := cfg.FillColor().RGBA()
	assert.Equal(t, uint32(114*0x101), r)
	assert.Equal(t, r, g)
	assert.Equal(t, r, b)
	assert.Equal(t, uint32(0xffff), a)
}
