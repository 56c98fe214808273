// Package config loads the settings of the yolo command from defaults, an
// optional YAML file and YOLO_ prefixed environment variables.
package config

import (
	"image/color"
	"strings"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/nvr-ai/go-yolo/models"
	"github.com/nvr-ai/go-yolo/models/postprocess"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	ort "github.com/yalue/onnxruntime_go"
)

// EnvPrefix prefixes every environment override, e.g. YOLO_PREDICT_CONFIDENCE.
const EnvPrefix = "YOLO"

// Config is the complete configuration.
type Config struct {
	Model   ModelConfig   `mapstructure:"model"`
	Runtime RuntimeConfig `mapstructure:"runtime"`
	Predict PredictConfig `mapstructure:"predict"`
	Log     LogConfig     `mapstructure:"log"`
}

// ModelConfig selects the model. When Task and Imgsz are both set the model
// metadata is not read.
type ModelConfig struct {
	Path     string         `mapstructure:"path"`
	Task     string         `mapstructure:"task"`
	Imgsz    []int          `mapstructure:"imgsz"`
	Stride   int            `mapstructure:"stride"`
	Names    map[int]string `mapstructure:"names"`
	Channels int            `mapstructure:"channels"`
}

// RuntimeConfig configures ONNX Runtime.
type RuntimeConfig struct {
	LibraryPath    string `mapstructure:"library_path"`
	Provider       string `mapstructure:"provider"`
	IntraOpThreads int    `mapstructure:"intra_op_threads"`
	DeviceID       int    `mapstructure:"device_id"`
}

// PredictConfig holds the per-call thresholds and input handling.
type PredictConfig struct {
	Confidence    float32 `mapstructure:"confidence"`
	IoU           float32 `mapstructure:"iou"`
	MaskThreshold float32 `mapstructure:"mask_threshold"`
	ClassAware    bool    `mapstructure:"class_aware"`
	SwapRB        bool    `mapstructure:"swap_rb"`
	LetterboxAuto bool    `mapstructure:"letterbox_auto"`
	Fill          int     `mapstructure:"fill"`
	Verbose       bool    `mapstructure:"verbose"`
	Workers       int     `mapstructure:"workers"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads the configuration.
//
// Arguments:
//   - configPath: A YAML file, or empty to search ./yolo.yaml and $HOME/.yolo/yolo.yaml.
//
// Returns:
//   - *Config: The validated configuration.
//   - error: An error if the file cannot be read or a value is invalid.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	} else {
		v.SetConfigName("yolo")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.yolo")

		// Ignore error if config file not found
		_ = v.ReadInConfig()
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model.path", "")
	v.SetDefault("model.task", "")
	v.SetDefault("model.imgsz", []int{})
	v.SetDefault("model.stride", 32)
	v.SetDefault("model.channels", 0)

	v.SetDefault("runtime.library_path", "")
	v.SetDefault("runtime.provider", string(providers.CPUProviderBackend))
	v.SetDefault("runtime.intra_op_threads", 0)
	v.SetDefault("runtime.device_id", 0)

	params := postprocess.DefaultParams()
	v.SetDefault("predict.confidence", params.Confidence)
	v.SetDefault("predict.iou", params.IoU)
	v.SetDefault("predict.mask_threshold", params.MaskThreshold)
	v.SetDefault("predict.class_aware", false)
	v.SetDefault("predict.swap_rb", false)
	v.SetDefault("predict.letterbox_auto", false)
	v.SetDefault("predict.fill", 114)
	v.SetDefault("predict.verbose", false)
	v.SetDefault("predict.workers", 4)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if n := len(c.Model.Imgsz); n > 2 {
		return errors.Errorf("model.imgsz takes one or two values, got %d", n)
	}
	for _, s := range c.Model.Imgsz {
		if s <= 0 {
			return errors.Errorf("model.imgsz must be positive, got %v", c.Model.Imgsz)
		}
	}
	switch c.Model.Channels {
	case 0, 1, 3:
	default:
		return errors.Errorf("model.channels must be 1 or 3, got %d", c.Model.Channels)
	}
	if c.Model.Task != "" && !models.Task(c.Model.Task).Known() {
		return errors.Errorf("model.task %q is not one of %v", c.Model.Task, models.Tasks)
	}

	switch providers.ProviderBackend(c.Runtime.Provider) {
	case providers.CPUProviderBackend, providers.CoreMLProviderBackend,
		providers.CUDAProviderBackend, providers.OpenVINOProviderBackend:
	default:
		return errors.Errorf("runtime.provider %q is not one of cpu, coreml, cuda, openvino", c.Runtime.Provider)
	}

	for name, v := range map[string]float32{
		"predict.confidence":     c.Predict.Confidence,
		"predict.iou":            c.Predict.IoU,
		"predict.mask_threshold": c.Predict.MaskThreshold,
	} {
		if v < 0 || v > 1 {
			return errors.Errorf("%s must be within [0, 1], got %v", name, v)
		}
	}
	if c.Predict.Fill < 0 || c.Predict.Fill > 255 {
		return errors.Errorf("predict.fill must be within [0, 255], got %d", c.Predict.Fill)
	}
	if c.Predict.Workers <= 0 {
		return errors.Errorf("predict.workers must be positive, got %d", c.Predict.Workers)
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return errors.Errorf("log.format %q is not one of console, json", c.Log.Format)
	}
	return nil
}

// Explicit reports whether the model is fully described by the configuration.
func (c *Config) Explicit() bool {
	return c.Model.Task != "" && len(c.Model.Imgsz) > 0
}

// Metadata returns the configured model values. A single imgsz value is a
// square input, two values are [height, width].
func (c *Config) Metadata() models.Metadata {
	m := models.Metadata{
		Task:     models.Task(c.Model.Task),
		Stride:   c.Model.Stride,
		Channels: c.Model.Channels,
	}
	switch len(c.Model.Imgsz) {
	case 1:
		m.InputSize = images.Size{Width: c.Model.Imgsz[0], Height: c.Model.Imgsz[0]}
	case 2:
		m.InputSize = images.Size{Width: c.Model.Imgsz[1], Height: c.Model.Imgsz[0]}
	}
	if len(c.Model.Names) > 0 {
		m.Names = models.ClassNames(c.Model.Names).Clone()
		m.ClassCount = len(m.Names)
	}
	return m
}

// ProviderConfig returns the execution provider configuration.
func (c *Config) ProviderConfig() providers.Config {
	cfg := providers.Config{
		Backend:           providers.ProviderBackend(c.Runtime.Provider),
		LibraryPath:       c.Runtime.LibraryPath,
		IntraOpThreads:    c.Runtime.IntraOpThreads,
		GraphOptimization: ort.GraphOptimizationLevelEnableExtended,
	}
	switch cfg.Backend {
	case providers.CUDAProviderBackend:
		cfg.Options = providers.CUDAOptions{DeviceID: c.Runtime.DeviceID}
	case providers.OpenVINOProviderBackend:
		cfg.Options = providers.OpenVINOOptions{NumThreads: c.Runtime.IntraOpThreads}
	}
	return cfg
}

// Params returns the decode thresholds.
func (c *Config) Params() postprocess.Params {
	return postprocess.Params{
		Confidence:    c.Predict.Confidence,
		IoU:           c.Predict.IoU,
		MaskThreshold: c.Predict.MaskThreshold,
		ClassAware:    c.Predict.ClassAware,
	}
}

// FillColor returns the letterbox pad colour.
func (c *Config) FillColor() color.Color {
	g := uint8(c.Predict.Fill)
	return color.RGBA{R: g, G: g, B: g, A: 255}
}
