package inference

import (
	"context"
	"image"
	"image/color"
	"os"
	"time"

	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/nvr-ai/go-yolo/models"
	"github.com/nvr-ai/go-yolo/models/postprocess"
	"github.com/nvr-ai/go-yolo/models/preprocess"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds PredictBatch concurrency when no worker count is set.
const DefaultWorkers = 4

// PredictOptions tune a single prediction call.
type PredictOptions struct {
	// Params are the decode thresholds.
	Params postprocess.Params
	// Conversion is applied to Mat inputs before anything else, when set.
	// The converted Mat is then packed in its own channel order, so
	// ColorBGRToRGB yields R, G, B planes. Without a conversion a 3-channel
	// Mat is read as BGR and packed as R, G, B.
	Conversion *gocv.ColorConversionCode
	// SwapRB reverses the packing order of a 3-channel input.
	SwapRB bool
	// Verbose logs the stage durations of every image.
	Verbose bool
}

// DefaultPredictOptions returns options with the default thresholds.
func DefaultPredictOptions() PredictOptions {
	return PredictOptions{Params: postprocess.DefaultParams()}
}

// Engine runs one model end to end. It is safe for concurrent use as long as
// its Runner is.
type Engine struct {
	meta       models.Metadata
	runner     Runner
	preprocess preprocess.Config
	decoder    *postprocess.Decoder
	workers    int
}

// EngineBuilder builds an Engine with a fluent API.
type EngineBuilder struct {
	provider  providers.Config
	modelPath string
	base      models.Metadata
	lookup    models.Lookup
	runner    Runner
	auto      bool
	fill      color.Color
	workers   int
	err       error
}

// NewEngineBuilder creates a new engine builder.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func NewEngineBuilder() *EngineBuilder {
	return &EngineBuilder{
		provider: providers.DefaultConfig(),
		workers:  DefaultWorkers,
	}
}

// WithProvider sets the execution provider used when the builder opens the
// model itself.
//
// Arguments:
//   - config: The provider configuration.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func (b *EngineBuilder) WithProvider(config providers.Config) *EngineBuilder {
	if b.HasError() {
		return b
	}
	if _, err := providers.NewProvider(config); err != nil {
		b.err = err
		return b
	}
	b.provider = config
	return b
}

// WithModel sets the ONNX model path.
func (b *EngineBuilder) WithModel(path string) *EngineBuilder {
	if b.HasError() {
		return b
	}
	if path == "" {
		b.err = errors.New("model path is empty")
		return b
	}
	b.modelPath = path
	return b
}

// WithMetadata supplies caller metadata. When both Task and InputSize are set
// the model's own metadata is not consulted at all; otherwise the values serve
// as the base the model metadata is resolved over.
//
// Arguments:
//   - meta: The caller metadata.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func (b *EngineBuilder) WithMetadata(meta models.Metadata) *EngineBuilder {
	if b.HasError() {
		return b
	}
	b.base = meta
	return b
}

// WithLookup overrides the metadata source, which defaults to the model file.
func (b *EngineBuilder) WithLookup(lookup models.Lookup) *EngineBuilder {
	if b.HasError() {
		return b
	}
	b.lookup = lookup
	return b
}

// WithRunner sets the runner. The builder then does not open an ONNX Runtime
// session.
func (b *EngineBuilder) WithRunner(runner Runner) *EngineBuilder {
	if b.HasError() {
		return b
	}
	b.runner = runner
	return b
}

// WithLetterbox configures stride-aligned minimal padding and the pad colour.
func (b *EngineBuilder) WithLetterbox(auto bool, fill color.Color) *EngineBuilder {
	if b.HasError() {
		return b
	}
	b.auto = auto
	b.fill = fill
	return b
}

// WithWorkers bounds the concurrency of PredictBatch.
func (b *EngineBuilder) WithWorkers(n int) *EngineBuilder {
	if b.HasError() {
		return b
	}
	if n <= 0 {
		b.err = errors.Errorf("workers must be positive, got %d", n)
		return b
	}
	b.workers = n
	return b
}

// HasError checks if the engine builder has errors.
//
// Returns:
//   - bool: True if there are errors, false otherwise.
func (b *EngineBuilder) HasError() bool {
	return b.err != nil
}

// MustBuild builds the engine and panics if there is an error.
//
// Returns:
//   - *Engine: The engine.
func (b *EngineBuilder) MustBuild() *Engine {
	e, err := b.Build()
	if err != nil {
		panic(err)
	}
	return e
}

// Build resolves the model metadata and opens the runner.
//
// Returns:
//   - *Engine: The engine.
//   - error: The error if any.
func (b *EngineBuilder) Build() (*Engine, error) {
	if b.HasError() {
		return nil, b.err
	}
	if b.runner == nil && b.modelPath == "" {
		return nil, errors.New("model not configured")
	}

	meta, err := b.resolveMetadata()
	if err != nil {
		return nil, err
	}

	runner := b.runner
	if runner == nil {
		if err := providers.Initialize(b.provider.LibraryPath); err != nil {
			return nil, err
		}
		session, err := NewSession(b.modelPath, b.provider)
		if err != nil {
			return nil, err
		}
		runner = session
	}

	cfg := preprocess.ConfigFromMetadata(meta)
	cfg.Auto = b.auto
	cfg.Fill = b.fill

	return &Engine{
		meta:       meta,
		runner:     runner,
		preprocess: cfg,
		decoder:    postprocess.NewDecoder(meta),
		workers:    b.workers,
	}, nil
}

func (b *EngineBuilder) resolveMetadata() (models.Metadata, error) {
	if b.base.Task != "" && b.base.InputSize.Width > 0 && b.base.InputSize.Height > 0 {
		meta, err := models.NewMetadata(b.base.Task, b.base.InputSize, b.base.Stride, b.base.Names, b.base.Channels)
		if err != nil {
			return models.Metadata{}, err
		}
		meta.KeypointShape = b.base.KeypointShape
		return meta, nil
	}

	lookup := b.lookup
	if lookup == nil {
		if b.modelPath == "" {
			return models.Metadata{}, errors.New("no metadata source: set a model path, a lookup or explicit metadata")
		}
		if err := providers.Initialize(b.provider.LibraryPath); err != nil {
			return models.Metadata{}, err
		}
		m, err := ReadMetadata(b.modelPath)
		if err != nil {
			return models.Metadata{}, err
		}
		lookup = m
	}
	return models.Resolve(lookup, b.base)
}

// Metadata returns the resolved model metadata.
func (e *Engine) Metadata() models.Metadata {
	return e.meta
}

// Close releases the runner.
func (e *Engine) Close() error {
	return e.runner.Close()
}

// Predict runs the full pipeline on an in-memory image.
//
// Arguments:
//   - ctx: The context for the prediction.
//   - img: The image to predict.
//   - opts: The thresholds and packing of the call.
//
// Returns:
//   - []postprocess.Detection: The detections in original image coordinates.
//   - error: A channel mismatch, a runner failure or a decode failure.
func (e *Engine) Predict(ctx context.Context, img image.Image, opts PredictOptions) ([]postprocess.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	task := e.meta.Task.String()

	cfg := e.preprocess
	cfg.SwapRB = opts.SwapRB

	start := time.Now()
	prepared, err := preprocess.NewPreprocessor(cfg).Preprocess(img)
	if err != nil {
		return nil, errors.Wrap(err, "preprocess")
	}
	preDone := time.Now()

	outputs, err := e.runner.Run(ctx, postprocess.Tensor{Shape: prepared.Shape, Data: prepared.Data})
	if err != nil {
		return nil, errors.Wrap(err, "inference")
	}
	inferDone := time.Now()

	dets, err := e.decoder.Decode(outputs, prepared.Geometry, opts.Params)
	if err != nil {
		return nil, errors.Wrap(err, "postprocess")
	}
	postDone := time.Now()

	stageDuration.WithLabelValues(stagePreprocess, task).Observe(preDone.Sub(start).Seconds())
	stageDuration.WithLabelValues(stageInference, task).Observe(inferDone.Sub(preDone).Seconds())
	stageDuration.WithLabelValues(stagePostprocess, task).Observe(postDone.Sub(inferDone).Seconds())
	detectionsTotal.WithLabelValues(task).Add(float64(len(dets)))

	if opts.Verbose {
		log.Info().
			Str("task", task).
			Int("detections", len(dets)).
			Float64("preprocess_ms", milliseconds(preDone.Sub(start))).
			Float64("inference_ms", milliseconds(inferDone.Sub(preDone))).
			Float64("postprocess_ms", milliseconds(postDone.Sub(inferDone))).
			Msg("predict")
	}

	return dets, nil
}

// PredictMat runs the full pipeline on a decoded OpenCV matrix in BGR order.
// An empty matrix is an input error: it is logged and yields no detections.
func (e *Engine) PredictMat(ctx context.Context, mat gocv.Mat, opts PredictOptions) ([]postprocess.Detection, error) {
	if mat.Empty() {
		inputErrorsTotal.WithLabelValues("empty").Inc()
		log.Error().Msg("image is empty")
		return nil, nil
	}

	src := mat
	if opts.Conversion != nil {
		converted := gocv.NewMat()
		defer converted.Close()
		gocv.CvtColor(mat, &converted, *opts.Conversion)
		src = converted
		// ToImage reads three channels as BGR; undo that so packing keeps
		// the order the conversion produced.
		if src.Channels() == 3 {
			opts.SwapRB = !opts.SwapRB
		}
	}

	if got := src.Channels(); got != e.meta.Channels {
		return nil, errors.Wrapf(preprocess.ErrChannelMismatch, "image has %d channels, model expects %d", got, e.meta.Channels)
	}

	img, err := src.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "error converting mat to image")
	}
	return e.Predict(ctx, img, opts)
}

// PredictFile decodes the image at path and runs the full pipeline on it.
// A missing or undecodable file is an input error: it is logged and yields
// no detections.
func (e *Engine) PredictFile(ctx context.Context, path string, opts PredictOptions) ([]postprocess.Detection, error) {
	if _, err := os.Stat(path); err != nil {
		inputErrorsTotal.WithLabelValues("not_found").Inc()
		log.Error().Err(err).Str("path", path).Msg("image not found")
		return nil, nil
	}

	mat := gocv.IMRead(path, gocv.IMReadUnchanged)
	defer mat.Close()
	if mat.Empty() {
		inputErrorsTotal.WithLabelValues("decode").Inc()
		log.Error().Str("path", path).Msg("image could not be decoded")
		return nil, nil
	}

	dets, err := e.PredictMat(ctx, mat, opts)
	return dets, errors.Wrap(err, path)
}

// PredictBatch runs PredictFile over paths with bounded concurrency. Each
// image runs its whole pipeline independently.
//
// Arguments:
//   - ctx: Cancels the remaining images on the first hard failure.
//   - paths: The image files.
//   - opts: The options of every call.
//
// Returns:
//   - [][]postprocess.Detection: The detections per path, in path order.
//   - error: The first hard failure.
func (e *Engine) PredictBatch(ctx context.Context, paths []string, opts PredictOptions) ([][]postprocess.Detection, error) {
	results := make([][]postprocess.Detection, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, path := range paths {
		g.Go(func() error {
			dets, err := e.PredictFile(gctx, path, opts)
			if err != nil {
				return err
			}
			results[i] = dets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func milliseconds(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
