package commands

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"os"
	"os/signal"

	"github.com/nvr-ai/go-yolo/config"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/nvr-ai/go-yolo/models/postprocess"
	"github.com/nvr-ai/go-yolo/util"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// detectionLine is one detection of the JSON output.
type detectionLine struct {
	Class     int                    `json:"class"`
	Label     string                 `json:"label,omitempty"`
	Score     float32                `json:"score"`
	Box       *images.Box            `json:"box,omitempty"`
	MaskArea  int                    `json:"mask_area,omitempty"`
	Contours  [][]image.Point        `json:"contours,omitempty"`
	Keypoints []postprocess.Keypoint `json:"keypoints,omitempty"`
}

// resultLine is the JSON output of one image.
type resultLine struct {
	Path       string          `json:"path"`
	Detections []detectionLine `json:"detections"`
}

// NewPredictCmd creates the predict command.
func NewPredictCmd(opts *GlobalOptions) *cobra.Command {
	var (
		modelPath   string
		confidence  float32
		iou         float32
		verbose     bool
		contours    bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "predict <image|dir>",
		Short: "Run a model on an image or a directory of images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("model") {
				cfg.Model.Path = modelPath
			}
			if flags.Changed("conf") {
				cfg.Predict.Confidence = confidence
			}
			if flags.Changed("iou") {
				cfg.Predict.IoU = iou
			}
			if flags.Changed("verbose") {
				cfg.Predict.Verbose = verbose
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.Model.Path == "" {
				return errors.New("no model: set model.path or --model")
			}

			if metricsAddr != "" {
				go serveMetrics(metricsAddr)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			return runPredict(ctx, cfg, args[0], contours)
		},
	}

	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "ONNX model, overrides model.path")
	cmd.Flags().Float32Var(&confidence, "conf", 0, "Confidence threshold, overrides predict.confidence")
	cmd.Flags().Float32Var(&iou, "iou", 0, "NMS IoU threshold, overrides predict.iou")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log stage timings per image")
	cmd.Flags().BoolVar(&contours, "contours", false, "Print mask contours for segmentation models")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")

	return cmd
}

func runPredict(ctx context.Context, cfg *config.Config, input string, withContours bool) error {
	files, err := util.LoadImageFiles(input)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Warn().Str("input", input).Msg("no images found")
		return nil
	}

	builder := inference.NewEngineBuilder().
		WithProvider(cfg.ProviderConfig()).
		WithModel(cfg.Model.Path).
		WithLetterbox(cfg.Predict.LetterboxAuto, cfg.FillColor()).
		WithWorkers(cfg.Predict.Workers)
	if cfg.Explicit() {
		builder = builder.WithMetadata(cfg.Metadata())
	} else {
		// Configured stride, names and channels still take precedence.
		meta := cfg.Metadata()
		meta.Task = ""
		builder = builder.WithMetadata(meta)
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()
	defer providers.Shutdown()

	popts := inference.PredictOptions{
		Params:  cfg.Params(),
		SwapRB:  cfg.Predict.SwapRB,
		Verbose: cfg.Predict.Verbose,
	}

	paths := util.Paths(files)
	results, err := engine.PredictBatch(ctx, paths, popts)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for i, dets := range results {
		line, err := toResultLine(paths[i], dets, withContours)
		if err != nil {
			return err
		}
		if err := enc.Encode(line); err != nil {
			return errors.Wrap(err, "error writing output")
		}
	}
	return nil
}

func toResultLine(path string, dets []postprocess.Detection, withContours bool) (resultLine, error) {
	line := resultLine{Path: path, Detections: make([]detectionLine, len(dets))}
	for i, det := range dets {
		out := detectionLine{
			Class:     det.Class,
			Label:     det.Label,
			Score:     det.Score,
			Keypoints: det.Keypoints,
		}
		if !det.Box.Empty() {
			box := det.Box
			out.Box = &box
		}
		if !det.Mask.Empty() {
			out.MaskArea = det.Mask.Area()
			if withContours {
				c, err := postprocess.Contours(det)
				if err != nil {
					return resultLine{}, errors.Wrapf(err, "%s detection %d", path, i)
				}
				out.Contours = c
			}
		}
		line.Detections[i] = out
	}
	return line, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info().Str("addr", addr).Msg("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}
