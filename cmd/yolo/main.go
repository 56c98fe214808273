package main

import (
	"fmt"
	"os"

	"github.com/nvr-ai/go-yolo/cmd/yolo/commands"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

func main() {
	opts := &commands.GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "yolo",
		Short: "Run YOLO ONNX models on images",
		Long: `yolo runs ultralytics YOLO models exported to ONNX on images and prints
the detections as JSON lines.

Settings come from yolo.yaml (or --config) and YOLO_ prefixed environment
variables, e.g. YOLO_PREDICT_CONFIDENCE=0.5 or YOLO_RUNTIME_PROVIDER=cuda.`,
		Version:       fmt.Sprintf("%s (commit: %s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Config file (default ./yolo.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Override log.level")

	rootCmd.AddCommand(commands.NewPredictCmd(opts))
	rootCmd.AddCommand(commands.NewMetadataCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
